package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  venue_id TEXT NOT NULL,
  table_id TEXT,
  fulfillment_status TEXT NOT NULL DEFAULT 'PLACED',
  payment_status TEXT NOT NULL DEFAULT 'UNPAID',
  payment_method TEXT NOT NULL DEFAULT 'CARD',
  total TEXT NOT NULL,
  checkout_session_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM orders").Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, venueID uuid.UUID, mutate func(*models.Order)) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:                uuid.New(),
		VenueID:           venueID,
		FulfillmentStatus: enums.FulfillmentStatusPlaced,
		PaymentStatus:     enums.PaymentStatusUnpaid,
		PaymentMethod:     enums.PaymentMethodCard,
		Total:             decimal.NewFromFloat(18.50),
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, db.Omit("AuditNotes").Create(order).Error)
	return order
}

func TestFindRecentUnpaidByVenueCandidates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	venueID := uuid.New()
	since := time.Now().UTC().Add(-15 * time.Minute)

	candidate := seedOrder(t, db, venueID, nil)

	orders, err := repo.FindRecentUnpaidByVenue(ctx, venueID, since)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, candidate.ID, orders[0].ID)
}

func TestFindRecentUnpaidByVenueSkipsNonCardOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	venueID := uuid.New()
	since := time.Now().UTC().Add(-15 * time.Minute)

	// A till tab settled in cash must never be credited by a card checkout.
	seedOrder(t, db, venueID, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusTill
		o.PaymentMethod = enums.PaymentMethodCash
	})
	seedOrder(t, db, venueID, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusPayLater
	})
	seedOrder(t, db, venueID, func(o *models.Order) {
		o.PaymentMethod = enums.PaymentMethodCash
	})

	orders, err := repo.FindRecentUnpaidByVenue(ctx, venueID, since)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestFindRecentUnpaidByVenueSkipsLinkedAndStaleOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	venueID := uuid.New()
	since := time.Now().UTC().Add(-15 * time.Minute)

	linked := seedOrder(t, db, venueID, nil)
	sessionID := "cs_" + uuid.NewString()
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", linked.ID).
		Update("checkout_session_id", sessionID).Error)

	stale := seedOrder(t, db, venueID, nil)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", stale.ID).
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)

	seedOrder(t, db, uuid.New(), nil)

	orders, err := repo.FindRecentUnpaidByVenue(ctx, venueID, since)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateFulfillmentStatusIsConditional(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), nil)

	updated, err := repo.UpdateFulfillmentStatus(ctx, order.ID, enums.FulfillmentStatusPlaced, enums.FulfillmentStatusInPrep)
	require.NoError(t, err)
	assert.True(t, updated)

	// Stale caller still believes the order is PLACED.
	updated, err = repo.UpdateFulfillmentStatus(ctx, order.ID, enums.FulfillmentStatusPlaced, enums.FulfillmentStatusCancelled)
	require.NoError(t, err)
	assert.False(t, updated)

	stored, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusInPrep, stored.FulfillmentStatus)
}
