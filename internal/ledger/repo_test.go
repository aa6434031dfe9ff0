package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS payment_events (
  id TEXT PRIMARY KEY,
  external_id TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'received',
  attempt_count INTEGER NOT NULL DEFAULT 0,
  payload TEXT,
  error_detail TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM payment_events").Error)
	return db
}

func newEvent(externalID string) *models.PaymentEvent {
	return &models.PaymentEvent{
		ID:         uuid.New(),
		ExternalID: externalID,
		Type:       enums.PaymentEventTypeCheckoutCompleted,
		Status:     enums.PaymentEventStatusReceived,
		Payload:    json.RawMessage(`{"checkout_session_id":"cs_test"}`),
	}
}

func TestRepositoryInsertDeduplicates(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first := newEvent("evt_dup")
	inserted, err := repo.Insert(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	duplicate := newEvent("evt_dup")
	inserted, err = repo.Insert(ctx, duplicate)
	require.NoError(t, err)
	assert.False(t, inserted)

	stored, err := repo.GetByExternalID(ctx, "evt_dup")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
}

func TestRepositoryClaimSingleWinner(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	event := newEvent("evt_claim")
	_, err := repo.Insert(ctx, event)
	require.NoError(t, err)

	staleBefore := time.Now().UTC().Add(-5 * time.Minute)

	claimed, err := repo.Claim(ctx, event.ID, staleBefore)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.Claim(ctx, event.ID, staleBefore)
	require.NoError(t, err)
	assert.False(t, claimed, "fresh processing row must not be claimable")

	stored, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentEventStatusProcessing, stored.Status)
	assert.Equal(t, 1, stored.AttemptCount)
}

func TestRepositoryClaimRecoversStaleProcessing(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	event := newEvent("evt_stale")
	_, err := repo.Insert(ctx, event)
	require.NoError(t, err)

	claimed, err := repo.Claim(ctx, event.ID, time.Now().UTC().Add(-5*time.Minute))
	require.NoError(t, err)
	require.True(t, claimed)

	// Backdate the claim so it looks abandoned.
	require.NoError(t, db.Model(&models.PaymentEvent{}).
		Where("id = ?", event.ID).
		Update("updated_at", time.Now().UTC().Add(-time.Hour)).Error)

	claimed, err = repo.Claim(ctx, event.ID, time.Now().UTC().Add(-5*time.Minute))
	require.NoError(t, err)
	assert.True(t, claimed)

	stored, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.AttemptCount)
}

func TestRepositoryClaimFailedEvent(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	event := newEvent("evt_failed_claim")
	_, err := repo.Insert(ctx, event)
	require.NoError(t, err)

	detail := "order not found"
	require.NoError(t, repo.Finalize(ctx, event.ID, enums.PaymentEventStatusFailed, &detail))

	claimed, err := repo.Claim(ctx, event.ID, time.Now().UTC().Add(-5*time.Minute))
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRepositoryListSweepable(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	staleBefore := time.Now().UTC().Add(-5 * time.Minute)
	maxAttempts := 5

	received := newEvent("evt_sw_received")
	_, err := repo.Insert(ctx, received)
	require.NoError(t, err)

	failed := newEvent("evt_sw_failed")
	_, err = repo.Insert(ctx, failed)
	require.NoError(t, err)
	detail := "transient"
	require.NoError(t, repo.Finalize(ctx, failed.ID, enums.PaymentEventStatusFailed, &detail))

	exhausted := newEvent("evt_sw_exhausted")
	_, err = repo.Insert(ctx, exhausted)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.PaymentEvent{}).
		Where("id = ?", exhausted.ID).
		Updates(map[string]any{"status": enums.PaymentEventStatusFailed, "attempt_count": maxAttempts}).Error)

	stuck := newEvent("evt_sw_stuck")
	_, err = repo.Insert(ctx, stuck)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.PaymentEvent{}).
		Where("id = ?", stuck.ID).
		Updates(map[string]any{"status": enums.PaymentEventStatusProcessing, "updated_at": time.Now().UTC().Add(-time.Hour)}).Error)

	done := newEvent("evt_sw_done")
	_, err = repo.Insert(ctx, done)
	require.NoError(t, err)
	require.NoError(t, repo.Finalize(ctx, done.ID, enums.PaymentEventStatusSucceeded, nil))

	events, err := repo.ListSweepable(ctx, staleBefore, maxAttempts, 10)
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool, len(events))
	for _, e := range events {
		ids[e.ID] = true
	}
	assert.True(t, ids[received.ID])
	assert.True(t, ids[failed.ID])
	assert.True(t, ids[stuck.ID])
	assert.False(t, ids[exhausted.ID], "failed events at the attempt cap stay parked")
	assert.False(t, ids[done.ID])

	limited, err := repo.ListSweepable(ctx, staleBefore, maxAttempts, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
