package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("checkout_session_id = ?", sessionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindRecentUnpaidByVenue supports the degraded session-resolution fallback:
// orders created since the cutoff that still await a card payment and carry
// no checkout session reference of their own. TILL, PAY_LATER, and cash
// orders are never candidates; crediting one from a checkout event would
// mis-attribute the payment.
func (r *repository) FindRecentUnpaidByVenue(ctx context.Context, venueID uuid.UUID, since time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("venue_id = ?", venueID).
		Where("payment_status = ?", enums.PaymentStatusUnpaid).
		Where("payment_method = ?", enums.PaymentMethodCard).
		Where("checkout_session_id IS NULL").
		Where("created_at > ?", since).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateFulfillmentStatus performs the conditional status write. The WHERE
// clause on the current status makes the update a compare-and-swap: a stale
// caller affects zero rows instead of overwriting a newer state.
func (r *repository) UpdateFulfillmentStatus(ctx context.Context, id uuid.UUID, from, to enums.FulfillmentStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND fulfillment_status = ?", id, from).
		Updates(map[string]any{
			"fulfillment_status": to,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, method *enums.PaymentMethod) (bool, error) {
	updates := map[string]any{
		"payment_status": to,
		"updated_at":     time.Now().UTC(),
	}
	if method != nil {
		updates["payment_method"] = *method
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AddAuditNote(ctx context.Context, note *models.OrderAuditNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}
