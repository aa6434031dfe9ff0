package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
)

// Repository manages persistence for payment events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, event *models.PaymentEvent) (bool, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.PaymentEvent, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentEvent, error)
	Claim(ctx context.Context, id uuid.UUID, staleBefore time.Time) (bool, error)
	Finalize(ctx context.Context, id uuid.UUID, status enums.PaymentEventStatus, errorDetail *string) error
	ListSweepable(ctx context.Context, staleBefore time.Time, maxAttempts, limit int) ([]models.PaymentEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment event repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Insert records a payment event, reporting false when an event with the
// same external id already exists. The unique index on external_id is the
// only dedup mechanism, so concurrent duplicate deliveries are safe.
func (r *repository) Insert(ctx context.Context, event *models.PaymentEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) GetByExternalID(ctx context.Context, externalID string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// Claim transitions an event to processing with a single conditional update.
// It succeeds when the event is received, failed, or stuck in processing
// since before staleBefore. Exactly one concurrent claimer wins.
func (r *repository) Claim(ctx context.Context, id uuid.UUID, staleBefore time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("id = ?", id).
		Where("status IN ? OR (status = ? AND updated_at < ?)",
			[]enums.PaymentEventStatus{enums.PaymentEventStatusReceived, enums.PaymentEventStatusFailed},
			enums.PaymentEventStatusProcessing, staleBefore).
		Updates(map[string]any{
			"status":        enums.PaymentEventStatusProcessing,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Finalize(ctx context.Context, id uuid.UUID, status enums.PaymentEventStatus, errorDetail *string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       status,
			"error_detail": errorDetail,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// ListSweepable returns events the sweeper should retry: received events,
// failed events under the attempt cap, and processing events stuck since
// before staleBefore.
func (r *repository) ListSweepable(ctx context.Context, staleBefore time.Time, maxAttempts, limit int) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.PaymentEventStatusReceived).
		Or("status = ? AND attempt_count < ?", enums.PaymentEventStatusFailed, maxAttempts).
		Or("status = ? AND updated_at < ?", enums.PaymentEventStatusProcessing, staleBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
