package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/pkg/db/models"
)

// Repository manages venue account persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.VenueAccount, error)
	GetByVenueID(ctx context.Context, venueID uuid.UUID) (*models.VenueAccount, error)
	Create(ctx context.Context, account *models.VenueAccount) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.VenueAccount, error) {
	var account models.VenueAccount
	err := r.db.WithContext(ctx).
		Where("square_subscription_id = ?", subscriptionID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) GetByVenueID(ctx context.Context, venueID uuid.UUID) (*models.VenueAccount, error) {
	var account models.VenueAccount
	err := r.db.WithContext(ctx).
		Where("venue_id = ?", venueID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) Create(ctx context.Context, account *models.VenueAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	for key, value := range fields {
		updates[key] = value
	}
	return r.db.WithContext(ctx).
		Model(&models.VenueAccount{}).
		Where("id = ?", id).
		Updates(updates).Error
}
