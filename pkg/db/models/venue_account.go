package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mesaops/venue-backend/pkg/enums"
)

// VenueAccount carries the venue's billing relationship with the payment
// processor. Subscription-status events resolve to this row.
type VenueAccount struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VenueID              uuid.UUID         `gorm:"column:venue_id;type:uuid;not null;uniqueIndex:idx_venue_accounts_venue_id"`
	SquareCustomerID     *string           `gorm:"column:square_customer_id"`
	SquareSubscriptionID *string           `gorm:"column:square_subscription_id;uniqueIndex:idx_venue_accounts_square_subscription_id"`
	Tier                 enums.AccountTier `gorm:"column:tier;type:account_tier;not null;default:'free'"`
	SubscriptionActive   bool              `gorm:"column:subscription_active;not null;default:false"`
	SubscriptionSyncedAt *time.Time        `gorm:"column:subscription_synced_at"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
