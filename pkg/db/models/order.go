package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mesaops/venue-backend/pkg/enums"
)

// Order is one purchasable transaction for a venue. Rows are never hard
// deleted; cancellation is a terminal status.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VenueID           uuid.UUID               `gorm:"column:venue_id;type:uuid;not null"`
	TableID           *uuid.UUID              `gorm:"column:table_id;type:uuid"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:fulfillment_status;not null;default:'PLACED'"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;type:payment_status;not null;default:'UNPAID'"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;type:payment_method;not null;default:'CARD'"`
	Total             decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	CheckoutSessionID *string                 `gorm:"column:checkout_session_id"`
	AuditNotes        []OrderAuditNote        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderAuditNote records a manual override or corrective action on an order.
type OrderAuditNote struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ActorID   uuid.UUID `gorm:"column:actor_id;type:uuid;not null"`
	Note      string    `gorm:"column:note;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
