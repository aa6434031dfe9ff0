package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mesaops/venue-backend/pkg/enums"
)

// PaymentEvent is one durable record of an inbound processor notification.
// ExternalID carries a unique index; it is the sole deduplication key for
// webhook delivery. Rows are never deleted (audit trail).
type PaymentEvent struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalID   string                   `gorm:"column:external_id;not null;uniqueIndex:idx_payment_events_external_id"`
	Type         enums.PaymentEventType   `gorm:"column:type;not null"`
	Status       enums.PaymentEventStatus `gorm:"column:status;type:payment_event_status;not null;default:'received'"`
	AttemptCount int                      `gorm:"column:attempt_count;not null;default:0"`
	Payload      json.RawMessage          `gorm:"column:payload;type:jsonb"`
	ErrorDetail  *string                  `gorm:"column:error_detail"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
