package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mesaops/venue-backend/pkg/enums"
)

// Reservation is a booked or in-progress seating.
type Reservation struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VenueID      uuid.UUID               `gorm:"column:venue_id;type:uuid;not null"`
	TableID      *uuid.UUID              `gorm:"column:table_id;type:uuid"`
	StartsAt     time.Time               `gorm:"column:starts_at;not null"`
	EndsAt       time.Time               `gorm:"column:ends_at;not null"`
	PartySize    int                     `gorm:"column:party_size;not null"`
	Status       enums.ReservationStatus `gorm:"column:status;type:reservation_status;not null;default:'BOOKED'"`
	ContactName  string                  `gorm:"column:contact_name;not null"`
	ContactPhone *string                 `gorm:"column:contact_phone"`
	CheckedInAt  *time.Time              `gorm:"column:checked_in_at"`
	CompletedAt  *time.Time              `gorm:"column:completed_at"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
