package tables

import (
	"time"

	"github.com/google/uuid"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
)

// ReservationView is the reservation shape returned by the check-in endpoint.
type ReservationView struct {
	ID          uuid.UUID               `json:"id"`
	VenueID     uuid.UUID               `json:"venue_id"`
	TableID     *uuid.UUID              `json:"table_id,omitempty"`
	StartsAt    time.Time               `json:"starts_at"`
	EndsAt      time.Time               `json:"ends_at"`
	PartySize   int                     `json:"party_size"`
	Status      enums.ReservationStatus `json:"status"`
	ContactName string                  `json:"contact_name"`
	CheckedInAt *time.Time              `json:"checked_in_at,omitempty"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
}

// ToReservationView maps a stored reservation onto the response shape.
func ToReservationView(reservation *models.Reservation) ReservationView {
	return ReservationView{
		ID:          reservation.ID,
		VenueID:     reservation.VenueID,
		TableID:     reservation.TableID,
		StartsAt:    reservation.StartsAt,
		EndsAt:      reservation.EndsAt,
		PartySize:   reservation.PartySize,
		Status:      reservation.Status,
		ContactName: reservation.ContactName,
		CheckedInAt: reservation.CheckedInAt,
		CompletedAt: reservation.CompletedAt,
	}
}
