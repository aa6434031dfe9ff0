package enums

import "fmt"

// ReservationStatus is the lifecycle state of a booked seating.
type ReservationStatus string

const (
	ReservationStatusBooked    ReservationStatus = "BOOKED"
	ReservationStatusCheckedIn ReservationStatus = "CHECKED_IN"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusBooked,
	ReservationStatusCheckedIn,
	ReservationStatusCompleted,
}

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
