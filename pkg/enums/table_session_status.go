package enums

import "fmt"

// TableSessionStatus is the occupancy state of a physical table.
type TableSessionStatus string

const (
	TableSessionStatusFree     TableSessionStatus = "FREE"
	TableSessionStatusOccupied TableSessionStatus = "OCCUPIED"
)

var validTableSessionStatuses = []TableSessionStatus{
	TableSessionStatusFree,
	TableSessionStatusOccupied,
}

// String implements fmt.Stringer.
func (t TableSessionStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TableSessionStatus.
func (t TableSessionStatus) IsValid() bool {
	for _, candidate := range validTableSessionStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTableSessionStatus converts raw input into a TableSessionStatus.
func ParseTableSessionStatus(value string) (TableSessionStatus, error) {
	for _, candidate := range validTableSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid table session status %q", value)
}
