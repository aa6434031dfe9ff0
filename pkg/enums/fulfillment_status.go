package enums

import "fmt"

// FulfillmentStatus tracks an order's kitchen/service progress, independent of
// its payment status.
type FulfillmentStatus string

const (
	FulfillmentStatusPlaced    FulfillmentStatus = "PLACED"
	FulfillmentStatusInPrep    FulfillmentStatus = "IN_PREP"
	FulfillmentStatusReady     FulfillmentStatus = "READY"
	FulfillmentStatusServing   FulfillmentStatus = "SERVING"
	FulfillmentStatusServed    FulfillmentStatus = "SERVED"
	FulfillmentStatusCompleted FulfillmentStatus = "COMPLETED"
	FulfillmentStatusCancelled FulfillmentStatus = "CANCELLED"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusPlaced,
	FulfillmentStatusInPrep,
	FulfillmentStatusReady,
	FulfillmentStatusServing,
	FulfillmentStatusServed,
	FulfillmentStatusCompleted,
	FulfillmentStatusCancelled,
}

// String implements fmt.Stringer.
func (f FulfillmentStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentStatus.
func (f FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further fulfillment transitions are allowed.
func (f FulfillmentStatus) IsTerminal() bool {
	return f == FulfillmentStatusCompleted || f == FulfillmentStatusCancelled
}

// ParseFulfillmentStatus converts raw input into a FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
