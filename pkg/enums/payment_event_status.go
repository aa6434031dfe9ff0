package enums

import "fmt"

// PaymentEventStatus is the processing state of an inbound processor event.
type PaymentEventStatus string

const (
	PaymentEventStatusReceived   PaymentEventStatus = "received"
	PaymentEventStatusProcessing PaymentEventStatus = "processing"
	PaymentEventStatusSucceeded  PaymentEventStatus = "succeeded"
	PaymentEventStatusFailed     PaymentEventStatus = "failed"
)

var validPaymentEventStatuses = []PaymentEventStatus{
	PaymentEventStatusReceived,
	PaymentEventStatusProcessing,
	PaymentEventStatusSucceeded,
	PaymentEventStatusFailed,
}

// String implements fmt.Stringer.
func (p PaymentEventStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentEventStatus.
func (p PaymentEventStatus) IsValid() bool {
	for _, candidate := range validPaymentEventStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentEventStatus converts raw input into a PaymentEventStatus.
func ParsePaymentEventStatus(value string) (PaymentEventStatus, error) {
	for _, candidate := range validPaymentEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event status %q", value)
}
