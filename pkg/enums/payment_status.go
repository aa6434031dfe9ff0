package enums

import "fmt"

// PaymentStatus tracks how far an order's payment has progressed. TILL and
// PAY_LATER are intermediate markers for orders settled away from the app.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusTill     PaymentStatus = "TILL"
	PaymentStatusPayLater PaymentStatus = "PAY_LATER"
	PaymentStatusPaid     PaymentStatus = "PAID"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusUnpaid,
	PaymentStatusTill,
	PaymentStatusPayLater,
	PaymentStatusPaid,
}

// paymentStatusRank orders the monotonic progression. Corrective admin moves
// are the only sanctioned way backwards.
var paymentStatusRank = map[PaymentStatus]int{
	PaymentStatusUnpaid:   0,
	PaymentStatusTill:     1,
	PaymentStatusPayLater: 1,
	PaymentStatusPaid:     2,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// Rank returns the monotonic position of the status.
func (p PaymentStatus) Rank() int {
	return paymentStatusRank[p]
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
