package enums

// PaymentEventType identifies the processor notification kind. Unknown types
// are acknowledged and ignored, so this is not a closed set.
type PaymentEventType string

const (
	PaymentEventTypeCheckoutCompleted    PaymentEventType = "checkout.completed"
	PaymentEventTypeSubscriptionUpdated  PaymentEventType = "subscription.updated"
	PaymentEventTypeSubscriptionCanceled PaymentEventType = "subscription.canceled"
)

// String implements fmt.Stringer.
func (p PaymentEventType) String() string {
	return string(p)
}
