package reconciler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
)

// checkoutPayload is the parsed body of a checkout-completion event. OrderID
// and VenueID are best-effort: the processor echoes back whatever metadata
// was attached when the checkout was created.
type checkoutPayload struct {
	CheckoutSessionID string     `json:"checkout_session_id"`
	PaymentID         string     `json:"payment_id"`
	OrderID           *uuid.UUID `json:"order_id"`
	VenueID           *uuid.UUID `json:"venue_id"`
}

// subscriptionPayload is the parsed body of a subscription-status event.
type subscriptionPayload struct {
	SubscriptionID string     `json:"subscription_id"`
	CustomerID     string     `json:"customer_id"`
	VenueID        *uuid.UUID `json:"venue_id"`
	Tier           string     `json:"tier"`
	Status         string     `json:"status"`
}

func parseCheckoutPayload(raw json.RawMessage) (*checkoutPayload, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout event has no payload")
	}
	var payload checkoutPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed checkout payload")
	}
	return &payload, nil
}

func parseSubscriptionPayload(raw json.RawMessage) (*subscriptionPayload, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription event has no payload")
	}
	var payload subscriptionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed subscription payload")
	}
	if payload.SubscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription payload missing subscription id")
	}
	return &payload, nil
}

func (p *subscriptionPayload) active() bool {
	switch p.Status {
	case "ACTIVE", "active":
		return true
	default:
		return false
	}
}

func (p *checkoutPayload) describe() string {
	return fmt.Sprintf("session=%s payment=%s", p.CheckoutSessionID, p.PaymentID)
}
