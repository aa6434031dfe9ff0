package orders

import "github.com/mesaops/venue-backend/pkg/enums"

// fulfillmentTransitions lists the legal next states for each fulfillment
// status. Cancellation is reachable from every non-terminal state.
var fulfillmentTransitions = map[enums.FulfillmentStatus][]enums.FulfillmentStatus{
	enums.FulfillmentStatusPlaced:    {enums.FulfillmentStatusInPrep, enums.FulfillmentStatusCancelled},
	enums.FulfillmentStatusInPrep:    {enums.FulfillmentStatusReady, enums.FulfillmentStatusCancelled},
	enums.FulfillmentStatusReady:     {enums.FulfillmentStatusServing, enums.FulfillmentStatusCancelled},
	enums.FulfillmentStatusServing:   {enums.FulfillmentStatusServed, enums.FulfillmentStatusCancelled},
	enums.FulfillmentStatusServed:    {enums.FulfillmentStatusCompleted, enums.FulfillmentStatusCancelled},
	enums.FulfillmentStatusCompleted: nil,
	enums.FulfillmentStatusCancelled: nil,
}

func canTransitionFulfillment(from, to enums.FulfillmentStatus) bool {
	for _, next := range fulfillmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
