package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
)

// OrderView is the order shape returned by the status endpoints.
type OrderView struct {
	ID                uuid.UUID               `json:"id"`
	VenueID           uuid.UUID               `json:"venue_id"`
	TableID           *uuid.UUID              `json:"table_id,omitempty"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillment_status"`
	PaymentStatus     enums.PaymentStatus     `json:"payment_status"`
	PaymentMethod     enums.PaymentMethod     `json:"payment_method"`
	Total             decimal.Decimal         `json:"total"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// ToOrderView maps a stored order onto the response shape.
func ToOrderView(order *models.Order) OrderView {
	return OrderView{
		ID:                order.ID,
		VenueID:           order.VenueID,
		TableID:           order.TableID,
		FulfillmentStatus: order.FulfillmentStatus,
		PaymentStatus:     order.PaymentStatus,
		PaymentMethod:     order.PaymentMethod,
		Total:             order.Total,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}
