package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
)

// Repository manages persistence for order records. The order service is the
// sole writer; other components read through their own queries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindRecentUnpaidByVenue(ctx context.Context, venueID uuid.UUID, since time.Time) ([]models.Order, error)
	UpdateFulfillmentStatus(ctx context.Context, id uuid.UUID, from, to enums.FulfillmentStatus) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, method *enums.PaymentMethod) (bool, error)
	AddAuditNote(ctx context.Context, note *models.OrderAuditNote) error
}

// TableSignaler receives the table-check signal emitted when an order reaches
// a terminal fulfillment status. The call runs inside the same transaction as
// the status write so the signal cannot be lost.
type TableSignaler interface {
	OnTableCheck(ctx context.Context, tx *gorm.DB, venueID, tableID uuid.UUID) error
}
