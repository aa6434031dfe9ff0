package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
	"github.com/mesaops/venue-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies fulfillment and payment transitions. It is the only
// component allowed to mutate order rows.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	TransitionFulfillment(ctx context.Context, input TransitionFulfillmentInput) (*models.Order, error)
	TransitionPayment(ctx context.Context, input TransitionPaymentInput) (*models.Order, error)
}

// TransitionFulfillmentInput captures a requested fulfillment status change.
type TransitionFulfillmentInput struct {
	OrderID      uuid.UUID
	Target       enums.FulfillmentStatus
	ActorID      uuid.UUID
	ActorRole    enums.StaffRole
	Override     bool
	OverrideNote string
}

// TransitionPaymentInput captures a requested payment status change. A zero
// ActorID marks the caller as the reconciler rather than a staff member.
type TransitionPaymentInput struct {
	OrderID      uuid.UUID
	Target       enums.PaymentStatus
	Method       *enums.PaymentMethod
	ActorID      uuid.UUID
	ActorRole    enums.StaffRole
	Override     bool
	OverrideNote string
}

type service struct {
	repo   Repository
	tx     txRunner
	tables TableSignaler
	log    *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, tables TableSignaler, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if tables == nil {
		return nil, fmt.Errorf("table signaler required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, tables: tables, log: log}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) TransitionFulfillment(ctx context.Context, input TransitionFulfillmentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid fulfillment status %q", input.Target))
	}
	if input.Override {
		if err := validateOverride(input.ActorRole, input.OverrideNote); err != nil {
			return nil, err
		}
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.GetByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.FulfillmentStatus == input.Target {
			result = order
			return nil
		}
		if order.FulfillmentStatus.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order already terminal")
		}
		if !canTransitionFulfillment(order.FulfillmentStatus, input.Target) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot move order from %s to %s", order.FulfillmentStatus, input.Target))
		}

		if input.Target == enums.FulfillmentStatusCompleted && order.PaymentStatus != enums.PaymentStatusPaid {
			if !input.Override {
				return pkgerrors.New(pkgerrors.CodePaymentRequired, "order must be paid before completion").
					WithDetails(map[string]string{"payment_status": order.PaymentStatus.String()})
			}
			note := &models.OrderAuditNote{
				OrderID: order.ID,
				ActorID: input.ActorID,
				Note:    fmt.Sprintf("completion override while %s: %s", order.PaymentStatus, input.OverrideNote),
			}
			if err := repo.AddAuditNote(ctx, note); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record override note")
			}
			s.log.Warn(s.log.WithField(ctx, "order_id", order.ID.String()), "unpaid completion override recorded")
		}

		updated, err := repo.UpdateFulfillmentStatus(ctx, order.ID, order.FulfillmentStatus, input.Target)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update fulfillment status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order state changed concurrently")
		}
		order.FulfillmentStatus = input.Target

		// Every successful transition signals the coordinator in the same
		// transaction; the table check itself decides whether anything
		// closes, and running it repeatedly is safe.
		if order.TableID != nil {
			if err := s.tables.OnTableCheck(ctx, tx, order.VenueID, *order.TableID); err != nil {
				return err
			}
		}

		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) TransitionPayment(ctx context.Context, input TransitionPaymentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status %q", input.Target))
	}
	if input.Method != nil && !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", *input.Method))
	}
	if input.Override {
		if err := validateOverride(input.ActorRole, input.OverrideNote); err != nil {
			return nil, err
		}
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.GetByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// Replays of an already-applied payment signal are a no-op.
		if order.PaymentStatus == input.Target {
			result = order
			return nil
		}

		if order.FulfillmentStatus == enums.FulfillmentStatusCompleted && !input.Override {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment status is frozen once the order is completed")
		}
		if input.Target.Rank() < order.PaymentStatus.Rank() && !input.Override {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("payment status cannot move backwards from %s to %s", order.PaymentStatus, input.Target))
		}

		if input.Override {
			note := &models.OrderAuditNote{
				OrderID: order.ID,
				ActorID: input.ActorID,
				Note:    fmt.Sprintf("payment override %s -> %s: %s", order.PaymentStatus, input.Target, input.OverrideNote),
			}
			if err := repo.AddAuditNote(ctx, note); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record override note")
			}
			s.log.Warn(s.log.WithField(ctx, "order_id", order.ID.String()), "corrective payment override recorded")
		}

		updated, err := repo.UpdatePaymentStatus(ctx, order.ID, order.PaymentStatus, input.Target, input.Method)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment state changed concurrently")
		}

		order.PaymentStatus = input.Target
		if input.Method != nil {
			order.PaymentMethod = *input.Method
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateOverride(role enums.StaffRole, note string) error {
	if role != enums.StaffRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "override requires admin role")
	}
	if strings.TrimSpace(note) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "override note required")
	}
	return nil
}
