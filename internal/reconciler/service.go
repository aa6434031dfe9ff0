package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/internal/accounts"
	"github.com/mesaops/venue-backend/internal/ledger"
	"github.com/mesaops/venue-backend/internal/orders"
	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
	"github.com/mesaops/venue-backend/pkg/logger"
)

// orderResolver provides the read-only lookups used to match a checkout
// event to its order. Satisfied by orders.Repository.
type orderResolver interface {
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	FindRecentUnpaidByVenue(ctx context.Context, venueID uuid.UUID, since time.Time) ([]models.Order, error)
}

type orderTransitioner interface {
	TransitionPayment(ctx context.Context, input orders.TransitionPaymentInput) (*models.Order, error)
}

type accountUpdater interface {
	SetSubscriptionState(ctx context.Context, input accounts.SubscriptionStateInput) (*models.VenueAccount, error)
}

// sessionVerifier confirms a checkout session with the processor. The call
// happens before any reconciliation write, never inside a transaction.
type sessionVerifier interface {
	VerifyCheckoutSession(ctx context.Context, sessionID string) (bool, error)
}

// Outcome is the result of one processing attempt for a ledger event.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// SweepResult reports the external ids touched by one sweep pass.
type SweepResult struct {
	Replayed []string `json:"replayed"`
	Failed   []string `json:"failed"`
}

// Service drives payment events from the ledger into order and account
// state. The webhook receiver and the sweeper both go through Process, so
// live delivery and replay share one code path.
type Service interface {
	ApplyEvent(ctx context.Context, event *models.PaymentEvent) error
	Process(ctx context.Context, eventID uuid.UUID) (Outcome, error)
	Sweep(ctx context.Context) (*SweepResult, error)
}

// Config carries the reconciler tunables.
type Config struct {
	FallbackWindow time.Duration
	VerifySessions bool
}

type service struct {
	events   ledger.Service
	resolver orderResolver
	orders   orderTransitioner
	accounts accountUpdater
	verifier sessionVerifier
	cfg      Config
	log      *logger.Logger
}

// NewService builds a reconciler with the required dependencies. The
// verifier may be nil when session verification is disabled.
func NewService(events ledger.Service, resolver orderResolver, orderSvc orderTransitioner, accountSvc accountUpdater, verifier sessionVerifier, cfg Config, log *logger.Logger) (Service, error) {
	if events == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("order resolver required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if accountSvc == nil {
		return nil, fmt.Errorf("accounts service required")
	}
	if cfg.VerifySessions && verifier == nil {
		return nil, fmt.Errorf("session verifier required when verification enabled")
	}
	if cfg.FallbackWindow <= 0 {
		return nil, fmt.Errorf("fallback window must be positive")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		events:   events,
		resolver: resolver,
		orders:   orderSvc,
		accounts: accountSvc,
		verifier: verifier,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Process claims the event, applies it, and records the outcome. Losing the
// claim to a concurrent worker is not an error.
func (s *service) Process(ctx context.Context, eventID uuid.UUID) (Outcome, error) {
	event, err := s.events.Claim(ctx, eventID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeAlreadyClaimed {
			return OutcomeSkipped, nil
		}
		return OutcomeSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment event")
	}

	ctx = s.log.WithFields(ctx, map[string]any{
		"event_id":    event.ID.String(),
		"external_id": event.ExternalID,
		"event_type":  event.Type,
		"attempt":     event.AttemptCount,
	})

	if applyErr := s.ApplyEvent(ctx, event); applyErr != nil {
		s.log.Error(ctx, "payment event application failed", applyErr)
		if err := s.events.MarkFailed(ctx, event.ID, applyErr.Error()); err != nil {
			return OutcomeFailed, multierr.Append(applyErr,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize failed event"))
		}
		return OutcomeFailed, applyErr
	}

	if err := s.events.MarkSucceeded(ctx, event.ID); err != nil {
		// The side effects landed and are idempotent; the sweeper will
		// re-drive the event and converge the ledger row.
		return OutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize succeeded event")
	}
	s.log.Info(ctx, "payment event applied")
	return OutcomeSucceeded, nil
}

// ApplyEvent dispatches one claimed event to the component it affects. It
// never writes order or account rows directly.
func (s *service) ApplyEvent(ctx context.Context, event *models.PaymentEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}

	switch event.Type {
	case enums.PaymentEventTypeCheckoutCompleted:
		return s.applyCheckout(ctx, event)
	case enums.PaymentEventTypeSubscriptionUpdated, enums.PaymentEventTypeSubscriptionCanceled:
		return s.applySubscription(ctx, event)
	default:
		// Processor types we do not act on are acknowledged, not failed,
		// so the sweeper does not retry them forever.
		s.log.Info(ctx, "ignoring unhandled payment event type")
		return nil
	}
}

func (s *service) applyCheckout(ctx context.Context, event *models.PaymentEvent) error {
	payload, err := parseCheckoutPayload(event.Payload)
	if err != nil {
		return err
	}

	if s.cfg.VerifySessions && payload.CheckoutSessionID != "" {
		completed, err := s.verifier.VerifyCheckoutSession(ctx, payload.CheckoutSessionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify checkout session")
		}
		if !completed {
			return pkgerrors.New(pkgerrors.CodeUnresolvedEvent,
				fmt.Sprintf("checkout session %s not completed at processor", payload.CheckoutSessionID))
		}
	}

	orderID, err := s.resolveOrder(ctx, payload)
	if err != nil {
		return err
	}

	method := enums.PaymentMethodCard
	if _, err := s.orders.TransitionPayment(ctx, orders.TransitionPaymentInput{
		OrderID: orderID,
		Target:  enums.PaymentStatusPaid,
		Method:  &method,
	}); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return pkgerrors.New(pkgerrors.CodeUnresolvedEvent,
				fmt.Sprintf("resolved order %s no longer exists (%s)", orderID, payload.describe()))
		}
		return err
	}
	return nil
}

// resolveOrder matches a checkout event to an order: by explicit order id,
// then by the stored checkout session reference, and as a last resort by a
// bounded recent-window search. The fallback exists because order creation
// and checkout-session creation can race; it refuses ambiguity rather than
// guessing.
func (s *service) resolveOrder(ctx context.Context, payload *checkoutPayload) (uuid.UUID, error) {
	if payload.OrderID != nil && *payload.OrderID != uuid.Nil {
		return *payload.OrderID, nil
	}

	if payload.CheckoutSessionID != "" {
		order, err := s.resolver.GetByCheckoutSessionID(ctx, payload.CheckoutSessionID)
		if err == nil {
			return order.ID, nil
		}
		if err != gorm.ErrRecordNotFound {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve order by session")
		}
	}

	if payload.VenueID == nil || *payload.VenueID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnresolvedEvent,
			fmt.Sprintf("checkout event matches no order (%s)", payload.describe()))
	}

	since := time.Now().UTC().Add(-s.cfg.FallbackWindow)
	candidates, err := s.resolver.FindRecentUnpaidByVenue(ctx, *payload.VenueID, since)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fallback order search")
	}
	switch len(candidates) {
	case 1:
		s.log.Warn(s.log.WithField(ctx, "order_id", candidates[0].ID.String()),
			"checkout event resolved via degraded venue fallback")
		return candidates[0].ID, nil
	case 0:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnresolvedEvent,
			fmt.Sprintf("no unpaid order in fallback window (%s)", payload.describe()))
	default:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnresolvedEvent,
			fmt.Sprintf("fallback matched %d orders, refusing to guess (%s)", len(candidates), payload.describe()))
	}
}

func (s *service) applySubscription(ctx context.Context, event *models.PaymentEvent) error {
	payload, err := parseSubscriptionPayload(event.Payload)
	if err != nil {
		return err
	}

	canceled := event.Type == enums.PaymentEventTypeSubscriptionCanceled

	tier, tierErr := enums.ParseAccountTier(payload.Tier)
	if tierErr != nil {
		if !canceled {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("subscription payload carries unknown tier %q", payload.Tier))
		}
		tier = enums.AccountTierFree
	}

	active := payload.active() && !canceled

	input := accounts.SubscriptionStateInput{
		SubscriptionID: payload.SubscriptionID,
		CustomerID:     payload.CustomerID,
		Tier:           tier,
		Active:         active,
		SyncedAt:       time.Now().UTC(),
	}
	if payload.VenueID != nil {
		input.VenueID = *payload.VenueID
	}
	_, err = s.accounts.SetSubscriptionState(ctx, input)
	return err
}

// Sweep re-drives stuck and failed events through Process. Events claimed
// by a live worker mid-sweep are skipped, not failed.
func (s *service) Sweep(ctx context.Context) (*SweepResult, error) {
	events, err := s.events.ListSweepable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sweepable events")
	}

	result := &SweepResult{Replayed: []string{}, Failed: []string{}}
	var errs error
	for _, event := range events {
		outcome, err := s.Process(ctx, event.ID)
		switch outcome {
		case OutcomeSucceeded:
			result.Replayed = append(result.Replayed, event.ExternalID)
		case OutcomeFailed:
			result.Failed = append(result.Failed, event.ExternalID)
			errs = multierr.Append(errs, err)
		case OutcomeSkipped:
			if err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}
	return result, errs
}
