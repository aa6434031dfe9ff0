package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/internal/accounts"
	"github.com/mesaops/venue-backend/internal/ledger"
	"github.com/mesaops/venue-backend/internal/orders"
	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
	"github.com/mesaops/venue-backend/pkg/logger"
)

type fakeLedger struct {
	events    map[uuid.UUID]*models.PaymentEvent
	claimDeny map[uuid.UUID]bool
	succeeded []uuid.UUID
	failed    map[uuid.UUID]string
	sweepable []models.PaymentEvent
}

func newFakeLedger(events ...*models.PaymentEvent) *fakeLedger {
	l := &fakeLedger{
		events:    map[uuid.UUID]*models.PaymentEvent{},
		claimDeny: map[uuid.UUID]bool{},
		failed:    map[uuid.UUID]string{},
	}
	for _, event := range events {
		l.events[event.ID] = event
	}
	return l
}

func (l *fakeLedger) Record(ctx context.Context, input ledger.RecordEventInput) (*models.PaymentEvent, bool, error) {
	return nil, false, nil
}

func (l *fakeLedger) Claim(ctx context.Context, id uuid.UUID) (*models.PaymentEvent, error) {
	if l.claimDeny[id] {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "payment event already claimed")
	}
	event, ok := l.events[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "payment event already claimed")
	}
	event.AttemptCount++
	event.Status = enums.PaymentEventStatusProcessing
	return event, nil
}

func (l *fakeLedger) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	l.succeeded = append(l.succeeded, id)
	if event, ok := l.events[id]; ok {
		event.Status = enums.PaymentEventStatusSucceeded
	}
	return nil
}

func (l *fakeLedger) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	l.failed[id] = detail
	if event, ok := l.events[id]; ok {
		event.Status = enums.PaymentEventStatusFailed
	}
	return nil
}

func (l *fakeLedger) ListSweepable(ctx context.Context) ([]models.PaymentEvent, error) {
	return l.sweepable, nil
}

type fakeResolver struct {
	bySession map[string]*models.Order
	recent    []models.Order
}

func (f *fakeResolver) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	if order, ok := f.bySession[sessionID]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResolver) FindRecentUnpaidByVenue(ctx context.Context, venueID uuid.UUID, since time.Time) ([]models.Order, error) {
	return f.recent, nil
}

type fakeTransitioner struct {
	calls []orders.TransitionPaymentInput
	err   error
}

func (f *fakeTransitioner) TransitionPayment(ctx context.Context, input orders.TransitionPaymentInput) (*models.Order, error) {
	f.calls = append(f.calls, input)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{ID: input.OrderID, PaymentStatus: input.Target}, nil
}

type fakeAccounts struct {
	calls []accounts.SubscriptionStateInput
	err   error
}

func (f *fakeAccounts) SetSubscriptionState(ctx context.Context, input accounts.SubscriptionStateInput) (*models.VenueAccount, error) {
	f.calls = append(f.calls, input)
	if f.err != nil {
		return nil, f.err
	}
	return &models.VenueAccount{Tier: input.Tier, SubscriptionActive: input.Active}, nil
}

type fakeVerifier struct {
	completed bool
	err       error
	calls     []string
}

func (f *fakeVerifier) VerifyCheckoutSession(ctx context.Context, sessionID string) (bool, error) {
	f.calls = append(f.calls, sessionID)
	return f.completed, f.err
}

type deps struct {
	ledger   *fakeLedger
	resolver *fakeResolver
	orders   *fakeTransitioner
	accounts *fakeAccounts
	verifier *fakeVerifier
	cfg      Config
}

func newTestService(t *testing.T, d deps) Service {
	t.Helper()
	if d.ledger == nil {
		d.ledger = newFakeLedger()
	}
	if d.resolver == nil {
		d.resolver = &fakeResolver{}
	}
	if d.orders == nil {
		d.orders = &fakeTransitioner{}
	}
	if d.accounts == nil {
		d.accounts = &fakeAccounts{}
	}
	if d.cfg.FallbackWindow == 0 {
		d.cfg.FallbackWindow = 15 * time.Minute
	}
	log := logger.New(logger.Options{ServiceName: "reconciler-test", Output: io.Discard})
	var verifier sessionVerifier
	if d.verifier != nil {
		verifier = d.verifier
	}
	svc, err := NewService(d.ledger, d.resolver, d.orders, d.accounts, verifier, d.cfg, log)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func checkoutEvent(payload checkoutPayload) *models.PaymentEvent {
	raw, _ := json.Marshal(payload)
	return &models.PaymentEvent{
		ID:         uuid.New(),
		ExternalID: fmt.Sprintf("evt_%s", uuid.NewString()[:8]),
		Type:       enums.PaymentEventTypeCheckoutCompleted,
		Status:     enums.PaymentEventStatusReceived,
		Payload:    raw,
	}
}

func subscriptionEvent(eventType enums.PaymentEventType, payload subscriptionPayload) *models.PaymentEvent {
	raw, _ := json.Marshal(payload)
	return &models.PaymentEvent{
		ID:         uuid.New(),
		ExternalID: fmt.Sprintf("evt_%s", uuid.NewString()[:8]),
		Type:       eventType,
		Status:     enums.PaymentEventStatusReceived,
		Payload:    raw,
	}
}

func TestProcess_CheckoutMarksOrderPaid(t *testing.T) {
	orderID := uuid.New()
	event := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_1", OrderID: &orderID})
	d := deps{ledger: newFakeLedger(event), orders: &fakeTransitioner{}}
	svc := newTestService(t, d)

	outcome, err := svc.Process(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if outcome != OutcomeSucceeded {
		t.Fatalf("expected succeeded, got %s", outcome)
	}
	if len(d.orders.calls) != 1 {
		t.Fatalf("expected one payment transition, got %d", len(d.orders.calls))
	}
	call := d.orders.calls[0]
	if call.OrderID != orderID || call.Target != enums.PaymentStatusPaid {
		t.Fatalf("unexpected transition input: %+v", call)
	}
	if len(d.ledger.succeeded) != 1 {
		t.Fatal("expected event finalized as succeeded")
	}
}

func TestProcess_LostClaimSkips(t *testing.T) {
	event := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_1"})
	l := newFakeLedger(event)
	l.claimDeny[event.ID] = true
	d := deps{ledger: l, orders: &fakeTransitioner{}}
	svc := newTestService(t, d)

	outcome, err := svc.Process(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", outcome)
	}
	if len(d.orders.calls) != 0 {
		t.Fatal("contested claim must not apply side effects")
	}
}

func TestApplyEvent_ResolvesBySessionReference(t *testing.T) {
	order := &models.Order{ID: uuid.New()}
	resolver := &fakeResolver{bySession: map[string]*models.Order{"cs_1": order}}
	transitioner := &fakeTransitioner{}
	svc := newTestService(t, deps{resolver: resolver, orders: transitioner})

	event := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_1"})
	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("ApplyEvent error: %v", err)
	}
	if len(transitioner.calls) != 1 || transitioner.calls[0].OrderID != order.ID {
		t.Fatalf("expected transition on resolved order, got %+v", transitioner.calls)
	}
}

func TestApplyEvent_FallbackSingleCandidate(t *testing.T) {
	venueID := uuid.New()
	candidate := models.Order{ID: uuid.New(), VenueID: venueID}
	resolver := &fakeResolver{recent: []models.Order{candidate}}
	transitioner := &fakeTransitioner{}
	svc := newTestService(t, deps{resolver: resolver, orders: transitioner})

	event := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_unknown", VenueID: &venueID})
	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("ApplyEvent error: %v", err)
	}
	if len(transitioner.calls) != 1 || transitioner.calls[0].OrderID != candidate.ID {
		t.Fatalf("expected fallback resolution, got %+v", transitioner.calls)
	}
}

func TestApplyEvent_FallbackRefusesAmbiguity(t *testing.T) {
	venueID := uuid.New()
	resolver := &fakeResolver{recent: []models.Order{{ID: uuid.New()}, {ID: uuid.New()}}}
	transitioner := &fakeTransitioner{}
	svc := newTestService(t, deps{resolver: resolver, orders: transitioner})

	event := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_unknown", VenueID: &venueID})
	err := svc.ApplyEvent(context.Background(), event)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnresolvedEvent {
		t.Fatalf("expected unresolved event for ambiguous fallback, got %v", err)
	}
	if len(transitioner.calls) != 0 {
		t.Fatal("ambiguous fallback must not guess an order")
	}
}

func TestApplyEvent_UnmatchedCheckoutIsTerminal(t *testing.T) {
	svc := newTestService(t, deps{})

	event := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_unknown"})
	err := svc.ApplyEvent(context.Background(), event)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnresolvedEvent {
		t.Fatalf("expected unresolved event, got %v", err)
	}
	if pkgerrors.Retryable(err) {
		t.Fatal("resolution failures must be terminal, not retryable")
	}
}

func TestProcess_FailureRecordsDetail(t *testing.T) {
	event := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_unknown"})
	l := newFakeLedger(event)
	svc := newTestService(t, deps{ledger: l})

	outcome, err := svc.Process(context.Background(), event.ID)
	if err == nil {
		t.Fatal("expected processing error")
	}
	if outcome != OutcomeFailed {
		t.Fatalf("expected failed, got %s", outcome)
	}
	if detail, ok := l.failed[event.ID]; !ok || detail == "" {
		t.Fatal("expected error detail on failed event")
	}
}

func TestApplyEvent_UnknownTypeAcknowledged(t *testing.T) {
	transitioner := &fakeTransitioner{}
	accountSvc := &fakeAccounts{}
	svc := newTestService(t, deps{orders: transitioner, accounts: accountSvc})

	event := &models.PaymentEvent{
		ID:      uuid.New(),
		Type:    enums.PaymentEventType("payout.sent"),
		Payload: json.RawMessage(`{}`),
	}
	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("unhandled types must be acknowledged: %v", err)
	}
	if len(transitioner.calls) != 0 || len(accountSvc.calls) != 0 {
		t.Fatal("unhandled types must not trigger side effects")
	}
}

func TestApplyEvent_SubscriptionUpdated(t *testing.T) {
	accountSvc := &fakeAccounts{}
	svc := newTestService(t, deps{accounts: accountSvc})

	event := subscriptionEvent(enums.PaymentEventTypeSubscriptionUpdated, subscriptionPayload{
		SubscriptionID: "sub_1",
		CustomerID:     "cust_1",
		Tier:           "pro",
		Status:         "ACTIVE",
	})
	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("ApplyEvent error: %v", err)
	}
	if len(accountSvc.calls) != 1 {
		t.Fatalf("expected one account update, got %d", len(accountSvc.calls))
	}
	call := accountSvc.calls[0]
	if call.Tier != enums.AccountTierPro || !call.Active {
		t.Fatalf("unexpected subscription state: %+v", call)
	}
}

func TestApplyEvent_SubscriptionCanceled(t *testing.T) {
	accountSvc := &fakeAccounts{}
	svc := newTestService(t, deps{accounts: accountSvc})

	event := subscriptionEvent(enums.PaymentEventTypeSubscriptionCanceled, subscriptionPayload{
		SubscriptionID: "sub_1",
		Status:         "CANCELED",
	})
	if err := svc.ApplyEvent(context.Background(), event); err != nil {
		t.Fatalf("ApplyEvent error: %v", err)
	}
	call := accountSvc.calls[0]
	if call.Active {
		t.Fatal("canceled subscription must deactivate the account")
	}
	if call.Tier != enums.AccountTierFree {
		t.Fatalf("canceled subscription without tier must fall back to free, got %s", call.Tier)
	}
}

func TestApplyEvent_SessionVerification(t *testing.T) {
	orderID := uuid.New()
	verifier := &fakeVerifier{completed: false}
	transitioner := &fakeTransitioner{}
	svc := newTestService(t, deps{
		orders:   transitioner,
		verifier: verifier,
		cfg:      Config{FallbackWindow: 15 * time.Minute, VerifySessions: true},
	})

	event := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_1", OrderID: &orderID})
	err := svc.ApplyEvent(context.Background(), event)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnresolvedEvent {
		t.Fatalf("expected unresolved event for unconfirmed session, got %v", err)
	}
	if len(verifier.calls) != 1 || verifier.calls[0] != "cs_1" {
		t.Fatalf("expected one verification call, got %v", verifier.calls)
	}
	if len(transitioner.calls) != 0 {
		t.Fatal("unconfirmed session must not mark the order paid")
	}
}

func TestSweep_ReplaysAndReportsFailures(t *testing.T) {
	orderID := uuid.New()
	good := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_good", OrderID: &orderID})
	bad := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_bad"})
	contested := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_contested"})

	l := newFakeLedger(good, bad, contested)
	l.sweepable = []models.PaymentEvent{*good, *bad, *contested}
	l.claimDeny[contested.ID] = true

	svc := newTestService(t, deps{ledger: l})

	result, err := svc.Sweep(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error from failed replay")
	}
	if len(result.Replayed) != 1 || result.Replayed[0] != good.ExternalID {
		t.Fatalf("unexpected replayed set: %v", result.Replayed)
	}
	if len(result.Failed) != 1 || result.Failed[0] != bad.ExternalID {
		t.Fatalf("unexpected failed set: %v", result.Failed)
	}
}

func TestProcess_ReplayOfSucceededEventIsNoop(t *testing.T) {
	orderID := uuid.New()
	event := checkoutEvent(checkoutPayload{CheckoutSessionID: "cs_1", OrderID: &orderID})
	event.Status = enums.PaymentEventStatusSucceeded

	l := newFakeLedger(event)
	// A succeeded event is not claimable in the real ledger.
	l.claimDeny[event.ID] = true
	transitioner := &fakeTransitioner{}
	svc := newTestService(t, deps{ledger: l, orders: transitioner})

	outcome, err := svc.Process(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if outcome != OutcomeSkipped || len(transitioner.calls) != 0 {
		t.Fatal("replaying a succeeded event must be a no-op")
	}
}
