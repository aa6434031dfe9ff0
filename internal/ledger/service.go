package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
)

// Service defines operations over the payment event ledger.
type Service interface {
	Record(ctx context.Context, input RecordEventInput) (*models.PaymentEvent, bool, error)
	Claim(ctx context.Context, id uuid.UUID) (*models.PaymentEvent, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, detail string) error
	ListSweepable(ctx context.Context) ([]models.PaymentEvent, error)
}

// RecordEventInput captures the immutable data a payment event requires.
type RecordEventInput struct {
	ExternalID string          `json:"external_id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
}

type service struct {
	repo            Repository
	stalenessWindow time.Duration
	maxAttempts     int
	sweepLimit      int
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository, stalenessWindow time.Duration, maxAttempts, sweepLimit int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if stalenessWindow <= 0 {
		return nil, fmt.Errorf("staleness window must be positive")
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive")
	}
	if sweepLimit <= 0 {
		return nil, fmt.Errorf("sweep limit must be positive")
	}
	return &service{
		repo:            repo,
		stalenessWindow: stalenessWindow,
		maxAttempts:     maxAttempts,
		sweepLimit:      sweepLimit,
	}, nil
}

// Record appends a payment event to the ledger. Recording is idempotent on
// external id: replays return the already-stored event and report false.
func (s *service) Record(ctx context.Context, input RecordEventInput) (*models.PaymentEvent, bool, error) {
	if strings.TrimSpace(input.ExternalID) == "" {
		return nil, false, fmt.Errorf("external id is required")
	}
	if strings.TrimSpace(input.Type) == "" {
		return nil, false, fmt.Errorf("event type is required")
	}

	event := &models.PaymentEvent{
		ExternalID: input.ExternalID,
		Type:       enums.PaymentEventType(input.Type),
		Status:     enums.PaymentEventStatusReceived,
		Payload:    input.Payload,
	}
	inserted, err := s.repo.Insert(ctx, event)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return event, true, nil
	}

	existing, err := s.repo.GetByExternalID(ctx, input.ExternalID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Claim attempts to take ownership of an event for processing. A lost claim
// surfaces as ALREADY_CLAIMED: another worker holds the event, it has already
// reached a terminal outcome, or its processing hold is not yet stale.
func (s *service) Claim(ctx context.Context, id uuid.UUID) (*models.PaymentEvent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}

	staleBefore := time.Now().UTC().Add(-s.stalenessWindow)
	claimed, err := s.repo.Claim(ctx, id, staleBefore)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "payment event already claimed")
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		// The claim already landed; losing the read leaves the event stuck
		// in processing until the staleness window releases it.
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "payment event already claimed")
		}
		return nil, err
	}
	return event, nil
}

func (s *service) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("event id is required")
	}
	return s.repo.Finalize(ctx, id, enums.PaymentEventStatusSucceeded, nil)
}

func (s *service) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	if id == uuid.Nil {
		return fmt.Errorf("event id is required")
	}
	var errorDetail *string
	if strings.TrimSpace(detail) != "" {
		errorDetail = &detail
	}
	return s.repo.Finalize(ctx, id, enums.PaymentEventStatusFailed, errorDetail)
}

func (s *service) ListSweepable(ctx context.Context) ([]models.PaymentEvent, error) {
	staleBefore := time.Now().UTC().Add(-s.stalenessWindow)
	return s.repo.ListSweepable(ctx, staleBefore, s.maxAttempts, s.sweepLimit)
}
