package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
	"github.com/mesaops/venue-backend/pkg/logger"
)

// Service is the sole writer of venue account rows. The reconciler routes
// subscription-status events here.
type Service interface {
	SetSubscriptionState(ctx context.Context, input SubscriptionStateInput) (*models.VenueAccount, error)
}

// SubscriptionStateInput carries the processor-reported subscription state.
// VenueID is optional and only used to attach a subscription seen for the
// first time.
type SubscriptionStateInput struct {
	SubscriptionID string
	CustomerID     string
	VenueID        uuid.UUID
	Tier           enums.AccountTier
	Active         bool
	SyncedAt       time.Time
}

type service struct {
	repo Repository
	log  *logger.Logger
}

// NewService builds an accounts service with the required dependencies.
func NewService(repo Repository, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, log: log}, nil
}

// SetSubscriptionState applies the latest subscription snapshot. Replays are
// safe: writing the same tier and active flag twice converges on the same
// row state.
func (s *service) SetSubscriptionState(ctx context.Context, input SubscriptionStateInput) (*models.VenueAccount, error) {
	if strings.TrimSpace(input.SubscriptionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	if !input.Tier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid account tier %q", input.Tier))
	}

	account, err := s.resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	syncedAt := input.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}
	fields := map[string]any{
		"square_subscription_id": input.SubscriptionID,
		"tier":                   input.Tier,
		"subscription_active":    input.Active,
		"subscription_synced_at": syncedAt,
	}
	if strings.TrimSpace(input.CustomerID) != "" {
		fields["square_customer_id"] = input.CustomerID
	}
	if err := s.repo.Update(ctx, account.ID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update venue account")
	}

	subscriptionID := input.SubscriptionID
	account.SquareSubscriptionID = &subscriptionID
	account.Tier = input.Tier
	account.SubscriptionActive = input.Active
	account.SubscriptionSyncedAt = &syncedAt
	if strings.TrimSpace(input.CustomerID) != "" {
		customerID := input.CustomerID
		account.SquareCustomerID = &customerID
	}
	return account, nil
}

func (s *service) resolve(ctx context.Context, input SubscriptionStateInput) (*models.VenueAccount, error) {
	account, err := s.repo.GetBySubscriptionID(ctx, input.SubscriptionID)
	if err == nil {
		return account, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load venue account")
	}

	// Subscription not seen before; attach it to the venue's account when
	// the event names one.
	if input.VenueID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnresolvedEvent,
			fmt.Sprintf("no account for subscription %s", input.SubscriptionID))
	}

	account, err = s.repo.GetByVenueID(ctx, input.VenueID)
	if err == nil {
		s.log.Info(s.log.WithField(ctx, "venue_id", input.VenueID.String()), "attaching new subscription to venue account")
		return account, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load venue account")
	}

	created := &models.VenueAccount{
		VenueID: input.VenueID,
		Tier:    enums.AccountTierFree,
	}
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create venue account")
	}
	return created, nil
}
