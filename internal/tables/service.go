package tables

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/pkg/db"
	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
	"github.com/mesaops/venue-backend/pkg/logger"
)

const openSessionConstraint = "idx_table_sessions_open"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service derives table occupancy and reservation completion from order
// state. It is the only writer of table sessions and reservations.
type Service interface {
	OnTableCheck(ctx context.Context, tx *gorm.DB, venueID, tableID uuid.UUID) error
	Checkin(ctx context.Context, input CheckinInput) (*models.Reservation, error)
}

// CheckinInput captures a staff check-in action for a reservation.
type CheckinInput struct {
	ReservationID uuid.UUID
	TableID       uuid.UUID
}

type service struct {
	repo Repository
	tx   txRunner
	log  *logger.Logger
}

// NewService builds a table coordinator with the required dependencies.
func NewService(repo Repository, tx txRunner, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tables repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, log: log}, nil
}

// OnTableCheck runs inside the order transition transaction. It frees the
// table once no active order remains and evaluates checked-in reservations
// for auto-completion. Running it twice in a row is safe: re-closing a
// closed session affects zero rows.
func (s *service) OnTableCheck(ctx context.Context, tx *gorm.DB, venueID, tableID uuid.UUID) error {
	if tableID == uuid.Nil {
		return nil
	}
	repo := s.repo.WithTx(tx)

	active, err := repo.CountActiveOrders(ctx, tableID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active orders")
	}
	if active > 0 {
		return s.completeReservations(ctx, repo, tableID)
	}

	closed, err := repo.CloseOpenSession(ctx, tableID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close table session")
	}
	if closed {
		s.log.Info(s.log.WithField(ctx, "table_id", tableID.String()), "table session freed")
	}

	return s.completeReservations(ctx, repo, tableID)
}

func (s *service) completeReservations(ctx context.Context, repo Repository, tableID uuid.UUID) error {
	reservations, err := repo.FindCheckedInReservations(ctx, tableID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checked-in reservations")
	}

	now := time.Now().UTC()
	for _, reservation := range reservations {
		done := now.After(reservation.EndsAt)
		if !done {
			cutoff := reservation.StartsAt
			if reservation.CheckedInAt != nil {
				cutoff = *reservation.CheckedInAt
			}
			blocking, err := repo.CountBlockingOrders(ctx, tableID, cutoff)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count blocking orders")
			}
			done = blocking == 0
		}
		if !done {
			continue
		}

		updated, err := repo.UpdateReservationStatus(ctx, reservation.ID,
			enums.ReservationStatusCheckedIn, enums.ReservationStatusCompleted,
			map[string]any{"completed_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete reservation")
		}
		if updated {
			s.log.Info(s.log.WithField(ctx, "reservation_id", reservation.ID.String()), "reservation auto-completed")
		}
	}
	return nil
}

// Checkin moves a reservation to CHECKED_IN and opens a table session,
// reusing one already open for the table.
func (s *service) Checkin(ctx context.Context, input CheckinInput) (*models.Reservation, error) {
	if input.ReservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if input.TableID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id required")
	}

	var result *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		reservation, err := repo.GetReservation(ctx, input.ReservationID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}

		switch reservation.Status {
		case enums.ReservationStatusCheckedIn:
			result = reservation
			return nil
		case enums.ReservationStatusCompleted:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "reservation already completed")
		}

		now := time.Now().UTC()
		updated, err := repo.UpdateReservationStatus(ctx, reservation.ID,
			enums.ReservationStatusBooked, enums.ReservationStatusCheckedIn,
			map[string]any{"checked_in_at": now, "table_id": input.TableID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check in reservation")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "reservation state changed concurrently")
		}

		if err := s.ensureOpenSession(ctx, repo, reservation.VenueID, input.TableID); err != nil {
			return err
		}

		reservation.Status = enums.ReservationStatusCheckedIn
		reservation.CheckedInAt = &now
		tableID := input.TableID
		reservation.TableID = &tableID
		result = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ensureOpenSession(ctx context.Context, repo Repository, venueID, tableID uuid.UUID) error {
	_, err := repo.GetOpenSession(ctx, tableID)
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load table session")
	}

	session := &models.TableSession{
		VenueID:  venueID,
		TableID:  tableID,
		Status:   enums.TableSessionStatusOccupied,
		OpenedAt: time.Now().UTC(),
	}
	if err := repo.CreateSession(ctx, session); err != nil {
		// A concurrent open beat us to the partial unique index; the table
		// is occupied either way.
		if db.IsUniqueViolation(err, openSessionConstraint) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open table session")
	}
	return nil
}
