package tables

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
)

// Repository manages table sessions and reservations, plus the read-only
// order queries the coordinator needs to decide whether a table is safe to
// free. Order writes stay with the order service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CountActiveOrders(ctx context.Context, tableID uuid.UUID) (int64, error)
	CountBlockingOrders(ctx context.Context, tableID uuid.UUID, since time.Time) (int64, error)
	GetOpenSession(ctx context.Context, tableID uuid.UUID) (*models.TableSession, error)
	CreateSession(ctx context.Context, session *models.TableSession) error
	CloseOpenSession(ctx context.Context, tableID uuid.UUID) (bool, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindCheckedInReservations(ctx context.Context, tableID uuid.UUID) ([]models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus, fields map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tables repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CountActiveOrders(ctx context.Context, tableID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("table_id = ?", tableID).
		Where("fulfillment_status NOT IN ?", []enums.FulfillmentStatus{
			enums.FulfillmentStatusCompleted,
			enums.FulfillmentStatusCancelled,
		}).
		Count(&count).Error
	return count, err
}

// CountBlockingOrders counts orders since the cutoff that keep a reservation
// from auto-completing: anything not yet both paid and terminal. Cancelled
// orders never block.
func (r *repository) CountBlockingOrders(ctx context.Context, tableID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("table_id = ?", tableID).
		Where("created_at >= ?", since).
		Where("fulfillment_status <> ?", enums.FulfillmentStatusCancelled).
		Where("fulfillment_status <> ? OR payment_status <> ?",
			enums.FulfillmentStatusCompleted, enums.PaymentStatusPaid).
		Count(&count).Error
	return count, err
}

func (r *repository) GetOpenSession(ctx context.Context, tableID uuid.UUID) (*models.TableSession, error) {
	var session models.TableSession
	err := r.db.WithContext(ctx).
		Where("table_id = ? AND closed_at IS NULL", tableID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) CreateSession(ctx context.Context, session *models.TableSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// CloseOpenSession frees the table with one conditional update. Zero rows
// affected means the session was already closed, which callers treat as a
// no-op.
func (r *repository) CloseOpenSession(ctx context.Context, tableID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.TableSession{}).
		Where("table_id = ? AND closed_at IS NULL", tableID).
		Updates(map[string]any{
			"status":    enums.TableSessionStatusFree,
			"closed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindCheckedInReservations(ctx context.Context, tableID uuid.UUID) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.WithContext(ctx).
		Where("table_id = ? AND status = ?", tableID, enums.ReservationStatusCheckedIn).
		Order("starts_at ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *repository) UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for key, value := range fields {
		updates[key] = value
	}
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
