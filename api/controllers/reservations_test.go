package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	internaltables "github.com/mesaops/venue-backend/internal/tables"
	"github.com/mesaops/venue-backend/pkg/db/models"
	"github.com/mesaops/venue-backend/pkg/enums"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
)

type stubTablesService struct {
	checkinFn func(ctx context.Context, input internaltables.CheckinInput) (*models.Reservation, error)
}

func (s stubTablesService) OnTableCheck(ctx context.Context, tx *gorm.DB, venueID, tableID uuid.UUID) error {
	return nil
}

func (s stubTablesService) Checkin(ctx context.Context, input internaltables.CheckinInput) (*models.Reservation, error) {
	if s.checkinFn != nil {
		return s.checkinFn(ctx, input)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
}

func checkinRequestFor(reservationID uuid.UUID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("reservationId", reservationID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestReservationCheckin(t *testing.T) {
	reservationID := uuid.New()
	tableID := uuid.New()
	now := time.Now().UTC()

	svc := stubTablesService{
		checkinFn: func(ctx context.Context, input internaltables.CheckinInput) (*models.Reservation, error) {
			if input.ReservationID != reservationID || input.TableID != tableID {
				t.Fatalf("unexpected input %+v", input)
			}
			return &models.Reservation{
				ID:          reservationID,
				VenueID:     uuid.New(),
				TableID:     &tableID,
				Status:      enums.ReservationStatusCheckedIn,
				CheckedInAt: &now,
			}, nil
		},
	}

	body := fmt.Sprintf(`{"table_id":%q}`, tableID)
	resp := httptest.NewRecorder()
	ReservationCheckin(svc, nil).ServeHTTP(resp, checkinRequestFor(reservationID, body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data internaltables.ReservationView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.ReservationStatusCheckedIn {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}

func TestReservationCheckinRejectsBadTableID(t *testing.T) {
	resp := httptest.NewRecorder()
	ReservationCheckin(stubTablesService{}, nil).ServeHTTP(resp, checkinRequestFor(uuid.New(), `{"table_id":"not-a-uuid"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestReservationCheckinSurfacesCompletedConflict(t *testing.T) {
	svc := stubTablesService{
		checkinFn: func(ctx context.Context, input internaltables.CheckinInput) (*models.Reservation, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "reservation already completed")
		},
	}

	body := fmt.Sprintf(`{"table_id":%q}`, uuid.New())
	resp := httptest.NewRecorder()
	ReservationCheckin(svc, nil).ServeHTTP(resp, checkinRequestFor(uuid.New(), body))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
