package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mesaops/venue-backend/api/responses"
	"github.com/mesaops/venue-backend/api/validators"
	"github.com/mesaops/venue-backend/internal/tables"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
	"github.com/mesaops/venue-backend/pkg/logger"
)

type checkinRequest struct {
	TableID string `json:"table_id" validate:"required,uuid4"`
}

// ReservationCheckin seats a booked reservation at a table.
func ReservationCheckin(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tables service unavailable"))
			return
		}

		reservationID, err := uuid.Parse(chi.URLParam(r, "reservationId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid reservation id"))
			return
		}

		var req checkinRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tableID, err := uuid.Parse(req.TableID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid table id"))
			return
		}

		reservation, err := svc.Checkin(r.Context(), tables.CheckinInput{
			ReservationID: reservationID,
			TableID:       tableID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tables.ToReservationView(reservation))
	}
}
