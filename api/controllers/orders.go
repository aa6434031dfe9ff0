package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mesaops/venue-backend/api/middleware"
	"github.com/mesaops/venue-backend/api/responses"
	"github.com/mesaops/venue-backend/api/validators"
	"github.com/mesaops/venue-backend/internal/orders"
	"github.com/mesaops/venue-backend/pkg/enums"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
	"github.com/mesaops/venue-backend/pkg/logger"
)

type orderStatusRequest struct {
	Status       string `json:"status" validate:"required"`
	Override     bool   `json:"override"`
	OverrideNote string `json:"override_note" validate:"max=500"`
}

type orderPaymentRequest struct {
	Status       string  `json:"status" validate:"required"`
	Method       *string `json:"method"`
	Override     bool    `json:"override"`
	OverrideNote string  `json:"override_note" validate:"max=500"`
}

// OrderDetail returns the current order state; customers poll this for
// payment pending/confirmed views.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.ToOrderView(order))
	}
}

// OrderStatus applies a fulfillment transition requested by staff.
func OrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseFulfillmentStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		actorID, role, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.TransitionFulfillment(r.Context(), orders.TransitionFulfillmentInput{
			OrderID:      orderID,
			Target:       target,
			ActorID:      actorID,
			ActorRole:    role,
			Override:     req.Override,
			OverrideNote: req.OverrideNote,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.ToOrderView(order))
	}
}

// OrderPayment applies a payment transition requested by staff, including
// corrective admin overrides.
func OrderPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParsePaymentStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		var method *enums.PaymentMethod
		if req.Method != nil {
			parsed, err := enums.ParsePaymentMethod(*req.Method)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid method"))
				return
			}
			method = &parsed
		}

		actorID, role, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.TransitionPayment(r.Context(), orders.TransitionPaymentInput{
			OrderID:      orderID,
			Target:       target,
			Method:       method,
			ActorID:      actorID,
			ActorRole:    role,
			Override:     req.Override,
			OverrideNote: req.OverrideNote,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.ToOrderView(order))
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id")
	}
	return id, nil
}

func actorFromContext(r *http.Request) (uuid.UUID, enums.StaffRole, error) {
	actorID, err := uuid.Parse(middleware.ActorIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	role, err := enums.ParseStaffRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "actor role missing")
	}
	return actorID, role, nil
}
