package controllers

import (
	"net/http"

	"github.com/mesaops/venue-backend/api/responses"
	"github.com/mesaops/venue-backend/internal/reconciler"
	pkgerrors "github.com/mesaops/venue-backend/pkg/errors"
	"github.com/mesaops/venue-backend/pkg/logger"
)

// ReconcilePayments runs an on-demand sweep of unresolved payment events.
// Per-event failures are reported in the body, not as an error status,
// so operators can see which events still need attention.
func ReconcilePayments(svc reconciler.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler service unavailable"))
			return
		}

		result, err := svc.Sweep(r.Context())
		if result == nil && err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil {
			ctx := logg.WithField(r.Context(), "error", err.Error())
			logg.Warn(ctx, "manual reconcile sweep finished with failures")
		}
		responses.WriteSuccess(w, result)
	}
}
