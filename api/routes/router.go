package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mesaops/venue-backend/api/controllers"
	webhookcontrollers "github.com/mesaops/venue-backend/api/controllers/webhooks"
	"github.com/mesaops/venue-backend/api/middleware"
	"github.com/mesaops/venue-backend/internal/ledger"
	"github.com/mesaops/venue-backend/internal/orders"
	"github.com/mesaops/venue-backend/internal/reconciler"
	"github.com/mesaops/venue-backend/internal/tables"
	"github.com/mesaops/venue-backend/pkg/config"
	"github.com/mesaops/venue-backend/pkg/enums"
	"github.com/mesaops/venue-backend/pkg/logger"
	"github.com/mesaops/venue-backend/pkg/square"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Config       *config.Config
	Logger       *logger.Logger
	Pingers      map[string]controllers.Pinger
	SquareClient *square.Client
	Orders       orders.Service
	Tables       tables.Service
	Ledger       ledger.Service
	Reconciler   reconciler.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.SquareWebhook(deps.Ledger, deps.Reconciler, deps.SquareClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/status", controllers.OrderStatus(deps.Orders, logg))
			r.Post("/payment", controllers.OrderPayment(deps.Orders, logg))
		})

		r.Post("/reservations/{reservationId}/checkin", controllers.ReservationCheckin(deps.Tables, logg))

		r.With(middleware.RequireRole(enums.StaffRoleAdmin, logg)).
			Post("/payments/reconcile", controllers.ReconcilePayments(deps.Reconciler, logg))
	})

	return r
}
