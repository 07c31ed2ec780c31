// Package transport is the HTTP/JSON boundary: routing, auth, request
// validation, and the apperr-to-status mapping. It is the only layer
// allowed to translate a taxonomy code to an HTTP status.
package transport

import (
	"net/http"
	"time"

	"foodcourt/internal/eventbus"
	"foodcourt/internal/identity"
	"foodcourt/internal/orders"
	"foodcourt/internal/payments"
	"foodcourt/internal/pubsub"
	"foodcourt/internal/store"
	"foodcourt/internal/workforce"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Services is the single constructed value passed explicitly to the
// router — every handler closes over it, nothing is read from a package
// global.
type Services struct {
	Store     *store.Store
	Oracle    *identity.Oracle
	Bus       *eventbus.Bus
	Orders    *orders.Engine
	Payments  *payments.Engine
	Workforce *workforce.Engine
	PubSub    pubsub.PubSub
	RateLimit int
}

// NewRouter wires the full API surface under pathPrefix: request-id,
// real-ip, and recoverer middleware, CORS, and a per-caller rate limiter.
func NewRouter(svc *Services, pathPrefix string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	rateLimit := svc.RateLimit
	if rateLimit <= 0 {
		rateLimit = 100
	}
	r.Use(httprate.LimitByIP(rateLimit, time.Minute))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route(pathPrefix, func(api chi.Router) {
		// The websocket upgrade needs an unwrapped ResponseWriter
		// (http.Hijacker); middleware.Compress's writer doesn't implement
		// it, so it is registered before Compress is added below.
		api.With(svc.authMiddleware).Get("/ws/orders/{restaurantId}", svc.handleOrderBoardWS)

		api.Use(middleware.Compress(5))

		api.Post("/auth/session", svc.handleBootstrap)

		// Webhooks are explicitly unauthenticated — the adapter's
		// signature check is the only gate.
		api.Post("/payments/webhooks/{provider}", svc.handleWebhook)

		api.Group(func(authed chi.Router) {
			authed.Use(svc.authMiddleware)

			authed.Post("/orders", svc.handleCreateOrder)
			authed.Get("/orders/{id}", svc.handleGetOrder)
			authed.Get("/orders", svc.handleListOrders)
			authed.Patch("/orders/{id}/status", svc.handleTransitionOrderStatus)
			authed.Post("/orders/{id}/cancel", svc.handleCancelOrder)
			authed.Post("/orders/bulk/status", svc.handleBulkStatusUpdate)

			authed.Post("/payments", svc.handleCreatePayment)
			authed.Post("/payments/cash", svc.handleCreateCashPayment)
			authed.Post("/payments/terminal", svc.handleCreateTerminalPayment)
			authed.Post("/payments/{id}/refund", svc.handleRefundPayment)
			authed.Get("/payments/{id}", svc.handleGetPayment)

			authed.Post("/employees/invites", svc.handleCreateInvite)
			authed.Post("/employees/invites/{id}/revoke", svc.handleRevokeInvite)
			authed.Post("/employees/invites/consume", svc.handleConsumeInvite)
			authed.Post("/employees/shifts", svc.handleScheduleShift)
			authed.Post("/employees/clock-in", svc.handleClockIn)
			authed.Post("/employees/clock-out", svc.handleClockOut)
			authed.Get("/employees/{id}/shifts", svc.handleListEmployeeShifts)
			authed.Get("/restaurants/{id}/payroll", svc.handlePayroll)
		})
	})

	return r
}
