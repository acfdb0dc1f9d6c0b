package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the HTTP routes. The webhook route sits outside the
// browser-facing CORS group; the provider posts server-to-server.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/presale", func(r chi.Router) {
			r.Get("/status", h.PresaleStatus)
			r.Get("/stages", h.PresaleStages)
			r.Post("/purchase", h.Purchase)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/{id}/balance", h.Balance)
			r.Get("/{id}/purchases", h.Purchases)
			r.Get("/{id}/deposits", h.Deposits)
			r.Get("/{id}/transactions", h.Transactions)
		})

		r.Post("/deposits", h.CreateDeposit)

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/payment", h.PaymentWebhook)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/accounts/{id}/reconcile", h.ReconcileAccount)
		})
	})

	return r
}
