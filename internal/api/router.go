package api

import (
	"net/http"

	"github.com/example/order-engine/internal/api/middleware"
	"github.com/example/order-engine/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig bundles the handler sets and services the router wires up.
type RouterConfig struct {
	Orders         *OrderHandlers
	PaymentMethods *PaymentMethodHandlers
	JWTService     *auth.JWTService
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	// All routes require an authenticated user.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTService))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", cfg.Orders.CreateOrder)
			r.Get("/", cfg.Orders.GetOrders)
			r.Get("/{id}", cfg.Orders.GetOrder)
			r.Patch("/{id}/cancel", cfg.Orders.CancelOrder)
		})

		r.Route("/api/payment-methods", func(r chi.Router) {
			r.Get("/", cfg.PaymentMethods.ListMethods)
			r.Post("/", cfg.PaymentMethods.AddMethod)
			r.Patch("/{id}/set-default", cfg.PaymentMethods.SetDefaultMethod)
			r.Delete("/{id}", cfg.PaymentMethods.DeactivateMethod)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))
			r.Patch("/admin/orders/{id}/status", cfg.Orders.UpdateOrderStatus)
		})
	})

	return r
}
