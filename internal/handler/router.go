package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mhlin/bakeshop-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина пекарни.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/register", h.Register)
		r.Post("/users/login", h.Login)

		r.Get("/products", h.GetProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Post("/coupons/apply", h.ApplyCoupon)

		r.Post("/orders", h.CreateOrder)
		r.Get("/orders/{id}", h.GetOrder)
		r.Post("/orders/{id}/transfer", h.ReportTransfer)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.auth.Authenticate)
			r.Use(h.auth.RequireAdmin)

			r.Get("/orders", h.GetOrders)
			r.Patch("/orders/{id}/status", h.UpdateOrderStatus)

			r.Post("/products", h.CreateProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)

			r.Get("/coupons", h.GetCoupons)
			r.Post("/coupons", h.CreateCoupon)
			r.Put("/coupons/{id}", h.UpdateCoupon)
			r.Delete("/coupons/{id}", h.DeleteCoupon)

			r.Get("/reports/sales", h.GetSalesReport)
			r.Get("/dashboard", h.GetDashboard)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
