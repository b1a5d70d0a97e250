package invoicing

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers invoice lifecycle routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.list)
	r.Post("/invoices", h.create)
	r.Get("/invoices/{id}", h.show)
	r.Post("/invoices/{id}", h.edit)
	r.Delete("/invoices/{id}", h.delete)
}
