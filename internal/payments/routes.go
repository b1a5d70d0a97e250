package payments

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/payments", h.list)
	r.Post("/payments", h.record)
	r.Get("/invoices/{id}/payments", h.listForInvoice)
}
