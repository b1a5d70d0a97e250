package inventory

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/inventory/adjustments", h.adjust)
	r.Get("/items/{id}/movements", h.listMovements)
}
