package catalog

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers item master routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.list)
	r.Post("/items", h.create)
	r.Get("/items/{id}", h.show)
	r.Post("/items/{id}", h.update)
}
