package journal

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers journal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/journal-entries", h.list)
	r.Post("/journal-entries", h.post)
	r.Get("/journal-entries/{id}", h.show)
}
