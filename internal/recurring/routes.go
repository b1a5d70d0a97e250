package recurring

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers recurring profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/recurring-profiles", h.list)
	r.Post("/recurring-profiles", h.create)
	r.Get("/recurring-profiles/{id}", h.show)
	r.Post("/recurring-profiles/{id}/pause", h.pause)
	r.Post("/recurring-profiles/{id}/resume", h.resume)
}
