package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio optimization routes. The router is
// expected to be mounted under /api/portfolio.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/optimize", h.HandleOptimize)
	r.Post("/efficient-frontier", h.HandleEfficientFrontier)
	r.Post("/compare", h.HandleCompare)
	r.Get("/methods", h.HandleMethods)
}
