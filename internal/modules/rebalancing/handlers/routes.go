package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rebalancing routes. The router is expected to
// be mounted under /api/portfolio.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/rebalance", h.HandleRebalance)
}
