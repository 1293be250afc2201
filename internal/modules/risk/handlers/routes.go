package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk analysis routes. The router is expected
// to be mounted under /api/portfolio.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Post("/analyze", h.HandleAnalyze)
		r.Post("/var", h.HandleVaR)
		r.Post("/cvar", h.HandleCVaR)
		r.Post("/stress-test", h.HandleStressTest)
	})
}
