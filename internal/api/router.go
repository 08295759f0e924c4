package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xDyN/AlphaBot/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", s.getStats)
		r.Get("/quota", s.getQuota)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, errors.New("no route for "+r.URL.Path))
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "alphabot",
	})
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.stats.Snapshot())
}

// QuotaStatus is the body of /api/v1/quota.
type QuotaStatus struct {
	Account  string `json:"account"`
	Captures int    `json:"captures"`
	Spins    int    `json:"spins"`
}

func (s *Server) getQuota(w http.ResponseWriter, r *http.Request) {
	if s.quota == nil {
		response.ServiceUnavailable(w, errors.New("quota tracking is not configured"))
		return
	}

	captures, err := s.quota.CaptureCount(r.Context(), s.config.Account)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	spins, err := s.quota.SpinCount(r.Context(), s.config.Account)
	if err != nil {
		response.InternalError(w, err)
		return
	}

	response.Success(w, QuotaStatus{Account: s.config.Account, Captures: captures, Spins: spins})
}
