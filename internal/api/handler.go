// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-portfolio-stats/internal/model"
	"github-portfolio-stats/internal/stats"
)

const (
	defaultHeatmapDays = 365
	maxHeatmapDays     = 365
)

// Portfolio is the part of portfolio.Service exposed over HTTP.
type Portfolio interface {
	FetchGitHubStats(ctx context.Context, username string) model.GitHubStats
	ProjectsOrFallback(ctx context.Context, username string) []model.Project
}

// Handler is the container for API dependencies.
type Handler struct {
	portfolio Portfolio
	logger    *slog.Logger
	now       func() time.Time
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(portfolio Portfolio, logger *slog.Logger) http.Handler {
	h := &Handler{
		portfolio: portfolio,
		logger:    logger,
		now:       time.Now,
	}
	return h.routes()
}

func (h *Handler) routes() http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1/users/{username}", func(r chi.Router) {
		r.Use(h.validateUsername)
		r.Get("/stats", h.getStats)
		r.Get("/projects", h.getProjects)
		r.Get("/contributions", h.getContributions)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validateUsername rejects malformed usernames before any GitHub call is made.
func (h *Handler) validateUsername(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := model.ValidateUsername(chi.URLParam(r, "username")); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getStats returns the aggregated stats panel data.
// GET /v1/users/{username}/stats
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	respondWithJSON(w, http.StatusOK, h.portfolio.FetchGitHubStats(r.Context(), username))
}

// getProjects returns the projects grid, falling back to a placeholder card.
// GET /v1/users/{username}/projects
func (h *Handler) getProjects(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	respondWithJSON(w, http.StatusOK, h.portfolio.ProjectsOrFallback(r.Context(), username))
}

// getContributions returns the contribution heatmap for the last N days.
// GET /v1/users/{username}/contributions?days=N
func (h *Handler) getContributions(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	days := defaultHeatmapDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		n, err := strconv.Atoi(daysStr)
		if err != nil || n <= 0 || n > maxHeatmapDays {
			respondWithError(w, http.StatusBadRequest, "Invalid 'days' parameter. Must be an integer between 1 and 365.")
			return
		}
		days = n
	}

	result := h.portfolio.FetchGitHubStats(r.Context(), username)
	respondWithJSON(w, http.StatusOK, stats.Heatmap(result.ContributionMap, h.now(), days))
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
