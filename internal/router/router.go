// Package router wires the HTTP surface: retrieve, insights, health, and
// metrics, behind the shared middleware chain (C13).
package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumenlabs/insight-engine/internal/cache"
	"github.com/lumenlabs/insight-engine/internal/handler"
	"github.com/lumenlabs/insight-engine/internal/insight"
	"github.com/lumenlabs/insight-engine/internal/middleware"
	"github.com/lumenlabs/insight-engine/internal/retrieval"
	"github.com/lumenlabs/insight-engine/internal/service"
)

// Dependencies holds all injected services needed by the router.
type Dependencies struct {
	DB    handler.DBPinger
	Cache *cache.InsightCache

	AuthService        *service.AuthService
	FrontendURL        string
	Version            string
	Metrics            *middleware.Metrics
	MetricsReg         *prometheus.Registry
	InternalAuthSecret string

	Retriever    *retrieval.Retriever
	Orchestrator *insight.Orchestrator
	History      handler.HistoryAppender

	// RateLimiter is applied to the retrieve/insights group; nil disables it.
	RateLimiter *middleware.RateLimiter
}

// New creates and configures the Chi router with all routes.
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(deps.FrontendURL))
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	// Public routes (no auth)
	var cachePinger handler.RedisPinger
	if deps.Cache != nil {
		cachePinger = deps.Cache
	}
	r.Get("/api/health", handler.Health(deps.DB, cachePinger, deps.Version))
	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	// Protected routes (require internal service auth or Firebase auth)
	r.Group(func(r chi.Router) {
		r.Use(middleware.InternalOrFirebaseAuth(deps.AuthService, deps.InternalAuthSecret))

		if deps.RateLimiter != nil {
			r.Use(middleware.RateLimit(deps.RateLimiter))
		}

		timeout30s := middleware.Timeout(30 * time.Second)

		r.With(timeout30s).Post("/api/retrieve", handler.Retrieve(deps.Retriever, deps.Metrics))
		// Insights may fan out to three LLM calls; give it more headroom.
		r.With(middleware.Timeout(60 * time.Second)).Post("/api/insights", handler.Insights(deps.Orchestrator, deps.Cache, deps.History))
	})

	// 404 fallback
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "route not found",
		})
	})

	return r
}
