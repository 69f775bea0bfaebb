// Package api wires the HTTP surface: routes, middleware order and the
// dependency bundle handlers draw from.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creatorlens/backend/internal/api/handlers"
	"github.com/creatorlens/backend/internal/cache"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/middleware"
	"github.com/creatorlens/backend/internal/tracing"
)

// Deps carries what the router hands to its handlers. Cache and
// RateLimiter may be nil; the affected routes then run uncached and
// unthrottled.
type Deps struct {
	Queries     *db.Queries
	DB          handlers.Pinger
	Cache       cache.Cache
	Reddit      handlers.SubredditFetcher
	Instagram   handlers.CreatorAdder
	Cleanup     handlers.CleanupRunner
	Categorizer handlers.CategorizeStarter
	RateLimiter *middleware.RateLimiter
	CORS        *middleware.CORSConfig
	CronSecret  string
	Version     string
	Commit      string
	Environment string
}

// NewRouter builds the full route table. Every route also matches
// OPTIONS so the CORS middleware can answer preflights.
func NewRouter(deps Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(tracing.Middleware)
	r.Use(middleware.RecoverWithSentry)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.ProcessTime)
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.Compress)
	r.Use(middleware.ValidateRequestBody)

	// Probe endpoints sit outside the rate limiter so orchestrator
	// checks never see a 429.
	r.HandleFunc("/health", handlers.Health(deps.DB, deps.Queries)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/ready", handlers.Ready(deps.DB)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/alive", handlers.Alive()).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/metrics", middleware.ETag(handlers.Metrics(deps.Queries, deps.Cache))).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/metrics/prometheus", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Limit)
	}
	api.HandleFunc("/subreddits/fetch-single", handlers.FetchSingleSubreddit(deps.Reddit, deps.Cache)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/instagram/creator", handlers.AddInstagramCreator(deps.Instagram)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/cron/cleanup-logs", handlers.CleanupLogs(deps.Cleanup, deps.CronSecret)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/categorization/start", handlers.StartCategorization(deps.Categorizer)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/scrapers/{name}/start", handlers.StartScraper(deps.Queries)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/scrapers/{name}/stop", handlers.StopScraper(deps.Queries)).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/scrapers/{name}/status", handlers.ScraperStatus(deps.Queries)).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/version", middleware.ETag(handlers.Version(deps.Version, deps.Commit, deps.Environment))).Methods(http.MethodGet, http.MethodOptions)

	return r
}
