// Package server assembles the API process: it owns the HTTP server,
// the shared cache and rate limiter, and the background jobs (metrics
// collector, daily log cleanup) that run alongside request handling.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/creatorlens/backend/internal/api"
	"github.com/creatorlens/backend/internal/cache"
	"github.com/creatorlens/backend/internal/categorize"
	"github.com/creatorlens/backend/internal/cleanup"
	"github.com/creatorlens/backend/internal/config"
	"github.com/creatorlens/backend/internal/control"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/instagram"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/metrics"
	"github.com/creatorlens/backend/internal/middleware"
	"github.com/creatorlens/backend/internal/proxy"
	"github.com/creatorlens/backend/internal/reddit"
	"github.com/creatorlens/backend/internal/scheduler"
)

const (
	cacheSizeMB     = 64
	cacheMaxEntries = 10000
	cacheTTL        = 5 * time.Minute

	collectInterval = 30 * time.Second
	shutdownGrace   = 15 * time.Second
)

// Server is the assembled API process.
type Server struct {
	cfg       *config.Config
	lru       *cache.LRUCache
	limiter   *middleware.RateLimiter
	collector *metrics.Collector
	sched     *scheduler.Service
	stores    []*config.Store
	httpSrv   *http.Server
	log       *slog.Logger
}

// New wires every dependency of the API process. conn stays owned by
// the caller; version and commit are the build stamps baked into the
// binary.
func New(cfg *config.Config, conn *sql.DB, version, commit string) (*Server, error) {
	queries := db.New(conn)

	lru, err := cache.NewLRU(cacheSizeMB, cacheMaxEntries, cacheTTL)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	var limiter *middleware.RateLimiter
	if cfg.EnableRateLimit {
		limiter = middleware.NewRateLimiter(
			cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst,
			cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst,
		)
	}

	// The fetch-single handler drives a scraper whose control plane is
	// never started here; only the scraper binaries heartbeat.
	redditStore := control.ConfigStore(queries, control.ScraperReddit, 0)
	fetcher := reddit.New(queries,
		proxy.NewPool(queries),
		control.NewPlane(queries, control.ScraperReddit, 0),
		redditStore,
	)

	// Manual creator adds make a couple of RapidAPI calls, throttled at
	// the same sustained rate the scraper process uses.
	igStore := control.ConfigStore(queries, control.ScraperInstagram, 0)
	creators := instagram.New(queries,
		instagram.NewClient(cfg.RapidAPIKey, cfg.RapidAPIHost,
			rate.NewLimiter(rate.Limit(cfg.InstagramRPS), 1)),
		control.NewPlane(queries, control.ScraperInstagram, 0),
		igStore,
	)

	categorizer := categorize.New(queries,
		categorize.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel))

	var logDir string
	if cfg.LogFile != "" {
		logDir = filepath.Dir(cfg.LogFile)
	}
	cleanupJob := cleanup.New(queries, logDir)

	sched := scheduler.NewService()
	if err := sched.Register("log-cleanup", "@daily", func(ctx context.Context) error {
		_, err := cleanupJob.Run(ctx, 0)
		return err
	}); err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(queries, collectInterval,
		control.DeadAfterMultiple*control.DefaultHeartbeatInterval)

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		cors.AllowedOrigins = cfg.CORSAllowedOrigins
	}

	router := api.NewRouter(api.Deps{
		Queries:     queries,
		DB:          conn,
		Cache:       lru,
		Reddit:      fetcher,
		Instagram:   creators,
		Cleanup:     cleanupJob,
		Categorizer: categorizer,
		RateLimiter: limiter,
		CORS:        cors,
		CronSecret:  cfg.CronSecret,
		Version:     version,
		Commit:      commit,
		Environment: cfg.Environment,
	})

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// fetch-single scrapes synchronously and may ride out 429
		// sleeps, so the write timeout must outlive the per-item
		// budget.
		WriteTimeout: 6 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	return &Server{
		cfg:       cfg,
		lru:       lru,
		limiter:   limiter,
		collector: collector,
		sched:     sched,
		stores:    []*config.Store{redditStore, igStore},
		httpSrv:   httpSrv,
		log:       logger.WithComponent("server"),
	}, nil
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until the context is cancelled, then drains in-flight
// requests and stops the background jobs.
func (s *Server) Run(ctx context.Context) error {
	for _, store := range s.stores {
		if err := store.Refresh(ctx); err != nil {
			logger.Warn("initial config load failed, using defaults", "error", err)
		}
		store.StartAutoRefresh(ctx)
	}
	go s.collector.Start(ctx)
	go s.sched.Start(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.ListenAndServe() }()
	s.log.Info("server listening",
		"addr", s.httpSrv.Addr,
		"environment", s.cfg.Environment,
		"rate_limit", s.limiter != nil,
	)

	select {
	case err := <-errCh:
		s.close()
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := s.httpSrv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		s.log.Error("listener exited", "error", serveErr)
	}
	s.close()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) close() {
	s.sched.Stop()
	s.collector.Stop()
	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.lru.Close()
}
