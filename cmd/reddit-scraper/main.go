package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/creatorlens/backend/internal/config"
	"github.com/creatorlens/backend/internal/control"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/errorreporting"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/proxy"
	"github.com/creatorlens/backend/internal/reddit"
	"github.com/creatorlens/backend/internal/secrets"
	"github.com/creatorlens/backend/internal/tracing"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := config.Load()

	logger.Init(cfg.LogLevel)
	logger.Info("starting reddit scraper", "log_level", cfg.LogLevel)

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("error reporting init failed", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		errorreporting.SetTag("process", reddit.ScraperName)
		defer errorreporting.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init("creatorlens-reddit-scraper")
	if err != nil {
		logger.Warn("tracing init failed", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("tracer shutdown failed", "error", err)
			}
		}()
	}

	if cfg.DatabaseURL == "" {
		logger.Error("no database configured; set DATABASE_URL or SUPABASE_URL with SUPABASE_SERVICE_ROLE_KEY")
		return 1
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database open failed", "dsn", secrets.MaskURL(cfg.DatabaseURL), "error", err)
		return 1
	}
	defer func() { _ = conn.Close() }()
	queries := db.New(conn)

	sink := logger.NewDBSink(logger.SinkConfig{
		Insert: db.SystemLogInserter(queries),
		Source: reddit.ScraperName,
	})
	logger.Attach(sink)
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var interrupted atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", "signal", sig.String())
		interrupted.Store(true)
		cancel()
	}()

	store := control.ConfigStore(queries, reddit.ScraperName, 0)
	if err := store.Refresh(ctx); err != nil {
		logger.Warn("initial config load failed, using defaults", "error", err)
	}
	store.StartAutoRefresh(ctx)

	settings := config.LoadScraperSettings(store)
	plane := control.NewPlane(queries, reddit.ScraperName, settings.HeartbeatInterval)
	scraper := reddit.New(queries, proxy.NewPool(queries), plane, store)

	// The process outlives individual runs: after a dashboard stop the
	// supervisor parks on the control row until the next start.
	for ctx.Err() == nil {
		if err := scraper.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			logger.Error("scraper run failed, waiting for restart", "error", err)
			errorreporting.CaptureError(err)
		}
	}

	if interrupted.Load() {
		return 130
	}
	return 0
}
