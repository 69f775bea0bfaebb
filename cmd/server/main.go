package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/creatorlens/backend/internal/config"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/errorreporting"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/server"
	"github.com/creatorlens/backend/internal/tracing"
)

// Build stamps, injected with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := config.Load()

	logger.Init(cfg.LogLevel)
	logger.Info("starting api server", "version", version, "environment", cfg.Environment)

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("error reporting init failed", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		errorreporting.SetTag("process", "api")
		defer errorreporting.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init("creatorlens-api")
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
		logger.Error("database open failed", "error", err)
		return 1
	}
	defer func() { _ = conn.Close() }()
	if err := db.Migrate(conn); err != nil {
		logger.Error("migrations failed", "error", err)
		return 1
	}

	sink := logger.NewDBSink(logger.SinkConfig{
		Insert: db.SystemLogInserter(db.New(conn)),
		Source: "api",
	})
	logger.Attach(sink)
	defer sink.Close()

	// Missing provider keys degrade the affected endpoints instead of
	// blocking startup; the scraper binaries are the strict ones.
	if cfg.CronSecret == "" {
		logger.Warn("CRON_SECRET unset, cleanup endpoint disabled")
	}
	if cfg.RapidAPIKey == "" {
		logger.Warn("RAPIDAPI_KEY unset, manual creator adds will fail")
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY unset, categorization will fail")
	}

	srv, err := server.New(cfg, conn, version, commit)
	if err != nil {
		logger.Error("server wiring failed", "error", err)
		return 1
	}

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

	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited", "error", err)
		return 1
	}
	if interrupted.Load() {
		return 130
	}
	return 0
}
