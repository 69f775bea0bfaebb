package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/creatorlens/backend/internal/categorize"
	"github.com/creatorlens/backend/internal/config"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/errorreporting"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/secrets"
)

func main() {
	os.Exit(run())
}

func run() int {
	batchSize := flag.Int("batch-size", 0, "rows per batch (default 20)")
	limit := flag.Int("limit", 0, "cap on rows this run, 0 for no cap")
	force := flag.Bool("force", false, "re-tag rows that already carry tags")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger.Init(cfg.LogLevel)

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("error reporting init failed", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		errorreporting.SetTag("process", "categorize")
		defer errorreporting.Flush(2 * time.Second)
	}

	if err := secrets.Require("OPENAI_API_KEY"); err != nil {
		logger.Error("missing credentials", "error", err)
		return 1
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
	queries := db.New(conn)

	sink := logger.NewDBSink(logger.SinkConfig{
		Insert: db.SystemLogInserter(queries),
		Source: "categorize",
	})
	logger.Attach(sink)
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	interrupted := false
	go func() {
		<-sigCh
		cancel()
	}()

	service := categorize.New(queries,
		categorize.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel))
	sum := service.Run(ctx, uuid.NewString(), categorize.Options{
		BatchSize: *batchSize,
		Limit:     *limit,
		Force:     *force,
	})
	if ctx.Err() != nil {
		interrupted = true
	}

	logger.Info("batch finished",
		"job_id", sum.JobID,
		"processed", sum.Processed,
		"tagged", sum.Tagged,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
	)
	if interrupted {
		return 130
	}
	if sum.Failed > 0 {
		return 1
	}
	return 0
}
