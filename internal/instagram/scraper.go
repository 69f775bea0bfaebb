package instagram

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/creatorlens/backend/internal/config"
	"github.com/creatorlens/backend/internal/control"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/metrics"
	"github.com/creatorlens/backend/internal/tracing"
)

// ScraperName is the system_control row this scraper runs under.
const ScraperName = "instagram_scraper"

const platformInstagram = "instagram"

// Scraper drives the Instagram side: a supervisor loop that refreshes
// enabled creators through the RapidAPI gateway each cycle.
type Scraper struct {
	queries *db.Queries
	client  *Client
	plane   *control.Plane
	store   *config.Store

	// settings are rebuilt at the top of each cycle, before workers
	// start, and read-only while they run.
	settings config.InstagramSettings

	log *slog.Logger
}

// New wires a Scraper over its collaborators.
func New(queries *db.Queries, client *Client, plane *control.Plane, store *config.Store) *Scraper {
	return &Scraper{
		queries:  queries,
		client:   client,
		plane:    plane,
		store:    store,
		settings: config.LoadInstagramSettings(store),
		log:      logger.WithComponent(ScraperName),
	}
}

// Run is the supervisor loop: wait for the dashboard switch, then
// work creator batches until the control row or the context stops it.
func (s *Scraper) Run(ctx context.Context) error {
	if err := s.plane.WaitUntilEnabled(ctx); err != nil {
		return err
	}
	if err := s.plane.Begin(ctx); err != nil {
		return err
	}
	if err := s.plane.MarkRunning(ctx); err != nil {
		return err
	}
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	s.plane.StartHeartbeat(hbCtx)
	s.log.Info("instagram scraper started", "pid", os.Getpid())

	for ctx.Err() == nil && s.plane.ShouldContinue() {
		s.runCycle(ctx)
		if ctx.Err() != nil || !s.plane.ShouldContinue() {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(s.plane.Interval()):
		}
	}

	stopHeartbeat()
	s.shutdown(ctx)
	return nil
}

// shutdown runs the stopping transition. When the process context is
// already gone the writes get a short deadline of their own so the
// final status still lands.
func (s *Scraper) shutdown(ctx context.Context) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	if err := s.plane.MarkStopping(ctx); err != nil {
		s.log.Warn("stopping state write failed", "error", err)
	}
	if err := s.plane.MarkStopped(ctx); err != nil {
		s.log.Warn("stopped state write failed", "error", err)
	}
	s.log.Info("instagram scraper stopped")
}

// runCycle performs one pass over the stale slice of enabled creators.
func (s *Scraper) runCycle(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "instagram.cycle")
	defer span.End()
	start := time.Now()

	s.settings = config.LoadInstagramSettings(s.store)
	s.applySettings()

	creators, err := s.queries.ListCreatorsForScrape(ctx, db.ListCreatorsForScrapeParams{
		ScrapedBefore: time.Now().Add(-s.settings.StalenessHours),
		RowLimit:      int32(s.settings.CreatorBatchSize),
	})
	if err != nil {
		s.log.Error("working set query failed", "error", err)
		metrics.ScrapeRunsTotal.WithLabelValues(platformInstagram, "failed").Inc()
		return
	}
	names := make([]string, len(creators))
	for i := range creators {
		names[i] = creators[i].Username
	}

	workers := s.settings.ConcurrentCreators
	s.log.Info("cycle start", "creators", len(names), "workers", workers)
	s.processItems(ctx, workers, names, s.processCreator)

	metrics.ScrapeRunsTotal.WithLabelValues(platformInstagram, "success").Inc()
	s.log.Log(ctx, logger.LevelSuccess, "cycle complete",
		"action", "cycle",
		"creators", len(names),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// applySettings pushes the per-cycle knobs into the shared client.
func (s *Scraper) applySettings() {
	limit := rate.Limit(s.settings.RequestsPerSecond)
	burst := int(s.settings.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	if s.client.Limiter == nil {
		s.client.Limiter = rate.NewLimiter(limit, burst)
	} else {
		s.client.Limiter.SetLimit(limit)
		s.client.Limiter.SetBurst(burst)
	}
	s.client.RetryEmpty = s.settings.RetryEmptyResponse
	s.client.CostPerRequest = s.settings.CostPerRequest
}

// processItems fans creators out to the worker pool. The feed stops
// as soon as the control gate closes; in-flight creators run to
// completion.
func (s *Scraper) processItems(ctx context.Context, workers int, names []string, fn func(ctx context.Context, name string)) {
	if len(names) == 0 {
		return
	}
	if workers > len(names) {
		workers = len(names)
	}
	metrics.WorkersActive.WithLabelValues(platformInstagram).Set(float64(workers))
	defer metrics.WorkersActive.WithLabelValues(platformInstagram).Set(0)

	queue := make(chan string)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for name := range queue {
				s.runItem(ctx, name, fn)
			}
		}()
	}
	for _, name := range names {
		if ctx.Err() != nil || !s.plane.ShouldContinue() {
			break
		}
		queue <- name
	}
	close(queue)
	wg.Wait()
}

// runItem applies the per-creator budget and keeps a panicking item
// from taking its worker down.
func (s *Scraper) runItem(ctx context.Context, name string, fn func(ctx context.Context, name string)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("worker panic", "creator", name, "panic", r)
			metrics.ScrapeItemsTotal.WithLabelValues(platformInstagram, "error").Inc()
		}
	}()
	itemCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()
	fn(itemCtx, name)
}
