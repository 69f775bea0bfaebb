package reddit

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/creatorlens/backend/internal/config"
	"github.com/creatorlens/backend/internal/control"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/fetch"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/metrics"
	"github.com/creatorlens/backend/internal/proxy"
	"github.com/creatorlens/backend/internal/tracing"
	"golang.org/x/time/rate"
)

// ScraperName is the system_control row this scraper runs under.
const ScraperName = "reddit_scraper"

// Scraper drives the Reddit side: a supervisor loop that scrapes
// approved subreddits and scores queued users each cycle.
type Scraper struct {
	queries *db.Queries
	pool    *proxy.Pool
	fetcher *fetch.Fetcher
	client  *Client
	plane   *control.Plane
	store   *config.Store

	// settings and meta are rebuilt at the top of each cycle, before
	// workers start, and read-only while they run.
	settings config.ScraperSettings
	meta     *metaCache

	mu        sync.Mutex
	seenUsers map[string]struct{}
	seenSubs  map[string]struct{}

	log *slog.Logger
}

// New wires a Scraper over its collaborators.
func New(queries *db.Queries, pool *proxy.Pool, plane *control.Plane, store *config.Store) *Scraper {
	f := fetch.New(pool, platformSubreddit)
	return &Scraper{
		queries:   queries,
		pool:      pool,
		fetcher:   f,
		client:    NewClient(f),
		plane:     plane,
		store:     store,
		settings:  config.LoadScraperSettings(store),
		seenUsers: make(map[string]struct{}),
		seenSubs:  make(map[string]struct{}),
		log:       logger.WithComponent(ScraperName),
	}
}

// Run is the supervisor loop: wait for the dashboard switch, bring up
// the proxy pool, then alternate subreddit and user batches until the
// control row or the context stops it.
func (s *Scraper) Run(ctx context.Context) error {
	if err := s.plane.WaitUntilEnabled(ctx); err != nil {
		return err
	}
	if err := s.plane.Begin(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Load(ctx); err != nil {
		if merr := s.plane.MarkError(ctx, err); merr != nil {
			s.log.Error("error state write failed", "error", merr)
		}
		return err
	}
	s.pool.TestAll(ctx)

	if err := s.plane.MarkRunning(ctx); err != nil {
		return err
	}
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	s.plane.StartHeartbeat(hbCtx)
	s.log.Info("reddit scraper started", "pid", os.Getpid(), "proxies", s.pool.WorkingCount())

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
	s.pool.FlushStats(ctx)
	if err := s.plane.MarkStopped(ctx); err != nil {
		s.log.Warn("stopped state write failed", "error", err)
	}
	s.log.Info("reddit scraper stopped")
}

// runCycle performs one pass: refresh settings, rebuild the metadata
// cache, scrape the subreddit working set, then score queued users.
func (s *Scraper) runCycle(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "reddit.cycle")
	defer span.End()
	start := time.Now()

	s.settings = config.LoadScraperSettings(s.store)

	workers := s.workerCount()
	if workers == 0 {
		s.log.Warn("no working proxies, reloading pool")
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.plane.Interval()):
		}
		if _, err := s.pool.Load(ctx); err != nil {
			s.log.Error("proxy reload failed", "error", err)
			return
		}
		s.pool.TestAll(ctx)
		return
	}

	if s.settings.MaxRetries > 0 {
		s.fetcher.MaxRetries = s.settings.MaxRetries
	}
	if s.settings.RateLimitDelay > 0 {
		s.fetcher.Limiter = rate.NewLimiter(rate.Every(s.settings.RateLimitDelay), workers)
	} else {
		s.fetcher.Limiter = nil
	}

	meta, err := loadMetaCache(ctx, s.queries, s.settings.CacheBatchSize)
	if err != nil {
		s.log.Error("metadata cache load failed", "error", err)
		metrics.ScrapeRunsTotal.WithLabelValues(platformSubreddit, "failed").Inc()
		return
	}
	s.meta = meta
	s.resetSeen()

	subs, err := s.queries.ListSubredditsForScrape(ctx, db.ListSubredditsForScrapeParams{
		ScrapedBefore: time.Now().Add(-s.settings.StalenessHours),
		RowLimit:      int32(s.settings.BatchSize),
	})
	if err != nil {
		s.log.Error("working set query failed", "error", err)
		metrics.ScrapeRunsTotal.WithLabelValues(platformSubreddit, "failed").Inc()
		return
	}
	names := make([]string, len(subs))
	for i := range subs {
		names[i] = subs[i].Name
	}
	s.log.Info("cycle start", "subreddits", len(names), "workers", workers)
	s.processItems(ctx, platformSubreddit, workers, names, s.processSubreddit)

	scored := 0
	if ctx.Err() == nil && s.plane.ShouldContinue() {
		users, err := s.queries.ListUsersForScoring(ctx, db.ListUsersForScoringParams{
			ScrapedBefore: time.Now().Add(-s.settings.StalenessHours),
			RowLimit:      int32(s.settings.UserBatchSize),
		})
		if err != nil {
			s.log.Error("user queue query failed", "error", err)
		} else {
			usernames := make([]string, len(users))
			for i := range users {
				usernames[i] = users[i].Username
			}
			scored = len(usernames)
			s.processItems(ctx, platformUser, workers, usernames, s.processUser)
		}
	}

	s.pool.FlushStats(ctx)
	metrics.ScrapeRunsTotal.WithLabelValues(platformSubreddit, "success").Inc()
	s.log.Log(ctx, logger.LevelSuccess, "cycle complete",
		"action", "cycle",
		"subreddits", len(names),
		"users", scored,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// workerCount sizes the pool from healthy proxies, with max_threads as
// an operator cap. Zero means the pool is depleted.
func (s *Scraper) workerCount() int {
	n := s.pool.WorkerCount()
	if n == 0 {
		return 0
	}
	if s.settings.MaxThreads > 0 && s.settings.MaxThreads < n {
		return s.settings.MaxThreads
	}
	return n
}

// processItems fans names out to a worker pool. The feed stops as soon
// as the control gate closes; in-flight items run to completion.
func (s *Scraper) processItems(ctx context.Context, platform string, workers int, names []string, fn func(context.Context, string)) {
	if len(names) == 0 {
		return
	}
	if workers > len(names) {
		workers = len(names)
	}
	metrics.WorkersActive.WithLabelValues(platform).Set(float64(workers))
	defer metrics.WorkersActive.WithLabelValues(platform).Set(0)

	queue := make(chan string)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for name := range queue {
				s.runItem(ctx, platform, name, fn)
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

// runItem applies the per-item budget and keeps a panicking item from
// taking its worker down.
func (s *Scraper) runItem(ctx context.Context, platform, name string, fn func(context.Context, string)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("worker panic", "platform", platform, "item", name, "panic", r)
			metrics.ScrapeItemsTotal.WithLabelValues(platform, "error").Inc()
		}
	}()
	itemCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()
	fn(itemCtx, name)
}

func (s *Scraper) resetSeen() {
	s.mu.Lock()
	s.seenUsers = make(map[string]struct{})
	s.seenSubs = make(map[string]struct{})
	s.mu.Unlock()
}

// markSeenUser records the username and reports whether this cycle had
// already seen it.
func (s *Scraper) markSeenUser(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seenUsers[username]; ok {
		return true
	}
	s.seenUsers[username] = struct{}{}
	return false
}

// markSeenSubreddit records the subreddit name and reports whether
// this cycle had already seen it.
func (s *Scraper) markSeenSubreddit(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seenSubs[name]; ok {
		return true
	}
	s.seenSubs[name] = struct{}{}
	return false
}
