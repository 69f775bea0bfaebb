package metrics

import (
	"context"
	"time"

	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
)

// Collector periodically polls the database and refreshes the table
// size and scraper liveness gauges.
type Collector struct {
	queries   *db.Queries
	interval  time.Duration
	deadAfter time.Duration
	stop      chan struct{}
}

// NewCollector creates a new metrics collector. deadAfter is how stale
// a heartbeat may be before the scraper counts as down.
func NewCollector(queries *db.Queries, interval, deadAfter time.Duration) *Collector {
	return &Collector{
		queries:   queries,
		interval:  interval,
		deadAfter: deadAfter,
		stop:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Collect initial metrics
	c.collectMetrics(ctx)

	for {
		select {
		case <-ticker.C:
			c.collectMetrics(ctx)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	close(c.stop)
}

func (c *Collector) collectMetrics(ctx context.Context) {
	c.collectTableStats(ctx)
	c.collectControlStats(ctx)
}

func (c *Collector) collectTableStats(ctx context.Context) {
	stats, err := c.queries.GetScraperStats(ctx)
	if err != nil {
		logger.Warn("collecting table stats failed", "error", err)
		MetricsCollectionErrors.WithLabelValues("tables").Inc()
		return
	}

	SubredditsTotal.WithLabelValues("all").Set(float64(stats.SubredditCount))
	SubredditsTotal.WithLabelValues("pending").Set(float64(stats.PendingSubreddits))
	SubredditsTotal.WithLabelValues("approved").Set(float64(stats.ApprovedSubreddits))
	RedditPostsTotal.Set(float64(stats.PostCount))
	RedditUsersTotal.WithLabelValues("all").Set(float64(stats.UserCount))
	RedditUsersTotal.WithLabelValues("pending").Set(float64(stats.PendingUsers))
	CreatorsTotal.WithLabelValues("all").Set(float64(stats.CreatorCount))
	CreatorsTotal.WithLabelValues("enabled").Set(float64(stats.EnabledCreators))
	ReelsTotal.WithLabelValues("all").Set(float64(stats.ReelCount))
	ReelsTotal.WithLabelValues("viral").Set(float64(stats.ViralReelCount))
	SystemLogsRows.Set(float64(stats.LogCount))
	ProxiesWorking.Set(float64(stats.EnabledProxies))
}

func (c *Collector) collectControlStats(ctx context.Context) {
	rows, err := c.queries.ListControlRows(ctx)
	if err != nil {
		logger.Warn("collecting control stats failed", "error", err)
		MetricsCollectionErrors.WithLabelValues("control").Inc()
		return
	}

	now := time.Now()
	for _, row := range rows {
		up := 0.0
		age := -1.0
		if row.LastHeartbeat.Valid {
			age = now.Sub(row.LastHeartbeat.Time).Seconds()
			if row.Enabled && age < c.deadAfter.Seconds() {
				up = 1.0
			}
		}
		ScraperUp.WithLabelValues(row.Name).Set(up)
		ScraperHeartbeatAge.WithLabelValues(row.Name).Set(age)
	}
}
