package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/cache"
	"github.com/creatorlens/backend/internal/control"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
)

const (
	metricsCacheKey = "metrics:snapshot"
	metricsCacheTTL = 15 * time.Second
)

var processStart = time.Now()

// StatsReader is the slice of db.Queries the metrics snapshot needs.
type StatsReader interface {
	GetScraperStats(ctx context.Context) (db.ScraperStats, error)
	ListControlRows(ctx context.Context) ([]db.SystemControl, error)
}

type databaseMetrics struct {
	Subreddits         int64 `json:"subreddits"`
	PendingSubreddits  int64 `json:"pending_subreddits"`
	ApprovedSubreddits int64 `json:"approved_subreddits"`
	RedditPosts        int64 `json:"reddit_posts"`
	RedditUsers        int64 `json:"reddit_users"`
	PendingUsers       int64 `json:"pending_users"`
	Creators           int64 `json:"creators"`
	EnabledCreators    int64 `json:"enabled_creators"`
	Reels              int64 `json:"reels"`
	ViralReels         int64 `json:"viral_reels"`
	LogRows            int64 `json:"log_rows"`
	EnabledProxies     int64 `json:"enabled_proxies"`
}

type scraperMetrics struct {
	Name                string  `json:"name"`
	Enabled             bool    `json:"enabled"`
	Status              string  `json:"status"`
	Alive               bool    `json:"alive"`
	HeartbeatAgeSeconds float64 `json:"heartbeat_age_seconds"`
}

type metricsResponse struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	Database      databaseMetrics  `json:"database"`
	Scrapers      []scraperMetrics `json:"scrapers"`
	Cache         cache.Stats      `json:"cache"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// Metrics serves the JSON snapshot the dashboard polls: row counts,
// scraper liveness and cache counters. The stats queries fan out over
// every table, so the serialized body is cached briefly.
func Metrics(queries StatsReader, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c != nil {
			if data, ok := c.Get(metricsCacheKey); ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.Write(data)
				return
			}
		}

		stats, err := queries.GetScraperStats(r.Context())
		if err != nil {
			logger.ErrorContext(r.Context(), "stats query failed", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}

		resp := metricsResponse{
			UptimeSeconds: time.Since(processStart).Seconds(),
			Database: databaseMetrics{
				Subreddits:         stats.SubredditCount,
				PendingSubreddits:  stats.PendingSubreddits,
				ApprovedSubreddits: stats.ApprovedSubreddits,
				RedditPosts:        stats.PostCount,
				RedditUsers:        stats.UserCount,
				PendingUsers:       stats.PendingUsers,
				Creators:           stats.CreatorCount,
				EnabledCreators:    stats.EnabledCreators,
				Reels:              stats.ReelCount,
				ViralReels:         stats.ViralReelCount,
				LogRows:            stats.LogCount,
				EnabledProxies:     stats.EnabledProxies,
			},
			Scrapers:    []scraperMetrics{},
			GeneratedAt: time.Now().UTC(),
		}
		if c != nil {
			resp.Cache = c.Stats()
		}

		rows, err := queries.ListControlRows(r.Context())
		if err != nil {
			logger.ErrorContext(r.Context(), "control rows query failed", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}
		deadAfter := control.DeadAfterMultiple * control.DefaultHeartbeatInterval
		for _, row := range rows {
			sm := scraperMetrics{
				Name:                row.Name,
				Enabled:             row.Enabled,
				Status:              row.Status,
				HeartbeatAgeSeconds: -1,
			}
			if row.LastHeartbeat.Valid {
				age := time.Since(row.LastHeartbeat.Time)
				sm.HeartbeatAgeSeconds = age.Seconds()
				sm.Alive = row.Enabled && age < deadAfter
			}
			resp.Scrapers = append(resp.Scrapers, sm)
		}

		body, err := json.Marshal(resp)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("encode failed"))
			return
		}
		if c != nil {
			c.Set(metricsCacheKey, body, metricsCacheTTL)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "MISS")
		w.Write(body)
	}
}
