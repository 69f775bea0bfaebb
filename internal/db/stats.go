package db

import "context"

// ScraperStats is a one-row snapshot of table sizes for the metrics
// collector.
type ScraperStats struct {
	SubredditCount     int64
	PendingSubreddits  int64
	ApprovedSubreddits int64
	PostCount          int64
	UserCount          int64
	PendingUsers       int64
	CreatorCount       int64
	EnabledCreators    int64
	ReelCount          int64
	ViralReelCount     int64
	LogCount           int64
	EnabledProxies     int64
}

const getScraperStats = `
SELECT
	(SELECT COUNT(*) FROM reddit_subreddits) AS subreddit_count,
	(SELECT COUNT(*) FROM reddit_subreddits WHERE review IS NULL) AS pending_subreddits,
	(SELECT COUNT(*) FROM reddit_subreddits WHERE review IN ('Ok', 'No Seller')) AS approved_subreddits,
	(SELECT COUNT(*) FROM reddit_posts) AS post_count,
	(SELECT COUNT(*) FROM reddit_users) AS user_count,
	(SELECT COUNT(*) FROM reddit_users WHERE overall_score IS NULL AND NOT is_suspended) AS pending_users,
	(SELECT COUNT(*) FROM instagram_creators) AS creator_count,
	(SELECT COUNT(*) FROM instagram_creators WHERE enabled) AS enabled_creators,
	(SELECT COUNT(*) FROM instagram_reels) AS reel_count,
	(SELECT COUNT(*) FROM instagram_reels WHERE is_viral) AS viral_reel_count,
	(SELECT COUNT(*) FROM system_logs) AS log_count,
	(SELECT COUNT(*) FROM proxies WHERE enabled) AS enabled_proxies`

func (q *Queries) GetScraperStats(ctx context.Context) (ScraperStats, error) {
	var s ScraperStats
	err := q.db.QueryRowContext(ctx, getScraperStats).Scan(
		&s.SubredditCount,
		&s.PendingSubreddits,
		&s.ApprovedSubreddits,
		&s.PostCount,
		&s.UserCount,
		&s.PendingUsers,
		&s.CreatorCount,
		&s.EnabledCreators,
		&s.ReelCount,
		&s.ViralReelCount,
		&s.LogCount,
		&s.EnabledProxies,
	)
	return s, err
}
