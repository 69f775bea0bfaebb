package instagram

import (
	"database/sql"

	"github.com/creatorlens/backend/internal/db"
)

// Viral flagging: a reel must clear both the absolute floor and a
// multiple of the creator's average plays.
const (
	viralViewFloor     = 50_000
	viralAvgMultiplier = 5
)

// Analytics are the derived per-creator numbers persisted after each
// scrape. A field stays null when there was nothing to average over.
type Analytics struct {
	EngagementRate       sql.NullFloat64 // mean (likes+comments)/followers across recent media
	AvgViewsPerReel      sql.NullFloat64
	AvgEngagementPerPost sql.NullFloat64 // mean likes+comments per feed post
}

// ComputeAnalytics derives the creator analytics from the recent
// media rows. The engagement rate needs a positive follower count.
func ComputeAnalytics(followers int64, reels []db.InstagramReel, posts []db.InstagramPost) Analytics {
	var a Analytics

	if len(reels) > 0 {
		var views int64
		for _, r := range reels {
			views += r.PlayCount
		}
		a.AvgViewsPerReel = sql.NullFloat64{
			Float64: float64(views) / float64(len(reels)),
			Valid:   true,
		}
	}

	if len(posts) > 0 {
		var engagement int64
		for _, p := range posts {
			engagement += p.LikeCount + p.CommentCount
		}
		a.AvgEngagementPerPost = sql.NullFloat64{
			Float64: float64(engagement) / float64(len(posts)),
			Valid:   true,
		}
	}

	if followers > 0 && len(reels)+len(posts) > 0 {
		var sum float64
		for _, r := range reels {
			sum += float64(r.LikeCount+r.CommentCount) / float64(followers)
		}
		for _, p := range posts {
			sum += float64(p.LikeCount+p.CommentCount) / float64(followers)
		}
		a.EngagementRate = sql.NullFloat64{
			Float64: sum / float64(len(reels)+len(posts)),
			Valid:   true,
		}
	}

	return a
}

// ViralThreshold is the play-count bar for the given average.
func ViralThreshold(avgViews float64) float64 {
	if bar := viralAvgMultiplier * avgViews; bar > viralViewFloor {
		return bar
	}
	return viralViewFloor
}

// IsViral reports whether a reel's plays clear the threshold.
func IsViral(playCount int64, avgViews float64) bool {
	return float64(playCount) >= ViralThreshold(avgViews)
}

// GrowthRate is the percentage change from previous to current. Null
// when there is no positive baseline to compare against.
func GrowthRate(current, previous int64) sql.NullFloat64 {
	if previous <= 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{
		Float64: float64(current-previous) / float64(previous) * 100,
		Valid:   true,
	}
}
