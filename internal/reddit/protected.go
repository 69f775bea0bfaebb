package reddit

import (
	"database/sql"

	"github.com/creatorlens/backend/internal/db"
)

// Computed bundles everything one scrape cycle derives for a
// subreddit before the merge rules decide what may be written.
type Computed struct {
	About        About
	Metrics      Metrics
	Requirements Requirements
}

// ProtectedMerge builds the update payload for one scraped subreddit.
// Null fields in the result keep the stored value:
//   - review, tags, and primary_category are never written here;
//     review transitions go through UpdateSubredditReview and tagging
//     is the categorizer's write path,
//   - over18 is written only when the stored value is null,
//   - subscribers and accounts_active are written only when the stored
//     value is missing or zero,
//   - computed metrics, posting floors with enough scored authors,
//     and last_scraped_at are always written.
func ProtectedMerge(existing db.SubredditMeta, c Computed) db.UpdateSubredditScrapeParams {
	p := db.UpdateSubredditScrapeParams{
		Name:               existing.Name,
		AvgUpvotesPerPost:  sql.NullFloat64{Float64: c.Metrics.AvgUpvotes, Valid: true},
		AvgCommentsPerPost: sql.NullFloat64{Float64: c.Metrics.AvgComments, Valid: true},
		Engagement:         sql.NullFloat64{Float64: c.Metrics.Engagement, Valid: true},
		SubredditScore:     sql.NullFloat64{Float64: c.Metrics.Score, Valid: true},
		BestPostingDay:     c.Metrics.BestDay,
		BestPostingHour:    c.Metrics.BestHour,
		PostFrequency:      sql.NullFloat64{Float64: c.Metrics.PostFrequency, Valid: true},
		MinPostKarma:       c.Requirements.MinPostKarma,
		MinCommentKarma:    c.Requirements.MinCommentKarma,
		MinAccountAgeDays:  c.Requirements.MinAccountAgeDays,
	}
	if c.About.DisplayName != "" {
		p.DisplayName = sql.NullString{String: c.About.DisplayName, Valid: true}
	}
	if c.About.URL != "" {
		p.Url = sql.NullString{String: c.About.URL, Valid: true}
	}
	if existing.Subscribers <= 0 {
		p.Subscribers = sql.NullInt64{Int64: c.About.Subscribers, Valid: true}
	}
	if existing.AccountsActive <= 0 {
		p.AccountsActive = sql.NullInt64{Int64: c.About.AccountsActive, Valid: true}
	}
	if !existing.Over18.Valid && c.About.Over18 != nil {
		p.Over18 = sql.NullBool{Bool: *c.About.Over18, Valid: true}
	}
	return p
}

// ApplyMerge returns the row state after the payload lands, so post
// inserts can mirror the parent's current values without a re-read.
func ApplyMerge(existing db.SubredditMeta, p db.UpdateSubredditScrapeParams) db.SubredditMeta {
	out := existing
	if p.Subscribers.Valid {
		out.Subscribers = p.Subscribers.Int64
	}
	if p.AccountsActive.Valid {
		out.AccountsActive = p.AccountsActive.Int64
	}
	if p.Over18.Valid {
		out.Over18 = p.Over18
	}
	return out
}
