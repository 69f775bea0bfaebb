package reddit

import (
	"context"
	"database/sql"
	"time"

	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/fetch"
	"github.com/creatorlens/backend/internal/metrics"
	"github.com/creatorlens/backend/internal/utils"
)

// UsernameScore rates how organic a username reads. Digits and
// underscores read machine-generated, very short names read like
// throwaways.
func UsernameScore(username string) int {
	score := 100
	digits, underscores := 0, 0
	for _, r := range username {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '_':
			underscores++
		}
	}
	if penalty := digits * 5; penalty > 30 {
		score -= 30
	} else {
		score -= penalty
	}
	if penalty := underscores * 10; penalty > 20 {
		score -= 20
	} else {
		score -= penalty
	}
	if len(username) < 4 {
		score -= 20
	}
	if len(username) >= 6 && len(username) <= 15 {
		score += 10
	}
	return utils.ClampInt(score, 0, 100)
}

// AgeScore bands account age in days.
func AgeScore(days int) int {
	switch {
	case days < 30:
		return 20
	case days < 90:
		return 40
	case days < 180:
		return 60
	case days < 365:
		return 80
	default:
		return 100
	}
}

// KarmaScore bands combined link and comment karma.
func KarmaScore(total int64) int {
	switch {
	case total < 100:
		return 20
	case total < 500:
		return 40
	case total < 1000:
		return 60
	case total < 5000:
		return 80
	default:
		return 100
	}
}

// OverallScore blends the three sub-scores, karma weighted heaviest.
func OverallScore(username, age, karma int) float64 {
	return utils.Round2(0.2*float64(username) + 0.3*float64(age) + 0.5*float64(karma))
}

// scoreParams builds the row update from a fetched profile.
func scoreParams(username string, about UserAbout, now time.Time) db.UpdateUserScoresParams {
	ageDays := about.AccountAgeDays(now)
	u := UsernameScore(username)
	a := AgeScore(ageDays)
	k := KarmaScore(about.LinkKarma + about.CommentKarma)
	return db.UpdateUserScoresParams{
		Username:       username,
		AccountAgeDays: sql.NullInt32{Int32: int32(ageDays), Valid: true},
		PostKarma:      sql.NullInt64{Int64: about.LinkKarma, Valid: true},
		CommentKarma:   sql.NullInt64{Int64: about.CommentKarma, Valid: true},
		UsernameScore:  sql.NullInt32{Int32: int32(u), Valid: true},
		AgeScore:       sql.NullInt32{Int32: int32(a), Valid: true},
		KarmaScore:     sql.NullInt32{Int32: int32(k), Valid: true},
		OverallScore:   sql.NullFloat64{Float64: OverallScore(u, a, k), Valid: true},
	}
}

// processUser scores one queued user and feeds the subreddits seen in
// their submissions back into discovery.
func (s *Scraper) processUser(ctx context.Context, username string) {
	start := time.Now()
	about, res := s.client.UserAboutInfo(ctx, username)
	switch res.Kind {
	case fetch.OK:
	case fetch.Forbidden, fetch.NotFound, fetch.Banned:
		// Suspended and deleted accounts leave the queue for good.
		s.markSuspended(ctx, username)
		return
	case fetch.RateLimited:
		// Stays queued, picked up again next cycle.
		metrics.ScrapeItemsTotal.WithLabelValues(platformUser, res.Kind.String()).Inc()
		return
	default:
		s.log.Warn("user profile fetch failed",
			"user", username, "kind", res.Kind.String(), "error", res.Err)
		metrics.ScrapeItemsTotal.WithLabelValues(platformUser, res.Kind.String()).Inc()
		return
	}
	if about.IsSuspended {
		s.markSuspended(ctx, username)
		return
	}

	params := scoreParams(username, about, time.Now())
	if err := s.queries.UpdateUserScores(ctx, params); err != nil {
		s.log.Error("user score write failed", "user", username, "error", err)
		metrics.ScrapeItemsTotal.WithLabelValues(platformUser, "error").Inc()
		return
	}
	metrics.UsersScored.Inc()

	discovered := 0
	posts, subRes := s.client.UserSubmitted(ctx, username, s.settings.UserSubmissionsLimit)
	if subRes.Kind == fetch.OK {
		discovered = s.discoverSubreddits(ctx, posts)
	} else {
		// The profile is already scored; missing submissions only
		// cost this cycle's discovery.
		s.log.Warn("user submissions fetch failed",
			"user", username, "kind", subRes.Kind.String(), "error", subRes.Err)
	}

	metrics.ScrapeItemsTotal.WithLabelValues(platformUser, "ok").Inc()
	metrics.ScrapeItemDuration.WithLabelValues(platformUser).Observe(time.Since(start).Seconds())
	s.log.Info("scored user",
		"action", "score_user",
		"user", username,
		"overall", params.OverallScore.Float64,
		"discovered_subreddits", discovered,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (s *Scraper) markSuspended(ctx context.Context, username string) {
	if err := s.queries.MarkUserSuspended(ctx, username); err != nil {
		s.log.Error("mark suspended failed", "user", username, "error", err)
		metrics.ScrapeItemsTotal.WithLabelValues(platformUser, "error").Inc()
		return
	}
	metrics.ScrapeItemsTotal.WithLabelValues(platformUser, "suspended").Inc()
}

// discoverSubreddits inserts every subreddit named in the posts that
// this cycle has not seen yet. Existing rows are never touched, so a
// curator's review survives rediscovery.
func (s *Scraper) discoverSubreddits(ctx context.Context, posts []Post) int {
	inserted := 0
	for _, p := range posts {
		name := utils.NormalizeSubredditName(p.Subreddit)
		if !utils.IsValidSubredditName(name) {
			continue
		}
		if s.markSeenSubreddit(name) {
			continue
		}
		if err := s.queries.InsertDiscoveredSubreddit(ctx, name); err != nil {
			s.log.Error("subreddit discovery insert failed", "subreddit", name, "error", err)
			continue
		}
		inserted++
	}
	return inserted
}
