package instagram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/circuitbreaker"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/metrics"
)

// Fetch depths. The first scrape of a creator pulls deep history,
// later cycles only refresh the head.
const (
	firstTimeReels = 90
	existingReels  = 30
	firstTimePosts = 30
	existingPosts  = 10

	// analyticsRecentLimit caps how many stored reels and posts feed
	// the rolling averages.
	analyticsRecentLimit = 30
)

// Review states written to instagram_creators.review_status.
const (
	reviewPrivate  = "Private"
	reviewNotFound = "NotFound"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)

func validUsername(name string) bool { return usernameRe.MatchString(name) }

// processCreator runs the per-creator pipeline: profile refresh,
// media pulls, analytics, growth tracking. Media failures degrade to
// a partial scrape instead of failing the creator.
func (s *Scraper) processCreator(ctx context.Context, username string) {
	start := time.Now()

	creator, err := s.queries.GetCreatorByUsername(ctx, username)
	if err != nil {
		s.log.Error("creator lookup failed", "creator", username, "error", err)
		metrics.ScrapeItemsTotal.WithLabelValues(platformInstagram, "error").Inc()
		return
	}

	profile, err := s.client.UserInfo(ctx, creator.IgUserID)
	if err != nil {
		s.handleFetchFailure(ctx, creator, err)
		return
	}

	if err := s.refreshProfile(ctx, creator, profile); err != nil {
		s.log.Error("profile write failed", "creator", username, "error", err)
		metrics.ScrapeItemsTotal.WithLabelValues(platformInstagram, "error").Inc()
		return
	}

	if profile.IsPrivate {
		if werr := s.queries.SetCreatorReviewStatus(ctx, creator.Username, nullString(reviewPrivate)); werr != nil {
			s.log.Error("review write failed", "creator", username, "error", werr)
		}
		if werr := s.queries.TouchCreatorScraped(ctx, creator.IgUserID); werr != nil {
			s.log.Error("scrape stamp failed", "creator", username, "error", werr)
		}
		s.log.Warn("creator turned private, media skipped", "creator", username)
		metrics.ScrapeItemsTotal.WithLabelValues(platformInstagram, "forbidden").Inc()
		return
	}

	reels, firstTime := s.pullReels(ctx, creator)
	posts := s.pullPosts(ctx, creator)

	if err := s.updateAnalytics(ctx, creator, profile); err != nil {
		s.log.Error("analytics write failed", "creator", username, "error", err)
		metrics.ScrapeItemsTotal.WithLabelValues(platformInstagram, "error").Inc()
		return
	}

	if firstTime {
		s.discoverRelated(ctx, creator)
	}

	metrics.ScrapeItemsTotal.WithLabelValues(platformInstagram, "ok").Inc()
	metrics.ScrapeItemDuration.WithLabelValues(platformInstagram).Observe(time.Since(start).Seconds())
	s.log.Log(ctx, logger.LevelSuccess,
		fmt.Sprintf("Completed @%s | followers %d | reels %d | posts %d",
			creator.Username, profile.FollowerCount, reels, posts),
		"action", "scrape_creator",
		"creator", creator.Username,
		"followers", profile.FollowerCount,
		"reels", reels,
		"posts", posts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// handleFetchFailure maps a profile fetch error to row state. Gone
// accounts leave the rotation; everything else requeues by leaving
// last_scraped_at alone.
func (s *Scraper) handleFetchFailure(ctx context.Context, creator db.InstagramCreator, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.ScrapeItemsTotal.WithLabelValues(platformInstagram, "not_found").Inc()
		if werr := s.queries.SetCreatorReviewStatus(ctx, creator.Username, nullString(reviewNotFound)); werr != nil {
			s.log.Error("review write failed", "creator", creator.Username, "error", werr)
			return
		}
		if werr := s.queries.SetCreatorEnabled(ctx, creator.Username, false); werr != nil {
			s.log.Error("enabled write failed", "creator", creator.Username, "error", werr)
			return
		}
		s.log.Warn("creator gone, removed from rotation", "creator", creator.Username)
	case errors.Is(err, ErrRateLimited):
		metrics.ScrapeItemsTotal.WithLabelValues(platformInstagram, "rate_limited").Inc()
		s.log.Warn("rate limited, creator requeued", "creator", creator.Username)
	case errors.Is(err, circuitbreaker.ErrOpen):
		metrics.ScrapeItemsTotal.WithLabelValues(platformInstagram, "transient").Inc()
		s.log.Warn("circuit open, creator requeued", "creator", creator.Username)
	default:
		metrics.ScrapeItemsTotal.WithLabelValues(platformInstagram, "transient").Inc()
		s.log.Warn("profile fetch failed, creator skipped", "creator", creator.Username, "error", err)
	}
}

// refreshProfile writes the profile head fields and appends the
// follower sample that growth rates read from.
func (s *Scraper) refreshProfile(ctx context.Context, creator db.InstagramCreator, p Profile) error {
	username := creator.Username
	if p.Username != "" {
		// Renamed accounts stay tracked through the numeric id.
		username = p.Username
	}
	if err := s.queries.UpdateCreatorProfile(ctx, db.UpdateCreatorProfileParams{
		IgUserID:       creator.IgUserID,
		Username:       username,
		FullName:       nullString(p.FullName),
		FollowersCount: p.FollowerCount,
		FollowingCount: p.FollowingCount,
		MediaCount:     p.MediaCount,
		ProfilePicUrl:  nullString(p.ProfilePicURL),
	}); err != nil {
		return err
	}
	return s.queries.InsertFollowerHistory(ctx, db.InsertFollowerHistoryParams{
		CreatorID:      creator.ID,
		FollowersCount: p.FollowerCount,
	})
}

// pullReels fetches and upserts one reel batch. Viral flags compare
// against the creator's stored average, or the batch's own when no
// average exists yet.
func (s *Scraper) pullReels(ctx context.Context, creator db.InstagramCreator) (stored int, firstTime bool) {
	count, err := s.queries.CountReelsByCreator(ctx, creator.ID)
	if err != nil {
		s.log.Error("reel count failed", "creator", creator.Username, "error", err)
		return 0, false
	}
	firstTime = count == 0

	limit := existingReels
	if firstTime {
		limit = firstTimeReels
	}
	reels, err := s.client.Reels(ctx, creator.IgUserID, limit)
	if err != nil {
		s.log.Warn("reels fetch failed", "creator", creator.Username, "error", err)
		return 0, firstTime
	}

	avg := batchAvgViews(reels)
	if creator.AvgViewsPerReel.Valid {
		avg = creator.AvgViewsPerReel.Float64
	}
	for _, m := range reels {
		pk := m.Pk.String()
		if pk == "" || pk == "0" {
			continue
		}
		viral := IsViral(m.PlayCount, avg)
		if err := s.queries.UpsertReel(ctx, db.UpsertReelParams{
			MediaPk:      pk,
			CreatorID:    creator.ID,
			TakenAt:      takenAt(m.TakenAt),
			PlayCount:    m.PlayCount,
			LikeCount:    m.LikeCount,
			CommentCount: m.CommentCount,
			MediaUrl:     nullString(m.VideoURL),
			ThumbnailUrl: nullString(m.ThumbnailURL),
			IsViral:      viral,
		}); err != nil {
			s.log.Warn("reel upsert failed", "creator", creator.Username, "media_pk", pk, "error", err)
			continue
		}
		stored++
		metrics.ReelsUpserted.Inc()
		if viral {
			metrics.ViralReelsDetected.Inc()
			s.log.Info("viral reel", "creator", creator.Username, "media_pk", pk, "plays", m.PlayCount)
		}
	}
	return stored, firstTime
}

// pullPosts fetches and upserts one feed batch.
func (s *Scraper) pullPosts(ctx context.Context, creator db.InstagramCreator) int {
	count, err := s.queries.CountInstagramPostsByCreator(ctx, creator.ID)
	if err != nil {
		s.log.Error("post count failed", "creator", creator.Username, "error", err)
		return 0
	}
	limit := existingPosts
	if count == 0 {
		limit = firstTimePosts
	}
	posts, err := s.client.UserFeed(ctx, creator.IgUserID, limit)
	if err != nil {
		s.log.Warn("posts fetch failed", "creator", creator.Username, "error", err)
		return 0
	}

	stored := 0
	for _, m := range posts {
		pk := m.Pk.String()
		if pk == "" || pk == "0" {
			continue
		}
		if err := s.queries.UpsertInstagramPost(ctx, db.UpsertInstagramPostParams{
			MediaPk:      pk,
			CreatorID:    creator.ID,
			TakenAt:      takenAt(m.TakenAt),
			LikeCount:    m.LikeCount,
			CommentCount: m.CommentCount,
			MediaUrl:     nullString(m.VideoURL),
			ThumbnailUrl: nullString(m.ThumbnailURL),
		}); err != nil {
			s.log.Warn("post upsert failed", "creator", creator.Username, "media_pk", pk, "error", err)
			continue
		}
		stored++
	}
	return stored
}

// updateAnalytics recomputes rolling averages from stored media and
// persists them with follower growth. This also stamps
// last_scraped_at, which parks the creator until it goes stale.
func (s *Scraper) updateAnalytics(ctx context.Context, creator db.InstagramCreator, p Profile) error {
	recentReels, err := s.queries.ListRecentReels(ctx, db.ListRecentReelsParams{
		CreatorID: creator.ID,
		RowLimit:  analyticsRecentLimit,
	})
	if err != nil {
		return err
	}
	recentPosts, err := s.queries.ListRecentInstagramPosts(ctx, db.ListRecentInstagramPostsParams{
		CreatorID: creator.ID,
		RowLimit:  analyticsRecentLimit,
	})
	if err != nil {
		return err
	}

	a := ComputeAnalytics(p.FollowerCount, recentReels, recentPosts)
	daily := s.growthSince(ctx, creator.ID, p.FollowerCount, 24*time.Hour)
	weekly := s.growthSince(ctx, creator.ID, p.FollowerCount, 7*24*time.Hour)

	return s.queries.UpdateCreatorAnalytics(ctx, db.UpdateCreatorAnalyticsParams{
		IgUserID:         creator.IgUserID,
		AvgViewsPerReel:  a.AvgViewsPerReel,
		AvgEngagement:    a.AvgEngagementPerPost,
		EngagementRate:   a.EngagementRate,
		DailyGrowthRate:  daily,
		WeeklyGrowthRate: weekly,
	})
}

// growthSince derives the percentage change against the newest
// follower sample at least age old. Null when no sample that old
// exists, which keeps the stored rate in place.
func (s *Scraper) growthSince(ctx context.Context, creatorID, current int64, age time.Duration) sql.NullFloat64 {
	prev, err := s.queries.GetFollowerCountBefore(ctx, db.GetFollowerCountBeforeParams{
		CreatorID: creatorID,
		Before:    time.Now().Add(-age),
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("follower history query failed", "creator_id", creatorID, "error", err)
		}
		return sql.NullFloat64{}
	}
	return GrowthRate(current, prev)
}

// discoverRelated seeds the creator table from related profiles the
// first time an account is scraped. Rows land disabled with the
// source creator's niche; an operator promotes them by hand.
func (s *Scraper) discoverRelated(ctx context.Context, creator db.InstagramCreator) {
	profiles, err := s.client.RelatedProfiles(ctx, creator.IgUserID)
	if err != nil {
		s.log.Warn("related profiles fetch failed", "creator", creator.Username, "error", err)
		return
	}
	added := 0
	for _, p := range profiles {
		id := p.Pk.String()
		if id == "" || id == "0" || id == creator.IgUserID {
			continue
		}
		if p.IsPrivate || !validUsername(p.Username) {
			continue
		}
		if err := s.queries.InsertDiscoveredCreator(ctx, db.InsertDiscoveredCreatorParams{
			IgUserID: id,
			Username: p.Username,
			Niche:    creator.Niche,
		}); err != nil {
			s.log.Warn("discovered creator insert failed", "username", p.Username, "error", err)
			continue
		}
		added++
	}
	if added > 0 {
		s.log.Info("related creators discovered", "creator", creator.Username, "added", added)
	}
}

// AddCreator registers a creator by hand, resolving the numeric id
// through the profile endpoint when the caller does not know it.
// Errors are *apierr.Error values ready for the HTTP layer.
func (s *Scraper) AddCreator(ctx context.Context, username, igUserID, niche string) (db.InstagramCreator, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if !validUsername(username) {
		return db.InstagramCreator{}, apierr.InstagramInvalidUsername("invalid instagram username: " + username)
	}

	if _, err := s.queries.GetCreatorByUsername(ctx, username); err == nil {
		return db.InstagramCreator{}, apierr.ResourceConflict("creator already tracked: " + username)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return db.InstagramCreator{}, apierr.SystemDatabase(err.Error())
	}

	if igUserID == "" {
		p, err := s.client.Profile(ctx, username)
		if err != nil {
			return db.InstagramCreator{}, addFetchError(username, err)
		}
		igUserID = p.Pk.String()
	}
	if igUserID == "" || igUserID == "0" {
		return db.InstagramCreator{}, apierr.InstagramNotFound(username)
	}

	if _, err := s.queries.GetCreatorByIgUserID(ctx, igUserID); err == nil {
		return db.InstagramCreator{}, apierr.ResourceConflict("creator already tracked: id " + igUserID)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return db.InstagramCreator{}, apierr.SystemDatabase(err.Error())
	}

	row, err := s.queries.InsertCreator(ctx, db.InsertCreatorParams{
		IgUserID: igUserID,
		Username: username,
		Niche:    nullString(strings.TrimSpace(niche)),
	})
	if err != nil {
		return db.InstagramCreator{}, apierr.SystemDatabase(err.Error())
	}
	s.log.Info("creator added", "creator", username, "ig_user_id", igUserID)
	return row, nil
}

func addFetchError(username string, err error) *apierr.Error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apierr.InstagramNotFound(username)
	case errors.Is(err, ErrRateLimited), errors.Is(err, circuitbreaker.ErrOpen):
		return apierr.SystemUnavailable("Instagram gateway unavailable, try again later")
	default:
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		return apierr.SystemInternal(msg)
	}
}

func batchAvgViews(reels []Media) float64 {
	if len(reels) == 0 {
		return 0
	}
	var views int64
	for _, m := range reels {
		views += m.PlayCount
	}
	return float64(views) / float64(len(reels))
}

func takenAt(sec int64) sql.NullTime {
	if sec <= 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: time.Unix(sec, 0).UTC(), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
