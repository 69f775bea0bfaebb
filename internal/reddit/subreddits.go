package reddit

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/fetch"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/metrics"
	"github.com/creatorlens/backend/internal/utils"
)

const (
	platformSubreddit = "reddit"
	platformUser      = "reddit_user"

	topWindow     = "year"
	topPostsLimit = 10

	selftextLimit = 2000
	postBatchSize = 500
)

// Review labels the scraper reads and writes. Ok and No Seller mark
// curator approval; the rest are terminal states set on fetch failures.
const (
	ReviewOk       = "Ok"
	ReviewNoSeller = "No Seller"
	ReviewBanned   = "Banned"
	ReviewPrivate  = "Private"
	ReviewNotFound = "NotFound"
)

func reviewApproved(review sql.NullString) bool {
	return review.Valid && (review.String == ReviewOk || review.String == ReviewNoSeller)
}

// subredditFetch is what one item pulls off the wire before any write.
type subredditFetch struct {
	about About
	hot   []Post
	top   []Post
}

// processSubreddit runs one working-set item through the pipeline:
// fetch about, hot and top listings, compute metrics, protected
// upsert, store posts with mirror fields, then queue authors for
// scoring.
func (s *Scraper) processSubreddit(ctx context.Context, name string) {
	start := time.Now()

	existing, err := s.meta.lookup(ctx, s.queries, name)
	if err != nil {
		s.log.Error("subreddit metadata lookup failed", "subreddit", name, "error", err)
		metrics.ScrapeItemsTotal.WithLabelValues(platformSubreddit, "error").Inc()
		return
	}

	sf, res := s.fetchSubreddit(ctx, name)
	if res.Kind != fetch.OK {
		s.handleFetchFailure(ctx, name, existing, res)
		return
	}

	m, merged, err := s.writeSubreddit(ctx, existing, sf)
	if err != nil {
		s.log.Error("subreddit upsert failed", "subreddit", name, "error", err)
		metrics.ScrapeItemsTotal.WithLabelValues(platformSubreddit, "error").Inc()
		return
	}
	s.meta.store(merged)

	queued := 0
	if existing.Review.Valid && existing.Review.String == ReviewOk {
		queued = s.queueAuthors(ctx, sf.hot, sf.top)
	}

	metrics.ScrapeItemsTotal.WithLabelValues(platformSubreddit, "ok").Inc()
	metrics.ScrapeItemDuration.WithLabelValues(platformSubreddit).Observe(time.Since(start).Seconds())
	s.log.Log(ctx, logger.LevelSuccess, CompletedLine(name, m),
		"action", "scrape_subreddit",
		"subreddit", name,
		"queued_users", queued,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// fetchSubreddit performs the three listing calls, stopping at the
// first non-OK outcome.
func (s *Scraper) fetchSubreddit(ctx context.Context, name string) (subredditFetch, fetch.Result) {
	var sf subredditFetch
	var res fetch.Result
	sf.about, res = s.client.SubredditAbout(ctx, name)
	if res.Kind != fetch.OK {
		return sf, res
	}
	sf.hot, res = s.client.HotPosts(ctx, name, s.settings.PostsPerSubreddit)
	if res.Kind != fetch.OK {
		return sf, res
	}
	sf.top, res = s.client.TopPosts(ctx, name, topWindow, topPostsLimit)
	return sf, res
}

// writeSubreddit computes metrics and lands the protected merge and
// the post rows. A failed post write is logged but does not undo the
// subreddit row.
func (s *Scraper) writeSubreddit(ctx context.Context, existing db.SubredditMeta, sf subredditFetch) (Metrics, db.SubredditMeta, error) {
	m := ComputeMetrics(sf.about, sf.hot, sf.top)
	params := ProtectedMerge(existing, Computed{
		About:        sf.about,
		Metrics:      m,
		Requirements: s.authorRequirements(ctx, existing.Name, sf.hot, sf.top),
	})
	if err := s.queries.UpdateSubredditScrape(ctx, params); err != nil {
		return m, existing, err
	}
	merged := ApplyMerge(existing, params)

	rows := postRows(sf.hot, merged)
	if err := s.queries.BatchUpsertPosts(ctx, rows, postBatchSize); err != nil {
		s.log.Error("post batch upsert failed", "subreddit", existing.Name, "error", err)
	} else {
		metrics.PostsUpserted.Add(float64(len(rows)))
	}
	return m, merged, nil
}

// ScrapeOne runs the pipeline for a single named subreddit outside the
// cycle loop, creating the row when missing. This is the manual fetch
// path behind the API.
func (s *Scraper) ScrapeOne(ctx context.Context, name string) (db.RedditSubreddit, error) {
	name = utils.NormalizeSubredditName(name)
	if !utils.IsValidSubredditName(name) {
		return db.RedditSubreddit{}, apierr.SubredditInvalidName("invalid subreddit name: " + name)
	}
	if err := s.queries.InsertDiscoveredSubreddit(ctx, name); err != nil {
		return db.RedditSubreddit{}, err
	}
	existing, err := s.queries.GetSubredditMeta(ctx, name)
	if err != nil {
		return db.RedditSubreddit{}, err
	}

	sf, res := s.fetchSubreddit(ctx, name)
	if res.Kind != fetch.OK {
		s.handleFetchFailure(ctx, name, existing, res)
		return db.RedditSubreddit{}, fetchError(name, res)
	}
	if _, _, err := s.writeSubreddit(ctx, existing, sf); err != nil {
		return db.RedditSubreddit{}, err
	}
	return s.queries.GetSubredditByName(ctx, name)
}

// fetchError maps a terminal fetch outcome onto the API error surface.
func fetchError(name string, res fetch.Result) error {
	switch res.Kind {
	case fetch.Banned:
		return apierr.New(apierr.ErrSubredditNotFound, "Subreddit is banned: "+name, http.StatusNotFound)
	case fetch.NotFound:
		return apierr.SubredditNotFound(name)
	case fetch.Forbidden:
		return apierr.AuthForbidden("Subreddit is private: " + name)
	case fetch.RateLimited:
		return apierr.SystemUnavailable("Reddit is rate limiting, try again later")
	case fetch.Timeout:
		return apierr.SystemTimeout("")
	}
	msg := ""
	if res.Err != nil {
		msg = res.Err.Error()
	}
	return apierr.SystemInternal(msg)
}

func (s *Scraper) handleFetchFailure(ctx context.Context, name string, existing db.SubredditMeta, res fetch.Result) {
	metrics.ScrapeItemsTotal.WithLabelValues(platformSubreddit, res.Kind.String()).Inc()
	switch res.Kind {
	case fetch.Banned, fetch.Forbidden, fetch.NotFound:
		review := terminalReview(res.Kind, existing.Review)
		if err := s.queries.UpdateSubredditReview(ctx, db.UpdateSubredditReviewParams{Name: name, Review: review}); err != nil {
			s.log.Error("terminal review write failed",
				"subreddit", name, "review", review, "error", err)
			return
		}
		s.log.Warn("subreddit unavailable",
			"subreddit", name, "status", res.Status, "review", review)
	case fetch.RateLimited:
		// Nothing written; the row keeps its old last_scraped_at and
		// the next cycle dequeues it again.
		s.log.Warn("rate limited, requeueing subreddit", "subreddit", name)
	default:
		s.log.Warn("subreddit fetch failed, skipping",
			"subreddit", name, "kind", res.Kind.String(), "error", res.Err)
	}
}

// terminalReview maps a terminal fetch outcome onto a review label.
// A previously approved subreddit that starts to 404 is treated as
// banned rather than deleted.
func terminalReview(kind fetch.Kind, review sql.NullString) string {
	switch kind {
	case fetch.Banned:
		return ReviewBanned
	case fetch.Forbidden:
		return ReviewPrivate
	case fetch.NotFound:
		if reviewApproved(review) {
			return ReviewBanned
		}
		return ReviewNotFound
	}
	return ""
}

// authorRequirements derives the karma and age floors from the stored
// rows of this cycle's observed authors.
func (s *Scraper) authorRequirements(ctx context.Context, name string, hot, top []Post) Requirements {
	authors := distinctAuthors(hot, top)
	if len(authors) < minAuthorsForRequirements {
		return Requirements{}
	}
	rows, err := s.queries.ListUsersByUsernames(ctx, authors)
	if err != nil {
		s.log.Warn("author lookup failed", "subreddit", name, "error", err)
		return Requirements{}
	}
	return ComputeRequirements(rows)
}

func distinctAuthors(listings ...[]Post) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, posts := range listings {
		for _, p := range posts {
			author := utils.SanitizeUsername(p.Author)
			if !utils.IsValidAuthor(author) {
				continue
			}
			if _, ok := seen[author]; ok {
				continue
			}
			seen[author] = struct{}{}
			out = append(out, author)
		}
	}
	return out
}

// queueAuthors inserts authors this cycle has not seen before into the
// scoring queue.
func (s *Scraper) queueAuthors(ctx context.Context, hot, top []Post) int {
	var fresh []string
	for _, author := range distinctAuthors(hot, top) {
		if s.markSeenUser(author) {
			continue
		}
		fresh = append(fresh, author)
	}
	if len(fresh) == 0 {
		return 0
	}
	if err := s.queries.BatchInsertDiscoveredUsers(ctx, fresh, 0); err != nil {
		s.log.Error("author queue insert failed", "error", err)
		return 0
	}
	metrics.UsersQueued.Add(float64(len(fresh)))
	return len(fresh)
}

// postRows converts fetched posts into rows, mirroring the parent's
// category, tags and over18 as they stand at insert time.
func postRows(posts []Post, parent db.SubredditMeta) []db.UpsertPostParams {
	rows := make([]db.UpsertPostParams, 0, len(posts))
	for _, p := range posts {
		if p.ID == "" {
			continue
		}
		rows = append(rows, db.UpsertPostParams{
			RedditID:           p.ID,
			Title:              p.Title,
			Author:             nullString(p.Author),
			SubredditName:      parent.Name,
			CreatedUtc:         sql.NullTime{Time: p.Created(), Valid: p.CreatedUTC > 0},
			Score:              p.Score,
			UpvoteRatio:        sql.NullFloat64{Float64: p.UpvoteRatio, Valid: p.UpvoteRatio > 0},
			NumComments:        p.NumComments,
			Over18:             p.Over18,
			Spoiler:            p.Spoiler,
			Stickied:           p.Stickied,
			Locked:             p.Locked,
			IsSelf:             p.IsSelf,
			IsVideo:            p.IsVideo,
			IsGallery:          p.IsGallery,
			Permalink:          nullString(p.Permalink),
			Url:                nullString(p.URL),
			Domain:             nullString(p.Domain),
			Selftext:           nullString(utils.TruncateString(p.Selftext, selftextLimit)),
			PostType:           nullString(postType(p)),
			SubPrimaryCategory: parent.PrimaryCategory,
			SubTags:            parent.Tags,
			SubOver18:          parent.Over18,
		})
	}
	return rows
}

func postType(p Post) string {
	switch {
	case p.IsSelf:
		return "text"
	case p.IsVideo:
		return "video"
	case p.IsGallery:
		return "gallery"
	case p.PostHint != "":
		return p.PostHint
	}
	return "link"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
