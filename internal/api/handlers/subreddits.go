package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/cache"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/utils"
)

const fetchSingleCacheTTL = 60 * time.Second

// SubredditFetcher runs the full single-subreddit pipeline: about page,
// rules, hot posts, metric derivation, upsert.
type SubredditFetcher interface {
	ScrapeOne(ctx context.Context, name string) (db.RedditSubreddit, error)
}

type fetchSingleRequest struct {
	SubredditName string `json:"subreddit_name"`
}

type subredditResponse struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	DisplayName        *string    `json:"display_name,omitempty"`
	URL                *string    `json:"url,omitempty"`
	Subscribers        int64      `json:"subscribers"`
	AccountsActive     int64      `json:"accounts_active"`
	Over18             *bool      `json:"over_18,omitempty"`
	Review             *string    `json:"review,omitempty"`
	PrimaryCategory    *string    `json:"primary_category,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	AvgUpvotesPerPost  *float64   `json:"avg_upvotes_per_post,omitempty"`
	AvgCommentsPerPost *float64   `json:"avg_comments_per_post,omitempty"`
	Engagement         *float64   `json:"engagement,omitempty"`
	SubredditScore     *float64   `json:"subreddit_score,omitempty"`
	BestPostingDay     *string    `json:"best_posting_day,omitempty"`
	BestPostingHour    *int32     `json:"best_posting_hour,omitempty"`
	PostFrequency      *float64   `json:"post_frequency,omitempty"`
	MinPostKarma       *int32     `json:"min_post_karma,omitempty"`
	MinCommentKarma    *int32     `json:"min_comment_karma,omitempty"`
	MinAccountAgeDays  *int32     `json:"min_account_age_days,omitempty"`
	LastScrapedAt      *time.Time `json:"last_scraped_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toSubredditResponse(s db.RedditSubreddit) subredditResponse {
	return subredditResponse{
		ID:                 s.ID,
		Name:               s.Name,
		DisplayName:        nullString(s.DisplayName),
		URL:                nullString(s.Url),
		Subscribers:        s.Subscribers,
		AccountsActive:     s.AccountsActive,
		Over18:             nullBool(s.Over18),
		Review:             nullString(s.Review),
		PrimaryCategory:    nullString(s.PrimaryCategory),
		Tags:               s.Tags,
		AvgUpvotesPerPost:  nullFloat(s.AvgUpvotesPerPost),
		AvgCommentsPerPost: nullFloat(s.AvgCommentsPerPost),
		Engagement:         nullFloat(s.Engagement),
		SubredditScore:     nullFloat(s.SubredditScore),
		BestPostingDay:     nullString(s.BestPostingDay),
		BestPostingHour:    nullInt32(s.BestPostingHour),
		PostFrequency:      nullFloat(s.PostFrequency),
		MinPostKarma:       nullInt32(s.MinPostKarma),
		MinCommentKarma:    nullInt32(s.MinCommentKarma),
		MinAccountAgeDays:  nullInt32(s.MinAccountAgeDays),
		LastScrapedAt:      nullTime(s.LastScrapedAt),
		UpdatedAt:          s.UpdatedAt,
	}
}

// FetchSingleSubreddit scrapes one subreddit on demand and returns the
// stored row. Repeat requests inside the cache TTL are answered from
// cache so a dashboard double-click does not scrape twice.
func FetchSingleSubreddit(fetcher SubredditFetcher, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fetchSingleRequest
		if apiErr := decodeJSON(r, &req); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		name := strings.TrimSpace(req.SubredditName)
		if name == "" {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("subreddit_name"))
			return
		}

		cacheKey := "subreddit:fetch:" + utils.NormalizeSubredditName(name)
		if c != nil {
			if data, ok := c.Get(cacheKey); ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.Write(data)
				return
			}
		}

		sub, err := fetcher.ScrapeOne(r.Context(), name)
		if err != nil {
			var apiErr *apierr.Error
			if errors.As(err, &apiErr) {
				apierr.WriteErrorWithContext(w, r, apiErr)
				return
			}
			logger.ErrorContext(r.Context(), "fetch-single failed", "subreddit", name, "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("fetch failed"))
			return
		}

		body, err := json.Marshal(toSubredditResponse(sub))
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("encode failed"))
			return
		}
		if c != nil {
			c.Set(cacheKey, body, fetchSingleCacheTTL)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "MISS")
		w.Write(body)
	}
}
