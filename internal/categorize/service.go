package categorize

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/metrics"
)

const (
	defaultBatchSize = 20
	recentTitleCount = 15

	// jobTimeout bounds a background job. A batch of 20 with one
	// completion each finishes in well under a minute.
	jobTimeout = 30 * time.Minute
)

// Options select the rows one job works on.
type Options struct {
	BatchSize int     // rows per job, default 20
	Limit     int     // optional tighter cap on top of BatchSize
	IDs       []int64 // explicit rows, bypasses the eligibility query
	Force     bool    // re-tag rows that already carry tags
}

// Summary is what a finished job reports.
type Summary struct {
	JobID     string `json:"job_id"`
	Processed int    `json:"processed"`
	Tagged    int    `json:"tagged"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// Service runs categorization batches over reviewed subreddits.
type Service struct {
	queries    *db.Queries
	classifier Classifier
	log        *slog.Logger
}

func New(queries *db.Queries, classifier Classifier) *Service {
	return &Service{
		queries:    queries,
		classifier: classifier,
		log:        logger.WithComponent("categorizer"),
	}
}

// Start launches a job in the background and returns its id at once.
// The API handler responds with the id while the batch runs.
func (s *Service) Start(opts Options) string {
	jobID := uuid.NewString()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		s.Run(ctx, jobID, opts)
	}()
	return jobID
}

// Run executes one batch synchronously and reports what happened.
func (s *Service) Run(ctx context.Context, jobID string, opts Options) Summary {
	start := time.Now()
	sum := Summary{JobID: jobID}

	limit := opts.BatchSize
	if limit <= 0 {
		limit = defaultBatchSize
	}
	if opts.Limit > 0 && opts.Limit < limit {
		limit = opts.Limit
	}

	var (
		subs []db.RedditSubreddit
		err  error
	)
	if len(opts.IDs) > 0 {
		subs, err = s.queries.ListSubredditsByIDs(ctx, opts.IDs)
	} else {
		subs, err = s.queries.ListSubredditsForCategorization(ctx, db.ListSubredditsForCategorizationParams{
			RowLimit: int32(limit),
			Force:    opts.Force,
		})
	}
	if err != nil {
		s.log.Error("categorization working set query failed", "job_id", jobID, "error", err)
		metrics.CategorizeJobsTotal.WithLabelValues("failed").Inc()
		return sum
	}

	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		sum.Processed++
		switch s.processRow(ctx, sub, opts.Force) {
		case rowTagged:
			sum.Tagged++
		case rowSkipped:
			sum.Skipped++
		case rowFailed:
			sum.Failed++
		}
	}

	metrics.CategorizeJobsTotal.WithLabelValues("success").Inc()
	s.log.Log(ctx, logger.LevelSuccess, "categorization complete",
		"job_id", jobID,
		"processed", sum.Processed,
		"tagged", sum.Tagged,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return sum
}

type rowOutcome int

const (
	rowTagged rowOutcome = iota
	rowSkipped
	rowFailed
)

func (s *Service) processRow(ctx context.Context, sub db.RedditSubreddit, force bool) rowOutcome {
	if len(sub.Tags) > 0 && !force {
		// The eligibility query filters tagged rows out, but explicit
		// ids can still name them.
		return rowSkipped
	}

	titles, err := s.queries.ListRecentPostTitles(ctx, db.ListRecentPostTitlesParams{
		SubredditName: sub.Name,
		RowLimit:      recentTitleCount,
	})
	if err != nil {
		// The prompt works without titles, just with less signal.
		s.log.Warn("recent titles query failed", "subreddit", sub.Name, "error", err)
	}

	result, err := s.classifier.Classify(ctx, Metadata{
		Name:         sub.Name,
		Title:        sub.DisplayName.String,
		Subscribers:  sub.Subscribers,
		Over18:       sub.Over18.Valid && sub.Over18.Bool,
		RecentTitles: titles,
	})
	if err != nil {
		s.log.Error("classify failed", "subreddit", sub.Name, "error", err)
		return rowFailed
	}

	tags := ValidateTags(result.Tags)
	if len(tags) == 0 {
		s.log.Error("classifier returned no usable tags",
			"subreddit", sub.Name, "raw", strings.Join(result.Tags, ","))
		return rowFailed
	}

	if err := s.queries.SetSubredditTags(ctx, db.SetSubredditTagsParams{
		Name:            sub.Name,
		Tags:            tags,
		PrimaryCategory: PrimaryCategory(tags),
	}); err != nil {
		s.log.Error("tag write failed", "subreddit", sub.Name, "error", err)
		return rowFailed
	}

	s.log.Info("subreddit tagged",
		"subreddit", sub.Name,
		"tags", strings.Join(tags, ","),
		"confidence", result.Confidence,
	)
	return rowTagged
}
