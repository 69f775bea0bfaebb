package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

const subredditColumns = `id, name, display_name, url, subscribers, accounts_active, over18, review, primary_category, tags, avg_upvotes_per_post, avg_comments_per_post, engagement, subreddit_score, best_posting_day, best_posting_hour, post_frequency, min_post_karma, min_comment_karma, min_account_age_days, last_scraped_at, created_at, updated_at`

func scanSubreddit(row interface{ Scan(...interface{}) error }) (RedditSubreddit, error) {
	var i RedditSubreddit
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.DisplayName,
		&i.Url,
		&i.Subscribers,
		&i.AccountsActive,
		&i.Over18,
		&i.Review,
		&i.PrimaryCategory,
		pq.Array(&i.Tags),
		&i.AvgUpvotesPerPost,
		&i.AvgCommentsPerPost,
		&i.Engagement,
		&i.SubredditScore,
		&i.BestPostingDay,
		&i.BestPostingHour,
		&i.PostFrequency,
		&i.MinPostKarma,
		&i.MinCommentKarma,
		&i.MinAccountAgeDays,
		&i.LastScrapedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getSubredditByName = `SELECT ` + subredditColumns + ` FROM reddit_subreddits WHERE name = $1`

func (q *Queries) GetSubredditByName(ctx context.Context, name string) (RedditSubreddit, error) {
	return scanSubreddit(q.db.QueryRowContext(ctx, getSubredditByName, name))
}

type ListSubredditsForScrapeParams struct {
	ScrapedBefore time.Time
	RowLimit      int32
}

const listSubredditsForScrape = `
SELECT ` + subredditColumns + `
FROM reddit_subreddits
WHERE review IN ('Ok', 'No Seller')
  AND (last_scraped_at IS NULL OR last_scraped_at < $1)
ORDER BY last_scraped_at ASC NULLS FIRST
LIMIT $2`

// ListSubredditsForScrape returns the cycle working set: approved
// subreddits not scraped since the staleness cutoff, oldest first.
func (q *Queries) ListSubredditsForScrape(ctx context.Context, arg ListSubredditsForScrapeParams) ([]RedditSubreddit, error) {
	rows, err := q.db.QueryContext(ctx, listSubredditsForScrape, arg.ScrapedBefore, arg.RowLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RedditSubreddit
	for rows.Next() {
		i, err := scanSubreddit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countSubreddits = `SELECT count(*) FROM reddit_subreddits`

// CountSubreddits is the head count the metadata cache cross-checks
// its pagination against.
func (q *Queries) CountSubreddits(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countSubreddits).Scan(&count)
	return count, err
}

// SubredditMeta is the slice of columns protected-upsert decisions
// depend on.
type SubredditMeta struct {
	Name            string
	Review          sql.NullString
	PrimaryCategory sql.NullString
	Tags            []string
	Over18          sql.NullBool
	Subscribers     int64
	AccountsActive  int64
}

const subredditMetaColumns = `name, review, primary_category, tags, over18, subscribers, accounts_active`

func scanSubredditMeta(row interface{ Scan(...interface{}) error }) (SubredditMeta, error) {
	var i SubredditMeta
	err := row.Scan(
		&i.Name,
		&i.Review,
		&i.PrimaryCategory,
		pq.Array(&i.Tags),
		&i.Over18,
		&i.Subscribers,
		&i.AccountsActive,
	)
	return i, err
}

type ListSubredditMetaPageParams struct {
	PageLimit  int32
	PageOffset int32
}

const listSubredditMetaPage = `
SELECT ` + subredditMetaColumns + `
FROM reddit_subreddits
ORDER BY id
LIMIT $1 OFFSET $2`

func (q *Queries) ListSubredditMetaPage(ctx context.Context, arg ListSubredditMetaPageParams) ([]SubredditMeta, error) {
	rows, err := q.db.QueryContext(ctx, listSubredditMetaPage, arg.PageLimit, arg.PageOffset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SubredditMeta
	for rows.Next() {
		i, err := scanSubredditMeta(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getSubredditMeta = `SELECT ` + subredditMetaColumns + ` FROM reddit_subreddits WHERE name = $1`

func (q *Queries) GetSubredditMeta(ctx context.Context, name string) (SubredditMeta, error) {
	return scanSubredditMeta(q.db.QueryRowContext(ctx, getSubredditMeta, name))
}

const insertDiscoveredSubreddit = `
INSERT INTO reddit_subreddits (name)
VALUES ($1)
ON CONFLICT (name) DO NOTHING`

// InsertDiscoveredSubreddit records a subreddit seen in user
// submissions. Existing rows are never touched.
func (q *Queries) InsertDiscoveredSubreddit(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, insertDiscoveredSubreddit, name)
	return err
}

type UpdateSubredditReviewParams struct {
	Name   string
	Review string
}

const updateSubredditReview = `
UPDATE reddit_subreddits
SET review = $2, updated_at = now()
WHERE name = $1`

func (q *Queries) UpdateSubredditReview(ctx context.Context, arg UpdateSubredditReviewParams) error {
	_, err := q.db.ExecContext(ctx, updateSubredditReview, arg.Name, arg.Review)
	return err
}

// UpdateSubredditScrapeParams carries the protected-merge payload.
// Null optional fields keep the stored value; computed metrics are
// written unconditionally and best day/hour may be written as NULL.
type UpdateSubredditScrapeParams struct {
	Name               string
	DisplayName        sql.NullString
	Url                sql.NullString
	Subscribers        sql.NullInt64
	AccountsActive     sql.NullInt64
	Over18             sql.NullBool
	Review             sql.NullString
	PrimaryCategory    sql.NullString
	Tags               []string
	AvgUpvotesPerPost  sql.NullFloat64
	AvgCommentsPerPost sql.NullFloat64
	Engagement         sql.NullFloat64
	SubredditScore     sql.NullFloat64
	BestPostingDay     sql.NullString
	BestPostingHour    sql.NullInt32
	PostFrequency      sql.NullFloat64
	MinPostKarma       sql.NullInt32
	MinCommentKarma    sql.NullInt32
	MinAccountAgeDays  sql.NullInt32
}

const updateSubredditScrape = `
UPDATE reddit_subreddits
SET display_name = COALESCE($2, display_name),
    url = COALESCE($3, url),
    subscribers = COALESCE($4, subscribers),
    accounts_active = COALESCE($5, accounts_active),
    over18 = COALESCE($6, over18),
    review = COALESCE($7, review),
    primary_category = COALESCE($8, primary_category),
    tags = CASE WHEN $9::text[] IS NULL THEN tags ELSE $9::text[] END,
    avg_upvotes_per_post = $10,
    avg_comments_per_post = $11,
    engagement = $12,
    subreddit_score = $13,
    best_posting_day = $14,
    best_posting_hour = $15,
    post_frequency = $16,
    min_post_karma = COALESCE($17, min_post_karma),
    min_comment_karma = COALESCE($18, min_comment_karma),
    min_account_age_days = COALESCE($19, min_account_age_days),
    last_scraped_at = now(),
    updated_at = now()
WHERE name = $1`

func (q *Queries) UpdateSubredditScrape(ctx context.Context, arg UpdateSubredditScrapeParams) error {
	_, err := q.db.ExecContext(ctx, updateSubredditScrape,
		arg.Name,
		arg.DisplayName,
		arg.Url,
		arg.Subscribers,
		arg.AccountsActive,
		arg.Over18,
		arg.Review,
		arg.PrimaryCategory,
		pq.Array(arg.Tags),
		arg.AvgUpvotesPerPost,
		arg.AvgCommentsPerPost,
		arg.Engagement,
		arg.SubredditScore,
		arg.BestPostingDay,
		arg.BestPostingHour,
		arg.PostFrequency,
		arg.MinPostKarma,
		arg.MinCommentKarma,
		arg.MinAccountAgeDays,
	)
	return err
}

type SetSubredditTagsParams struct {
	Name            string
	Tags            []string
	PrimaryCategory string
}

const setSubredditTags = `
UPDATE reddit_subreddits
SET tags = $2, primary_category = $3, updated_at = now()
WHERE name = $1`

// SetSubredditTags is the categorizer's write path; it owns these two
// columns.
func (q *Queries) SetSubredditTags(ctx context.Context, arg SetSubredditTagsParams) error {
	_, err := q.db.ExecContext(ctx, setSubredditTags, arg.Name, pq.Array(arg.Tags), arg.PrimaryCategory)
	return err
}

const listSubredditsByIDs = `
SELECT ` + subredditColumns + `
FROM reddit_subreddits
WHERE id = ANY($1::bigint[])
ORDER BY id`

func (q *Queries) ListSubredditsByIDs(ctx context.Context, ids []int64) ([]RedditSubreddit, error) {
	rows, err := q.db.QueryContext(ctx, listSubredditsByIDs, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RedditSubreddit
	for rows.Next() {
		i, err := scanSubreddit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type ListSubredditsForCategorizationParams struct {
	RowLimit int32
	Force    bool
}

const listSubredditsForCategorization = `
SELECT ` + subredditColumns + `
FROM reddit_subreddits
WHERE review IN ('Ok', 'No Seller')
  AND ($2::bool OR tags IS NULL OR cardinality(tags) = 0)
ORDER BY id
LIMIT $1`

func (q *Queries) ListSubredditsForCategorization(ctx context.Context, arg ListSubredditsForCategorizationParams) ([]RedditSubreddit, error) {
	rows, err := q.db.QueryContext(ctx, listSubredditsForCategorization, arg.RowLimit, arg.Force)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RedditSubreddit
	for rows.Next() {
		i, err := scanSubreddit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
