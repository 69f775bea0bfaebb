package db

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// UpsertPostParams inserts or refreshes one reddit_posts row. On
// conflict only the vote counts and moderation flags are updated; the
// sub_* mirror columns keep their insert-time snapshot.
type UpsertPostParams struct {
	RedditID           string
	Title              string
	Author             sql.NullString
	SubredditName      string
	CreatedUtc         sql.NullTime
	Score              int32
	UpvoteRatio        sql.NullFloat64
	NumComments        int32
	Over18             bool
	Spoiler            bool
	Stickied           bool
	Locked             bool
	IsSelf             bool
	IsVideo            bool
	IsGallery          bool
	Permalink          sql.NullString
	Url                sql.NullString
	Domain             sql.NullString
	Selftext           sql.NullString
	PostType           sql.NullString
	SubPrimaryCategory sql.NullString
	SubTags            []string
	SubOver18          sql.NullBool
}

const upsertPost = `
INSERT INTO reddit_posts (
    reddit_id, title, author, subreddit_name, created_utc, score, upvote_ratio,
    num_comments, over_18, spoiler, stickied, locked, is_self, is_video,
    is_gallery, permalink, url, domain, selftext, post_type,
    sub_primary_category, sub_tags, sub_over18
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
ON CONFLICT (reddit_id) DO UPDATE SET
    score = EXCLUDED.score,
    upvote_ratio = EXCLUDED.upvote_ratio,
    num_comments = EXCLUDED.num_comments,
    stickied = EXCLUDED.stickied,
    locked = EXCLUDED.locked`

func (q *Queries) UpsertPost(ctx context.Context, arg UpsertPostParams) error {
	_, err := q.db.ExecContext(ctx, upsertPost,
		arg.RedditID,
		arg.Title,
		arg.Author,
		arg.SubredditName,
		arg.CreatedUtc,
		arg.Score,
		arg.UpvoteRatio,
		arg.NumComments,
		arg.Over18,
		arg.Spoiler,
		arg.Stickied,
		arg.Locked,
		arg.IsSelf,
		arg.IsVideo,
		arg.IsGallery,
		arg.Permalink,
		arg.Url,
		arg.Domain,
		arg.Selftext,
		arg.PostType,
		arg.SubPrimaryCategory,
		pq.Array(arg.SubTags),
		arg.SubOver18,
	)
	return err
}

const getPostByRedditID = `
SELECT id, reddit_id, title, author, subreddit_name, created_utc, score, upvote_ratio,
       num_comments, over_18, spoiler, stickied, locked, is_self, is_video,
       is_gallery, permalink, url, domain, selftext, post_type,
       sub_primary_category, sub_tags, sub_over18, created_at
FROM reddit_posts WHERE reddit_id = $1`

func (q *Queries) GetPostByRedditID(ctx context.Context, redditID string) (RedditPost, error) {
	row := q.db.QueryRowContext(ctx, getPostByRedditID, redditID)
	var i RedditPost
	err := row.Scan(
		&i.ID,
		&i.RedditID,
		&i.Title,
		&i.Author,
		&i.SubredditName,
		&i.CreatedUtc,
		&i.Score,
		&i.UpvoteRatio,
		&i.NumComments,
		&i.Over18,
		&i.Spoiler,
		&i.Stickied,
		&i.Locked,
		&i.IsSelf,
		&i.IsVideo,
		&i.IsGallery,
		&i.Permalink,
		&i.Url,
		&i.Domain,
		&i.Selftext,
		&i.PostType,
		&i.SubPrimaryCategory,
		pq.Array(&i.SubTags),
		&i.SubOver18,
		&i.CreatedAt,
	)
	return i, err
}

const countPostsBySubreddit = `SELECT count(*) FROM reddit_posts WHERE subreddit_name = $1`

func (q *Queries) CountPostsBySubreddit(ctx context.Context, subredditName string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPostsBySubreddit, subredditName).Scan(&count)
	return count, err
}

type ListRecentPostTitlesParams struct {
	SubredditName string
	RowLimit      int32
}

const listRecentPostTitles = `
SELECT title
FROM reddit_posts
WHERE subreddit_name = $1
ORDER BY created_utc DESC NULLS LAST
LIMIT $2`

// ListRecentPostTitles feeds the categorizer prompt with what the
// subreddit actually posts.
func (q *Queries) ListRecentPostTitles(ctx context.Context, arg ListRecentPostTitlesParams) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listRecentPostTitles, arg.SubredditName, arg.RowLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		items = append(items, title)
	}
	return items, rows.Err()
}
