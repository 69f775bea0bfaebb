package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

const userColumns = `id, username, account_age_days, post_karma, comment_karma, username_score, age_score, karma_score, overall_score, is_suspended, last_scraped_at, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (RedditUser, error) {
	var i RedditUser
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.AccountAgeDays,
		&i.PostKarma,
		&i.CommentKarma,
		&i.UsernameScore,
		&i.AgeScore,
		&i.KarmaScore,
		&i.OverallScore,
		&i.IsSuspended,
		&i.LastScrapedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertDiscoveredUser = `
INSERT INTO reddit_users (username)
VALUES ($1)
ON CONFLICT (username) DO NOTHING`

// InsertDiscoveredUser queues an author seen on a subreddit's posts.
func (q *Queries) InsertDiscoveredUser(ctx context.Context, username string) error {
	_, err := q.db.ExecContext(ctx, insertDiscoveredUser, username)
	return err
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM reddit_users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (RedditUser, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

type ListUsersForScoringParams struct {
	ScrapedBefore time.Time
	RowLimit      int32
}

const listUsersForScoring = `
SELECT ` + userColumns + `
FROM reddit_users
WHERE NOT is_suspended
  AND (last_scraped_at IS NULL OR last_scraped_at < $1)
ORDER BY last_scraped_at ASC NULLS FIRST
LIMIT $2`

func (q *Queries) ListUsersForScoring(ctx context.Context, arg ListUsersForScoringParams) ([]RedditUser, error) {
	rows, err := q.db.QueryContext(ctx, listUsersForScoring, arg.ScrapedBefore, arg.RowLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RedditUser
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listUsersByUsernames = `
SELECT ` + userColumns + `
FROM reddit_users
WHERE username = ANY($1::text[])`

// ListUsersByUsernames returns the stored rows for the given authors,
// used when deriving a subreddit's karma and age floors.
func (q *Queries) ListUsersByUsernames(ctx context.Context, usernames []string) ([]RedditUser, error) {
	rows, err := q.db.QueryContext(ctx, listUsersByUsernames, pq.Array(usernames))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RedditUser
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateUserScoresParams struct {
	Username       string
	AccountAgeDays sql.NullInt32
	PostKarma      sql.NullInt64
	CommentKarma   sql.NullInt64
	UsernameScore  sql.NullInt32
	AgeScore       sql.NullInt32
	KarmaScore     sql.NullInt32
	OverallScore   sql.NullFloat64
}

const updateUserScores = `
UPDATE reddit_users
SET account_age_days = $2,
    post_karma = $3,
    comment_karma = $4,
    username_score = $5,
    age_score = $6,
    karma_score = $7,
    overall_score = $8,
    last_scraped_at = now(),
    updated_at = now()
WHERE username = $1`

func (q *Queries) UpdateUserScores(ctx context.Context, arg UpdateUserScoresParams) error {
	_, err := q.db.ExecContext(ctx, updateUserScores,
		arg.Username,
		arg.AccountAgeDays,
		arg.PostKarma,
		arg.CommentKarma,
		arg.UsernameScore,
		arg.AgeScore,
		arg.KarmaScore,
		arg.OverallScore,
	)
	return err
}

const markUserSuspended = `
UPDATE reddit_users
SET is_suspended = TRUE, last_scraped_at = now(), updated_at = now()
WHERE username = $1`

func (q *Queries) MarkUserSuspended(ctx context.Context, username string) error {
	_, err := q.db.ExecContext(ctx, markUserSuspended, username)
	return err
}
