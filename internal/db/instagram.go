package db

import (
	"context"
	"database/sql"
	"time"
)

const creatorColumns = `id, ig_user_id, username, full_name, followers_count, following_count, media_count, niche, review_status, profile_pic_url, enabled, avg_views_per_reel, avg_engagement, engagement_rate, daily_growth_rate, weekly_growth_rate, last_scraped_at, created_at, updated_at`

func scanCreator(row interface{ Scan(...interface{}) error }) (InstagramCreator, error) {
	var i InstagramCreator
	err := row.Scan(
		&i.ID,
		&i.IgUserID,
		&i.Username,
		&i.FullName,
		&i.FollowersCount,
		&i.FollowingCount,
		&i.MediaCount,
		&i.Niche,
		&i.ReviewStatus,
		&i.ProfilePicUrl,
		&i.Enabled,
		&i.AvgViewsPerReel,
		&i.AvgEngagement,
		&i.EngagementRate,
		&i.DailyGrowthRate,
		&i.WeeklyGrowthRate,
		&i.LastScrapedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type ListCreatorsForScrapeParams struct {
	ScrapedBefore time.Time
	RowLimit      int32
}

const listCreatorsForScrape = `
SELECT ` + creatorColumns + `
FROM instagram_creators
WHERE enabled
  AND (last_scraped_at IS NULL OR last_scraped_at < $1)
ORDER BY last_scraped_at ASC NULLS FIRST
LIMIT $2`

func (q *Queries) ListCreatorsForScrape(ctx context.Context, arg ListCreatorsForScrapeParams) ([]InstagramCreator, error) {
	rows, err := q.db.QueryContext(ctx, listCreatorsForScrape, arg.ScrapedBefore, arg.RowLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InstagramCreator
	for rows.Next() {
		i, err := scanCreator(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getCreatorByUsername = `SELECT ` + creatorColumns + ` FROM instagram_creators WHERE username = $1`

func (q *Queries) GetCreatorByUsername(ctx context.Context, username string) (InstagramCreator, error) {
	return scanCreator(q.db.QueryRowContext(ctx, getCreatorByUsername, username))
}

const getCreatorByIgUserID = `SELECT ` + creatorColumns + ` FROM instagram_creators WHERE ig_user_id = $1`

func (q *Queries) GetCreatorByIgUserID(ctx context.Context, igUserID string) (InstagramCreator, error) {
	return scanCreator(q.db.QueryRowContext(ctx, getCreatorByIgUserID, igUserID))
}

type InsertCreatorParams struct {
	IgUserID string
	Username string
	Niche    sql.NullString
}

const insertCreator = `
INSERT INTO instagram_creators (ig_user_id, username, niche)
VALUES ($1, $2, $3)
ON CONFLICT (ig_user_id) DO UPDATE SET username = EXCLUDED.username
RETURNING ` + creatorColumns

func (q *Queries) InsertCreator(ctx context.Context, arg InsertCreatorParams) (InstagramCreator, error) {
	return scanCreator(q.db.QueryRowContext(ctx, insertCreator, arg.IgUserID, arg.Username, arg.Niche))
}

type InsertDiscoveredCreatorParams struct {
	IgUserID string
	Username string
	Niche    sql.NullString
}

const insertDiscoveredCreator = `
INSERT INTO instagram_creators (ig_user_id, username, niche, enabled)
VALUES ($1, $2, $3, FALSE)
ON CONFLICT (ig_user_id) DO NOTHING`

// InsertDiscoveredCreator seeds a related profile. Existing rows are
// left untouched and discovered creators start disabled, so discovery
// never grows the paid working set on its own.
func (q *Queries) InsertDiscoveredCreator(ctx context.Context, arg InsertDiscoveredCreatorParams) error {
	_, err := q.db.ExecContext(ctx, insertDiscoveredCreator, arg.IgUserID, arg.Username, arg.Niche)
	return err
}

type UpdateCreatorProfileParams struct {
	IgUserID       string
	Username       string
	FullName       sql.NullString
	FollowersCount int64
	FollowingCount int64
	MediaCount     int64
	ProfilePicUrl  sql.NullString
}

const updateCreatorProfile = `
UPDATE instagram_creators
SET username = $2,
    full_name = COALESCE($3, full_name),
    followers_count = $4,
    following_count = $5,
    media_count = $6,
    profile_pic_url = COALESCE($7, profile_pic_url),
    updated_at = now()
WHERE ig_user_id = $1`

// UpdateCreatorProfile refreshes the profile fields returned by the profile
// endpoint. Analytics columns are written separately once media is fetched.
func (q *Queries) UpdateCreatorProfile(ctx context.Context, arg UpdateCreatorProfileParams) error {
	_, err := q.db.ExecContext(ctx, updateCreatorProfile,
		arg.IgUserID,
		arg.Username,
		arg.FullName,
		arg.FollowersCount,
		arg.FollowingCount,
		arg.MediaCount,
		arg.ProfilePicUrl,
	)
	return err
}

type UpdateCreatorAnalyticsParams struct {
	IgUserID        string
	AvgViewsPerReel sql.NullFloat64
	AvgEngagement   sql.NullFloat64
	EngagementRate  sql.NullFloat64
	DailyGrowthRate sql.NullFloat64
	WeeklyGrowthRate sql.NullFloat64
}

const updateCreatorAnalytics = `
UPDATE instagram_creators
SET avg_views_per_reel = $2,
    avg_engagement = $3,
    engagement_rate = $4,
    daily_growth_rate = COALESCE($5, daily_growth_rate),
    weekly_growth_rate = COALESCE($6, weekly_growth_rate),
    last_scraped_at = now(),
    updated_at = now()
WHERE ig_user_id = $1`

func (q *Queries) UpdateCreatorAnalytics(ctx context.Context, arg UpdateCreatorAnalyticsParams) error {
	_, err := q.db.ExecContext(ctx, updateCreatorAnalytics,
		arg.IgUserID,
		arg.AvgViewsPerReel,
		arg.AvgEngagement,
		arg.EngagementRate,
		arg.DailyGrowthRate,
		arg.WeeklyGrowthRate,
	)
	return err
}

const touchCreatorScraped = `
UPDATE instagram_creators SET last_scraped_at = now(), updated_at = now() WHERE ig_user_id = $1`

// TouchCreatorScraped stamps the scrape time without touching
// analytics, for items that stop early and must not requeue at once.
func (q *Queries) TouchCreatorScraped(ctx context.Context, igUserID string) error {
	_, err := q.db.ExecContext(ctx, touchCreatorScraped, igUserID)
	return err
}

const setCreatorEnabled = `
UPDATE instagram_creators SET enabled = $2, updated_at = now() WHERE username = $1`

func (q *Queries) SetCreatorEnabled(ctx context.Context, username string, enabled bool) error {
	_, err := q.db.ExecContext(ctx, setCreatorEnabled, username, enabled)
	return err
}

const setCreatorReviewStatus = `
UPDATE instagram_creators SET review_status = $2, updated_at = now() WHERE username = $1`

func (q *Queries) SetCreatorReviewStatus(ctx context.Context, username string, status sql.NullString) error {
	_, err := q.db.ExecContext(ctx, setCreatorReviewStatus, username, status)
	return err
}

type UpsertReelParams struct {
	MediaPk      string
	CreatorID    int64
	TakenAt      sql.NullTime
	PlayCount    int64
	LikeCount    int64
	CommentCount int64
	MediaUrl     sql.NullString
	ThumbnailUrl sql.NullString
	IsViral      bool
}

const upsertReel = `
INSERT INTO instagram_reels (
	media_pk, creator_id, taken_at, play_count, like_count, comment_count, media_url, thumbnail_url, is_viral
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (media_pk) DO UPDATE SET
	play_count = EXCLUDED.play_count,
	like_count = EXCLUDED.like_count,
	comment_count = EXCLUDED.comment_count,
	is_viral = EXCLUDED.is_viral,
	updated_at = now()`

// UpsertReel refreshes counters on conflict. taken_at and media URLs keep the
// values captured when the reel was first seen.
func (q *Queries) UpsertReel(ctx context.Context, arg UpsertReelParams) error {
	_, err := q.db.ExecContext(ctx, upsertReel,
		arg.MediaPk,
		arg.CreatorID,
		arg.TakenAt,
		arg.PlayCount,
		arg.LikeCount,
		arg.CommentCount,
		arg.MediaUrl,
		arg.ThumbnailUrl,
		arg.IsViral,
	)
	return err
}

const countReelsByCreator = `SELECT COUNT(*) FROM instagram_reels WHERE creator_id = $1`

func (q *Queries) CountReelsByCreator(ctx context.Context, creatorID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countReelsByCreator, creatorID).Scan(&count)
	return count, err
}

const reelColumns = `id, media_pk, creator_id, taken_at, play_count, like_count, comment_count, media_url, thumbnail_url, is_viral, created_at, updated_at`

func scanReel(row interface{ Scan(...interface{}) error }) (InstagramReel, error) {
	var i InstagramReel
	err := row.Scan(
		&i.ID,
		&i.MediaPk,
		&i.CreatorID,
		&i.TakenAt,
		&i.PlayCount,
		&i.LikeCount,
		&i.CommentCount,
		&i.MediaUrl,
		&i.ThumbnailUrl,
		&i.IsViral,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type ListRecentReelsParams struct {
	CreatorID int64
	RowLimit  int32
}

const listRecentReels = `
SELECT ` + reelColumns + `
FROM instagram_reels
WHERE creator_id = $1
ORDER BY taken_at DESC NULLS LAST
LIMIT $2`

func (q *Queries) ListRecentReels(ctx context.Context, arg ListRecentReelsParams) ([]InstagramReel, error) {
	rows, err := q.db.QueryContext(ctx, listRecentReels, arg.CreatorID, arg.RowLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InstagramReel
	for rows.Next() {
		i, err := scanReel(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpsertInstagramPostParams struct {
	MediaPk      string
	CreatorID    int64
	TakenAt      sql.NullTime
	LikeCount    int64
	CommentCount int64
	MediaUrl     sql.NullString
	ThumbnailUrl sql.NullString
}

const upsertInstagramPost = `
INSERT INTO instagram_posts (
	media_pk, creator_id, taken_at, like_count, comment_count, media_url, thumbnail_url
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (media_pk) DO UPDATE SET
	like_count = EXCLUDED.like_count,
	comment_count = EXCLUDED.comment_count,
	updated_at = now()`

func (q *Queries) UpsertInstagramPost(ctx context.Context, arg UpsertInstagramPostParams) error {
	_, err := q.db.ExecContext(ctx, upsertInstagramPost,
		arg.MediaPk,
		arg.CreatorID,
		arg.TakenAt,
		arg.LikeCount,
		arg.CommentCount,
		arg.MediaUrl,
		arg.ThumbnailUrl,
	)
	return err
}

const countInstagramPostsByCreator = `SELECT COUNT(*) FROM instagram_posts WHERE creator_id = $1`

func (q *Queries) CountInstagramPostsByCreator(ctx context.Context, creatorID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countInstagramPostsByCreator, creatorID).Scan(&count)
	return count, err
}

const instagramPostColumns = `id, media_pk, creator_id, taken_at, like_count, comment_count, media_url, thumbnail_url, created_at, updated_at`

type ListRecentInstagramPostsParams struct {
	CreatorID int64
	RowLimit  int32
}

const listRecentInstagramPosts = `
SELECT ` + instagramPostColumns + `
FROM instagram_posts
WHERE creator_id = $1
ORDER BY taken_at DESC NULLS LAST
LIMIT $2`

func (q *Queries) ListRecentInstagramPosts(ctx context.Context, arg ListRecentInstagramPostsParams) ([]InstagramPost, error) {
	rows, err := q.db.QueryContext(ctx, listRecentInstagramPosts, arg.CreatorID, arg.RowLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InstagramPost
	for rows.Next() {
		var i InstagramPost
		if err := rows.Scan(
			&i.ID,
			&i.MediaPk,
			&i.CreatorID,
			&i.TakenAt,
			&i.LikeCount,
			&i.CommentCount,
			&i.MediaUrl,
			&i.ThumbnailUrl,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type InsertFollowerHistoryParams struct {
	CreatorID      int64
	FollowersCount int64
}

const insertFollowerHistory = `
INSERT INTO instagram_follower_history (creator_id, followers_count)
VALUES ($1, $2)`

func (q *Queries) InsertFollowerHistory(ctx context.Context, arg InsertFollowerHistoryParams) error {
	_, err := q.db.ExecContext(ctx, insertFollowerHistory, arg.CreatorID, arg.FollowersCount)
	return err
}

type GetFollowerCountBeforeParams struct {
	CreatorID int64
	Before    time.Time
}

const getFollowerCountBefore = `
SELECT followers_count
FROM instagram_follower_history
WHERE creator_id = $1 AND recorded_at <= $2
ORDER BY recorded_at DESC
LIMIT 1`

// GetFollowerCountBefore returns the most recent snapshot at or before the
// given time, used to derive daily and weekly growth rates.
func (q *Queries) GetFollowerCountBefore(ctx context.Context, arg GetFollowerCountBeforeParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, getFollowerCountBefore, arg.CreatorID, arg.Before).Scan(&count)
	return count, err
}
