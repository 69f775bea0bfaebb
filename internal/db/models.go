package db

import (
	"database/sql"
	"time"

	"github.com/sqlc-dev/pqtype"
)

// RedditSubreddit is a row of reddit_subreddits. The name column is the
// unique key and is always stored lower-case.
type RedditSubreddit struct {
	ID                 int64
	Name               string
	DisplayName        sql.NullString
	Url                sql.NullString
	Subscribers        int64
	AccountsActive     int64
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
	LastScrapedAt      sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RedditPost is a row of reddit_posts, keyed by reddit_id. The sub_*
// columns mirror the parent subreddit at insert time.
type RedditPost struct {
	ID                 int64
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
	CreatedAt          time.Time
}

// RedditUser is a row of reddit_users, keyed by username.
type RedditUser struct {
	ID             int64
	Username       string
	AccountAgeDays sql.NullInt32
	PostKarma      sql.NullInt64
	CommentKarma   sql.NullInt64
	UsernameScore  sql.NullInt32
	AgeScore       sql.NullInt32
	KarmaScore     sql.NullInt32
	OverallScore   sql.NullFloat64
	IsSuspended    bool
	LastScrapedAt  sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InstagramCreator is a row of instagram_creators, keyed by ig_user_id.
type InstagramCreator struct {
	ID               int64
	IgUserID         string
	Username         string
	FullName         sql.NullString
	FollowersCount   int64
	FollowingCount   int64
	MediaCount       int64
	Niche            sql.NullString
	ReviewStatus     sql.NullString
	ProfilePicUrl    sql.NullString
	Enabled          bool
	AvgViewsPerReel  sql.NullFloat64
	AvgEngagement    sql.NullFloat64
	EngagementRate   sql.NullFloat64
	DailyGrowthRate  sql.NullFloat64
	WeeklyGrowthRate sql.NullFloat64
	LastScrapedAt    sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// InstagramReel is a row of instagram_reels, keyed by media_pk.
type InstagramReel struct {
	ID           int64
	MediaPk      string
	CreatorID    int64
	TakenAt      sql.NullTime
	PlayCount    int64
	LikeCount    int64
	CommentCount int64
	MediaUrl     sql.NullString
	ThumbnailUrl sql.NullString
	IsViral      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InstagramPost is a row of instagram_posts, keyed by media_pk.
type InstagramPost struct {
	ID           int64
	MediaPk      string
	CreatorID    int64
	TakenAt      sql.NullTime
	LikeCount    int64
	CommentCount int64
	MediaUrl     sql.NullString
	ThumbnailUrl sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InstagramFollowerHistory is one follower-count sample per creator per
// scrape, used for growth rates.
type InstagramFollowerHistory struct {
	ID             int64
	CreatorID      int64
	FollowersCount int64
	RecordedAt     time.Time
}

// SystemControl is the one-per-scraper control row.
type SystemControl struct {
	ID            int64
	Name          string
	Enabled       bool
	Status        string
	LastHeartbeat sql.NullTime
	LastError     sql.NullString
	Pid           sql.NullInt32
	Config        pqtype.NullRawMessage
	UpdatedBy     sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SystemLog is a row of system_logs.
type SystemLog struct {
	ID         int64
	Timestamp  time.Time
	Source     sql.NullString
	ScriptName sql.NullString
	Level      string
	Message    string
	Context    pqtype.NullRawMessage
	Action     sql.NullString
	DurationMs sql.NullInt32
}

// Proxy is a row of proxies.
type Proxy struct {
	ID           int64
	Endpoint     string
	DisplayName  sql.NullString
	Enabled      bool
	SuccessCount int64
	FailureCount int64
	LastOkAt     sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
