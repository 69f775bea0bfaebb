package reddit

import "time"

// About is the subset of /r/{name}/about.json the scraper interprets.
type About struct {
	DisplayName    string  `json:"display_name"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Subscribers    int64   `json:"subscribers"`
	AccountsActive int64   `json:"accounts_active"`
	Over18         *bool   `json:"over18"`
	CreatedUTC     float64 `json:"created_utc"`
}

type aboutEnvelope struct {
	Kind string `json:"kind"`
	Data About  `json:"data"`
}

// Post is the subset of a t3 listing child the scraper interprets.
type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int32   `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int32   `json:"num_comments"`
	Over18      bool    `json:"over_18"`
	Spoiler     bool    `json:"spoiler"`
	Stickied    bool    `json:"stickied"`
	Locked      bool    `json:"locked"`
	IsSelf      bool    `json:"is_self"`
	IsVideo     bool    `json:"is_video"`
	IsGallery   bool    `json:"is_gallery"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Domain      string  `json:"domain"`
	Selftext    string  `json:"selftext"`
	PostHint    string  `json:"post_hint"`
}

// Created converts the fractional epoch reddit timestamps into a
// time.Time.
func (p Post) Created() time.Time {
	return time.Unix(int64(p.CreatedUTC), 0)
}

type listingChild struct {
	Kind string `json:"kind"`
	Data Post   `json:"data"`
}

type listingEnvelope struct {
	Kind string `json:"kind"`
	Data struct {
		Children []listingChild `json:"children"`
		After    string         `json:"after"`
	} `json:"data"`
}

// UserAbout is the subset of /user/{name}/about.json the scraper
// interprets.
type UserAbout struct {
	Name         string  `json:"name"`
	CreatedUTC   float64 `json:"created_utc"`
	LinkKarma    int64   `json:"link_karma"`
	CommentKarma int64   `json:"comment_karma"`
	IsSuspended  bool    `json:"is_suspended"`
}

type userEnvelope struct {
	Kind string    `json:"kind"`
	Data UserAbout `json:"data"`
}

// AccountAgeDays computes whole days since account creation.
func (u UserAbout) AccountAgeDays(now time.Time) int {
	if u.CreatedUTC <= 0 {
		return 0
	}
	age := now.Sub(time.Unix(int64(u.CreatedUTC), 0))
	if age < 0 {
		return 0
	}
	return int(age.Hours() / 24)
}
