package instagram

import "encoding/json"

// Profile is the slice of the gateway's profile payload the scraper
// reads. pk arrives as a number or a string depending on the gateway
// version; json.Number accepts both.
type Profile struct {
	Pk             json.Number `json:"pk"`
	Username       string      `json:"username"`
	FullName       string      `json:"full_name"`
	FollowerCount  int64       `json:"follower_count"`
	FollowingCount int64       `json:"following_count"`
	MediaCount     int64       `json:"media_count"`
	ProfilePicURL  string      `json:"profile_pic_url"`
	IsPrivate      bool        `json:"is_private"`
}

type profileEnvelope struct {
	User Profile `json:"user"`
}

type usersEnvelope struct {
	Users []Profile `json:"users"`
}

// Media is one reel or feed post from the media list endpoints.
// play_count is zero for feed posts.
type Media struct {
	Pk           json.Number `json:"pk"`
	TakenAt      int64       `json:"taken_at"` // unix seconds
	PlayCount    int64       `json:"play_count"`
	LikeCount    int64       `json:"like_count"`
	CommentCount int64       `json:"comment_count"`
	VideoURL     string      `json:"video_url"`
	ThumbnailURL string      `json:"thumbnail_url"`
}

type mediaEnvelope struct {
	Items []Media `json:"items"`
}
