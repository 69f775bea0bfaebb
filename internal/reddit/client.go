package reddit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/creatorlens/backend/internal/fetch"
)

const defaultBaseURL = "https://www.reddit.com"

// Client wraps the fetcher with typed calls against the public Reddit
// JSON API. Every method returns the parsed payload together with the
// raw fetch result; callers branch on Result.Kind.
type Client struct {
	BaseURL string
	Fetcher *fetch.Fetcher
}

// NewClient builds a client over the given fetcher.
func NewClient(f *fetch.Fetcher) *Client {
	return &Client{BaseURL: defaultBaseURL, Fetcher: f}
}

// SubredditAbout fetches /r/{name}/about.json.
func (c *Client) SubredditAbout(ctx context.Context, name string) (About, fetch.Result) {
	res := c.Fetcher.Do(ctx, fmt.Sprintf("%s/r/%s/about.json", c.BaseURL, name))
	if res.Kind != fetch.OK {
		return About{}, res
	}
	var env aboutEnvelope
	if err := json.Unmarshal(res.Body, &env); err != nil {
		res.Kind = fetch.Transient
		res.Err = err
		return About{}, res
	}
	return env.Data, res
}

// HotPosts fetches /r/{name}/hot.json with the given limit.
func (c *Client) HotPosts(ctx context.Context, name string, limit int) ([]Post, fetch.Result) {
	return c.listing(ctx, fmt.Sprintf("%s/r/%s/hot.json?limit=%d", c.BaseURL, name, limit))
}

// TopPosts fetches /r/{name}/top.json over the given window, used for
// posting-time metrics.
func (c *Client) TopPosts(ctx context.Context, name, window string, limit int) ([]Post, fetch.Result) {
	return c.listing(ctx, fmt.Sprintf("%s/r/%s/top.json?t=%s&limit=%d", c.BaseURL, name, window, limit))
}

// UserAboutInfo fetches /user/{name}/about.json.
func (c *Client) UserAboutInfo(ctx context.Context, username string) (UserAbout, fetch.Result) {
	res := c.Fetcher.Do(ctx, fmt.Sprintf("%s/user/%s/about.json", c.BaseURL, username))
	if res.Kind != fetch.OK {
		return UserAbout{}, res
	}
	var env userEnvelope
	if err := json.Unmarshal(res.Body, &env); err != nil {
		res.Kind = fetch.Transient
		res.Err = err
		return UserAbout{}, res
	}
	return env.Data, res
}

// UserSubmitted fetches /user/{name}/submitted.json with the given
// limit.
func (c *Client) UserSubmitted(ctx context.Context, username string, limit int) ([]Post, fetch.Result) {
	return c.listing(ctx, fmt.Sprintf("%s/user/%s/submitted.json?limit=%d", c.BaseURL, username, limit))
}

func (c *Client) listing(ctx context.Context, url string) ([]Post, fetch.Result) {
	res := c.Fetcher.Do(ctx, url)
	if res.Kind != fetch.OK {
		return nil, res
	}
	var env listingEnvelope
	if err := json.Unmarshal(res.Body, &env); err != nil {
		res.Kind = fetch.Transient
		res.Err = err
		return nil, res
	}
	posts := make([]Post, 0, len(env.Data.Children))
	for _, child := range env.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		posts = append(posts, child.Data)
	}
	return posts, res
}
