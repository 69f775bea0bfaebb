package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/fetch"
	"github.com/creatorlens/backend/internal/proxy"
)

// newTestClient routes every request through a pool whose single proxy
// is the test server, which answers proxied requests itself and
// records the URLs it saw.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *requestLog) {
	t.Helper()
	log := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.String())
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	now := time.Now()
	mock.ExpectQuery(`FROM proxies`).WillReturnRows(sqlmock.NewRows([]string{
		"id", "endpoint", "display_name", "enabled", "success_count",
		"failure_count", "last_ok_at", "created_at", "updated_at",
	}).AddRow(int64(1), srv.URL, "test", true, int64(0), int64(0), nil, now, now))

	pool := proxy.NewPool(db.New(conn))
	if _, err := pool.Load(context.Background()); err != nil {
		t.Fatalf("pool.Load: %v", err)
	}
	f := fetch.New(pool, "reddit")
	f.Sleep = func(context.Context, time.Duration) error { return nil }

	c := NewClient(f)
	c.BaseURL = "http://upstream.invalid"
	return c, log
}

type requestLog struct {
	mu   sync.Mutex
	urls []string
}

func (l *requestLog) add(u string) {
	l.mu.Lock()
	l.urls = append(l.urls, u)
	l.mu.Unlock()
}

func (l *requestLog) last(t *testing.T) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.urls) == 0 {
		t.Fatal("no requests made")
	}
	return l.urls[len(l.urls)-1]
}

func TestSubredditAbout(t *testing.T) {
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"kind": "t5", "data": {
			"display_name": "golang",
			"title": "The Go Programming Language",
			"url": "/r/golang/",
			"subscribers": 250000,
			"accounts_active": 1200,
			"over18": false
		}}`))
	})

	about, res := c.SubredditAbout(context.Background(), "golang")
	if res.Kind != fetch.OK {
		t.Fatalf("kind = %v (status %d, err %v)", res.Kind, res.Status, res.Err)
	}
	if got := log.last(t); got != "http://upstream.invalid/r/golang/about.json" {
		t.Errorf("requested %q", got)
	}
	if about.DisplayName != "golang" || about.Subscribers != 250000 {
		t.Errorf("about = %+v", about)
	}
	if about.Over18 == nil || *about.Over18 {
		t.Errorf("Over18 = %v, want explicit false", about.Over18)
	}
}

func TestSubredditAbout_OmittedOver18IsNil(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"kind": "t5", "data": {"display_name": "quiet"}}`))
	})

	about, res := c.SubredditAbout(context.Background(), "quiet")
	if res.Kind != fetch.OK {
		t.Fatalf("kind = %v", res.Kind)
	}
	if about.Over18 != nil {
		t.Errorf("Over18 = %v, want nil when the listing omits it", *about.Over18)
	}
}

func TestSubredditAbout_NotFoundPassesThrough(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found", "error": 404}`))
	})

	about, res := c.SubredditAbout(context.Background(), "gonesub")
	if res.Kind != fetch.NotFound {
		t.Fatalf("kind = %v, want NotFound", res.Kind)
	}
	if about.DisplayName != "" {
		t.Errorf("about = %+v, want zero value", about)
	}
}

func TestSubredditAbout_MalformedBodyIsTransient(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"kind": "t5", "data":`))
	})

	_, res := c.SubredditAbout(context.Background(), "broken")
	if res.Kind != fetch.Transient {
		t.Fatalf("kind = %v, want Transient on a decode failure", res.Kind)
	}
	if res.Err == nil {
		t.Error("expected the decode error to be carried")
	}
}

func TestHotPosts_FiltersNonPostChildren(t *testing.T) {
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"kind": "Listing", "data": {"children": [
			{"kind": "t3", "data": {"id": "aaa", "title": "keep me", "score": 10}},
			{"kind": "t1", "data": {"id": "bbb", "title": "a comment"}},
			{"kind": "t3", "data": {"id": "ccc", "title": "keep me too", "score": 20}}
		]}}`))
	})

	posts, res := c.HotPosts(context.Background(), "golang", 30)
	if res.Kind != fetch.OK {
		t.Fatalf("kind = %v", res.Kind)
	}
	if got := log.last(t); got != "http://upstream.invalid/r/golang/hot.json?limit=30" {
		t.Errorf("requested %q", got)
	}
	if len(posts) != 2 || posts[0].ID != "aaa" || posts[1].ID != "ccc" {
		t.Errorf("posts = %+v", posts)
	}
}

func TestTopPosts_RequestsYearWindow(t *testing.T) {
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"kind": "Listing", "data": {"children": []}}`))
	})

	posts, res := c.TopPosts(context.Background(), "golang", "year", 10)
	if res.Kind != fetch.OK {
		t.Fatalf("kind = %v", res.Kind)
	}
	if got := log.last(t); got != "http://upstream.invalid/r/golang/top.json?t=year&limit=10" {
		t.Errorf("requested %q", got)
	}
	if len(posts) != 0 {
		t.Errorf("posts = %+v, want empty", posts)
	}
}

func TestUserAboutInfo(t *testing.T) {
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"kind": "t2", "data": {
			"name": "maker_one",
			"created_utc": 1577836800,
			"link_karma": 4000,
			"comment_karma": 2000
		}}`))
	})

	about, res := c.UserAboutInfo(context.Background(), "maker_one")
	if res.Kind != fetch.OK {
		t.Fatalf("kind = %v", res.Kind)
	}
	if got := log.last(t); got != "http://upstream.invalid/user/maker_one/about.json" {
		t.Errorf("requested %q", got)
	}
	if about.LinkKarma != 4000 || about.CommentKarma != 2000 {
		t.Errorf("about = %+v", about)
	}
	if about.IsSuspended {
		t.Error("IsSuspended should default false")
	}
}

func TestUserSubmitted(t *testing.T) {
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"kind": "Listing", "data": {"children": [
			{"kind": "t3", "data": {"id": "ddd", "subreddit": "knitting"}}
		]}}`))
	})

	posts, res := c.UserSubmitted(context.Background(), "maker_one", 30)
	if res.Kind != fetch.OK {
		t.Fatalf("kind = %v", res.Kind)
	}
	if got := log.last(t); got != "http://upstream.invalid/user/maker_one/submitted.json?limit=30" {
		t.Errorf("requested %q", got)
	}
	if len(posts) != 1 || posts[0].Subreddit != "knitting" {
		t.Errorf("posts = %+v", posts)
	}
}
