package instagram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creatorlens/backend/internal/circuitbreaker"
)

// requestLog records each call the fake gateway receives.
type requestLog struct {
	mu    sync.Mutex
	urls  []string
	keys  []string
	hosts []string
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = append(l.urls, r.URL.String())
	l.keys = append(l.keys, r.Header.Get("x-rapidapi-key"))
	l.hosts = append(l.hosts, r.Header.Get("x-rapidapi-host"))
}

func (l *requestLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.urls)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.urls...)
}

func (l *requestLog) last(t *testing.T) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.urls) == 0 {
		t.Fatal("no requests made")
	}
	return l.urls[len(l.urls)-1]
}

// newTestClient points a client at a local stand-in for the RapidAPI
// gateway and records everything it is asked for.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *requestLog) {
	t.Helper()
	rlog := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rlog.add(r)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", "gateway.test", nil)
	c.BaseURL = srv.URL
	c.HTTP = srv.Client()
	c.Sleep = func(context.Context, time.Duration) error { return nil }
	return c, rlog
}

func TestProfile_RequestShape(t *testing.T) {
	c, rlog := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"user": {
			"pk": "17841400008460056",
			"username": "waffles",
			"full_name": "Waffle House",
			"follower_count": 2048,
			"is_private": false
		}}`)
	})

	p, err := c.Profile(context.Background(), "waffles")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if got := rlog.last(t); got != "/profile?username=waffles" {
		t.Errorf("requested %q", got)
	}
	if rlog.keys[0] != "test-key" || rlog.hosts[0] != "gateway.test" {
		t.Errorf("rapidapi headers = %q / %q", rlog.keys[0], rlog.hosts[0])
	}
	if p.Pk.String() != "17841400008460056" || p.Username != "waffles" || p.FollowerCount != 2048 {
		t.Errorf("profile = %+v", p)
	}
}

func TestUserInfo_NumericPk(t *testing.T) {
	// Some gateway versions send pk as a bare number.
	c, rlog := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"user": {"pk": 3141592653589793, "username": "circles"}}`)
	})

	p, err := c.UserInfo(context.Background(), "3141592653589793")
	if err != nil {
		t.Fatalf("UserInfo: %v", err)
	}
	if got := rlog.last(t); got != "/user-info?id=3141592653589793" {
		t.Errorf("requested %q", got)
	}
	if p.Pk.String() != "3141592653589793" {
		t.Errorf("Pk = %q, want the digits preserved exactly", p.Pk.String())
	}
}

func TestMediaEndpoints_QueryShape(t *testing.T) {
	c, rlog := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items": []}`)
	})

	reels, err := c.Reels(context.Background(), "9", 30)
	if err != nil {
		t.Fatalf("Reels: %v", err)
	}
	posts, err := c.UserFeed(context.Background(), "9", 10)
	if err != nil {
		t.Fatalf("UserFeed: %v", err)
	}

	// An account with no media is a normal answer, not an empty
	// payload, so neither call retries.
	want := []string{"/reels?count=30&id=9", "/user-feeds?count=10&id=9"}
	got := rlog.all()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("requested %v, want %v", got, want)
	}
	if len(reels) != 0 || len(posts) != 0 {
		t.Errorf("media = %d reels, %d posts, want none", len(reels), len(posts))
	}
}

func TestRelatedProfiles(t *testing.T) {
	c, rlog := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"users": [
			{"pk": "888", "username": "pancakes"},
			{"pk": "999", "username": "syrup", "is_private": true}
		]}`)
	})

	users, err := c.RelatedProfiles(context.Background(), "9")
	if err != nil {
		t.Fatalf("RelatedProfiles: %v", err)
	}
	if got := rlog.last(t); got != "/related-profiles?id=9" {
		t.Errorf("requested %q", got)
	}
	if len(users) != 2 || users[0].Username != "pancakes" || !users[1].IsPrivate {
		t.Errorf("users = %+v", users)
	}
}

func TestEmptyPayload_RetriedThenDecoded(t *testing.T) {
	var calls atomic.Int32
	c, rlog := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			io.WriteString(w, "{}")
		case 2:
			// 200 with nothing in the body at all.
		default:
			io.WriteString(w, `{"user": {"pk": "555", "username": "waffles"}}`)
		}
	})

	p, err := c.Profile(context.Background(), "waffles")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if rlog.count() != 3 {
		t.Errorf("calls = %d, want 3", rlog.count())
	}
	if p.Username != "waffles" {
		t.Errorf("profile = %+v", p)
	}
}

func TestEmptyPayload_GivesUpAfterRetries(t *testing.T) {
	c, rlog := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "null")
	})

	_, err := c.Profile(context.Background(), "waffles")
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
	if rlog.count() != 3 {
		t.Errorf("calls = %d, want the first try plus two retries", rlog.count())
	}
}

func TestEmptyBody(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{"", true},
		{"   \n", true},
		{"{}", true},
		{"[]", true},
		{"null", true},
		{`{"user": {}}`, false},
		{"0", false},
	}
	for _, tt := range tests {
		if got := emptyBody([]byte(tt.body)); got != tt.want {
			t.Errorf("emptyBody(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestNotFound_DoesNotTripBreaker(t *testing.T) {
	c, rlog := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "user not found"}`, http.StatusNotFound)
	})

	// Well past the failure threshold; a gone account is an answer
	// from the gateway, not a gateway failure.
	for i := 0; i < 6; i++ {
		if _, err := c.Profile(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d: err = %v, want ErrNotFound", i, err)
		}
	}
	if got := c.Breaker.State(); got != circuitbreaker.Closed {
		t.Errorf("breaker state = %v, want closed", got)
	}
	if rlog.count() != 6 {
		t.Errorf("calls = %d, want 6 with no retries", rlog.count())
	}
}

func TestServerErrors_TripBreakerAfterFive(t *testing.T) {
	c, rlog := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})
	c.MaxRetries = 0

	var trips atomic.Int32
	var tripErr error
	c.Breaker = circuitbreaker.New(circuitbreaker.Config{
		Name:             "rapidapi_test",
		FailureThreshold: 5,
		Cooldown:         time.Minute,
		OnTrip: func(name string, err error) {
			trips.Add(1)
			tripErr = err
		},
	})

	for i := 0; i < 5; i++ {
		_, err := c.Profile(context.Background(), "waffles")
		if err == nil || errors.Is(err, circuitbreaker.ErrOpen) {
			t.Fatalf("call %d: err = %v, want the gateway error", i, err)
		}
	}
	if trips.Load() != 1 {
		t.Fatalf("trips = %d, want 1", trips.Load())
	}
	if tripErr == nil || !strings.Contains(tripErr.Error(), "status 502") {
		t.Errorf("trip error = %v, want the tripping status carried", tripErr)
	}

	// Open breaker short-circuits before any HTTP round trip.
	if _, err := c.Profile(context.Background(), "waffles"); !errors.Is(err, circuitbreaker.ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if rlog.count() != 5 {
		t.Errorf("calls = %d, want 5", rlog.count())
	}
}

func TestRateLimited_BacksOffLonger(t *testing.T) {
	var calls atomic.Int32
	c, rlog := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `{"user": {"pk": "555", "username": "waffles"}}`)
	})

	var sleeps []time.Duration
	c.Sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	if _, err := c.Profile(context.Background(), "waffles"); err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if rlog.count() != 2 {
		t.Errorf("calls = %d, want 2", rlog.count())
	}
	if len(sleeps) != 1 || sleeps[0] != rateLimitDelay {
		t.Errorf("sleeps = %v, want one pause of %v", sleeps, rateLimitDelay)
	}
}

func TestDecodeErrorSurfaces(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"user": {"pk":`)
	})

	_, err := c.Profile(context.Background(), "waffles")
	if err == nil || !strings.Contains(err.Error(), "decode /profile") {
		t.Errorf("err = %v, want a decode error naming the endpoint", err)
	}
}
