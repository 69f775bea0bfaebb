package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/creatorlens/backend/internal/circuitbreaker"
	"github.com/creatorlens/backend/internal/errorreporting"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/metrics"
)

var (
	// ErrNotFound means the gateway answered and the account does not
	// exist. It is not a dependency failure.
	ErrNotFound = errors.New("instagram account not found")

	// ErrRateLimited means the gateway rejected the call with 429.
	ErrRateLimited = errors.New("rapidapi rate limited")

	// ErrEmpty means the gateway kept returning an empty payload after
	// the configured retries.
	ErrEmpty = errors.New("rapidapi empty response")
)

const (
	requestTimeout = 15 * time.Second
	rateLimitDelay = 2 * time.Second

	// transportFailureLimit is how many consecutive failed attempts it
	// takes before the gateway is reported and the breaker opens.
	transportFailureLimit = 5
)

// statusError is a non-OK gateway status outside the mapped cases.
type statusError struct {
	endpoint string
	status   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("rapidapi %s: status %d", e.endpoint, e.status)
}

// Client calls the Instagram RapidAPI gateway. Every request flows
// through one token bucket and one circuit breaker shared by all
// workers; each call that returns 200 accrues CostPerRequest on the
// spend counter.
type Client struct {
	BaseURL        string
	Key            string
	Host           string
	MaxRetries     int           // attempts after the first on retryable failures
	RetryEmpty     int           // extra attempts when the payload is empty
	RetryDelay     time.Duration // pause between retryable attempts
	CostPerRequest float64       // dollars per successful call

	Limiter *rate.Limiter
	Breaker *circuitbreaker.Breaker
	HTTP    *http.Client

	// Sleep is stubbed in tests to observe backoff without waiting.
	Sleep func(ctx context.Context, d time.Duration) error

	log *slog.Logger
}

// NewClient builds a client for the given RapidAPI credentials. The
// limiter is shared with the scraper, which retunes it each cycle.
func NewClient(key, host string, limiter *rate.Limiter) *Client {
	return &Client{
		BaseURL:    "https://" + host,
		Key:        key,
		Host:       host,
		MaxRetries: 2,
		RetryEmpty: 2,
		RetryDelay: 500 * time.Millisecond,
		Limiter:    limiter,
		Breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:             "rapidapi",
			FailureThreshold: transportFailureLimit,
			OnTrip:           reportTrip,
		}),
		HTTP:  &http.Client{Timeout: requestTimeout},
		Sleep: sleepCtx,
		log:   logger.WithComponent("instagram_client"),
	}
}

func reportTrip(name string, err error) {
	logger.Error("upstream failing, circuit opened", "breaker", name, "error", err)
	errorreporting.CaptureErrorWithContext(err, map[string]string{"component": name}, nil)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Profile fetches /profile by username, used when creators are added
// by hand and the numeric id is still unknown.
func (c *Client) Profile(ctx context.Context, username string) (Profile, error) {
	var env profileEnvelope
	err := c.getJSON(ctx, "/profile", url.Values{"username": {username}}, &env)
	return env.User, err
}

// UserInfo fetches /user-info by the stable numeric id. The scraper
// refreshes profiles through this so renamed accounts stay tracked.
func (c *Client) UserInfo(ctx context.Context, igUserID string) (Profile, error) {
	var env profileEnvelope
	err := c.getJSON(ctx, "/user-info", url.Values{"id": {igUserID}}, &env)
	return env.User, err
}

// Reels fetches up to count reels for the account.
func (c *Client) Reels(ctx context.Context, igUserID string, count int) ([]Media, error) {
	var env mediaEnvelope
	err := c.getJSON(ctx, "/reels", url.Values{
		"id":    {igUserID},
		"count": {strconv.Itoa(count)},
	}, &env)
	return env.Items, err
}

// UserFeed fetches up to count feed posts for the account.
func (c *Client) UserFeed(ctx context.Context, igUserID string, count int) ([]Media, error) {
	var env mediaEnvelope
	err := c.getJSON(ctx, "/user-feeds", url.Values{
		"id":    {igUserID},
		"count": {strconv.Itoa(count)},
	}, &env)
	return env.Items, err
}

// RelatedProfiles fetches accounts the gateway considers similar,
// used to seed discovery.
func (c *Client) RelatedProfiles(ctx context.Context, igUserID string) ([]Profile, error) {
	var env usersEnvelope
	err := c.getJSON(ctx, "/related-profiles", url.Values{"id": {igUserID}}, &env)
	return env.Users, err
}

// getJSON runs the call, retries empty payloads, and decodes the
// final body. A payload is empty when the gateway returns 200 with no
// usable JSON at all; a list with zero items is a normal answer.
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	for attempt := 0; ; attempt++ {
		body, err := c.do(ctx, endpoint, query)
		if err != nil {
			return err
		}
		if !emptyBody(body) {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil
		}
		if attempt >= c.RetryEmpty {
			return fmt.Errorf("%w: %s", ErrEmpty, endpoint)
		}
		c.log.Warn("empty payload, retrying", "endpoint", endpoint, "attempt", attempt+1)
		if serr := c.Sleep(ctx, c.RetryDelay); serr != nil {
			return serr
		}
	}
}

// do performs the call with transport retries. Every attempt passes
// through the limiter and counts individually against the breaker.
func (c *Client) do(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var body []byte
		var reqErr error
		err := c.Breaker.Call(func() error {
			body, reqErr = c.once(ctx, endpoint, query)
			if errors.Is(reqErr, ErrNotFound) {
				// The gateway answered; only the account is gone.
				return nil
			}
			return reqErr
		})
		if err == nil {
			if reqErr != nil {
				return nil, reqErr
			}
			metrics.RapidAPICalls.WithLabelValues(endpoint).Inc()
			if c.CostPerRequest > 0 {
				metrics.RapidAPICost.Add(c.CostPerRequest)
			}
			return body, nil
		}
		if errors.Is(err, circuitbreaker.ErrOpen) || ctx.Err() != nil {
			return nil, err
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err

		wait := c.RetryDelay
		if errors.Is(err, ErrRateLimited) {
			wait = rateLimitDelay
		}
		metrics.HTTPRetries.Inc()
		if serr := c.Sleep(ctx, wait); serr != nil {
			return nil, serr
		}
	}
	return nil, lastErr
}

// once is a single HTTP round trip against the gateway.
func (c *Client) once(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	u := c.BaseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-rapidapi-key", c.Key)
	req.Header.Set("x-rapidapi-host", c.Host)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.HTTPRequests.WithLabelValues(platformInstagram, "failure").Inc()
		c.log.Info("rapidapi", "endpoint", endpoint,
			"duration_ms", elapsed.Milliseconds(), "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	c.log.Info("rapidapi", "endpoint", endpoint, "status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds())
	if err != nil {
		metrics.HTTPRequests.WithLabelValues(platformInstagram, "failure").Inc()
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		metrics.HTTPRequests.WithLabelValues(platformInstagram, "success").Inc()
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		metrics.HTTPRequests.WithLabelValues(platformInstagram, "failure").Inc()
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.HTTPRequests.WithLabelValues(platformInstagram, "retry").Inc()
		metrics.RateLimitWaits.Inc()
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		metrics.HTTPRequests.WithLabelValues(platformInstagram, "retry").Inc()
		return nil, &statusError{endpoint: endpoint, status: resp.StatusCode}
	}
	metrics.HTTPRequests.WithLabelValues(platformInstagram, "failure").Inc()
	return nil, &statusError{endpoint: endpoint, status: resp.StatusCode}
}

func retryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var sErr *statusError
	if errors.As(err, &sErr) {
		return sErr.status >= 500
	}
	// Anything left is a transport error.
	return true
}

func emptyBody(body []byte) bool {
	switch string(bytes.TrimSpace(body)) {
	case "", "{}", "[]", "null":
		return true
	}
	return false
}
