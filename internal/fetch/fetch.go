package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/metrics"
	"github.com/creatorlens/backend/internal/proxy"
)

// Kind tags a fetch outcome. Callers match on it instead of inspecting
// status codes or error strings.
type Kind int

const (
	OK Kind = iota
	Banned
	NotFound
	Forbidden
	RateLimited
	Transient
	Timeout
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case Banned:
		return "banned"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case RateLimited:
		return "rate_limited"
	case Transient:
		return "transient"
	case Timeout:
		return "timeout"
	}
	return "unknown"
}

// Result is the outcome of one logical fetch, after internal retries.
type Result struct {
	Kind     Kind
	Status   int             // last HTTP status seen, 0 if none
	Body     json.RawMessage // response body when Kind == OK
	Err      error           // underlying error for Transient/Timeout
	Attempts int             // HTTP round trips made
}

const (
	requestTimeout    = 15 * time.Second
	rateLimitAttempts = 5
	rateLimitCap      = 30 * time.Second
)

// Fetcher issues JSON GETs through the proxy pool. Transient failures
// retry with a short backoff; 429 retries follow a fixed sleep ladder.
type Fetcher struct {
	Pool       *proxy.Pool
	Platform   string        // metric label, e.g. "reddit"
	MaxRetries int           // transient retries per fetch, default 3
	BaseDelay  time.Duration // transient backoff, default 100ms

	// Limiter, when set, paces every attempt across all workers
	// sharing this fetcher.
	Limiter *rate.Limiter

	// Sleep is stubbed in tests to observe backoff without waiting.
	Sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	clients map[string]*http.Client // one pooled client per proxy endpoint
}

// New creates a Fetcher over the given proxy pool.
func New(pool *proxy.Pool, platform string) *Fetcher {
	return &Fetcher{
		Pool:       pool,
		Platform:   platform,
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		Sleep:      sleepCtx,
		clients:    make(map[string]*http.Client),
	}
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

// Do fetches the URL and classifies the outcome. A fresh proxy and
// User-Agent are used for every attempt.
func (f *Fetcher) Do(ctx context.Context, rawURL string) Result {
	res := Result{}
	rateLimited := 0
	transient := 0

	for {
		pr, err := f.Pool.Next()
		if err != nil {
			res.Kind = Transient
			res.Err = err
			return res
		}
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx); err != nil {
				res.Kind = Transient
				res.Err = err
				return res
			}
		}

		res.Attempts++
		status, body, err := f.once(ctx, rawURL, pr)
		res.Status = status

		switch {
		case err != nil:
			// Transport error or timeout. The proxy takes the blame.
			f.Pool.Report(pr, false)
			metrics.HTTPRequests.WithLabelValues(f.Platform, "failure").Inc()
			res.Err = err
			if ctx.Err() != nil {
				// The caller's context ended, not just this request.
				res.Kind = Transient
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					res.Kind = Timeout
				}
				return res
			}
			if transient >= f.MaxRetries {
				res.Kind = classifyTransport(err)
				return res
			}
			transient++
			metrics.HTTPRetries.Inc()
			if serr := f.Sleep(ctx, f.BaseDelay); serr != nil {
				res.Kind = Transient
				res.Err = serr
				return res
			}

		case status == http.StatusOK:
			f.Pool.Report(pr, true)
			metrics.HTTPRequests.WithLabelValues(f.Platform, "success").Inc()
			res.Kind = OK
			res.Body = body
			return res

		case status == http.StatusNotFound:
			metrics.HTTPRequests.WithLabelValues(f.Platform, "failure").Inc()
			if bodyReason(body) == "banned" {
				res.Kind = Banned
			} else {
				res.Kind = NotFound
			}
			return res

		case status == http.StatusForbidden:
			metrics.HTTPRequests.WithLabelValues(f.Platform, "failure").Inc()
			res.Kind = Forbidden
			return res

		case status == http.StatusTooManyRequests:
			metrics.HTTPRequests.WithLabelValues(f.Platform, "retry").Inc()
			if rateLimited >= rateLimitAttempts {
				res.Kind = RateLimited
				return res
			}
			wait := time.Duration(5+2*rateLimited) * time.Second
			if wait > rateLimitCap {
				wait = rateLimitCap
			}
			rateLimited++
			metrics.RateLimitWaits.Inc()
			metrics.RateLimitWaitSeconds.Observe(wait.Seconds())
			logger.Warn("rate limited, backing off",
				"url", rawURL, "wait", wait, "attempt", rateLimited)
			if serr := f.Sleep(ctx, wait); serr != nil {
				res.Kind = RateLimited
				res.Err = serr
				return res
			}

		case status >= 500:
			f.Pool.Report(pr, false)
			metrics.HTTPRequests.WithLabelValues(f.Platform, "retry").Inc()
			if transient >= f.MaxRetries {
				res.Kind = Transient
				return res
			}
			transient++
			metrics.HTTPRetries.Inc()
			if serr := f.Sleep(ctx, f.BaseDelay); serr != nil {
				res.Kind = Transient
				res.Err = serr
				return res
			}

		default:
			// Other 4xx. Terminal, nothing to retry.
			metrics.HTTPRequests.WithLabelValues(f.Platform, "failure").Inc()
			res.Kind = Transient
			return res
		}
	}
}

// once performs a single HTTP round trip through the given proxy.
func (f *Fetcher) once(ctx context.Context, rawURL string, pr proxy.Proxy) (int, []byte, error) {
	client, err := f.clientFor(pr)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", proxy.UserAgent())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Info("fetch", "url", rawURL, "proxy", pr.Name,
			"duration_ms", elapsed.Milliseconds(), "error", err)
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	logger.Info("fetch", "url", rawURL, "status", resp.StatusCode,
		"proxy", pr.Name, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (f *Fetcher) clientFor(pr proxy.Proxy) (*http.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[pr.Endpoint]; ok {
		return c, nil
	}
	proxyURL, err := url.Parse(pr.Endpoint)
	if err != nil {
		return nil, err
	}
	c := &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyURL(proxyURL),
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	f.clients[pr.Endpoint] = c
	return c, nil
}

type reasonBody struct {
	Reason string `json:"reason"`
}

func bodyReason(body []byte) string {
	var rb reasonBody
	if err := json.Unmarshal(body, &rb); err != nil {
		return ""
	}
	return rb.Reason
}

func classifyTransport(err error) Kind {
	var nerr interface{ Timeout() bool }
	if errors.As(err, &nerr) && nerr.Timeout() {
		return Timeout
	}
	return Transient
}
