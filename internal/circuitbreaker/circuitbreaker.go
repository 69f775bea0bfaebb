package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/creatorlens/backend/internal/metrics"
)

// ErrOpen is returned while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit open")

// State of a Breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Config tunes a Breaker. Zero values take the defaults.
type Config struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening, default 5
	SuccessThreshold int           // half-open successes before closing, default 2
	Cooldown         time.Duration // open duration before probing again, default 60s

	// OnTrip fires once per transition to open, with the error that
	// tripped the breaker.
	OnTrip func(name string, err error)
}

// Breaker cuts off calls to a dependency that keeps failing. After
// FailureThreshold consecutive failures it opens and returns ErrOpen
// until Cooldown passes; then probe calls run in half-open state and
// SuccessThreshold successes close it again.
type Breaker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// New creates a Breaker and publishes its initial state gauge.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	return &Breaker{cfg: cfg}
}

// Call runs fn unless the breaker is open.
func (b *Breaker) Call(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		b.failure(err)
		return err
	}
	b.success()
	return nil
}

// State reports the current state, promoting an expired open state to
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.promoteLocked()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.promoteLocked()
	return b.state != Open
}

func (b *Breaker) promoteLocked() {
	if b.state == Open && time.Since(b.openedAt) >= b.cfg.Cooldown {
		b.state = HalfOpen
		b.successes = 0
		metrics.CircuitBreakerState.WithLabelValues(b.cfg.Name).Set(2)
	}
}

func (b *Breaker) failure(err error) {
	b.mu.Lock()
	b.successes = 0
	trip := false
	switch b.state {
	case Closed:
		b.failures++
		trip = b.failures >= b.cfg.FailureThreshold
	case HalfOpen:
		// A failed probe reopens immediately.
		trip = true
	}
	if trip {
		b.state = Open
		b.failures = 0
		b.openedAt = time.Now()
		metrics.CircuitBreakerTrips.WithLabelValues(b.cfg.Name).Inc()
		metrics.CircuitBreakerState.WithLabelValues(b.cfg.Name).Set(1)
	}
	onTrip := b.cfg.OnTrip
	b.mu.Unlock()

	if trip && onTrip != nil {
		onTrip(b.cfg.Name, err)
	}
}

func (b *Breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = Closed
			b.failures = 0
			metrics.CircuitBreakerState.WithLabelValues(b.cfg.Name).Set(0)
		}
	}
}
