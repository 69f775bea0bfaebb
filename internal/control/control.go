package control

import (
	"context"
	"database/sql"
	"os"
	"sync/atomic"
	"time"

	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/creatorlens/backend/internal/utils"
)

// Scraper states written to system_control.status.
const (
	StateIdle     = "idle"
	StateStarting = "starting"
	StateRunning  = "running"
	StateStopping = "stopping"
	StateStopped  = "stopped"
	StateError    = "error"
)

// Control row names for the two scrapers, matching the seed rows the
// initial migration inserts.
const (
	ScraperReddit    = "reddit_scraper"
	ScraperInstagram = "instagram_scraper"
)

// DeadAfterMultiple is how many missed heartbeat intervals it takes
// before external supervisors may declare a scraper dead.
const DeadAfterMultiple = 3

// DefaultHeartbeatInterval is used when a plane is built without an
// explicit interval, and by readers that only see the control row.
const DefaultHeartbeatInterval = 30 * time.Second

// Plane drives one scraper's control row: status transitions,
// heartbeats and the dashboard-facing enabled switch. Workers poll
// ShouldContinue between items; everything else is the supervisor's.
type Plane struct {
	queries  *db.Queries
	name     string
	interval time.Duration

	running atomic.Bool
}

// NewPlane binds a control plane to the named system_control row.
func NewPlane(queries *db.Queries, name string, heartbeatInterval time.Duration) *Plane {
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	return &Plane{
		queries:  queries,
		name:     name,
		interval: heartbeatInterval,
	}
}

// Name returns the control row this plane manages.
func (p *Plane) Name() string { return p.name }

// Interval returns the heartbeat interval.
func (p *Plane) Interval() time.Duration { return p.interval }

// ShouldContinue reports whether workers may start another item.
func (p *Plane) ShouldContinue() bool {
	return p.running.Load()
}

// Enabled reads the dashboard switch from the control row.
func (p *Plane) Enabled(ctx context.Context) (bool, error) {
	row, err := p.queries.GetControlRow(ctx, p.name)
	if err != nil {
		return false, err
	}
	return row.Enabled, nil
}

// WaitUntilEnabled blocks until the row's enabled flag is true,
// polling once per heartbeat interval.
func (p *Plane) WaitUntilEnabled(ctx context.Context) error {
	for {
		enabled, err := p.Enabled(ctx)
		if err != nil {
			logger.Warn("control row read failed", "scraper", p.name, "error", err)
		} else if enabled {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

// Begin ensures the control row exists and marks the process as
// starting, recording its pid.
func (p *Plane) Begin(ctx context.Context) error {
	if err := p.queries.EnsureControlRow(ctx, p.name); err != nil {
		return err
	}
	if err := p.queries.SetControlPid(ctx, db.SetControlPidParams{
		Name: p.name,
		Pid:  sql.NullInt32{Int32: int32(os.Getpid()), Valid: true},
	}); err != nil {
		return err
	}
	return p.setStatus(ctx, StateStarting)
}

// MarkRunning flips the status to running and opens the worker gate.
func (p *Plane) MarkRunning(ctx context.Context) error {
	p.running.Store(true)
	return p.setStatus(ctx, StateRunning)
}

// MarkStopping closes the worker gate. In-flight items drain; no new
// items are dequeued.
func (p *Plane) MarkStopping(ctx context.Context) error {
	p.running.Store(false)
	return p.setStatus(ctx, StateStopping)
}

// MarkStopped records a clean exit and clears the pid.
func (p *Plane) MarkStopped(ctx context.Context) error {
	p.running.Store(false)
	if err := p.queries.SetControlPid(ctx, db.SetControlPidParams{Name: p.name}); err != nil {
		return err
	}
	return p.setStatus(ctx, StateStopped)
}

// MarkError records an init failure and disables the scraper so it
// does not flap on restart.
func (p *Plane) MarkError(ctx context.Context, cause error) error {
	p.running.Store(false)
	msg := ""
	if cause != nil {
		msg = utils.TruncateString(cause.Error(), 500)
	}
	if err := p.queries.SetControlError(ctx, db.SetControlErrorParams{
		Name:      p.name,
		LastError: sql.NullString{String: msg, Valid: msg != ""},
	}); err != nil {
		return err
	}
	if err := p.queries.SetControlEnabled(ctx, db.SetControlEnabledParams{
		Name:      p.name,
		Enabled:   false,
		UpdatedBy: sql.NullString{String: "scraper", Valid: true},
	}); err != nil {
		return err
	}
	return p.setStatus(ctx, StateError)
}

func (p *Plane) setStatus(ctx context.Context, status string) error {
	return p.queries.UpdateControlStatus(ctx, db.UpdateControlStatusParams{
		Name:   p.name,
		Status: status,
	})
}

// beat writes one heartbeat and re-reads the enabled switch. A flip to
// disabled closes the worker gate; the supervisor notices via
// ShouldContinue and runs the stopping transition.
func (p *Plane) beat(ctx context.Context) error {
	if err := p.queries.UpdateControlHeartbeat(ctx, p.name); err != nil {
		return err
	}
	row, err := p.queries.GetControlRow(ctx, p.name)
	if err != nil {
		return err
	}
	if !row.Enabled && p.running.Load() {
		logger.Info("stop requested via control row", "scraper", p.name)
		p.running.Store(false)
	}
	return nil
}

// StartHeartbeat runs the heartbeat loop until the context ends.
// Heartbeat failures are logged and retried on the next tick; a broken
// database connection must not crash a scraper mid-drain.
func (p *Plane) StartHeartbeat(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.beat(ctx); err != nil {
					logger.Warn("heartbeat failed", "scraper", p.name, "error", err)
				}
			}
		}
	}()
}
