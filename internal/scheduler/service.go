package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/creatorlens/backend/internal/logger"
)

const tickInterval = time.Minute

// Job is a named unit of work on a cron schedule.
type Job struct {
	Name string
	Expr string
	Run  func(ctx context.Context) error

	nextRun time.Time
}

// Service fires registered jobs on their schedule. Jobs run inline on
// the scheduler goroutine, one at a time.
type Service struct {
	mu   sync.Mutex
	jobs []*Job
	log  *slog.Logger
	stop chan struct{}

	now func() time.Time
}

func NewService() *Service {
	return &Service{
		log:  logger.WithComponent("scheduler"),
		stop: make(chan struct{}),
		now:  time.Now,
	}
}

// Register adds a job. The expression is validated here so a bad one
// fails at startup rather than on its first tick.
func (s *Service) Register(name, expr string, run func(ctx context.Context) error) error {
	if err := ValidateCronExpression(expr); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	next, err := ParseCronExpression(expr, s.now())
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, &Job{Name: name, Expr: expr, Run: run, nextRun: next})
	s.mu.Unlock()
	s.log.Info("job scheduled",
		"job", name,
		"cron", expr,
		"next_run", next.Format(time.RFC3339),
	)
	return nil
}

// Start blocks, firing due jobs once a minute until the context ends
// or Stop is called.
func (s *Service) Start(ctx context.Context) {
	s.log.Info("scheduler starting", "jobs", len(s.jobs))
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped", "reason", "context")
			return
		case <-s.stop:
			s.log.Info("scheduler stopped", "reason", "stop")
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// Stop ends the Start loop after the current tick.
func (s *Service) Stop() {
	close(s.stop)
}

func (s *Service) runDue(ctx context.Context) {
	for _, job := range s.due(s.now()) {
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.log.Error("scheduled job failed", "job", job.Name, "error", err)
			continue
		}
		s.log.Log(ctx, logger.LevelSuccess, "scheduled job complete",
			"job", job.Name,
			"duration", time.Since(start).Round(time.Millisecond).String(),
		)
	}
}

// due collects fireable jobs and advances their next run while the
// lock is held, so a slow job never fires twice.
func (s *Service) due(now time.Time) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fire []*Job
	for _, job := range s.jobs {
		if job.nextRun.After(now) {
			continue
		}
		next, err := ParseCronExpression(job.Expr, now)
		if err != nil {
			// Validated at Register; if it breaks anyway, park the
			// job for a day instead of spinning on it every tick.
			s.log.Error("cron expression no longer parses", "job", job.Name, "error", err)
			job.nextRun = now.Add(24 * time.Hour)
			continue
		}
		job.nextRun = next
		fire = append(fire, job)
	}
	return fire
}
