package instagram

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/creatorlens/backend/internal/config"
	"github.com/creatorlens/backend/internal/control"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
)

func gatedScraper(t *testing.T) (*Scraper, *control.Plane, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	plane := control.NewPlane(db.New(conn), ScraperName, time.Second)
	s := &Scraper{
		plane:    plane,
		settings: config.InstagramSettings{Timeout: 5 * time.Second},
		log:      logger.WithComponent("test"),
	}
	return s, plane, mock
}

func TestProcessItems_StopDrainsInFlight(t *testing.T) {
	s, plane, mock := gatedScraper(t)

	mock.ExpectExec(`SET status = \$2`).
		WithArgs(ScraperName, control.StateRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET status = \$2`).
		WithArgs(ScraperName, control.StateStopping).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := plane.MarkRunning(context.Background()); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}

	names := make([]string, 10)
	for i := range names {
		names[i] = "creator" + string(rune('a'+i))
	}

	var processed atomic.Int32
	var stopped atomic.Bool
	fn := func(ctx context.Context, name string) {
		processed.Add(1)
		if stopped.CompareAndSwap(false, true) {
			if err := plane.MarkStopping(context.Background()); err != nil {
				t.Errorf("MarkStopping: %v", err)
			}
		}
	}

	s.processItems(context.Background(), 1, names, fn)

	// The creator that closed the gate finishes; at most one more was
	// already handed to the worker. The rest never dequeue.
	if n := processed.Load(); n < 1 || n > 2 {
		t.Errorf("processed = %d, want the in-flight creators only", n)
	}
}

func TestProcessItems_RunsEverythingWhileGateOpen(t *testing.T) {
	s, plane, mock := gatedScraper(t)

	mock.ExpectExec(`SET status = \$2`).
		WithArgs(ScraperName, control.StateRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := plane.MarkRunning(context.Background()); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}

	var processed atomic.Int32
	s.processItems(context.Background(), 3,
		[]string{"a", "b", "c", "d", "e"},
		func(ctx context.Context, name string) { processed.Add(1) })

	if processed.Load() != 5 {
		t.Errorf("processed = %d, want 5", processed.Load())
	}
}

func TestRunItem_BudgetAndPanicRecovery(t *testing.T) {
	s := &Scraper{
		settings: config.InstagramSettings{Timeout: 10 * time.Millisecond},
		log:      logger.WithComponent("test"),
	}

	var sawDeadline atomic.Bool
	s.runItem(context.Background(), "broken", func(ctx context.Context, name string) {
		if _, ok := ctx.Deadline(); ok {
			sawDeadline.Store(true)
		}
		panic("media decode blew up")
	})

	if !sawDeadline.Load() {
		t.Error("item context should carry the per-creator budget")
	}
}

func TestApplySettings_RetunesSharedClient(t *testing.T) {
	s := &Scraper{
		client: NewClient("key", "gateway.test", nil),
		settings: config.InstagramSettings{
			RequestsPerSecond:  42,
			RetryEmptyResponse: 4,
			CostPerRequest:     0.002,
		},
	}

	s.applySettings()
	lim := s.client.Limiter
	if lim == nil || lim.Limit() != 42 || lim.Burst() != 42 {
		t.Fatalf("limiter = %+v, want 42 rps with matching burst", lim)
	}
	if s.client.RetryEmpty != 4 || s.client.CostPerRequest != 0.002 {
		t.Errorf("client knobs = %d / %v", s.client.RetryEmpty, s.client.CostPerRequest)
	}

	// The next cycle retunes the limiter the workers already share
	// instead of replacing it.
	s.settings.RequestsPerSecond = 0.5
	s.applySettings()
	if s.client.Limiter != lim {
		t.Fatal("limiter should be retuned in place")
	}
	if lim.Limit() != 0.5 || lim.Burst() != 1 {
		t.Errorf("limiter = %v rps burst %d, want 0.5 rps burst 1", lim.Limit(), lim.Burst())
	}
}
