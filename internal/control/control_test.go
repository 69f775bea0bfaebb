package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/creatorlens/backend/internal/db"
)

func newPlane(t *testing.T) (*Plane, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewPlane(db.New(conn), "reddit_scraper", 30*time.Second), mock
}

func controlRow(enabled bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "enabled", "status", "last_heartbeat", "last_error",
		"pid", "config", "updated_by", "updated_at",
	}).AddRow(int64(1), "reddit_scraper", enabled, "running", now, nil, nil, nil, "system", now)
}

func TestBegin_EnsuresRowAndRecordsPid(t *testing.T) {
	p, mock := newPlane(t)

	mock.ExpectExec(`INSERT INTO system_control \(name\)`).
		WithArgs("reddit_scraper").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SET pid = \$2`).
		WithArgs("reddit_scraper", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET status = \$2`).
		WithArgs("reddit_scraper", StateStarting).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := p.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMarkRunning_OpensWorkerGate(t *testing.T) {
	p, mock := newPlane(t)

	mock.ExpectExec(`SET status = \$2`).
		WithArgs("reddit_scraper", StateRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if p.ShouldContinue() {
		t.Fatal("gate should start closed")
	}
	if err := p.MarkRunning(context.Background()); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if !p.ShouldContinue() {
		t.Error("gate should open after MarkRunning")
	}
}

func TestMarkError_DisablesScraper(t *testing.T) {
	p, mock := newPlane(t)

	mock.ExpectExec(`SET last_error = \$2`).
		WithArgs("reddit_scraper", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET enabled = \$2`).
		WithArgs("reddit_scraper", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET status = \$2`).
		WithArgs("reddit_scraper", StateError).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := p.MarkError(context.Background(), errors.New("no proxies available")); err != nil {
		t.Fatalf("MarkError: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
	if p.ShouldContinue() {
		t.Error("gate must be closed after MarkError")
	}
}

func TestBeat_DisabledRowClosesGate(t *testing.T) {
	p, mock := newPlane(t)
	p.running.Store(true)

	mock.ExpectExec(`SET last_heartbeat = now\(\)`).
		WithArgs("reddit_scraper").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM system_control WHERE name = \$1`).
		WithArgs("reddit_scraper").
		WillReturnRows(controlRow(false))

	if err := p.beat(context.Background()); err != nil {
		t.Fatalf("beat: %v", err)
	}
	if p.ShouldContinue() {
		t.Error("gate should close when the row is disabled")
	}
}

func TestBeat_EnabledRowKeepsGateOpen(t *testing.T) {
	p, mock := newPlane(t)
	p.running.Store(true)

	mock.ExpectExec(`SET last_heartbeat = now\(\)`).
		WithArgs("reddit_scraper").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM system_control WHERE name = \$1`).
		WithArgs("reddit_scraper").
		WillReturnRows(controlRow(true))

	if err := p.beat(context.Background()); err != nil {
		t.Fatalf("beat: %v", err)
	}
	if !p.ShouldContinue() {
		t.Error("gate should stay open while the row is enabled")
	}
}

func TestWaitUntilEnabled_ReturnsOnEnable(t *testing.T) {
	p, mock := newPlane(t)

	mock.ExpectQuery(`FROM system_control WHERE name = \$1`).
		WithArgs("reddit_scraper").
		WillReturnRows(controlRow(true))

	if err := p.WaitUntilEnabled(context.Background()); err != nil {
		t.Fatalf("WaitUntilEnabled: %v", err)
	}
}

func TestWaitUntilEnabled_HonorsContext(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = conn.Close() }()
	p := NewPlane(db.New(conn), "reddit_scraper", 10*time.Millisecond)

	mock.ExpectQuery(`FROM system_control WHERE name = \$1`).
		WillReturnRows(controlRow(false))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := p.WaitUntilEnabled(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestStartHeartbeat_StopsWithContext(t *testing.T) {
	conn, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer func() { _ = conn.Close() }()
	p := NewPlane(db.New(conn), "reddit_scraper", 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	p.StartHeartbeat(ctx)

	// Ticks against an expectation-less mock fail and are swallowed.
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
}
