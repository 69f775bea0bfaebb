package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/creatorlens/backend/internal/db"
)

func newJob(t *testing.T, dir string) (*Job, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return New(db.New(conn), dir), mock
}

func TestClampRetention(t *testing.T) {
	cases := map[int]int{
		0:    30,
		-5:   30,
		1:    1,
		30:   30,
		365:  365,
		366:  365,
		9000: 365,
	}
	for in, want := range cases {
		if got := ClampRetention(in); got != want {
			t.Errorf("ClampRetention(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestRun_DeletesRowsPastRetention(t *testing.T) {
	j, mock := newJob(t, "")
	fixedNow := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return fixedNow }
	cutoff := fixedNow.Add(-30 * 24 * time.Hour)

	mock.ExpectExec(`DELETE FROM system_logs`).
		WithArgs(cutoff, int32(1000)).
		WillReturnResult(sqlmock.NewResult(0, 70))
	mock.ExpectExec(`DELETE FROM system_logs`).
		WithArgs(cutoff, int32(1000)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	sum, err := j.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DeletedRows != 70 || sum.DeletedFiles != 0 || sum.DeletedBytes != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRun_BatchesUntilNoneRemain(t *testing.T) {
	j, mock := newJob(t, "")
	for _, n := range []int64{1000, 1000, 340, 0} {
		mock.ExpectExec(`DELETE FROM system_logs`).
			WithArgs(sqlmock.AnyArg(), int32(1000)).
			WillReturnResult(sqlmock.NewResult(0, n))
	}

	sum, err := j.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DeletedRows != 2340 {
		t.Errorf("DeletedRows = %d, want 2340", sum.DeletedRows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRun_DeleteErrorSurfaces(t *testing.T) {
	j, mock := newJob(t, "")
	mock.ExpectExec(`DELETE FROM system_logs`).
		WillReturnError(errors.New("deadlock detected"))

	sum, err := j.Run(context.Background(), 30)
	if err == nil {
		t.Fatal("expected the batch error to surface")
	}
	if sum.DeletedRows != 0 {
		t.Errorf("DeletedRows = %d, want 0", sum.DeletedRows)
	}
}

func TestRun_SweepsStaleFiles(t *testing.T) {
	dir := t.TempDir()
	j, mock := newJob(t, dir)
	fixedNow := time.Now().Truncate(time.Second).UTC()
	j.now = func() time.Time { return fixedNow }
	cutoff := fixedNow.Add(-30 * 24 * time.Hour)

	write := func(name string, contents string, mtime time.Time) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}
	stale := write("app.log", "0123456789", cutoff.Add(-time.Hour))
	rotated := write("app-2026-07-01.log.gz", "gzold", cutoff.Add(-40*24*time.Hour))
	boundary := write("boundary.log", "edge", cutoff)
	current := write("current.log", "live", fixedNow)
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	mock.ExpectExec(`DELETE FROM system_logs`).
		WithArgs(cutoff, int32(1000)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	sum, err := j.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DeletedFiles != 2 {
		t.Errorf("DeletedFiles = %d, want 2", sum.DeletedFiles)
	}
	if sum.DeletedBytes != 15 {
		t.Errorf("DeletedBytes = %d, want 15", sum.DeletedBytes)
	}
	for _, gone := range []string{stale, rotated} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Errorf("%s should be removed", filepath.Base(gone))
		}
	}
	for _, kept := range []string{boundary, current, filepath.Join(dir, "archive")} {
		if _, err := os.Stat(kept); err != nil {
			t.Errorf("%s should survive: %v", filepath.Base(kept), err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRun_MissingLogDirIsFine(t *testing.T) {
	j, mock := newJob(t, filepath.Join(t.TempDir(), "absent"))
	mock.ExpectExec(`DELETE FROM system_logs`).
		WithArgs(sqlmock.AnyArg(), int32(1000)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	sum, err := j.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DeletedFiles != 0 || sum.DeletedBytes != 0 {
		t.Errorf("summary = %+v", sum)
	}
}
