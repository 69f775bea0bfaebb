package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/creatorlens/backend/internal/logger"
)

func TestSystemLogInserter_MapsEntries(t *testing.T) {
	q, mock, done := newMock(t)
	defer done()

	ms := int64(412)
	now := time.Now()
	entries := []logger.Entry{
		{
			Time:       now,
			Level:      "INFO",
			Message:    "cycle complete",
			Source:     "reddit_scraper",
			Script:     "scraper",
			Action:     "cycle",
			DurationMS: &ms,
			Context:    map[string]any{"subreddits": 12},
		},
		{Time: now, Level: "ERROR", Message: "no proxies", Source: "reddit_scraper"},
	}

	mock.ExpectExec(`INSERT INTO system_logs`).
		WithArgs(now, "reddit_scraper", "scraper", "INFO", "cycle complete",
			[]byte(`{"subreddits":12}`), "cycle", int64(412)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO system_logs`).
		WithArgs(now, "reddit_scraper", nil, "ERROR", "no proxies", nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(2, 1))

	if err := SystemLogInserter(q)(context.Background(), entries); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestSystemLogInserter_StopsOnError(t *testing.T) {
	q, mock, done := newMock(t)
	defer done()

	mock.ExpectExec(`INSERT INTO system_logs`).
		WillReturnError(errors.New("connection reset"))

	err := SystemLogInserter(q)(context.Background(), []logger.Entry{
		{Time: time.Now(), Level: "INFO", Message: "a", Source: "s"},
		{Time: time.Now(), Level: "INFO", Message: "b", Source: "s"},
	})
	if err == nil {
		t.Fatal("expected the first failure to surface")
	}
}
