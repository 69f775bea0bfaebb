package logger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// collectingInsert records every batch it receives.
type collectingInsert struct {
	mu      sync.Mutex
	batches [][]Entry
}

func (c *collectingInsert) insert(_ context.Context, entries []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := make([]Entry, len(entries))
	copy(batch, entries)
	c.batches = append(c.batches, batch)
	return nil
}

func (c *collectingInsert) entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var all []Entry
	for _, b := range c.batches {
		all = append(all, b...)
	}
	return all
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestDBSink_ImmediateWriteAtBatchSizeOne(t *testing.T) {
	col := &collectingInsert{}
	sink := NewDBSink(SinkConfig{Insert: col.insert, Source: "test", BatchSize: 1})
	defer sink.Close()

	sink.enqueue(Entry{Level: "info", Message: "first"})

	waitFor(t, func() bool { return len(col.entries()) == 1 })
	if got := col.entries()[0].Message; got != "first" {
		t.Errorf("got message %q, want %q", got, "first")
	}
}

func TestDBSink_BatchAccumulation(t *testing.T) {
	col := &collectingInsert{}
	sink := NewDBSink(SinkConfig{
		Insert:        col.insert,
		Source:        "test",
		BatchSize:     3,
		FlushInterval: time.Hour, // force flushes to happen on size only
	})

	sink.enqueue(Entry{Message: "a"})
	sink.enqueue(Entry{Message: "b"})

	// Below the batch size nothing should have been written yet.
	time.Sleep(50 * time.Millisecond)
	if n := len(col.entries()); n != 0 {
		t.Fatalf("expected no writes before batch fills, got %d entries", n)
	}

	sink.enqueue(Entry{Message: "c"})
	waitFor(t, func() bool { return len(col.entries()) == 3 })

	col.mu.Lock()
	batches := len(col.batches)
	col.mu.Unlock()
	if batches != 1 {
		t.Errorf("expected a single batch of 3, got %d batches", batches)
	}

	sink.Close()
}

func TestDBSink_CloseFlushesRemainder(t *testing.T) {
	col := &collectingInsert{}
	sink := NewDBSink(SinkConfig{
		Insert:        col.insert,
		Source:        "test",
		BatchSize:     100,
		FlushInterval: time.Hour,
	})

	sink.enqueue(Entry{Message: "pending"})
	sink.Close()

	if n := len(col.entries()); n != 1 {
		t.Fatalf("expected the pending entry to flush on close, got %d entries", n)
	}
}

func TestDBSink_InsertFailureIsSwallowed(t *testing.T) {
	var calls int
	var mu sync.Mutex
	failing := func(_ context.Context, entries []Entry) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("connection refused")
	}

	sink := NewDBSink(SinkConfig{Insert: failing, Source: "test", BatchSize: 1})
	sink.enqueue(Entry{Message: "doomed"})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	})
	waitFor(t, func() bool { return sink.Dropped() == 1 })
	sink.Close()
}

func TestTeeHandler_MirrorsToAttachedSink(t *testing.T) {
	defaultLogger = nil
	Init("debug")
	defer func() { defaultLogger = nil }()

	col := &collectingInsert{}
	sink := NewDBSink(SinkConfig{Insert: col.insert, Source: "reddit_scraper", BatchSize: 1})
	Attach(sink)
	defer func() {
		Detach()
		sink.Close()
	}()

	Info("scrape finished", "subreddit", "golang", "posts", 30)
	Debug("below sink threshold")

	waitFor(t, func() bool { return len(col.entries()) == 1 })
	e := col.entries()[0]
	if e.Message != "scrape finished" {
		t.Errorf("got message %q", e.Message)
	}
	if e.Source != "reddit_scraper" {
		t.Errorf("got source %q, want reddit_scraper", e.Source)
	}
	if e.Level != "info" {
		t.Errorf("got level %q, want info", e.Level)
	}
	if got := e.Context["subreddit"]; got != "golang" {
		t.Errorf("context subreddit = %v", got)
	}
	if got := e.Context["posts"]; got != int64(30) {
		t.Errorf("context posts = %v (%T)", got, got)
	}
}

func TestTeeHandler_LiftsColumnAttrs(t *testing.T) {
	defaultLogger = nil
	Init("info")
	defer func() { defaultLogger = nil }()

	col := &collectingInsert{}
	sink := NewDBSink(SinkConfig{Insert: col.insert, Source: "reddit_scraper", BatchSize: 1})
	Attach(sink)
	defer func() {
		Detach()
		sink.Close()
	}()

	WithComponent("subreddit_scraper").Info("item done",
		"action", "scrape_subreddit",
		"duration_ms", 837,
		"subreddit", "golang",
	)

	waitFor(t, func() bool { return len(col.entries()) == 1 })
	e := col.entries()[0]
	if e.Script != "subreddit_scraper" {
		t.Errorf("script = %q, want subreddit_scraper", e.Script)
	}
	if e.Action != "scrape_subreddit" {
		t.Errorf("action = %q, want scrape_subreddit", e.Action)
	}
	if e.DurationMS == nil || *e.DurationMS != 837 {
		t.Errorf("duration_ms = %v, want 837", e.DurationMS)
	}
	for _, key := range []string{"component", "action", "duration_ms"} {
		if _, ok := e.Context[key]; ok {
			t.Errorf("%s should not remain in context", key)
		}
	}
	if got := e.Context["subreddit"]; got != "golang" {
		t.Errorf("context subreddit = %v", got)
	}
}

func TestSuccessLevel_MirrorsAsSuccess(t *testing.T) {
	defaultLogger = nil
	Init("info")
	defer func() { defaultLogger = nil }()

	col := &collectingInsert{}
	sink := NewDBSink(SinkConfig{Insert: col.insert, Source: "test", BatchSize: 1})
	Attach(sink)
	defer func() {
		Detach()
		sink.Close()
	}()

	Success("run complete", "items", 12)

	waitFor(t, func() bool { return len(col.entries()) == 1 })
	if got := col.entries()[0].Level; got != "success" {
		t.Errorf("level = %q, want success", got)
	}
}

func TestTeeHandler_TruncatesLongMessages(t *testing.T) {
	defaultLogger = nil
	Init("info")
	defer func() { defaultLogger = nil }()

	col := &collectingInsert{}
	sink := NewDBSink(SinkConfig{Insert: col.insert, Source: "test", BatchSize: 1})
	Attach(sink)
	defer func() {
		Detach()
		sink.Close()
	}()

	Info(strings.Repeat("x", 900))

	waitFor(t, func() bool { return len(col.entries()) == 1 })
	if got := len(col.entries()[0].Message); got != maxMessageLen {
		t.Errorf("message length = %d, want %d", got, maxMessageLen)
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
	}{
		{slog.LevelDebug, "debug"},
		{slog.LevelInfo, "info"},
		{LevelSuccess, "success"},
		{slog.LevelWarn, "warning"},
		{slog.LevelError, "error"},
		{slog.LevelError + 4, "error"},
	}
	for _, tt := range tests {
		if got := levelString(tt.level); got != tt.expected {
			t.Errorf("levelString(%v) = %q, want %q", tt.level, got, tt.expected)
		}
	}
}
