package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creatorlens/backend/internal/utils"
)

const maxMessageLen = 500

// Entry is a single log row bound for the system_logs table. Script,
// Action and DurationMS are lifted out of the record's attributes so
// they land in their own columns rather than the context blob.
type Entry struct {
	Time       time.Time
	Level      string
	Message    string
	Source     string
	Script     string
	Action     string
	DurationMS *int64
	Context    map[string]any
}

// InsertFunc persists a batch of log entries. Implementations must be
// safe for concurrent use; the sink never retains the slice after the
// call returns.
type InsertFunc func(ctx context.Context, entries []Entry) error

// SinkConfig configures a database log sink.
type SinkConfig struct {
	Insert        InsertFunc
	Source        string        // process name stored with each row
	BatchSize     int           // rows per insert, default 1
	FlushInterval time.Duration // default 5s
	MinLevel      slog.Level    // default Info
}

// DBSink buffers log entries and writes them to the database in
// batches. Insert failures are swallowed so that a broken database
// connection cannot take the console logger down with it.
type DBSink struct {
	cfg      SinkConfig
	ch       chan Entry
	wg       sync.WaitGroup
	dropped  atomic.Int64
	closed   atomic.Bool
	minLevel slog.Level
}

var activeSink atomic.Pointer[DBSink]

// NewDBSink starts the background flush worker and returns the sink.
// Call Attach to start mirroring logger output into it.
func NewDBSink(cfg SinkConfig) *DBSink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	s := &DBSink{
		cfg: cfg,
		ch:  make(chan Entry, 256),
		// slog.LevelInfo is the zero value, so an unset MinLevel means Info.
		minLevel: cfg.MinLevel,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Attach makes the sink receive a copy of every logger record at or
// above its minimum level.
func Attach(s *DBSink) {
	activeSink.Store(s)
}

// Detach stops mirroring records and returns the previously attached
// sink, if any. The caller still owns Close.
func Detach() *DBSink {
	return activeSink.Swap(nil)
}

// Close detaches the sink if it is attached, flushes buffered entries
// and waits for the worker to exit.
func (s *DBSink) Close() {
	if activeSink.Load() == s {
		activeSink.CompareAndSwap(s, nil)
	}
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
	s.wg.Wait()
}

// Dropped reports how many entries were lost to a full buffer or
// failed inserts.
func (s *DBSink) Dropped() int64 {
	return s.dropped.Load()
}

func (s *DBSink) enqueue(e Entry) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
}

func (s *DBSink) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, s.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.cfg.Insert(ctx, batch); err != nil {
			s.dropped.Add(int64(len(batch)))
		}
		cancel()
		batch = make([]Entry, 0, s.cfg.BatchSize)
	}

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
			if len(batch) >= s.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// teeHandler forwards every record to the console handler and mirrors
// it into the attached database sink.
type teeHandler struct {
	console slog.Handler
	attrs   []slog.Attr
	groups  []string
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if s := activeSink.Load(); s != nil && r.Level >= s.minLevel {
		s.enqueue(h.entryFrom(r, s.cfg.Source))
	}
	return h.console.Handle(ctx, r)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &teeHandler{console: h.console.WithAttrs(attrs), attrs: merged, groups: h.groups}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &teeHandler{console: h.console.WithGroup(name), attrs: h.attrs, groups: groups}
}

func (h *teeHandler) entryFrom(r slog.Record, source string) Entry {
	e := Entry{
		Time:    r.Time,
		Level:   levelString(r.Level),
		Message: utils.TruncateString(r.Message, maxMessageLen),
		Source:  source,
	}
	prefix := ""
	for _, g := range h.groups {
		prefix += g + "."
	}
	addAttr := func(a slog.Attr) {
		if prefix == "" {
			switch a.Key {
			case "component":
				e.Script = a.Value.Resolve().String()
				return
			case "action":
				e.Action = a.Value.Resolve().String()
				return
			case "duration_ms":
				if ms, ok := attrDurationMS(a.Value); ok {
					e.DurationMS = &ms
					return
				}
			}
		}
		if e.Context == nil {
			e.Context = make(map[string]any)
		}
		e.Context[prefix+a.Key] = attrValue(a.Value)
	}
	for _, a := range h.attrs {
		addAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(a)
		return true
	})
	return e
}

func attrDurationMS(v slog.Value) (int64, bool) {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	case slog.KindFloat64:
		return int64(v.Float64()), true
	case slog.KindDuration:
		return v.Duration().Milliseconds(), true
	}
	return 0, false
}

// levelString maps slog levels onto the lowercase level names stored
// in system_logs rows.
func levelString(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "debug"
	case l < LevelSuccess:
		return "info"
	case l < slog.LevelWarn:
		return "success"
	case l < slog.LevelError:
		return "warning"
	default:
		return "error"
	}
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		raw := v.Any()
		if err, ok := raw.(error); ok {
			return err.Error()
		}
		switch raw.(type) {
		case nil, string, int, int64, float64, bool:
			return raw
		}
		return fmt.Sprint(raw)
	}
}
