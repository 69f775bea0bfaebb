package config

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/creatorlens/backend/internal/logger"
)

// LoadFunc fetches the key/value overrides held in a control row's
// config map.
type LoadFunc func(ctx context.Context) (map[string]string, error)

// SaveFunc writes a single key back into the config map.
type SaveFunc func(ctx context.Context, key, value string) error

// Store is an in-memory view of a control row's config map. Readers
// get the last successfully loaded snapshot, so a database outage
// degrades to stale values rather than errors.
type Store struct {
	mu     sync.RWMutex
	values map[string]string

	load     LoadFunc
	save     SaveFunc
	interval time.Duration
}

// NewStore builds a store around the given load/save functions. Call
// Refresh once at startup and StartAutoRefresh for periodic reloads.
func NewStore(load LoadFunc, save SaveFunc, interval time.Duration) *Store {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Store{
		values:   make(map[string]string),
		load:     load,
		save:     save,
		interval: interval,
	}
}

// Refresh reloads the snapshot from the database.
func (s *Store) Refresh(ctx context.Context) error {
	vals, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values = vals
	s.mu.Unlock()
	return nil
}

// StartAutoRefresh reloads the snapshot on a fixed interval until the
// context is cancelled.
func (s *Store) StartAutoRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Refresh(ctx); err != nil {
					logger.Warn("config refresh failed", "error", err)
				}
			}
		}
	}()
}

// Set writes a value through to the database and updates the snapshot.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.save(ctx, key, value); err != nil {
		return err
	}
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current key/value view.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// GetString returns the value for key, or def when absent.
func (s *Store) GetString(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok && v != "" {
		return v
	}
	return def
}

// GetInt returns the value for key parsed as an int, or def when
// absent or unparsable.
func (s *Store) GetInt(key string, def int) int {
	if v := s.GetString(key, ""); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// GetFloat returns the value for key parsed as a float64, or def when
// absent or unparsable.
func (s *Store) GetFloat(key string, def float64) float64 {
	if v := s.GetString(key, ""); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// GetBool returns the value for key parsed as a bool, or def when
// absent or unparsable.
func (s *Store) GetBool(key string, def bool) bool {
	if v := s.GetString(key, ""); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// GetSeconds returns the value for key interpreted as a number of
// seconds, or def when absent or unparsable. Stored values are bare
// numbers so the dashboard can edit them without unit suffixes.
func (s *Store) GetSeconds(key string, def time.Duration) time.Duration {
	if v := s.GetString(key, ""); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return time.Duration(f * float64(time.Second))
		}
	}
	return def
}
