package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/cache"
)

// fakeCache is a map-backed cache.Cache so handler tests stay
// deterministic and free of ristretto's admission policy.
type fakeCache struct {
	entries map[string][]byte
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Get(key string) ([]byte, bool) {
	v, ok := f.entries[key]
	return v, ok
}

func (f *fakeCache) Set(key string, value []byte, ttl time.Duration) {
	f.entries[key] = value
	f.sets++
}

func (f *fakeCache) Delete(key string) { delete(f.entries, key) }
func (f *fakeCache) Clear()            { f.entries = map[string][]byte{} }
func (f *fakeCache) Stats() cache.Stats {
	return cache.Stats{Items: int64(len(f.entries))}
}

// decodeAPIError pulls the error envelope out of a response.
func decodeAPIError(t *testing.T, rr *httptest.ResponseRecorder) *apierr.Error {
	t.Helper()
	var out apierr.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if out.Error == nil {
		t.Fatalf("expected error envelope, got %s", rr.Body.String())
	}
	return out.Error
}
