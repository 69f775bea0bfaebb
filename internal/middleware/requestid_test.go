package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/creatorlens/backend/internal/logger"
)

func TestRequestID_GeneratesID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := r.Context().Value(logger.RequestIDKey).(string)
		if !ok || id == "" {
			t.Error("request id not found in context")
		}
		if id != w.Header().Get(RequestIDHeader) {
			t.Error("context id doesn't match response header")
		}
		seen = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("generated id %q is not a uuid: %v", seen, err)
	}

	// A second request gets its own id.
	first := seen
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rr2.Header().Get(RequestIDHeader) == first {
		t.Error("expected a fresh id per request")
	}
}

func TestRequestID_PreservesExistingID(t *testing.T) {
	existingID := "upstream-request-id"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := r.Context().Value(logger.RequestIDKey).(string)
		if !ok || id != existingID {
			t.Errorf("expected request id %q, got %q", existingID, id)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, existingID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != existingID {
		t.Errorf("expected request id %q in response, got %q", existingID, got)
	}
}
