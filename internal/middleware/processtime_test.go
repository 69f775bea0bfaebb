package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestProcessTime_HeadersOnEveryResponse(t *testing.T) {
	handler := ProcessTime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	raw := rr.Header().Get("X-Process-Time")
	if raw == "" {
		t.Fatal("expected X-Process-Time header")
	}
	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		t.Fatalf("X-Process-Time %q is not a number: %v", raw, err)
	}
	if ms < 5 {
		t.Errorf("expected at least 5ms elapsed, got %.2f", ms)
	}
	if rr.Header().Get("X-Server") == "" {
		t.Error("expected X-Server header")
	}
}

func TestProcessTime_HeadersPrecedeErrorStatus(t *testing.T) {
	handler := ProcessTime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
	if rr.Header().Get("X-Process-Time") == "" {
		t.Error("expected X-Process-Time on error responses")
	}
	if rr.Body.String() != "boom" {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
}

func TestProcessTime_SilentHandlerStillStamped(t *testing.T) {
	handler := ProcessTime(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No WriteHeader, no body.
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("X-Process-Time") == "" {
		t.Error("expected X-Process-Time even when the handler writes nothing")
	}
	if rr.Header().Get("X-Server") == "" {
		t.Error("expected X-Server even when the handler writes nothing")
	}
}
