package apierr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewAndErrorString(t *testing.T) {
	err := New(ErrScrapeStartFailed, "control row update failed", http.StatusInternalServerError)
	if err.Code != ErrScrapeStartFailed {
		t.Errorf("code = %s, want %s", err.Code, ErrScrapeStartFailed)
	}
	if err.Status() != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", err.Status())
	}
	if got, want := err.Error(), "SCRAPE_START_FAILED: control row update failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestBuilderChain(t *testing.T) {
	err := New(ErrValidationInvalidValue, "invalid field", http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": "username"}).
		WithRequestID("req-9b1c")

	if err.Details["field"] != "username" {
		t.Errorf("details field = %v, want username", err.Details["field"])
	}
	if err.RequestID != "req-9b1c" {
		t.Errorf("request id = %q, want req-9b1c", err.RequestID)
	}
	// Chaining must not lose the original code or status.
	if err.Code != ErrValidationInvalidValue || err.Status() != http.StatusBadRequest {
		t.Errorf("chain changed identity: %s/%d", err.Code, err.Status())
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, CategoryProviderFailed("model unavailable").WithRequestID("req-123"))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected error in response")
	}
	if resp.Error.Code != ErrCategoryProviderFailed {
		t.Errorf("code = %s, want %s", resp.Error.Code, ErrCategoryProviderFailed)
	}
	if resp.Error.Message != "model unavailable" {
		t.Errorf("message = %q", resp.Error.Message)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("request id = %q, want req-123", resp.Error.RequestID)
	}
}

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		name       string
		createErr  func() *Error
		wantCode   ErrorCode
		wantStatus int
	}{
		{"AuthMissing", func() *Error { return AuthMissing("") }, ErrAuthMissing, http.StatusUnauthorized},
		{"AuthInvalid", func() *Error { return AuthInvalid("") }, ErrAuthInvalid, http.StatusUnauthorized},
		{"AuthForbidden", func() *Error { return AuthForbidden("") }, ErrAuthForbidden, http.StatusForbidden},
		{"ScrapeAlreadyRunning", func() *Error { return ScrapeAlreadyRunning("reddit") }, ErrScrapeAlreadyRunning, http.StatusConflict},
		{"ScrapeNotRunning", func() *Error { return ScrapeNotRunning("reddit") }, ErrScrapeNotRunning, http.StatusConflict},
		{"ScrapeStartFailed", func() *Error { return ScrapeStartFailed("") }, ErrScrapeStartFailed, http.StatusInternalServerError},
		{"SubredditInvalidName", func() *Error { return SubredditInvalidName("") }, ErrSubredditInvalidName, http.StatusBadRequest},
		{"SubredditNotFound", func() *Error { return SubredditNotFound("golang") }, ErrSubredditNotFound, http.StatusNotFound},
		{"InstagramInvalidUsername", func() *Error { return InstagramInvalidUsername("") }, ErrInstagramInvalidUsername, http.StatusBadRequest},
		{"InstagramNotFound", func() *Error { return InstagramNotFound("someuser") }, ErrInstagramNotFound, http.StatusNotFound},
		{"CategoryUnknownTag", func() *Error { return CategoryUnknownTag("style:bogus") }, ErrCategoryUnknownTag, http.StatusUnprocessableEntity},
		{"CategoryProviderFailed", func() *Error { return CategoryProviderFailed("") }, ErrCategoryProviderFailed, http.StatusBadGateway},
		{"CleanupInvalidRetention", func() *Error { return CleanupInvalidRetention("") }, ErrCleanupInvalidRetention, http.StatusBadRequest},
		{"SystemInternal", func() *Error { return SystemInternal("") }, ErrSystemInternal, http.StatusInternalServerError},
		{"SystemDatabase", func() *Error { return SystemDatabase("") }, ErrSystemDatabase, http.StatusInternalServerError},
		{"SystemUnavailable", func() *Error { return SystemUnavailable("") }, ErrSystemUnavailable, http.StatusServiceUnavailable},
		{"SystemTimeout", func() *Error { return SystemTimeout("") }, ErrSystemTimeout, http.StatusRequestTimeout},
		{"ValidationInvalidJSON", func() *Error { return ValidationInvalidJSON() }, ErrValidationInvalidJSON, http.StatusBadRequest},
		{"ValidationInvalidFormat", func() *Error { return ValidationInvalidFormat("") }, ErrValidationInvalidFormat, http.StatusBadRequest},
		{"ValidationMissingField", func() *Error { return ValidationMissingField("username") }, ErrValidationMissingField, http.StatusBadRequest},
		{"ValidationInvalidValue", func() *Error { return ValidationInvalidValue("age", "") }, ErrValidationInvalidValue, http.StatusBadRequest},
		{"ResourceNotFound", func() *Error { return ResourceNotFound("user") }, ErrResourceNotFound, http.StatusNotFound},
		{"ResourceConflict", func() *Error { return ResourceConflict("") }, ErrResourceConflict, http.StatusConflict},
		{"RateLimitGlobal", func() *Error { return RateLimitGlobal() }, ErrRateLimitGlobal, http.StatusTooManyRequests},
		{"RateLimitIP", func() *Error { return RateLimitIP() }, ErrRateLimitIP, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.createErr()
			if err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, err.Code)
			}
			if err.Status() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, err.Status())
			}
			if err.Message == "" {
				t.Error("expected non-empty message")
			}
		})
	}
}

func TestValidationMissingFieldDetails(t *testing.T) {
	err := ValidationMissingField("username")
	if err.Details == nil {
		t.Fatal("expected details to be set")
	}
	if field, ok := err.Details["field"]; !ok || field != "username" {
		t.Errorf("expected field 'username', got %v", field)
	}
}

func TestScrapeAlreadyRunningDetails(t *testing.T) {
	err := ScrapeAlreadyRunning("instagram")
	if err.Details == nil {
		t.Fatal("expected details to be set")
	}
	if s, ok := err.Details["scraper"]; !ok || s != "instagram" {
		t.Errorf("expected scraper 'instagram', got %v", s)
	}
}
