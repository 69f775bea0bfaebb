package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/cleanup"
)

type fakeCleanupRunner struct {
	summary cleanup.Summary
	err     error
	calls   int
	gotDays int
}

func (f *fakeCleanupRunner) Run(ctx context.Context, retentionDays int) (cleanup.Summary, error) {
	f.calls++
	f.gotDays = retentionDays
	return f.summary, f.err
}

func cleanupReq(token, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/cron/cleanup-logs", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return req
}

func TestCleanupLogs(t *testing.T) {
	runner := &fakeCleanupRunner{summary: cleanup.Summary{DeletedRows: 1200, DeletedFiles: 3, DeletedBytes: 52000}}
	rr := httptest.NewRecorder()

	CleanupLogs(runner, "s3cret")(rr, cleanupReq("Bearer s3cret", `{"retention_days":7}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if runner.gotDays != 7 {
		t.Fatalf("expected retention 7, got %d", runner.gotDays)
	}
	var out cleanup.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.DeletedRows != 1200 || out.DeletedFiles != 3 {
		t.Fatalf("unexpected summary: %+v", out)
	}
}

func TestCleanupLogs_EmptyBodyUsesDefaults(t *testing.T) {
	runner := &fakeCleanupRunner{}
	rr := httptest.NewRecorder()

	CleanupLogs(runner, "s3cret")(rr, cleanupReq("Bearer s3cret", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if runner.calls != 1 || runner.gotDays != 0 {
		t.Fatalf("expected one run with zero days (runner clamps), got calls=%d days=%d", runner.calls, runner.gotDays)
	}
}

func TestCleanupLogs_AuthRejections(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		header   string
		wantCode apierr.ErrorCode
	}{
		{"no header", "s3cret", "", apierr.ErrAuthMissing},
		{"wrong token", "s3cret", "Bearer letmein", apierr.ErrAuthInvalid},
		{"not bearer", "s3cret", "Basic czNjcmV0", apierr.ErrAuthInvalid},
		{"secret unset disables endpoint", "", "Bearer anything", apierr.ErrAuthInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeCleanupRunner{}
			rr := httptest.NewRecorder()

			CleanupLogs(runner, tt.secret)(rr, cleanupReq(tt.header, `{"retention_days":7}`))

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if apiErr := decodeAPIError(t, rr); apiErr.Code != tt.wantCode {
				t.Fatalf("expected %s, got %s", tt.wantCode, apiErr.Code)
			}
			if runner.calls != 0 {
				t.Fatalf("rejected requests must not delete anything")
			}
		})
	}
}

func TestCleanupLogs_MalformedBody(t *testing.T) {
	runner := &fakeCleanupRunner{}
	rr := httptest.NewRecorder()

	CleanupLogs(runner, "s3cret")(rr, cleanupReq("Bearer s3cret", `{"retention_days":`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if runner.calls != 0 {
		t.Fatalf("malformed body must not trigger a run")
	}
}

func TestCleanupLogs_RunnerError(t *testing.T) {
	runner := &fakeCleanupRunner{err: errors.New("pq: relation locked")}
	rr := httptest.NewRecorder()

	CleanupLogs(runner, "s3cret")(rr, cleanupReq("Bearer s3cret", `{"retention_days":30}`))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
