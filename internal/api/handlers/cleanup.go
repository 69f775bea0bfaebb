package handlers

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/cleanup"
	"github.com/creatorlens/backend/internal/logger"
)

// CleanupRunner executes one retention pass over logs.
type CleanupRunner interface {
	Run(ctx context.Context, retentionDays int) (cleanup.Summary, error)
}

type cleanupRequest struct {
	RetentionDays int `json:"retention_days"`
}

// checkCronAuth verifies the Bearer token against the configured cron
// secret. An empty secret disables the endpoint rather than opening it.
func checkCronAuth(r *http.Request, secret string) *apierr.Error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return apierr.AuthMissing("")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || secret == "" {
		return apierr.AuthInvalid("")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return apierr.AuthInvalid("")
	}
	return nil
}

// CleanupLogs runs log retention on demand, for external cron services
// that cannot reach the in-process scheduler. Auth comes first: a bad
// or missing token means nothing was deleted.
func CleanupLogs(runner CleanupRunner, cronSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apiErr := checkCronAuth(r, cronSecret); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}

		// The body is optional; an absent or empty one means defaults.
		var req cleanupRequest
		body, readErr := io.ReadAll(r.Body)
		r.Body.Close()
		if readErr == nil && len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
				return
			}
		}

		summary, err := runner.Run(r.Context(), req.RetentionDays)
		if err != nil {
			logger.ErrorContext(r.Context(), "cleanup run failed", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal("cleanup failed"))
			return
		}
		writeJSON(w, r, http.StatusOK, summary)
	}
}
