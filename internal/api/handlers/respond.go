package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/logger"
)

// writeJSON serializes v with the given status. Encode failures after
// the header is out can only be logged.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorContext(r.Context(), "response encode failed", "error", err, "path", r.URL.Path)
	}
}

// decodeJSON fills dst from the request body and translates failures
// into the 400 the caller can hand straight to WriteErrorWithContext.
func decodeJSON(r *http.Request, dst interface{}) *apierr.Error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierr.ValidationInvalidJSON()
	}
	return nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt32(v sql.NullInt32) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
