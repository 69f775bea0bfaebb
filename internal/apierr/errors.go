package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/creatorlens/backend/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// AUTH_ - Authentication and authorization errors
	ErrAuthMissing   ErrorCode = "AUTH_MISSING"
	ErrAuthInvalid   ErrorCode = "AUTH_INVALID"
	ErrAuthForbidden ErrorCode = "AUTH_FORBIDDEN"

	// SCRAPE_ - Scraper control plane errors
	ErrScrapeAlreadyRunning ErrorCode = "SCRAPE_ALREADY_RUNNING"
	ErrScrapeNotRunning     ErrorCode = "SCRAPE_NOT_RUNNING"
	ErrScrapeStartFailed    ErrorCode = "SCRAPE_START_FAILED"

	// SUBREDDIT_ - Subreddit resource errors
	ErrSubredditInvalidName ErrorCode = "SUBREDDIT_INVALID_NAME"
	ErrSubredditNotFound    ErrorCode = "SUBREDDIT_NOT_FOUND"

	// INSTAGRAM_ - Instagram resource errors
	ErrInstagramInvalidUsername ErrorCode = "INSTAGRAM_INVALID_USERNAME"
	ErrInstagramNotFound        ErrorCode = "INSTAGRAM_NOT_FOUND"

	// CATEGORY_ - Categorization errors
	ErrCategoryUnknownTag     ErrorCode = "CATEGORY_UNKNOWN_TAG"
	ErrCategoryProviderFailed ErrorCode = "CATEGORY_PROVIDER_FAILED"

	// CLEANUP_ - Log cleanup errors
	ErrCleanupInvalidRetention ErrorCode = "CLEANUP_INVALID_RETENTION"

	// SYSTEM_ - System and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemDatabase    ErrorCode = "SYSTEM_DATABASE"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"
	ErrSystemTimeout     ErrorCode = "SYSTEM_TIMEOUT"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidJSON   ErrorCode = "VALIDATION_INVALID_JSON"
	ErrValidationInvalidFormat ErrorCode = "VALIDATION_INVALID_FORMAT"
	ErrValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue  ErrorCode = "VALIDATION_INVALID_VALUE"

	// RESOURCE_ - Resource errors
	ErrResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrResourceConflict ErrorCode = "RESOURCE_CONFLICT"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitGlobal ErrorCode = "RATE_LIMIT_GLOBAL"
	ErrRateLimitIP     ErrorCode = "RATE_LIMIT_IP"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	status    int                    // HTTP status code (not serialized)
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

// Helper functions for common errors

// AuthMissing creates an authentication missing error
func AuthMissing(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return New(ErrAuthMissing, message, http.StatusUnauthorized)
}

// AuthInvalid creates an invalid authentication error
func AuthInvalid(message string) *Error {
	if message == "" {
		message = "Invalid authentication credentials"
	}
	return New(ErrAuthInvalid, message, http.StatusUnauthorized)
}

// AuthForbidden creates a forbidden error
func AuthForbidden(message string) *Error {
	if message == "" {
		message = "Access forbidden"
	}
	return New(ErrAuthForbidden, message, http.StatusForbidden)
}

// ScrapeAlreadyRunning signals that a start request arrived while a
// scrape cycle is active.
func ScrapeAlreadyRunning(scraper string) *Error {
	return New(ErrScrapeAlreadyRunning, scraper+" scraper is already running", http.StatusConflict).
		WithDetails(map[string]interface{}{"scraper": scraper})
}

// ScrapeNotRunning signals a stop request for a scraper that is idle.
func ScrapeNotRunning(scraper string) *Error {
	return New(ErrScrapeNotRunning, scraper+" scraper is not running", http.StatusConflict).
		WithDetails(map[string]interface{}{"scraper": scraper})
}

// ScrapeStartFailed creates a scrape start failure error
func ScrapeStartFailed(message string) *Error {
	if message == "" {
		message = "Failed to start scraper"
	}
	return New(ErrScrapeStartFailed, message, http.StatusInternalServerError)
}

// SubredditInvalidName creates an invalid subreddit name error
func SubredditInvalidName(message string) *Error {
	if message == "" {
		message = "Invalid subreddit name"
	}
	return New(ErrSubredditInvalidName, message, http.StatusBadRequest)
}

// SubredditNotFound creates a subreddit not found error
func SubredditNotFound(name string) *Error {
	return New(ErrSubredditNotFound, "Subreddit not found: "+name, http.StatusNotFound).
		WithDetails(map[string]interface{}{"subreddit": name})
}

// InstagramInvalidUsername creates an invalid Instagram username error
func InstagramInvalidUsername(message string) *Error {
	if message == "" {
		message = "Invalid Instagram username"
	}
	return New(ErrInstagramInvalidUsername, message, http.StatusBadRequest)
}

// InstagramNotFound creates an Instagram account not found error
func InstagramNotFound(username string) *Error {
	return New(ErrInstagramNotFound, "Instagram account not found: "+username, http.StatusNotFound).
		WithDetails(map[string]interface{}{"username": username})
}

// CategoryUnknownTag reports a tag outside the registry.
func CategoryUnknownTag(tag string) *Error {
	return New(ErrCategoryUnknownTag, "Unknown tag: "+tag, http.StatusUnprocessableEntity).
		WithDetails(map[string]interface{}{"tag": tag})
}

// CategoryProviderFailed creates a categorization provider error
func CategoryProviderFailed(message string) *Error {
	if message == "" {
		message = "Categorization provider request failed"
	}
	return New(ErrCategoryProviderFailed, message, http.StatusBadGateway)
}

// CleanupInvalidRetention creates an invalid retention parameter error
func CleanupInvalidRetention(message string) *Error {
	if message == "" {
		message = "Retention must be between 1 and 365 days"
	}
	return New(ErrCleanupInvalidRetention, message, http.StatusBadRequest)
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(ErrSystemInternal, message, http.StatusInternalServerError)
}

// SystemDatabase creates a database error
func SystemDatabase(message string) *Error {
	if message == "" {
		message = "Database error"
	}
	return New(ErrSystemDatabase, message, http.StatusInternalServerError)
}

// SystemUnavailable creates a service unavailable error
func SystemUnavailable(message string) *Error {
	if message == "" {
		message = "Service unavailable"
	}
	return New(ErrSystemUnavailable, message, http.StatusServiceUnavailable)
}

// SystemTimeout creates a system timeout error
func SystemTimeout(message string) *Error {
	if message == "" {
		message = "Request timeout"
	}
	return New(ErrSystemTimeout, message, http.StatusRequestTimeout)
}

// ValidationInvalidJSON creates an invalid JSON error
func ValidationInvalidJSON() *Error {
	return New(ErrValidationInvalidJSON, "Invalid JSON request body", http.StatusBadRequest)
}

// ValidationInvalidFormat creates an invalid format error
func ValidationInvalidFormat(message string) *Error {
	if message == "" {
		message = "Invalid request format"
	}
	return New(ErrValidationInvalidFormat, message, http.StatusBadRequest)
}

// ValidationMissingField creates a missing field error
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	if message == "" {
		message = "Invalid value for field: " + field
	}
	return New(ErrValidationInvalidValue, message, http.StatusBadRequest).
		WithDetails(map[string]interface{}{"field": field})
}

// ResourceNotFound creates a resource not found error
func ResourceNotFound(resourceType string) *Error {
	return New(ErrResourceNotFound, resourceType+" not found", http.StatusNotFound).
		WithDetails(map[string]interface{}{"resource_type": resourceType})
}

// ResourceConflict creates a resource conflict error
func ResourceConflict(message string) *Error {
	if message == "" {
		message = "Resource conflict"
	}
	return New(ErrResourceConflict, message, http.StatusConflict)
}

// RateLimitGlobal creates a global rate limit error
func RateLimitGlobal() *Error {
	return New(ErrRateLimitGlobal, "Rate limit exceeded - too many requests globally", http.StatusTooManyRequests)
}

// RateLimitIP creates an IP rate limit error
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
