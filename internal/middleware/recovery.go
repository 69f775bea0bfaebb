package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/creatorlens/backend/internal/errorreporting"
	"github.com/creatorlens/backend/internal/logger"
	"github.com/getsentry/sentry-go"
)

// RecoverWithSentry converts handler panics into 500 responses. The stack
// goes to the log and, when configured, to Sentry with the request attached.
func RecoverWithSentry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			val := recover()
			if val == nil {
				return
			}

			stack := debug.Stack()
			logger.ErrorContext(r.Context(), "panic recovered",
				"error", val,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(stack),
			)

			if errorreporting.IsSentryEnabled() {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(r)
				hub.Scope().SetLevel(sentry.LevelError)
				hub.Scope().SetTag("method", r.Method)
				hub.Scope().SetTag("path", r.URL.Path)
				if err, ok := val.(error); ok {
					hub.CaptureException(err)
				} else {
					hub.CaptureMessage(errorreporting.ScrubPII(fmt.Sprintf("panic: %v", val)))
				}
			}

			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
