// Package errorreporting wraps Sentry. Everything that leaves the
// process goes through a scrub pass first, because scraper errors tend
// to quote the request that failed and those requests carry provider
// keys, proxy credentials and creator emails.
package errorreporting

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
)

// Secrets this system actually handles: RapidAPI keys, Supabase
// service-role JWTs, OpenAI keys, OAuth-style bearer tokens, proxy
// URLs with inline credentials, creator emails and bare IPs.
var scrubPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)x-rapidapi-key["\s:=]+[A-Za-z0-9-]{20,}`),
	regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]+`),
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_-]{16,}`),
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret)["\s:=]+[A-Za-z0-9_-]{16,}`),
	regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^\s/@:]+:[^\s/@]+@`),
	regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
	regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
}

// Init starts Sentry when SENTRY_DSN is set and is a no-op otherwise.
func Init(environment string) error {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return nil
	}

	sampleRate := 1.0
	if v := os.Getenv("SENTRY_SAMPLE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			sampleRate = f
		}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release(),
		SampleRate:       sampleRate,
		BeforeSend:       beforeSend,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	return nil
}

func release() string {
	if r := os.Getenv("SENTRY_RELEASE"); r != "" {
		return r
	}
	return "dev"
}

// beforeSend scrubs every outbound event. Request data is stripped
// harder than message text since headers hold the live credentials.
func beforeSend(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	for i := range event.Exception {
		event.Exception[i].Value = scrubPII(event.Exception[i].Value)
	}
	if event.Message != "" {
		event.Message = scrubPII(event.Message)
	}
	for key, value := range event.Extra {
		if str, ok := value.(string); ok {
			event.Extra[key] = scrubPII(str)
		}
	}
	for i := range event.Breadcrumbs {
		event.Breadcrumbs[i].Message = scrubPII(event.Breadcrumbs[i].Message)
	}
	if event.Request != nil {
		if event.Request.Headers != nil {
			delete(event.Request.Headers, "Authorization")
			delete(event.Request.Headers, "Cookie")
			delete(event.Request.Headers, "X-Rapidapi-Key")
		}
		event.Request.QueryString = ""
	}
	return event
}

func scrubPII(text string) string {
	for _, pattern := range scrubPatterns {
		text = pattern.ReplaceAllString(text, "[REDACTED]")
	}
	return text
}

// ScrubPII exposes the scrub pass for callers that log outside Sentry.
func ScrubPII(text string) string {
	return scrubPII(text)
}

// CaptureError reports an error. Nil errors are ignored so call sites
// can report unconditionally.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureErrorWithContext reports an error with tags and extras
// attached. The extras pass through the scrub like everything else.
func CaptureErrorWithContext(err error, tags map[string]string, extras map[string]interface{}) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// SetTag stamps a tag onto all subsequent events from this process.
func SetTag(key, value string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag(key, value)
	})
}

// Flush blocks until buffered events are sent or the timeout passes.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsSentryEnabled reports whether a DSN is configured.
func IsSentryEnabled() bool {
	return os.Getenv("SENTRY_DSN") != ""
}
