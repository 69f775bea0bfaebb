package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/creatorlens/backend/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Database connection. DATABASE_URL wins when set, otherwise the DSN is
	// derived from the Supabase project URL and service role key.
	DatabaseURL            string
	SupabaseURL            string
	SupabaseServiceRoleKey string
	DBStatementTimeout     time.Duration
	// External providers
	OpenAIAPIKey string
	OpenAIModel  string
	RapidAPIKey  string
	RapidAPIHost string
	CronSecret   string
	// HTTP server
	Port        int
	Environment string
	ServerName  string // reported in the X-Server response header
	// Outbound scraping HTTP client
	UserAgent      string // fallback when the rotating pool is empty
	HTTPTimeout    time.Duration
	LogHTTPRetries bool
	// Instagram scraper tuning
	InstagramRPS        float64 // sustained RapidAPI request rate
	InstagramRPSCeiling float64 // hard ceiling the limiter may never exceed
	InstagramWorkers    int
	ReelsFirstFetch     int
	ReelsRefresh        int
	PostsFirstFetch     int
	PostsRefresh        int
	ViralMinViews       int64
	ViralMultiplier     float64
	EmptyRetryLimit     int
	// Security settings
	RateLimitGlobal      float64  // requests per second globally
	RateLimitGlobalBurst int      // burst size for global rate limit
	RateLimitPerIP       float64  // requests per second per IP
	RateLimitPerIPBurst  int      // burst size for per-IP rate limit
	CORSAllowedOrigins   []string // allowed CORS origins
	EnableRateLimit      bool     // enable rate limiting middleware
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	LogFile           string  // optional rotated log file path
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
	SentryRelease     string  // Sentry release version
	SentrySampleRate  float64 // Sentry error sampling rate (0.0 to 1.0)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	ua := os.Getenv("SCRAPER_USER_AGENT")
	if strings.TrimSpace(ua) == "" {
		ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	cached = &Config{
		SupabaseURL:            strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseServiceRoleKey: strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY")),
		DBStatementTimeout:     time.Duration(utils.GetEnvAsInt("DB_STATEMENT_TIMEOUT_MS", 25000)) * time.Millisecond,
		OpenAIAPIKey:           strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:            strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		RapidAPIKey:            strings.TrimSpace(os.Getenv("RAPIDAPI_KEY")),
		RapidAPIHost:           strings.TrimSpace(os.Getenv("RAPIDAPI_HOST")),
		CronSecret:             strings.TrimSpace(os.Getenv("CRON_SECRET")),
		Port:                   utils.GetEnvAsInt("PORT", 8000),
		Environment:            strings.TrimSpace(os.Getenv("ENVIRONMENT")),
		ServerName:             strings.TrimSpace(os.Getenv("SERVER_NAME")),
		UserAgent:              ua,
		HTTPTimeout:            time.Duration(utils.GetEnvAsInt("HTTP_TIMEOUT_MS", 15000)) * time.Millisecond,
		LogHTTPRetries:         utils.GetEnvAsBool("LOG_HTTP_RETRIES", false),
		// Instagram scraper: 55 rps sustained keeps headroom under the
		// provider's 60 rps plan limit.
		InstagramRPS:        utils.GetEnvAsFloat("INSTAGRAM_RPS", 55.0),
		InstagramRPSCeiling: utils.GetEnvAsFloat("INSTAGRAM_RPS_CEILING", 60.0),
		InstagramWorkers:    utils.GetEnvAsInt("INSTAGRAM_WORKERS", 10),
		ReelsFirstFetch:     utils.GetEnvAsInt("INSTAGRAM_REELS_FIRST_FETCH", 90),
		ReelsRefresh:        utils.GetEnvAsInt("INSTAGRAM_REELS_REFRESH", 30),
		PostsFirstFetch:     utils.GetEnvAsInt("INSTAGRAM_POSTS_FIRST_FETCH", 30),
		PostsRefresh:        utils.GetEnvAsInt("INSTAGRAM_POSTS_REFRESH", 10),
		ViralMinViews:       int64(utils.GetEnvAsInt("INSTAGRAM_VIRAL_MIN_VIEWS", 50000)),
		ViralMultiplier:     utils.GetEnvAsFloat("INSTAGRAM_VIRAL_MULTIPLIER", 5.0),
		EmptyRetryLimit:     utils.GetEnvAsInt("INSTAGRAM_EMPTY_RETRY_LIMIT", 2),
		// Security settings with sensible defaults
		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),
		// Observability settings
		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		LogFile:           strings.TrimSpace(os.Getenv("LOG_FILE")),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.OpenAIModel == "" {
		cached.OpenAIModel = "gpt-4o-mini"
	}
	if cached.RapidAPIHost == "" {
		cached.RapidAPIHost = "instagram-scraper-stable-api.p.rapidapi.com"
	}
	if cached.Environment == "" {
		cached.Environment = "development"
	}
	if cached.ServerName == "" {
		if host, err := os.Hostname(); err == nil {
			cached.ServerName = host
		} else {
			cached.ServerName = "unknown"
		}
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.SentryEnvironment == "" {
		cached.SentryEnvironment = cached.Environment
	}

	cached.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cached.DatabaseURL == "" {
		cached.DatabaseURL = deriveDatabaseURL(cached.SupabaseURL, cached.SupabaseServiceRoleKey)
	}

	// Parse CORS allowed origins; the dashboard may be served from anywhere,
	// so the default is wide open.
	corsOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if corsOrigins == "" {
		cached.CORSAllowedOrigins = []string{"*"}
	} else {
		cached.CORSAllowedOrigins = strings.Split(corsOrigins, ",")
		for i := range cached.CORSAllowedOrigins {
			cached.CORSAllowedOrigins[i] = strings.TrimSpace(cached.CORSAllowedOrigins[i])
		}
	}

	return cached
}

// deriveDatabaseURL builds a Postgres DSN from a Supabase project URL
// (https://<ref>.supabase.co) and the service role key.
func deriveDatabaseURL(supabaseURL, serviceKey string) string {
	if supabaseURL == "" || serviceKey == "" {
		return ""
	}
	u, err := url.Parse(supabaseURL)
	if err != nil || u.Host == "" {
		return ""
	}
	ref := strings.TrimSuffix(u.Host, ".supabase.co")
	if ref == u.Host {
		// Not a supabase.co host; use it verbatim as the DB host.
		return fmt.Sprintf("postgres://postgres:%s@%s:5432/postgres?sslmode=require",
			url.QueryEscape(serviceKey), u.Host)
	}
	return fmt.Sprintf("postgres://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(serviceKey), ref)
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }

// GetEnvBool reads a boolean environment variable with a default.
// Use this when you need to check a flag not present in the cached config.
func (c *Config) GetEnvBool(key string, def bool) bool {
	return utils.GetEnvAsBool(key, def)
}
