package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scrape run metrics
	ScrapeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_runs_total",
			Help: "Total number of scrape runs",
		},
		[]string{"platform", "status"}, // platform: reddit, reddit_user, instagram; status: success, failed
	)

	ScrapeItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_items_total",
			Help: "Total number of items processed by outcome",
		},
		[]string{"platform", "outcome"}, // outcome: ok, banned, not_found, forbidden, rate_limited, suspended, transient, error
	)

	ScrapeItemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_item_duration_seconds",
			Help:    "Duration of per-item processing in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"platform"},
	)

	WorkersActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scraper_workers_active",
			Help: "Number of worker goroutines currently running",
		},
		[]string{"platform"},
	)

	// Upstream HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_http_requests_total",
			Help: "Total number of HTTP requests made to upstream APIs",
		},
		[]string{"platform", "status"}, // status: success, retry, failure
	)

	HTTPRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_http_retries_total",
			Help: "Total number of HTTP request retries",
		},
	)

	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_rate_limit_waits_total",
			Help: "Total number of times a worker slept on HTTP 429",
		},
	)

	RateLimitWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_rate_limit_wait_seconds",
			Help:    "Duration of rate-limit sleeps in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Reddit pipeline counters
	PostsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reddit_posts_upserted_total",
			Help: "Total number of posts written to the database",
		},
	)

	UsersQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reddit_users_queued_total",
			Help: "Total number of authors queued for scoring",
		},
	)

	UsersScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reddit_users_scored_total",
			Help: "Total number of users scored",
		},
	)

	// Instagram pipeline counters
	ReelsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "instagram_reels_upserted_total",
			Help: "Total number of reels written to the database",
		},
	)

	ViralReelsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "instagram_viral_reels_total",
			Help: "Total number of reels flagged viral",
		},
	)

	RapidAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instagram_rapidapi_calls_total",
			Help: "Total RapidAPI calls by endpoint, for cost tracking",
		},
		[]string{"endpoint"},
	)

	RapidAPICost = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "instagram_rapidapi_cost_dollars_total",
			Help: "Estimated RapidAPI spend at the configured per-request rate",
		},
	)

	// Proxy pool metrics
	ProxiesWorking = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxy_pool_working",
			Help: "Number of proxies that passed the last health check",
		},
	)

	ProxyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_errors_total",
			Help: "Total number of request failures per proxy",
		},
		[]string{"proxy"},
	)

	ProxyDemotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_demotions_total",
			Help: "Total number of proxies removed after consecutive failures",
		},
	)

	// Categorizer metrics
	CategorizeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorize_jobs_total",
			Help: "Total number of categorization jobs",
		},
		[]string{"status"}, // status: success, failed
	)

	OpenAIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorize_openai_requests_total",
			Help: "Total number of OpenAI completion requests",
		},
		[]string{"status"},
	)

	// Cleanup metrics
	CleanupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleanup_runs_total",
			Help: "Total number of cleanup runs",
		},
		[]string{"status"},
	)

	CleanupDeletedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cleanup_deleted_rows_total",
			Help: "Total number of log rows deleted by cleanup",
		},
	)

	CleanupDeletedFiles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cleanup_deleted_files_total",
			Help: "Total number of files deleted by cleanup",
		},
	)

	CleanupDeletedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cleanup_deleted_bytes_total",
			Help: "Total bytes reclaimed by cleanup",
		},
	)

	// Database operation metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	DBOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// API cache metrics
	APICacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_hits_total",
			Help: "Total number of API cache hits",
		},
		[]string{"endpoint"},
	)

	APICacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_misses_total",
			Help: "Total number of API cache misses",
		},
		[]string{"endpoint"},
	)

	APICacheItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_cache_items",
			Help: "Current number of items in API cache",
		},
		[]string{"endpoint"},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Table size gauges fed by the collector
	SubredditsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reddit_subreddits_total",
			Help: "Number of subreddit rows by review state",
		},
		[]string{"state"}, // state: all, pending, approved
	)

	RedditPostsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reddit_posts_rows",
			Help: "Number of reddit_posts rows",
		},
	)

	RedditUsersTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reddit_users_total",
			Help: "Number of reddit_users rows by scoring state",
		},
		[]string{"state"}, // state: all, pending
	)

	CreatorsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "instagram_creators_total",
			Help: "Number of instagram_creators rows by enablement",
		},
		[]string{"state"}, // state: all, enabled
	)

	ReelsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "instagram_reels_total",
			Help: "Number of instagram_reels rows",
		},
		[]string{"state"}, // state: all, viral
	)

	SystemLogsRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "system_logs_rows",
			Help: "Number of system_logs rows",
		},
	)

	ScraperUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scraper_up",
			Help: "1 when the control row reports a live heartbeat, 0 otherwise",
		},
		[]string{"scraper"},
	)

	ScraperHeartbeatAge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scraper_heartbeat_age_seconds",
			Help: "Seconds since the scraper's last heartbeat",
		},
		[]string{"scraper"},
	)

	// Metrics collection error tracking
	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"}, // collector: tables, control
	)
)
