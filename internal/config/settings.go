package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config map keys. The same names appear in the control row's config
// map and, uppercased with the REDDIT_SCRAPER_ prefix, as env
// overrides.
const (
	KeyBatchSize            = "batch_size"
	KeyUserBatchSize        = "user_batch_size"
	KeyPostsPerSubreddit    = "posts_per_subreddit"
	KeyUserSubmissionsLimit = "user_submissions_limit"
	KeyRateLimitDelay       = "rate_limit_delay"
	KeyMaxRetries           = "max_retries"
	KeyTimeout              = "timeout"
	KeyCacheBatchSize       = "cache_batch_size"
	KeyHeartbeatInterval    = "heartbeat_interval"
	KeyMaxThreads           = "max_threads"
	KeyStalenessHours       = "staleness_hours"
)

// ScraperSettings are the effective Reddit scraper knobs after merging
// defaults, the control row's config map and REDDIT_SCRAPER_* env
// overrides (env wins, then config map, then default).
type ScraperSettings struct {
	BatchSize            int           // subreddits per scrape batch
	UserBatchSize        int           // users per scoring batch
	PostsPerSubreddit    int           // hot posts fetched per subreddit
	UserSubmissionsLimit int           // submissions fetched per user
	RateLimitDelay       time.Duration // pause between Reddit requests per worker
	MaxRetries           int           // transient retry attempts
	Timeout              time.Duration // per-item processing budget
	CacheBatchSize       int           // rows per cache refresh page
	HeartbeatInterval    time.Duration // control-plane heartbeat period
	MaxThreads           int           // worker cap, 0 = derive from proxy count
	StalenessHours       time.Duration // rescrape age threshold
}

// Env override prefixes per scraper process.
const (
	envPrefixReddit    = "REDDIT_SCRAPER_"
	envPrefixInstagram = "INSTAGRAM_SCRAPER_"
)

// LoadScraperSettings resolves the effective settings. A nil store
// falls back to env overrides and defaults only.
func LoadScraperSettings(store *Store) ScraperSettings {
	return ScraperSettings{
		BatchSize:            settingInt(store, envPrefixReddit, KeyBatchSize, 50),
		UserBatchSize:        settingInt(store, envPrefixReddit, KeyUserBatchSize, 30),
		PostsPerSubreddit:    settingInt(store, envPrefixReddit, KeyPostsPerSubreddit, 30),
		UserSubmissionsLimit: settingInt(store, envPrefixReddit, KeyUserSubmissionsLimit, 30),
		RateLimitDelay:       settingSeconds(store, envPrefixReddit, KeyRateLimitDelay, time.Second),
		MaxRetries:           settingInt(store, envPrefixReddit, KeyMaxRetries, 3),
		Timeout:              settingSeconds(store, envPrefixReddit, KeyTimeout, 300*time.Second),
		CacheBatchSize:       settingInt(store, envPrefixReddit, KeyCacheBatchSize, 1000),
		HeartbeatInterval:    settingSeconds(store, envPrefixReddit, KeyHeartbeatInterval, 30*time.Second),
		MaxThreads:           settingInt(store, envPrefixReddit, KeyMaxThreads, 0),
		StalenessHours:       settingHours(store, envPrefixReddit, KeyStalenessHours, 24*time.Hour),
	}
}

func envOverride(prefix, key string) (string, bool) {
	v, ok := os.LookupEnv(prefix + strings.ToUpper(key))
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func settingInt(store *Store, prefix, key string, def int) int {
	if v, ok := envOverride(prefix, key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if store != nil {
		return store.GetInt(key, def)
	}
	return def
}

func settingFloat(store *Store, prefix, key string, def float64) float64 {
	if v, ok := envOverride(prefix, key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if store != nil {
		return store.GetFloat(key, def)
	}
	return def
}

func settingSeconds(store *Store, prefix, key string, def time.Duration) time.Duration {
	if v, ok := envOverride(prefix, key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(f * float64(time.Second))
		}
	}
	if store != nil {
		return store.GetSeconds(key, def)
	}
	return def
}

func settingHours(store *Store, prefix, key string, def time.Duration) time.Duration {
	if v, ok := envOverride(prefix, key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(f * float64(time.Hour))
		}
	}
	if store != nil {
		hours := store.GetFloat(key, def.Hours())
		return time.Duration(hours * float64(time.Hour))
	}
	return def
}
