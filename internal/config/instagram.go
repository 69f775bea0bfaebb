package config

import "time"

// Instagram config map keys, env-overridable with the
// INSTAGRAM_SCRAPER_ prefix.
const (
	KeyRequestsPerSecond  = "requests_per_second"
	KeyConcurrentCreators = "concurrent_creators"
	KeyRetryEmptyResponse = "retry_empty_response"
	KeyCostPerRequest     = "cost_per_request"
	KeyCreatorBatchSize   = "creator_batch_size"
)

// maxRequestsPerSecond is the hard ceiling of the RapidAPI plan. The
// token bucket never exceeds it regardless of configuration.
const maxRequestsPerSecond = 60

// InstagramSettings are the effective Instagram scraper knobs after
// merging defaults, the control row's config map and env overrides.
type InstagramSettings struct {
	RequestsPerSecond  float64       // shared token bucket rate
	ConcurrentCreators int           // worker pool size
	RetryEmptyResponse int           // retries when the API returns no content
	CostPerRequest     float64       // dollars accrued per successful call
	CreatorBatchSize   int           // creators per scrape batch
	Timeout            time.Duration // per-creator processing budget
	HeartbeatInterval  time.Duration // control-plane heartbeat period
	StalenessHours     time.Duration // rescrape age threshold
}

// LoadInstagramSettings resolves the effective settings. A nil store
// falls back to env overrides and defaults only.
func LoadInstagramSettings(store *Store) InstagramSettings {
	s := InstagramSettings{
		RequestsPerSecond:  settingFloat(store, envPrefixInstagram, KeyRequestsPerSecond, 55),
		ConcurrentCreators: settingInt(store, envPrefixInstagram, KeyConcurrentCreators, 10),
		RetryEmptyResponse: settingInt(store, envPrefixInstagram, KeyRetryEmptyResponse, 2),
		CostPerRequest:     settingFloat(store, envPrefixInstagram, KeyCostPerRequest, 0.001),
		CreatorBatchSize:   settingInt(store, envPrefixInstagram, KeyCreatorBatchSize, 50),
		Timeout:            settingSeconds(store, envPrefixInstagram, KeyTimeout, 300*time.Second),
		HeartbeatInterval:  settingSeconds(store, envPrefixInstagram, KeyHeartbeatInterval, 30*time.Second),
		StalenessHours:     settingHours(store, envPrefixInstagram, KeyStalenessHours, 24*time.Hour),
	}
	if s.RequestsPerSecond <= 0 {
		s.RequestsPerSecond = 55
	}
	if s.RequestsPerSecond > maxRequestsPerSecond {
		s.RequestsPerSecond = maxRequestsPerSecond
	}
	if s.ConcurrentCreators <= 0 {
		s.ConcurrentCreators = 10
	}
	if s.RetryEmptyResponse < 0 {
		s.RetryEmptyResponse = 0
	}
	return s
}
