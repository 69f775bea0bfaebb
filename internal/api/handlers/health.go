package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/creatorlens/backend/internal/control"
	"github.com/creatorlens/backend/internal/db"
)

const healthProbeTimeout = 2 * time.Second

// Pinger is the subset of *sql.DB the health probes need.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ControlLister reads the per-scraper control rows.
type ControlLister interface {
	ListControlRows(ctx context.Context) ([]db.SystemControl, error)
}

type depStatus struct {
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Hard      bool    `json:"hard"`
	LatencyMs float64 `json:"latency_ms,omitempty"`
	Error     string  `json:"error,omitempty"`
}

type healthResponse struct {
	Status string      `json:"status"`
	Deps   []depStatus `json:"deps"`
}

// Health reports the composite service state. The database is the only
// hard dependency; when it is down the endpoint answers 503. Scrapers
// are soft deps read off their control rows: an enabled scraper whose
// heartbeat has gone stale degrades the status but keeps the 200.
func Health(pinger Pinger, rows ControlLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()

		resp := healthResponse{Status: "healthy"}

		start := time.Now()
		dbDep := depStatus{Name: "database", Status: "up", Hard: true}
		if err := pinger.PingContext(ctx); err != nil {
			dbDep.Status = "down"
			dbDep.Error = err.Error()
			resp.Status = "unhealthy"
		}
		dbDep.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		resp.Deps = append(resp.Deps, dbDep)

		if rows != nil && dbDep.Status == "up" {
			if controls, err := rows.ListControlRows(ctx); err == nil {
				deadAfter := control.DeadAfterMultiple * control.DefaultHeartbeatInterval
				for _, row := range controls {
					dep := depStatus{Name: "scraper:" + row.Name, Status: "stopped"}
					if row.Enabled {
						dep.Status = "up"
						if !row.LastHeartbeat.Valid || time.Since(row.LastHeartbeat.Time) > deadAfter {
							dep.Status = "stale"
							if resp.Status == "healthy" {
								resp.Status = "degraded"
							}
						}
					}
					resp.Deps = append(resp.Deps, dep)
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}

// Ready answers 200 once the database accepts connections. Meant for
// orchestrator readiness gates, so it probes nothing else.
func Ready(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := pinger.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}

// Alive answers 200 as long as the process is serving requests.
func Alive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}
