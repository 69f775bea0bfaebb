package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/creatorlens/backend/internal/apierr"
	"github.com/creatorlens/backend/internal/control"
	"github.com/creatorlens/backend/internal/db"
	"github.com/creatorlens/backend/internal/logger"
)

// ControlStore is the slice of db.Queries the scraper control
// endpoints touch.
type ControlStore interface {
	EnsureControlRow(ctx context.Context, name string) error
	GetControlRow(ctx context.Context, name string) (db.SystemControl, error)
	SetControlEnabled(ctx context.Context, arg db.SetControlEnabledParams) error
}

type scraperStatusResponse struct {
	Scraper             string     `json:"scraper"`
	Enabled             bool       `json:"enabled"`
	Status              string     `json:"status"`
	Alive               bool       `json:"alive"`
	Pid                 *int32     `json:"pid,omitempty"`
	LastError           *string    `json:"last_error,omitempty"`
	LastHeartbeat       *time.Time `json:"last_heartbeat,omitempty"`
	HeartbeatAgeSeconds float64    `json:"heartbeat_age_seconds"`
}

func knownScraper(name string) bool {
	switch name {
	case control.ScraperReddit, control.ScraperInstagram:
		return true
	}
	return false
}

// StartScraper flips the control-row switch on. The scraper process
// watches its row and starts working within one poll interval; the
// handler never touches the process itself.
func StartScraper(store ControlStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		if !knownScraper(name) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("scraper"))
			return
		}
		ctx := r.Context()

		if err := store.EnsureControlRow(ctx, name); err != nil {
			logger.ErrorContext(ctx, "control row init failed", "scraper", name, "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}
		row, err := store.GetControlRow(ctx, name)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}
		if row.Enabled {
			apierr.WriteErrorWithContext(w, r, apierr.ScrapeAlreadyRunning(name))
			return
		}
		err = store.SetControlEnabled(ctx, db.SetControlEnabledParams{
			Name:      name,
			Enabled:   true,
			UpdatedBy: sql.NullString{String: "api", Valid: true},
		})
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}
		logger.InfoContext(ctx, "scraper start requested", "scraper", name)
		writeJSON(w, r, http.StatusAccepted, map[string]interface{}{"scraper": name, "enabled": true})
	}
}

// StopScraper flips the control-row switch off. Workers notice at the
// next ShouldContinue poll and drain gracefully.
func StopScraper(store ControlStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		if !knownScraper(name) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("scraper"))
			return
		}
		ctx := r.Context()

		row, err := store.GetControlRow(ctx, name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				apierr.WriteErrorWithContext(w, r, apierr.ScrapeNotRunning(name))
				return
			}
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}
		if !row.Enabled {
			apierr.WriteErrorWithContext(w, r, apierr.ScrapeNotRunning(name))
			return
		}
		err = store.SetControlEnabled(ctx, db.SetControlEnabledParams{
			Name:      name,
			Enabled:   false,
			UpdatedBy: sql.NullString{String: "api", Valid: true},
		})
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}
		logger.InfoContext(ctx, "scraper stop requested", "scraper", name)
		writeJSON(w, r, http.StatusAccepted, map[string]interface{}{"scraper": name, "enabled": false})
	}
}

// ScraperStatus reports the control row plus heartbeat freshness. A
// scraper that has never started reports idle rather than 404 so the
// dashboard renders on a fresh deployment.
func ScraperStatus(store ControlStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		if !knownScraper(name) {
			apierr.WriteErrorWithContext(w, r, apierr.ResourceNotFound("scraper"))
			return
		}

		row, err := store.GetControlRow(r.Context(), name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeJSON(w, r, http.StatusOK, scraperStatusResponse{
					Scraper:             name,
					Status:              control.StateIdle,
					HeartbeatAgeSeconds: -1,
				})
				return
			}
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}

		resp := scraperStatusResponse{
			Scraper:             name,
			Enabled:             row.Enabled,
			Status:              row.Status,
			Pid:                 nullInt32(row.Pid),
			LastError:           nullString(row.LastError),
			LastHeartbeat:       nullTime(row.LastHeartbeat),
			HeartbeatAgeSeconds: -1,
		}
		if row.LastHeartbeat.Valid {
			age := time.Since(row.LastHeartbeat.Time)
			resp.HeartbeatAgeSeconds = age.Seconds()
			deadAfter := control.DeadAfterMultiple * control.DefaultHeartbeatInterval
			resp.Alive = row.Enabled && age < deadAfter
		}
		writeJSON(w, r, http.StatusOK, resp)
	}
}
