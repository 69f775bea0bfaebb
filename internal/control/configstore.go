package control

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/creatorlens/backend/internal/config"
	"github.com/creatorlens/backend/internal/db"
)

// ConfigStore binds a config.Store to the named control row's config
// JSON, so dashboard edits reach a running scraper within one refresh
// interval. Values of any JSON type flatten to strings; the Store's
// typed getters parse them back.
func ConfigStore(queries *db.Queries, name string, interval time.Duration) *config.Store {
	load := func(ctx context.Context) (map[string]string, error) {
		raw, err := queries.GetControlConfig(ctx, name)
		if err != nil {
			// A missing row means no overrides yet, not a failure.
			if errors.Is(err, sql.ErrNoRows) {
				return map[string]string{}, nil
			}
			return nil, err
		}
		out := map[string]string{}
		if !raw.Valid || len(raw.RawMessage) == 0 {
			return out, nil
		}
		var vals map[string]interface{}
		if err := json.Unmarshal(raw.RawMessage, &vals); err != nil {
			return nil, fmt.Errorf("control config for %s: %w", name, err)
		}
		for k, v := range vals {
			switch t := v.(type) {
			case string:
				out[k] = t
			default:
				out[k] = fmt.Sprint(v)
			}
		}
		return out, nil
	}
	save := func(ctx context.Context, key, value string) error {
		return queries.SetControlConfigValue(ctx, db.SetControlConfigValueParams{
			Name:  name,
			Key:   key,
			Value: value,
		})
	}
	return config.NewStore(load, save, interval)
}
