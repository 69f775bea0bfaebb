package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/sqlc-dev/pqtype"

	"github.com/creatorlens/backend/internal/logger"
)

// SystemLogInserter adapts the queries layer into the log sink's
// insert callback, one row per entry.
func SystemLogInserter(q *Queries) logger.InsertFunc {
	return func(ctx context.Context, entries []logger.Entry) error {
		for _, e := range entries {
			arg := InsertSystemLogParams{
				Timestamp:  e.Time,
				Source:     e.Source,
				ScriptName: optString(e.Script),
				Level:      e.Level,
				Message:    e.Message,
				Action:     optString(e.Action),
			}
			if e.DurationMS != nil {
				arg.DurationMs = sql.NullInt32{Int32: int32(*e.DurationMS), Valid: true}
			}
			if len(e.Context) > 0 {
				// An unmarshalable attribute loses the context blob,
				// never the log row.
				if raw, err := json.Marshal(e.Context); err == nil {
					arg.Context = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
				}
			}
			if err := q.InsertSystemLog(ctx, arg); err != nil {
				return err
			}
		}
		return nil
	}
}

func optString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
