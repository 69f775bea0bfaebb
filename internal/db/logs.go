package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/sqlc-dev/pqtype"
)

type InsertSystemLogParams struct {
	Timestamp  time.Time
	Source     string
	ScriptName sql.NullString
	Level      string
	Message    string
	Context    pqtype.NullRawMessage
	Action     sql.NullString
	DurationMs sql.NullInt32
}

const insertSystemLog = `
INSERT INTO system_logs (timestamp, source, script_name, level, message, context, action, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (q *Queries) InsertSystemLog(ctx context.Context, arg InsertSystemLogParams) error {
	_, err := q.db.ExecContext(ctx, insertSystemLog,
		arg.Timestamp,
		arg.Source,
		arg.ScriptName,
		arg.Level,
		arg.Message,
		arg.Context,
		arg.Action,
		arg.DurationMs,
	)
	return err
}

type DeleteSystemLogsBeforeParams struct {
	Cutoff    time.Time
	BatchSize int32
}

const deleteSystemLogsBefore = `
DELETE FROM system_logs
WHERE id IN (
	SELECT id FROM system_logs WHERE timestamp < $1 ORDER BY id LIMIT $2
)`

// DeleteSystemLogsBefore removes one batch of expired rows and reports how
// many went. Callers loop until it returns zero.
func (q *Queries) DeleteSystemLogsBefore(ctx context.Context, arg DeleteSystemLogsBeforeParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteSystemLogsBefore, arg.Cutoff, arg.BatchSize)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countSystemLogs = `SELECT COUNT(*) FROM system_logs`

func (q *Queries) CountSystemLogs(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countSystemLogs).Scan(&count)
	return count, err
}

const countSystemLogsBefore = `SELECT COUNT(*) FROM system_logs WHERE timestamp < $1`

func (q *Queries) CountSystemLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countSystemLogsBefore, cutoff).Scan(&count)
	return count, err
}

type ListSystemLogsParams struct {
	Source   sql.NullString
	Level    sql.NullString
	RowLimit int32
}

const listSystemLogs = `
SELECT id, timestamp, source, script_name, level, message, context, action, duration_ms
FROM system_logs
WHERE ($1::text IS NULL OR source = $1)
  AND ($2::text IS NULL OR level = $2)
ORDER BY timestamp DESC
LIMIT $3`

func (q *Queries) ListSystemLogs(ctx context.Context, arg ListSystemLogsParams) ([]SystemLog, error) {
	rows, err := q.db.QueryContext(ctx, listSystemLogs, arg.Source, arg.Level, arg.RowLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SystemLog
	for rows.Next() {
		var i SystemLog
		if err := rows.Scan(
			&i.ID,
			&i.Timestamp,
			&i.Source,
			&i.ScriptName,
			&i.Level,
			&i.Message,
			&i.Context,
			&i.Action,
			&i.DurationMs,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
