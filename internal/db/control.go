package db

import (
	"context"
	"database/sql"

	"github.com/sqlc-dev/pqtype"
)

const controlColumns = `id, name, enabled, status, last_heartbeat, last_error, pid, config, updated_by, updated_at`

func scanControl(row interface{ Scan(...interface{}) error }) (SystemControl, error) {
	var i SystemControl
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Enabled,
		&i.Status,
		&i.LastHeartbeat,
		&i.LastError,
		&i.Pid,
		&i.Config,
		&i.UpdatedBy,
		&i.UpdatedAt,
	)
	return i, err
}

const ensureControlRow = `
INSERT INTO system_control (name)
VALUES ($1)
ON CONFLICT (name) DO NOTHING`

func (q *Queries) EnsureControlRow(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, ensureControlRow, name)
	return err
}

const getControlRow = `SELECT ` + controlColumns + ` FROM system_control WHERE name = $1`

func (q *Queries) GetControlRow(ctx context.Context, name string) (SystemControl, error) {
	return scanControl(q.db.QueryRowContext(ctx, getControlRow, name))
}

const listControlRows = `SELECT ` + controlColumns + ` FROM system_control ORDER BY name`

func (q *Queries) ListControlRows(ctx context.Context) ([]SystemControl, error) {
	rows, err := q.db.QueryContext(ctx, listControlRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SystemControl
	for rows.Next() {
		i, err := scanControl(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type SetControlEnabledParams struct {
	Name      string
	Enabled   bool
	UpdatedBy sql.NullString
}

const setControlEnabled = `
UPDATE system_control
SET enabled = $2, updated_by = $3, updated_at = now()
WHERE name = $1`

func (q *Queries) SetControlEnabled(ctx context.Context, arg SetControlEnabledParams) error {
	_, err := q.db.ExecContext(ctx, setControlEnabled, arg.Name, arg.Enabled, arg.UpdatedBy)
	return err
}

type UpdateControlStatusParams struct {
	Name   string
	Status string
}

const updateControlStatus = `
UPDATE system_control
SET status = $2, updated_at = now()
WHERE name = $1`

func (q *Queries) UpdateControlStatus(ctx context.Context, arg UpdateControlStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateControlStatus, arg.Name, arg.Status)
	return err
}

const updateControlHeartbeat = `
UPDATE system_control
SET last_heartbeat = now(), updated_at = now()
WHERE name = $1`

func (q *Queries) UpdateControlHeartbeat(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, updateControlHeartbeat, name)
	return err
}

type SetControlErrorParams struct {
	Name      string
	LastError sql.NullString
}

const setControlError = `
UPDATE system_control
SET last_error = $2, updated_at = now()
WHERE name = $1`

func (q *Queries) SetControlError(ctx context.Context, arg SetControlErrorParams) error {
	_, err := q.db.ExecContext(ctx, setControlError, arg.Name, arg.LastError)
	return err
}

type SetControlPidParams struct {
	Name string
	Pid  sql.NullInt32
}

const setControlPid = `
UPDATE system_control
SET pid = $2, updated_at = now()
WHERE name = $1`

func (q *Queries) SetControlPid(ctx context.Context, arg SetControlPidParams) error {
	_, err := q.db.ExecContext(ctx, setControlPid, arg.Name, arg.Pid)
	return err
}

const getControlConfig = `SELECT config FROM system_control WHERE name = $1`

// GetControlConfig returns the raw config JSON for a control row. A row with
// no overrides yields an invalid NullRawMessage.
func (q *Queries) GetControlConfig(ctx context.Context, name string) (pqtype.NullRawMessage, error) {
	var cfg pqtype.NullRawMessage
	err := q.db.QueryRowContext(ctx, getControlConfig, name).Scan(&cfg)
	return cfg, err
}

type SetControlConfigValueParams struct {
	Name  string
	Key   string
	Value string
}

const setControlConfigValue = `
UPDATE system_control
SET config = jsonb_set(COALESCE(config, '{}'::jsonb), ARRAY[$2], to_jsonb($3::text), true),
    updated_at = now()
WHERE name = $1`

// SetControlConfigValue writes one key into the row's config map. Values are
// stored as JSON strings and parsed by the reader.
func (q *Queries) SetControlConfigValue(ctx context.Context, arg SetControlConfigValueParams) error {
	_, err := q.db.ExecContext(ctx, setControlConfigValue, arg.Name, arg.Key, arg.Value)
	return err
}

type SetControlConfigParams struct {
	Name   string
	Config pqtype.NullRawMessage
}

const setControlConfig = `
UPDATE system_control
SET config = $2, updated_at = now()
WHERE name = $1`

// SetControlConfig replaces the whole config map.
func (q *Queries) SetControlConfig(ctx context.Context, arg SetControlConfigParams) error {
	_, err := q.db.ExecContext(ctx, setControlConfig, arg.Name, arg.Config)
	return err
}
