package db

import "context"

const proxyColumns = `id, endpoint, display_name, enabled, success_count, failure_count, last_ok_at, created_at, updated_at`

func scanProxy(row interface{ Scan(...interface{}) error }) (Proxy, error) {
	var i Proxy
	err := row.Scan(
		&i.ID,
		&i.Endpoint,
		&i.DisplayName,
		&i.Enabled,
		&i.SuccessCount,
		&i.FailureCount,
		&i.LastOkAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listEnabledProxies = `
SELECT ` + proxyColumns + `
FROM proxies
WHERE enabled
ORDER BY id`

func (q *Queries) ListEnabledProxies(ctx context.Context) ([]Proxy, error) {
	rows, err := q.db.QueryContext(ctx, listEnabledProxies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Proxy
	for rows.Next() {
		i, err := scanProxy(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const recordProxySuccess = `
UPDATE proxies
SET success_count = success_count + $2, last_ok_at = now(), updated_at = now()
WHERE endpoint = $1`

func (q *Queries) RecordProxySuccess(ctx context.Context, endpoint string, n int64) error {
	_, err := q.db.ExecContext(ctx, recordProxySuccess, endpoint, n)
	return err
}

const recordProxyFailure = `
UPDATE proxies
SET failure_count = failure_count + $2, updated_at = now()
WHERE endpoint = $1`

func (q *Queries) RecordProxyFailure(ctx context.Context, endpoint string, n int64) error {
	_, err := q.db.ExecContext(ctx, recordProxyFailure, endpoint, n)
	return err
}
