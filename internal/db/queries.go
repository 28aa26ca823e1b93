package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Row is one stored key/value record.
type Row struct {
	Key       string
	Value     []byte
	Revision  int64
	UpdatedAt int64
}

// GetValues returns the rows for the given keys. Missing keys are simply
// absent from the result. With no keys, every row is returned.
func GetValues(ctx context.Context, q Querier, keys []string) (map[string]Row, error) {
	query := `SELECT key, value_json, revision, updated_at FROM kv`
	args := make([]any, 0, len(keys))
	if len(keys) > 0 {
		placeholders := make([]string, len(keys))
		for i, k := range keys {
			placeholders[i] = "?"
			args = append(args, k)
		}
		query += " WHERE key IN (" + strings.Join(placeholders, ", ") + ")"
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query kv: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// ListSince returns rows written after the given revision, oldest first.
func ListSince(ctx context.Context, q Querier, revision int64) ([]Row, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT key, value_json, revision, updated_at
		FROM kv
		WHERE revision > ?
		ORDER BY revision ASC
	`, revision)
	if err != nil {
		return nil, fmt.Errorf("query kv since %d: %w", revision, err)
	}
	defer rows.Close()

	byKey, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Revision < out[j].Revision })
	return out, nil
}

// MaxRevision returns the highest revision written so far (0 when empty).
func MaxRevision(ctx context.Context, q Querier) (int64, error) {
	var rev int64
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(revision), 0) FROM kv`).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("max revision: %w", err)
	}
	return rev, nil
}

// PutValue inserts or replaces the value stored under key and returns the
// revision assigned to the write. Revisions increase across all keys.
func PutValue(ctx context.Context, q Querier, key string, value []byte) (int64, error) {
	now := time.Now().Unix()

	var rev int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO kv (key, value_json, revision, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(revision), 0) + 1 FROM kv), ?)
		ON CONFLICT(key) DO UPDATE SET
			value_json = excluded.value_json,
			revision   = excluded.revision,
			updated_at = excluded.updated_at
		RETURNING revision
	`, key, string(value), now).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	return rev, nil
}

// scanRows drains rows into a map keyed by record key.
func scanRows(rows *sql.Rows) (map[string]Row, error) {
	out := make(map[string]Row)
	for rows.Next() {
		var (
			r     Row
			value string
		)
		if err := rows.Scan(&r.Key, &value, &r.Revision, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan kv: %w", err)
		}
		r.Value = []byte(value)
		out[r.Key] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kv: %w", err)
	}
	return out, nil
}
