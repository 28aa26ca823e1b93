package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/db"
)

// SQLite is a Storage backed by the kv table. Writes from this process are
// notified immediately; writes by other processes are picked up by Poll
// (driven by Watch).
type SQLite struct {
	hub

	db  *sql.DB
	log *zap.Logger

	// mu serializes writes and polls so the seen cache never lags a commit.
	mu      sync.Mutex
	seen    map[string][]byte
	lastRev int64
}

// NewSQLite wraps an initialized database (see db.Init).
func NewSQLite(ctx context.Context, database *sql.DB, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &SQLite{
		db:   database,
		log:  log,
		seen: make(map[string][]byte),
	}

	rows, err := db.GetValues(ctx, database, nil)
	if err != nil {
		return nil, err
	}
	for k, r := range rows {
		s.seen[k] = r.Value
		if r.Revision > s.lastRev {
			s.lastRev = r.Revision
		}
	}
	return s, nil
}

// Get implements Storage.
func (s *SQLite) Get(ctx context.Context, keys ...string) (Record, error) {
	rows, err := db.GetValues(ctx, s.db, keys)
	if err != nil {
		return nil, err
	}
	rec := make(Record, len(rows))
	for k, r := range rows {
		rec[k] = r.Value
	}
	return rec, nil
}

// Set implements Storage.
func (s *SQLite) Set(ctx context.Context, rec Record) error {
	if len(rec) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}

	s.mu.Lock()
	changes := make(Changes)
	err := s.immediate(ctx, func(q db.Querier) error {
		current, err := db.GetValues(ctx, q, keys)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := db.PutValue(ctx, q, k, rec[k]); err != nil {
				return err
			}
			diff(changes, k, current[k].Value, rec[k])
		}
		return nil
	})
	if err == nil {
		for _, k := range keys {
			s.seen[k] = cloneBytes(rec[k])
		}
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(changes)
	return nil
}

// Update implements Storage. The read and write happen inside one
// IMMEDIATE transaction, so concurrent writers in other processes are
// serialized by sqlite's write lock.
func (s *SQLite) Update(ctx context.Context, key string, fn UpdateFunc) error {
	s.mu.Lock()
	changes := make(Changes)
	var written []byte
	err := s.immediate(ctx, func(q db.Querier) error {
		current, err := db.GetValues(ctx, q, []string{key})
		if err != nil {
			return err
		}
		old := current[key].Value
		next, err := fn(cloneBytes(old))
		if err != nil {
			return err
		}
		if _, err := db.PutValue(ctx, q, key, next); err != nil {
			return err
		}
		diff(changes, key, old, next)
		written = next
		return nil
	})
	if err == nil {
		s.seen[key] = cloneBytes(written)
	}
	s.mu.Unlock()

	if errors.Is(err, ErrUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	s.notify(changes)
	return nil
}

// Poll delivers changes written by other processes since the last poll.
func (s *SQLite) Poll(ctx context.Context) error {
	s.mu.Lock()
	rows, err := db.ListSince(ctx, s.db, s.lastRev)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	changes := make(Changes)
	for _, r := range rows {
		diff(changes, r.Key, s.seen[r.Key], r.Value)
		s.seen[r.Key] = r.Value
		if r.Revision > s.lastRev {
			s.lastRev = r.Revision
		}
	}
	s.mu.Unlock()

	if len(changes) > 0 {
		s.log.Debug("external storage change", zap.Int("keys", len(changes)))
	}
	s.notify(changes)
	return nil
}

// immediate runs fn inside BEGIN IMMEDIATE ... COMMIT on a dedicated connection.
func (s *SQLite) immediate(ctx context.Context, fn func(q db.Querier) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
