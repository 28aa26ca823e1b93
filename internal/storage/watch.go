package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch polls for external writes whenever a file whose name starts with
// dbFile changes inside dir (the database, its -wal and -shm companions).
// It blocks until ctx is done.
func (s *SQLite) Watch(ctx context.Context, dir, dbFile string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), dbFile) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("poll storage changes", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("storage watcher error", zap.Error(err))
		}
	}
}
