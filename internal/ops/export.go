package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/errors"
)

// BackupSchemaVersion is written to every export header.
const BackupSchemaVersion = "1"

// backupKeys are the storage keys an export carries, in file order.
var backupKeys = []string{
	KeyWorkspaces,
	KeyAssignments,
	KeyActiveWorkspace,
	KeyLastActiveTab,
	KeySeparateActiveTab,
	KeySharePinnedTabs,
	KeyNewTabLink,
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path  string // optional, default: ~/.tabspace/exports/<label>-<timestamp>.jsonl
	Label string // default file name prefix, default: tabspace
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// BackupHeader is the first line of an export file.
type BackupHeader struct {
	TabspaceExport bool   `json:"_tabspace_export"`
	SchemaVersion  string `json:"schema_version"`
	ExportedAt     int64  `json:"exported_at"`
}

// BackupRecord is one stored key in an export file.
type BackupRecord struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Export writes every stored workspace key to a JSONL file. The file is
// written under a temporary name and renamed into place, so an existing
// export survives a failed run.
func Export(ctx context.Context, d Deps, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	path := input.Path
	if path == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		label := "tabspace"
		if input.Label != "" {
			label = SanitizeForFilename(input.Label)
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%s%s", label, now.Format("2006-01-02T150405"), BackupExt))
	}
	if err := ValidatePath(path, PathCheckWrite, d.config()); err != nil {
		return nil, err
	}

	rec, err := d.Storage.Get(ctx, backupKeys...)
	if err != nil {
		return nil, readErr("backup", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tmp := path + "." + hex.EncodeToString(suffix) + ".tmp"
	f, err := createNoFollow(tmp)
	if err != nil {
		if isCoded(err) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	done := false
	defer func() {
		if f != nil {
			f.Close()
		}
		if !done {
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	if err := enc.Encode(BackupHeader{TabspaceExport: true, SchemaVersion: BackupSchemaVersion, ExportedAt: now.Unix()}); err != nil {
		return nil, errors.NewInternal(err)
	}
	count := 0
	for _, key := range backupKeys {
		v, ok := rec[key]
		if !ok {
			continue
		}
		if err := enc.Encode(BackupRecord{Key: key, Value: v}); err != nil {
			return nil, errors.NewInternal(err)
		}
		count++
	}
	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := f.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Closed before the rename; Windows refuses to rename open files.
	if err := f.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	f = nil

	if isSymlink(path) {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tmp, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	done = true

	d.log().Info("exported", zap.String("path", path), zap.Int("keys", count))
	return &ExportOutput{Path: path, Count: count, ExportedAt: now.Unix()}, nil
}
