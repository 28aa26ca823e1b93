package ops

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/storage"
	"github.com/hpungsan/tabspace/internal/workspace"
)

// ImportMode controls what happens when a key in the file is already stored.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // refuse the whole file
	ImportModeReplace ImportMode = "replace" // overwrite stored keys
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes a line that could not be imported.
type ImportError struct {
	Line    int    `json:"line"`
	Key     string `json:"key,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import restores keys from an export file. All accepted keys are written
// in one Set. In error mode any bad line or already stored key leaves
// storage untouched; in replace mode bad lines are skipped.
func Import(ctx context.Context, d Deps, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace")
	}
	if err := ValidatePath(input.Path, PathCheckRead, d.config()); err != nil {
		return nil, err
	}
	f, err := openNoFollow(input.Path)
	if err != nil {
		if isCoded(err) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer f.Close()

	rec, lineOf, parseErrs := parseBackup(f)
	out := &ImportOutput{Errors: []ImportError{}}

	if input.Mode == ImportModeError {
		if len(parseErrs) > 0 {
			out.Errors = parseErrs
			return out, nil
		}
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		existing, err := d.Storage.Get(ctx, keys...)
		if err != nil {
			return nil, readErr("backup", err)
		}
		for _, k := range backupKeys {
			if _, ok := existing[k]; ok {
				out.Errors = append(out.Errors, ImportError{
					Line:    lineOf[k],
					Key:     k,
					Code:    "KEY_COLLISION",
					Message: fmt.Sprintf("%s is already stored (use mode replace)", k),
				})
			}
		}
		if len(out.Errors) > 0 {
			return out, nil
		}
	} else {
		out.Errors = append(out.Errors, parseErrs...)
		out.Skipped = len(parseErrs)
	}

	if len(rec) > 0 {
		if err := d.Storage.Set(ctx, rec); err != nil {
			return nil, writeErr("backup", err)
		}
	}
	out.Imported = len(rec)
	d.log().Info("imported",
		zap.String("path", input.Path),
		zap.String("mode", string(input.Mode)),
		zap.Int("imported", out.Imported),
		zap.Int("skipped", out.Skipped))
	return out, nil
}

// parseBackup reads an export file into a storage record. Each value is
// decoded into its durable shape before it is accepted.
func parseBackup(r io.Reader) (storage.Record, map[string]int, []ImportError) {
	rec := make(storage.Record)
	lineOf := make(map[string]int)
	var errs []ImportError

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var header BackupHeader
		if err := json.Unmarshal(raw, &header); err == nil && header.TabspaceExport {
			continue
		}
		var br BackupRecord
		if err := json.Unmarshal(raw, &br); err != nil {
			errs = append(errs, ImportError{Line: line, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if !slices.Contains(backupKeys, br.Key) {
			errs = append(errs, ImportError{Line: line, Key: br.Key, Code: "UNKNOWN_KEY", Message: fmt.Sprintf("unknown key %q", br.Key)})
			continue
		}
		if err := checkShape(br.Key, br.Value); err != nil {
			errs = append(errs, ImportError{Line: line, Key: br.Key, Code: "INVALID_RECORD", Message: err.Error()})
			continue
		}
		rec[br.Key] = br.Value
		lineOf[br.Key] = line
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, ImportError{Line: line, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return rec, lineOf, errs
}

func checkShape(key string, v json.RawMessage) error {
	var target any
	switch key {
	case KeyWorkspaces:
		target = &[]workspace.Definition{}
	case KeyAssignments:
		target = &workspace.WindowAssignments{}
	case KeyActiveWorkspace:
		target = &map[int]string{}
	case KeyLastActiveTab:
		target = &lastActiveTabs{}
	case KeySeparateActiveTab, KeySharePinnedTabs:
		target = new(bool)
	case KeyNewTabLink:
		var link string
		if err := json.Unmarshal(v, &link); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return validateLink(link)
	}
	if err := json.Unmarshal(v, target); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
