package ops

import (
	"context"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/storage"
	"github.com/hpungsan/tabspace/internal/workspace"
)

// LoadAllAssignments returns every window's assignment record. A missing
// key reads as empty.
func LoadAllAssignments(ctx context.Context, d Deps) (workspace.WindowAssignments, error) {
	all, err := storage.GetJSON(ctx, d.Storage, KeyAssignments, workspace.WindowAssignments{})
	if err != nil {
		return nil, readErr(KeyAssignments, err)
	}
	if all == nil {
		all = workspace.WindowAssignments{}
	}
	return all, nil
}

// LoadAssignments returns one window's record, or an empty one when absent.
func LoadAssignments(ctx context.Context, d Deps, windowID int) (workspace.Assignments, error) {
	all, err := LoadAllAssignments(ctx, d)
	if err != nil {
		return nil, err
	}
	as := all[windowID]
	if as == nil {
		as = workspace.Assignments{}
	}
	return as, nil
}

// SaveAssignments replaces one window's record.
func SaveAssignments(ctx context.Context, d Deps, windowID int, as workspace.Assignments) error {
	return updateAssignments(ctx, d, windowID, "save", func(current workspace.Assignments) (bool, error) {
		for id := range current {
			delete(current, id)
		}
		for id, a := range as {
			current[id] = a
		}
		return true, nil
	})
}

// updateAssignments is the only writer of the assignment key. fn edits the
// window's record in memory; the whole key is then written back inside one
// storage transaction. Empty workspace entries and windows are dropped.
func updateAssignments(ctx context.Context, d Deps, windowID int, op string, fn func(as workspace.Assignments) (bool, error)) error {
	wrote := false
	err := storage.UpdateJSON(ctx, d.Storage, KeyAssignments, workspace.WindowAssignments{}, func(all *workspace.WindowAssignments) error {
		if *all == nil {
			*all = workspace.WindowAssignments{}
		}
		as := (*all)[windowID]
		if as == nil {
			as = workspace.Assignments{}
		}
		changed, err := fn(as)
		if err != nil {
			return err
		}
		if !changed {
			return storage.ErrUnchanged
		}
		for id, a := range as {
			if id == workspace.GeneralID || a.Empty() {
				delete(as, id)
			}
		}
		if len(as) == 0 {
			delete(*all, windowID)
		} else {
			(*all)[windowID] = as
		}
		wrote = true
		return nil
	})
	if err != nil {
		return writeErr(KeyAssignments, err)
	}
	if wrote {
		d.Metrics.AssignmentWrite(op)
		d.log().Debug("assignments written", zap.String("op", op), zap.Int("window_id", windowID))
	}
	return nil
}

// updateAllAssignments edits every window's record at once.
func updateAllAssignments(ctx context.Context, d Deps, op string, fn func(all workspace.WindowAssignments) bool) error {
	wrote := false
	err := storage.UpdateJSON(ctx, d.Storage, KeyAssignments, workspace.WindowAssignments{}, func(all *workspace.WindowAssignments) error {
		if *all == nil {
			*all = workspace.WindowAssignments{}
		}
		if !fn(*all) {
			return storage.ErrUnchanged
		}
		for windowID, as := range *all {
			for id, a := range as {
				if a.Empty() {
					delete(as, id)
				}
			}
			if len(as) == 0 {
				delete(*all, windowID)
			}
		}
		wrote = true
		return nil
	})
	if err != nil {
		return writeErr(KeyAssignments, err)
	}
	if wrote {
		d.Metrics.AssignmentWrite(op)
	}
	return nil
}
