package ops

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/storage"
	"github.com/hpungsan/tabspace/internal/workspace"
)

// MaxWorkspaceNameLen bounds display names.
const MaxWorkspaceNameLen = 64

// LoadWorkspaces returns the ordered workspace list, creating the general
// workspace (at position 0) when it is missing and refreshing its name from
// settings. The list is persisted only when that changed something.
func LoadWorkspaces(ctx context.Context, d Deps, s *Settings) ([]workspace.Definition, error) {
	defs, err := storage.GetJSON(ctx, d.Storage, KeyWorkspaces, []workspace.Definition(nil))
	if err != nil {
		return nil, readErr(KeyWorkspaces, err)
	}
	if _, changed := ensureGeneral(defs, s); !changed {
		return defs, nil
	}

	err = storage.UpdateJSON(ctx, d.Storage, KeyWorkspaces, []workspace.Definition(nil), func(list *[]workspace.Definition) error {
		next, changed := ensureGeneral(*list, s)
		if !changed {
			return storage.ErrUnchanged
		}
		*list = next
		return nil
	})
	if err != nil {
		return nil, writeErr(KeyWorkspaces, err)
	}
	defs, err = storage.GetJSON(ctx, d.Storage, KeyWorkspaces, []workspace.Definition(nil))
	if err != nil {
		return nil, readErr(KeyWorkspaces, err)
	}
	return defs, nil
}

// ensureGeneral enforces the general workspace invariants: it exists, it is
// the only default, its name follows settings and its icon falls back to
// settings when unset.
func ensureGeneral(defs []workspace.Definition, s *Settings) ([]workspace.Definition, bool) {
	out := make([]workspace.Definition, 0, len(defs)+1)
	changed := false
	found := false
	for _, def := range defs {
		switch {
		case def.IsGeneral():
			if found {
				changed = true
				continue
			}
			found = true
			want := def
			want.IsDefault = true
			if s.GeneralName != "" {
				want.Name = s.GeneralName
			}
			if want.Icon == "" {
				want.Icon = s.GeneralIcon
			}
			if want != def {
				changed = true
			}
			out = append(out, want)
		case def.IsDefault:
			def.IsDefault = false
			changed = true
			out = append(out, def)
		default:
			out = append(out, def)
		}
	}
	if !found {
		out = append([]workspace.Definition{workspace.General(s.GeneralName, s.GeneralIcon)}, out...)
		changed = true
	}
	return out, changed
}

// updateWorkspaces is a read-modify-write of the workspace list. The list is
// normalized through ensureGeneral before fn sees it.
func updateWorkspaces(ctx context.Context, d Deps, s *Settings, fn func(defs []workspace.Definition) ([]workspace.Definition, error)) ([]workspace.Definition, error) {
	var result []workspace.Definition
	err := storage.UpdateJSON(ctx, d.Storage, KeyWorkspaces, []workspace.Definition(nil), func(list *[]workspace.Definition) error {
		current, _ := ensureGeneral(*list, s)
		next, err := fn(current)
		if err != nil {
			return err
		}
		*list = next
		result = next
		return nil
	})
	if err != nil {
		return nil, writeErr(KeyWorkspaces, err)
	}
	return result, nil
}

// ListWorkspacesOutput contains the result of the ListWorkspaces operation.
type ListWorkspacesOutput struct {
	Workspaces []workspace.Definition `json:"workspaces"`
	Count      int                    `json:"count"`
}

// ListWorkspaces returns the ordered workspace list, general first.
func ListWorkspaces(ctx context.Context, d Deps) (*ListWorkspacesOutput, error) {
	s, err := LoadSettings(ctx, d)
	if err != nil {
		return nil, err
	}
	defs, err := LoadWorkspaces(ctx, d, s)
	if err != nil {
		return nil, err
	}
	return &ListWorkspacesOutput{Workspaces: defs, Count: len(defs)}, nil
}

// AddWorkspaceInput contains parameters for the AddWorkspace operation.
type AddWorkspaceInput struct {
	ID   string // optional; generated when empty
	Name string // required
	Icon string
}

// AddWorkspace appends a custom workspace to the list.
func AddWorkspace(ctx context.Context, d Deps, input AddWorkspaceInput) (*workspace.Definition, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	if len(name) > MaxWorkspaceNameLen {
		return nil, errors.NewInvalidRequest("name is too long")
	}
	id := strings.TrimSpace(input.ID)
	if id == workspace.GeneralID {
		return nil, errors.NewProtectedWorkspace("the general workspace already exists")
	}
	if id == "" {
		generated, err := generateULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		id = strings.ToLower(generated)
	}

	s, err := LoadSettings(ctx, d)
	if err != nil {
		return nil, err
	}
	def := workspace.Definition{ID: id, Name: name, Icon: strings.TrimSpace(input.Icon)}
	_, err = updateWorkspaces(ctx, d, s, func(defs []workspace.Definition) ([]workspace.Definition, error) {
		if _, ok := workspace.Find(defs, id); ok {
			return nil, errors.NewInvalidRequest("workspace id already exists: " + id)
		}
		return append(defs, def), nil
	})
	if err != nil {
		return nil, err
	}
	d.log().Info("workspace added", zap.String("workspace_id", id))
	return &def, nil
}

// RemoveWorkspaceOutput contains the result of the RemoveWorkspace operation.
type RemoveWorkspaceOutput struct {
	ID           string `json:"id"`
	Removed      bool   `json:"removed"`
	ResetWindows []int  `json:"reset_windows,omitempty"`
}

// RemoveWorkspace deletes a custom workspace. Removing general is a no-op.
// Windows showing the workspace fall back to general, and its assignment
// and last-active-tab records are dropped.
func RemoveWorkspace(ctx context.Context, d Deps, id string) (*RemoveWorkspaceOutput, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	out := &RemoveWorkspaceOutput{ID: id}
	if id == workspace.GeneralID {
		return out, nil
	}

	s, err := LoadSettings(ctx, d)
	if err != nil {
		return nil, err
	}
	_, err = updateWorkspaces(ctx, d, s, func(defs []workspace.Definition) ([]workspace.Definition, error) {
		kept := defs[:0]
		for _, def := range defs {
			if def.ID != id {
				kept = append(kept, def)
			}
		}
		if len(kept) == len(defs) {
			return nil, errors.NewNotFound(id)
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	out.Removed = true

	// Cascade. The list write above already succeeded, so each later step is
	// independent and a failure leaves only orphans that readers ignore.
	err = storage.UpdateJSON(ctx, d.Storage, KeyActiveWorkspace, map[int]string{}, func(active *map[int]string) error {
		for windowID, wsID := range *active {
			if wsID == id {
				(*active)[windowID] = workspace.GeneralID
				out.ResetWindows = append(out.ResetWindows, windowID)
			}
		}
		if len(out.ResetWindows) == 0 {
			return storage.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, writeErr(KeyActiveWorkspace, err)
	}

	err = updateAllAssignments(ctx, d, "remove_workspace", func(all workspace.WindowAssignments) bool {
		changed := false
		for _, as := range all {
			if _, ok := as[id]; ok {
				delete(as, id)
				changed = true
			}
		}
		return changed
	})
	if err != nil {
		return nil, err
	}

	err = storage.UpdateJSON(ctx, d.Storage, KeyLastActiveTab, lastActiveTabs{}, func(last *lastActiveTabs) error {
		changed := false
		for windowID, byWS := range *last {
			if _, ok := byWS[id]; ok {
				delete(byWS, id)
				changed = true
			}
			if len(byWS) == 0 {
				delete(*last, windowID)
			}
		}
		if !changed {
			return storage.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, writeErr(KeyLastActiveTab, err)
	}

	d.log().Info("workspace removed", zap.String("workspace_id", id), zap.Ints("reset_windows", out.ResetWindows))
	return out, nil
}

// UpdateWorkspaceInput contains parameters for the UpdateWorkspace operation.
// Nil fields are left unchanged.
type UpdateWorkspaceInput struct {
	ID        string
	Name      *string
	Icon      *string
	IsDefault *bool
}

// UpdateWorkspace renames or re-icons a workspace. On general only the icon
// applies; its name follows settings and it is always the default.
func UpdateWorkspace(ctx context.Context, d Deps, input UpdateWorkspaceInput) (*workspace.Definition, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	general := id == workspace.GeneralID

	var name string
	if input.Name != nil && !general {
		name = strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errors.NewInvalidRequest("name must not be empty")
		}
		if len(name) > MaxWorkspaceNameLen {
			return nil, errors.NewInvalidRequest("name is too long")
		}
	}
	if input.IsDefault != nil && *input.IsDefault && !general {
		return nil, errors.NewProtectedWorkspace("only the general workspace can be the default")
	}

	s, err := LoadSettings(ctx, d)
	if err != nil {
		return nil, err
	}
	var updated workspace.Definition
	_, err = updateWorkspaces(ctx, d, s, func(defs []workspace.Definition) ([]workspace.Definition, error) {
		for i := range defs {
			if defs[i].ID != id {
				continue
			}
			if name != "" {
				defs[i].Name = name
			}
			if input.Icon != nil {
				defs[i].Icon = strings.TrimSpace(*input.Icon)
			}
			updated = defs[i]
			return defs, nil
		}
		return nil, errors.NewNotFound(id)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ReorderWorkspaces moves the listed ids to the front in the given order,
// after general, which always stays first. Listing general is allowed and
// does not move it. Unlisted workspaces keep their relative order.
func ReorderWorkspaces(ctx context.Context, d Deps, ids []string) ([]workspace.Definition, error) {
	if len(ids) == 0 {
		return nil, errors.NewInvalidRequest("ids is required")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, errors.NewInvalidRequest("duplicate id: " + id)
		}
		seen[id] = true
	}

	s, err := LoadSettings(ctx, d)
	if err != nil {
		return nil, err
	}
	return updateWorkspaces(ctx, d, s, func(defs []workspace.Definition) ([]workspace.Definition, error) {
		out := make([]workspace.Definition, 0, len(defs))
		if general, ok := workspace.Find(defs, workspace.GeneralID); ok {
			out = append(out, general)
		}
		for _, id := range ids {
			def, ok := workspace.Find(defs, id)
			if !ok {
				return nil, errors.NewNotFound(id)
			}
			if def.IsGeneral() {
				continue
			}
			out = append(out, def)
		}
		for _, def := range defs {
			if !seen[def.ID] && !def.IsGeneral() {
				out = append(out, def)
			}
		}
		return out, nil
	})
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
