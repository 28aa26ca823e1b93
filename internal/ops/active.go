package ops

import (
	"context"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/host"
	"github.com/hpungsan/tabspace/internal/storage"
	"github.com/hpungsan/tabspace/internal/workspace"
)

// lastActiveTabs is window id -> workspace id -> tab id.
type lastActiveTabs map[int]map[string]int

// GetActiveWorkspace returns the workspace selected in a window. Windows
// without a selection, or whose selection was deleted, show general.
func GetActiveWorkspace(ctx context.Context, d Deps, s *Settings, windowID int) (*workspace.Definition, error) {
	defs, err := LoadWorkspaces(ctx, d, s)
	if err != nil {
		return nil, err
	}
	return activeIn(ctx, d, defs, windowID)
}

// ActiveInput contains parameters for the ActiveWorkspace operation.
type ActiveInput struct {
	WindowID int // 0 = current window
}

// ActiveOutput contains the result of the ActiveWorkspace operation.
type ActiveOutput struct {
	WindowID  int                  `json:"window_id"`
	Workspace workspace.Definition `json:"workspace"`
}

// ActiveWorkspace resolves the window and reports its active workspace.
func ActiveWorkspace(ctx context.Context, d Deps, input ActiveInput) (*ActiveOutput, error) {
	windowID, err := resolveWindow(ctx, d, input.WindowID)
	if err != nil {
		return nil, err
	}
	s, err := LoadSettings(ctx, d)
	if err != nil {
		return nil, err
	}
	def, err := GetActiveWorkspace(ctx, d, s, windowID)
	if err != nil {
		return nil, err
	}
	return &ActiveOutput{WindowID: windowID, Workspace: *def}, nil
}

func activeIn(ctx context.Context, d Deps, defs []workspace.Definition, windowID int) (*workspace.Definition, error) {
	active, err := storage.GetJSON(ctx, d.Storage, KeyActiveWorkspace, map[int]string{})
	if err != nil {
		return nil, readErr(KeyActiveWorkspace, err)
	}
	if def, ok := workspace.Find(defs, active[windowID]); ok {
		return &def, nil
	}
	def, _ := workspace.Find(defs, workspace.GeneralID)
	return &def, nil
}

// SwitchWorkspaceInput contains parameters for the SwitchWorkspace operation.
type SwitchWorkspaceInput struct {
	WindowID    int // 0 = current window
	WorkspaceID string
}

// SwitchWorkspaceOutput contains the result of the SwitchWorkspace operation.
type SwitchWorkspaceOutput struct {
	WindowID       int    `json:"window_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	SavedTabID     *int   `json:"saved_tab_id,omitempty"`
	ActivatedTabID *int   `json:"activated_tab_id,omitempty"`
}

// SwitchWorkspace makes a workspace active in a window. With separate active
// tabs enabled it remembers the outgoing workspace's active tab first and,
// after the settle delay, restores the incoming workspace's remembered tab.
// Host failures around the switch are logged and never undo it.
func SwitchWorkspace(ctx context.Context, d Deps, input SwitchWorkspaceInput) (*SwitchWorkspaceOutput, error) {
	to := strings.TrimSpace(input.WorkspaceID)
	if to == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}
	windowID, err := resolveWindow(ctx, d, input.WindowID)
	if err != nil {
		return nil, err
	}
	s, err := LoadSettings(ctx, d)
	if err != nil {
		return nil, err
	}
	defs, err := LoadWorkspaces(ctx, d, s)
	if err != nil {
		return nil, err
	}
	if _, ok := workspace.Find(defs, to); !ok {
		return nil, errors.NewNotFound(to)
	}
	from, err := activeIn(ctx, d, defs, windowID)
	if err != nil {
		return nil, err
	}
	out := &SwitchWorkspaceOutput{WindowID: windowID, From: from.ID, To: to}
	log := d.log().With(zap.Int("window_id", windowID), zap.String("from", from.ID), zap.String("to", to))

	tracking := s.SeparateActiveTabPerWorkspace && d.Host != nil
	if tracking {
		if tab, ok := activeTab(ctx, d, windowID); ok {
			if err := SaveLastActiveTab(ctx, d, windowID, from.ID, tab.ID); err != nil {
				log.Warn("save last active tab", zap.Error(err))
			} else {
				out.SavedTabID = intPtr(tab.ID)
			}
		}
	}

	err = storage.UpdateJSON(ctx, d.Storage, KeyActiveWorkspace, map[int]string{}, func(active *map[int]string) error {
		if *active == nil {
			*active = map[int]string{}
		}
		if (*active)[windowID] == to {
			return storage.ErrUnchanged
		}
		(*active)[windowID] = to
		return nil
	})
	if err != nil {
		return nil, writeErr(KeyActiveWorkspace, err)
	}
	d.Metrics.Switch()
	log.Info("workspace switched")

	if tracking {
		if err := sleep(ctx, s.SwitchSettle); err != nil {
			return out, nil
		}
		tabID, ok, err := ActivateLastActiveTab(ctx, d, windowID, to)
		if err != nil {
			log.Warn("restore last active tab", zap.Error(err))
		} else if ok {
			out.ActivatedTabID = intPtr(tabID)
		}
	}
	return out, nil
}

// activeTab returns the window's active tab. Lookup failures are logged.
func activeTab(ctx context.Context, d Deps, windowID int) (host.Tab, bool) {
	tabs, err := d.Host.Tabs(ctx, windowID)
	if err != nil {
		d.log().Warn("list tabs", zap.Int("window_id", windowID), zap.Error(err))
		return host.Tab{}, false
	}
	for _, t := range tabs {
		if t.Active {
			return t, true
		}
	}
	return host.Tab{}, false
}

// SaveLastActiveTab remembers tabID as the active tab of a workspace in a window.
func SaveLastActiveTab(ctx context.Context, d Deps, windowID int, workspaceID string, tabID int) error {
	err := storage.UpdateJSON(ctx, d.Storage, KeyLastActiveTab, lastActiveTabs{}, func(last *lastActiveTabs) error {
		if *last == nil {
			*last = lastActiveTabs{}
		}
		byWS := (*last)[windowID]
		if byWS == nil {
			byWS = map[string]int{}
			(*last)[windowID] = byWS
		}
		if current, ok := byWS[workspaceID]; ok && current == tabID {
			return storage.ErrUnchanged
		}
		byWS[workspaceID] = tabID
		return nil
	})
	return writeErr(KeyLastActiveTab, err)
}

// LastActiveTab returns the remembered tab id of a workspace in a window.
func LastActiveTab(ctx context.Context, d Deps, windowID int, workspaceID string) (int, bool, error) {
	last, err := storage.GetJSON(ctx, d.Storage, KeyLastActiveTab, lastActiveTabs{})
	if err != nil {
		return 0, false, readErr(KeyLastActiveTab, err)
	}
	tabID, ok := last[windowID][workspaceID]
	return tabID, ok, nil
}

// ActivateLastActiveTab activates the remembered tab of a workspace if it
// still exists in the window. It reports the activated tab id; a missing or
// moved tab is a no-op, not an error.
func ActivateLastActiveTab(ctx context.Context, d Deps, windowID int, workspaceID string) (int, bool, error) {
	h, err := d.browser()
	if err != nil {
		return 0, false, err
	}
	tabID, ok, err := LastActiveTab(ctx, d, windowID, workspaceID)
	if err != nil || !ok {
		return 0, false, err
	}

	log := d.log().With(zap.Int("window_id", windowID), zap.Int("tab_id", tabID))
	tab, err := h.Tab(ctx, tabID)
	if err != nil {
		log.Warn("remembered tab is gone", zap.Error(err))
		return 0, false, nil
	}
	if tab.WindowID != windowID {
		log.Debug("remembered tab moved to another window")
		return 0, false, nil
	}
	if err := h.Activate(ctx, tabID); err != nil {
		if stderrors.Is(err, host.ErrNotFound) {
			log.Warn("remembered tab closed before activation")
			return 0, false, nil
		}
		return 0, false, hostErr("tab", tabID, err)
	}
	return tabID, true, nil
}

// forgetTab drops every last-active entry that points at tabID.
func forgetTab(ctx context.Context, d Deps, windowID, tabID int) error {
	err := storage.UpdateJSON(ctx, d.Storage, KeyLastActiveTab, lastActiveTabs{}, func(last *lastActiveTabs) error {
		byWS := (*last)[windowID]
		changed := false
		for wsID, id := range byWS {
			if id == tabID {
				delete(byWS, wsID)
				changed = true
			}
		}
		if !changed {
			return storage.ErrUnchanged
		}
		if len(byWS) == 0 {
			delete(*last, windowID)
		}
		return nil
	})
	return writeErr(KeyLastActiveTab, err)
}
