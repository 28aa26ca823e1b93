package ops

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/host"
	"github.com/hpungsan/tabspace/internal/workspace"
)

// HandleTabCreated assigns a new tab to the window's active workspace when
// that is a custom one. It returns nil output when the tab stays in general.
func HandleTabCreated(ctx context.Context, d Deps, tabID int) (*AssignOutput, error) {
	h, err := d.browser()
	if err != nil {
		return nil, err
	}
	tab, err := h.Tab(ctx, tabID)
	if err != nil {
		return nil, hostErr("tab", tabID, err)
	}
	s, err := LoadSettings(ctx, d)
	if err != nil {
		return nil, err
	}
	active, err := GetActiveWorkspace(ctx, d, s, tab.WindowID)
	if err != nil {
		return nil, err
	}
	if active.IsGeneral() {
		return nil, nil
	}
	return AddTabToWorkspace(ctx, d, AddTabInput{
		TabID:                tab.ID,
		WorkspaceID:          active.ID,
		WindowID:             tab.WindowID,
		SkipURLDeduplication: true,
	})
}

// TabClosedInput contains parameters for the HandleTabClosed operation.
type TabClosedInput struct {
	TabID    int
	WindowID int
}

// TabClosedOutput contains the result of the HandleTabClosed operation.
type TabClosedOutput struct {
	TabID      int  `json:"tab_id"`
	Unassigned bool `json:"unassigned"`
}

// HandleTabClosed is the cleanup pass for a closed tab: entries cached
// under its id are removed from every workspace, and it is forgotten as a
// remembered active tab. Entries matching only by URL are left for
// Reconcile, since another tab may share the URL.
func HandleTabClosed(ctx context.Context, d Deps, input TabClosedInput) (*TabClosedOutput, error) {
	out := &TabClosedOutput{TabID: input.TabID}
	err := updateAssignments(ctx, d, input.WindowID, "tab_closed", func(as workspace.Assignments) (bool, error) {
		for _, a := range as {
			if a.RemoveTab(input.TabID, "") {
				out.Unassigned = true
			}
		}
		return out.Unassigned, nil
	})
	if err != nil {
		return nil, err
	}
	if err := forgetTab(ctx, d, input.WindowID, input.TabID); err != nil {
		return nil, err
	}
	return out, nil
}

// CloseTab closes a tab in the host and runs the cleanup pass. When no
// other open tab in the window shares its URL, URL-only entries go too.
func CloseTab(ctx context.Context, d Deps, tabID int) (*TabClosedOutput, error) {
	h, err := d.browser()
	if err != nil {
		return nil, err
	}
	tab, err := h.Tab(ctx, tabID)
	if err != nil {
		return nil, hostErr("tab", tabID, err)
	}
	if err := h.Remove(ctx, tabID); err != nil && !stderrors.Is(err, host.ErrNotFound) {
		return nil, hostErr("tab", tabID, err)
	}

	out, err := HandleTabClosed(ctx, d, TabClosedInput{TabID: tabID, WindowID: tab.WindowID})
	if err != nil {
		return nil, err
	}

	url := workspace.TabFingerprint(tab)
	if url == "" {
		return out, nil
	}
	remaining, err := h.Tabs(ctx, tab.WindowID)
	if err != nil {
		d.log().Warn("list tabs after close", zap.Int("window_id", tab.WindowID), zap.Error(err))
		return out, nil
	}
	for _, t := range remaining {
		if workspace.URLsMatch(workspace.TabFingerprint(t), url) {
			return out, nil
		}
	}
	err = updateAssignments(ctx, d, tab.WindowID, "tab_closed", func(as workspace.Assignments) (bool, error) {
		changed := false
		for _, a := range as {
			if a.RemoveTab(-1, url) {
				changed = true
			}
		}
		if changed {
			out.Unassigned = true
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
