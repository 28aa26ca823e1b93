package ops

import (
	"context"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/host"
	"github.com/hpungsan/tabspace/internal/workspace"
)

// AssignOutput contains the result of a mutator.
type AssignOutput struct {
	WindowID    int    `json:"window_id"`
	WorkspaceID string `json:"workspace_id"`
	TabID       *int   `json:"tab_id,omitempty"`
	GroupID     *int   `json:"group_id,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Index       *int   `json:"index,omitempty"`
}

// AddTabInput contains parameters for the AddTabToWorkspace operation.
type AddTabInput struct {
	TabID       int
	WorkspaceID string
	WindowID    int // 0 = the tab's window

	// SkipURLDeduplication leaves other workspaces' entries with the same
	// URL alone. Used for freshly created tabs, whose URL (often a new tab
	// page) says nothing about which entry they are.
	SkipURLDeduplication bool
}

// AddTabToWorkspace assigns a tab to a workspace, removing it from every
// other custom workspace first. Assigning to general only removes.
func AddTabToWorkspace(ctx context.Context, d Deps, input AddTabInput) (*AssignOutput, error) {
	wsID := strings.TrimSpace(input.WorkspaceID)
	if wsID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}
	h, err := d.browser()
	if err != nil {
		return nil, err
	}
	tab, err := h.Tab(ctx, input.TabID)
	if err != nil {
		return nil, hostErr("tab", input.TabID, err)
	}
	windowID := input.WindowID
	if windowID == 0 {
		windowID = tab.WindowID
	}
	if err := requireWorkspace(ctx, d, wsID); err != nil {
		return nil, err
	}

	entry := tabEntry(ctx, d, tab)
	out := &AssignOutput{WindowID: windowID, WorkspaceID: wsID, TabID: intPtr(tab.ID), Fingerprint: entry.URL}
	dedupURL := entry.URL
	if input.SkipURLDeduplication {
		dedupURL = ""
	}

	err = updateAssignments(ctx, d, windowID, "add_tab", func(as workspace.Assignments) (bool, error) {
		changed := false
		for id, a := range as {
			if id == wsID {
				continue
			}
			if a.RemoveTab(tab.ID, dedupURL) {
				changed = true
			}
		}
		if wsID == workspace.GeneralID {
			return changed, nil
		}
		target := as.Ensure(wsID)
		if input.SkipURLDeduplication {
			target.RemoveTab(tab.ID, "")
			target.Tabs = append(target.Tabs, entry)
		} else {
			target.UpsertTab(entry)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	d.log().Debug("tab assigned", zap.Int("tab_id", tab.ID), zap.String("workspace_id", wsID))
	return out, nil
}

// tabEntry builds the stored record for a live tab. A failed group lookup
// leaves the group fingerprint empty.
func tabEntry(ctx context.Context, d Deps, tab host.Tab) workspace.TabAssignment {
	entry := workspace.TabAssignment{
		URL:   workspace.TabFingerprint(tab),
		Title: tab.Title,
		Index: tab.Index,
		TabID: intPtr(tab.ID),
	}
	if tab.Grouped() {
		g, err := d.Host.Group(ctx, tab.GroupID)
		if err != nil {
			d.log().Warn("group lookup failed, storing tab without group",
				zap.Int("tab_id", tab.ID), zap.Int("group_id", tab.GroupID), zap.Error(err))
		} else {
			entry.GroupFingerprint = workspace.GroupFingerprintOf(g)
		}
	}
	return entry
}

// requireWorkspace fails with NOT_FOUND unless id is registered.
func requireWorkspace(ctx context.Context, d Deps, id string) error {
	s, err := LoadSettings(ctx, d)
	if err != nil {
		return err
	}
	defs, err := LoadWorkspaces(ctx, d, s)
	if err != nil {
		return err
	}
	if _, ok := workspace.Find(defs, id); !ok {
		return errors.NewNotFound(id)
	}
	return nil
}

// AddGroupInput contains parameters for the AddGroupToWorkspace operation.
type AddGroupInput struct {
	GroupID     int
	WorkspaceID string
	WindowID    int // 0 = the group's window
}

// AddGroupToWorkspace assigns a tab group by fingerprint, with a snapshot of
// its member URLs, and removes the fingerprint from every other custom
// workspace. Assigning to general only removes.
func AddGroupToWorkspace(ctx context.Context, d Deps, input AddGroupInput) (*AssignOutput, error) {
	wsID := strings.TrimSpace(input.WorkspaceID)
	if wsID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}
	h, err := d.browser()
	if err != nil {
		return nil, err
	}
	g, err := h.Group(ctx, input.GroupID)
	if err != nil {
		return nil, hostErr("group", input.GroupID, err)
	}
	windowID := input.WindowID
	if windowID == 0 {
		windowID = g.WindowID
	}
	if err := requireWorkspace(ctx, d, wsID); err != nil {
		return nil, err
	}

	entry := workspace.GroupAssignment{Title: g.Title, Color: g.Color, Index: -1, TabURLs: []string{}}
	tabs, err := h.Tabs(ctx, g.WindowID)
	if err != nil {
		return nil, hostErr("window", g.WindowID, err)
	}
	for _, t := range tabs {
		if t.GroupID != g.ID {
			continue
		}
		if entry.Index < 0 || t.Index < entry.Index {
			entry.Index = t.Index
		}
		if u := workspace.TabFingerprint(t); u != "" {
			entry.TabURLs = append(entry.TabURLs, u)
		}
	}
	if entry.Index < 0 {
		entry.Index = 0
	}
	fp := entry.Fingerprint()

	err = updateAssignments(ctx, d, windowID, "add_group", func(as workspace.Assignments) (bool, error) {
		changed := false
		for id, a := range as {
			if id != wsID && a.RemoveGroup(fp) {
				changed = true
			}
		}
		if wsID == workspace.GeneralID {
			return changed, nil
		}
		as.Ensure(wsID).UpsertGroup(entry)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	d.log().Debug("group assigned", zap.Int("group_id", g.ID), zap.String("workspace_id", wsID))
	return &AssignOutput{
		WindowID:    windowID,
		WorkspaceID: wsID,
		GroupID:     intPtr(g.ID),
		Fingerprint: fp,
		Index:       intPtr(entry.Index),
	}, nil
}

// RemoveTabInput contains parameters for the RemoveTabFromAllWorkspaces operation.
type RemoveTabInput struct {
	TabID    int
	WindowID int    // required when the tab is gone from the host
	URL      string // optional; used when the tab is gone from the host
}

// RemoveOutput contains the result of the removal operations.
type RemoveOutput struct {
	WindowID int  `json:"window_id"`
	Removed  bool `json:"removed"`
}

// RemoveTabFromAllWorkspaces deletes the tab's entries, by id or URL, from
// every custom workspace of the window. Idempotent. A tab the host no longer
// knows is matched by id (and the given URL) only.
func RemoveTabFromAllWorkspaces(ctx context.Context, d Deps, input RemoveTabInput) (*RemoveOutput, error) {
	windowID, url := input.WindowID, workspace.NormalizeURL(input.URL)
	if d.Host != nil {
		tab, err := d.Host.Tab(ctx, input.TabID)
		switch {
		case err == nil:
			if windowID == 0 {
				windowID = tab.WindowID
			}
			url = workspace.TabFingerprint(tab)
		case stderrors.Is(err, host.ErrNotFound):
			d.log().Warn("tab not in host, removing by id", zap.Int("tab_id", input.TabID))
		default:
			return nil, hostErr("tab", input.TabID, err)
		}
	}
	if windowID == 0 {
		return nil, errors.NewInvalidRequest("window_id is required for a tab the host does not know")
	}

	out := &RemoveOutput{WindowID: windowID}
	err := updateAssignments(ctx, d, windowID, "remove_tab", func(as workspace.Assignments) (bool, error) {
		for _, a := range as {
			if a.RemoveTab(input.TabID, url) {
				out.Removed = true
			}
		}
		return out.Removed, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveGroupInput contains parameters for the RemoveGroupFromAllWorkspaces
// operation. Title and Color identify a group the host no longer knows.
type RemoveGroupInput struct {
	GroupID  int
	WindowID int
	Title    *string
	Color    *string
}

// RemoveGroupFromAllWorkspaces deletes the group's fingerprint from every
// custom workspace of the window. Idempotent.
func RemoveGroupFromAllWorkspaces(ctx context.Context, d Deps, input RemoveGroupInput) (*RemoveOutput, error) {
	windowID := input.WindowID
	var fp string
	if input.Title != nil && input.Color != nil {
		fp = workspace.GroupFingerprint(*input.Title, *input.Color)
	}
	if fp == "" || windowID == 0 {
		h, err := d.browser()
		if err != nil {
			return nil, err
		}
		g, err := h.Group(ctx, input.GroupID)
		if err != nil {
			return nil, hostErr("group", input.GroupID, err)
		}
		if fp == "" {
			fp = workspace.GroupFingerprintOf(g)
		}
		if windowID == 0 {
			windowID = g.WindowID
		}
	}

	out := &RemoveOutput{WindowID: windowID}
	err := updateAssignments(ctx, d, windowID, "remove_group", func(as workspace.Assignments) (bool, error) {
		for _, a := range as {
			if a.RemoveGroup(fp) {
				out.Removed = true
			}
		}
		return out.Removed, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MoveTabEndInput contains parameters for the MoveTabToWorkspaceEnd operation.
type MoveTabEndInput struct {
	TabID       int
	WorkspaceID string
	WindowID    int // 0 = the tab's window
}

// MoveTabToWorkspaceEnd assigns a tab to a workspace with a recorded index
// one past the workspace's current maximum, then asks the host to move the
// tab to the end of the window. Hosts that cannot move tabs keep it in place.
func MoveTabToWorkspaceEnd(ctx context.Context, d Deps, input MoveTabEndInput) (*AssignOutput, error) {
	wsID := strings.TrimSpace(input.WorkspaceID)
	if wsID == "" {
		return nil, errors.NewInvalidRequest("workspace_id is required")
	}
	h, err := d.browser()
	if err != nil {
		return nil, err
	}
	tab, err := h.Tab(ctx, input.TabID)
	if err != nil {
		return nil, hostErr("tab", input.TabID, err)
	}
	windowID := input.WindowID
	if windowID == 0 {
		windowID = tab.WindowID
	}
	s, err := LoadSettings(ctx, d)
	if err != nil {
		return nil, err
	}
	defs, err := LoadWorkspaces(ctx, d, s)
	if err != nil {
		return nil, err
	}
	def, ok := workspace.Find(defs, wsID)
	if !ok {
		return nil, errors.NewNotFound(wsID)
	}

	// The end of scope is measured on the live window as well as the record,
	// so a workspace whose entries carry stale indexes still ends after its
	// last visible tab.
	end := -1
	if items, err := snapshotItems(ctx, d, windowID); err == nil {
		as, err := LoadAssignments(ctx, d, windowID)
		if err != nil {
			return nil, err
		}
		for _, t := range workspace.Scope(workspace.FilterInput{
			Items:           items,
			Active:          def,
			Assignments:     as,
			Workspaces:      defs,
			SharePinnedTabs: s.SharePinnedTabsBetweenWorkspaces,
		}) {
			if t.ID != tab.ID {
				end = max(end, t.Index)
			}
		}
	}

	entry := tabEntry(ctx, d, tab)
	out := &AssignOutput{WindowID: windowID, WorkspaceID: wsID, TabID: intPtr(tab.ID), Fingerprint: entry.URL}
	err = updateAssignments(ctx, d, windowID, "move_tab_end", func(as workspace.Assignments) (bool, error) {
		changed := false
		for id, a := range as {
			if id != wsID && a.RemoveTab(tab.ID, entry.URL) {
				changed = true
			}
		}
		if wsID == workspace.GeneralID {
			return changed, nil
		}
		target := as.Ensure(wsID)
		target.RemoveTab(tab.ID, entry.URL)
		entry.Index = max(end, target.MaxIndex()) + 1
		target.Tabs = append(target.Tabs, entry)
		out.Index = intPtr(entry.Index)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if err := h.MoveTab(ctx, tab.ID, windowID, -1); err != nil && !stderrors.Is(err, host.ErrUnsupported) {
		d.log().Warn("move tab to end", zap.Int("tab_id", tab.ID), zap.Error(err))
	}
	return out, nil
}

// snapshotItems reads a window's tabs and groups as filterable items.
func snapshotItems(ctx context.Context, d Deps, windowID int) ([]workspace.Item, error) {
	tabs, groups, err := snapshot(ctx, d, windowID)
	if err != nil {
		return nil, err
	}
	return workspace.BuildItems(tabs, groups), nil
}

// snapshot reads a window's tabs and groups. A failed group listing
// degrades to an empty group list.
func snapshot(ctx context.Context, d Deps, windowID int) ([]host.Tab, []host.Group, error) {
	h, err := d.browser()
	if err != nil {
		return nil, nil, err
	}
	tabs, err := h.Tabs(ctx, windowID)
	if err != nil {
		return nil, nil, hostErr("window", windowID, err)
	}
	groups, err := h.Groups(ctx, windowID)
	if err != nil {
		d.log().Warn("list groups", zap.Int("window_id", windowID), zap.Error(err))
		groups = nil
	}
	return tabs, groups, nil
}
