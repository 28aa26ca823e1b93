package ops

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/host"
	"github.com/hpungsan/tabspace/internal/workspace"
)

// Item kinds in VisibleItem.
const (
	KindPinned = "pinned"
	KindTab    = "tab"
	KindGroup  = "group"
)

// VisibleInput contains parameters for the VisibleItems operation.
type VisibleInput struct {
	WindowID    int    // 0 = current window
	WorkspaceID string // empty = the window's active workspace

	// FallbackTabIDs are used when the assignment record cannot be read.
	FallbackTabIDs []int
}

// VisibleItem is the JSON form of a workspace.Item.
type VisibleItem struct {
	Kind  string      `json:"kind"`
	Tab   *host.Tab   `json:"tab,omitempty"`
	Group *host.Group `json:"group,omitempty"`
	Tabs  []host.Tab  `json:"tabs,omitempty"`
}

// VisibleOutput contains the result of the VisibleItems operation.
type VisibleOutput struct {
	WindowID  int                  `json:"window_id"`
	Workspace workspace.Definition `json:"workspace"`
	Degraded  bool                 `json:"degraded,omitempty"`
	Items     []VisibleItem        `json:"items"`
}

// VisibleItems snapshots a window and returns what a workspace shows, in
// native order. An unreadable assignment record degrades to the fallback ids.
func VisibleItems(ctx context.Context, d Deps, input VisibleInput) (*VisibleOutput, error) {
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

	var def workspace.Definition
	if id := strings.TrimSpace(input.WorkspaceID); id != "" {
		found, ok := workspace.Find(defs, id)
		if !ok {
			return nil, errors.NewNotFound(id)
		}
		def = found
	} else {
		active, err := activeIn(ctx, d, defs, windowID)
		if err != nil {
			return nil, err
		}
		def = *active
	}

	items, err := snapshotItems(ctx, d, windowID)
	if err != nil {
		return nil, err
	}

	in := workspace.FilterInput{
		Items:           items,
		Active:          def,
		Workspaces:      defs,
		SharePinnedTabs: s.SharePinnedTabsBetweenWorkspaces,
	}
	out := &VisibleOutput{WindowID: windowID, Workspace: def, Items: []VisibleItem{}}
	as, err := LoadAssignments(ctx, d, windowID)
	if err != nil {
		d.log().Warn("assignments unavailable, using fallback ids", zap.Int("window_id", windowID), zap.Error(err))
		out.Degraded = true
		in.FallbackTabIDs = make(map[int]bool, len(input.FallbackTabIDs))
		for _, id := range input.FallbackTabIDs {
			in.FallbackTabIDs[id] = true
		}
	} else {
		in.Assignments = as
	}

	for _, it := range workspace.Filter(in) {
		out.Items = append(out.Items, toVisible(it))
	}
	return out, nil
}

func toVisible(it workspace.Item) VisibleItem {
	switch v := it.(type) {
	case workspace.PinnedTab:
		return VisibleItem{Kind: KindPinned, Tab: &v.Tab}
	case workspace.LooseTab:
		return VisibleItem{Kind: KindTab, Tab: &v.Tab}
	case workspace.GroupItem:
		return VisibleItem{Kind: KindGroup, Group: &v.Group, Tabs: v.Tabs}
	}
	return VisibleItem{}
}
