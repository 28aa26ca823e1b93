package ops

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/host"
	"github.com/hpungsan/tabspace/internal/workspace"
)

// ReconcileInput contains parameters for the Reconcile operation.
type ReconcileInput struct {
	WindowID int  // 0 = current window
	Prune    bool // drop entries that match nothing live
}

// ReconcileOutput contains the result of the Reconcile operation.
type ReconcileOutput struct {
	WindowID  int `json:"window_id"`
	Rebound   int `json:"rebound"`
	Refreshed int `json:"refreshed"`
	Pruned    int `json:"pruned"`
}

// Reconcile repairs a window's record against the live snapshot after tab
// ids were reassigned (browser restart, session restore). Each tab entry's
// cached id is re-bound to the live tab with the same URL, or cleared when
// none exists; group entries get fresh member URLs and indexes.
func Reconcile(ctx context.Context, d Deps, input ReconcileInput) (*ReconcileOutput, error) {
	windowID, err := resolveWindow(ctx, d, input.WindowID)
	if err != nil {
		return nil, err
	}
	tabs, groups, err := snapshot(ctx, d, windowID)
	if err != nil {
		return nil, err
	}
	live := newLiveIndex(tabs, groups)

	out := &ReconcileOutput{WindowID: windowID}
	err = updateAssignments(ctx, d, windowID, "reconcile", func(as workspace.Assignments) (bool, error) {
		*out = ReconcileOutput{WindowID: windowID}
		for _, a := range as {
			reconcileTabs(a, live, input.Prune, out)
			reconcileGroups(a, live, input.Prune, out)
		}
		return out.Rebound+out.Refreshed+out.Pruned > 0, nil
	})
	if err != nil {
		return nil, err
	}
	d.log().Info("reconciled",
		zap.Int("window_id", windowID),
		zap.Int("rebound", out.Rebound),
		zap.Int("refreshed", out.Refreshed),
		zap.Int("pruned", out.Pruned))
	return out, nil
}

type liveIndex struct {
	byID    map[int]host.Tab
	byURL   map[string][]host.Tab // index order
	members map[string][]host.Tab // group fingerprint -> member tabs
}

func newLiveIndex(tabs []host.Tab, groups []host.Group) *liveIndex {
	sorted := append([]host.Tab(nil), tabs...)
	slices.SortStableFunc(sorted, func(a, b host.Tab) int { return a.Index - b.Index })

	fps := make(map[int]string, len(groups))
	for _, g := range groups {
		fps[g.ID] = workspace.GroupFingerprintOf(g)
	}
	idx := &liveIndex{
		byID:    make(map[int]host.Tab, len(tabs)),
		byURL:   make(map[string][]host.Tab),
		members: make(map[string][]host.Tab),
	}
	for _, t := range sorted {
		idx.byID[t.ID] = t
		if u := workspace.TabFingerprint(t); u != "" {
			idx.byURL[u] = append(idx.byURL[u], t)
		}
		if fp, ok := fps[t.GroupID]; ok && t.Grouped() {
			idx.members[fp] = append(idx.members[fp], t)
		}
	}
	// Groups with no tabs are still live
	for _, fp := range fps {
		if _, ok := idx.members[fp]; !ok {
			idx.members[fp] = nil
		}
	}
	return idx
}

func reconcileTabs(a *workspace.Assignment, live *liveIndex, prune bool, out *ReconcileOutput) {
	bound := make(map[int]bool)
	kept := a.Tabs[:0]
	for _, e := range a.Tabs {
		url := workspace.NormalizeURL(e.URL)

		// Cached id still points at the same page
		if e.TabID != nil {
			if t, ok := live.byID[*e.TabID]; ok && (url == "" || workspace.URLsMatch(workspace.TabFingerprint(t), url)) && !bound[t.ID] {
				bound[t.ID] = true
				if e.Index != t.Index {
					e.Index = t.Index
					out.Refreshed++
				}
				kept = append(kept, e)
				continue
			}
		}

		var match *host.Tab
		for _, t := range live.byURL[url] {
			if !bound[t.ID] {
				match = &t
				break
			}
		}
		switch {
		case match != nil:
			bound[match.ID] = true
			e.TabID = intPtr(match.ID)
			e.Index = match.Index
			out.Rebound++
		case prune:
			out.Pruned++
			continue
		case e.TabID != nil:
			e.TabID = nil
			out.Rebound++
		}
		kept = append(kept, e)
	}
	a.Tabs = kept
}

func reconcileGroups(a *workspace.Assignment, live *liveIndex, prune bool, out *ReconcileOutput) {
	kept := a.Groups[:0]
	for _, g := range a.Groups {
		members, ok := live.members[g.Fingerprint()]
		if !ok {
			if prune {
				out.Pruned++
				continue
			}
			kept = append(kept, g)
			continue
		}
		urls := make([]string, 0, len(members))
		for _, t := range members {
			if u := workspace.TabFingerprint(t); u != "" {
				urls = append(urls, u)
			}
		}
		index := g.Index
		if len(members) > 0 {
			index = members[0].Index
		}
		if index != g.Index || !slices.Equal(urls, g.TabURLs) {
			g.Index = index
			g.TabURLs = urls
			out.Refreshed++
		}
		kept = append(kept, g)
	}
	a.Groups = kept
}
