package workspace

import (
	"github.com/hpungsan/tabspace/internal/host"
)

// FilterInput is everything Filter needs. Items must already be ordered;
// Filter never reorders.
type FilterInput struct {
	Items []Item

	// Active is the workspace being shown.
	Active Definition

	// Assignments is the window's record. Nil means the record could not
	// be read; FallbackTabIDs is consulted instead.
	Assignments Assignments

	// Workspaces is the registry list. When non-empty, records for ids not
	// in it are ignored.
	Workspaces []Definition

	SharePinnedTabs bool

	// FallbackTabIDs holds the tab ids claimed by custom workspaces, used
	// only when Assignments is nil. A custom Active shows exactly these
	// tabs; general shows everything else.
	FallbackTabIDs map[int]bool
}

// membership indexes one or more assignment records for lookups.
type membership struct {
	tabIDs map[int]bool
	urls   map[string]bool
	groups map[string]bool

	// byTabID: groups are members when any of their tabs is (fallback mode).
	byTabID bool
}

func newMembership() *membership {
	return &membership{
		tabIDs: make(map[int]bool),
		urls:   make(map[string]bool),
		groups: make(map[string]bool),
	}
}

func (m *membership) add(a *Assignment) {
	if a == nil {
		return
	}
	for _, t := range a.Tabs {
		if t.TabID != nil {
			m.tabIDs[*t.TabID] = true
		}
		if u := NormalizeURL(t.URL); u != "" {
			m.urls[u] = true
		}
	}
	for _, g := range a.Groups {
		m.groups[g.Fingerprint()] = true
	}
}

func (m *membership) hasTab(t host.Tab) bool {
	if m.tabIDs[t.ID] {
		return true
	}
	fp := TabFingerprint(t)
	return fp != "" && m.urls[fp]
}

func (m *membership) hasGroup(g GroupItem) bool {
	if m.byTabID {
		for _, t := range g.Tabs {
			if m.tabIDs[t.ID] {
				return true
			}
		}
		return false
	}
	return m.groups[GroupFingerprintOf(g.Group)]
}

// Filter returns the items visible in the active workspace.
//
// In general an item is visible iff no custom workspace claims it; in a
// custom workspace iff that workspace claims it. Tabs match by cached tab
// id or normalized URL, groups by fingerprint. A grouped tab follows its
// group, whatever its own entry says. Pinned tabs bypass the check when
// SharePinnedTabs is set.
func Filter(in FilterInput) []Item {
	general := in.Active.IsGeneral()
	m := in.membership()

	visible := func(claimed bool) bool {
		if general {
			return !claimed
		}
		return claimed
	}

	out := make([]Item, 0, len(in.Items))
	for _, it := range in.Items {
		var keep bool
		switch v := it.(type) {
		case PinnedTab:
			keep = in.SharePinnedTabs || visible(m.hasTab(v.Tab))
		case LooseTab:
			keep = visible(m.hasTab(v.Tab))
		case GroupItem:
			keep = visible(m.hasGroup(v))
		}
		if keep {
			out = append(out, it)
		}
	}
	return out
}

func (in FilterInput) membership() *membership {
	m := newMembership()
	if in.Assignments == nil {
		if in.FallbackTabIDs != nil {
			m.byTabID = true
			for id, ok := range in.FallbackTabIDs {
				if ok {
					m.tabIDs[id] = true
				}
			}
		}
		return m
	}

	if !in.Active.IsGeneral() {
		m.add(in.Assignments[in.Active.ID])
		return m
	}

	known := make(map[string]bool, len(in.Workspaces))
	for _, d := range in.Workspaces {
		known[d.ID] = true
	}
	for id, a := range in.Assignments {
		if id == GeneralID {
			continue
		}
		if len(known) > 0 && !known[id] {
			continue
		}
		m.add(a)
	}
	return m
}

// Scope returns the tabs visible in the active workspace, by index.
func Scope(in FilterInput) []host.Tab {
	return Tabs(Filter(in))
}
