package workspace

import (
	"sort"

	"github.com/hpungsan/tabspace/internal/host"
)

// Item is one row of the combined tab list: a pinned tab, a loose tab, or
// a group together with its tabs. The set of implementations is closed.
type Item interface {
	Index() int
	item()
}

// PinnedTab is a pinned tab.
type PinnedTab struct {
	Tab host.Tab
}

// LooseTab is an unpinned tab outside any group.
type LooseTab struct {
	Tab host.Tab
}

// GroupItem is a tab group and its member tabs in index order.
type GroupItem struct {
	Group host.Group
	Tabs  []host.Tab
}

func (p PinnedTab) Index() int { return p.Tab.Index }
func (l LooseTab) Index() int  { return l.Tab.Index }

// Index is the index of the group's first tab.
func (g GroupItem) Index() int {
	if len(g.Tabs) == 0 {
		return -1
	}
	return g.Tabs[0].Index
}

func (PinnedTab) item() {}
func (LooseTab) item()  {}
func (GroupItem) item() {}

// BuildItems combines a window's tabs and groups into items ordered by
// native index. Groups without tabs are omitted; a tab whose group is
// missing from groups still forms a group item carrying only the id.
func BuildItems(tabs []host.Tab, groups []host.Group) []Item {
	sorted := append([]host.Tab(nil), tabs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	byID := make(map[int]host.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	var items []Item
	pos := make(map[int]int) // group id -> position in items
	for _, t := range sorted {
		switch {
		case t.Pinned:
			items = append(items, PinnedTab{Tab: t})
		case t.Grouped():
			if i, ok := pos[t.GroupID]; ok {
				gi := items[i].(GroupItem)
				gi.Tabs = append(gi.Tabs, t)
				items[i] = gi
				continue
			}
			g, ok := byID[t.GroupID]
			if !ok {
				g = host.Group{ID: t.GroupID, WindowID: t.WindowID}
			}
			pos[t.GroupID] = len(items)
			items = append(items, GroupItem{Group: g, Tabs: []host.Tab{t}})
		default:
			items = append(items, LooseTab{Tab: t})
		}
	}
	return items
}

// Tabs flattens items into their tabs sorted by native index.
func Tabs(items []Item) []host.Tab {
	var out []host.Tab
	for _, it := range items {
		switch v := it.(type) {
		case PinnedTab:
			out = append(out, v.Tab)
		case LooseTab:
			out = append(out, v.Tab)
		case GroupItem:
			out = append(out, v.Tabs...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
