// Package workspace holds the durable workspace model and the pure
// functions that join it to a live tab snapshot: fingerprinting, matching
// and visibility filtering. Nothing here touches storage or the browser.
package workspace

// GeneralID is the id of the default workspace. It always exists, is never
// deleted and holds every item no custom workspace claims.
const GeneralID = "general"

// Definition is one entry of the ordered workspace list.
type Definition struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	IsDefault bool   `json:"isDefault"`
}

// IsGeneral reports whether d is the general workspace.
func (d Definition) IsGeneral() bool {
	return d.ID == GeneralID
}

// General returns the general workspace definition.
func General(name, icon string) Definition {
	return Definition{ID: GeneralID, Name: name, Icon: icon, IsDefault: true}
}

// Find returns the definition with the given id.
func Find(defs []Definition, id string) (Definition, bool) {
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// GroupAssignment records a tab group by fingerprint, with a snapshot of
// its member URLs taken when it was assigned.
type GroupAssignment struct {
	Title   string   `json:"title"`
	Color   string   `json:"color"`
	Index   int      `json:"index"`
	TabURLs []string `json:"tabUrls"`
}

// Fingerprint returns the group's "<title>|<color>" identity.
func (g GroupAssignment) Fingerprint() string {
	return GroupFingerprint(g.Title, g.Color)
}

// TabAssignment records a tab by URL. TabID is a best-effort cache of the
// session-scoped native id and is only trusted until the browser restarts.
type TabAssignment struct {
	URL              string `json:"url"`
	Title            string `json:"title"`
	Index            int    `json:"index"`
	TabID            *int   `json:"tabId,omitempty"`
	GroupFingerprint string `json:"groupFingerprint,omitempty"`
}

// Matches reports whether the entry refers to the tab with the given id or URL.
func (t TabAssignment) Matches(tabID int, url string) bool {
	if t.TabID != nil && *t.TabID == tabID {
		return true
	}
	return URLsMatch(t.URL, url)
}

// Assignment is what one workspace claims within one window.
type Assignment struct {
	Groups []GroupAssignment `json:"groups"`
	Tabs   []TabAssignment   `json:"tabs"`
}

// Empty reports whether the assignment claims nothing.
func (a *Assignment) Empty() bool {
	return a == nil || (len(a.Groups) == 0 && len(a.Tabs) == 0)
}

// UpsertTab replaces the entry matching e by tab id, then by URL, or
// appends e when nothing matches. Duplicates of the same tab are collapsed.
func (a *Assignment) UpsertTab(e TabAssignment) {
	id := -1
	if e.TabID != nil {
		id = *e.TabID
	}
	kept := a.Tabs[:0]
	placed := false
	for _, t := range a.Tabs {
		if t.Matches(id, e.URL) {
			if !placed {
				kept = append(kept, e)
				placed = true
			}
			continue
		}
		kept = append(kept, t)
	}
	if !placed {
		kept = append(kept, e)
	}
	a.Tabs = kept
}

// RemoveTab drops every entry matching the tab id or URL and reports
// whether anything was removed.
func (a *Assignment) RemoveTab(tabID int, url string) bool {
	if a == nil {
		return false
	}
	kept := a.Tabs[:0]
	for _, t := range a.Tabs {
		if !t.Matches(tabID, url) {
			kept = append(kept, t)
		}
	}
	removed := len(kept) != len(a.Tabs)
	a.Tabs = kept
	return removed
}

// UpsertGroup replaces the entry with the same fingerprint or appends g.
func (a *Assignment) UpsertGroup(g GroupAssignment) {
	fp := g.Fingerprint()
	for i := range a.Groups {
		if a.Groups[i].Fingerprint() == fp {
			a.Groups[i] = g
			a.dropGroupsAfter(i, fp)
			return
		}
	}
	a.Groups = append(a.Groups, g)
}

// dropGroupsAfter drops duplicates of fp that follow position i.
func (a *Assignment) dropGroupsAfter(i int, fp string) {
	kept := a.Groups[:i+1]
	for _, g := range a.Groups[i+1:] {
		if g.Fingerprint() != fp {
			kept = append(kept, g)
		}
	}
	a.Groups = kept
}

// RemoveGroup drops every entry with the fingerprint and reports whether
// anything was removed.
func (a *Assignment) RemoveGroup(fp string) bool {
	if a == nil {
		return false
	}
	kept := a.Groups[:0]
	for _, g := range a.Groups {
		if g.Fingerprint() != fp {
			kept = append(kept, g)
		}
	}
	removed := len(kept) != len(a.Groups)
	a.Groups = kept
	return removed
}

// MaxIndex returns the largest recorded index, or -1 when empty.
func (a *Assignment) MaxIndex() int {
	idx := -1
	if a == nil {
		return idx
	}
	for _, t := range a.Tabs {
		idx = max(idx, t.Index)
	}
	for _, g := range a.Groups {
		idx = max(idx, g.Index)
	}
	return idx
}

// Assignments maps workspace id to its claims in one window. General never
// has an entry: its membership is the complement of the others.
type Assignments map[string]*Assignment

// Ensure returns the assignment for id, creating it if needed.
func (as Assignments) Ensure(id string) *Assignment {
	a, ok := as[id]
	if !ok || a == nil {
		a = &Assignment{Groups: []GroupAssignment{}, Tabs: []TabAssignment{}}
		as[id] = a
	}
	return a
}

// WindowAssignments maps native window id to that window's assignments.
type WindowAssignments map[int]Assignments
