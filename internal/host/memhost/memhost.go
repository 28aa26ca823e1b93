// Package memhost is an in-memory host.Host. It backs tests and the CLI's
// offline mode, where a tab snapshot is read from a JSON file.
package memhost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/hpungsan/tabspace/internal/host"
)

// ErrActiveDiscard mirrors browsers refusing to discard the focused tab.
var ErrActiveDiscard = errors.New("memhost: cannot discard the active tab")

// Snapshot is the JSON shape accepted by Load.
type Snapshot struct {
	Windows []host.Window `json:"windows"`
	Tabs    []host.Tab    `json:"tabs"`
	Groups  []host.Group  `json:"groups"`
}

// Host holds windows, tabs and groups in memory. Tab indexes are kept dense
// per window, the way browsers report them.
type Host struct {
	mu      sync.Mutex
	windows []host.Window
	order   map[int][]int // window id -> tab ids by index
	tabs    map[int]*host.Tab
	groups  map[int]*host.Group
	nextID  int

	discarded []int
	created   []int

	// Failure injection. Keys are tab ids.
	FailTab      map[int]error
	FailDiscard  map[int]error
	FailActivate map[int]error
	FailTabs     error
	FailCreate   error
	FailMove     error
}

// New returns an empty host.
func New() *Host {
	return &Host{
		order:        make(map[int][]int),
		tabs:         make(map[int]*host.Tab),
		groups:       make(map[int]*host.Group),
		nextID:       1000,
		FailTab:      make(map[int]error),
		FailDiscard:  make(map[int]error),
		FailActivate: make(map[int]error),
	}
}

// FromSnapshot builds a host from a snapshot. Tabs are ordered by their
// Index within each window.
func FromSnapshot(s Snapshot) *Host {
	h := New()
	for _, w := range s.Windows {
		h.AddWindow(w.ID)
	}
	for _, g := range s.Groups {
		h.AddGroup(g)
	}
	tabs := append([]host.Tab(nil), s.Tabs...)
	sort.SliceStable(tabs, func(i, j int) bool { return tabs[i].Index < tabs[j].Index })
	for _, t := range tabs {
		h.AddTab(t)
	}
	return h
}

// Load reads a JSON snapshot.
func Load(r io.Reader) (*Host, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return FromSnapshot(s), nil
}

// LoadFile reads a JSON snapshot from path.
func LoadFile(path string) (*Host, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// AddWindow registers a window. The first window becomes the current one.
func (h *Host) AddWindow(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addWindowLocked(id)
}

func (h *Host) addWindowLocked(id int) {
	for _, w := range h.windows {
		if w.ID == id {
			return
		}
	}
	h.windows = append(h.windows, host.Window{ID: id, Focused: len(h.windows) == 0})
}

// AddGroup registers a tab group.
func (h *Host) AddGroup(g host.Group) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addWindowLocked(g.WindowID)
	gc := g
	h.groups[g.ID] = &gc
}

// AddTab appends a tab to its window and returns the stored copy. A zero ID
// is assigned automatically; the Index is recomputed.
func (h *Host) AddTab(t host.Tab) host.Tab {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addWindowLocked(t.WindowID)
	if t.ID == 0 {
		t.ID = h.nextID
		h.nextID++
	}
	if t.GroupID == 0 {
		t.GroupID = host.NoGroup
	}
	tc := t
	h.tabs[t.ID] = &tc
	h.order[t.WindowID] = append(h.order[t.WindowID], t.ID)
	if t.Active {
		h.activateLocked(t.ID)
	}
	h.reindexLocked(t.WindowID)
	return *h.tabs[t.ID]
}

// Snapshot returns the current state.
func (h *Host) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Snapshot{Windows: append([]host.Window(nil), h.windows...)}
	for _, w := range h.windows {
		for _, id := range h.order[w.ID] {
			s.Tabs = append(s.Tabs, *h.tabs[id])
		}
	}
	for _, g := range h.groups {
		s.Groups = append(s.Groups, *g)
	}
	sort.Slice(s.Groups, func(i, j int) bool { return s.Groups[i].ID < s.Groups[j].ID })
	return s
}

// ActiveTab returns the active tab of a window, if any.
func (h *Host) ActiveTab(windowID int) (host.Tab, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range h.order[windowID] {
		if h.tabs[id].Active {
			return *h.tabs[id], true
		}
	}
	return host.Tab{}, false
}

// Discarded returns the ids successfully discarded, in call order.
func (h *Host) Discarded() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.discarded...)
}

// Created returns the ids of tabs opened through Create.
func (h *Host) Created() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.created...)
}

// CurrentWindow implements host.Host.
func (h *Host) CurrentWindow(ctx context.Context) (host.Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.windows {
		if w.Focused {
			return w, nil
		}
	}
	if len(h.windows) > 0 {
		return h.windows[0], nil
	}
	return host.Window{}, host.ErrNotFound
}

// Tabs implements host.Host.
func (h *Host) Tabs(ctx context.Context, windowID int) ([]host.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailTabs != nil {
		return nil, h.FailTabs
	}
	ids, ok := h.order[windowID]
	if !ok && !h.hasWindowLocked(windowID) {
		return nil, host.ErrNotFound
	}
	out := make([]host.Tab, 0, len(ids))
	for _, id := range ids {
		out = append(out, *h.tabs[id])
	}
	return out, nil
}

// Groups implements host.Host.
func (h *Host) Groups(ctx context.Context, windowID int) ([]host.Group, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []host.Group
	for _, g := range h.groups {
		if g.WindowID == windowID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Tab implements host.Host.
func (h *Host) Tab(ctx context.Context, tabID int) (host.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.FailTab[tabID]; err != nil {
		return host.Tab{}, err
	}
	t, ok := h.tabs[tabID]
	if !ok {
		return host.Tab{}, host.ErrNotFound
	}
	return *t, nil
}

// Group implements host.Host.
func (h *Host) Group(ctx context.Context, groupID int) (host.Group, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[groupID]
	if !ok {
		return host.Group{}, host.ErrNotFound
	}
	return *g, nil
}

// Discard implements host.Host.
func (h *Host) Discard(ctx context.Context, tabID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.FailDiscard[tabID]; err != nil {
		return err
	}
	t, ok := h.tabs[tabID]
	if !ok {
		return host.ErrNotFound
	}
	if t.Active {
		return ErrActiveDiscard
	}
	t.Discarded = true
	h.discarded = append(h.discarded, tabID)
	return nil
}

// Activate implements host.Host.
func (h *Host) Activate(ctx context.Context, tabID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.FailActivate[tabID]; err != nil {
		return err
	}
	if _, ok := h.tabs[tabID]; !ok {
		return host.ErrNotFound
	}
	h.activateLocked(tabID)
	return nil
}

// MoveTab implements host.Host. An index past the end moves to the end.
func (h *Host) MoveTab(ctx context.Context, tabID, windowID, index int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailMove != nil {
		return h.FailMove
	}
	t, ok := h.tabs[tabID]
	if !ok {
		return host.ErrNotFound
	}
	h.detachLocked(t)
	h.addWindowLocked(windowID)
	t.WindowID = windowID
	ids := h.order[windowID]
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	ids = append(ids, 0)
	copy(ids[index+1:], ids[index:])
	ids[index] = tabID
	h.order[windowID] = ids
	h.reindexLocked(windowID)
	return nil
}

// Create implements host.Host.
func (h *Host) Create(ctx context.Context, props host.CreateProps) (host.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailCreate != nil {
		return host.Tab{}, h.FailCreate
	}
	if !h.hasWindowLocked(props.WindowID) {
		return host.Tab{}, host.ErrNotFound
	}
	url := props.URL
	if url == "" {
		url = "chrome://newtab/"
	}
	t := &host.Tab{
		ID:       h.nextID,
		WindowID: props.WindowID,
		URL:      url,
		Title:    "New Tab",
		GroupID:  host.NoGroup,
	}
	h.nextID++
	h.tabs[t.ID] = t

	ids := h.order[props.WindowID]
	index := len(ids)
	if props.Index != nil && *props.Index >= 0 && *props.Index < len(ids) {
		index = *props.Index
	}
	ids = append(ids, 0)
	copy(ids[index+1:], ids[index:])
	ids[index] = t.ID
	h.order[props.WindowID] = ids
	h.reindexLocked(props.WindowID)
	if props.Active {
		h.activateLocked(t.ID)
	}
	h.created = append(h.created, t.ID)
	return *t, nil
}

// Remove implements host.Host. Removing the active tab activates the tab
// that took its index, or the new last tab.
func (h *Host) Remove(ctx context.Context, tabID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tabs[tabID]
	if !ok {
		return host.ErrNotFound
	}
	wasActive, windowID, index := t.Active, t.WindowID, t.Index
	h.detachLocked(t)
	delete(h.tabs, tabID)
	if ids := h.order[windowID]; wasActive && len(ids) > 0 {
		if index >= len(ids) {
			index = len(ids) - 1
		}
		h.activateLocked(ids[index])
	}
	return nil
}

func (h *Host) hasWindowLocked(id int) bool {
	for _, w := range h.windows {
		if w.ID == id {
			return true
		}
	}
	return false
}

func (h *Host) activateLocked(tabID int) {
	t := h.tabs[tabID]
	for _, id := range h.order[t.WindowID] {
		h.tabs[id].Active = false
	}
	t.Active = true
	t.Discarded = false
}

func (h *Host) detachLocked(t *host.Tab) {
	ids := h.order[t.WindowID]
	for i, id := range ids {
		if id == t.ID {
			h.order[t.WindowID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	h.reindexLocked(t.WindowID)
}

func (h *Host) reindexLocked(windowID int) {
	for i, id := range h.order[windowID] {
		h.tabs[id].Index = i
	}
}

var _ host.Host = (*Host)(nil)
