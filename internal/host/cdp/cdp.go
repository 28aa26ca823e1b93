// Package cdp is a host.Host over the Chrome DevTools Protocol. It attaches
// to a running browser started with --remote-debugging-port.
//
// CDP has no notion of tab groups, pinning or tab strip order: Groups is
// always empty, MoveTab reports host.ErrUnsupported, and tab indexes follow
// the order the browser lists its targets in. Target ids are mapped to
// small integers that stay stable for the lifetime of the Host.
package cdp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/host"
)

// Host drives a live browser through go-rod.
type Host struct {
	browser *rod.Browser
	log     *zap.Logger
	cancel  context.CancelFunc

	mu        sync.Mutex
	ids       *idMap
	frozen    map[int]bool
	lastFocus int // window id of the last activated tab
}

// Connect attaches to the browser behind a DevTools websocket URL.
func Connect(ctx context.Context, controlURL string, log *zap.Logger) (*Host, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	return &Host{
		browser: b,
		log:     log,
		cancel:  cancel,
		ids:     newIDMap(),
		frozen:  make(map[int]bool),
	}, nil
}

// Close detaches from the browser. Calls made after Close fail; the browser
// itself keeps running.
func (h *Host) Close() error {
	h.cancel()
	return nil
}

// target is one page target with its resolved window.
type target struct {
	info     *proto.TargetTargetInfo
	windowID int
}

// targets lists page targets with their windows, in browser order.
func (h *Host) targets(ctx context.Context) ([]target, error) {
	b := h.browser.Context(ctx)
	res, err := proto.TargetGetTargets{}.Call(b)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	var out []target
	for _, info := range res.TargetInfos {
		if string(info.Type) != "page" {
			continue
		}
		win, err := proto.BrowserGetWindowForTarget{TargetID: info.TargetID}.Call(b)
		if err != nil {
			h.log.Debug("window for target", zap.String("target_id", string(info.TargetID)), zap.Error(err))
			continue
		}
		out = append(out, target{info: info, windowID: int(win.WindowID)})
	}
	return out, nil
}

// visible reports whether a page is the selected tab of its window.
func (h *Host) visible(ctx context.Context, id proto.TargetTargetID) bool {
	page, err := h.browser.Context(ctx).PageFromTarget(id)
	if err != nil {
		return false
	}
	obj, err := page.Context(ctx).Eval(`() => document.visibilityState`)
	if err != nil {
		return false
	}
	return obj.Value.Str() == "visible"
}

func (h *Host) snapshot(ctx context.Context) ([]host.Tab, error) {
	ts, err := h.targets(ctx)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	infos := make([]targetInfo, len(ts))
	for i, t := range ts {
		infos[i] = targetInfo{
			ID:       h.ids.get(t.info.TargetID),
			WindowID: t.windowID,
			URL:      t.info.URL,
			Title:    t.info.Title,
		}
		infos[i].Discarded = h.frozen[infos[i].ID]
	}
	h.mu.Unlock()

	for i, t := range ts {
		if !infos[i].Discarded {
			infos[i].Active = h.visible(ctx, t.info.TargetID)
		}
	}
	return buildTabs(infos), nil
}

// CurrentWindow implements host.Host: the window of the last activated tab,
// else the first window with a visible tab.
func (h *Host) CurrentWindow(ctx context.Context) (host.Window, error) {
	tabs, err := h.snapshot(ctx)
	if err != nil {
		return host.Window{}, err
	}
	h.mu.Lock()
	last := h.lastFocus
	h.mu.Unlock()
	return currentWindow(tabs, last)
}

// Tabs implements host.Host.
func (h *Host) Tabs(ctx context.Context, windowID int) ([]host.Tab, error) {
	tabs, err := h.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]host.Tab, 0, len(tabs))
	for _, t := range tabs {
		if t.WindowID == windowID {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, host.ErrNotFound
	}
	return out, nil
}

// Groups implements host.Host. CDP exposes no tab groups.
func (h *Host) Groups(ctx context.Context, windowID int) ([]host.Group, error) {
	return nil, nil
}

// Tab implements host.Host.
func (h *Host) Tab(ctx context.Context, tabID int) (host.Tab, error) {
	tabs, err := h.snapshot(ctx)
	if err != nil {
		return host.Tab{}, err
	}
	for _, t := range tabs {
		if t.ID == tabID {
			return t, nil
		}
	}
	return host.Tab{}, host.ErrNotFound
}

// Group implements host.Host.
func (h *Host) Group(ctx context.Context, groupID int) (host.Group, error) {
	return host.Group{}, host.ErrNotFound
}

func (h *Host) page(ctx context.Context, tabID int) (*rod.Page, error) {
	h.mu.Lock()
	id, ok := h.ids.target(tabID)
	h.mu.Unlock()
	if !ok {
		return nil, host.ErrNotFound
	}
	page, err := h.browser.Context(ctx).PageFromTarget(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", host.ErrNotFound, err)
	}
	return page.Context(ctx), nil
}

// Discard implements host.Host by freezing the page's lifecycle.
func (h *Host) Discard(ctx context.Context, tabID int) error {
	page, err := h.page(ctx, tabID)
	if err != nil {
		return err
	}
	if err := (proto.PageSetWebLifecycleState{State: "frozen"}).Call(page); err != nil {
		return fmt.Errorf("freeze tab %d: %w", tabID, err)
	}
	h.mu.Lock()
	h.frozen[tabID] = true
	h.mu.Unlock()
	return nil
}

// Activate implements host.Host. A frozen page is resumed first.
func (h *Host) Activate(ctx context.Context, tabID int) error {
	page, err := h.page(ctx, tabID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	frozen := h.frozen[tabID]
	h.mu.Unlock()
	if frozen {
		if err := (proto.PageSetWebLifecycleState{State: "active"}).Call(page); err != nil {
			return fmt.Errorf("resume tab %d: %w", tabID, err)
		}
	}
	if _, err := page.Activate(); err != nil {
		return fmt.Errorf("activate tab %d: %w", tabID, err)
	}
	win, err := proto.BrowserGetWindowForTarget{TargetID: page.TargetID}.Call(h.browser.Context(ctx))

	h.mu.Lock()
	delete(h.frozen, tabID)
	if err == nil {
		h.lastFocus = int(win.WindowID)
	}
	h.mu.Unlock()
	return nil
}

// MoveTab implements host.Host. CDP cannot reorder the tab strip.
func (h *Host) MoveTab(ctx context.Context, tabID, windowID, index int) error {
	return host.ErrUnsupported
}

// Create implements host.Host. The browser picks the window; CDP opens new
// targets in the most recently focused one.
func (h *Host) Create(ctx context.Context, props host.CreateProps) (host.Tab, error) {
	url := props.URL
	if url == "" {
		url = "chrome://newtab/"
	}
	page, err := h.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url, Background: !props.Active})
	if err != nil {
		return host.Tab{}, fmt.Errorf("create tab: %w", err)
	}
	h.mu.Lock()
	id := h.ids.get(page.TargetID)
	h.mu.Unlock()
	return h.Tab(ctx, id)
}

// Remove implements host.Host.
func (h *Host) Remove(ctx context.Context, tabID int) error {
	page, err := h.page(ctx, tabID)
	if err != nil {
		return err
	}
	if err := page.Close(); err != nil {
		return fmt.Errorf("close tab %d: %w", tabID, err)
	}
	h.mu.Lock()
	h.ids.drop(tabID)
	delete(h.frozen, tabID)
	h.mu.Unlock()
	return nil
}

// idMap assigns small integer ids to CDP target ids.
type idMap struct {
	next     int
	byTarget map[proto.TargetTargetID]int
	byID     map[int]proto.TargetTargetID
}

func newIDMap() *idMap {
	return &idMap{
		next:     1,
		byTarget: make(map[proto.TargetTargetID]int),
		byID:     make(map[int]proto.TargetTargetID),
	}
}

func (m *idMap) get(t proto.TargetTargetID) int {
	if id, ok := m.byTarget[t]; ok {
		return id
	}
	id := m.next
	m.next++
	m.byTarget[t] = id
	m.byID[id] = t
	return id
}

func (m *idMap) target(id int) (proto.TargetTargetID, bool) {
	t, ok := m.byID[id]
	return t, ok
}

func (m *idMap) drop(id int) {
	if t, ok := m.byID[id]; ok {
		delete(m.byTarget, t)
		delete(m.byID, id)
	}
}

// targetInfo is the per-target state buildTabs needs.
type targetInfo struct {
	ID        int
	WindowID  int
	URL       string
	Title     string
	Active    bool
	Discarded bool
}

// buildTabs turns targets into tabs with dense per-window indexes in the
// given order. At most one tab per window is active.
func buildTabs(infos []targetInfo) []host.Tab {
	next := make(map[int]int)
	hasActive := make(map[int]bool)
	tabs := make([]host.Tab, 0, len(infos))
	for _, in := range infos {
		t := host.Tab{
			ID:        in.ID,
			WindowID:  in.WindowID,
			Index:     next[in.WindowID],
			URL:       in.URL,
			Title:     in.Title,
			Discarded: in.Discarded,
			GroupID:   host.NoGroup,
		}
		next[in.WindowID]++
		if in.Active && !hasActive[in.WindowID] {
			t.Active = true
			hasActive[in.WindowID] = true
		}
		tabs = append(tabs, t)
	}
	return tabs
}

// currentWindow picks lastFocus when it still has tabs, else the first
// window with an active tab, else the lowest window id.
func currentWindow(tabs []host.Tab, lastFocus int) (host.Window, error) {
	if len(tabs) == 0 {
		return host.Window{}, host.ErrNotFound
	}
	var ids []int
	seen := make(map[int]bool)
	for _, t := range tabs {
		if t.WindowID == lastFocus && lastFocus != 0 {
			return host.Window{ID: lastFocus, Focused: true}, nil
		}
		if !seen[t.WindowID] {
			seen[t.WindowID] = true
			ids = append(ids, t.WindowID)
		}
	}
	for _, t := range tabs {
		if t.Active {
			return host.Window{ID: t.WindowID, Focused: true}, nil
		}
	}
	sort.Ints(ids)
	return host.Window{ID: ids[0], Focused: true}, nil
}

var _ host.Host = (*Host)(nil)
