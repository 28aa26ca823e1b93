package memhost

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabspace/internal/host"
)

func ids(tabs []host.Tab) []int {
	out := make([]int, len(tabs))
	for i, t := range tabs {
		out[i] = t.ID
	}
	return out
}

func TestAddTab_AssignsIDsAndIndexes(t *testing.T) {
	ctx := context.Background()
	h := New()
	a := h.AddTab(host.Tab{WindowID: 1, URL: "https://a.com"})
	b := h.AddTab(host.Tab{WindowID: 1, URL: "https://b.com"})
	require.Equal(t, 1000, a.ID)
	require.Equal(t, 1001, b.ID)
	require.Equal(t, 1, b.Index)
	require.Equal(t, host.NoGroup, a.GroupID)
	require.False(t, a.Grouped())

	w, err := h.CurrentWindow(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, w.ID)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	snap := `{
		"windows": [{"id": 1, "focused": true}],
		"groups": [{"id": 5, "windowId": 1, "title": "Docs", "color": "blue"}],
		"tabs": [
			{"id": 12, "windowId": 1, "index": 2, "url": "https://c.com"},
			{"id": 10, "windowId": 1, "index": 0, "url": "https://a.com", "active": true},
			{"id": 11, "windowId": 1, "index": 1, "url": "https://b.com", "groupId": 5}
		]
	}`
	h, err := Load(strings.NewReader(snap))
	require.NoError(t, err)

	tabs, err := h.Tabs(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int{10, 11, 12}, ids(tabs))
	require.True(t, tabs[1].Grouped())

	g, err := h.Group(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "Docs", g.Title)

	active, ok := h.ActiveTab(1)
	require.True(t, ok)
	require.Equal(t, 10, active.ID)

	_, err = Load(strings.NewReader("{"))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tabs":[{"id":1,"windowId":3,"url":"https://a.com"}]}`), 0o600))

	h, err := LoadFile(path)
	require.NoError(t, err)
	tab, err := h.Tab(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 3, tab.WindowID)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	h := New()
	h.AddTab(host.Tab{ID: 1, WindowID: 1, Active: true})
	h.AddTab(host.Tab{ID: 2, WindowID: 1})

	require.ErrorIs(t, h.Discard(ctx, 1), ErrActiveDiscard)
	require.NoError(t, h.Discard(ctx, 2))
	require.ErrorIs(t, h.Discard(ctx, 9), host.ErrNotFound)
	require.Equal(t, []int{2}, h.Discarded())

	// Activation reloads a discarded tab
	require.NoError(t, h.Activate(ctx, 2))
	tab, _ := h.Tab(ctx, 2)
	require.True(t, tab.Active)
	require.False(t, tab.Discarded)
	prev, _ := h.Tab(ctx, 1)
	require.False(t, prev.Active)
}

func TestMoveTab(t *testing.T) {
	ctx := context.Background()
	h := New()
	for id := 1; id <= 3; id++ {
		h.AddTab(host.Tab{ID: id, WindowID: 1})
	}

	require.NoError(t, h.MoveTab(ctx, 1, 1, -1))
	tabs, _ := h.Tabs(ctx, 1)
	require.Equal(t, []int{2, 3, 1}, ids(tabs))

	require.NoError(t, h.MoveTab(ctx, 1, 1, 0))
	tabs, _ = h.Tabs(ctx, 1)
	require.Equal(t, []int{1, 2, 3}, ids(tabs))
	require.Equal(t, 2, tabs[2].Index)

	// Across windows
	require.NoError(t, h.MoveTab(ctx, 2, 2, 99))
	tabs, _ = h.Tabs(ctx, 2)
	require.Equal(t, []int{2}, ids(tabs))
	require.Equal(t, 2, tabs[0].WindowID)
}

func TestCreateAndRemove(t *testing.T) {
	ctx := context.Background()
	h := New()
	h.AddTab(host.Tab{ID: 1, WindowID: 1})
	h.AddTab(host.Tab{ID: 2, WindowID: 1, Active: true})
	h.AddTab(host.Tab{ID: 3, WindowID: 1})

	created, err := h.Create(ctx, host.CreateProps{WindowID: 1, Active: true})
	require.NoError(t, err)
	require.Equal(t, "chrome://newtab/", created.URL)
	require.Equal(t, 3, created.Index)
	require.Equal(t, []int{created.ID}, h.Created())
	active, _ := h.ActiveTab(1)
	require.Equal(t, created.ID, active.ID)

	at := 0
	first, err := h.Create(ctx, host.CreateProps{WindowID: 1, URL: "https://x.com", Index: &at})
	require.NoError(t, err)
	require.Equal(t, 0, first.Index)

	_, err = h.Create(ctx, host.CreateProps{WindowID: 9})
	require.ErrorIs(t, err, host.ErrNotFound)

	// Removing the active (last) tab activates the new last tab
	require.NoError(t, h.Remove(ctx, created.ID))
	active, _ = h.ActiveTab(1)
	require.Equal(t, 3, active.ID)
	require.ErrorIs(t, h.Remove(ctx, created.ID), host.ErrNotFound)
}

func TestFailureInjection(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("boom")
	h := New()
	h.AddTab(host.Tab{ID: 1, WindowID: 1})
	h.FailTab[1] = boom
	h.FailActivate[1] = boom
	h.FailDiscard[1] = boom
	h.FailTabs = boom
	h.FailCreate = boom
	h.FailMove = boom

	_, err := h.Tab(ctx, 1)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, h.Activate(ctx, 1), boom)
	require.ErrorIs(t, h.Discard(ctx, 1), boom)
	_, err = h.Tabs(ctx, 1)
	require.ErrorIs(t, err, boom)
	_, err = h.Create(ctx, host.CreateProps{WindowID: 1})
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, h.MoveTab(ctx, 1, 1, 0), boom)
}
