package ops

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabspace/internal/config"
	"github.com/hpungsan/tabspace/internal/host"
	"github.com/hpungsan/tabspace/internal/host/memhost"
	"github.com/hpungsan/tabspace/internal/metrics"
	"github.com/hpungsan/tabspace/internal/storage"
	"github.com/hpungsan/tabspace/internal/workspace"
)

const win = 1

var errTest = stderrors.New("injected failure")

// fixture wires ops against in-memory storage and a fake browser.
type fixture struct {
	d     Deps
	host  *memhost.Host
	store *storage.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SwitchSettleMs = 0
	h := memhost.New()
	h.AddWindow(win)
	st := storage.NewMemory()
	return &fixture{
		d:     Deps{Storage: st, Host: h, Config: cfg, Metrics: metrics.New()},
		host:  h,
		store: st,
	}
}

func (f *fixture) ctx() context.Context {
	return context.Background()
}

// workspaces registers custom workspaces by id (name = id).
func (f *fixture) workspaces(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := AddWorkspace(f.ctx(), f.d, AddWorkspaceInput{ID: id, Name: id})
		require.NoError(t, err)
	}
}

// tab adds a tab with the given id and URL at the end of window 1.
func (f *fixture) tab(id int, url string) host.Tab {
	return f.host.AddTab(host.Tab{ID: id, WindowID: win, URL: url, Title: url})
}

func (f *fixture) activate(t *testing.T, id int) {
	t.Helper()
	require.NoError(t, f.host.Activate(f.ctx(), id))
}

func (f *fixture) switchTo(t *testing.T, id string) {
	t.Helper()
	_, err := SwitchWorkspace(f.ctx(), f.d, SwitchWorkspaceInput{WindowID: win, WorkspaceID: id})
	require.NoError(t, err)
}

func (f *fixture) assign(t *testing.T, tabID int, wsID string) {
	t.Helper()
	_, err := AddTabToWorkspace(f.ctx(), f.d, AddTabInput{TabID: tabID, WorkspaceID: wsID})
	require.NoError(t, err)
}

func (f *fixture) assignments(t *testing.T) workspace.Assignments {
	t.Helper()
	as, err := LoadAssignments(f.ctx(), f.d, win)
	require.NoError(t, err)
	return as
}

func (f *fixture) activeTabID(t *testing.T) int {
	t.Helper()
	tab, ok := f.host.ActiveTab(win)
	require.True(t, ok, "window must have an active tab")
	return tab.ID
}

// tabURLs lists the URLs recorded for a workspace.
func tabURLs(as workspace.Assignments, wsID string) []string {
	var urls []string
	if a := as[wsID]; a != nil {
		for _, e := range a.Tabs {
			urls = append(urls, e.URL)
		}
	}
	return urls
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func hostTab(id, windowID int, url string) host.Tab {
	return host.Tab{ID: id, WindowID: windowID, URL: url, Title: url}
}
