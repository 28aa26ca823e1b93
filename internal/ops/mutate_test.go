package ops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/host"
	"github.com/hpungsan/tabspace/internal/workspace"
)

func TestAddTabToWorkspace_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work")
	f.tab(10, "https://a.com")

	for i := 0; i < 2; i++ {
		out, err := AddTabToWorkspace(f.ctx(), f.d, AddTabInput{TabID: 10, WorkspaceID: "work"})
		require.NoError(t, err)
		require.Equal(t, win, out.WindowID)
		require.Equal(t, "https://a.com", out.Fingerprint)
	}

	as := f.assignments(t)
	require.Len(t, as["work"].Tabs, 1)
	e := as["work"].Tabs[0]
	require.Equal(t, 10, *e.TabID)
	require.Equal(t, "https://a.com", e.Title)
	require.Equal(t, 0, e.Index)
}

func TestAddTabToWorkspace_Exclusive(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work", "home", "play")
	f.tab(10, "https://a.com")

	for _, ws := range []string{"work", "home", "play", "home"} {
		f.assign(t, 10, ws)
		as := f.assignments(t)
		claimed := 0
		for id := range as {
			if len(tabURLs(as, id)) > 0 {
				claimed++
			}
		}
		require.Equal(t, 1, claimed, "after assigning to %s", ws)
		require.Equal(t, []string{"https://a.com"}, tabURLs(as, ws))
	}
}

func TestAddTabToWorkspace_GeneralDetaches(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work")
	f.tab(10, "https://a.com")
	f.assign(t, 10, "work")

	f.assign(t, 10, workspace.GeneralID)
	as := f.assignments(t)
	require.Empty(t, as, "general is never stored")
}

func TestAddTabToWorkspace_URLDeduplication(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work", "home")
	f.tab(10, "https://a.com")
	f.tab(11, "https://a.com")
	f.assign(t, 10, "home")

	// Same URL elsewhere is removed by default
	f.assign(t, 11, "work")
	as := f.assignments(t)
	require.Empty(t, tabURLs(as, "home"))

	// ... but kept when deduplication is skipped
	f.assign(t, 10, "home")
	_, err := AddTabToWorkspace(f.ctx(), f.d, AddTabInput{TabID: 11, WorkspaceID: "work", SkipURLDeduplication: true})
	require.NoError(t, err)
	as = f.assignments(t)
	require.Equal(t, []string{"https://a.com"}, tabURLs(as, "home"))
	require.Equal(t, []string{"https://a.com"}, tabURLs(as, "work"))
}

func TestAddTabToWorkspace_RecordsGroup(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work")
	f.host.AddGroup(host.Group{ID: 5, WindowID: win, Title: "Docs", Color: "blue"})
	f.host.AddTab(host.Tab{ID: 10, WindowID: win, URL: "https://a.com", GroupID: 5})

	f.assign(t, 10, "work")
	require.Equal(t, "Docs|blue", f.assignments(t)["work"].Tabs[0].GroupFingerprint)
}

func TestAddTabToWorkspace_Errors(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work")
	f.tab(10, "https://a.com")

	_, err := AddTabToWorkspace(f.ctx(), f.d, AddTabInput{TabID: 99, WorkspaceID: "work"})
	require.True(t, errors.Is(err, errors.ErrHostLookup))

	_, err = AddTabToWorkspace(f.ctx(), f.d, AddTabInput{TabID: 10, WorkspaceID: "missing"})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = AddTabToWorkspace(f.ctx(), f.d, AddTabInput{TabID: 10})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	f.d.Host = nil
	_, err = AddTabToWorkspace(f.ctx(), f.d, AddTabInput{TabID: 10, WorkspaceID: "work"})
	require.True(t, errors.Is(err, errors.ErrHostUnavailable))
}

func TestAddGroupToWorkspace(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work", "home")
	f.tab(9, "https://loose.com")
	f.host.AddGroup(host.Group{ID: 5, WindowID: win, Title: "Docs", Color: "blue"})
	f.host.AddTab(host.Tab{ID: 10, WindowID: win, URL: "https://a.com", GroupID: 5})
	f.host.AddTab(host.Tab{ID: 11, WindowID: win, URL: "https://b.com", GroupID: 5})

	_, err := AddGroupToWorkspace(f.ctx(), f.d, AddGroupInput{GroupID: 5, WorkspaceID: "home"})
	require.NoError(t, err)
	out, err := AddGroupToWorkspace(f.ctx(), f.d, AddGroupInput{GroupID: 5, WorkspaceID: "work"})
	require.NoError(t, err)
	require.Equal(t, "Docs|blue", out.Fingerprint)
	require.Equal(t, 1, *out.Index)

	as := f.assignments(t)
	require.Nil(t, as["home"])
	require.Equal(t, []workspace.GroupAssignment{{
		Title: "Docs", Color: "blue", Index: 1, TabURLs: []string{"https://a.com", "https://b.com"},
	}}, as["work"].Groups)

	_, err = AddGroupToWorkspace(f.ctx(), f.d, AddGroupInput{GroupID: 77, WorkspaceID: "work"})
	require.True(t, errors.Is(err, errors.ErrHostLookup))

	_, err = AddGroupToWorkspace(f.ctx(), f.d, AddGroupInput{GroupID: 5, WorkspaceID: workspace.GeneralID})
	require.NoError(t, err)
	require.Empty(t, f.assignments(t))
}

func TestRemoveTabFromAllWorkspaces(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work")
	f.tab(10, "https://a.com")
	f.assign(t, 10, "work")

	out, err := RemoveTabFromAllWorkspaces(f.ctx(), f.d, RemoveTabInput{TabID: 10})
	require.NoError(t, err)
	require.True(t, out.Removed)

	// Idempotent
	out, err = RemoveTabFromAllWorkspaces(f.ctx(), f.d, RemoveTabInput{TabID: 10})
	require.NoError(t, err)
	require.False(t, out.Removed)
	require.Empty(t, f.assignments(t))
}

func TestRemoveTabFromAllWorkspaces_ClosedTab(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work")
	f.tab(10, "https://a.com")
	f.assign(t, 10, "work")
	require.NoError(t, f.host.Remove(f.ctx(), 10))

	_, err := RemoveTabFromAllWorkspaces(f.ctx(), f.d, RemoveTabInput{TabID: 10})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "window is needed once the host forgot the tab")

	out, err := RemoveTabFromAllWorkspaces(f.ctx(), f.d, RemoveTabInput{TabID: 10, WindowID: win})
	require.NoError(t, err)
	require.True(t, out.Removed)
}

func TestRemoveGroupFromAllWorkspaces(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work")
	f.host.AddGroup(host.Group{ID: 5, WindowID: win, Title: "Docs", Color: "blue"})
	f.host.AddTab(host.Tab{ID: 10, WindowID: win, URL: "https://a.com", GroupID: 5})
	_, err := AddGroupToWorkspace(f.ctx(), f.d, AddGroupInput{GroupID: 5, WorkspaceID: "work"})
	require.NoError(t, err)

	out, err := RemoveGroupFromAllWorkspaces(f.ctx(), f.d, RemoveGroupInput{GroupID: 5})
	require.NoError(t, err)
	require.True(t, out.Removed)

	out, err = RemoveGroupFromAllWorkspaces(f.ctx(), f.d, RemoveGroupInput{GroupID: 5})
	require.NoError(t, err)
	require.False(t, out.Removed)

	// By fingerprint, without asking the host
	f.d.Host = nil
	out, err = RemoveGroupFromAllWorkspaces(f.ctx(), f.d, RemoveGroupInput{
		GroupID: 5, WindowID: win, Title: strPtr("Docs"), Color: strPtr("blue"),
	})
	require.NoError(t, err)
	require.False(t, out.Removed)
}

func TestMoveTabToWorkspaceEnd(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work", "home")
	f.tab(10, "https://a.com")
	f.tab(11, "https://b.com")
	f.tab(12, "https://c.com")
	f.tab(13, "https://d.com")
	f.assign(t, 10, "work")
	f.assign(t, 12, "work")
	f.assign(t, 11, "home")

	out, err := MoveTabToWorkspaceEnd(f.ctx(), f.d, MoveTabEndInput{TabID: 11, WorkspaceID: "work"})
	require.NoError(t, err)
	require.Equal(t, 3, *out.Index, "one past the last index in work's scope")

	as := f.assignments(t)
	require.Empty(t, tabURLs(as, "home"))
	require.Equal(t, []string{"https://a.com", "https://c.com", "https://b.com"}, tabURLs(as, "work"))

	moved, err := f.host.Tab(f.ctx(), 11)
	require.NoError(t, err)
	require.Equal(t, 3, moved.Index, "physically moved to the end of the window")
}
