package ops

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/storage"
	"github.com/hpungsan/tabspace/internal/workspace"
)

func TestLoadWorkspaces_CreatesGeneral(t *testing.T) {
	f := newFixture(t)
	s, err := LoadSettings(f.ctx(), f.d)
	require.NoError(t, err)

	defs, err := LoadWorkspaces(f.ctx(), f.d, s)
	require.NoError(t, err)
	require.Equal(t, []workspace.Definition{workspace.General("General", "home")}, defs)

	// Persisted, so a raw read sees it
	require.NotNil(t, f.store.Raw(KeyWorkspaces))
}

func TestLoadWorkspaces_RepairsList(t *testing.T) {
	f := newFixture(t)
	raw := `[{"id":"work","name":"Work","icon":"","isDefault":true},{"id":"general","name":"Old","icon":"star","isDefault":false}]`
	require.NoError(t, f.store.Set(f.ctx(), storage.Record{KeyWorkspaces: json.RawMessage(raw)}))

	f.d.Config.GeneralName = "Everything"
	s, err := LoadSettings(f.ctx(), f.d)
	require.NoError(t, err)
	defs, err := LoadWorkspaces(f.ctx(), f.d, s)
	require.NoError(t, err)

	require.Len(t, defs, 2)
	require.Equal(t, "work", defs[0].ID)
	require.False(t, defs[0].IsDefault, "only general is default")
	require.Equal(t, workspace.Definition{ID: "general", Name: "Everything", Icon: "star", IsDefault: true}, defs[1])
}

func TestAddWorkspace(t *testing.T) {
	f := newFixture(t)

	def, err := AddWorkspace(f.ctx(), f.d, AddWorkspaceInput{Name: "  Research ", Icon: "book"})
	require.NoError(t, err)
	require.Equal(t, "Research", def.Name)
	require.Len(t, def.ID, 26, "generated ids are ULIDs")
	require.False(t, def.IsDefault)

	_, err = AddWorkspace(f.ctx(), f.d, AddWorkspaceInput{ID: def.ID, Name: "Again"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = AddWorkspace(f.ctx(), f.d, AddWorkspaceInput{Name: " "})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = AddWorkspace(f.ctx(), f.d, AddWorkspaceInput{ID: "general", Name: "Mine"})
	require.True(t, errors.Is(err, errors.ErrProtectedWorkspace))

	s, _ := LoadSettings(f.ctx(), f.d)
	defs, err := LoadWorkspaces(f.ctx(), f.d, s)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	require.Equal(t, workspace.GeneralID, defs[0].ID)
}

func TestRemoveWorkspace_GeneralIsNoop(t *testing.T) {
	f := newFixture(t)
	out, err := RemoveWorkspace(f.ctx(), f.d, workspace.GeneralID)
	require.NoError(t, err)
	require.False(t, out.Removed)

	s, _ := LoadSettings(f.ctx(), f.d)
	defs, err := LoadWorkspaces(f.ctx(), f.d, s)
	require.NoError(t, err)
	require.Len(t, defs, 1)
}

func TestRemoveWorkspace_Cascades(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work", "home")
	f.tab(10, "https://a.com")
	f.tab(11, "https://b.com")
	f.assign(t, 10, "work")
	f.assign(t, 11, "home")
	f.switchTo(t, "work")
	require.NoError(t, SaveLastActiveTab(f.ctx(), f.d, win, "work", 10))

	out, err := RemoveWorkspace(f.ctx(), f.d, "work")
	require.NoError(t, err)
	require.True(t, out.Removed)
	require.Equal(t, []int{win}, out.ResetWindows)

	s, _ := LoadSettings(f.ctx(), f.d)
	active, err := GetActiveWorkspace(f.ctx(), f.d, s, win)
	require.NoError(t, err)
	require.Equal(t, workspace.GeneralID, active.ID)

	as := f.assignments(t)
	require.NotContains(t, as, "work")
	require.Equal(t, []string{"https://b.com"}, tabURLs(as, "home"))

	_, ok, err := LastActiveTab(f.ctx(), f.d, win, "work")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = RemoveWorkspace(f.ctx(), f.d, "work")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUpdateWorkspace(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work")

	def, err := UpdateWorkspace(f.ctx(), f.d, UpdateWorkspaceInput{ID: "work", Name: strPtr("Office"), Icon: strPtr("desk")})
	require.NoError(t, err)
	require.Equal(t, "Office", def.Name)
	require.Equal(t, "desk", def.Icon)

	_, err = UpdateWorkspace(f.ctx(), f.d, UpdateWorkspaceInput{ID: "work", IsDefault: boolPtr(true)})
	require.True(t, errors.Is(err, errors.ErrProtectedWorkspace))

	_, err = UpdateWorkspace(f.ctx(), f.d, UpdateWorkspaceInput{ID: "work", Name: strPtr("  ")})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = UpdateWorkspace(f.ctx(), f.d, UpdateWorkspaceInput{ID: "nope", Icon: strPtr("x")})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUpdateWorkspace_GeneralOnlyTakesIcon(t *testing.T) {
	f := newFixture(t)

	def, err := UpdateWorkspace(f.ctx(), f.d, UpdateWorkspaceInput{
		ID:        workspace.GeneralID,
		Name:      strPtr("Renamed"),
		Icon:      strPtr("globe"),
		IsDefault: boolPtr(false),
	})
	require.NoError(t, err)
	require.Equal(t, workspace.GeneralID, def.ID)
	require.Equal(t, "General", def.Name)
	require.Equal(t, "globe", def.Icon)
	require.True(t, def.IsDefault)

	s, _ := LoadSettings(f.ctx(), f.d)
	defs, err := LoadWorkspaces(f.ctx(), f.d, s)
	require.NoError(t, err)
	require.Equal(t, "globe", defs[0].Icon, "stored icon survives the settings refresh")
}

func TestReorderWorkspaces(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "a", "b", "c")

	defs, err := ReorderWorkspaces(f.ctx(), f.d, []string{"c", "a"})
	require.NoError(t, err)
	var ids []string
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	require.Equal(t, []string{"general", "c", "a", "b"}, ids)

	// Listing general does not move it off the front
	defs, err = ReorderWorkspaces(f.ctx(), f.d, []string{"b", "general"})
	require.NoError(t, err)
	ids = ids[:0]
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	require.Equal(t, []string{"general", "b", "c", "a"}, ids)

	list, err := ListWorkspaces(f.ctx(), f.d)
	require.NoError(t, err)
	require.Equal(t, workspace.GeneralID, list.Workspaces[0].ID)
	require.Equal(t, 4, list.Count)

	_, err = ReorderWorkspaces(f.ctx(), f.d, []string{"a", "a"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = ReorderWorkspaces(f.ctx(), f.d, []string{"zzz"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = ReorderWorkspaces(f.ctx(), f.d, nil)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRegistry_StorageFailures(t *testing.T) {
	f := newFixture(t)
	f.store.FailGet = errTest
	_, err := AddWorkspace(f.ctx(), f.d, AddWorkspaceInput{Name: "x"})
	require.True(t, errors.Is(err, errors.ErrStorageRead))

	f.store.FailGet = nil
	f.store.FailSet = errTest
	_, err = AddWorkspace(f.ctx(), f.d, AddWorkspaceInput{Name: "x"})
	require.True(t, errors.Is(err, errors.ErrStorageWrite))
}

func TestListWorkspaces(t *testing.T) {
	f := newFixture(t)
	f.workspaces(t, "work", "home")

	out, err := ListWorkspaces(f.ctx(), f.d)
	require.NoError(t, err)
	require.Equal(t, 3, out.Count)
	require.Equal(t, workspace.GeneralID, out.Workspaces[0].ID)
	require.Equal(t, "home", out.Workspaces[2].ID)
}
