package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "axisz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleProject() types.ProjectDataRaw {
	return types.ProjectDataRaw{
		Name:    "Lomas",
		General: types.NewRow("PROMOCIÓN", "Lomas del Río", "CÓDIGO", 17.0),
		Units: []types.Row{
			types.NewRow("ZETA", 1.0, "ALFA", "1A", "MEDIO", nil),
			types.NewRow("ZETA", 2.0, "ALFA", "1B", "MEDIO", "x"),
		},
		Garages: []types.Row{types.NewRow("ID-G", "G-01")},
	}
}

func TestSaveAndLoadProject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProject(ctx, sampleProject()))

	raw, err := s.LoadProject(ctx, "Lomas")
	require.NoError(t, err)

	assert.Equal(t, "Lomas", raw.Name)
	v, _ := raw.General.Get("CÓDIGO")
	assert.Equal(t, 17.0, v)

	require.Len(t, raw.Units, 2)
	assert.Equal(t, []string{"ZETA", "ALFA", "MEDIO"}, raw.Units[0].Keys())
	v, ok := raw.Units[0].Get("MEDIO")
	assert.True(t, ok)
	assert.Nil(t, v)

	require.Len(t, raw.Garages, 1)
	assert.Empty(t, raw.Storages)
}

func TestLoadProjectNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadProject(context.Background(), "nada")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestSaveTableReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProject(ctx, sampleProject()))
	require.NoError(t, s.SaveTable(ctx, "Lomas", types.TableUnits, []types.Row{
		types.NewRow("ALFA", "2C"),
	}))

	raw, err := s.LoadProject(ctx, "Lomas")
	require.NoError(t, err)
	require.Len(t, raw.Units, 1)
	v, _ := raw.Units[0].Get("ALFA")
	assert.Equal(t, "2C", v)

	// The other tables are untouched.
	assert.Len(t, raw.Garages, 1)
}

func TestSaveTableGeneralAsArray(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTable(ctx, "Pinar", types.TableGeneral, []types.Row{
		types.NewRow("PROMOCIÓN", "Pinar"),
	}))

	raw, err := s.LoadProject(ctx, "Pinar")
	require.NoError(t, err)
	v, _ := raw.General.Get("PROMOCIÓN")
	assert.Equal(t, "Pinar", v)
}

func TestSaveRejectsEmptyName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.SaveProject(ctx, types.ProjectDataRaw{Name: "  "}))
	assert.Error(t, s.SaveTable(ctx, "", types.TableUnits, nil))
}

func TestListAndDeleteProjects(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.now = func() time.Time { return time.Unix(1735689600, 0) }
	require.NoError(t, s.SaveProject(ctx, sampleProject()))
	s.now = func() time.Time { return time.Unix(1735776000, 0) }
	require.NoError(t, s.SaveTable(ctx, "Abetos", types.TableGarages, []types.Row{}))

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, "Abetos", projects[0].Name)
	assert.Equal(t, []types.TableID{types.TableGarages}, projects[0].Tables)
	assert.Equal(t, int64(1735776000), projects[0].UpdatedAt.Unix())

	assert.Equal(t, "Lomas", projects[1].Name)
	assert.Len(t, projects[1].Tables, 4)

	require.NoError(t, s.DeleteProject(ctx, "Lomas"))
	_, err = s.LoadProject(ctx, "Lomas")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	assert.ErrorIs(t, s.DeleteProject(ctx, "Lomas"), ErrProjectNotFound)
}
