package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/axisz-resolver/internal/config"
	"github.com/ginjaninja78/axisz-resolver/internal/errorlog"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/store"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

const lomasJSON = `{
  "proyecto_nombre": "Lomas",
  "ds_generales": {"PROMOCIÓN": "Lomas del Río", "CÓDIGO": "LR-01"},
  "ts_general": [
    {"_VIVIENDAS": "1A", "GESTIÓN_ESTADO": " reservada "},
    {"_VIVIENDAS": "1B", "GESTIÓN_ESTADO": "Disponible"}
  ]
}`

type testEnv struct {
	cfg   *config.MainConfig
	store *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()

	cfg := config.DefaultMainConfig()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "input_archive")
	cfg.MaxConcurrency = 2
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))

	st, err := store.Open(filepath.Join(root, "axisz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return &testEnv{cfg: cfg, store: st}
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.cfg.InputDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func garagesProfile() *config.SourceProfile {
	p := &config.SourceProfile{
		ProfileName:          "pinar-garajes",
		FileMatchingPatterns: []string{"pinar_*.csv"},
		ProjectName:          "Pinar",
		Table:                "garajes",
		CSVSettings:          config.CSVSettings{Delimiter: ";"},
		TransformationRules: []config.TransformationRule{{
			Field:   "ID-G",
			Actions: []config.TransformationAction{{Type: ActionPrepend, Value: "G-"}},
		}},
	}
	config.ApplyProfileDefaults(p)
	return p
}

// =============================================================================
// READ
// =============================================================================

func TestReadJSON(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "lomas.json", lomasJSON)

	c := New(env.cfg, schema.Default(), env.store)
	in, err := c.Read(path)
	require.NoError(t, err)

	assert.Equal(t, "Lomas", in.Raw.Name)
	assert.Equal(t, []types.TableID{types.TableGeneral, types.TableUnits}, in.Tables)
	assert.Equal(t, 3, in.Rows)
	assert.Equal(t, []string{"PROMOCIÓN", "CÓDIGO"}, in.Raw.General.Keys())
}

func TestReadCSVWithProfile(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "pinar_2025.csv", "ID-G;ESTADO\n01;Libre\n02;Vendida\n")

	c := New(env.cfg, schema.Default(), env.store, WithProfiles([]*config.SourceProfile{garagesProfile()}))
	in, err := c.Read(path)
	require.NoError(t, err)

	assert.Equal(t, "Pinar", in.Raw.Name)
	assert.Equal(t, []types.TableID{types.TableGarages}, in.Tables)
	assert.Equal(t, 2, in.Transformed)
	require.Len(t, in.Raw.Garages, 2)
	v, _ := in.Raw.Garages[1].Get("ID-G")
	assert.Equal(t, "G-02", v)
}

func TestReadRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "lomas.txt", "hola")

	_, err := New(env.cfg, schema.Default(), env.store).Read(path)
	assert.Error(t, err)
}

func TestReadJSONWithoutTables(t *testing.T) {
	env := newTestEnv(t)
	path := env.write(t, "vacio.json", `{"proyecto_nombre": "Vacío"}`)

	_, err := New(env.cfg, schema.Default(), env.store).Read(path)
	assert.Error(t, err)
}

func TestProjectOf(t *testing.T) {
	env := newTestEnv(t)
	lomas := env.write(t, "export_2025.json", lomasJSON)
	unnamed := env.write(t, "cerezo.json", `{"ts_general": []}`)

	c := New(env.cfg, schema.Default(), env.store, WithProfiles([]*config.SourceProfile{garagesProfile()}))
	assert.Equal(t, "Lomas", c.ProjectOf(lomas))
	assert.Equal(t, "cerezo", c.ProjectOf(unnamed))
	assert.Equal(t, "Pinar", c.ProjectOf(filepath.Join(env.cfg.InputDir, "pinar_01.csv")))
	assert.Equal(t, "olivo", c.ProjectOf(filepath.Join(env.cfg.InputDir, "olivo.xlsx")))
}

// =============================================================================
// PROCESS
// =============================================================================

func TestProcess(t *testing.T) {
	env := newTestEnv(t)
	lomas := env.write(t, "lomas.json", lomasJSON)
	broken := env.write(t, "broken.json", "{")
	pinar := env.write(t, "pinar_2025.csv", "ID-G;ESTADO\n01;Libre\n")

	c := New(env.cfg, schema.Default(), env.store, WithProfiles([]*config.SourceProfile{garagesProfile()}))
	results := c.Process(context.Background(), []string{lomas, broken, pinar})
	require.Len(t, results, 3)

	// Lomas resolves, writes its outputs and is archived.
	r := results[0]
	require.True(t, r.Success, "%v", r.Error)
	assert.Equal(t, "Lomas", r.Project)
	assert.Equal(t, 2, r.Stats.Units)
	assert.FileExists(t, r.OutputFile)
	assert.Equal(t, ".json", filepath.Ext(r.OutputFile))
	require.FileExists(t, r.DiagnosticsFile)
	diagnostics, err := os.ReadFile(r.DiagnosticsFile)
	require.NoError(t, err)
	assert.Contains(t, string(diagnostics), "# Diagnostics: Lomas")
	assert.Contains(t, string(diagnostics), "## Sales")
	assert.Equal(t, filepath.Join(env.cfg.InputArchiveDir, "lomas.json"), r.ArchivePath)
	assert.NoFileExists(t, lomas)

	// Units carrying only an ID leave error records behind.
	assert.Positive(t, r.Stats.ErrorRecords)
	assert.FileExists(t, r.ErrorLogFile)

	// The broken file fails and stays in place.
	assert.False(t, results[1].Success)
	assert.Error(t, results[1].Error)
	assert.FileExists(t, broken)

	assert.True(t, results[2].Success, "%v", results[2].Error)
	assert.Equal(t, 1, results[2].Stats.Garages)

	raw, err := env.store.LoadProject(context.Background(), "Lomas")
	require.NoError(t, err)
	assert.Len(t, raw.Units, 2)

	raw, err = env.store.LoadProject(context.Background(), "Pinar")
	require.NoError(t, err)
	v, _ := raw.Garages[0].Get("ID-G")
	assert.Equal(t, "G-01", v)
}

func TestProcessMergesProjectFiles(t *testing.T) {
	env := newTestEnv(t)
	general := env.write(t, "pinar_general.json", `{"proyecto_nombre": "Pinar", "ds_generales": {"PROMOCIÓN": "Pinar"}}`)
	garages := env.write(t, "pinar_2025.csv", "ID-G;ESTADO\n01;Libre\n")

	c := New(env.cfg, schema.Default(), env.store, WithProfiles([]*config.SourceProfile{garagesProfile()}))
	results := c.Process(context.Background(), []string{general, garages})

	for _, r := range results {
		require.True(t, r.Success, "%v", r.Error)
	}
	// Both files share one resolution.
	assert.Equal(t, results[0].OutputFile, results[1].OutputFile)

	raw, err := env.store.LoadProject(context.Background(), "Pinar")
	require.NoError(t, err)
	assert.Equal(t, 1, raw.General.Len())
	assert.Len(t, raw.Garages, 1)
}

func TestProcessDryRun(t *testing.T) {
	env := newTestEnv(t)
	lomas := env.write(t, "lomas.json", lomasJSON)

	c := New(env.cfg, schema.Default(), nil, WithDryRun(true))
	results := c.Process(context.Background(), []string{lomas})

	require.True(t, results[0].Success, "%v", results[0].Error)
	assert.Equal(t, 2, results[0].Stats.Units)
	assert.Empty(t, results[0].OutputFile)
	assert.FileExists(t, lomas)
	assert.NoDirExists(t, env.cfg.OutputDir)
}

// unitsJSON renders a Lomas snapshot holding only a units table of n rows.
func unitsJSON(n int) string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"_VIVIENDAS": "V-%04d"}`, i)
	}
	return `{"proyecto_nombre": "Lomas", "ts_general": [` + strings.Join(rows, ",") + `]}`
}

func TestProcessLaterFileWins(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.MaxConcurrency = 4
	env.cfg.ArchiveOnSuccess = false
	// The older file is much slower to parse than the newer one.
	older := env.write(t, "lomas_1_old.json", unitsJSON(5000))
	newer := env.write(t, "lomas_2_new.json", unitsJSON(1))
	files := []string{older, newer}

	dry := New(env.cfg, schema.Default(), nil, WithDryRun(true)).Process(context.Background(), files)
	for _, r := range dry {
		require.True(t, r.Success, "%v", r.Error)
		assert.Equal(t, 1, r.Stats.Units)
	}

	stored := New(env.cfg, schema.Default(), env.store).Process(context.Background(), files)
	require.True(t, stored[1].Success, "%v", stored[1].Error)
	assert.Equal(t, 1, stored[1].Stats.Units)

	raw, err := env.store.LoadProject(context.Background(), "Lomas")
	require.NoError(t, err)
	require.Len(t, raw.Units, 1)
	v, _ := raw.Units[0].Get("_VIVIENDAS")
	assert.Equal(t, "V-0000", v)
}

func TestProcessStopsOnError(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.ContinueOnError = false
	env.cfg.MaxConcurrency = 1
	broken := env.write(t, "broken.json", "{")
	lomas := env.write(t, "lomas.json", lomasJSON)

	c := New(env.cfg, schema.Default(), env.store)
	results := c.Process(context.Background(), []string{broken, lomas})

	assert.False(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.ErrorIs(t, results[1].Error, context.Canceled)
	assert.FileExists(t, lomas)
}

func TestProcessXLSXOutput(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.OutputFormat = config.FormatXLSX
	env.cfg.ArchiveOnSuccess = false
	lomas := env.write(t, "lomas.json", lomasJSON)

	results := New(env.cfg, schema.Default(), env.store).Process(context.Background(), []string{lomas})

	require.True(t, results[0].Success, "%v", results[0].Error)
	assert.Equal(t, ".xlsx", filepath.Ext(results[0].OutputFile))
	assert.FileExists(t, lomas)
	assert.Empty(t, results[0].ArchivePath)
}

// =============================================================================
// RESOLVE
// =============================================================================

type failingStore struct{}

func (failingStore) SaveTable(context.Context, string, types.TableID, any) error {
	return os.ErrPermission
}

func (failingStore) SaveProject(context.Context, types.ProjectDataRaw) error {
	return os.ErrPermission
}

func (failingStore) LoadProject(_ context.Context, name string) (types.ProjectDataRaw, error) {
	return types.ProjectDataRaw{Name: name}, store.ErrProjectNotFound
}

func TestStoreFailuresAreRecorded(t *testing.T) {
	env := newTestEnv(t)
	c := New(env.cfg, schema.Default(), failingStore{})
	log := errorlog.New()

	_, err := c.Resolve(context.Background(), "Lomas", log)
	assert.ErrorIs(t, err, store.ErrProjectNotFound)

	in := &Ingested{Raw: types.ProjectDataRaw{Name: "Lomas"}, Tables: []types.TableID{types.TableUnits}}
	err = c.Save(context.Background(), in, log)
	assert.ErrorIs(t, err, os.ErrPermission)

	in.Tables = types.AllTables
	err = c.Save(context.Background(), in, log)
	assert.ErrorIs(t, err, os.ErrPermission)

	entries := log.All()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, ContextStore, e.Context)
		assert.Equal(t, RefStore, e.ReferenceID)
	}
}

// countingStore wraps a store and counts how it is written to.
type countingStore struct {
	*store.Store
	tables, projects int
}

func (s *countingStore) SaveTable(ctx context.Context, project string, table types.TableID, data any) error {
	s.tables++
	return s.Store.SaveTable(ctx, project, table, data)
}

func (s *countingStore) SaveProject(ctx context.Context, raw types.ProjectDataRaw) error {
	s.projects++
	return s.Store.SaveProject(ctx, raw)
}

func TestSaveFullSnapshotReplacesProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.SaveTable(ctx, "Lomas", types.TableUnits, []types.Row{types.NewRow("ID", "OLD")}))

	full := env.write(t, "lomas.json", `{
	  "proyecto_nombre": "Lomas",
	  "ds_generales": {"PROMOCIÓN": "Lomas del Río"},
	  "ts_general": [],
	  "garajes": [{"ID-G": "G-01"}],
	  "trasteros": []
	}`)
	cs := &countingStore{Store: env.store}
	c := New(env.cfg, schema.Default(), cs)

	in, err := c.Read(full)
	require.NoError(t, err)
	require.NoError(t, c.Save(ctx, in, nil))
	assert.Equal(t, 1, cs.projects)
	assert.Zero(t, cs.tables)

	raw, err := env.store.LoadProject(ctx, "Lomas")
	require.NoError(t, err)
	assert.Empty(t, raw.Units)
	assert.Len(t, raw.Garages, 1)

	partial := env.write(t, "lomas_units.json", `{"proyecto_nombre": "Lomas", "ts_general": [{"ID": "1A"}]}`)
	in, err = c.Read(partial)
	require.NoError(t, err)
	require.NoError(t, c.Save(ctx, in, nil))
	assert.Equal(t, 1, cs.tables)
}

func TestSummarize(t *testing.T) {
	start := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	results := []Result{
		{FilePath: "a.json", Project: "Lomas", Success: true, Stats: ProcessingStats{RowsProcessed: 3, ErrorRecords: 4}},
		{FilePath: "b.csv", Project: "Lomas", Success: true, Stats: ProcessingStats{RowsProcessed: 2, ErrorRecords: 4}},
		{FilePath: "c.csv", Error: os.ErrNotExist},
	}

	s := Summarize(results, start, start.Add(time.Second))
	assert.Equal(t, 3, s.TotalFiles)
	assert.Equal(t, 2, s.SuccessfulFiles)
	assert.Equal(t, 1, s.FailedFiles)
	assert.Equal(t, 5, s.TotalRows)
	assert.Equal(t, 1, s.Projects)
	assert.Equal(t, 4, s.ErrorRecords)
	require.Len(t, s.FailedFilesList, 1)
	assert.Equal(t, os.ErrNotExist.Error(), s.FailedFilesList[0].ErrorMessage)
}
