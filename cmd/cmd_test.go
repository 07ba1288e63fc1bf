package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lomasSnapshot = `{
  "proyecto_nombre": "Lomas",
  "ds_generales": {"PROMOCIÓN": "Lomas del Río"},
  "ts_general": [
    {"_VIVIENDAS": "1A", "GESTIÓN_ESTADO": "DISPONIBLE"},
    {"_VIVIENDAS": "1B", "GESTIÓN_ESTADO": "DISPONIBLE"}
  ]
}`

// run executes the CLI with args and returns what it wrote to its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(fmt.Sprintf(`
input_dir: %[1]s/input
output_dir: %[1]s/output
input_archive_dir: %[1]s/input_archive
configs_dir: %[1]s/configs
database_path: %[1]s/axisz.db
log_level: error
`, root)), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "input"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "input", "lomas.json"), []byte(lomasSnapshot), 0o644))

	_, err := run(t, "process", "--config", cfg)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "input_archive", "lomas.json"))

	out, err := run(t, "projects", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Lomas")
	assert.Contains(t, out, "ts_general")

	out, err = run(t, "diagnose", "Lomas", "--config", cfg, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"project": "Lomas"`)
	assert.Contains(t, out, `"totalUnits": 2`)

	out, err = run(t, "diagnose", "Lomas", "--config", cfg, "--format", "table", "--building", "Torre")
	require.NoError(t, err)
	assert.Contains(t, out, "# Diagnostics: Lomas")
	assert.Contains(t, out, "## Sales")
	assert.NotContains(t, out, "## Status by building")

	patch := filepath.Join(root, "patch.yaml")
	require.NoError(t, os.WriteFile(patch, []byte("status: RESERVADA\n"), 0o644))
	out, err = run(t, "update", "Lomas", "--config", cfg, "--patch", patch, "--ids", "1B,9Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated:   1B")
	assert.Contains(t, out, "Not found: 9Z")

	xlsx := filepath.Join(root, "lomas.xlsx")
	out, err = run(t, "export", "Lomas", "--config", cfg, "--format", "xlsx", "-o", xlsx, "--status", "reserv")
	require.NoError(t, err)
	assert.Contains(t, out, xlsx)
	assert.FileExists(t, xlsx)

	_, err = run(t, "diagnose", "Cerezo", "--config", cfg)
	assert.Error(t, err)

	out, err = run(t, "projects", "delete", "Lomas", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted Lomas")

	out, err = run(t, "projects", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "No stored projects.")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "AXIS-Z Resolver")
	assert.Contains(t, out, "Version:    "+Version)
}
