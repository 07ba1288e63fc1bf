package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

func TestParseMainConfigDefaults(t *testing.T) {
	config, err := ParseMainConfig([]byte("input_dir: ./in\n"))
	require.NoError(t, err)

	assert.Equal(t, "./in", config.InputDir)
	assert.Equal(t, "./output", config.OutputDir)
	assert.Equal(t, "./axisz.db", config.DatabasePath)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, FormatJSON, config.OutputFormat)
	assert.Equal(t, "{project}_{timestamp}_{uuid}", config.OutputNameFormat)
	assert.Equal(t, 4, config.MaxConcurrency)
	assert.True(t, config.ContinueOnError)
	assert.True(t, config.ArchiveOnSuccess)
}

func TestParseMainConfigOverrides(t *testing.T) {
	config, err := ParseMainConfig([]byte(`
log_level: DEBUG
output_format: xlsx
continue_on_error: false
archive_on_success: false
max_concurrency: 1
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, FormatXLSX, config.OutputFormat)
	assert.False(t, config.ContinueOnError)
	assert.False(t, config.ArchiveOnSuccess)
	assert.Equal(t, 1, config.MaxConcurrency)
}

func TestParseMainConfigInvalid(t *testing.T) {
	_, err := ParseMainConfig([]byte("log_level: loud\noutput_format: xml\nmax_concurrency: -2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "output_format")
	assert.Contains(t, err.Error(), "max_concurrency")

	_, err = ParseMainConfig([]byte("input_dir: [unclosed"))
	assert.Error(t, err)
}

func TestLoadMainConfigMissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadSourceProfiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_garajes.yaml"), []byte(`
profile_name: Garajes Lomas
file_matching_patterns: ["lomas_garajes*.csv"]
project_name: Lomas
table: garajes
csv_settings:
  delimiter: ";"
  header_rows: 2
  encoding: windows-1252
transformation_rules:
  - field: ESTADO
    actions:
      - {type: uppercase}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_units.yml"), []byte(`
file_matching_patterns: ["*.xlsx"]
`), 0o644))

	profiles, err := LoadSourceProfiles(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	units, garages := profiles[0], profiles[1]
	assert.Equal(t, "a_units", units.ProfileName)
	assert.Equal(t, types.TableUnits, units.TableID())
	assert.Equal(t, ",", units.CSVSettings.Delimiter)
	assert.Equal(t, 2, units.CSVSettings.DataStartRow)

	assert.Equal(t, "Garajes Lomas", garages.ProfileName)
	assert.Equal(t, types.TableGarages, garages.TableID())
	assert.Equal(t, 3, garages.CSVSettings.DataStartRow)
	assert.Equal(t, "_", garages.CSVSettings.HeaderJoiner)
	require.Len(t, garages.TransformationRules, 1)
	assert.Equal(t, "uppercase", garages.TransformationRules[0].Actions[0].Type)
}

func TestLoadSourceProfilesRejectsUnknownTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yaml"), []byte("table: clientes\n"), 0o644))

	_, err := LoadSourceProfiles(dir)
	assert.Error(t, err)
}

func TestFindProfile(t *testing.T) {
	profiles := []*SourceProfile{
		{ProfileName: "garajes", FileMatchingPatterns: []string{"*_garajes.csv"}},
		{ProfileName: "any-csv", FileMatchingPatterns: []string{"*.csv"}},
	}

	assert.Equal(t, "garajes", FindProfile(profiles, "/in/lomas_garajes.csv").ProfileName)
	assert.Equal(t, "any-csv", FindProfile(profiles, "lomas.csv").ProfileName)

	def := FindProfile(profiles, "lomas.json")
	assert.Equal(t, "default", def.ProfileName)
	assert.Equal(t, 1, def.CSVSettings.HeaderRows)
	assert.Equal(t, "UTF-8", def.CSVSettings.Encoding)
}
