// =============================================================================
// AXIS-Z Resolver - Configuration Module
// =============================================================================
//
// This module loads the application configuration and the source profiles.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, store, output and logging
//   2. Source Profiles (configs/*.yaml): how to read one family of exports
//
// A source profile says which files it applies to, which table a CSV file
// holds, how the CSV is laid out and which transformation rules clean the
// raw rows before resolution. JSON and XLSX exports carry every table and
// only use the profile for its project name and rules.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for .json, .csv and .xlsx exports.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives resolved projects, diagnostics and error logs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives inputs after they were processed successfully.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ConfigsDir holds the source profiles.
	// Default: "./configs"
	ConfigsDir string `yaml:"configs_dir"`

	// =========================================================================
	// STORE AND SCHEMAS
	// =========================================================================

	// DatabasePath is the SQLite file raw tables are stored in.
	// Default: "./axisz.db"
	DatabasePath string `yaml:"database_path"`

	// SchemasFile replaces the embedded schemas when set.
	SchemasFile string `yaml:"schemas_file"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFormat is "json" or "xlsx".
	// Default: "json"
	OutputFormat string `yaml:"output_format"`

	// OutputNameFormat defines the output file names.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {project}   - Project name
	// Default: "{project}_{timestamp}_{uuid}"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files ingested concurrently.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps processing other files when one fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	// ArchiveOnSuccess moves inputs to InputArchiveDir once processed.
	// Default: true
	ArchiveOnSuccess bool `yaml:"archive_on_success"`
}

// Output formats.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// =============================================================================
// SOURCE PROFILE STRUCTURE
// =============================================================================

// SourceProfile describes one family of project exports.
type SourceProfile struct {
	// ProfileName is used in logs and error messages.
	ProfileName string `yaml:"profile_name"`

	// FileMatchingPatterns are glob patterns matched against the file name.
	// Examples:
	//   - "lomas_*.xlsx"
	//   - "*_ts_general.csv"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// ProjectName overrides the project name derived from the file name.
	ProjectName string `yaml:"project_name,omitempty"`

	// Table is the raw table a CSV file of this profile holds.
	// One of ds_generales, ts_general, garajes, trasteros.
	// Default: ts_general
	Table string `yaml:"table,omitempty"`

	// CSVSettings contains settings for parsing CSV inputs.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// TransformationRules clean raw fields before resolution.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`
}

// TableID returns the configured table, defaulting to the units table.
func (p *SourceProfile) TableID() types.TableID {
	if t, ok := types.ParseTableID(p.Table); ok {
		return t
	}
	return types.TableUnits
}

// Matches reports whether fileName matches one of the profile's patterns.
func (p *SourceProfile) Matches(fileName string) bool {
	base := filepath.Base(fileName)
	for _, pattern := range p.FileMatchingPatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter separates fields. Spanish exports usually use ";".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Exports with a group row above
	// the column row use 2; the rows are joined into "<GROUP>_<COLUMN>".
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// HeaderJoiner joins the parts of a multi-row header.
	// Default: "_"
	HeaderJoiner string `yaml:"header_joiner"`

	// DataStartRow is the 1-indexed row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// Encoding is any WHATWG encoding label ("utf-8", "windows-1252",
	// "iso-8859-1", ...).
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines a transformation applied to one raw field.
type TransformationRule struct {
	// Table restricts the rule to one raw table. Empty applies it to all.
	Table string `yaml:"table,omitempty"`

	// Field is resolved with the fuzzy resolver, so "ESTADO" also reaches
	// "GESTIÓN_ESTADO".
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "trim", "uppercase", "lowercase"
	//   - "prepend_string", "append_string"
	//   - "pad_zeros_to_length"
	//   - "replace", "regex_replace"
	//   - "lookup"
	//   - "default_value"
	Type string `yaml:"type"`

	// Value is the parameter of the transformation.
	Value string `yaml:"value"`

	// Find is the substring or pattern of "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values for "lookup".
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// DefaultMainConfig returns the configuration used when no file exists.
func DefaultMainConfig() *MainConfig {
	config := &MainConfig{ContinueOnError: true, ArchiveOnSuccess: true}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseMainConfig(data)
}

// ParseMainConfig parses, defaults and validates a main configuration.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	config := MainConfig{ContinueOnError: true, ArchiveOnSuccess: true}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset option.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.ConfigsDir == "" {
		config.ConfigsDir = "./configs"
	}
	if config.DatabasePath == "" {
		config.DatabasePath = "./axisz.db"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = FormatJSON
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{project}_{timestamp}_{uuid}"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	var errs []error

	config.LogLevel = strings.ToLower(config.LogLevel)
	if !validLogLevels[config.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of debug, info, warn, error", config.LogLevel))
	}

	config.OutputFormat = strings.ToLower(config.OutputFormat)
	if config.OutputFormat != FormatJSON && config.OutputFormat != FormatXLSX {
		errs = append(errs, fmt.Errorf("output_format %q must be json or xlsx", config.OutputFormat))
	}

	if config.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency))
	}

	return errors.Join(errs...)
}

// LoadSourceProfiles loads all source profiles from a directory, ordered by
// file name. A missing directory yields no profiles.
func LoadSourceProfiles(configsDir string) ([]*SourceProfile, error) {
	files, err := filepath.Glob(filepath.Join(configsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(configsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	profiles := make([]*SourceProfile, 0, len(files))
	for _, file := range files {
		profile, err := loadSourceProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		if profile.ProfileName == "" {
			profile.ProfileName = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// loadSourceProfile loads a single source profile file.
func loadSourceProfile(filePath string) (*SourceProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile SourceProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if profile.Table != "" {
		if _, ok := types.ParseTableID(profile.Table); !ok {
			return nil, fmt.Errorf("unknown table %q", profile.Table)
		}
	}

	ApplyProfileDefaults(&profile)
	return &profile, nil
}

// ApplyProfileDefaults sets default values for a source profile.
func ApplyProfileDefaults(profile *SourceProfile) {
	s := &profile.CSVSettings
	if s.Delimiter == "" {
		s.Delimiter = ","
	}
	if s.HeaderRows == 0 {
		s.HeaderRows = 1
	}
	if s.HeaderJoiner == "" {
		s.HeaderJoiner = "_"
	}
	if s.DataStartRow == 0 {
		s.DataStartRow = s.HeaderRows + 1
	}
	if s.Encoding == "" {
		s.Encoding = "UTF-8"
	}
}

// DefaultProfile is the profile used for files no profile matches.
func DefaultProfile() *SourceProfile {
	p := &SourceProfile{ProfileName: "default"}
	ApplyProfileDefaults(p)
	return p
}

// FindProfile returns the first profile matching fileName, or the default
// profile.
func FindProfile(profiles []*SourceProfile, fileName string) *SourceProfile {
	for _, p := range profiles {
		if p.Matches(fileName) {
			return p
		}
	}
	return DefaultProfile()
}
