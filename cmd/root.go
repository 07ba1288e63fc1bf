// =============================================================================
// AXIS-Z Resolver - Root Command
// =============================================================================
//
// This file defines the root command of the CLI. Every other command hangs
// from it and shares its flags and setup helpers.
//
// COBRA CLI STRUCTURE:
//   rootCmd (axisz)
//   ├── processCmd  (axisz process)
//   ├── diagnoseCmd (axisz diagnose <project>)
//   ├── exportCmd   (axisz export <project>)
//   ├── updateCmd   (axisz update <project>)
//   ├── projectsCmd (axisz projects [delete <project>])
//   └── versionCmd  (axisz version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the main configuration, falling back to the defaults
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/axisz-resolver/internal/config"
	"github.com/ginjaninja78/axisz-resolver/internal/logger"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/store"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "axisz",
	Short: "AXIS-Z Resolver - Resolve real estate project exports",
	Long: `AXIS-Z Resolver turns raw real estate project exports (general data,
units, garages and storages) into resolved projects: typed entities, summary
cards, the PEM budget table and a data-quality report.

Raw tables are kept in a local SQLite store, so a project can be fed from
several files and edited later without re-importing it.

Example Usage:
  axisz process                        # Ingest and resolve the input directory
  axisz process --dry-run              # Resolve without storing or writing
  axisz diagnose Lomas                 # Print the data-quality report
  axisz export Lomas --format xlsx     # Export a stored project
  axisz projects                       # List stored projects`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// app bundles what every command needs.
type app struct {
	config  *config.MainConfig
	schemas *schema.Schemas
	log     *logger.Logger
}

// setup loads the main configuration and the schemas. A missing config file
// is not an error: the defaults are used.
func setup() (*app, error) {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		mainConfig = config.DefaultMainConfig()
	case err != nil:
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(mainConfig.LogLevel)
	if verbose {
		log.SetLevel("debug")
	}
	if err != nil {
		log.Debug("no configuration file, using defaults", "path", cfgFile)
	}

	schemas, err := schema.Load(mainConfig.SchemasFile)
	if err != nil {
		return nil, err
	}

	return &app{config: mainConfig, schemas: schemas, log: log}, nil
}

// addFilterFlags registers the unit filter flags of f on cmd.
func addFilterFlags(cmd *cobra.Command, f *schema.Filters) {
	flags := cmd.Flags()
	flags.StringVar(&f.Building, "building", "", "Only units of this building")
	flags.StringVar(&f.Floor, "floor", "", "Only units on this floor")
	flags.StringVar(&f.Bedrooms, "bedrooms", "", "Only units with this number of bedrooms")
	flags.StringVar(&f.Type, "type", "", "Only units of this type")
	flags.StringVar(&f.Position, "position", "", "Only units with this position")
	flags.StringVar(&f.Orientation, "orientation", "", "Only units with this orientation")
	flags.StringVar(&f.Status, "status", "", "Only units with this status")
	flags.StringVar(&f.PriceRange, "price-range", "", `Only units priced in [min, max), as "min-max"`)
}

// openStore opens the project store. The caller closes it.
func (a *app) openStore() (*store.Store, error) {
	st, err := store.Open(a.config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}
