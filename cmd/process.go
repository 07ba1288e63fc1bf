// =============================================================================
// AXIS-Z Resolver - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command of the CLI. It
// ingests the exports of the input directory and resolves every project
// they touch.
//
// COMMAND USAGE:
//   axisz process [flags]
//
// FLAGS:
//   --dry-run : Resolve in memory without storing, writing or archiving
//   --file    : Process a single file instead of the input directory
//   --project : Process only the files of one project
//   --building, --floor, --status, ... : Unit filters applied to the export
//
// PROCESSING PIPELINE:
//   1. Load the configuration, schemas and source profiles
//   2. Discover .json, .xlsx and .csv files in the input directory
//   3. Ingest every file concurrently into the store
//   4. Resolve every project, writing its export, diagnostics and error log
//   5. Archive the inputs of resolved projects
//   6. Write the processing summary
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/axisz-resolver/internal/config"
	"github.com/ginjaninja78/axisz-resolver/internal/converter"
	"github.com/ginjaninja78/axisz-resolver/internal/errorlog"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun resolves without touching the store or the file system.
var dryRun bool

// filePath is a single file to process instead of the input directory.
var filePath string

// projectName restricts processing to the files of one project.
var projectName string

// processFilters restricts the exported units.
var processFilters schema.Filters

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Ingest project exports and resolve them",
	Long: `The process command scans the input directory for project exports
(.json snapshots, .xlsx workbooks and single-table .csv files), stores their
raw tables and resolves every project they belong to.

Files are matched to source profiles by name. A profile can fix the project
name, the table a CSV holds, its CSV settings and transformation rules.

On successful processing:
  - The resolved project is written to the output directory
  - A diagnostics report is written next to it
  - An error log is written when resolution recorded problems
  - The inputs are moved to the input archive

On error:
  - The input remains in the input directory
  - Processing continues for other files unless continue_on_error is off`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Resolve without storing, writing output files or archiving",
	)

	processCmd.Flags().StringVar(
		&filePath,
		"file",
		"",
		"Path to a specific file to process",
	)

	processCmd.Flags().StringVar(
		&projectName,
		"project",
		"",
		"Process only files of this project",
	)

	addFilterFlags(processCmd, &processFilters)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	a, err := setup()
	if err != nil {
		return err
	}
	mainConfig := a.config

	profiles, err := config.LoadSourceProfiles(mainConfig.ConfigsDir)
	if err != nil {
		return fmt.Errorf("failed to load source profiles: %w", err)
	}
	a.log.Debug("loaded source profiles", "count", len(profiles))

	fm := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir)
	fm.ArchiveOnSuccess = mainConfig.ArchiveOnSuccess
	if !dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 2: BUILD THE CONVERTER
	// =========================================================================

	opts := []converter.Option{
		converter.WithLogger(a.log),
		converter.WithProfiles(profiles),
		converter.WithFileManager(fm),
		converter.WithErrorLogOptions(errorlog.WithLogger(a.log.Slog())),
		converter.WithDryRun(dryRun),
		converter.WithFilters(processFilters),
	}

	var conv *converter.Converter
	if dryRun {
		conv = converter.New(mainConfig, a.schemas, nil, opts...)
	} else {
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		conv = converter.New(mainConfig, a.schemas, st, opts...)
	}

	// =========================================================================
	// STEP 3: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
	} else {
		inputFiles, err = fm.DiscoverInputFiles(converter.InputExtensions...)
		if err != nil {
			return err
		}
	}
	if projectName != "" {
		var kept []string
		for _, f := range inputFiles {
			if conv.ProjectOf(f) == projectName {
				kept = append(kept, f)
			}
		}
		inputFiles = kept
	}

	if len(inputFiles) == 0 {
		fmt.Println("No input files found.")
		return nil
	}
	fmt.Printf("Found %d file(s) to process.\n", len(inputFiles))
	if dryRun {
		fmt.Println("Dry run: nothing will be stored, written or archived.")
	}

	results := conv.Process(ctx, inputFiles)

	// =========================================================================
	// STEP 4: REPORT RESULTS
	// =========================================================================

	for _, result := range results {
		name := filepath.Base(result.FilePath)
		if !result.Success {
			fmt.Printf("  ✗ %s: %v\n", name, result.Error)
			continue
		}
		target := result.OutputFile
		if target == "" {
			target = result.Project
		}
		fmt.Printf("  ✓ %s -> %s (%d units, %d garages, %d storages, %d errors)\n",
			name, target, result.Stats.Units, result.Stats.Garages,
			result.Stats.Storages, result.Stats.ErrorRecords)
	}

	summary := converter.Summarize(results, startTime, time.Now())

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Failed:          %d\n", summary.FailedFiles)
	fmt.Printf("Projects:        %d\n", summary.Projects)
	fmt.Printf("Error records:   %d\n", summary.ErrorRecords)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))

	if dryRun {
		return nil
	}

	path, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir)
	if err != nil {
		a.log.Warn("failed to write summary", "error", err)
	} else {
		fmt.Printf("Summary:         %s\n", path)
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}
