// =============================================================================
// AXIS-Z Resolver - Export Command
// =============================================================================
//
// COMMAND USAGE:
//   axisz export <project> [flags]
//
// FLAGS:
//   --format : "json" or "xlsx" (default: output_format of the config)
//   --output : Output file (default: a generated name in the output directory)
//   --building, --floor, --bedrooms, --type, --position, --orientation :
//            Unit filters, matched exactly
//   --status : Matched as a case-insensitive substring of the status label
//   --price-range : "min-max", keeps units priced in [min, max)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/axisz-resolver/internal/config"
	"github.com/ginjaninja78/axisz-resolver/internal/errorlog"
	"github.com/ginjaninja78/axisz-resolver/internal/export"
	"github.com/ginjaninja78/axisz-resolver/internal/mapper"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/pkg/utils"
)

var (
	exportFormat  string
	exportOutput  string
	exportFilters schema.Filters
)

var exportCmd = &cobra.Command{
	Use:   "export <project>",
	Short: "Export a stored project as JSON or XLSX",
	Long: `The export command resolves a stored project and writes it as a JSON
document or as a workbook with one sheet per table. Unit filters restrict the
exported units; garages and storages are always exported whole.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	f := exportCmd.Flags()
	f.StringVar(&exportFormat, "format", "", "Output format: json or xlsx")
	f.StringVarP(&exportOutput, "output", "o", "", "Output file path")
	addFilterFlags(exportCmd, &exportFilters)
}

func runExport(cmd *cobra.Command, name string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	raw, err := st.LoadProject(cmd.Context(), name)
	if err != nil {
		return err
	}

	format := exportFormat
	if format == "" {
		format = a.config.OutputFormat
	}
	if format != config.FormatJSON && format != config.FormatXLSX {
		return fmt.Errorf("unknown format %q", format)
	}

	path := exportOutput
	if path == "" {
		if err := os.MkdirAll(a.config.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		fileName := utils.GenerateOutputFileName(a.config.OutputNameFormat, map[string]string{"project": raw.Name}, "."+format)
		path = filepath.Join(a.config.OutputDir, fileName)
	}

	log := errorlog.New(errorlog.WithLogger(a.log.Slog()))
	project := mapper.New(a.schemas, log).MapProject(raw)
	exp := export.New(a.schemas, log, export.Options{Filters: exportFilters})

	if format == config.FormatXLSX {
		err = exp.WriteXLSXFile(path, project)
	} else {
		err = exp.WriteJSONFile(path, project)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s -> %s (%d error records)\n", raw.Name, path, log.Len())
	return nil
}
