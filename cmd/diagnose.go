// =============================================================================
// AXIS-Z Resolver - Diagnose Command
// =============================================================================
//
// COMMAND USAGE:
//   axisz diagnose <project> [flags]
//
// FLAGS:
//   --format : "table" (markdown, the default) or "json"
//   --issues : Only list parameters not graded ok
//   --search : Only list parameters whose label or group contains the text
//   --building, --floor, --bedrooms, --type, --position, --orientation,
//   --status, --price-range : Unit filters applied to the sales breakdowns
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/axisz-resolver/internal/errorlog"
	"github.com/ginjaninja78/axisz-resolver/internal/export"
	"github.com/ginjaninja78/axisz-resolver/internal/mapper"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/stats"
	"github.com/ginjaninja78/axisz-resolver/internal/validation"
)

var (
	diagnoseFormat  string
	diagnoseIssues  bool
	diagnoseSearch  string
	diagnoseFilters schema.Filters
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <project>",
	Short: "Print the data-quality report of a stored project",
	Long: `The diagnose command grades every general parameter of a stored project
(ok, missing, null, empty or zero) and checks which schema columns its unit,
garage and storage tables can resolve. It closes with the sales KPIs and the
status breakdowns by building, bedrooms and price range.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnose(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)

	diagnoseCmd.Flags().StringVar(&diagnoseFormat, "format", "table", "Output format: table or json")
	diagnoseCmd.Flags().BoolVar(&diagnoseIssues, "issues", false, "Only list parameters that are not ok")
	diagnoseCmd.Flags().StringVar(&diagnoseSearch, "search", "", "Only list parameters matching this text")
	addFilterFlags(diagnoseCmd, &diagnoseFilters)
}

// diagnosis is the JSON form of the diagnose output.
type diagnosis struct {
	validation.Report
	Stats stats.Stats `json:"stats"`
}

func runDiagnose(cmd *cobra.Command, name string) error {
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

	report := validation.Diagnose(raw, a.schemas)
	if diagnoseIssues {
		report.Parameters = validation.Issues(report.Parameters)
	}
	report.Parameters = validation.Filter(report.Parameters, diagnoseSearch)

	// Mapping misses belong to export and process runs, not to this report.
	log := errorlog.New()
	project := mapper.New(a.schemas, log).MapProject(raw)
	sales := export.New(a.schemas, log, export.Options{Filters: diagnoseFilters}).Stats(project)

	out := cmd.OutOrStdout()
	switch diagnoseFormat {
	case "json":
		data, err := validation.FormatJSON(diagnosis{Report: report, Stats: sales})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "table":
		fmt.Fprint(out, validation.FormatReport(report))
		fmt.Fprint(out, stats.FormatReport(sales))
	default:
		return fmt.Errorf("unknown format %q", diagnoseFormat)
	}
	return nil
}
