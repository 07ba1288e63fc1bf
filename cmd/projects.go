// =============================================================================
// AXIS-Z Resolver - Projects Command
// =============================================================================
//
// COMMAND USAGE:
//   axisz projects                  # List stored projects
//   axisz projects delete <project> # Remove a project and its tables
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/axisz-resolver/internal/validation"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		infos, err := st.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No stored projects.")
			return nil
		}

		header := []string{"PROJECT", "TABLES", "UPDATED"}
		rows := make([][]string, 0, len(infos))
		for _, info := range infos {
			tables := make([]string, len(info.Tables))
			for i, t := range info.Tables {
				tables[i] = string(t)
			}
			rows = append(rows, []string{
				info.Name,
				strings.Join(tables, ", "),
				info.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
			})
		}
		fmt.Fprint(cmd.OutOrStdout(), validation.FormatTable(header, rows))
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Delete a project and all its tables from the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteProject(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
}
