// =============================================================================
// AXIS-Z Resolver - Update Command
// =============================================================================
//
// This file defines the 'update' command, which edits stored raw rows
// through their typed fields. The raw keys of each row are preserved; only
// the keys the patch maps to are rewritten.
//
// COMMAND USAGE:
//   axisz update <project> --patch patch.yaml --ids 1A,1B
//   axisz update <project> --patch patch.yaml --garage G-01
//   axisz update <project> --patch patch.yaml --storage T-04
//
// PATCH FILE:
//   status: reserved          # or RESERVADA
//   price: 245000
//   notes: "Reserva verbal"
//
// =============================================================================

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/axisz-resolver/internal/errorlog"
	"github.com/ginjaninja78/axisz-resolver/internal/mapper"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

var (
	updatePatch   string
	updateIDs     []string
	updateGarage  string
	updateStorage string
)

var updateCmd = &cobra.Command{
	Use:   "update <project>",
	Short: "Apply a patch to stored units, a garage or a storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdate(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	f := updateCmd.Flags()
	f.StringVar(&updatePatch, "patch", "", "YAML file with the fields to change")
	f.StringSliceVar(&updateIDs, "ids", nil, "Unit IDs to update")
	f.StringVar(&updateGarage, "garage", "", "Garage ID to update")
	f.StringVar(&updateStorage, "storage", "", "Storage ID to update")
	updateCmd.MarkFlagRequired("patch")
	updateCmd.MarkFlagsMutuallyExclusive("ids", "garage", "storage")
	updateCmd.MarkFlagsOneRequired("ids", "garage", "storage")
}

func runUpdate(cmd *cobra.Command, name string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(updatePatch)
	if err != nil {
		return fmt.Errorf("failed to read patch: %w", err)
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	raw, err := st.LoadProject(ctx, name)
	if err != nil {
		return err
	}

	log := errorlog.New(errorlog.WithLogger(a.log.Slog()))
	m := mapper.New(a.schemas, log)
	out := cmd.OutOrStdout()

	if len(updateIDs) > 0 {
		var patch mapper.UnitPatch
		if err := decodePatch(data, &patch); err != nil {
			return err
		}
		if err := patch.Normalize(); err != nil {
			return err
		}
		if patch.IsEmpty() {
			return errors.New("patch changes nothing")
		}

		rows, res := m.BulkUpdateUnits(raw.Units, updateIDs, patch)
		if len(res.Updated) > 0 {
			if err := st.SaveTable(ctx, raw.Name, types.TableUnits, rows); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "Updated:   %s\n", strings.Join(res.Updated, ", "))
		if len(res.NotFound) > 0 {
			fmt.Fprintf(out, "Not found: %s\n", strings.Join(res.NotFound, ", "))
		}
		return nil
	}

	var patch mapper.ServicePatch
	if err := decodePatch(data, &patch); err != nil {
		return err
	}
	if err := patch.Normalize(); err != nil {
		return err
	}

	kind, table, id := types.KindGarage, types.TableGarages, updateGarage
	if updateStorage != "" {
		kind, table, id = types.KindStorage, types.TableStorages, updateStorage
	}

	rows, ok := m.UpdateService(kind, raw.Rows(table), id, patch)
	if !ok {
		return fmt.Errorf("no %s with ID %s", kind, id)
	}
	if err := st.SaveTable(ctx, raw.Name, table, rows); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated:   %s\n", id)
	return nil
}

// decodePatch decodes a YAML patch. Unknown fields are an error.
func decodePatch(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse patch: %w", err)
	}
	return nil
}
