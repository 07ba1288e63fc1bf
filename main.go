// =============================================================================
// AXIS-Z Resolver - Main Entry Point
// =============================================================================
//
// USAGE:
//   axisz process    - Ingest the input directory and resolve its projects
//   axisz diagnose   - Print the data-quality report of a stored project
//   axisz export     - Export a stored project as JSON or XLSX
//   axisz update     - Patch stored units, garages or storages
//   axisz projects   - List or delete stored projects
//   axisz version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Resolution, parsing, storage and export logic
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/axisz-resolver/cmd"
)

func main() {
	cmd.Execute()
}
