// =============================================================================
// AXIS-Z Resolver - XLSX Workbook Parser
// =============================================================================
//
// This module reads a project workbook into a raw project snapshot. Each
// sheet whose name matches a raw table holds that table:
//
//   | Sheet         | Table        | Layout                                  |
//   |---------------|--------------|-----------------------------------------|
//   | ds_generales  | ds_generales | one header row and one data row, or     |
//   |               |              | a two-column key/value list             |
//   | ts_general    | ts_general   | header rows, then one row per unit      |
//   | garajes       | garajes      | header rows, then one row per garage    |
//   | trasteros     | trasteros    | header rows, then one row per storage   |
//
// Sheet names are compared in canonical form, so "TS General" or
// "Garajes" match too. Sheets starting with "_" and sheets that match no
// table are skipped.
//
// CELL VALUES:
//   Numeric cells become float64 and boolean cells become bool. Everything
//   else stays text exactly as typed, so "1.500,00 €" reaches the numeric
//   parser untouched.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/axisz-resolver/internal/config"
	"github.com/ginjaninja78/axisz-resolver/internal/csvparser"
	"github.com/ginjaninja78/axisz-resolver/internal/keys"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// sheetAliases maps canonical sheet names to raw tables.
var sheetAliases = map[string]types.TableID{
	"dsgenerales":    types.TableGeneral,
	"datosgenerales": types.TableGeneral,
	"generales":      types.TableGeneral,
	"tsgeneral":      types.TableUnits,
	"viviendas":      types.TableUnits,
	"unidades":       types.TableUnits,
	"garajes":        types.TableGarages,
	"trasteros":      types.TableStorages,
}

// TableForSheet returns the raw table a sheet holds.
func TableForSheet(sheetName string) (types.TableID, bool) {
	t, ok := sheetAliases[keys.NormalizeKey(sheetName)]
	return t, ok
}

// =============================================================================
// WORKBOOK STRUCTURE
// =============================================================================

// Workbook is a parsed project workbook.
type Workbook struct {
	// Project is the raw snapshot read from the workbook.
	Project types.ProjectDataRaw

	// Sheets maps each table read to the sheet it came from.
	Sheets map[types.TableID]string

	// Skipped lists the sheets that matched no table.
	Skipped []string

	// SourceFile is the path to the workbook.
	SourceFile string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a project workbook.
//
// PARAMETERS:
//   - filePath: The path to the XLSX file.
//   - projectName: The project name to give the snapshot.
//   - settings: Header settings of the matching source profile.
//
// RETURNS:
//   - The parsed workbook.
//   - An error if the file cannot be opened or a sheet cannot be read.
func Parse(filePath, projectName string, settings config.CSVSettings) (*Workbook, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb, err := ParseFile(f, projectName, settings)
	if err != nil {
		return nil, err
	}
	wb.SourceFile = filePath
	return wb, nil
}

// ParseReader reads a project workbook from r.
func ParseReader(r io.Reader, projectName string, settings config.CSVSettings) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return ParseFile(f, projectName, settings)
}

// ParseFile reads every table sheet of an open workbook. When two sheets
// map to the same table the first one wins.
func ParseFile(f *excelize.File, projectName string, settings config.CSVSettings) (*Workbook, error) {
	if settings.HeaderRows <= 0 {
		settings.HeaderRows = 1
	}

	wb := &Workbook{
		Project: types.ProjectDataRaw{Name: projectName},
		Sheets:  make(map[types.TableID]string),
	}

	for _, sheetName := range f.GetSheetList() {
		if strings.HasPrefix(sheetName, "_") {
			continue
		}
		table, ok := TableForSheet(sheetName)
		if !ok {
			wb.Skipped = append(wb.Skipped, sheetName)
			continue
		}
		if _, dup := wb.Sheets[table]; dup {
			wb.Skipped = append(wb.Skipped, sheetName)
			continue
		}

		grid, err := readSheet(f, sheetName)
		if err != nil {
			return nil, fmt.Errorf("error parsing sheet '%s': %w", sheetName, err)
		}

		if table == types.TableGeneral {
			general, err := parseGeneral(grid, settings)
			if err != nil {
				return nil, fmt.Errorf("error parsing sheet '%s': %w", sheetName, err)
			}
			wb.Project.General = general
		} else {
			rows, err := parseTable(grid, settings)
			if err != nil {
				return nil, fmt.Errorf("error parsing sheet '%s': %w", sheetName, err)
			}
			wb.Project.SetRows(table, rows)
		}
		wb.Sheets[table] = sheetName
	}

	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no ds_generales, ts_general, garajes or trasteros sheet")
	}
	return wb, nil
}

// ProjectNameFromFile derives a project name from a file path: the base
// name without extension.
func ProjectNameFromFile(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// =============================================================================
// SHEET READING
// =============================================================================

// cell is one typed sheet cell.
type cell struct {
	text  string
	value any
}

// readSheet reads a sheet as a grid of typed cells.
func readSheet(f *excelize.File, sheetName string) ([][]cell, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	grid := make([][]cell, len(rows))
	for r, row := range rows {
		grid[r] = make([]cell, len(row))
		for c, text := range row {
			v, err := cellValue(f, sheetName, c+1, r+1, text)
			if err != nil {
				return nil, err
			}
			grid[r][c] = cell{text: text, value: v}
		}
	}
	return grid, nil
}

// cellValue types one raw cell value.
func cellValue(f *excelize.File, sheetName string, col, row int, text string) (any, error) {
	if text == "" {
		return "", nil
	}

	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	cellType, err := f.GetCellType(sheetName, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read cell %s: %w", name, err)
	}

	switch cellType {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(text, 64); err == nil {
			return n, nil
		}
	case excelize.CellTypeBool:
		return text == "1" || strings.EqualFold(text, "true"), nil
	}
	return text, nil
}

func texts(row []cell) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.text
	}
	return out
}

func isRowEmpty(row []cell) bool {
	for _, c := range row {
		if strings.TrimSpace(c.text) != "" {
			return false
		}
	}
	return true
}

// parseTable reads header rows and then one raw row per non-blank line.
func parseTable(grid [][]cell, settings config.CSVSettings) ([]types.Row, error) {
	if len(grid) < settings.HeaderRows {
		return []types.Row{}, nil
	}

	headerRows := make([][]string, settings.HeaderRows)
	for i := range headerRows {
		headerRows[i] = texts(grid[i])
	}
	headers, err := csvparser.MergeHeaders(headerRows, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	rows := make([]types.Row, 0, len(grid)-settings.HeaderRows)
	for _, line := range grid[settings.HeaderRows:] {
		if isRowEmpty(line) {
			continue
		}
		values := make([]any, len(headers))
		for i := range headers {
			if i < len(line) {
				values[i] = trimText(line[i].value)
			} else {
				values[i] = ""
			}
		}
		rows = append(rows, types.RowFromPairs(headers, values))
	}
	return rows, nil
}

func trimText(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// parseGeneral reads the general-data sheet. A sheet with exactly one data
// row is a header-and-values table; a sheet of at most two columns is a
// key/value list with the key in column A. Otherwise the first data row is
// used.
func parseGeneral(grid [][]cell, settings config.CSVSettings) (types.Row, error) {
	var lines [][]cell
	width := 0
	for _, line := range grid {
		if isRowEmpty(line) {
			continue
		}
		lines = append(lines, line)
		if len(line) > width {
			width = len(line)
		}
	}

	if len(lines) != settings.HeaderRows+1 && width <= 2 {
		row := types.Row{}
		for _, line := range lines {
			key := strings.TrimSpace(line[0].text)
			if key == "" {
				continue
			}
			var v any = ""
			if len(line) > 1 {
				v = trimText(line[1].value)
			}
			row.Set(key, v)
		}
		return row, nil
	}

	rows, err := parseTable(lines, settings)
	if err != nil {
		return types.Row{}, err
	}
	if len(rows) == 0 {
		return types.Row{}, nil
	}
	return rows[0], nil
}
