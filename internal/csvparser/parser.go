// =============================================================================
// AXIS-Z Resolver - CSV Parser Module
// =============================================================================
//
// This module parses CSV exports of a single raw table. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Two-row headers where a group row sits above the column row
//   - Custom data start rows
//   - Non-UTF-8 encodings (Windows-1252 is common in Spanish exports)
//
// MULTI-ROW HEADERS:
//   Spreadsheet exports merge the group cell across its columns, which the
//   CSV writes as one filled cell followed by blanks. Blank cells of every
//   header row but the last inherit the value to their left, then the rows
//   are joined with the configured joiner:
//
//   Row 1: "",          "DATOS GENERALES", "",        "UBICACIÓN"
//   Row 2: "VIVIENDAS", "Nº DORM",         "Nº BAÑOS", "NIVEL"
//   Keys:  "_VIVIENDAS", "DATOS GENERALES_Nº DORM",
//          "DATOS GENERALES_Nº BAÑOS", "UBICACIÓN_NIVEL"
//
// Rows keep the header order, so the first-match rule of the resolver sees
// the columns in the order of the file.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/axisz-resolver/internal/config"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents one parsed CSV file.
type CSVData struct {
	// Headers are the final, merged column keys.
	Headers []string

	// Rows are the data rows in file order, keyed by header.
	Rows []types.Row

	// SourceFile is the path to the source CSV file.
	SourceFile string

	// RowCount is the number of data rows (excluding headers and blanks).
	RowCount int

	// ColumnCount is the number of columns.
	ColumnCount int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV settings of the matching source profile.
//
// RETURNS:
//   - A pointer to the CSVData struct containing the parsed data.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings config.CSVSettings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// ParseReader parses CSV content from r.
func ParseReader(r io.Reader, settings config.CSVSettings) (*CSVData, error) {
	reader, err := decodingReader(r, settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers, err := extractHeaders(allRows, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	dataRows := extractDataRows(allRows, headers, settings)

	return &CSVData{
		Headers:     headers,
		Rows:        dataRows,
		RowCount:    len(dataRows),
		ColumnCount: len(headers),
	}, nil
}

// decodingReader wraps r so it yields UTF-8. A leading byte order mark is
// dropped.
func decodingReader(r io.Reader, encoding string) (io.Reader, error) {
	if enc := strings.TrimSpace(encoding); enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		r = transform.NewReader(r, e.NewDecoder())
	}

	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
		br.Discard(3)
	}
	return br, nil
}

func isUTF8(enc string) bool {
	switch strings.ToLower(enc) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = []rune(settings.Delimiter)[0]
		} else {
			reader.Comma = ','
		}
	}

	// Exports are not strict about column counts or quoting.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// MergeHeaders turns the first settings.HeaderRows rows into column keys.
// The XLSX parser shares it so both formats flatten headers alike.
func MergeHeaders(headerRows [][]string, settings config.CSVSettings) ([]string, error) {
	return extractHeaders(headerRows, settings)
}

// extractHeaders extracts and merges the header rows.
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	if settings.HeaderRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}
	if len(allRows) < settings.HeaderRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	if settings.HeaderRows == 1 {
		return cleanHeaders(allRows[0]), nil
	}

	joiner := settings.HeaderJoiner
	if joiner == "" {
		joiner = "_"
	}

	maxCols := 0
	for i := 0; i < settings.HeaderRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	// Fill merged group cells forward, except on the last header row.
	grid := make([][]string, settings.HeaderRows)
	for row := 0; row < settings.HeaderRows; row++ {
		grid[row] = make([]string, maxCols)
		last := ""
		for col := 0; col < maxCols; col++ {
			value := ""
			if col < len(allRows[row]) {
				value = strings.TrimSpace(allRows[row][col])
			}
			if row < settings.HeaderRows-1 {
				if value == "" {
					value = last
				}
				last = value
			}
			grid[row][col] = value
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		parts := make([]string, settings.HeaderRows)
		for row := range grid {
			parts[row] = grid[row][col]
		}
		// Trailing blanks add nothing; leading ones keep their joiner.
		for len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		headers[col] = strings.Join(parts, joiner)
	}

	return cleanHeaders(headers), nil
}

// cleanHeaders trims headers, names blank ones after their position and
// makes duplicates unique with a numeric suffix. A suffixed name never
// takes a name used by another column.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	taken := make(map[string]bool, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	for _, header := range cleaned {
		taken[header] = true
	}

	first := make(map[string]bool, len(headers))
	for i, header := range cleaned {
		if !first[header] {
			first[header] = true
			continue
		}
		name := header
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", header, n)
		}
		taken[name] = true
		cleaned[i] = name
	}

	return cleaned
}

// extractDataRows converts the data rows to ordered rows. Blank rows are
// skipped; missing trailing cells become "".
func extractDataRows(allRows [][]string, headers []string, settings config.CSVSettings) []types.Row {
	startIndex := settings.DataStartRow - 1
	if startIndex < settings.HeaderRows {
		startIndex = settings.HeaderRows
	}
	if startIndex >= len(allRows) {
		return []types.Row{}
	}

	dataRows := make([]types.Row, 0, len(allRows)-startIndex)
	for rowIndex := startIndex; rowIndex < len(allRows); rowIndex++ {
		row := allRows[rowIndex]
		if isRowEmpty(row) {
			continue
		}
		dataRows = append(dataRows, toRow(headers, row))
	}
	return dataRows
}

func toRow(headers []string, record []string) types.Row {
	values := make([]any, len(headers))
	for i := range headers {
		if i < len(record) {
			values[i] = strings.TrimSpace(record[i])
		} else {
			values[i] = ""
		}
	}
	return types.RowFromPairs(headers, values)
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
