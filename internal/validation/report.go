package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// =============================================================================
// REPORT
// =============================================================================

// Report bundles every diagnostic of one project.
type Report struct {
	Project    string         `json:"project"`
	Summary    Summary        `json:"summary"`
	Parameters []Parameter    `json:"parameters"`
	Units      []ColumnReport `json:"units,omitempty"`
	Garages    []ColumnReport `json:"garages,omitempty"`
	Storages   []ColumnReport `json:"storages,omitempty"`
}

// Diagnose runs every diagnostic over raw. Tables without rows get no
// column report.
func Diagnose(raw types.ProjectDataRaw, s *schema.Schemas) Report {
	params := BuildParameterIndex(raw, s)
	r := Report{
		Project:    raw.Name,
		Summary:    Summarize(params),
		Parameters: params,
	}
	if len(raw.Units) > 0 {
		r.Units = UnitTableDiagnostic(s.Units, raw.Units[0])
	}
	if len(raw.Garages) > 0 {
		r.Garages = ServiceTableDiagnostic(s.Garages, raw.Garages[0])
	}
	if len(raw.Storages) > 0 {
		r.Storages = ServiceTableDiagnostic(s.Storages, raw.Storages[0])
	}
	return r
}

// FormatJSON renders v as indented JSON.
func FormatJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}

// FormatSummary renders a one-paragraph summary of s.
//
// Example:
//
//	42 parameters, 35 ok (83.3%)
//	missing: 4, null: 0, empty: 1, zero: 2
func FormatSummary(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d parameters, %d ok (%.1f%%)\n", s.Total, s.ByQuality[QualityOK], s.Coverage()*100)

	parts := make([]string, 0, len(AllQualities)-1)
	for _, q := range AllQualities {
		if q == QualityOK {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d", q, s.ByQuality[q]))
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString("\n")
	return b.String()
}

// ParameterRows turns params into table rows for FormatTable.
func ParameterRows(params []Parameter) (header []string, rows [][]string) {
	header = []string{"ID", "GROUP", "LABEL", "LOCATION", "VALUE", "TYPE", "QUALITY"}
	for _, p := range params {
		rows = append(rows, []string{
			p.ID, p.Group, p.Label, p.Location, displayValue(p.Value), p.Type, string(p.Quality),
		})
	}
	return header, rows
}

// ColumnRows turns column reports into table rows for FormatTable.
func ColumnRows(reports []ColumnReport) (header []string, rows [][]string) {
	header = []string{"GROUP", "COLUMN", "FOUND KEY", "VALUE", "QUALITY"}
	for _, r := range reports {
		found := r.FoundKey
		if found == "" {
			found = "-"
		}
		rows = append(rows, []string{
			r.Group, r.Label, found, displayValue(r.Value), string(r.Quality),
		})
	}
	return header, rows
}

func displayValue(v any) string {
	if v == nil {
		return "null"
	}
	s := types.FormatValue(v)
	return strings.ReplaceAll(s, "|", "/")
}

// FormatTable renders a markdown table whose columns are padded to the
// display width of their widest cell, never narrower than three.
func FormatTable(header []string, rows [][]string) string {
	colWidths := make([]int, len(header))
	measure := func(row []string) {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if w := runewidth.StringWidth(row[i]); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}
	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	var b strings.Builder
	writeRow := func(row []string, separator bool) {
		b.WriteString("|")
		for j := range colWidths {
			b.WriteString(" ")
			if separator {
				b.WriteString(strings.Repeat("-", colWidths[j]))
			} else {
				content := ""
				if j < len(row) {
					content = row[j]
				}
				b.WriteString(content)
				if pad := colWidths[j] - runewidth.StringWidth(content); pad > 0 {
					b.WriteString(strings.Repeat(" ", pad))
				}
			}
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(header, false)
	writeRow(nil, true)
	for _, row := range rows {
		writeRow(row, false)
	}
	return b.String()
}

// FormatReport renders the whole report as markdown sections.
func FormatReport(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Diagnostics: %s\n\n", r.Project)
	b.WriteString(FormatSummary(r.Summary))

	b.WriteString("\n## Parameters\n\n")
	b.WriteString(FormatTable(ParameterRows(r.Parameters)))

	sections := []struct {
		title   string
		reports []ColumnReport
	}{
		{"Units", r.Units},
		{"Garages", r.Garages},
		{"Storages", r.Storages},
	}
	for _, s := range sections {
		if len(s.reports) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", s.title)
		b.WriteString(FormatTable(ColumnRows(s.reports)))
	}
	return b.String()
}
