// =============================================================================
// AXIS-Z Resolver - Export Module
// =============================================================================
//
// This module writes resolved projects to disk, as JSON or as an XLSX
// workbook.
//
// JSON DOCUMENT:
//   {
//     "project": "Lomas",
//     "generatedAt": "2025-01-01T10:00:00Z",
//     "cards": [...],          // general-data cards, resolved and formatted
//     "bottomMetrics": [...],
//     "pem": {...},            // PEM table with row totals and project total
//     "units": [...],          // typed units, each with its rawFields
//     "garages": [...],
//     "storages": [...],
//     "general": {...},        // the raw ds_generales object
//     "stats": {...}           // sales KPIs, breakdowns and cash flow
//   }
//
// XLSX WORKBOOK:
//   | Sheet            | Content                                          |
//   |------------------|--------------------------------------------------|
//   | Datos Generales  | every card figure: card, label, value            |
//   | PEM              | the PEM table                                    |
//   | Unidades         | the units table, grouped headers, display values |
//   | Garajes          | the garages table                                |
//   | Trasteros        | the storages table                               |
//   | Resumen          | sales KPIs, status breakdowns and cash flow      |
//
// Display values follow the es-ES formatting of the schema package; a units
// column that resolves to nothing shows ERR and is recorded in the error log.
//
// =============================================================================

package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/axisz-resolver/internal/errorlog"
	"github.com/ginjaninja78/axisz-resolver/internal/numeric"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/stats"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// Sheet names.
const (
	SheetGeneral  = "Datos Generales"
	SheetPEM      = "PEM"
	SheetUnits    = "Unidades"
	SheetGarages  = "Garajes"
	SheetStorages = "Trasteros"
	SheetSummary  = "Resumen"
)

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is the exported form of a resolved project.
type Document struct {
	Project       string                `json:"project"`
	GeneratedAt   time.Time             `json:"generatedAt"`
	Cards         []schema.ResolvedCard `json:"cards"`
	BottomMetrics []schema.CardValue    `json:"bottomMetrics"`
	PEM           schema.PEMTable       `json:"pem"`
	Units         []types.Unit          `json:"units"`
	Garages       []types.Garage        `json:"garages"`
	Storages      []types.Storage       `json:"storages"`
	General       types.Row             `json:"general"`
	Stats         stats.Stats           `json:"stats"`
}

// Options narrow what is exported.
type Options struct {
	// Filters select the exported units. Garages and storages are never
	// filtered.
	Filters schema.Filters
}

// Exporter writes resolved projects with one set of schemas.
type Exporter struct {
	schemas *schema.Schemas
	log     *errorlog.Log
	opts    Options
	now     func() time.Time
}

// New creates an Exporter. A nil log gets a fresh one.
func New(s *schema.Schemas, log *errorlog.Log, opts Options) *Exporter {
	if log == nil {
		log = errorlog.New()
	}
	return &Exporter{schemas: s, log: log, opts: opts, now: time.Now}
}

// BuildDocument resolves cards and the PEM table, applies the unit
// filters and computes the sales statistics.
func (e *Exporter) BuildDocument(p types.Project) Document {
	units := e.filterUnits(p.Units)
	return Document{
		Project:       p.Name,
		GeneratedAt:   e.now().UTC(),
		Cards:         e.schemas.ResolveCards(p.General),
		BottomMetrics: e.schemas.ResolveBottomMetrics(p.General),
		PEM:           e.schemas.ResolvePEM(p.General),
		Units:         units,
		Garages:       nonNilGarages(p.Garages),
		Storages:      nonNilStorages(p.Storages),
		General:       p.General,
		Stats:         stats.Compute(p.Units, units),
	}
}

// Stats computes the sales statistics of p under the unit filters.
func (e *Exporter) Stats(p types.Project) stats.Stats {
	return stats.Compute(p.Units, e.filterUnits(p.Units))
}

// filterUnits keeps the units whose raw row passes the filters.
func (e *Exporter) filterUnits(units []types.Unit) []types.Unit {
	if e.opts.Filters.IsZero() {
		if units == nil {
			return []types.Unit{}
		}
		return units
	}

	cr := schema.NewColumnResolver(e.schemas, e.log, units)
	out := []types.Unit{}
	for _, u := range units {
		if len(cr.Filter([]types.Row{u.Raw}, e.opts.Filters)) == 1 {
			out = append(out, u)
		}
	}
	return out
}

func nonNilGarages(g []types.Garage) []types.Garage {
	if g == nil {
		return []types.Garage{}
	}
	return g
}

func nonNilStorages(s []types.Storage) []types.Storage {
	if s == nil {
		return []types.Storage{}
	}
	return s
}

// =============================================================================
// JSON
// =============================================================================

// WriteJSON writes the project document to w as indented JSON.
func (e *Exporter) WriteJSON(w io.Writer, p types.Project) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e.BuildDocument(p)); err != nil {
		return fmt.Errorf("failed to encode project %s: %w", p.Name, err)
	}
	return nil
}

// WriteJSONFile writes the project document to path.
func (e *Exporter) WriteJSONFile(path string, p types.Project) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := e.WriteJSON(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// =============================================================================
// XLSX
// =============================================================================

// WriteXLSX writes the project workbook to w.
func (e *Exporter) WriteXLSX(w io.Writer, p types.Project) error {
	f, err := e.buildWorkbook(p)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteXLSXFile writes the project workbook to path.
func (e *Exporter) WriteXLSXFile(path string, p types.Project) error {
	f, err := e.buildWorkbook(p)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// sheetWriter appends rows to one sheet.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	bold  int
}

func (w *sheetWriter) write(values ...any) error {
	w.row++
	axis, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(w.sheet, axis, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", w.sheet, w.row, err)
	}
	return nil
}

// header writes a bold row.
func (w *sheetWriter) header(values ...string) error {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := w.write(row...); err != nil {
		return err
	}
	return w.boldRow(len(values))
}

func (w *sheetWriter) boldRow(width int) error {
	if width == 0 {
		return nil
	}
	first, _ := excelize.CoordinatesToCellName(1, w.row)
	last, _ := excelize.CoordinatesToCellName(width, w.row)
	return w.f.SetCellStyle(w.sheet, first, last, w.bold)
}

func (e *Exporter) buildWorkbook(p types.Project) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	doc := e.BuildDocument(p)
	steps := []struct {
		sheet string
		fill  func(*sheetWriter) error
	}{
		{SheetGeneral, func(w *sheetWriter) error { return e.writeGeneral(w, doc) }},
		{SheetPEM, func(w *sheetWriter) error { return writePEM(w, doc.PEM) }},
		{SheetUnits, func(w *sheetWriter) error { return e.writeUnits(w, doc.Units) }},
		{SheetGarages, func(w *sheetWriter) error {
			return writeServices(w, e.schemas.Garages, garageItems(doc.Garages))
		}},
		{SheetStorages, func(w *sheetWriter) error {
			return writeServices(w, e.schemas.Storages, storageItems(doc.Storages))
		}},
		{SheetSummary, func(w *sheetWriter) error { return writeSummary(w, doc.Stats) }},
	}

	for i, step := range steps {
		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), step.sheet)
		} else {
			_, err = f.NewSheet(step.sheet)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", step.sheet, err)
		}
		if err := step.fill(&sheetWriter{f: f, sheet: step.sheet, bold: bold}); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (e *Exporter) writeGeneral(w *sheetWriter, doc Document) error {
	if err := w.header("TARJETA", "CAMPO", "VALOR"); err != nil {
		return err
	}
	for _, card := range doc.Cards {
		for _, v := range card.Values {
			if err := w.write(card.Title, v.Item.Label, v.Display); err != nil {
				return err
			}
		}
	}
	for _, v := range doc.BottomMetrics {
		if err := w.write("", v.Item.Label, v.Display); err != nil {
			return err
		}
	}
	return nil
}

func writePEM(w *sheetWriter, t schema.PEMTable) error {
	if err := w.header("USO", schema.PEMUnit, schema.PEMArea, schema.PEMUse); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := w.write(
			r.Label,
			numeric.FormatCurrency(r.Unit, 2),
			numeric.FormatDecimal(r.Area, 2, 2),
			numeric.FormatCurrency(r.Total, 2),
		); err != nil {
			return err
		}
	}
	return w.write("TOTAL", "", "", numeric.FormatCurrency(t.Total, 2))
}

// writeUnits writes the grouped units table: a row of group names over a
// row of column labels, then one display row per unit.
func (e *Exporter) writeUnits(w *sheetWriter, units []types.Unit) error {
	var groups, labels []string
	var cols []string
	for _, g := range e.schemas.Units {
		for i, col := range g.Columns {
			name := ""
			if i == 0 {
				name = g.Name
			}
			groups = append(groups, name)
			labels = append(labels, schema.ColumnLabel(col, g.Name))
			cols = append(cols, col)
		}
	}

	if err := w.header(groups...); err != nil {
		return err
	}
	if err := e.mergeGroups(w); err != nil {
		return err
	}
	if err := w.header(labels...); err != nil {
		return err
	}

	cr := schema.NewColumnResolver(e.schemas, e.log, units)
	for _, u := range units {
		row := make([]any, len(cols))
		for i, col := range cols {
			row[i] = schema.FormatUnitCell(cr.Value(u.Raw, col), col)
		}
		if err := w.write(row...); err != nil {
			return err
		}
	}
	return nil
}

// mergeGroups merges the group header cells across their columns.
func (e *Exporter) mergeGroups(w *sheetWriter) error {
	col := 1
	for _, g := range e.schemas.Units {
		n := len(g.Columns)
		if n > 1 {
			first, _ := excelize.CoordinatesToCellName(col, w.row)
			last, _ := excelize.CoordinatesToCellName(col+n-1, w.row)
			if err := w.f.MergeCell(w.sheet, first, last); err != nil {
				return fmt.Errorf("failed to merge %s group %s: %w", w.sheet, g.Name, err)
			}
		}
		col += n
	}
	return nil
}

func writeServices(w *sheetWriter, groups []schema.ServiceGroup, items []schema.ServiceItem) error {
	var labels []string
	var cols []schema.Column
	for _, g := range groups {
		for _, c := range g.Columns {
			labels = append(labels, c.Label)
			cols = append(cols, c)
		}
	}
	if err := w.header(labels...); err != nil {
		return err
	}

	for _, item := range items {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = schema.ServiceValue(item, c)
		}
		if err := w.write(row...); err != nil {
			return err
		}
	}
	return nil
}

// writeSummary writes the KPI table and every non-empty breakdown, each
// under its own header and separated by a blank row.
func writeSummary(w *sheetWriter, s stats.Stats) error {
	tables := []func() ([]string, [][]string){
		func() ([]string, [][]string) { return stats.KPIRows(s.KPIs) },
		func() ([]string, [][]string) { return stats.GroupRows("EDIFICIO", s.ByBuilding) },
		func() ([]string, [][]string) { return stats.GroupRows("DORMITORIOS", s.ByBedrooms) },
		func() ([]string, [][]string) { return stats.RangeRows(s.PriceRanges) },
		func() ([]string, [][]string) { return stats.CashflowRows(s.Cashflow) },
	}

	first := true
	for _, table := range tables {
		header, rows := table()
		if len(rows) == 0 {
			continue
		}
		if !first {
			w.row++
		}
		first = false

		if err := w.header(header...); err != nil {
			return err
		}
		for _, r := range rows {
			values := make([]any, len(r))
			for i, v := range r {
				values[i] = v
			}
			if err := w.write(values...); err != nil {
				return err
			}
		}
	}
	return nil
}

func garageItems(g []types.Garage) []schema.ServiceItem {
	out := make([]schema.ServiceItem, len(g))
	for i := range g {
		out[i] = g[i]
	}
	return out
}

func storageItems(s []types.Storage) []schema.ServiceItem {
	out := make([]schema.ServiceItem, len(s))
	for i := range s {
		out[i] = s[i]
	}
	return out
}
