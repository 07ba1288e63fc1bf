// =============================================================================
// AXIS-Z Resolver - Data Mapper Module
// =============================================================================
//
// This module turns raw project rows into domain entities and writes domain
// edits back into raw rows.
//
// FORWARD MAPPING:
//   Every typed field is resolved through the fuzzy resolver with the
//   candidate list configured for it in the schemas. Numeric fields pass
//   through the numeric parser. A required field that resolves to nothing
//   is recorded in the error log and takes its zero value. The source row
//   always travels with the entity in its Raw field.
//
// REVERSE MAPPING:
//   See reverse.go. Edits only ever add or overwrite the keys that represent
//   the edited fields; every other raw key is left untouched.
//
// =============================================================================

package mapper

import (
	"fmt"

	"github.com/ginjaninja78/axisz-resolver/internal/errorlog"
	"github.com/ginjaninja78/axisz-resolver/internal/numeric"
	"github.com/ginjaninja78/axisz-resolver/internal/resolver"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

const (
	// ContextMapper is the error log context of forward mapping.
	ContextMapper = "mapper"

	// UnknownID is the ID given to rows without a resolvable identifier.
	UnknownID = "UNK"
)

// Mapper maps raw rows using one set of schemas and reports misses to one
// error log.
type Mapper struct {
	schemas *schema.Schemas
	log     *errorlog.Log
}

// New creates a Mapper. A nil log gets a fresh one.
func New(s *schema.Schemas, log *errorlog.Log) *Mapper {
	if log == nil {
		log = errorlog.New()
	}
	return &Mapper{schemas: s, log: log}
}

// Log returns the error log misses are recorded in.
func (m *Mapper) Log() *errorlog.Log {
	return m.log
}

// Schemas returns the schemas the mapper resolves with.
func (m *Mapper) Schemas() *schema.Schemas {
	return m.schemas
}

// =============================================================================
// FIELD READER
// =============================================================================

// fieldReader resolves the fields of one row and records the misses under
// the row's reference.
type fieldReader struct {
	m   *Mapper
	row types.Row
	ref string
}

func (r fieldReader) miss(param, msg string) {
	r.m.log.Record(ContextMapper, r.ref, param, msg)
}

// value resolves a required field. Missing, nil and "" are recorded.
func (r fieldReader) value(param string, candidates []string) (any, bool) {
	v, ok := resolver.Find(r.row, candidates...)
	if !ok || resolver.IsBlank(v) {
		r.miss(param, "field not found, using default")
		return nil, false
	}
	return v, true
}

func (r fieldReader) text(param string, candidates []string) string {
	v, ok := r.value(param, candidates)
	if !ok || resolver.IsFalsy(v) {
		return ""
	}
	return types.FormatValue(v)
}

func (r fieldReader) number(param string, candidates []string) float64 {
	v, ok := r.value(param, candidates)
	if !ok {
		return 0
	}
	return numeric.Parse(v)
}

func (r fieldReader) integer(param string, candidates []string) int {
	return int(r.number(param, candidates))
}

// optional resolves a field whose absence is normal. Falsy values are "".
func (r fieldReader) optional(candidates []string) string {
	v, ok := resolver.Find(r.row, candidates...)
	if !ok || resolver.IsFalsy(v) {
		return ""
	}
	return types.FormatValue(v)
}

// status classifies the status text, defaulting to available.
func (r fieldReader) status(candidates []string) types.Status {
	v, ok := resolver.Find(r.row, candidates...)
	if !ok || resolver.IsFalsy(v) {
		return types.StatusAvailable
	}
	return schema.InferStatusValue(v)
}

// =============================================================================
// UNITS
// =============================================================================

// MapUnit resolves one ts_general row.
func (m *Mapper) MapUnit(row types.Row) types.Unit {
	f := m.schemas.Fields.Units

	id, hasID := schema.ResolveID(row, f.ID)
	ref := id
	if !hasID {
		m.log.Record(ContextMapper, schema.UnknownRef, "ID", "row without identifier")
		id = UnknownID
		ref = schema.UnknownRef
	}
	r := fieldReader{m: m, row: row, ref: ref}

	u := types.Unit{
		ID:              id,
		Status:          r.status(f.Status),
		Bedrooms:        r.integer("bedrooms", f.Bedrooms),
		Bathrooms:       r.integer("bathrooms", f.Bathrooms),
		Building:        r.text("building", f.Building),
		Floor:           r.integer("floor", f.Floor),
		Type:            r.text("type", f.Type),
		Position:        r.text("position", f.Position),
		Orientation:     r.text("orientation", f.Orientation),
		TotalBuiltArea:  r.number("totalBuiltArea", f.TotalBuiltArea),
		TotalUsefulArea: r.number("totalUsefulArea", f.TotalUsefulArea),
		GarageID:        r.optional(f.GarageID),
		StorageID:       r.optional(f.StorageID),
		BuyerID:         r.optional(f.BuyerID),
		Notes:           r.optional(f.Notes),
		ReservationDate: r.optional(f.ReservationDate),
		SaleDate:        r.optional(f.SaleDate),
		Raw:             row.Clone(),
	}

	// Zero counts as a missing price.
	priceRaw, _ := resolver.Find(row, f.Price...)
	if resolver.IsFalsy(priceRaw) {
		r.miss("price", "price not found, defaulting to 0")
	} else {
		u.Price = numeric.Parse(priceRaw)
	}

	return u
}

// MapUnits resolves every row of the units table.
func (m *Mapper) MapUnits(rows []types.Row) []types.Unit {
	units := make([]types.Unit, 0, len(rows))
	for _, row := range rows {
		units = append(units, m.MapUnit(row))
	}
	return units
}

// =============================================================================
// GARAGES AND STORAGES
// =============================================================================

// serviceID resolves the ID of a service row. A miss is recorded under
// UnknownRef and yields UnknownID.
func (m *Mapper) serviceID(kind types.ServiceKind, row types.Row, candidates []string) string {
	if id, ok := schema.ResolveID(row, candidates); ok {
		return id
	}
	m.log.Record(ContextMapper, schema.UnknownRef, "ID", fmt.Sprintf("%s row without identifier", kind))
	return UnknownID
}

// MapGarage resolves one garajes row.
func (m *Mapper) MapGarage(row types.Row) types.Garage {
	f := m.schemas.Fields.Garages
	r := fieldReader{m: m, row: row}

	price, _ := resolver.Find(row, f.Price...)
	area, _ := resolver.Find(row, f.Area...)

	return types.Garage{
		ID:         m.serviceID(types.KindGarage, row, f.ID),
		Status:     r.status(f.Status),
		Type:       r.optional(f.Type),
		Price:      numeric.Parse(price),
		UsefulArea: numeric.Parse(area),
		Notes:      r.optional(f.Notes),
		Raw:        row.Clone(),
	}
}

// MapStorage resolves one trasteros row.
func (m *Mapper) MapStorage(row types.Row) types.Storage {
	f := m.schemas.Fields.Storages
	r := fieldReader{m: m, row: row}

	price, _ := resolver.Find(row, f.Price...)
	area, _ := resolver.Find(row, f.Area...)

	return types.Storage{
		ID:         m.serviceID(types.KindStorage, row, f.ID),
		Status:     r.status(f.Status),
		Price:      numeric.Parse(price),
		UsefulArea: numeric.Parse(area),
		Notes:      r.optional(f.Notes),
		Raw:        row.Clone(),
	}
}

// MapGarages resolves every row of the garages table.
func (m *Mapper) MapGarages(rows []types.Row) []types.Garage {
	out := make([]types.Garage, 0, len(rows))
	for _, row := range rows {
		out = append(out, m.MapGarage(row))
	}
	return out
}

// MapStorages resolves every row of the storages table.
func (m *Mapper) MapStorages(rows []types.Row) []types.Storage {
	out := make([]types.Storage, 0, len(rows))
	for _, row := range rows {
		out = append(out, m.MapStorage(row))
	}
	return out
}

// =============================================================================
// PROJECT
// =============================================================================

// MapProject resolves a complete raw snapshot.
func (m *Mapper) MapProject(raw types.ProjectDataRaw) types.Project {
	return types.Project{
		Name:     raw.Name,
		General:  raw.General.Clone(),
		Units:    m.MapUnits(raw.Units),
		Garages:  m.MapGarages(raw.Garages),
		Storages: m.MapStorages(raw.Storages),
	}
}
