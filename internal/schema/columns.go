package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/axisz-resolver/internal/errorlog"
	"github.com/ginjaninja78/axisz-resolver/internal/keys"
	"github.com/ginjaninja78/axisz-resolver/internal/numeric"
	"github.com/ginjaninja78/axisz-resolver/internal/resolver"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// =============================================================================
// COMPUTED COLUMNS AND SENTINELS
// =============================================================================

const (
	// ColUnitID is the computed column holding the resolved unit ID.
	ColUnitID = "_VIVIENDAS"

	// ColStatus is the computed column holding the unit status.
	ColStatus = "_ESTADO"

	// ErrValue is returned for a column no candidate could resolve.
	ErrValue = "ERR"

	// UnknownRef is the log reference of rows without a resolvable ID.
	UnknownRef = "UNKNOWN"

	// ContextColumns is the log context of units table lookups.
	ContextColumns = "columns"
)

// =============================================================================
// STATUS INFERENCE
// =============================================================================

// InferStatus classifies free status text: anything mentioning RESERV is
// reserved, VENDID or SOLD is sold, everything else (including "") is
// available.
func InferStatus(text string) types.Status {
	up := strings.ToUpper(text)
	switch {
	case strings.Contains(up, "RESERV"):
		return types.StatusReserved
	case strings.Contains(up, "VENDID"), strings.Contains(up, "SOLD"):
		return types.StatusSold
	default:
		return types.StatusAvailable
	}
}

// InferStatusValue is InferStatus over a raw value. A types.Status passes
// through unchanged.
func InferStatusValue(v any) types.Status {
	if st, ok := v.(types.Status); ok {
		return st
	}
	return InferStatus(types.FormatValue(v))
}

// =============================================================================
// COLUMN RESOLVER
// =============================================================================

// ColumnResolver resolves units table columns against raw rows, building the
// candidate list from the column key itself, its suffix after the group
// prefix and their SmartKey/CleanName variants.
type ColumnResolver struct {
	schemas *Schemas
	log     *errorlog.Log
	status  map[string]types.Status
}

// NewColumnResolver creates a resolver. units, when given, supply the
// reconciled status of each unit ID for the status column.
func NewColumnResolver(s *Schemas, log *errorlog.Log, units []types.Unit) *ColumnResolver {
	r := &ColumnResolver{
		schemas: s,
		log:     log,
		status:  make(map[string]types.Status, len(units)),
	}
	for _, u := range units {
		r.status[u.ID] = u.Status
	}
	return r
}

// RowID resolves the identifier of a units table row.
func (r *ColumnResolver) RowID(row types.Row) (any, bool) {
	v, ok := resolver.Find(row, r.schemas.Fields.Units.RowID...)
	if !ok || resolver.IsFalsy(v) {
		return v, false
	}
	return v, true
}

// Value returns the value shown in column colKey for row. A column that
// resolves to nothing usable is recorded in the log and returned as
// ErrValue.
func (r *ColumnResolver) Value(row types.Row, colKey string) any {
	foundID, hasID := r.RowID(row)
	ref := UnknownRef
	if hasID {
		ref = types.FormatValue(foundID)
	}

	if v, ok := row.Get(colKey); ok {
		return v
	}

	switch colKey {
	case ColUnitID:
		return foundID
	case ColStatus:
		if hasID {
			if st, ok := r.status[ref]; ok {
				return st
			}
		}
		v, _ := resolver.Find(row, r.schemas.Fields.Units.Status...)
		return v
	}

	suffix := Suffix(colKey)
	candidates := []string{
		keys.SmartKey(suffix),
		keys.SmartKey(colKey),
		suffix,
		colKey,
		keys.CleanName(suffix),
		keys.CleanName(colKey),
	}

	if v, ok := resolver.Find(row, candidates...); ok && !resolver.IsBlank(v) {
		return v
	}

	if r.log != nil {
		r.log.Record(ContextColumns, ref, colKey,
			fmt.Sprintf("no value for '%s' or its variants", suffix))
	}
	return ErrValue
}

// Filter keeps the rows whose resolved columns match every non-empty
// criterion. Status matches as a case-insensitive substring of the raw
// label, the price range as [min, max), everything else exactly and
// case-sensitively.
func (r *ColumnResolver) Filter(rows []types.Row, f Filters) []types.Row {
	if f.IsZero() {
		return rows
	}
	var out []types.Row
	for _, row := range rows {
		if r.matches(row, f) {
			out = append(out, row)
		}
	}
	return out
}

func (r *ColumnResolver) matches(row types.Row, f Filters) bool {
	exact := []struct {
		want, col string
	}{
		{f.Building, "DATOS GENERALES_EDIFICIO"},
		{f.Floor, "UBICACIÓN_NIVEL"},
		{f.Bedrooms, "DATOS GENERALES_Nº DORM"},
		{f.Type, "UBICACIÓN_TIPO"},
		{f.Position, "UBICACIÓN_POSICIÓN"},
		{f.Orientation, "UBICACIÓN_ORIENTACIÓN"},
	}
	for _, c := range exact {
		if c.want != "" && types.FormatValue(r.Value(row, c.col)) != c.want {
			return false
		}
	}
	if f.Status != "" {
		v := r.Value(row, ColStatus)
		got := strings.ToUpper(types.FormatValue(v))
		if st, ok := v.(types.Status); ok {
			got = st.RawLabel()
		}
		if !strings.Contains(got, strings.ToUpper(f.Status)) {
			return false
		}
	}
	if lo, hi, ok := ParsePriceRange(f.PriceRange); ok {
		v, _ := resolver.Find(row, r.schemas.Fields.Units.Price...)
		if p := numeric.Parse(v); p < lo || p >= hi {
			return false
		}
	}
	return true
}

// ParsePriceRange reads a "min-max" price range. A range that does not
// parse is reported as not ok and does not filter.
func ParsePriceRange(s string) (lo, hi float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) < 2 {
		return 0, 0, false
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	hi, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// Filters narrows the units table. Empty fields do not filter.
type Filters struct {
	Building    string `yaml:"building"`
	Floor       string `yaml:"floor"`
	Bedrooms    string `yaml:"bedrooms"`
	Type        string `yaml:"type"`
	Position    string `yaml:"position"`
	Orientation string `yaml:"orientation"`
	Status      string `yaml:"status"`
	PriceRange  string `yaml:"price_range"`
}

// IsZero reports whether no criterion is set.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// Suffix strips the group prefix from a flattened column key: everything up
// to and including the first underscore. Keys without one are returned as is.
func Suffix(colKey string) string {
	if i := strings.Index(colKey, "_"); i >= 0 {
		return colKey[i+1:]
	}
	return colKey
}
