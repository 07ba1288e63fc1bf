// =============================================================================
// AXIS-Z Resolver - Data Quality Diagnostics
// =============================================================================
//
// This module checks how well a raw project export matches the schemas. For
// every parameter the schemas expect it records what the fuzzy resolver
// finds in a sample and grades it:
//   - missing: no key matched
//   - null:    a key matched but holds null
//   - empty:   a key matched but holds blank text
//   - zero:    a key matched but holds 0
//   - ok:      anything else
//
// DIAGNOSTIC SOURCES:
//   1. General data: every card figure, looked up in ds_generales
//   2. Units: every schema column, looked up in the first ts_general row
//   3. Garages and storages: every column, looked up in the first row
//
// Diagnostics never fail. A table without rows contributes nothing.
//
// =============================================================================

package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/ginjaninja78/axisz-resolver/internal/keys"
	"github.com/ginjaninja78/axisz-resolver/internal/resolver"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// =============================================================================
// DATA QUALITY
// =============================================================================

// Quality grades one resolved value.
type Quality string

const (
	QualityMissing Quality = "missing"
	QualityNull    Quality = "null"
	QualityEmpty   Quality = "empty"
	QualityZero    Quality = "zero"
	QualityOK      Quality = "ok"
)

// AllQualities lists the grades from worst to best.
var AllQualities = []Quality{QualityMissing, QualityNull, QualityEmpty, QualityZero, QualityOK}

// DetectQuality grades v. present is false when no key matched at all.
func DetectQuality(v any, present bool) Quality {
	if !present {
		return QualityMissing
	}
	switch x := v.(type) {
	case nil:
		return QualityNull
	case string:
		if strings.TrimSpace(x) == "" {
			return QualityEmpty
		}
		if x == "0" {
			return QualityZero
		}
	case float64:
		if x == 0 {
			return QualityZero
		}
	case int:
		if x == 0 {
			return QualityZero
		}
	case int64:
		if x == 0 {
			return QualityZero
		}
	}
	return QualityOK
}

// =============================================================================
// DATA TYPE INFERENCE
// =============================================================================

// Data type labels.
const (
	TypeNull       = "null"
	TypeCurrency   = "Currency (€)"
	TypePercentage = "Percentage (%)"
	TypeArea       = "Area (m²)"
	TypeDate       = "Date"
	TypeCode       = "ID / Code"
	TypeStatus     = "Status"
	TypeArray      = "Array"
	TypeInteger    = "Integer"
	TypeFloat      = "Float"
	TypeBoolean    = "Boolean"
	TypeString     = "String"
)

// semanticTypes is checked in order; the first rule whose hint appears in
// the key wins.
var semanticTypes = []struct {
	label string
	hints []string
}{
	{TypeCurrency, []string{"precio", "pem", "coste", "valor", "importe", "pvp", "fianza", "tasas"}},
	{TypePercentage, []string{"porc", "percent", "%", "pct"}},
	{TypeArea, []string{"sup", "area", "m2", "surface", "edificabilidad"}},
	{TypeDate, []string{"fecha", "date", "cfo"}},
	{TypeCode, []string{"id", "codigo", "ref"}},
	{TypeStatus, []string{"estado", "status", "situacion"}},
}

// DetectType infers the data type of v, first from the meaning of key and
// then from the Go type of v.
func DetectType(v any, key string) string {
	if v == nil {
		return TypeNull
	}

	k := strings.ToLower(key)
	for _, st := range semanticTypes {
		for _, h := range st.hints {
			if strings.Contains(k, h) {
				return st.label
			}
		}
	}

	switch x := v.(type) {
	case []any:
		return TypeArray
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return TypeInteger
		}
		return TypeFloat
	case int, int64, int32:
		return TypeInteger
	case bool:
		return TypeBoolean
	}
	return TypeString
}

// =============================================================================
// PARAMETER INDEX
// =============================================================================

// Parameter is one expected field and what the sample holds for it.
type Parameter struct {
	ID       string  `json:"id"`
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Group    string  `json:"group"`
	Location string  `json:"location"`
	Value    any     `json:"currentValue"`
	Type     string  `json:"dataType"`
	Quality  Quality `json:"dataQuality"`
}

// Parameter groups.
const (
	GroupGeneral  = "Datos Generales"
	GroupUnits    = "Viviendas (TS)"
	GroupGarages  = "Garajes"
	GroupStorages = "Trasteros"
)

// indexBuilder numbers parameters as they are added.
type indexBuilder struct {
	params []Parameter
}

func (b *indexBuilder) add(key, label, group, location string, v any, present bool) {
	b.params = append(b.params, Parameter{
		ID:       fmt.Sprintf("IdPar-%04d", len(b.params)+1),
		Key:      key,
		Label:    label,
		Group:    group,
		Location: location,
		Value:    v,
		Type:     DetectType(v, key),
		Quality:  DetectQuality(v, present),
	})
}

// BuildParameterIndex lists every parameter the schemas expect, in card,
// unit, garage and storage order, with IDs IdPar-0001, IdPar-0002, ...
func BuildParameterIndex(raw types.ProjectDataRaw, s *schema.Schemas) []Parameter {
	var b indexBuilder

	for _, card := range s.Cards {
		location := "Tarjeta " + card.ID
		for _, item := range card.Items {
			v, ok := resolver.Find(raw.General, item.Label)
			b.add(keys.StandardKey(item.Label), item.Label, GroupGeneral, location, v, ok)
		}
	}

	if len(raw.Units) > 0 {
		sample := raw.Units[0]
		for _, col := range s.UnitColumns() {
			suffix := schema.Suffix(col)
			v, ok := resolver.Find(sample, col, suffix)
			b.add(keys.StandardKey(col), suffix, GroupUnits, "Tabla Proyecto", v, ok)
		}
	}

	services := []struct {
		rows     []types.Row
		groups   []schema.ServiceGroup
		group    string
		location string
	}{
		{raw.Garages, s.Garages, GroupGarages, "Tabla Garajes"},
		{raw.Storages, s.Storages, GroupStorages, "Tabla Trasteros"},
	}
	for _, svc := range services {
		if len(svc.rows) == 0 {
			continue
		}
		sample := svc.rows[0]
		for _, g := range svc.groups {
			for _, col := range g.Columns {
				v, ok := resolver.Find(sample, col.Key, col.Label)
				b.add(keys.StandardKey(col.Label), col.Label, svc.group, svc.location, v, ok)
			}
		}
	}

	return b.params
}

// =============================================================================
// TABLE DIAGNOSTICS
// =============================================================================

// ColumnReport is what one table column resolves to in a sample row.
type ColumnReport struct {
	Group      string   `json:"group"`
	Column     string   `json:"column"`
	Label      string   `json:"label"`
	SearchKeys []string `json:"searchKeys"`
	FoundKey   string   `json:"foundKey,omitempty"`
	Value      any      `json:"value"`
	Quality    Quality  `json:"quality"`
}

// UnitTableDiagnostic resolves every unit column against sample using the
// column key, its label and its suffix.
func UnitTableDiagnostic(groups []schema.UnitGroup, sample types.Row) []ColumnReport {
	var out []ColumnReport
	for _, g := range groups {
		for _, col := range g.Columns {
			label := schema.Suffix(col)
			out = append(out, columnReport(g.Name, col, label, sample, col, label, label))
		}
	}
	return out
}

// ServiceTableDiagnostic resolves every service column against sample using
// the column key and its label.
func ServiceTableDiagnostic(groups []schema.ServiceGroup, sample types.Row) []ColumnReport {
	var out []ColumnReport
	for _, g := range groups {
		for _, col := range g.Columns {
			out = append(out, columnReport(g.Name, col.Key, col.Label, sample, col.Key, col.Label))
		}
	}
	return out
}

func columnReport(group, column, label string, sample types.Row, searchKeys ...string) ColumnReport {
	key, v, ok := resolver.FindKey(sample, searchKeys...)
	return ColumnReport{
		Group:      group,
		Column:     column,
		Label:      label,
		SearchKeys: searchKeys,
		FoundKey:   key,
		Value:      v,
		Quality:    DetectQuality(v, ok),
	}
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary counts parameters per quality grade.
type Summary struct {
	Total     int             `json:"total"`
	ByQuality map[Quality]int `json:"byQuality"`
}

// Summarize counts the grades of params.
func Summarize(params []Parameter) Summary {
	s := Summary{Total: len(params), ByQuality: make(map[Quality]int, len(AllQualities))}
	for _, q := range AllQualities {
		s.ByQuality[q] = 0
	}
	for _, p := range params {
		s.ByQuality[p.Quality]++
	}
	return s
}

// Coverage returns the share of parameters graded ok, between 0 and 1.
func (s Summary) Coverage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ByQuality[QualityOK]) / float64(s.Total)
}

// Issues returns the parameters not graded ok.
func Issues(params []Parameter) []Parameter {
	var out []Parameter
	for _, p := range params {
		if p.Quality != QualityOK {
			out = append(out, p)
		}
	}
	return out
}

// Filter keeps the parameters whose label or group contains query, ignoring
// case.
func Filter(params []Parameter, query string) []Parameter {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return params
	}
	var out []Parameter
	for _, p := range params {
		if strings.Contains(strings.ToLower(p.Label), q) || strings.Contains(strings.ToLower(p.Group), q) {
			out = append(out, p)
		}
	}
	return out
}
