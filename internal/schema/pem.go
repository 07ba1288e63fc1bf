package schema

import (
	"strings"

	"github.com/ginjaninja78/axisz-resolver/internal/keys"
	"github.com/ginjaninja78/axisz-resolver/internal/numeric"
	"github.com/ginjaninja78/axisz-resolver/internal/resolver"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// =============================================================================
// PEM TABLE
// =============================================================================
//
// The budget table has one row per building use and three columns: the unit
// budget per m², the project area and the budget of the use. When a unit
// budget is known the use budget is computed as unit × area, otherwise the
// stored use budget is taken as is.
//
// =============================================================================

var (
	unitKeywords   = []string{"pem", "modulo", "unitario", "coac", "valor"}
	unitExclusions = []string{"total", "presupuesto", "ejecucion"}
	useKeywords    = []string{"pem", "presupuesto", "ejecucion", "coste", "total"}
	useExclusions  = []string{"sup", "m2", "edificado", "area", "construido", "unitario", "modulo", "coac"}
)

// PEMValue resolves one cell of the PEM table. The configured keys are tried
// first with exact matching, then keyword scans for the unit and use
// columns. A miss returns PEMNotFound and nil.
func (s *Schemas) PEMValue(data types.Row, rowLabel, colLabel string) (string, any) {
	for _, key := range s.PEM.Keys[rowLabel][colLabel] {
		if l := resolver.FindByLabel(data, key, true); l.Found() {
			return key, l.Value
		}
	}

	var keep func(kn string) bool
	switch colLabel {
	case PEMUnit:
		keep = func(kn string) bool {
			return !containsAny(kn, unitExclusions...) && containsAny(kn, unitKeywords...)
		}
	case PEMUse:
		keep = func(kn string) bool {
			return !containsAny(kn, useExclusions...) && containsAny(kn, useKeywords...)
		}
	default:
		return PEMNotFound, nil
	}

	rowWords := labelWords(rowLabel)
	var (
		foundKey string
		foundVal any
		found    bool
	)
	data.Range(func(k string, v any) bool {
		kn := keys.NormalizeKey(k)
		if keep(kn) && containsAny(kn, rowWords...) {
			foundKey, foundVal, found = k, v, true
			return false
		}
		return true
	})
	if !found {
		return PEMNotFound, nil
	}
	return foundKey, foundVal
}

// labelWords splits a row label on spaces and normalizes each word, so
// "Urb. Interior" gives "urb" and "interior".
func labelWords(label string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(label)) {
		if n := keys.NormalizeKey(w); n != "" {
			words = append(words, n)
		}
	}
	return words
}

// PEMRow is one resolved line of the PEM table.
type PEMRow struct {
	Label      string  `json:"label"`
	UnitKey    string  `json:"unitKey"`
	Unit       float64 `json:"unit"`
	AreaKey    string  `json:"areaKey"`
	Area       float64 `json:"area"`
	UseKey     string  `json:"useKey"`
	Total      float64 `json:"total"`
	Calculated bool    `json:"calculated"`
}

// PEMTable is the resolved PEM table.
type PEMTable struct {
	Rows []PEMRow `json:"rows"`

	// Sum adds the totals of every row.
	Sum float64 `json:"sum"`

	// Total is the stored project PEM when one exists, Sum otherwise.
	Total    float64 `json:"total"`
	TotalKey string  `json:"totalKey,omitempty"`
}

// ResolvePEM builds the PEM table from the general data.
func (s *Schemas) ResolvePEM(data types.Row) PEMTable {
	var t PEMTable
	for _, label := range s.PEM.Rows {
		uk, uv := s.PEMValue(data, label, PEMUnit)
		ak, av := s.PEMValue(data, label, PEMArea)
		sk, sv := s.PEMValue(data, label, PEMUse)

		r := PEMRow{
			Label:   label,
			UnitKey: uk,
			Unit:    numeric.Parse(uv),
			AreaKey: ak,
			Area:    numeric.Parse(av),
			UseKey:  sk,
			Total:   numeric.Parse(sv),
		}
		if r.Unit != 0 {
			r.Total = r.Unit * r.Area
			r.Calculated = true
		}
		t.Rows = append(t.Rows, r)
		t.Sum += r.Total
	}

	t.Total = t.Sum
	if key, v, ok := s.storedPEMTotal(data); ok && !resolver.IsFalsy(v) {
		t.Total = numeric.Parse(v)
		t.TotalKey = key
	}
	return t
}

func (s *Schemas) storedPEMTotal(data types.Row) (string, any, bool) {
	label := s.PEM.TotalLabel
	if label == "" {
		label = "PEM TOTAL"
	}
	if l := resolver.FindByLabel(data, label, false); l.Found() {
		return l.Key, l.Value, true
	}

	var (
		key string
		val any
		ok  bool
	)
	data.Range(func(k string, v any) bool {
		kn := keys.NormalizeKey(k)
		if strings.Contains(kn, "pem") && strings.Contains(kn, "total") && !strings.Contains(kn, "unitario") {
			key, val, ok = k, v, true
			return false
		}
		return true
	})
	return key, val, ok
}
