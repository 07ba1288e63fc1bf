package resolver

import (
	"strings"

	"github.com/ginjaninja78/axisz-resolver/internal/keys"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// =============================================================================
// LABEL LOOKUP WITH PROVENANCE
// =============================================================================
//
// The general-data object has one key per figure, but its key names drift
// far more than table headers do ("Nº MÁX. VIVIENDAS" may arrive as
// "NUM_MAXIMO_VIVIENDAS"). Lookup therefore works from a display label and
// reports where the value came from, for diagnostic views.
//
// =============================================================================

// LookupStatus tells whether a label resolved.
type LookupStatus string

const (
	StatusFound   LookupStatus = "found"
	StatusMissing LookupStatus = "missing"
)

// Lookup is the provenance triple for one label.
type Lookup struct {
	Status LookupStatus `json:"status"`
	Key    string       `json:"key,omitempty"`
	Value  any          `json:"value"`
}

// Found reports whether the lookup resolved.
func (l Lookup) Found() bool { return l.Status == StatusFound }

// commonMappings lists spellings a label token may take inside a key.
var commonMappings = map[string][]string{
	"max":      {"maximo", "maxim"},
	"viv":      {"vivienda", "viviendas"},
	"plz":      {"plazas", "plaza"},
	"sup":      {"superficie", "sup", "s"},
	"const":    {"construida", "construido"},
	"urb":      {"urbanistica", "urbanistico", "urbanizacion", "urb"},
	"int":      {"interior", "interiores"},
	"ext":      {"exterior", "exteriores", "externa"},
	"unitario": {"unit", "coac"},
	"proyecto": {"project", "proyecto"},
	"uso":      {"usage"},
	"zona":     {"zonas"},
	"comun":    {"comunes", "comun"},
	"anejos":   {"anejo", "anejos"},
}

// FindByLabel resolves label in data. It tries the exact key, then canonical
// equality, and unless exactOnly is set, a token match: every word of the
// label (or one of its common spellings) must appear in the canonical key.
//
// A one-word label only matches a much longer key when the key ends with
// that word, so "ICIO" finds "TASA_ICIO" but not "ICIO_BONIFICADO_PARCIAL".
func FindByLabel(data types.Row, label string, exactOnly bool) Lookup {
	missing := Lookup{Status: StatusMissing}
	if data.Len() == 0 {
		return missing
	}

	if v, ok := data.Get(label); ok {
		return Lookup{Status: StatusFound, Key: label, Value: v}
	}

	rowKeys := data.Keys()
	canon := make([]string, len(rowKeys))
	for i, k := range rowKeys {
		canon[i] = keys.NormalizeKey(k)
	}

	target := keys.NormalizeKey(label)
	for i, k := range rowKeys {
		if canon[i] == target {
			v, _ := data.Get(k)
			return Lookup{Status: StatusFound, Key: k, Value: v}
		}
	}

	if exactOnly {
		return missing
	}

	tokens := keys.Words(label)
	if len(tokens) == 0 {
		return missing
	}
	variants := make([][]string, len(tokens))
	for i, tok := range tokens {
		variants[i] = append([]string{tok}, commonMappings[tok]...)
	}

	for i, k := range rowKeys {
		if tokenMatch(canon[i], tokens, variants) {
			v, _ := data.Get(k)
			return Lookup{Status: StatusFound, Key: k, Value: v}
		}
	}
	return missing
}

func tokenMatch(key string, tokens []string, variants [][]string) bool {
	if len(tokens) == 1 && len(key) > len(tokens[0])+MinContainLen {
		return key == tokens[0] || strings.HasSuffix(key, tokens[0])
	}
	for _, vs := range variants {
		hit := false
		for _, v := range vs {
			if strings.Contains(key, v) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
