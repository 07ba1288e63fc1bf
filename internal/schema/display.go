package schema

import (
	"strings"

	"github.com/ginjaninja78/axisz-resolver/internal/keys"
	"github.com/ginjaninja78/axisz-resolver/internal/numeric"
	"github.com/ginjaninja78/axisz-resolver/internal/resolver"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// =============================================================================
// ZERO/BLANK DISPLAY POLICY
// =============================================================================

// Placeholder is shown for values that are not meaningfully present.
const Placeholder = "-"

// IsLevelColumn reports whether colKey holds a floor number, where 0 is the
// ground floor and must be shown.
func IsLevelColumn(colKey string) bool {
	k := keys.NormalizeKey(colKey)
	return strings.Contains(k, "nivel") ||
		strings.Contains(k, "planta") ||
		strings.Contains(k, "floor")
}

// IsBlank reports whether v renders as the placeholder in column colKey:
// nil and "" always do, numeric zero and "0" do except on level columns.
func IsBlank(v any, colKey string) bool {
	if resolver.IsBlank(v) {
		return true
	}
	if IsLevelColumn(colKey) {
		return false
	}
	if s, ok := v.(string); ok && s == "0" {
		return true
	}
	n, ok := numberOf(v)
	return ok && n == 0
}

// numberOf reads v as a number the way a cell renderer does: numbers as is,
// text by its leading float with the first comma taken as decimal point.
func numberOf(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		return numeric.ParseLeadingOK(strings.Replace(x, ",", ".", 1))
	case bool, nil:
		return 0, false
	}
	in := numeric.FromValue(v)
	if in.Kind != numeric.KindNumber {
		return 0, false
	}
	return in.Num, true
}

func isNumber(v any) bool {
	return numeric.FromValue(v).Kind == numeric.KindNumber
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// =============================================================================
// CELL FORMATTING
// =============================================================================

// FormatUnitCell renders a units table value. The format is chosen from the
// column name: prices as whole euros, areas and percentages with two
// decimals, room counts untouched. Unit IDs are never read as numbers.
func FormatUnitCell(v any, colKey string) string {
	if s, ok := v.(string); ok && s == ErrValue {
		return ErrValue
	}
	switch colKey {
	case ColStatus:
		return InferStatusValue(v).RawLabel()
	case ColUnitID:
		if resolver.IsBlank(v) {
			return Placeholder
		}
		return types.FormatValue(v)
	}
	if IsBlank(v, colKey) {
		return Placeholder
	}

	n, ok := numberOf(v)
	if !ok {
		return types.FormatValue(v)
	}

	k := keys.NormalizeKey(colKey)
	switch {
	case containsAny(k, "precio", "venta", "pvp", "maximo"):
		return numeric.FormatCurrency(n, 0)
	case containsAny(k, "superficie", "util", "construid", "area", "total", "neta", "comun"):
		return numeric.FormatDecimal(n, 2, 2)
	case containsAny(k, "porc", "particip"):
		return numeric.FormatPercent(n, 2)
	case containsAny(k, "dorm", "banos", "bed", "bath"):
		return types.FormatValue(n)
	default:
		return numeric.FormatDecimal(n, 0, 2)
	}
}

// FormatServiceCell renders a garage or storage table value. A column the
// item does not carry at all shows ErrValue.
func FormatServiceCell(v any, present bool, typ ColumnType) string {
	if !present || v == nil {
		return ErrValue
	}
	if typ == TypeStatus {
		return InferStatusValue(v).RawLabel()
	}
	if IsBlank(v, "") {
		return Placeholder
	}
	if !isNumber(v) {
		return types.FormatValue(v)
	}

	n := numeric.Parse(v)
	switch typ {
	case TypeCurrency:
		return numeric.FormatCurrency(n, 2)
	case TypeNumber:
		return numeric.FormatDecimal(n, 2, 2)
	case TypePercent:
		// Participation shares are tiny fractions; the sign is part of the header.
		return numeric.FormatDecimal(n, 6, 6)
	default:
		return types.FormatValue(v)
	}
}

// FormatCardValue renders one card figure with its unit suffix.
func FormatCardValue(l resolver.Lookup, item CardItem) string {
	if !l.Found() {
		return ErrValue
	}

	var display string
	switch {
	case IsBlank(l.Value, ""):
		display = Placeholder
	case isNumber(l.Value):
		n := numeric.Parse(l.Value)
		if item.IsInteger {
			display = numeric.FormatDecimal(n, 0, 0)
		} else {
			display = numeric.FormatDecimal(n, 2, 2)
		}
	default:
		display = types.FormatValue(l.Value)
	}

	if item.Unit != "" && display != Placeholder {
		display += " " + item.Unit
	}
	return display
}
