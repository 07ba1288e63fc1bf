// =============================================================================
// AXIS-Z Resolver - Transformation Engine
// =============================================================================
//
// This module applies the transformation rules of a source profile to raw
// rows before they are stored. Exports from different tools spell the same
// value differently ("Reservado", "RESERVADA ", "res."); rules bring them to
// one form so the resolvers see clean data.
//
// RULE MATCHING:
//   A rule names a field and optionally a table. The field is resolved with
//   the fuzzy resolver, so a rule on "ESTADO" also reaches "GESTIÓN_ESTADO".
//   Rules without a table apply to every table.
//
// VALUE TYPES:
//   Only text is transformed. Numbers and booleans read from XLSX cells pass
//   through unchanged unless an action actually rewrites their text form.
//
// EXAMPLE PROFILE RULE:
//   transformation_rules:
//     - table: ts_general
//       field: ESTADO
//       actions:
//         - {type: trim}
//         - {type: lookup, lookup_table: {"Res.": "RESERVADA"}}
//         - {type: default_value, value: DISPONIBLE}
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ginjaninja78/axisz-resolver/internal/config"
	"github.com/ginjaninja78/axisz-resolver/internal/resolver"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// Supported action types.
const (
	ActionTrim            = "trim"
	ActionUppercase       = "uppercase"
	ActionLowercase       = "lowercase"
	ActionPrepend         = "prepend_string"
	ActionAppend          = "append_string"
	ActionPadZeros        = "pad_zeros_to_length"
	ActionReplace         = "replace"
	ActionRegexReplace    = "regex_replace"
	ActionLookup          = "lookup"
	ActionDefault         = "default_value"
	ActionNormalizeStatus = "normalize_status"
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies transformation rules to raw rows.
type Transformer struct {
	rules   []config.TransformationRule
	regexes map[string]*regexp.Regexp
}

// NewTransformer validates the rules and compiles their patterns.
//
// RETURNS:
//   - The transformer.
//   - An error naming the first unknown action type or invalid pattern.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{
		rules:   make([]config.TransformationRule, len(rules)),
		regexes: make(map[string]*regexp.Regexp),
	}

	for i, rule := range rules {
		if rule.Table != "" {
			table, ok := types.ParseTableID(rule.Table)
			if !ok {
				return nil, fmt.Errorf("rule for field '%s': unknown table: %s", rule.Field, rule.Table)
			}
			rule.Table = string(table)
		}
		t.rules[i] = rule
		for _, action := range rule.Actions {
			switch action.Type {
			case ActionTrim, ActionUppercase, ActionLowercase, ActionPrepend, ActionAppend,
				ActionPadZeros, ActionReplace, ActionLookup, ActionDefault, ActionNormalizeStatus:
			case ActionRegexReplace:
				if _, ok := t.regexes[action.Find]; ok {
					continue
				}
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("rule for field '%s': invalid regex pattern: %w", rule.Field, err)
				}
				t.regexes[action.Find] = re
			default:
				return nil, fmt.Errorf("rule for field '%s': unknown transformation type: %s", rule.Field, action.Type)
			}
		}
	}
	return t, nil
}

// Len returns the number of rules.
func (t *Transformer) Len() int {
	return len(t.rules)
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// TransformRow applies every rule of table to a copy of row.
//
// PARAMETERS:
//   - table: The raw table the row belongs to.
//   - row: The raw row. It is not modified.
//
// RETURNS:
//   - The transformed copy.
//   - The number of values that changed.
func (t *Transformer) TransformRow(table types.TableID, row types.Row) (types.Row, int) {
	out := row.Clone()
	changed := 0

	for _, rule := range t.rules {
		if rule.Table != "" && rule.Table != string(table) {
			continue
		}

		key, v, ok := resolver.FindKey(out, rule.Field)
		if !ok {
			if !hasAction(rule, ActionDefault) {
				continue
			}
			key, v = rule.Field, nil
		}

		// Non-text values are only rewritten when the rule changes their text.
		text := types.FormatValue(v)
		result := text
		for _, action := range rule.Actions {
			result = t.apply(result, action)
		}

		if result != text || (!ok && result != "") {
			out.Set(key, result)
			changed++
		}
	}
	return out, changed
}

// TransformRows applies the rules of table to every row.
func (t *Transformer) TransformRows(table types.TableID, rows []types.Row) ([]types.Row, int) {
	out := make([]types.Row, len(rows))
	total := 0
	for i, row := range rows {
		var n int
		out[i], n = t.TransformRow(table, row)
		total += n
	}
	return out, total
}

// TransformProject applies the rules to every table of a raw snapshot.
func (t *Transformer) TransformProject(raw *types.ProjectDataRaw) int {
	if len(t.rules) == 0 {
		return 0
	}

	total := 0
	for _, table := range types.AllTables {
		rows := raw.Rows(table)
		if len(rows) == 0 {
			continue
		}
		transformed, n := t.TransformRows(table, rows)
		raw.SetRows(table, transformed)
		total += n
	}
	return total
}

func hasAction(rule config.TransformationRule, actionType string) bool {
	for _, a := range rule.Actions {
		if a.Type == actionType {
			return true
		}
	}
	return false
}

// apply applies a single, already validated action.
func (t *Transformer) apply(value string, action config.TransformationAction) string {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case ActionTrim:
		return strings.TrimSpace(value)

	case ActionUppercase:
		return strings.ToUpper(value)

	case ActionLowercase:
		return strings.ToLower(value)

	case ActionPrepend:
		// "12" with "G-" gives "G-12".
		return action.Value + value

	case ActionAppend:
		return value + action.Value

	case ActionReplace:
		if action.Find == "" {
			return value
		}
		return strings.ReplaceAll(value, action.Find, action.Value)

	case ActionRegexReplace:
		if action.Find == "" {
			return value
		}
		return t.regexes[action.Find].ReplaceAllString(value, action.Value)

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case ActionPadZeros:
		// "7" with length 3 gives "007". Used for garage and storage numbers.
		length, err := strconv.Atoi(action.Value)
		if err != nil || length <= 0 {
			return value
		}
		return PadLeft(value, length, '0')

	// =========================================================================
	// LOOKUPS AND DEFAULTS
	// =========================================================================

	case ActionLookup:
		if replacement, ok := action.LookupTable[value]; ok {
			return replacement
		}
		return value

	case ActionDefault:
		if strings.TrimSpace(value) == "" {
			return action.Value
		}
		return value

	case ActionNormalizeStatus:
		// Free text becomes DISPONIBLE, RESERVADA or VENDIDA.
		return schema.InferStatus(value).RawLabel()
	}
	return value
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads a string with a character on the left to reach the target
// length in runes.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
