// =============================================================================
// AXIS-Z Resolver - Fuzzy Value Resolution
// =============================================================================
//
// This package finds values in raw rows whose key naming is unknown ahead of
// time. Callers describe a logical field as an ordered candidate list
// (most specific spelling first) and the resolver tries, per candidate:
//
//   1. Exact key lookup. A present key wins even when its value is nil or 0.
//   2. Canonical equality (keys.NormalizeKey on both sides).
//   3. Substring containment of canonical forms, only when the contained
//      side is longer than MinContainLen characters.
//
// Strategies 2 and 3 scan row keys in insertion order and stop at the first
// hit, so ties always go to the key that appears first in the export.
//
// Resolution never fails: a miss is reported as ok == false and logging is
// left to the caller.
//
// =============================================================================

package resolver

import (
	"strings"

	"github.com/ginjaninja78/axisz-resolver/internal/keys"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// MinContainLen is the canonical length a string must exceed before it may
// match by containment. Shorter strings ("id", "tipo") only match exactly.
const MinContainLen = 5

// =============================================================================
// FUZZY LOOKUP
// =============================================================================

// Find returns the value of the first candidate that resolves in row.
func Find(row types.Row, candidates ...string) (any, bool) {
	_, v, ok := FindKey(row, candidates...)
	return v, ok
}

// FindKey is Find that also reports which row key supplied the value.
func FindKey(row types.Row, candidates ...string) (string, any, bool) {
	if row.Len() == 0 {
		return "", nil, false
	}

	rowKeys := row.Keys()
	var canon []string

	for _, cand := range candidates {
		if v, ok := row.Get(cand); ok {
			return cand, v, true
		}

		target := keys.NormalizeKey(cand)
		if target == "" {
			continue
		}

		// Canonical forms are computed once per call, on first need.
		if canon == nil {
			canon = make([]string, len(rowKeys))
			for i, k := range rowKeys {
				canon[i] = keys.NormalizeKey(k)
			}
		}

		for i, k := range rowKeys {
			if matches(canon[i], target) {
				v, _ := row.Get(k)
				return k, v, true
			}
		}
	}

	return "", nil, false
}

// matches reports whether a canonical row key and a canonical candidate are
// equal, or one contains the other with the contained side long enough.
func matches(key, target string) bool {
	if key == "" {
		return false
	}
	if key == target {
		return true
	}
	if len(target) > MinContainLen && strings.Contains(key, target) {
		return true
	}
	if len(key) > MinContainLen && strings.Contains(target, key) {
		return true
	}
	return false
}

// =============================================================================
// TYPED HELPERS
// =============================================================================

// IsBlank reports whether v is nil or an empty string. Callers use it to
// decide whether a resolved value counts as present.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// IsFalsy extends IsBlank with numeric zero and false.
func IsFalsy(v any) bool {
	if IsBlank(v) {
		return true
	}
	switch x := v.(type) {
	case bool:
		return !x
	case float64:
		return x == 0
	case float32:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case int32:
		return x == 0
	}
	return false
}
