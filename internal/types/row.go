package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// =============================================================================
// RAW ROW
// =============================================================================

// Row is one externally sourced record. Keys keep the order in which they
// were read so that "first matching key" has a single, reproducible meaning.
//
// The zero Row is an empty, read-only row: lookups work, Set allocates.
type Row struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewRow builds a row from alternating key/value pairs. It panics on an odd
// number of arguments or a non-string key, so it is meant for literals.
func NewRow(kv ...any) Row {
	if len(kv)%2 != 0 {
		panic("types.NewRow: odd number of arguments")
	}
	r := Row{m: orderedmap.New[string, any]()}
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("types.NewRow: key %v is not a string", kv[i]))
		}
		r.m.Set(k, kv[i+1])
	}
	return r
}

// RowFromPairs builds a row from ordered keys and their values.
func RowFromPairs(keys []string, values []any) Row {
	r := Row{m: orderedmap.New[string, any](orderedmap.WithCapacity[string, any](len(keys)))}
	for i, k := range keys {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.m.Set(k, v)
	}
	return r
}

// Get returns the value stored under key and whether the key exists. A key
// holding nil is present.
func (r Row) Get(key string) (any, bool) {
	if r.m == nil {
		return nil, false
	}
	return r.m.Get(key)
}

// Has reports whether key is present.
func (r Row) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set writes key, keeping its position when it already exists and appending
// it otherwise.
func (r *Row) Set(key string, value any) {
	if r.m == nil {
		r.m = orderedmap.New[string, any]()
	}
	r.m.Set(key, value)
}

// Len returns the number of keys.
func (r Row) Len() int {
	if r.m == nil {
		return 0
	}
	return r.m.Len()
}

// Keys returns the keys in insertion order.
func (r Row) Keys() []string {
	if r.m == nil {
		return nil
	}
	keys := make([]string, 0, r.m.Len())
	for p := r.m.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Range calls fn for each pair in insertion order until fn returns false.
func (r Row) Range(fn func(key string, value any) bool) {
	if r.m == nil {
		return
	}
	for p := r.m.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// Clone returns a shallow copy. Writes to the copy never reach r.
func (r Row) Clone() Row {
	c := Row{m: orderedmap.New[string, any](orderedmap.WithCapacity[string, any](r.Len()))}
	r.Range(func(k string, v any) bool {
		c.m.Set(k, v)
		return true
	})
	return c
}

// Map returns the row as a plain map. Order is lost.
func (r Row) Map() map[string]any {
	out := make(map[string]any, r.Len())
	r.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// MarshalJSON writes the row as a JSON object in key order.
func (r Row) MarshalJSON() ([]byte, error) {
	if r.m == nil {
		return []byte("{}"), nil
	}
	return r.m.MarshalJSON()
}

// UnmarshalJSON reads a JSON object, keeping its key order. JSON null yields
// an empty row.
func (r *Row) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Row{}
		return nil
	}
	m := orderedmap.New[string, any]()
	if err := m.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	r.m = m
	return nil
}

// DecodeRows decodes a JSON array of objects into rows.
func DecodeRows(data []byte) ([]Row, error) {
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}

// FormatValue renders a raw cell value as text. Whole floats print without a
// fraction ("3", not "3.0") and nil prints as "".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
