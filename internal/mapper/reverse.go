package mapper

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/axisz-resolver/internal/resolver"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// ContextUpdate is the error log context of reverse mapping.
const ContextUpdate = "update"

// =============================================================================
// PATCHES
// =============================================================================

// UnitPatch is a partial unit edit. Nil fields are left alone.
type UnitPatch struct {
	Status          *types.Status `yaml:"status,omitempty" json:"status,omitempty"`
	Price           *float64      `yaml:"price,omitempty" json:"price,omitempty"`
	Notes           *string       `yaml:"notes,omitempty" json:"notes,omitempty"`
	GarageID        *string       `yaml:"garage_id,omitempty" json:"garageId,omitempty"`
	StorageID       *string       `yaml:"storage_id,omitempty" json:"storageId,omitempty"`
	BuyerID         *string       `yaml:"buyer_id,omitempty" json:"buyerId,omitempty"`
	ReservationDate *string       `yaml:"reservation_date,omitempty" json:"reservationDate,omitempty"`
	SaleDate        *string       `yaml:"sale_date,omitempty" json:"saleDate,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p UnitPatch) IsEmpty() bool {
	return p == UnitPatch{}
}

// Normalize accepts raw status labels ("RESERVADA") as well as domain
// values and rewrites them to the domain value.
func (p *UnitPatch) Normalize() error {
	return normalizeStatus(p.Status)
}

// Apply returns u with the patch applied to its typed fields.
func (p UnitPatch) Apply(u types.Unit) types.Unit {
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.Price != nil {
		u.Price = *p.Price
	}
	setString(&u.Notes, p.Notes)
	setString(&u.GarageID, p.GarageID)
	setString(&u.StorageID, p.StorageID)
	setString(&u.BuyerID, p.BuyerID)
	setString(&u.ReservationDate, p.ReservationDate)
	setString(&u.SaleDate, p.SaleDate)
	return u
}

// ServicePatch is a partial garage or storage edit.
type ServicePatch struct {
	Status *types.Status `yaml:"status,omitempty" json:"status,omitempty"`
	Price  *float64      `yaml:"price,omitempty" json:"price,omitempty"`
	Notes  *string       `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Normalize rewrites raw status labels to domain values.
func (p *ServicePatch) Normalize() error {
	return normalizeStatus(p.Status)
}

func normalizeStatus(st *types.Status) error {
	if st == nil {
		return nil
	}
	parsed, ok := types.ParseStatus(string(*st))
	if !ok {
		return fmt.Errorf("unknown status %q", *st)
	}
	*st = parsed
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// =============================================================================
// REVERSE MAPPING
// =============================================================================

// findRawKey returns the first key of row, in order, whose uppercase form
// satisfies match.
func findRawKey(row types.Row, match func(upper string) bool) (string, bool) {
	var found string
	row.Range(func(k string, _ any) bool {
		if match(strings.ToUpper(k)) {
			found = k
			return false
		}
		return true
	})
	return found, found != ""
}

func isStatusKey(k string) bool {
	return strings.Contains(k, "ESTADO") || strings.Contains(k, "SITUACION") || strings.Contains(k, "STATUS")
}

func isPriceKey(k string) bool {
	return (strings.Contains(k, "PRECIO") && strings.Contains(k, "MAX")) ||
		strings.Contains(k, "PVP") ||
		k == "PRECIO"
}

// ApplyChangesToRawRow writes a unit patch into a copy of row. The status
// and price go to the key already holding them when there is one, the
// configured write-back key otherwise. The other fields always go to their
// write-back key. row itself is never modified.
func (m *Mapper) ApplyChangesToRawRow(row types.Row, p UnitPatch) types.Row {
	wb := m.schemas.Fields.Units.WriteBack
	out := row.Clone()

	if p.Status != nil {
		key, ok := findRawKey(out, isStatusKey)
		if !ok {
			key = wb.Status
		}
		out.Set(key, p.Status.RawLabel())
	}

	if p.Price != nil {
		key, ok := findRawKey(out, isPriceKey)
		if !ok {
			key = wb.Price
		}
		out.Set(key, *p.Price)
	}

	fixed := []struct {
		key string
		val *string
	}{
		{wb.Notes, p.Notes},
		{wb.GarageID, p.GarageID},
		{wb.StorageID, p.StorageID},
		{wb.BuyerID, p.BuyerID},
		{wb.ReservationDate, p.ReservationDate},
		{wb.SaleDate, p.SaleDate},
	}
	for _, f := range fixed {
		if f.val != nil {
			out.Set(f.key, *f.val)
		}
	}

	return out
}

// ApplyServiceChanges writes a garage or storage patch into a copy of row.
func (m *Mapper) ApplyServiceChanges(kind types.ServiceKind, row types.Row, p ServicePatch) types.Row {
	wb := m.schemas.ServiceFields(kind).WriteBack
	out := row.Clone()

	if p.Status != nil {
		out.Set(wb.Status, p.Status.RawLabel())
	}
	if p.Price != nil {
		out.Set(wb.Price, *p.Price)
	}
	if p.Notes != nil {
		out.Set(wb.Notes, *p.Notes)
	}
	return out
}

// =============================================================================
// BATCH UPDATES
// =============================================================================

// BulkResult reports which IDs a batch update reached.
type BulkResult struct {
	Updated  []string `json:"updated"`
	NotFound []string `json:"notFound"`
}

// indexByID maps each resolvable row ID to its first row index.
func indexByID(rows []types.Row, candidates []string) map[string]int {
	idx := make(map[string]int, len(rows))
	for i, row := range rows {
		v, ok := resolver.Find(row, candidates...)
		if !ok {
			continue
		}
		id := types.FormatValue(v)
		if _, dup := idx[id]; !dup {
			idx[id] = i
		}
	}
	return idx
}

// BulkUpdateUnits applies p to the rows of every unit in ids, one after the
// other. An ID without a row is recorded and skipped; the rest still
// proceed. The input slice is not modified.
func (m *Mapper) BulkUpdateUnits(rows []types.Row, ids []string, p UnitPatch) ([]types.Row, BulkResult) {
	out := make([]types.Row, len(rows))
	copy(out, rows)

	var res BulkResult
	idx := indexByID(rows, m.schemas.Fields.Units.Match)
	for _, id := range ids {
		i, ok := idx[id]
		if !ok {
			res.NotFound = append(res.NotFound, id)
			m.log.Record(ContextUpdate, id, "ID", "no units row with this identifier")
			continue
		}
		out[i] = m.ApplyChangesToRawRow(out[i], p)
		res.Updated = append(res.Updated, id)
	}
	return out, res
}

// UpdateService applies p to the garage or storage row with the given ID.
// It reports false when no row matches.
func (m *Mapper) UpdateService(kind types.ServiceKind, rows []types.Row, id string, p ServicePatch) ([]types.Row, bool) {
	idx := indexByID(rows, m.schemas.ServiceFields(kind).Match)
	i, ok := idx[id]
	if !ok {
		m.log.Record(ContextUpdate, id, "ID", fmt.Sprintf("no %s row with this identifier", kind))
		return rows, false
	}

	out := make([]types.Row, len(rows))
	copy(out, rows)
	out[i] = m.ApplyServiceChanges(kind, out[i], p)
	return out, true
}
