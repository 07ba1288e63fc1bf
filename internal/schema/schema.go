// =============================================================================
// AXIS-Z Resolver - Schema Module
// =============================================================================
//
// Schemas describe WHAT to look for in a raw export: the column groups of the
// units table, the garage and storage columns, the general-data cards, the
// PEM matrix and the candidate key lists of every entity field. They are
// plain data loaded from YAML. The default set is embedded in the binary
// and can be replaced by a file.
//
// Resolution itself lives in the resolver package. This package only knows
// which candidates to hand it and how to present what comes back.
//
// =============================================================================

package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

//go:embed schemas.yaml
var defaultSchemas []byte

// =============================================================================
// SCHEMA STRUCTURES
// =============================================================================

// Schemas is the complete resolution configuration.
type Schemas struct {
	// Units lists the column groups of the units table, in display order.
	Units []UnitGroup `yaml:"units"`

	// Garages and Storages list the column groups of the service tables.
	Garages  []ServiceGroup `yaml:"garages"`
	Storages []ServiceGroup `yaml:"storages"`

	// Cards are the general-data panels resolved against ds_generales.
	Cards []Card `yaml:"cards"`

	// BottomMetrics are the regulatory figures shown below the cards.
	BottomMetrics []CardItem `yaml:"bottom_metrics"`

	// PEM configures the budget (presupuesto de ejecución material) table.
	PEM PEMConfig `yaml:"pem"`

	// Fields holds the candidate key lists used by the mappers.
	Fields EntityFields `yaml:"fields"`
}

// UnitGroup is one header group of the units table. Column names are the
// flattened "<GROUP>_<SUFFIX>" form.
type UnitGroup struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

// ColumnType drives how a service column is displayed.
type ColumnType string

const (
	TypeID       ColumnType = "id"
	TypeStatus   ColumnType = "status"
	TypeText     ColumnType = "text"
	TypeNumber   ColumnType = "number"
	TypePercent  ColumnType = "percent"
	TypeCurrency ColumnType = "currency"
)

// Column is one service table column.
type Column struct {
	Key   string     `yaml:"key"`
	Label string     `yaml:"label"`
	Type  ColumnType `yaml:"type"`
}

// ServiceGroup is one header group of a service table.
type ServiceGroup struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
}

// Card is one general-data panel.
type Card struct {
	ID    string     `yaml:"id"`
	Title string     `yaml:"title"`
	Items []CardItem `yaml:"items"`
}

// CardItem is one labelled figure of a card.
type CardItem struct {
	Label     string `yaml:"label"`
	Unit      string `yaml:"unit,omitempty"`
	IsInteger bool   `yaml:"integer,omitempty"`
	IsTotal   bool   `yaml:"total,omitempty"`
}

// PEM table columns.
const (
	PEMUnit     = "PEM UNITARIO"
	PEMArea     = "SUP. PROYECTO"
	PEMUse      = "PEM USO"
	PEMNotFound = "NO_ENCONTRADA"
)

// PEMConfig lists the table rows and, per row and column, the explicit keys
// to try before the keyword fallbacks.
type PEMConfig struct {
	Rows       []string                       `yaml:"rows"`
	TotalLabel string                         `yaml:"total_label"`
	Keys       map[string]map[string][]string `yaml:"keys"`
}

// EntityFields groups the field candidate lists per entity.
type EntityFields struct {
	Units    UnitFields    `yaml:"units"`
	Garages  ServiceFields `yaml:"garages"`
	Storages ServiceFields `yaml:"storages"`
}

// UnitFields are the candidate lists of every Unit field.
type UnitFields struct {
	ID              []string `yaml:"id"`
	RowID           []string `yaml:"row_id"`
	Match           []string `yaml:"match"`
	Status          []string `yaml:"status"`
	Bedrooms        []string `yaml:"bedrooms"`
	Bathrooms       []string `yaml:"bathrooms"`
	Building        []string `yaml:"building"`
	Floor           []string `yaml:"floor"`
	Type            []string `yaml:"type"`
	Position        []string `yaml:"position"`
	Orientation     []string `yaml:"orientation"`
	Price           []string `yaml:"price"`
	TotalBuiltArea  []string `yaml:"total_built_area"`
	TotalUsefulArea []string `yaml:"total_useful_area"`
	GarageID        []string `yaml:"garage_id"`
	StorageID       []string `yaml:"storage_id"`
	BuyerID         []string `yaml:"buyer_id"`
	Notes           []string `yaml:"notes"`
	ReservationDate []string `yaml:"reservation_date"`
	SaleDate        []string `yaml:"sale_date"`

	WriteBack UnitWriteBack `yaml:"write_back"`
}

// UnitWriteBack names the keys edits are written to when the row has no key
// representing the edited field yet.
type UnitWriteBack struct {
	Status          string `yaml:"status"`
	Price           string `yaml:"price"`
	Notes           string `yaml:"notes"`
	GarageID        string `yaml:"garage_id"`
	StorageID       string `yaml:"storage_id"`
	BuyerID         string `yaml:"buyer_id"`
	ReservationDate string `yaml:"reservation_date"`
	SaleDate        string `yaml:"sale_date"`
}

// ServiceFields are the candidate lists of Garage and Storage fields.
type ServiceFields struct {
	ID     []string `yaml:"id"`
	Match  []string `yaml:"match"`
	Status []string `yaml:"status"`
	Type   []string `yaml:"type"`
	Price  []string `yaml:"price"`
	Area   []string `yaml:"area"`
	Notes  []string `yaml:"notes"`

	WriteBack ServiceWriteBack `yaml:"write_back"`
}

// ServiceWriteBack names the keys service edits are written to.
type ServiceWriteBack struct {
	Status string `yaml:"status"`
	Price  string `yaml:"price"`
	Notes  string `yaml:"notes"`
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns the embedded schemas. It panics only if the embedded file
// itself is broken, which the package tests rule out.
func Default() *Schemas {
	s, err := Parse(defaultSchemas)
	if err != nil {
		panic(fmt.Sprintf("schema: embedded schemas are invalid: %v", err))
	}
	return s
}

// Load reads schemas from path. An empty path yields the embedded defaults.
//
// PARAMETERS:
//   - path: YAML file with the same layout as the embedded schemas.yaml.
//
// RETURNS:
//   - The parsed and validated schemas.
//   - An error if the file cannot be read, parsed or validated.
func Load(path string) (*Schemas, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates schemas from YAML.
func Parse(data []byte) (*Schemas, error) {
	var s Schemas
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schemas: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schemas: %w", err)
	}
	return &s, nil
}

// Validate checks that every group has columns and that the fields the
// mappers cannot do without have at least one candidate.
func (s *Schemas) Validate() error {
	var errs []error

	for i, g := range s.Units {
		if strings.TrimSpace(g.Name) == "" {
			errs = append(errs, fmt.Errorf("units group %d has no name", i))
		}
		if len(g.Columns) == 0 {
			errs = append(errs, fmt.Errorf("units group %q has no columns", g.Name))
		}
	}
	for _, set := range []struct {
		name   string
		groups []ServiceGroup
	}{{"garages", s.Garages}, {"storages", s.Storages}} {
		for _, g := range set.groups {
			if len(g.Columns) == 0 {
				errs = append(errs, fmt.Errorf("%s group %q has no columns", set.name, g.Name))
			}
			for _, c := range g.Columns {
				if c.Key == "" {
					errs = append(errs, fmt.Errorf("%s group %q has a column without key", set.name, g.Name))
				}
			}
		}
	}
	for _, c := range s.Cards {
		if c.ID == "" {
			errs = append(errs, fmt.Errorf("card %q has no id", c.Title))
		}
	}

	required := map[string][]string{
		"units.id":       s.Fields.Units.ID,
		"units.status":   s.Fields.Units.Status,
		"units.price":    s.Fields.Units.Price,
		"garages.id":     s.Fields.Garages.ID,
		"garages.status": s.Fields.Garages.Status,
		"storages.id":    s.Fields.Storages.ID,
	}
	for name, cands := range required {
		if len(cands) == 0 {
			errs = append(errs, fmt.Errorf("fields.%s needs at least one candidate", name))
		}
	}

	return errors.Join(errs...)
}

// UnitColumns flattens the unit groups into their column keys, in order.
func (s *Schemas) UnitColumns() []string {
	var cols []string
	for _, g := range s.Units {
		cols = append(cols, g.Columns...)
	}
	return cols
}

// ServiceGroups returns the groups of the garage or storage table.
func (s *Schemas) ServiceGroups(kind types.ServiceKind) []ServiceGroup {
	if kind == types.KindStorage {
		return s.Storages
	}
	return s.Garages
}

// ServiceFields returns the field candidates of the garage or storage table.
func (s *Schemas) ServiceFields(kind types.ServiceKind) ServiceFields {
	if kind == types.KindStorage {
		return s.Fields.Storages
	}
	return s.Fields.Garages
}

// Card returns the card with the given id.
func (s *Schemas) Card(id string) (Card, bool) {
	for _, c := range s.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// ColumnLabel returns the header shown for a unit column inside its group:
// the group prefix is removed, and the computed columns get fixed names.
func ColumnLabel(colKey, groupName string) string {
	switch colKey {
	case ColUnitID:
		return "ID"
	case ColStatus:
		return "ESTADO"
	}
	if strings.HasPrefix(colKey, groupName+"_") {
		return colKey[len(groupName)+1:]
	}
	return colKey
}
