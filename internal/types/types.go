// =============================================================================
// AXIS-Z Resolver - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - resolver / schema / mapper (resolution core)
//   - csvparser / xlsxparser (ingest)
//   - store / export / validation (persistence and reporting)
//
// =============================================================================

package types

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// TABLE IDENTIFIERS
// =============================================================================

// TableID names one of the raw tables a project export is made of.
type TableID string

const (
	// TableGeneral is the single general-data object of a project.
	TableGeneral TableID = "ds_generales"

	// TableUnits is the array of housing unit rows.
	TableUnits TableID = "ts_general"

	// TableGarages is the array of garage rows.
	TableGarages TableID = "garajes"

	// TableStorages is the array of storage room rows.
	TableStorages TableID = "trasteros"
)

// AllTables lists every table in storage order.
var AllTables = []TableID{TableGeneral, TableUnits, TableGarages, TableStorages}

// ParseTableID returns the TableID matching s, ignoring case and surrounding
// whitespace.
func ParseTableID(s string) (TableID, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range AllTables {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the commercial status of a unit, garage or storage room.
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusSold      Status = "sold"
)

// RawLabel returns the label written back into raw rows for this status.
func (s Status) RawLabel() string {
	switch s {
	case StatusReserved:
		return "RESERVADA"
	case StatusSold:
		return "VENDIDA"
	default:
		return "DISPONIBLE"
	}
}

// ParseStatus accepts either the domain value ("reserved") or the raw label
// ("RESERVADA"). Anything else is reported as not ok.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AVAILABLE", "DISPONIBLE":
		return StatusAvailable, true
	case "RESERVED", "RESERVADA":
		return StatusReserved, true
	case "SOLD", "VENDIDA":
		return StatusSold, true
	}
	return "", false
}

// =============================================================================
// DOMAIN ENTITIES
// =============================================================================

// Unit is a housing unit resolved from one row of the ts_general table.
type Unit struct {
	ID          string `json:"id"`
	Status      Status `json:"status"`
	Bedrooms    int    `json:"bedrooms"`
	Bathrooms   int    `json:"bathrooms"`
	Building    string `json:"building"`
	Floor       int    `json:"floor"`
	Type        string `json:"type"`
	Position    string `json:"position"`
	Orientation string `json:"orientation"`

	Price           float64 `json:"price"`
	TotalBuiltArea  float64 `json:"totalBuiltArea"`
	TotalUsefulArea float64 `json:"totalUsefulArea"`

	GarageID        string `json:"garageId,omitempty"`
	StorageID       string `json:"storageId,omitempty"`
	BuyerID         string `json:"buyerId,omitempty"`
	Notes           string `json:"notes,omitempty"`
	ReservationDate string `json:"reservationDate,omitempty"`
	SaleDate        string `json:"saleDate,omitempty"`

	// Raw is the full source row. Every original key survives here even when
	// no typed field above consumed it.
	Raw Row `json:"rawFields"`
}

// Garage is a parking space resolved from one row of the garajes table.
type Garage struct {
	ID         string  `json:"id"`
	Status     Status  `json:"status"`
	Type       string  `json:"type"`
	Price      float64 `json:"price"`
	UsefulArea float64 `json:"usefulArea"`
	Notes      string  `json:"notes,omitempty"`

	Raw Row `json:"rawFields"`
}

// Storage is a storage room resolved from one row of the trasteros table.
type Storage struct {
	ID         string  `json:"id"`
	Status     Status  `json:"status"`
	Price      float64 `json:"price"`
	UsefulArea float64 `json:"usefulArea"`
	Notes      string  `json:"notes,omitempty"`

	Raw Row `json:"rawFields"`
}

// ServiceKind distinguishes the two service entities that share update logic.
type ServiceKind string

const (
	KindGarage  ServiceKind = "garage"
	KindStorage ServiceKind = "storage"
)

// =============================================================================
// PROJECT
// =============================================================================

// ProjectDataRaw is the raw snapshot of one project as imported or stored.
type ProjectDataRaw struct {
	Name     string `json:"proyecto_nombre"`
	General  Row    `json:"ds_generales"`
	Units    []Row  `json:"ts_general"`
	Garages  []Row  `json:"garajes"`
	Storages []Row  `json:"trasteros"`
}

// Rows returns the row array for an array table. The general table is
// returned as a single-element slice.
func (p *ProjectDataRaw) Rows(t TableID) []Row {
	switch t {
	case TableGeneral:
		if p.General.Len() == 0 {
			return nil
		}
		return []Row{p.General}
	case TableUnits:
		return p.Units
	case TableGarages:
		return p.Garages
	case TableStorages:
		return p.Storages
	}
	return nil
}

// SetRows replaces the rows of table t. For the general table the first row
// is kept.
func (p *ProjectDataRaw) SetRows(t TableID, rows []Row) {
	switch t {
	case TableGeneral:
		if len(rows) > 0 {
			p.General = rows[0]
		} else {
			p.General = Row{}
		}
	case TableUnits:
		p.Units = rows
	case TableGarages:
		p.Garages = rows
	case TableStorages:
		p.Storages = rows
	}
}

// DecodeTable reads the JSON of table t into p. The general table is an
// object; an array keeps its first element.
func (p *ProjectDataRaw) DecodeTable(t TableID, data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if t == TableGeneral && !strings.HasPrefix(trimmed, "[") {
		var row Row
		if err := json.Unmarshal(data, &row); err != nil {
			return err
		}
		p.General = row
		return nil
	}

	rows, err := DecodeRows(data)
	if err != nil {
		return err
	}
	p.SetRows(t, rows)
	return nil
}

// Project is the resolved form of a ProjectDataRaw.
type Project struct {
	Name     string    `json:"name"`
	General  Row       `json:"general"`
	Units    []Unit    `json:"units"`
	Garages  []Garage  `json:"garages"`
	Storages []Storage `json:"storages"`
}

// =============================================================================
// SERVICE FIELD ACCESS
// =============================================================================

// Field returns the value a garage table column shows for key. Raw fields
// shadow the typed ones, so a source column literally named "status" wins
// over the resolved status.
func (g Garage) Field(key string) (any, bool) {
	if v, ok := g.Raw.Get(key); ok {
		return v, true
	}
	switch key {
	case "id":
		return g.ID, true
	case "status":
		return g.Status, true
	case "type":
		return g.Type, true
	case "price":
		return g.Price, true
	case "usefulArea":
		return g.UsefulArea, true
	case "notes":
		return g.Notes, true
	}
	return nil, false
}

// Field returns the value a storage table column shows for key, with the
// same precedence as Garage.Field.
func (s Storage) Field(key string) (any, bool) {
	if v, ok := s.Raw.Get(key); ok {
		return v, true
	}
	switch key {
	case "id":
		return s.ID, true
	case "status":
		return s.Status, true
	case "price":
		return s.Price, true
	case "usefulArea":
		return s.UsefulArea, true
	case "notes":
		return s.Notes, true
	}
	return nil, false
}
