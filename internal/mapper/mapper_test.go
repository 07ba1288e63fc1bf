package mapper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/axisz-resolver/internal/errorlog"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

func newTestMapper() (*Mapper, *errorlog.Log) {
	log := errorlog.New()
	return New(schema.Default(), log), log
}

func loggedParams(log *errorlog.Log) map[string]bool {
	params := make(map[string]bool)
	for _, e := range log.All() {
		params[e.Parameter] = true
	}
	return params
}

// =============================================================================
// FORWARD MAPPING
// =============================================================================

func TestMapUnitPartialRow(t *testing.T) {
	m, log := newTestMapper()
	row := types.NewRow(
		"DATOS GENERALES_Nº DORM", 3,
		"PRECIOS MÁX. VIV_MÁXIMO", "320.000,00 €",
	)

	u := m.MapUnit(row)

	assert.Equal(t, 3, u.Bedrooms)
	assert.Equal(t, 320000.0, u.Price)
	assert.Equal(t, UnknownID, u.ID)
	assert.Equal(t, types.StatusAvailable, u.Status)

	params := loggedParams(log)
	assert.False(t, params["bedrooms"])
	assert.False(t, params["price"])
	for _, p := range []string{
		"ID", "bathrooms", "building", "floor", "type",
		"position", "orientation", "totalBuiltArea", "totalUsefulArea",
	} {
		assert.True(t, params[p], "expected an error record for %s", p)
	}
	assert.Equal(t, 9, log.Len())
}

func TestMapUnitCompleteRow(t *testing.T) {
	m, log := newTestMapper()
	row := types.NewRow(
		"ID", "1A",
		"GESTIÓN_ESTADO", "Reservada",
		"DATOS GENERALES_Nº DORM", 2.0,
		"DATOS GENERALES_Nº BAÑOS", "2",
		"DATOS GENERALES_EDIFICIO", "B1",
		"UBICACIÓN_NIVEL", 0.0,
		"UBICACIÓN_TIPO", "A",
		"UBICACIÓN_POSICIÓN", "Izq",
		"UBICACIÓN_ORIENTACIÓN", "Sur",
		"PRECIOS MÁX. VIV_MÁXIMO", 210000.0,
		"CONST TOTAL", "98,40",
		"UTIL TOTAL", 75.2,
		"GARAJES_VINCULADO", "G-07",
		"OBSERVACIONES_INTERNAS", "",
		"COLUMNA_LIBRE", "kept",
	)

	u := m.MapUnit(row)

	assert.Equal(t, "1A", u.ID)
	assert.Equal(t, types.StatusReserved, u.Status)
	assert.Equal(t, 2, u.Bathrooms)
	assert.Equal(t, 0, u.Floor)
	assert.Equal(t, "B1", u.Building)
	assert.Equal(t, "Sur", u.Orientation)
	assert.InDelta(t, 98.4, u.TotalBuiltArea, 1e-9)
	assert.InDelta(t, 75.2, u.TotalUsefulArea, 1e-9)
	assert.Equal(t, "G-07", u.GarageID)
	assert.Empty(t, u.Notes)
	assert.Empty(t, u.StorageID)

	v, ok := u.Raw.Get("COLUMNA_LIBRE")
	require.True(t, ok)
	assert.Equal(t, "kept", v)
	assert.Equal(t, row.Keys(), u.Raw.Keys())

	// Floor 0 is a value, not a miss.
	assert.Zero(t, log.Len())
}

func TestMapServices(t *testing.T) {
	m, log := newTestMapper()

	g := m.MapGarage(types.NewRow(
		"ID-G", "G-01",
		"ESTADO", "VENDIDO",
		"TIPO-G", "Doble",
		"PRECIO MÁX-G", "18.500",
		"ÚTIL PRIV-G", "12,5",
	))
	assert.Equal(t, "G-01", g.ID)
	assert.Equal(t, types.StatusSold, g.Status)
	assert.Equal(t, "Doble", g.Type)
	assert.Equal(t, 18500.0, g.Price)
	assert.Equal(t, 12.5, g.UsefulArea)

	s := m.MapStorage(types.NewRow("OTRA", 1.0))
	assert.Equal(t, UnknownID, s.ID)
	assert.Equal(t, types.StatusAvailable, s.Status)
	assert.Zero(t, s.Price)

	// Only the storage ID miss is recorded; optional fields never are.
	assert.Equal(t, 1, log.Len())
}

func TestMapServicesRecordMissingID(t *testing.T) {
	m, log := newTestMapper()

	g := m.MapGarage(types.NewRow("ESTADO", "Vendida", "PRECIO MÁX-G", 12000.0))
	s := m.MapStorage(types.NewRow("ESTADO", "Libre"))

	assert.Equal(t, UnknownID, g.ID)
	assert.Equal(t, 12000.0, g.Price)
	assert.Equal(t, UnknownID, s.ID)

	entries := log.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, ContextMapper, e.Context)
		assert.Equal(t, schema.UnknownRef, e.ReferenceID)
		assert.Equal(t, "ID", e.Parameter)
	}
	assert.Contains(t, entries[0].Message, "garage")
	assert.Contains(t, entries[1].Message, "storage")
}

func TestMapProject(t *testing.T) {
	m, _ := newTestMapper()
	raw := types.ProjectDataRaw{
		Name:     "Lomas",
		General:  types.NewRow("PROMOCIÓN", "Lomas del Río"),
		Units:    []types.Row{types.NewRow("ID", "1A"), types.NewRow("ID", "1B")},
		Garages:  []types.Row{types.NewRow("ID-G", "G-01")},
		Storages: nil,
	}

	p := m.MapProject(raw)
	assert.Equal(t, "Lomas", p.Name)
	assert.Len(t, p.Units, 2)
	assert.Equal(t, "1B", p.Units[1].ID)
	assert.Len(t, p.Garages, 1)
	assert.Empty(t, p.Storages)
	assert.Equal(t, 1, p.General.Len())
}

// =============================================================================
// REVERSE MAPPING
// =============================================================================

func statusPtr(s types.Status) *types.Status { return &s }
func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string { return &s }

func TestApplyChangesToRawRowIsNonDestructive(t *testing.T) {
	m, _ := newTestMapper()

	kv := []any{"ESTADO COMERCIAL", "Disponible"}
	for i := 0; i < 19; i++ {
		kv = append(kv, fmt.Sprintf("COL_%02d", i), float64(i))
	}
	row := types.NewRow(kv...)

	out := m.ApplyChangesToRawRow(row, UnitPatch{Status: statusPtr(types.StatusReserved)})

	assert.Equal(t, row.Keys(), out.Keys())
	v, _ := out.Get("ESTADO COMERCIAL")
	assert.Equal(t, "RESERVADA", v)
	for i := 0; i < 19; i++ {
		k := fmt.Sprintf("COL_%02d", i)
		got, _ := out.Get(k)
		want, _ := row.Get(k)
		assert.Equal(t, want, got, k)
	}

	// The input row is untouched.
	orig, _ := row.Get("ESTADO COMERCIAL")
	assert.Equal(t, "Disponible", orig)
}

func TestApplyChangesToRawRowFallbackKeys(t *testing.T) {
	m, _ := newTestMapper()
	row := types.NewRow("ID", "1A", "OTRA", "x")

	out := m.ApplyChangesToRawRow(row, UnitPatch{
		Status:   statusPtr(types.StatusSold),
		Price:    floatPtr(199000),
		Notes:    strPtr("llamar"),
		BuyerID:  strPtr("C-9"),
		SaleDate: strPtr("2025-02-01"),
	})

	assert.Equal(t, []string{
		"ID", "OTRA",
		"GESTIÓN_ESTADO", "PRECIOS MÁX. VIV_MÁXIMO",
		"OBSERVACIONES_INTERNAS", "CLIENTE_COMPRADOR_ID", "FECHA_VENTA",
	}, out.Keys())

	v, _ := out.Get("GESTIÓN_ESTADO")
	assert.Equal(t, "VENDIDA", v)
	v, _ = out.Get("PRECIOS MÁX. VIV_MÁXIMO")
	assert.Equal(t, 199000.0, v)
}

func TestApplyChangesToRawRowExistingPriceKey(t *testing.T) {
	m, _ := newTestMapper()
	row := types.NewRow("ID", "1A", "PVP FINAL", 100.0)

	out := m.ApplyChangesToRawRow(row, UnitPatch{Price: floatPtr(250)})
	v, _ := out.Get("PVP FINAL")
	assert.Equal(t, 250.0, v)
	assert.Equal(t, 2, out.Len())
}

func TestApplyServiceChanges(t *testing.T) {
	m, _ := newTestMapper()
	row := types.NewRow("ID-T", "T-3", "ESTADO", "DISPONIBLE", "M2", 4.0)

	out := m.ApplyServiceChanges(types.KindStorage, row, ServicePatch{
		Status: statusPtr(types.StatusReserved),
		Price:  floatPtr(6000),
	})

	v, _ := out.Get("ESTADO")
	assert.Equal(t, "RESERVADA", v)
	v, _ = out.Get("PRECIO MÁX-T")
	assert.Equal(t, 6000.0, v)
	v, _ = out.Get("M2")
	assert.Equal(t, 4.0, v)
	assert.False(t, out.Has("OBSERVACIONES"))
}

func TestBulkUpdateUnits(t *testing.T) {
	m, log := newTestMapper()
	rows := []types.Row{
		types.NewRow("ID", "1A", "ESTADO", "Disponible"),
		types.NewRow("ID", "1B", "ESTADO", "Disponible"),
		types.NewRow("ID", "1C", "ESTADO", "Disponible"),
	}

	out, res := m.BulkUpdateUnits(rows, []string{"1A", "ZZ", "1C"}, UnitPatch{Status: statusPtr(types.StatusSold)})

	assert.Equal(t, []string{"1A", "1C"}, res.Updated)
	assert.Equal(t, []string{"ZZ"}, res.NotFound)
	require.Len(t, out, 3)

	for i, want := range []string{"VENDIDA", "Disponible", "VENDIDA"} {
		v, _ := out[i].Get("ESTADO")
		assert.Equal(t, want, v)
	}
	v, _ := rows[0].Get("ESTADO")
	assert.Equal(t, "Disponible", v)

	entries := log.All()
	require.Len(t, entries, 1)
	assert.Equal(t, ContextUpdate, entries[0].Context)
	assert.Equal(t, "ZZ", entries[0].ReferenceID)
}

func TestUpdateService(t *testing.T) {
	m, _ := newTestMapper()
	rows := []types.Row{
		types.NewRow("ID-G", "G-01"),
		types.NewRow("ID-G", "G-02"),
	}

	out, ok := m.UpdateService(types.KindGarage, rows, "G-02", ServicePatch{Notes: strPtr("cerrada")})
	require.True(t, ok)
	v, _ := out[1].Get("OBSERVACIONES")
	assert.Equal(t, "cerrada", v)
	assert.False(t, rows[1].Has("OBSERVACIONES"))

	_, ok = m.UpdateService(types.KindGarage, rows, "G-99", ServicePatch{})
	assert.False(t, ok)
}

func TestUnitPatch(t *testing.T) {
	assert.True(t, UnitPatch{}.IsEmpty())

	p := UnitPatch{Status: statusPtr("RESERVADA"), Notes: strPtr("n")}
	require.NoError(t, p.Normalize())
	assert.Equal(t, types.StatusReserved, *p.Status)

	u := p.Apply(types.Unit{ID: "1A", Notes: "old", Price: 10})
	assert.Equal(t, types.StatusReserved, u.Status)
	assert.Equal(t, "n", u.Notes)
	assert.Equal(t, 10.0, u.Price)

	bad := UnitPatch{Status: statusPtr("bloqueada")}
	assert.Error(t, bad.Normalize())
}
