package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

func testSchemas() *schema.Schemas {
	return &schema.Schemas{
		Units: []schema.UnitGroup{{
			Name:    "DATOS GENERALES",
			Columns: []string{"DATOS GENERALES_Nº DORM", "DATOS GENERALES_EDIFICIO"},
		}},
		Garages: []schema.ServiceGroup{{
			Name: "GARAJES",
			Columns: []schema.Column{
				{Key: "id", Label: "ID", Type: schema.TypeID},
				{Key: "precio_max_g", Label: "PRECIO G", Type: schema.TypeCurrency},
			},
		}},
		Storages: []schema.ServiceGroup{{
			Name:    "TRASTEROS",
			Columns: []schema.Column{{Key: "id", Label: "ID", Type: schema.TypeID}},
		}},
		Cards: []schema.Card{{
			ID:    "01",
			Items: []schema.CardItem{{Label: "PROMOCIÓN"}, {Label: "CÓDIGO"}},
		}},
	}
}

func testProject() types.ProjectDataRaw {
	return types.ProjectDataRaw{
		Name:    "Lomas",
		General: types.NewRow("PROMOCIÓN", "Lomas del Río", "CÓDIGO", 0.0),
		Units:   []types.Row{types.NewRow("DATOS GENERALES_Nº DORM", 3.0)},
		Garages: []types.Row{types.NewRow("id", "G-01")},
	}
}

// =============================================================================
// QUALITY AND TYPE
// =============================================================================

func TestDetectQuality(t *testing.T) {
	tests := []struct {
		name    string
		v       any
		present bool
		want    Quality
	}{
		{"absent", nil, false, QualityMissing},
		{"null", nil, true, QualityNull},
		{"empty string", "", true, QualityEmpty},
		{"whitespace", "   ", true, QualityEmpty},
		{"numeric zero", 0.0, true, QualityZero},
		{"int zero", 0, true, QualityZero},
		{"text zero", "0", true, QualityZero},
		{"text", "B1", true, QualityOK},
		{"number", 12.5, true, QualityOK},
		{"false", false, true, QualityOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectQuality(tt.v, tt.present))
		})
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		v    any
		key  string
		want string
	}{
		{nil, "precio", TypeNull},
		{"x", "precio_venta", TypeCurrency},
		{1.0, "PEM_TOTAL", TypeCurrency},
		{1.0, "porc_particip", TypePercentage},
		{1.0, "sup_util", TypeArea},
		{"2025-01-01", "fecha_cfo", TypeDate},
		{"A-1", "codigo", TypeCode},
		{"Libre", "estado", TypeStatus},
		{[]any{1}, "lista", TypeArray},
		{3.0, "num_dorm", TypeInteger},
		{3.5, "num_dorm", TypeFloat},
		{true, "flag", TypeBoolean},
		{"Sur", "orientacion", TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectType(tt.v, tt.key))
		})
	}
}

// =============================================================================
// PARAMETER INDEX
// =============================================================================

func TestBuildParameterIndex(t *testing.T) {
	params := BuildParameterIndex(testProject(), testSchemas())

	// Two card items, two unit columns, two garage columns. No storages.
	require.Len(t, params, 6)

	for i, p := range params {
		assert.Equal(t, []string{
			"IdPar-0001", "IdPar-0002", "IdPar-0003", "IdPar-0004", "IdPar-0005", "IdPar-0006",
		}[i], p.ID)
	}

	assert.Equal(t, GroupGeneral, params[0].Group)
	assert.Equal(t, "Tarjeta 01", params[0].Location)
	assert.Equal(t, "Lomas del Río", params[0].Value)
	assert.Equal(t, QualityOK, params[0].Quality)

	assert.Equal(t, QualityZero, params[1].Quality)
	assert.Equal(t, TypeCode, params[1].Type)

	assert.Equal(t, GroupUnits, params[2].Group)
	assert.Equal(t, "Nº DORM", params[2].Label)
	assert.Equal(t, "Tabla Proyecto", params[2].Location)
	assert.Equal(t, TypeInteger, params[2].Type)

	assert.Equal(t, "EDIFICIO", params[3].Label)
	assert.Equal(t, QualityMissing, params[3].Quality)
	assert.Equal(t, TypeNull, params[3].Type)

	assert.Equal(t, GroupGarages, params[4].Group)
	assert.Equal(t, "G-01", params[4].Value)
	assert.Equal(t, QualityMissing, params[5].Quality)
}

func TestBuildParameterIndexEmptyProject(t *testing.T) {
	params := BuildParameterIndex(types.ProjectDataRaw{}, testSchemas())

	// Cards are always listed; empty tables contribute nothing.
	require.Len(t, params, 2)
	for _, p := range params {
		assert.Equal(t, QualityMissing, p.Quality)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(BuildParameterIndex(testProject(), testSchemas()))

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 3, s.ByQuality[QualityOK])
	assert.Equal(t, 2, s.ByQuality[QualityMissing])
	assert.Equal(t, 1, s.ByQuality[QualityZero])
	assert.Equal(t, 0, s.ByQuality[QualityNull])
	assert.InDelta(t, 0.5, s.Coverage(), 1e-9)

	assert.Zero(t, Summary{}.Coverage())
}

func TestIssuesAndFilter(t *testing.T) {
	params := BuildParameterIndex(testProject(), testSchemas())

	issues := Issues(params)
	require.Len(t, issues, 3)
	assert.Equal(t, "IdPar-0002", issues[0].ID)

	assert.Len(t, Filter(params, "garajes"), 2)
	assert.Len(t, Filter(params, "dorm"), 1)
	assert.Len(t, Filter(params, "  "), 6)
}

// =============================================================================
// TABLE DIAGNOSTICS
// =============================================================================

func TestUnitTableDiagnostic(t *testing.T) {
	s := testSchemas()
	sample := types.NewRow("Nº DORM", 2.0, "EDIFICIO", "")

	reports := UnitTableDiagnostic(s.Units, sample)
	require.Len(t, reports, 2)

	assert.Equal(t, "DATOS GENERALES", reports[0].Group)
	assert.Equal(t, "Nº DORM", reports[0].Label)
	assert.Equal(t, []string{"DATOS GENERALES_Nº DORM", "Nº DORM", "Nº DORM"}, reports[0].SearchKeys)
	assert.Equal(t, "Nº DORM", reports[0].FoundKey)
	assert.Equal(t, QualityOK, reports[0].Quality)

	assert.Equal(t, QualityEmpty, reports[1].Quality)
}

func TestServiceTableDiagnostic(t *testing.T) {
	s := testSchemas()
	reports := ServiceTableDiagnostic(s.Garages, types.NewRow("ID", "G-01", "PRECIO G", nil))

	require.Len(t, reports, 2)
	assert.Equal(t, "ID", reports[0].FoundKey)
	assert.Equal(t, QualityOK, reports[0].Quality)
	assert.Equal(t, QualityNull, reports[1].Quality)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestDiagnose(t *testing.T) {
	r := Diagnose(testProject(), testSchemas())

	assert.Equal(t, "Lomas", r.Project)
	assert.Len(t, r.Parameters, 6)
	assert.Len(t, r.Units, 2)
	assert.Len(t, r.Garages, 2)
	assert.Empty(t, r.Storages)

	data, err := FormatJSON(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Lomas", decoded["project"])
	assert.NotContains(t, decoded, "storages")
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"A", "VALOR"}, [][]string{
		{"ñ", "1"},
		{"long cell", "x"},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| A         | VALOR |", lines[0])
	assert.Equal(t, "| --------- | ----- |", lines[1])
	assert.Equal(t, "| ñ         | 1     |", lines[2])
	assert.Equal(t, "| long cell | x     |", lines[3])
}

func TestFormatReport(t *testing.T) {
	out := FormatReport(Diagnose(testProject(), testSchemas()))

	assert.True(t, strings.HasPrefix(out, "# Diagnostics: Lomas\n"))
	assert.Contains(t, out, "6 parameters, 3 ok (50.0%)")
	assert.Contains(t, out, "missing: 2, null: 0, empty: 0, zero: 1")
	assert.Contains(t, out, "## Units")
	assert.Contains(t, out, "## Garages")
	assert.NotContains(t, out, "## Storages")
}
