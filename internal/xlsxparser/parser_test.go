package xlsxparser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/axisz-resolver/internal/config"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

func headerSettings(rows int) config.CSVSettings {
	return config.CSVSettings{HeaderRows: rows, HeaderJoiner: "_"}
}

// buildWorkbook writes sheets (name -> rows) into an XLSX buffer.
func buildWorkbook(t *testing.T, sheets []string, content map[string][][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range content[name] {
			axis, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(name, axis, &values))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseReaderProjectWorkbook(t *testing.T) {
	buf := buildWorkbook(t,
		[]string{"ds_generales", "TS General", "Garajes", "_notas", "Resumen"},
		map[string][][]any{
			"ds_generales": {
				{"PROMOCIÓN", "Lomas del Río"},
				{"CÓDIGO", 17},
				{"PEM TOTAL", "2.000.000,00 €"},
				{"RÉGIMEN", "VPP"},
			},
			"TS General": {
				{"", "DATOS GENERALES", "", "GESTIÓN"},
				{"VIVIENDAS", "Nº DORM", "Nº BAÑOS", "ESTADO"},
				{"1A", 3, 2, "Disponible"},
				{},
				{"1B", 2.5, "2", "Reservada"},
			},
			"Garajes": {
				{"ID-G", "ESTADO", "VENDIDO"},
				{"G-01", "Libre", true},
			},
			"_notas":  {{"x"}},
			"Resumen": {{"y"}},
		},
	)

	wb, err := ParseReader(buf, "Lomas", headerSettings(2))
	require.NoError(t, err)

	raw := wb.Project
	assert.Equal(t, "Lomas", raw.Name)
	assert.Equal(t, []string{"Resumen"}, wb.Skipped)
	assert.Equal(t, "TS General", wb.Sheets[types.TableUnits])

	// Key/value general sheet.
	assert.Equal(t, []string{"PROMOCIÓN", "CÓDIGO", "PEM TOTAL", "RÉGIMEN"}, raw.General.Keys())
	v, _ := raw.General.Get("CÓDIGO")
	assert.Equal(t, 17.0, v)
	v, _ = raw.General.Get("PEM TOTAL")
	assert.Equal(t, "2.000.000,00 €", v)

	require.Len(t, raw.Units, 2)
	assert.Equal(t, []string{
		"_VIVIENDAS", "DATOS GENERALES_Nº DORM", "DATOS GENERALES_Nº BAÑOS", "GESTIÓN_ESTADO",
	}, raw.Units[0].Keys())
	v, _ = raw.Units[0].Get("DATOS GENERALES_Nº DORM")
	assert.Equal(t, 3.0, v)
	v, _ = raw.Units[1].Get("DATOS GENERALES_Nº DORM")
	assert.Equal(t, 2.5, v)
	v, _ = raw.Units[1].Get("DATOS GENERALES_Nº BAÑOS")
	assert.Equal(t, "2", v)

	// Two header rows consume the whole garages sheet.
	assert.Empty(t, raw.Garages)
	assert.Empty(t, raw.Storages)
}

func TestParseReaderSingleHeaderRow(t *testing.T) {
	buf := buildWorkbook(t,
		[]string{"garajes", "ds_generales"},
		map[string][][]any{
			"garajes": {
				{"ID-G", "ESTADO", "ACTIVA"},
				{"G-01", "Libre", true},
				{"G-02"},
			},
			"ds_generales": {
				{"PROMOCIÓN", "CÓDIGO", "RÉGIMEN"},
				{"Pinar", 4, "VPP"},
			},
		},
	)

	wb, err := ParseReader(buf, "Pinar", headerSettings(1))
	require.NoError(t, err)

	require.Len(t, wb.Project.Garages, 2)
	v, _ := wb.Project.Garages[0].Get("ACTIVA")
	assert.Equal(t, true, v)
	v, ok := wb.Project.Garages[1].Get("ESTADO")
	assert.True(t, ok)
	assert.Equal(t, "", v)

	// Header-and-values general sheet.
	v, _ = wb.Project.General.Get("RÉGIMEN")
	assert.Equal(t, "VPP", v)
	v, _ = wb.Project.General.Get("CÓDIGO")
	assert.Equal(t, 4.0, v)
}

func TestParseReaderWithoutTables(t *testing.T) {
	buf := buildWorkbook(t, []string{"Hoja"}, map[string][][]any{"Hoja": {{"a"}}})

	_, err := ParseReader(buf, "x", headerSettings(1))
	assert.Error(t, err)
}

func TestTableForSheet(t *testing.T) {
	tests := map[string]types.TableID{
		"ds_generales":    types.TableGeneral,
		"Datos Generales": types.TableGeneral,
		"TS_GENERAL":      types.TableUnits,
		"Viviendas":       types.TableUnits,
		"GARAJES":         types.TableGarages,
		"Trasteros":       types.TableStorages,
	}
	for name, want := range tests {
		got, ok := TableForSheet(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := TableForSheet("Resumen")
	assert.False(t, ok)
}

func TestProjectNameFromFile(t *testing.T) {
	assert.Equal(t, "lomas_2025", ProjectNameFromFile("/in/lomas_2025.xlsx"))
}
