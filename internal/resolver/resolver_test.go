package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

func TestFindExactKeyWins(t *testing.T) {
	row := types.NewRow("x", 0.0, "X", 5.0)

	v, ok := Find(row, "x")
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestFindExactKeyWithNilValue(t *testing.T) {
	row := types.NewRow("PRECIO", nil, "PRECIO_TOTAL", 10.0)

	v, ok := Find(row, "PRECIO")
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestFindCanonicalEquality(t *testing.T) {
	row := types.NewRow("otro", 1.0, "ÚTIL PRIV-G", 24.5)

	key, v, ok := FindKey(row, "UTIL PRIV G")
	require.True(t, ok)
	assert.Equal(t, "ÚTIL PRIV-G", key)
	assert.Equal(t, 24.5, v)
}

func TestFindSubstringGate(t *testing.T) {
	row := types.NewRow("validado", "si")

	_, ok := Find(row, "id")
	assert.False(t, ok, "short candidates must not match by containment")

	row = types.NewRow("ID", "V-01")
	v, ok := Find(row, "id")
	require.True(t, ok)
	assert.Equal(t, "V-01", v)
}

func TestFindContainment(t *testing.T) {
	t.Run("row key contains candidate", func(t *testing.T) {
		row := types.NewRow("DATOS GENERALES_Nº DORM", 3.0)
		v, ok := Find(row, "generales_n_dorm")
		require.True(t, ok)
		assert.Equal(t, 3.0, v)
	})

	t.Run("candidate contains row key", func(t *testing.T) {
		row := types.NewRow("dormitorios", 2.0)
		v, ok := Find(row, "DATOS GENERALES_DORMITORIOS")
		require.True(t, ok)
		assert.Equal(t, 2.0, v)
	})

	t.Run("short row key is not contained", func(t *testing.T) {
		row := types.NewRow("tipo", "A")
		_, ok := Find(row, "UBICACIÓN_TIPOLOGIA")
		assert.False(t, ok)
	})
}

func TestFindTieBreakIsInsertionOrder(t *testing.T) {
	row := types.NewRow(
		"SUP CONSTRUIDA PLANTA", 10.0,
		"SUP CONSTRUIDA TOTAL", 90.0,
	)
	key, v, ok := FindKey(row, "SUP CONSTRUIDA")
	require.True(t, ok)
	assert.Equal(t, "SUP CONSTRUIDA PLANTA", key)
	assert.Equal(t, 10.0, v)
}

func TestFindCandidatePriority(t *testing.T) {
	row := types.NewRow("REF", "R-1", "CODIGO", "C-1")

	v, ok := Find(row, "_VIVIENDAS", "CODIGO", "REF")
	require.True(t, ok)
	assert.Equal(t, "C-1", v)
}

func TestFindMisses(t *testing.T) {
	_, ok := Find(types.Row{}, "ID")
	assert.False(t, ok)

	_, ok = Find(types.NewRow("a", 1.0))
	assert.False(t, ok)

	_, ok = Find(types.NewRow("a", 1.0), "", "º")
	assert.False(t, ok)
}

func TestIsFalsy(t *testing.T) {
	for _, v := range []any{nil, "", 0.0, 0, false} {
		assert.True(t, IsFalsy(v), "%#v", v)
	}
	for _, v := range []any{"0", 1.0, "x", true} {
		assert.False(t, IsFalsy(v), "%#v", v)
	}
}

func TestFindByLabel(t *testing.T) {
	data := types.NewRow(
		"PROMOCION", "Residencial Las Lomas",
		"NUM_MAXIMO_VIVIENDAS", 48.0,
		"SUPERFICIE_PARCELA", "2.350,40",
		"TASA_ICIO", 1200.0,
		"ICIO_BONIFICADO_PARCIAL", 300.0,
	)

	t.Run("exact", func(t *testing.T) {
		l := FindByLabel(data, "PROMOCION", false)
		assert.True(t, l.Found())
		assert.Equal(t, "PROMOCION", l.Key)
	})

	t.Run("canonical", func(t *testing.T) {
		l := FindByLabel(data, "PROMOCIÓN", false)
		assert.Equal(t, StatusFound, l.Status)
		assert.Equal(t, "Residencial Las Lomas", l.Value)
	})

	t.Run("token expansion", func(t *testing.T) {
		l := FindByLabel(data, "Nº MÁX. VIV.", false)
		require.True(t, l.Found())
		assert.Equal(t, "NUM_MAXIMO_VIVIENDAS", l.Key)

		l = FindByLabel(data, "SUP. PARCELA", false)
		require.True(t, l.Found())
		assert.Equal(t, "SUPERFICIE_PARCELA", l.Key)
	})

	t.Run("single token requires suffix on long keys", func(t *testing.T) {
		l := FindByLabel(data, "ICIO", false)
		require.True(t, l.Found())
		assert.Equal(t, "TASA_ICIO", l.Key)
	})

	t.Run("exact only stops before tokens", func(t *testing.T) {
		l := FindByLabel(data, "SUP. PARCELA", true)
		assert.False(t, l.Found())
		assert.Empty(t, l.Key)
		assert.Nil(t, l.Value)
	})

	t.Run("empty data", func(t *testing.T) {
		assert.Equal(t, StatusMissing, FindByLabel(types.Row{}, "ICIO", false).Status)
	})
}
