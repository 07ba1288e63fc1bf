package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRobust(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want float64
	}{
		{"number passes through", Number(42.5), 42.5},
		{"negative number", Number(-3), -3},
		{"absent", Absent(), 0},
		{"empty text", Text(""), 0},
		{"zero text", Text("0"), 0},
		{"spanish thousands and decimals", Text("1.234,56"), 1234.56},
		{"spanish with currency", Text("320.000,00 €"), 320000},
		{"spanish millions", Text("1.234.567"), 1234567},
		{"negative spanish", Text("-12.500,5"), -12500.5},
		{"plain decimal dot", Text("1234.56"), 1234.56},
		{"single dot three digits is thousands", Text("1.234"), 1234},
		{"single dot two digits is decimal", Text("12.34"), 12.34},
		{"many dots are thousands", Text("12.345.6"), 123456},
		{"comma only is decimal", Text("45,5"), 45.5},
		{"english grouping", Text("1,234.56"), 1234.56},
		{"spanish grouping off pattern", Text("12345.678,9"), 12345678.9},
		{"dollar sign", Text("$ 99"), 99},
		{"pound sign and spaces", Text(" £1 000 "), 1000},
		{"trailing unit", Text("85m2"), 85},
		{"letters only", Text("abc"), 0},
		{"dash placeholder", Text("-"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseRobust(tt.in), 1e-9)
		})
	}
}

func TestParseRobustNeverNaN(t *testing.T) {
	for _, in := range []Input{Number(math.NaN()), Number(math.Inf(1)), Text("1e999"), Text("NaN"), Text("Infinity")} {
		got := ParseRobust(in)
		assert.False(t, math.IsNaN(got))
		assert.False(t, math.IsInf(got, 0))
		assert.Zero(t, got)
	}
}

func TestParseFromValue(t *testing.T) {
	assert.Equal(t, 3.0, Parse(3))
	assert.Equal(t, 3.0, Parse(float64(3)))
	assert.Equal(t, 0.0, Parse(nil))
	assert.Equal(t, 0.0, Parse(""))
	assert.Equal(t, 0.0, Parse(true))
	assert.Equal(t, 0.0, Parse([]any{1, 2}))
	assert.Equal(t, 2.9, Parse("2,9"))
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"1.234,56", "320.000,00 €", "987.654.321,1"} {
		first := ParseRobust(Text(s))
		again := ParseRobust(Text(FormatDecimal(first, 2, 2)))
		require.InDelta(t, first, again, 1e-9, "input %q", s)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "320.000,00 €", FormatCurrency(320000, 2))
	assert.Equal(t, "320.000 €", FormatCurrency(320000, 0))
	assert.Equal(t, "85,50", FormatDecimal(85.5, 2, 2))
	assert.Equal(t, "12,5", FormatDecimal(12.5, 0, 2))
	assert.Equal(t, "0,012345%", FormatPercent(0.012345, 6))
}
