// =============================================================================
// AXIS-Z Resolver - Numeric/Currency Parser
// =============================================================================
//
// Project exports write numbers however the spreadsheet author liked:
// "320.000,00 €", "1234.56", "1.234", 45, "". This package turns all of them
// into float64 without ever failing: anything that cannot be read is 0.
//
// PARSING ORDER:
//   1. Number input is returned as is.
//   2. Absent input, "" and "0" are 0.
//   3. Currency symbols (€ $ £) and whitespace are removed.
//   4. Strict Spanish format (1.234.567,89) is converted directly.
//   5. Otherwise the separators present decide which one is decimal.
//   6. The longest leading float is parsed. No digits means 0.
//
// =============================================================================

package numeric

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// INPUT
// =============================================================================

// Kind tags the three shapes a raw value can take.
type Kind int

const (
	// KindAbsent is a missing key or a JSON null.
	KindAbsent Kind = iota

	// KindNumber is a value that is already numeric.
	KindNumber

	// KindText is any textual value.
	KindText
)

// Input is a raw value classified for parsing.
type Input struct {
	Kind Kind
	Num  float64
	Text string
}

// Number wraps an already numeric value.
func Number(f float64) Input { return Input{Kind: KindNumber, Num: f} }

// Text wraps a textual value.
func Text(s string) Input { return Input{Kind: KindText, Text: s} }

// Absent is the input for a missing or null value.
func Absent() Input { return Input{Kind: KindAbsent} }

// FromValue classifies a value decoded from JSON, CSV or XLSX.
func FromValue(v any) Input {
	switch x := v.(type) {
	case nil:
		return Absent()
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case uint:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case string:
		return Text(x)
	case bool:
		// A boolean has no numeric reading; false is falsy and true fails to parse.
		return Absent()
	default:
		return Text(fmt.Sprint(x))
	}
}

// =============================================================================
// PARSER
// =============================================================================

var (
	// spanishFormat matches thousands dots in groups of exactly three digits
	// with an optional comma decimal part.
	spanishFormat = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+(,\d+)?$`)

	// leadingFloat is the longest prefix strconv can read as a float.
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

	symbolStripper = strings.NewReplacer("€", "", "$", "", "£", "")
)

// ParseRobust converts in to a float64. It never panics and never returns
// NaN or an infinity: unreadable input yields 0.
func ParseRobust(in Input) float64 {
	switch in.Kind {
	case KindNumber:
		if math.IsNaN(in.Num) || math.IsInf(in.Num, 0) {
			return 0
		}
		return in.Num
	case KindAbsent:
		return 0
	}

	s := in.Text
	if s == "" || s == "0" {
		return 0
	}

	s = stripSpace(symbolStripper.Replace(strings.TrimSpace(s)))

	if spanishFormat.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
		return ParseLeading(s)
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	return ParseLeading(s)
}

// Parse is ParseRobust over a raw value.
func Parse(v any) float64 {
	return ParseRobust(FromValue(v))
}

// ParseLeading reads the longest float prefix of s, the way a lenient
// spreadsheet reader does: "12m2" is 12 and "abc" is 0. Leading whitespace
// is skipped.
func ParseLeading(s string) float64 {
	f, _ := ParseLeadingOK(s)
	return f
}

// ParseLeadingOK is ParseLeading that also reports whether s started with a
// number at all.
func ParseLeadingOK(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimLeft(s, " \t\n\r"))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
}
