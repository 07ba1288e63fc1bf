// =============================================================================
// AXIS-Z Resolver - Key Normalization
// =============================================================================
//
// This package turns the unstable headers found in project exports into
// comparable forms. Exported spreadsheets mix accents, symbols and group
// prefixes freely ("DATOS GENERALES_Nº DORM", "ÚTIL PRIV-G"), so every
// lookup in the resolver goes through one of the forms below:
//
//   NormalizeKey    - canonical key, used for equality and containment
//   NormalizeString - accent-free text that keeps spaces and symbols
//   StandardKey     - abbreviated snake_case identifier for storage/display
//   SmartKey        - symbol-aware snake_case variant of a column name
//   CleanName       - aggressive alphanumeric-only variant of a column name
//
// All functions are pure and safe for concurrent use.
//
// =============================================================================

package keys

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// DIACRITICS
// =============================================================================

// combiningMarks is the Combining Diacritical Marks block (U+0300-U+036F).
var combiningMarks = runes.Predicate(func(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
})

// StripDiacritics decomposes s (NFD) and removes the combining marks, so
// "ñ" becomes "n" and "ú" becomes "u". Characters that do not decompose
// ("º", "²") are left alone.
func StripDiacritics(s string) string {
	// transform.Chain keeps internal state, so one is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(combiningMarks))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// =============================================================================
// CANONICAL FORMS
// =============================================================================

// NormalizeKey returns the canonical comparison form of s: lowercase, accent
// free, with every character outside [a-z0-9] deleted. Two keys are treated
// as equivalent when their canonical forms are equal.
func NormalizeKey(s string) string {
	if s == "" {
		return ""
	}
	s = StripDiacritics(strings.TrimSpace(strings.ToLower(s)))
	return keepAlnum(s, false)
}

// NormalizeString lowercases s and strips its diacritics, keeping spaces and
// punctuation. It is the form used for free-text substring searches.
func NormalizeString(s string) string {
	if s == "" {
		return ""
	}
	return StripDiacritics(strings.ToLower(s))
}

// keepAlnum drops (or, with underscore set, replaces by '_') every rune that
// is not an ASCII lowercase letter or digit.
func keepAlnum(s string, underscore bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if underscore {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// =============================================================================
// STANDARD KEYS
// =============================================================================

// EmptyKey is returned by StandardKey when nothing usable remains.
const EmptyKey = "empty"

// abbreviations maps single accent-free tokens to their short form.
var abbreviations = map[string]string{
	"superficies":   "sup",
	"superficie":    "sup",
	"utiles":        "util",
	"util":          "util",
	"construidas":   "const",
	"construida":    "const",
	"construido":    "const",
	"interiores":    "int",
	"interior":      "int",
	"exteriores":    "ext",
	"exterior":      "ext",
	"viviendas":     "viv",
	"vivienda":      "viv",
	"general":       "grl",
	"datos":         "data",
	"ubicacion":     "loc",
	"urbanistico":   "urb",
	"urbanistica":   "urb",
	"urbanizacion":  "urb",
	"privativas":    "priv",
	"privativo":     "priv",
	"comunes":       "com",
	"comun":         "com",
	"servicios":     "serv",
	"garajes":       "gar",
	"garaje":        "gar",
	"trasteros":     "trast",
	"trastero":      "trast",
	"resumen":       "res",
	"distribuidor":  "dist",
	"distrib":       "dist",
	"dormitorio":    "dorm",
	"dormitorios":   "dorm",
	"banos":         "bath",
	"bano":          "bath",
	"cocina":        "kit",
	"salon":         "liv",
	"comedor":       "din",
	"terraza":       "terr",
	"jardin":        "gdn",
	"precio":        "prc",
	"maximo":        "max",
	"venta":         "sale",
	"gestion":       "mgmt",
	"observaciones": "obs",
	"vinculado":     "link",
	"cliente":       "cli",
	"comprador":     "buyer",
}

// symbolReplacer runs before diacritics are stripped. "nº" is listed first
// so the digraph collapses to a single "num" token.
var symbolReplacer = strings.NewReplacer(
	"nº", "num",
	"º", "num",
	"%", "pct",
	"+", "_plus_",
	"&", "_and_",
	"@", "_at_",
)

// StandardKey derives a stable, still legible snake_case identifier from a
// human label:
//
//	StandardKey("Nº BAÑOS")                  // "num_bath"
//	StandardKey("SUPERFICIE ÚTIL INTERIOR")  // "sup_util_int"
//	StandardKey("  ")                        // "empty"
func StandardKey(label string) string {
	s := strings.TrimSpace(strings.ToLower(label))
	if s == "" {
		return EmptyKey
	}

	s = symbolReplacer.Replace(s)
	s = keepAlnum(StripDiacritics(s), true)

	tokens := strings.Split(s, "_")
	out := tokens[:0]
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if abbr, ok := abbreviations[tok]; ok {
			tok = abbr
		}
		out = append(out, tok)
	}

	if len(out) == 0 {
		return EmptyKey
	}
	return strings.Join(out, "_")
}

// =============================================================================
// COLUMN NAME VARIANTS
// =============================================================================

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// SmartKey rewrites a column name into the snake_case spelling some exports
// use for their keys ("Nº DORM" -> "num_dorm", "% PARTICIP." -> "porc_particip").
func SmartKey(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(
		"nº", "num",
		"%", "porc",
		"+", "",
		"/", "_",
		".", "",
		"(", "",
		")", "",
	).Replace(s)
	s = whitespaceRun.ReplaceAllString(s, "_")
	return underscoreRun.ReplaceAllString(s, "_")
}

// CleanName lowercases s, spells "nº" as "num" and deletes everything that is
// not an ASCII letter or digit. Accented letters are deleted, not folded.
func CleanName(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "nº", "num")
	return keepAlnum(s, false)
}

// Words splits an accent-free, lowercased label into alphanumeric words.
func Words(s string) []string {
	return strings.FieldsFunc(NormalizeString(s), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
}
