package schema

import (
	"github.com/ginjaninja78/axisz-resolver/internal/resolver"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// =============================================================================
// GENERAL DATA CARDS
// =============================================================================

// CardValue is one resolved card figure with its provenance.
type CardValue struct {
	Item    CardItem        `json:"item"`
	Lookup  resolver.Lookup `json:"lookup"`
	Display string          `json:"display"`
}

// ResolvedCard is a card whose figures have been looked up.
type ResolvedCard struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Values []CardValue `json:"values"`
}

// ResolveCards looks up every card figure in the general data.
func (s *Schemas) ResolveCards(general types.Row) []ResolvedCard {
	out := make([]ResolvedCard, 0, len(s.Cards))
	for _, c := range s.Cards {
		out = append(out, ResolvedCard{
			ID:     c.ID,
			Title:  c.Title,
			Values: resolveItems(general, c.Items),
		})
	}
	return out
}

// ResolveBottomMetrics looks up the regulatory figures.
func (s *Schemas) ResolveBottomMetrics(general types.Row) []CardValue {
	return resolveItems(general, s.BottomMetrics)
}

func resolveItems(general types.Row, items []CardItem) []CardValue {
	values := make([]CardValue, 0, len(items))
	for _, item := range items {
		l := resolver.FindByLabel(general, item.Label, false)
		values = append(values, CardValue{
			Item:    item,
			Lookup:  l,
			Display: FormatCardValue(l, item),
		})
	}
	return values
}

// =============================================================================
// SERVICE TABLES
// =============================================================================

// ServiceItem is a garage or storage room as seen by its table.
type ServiceItem interface {
	Field(key string) (any, bool)
}

// ServiceValue returns the display text of column col for item.
func ServiceValue(item ServiceItem, col Column) string {
	v, ok := item.Field(col.Key)
	return FormatServiceCell(v, ok, col.Type)
}

// ResolveID returns the first non-falsy candidate value as text.
func ResolveID(row types.Row, candidates []string) (string, bool) {
	v, ok := resolver.Find(row, candidates...)
	if !ok || resolver.IsFalsy(v) {
		return "", false
	}
	return types.FormatValue(v), true
}
