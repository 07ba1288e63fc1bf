package stats

import (
	"strconv"
	"strings"

	"github.com/ginjaninja78/axisz-resolver/internal/numeric"
	"github.com/ginjaninja78/axisz-resolver/internal/validation"
)

// currency renders whole euros, as the sales figures are shown.
func currency(f float64) string {
	return numeric.FormatCurrency(f, 0)
}

// KPIRows returns the KPIs as label/value rows.
func KPIRows(k KPIs) (header []string, rows [][]string) {
	header = []string{"KPI", "VALOR"}
	rows = [][]string{
		{"Unidades", strconv.Itoa(k.TotalUnits)},
		{"Vendidas", strconv.Itoa(k.SoldUnits)},
		{"Reservadas", strconv.Itoa(k.ReservedUnits)},
		{"Disponibles", strconv.Itoa(k.AvailableUnits)},
		{"Volumen total", currency(k.TotalValue)},
		{"Vendido", currency(k.SoldValue)},
		{"Reservado", currency(k.ReservedValue)},
		{"Disponible", currency(k.AvailableValue)},
		{"% valor vendido", numeric.FormatPercent(k.PercentSoldValue, 1)},
		{"% valor reservado", numeric.FormatPercent(k.PercentReservedValue, 1)},
		{"Ticket medio ventas", currency(k.AvgSoldTicket)},
		{"Ticket medio reservas", currency(k.AvgReservedTicket)},
	}
	return header, rows
}

// GroupRows returns a status breakdown as table rows under label.
func GroupRows(label string, groups []Group) (header []string, rows [][]string) {
	header = []string{label, "DISPONIBLE", "RESERVADA", "VENDIDA"}
	for _, g := range groups {
		rows = append(rows, countRow(g.Name, g.StatusCounts))
	}
	return header, rows
}

// RangeRows returns the price buckets as table rows.
func RangeRows(ranges []PriceRange) (header []string, rows [][]string) {
	header = []string{"RANGO", "DISPONIBLE", "RESERVADA", "VENDIDA"}
	for _, r := range ranges {
		rows = append(rows, countRow(r.Name, r.StatusCounts))
	}
	return header, rows
}

// CashflowRows returns the monthly cash flow as table rows.
func CashflowRows(points []CashflowPoint) (header []string, rows [][]string) {
	header = []string{"MES", "VENTAS", "RESERVAS"}
	for _, p := range points {
		rows = append(rows, []string{p.Month, currency(p.Sold), currency(p.Reserved)})
	}
	return header, rows
}

func countRow(name string, c StatusCounts) []string {
	return []string{name, strconv.Itoa(c.Available), strconv.Itoa(c.Reserved), strconv.Itoa(c.Sold)}
}

// FormatReport renders the statistics as markdown sections. Empty
// breakdowns are left out.
func FormatReport(s Stats) string {
	var b strings.Builder
	b.WriteString("\n## Sales\n\n")
	b.WriteString(validation.FormatTable(KPIRows(s.KPIs)))

	type section struct {
		title  string
		header []string
		rows   [][]string
	}
	var sections []section
	h, r := GroupRows("EDIFICIO", s.ByBuilding)
	sections = append(sections, section{"Status by building", h, r})
	h, r = GroupRows("DORMITORIOS", s.ByBedrooms)
	sections = append(sections, section{"Status by bedrooms", h, r})
	h, r = RangeRows(s.PriceRanges)
	sections = append(sections, section{"Status by price range", h, r})
	h, r = CashflowRows(s.Cashflow)
	sections = append(sections, section{"Cash flow", h, r})

	for _, sec := range sections {
		if len(sec.rows) == 0 {
			continue
		}
		b.WriteString("\n## " + sec.title + "\n\n")
		b.WriteString(validation.FormatTable(sec.header, sec.rows))
	}
	return b.String()
}
