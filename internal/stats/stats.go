// =============================================================================
// AXIS-Z Resolver - Sales Statistics
// =============================================================================
//
// This module computes the commercial figures of a resolved project: the
// sales KPIs, the status breakdowns by building, bedrooms and price range,
// and the monthly cash flow of sales and reservations.
//
// KPIs and cash flow cover every unit of the project. The breakdowns cover
// the units that passed the unit filters, while the price range bounds are
// always taken from the whole project so the buckets do not move when a
// filter is applied.
//
// PRICE RANGES:
//   Prices above MinRangePrice are rounded out to multiples of 10.000 and the
//   span is split into four equal buckets. The last bucket is closed, so the
//   most expensive unit lands in it.
//
// =============================================================================

package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

const (
	// RangeCount is the number of price buckets.
	RangeCount = 4

	// RangeRounding is the multiple price range bounds are rounded to.
	RangeRounding = 10000.0

	// MinRangePrice excludes placeholder prices from the range bounds.
	MinRangePrice = 1000.0

	// NoValue names the group of units without a value for the grouping field.
	NoValue = "N/A"
)

// =============================================================================
// TYPES
// =============================================================================

// StatusCounts counts units per status.
type StatusCounts struct {
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Sold      int `json:"sold"`
}

func (c *StatusCounts) add(s types.Status) {
	switch s {
	case types.StatusSold:
		c.Sold++
	case types.StatusReserved:
		c.Reserved++
	default:
		c.Available++
	}
}

// Total returns the number of counted units.
func (c StatusCounts) Total() int {
	return c.Available + c.Reserved + c.Sold
}

// Group is the status breakdown of the units sharing one value.
type Group struct {
	Name string `json:"name"`
	StatusCounts
}

// PriceRange is one price bucket. Value is the "min-max" form accepted by
// the price range filter.
type PriceRange struct {
	Name  string  `json:"name"`
	Value string  `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	StatusCounts
}

// Contains reports whether price falls in [Min, Max).
func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price < r.Max
}

// KPIs are the headline sales figures.
type KPIs struct {
	TotalUnits     int `json:"totalUnits"`
	SoldUnits      int `json:"soldUnits"`
	ReservedUnits  int `json:"reservedUnits"`
	AvailableUnits int `json:"availableUnits"`

	TotalValue     float64 `json:"totalValue"`
	SoldValue      float64 `json:"soldValue"`
	ReservedValue  float64 `json:"reservedValue"`
	AvailableValue float64 `json:"availableValue"`

	// Shares of TotalValue, in percent.
	PercentSoldValue     float64 `json:"percentSoldValue"`
	PercentReservedValue float64 `json:"percentReservedValue"`

	// Average price of the sold and of the reserved units.
	AvgSoldTicket     float64 `json:"avgSoldTicket"`
	AvgReservedTicket float64 `json:"avgReservedTicket"`
}

// CashflowPoint is the value sold and reserved in one month ("2025-03").
type CashflowPoint struct {
	Month    string  `json:"month"`
	Sold     float64 `json:"sold"`
	Reserved float64 `json:"reserved"`
}

// Stats bundles every figure of one project.
type Stats struct {
	KPIs        KPIs            `json:"kpis"`
	ByBuilding  []Group         `json:"byBuilding"`
	ByBedrooms  []Group         `json:"byBedrooms"`
	PriceRanges []PriceRange    `json:"priceRanges"`
	Cashflow    []CashflowPoint `json:"cashflow"`
}

// =============================================================================
// COMPUTE
// =============================================================================

// Compute builds the statistics of a project.
//
// PARAMETERS:
//   - all: Every unit of the project.
//   - filtered: The units that passed the unit filters.
func Compute(all, filtered []types.Unit) Stats {
	ranges := PriceRanges(all, MinRangePrice)
	for _, u := range filtered {
		if i := bucket(ranges, u.Price); i >= 0 {
			ranges[i].add(u.Status)
		}
	}

	return Stats{
		KPIs:        ComputeKPIs(all),
		ByBuilding:  groupBy(filtered, byText(func(u types.Unit) string { return u.Building })),
		ByBedrooms:  groupBy(filtered, byBedrooms),
		PriceRanges: ranges,
		Cashflow:    Cashflow(all),
	}
}

// ComputeKPIs sums unit counts and prices per status.
func ComputeKPIs(units []types.Unit) KPIs {
	k := KPIs{TotalUnits: len(units)}
	for _, u := range units {
		k.TotalValue += u.Price
		switch u.Status {
		case types.StatusSold:
			k.SoldUnits++
			k.SoldValue += u.Price
		case types.StatusReserved:
			k.ReservedUnits++
			k.ReservedValue += u.Price
		default:
			k.AvailableUnits++
			k.AvailableValue += u.Price
		}
	}

	if k.TotalValue > 0 {
		k.PercentSoldValue = k.SoldValue / k.TotalValue * 100
		k.PercentReservedValue = k.ReservedValue / k.TotalValue * 100
	}
	if k.SoldUnits > 0 {
		k.AvgSoldTicket = k.SoldValue / float64(k.SoldUnits)
	}
	if k.ReservedUnits > 0 {
		k.AvgReservedTicket = k.ReservedValue / float64(k.ReservedUnits)
	}
	return k
}

// =============================================================================
// GROUPING
// =============================================================================

// groupKey returns the group name of a unit and the value it sorts by.
type groupKey func(u types.Unit) (name string, sortNum float64, numeric bool)

func byText(field func(types.Unit) string) groupKey {
	return func(u types.Unit) (string, float64, bool) {
		if v := field(u); v != "" {
			return v, 0, false
		}
		return NoValue, 0, false
	}
}

func byBedrooms(u types.Unit) (string, float64, bool) {
	return fmt.Sprintf("%d Dorm", u.Bedrooms), float64(u.Bedrooms), true
}

// spanish orders text groups the way a Spanish reader expects.
var spanish = collate.New(language.Spanish)

// groupBy counts units per status in each group. Numeric groups sort by
// value, text groups alphabetically.
func groupBy(units []types.Unit, key groupKey) []Group {
	type entry struct {
		group   Group
		sortNum float64
		numeric bool
	}
	index := make(map[string]int)
	var entries []entry

	for _, u := range units {
		name, num, isNum := key(u)
		i, ok := index[name]
		if !ok {
			i = len(entries)
			index[name] = i
			entries = append(entries, entry{group: Group{Name: name}, sortNum: num, numeric: isNum})
		}
		entries[i].group.add(u.Status)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.numeric && b.numeric {
			return a.sortNum < b.sortNum
		}
		return spanish.CompareString(a.group.Name, b.group.Name) < 0
	})

	groups := make([]Group, len(entries))
	for i, e := range entries {
		groups[i] = e.group
	}
	return groups
}

// =============================================================================
// PRICE RANGES
// =============================================================================

// PriceRanges splits the prices of units above floor into RangeCount
// buckets with empty counts. Without such prices there are no buckets.
func PriceRanges(units []types.Unit, floor float64) []PriceRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, u := range units {
		if u.Price > floor {
			lo = math.Min(lo, u.Price)
			hi = math.Max(hi, u.Price)
		}
	}
	if math.IsInf(lo, 1) {
		return nil
	}

	minRounded := math.Floor(lo/RangeRounding) * RangeRounding
	maxRounded := math.Ceil(hi/RangeRounding) * RangeRounding
	if maxRounded <= minRounded {
		maxRounded = minRounded + RangeRounding
	}
	step := (maxRounded - minRounded) / RangeCount

	ranges := make([]PriceRange, RangeCount)
	for i := range ranges {
		start := minRounded + float64(i)*step
		end := minRounded + float64(i+1)*step
		ranges[i] = PriceRange{
			Name:  fmt.Sprintf("%.0fk - %.0fk", math.Round(start/1000), math.Round(end/1000)),
			Value: formatBound(start) + "-" + formatBound(end),
			Min:   start,
			Max:   end,
		}
	}
	return ranges
}

// bucket returns the index of the range holding price, clamping prices
// outside the bounds to the first or last bucket. Prices of zero or less
// belong to no bucket.
func bucket(ranges []PriceRange, price float64) int {
	if len(ranges) == 0 || price <= 0 {
		return -1
	}
	step := ranges[0].Max - ranges[0].Min
	i := int(math.Floor((price - ranges[0].Min) / step))
	return min(max(i, 0), len(ranges)-1)
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// =============================================================================
// CASH FLOW
// =============================================================================

// dateLayouts are the date forms accepted for sale and reservation dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// monthOf returns the "YYYY-MM" month of a date, or false when s is not a
// date.
func monthOf(s string) (string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01"), true
		}
	}
	return "", false
}

// Cashflow sums the price of sold units by sale month and of reserved units
// by reservation month. Units without a price or a readable date are left
// out. Months are sorted.
func Cashflow(units []types.Unit) []CashflowPoint {
	points := make(map[string]*CashflowPoint)
	at := func(month string) *CashflowPoint {
		p, ok := points[month]
		if !ok {
			p = &CashflowPoint{Month: month}
			points[month] = p
		}
		return p
	}

	for _, u := range units {
		if u.Price == 0 {
			continue
		}
		switch u.Status {
		case types.StatusSold:
			if month, ok := monthOf(u.SaleDate); ok {
				at(month).Sold += u.Price
			}
		case types.StatusReserved:
			if month, ok := monthOf(u.ReservationDate); ok {
				at(month).Reserved += u.Price
			}
		}
	}

	out := make([]CashflowPoint, 0, len(points))
	for _, p := range points {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
