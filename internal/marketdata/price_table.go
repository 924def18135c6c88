// Package marketdata holds the immutable in-memory price containers a
// backtest run reads from. All data for the full date range is expected to be
// resident before the simulation loop starts; nothing in this package fetches.
package marketdata

import (
	"math"
	"slices"
	"time"

	"github.com/moznion/go-optional"

	"github.com/quantra-lab/quantra/internal/types"
)

// dayKey collapses a timestamp to its UTC calendar day.
func dayKey(t time.Time) int64 {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// PriceTable is a wide table mapping date x instrument to closing price.
// Missing cells are represented internally as NaN and never exposed.
type PriceTable struct {
	dates   []time.Time
	index   map[int64]int
	closes  map[string][]float64
	symbols []string
}

// NewPriceTable builds a PriceTable from a flat list of daily bars.
func NewPriceTable(bars []types.MarketData) *PriceTable {
	keys := make(map[int64]time.Time)
	symbolSet := make(map[string]struct{})

	for _, bar := range bars {
		keys[dayKey(bar.Time)] = time.Unix(dayKey(bar.Time), 0).UTC()
		symbolSet[bar.Symbol] = struct{}{}
	}

	dates := make([]time.Time, 0, len(keys))
	for _, d := range keys {
		dates = append(dates, d)
	}

	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	index := make(map[int64]int, len(dates))
	for i, d := range dates {
		index[dayKey(d)] = i
	}

	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}

	slices.Sort(symbols)

	closes := make(map[string][]float64, len(symbols))

	for _, s := range symbols {
		row := make([]float64, len(dates))
		for i := range row {
			row[i] = math.NaN()
		}

		closes[s] = row
	}

	for _, bar := range bars {
		closes[bar.Symbol][index[dayKey(bar.Time)]] = bar.Close
	}

	return &PriceTable{
		dates:   dates,
		index:   index,
		closes:  closes,
		symbols: symbols,
	}
}

// Len returns the number of trading days in the table.
func (t *PriceTable) Len() int {
	return len(t.dates)
}

// Symbols returns all instrument identifiers, sorted.
func (t *PriceTable) Symbols() []string {
	return t.symbols
}

// Dates returns all trading days in ascending order.
func (t *PriceTable) Dates() []time.Time {
	return t.dates
}

// Contains reports whether the date falls inside the table's range.
func (t *PriceTable) Contains(date time.Time) bool {
	if len(t.dates) == 0 {
		return false
	}

	key := dayKey(date)

	return key >= dayKey(t.dates[0]) && key <= dayKey(t.dates[len(t.dates)-1])
}

// TradingDays returns the trading days within the optional [start, end] bounds.
func (t *PriceTable) TradingDays(start optional.Option[time.Time], end optional.Option[time.Time]) []time.Time {
	days := make([]time.Time, 0, len(t.dates))

	for _, d := range t.dates {
		if start.IsSome() && dayKey(d) < dayKey(start.Unwrap()) {
			continue
		}

		if end.IsSome() && dayKey(d) > dayKey(end.Unwrap()) {
			continue
		}

		days = append(days, d)
	}

	return days
}

// Close returns the closing price for symbol on date. The second return is
// false when the instrument has no bar that day.
func (t *PriceTable) Close(symbol string, date time.Time) (float64, bool) {
	row, ok := t.closes[symbol]
	if !ok {
		return 0, false
	}

	i, ok := t.index[dayKey(date)]
	if !ok {
		return 0, false
	}

	price := row[i]
	if math.IsNaN(price) {
		return 0, false
	}

	return price, true
}

// SymbolsOn returns the instruments that have a closing price on date, sorted.
func (t *PriceTable) SymbolsOn(date time.Time) []string {
	i, ok := t.index[dayKey(date)]
	if !ok {
		return nil
	}

	out := make([]string, 0, len(t.symbols))

	for _, s := range t.symbols {
		if !math.IsNaN(t.closes[s][i]) {
			out = append(out, s)
		}
	}

	return out
}

// History returns up to n closing prices for symbol ending at date, oldest
// first. Days without a price for the symbol are skipped.
func (t *PriceTable) History(symbol string, date time.Time, n int) []float64 {
	row, ok := t.closes[symbol]
	if !ok || n <= 0 {
		return nil
	}

	end, ok := t.index[dayKey(date)]
	if !ok {
		return nil
	}

	out := make([]float64, 0, n)

	for i := end; i >= 0 && len(out) < n; i-- {
		if !math.IsNaN(row[i]) {
			out = append(out, row[i])
		}
	}

	slices.Reverse(out)

	return out
}
