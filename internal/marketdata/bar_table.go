package marketdata

import (
	"slices"
	"time"

	"github.com/quantra-lab/quantra/internal/types"
)

// BarTable holds per-instrument daily bar series for Entry/Exit evaluation.
type BarTable struct {
	bars    map[string]map[int64]types.MarketData
	dates   map[string][]time.Time
	symbols []string
}

// NewBarTable builds a BarTable from a flat list of daily bars. When the same
// instrument/day pair appears twice the later bar wins.
func NewBarTable(bars []types.MarketData) *BarTable {
	byDay := make(map[string]map[int64]types.MarketData)

	for _, bar := range bars {
		if byDay[bar.Symbol] == nil {
			byDay[bar.Symbol] = make(map[int64]types.MarketData)
		}

		byDay[bar.Symbol][dayKey(bar.Time)] = bar
	}

	dates := make(map[string][]time.Time, len(byDay))
	symbols := make([]string, 0, len(byDay))

	for symbol, series := range byDay {
		symbols = append(symbols, symbol)

		days := make([]time.Time, 0, len(series))
		for key := range series {
			days = append(days, time.Unix(key, 0).UTC())
		}

		slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
		dates[symbol] = days
	}

	slices.Sort(symbols)

	return &BarTable{
		bars:    byDay,
		dates:   dates,
		symbols: symbols,
	}
}

// Symbols returns all instrument identifiers, sorted.
func (t *BarTable) Symbols() []string {
	return t.symbols
}

// Bar returns the bar for symbol on date. The second return is false when the
// instrument has no bar that day.
func (t *BarTable) Bar(symbol string, date time.Time) (types.MarketData, bool) {
	series, ok := t.bars[symbol]
	if !ok {
		return types.MarketData{}, false
	}

	bar, ok := series[dayKey(date)]

	return bar, ok
}

// Dates returns the trading days with a bar for symbol, ascending.
func (t *BarTable) Dates(symbol string) []time.Time {
	return t.dates[symbol]
}

// DatesThrough returns the trading days with a bar for symbol up to and
// including date.
func (t *BarTable) DatesThrough(symbol string, date time.Time) []time.Time {
	days := t.dates[symbol]
	limit := dayKey(date)

	end := len(days)
	for end > 0 && dayKey(days[end-1]) > limit {
		end--
	}

	return days[:end]
}
