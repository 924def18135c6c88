package engine

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantra-lab/quantra/internal/marketdata"
	"github.com/quantra-lab/quantra/internal/types"
)

// portfolio is the mutable state of one backtest run. It has a single owner,
// the engine instance running the simulation, and is never shared across
// runs. Cash is kept in decimal so fee arithmetic stays exact.
type portfolio struct {
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	positions      map[string]*types.Position
	trades         []types.Trade
	history        []types.ValuationPoint
}

func newPortfolio(initialCapital float64) *portfolio {
	capital := decimal.NewFromFloat(initialCapital)

	return &portfolio{
		initialCapital: capital,
		cash:           capital,
		positions:      make(map[string]*types.Position),
		trades:         nil,
		history:        nil,
	}
}

// markToMarket refreshes every open position from the day's bar. Positions
// without a bar keep their stale price; the number of such gaps is returned.
func (p *portfolio) markToMarket(date time.Time, bars *marketdata.BarTable) int {
	gaps := 0

	for symbol, position := range p.positions {
		bar, ok := bars.Bar(symbol, date)
		if !ok {
			gaps++

			continue
		}

		position.UpdatePrice(bar.Close)
	}

	return gaps
}

// openPositions returns a copy of the open positions keyed by symbol, safe to
// hand to stage implementations.
func (p *portfolio) openPositions() map[string]types.Position {
	out := make(map[string]types.Position, len(p.positions))
	for symbol, position := range p.positions {
		out[symbol] = *position
	}

	return out
}

func (p *portfolio) position(symbol string) (*types.Position, bool) {
	position, ok := p.positions[symbol]

	return position, ok
}

func (p *portfolio) positionValue() float64 {
	total := 0.0
	for _, position := range p.positions {
		total += position.MarketValue()
	}

	return total
}

func (p *portfolio) cashValue() float64 {
	v, _ := p.cash.Float64()

	return v
}

// applyBuy opens a position and debits cash for the quoted amount.
func (p *portfolio) applyBuy(symbol string, date time.Time, q buyQuote, tradeID string) {
	p.cash = p.cash.Sub(q.gross).Sub(q.commission)

	price, _ := q.price.Float64()
	gross, _ := q.gross.Float64()
	commission, _ := q.commission.Float64()

	position := &types.Position{
		Symbol:     symbol,
		EntryDate:  date,
		EntryPrice: price,
		Shares:     q.shares,
	}
	position.UpdatePrice(price)
	p.positions[symbol] = position

	p.trades = append(p.trades, types.Trade{
		ID:          tradeID,
		Symbol:      symbol,
		Side:        types.TradeSideBuy,
		Date:        date,
		Price:       price,
		Shares:      q.shares,
		GrossAmount: gross,
		Commission:  commission,
		Tax:         0,
		TotalCost:   commission,
	})
}

// applySell closes the position and credits the net proceeds.
func (p *portfolio) applySell(symbol string, date time.Time, q sellQuote, tradeID string) {
	p.cash = p.cash.Add(q.net)

	position := p.positions[symbol]
	delete(p.positions, symbol)

	price, _ := q.price.Float64()
	gross, _ := q.gross.Float64()
	commission, _ := q.commission.Float64()
	tax, _ := q.tax.Float64()
	totalCost, _ := q.commission.Add(q.tax).Float64()

	p.trades = append(p.trades, types.Trade{
		ID:          tradeID,
		Symbol:      symbol,
		Side:        types.TradeSideSell,
		Date:        date,
		Price:       price,
		Shares:      position.Shares,
		GrossAmount: gross,
		Commission:  commission,
		Tax:         tax,
		TotalCost:   totalCost,
	})
}

// recordValuation appends the day's valuation point. Called exactly once per
// simulated trading day.
func (p *portfolio) recordValuation(date time.Time) {
	positionValue := p.positionValue()
	cash := p.cashValue()

	p.history = append(p.history, types.ValuationPoint{
		Date:          date,
		TotalValue:    cash + positionValue,
		Cash:          cash,
		PositionValue: positionValue,
		PositionCount: len(p.positions),
	})
}

// finalPositions returns the remaining open positions sorted by symbol.
func (p *portfolio) finalPositions() []types.Position {
	out := make([]types.Position, 0, len(p.positions))
	for _, position := range p.positions {
		out = append(out, *position)
	}

	slices.SortFunc(out, func(a, b types.Position) int {
		return strings.Compare(a.Symbol, b.Symbol)
	})

	return out
}
