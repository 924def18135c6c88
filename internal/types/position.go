package types

import "time"

// Position represents the current holding of a single instrument. It is owned
// by the portfolio of exactly one backtest run and is refreshed once per
// simulated day.
type Position struct {
	Symbol           string    `yaml:"symbol" json:"symbol"`
	EntryDate        time.Time `yaml:"entry_date" json:"entry_date"`
	EntryPrice       float64   `yaml:"entry_price" json:"entry_price"`
	Shares           int64     `yaml:"shares" json:"shares"`
	CurrentPrice     float64   `yaml:"current_price" json:"current_price"`
	UnrealizedPnL    float64   `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	UnrealizedPnLPct float64   `yaml:"unrealized_pnl_pct" json:"unrealized_pnl_pct"`
}

// UpdatePrice refreshes the mark-to-market fields from the latest close.
func (p *Position) UpdatePrice(price float64) {
	p.CurrentPrice = price
	p.UnrealizedPnL = (price - p.EntryPrice) * float64(p.Shares)

	if p.EntryPrice != 0 {
		p.UnrealizedPnLPct = price/p.EntryPrice - 1
	}
}

// MarketValue returns the current market value of the position.
func (p *Position) MarketValue() float64 {
	return p.CurrentPrice * float64(p.Shares)
}

// HoldingDays returns the number of trading days the position has been held,
// given the trading days elapsed between entry and the supplied date.
func (p *Position) HoldingDays(tradingDays []time.Time) int {
	count := 0

	for _, day := range tradingDays {
		if day.After(p.EntryDate) {
			count++
		}
	}

	return count
}
