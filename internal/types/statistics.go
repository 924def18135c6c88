package types

// PerformanceMetrics summarizes the risk/return profile of a completed run.
// Returns and drawdown are expressed as fractions, not percentages.
type PerformanceMetrics struct {
	// TotalReturn is last total value / first total value - 1.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	// AnnualizedReturn uses the 252-trading-day convention.
	AnnualizedReturn float64 `yaml:"annualized_return" json:"annualized_return"`
	// Volatility is the stdev of daily returns scaled by sqrt(252).
	Volatility float64 `yaml:"volatility" json:"volatility"`
	// SharpeRatio is annualized return over volatility, 0 when volatility is 0.
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// MaxDrawdown is the most negative peak-to-trough decline. Always <= 0.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// WinRate is winning matched trade pairs / total matched pairs.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// TotalTrades counts matched buy/sell pairs, not ledger entries.
	TotalTrades   int `yaml:"total_trades" json:"total_trades"`
	WinningTrades int `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int `yaml:"losing_trades" json:"losing_trades"`
}
