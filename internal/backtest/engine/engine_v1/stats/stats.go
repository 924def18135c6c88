// Package stats computes performance metrics from a finished run's value
// history and trade ledger.
package stats

import (
	"math"

	"github.com/quantra-lab/quantra/internal/types"
)

// tradingDaysPerYear is the annualization base for daily series.
const tradingDaysPerYear = 252.0

// Analyze derives the run's performance metrics. A history shorter than two
// points yields zero metrics; trade statistics still compute from whatever
// round trips the ledger contains.
func Analyze(history []types.ValuationPoint, trades []types.Trade) types.PerformanceMetrics {
	metrics := types.PerformanceMetrics{}

	wins, losses := matchRoundTrips(trades)
	metrics.TotalTrades = wins + losses
	metrics.WinningTrades = wins
	metrics.LosingTrades = losses

	if wins+losses > 0 {
		metrics.WinRate = float64(wins) / float64(wins+losses)
	}

	if len(history) < 2 {
		return metrics
	}

	returns := dailyReturns(history)

	first := history[0].TotalValue
	last := history[len(history)-1].TotalValue
	if first > 0 {
		metrics.TotalReturn = last/first - 1
	}

	metrics.AnnualizedReturn = annualize(metrics.TotalReturn, len(returns))
	metrics.Volatility = annualizedVolatility(returns)

	if metrics.Volatility > 0 {
		metrics.SharpeRatio = metrics.AnnualizedReturn / metrics.Volatility
	}

	metrics.MaxDrawdown = maxDrawdown(history)

	return metrics
}

// dailyReturns computes simple day-over-day returns of the total value. Days
// where the previous value is zero contribute a zero return.
func dailyReturns(history []types.ValuationPoint) []float64 {
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev := history[i-1].TotalValue
		if prev == 0 {
			returns = append(returns, 0)

			continue
		}

		returns = append(returns, history[i].TotalValue/prev-1)
	}

	return returns
}

func annualize(totalReturn float64, periods int) float64 {
	if periods == 0 || totalReturn <= -1 {
		return 0
	}

	return math.Pow(1+totalReturn, tradingDaysPerYear/float64(periods)) - 1
}

// annualizedVolatility is the sample standard deviation of daily returns
// scaled by sqrt(252).
func annualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown is the deepest peak-to-trough decline of the value history,
// the minimum of (value - running max) / running max. It is 0 for a
// monotonically rising series and negative otherwise.
func maxDrawdown(history []types.ValuationPoint) float64 {
	peak := history[0].TotalValue
	worst := 0.0

	for _, point := range history[1:] {
		if point.TotalValue > peak {
			peak = point.TotalValue

			continue
		}

		if peak > 0 {
			drawdown := (point.TotalValue - peak) / peak
			if drawdown < worst {
				worst = drawdown
			}
		}
	}

	return worst
}
