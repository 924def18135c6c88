package stats

import "github.com/quantra-lab/quantra/internal/types"

// lot is an open buy remainder awaiting FIFO matching.
type lot struct {
	shares       int64
	costPerShare float64
}

// matchRoundTrips pairs sells against buys per symbol in FIFO order and
// classifies each matched slice as a win or a loss. The buy side carries its
// commission in the cost basis; the sell side nets commission and tax out of
// the proceeds. Unmatched buys (still-open positions) are ignored.
func matchRoundTrips(trades []types.Trade) (wins int, losses int) {
	open := make(map[string][]lot)

	for _, trade := range trades {
		switch trade.Side {
		case types.TradeSideBuy:
			if trade.Shares == 0 {
				continue
			}

			open[trade.Symbol] = append(open[trade.Symbol], lot{
				shares:       trade.Shares,
				costPerShare: (trade.GrossAmount + trade.Commission) / float64(trade.Shares),
			})
		case types.TradeSideSell:
			if trade.Shares == 0 {
				continue
			}

			proceedsPerShare := (trade.GrossAmount - trade.TotalCost) / float64(trade.Shares)
			remaining := trade.Shares

			queue := open[trade.Symbol]
			for remaining > 0 && len(queue) > 0 {
				head := &queue[0]

				matched := remaining
				if head.shares < matched {
					matched = head.shares
				}

				if proceedsPerShare > head.costPerShare {
					wins++
				} else {
					losses++
				}

				head.shares -= matched
				remaining -= matched

				if head.shares == 0 {
					queue = queue[1:]
				}
			}

			open[trade.Symbol] = queue
		}
	}

	return wins, losses
}
