package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/quantra-lab/quantra/internal/types"
)

type RoundTripTestSuite struct {
	suite.Suite
}

func TestRoundTripSuite(t *testing.T) {
	suite.Run(t, new(RoundTripTestSuite))
}

func buy(symbol string, shares int64, price float64, commission float64) types.Trade {
	return types.Trade{
		Symbol:      symbol,
		Side:        types.TradeSideBuy,
		Date:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Price:       price,
		Shares:      shares,
		GrossAmount: price * float64(shares),
		Commission:  commission,
		TotalCost:   commission,
	}
}

func sell(symbol string, shares int64, price float64, fees float64) types.Trade {
	return types.Trade{
		Symbol:      symbol,
		Side:        types.TradeSideSell,
		Date:        time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		Price:       price,
		Shares:      shares,
		GrossAmount: price * float64(shares),
		Commission:  fees,
		TotalCost:   fees,
	}
}

func (suite *RoundTripTestSuite) TestNoTrades() {
	wins, losses := matchRoundTrips(nil)
	suite.Zero(wins)
	suite.Zero(losses)
}

func (suite *RoundTripTestSuite) TestOpenPositionIgnored() {
	wins, losses := matchRoundTrips([]types.Trade{buy("AAA", 100, 10, 0)})
	suite.Zero(wins)
	suite.Zero(losses)
}

func (suite *RoundTripTestSuite) TestSimpleWinAndLoss() {
	trades := []types.Trade{
		buy("AAA", 100, 10, 0),
		sell("AAA", 100, 12, 0),
		buy("BBB", 100, 10, 0),
		sell("BBB", 100, 8, 0),
	}

	wins, losses := matchRoundTrips(trades)

	suite.Equal(1, wins)
	suite.Equal(1, losses)
}

func (suite *RoundTripTestSuite) TestFeesFlipMarginalTrade() {
	// Breaks even on price but loses once the sell fee is netted out.
	trades := []types.Trade{
		buy("AAA", 100, 10, 0),
		sell("AAA", 100, 10, 5),
	}

	wins, losses := matchRoundTrips(trades)

	suite.Zero(wins)
	suite.Equal(1, losses)
}

func (suite *RoundTripTestSuite) TestFIFOPairing() {
	// First sell consumes the cheap lot entirely plus half of the expensive
	// one; the second sell finishes the expensive lot at a profit.
	trades := []types.Trade{
		buy("AAA", 100, 10, 0),
		buy("AAA", 100, 20, 0),
		sell("AAA", 150, 15, 0),
		sell("AAA", 50, 25, 0),
	}

	wins, losses := matchRoundTrips(trades)

	suite.Equal(2, wins)
	suite.Equal(1, losses)
}

func (suite *RoundTripTestSuite) TestSymbolsMatchIndependently() {
	trades := []types.Trade{
		buy("AAA", 100, 10, 0),
		buy("BBB", 100, 50, 0),
		sell("BBB", 100, 40, 0),
		sell("AAA", 100, 11, 0),
	}

	wins, losses := matchRoundTrips(trades)

	suite.Equal(1, wins)
	suite.Equal(1, losses)
}

func (suite *RoundTripTestSuite) TestWinRateInMetrics() {
	trades := []types.Trade{
		buy("AAA", 100, 10, 0),
		sell("AAA", 100, 12, 0),
		buy("AAA", 100, 12, 0),
		sell("AAA", 100, 11, 0),
	}

	metrics := Analyze(nil, trades)

	suite.Equal(2, metrics.TotalTrades)
	suite.Equal(1, metrics.WinningTrades)
	suite.Equal(1, metrics.LosingTrades)
	suite.InDelta(0.5, metrics.WinRate, 1e-12)
}
