package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TradeTestSuite struct {
	suite.Suite
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func validTrade(side TradeSide) Trade {
	return Trade{
		ID:          "a2cf4b9e-9c3c-4cf5-b97d-0e4d6c9c1a11",
		Symbol:      "AAPL",
		Side:        side,
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Price:       100.0,
		Shares:      100,
		GrossAmount: 10000.0,
		Commission:  3.0,
		Tax:         10.0,
		TotalCost:   13.0,
	}
}

func (suite *TradeTestSuite) TestNetAmountBuy() {
	trade := validTrade(TradeSideBuy)
	trade.Tax = 0
	trade.TotalCost = 3.0

	// Buys debit gross plus commission.
	suite.InDelta(-10003.0, trade.NetAmount(), 1e-9)
}

func (suite *TradeTestSuite) TestNetAmountSell() {
	trade := validTrade(TradeSideSell)

	// Sells credit gross minus commission and tax.
	suite.InDelta(9987.0, trade.NetAmount(), 1e-9)
}

func (suite *TradeTestSuite) TestValidate() {
	tests := []struct {
		name    string
		mutate  func(*Trade)
		wantErr bool
	}{
		{"valid buy", func(t *Trade) {}, false},
		{"valid sell", func(t *Trade) { t.Side = TradeSideSell }, false},
		{"missing symbol", func(t *Trade) { t.Symbol = "" }, true},
		{"bad side", func(t *Trade) { t.Side = "HOLD" }, true},
		{"zero shares", func(t *Trade) { t.Shares = 0 }, true},
		{"negative price", func(t *Trade) { t.Price = -1 }, true},
		{"negative commission", func(t *Trade) { t.Commission = -0.5 }, true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			trade := validTrade(TradeSideBuy)
			tc.mutate(&trade)
			err := trade.Validate()
			if tc.wantErr {
				suite.Error(err)
			} else {
				suite.NoError(err)
			}
		})
	}
}
