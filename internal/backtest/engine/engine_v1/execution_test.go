package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ExecutionTestSuite struct {
	suite.Suite
}

func TestExecutionSuite(t *testing.T) {
	suite.Run(t, new(ExecutionTestSuite))
}

func (suite *ExecutionTestSuite) model(mutate func(*BacktestEngineV1Config)) *costModel {
	cfg := DefaultConfig()
	cfg.InitialCapital = 100000
	if mutate != nil {
		mutate(&cfg)
	}

	return newCostModel(&cfg)
}

func (suite *ExecutionTestSuite) TestQuoteSellExactAmounts() {
	model := suite.model(func(cfg *BacktestEngineV1Config) {
		cfg.CommissionRate = 0.0003
		cfg.TaxRate = 0.001
	})

	quote := model.quoteSell(100, 1000)

	suite.True(quote.gross.Equal(decimal.NewFromInt(100000)), "gross %s", quote.gross)
	suite.True(quote.commission.Equal(decimal.RequireFromString("30")), "commission %s", quote.commission)
	suite.True(quote.tax.Equal(decimal.RequireFromString("100")), "tax %s", quote.tax)
	suite.True(quote.net.Equal(decimal.RequireFromString("99870")), "net %s", quote.net)
}

func (suite *ExecutionTestSuite) TestQuoteSellSlippageAgainstSeller() {
	model := suite.model(func(cfg *BacktestEngineV1Config) {
		cfg.SlippageRate = 0.01
	})

	quote := model.quoteSell(100, 100)

	suite.True(quote.price.Equal(decimal.RequireFromString("99")))
	suite.True(quote.gross.Equal(decimal.RequireFromString("9900")))
}

func (suite *ExecutionTestSuite) TestQuoteBuyRoundsDownToLot() {
	model := suite.model(nil)

	quote, ok := model.quoteBuy(33, 1, decimal.NewFromInt(100000))
	suite.Require().True(ok)

	// Budget is 98000 after the 2% buffer; 98000/33 covers 29.69 lots.
	suite.Equal(int64(2900), quote.shares)
	suite.True(quote.gross.Equal(decimal.RequireFromString("95700")))
}

func (suite *ExecutionTestSuite) TestQuoteBuySlippageAgainstBuyer() {
	model := suite.model(func(cfg *BacktestEngineV1Config) {
		cfg.SlippageRate = 0.01
		cfg.CashBuffer = 0
	})

	quote, ok := model.quoteBuy(100, 1, decimal.NewFromInt(10100))
	suite.Require().True(ok)

	suite.True(quote.price.Equal(decimal.RequireFromString("101")))
	suite.Equal(int64(100), quote.shares)
}

func (suite *ExecutionTestSuite) TestQuoteBuySubLotSkipped() {
	model := suite.model(nil)

	_, ok := model.quoteBuy(10000, 1, decimal.NewFromInt(1000))
	suite.False(ok)
}

func (suite *ExecutionTestSuite) TestQuoteBuyInsufficientForCommission() {
	model := suite.model(func(cfg *BacktestEngineV1Config) {
		cfg.CommissionRate = 0.01
		cfg.CashBuffer = 0
	})

	// One lot costs exactly all cash, so the commission cannot be covered.
	_, ok := model.quoteBuy(100, 1, decimal.NewFromInt(10000))
	suite.False(ok)
}

func (suite *ExecutionTestSuite) TestQuoteBuyZeroWeight() {
	model := suite.model(nil)

	_, ok := model.quoteBuy(100, 0, decimal.NewFromInt(100000))
	suite.False(ok)
}

func (suite *ExecutionTestSuite) TestQuoteBuyNonPositivePrice() {
	model := suite.model(nil)

	_, ok := model.quoteBuy(0, 1, decimal.NewFromInt(100000))
	suite.False(ok)
}
