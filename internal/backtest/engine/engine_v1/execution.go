package engine

import (
	"github.com/shopspring/decimal"
)

// costModel turns target weights and close prices into executable order
// quotes. All arithmetic runs in decimal so commission and tax amounts come
// out exact.
type costModel struct {
	commissionRate decimal.Decimal
	taxRate        decimal.Decimal
	slippageRate   decimal.Decimal
	lotSize        decimal.Decimal
	cashBuffer     decimal.Decimal
}

func newCostModel(config *BacktestEngineV1Config) *costModel {
	return &costModel{
		commissionRate: decimal.NewFromFloat(config.CommissionRate),
		taxRate:        decimal.NewFromFloat(config.TaxRate),
		slippageRate:   decimal.NewFromFloat(config.SlippageRate),
		lotSize:        decimal.NewFromInt(config.LotSize),
		cashBuffer:     decimal.NewFromFloat(config.CashBuffer),
	}
}

type buyQuote struct {
	shares     int64
	price      decimal.Decimal
	gross      decimal.Decimal
	commission decimal.Decimal
}

type sellQuote struct {
	price      decimal.Decimal
	gross      decimal.Decimal
	commission decimal.Decimal
	tax        decimal.Decimal
	net        decimal.Decimal
}

var one = decimal.NewFromInt(1)

// quoteBuy sizes a buy order for the given target weight against the
// portfolio's current cash. The notional budget keeps the cash buffer in
// reserve, shares round down to a whole lot, and the quote must be fully
// coverable by cash including commission. A false second return means the
// order should be skipped.
func (c *costModel) quoteBuy(close float64, weight float64, cash decimal.Decimal) (buyQuote, bool) {
	effective := decimal.NewFromFloat(close).Mul(one.Add(c.slippageRate))
	if !effective.IsPositive() {
		return buyQuote{}, false
	}

	notional := cash.Mul(one.Sub(c.cashBuffer)).Mul(decimal.NewFromFloat(weight))

	lots := notional.Div(effective.Mul(c.lotSize)).Floor()
	shares := lots.Mul(c.lotSize)

	if !shares.IsPositive() {
		return buyQuote{}, false
	}

	gross := shares.Mul(effective)
	commission := gross.Mul(c.commissionRate)

	if gross.Add(commission).GreaterThan(cash) {
		return buyQuote{}, false
	}

	return buyQuote{
		shares:     shares.IntPart(),
		price:      effective,
		gross:      gross,
		commission: commission,
	}, true
}

// quoteSell prices a full liquidation of the given share count. Tax applies
// to the sell side only.
func (c *costModel) quoteSell(close float64, shares int64) sellQuote {
	effective := decimal.NewFromFloat(close).Mul(one.Sub(c.slippageRate))

	gross := decimal.NewFromInt(shares).Mul(effective)
	commission := gross.Mul(c.commissionRate)
	tax := gross.Mul(c.taxRate)

	return sellQuote{
		price:      effective,
		gross:      gross,
		commission: commission,
		tax:        tax,
		net:        gross.Sub(commission).Sub(tax),
	}
}
