package types

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quantra-lab/quantra/pkg/errors"
)

type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Trade is an immutable execution record. Trades are appended to the run's
// ledger in execution order and never mutated afterwards.
type Trade struct {
	ID     string    `yaml:"id" json:"id" validate:"required"`
	Symbol string    `yaml:"symbol" json:"symbol" validate:"required"`
	Side   TradeSide `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Date   time.Time `yaml:"date" json:"date" validate:"required"`
	// Price is the effective execution price after slippage.
	Price  float64 `yaml:"price" json:"price" validate:"required,gt=0"`
	Shares int64   `yaml:"shares" json:"shares" validate:"required,gt=0"`
	// GrossAmount is Price * Shares.
	GrossAmount float64 `yaml:"gross_amount" json:"gross_amount" validate:"gt=0"`
	Commission  float64 `yaml:"commission" json:"commission" validate:"gte=0"`
	// Tax is the sell-side transaction levy. Always zero for buys.
	Tax float64 `yaml:"tax" json:"tax" validate:"gte=0"`
	// TotalCost is Commission + Tax.
	TotalCost float64 `yaml:"total_cost" json:"total_cost" validate:"gte=0"`
}

// NetAmount returns the signed cash flow of the trade: negative for buys
// (gross plus commission leaves the account), positive for sells (gross minus
// commission and tax is credited).
func (t *Trade) NetAmount() float64 {
	if t.Side == TradeSideBuy {
		return -(t.GrossAmount + t.Commission)
	}

	return t.GrossAmount - t.Commission - t.Tax
}

// Validate validates the Trade struct.
func (t *Trade) Validate() error {
	validate := validator.New()
	if err := validate.Struct(t); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid trade", err)
	}

	return nil
}
