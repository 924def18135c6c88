// Package engine defines the backtest engine interface. Implementations live
// in versioned subpackages.
package engine

import (
	"context"

	"github.com/moznion/go-optional"

	"github.com/quantra-lab/quantra/internal/marketdata"
	"github.com/quantra-lab/quantra/internal/strategy"
	"github.com/quantra-lab/quantra/internal/types"
)

// OnDayCallback reports simulation progress after each processed trading day.
type OnDayCallback func(current int, total int)

// Engine runs a composed strategy over an in-memory price history and returns
// the resulting portfolio history, trade ledger and performance metrics.
//
// An Engine instance owns the state of exactly one run at a time and holds no
// shared mutable state, so independent runs may execute in parallel on
// separate instances.
type Engine interface {
	// Initialize parses and validates the YAML engine configuration.
	Initialize(config string) error
	// LoadStrategy binds the composed strategy, validating it as a unit.
	LoadStrategy(s *strategy.Strategy) error
	// SetData installs the immutable price inputs for the run. All data must
	// be resident before Run starts; the loop performs no I/O.
	SetData(prices *marketdata.PriceTable, bars *marketdata.BarTable) error
	// Run executes the simulation loop. Cancellation via ctx is cooperative
	// and checked once per simulated day; a cancelled run returns the partial
	// result recorded so far with a cancelled status and a nil error.
	Run(ctx context.Context, onDay optional.Option[OnDayCallback]) (types.BacktestResult, error)
}
