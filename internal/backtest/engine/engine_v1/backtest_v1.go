// Package engine implements the v1 backtest engine: a single-threaded daily
// simulation loop over in-memory price tables.
package engine

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	baseengine "github.com/quantra-lab/quantra/internal/backtest/engine"
	"github.com/quantra-lab/quantra/internal/backtest/engine/engine_v1/stats"
	"github.com/quantra-lab/quantra/internal/logger"
	"github.com/quantra-lab/quantra/internal/marketdata"
	"github.com/quantra-lab/quantra/internal/strategy"
	"github.com/quantra-lab/quantra/internal/types"
	"github.com/quantra-lab/quantra/pkg/errors"
)

// BacktestEngineV1 implements baseengine.Engine. The zero value is not
// usable; construct with NewBacktestEngineV1 and call Initialize,
// LoadStrategy and SetData before Run.
type BacktestEngineV1 struct {
	config   BacktestEngineV1Config
	strategy *strategy.Strategy
	prices   *marketdata.PriceTable
	bars     *marketdata.BarTable
	log      *logger.Logger

	initialized bool
}

var _ baseengine.Engine = (*BacktestEngineV1)(nil)

func NewBacktestEngineV1(log *logger.Logger) *BacktestEngineV1 {
	return &BacktestEngineV1{
		log: log,
	}
}

// Initialize parses the YAML engine config and validates it.
func (b *BacktestEngineV1) Initialize(config string) error {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse backtest config", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	b.config = cfg
	b.initialized = true
	b.log.Debug("backtest engine initialized",
		zap.Float64("initial_capital", cfg.InitialCapital),
		zap.Int64("lot_size", cfg.LotSize),
	)

	return nil
}

// LoadStrategy binds the composed strategy. The composition is validated as
// a unit and every problem is reported in one pass.
func (b *BacktestEngineV1) LoadStrategy(s *strategy.Strategy) error {
	if s == nil {
		return errors.New(errors.ErrCodeBacktestConfigError, "strategy is nil")
	}

	if result := s.Validate(); !result.Valid {
		return errors.Newf(errors.ErrCodeBacktestNotRunnable,
			"strategy %q failed validation: %v", s.Name, result.Errors)
	}

	b.strategy = s

	return nil
}

// SetData installs the run's price inputs. Both tables must come from the
// same load so their date axes agree.
func (b *BacktestEngineV1) SetData(prices *marketdata.PriceTable, bars *marketdata.BarTable) error {
	if prices == nil || bars == nil {
		return errors.New(errors.ErrCodeBacktestNoData, "price data is nil")
	}

	if prices.Len() == 0 {
		return errors.New(errors.ErrCodeBacktestNoData, "price table has no trading days")
	}

	b.prices = prices
	b.bars = bars

	return nil
}

// Run executes the daily loop. Each trading day proceeds in a fixed order:
// mark to market, exit evaluation, candidate refresh on cadence boundaries,
// entry evaluation over the persisted candidates, then valuation.
// Cancellation is checked once per day and yields the partial result with a
// cancelled status and a nil error.
func (b *BacktestEngineV1) Run(ctx context.Context, onDay optional.Option[baseengine.OnDayCallback]) (types.BacktestResult, error) {
	if err := b.checkRunnable(); err != nil {
		return types.BacktestResult{}, err
	}

	days := b.prices.TradingDays(b.config.StartTime, b.config.EndTime)
	if len(days) == 0 {
		return types.BacktestResult{Status: types.RunStatusFailed},
			errors.New(errors.ErrCodeBacktestNoTradingDays,
				"no trading days within the configured period")
	}

	run := &runState{
		portfolio: newPortfolio(b.config.InitialCapital),
		costs:     newCostModel(&b.config),
		days:      days,
	}

	b.log.Info("backtest run started",
		zap.String("strategy", b.strategy.Name),
		zap.Int("trading_days", len(days)),
	)

	status := types.RunStatusCompleted

	for i, date := range days {
		select {
		case <-ctx.Done():
			status = types.RunStatusCancelled
		default:
		}

		if status == types.RunStatusCancelled {
			b.log.Warn("backtest run cancelled",
				zap.Int("completed_days", i),
				zap.Int("total_days", len(days)),
			)

			break
		}

		b.simulateDay(run, i, date)

		if onDay.IsSome() {
			onDay.Unwrap()(i+1, len(days))
		}
	}

	result := b.buildResult(run, status)
	b.log.Info("backtest run finished",
		zap.String("run_id", result.RunID),
		zap.String("status", string(result.Status)),
		zap.Int("trades", len(result.Trades)),
	)

	return result, nil
}

// runState bundles the mutable pieces of one run so simulateDay takes a
// single argument. The candidate set persists between cadence boundaries so
// entry evaluation can run every day.
type runState struct {
	portfolio     *portfolio
	costs         *costModel
	days          []time.Time
	candidates    []string
	dataGaps      int
	skippedOrders int
}

func (b *BacktestEngineV1) simulateDay(run *runState, index int, date time.Time) {
	run.dataGaps += run.portfolio.markToMarket(date, b.bars)

	b.evaluateExits(run, date)

	first := index == 0
	var previous time.Time
	if !first {
		previous = run.days[index-1]
	}

	if isRebalanceDay(b.strategy.Cadence, date, previous, first) {
		b.refreshCandidates(run, date)
	}

	b.evaluateEntries(run, date)

	run.portfolio.recordValuation(date)
}

// evaluateExits asks the exit stage which open positions to close and sells
// them in full. Exit failures are logged and skipped so one bad stage does
// not abort the run.
func (b *BacktestEngineV1) evaluateExits(run *runState, date time.Time) {
	if len(run.portfolio.positions) == 0 {
		return
	}

	symbols, err := b.strategy.Exit.GenerateSignals(run.portfolio.openPositions(), b.bars, date)
	if err != nil {
		b.log.Error("exit stage failed, holding positions",
			zap.String("date", date.Format(time.DateOnly)),
			zap.Error(err),
		)

		return
	}

	slices.Sort(symbols)

	for _, symbol := range symbols {
		position, ok := run.portfolio.position(symbol)
		if !ok {
			continue
		}

		bar, ok := b.bars.Bar(symbol, date)
		if !ok {
			run.skippedOrders++
			b.log.Warn("no bar for exit order, holding position",
				zap.String("symbol", symbol),
				zap.String("date", date.Format(time.DateOnly)),
			)

			continue
		}

		quote := run.costs.quoteSell(bar.Close, position.Shares)
		run.portfolio.applySell(symbol, date, quote, uuid.NewString())
	}
}

// refreshCandidates replaces the candidate set on cadence boundaries. A
// selection failure keeps the previous set so one bad day does not empty
// the book for the rest of the period.
func (b *BacktestEngineV1) refreshCandidates(run *runState, date time.Time) {
	candidates, err := b.strategy.Selection.Select(date, b.prices)
	if err != nil {
		b.log.Error("selection stage failed, keeping previous candidates",
			zap.String("date", date.Format(time.DateOnly)),
			zap.Error(err),
		)

		return
	}

	run.candidates = candidates
}

// evaluateEntries runs the entry stage over the current candidate set and
// opens positions for symbols not already held. Target weights above 1 are
// clamped.
func (b *BacktestEngineV1) evaluateEntries(run *runState, date time.Time) {
	if len(run.candidates) == 0 {
		return
	}

	weights, err := b.strategy.Entry.GenerateSignals(run.candidates, b.bars, date)
	if err != nil {
		b.log.Error("entry stage failed, skipping entries",
			zap.String("date", date.Format(time.DateOnly)),
			zap.Error(err),
		)

		return
	}

	symbols := make([]string, 0, len(weights))
	for symbol := range weights {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)

	for _, symbol := range symbols {
		weight := weights[symbol]
		if weight <= 0 {
			continue
		}

		if weight > 1 {
			weight = 1
		}

		if _, held := run.portfolio.position(symbol); held {
			continue
		}

		bar, ok := b.bars.Bar(symbol, date)
		if !ok {
			run.skippedOrders++

			continue
		}

		quote, ok := run.costs.quoteBuy(bar.Close, weight, run.portfolio.cash)
		if !ok {
			run.skippedOrders++
			b.log.Debug("buy order skipped",
				zap.String("symbol", symbol),
				zap.String("date", date.Format(time.DateOnly)),
			)

			continue
		}

		run.portfolio.applyBuy(symbol, date, quote, uuid.NewString())
	}
}

func (b *BacktestEngineV1) buildResult(run *runState, status types.RunStatus) types.BacktestResult {
	return types.BacktestResult{
		RunID:          uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		StrategyName:   b.strategy.Name,
		Status:         status,
		ValueHistory:   run.portfolio.history,
		Trades:         run.portfolio.trades,
		FinalPositions: run.portfolio.finalPositions(),
		Metrics:        stats.Analyze(run.portfolio.history, run.portfolio.trades),
		DataGaps:       run.dataGaps,
		SkippedOrders:  run.skippedOrders,
	}
}

func (b *BacktestEngineV1) checkRunnable() error {
	if !b.initialized {
		return errors.New(errors.ErrCodeBacktestNotRunnable, "engine is not initialized")
	}

	if b.strategy == nil {
		return errors.New(errors.ErrCodeBacktestNotRunnable, "no strategy loaded")
	}

	if b.prices == nil || b.bars == nil {
		return errors.New(errors.ErrCodeBacktestNotRunnable, "no market data set")
	}

	return nil
}
