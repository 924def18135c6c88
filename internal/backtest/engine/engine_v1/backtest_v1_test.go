package engine

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	baseengine "github.com/quantra-lab/quantra/internal/backtest/engine"
	"github.com/quantra-lab/quantra/internal/logger"
	"github.com/quantra-lab/quantra/internal/marketdata"
	"github.com/quantra-lab/quantra/internal/strategy"
	"github.com/quantra-lab/quantra/internal/types"
	"github.com/quantra-lab/quantra/pkg/errors"
)

// scriptedSelection returns a fixed candidate list, optionally only on a
// single date, and records every date it was asked about.
type scriptedSelection struct {
	symbols []string
	onlyOn  time.Time
	calls   []time.Time
}

func (s *scriptedSelection) Metadata() strategy.StageMetadata {
	return strategy.StageMetadata{ID: "scripted_selection", APIVersion: strategy.StageAPIVersion}
}

func (s *scriptedSelection) Select(date time.Time, prices *marketdata.PriceTable) ([]string, error) {
	s.calls = append(s.calls, date)

	if !s.onlyOn.IsZero() && !s.onlyOn.Equal(date) {
		return nil, nil
	}

	return s.symbols, nil
}

// scriptedEntry assigns a fixed weight to every candidate, optionally only
// on a single date.
type scriptedEntry struct {
	weight float64
	onlyOn time.Time
}

func (e *scriptedEntry) Metadata() strategy.StageMetadata {
	return strategy.StageMetadata{ID: "scripted_entry", APIVersion: strategy.StageAPIVersion}
}

func (e *scriptedEntry) GenerateSignals(candidates []string, bars *marketdata.BarTable, date time.Time) (map[string]float64, error) {
	if !e.onlyOn.IsZero() && !e.onlyOn.Equal(date) {
		return nil, nil
	}

	weights := make(map[string]float64, len(candidates))
	for _, symbol := range candidates {
		weights[symbol] = e.weight
	}

	return weights, nil
}

// scriptedExit signals the configured symbols on one date, or fails if err
// is set.
type scriptedExit struct {
	on      time.Time
	symbols []string
	err     error
}

func (e *scriptedExit) Metadata() strategy.StageMetadata {
	return strategy.StageMetadata{ID: "scripted_exit", APIVersion: strategy.StageAPIVersion}
}

func (e *scriptedExit) GenerateSignals(positions map[string]types.Position, bars *marketdata.BarTable, date time.Time) ([]string, error) {
	if e.err != nil {
		return nil, e.err
	}

	if e.on.Equal(date) {
		return e.symbols, nil
	}

	return nil, nil
}

func constantBars(symbol string, price float64, start time.Time, days int) []types.MarketData {
	bars := make([]types.MarketData, 0, days)
	for i := 0; i < days; i++ {
		bars = append(bars, types.MarketData{
			Time:   start.AddDate(0, 0, i),
			Symbol: symbol,
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		})
	}

	return bars
}

type BacktestEngineV1TestSuite struct {
	suite.Suite

	start time.Time
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

func (suite *BacktestEngineV1TestSuite) SetupTest() {
	// 2024-01-01 is a Monday, so ISO weeks roll over on the 8th, 15th, ...
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *BacktestEngineV1TestSuite) newEngine(config string, s *strategy.Strategy, bars []types.MarketData) *BacktestEngineV1 {
	e := NewBacktestEngineV1(logger.NewNopLogger())

	suite.Require().NoError(e.Initialize(config))
	suite.Require().NoError(e.LoadStrategy(s))
	suite.Require().NoError(e.SetData(marketdata.NewPriceTable(bars), marketdata.NewBarTable(bars)))

	return e
}

const zeroCostConfig = `
initial_capital: 100000
commission_rate: 0
tax_rate: 0
slippage_rate: 0
lot_size: 100
cash_buffer: 0.02
`

func (suite *BacktestEngineV1TestSuite) TestBuyAndHold() {
	bars := constantBars("AAA", 100, suite.start, 10)
	s := &strategy.Strategy{
		Name:      "buy-and-hold",
		Selection: &scriptedSelection{symbols: []string{"AAA"}},
		Entry:     &scriptedEntry{weight: 1},
		Exit:      &scriptedExit{},
		Cadence:   strategy.CadenceDaily,
	}

	e := suite.newEngine(zeroCostConfig, s, bars)

	result, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().NoError(err)

	suite.Equal(types.RunStatusCompleted, result.Status)
	suite.Len(result.ValueHistory, 10)
	suite.Require().Len(result.Trades, 1)

	// 98000 of budget at 100/share buys 9 whole lots.
	trade := result.Trades[0]
	suite.Equal(types.TradeSideBuy, trade.Side)
	suite.Equal(int64(900), trade.Shares)
	suite.Zero(trade.Shares % 100)

	for _, point := range result.ValueHistory {
		suite.InDelta(100000.0, point.TotalValue, 1e-9)
		suite.GreaterOrEqual(point.Cash, 0.0)
		suite.Equal(1, point.PositionCount)
	}

	suite.Require().Len(result.FinalPositions, 1)
	suite.Equal("AAA", result.FinalPositions[0].Symbol)
	suite.Zero(result.SkippedOrders)
	suite.InDelta(0.0, result.Metrics.TotalReturn, 1e-12)
}

func (suite *BacktestEngineV1TestSuite) TestEntryThenExit() {
	bars := constantBars("AAA", 100, suite.start, 10)

	registry := strategy.DefaultRegistry()
	exit, err := registry.CreateExit("holding_period", map[string]any{"days": 5})
	suite.Require().NoError(err)

	s := &strategy.Strategy{
		Name:      "hold-five-days",
		Selection: &scriptedSelection{symbols: []string{"AAA"}, onlyOn: suite.start},
		Entry:     &scriptedEntry{weight: 1},
		Exit:      exit,
		Cadence:   strategy.CadenceDaily,
	}

	e := suite.newEngine(zeroCostConfig, s, bars)

	result, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 2)
	suite.Equal(types.TradeSideBuy, result.Trades[0].Side)
	suite.Equal(types.TradeSideSell, result.Trades[1].Side)
	suite.Equal(suite.start.AddDate(0, 0, 5), result.Trades[1].Date)

	// Zero costs and a flat price mean the round trip conserves value.
	suite.Empty(result.FinalPositions)
	last := result.ValueHistory[len(result.ValueHistory)-1]
	suite.InDelta(100000.0, last.TotalValue, 1e-9)
	suite.InDelta(last.TotalValue, last.Cash, 1e-9)
	suite.Zero(last.PositionCount)
}

func (suite *BacktestEngineV1TestSuite) TestWeeklyCadence() {
	bars := constantBars("AAA", 100, suite.start, 14)
	selection := &scriptedSelection{symbols: []string{"AAA"}}
	s := &strategy.Strategy{
		Name:      "weekly",
		Selection: selection,
		Entry:     &scriptedEntry{weight: 1},
		Exit:      &scriptedExit{},
		Cadence:   strategy.CadenceWeekly,
	}

	e := suite.newEngine(zeroCostConfig, s, bars)

	_, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().NoError(err)

	expected := []time.Time{suite.start, suite.start.AddDate(0, 0, 7)}
	suite.Equal(expected, selection.calls)
}

func (suite *BacktestEngineV1TestSuite) TestMidWeekEntryUnderWeeklyCadence() {
	bars := constantBars("AAA", 100, suite.start, 10)
	selection := &scriptedSelection{symbols: []string{"AAA"}}
	wednesday := suite.start.AddDate(0, 0, 2)
	s := &strategy.Strategy{
		Name:      "mid-week-entry",
		Selection: selection,
		Entry:     &scriptedEntry{weight: 1, onlyOn: wednesday},
		Exit:      &scriptedExit{},
		Cadence:   strategy.CadenceWeekly,
	}

	e := suite.newEngine(zeroCostConfig, s, bars)

	result, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().NoError(err)

	// Candidates were last refreshed on Monday, yet the Wednesday signal
	// still produces a buy.
	suite.Equal([]time.Time{suite.start, suite.start.AddDate(0, 0, 7)}, selection.calls)
	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.TradeSideBuy, result.Trades[0].Side)
	suite.Equal(wednesday, result.Trades[0].Date)
	suite.Equal(int64(900), result.Trades[0].Shares)
}

func (suite *BacktestEngineV1TestSuite) TestReentryAfterExitMidWeek() {
	bars := constantBars("AAA", 100, suite.start, 7)
	wednesday := suite.start.AddDate(0, 0, 2)
	s := &strategy.Strategy{
		Name:      "re-entry",
		Selection: &scriptedSelection{symbols: []string{"AAA"}},
		Entry:     &scriptedEntry{weight: 1},
		Exit:      &scriptedExit{on: wednesday, symbols: []string{"AAA"}},
		Cadence:   strategy.CadenceWeekly,
	}

	e := suite.newEngine(zeroCostConfig, s, bars)

	result, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().NoError(err)

	// Monday buy, Wednesday exit, Wednesday re-entry from the persisted
	// candidate set without waiting for the next boundary.
	suite.Require().Len(result.Trades, 3)
	suite.Equal(types.TradeSideBuy, result.Trades[0].Side)
	suite.Equal(suite.start, result.Trades[0].Date)
	suite.Equal(types.TradeSideSell, result.Trades[1].Side)
	suite.Equal(wednesday, result.Trades[1].Date)
	suite.Equal(types.TradeSideBuy, result.Trades[2].Side)
	suite.Equal(wednesday, result.Trades[2].Date)
	suite.Require().Len(result.FinalPositions, 1)
}

func (suite *BacktestEngineV1TestSuite) TestInsufficientFunds() {
	bars := constantBars("AAA", 10000, suite.start, 5)
	s := &strategy.Strategy{
		Name:      "too-expensive",
		Selection: &scriptedSelection{symbols: []string{"AAA"}, onlyOn: suite.start},
		Entry:     &scriptedEntry{weight: 1},
		Exit:      &scriptedExit{},
		Cadence:   strategy.CadenceDaily,
	}

	e := suite.newEngine("initial_capital: 1000\n", s, bars)

	result, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().NoError(err)

	suite.Empty(result.Trades)
	suite.Equal(1, result.SkippedOrders)

	for _, point := range result.ValueHistory {
		suite.InDelta(1000.0, point.TotalValue, 1e-9)
	}
}

func (suite *BacktestEngineV1TestSuite) TestMissingBarSkipsSingleOrder() {
	// BBB trades only on the first day, so a later buy finds no bar.
	bars := constantBars("AAA", 100, suite.start, 10)
	bars = append(bars, constantBars("BBB", 50, suite.start, 1)...)

	third := suite.start.AddDate(0, 0, 2)
	s := &strategy.Strategy{
		Name:      "gap",
		Selection: &scriptedSelection{symbols: []string{"AAA", "BBB"}, onlyOn: third},
		Entry:     &scriptedEntry{weight: 0.5},
		Exit:      &scriptedExit{},
		Cadence:   strategy.CadenceDaily,
	}

	e := suite.newEngine(zeroCostConfig, s, bars)

	result, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 1)
	suite.Equal("AAA", result.Trades[0].Symbol)
	suite.Equal(1, result.SkippedOrders)
	suite.Equal(types.RunStatusCompleted, result.Status)
}

func (suite *BacktestEngineV1TestSuite) TestExitFailureHoldsPositions() {
	bars := constantBars("AAA", 100, suite.start, 5)
	s := &strategy.Strategy{
		Name:      "bad-exit",
		Selection: &scriptedSelection{symbols: []string{"AAA"}, onlyOn: suite.start},
		Entry:     &scriptedEntry{weight: 1},
		Exit:      &scriptedExit{err: errors.New(errors.ErrCodeStageFailed, "boom")},
		Cadence:   strategy.CadenceDaily,
	}

	e := suite.newEngine(zeroCostConfig, s, bars)

	result, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().NoError(err)

	suite.Equal(types.RunStatusCompleted, result.Status)
	suite.Len(result.Trades, 1)
	suite.Len(result.FinalPositions, 1)
}

func (suite *BacktestEngineV1TestSuite) TestCancellationReturnsPartialResult() {
	bars := constantBars("AAA", 100, suite.start, 30)
	s := &strategy.Strategy{
		Name:      "cancelled",
		Selection: &scriptedSelection{symbols: []string{"AAA"}},
		Entry:     &scriptedEntry{weight: 1},
		Exit:      &scriptedExit{},
		Cadence:   strategy.CadenceDaily,
	}

	e := suite.newEngine(zeroCostConfig, s, bars)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onDay := baseengine.OnDayCallback(func(current, total int) {
		if current == 10 {
			cancel()
		}
	})

	result, err := e.Run(ctx, optional.Some(onDay))
	suite.Require().NoError(err)

	suite.Equal(types.RunStatusCancelled, result.Status)
	suite.Len(result.ValueHistory, 10)
	suite.Len(result.FinalPositions, 1)
}

func (suite *BacktestEngineV1TestSuite) TestProgressCallback() {
	bars := constantBars("AAA", 100, suite.start, 5)
	s := &strategy.Strategy{
		Name:      "progress",
		Selection: &scriptedSelection{symbols: []string{"AAA"}},
		Entry:     &scriptedEntry{weight: 1},
		Exit:      &scriptedExit{},
		Cadence:   strategy.CadenceDaily,
	}

	e := suite.newEngine(zeroCostConfig, s, bars)

	var seen []int
	onDay := baseengine.OnDayCallback(func(current, total int) {
		suite.Equal(5, total)
		seen = append(seen, current)
	})

	_, err := e.Run(context.Background(), optional.Some(onDay))
	suite.Require().NoError(err)
	suite.Equal([]int{1, 2, 3, 4, 5}, seen)
}

func (suite *BacktestEngineV1TestSuite) TestTimeBoundsRespected() {
	bars := constantBars("AAA", 100, suite.start, 10)
	s := &strategy.Strategy{
		Name:      "bounded",
		Selection: &scriptedSelection{symbols: []string{"AAA"}},
		Entry:     &scriptedEntry{weight: 1},
		Exit:      &scriptedExit{},
		Cadence:   strategy.CadenceDaily,
	}

	config := zeroCostConfig + "start_time: 2024-01-03T00:00:00Z\nend_time: 2024-01-07T00:00:00Z\n"
	e := suite.newEngine(config, s, bars)

	result, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().NoError(err)

	suite.Len(result.ValueHistory, 5)
	suite.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), result.ValueHistory[0].Date)
}

func (suite *BacktestEngineV1TestSuite) TestRunRequiresSetup() {
	e := NewBacktestEngineV1(logger.NewNopLogger())

	_, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNotRunnable))
}

func (suite *BacktestEngineV1TestSuite) TestInitializeRejectsBadConfig() {
	e := NewBacktestEngineV1(logger.NewNopLogger())

	err := e.Initialize("initial_capital: -5\n")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestConfigError))
}

func (suite *BacktestEngineV1TestSuite) TestLoadStrategyRejectsIncomplete() {
	e := NewBacktestEngineV1(logger.NewNopLogger())
	suite.Require().NoError(e.Initialize(zeroCostConfig))

	err := e.LoadStrategy(&strategy.Strategy{Name: "broken", Cadence: strategy.CadenceDaily})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNotRunnable))
}

func (suite *BacktestEngineV1TestSuite) TestNoTradingDaysInWindow() {
	bars := constantBars("AAA", 100, suite.start, 5)
	s := &strategy.Strategy{
		Name:      "empty-window",
		Selection: &scriptedSelection{symbols: []string{"AAA"}},
		Entry:     &scriptedEntry{weight: 1},
		Exit:      &scriptedExit{},
		Cadence:   strategy.CadenceDaily,
	}

	config := zeroCostConfig + "start_time: 2025-01-01T00:00:00Z\n"
	e := suite.newEngine(config, s, bars)

	result, err := e.Run(context.Background(), optional.None[baseengine.OnDayCallback]())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestNoTradingDays))
	suite.Equal(types.RunStatusFailed, result.Status)
}
