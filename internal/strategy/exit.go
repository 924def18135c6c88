package strategy

import (
	"slices"
	"time"

	"github.com/moznion/go-optional"

	"github.com/quantra-lab/quantra/internal/marketdata"
	"github.com/quantra-lab/quantra/internal/types"
)

func holdingPeriodExitSpecs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name:        "days",
			Kind:        ParamInteger,
			Default:     5,
			Min:         optional.Some(1.0),
			Description: "Number of trading days to hold before liquidating.",
		},
	}
}

// HoldingPeriodExit liquidates positions held for at least a fixed number of
// trading days.
type HoldingPeriodExit struct {
	params *Parameters
	days   int
}

// NewHoldingPeriodExit constructs the stage from validated parameters.
func NewHoldingPeriodExit(params *Parameters) (*HoldingPeriodExit, error) {
	return &HoldingPeriodExit{
		params: params,
		days:   params.Int("days"),
	}, nil
}

// Metadata implements Exit.
func (e *HoldingPeriodExit) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "holding_period",
		Name:        "Holding Period",
		Description: "Closes positions held for a fixed number of trading days.",
		APIVersion:  StageAPIVersion,
		Params:      holdingPeriodExitSpecs(),
	}
}

// BoundParams implements ParameterizedStage.
func (e *HoldingPeriodExit) BoundParams() map[string]any {
	return e.params.Raw()
}

// GenerateSignals implements Exit.
func (e *HoldingPeriodExit) GenerateSignals(positions map[string]types.Position, bars *marketdata.BarTable, date time.Time) ([]string, error) {
	out := make([]string, 0)

	for symbol, position := range positions {
		days := bars.DatesThrough(symbol, date)
		if position.HoldingDays(days) >= e.days {
			out = append(out, symbol)
		}
	}

	slices.Sort(out)

	return out, nil
}

func stopLossExitSpecs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name:        "threshold",
			Kind:        ParamFloat,
			Default:     0.08,
			Min:         optional.Some(0.001),
			Max:         optional.Some(1.0),
			Description: "Loss fraction from entry price that triggers liquidation.",
		},
	}
}

// StopLossExit liquidates positions whose loss from entry exceeds a threshold.
type StopLossExit struct {
	params    *Parameters
	threshold float64
}

// NewStopLossExit constructs the stage from validated parameters.
func NewStopLossExit(params *Parameters) (*StopLossExit, error) {
	return &StopLossExit{
		params:    params,
		threshold: params.Float("threshold"),
	}, nil
}

// Metadata implements Exit.
func (e *StopLossExit) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "stop_loss",
		Name:        "Stop Loss",
		Description: "Closes positions that have lost more than a threshold fraction from entry.",
		APIVersion:  StageAPIVersion,
		Params:      stopLossExitSpecs(),
	}
}

// BoundParams implements ParameterizedStage.
func (e *StopLossExit) BoundParams() map[string]any {
	return e.params.Raw()
}

// GenerateSignals implements Exit.
func (e *StopLossExit) GenerateSignals(positions map[string]types.Position, bars *marketdata.BarTable, date time.Time) ([]string, error) {
	out := make([]string, 0)

	for symbol, position := range positions {
		bar, ok := bars.Bar(symbol, date)
		if !ok || position.EntryPrice == 0 {
			continue
		}

		if bar.Close/position.EntryPrice-1 <= -e.threshold {
			out = append(out, symbol)
		}
	}

	slices.Sort(out)

	return out, nil
}

func takeProfitExitSpecs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name:        "threshold",
			Kind:        ParamFloat,
			Default:     0.2,
			Min:         optional.Some(0.001),
			Description: "Gain fraction from entry price that triggers liquidation.",
		},
	}
}

// TakeProfitExit liquidates positions whose gain from entry exceeds a
// threshold.
type TakeProfitExit struct {
	params    *Parameters
	threshold float64
}

// NewTakeProfitExit constructs the stage from validated parameters.
func NewTakeProfitExit(params *Parameters) (*TakeProfitExit, error) {
	return &TakeProfitExit{
		params:    params,
		threshold: params.Float("threshold"),
	}, nil
}

// Metadata implements Exit.
func (e *TakeProfitExit) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "take_profit",
		Name:        "Take Profit",
		Description: "Closes positions that have gained more than a threshold fraction from entry.",
		APIVersion:  StageAPIVersion,
		Params:      takeProfitExitSpecs(),
	}
}

// BoundParams implements ParameterizedStage.
func (e *TakeProfitExit) BoundParams() map[string]any {
	return e.params.Raw()
}

// GenerateSignals implements Exit.
func (e *TakeProfitExit) GenerateSignals(positions map[string]types.Position, bars *marketdata.BarTable, date time.Time) ([]string, error) {
	out := make([]string, 0)

	for symbol, position := range positions {
		bar, ok := bars.Bar(symbol, date)
		if !ok || position.EntryPrice == 0 {
			continue
		}

		if bar.Close/position.EntryPrice-1 >= e.threshold {
			out = append(out, symbol)
		}
	}

	slices.Sort(out)

	return out, nil
}
