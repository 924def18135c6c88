package strategy

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/quantra-lab/quantra/internal/indicator"
	"github.com/quantra-lab/quantra/internal/marketdata"
)

func equalWeightEntrySpecs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name:        "max_weight",
			Kind:        ParamFloat,
			Default:     0.2,
			Min:         optional.Some(0.001),
			Max:         optional.Some(1.0),
			Description: "Upper bound on the weight assigned to a single instrument.",
		},
	}
}

// EqualWeightEntry spreads capital evenly across the candidates that have a
// bar on the evaluation date, capped per instrument.
type EqualWeightEntry struct {
	params    *Parameters
	maxWeight float64
}

// NewEqualWeightEntry constructs the stage from validated parameters.
func NewEqualWeightEntry(params *Parameters) (*EqualWeightEntry, error) {
	return &EqualWeightEntry{
		params:    params,
		maxWeight: params.Float("max_weight"),
	}, nil
}

// Metadata implements Entry.
func (e *EqualWeightEntry) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "equal_weight",
		Name:        "Equal Weight",
		Description: "Assigns each candidate an equal fraction of deployable capital, capped per instrument.",
		APIVersion:  StageAPIVersion,
		Params:      equalWeightEntrySpecs(),
	}
}

// BoundParams implements ParameterizedStage.
func (e *EqualWeightEntry) BoundParams() map[string]any {
	return e.params.Raw()
}

// GenerateSignals implements Entry.
func (e *EqualWeightEntry) GenerateSignals(candidates []string, bars *marketdata.BarTable, date time.Time) (map[string]float64, error) {
	signals := make(map[string]float64)

	tradable := make([]string, 0, len(candidates))

	for _, symbol := range candidates {
		if _, ok := bars.Bar(symbol, date); ok {
			tradable = append(tradable, symbol)
		}
	}

	if len(tradable) == 0 {
		return signals, nil
	}

	weight := min(1.0/float64(len(tradable)), e.maxWeight)

	for _, symbol := range tradable {
		signals[symbol] = weight
	}

	return signals, nil
}

func fixedWeightEntrySpecs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name:        "weight",
			Kind:        ParamFloat,
			Default:     0.1,
			Min:         optional.Some(0.001),
			Max:         optional.Some(1.0),
			Description: "Capital fraction assigned to every candidate.",
		},
	}
}

// FixedWeightEntry assigns the same fixed weight to every tradable candidate.
type FixedWeightEntry struct {
	params *Parameters
	weight float64
}

// NewFixedWeightEntry constructs the stage from validated parameters.
func NewFixedWeightEntry(params *Parameters) (*FixedWeightEntry, error) {
	return &FixedWeightEntry{
		params: params,
		weight: params.Float("weight"),
	}, nil
}

// Metadata implements Entry.
func (e *FixedWeightEntry) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "fixed_weight",
		Name:        "Fixed Weight",
		Description: "Assigns a fixed capital fraction to every candidate with a bar on the date.",
		APIVersion:  StageAPIVersion,
		Params:      fixedWeightEntrySpecs(),
	}
}

// BoundParams implements ParameterizedStage.
func (e *FixedWeightEntry) BoundParams() map[string]any {
	return e.params.Raw()
}

// GenerateSignals implements Entry.
func (e *FixedWeightEntry) GenerateSignals(candidates []string, bars *marketdata.BarTable, date time.Time) (map[string]float64, error) {
	signals := make(map[string]float64)

	for _, symbol := range candidates {
		if _, ok := bars.Bar(symbol, date); ok {
			signals[symbol] = e.weight
		}
	}

	return signals, nil
}

func momentumWeightEntrySpecs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name:        "lookback",
			Kind:        ParamInteger,
			Default:     20,
			Min:         optional.Some(1.0),
			Max:         optional.Some(252.0),
			Description: "Trailing window length in trading days.",
		},
		{
			Name:        "max_weight",
			Kind:        ParamFloat,
			Default:     0.25,
			Min:         optional.Some(0.001),
			Max:         optional.Some(1.0),
			Description: "Upper bound on the weight assigned to a single instrument.",
		},
	}
}

// MomentumWeightEntry weights candidates in proportion to their positive
// trailing return; candidates with flat or negative momentum get no signal.
type MomentumWeightEntry struct {
	params    *Parameters
	lookback  int
	maxWeight float64
}

// NewMomentumWeightEntry constructs the stage from validated parameters.
func NewMomentumWeightEntry(params *Parameters) (*MomentumWeightEntry, error) {
	return &MomentumWeightEntry{
		params:    params,
		lookback:  params.Int("lookback"),
		maxWeight: params.Float("max_weight"),
	}, nil
}

// Metadata implements Entry.
func (e *MomentumWeightEntry) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "momentum_weight",
		Name:        "Momentum Weight",
		Description: "Weights candidates proportionally to positive trailing returns.",
		APIVersion:  StageAPIVersion,
		Params:      momentumWeightEntrySpecs(),
	}
}

// BoundParams implements ParameterizedStage.
func (e *MomentumWeightEntry) BoundParams() map[string]any {
	return e.params.Raw()
}

// GenerateSignals implements Entry.
func (e *MomentumWeightEntry) GenerateSignals(candidates []string, bars *marketdata.BarTable, date time.Time) (map[string]float64, error) {
	returns := make(map[string]float64)
	total := 0.0

	for _, symbol := range candidates {
		if _, ok := bars.Bar(symbol, date); !ok {
			continue
		}

		days := bars.DatesThrough(symbol, date)

		closes := make([]float64, 0, len(days))
		for _, d := range days {
			if bar, ok := bars.Bar(symbol, d); ok {
				closes = append(closes, bar.Close)
			}
		}

		ret, err := indicator.ROC(closes, e.lookback)
		if err != nil || ret <= 0 {
			continue
		}

		returns[symbol] = ret
		total += ret
	}

	signals := make(map[string]float64, len(returns))

	if total == 0 {
		return signals, nil
	}

	for symbol, ret := range returns {
		signals[symbol] = min(ret/total, e.maxWeight)
	}

	return signals, nil
}
