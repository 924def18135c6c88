package strategy

import (
	"slices"
	"strings"
	"time"

	"github.com/moznion/go-optional"

	"github.com/quantra-lab/quantra/internal/indicator"
	"github.com/quantra-lab/quantra/internal/marketdata"
)

// UniverseSelection returns every instrument priced on the given date.
type UniverseSelection struct{}

// NewUniverseSelection constructs the selection stage. It accepts no
// parameters.
func NewUniverseSelection(params *Parameters) (*UniverseSelection, error) {
	return &UniverseSelection{}, nil
}

// Metadata implements Selection.
func (s *UniverseSelection) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "universe",
		Name:        "Full Universe",
		Description: "Selects every instrument with a closing price on the evaluation date.",
		APIVersion:  StageAPIVersion,
		Params:      nil,
	}
}

// BoundParams implements ParameterizedStage.
func (s *UniverseSelection) BoundParams() map[string]any {
	return nil
}

// Select implements Selection.
func (s *UniverseSelection) Select(date time.Time, prices *marketdata.PriceTable) ([]string, error) {
	if !prices.Contains(date) {
		return []string{}, nil
	}

	return prices.SymbolsOn(date), nil
}

func momentumSelectionSpecs() []ParameterSpec {
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
			Name:        "top_n",
			Kind:        ParamInteger,
			Default:     10,
			Min:         optional.Some(1.0),
			Description: "Number of top-ranked instruments to select.",
		},
	}
}

// MomentumSelection ranks instruments by trailing return and keeps the top N.
type MomentumSelection struct {
	params   *Parameters
	lookback int
	topN     int
}

// NewMomentumSelection constructs the stage from validated parameters.
func NewMomentumSelection(params *Parameters) (*MomentumSelection, error) {
	return &MomentumSelection{
		params:   params,
		lookback: params.Int("lookback"),
		topN:     params.Int("top_n"),
	}, nil
}

// Metadata implements Selection.
func (s *MomentumSelection) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "momentum",
		Name:        "Momentum Ranking",
		Description: "Selects the top N instruments by trailing lookback return.",
		APIVersion:  StageAPIVersion,
		Params:      momentumSelectionSpecs(),
	}
}

// BoundParams implements ParameterizedStage.
func (s *MomentumSelection) BoundParams() map[string]any {
	return s.params.Raw()
}

// Select implements Selection.
func (s *MomentumSelection) Select(date time.Time, prices *marketdata.PriceTable) ([]string, error) {
	if !prices.Contains(date) {
		return []string{}, nil
	}

	type ranked struct {
		symbol string
		ret    float64
	}

	candidates := make([]ranked, 0)

	for _, symbol := range prices.SymbolsOn(date) {
		hist := prices.History(symbol, date, s.lookback+1)

		ret, err := indicator.ROC(hist, s.lookback)
		if err != nil {
			// Instruments without a full lookback window are not ranked.
			continue
		}

		candidates = append(candidates, ranked{
			symbol: symbol,
			ret:    ret,
		})
	}

	slices.SortFunc(candidates, func(a, b ranked) int {
		switch {
		case a.ret > b.ret:
			return -1
		case a.ret < b.ret:
			return 1
		default:
			return strings.Compare(a.symbol, b.symbol)
		}
	})

	if len(candidates) > s.topN {
		candidates = candidates[:s.topN]
	}

	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.symbol)
	}

	return out, nil
}

func staticSelectionSpecs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name:        "symbols",
			Kind:        ParamString,
			Description: "Comma-separated list of instrument identifiers.",
		},
	}
}

// StaticSelection always selects a fixed instrument list, filtered to those
// actually priced on the evaluation date.
type StaticSelection struct {
	params  *Parameters
	symbols []string
}

// NewStaticSelection constructs the stage from validated parameters.
func NewStaticSelection(params *Parameters) (*StaticSelection, error) {
	raw := strings.Split(params.String("symbols"), ",")
	symbols := make([]string, 0, len(raw))

	for _, s := range raw {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}

	slices.Sort(symbols)

	return &StaticSelection{
		params:  params,
		symbols: symbols,
	}, nil
}

// Metadata implements Selection.
func (s *StaticSelection) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "static",
		Name:        "Static List",
		Description: "Selects a fixed instrument list, filtered to instruments priced on the date.",
		APIVersion:  StageAPIVersion,
		Params:      staticSelectionSpecs(),
	}
}

// BoundParams implements ParameterizedStage.
func (s *StaticSelection) BoundParams() map[string]any {
	return s.params.Raw()
}

// Select implements Selection.
func (s *StaticSelection) Select(date time.Time, prices *marketdata.PriceTable) ([]string, error) {
	if !prices.Contains(date) {
		return []string{}, nil
	}

	out := make([]string, 0, len(s.symbols))

	for _, symbol := range s.symbols {
		if _, ok := prices.Close(symbol, date); ok {
			out = append(out, symbol)
		}
	}

	return out, nil
}

func smaFilterSelectionSpecs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name:        "period",
			Kind:        ParamInteger,
			Default:     20,
			Min:         optional.Some(1.0),
			Max:         optional.Some(252.0),
			Description: "Moving average window length in trading days.",
		},
	}
}

// SMAFilterSelection keeps instruments whose close is at or above their
// trailing simple moving average, a coarse uptrend filter.
type SMAFilterSelection struct {
	params *Parameters
	period int
}

// NewSMAFilterSelection constructs the stage from validated parameters.
func NewSMAFilterSelection(params *Parameters) (*SMAFilterSelection, error) {
	return &SMAFilterSelection{
		params: params,
		period: params.Int("period"),
	}, nil
}

// Metadata implements Selection.
func (s *SMAFilterSelection) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "sma_filter",
		Name:        "SMA Trend Filter",
		Description: "Selects instruments trading at or above their moving average.",
		APIVersion:  StageAPIVersion,
		Params:      smaFilterSelectionSpecs(),
	}
}

// BoundParams implements ParameterizedStage.
func (s *SMAFilterSelection) BoundParams() map[string]any {
	return s.params.Raw()
}

// Select implements Selection.
func (s *SMAFilterSelection) Select(date time.Time, prices *marketdata.PriceTable) ([]string, error) {
	if !prices.Contains(date) {
		return []string{}, nil
	}

	out := make([]string, 0)

	for _, symbol := range prices.SymbolsOn(date) {
		hist := prices.History(symbol, date, s.period)

		mean, err := indicator.SMA(hist, s.period)
		if err != nil {
			continue
		}

		if hist[len(hist)-1] >= mean {
			out = append(out, symbol)
		}
	}

	return out, nil
}

func emaFilterSelectionSpecs() []ParameterSpec {
	return []ParameterSpec{
		{
			Name:        "period",
			Kind:        ParamInteger,
			Default:     20,
			Min:         optional.Some(1.0),
			Max:         optional.Some(252.0),
			Description: "Smoothing window length in trading days.",
		},
	}
}

// EMAFilterSelection keeps instruments whose close is at or above their
// exponential moving average. Compared to the simple variant it reacts
// faster to recent prices.
type EMAFilterSelection struct {
	params *Parameters
	period int
}

// NewEMAFilterSelection constructs the stage from validated parameters.
func NewEMAFilterSelection(params *Parameters) (*EMAFilterSelection, error) {
	return &EMAFilterSelection{
		params: params,
		period: params.Int("period"),
	}, nil
}

// Metadata implements Selection.
func (s *EMAFilterSelection) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "ema_filter",
		Name:        "EMA Trend Filter",
		Description: "Selects instruments trading at or above their exponential moving average.",
		APIVersion:  StageAPIVersion,
		Params:      emaFilterSelectionSpecs(),
	}
}

// BoundParams implements ParameterizedStage.
func (s *EMAFilterSelection) BoundParams() map[string]any {
	return s.params.Raw()
}

// Select implements Selection.
func (s *EMAFilterSelection) Select(date time.Time, prices *marketdata.PriceTable) ([]string, error) {
	if !prices.Contains(date) {
		return []string{}, nil
	}

	out := make([]string, 0)

	for _, symbol := range prices.SymbolsOn(date) {
		hist := prices.History(symbol, date, s.period)

		smoothed, err := indicator.EMA(hist, s.period)
		if err != nil {
			continue
		}

		if hist[len(hist)-1] >= smoothed {
			out = append(out, symbol)
		}
	}

	return out, nil
}
