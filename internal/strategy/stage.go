// Package strategy defines the pluggable stage kinds a trading strategy is
// composed of (candidate selection, entry timing, exit management), the
// composer that binds them to a rebalance cadence, and the registry that
// resolves stage identifiers into constructed, validated stage instances.
package strategy

import (
	"time"

	"github.com/quantra-lab/quantra/internal/marketdata"
	"github.com/quantra-lab/quantra/internal/types"
)

// StageAPIVersion is the stage contract version built-in stages declare.
const StageAPIVersion = "1.0.0"

// StageMetadata describes a stage implementation: identity, human-readable
// naming, contract version, and the parameters it accepts.
type StageMetadata struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	APIVersion  string          `yaml:"api_version" json:"api_version"`
	Params      []ParameterSpec `yaml:"params" json:"params"`
}

// Selection picks the instruments eligible for trading starting at a date.
// Implementations must be pure functions of their inputs and fixed parameters.
// A date outside the price table's range yields an empty set, not an error.
type Selection interface {
	Metadata() StageMetadata
	Select(date time.Time, prices *marketdata.PriceTable) ([]string, error)
}

// Entry maps candidate instruments to desired allocation weights in (0, 1].
// Weights need not sum to 1; the engine clamps them to available cash. An
// instrument absent from the map receives no new position that day.
type Entry interface {
	Metadata() StageMetadata
	GenerateSignals(candidates []string, bars *marketdata.BarTable, date time.Time) (map[string]float64, error)
}

// Exit flags open positions that must be liquidated on a date. Returned
// instruments without a matching open position are treated by the engine as
// no-ops.
type Exit interface {
	Metadata() StageMetadata
	GenerateSignals(positions map[string]types.Position, bars *marketdata.BarTable, date time.Time) ([]string, error)
}

// ParameterizedStage is implemented by stages that expose their bound
// parameters, letting the composer re-validate them against the stage's spec.
type ParameterizedStage interface {
	BoundParams() map[string]any
}

// Cadence is the frequency at which the candidate set is recomputed.
// Exit evaluation is never throttled by cadence.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// AllCadences lists the recognized cadence tokens.
var AllCadences = []Cadence{CadenceDaily, CadenceWeekly, CadenceMonthly}

// IsValid reports whether the cadence token is recognized.
func (c Cadence) IsValid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
		return true
	default:
		return false
	}
}
