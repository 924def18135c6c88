package strategy

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/quantra-lab/quantra/internal/logger"
	"github.com/quantra-lab/quantra/internal/marketdata"
	"github.com/quantra-lab/quantra/internal/types"
)

// SubStageResult is the typed outcome of one sub-stage of a combined exit.
// Failures are collected here rather than swallowed, so they stay observable.
type SubStageResult struct {
	StageID string
	Symbols []string
	Err     error
}

// CombinedExit composes an ordered list of Exit stages and unions their
// outputs: a position is closed if any sub-stage flags it. A failing
// sub-stage is logged and recorded but does not mask the others' output.
type CombinedExit struct {
	stages []Exit
	log    *logger.Logger
}

// NewCombinedExit builds a combined exit over the given sub-stages.
func NewCombinedExit(log *logger.Logger, stages ...Exit) *CombinedExit {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &CombinedExit{
		stages: stages,
		log:    log,
	}
}

// Metadata implements Exit.
func (c *CombinedExit) Metadata() StageMetadata {
	return StageMetadata{
		ID:          "combined_exit",
		Name:        "Combined Exit",
		Description: "Unions the signals of an ordered list of exit stages (logical OR).",
		APIVersion:  StageAPIVersion,
		Params:      nil,
	}
}

// Evaluate runs every sub-stage and returns the deduplicated, sorted union of
// their signals alongside one typed result per sub-stage.
func (c *CombinedExit) Evaluate(positions map[string]types.Position, bars *marketdata.BarTable, date time.Time) ([]string, []SubStageResult) {
	results := make([]SubStageResult, 0, len(c.stages))
	seen := make(map[string]struct{})
	union := make([]string, 0)

	for _, stage := range c.stages {
		symbols, err := stage.GenerateSignals(positions, bars, date)
		results = append(results, SubStageResult{
			StageID: stage.Metadata().ID,
			Symbols: symbols,
			Err:     err,
		})

		if err != nil {
			c.log.Warn("exit sub-stage failed",
				zap.String("stage", stage.Metadata().ID),
				zap.Time("date", date),
				zap.Error(err),
			)

			continue
		}

		for _, symbol := range symbols {
			if _, ok := seen[symbol]; ok {
				continue
			}

			seen[symbol] = struct{}{}
			union = append(union, symbol)
		}
	}

	slices.Sort(union)

	return union, results
}

// GenerateSignals implements Exit.
func (c *CombinedExit) GenerateSignals(positions map[string]types.Position, bars *marketdata.BarTable, date time.Time) ([]string, error) {
	union, _ := c.Evaluate(positions, bars, date)

	return union, nil
}
