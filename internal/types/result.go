package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RunStatus string

const (
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusCancelled RunStatus = "CANCELLED"
	RunStatusFailed    RunStatus = "FAILED"
)

// ValuationPoint is one entry of the daily value history. Exactly one point
// is recorded per simulated trading day.
type ValuationPoint struct {
	Date          time.Time `yaml:"date" json:"date"`
	TotalValue    float64   `yaml:"total_value" json:"total_value"`
	Cash          float64   `yaml:"cash" json:"cash"`
	PositionValue float64   `yaml:"position_value" json:"position_value"`
	PositionCount int       `yaml:"position_count" json:"position_count"`
}

// BacktestResult is the read-only snapshot extracted from a run's portfolio
// when the run finishes (or is cancelled). It has no further mutation.
type BacktestResult struct {
	// RunID is the unique identifier for this backtest run.
	RunID string `yaml:"run_id" json:"run_id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// StrategyName is the name of the composed strategy that produced it.
	StrategyName string    `yaml:"strategy_name" json:"strategy_name"`
	Status       RunStatus `yaml:"status" json:"status"`
	// ValueHistory holds one valuation point per simulated trading day.
	ValueHistory []ValuationPoint `yaml:"value_history" json:"value_history"`
	// Trades is the ordered, append-only trade ledger.
	Trades []Trade `yaml:"trades" json:"trades"`
	// FinalPositions are the positions still open when the run ended.
	FinalPositions []Position         `yaml:"final_positions" json:"final_positions"`
	Metrics        PerformanceMetrics `yaml:"metrics" json:"metrics"`
	// DataGaps counts bar lookups that found no data. Informational only.
	DataGaps int `yaml:"data_gaps" json:"data_gaps"`
	// SkippedOrders counts orders dropped for missing prices, sub-lot sizes
	// or insufficient cash. Informational only.
	SkippedOrders int `yaml:"skipped_orders" json:"skipped_orders"`
}

// WriteResult serializes the result to a YAML file.
func WriteResult(path string, result BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}
