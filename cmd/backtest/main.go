package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	baseengine "github.com/quantra-lab/quantra/internal/backtest/engine"
	enginev1 "github.com/quantra-lab/quantra/internal/backtest/engine/engine_v1"
	"github.com/quantra-lab/quantra/internal/logger"
	"github.com/quantra-lab/quantra/internal/marketdata/datasource"
	"github.com/quantra-lab/quantra/internal/strategy"
	"github.com/quantra-lab/quantra/internal/types"
	"gopkg.in/yaml.v3"
)

// runAction wires the full pipeline: load data, resolve and validate the
// strategy, run the engine with a progress bar, write the result.
func runAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	strategyPath := cmd.String("strategy")
	dataPath := cmd.String("data")
	outputDir := cmd.String("output")

	l, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	rawConfig, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read engine config: %w", err)
	}

	// Parsed a second time here so the loader can narrow its query to the
	// configured period.
	engineConfig := enginev1.DefaultConfig()
	if err := yaml.Unmarshal(rawConfig, &engineConfig); err != nil {
		return fmt.Errorf("failed to parse engine config: %w", err)
	}

	strategyConfig, err := strategy.LoadStrategyConfig(strategyPath)
	if err != nil {
		return err
	}

	composed, err := strategyConfig.Build(strategy.DefaultRegistry(), l)
	if err != nil {
		return err
	}

	if result := composed.Validate(); !result.Valid {
		fmt.Fprintf(os.Stderr, "strategy %q is not runnable:\n", composed.Name)
		for _, problem := range result.Errors {
			fmt.Fprintf(os.Stderr, "  - %s\n", problem)
		}

		return fmt.Errorf("strategy validation failed with %d problem(s)", len(result.Errors))
	}

	loader, err := datasource.NewDuckDBLoader(":memory:", l)
	if err != nil {
		return err
	}
	defer func() { _ = loader.Close() }()

	if err := loader.Initialize(dataPath); err != nil {
		return err
	}

	prices, bars, err := loader.LoadTables(engineConfig.StartTime, engineConfig.EndTime)
	if err != nil {
		return err
	}

	backtester := enginev1.NewBacktestEngineV1(l)
	if err := backtester.Initialize(string(rawConfig)); err != nil {
		return err
	}

	if err := backtester.LoadStrategy(composed); err != nil {
		return err
	}

	if err := backtester.SetData(prices, bars); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	onDay := baseengine.OnDayCallback(func(current, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total))
			bar.Describe(fmt.Sprintf("Backtesting %s", composed.Name))
		}

		_ = bar.Set(current)
	})

	result, err := backtester.Run(ctx, optional.Some(onDay))
	if err != nil {
		return err
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	resultPath := filepath.Join(outputDir, "result.yaml")
	if err := types.WriteResult(resultPath, result); err != nil {
		return err
	}

	printSummary(result, resultPath)

	return nil
}

func printSummary(result types.BacktestResult, resultPath string) {
	fmt.Printf("\nRun %s finished with status %s\n", result.RunID, result.Status)
	fmt.Printf("  Total return:      %.2f%%\n", result.Metrics.TotalReturn*100)
	fmt.Printf("  Annualized return: %.2f%%\n", result.Metrics.AnnualizedReturn*100)
	fmt.Printf("  Volatility:        %.2f%%\n", result.Metrics.Volatility*100)
	fmt.Printf("  Sharpe ratio:      %.2f\n", result.Metrics.SharpeRatio)
	fmt.Printf("  Max drawdown:      %.2f%%\n", result.Metrics.MaxDrawdown*100)
	fmt.Printf("  Win rate:          %.2f%% (%d/%d)\n",
		result.Metrics.WinRate*100, result.Metrics.WinningTrades, result.Metrics.TotalTrades)
	fmt.Printf("  Trades:            %d\n", len(result.Trades))

	if result.DataGaps > 0 || result.SkippedOrders > 0 {
		fmt.Printf("  Data gaps: %d, skipped orders: %d\n", result.DataGaps, result.SkippedOrders)
	}

	fmt.Printf("Result written to %s\n", resultPath)
}

// schemaAction prints the JSON schema of the engine config.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	config := enginev1.DefaultConfig()

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

// stagesAction lists the registered stage IDs by role.
func stagesAction(ctx context.Context, cmd *cli.Command) error {
	registry := strategy.DefaultRegistry()

	fmt.Println("selection:")
	for _, id := range registry.SelectionIDs() {
		fmt.Printf("  - %s\n", id)
	}

	fmt.Println("entry:")
	for _, id := range registry.EntryIDs() {
		fmt.Printf("  - %s\n", id)
	}

	fmt.Println("exit:")
	for _, id := range registry.ExitIDs() {
		fmt.Printf("  - %s\n", id)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run a composed trading strategy against historical daily bars",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Execute a backtest run",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the engine YAML config",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "strategy",
						Aliases:  []string{"s"},
						Usage:    "Path to the strategy YAML config",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to a CSV or Parquet file of daily bars",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory the result YAML is written to",
						Value:   "results",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the engine config",
				Action: schemaAction,
			},
			{
				Name:   "stages",
				Usage:  "List the registered strategy stages",
				Action: stagesAction,
			},
		},
	}

	// Interrupts cancel the run cooperatively; the partial result is still
	// written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
