// Package datasource loads daily bar files into the in-memory tables the
// backtest engine requires as a precondition. Loading happens entirely before
// a run starts; the engine itself never touches this package.
package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/quantra-lab/quantra/internal/logger"
	"github.com/quantra-lab/quantra/internal/marketdata"
	"github.com/quantra-lab/quantra/internal/types"
	"github.com/quantra-lab/quantra/pkg/errors"
)

// DuckDBLoader reads daily bar CSV or Parquet files through DuckDB.
// Expected columns: time, symbol, open, high, low, close, volume.
type DuckDBLoader struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBLoader creates a loader backed by the DuckDB database at path.
// Use ":memory:" for a throwaway in-memory instance.
func NewDuckDBLoader(path string, log *logger.Logger) (*DuckDBLoader, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataLoadFailed, "failed to open duckdb", err)
	}

	return &DuckDBLoader{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize creates the daily_bars view over the given file path. The path
// may contain a glob; DuckDB expands it. File type is derived from the
// extension (.csv or .parquet).
func (d *DuckDBLoader) Initialize(path string) error {
	d.logger.Debug("Initializing bar loader", zap.String("path", path))

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS daily_bars;`); err != nil {
		return errors.Wrap(errors.ErrCodeDataLoadFailed, "failed to drop existing view", err)
	}

	var reader string

	switch strings.ToLower(filepath.Ext(strings.TrimSuffix(path, "*"))) {
	case ".parquet":
		reader = fmt.Sprintf(`read_parquet('%s')`, path)
	default:
		reader = fmt.Sprintf(`read_csv_auto('%s', header=true)`, path)
	}

	// Squirrel does not support CREATE VIEW, so use raw SQL here.
	query := fmt.Sprintf(`
		CREATE VIEW daily_bars AS
		SELECT time, symbol, open, high, low, close, volume FROM %s;
	`, reader)

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "failed to create view over %s", path)
	}

	return nil
}

// Count returns the number of bars within the optional time bounds.
func (d *DuckDBLoader) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	builder := d.sq.Select("COUNT(*)").From("daily_bars")
	builder = applyTimeBounds(builder, start, end)

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// Load reads all bars within the optional time bounds, ordered by time then
// symbol.
func (d *DuckDBLoader) Load(start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.MarketData, error) {
	builder := d.sq.
		Select("time", "symbol", "open", "high", "low", "close", "volume").
		From("daily_bars").
		OrderBy("time ASC", "symbol ASC")
	builder = applyTimeBounds(builder, start, end)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build load query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []types.MarketData

	for rows.Next() {
		var bar types.MarketData
		if err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err)
	}

	return bars, nil
}

// LoadTables loads the bars and builds the engine's input tables in one step.
func (d *DuckDBLoader) LoadTables(start optional.Option[time.Time], end optional.Option[time.Time]) (*marketdata.PriceTable, *marketdata.BarTable, error) {
	bars, err := d.Load(start, end)
	if err != nil {
		return nil, nil, err
	}

	if len(bars) == 0 {
		return nil, nil, errors.New(errors.ErrCodeEmptyDataset, "no bars found in data source")
	}

	d.logger.Debug("Loaded bars",
		zap.Int("count", len(bars)),
	)

	return marketdata.NewPriceTable(bars), marketdata.NewBarTable(bars), nil
}

// Close releases the underlying database handle.
func (d *DuckDBLoader) Close() error {
	return d.db.Close()
}

func applyTimeBounds(builder squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	return builder
}
