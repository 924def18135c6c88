package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/quantra-lab/quantra/pkg/errors"
)

// BacktestEngineV1Config carries the execution and cost-model settings of a
// run. Rates are fractions (0.0003 = 3 bps), not percentages.
type BacktestEngineV1Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" validate:"gt=0" jsonschema:"title=Initial Capital,description=Starting capital for the backtest,minimum=0"`
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate" validate:"gte=0" jsonschema:"title=Commission Rate,description=Commission charged on both sides as a fraction of gross amount"`
	// TaxRate models a sell-side transaction levy. Never applied to buys.
	TaxRate      float64 `yaml:"tax_rate" json:"tax_rate" validate:"gte=0" jsonschema:"title=Tax Rate,description=Sell-side transaction levy as a fraction of gross amount"`
	SlippageRate float64 `yaml:"slippage_rate" json:"slippage_rate" validate:"gte=0" jsonschema:"title=Slippage Rate,description=Price penalty applied against the trader on execution"`
	// LotSize is the minimum tradable share increment.
	LotSize int64 `yaml:"lot_size" json:"lot_size" validate:"gt=0" jsonschema:"title=Lot Size,description=Minimum tradable share increment"`
	// CashBuffer is the capital fraction reserved to absorb rounding and fees.
	CashBuffer float64                    `yaml:"cash_buffer" json:"cash_buffer" validate:"gte=0,lt=1" jsonschema:"title=Cash Buffer,description=Capital fraction kept aside when sizing buys"`
	StartTime  optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the backtest period"`
	EndTime    optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the backtest period"`
}

// DefaultConfig returns a config with the documented defaults. InitialCapital
// has no meaningful default and must be supplied.
func DefaultConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: 0,
		CommissionRate: 0,
		TaxRate:        0,
		SlippageRate:   0,
		LotSize:        100,
		CashBuffer:     0.02,
		StartTime:      optional.None[time.Time](),
		EndTime:        optional.None[time.Time](),
	}
}

// UnmarshalYAML implements custom unmarshaling so optional times decode from
// plain timestamps and omitted cost-model fields keep their defaults.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		InitialCapital float64    `yaml:"initial_capital"`
		CommissionRate *float64   `yaml:"commission_rate"`
		TaxRate        *float64   `yaml:"tax_rate"`
		SlippageRate   *float64   `yaml:"slippage_rate"`
		LotSize        *int64     `yaml:"lot_size"`
		CashBuffer     *float64   `yaml:"cash_buffer"`
		StartTime      *time.Time `yaml:"start_time"`
		EndTime        *time.Time `yaml:"end_time"`
	}

	defaults := DefaultConfig()

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.InitialCapital = raw.InitialCapital
	c.CommissionRate = valueOr(raw.CommissionRate, defaults.CommissionRate)
	c.TaxRate = valueOr(raw.TaxRate, defaults.TaxRate)
	c.SlippageRate = valueOr(raw.SlippageRate, defaults.SlippageRate)
	c.LotSize = valueOr(raw.LotSize, defaults.LotSize)
	c.CashBuffer = valueOr(raw.CashBuffer, defaults.CashBuffer)

	c.StartTime = optional.None[time.Time]()
	if raw.StartTime != nil {
		c.StartTime = optional.Some(*raw.StartTime)
	}

	c.EndTime = optional.None[time.Time]()
	if raw.EndTime != nil {
		c.EndTime = optional.Some(*raw.EndTime)
	}

	return nil
}

// Validate checks the config against its declared constraints.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest config", err)
	}

	return nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the config.
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func valueOr[T any](v *T, fallback T) T {
	if v != nil {
		return *v
	}

	return fallback
}
