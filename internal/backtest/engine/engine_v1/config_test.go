package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/quantra-lab/quantra/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestDefaults() {
	cfg := DefaultConfig()

	suite.Equal(int64(100), cfg.LotSize)
	suite.Equal(0.02, cfg.CashBuffer)
	suite.True(cfg.StartTime.IsNone())
	suite.True(cfg.EndTime.IsNone())
}

func (suite *ConfigTestSuite) TestUnmarshalPartialKeepsDefaults() {
	cfg := DefaultConfig()
	err := yaml.Unmarshal([]byte("initial_capital: 100000\ncommission_rate: 0.0003\n"), &cfg)
	suite.Require().NoError(err)

	suite.Equal(100000.0, cfg.InitialCapital)
	suite.Equal(0.0003, cfg.CommissionRate)
	suite.Equal(int64(100), cfg.LotSize)
	suite.Equal(0.02, cfg.CashBuffer)
}

func (suite *ConfigTestSuite) TestUnmarshalTimes() {
	raw := `
initial_capital: 100000
start_time: 2024-01-01T00:00:00Z
end_time: 2024-06-30T00:00:00Z
`

	cfg := DefaultConfig()
	err := yaml.Unmarshal([]byte(raw), &cfg)
	suite.Require().NoError(err)

	suite.True(cfg.StartTime.IsSome())
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.StartTime.Unwrap())
	suite.True(cfg.EndTime.IsSome())
}

func (suite *ConfigTestSuite) TestValidate() {
	cfg := DefaultConfig()
	cfg.InitialCapital = 100000

	suite.NoError(cfg.Validate())
}

func (suite *ConfigTestSuite) TestValidateRejectsZeroCapital() {
	cfg := DefaultConfig()

	err := cfg.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestConfigError))
}

func (suite *ConfigTestSuite) TestValidateRejectsFullCashBuffer() {
	cfg := DefaultConfig()
	cfg.InitialCapital = 100000
	cfg.CashBuffer = 1

	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestValidateRejectsNegativeRates() {
	cfg := DefaultConfig()
	cfg.InitialCapital = 100000
	cfg.CommissionRate = -0.1

	suite.Error(cfg.Validate())
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	cfg := DefaultConfig()

	schemaJSON, err := cfg.GenerateSchemaJSON()
	suite.Require().NoError(err)
	suite.Contains(schemaJSON, "initial_capital")
	suite.Contains(schemaJSON, "lot_size")
	suite.Contains(schemaJSON, "date-time")
}
