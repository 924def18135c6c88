package strategy

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quantra-lab/quantra/internal/logger"
	"github.com/quantra-lab/quantra/pkg/errors"
)

// StageConfig names a registered stage and carries its raw parameters.
type StageConfig struct {
	ID     string         `yaml:"id" json:"id"`
	Params map[string]any `yaml:"params" json:"params"`
}

// StrategyConfig is the YAML shape of a composed strategy. Multiple exit
// stages are allowed and combined with union semantics.
type StrategyConfig struct {
	Name      string        `yaml:"name" json:"name"`
	Cadence   Cadence       `yaml:"cadence" json:"cadence"`
	Selection StageConfig   `yaml:"selection" json:"selection"`
	Entry     StageConfig   `yaml:"entry" json:"entry"`
	Exits     []StageConfig `yaml:"exits" json:"exits"`
}

// LoadStrategyConfig reads and parses a strategy YAML file.
func LoadStrategyConfig(path string) (*StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "failed to read strategy config %s", path)
	}

	var config StrategyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "failed to parse strategy config %s", path)
	}

	return &config, nil
}

// Build resolves the configured stage IDs through the registry and composes
// the strategy. Parameter and version errors surface from the registry
// factories; composition problems surface from Strategy.Validate at load
// time.
func (c *StrategyConfig) Build(registry *Registry, log *logger.Logger) (*Strategy, error) {
	selection, err := registry.CreateSelection(c.Selection.ID, c.Selection.Params)
	if err != nil {
		return nil, err
	}

	entry, err := registry.CreateEntry(c.Entry.ID, c.Entry.Params)
	if err != nil {
		return nil, err
	}

	if len(c.Exits) == 0 {
		return nil, errors.New(errors.ErrCodeStageNotFound, "strategy config names no exit stage")
	}

	exits := make([]Exit, 0, len(c.Exits))
	for _, stageConfig := range c.Exits {
		exit, err := registry.CreateExit(stageConfig.ID, stageConfig.Params)
		if err != nil {
			return nil, err
		}

		exits = append(exits, exit)
	}

	var exit Exit
	if len(exits) == 1 {
		exit = exits[0]
	} else {
		exit = NewCombinedExit(log, exits...)
	}

	return &Strategy{
		Name:      c.Name,
		Selection: selection,
		Entry:     entry,
		Exit:      exit,
		Cadence:   c.Cadence,
	}, nil
}
