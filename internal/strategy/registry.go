package strategy

import (
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/quantra-lab/quantra/pkg/errors"
)

// SupportedStageAPI is the semver constraint the registry enforces on the
// APIVersion a stage declares in its metadata.
const SupportedStageAPI = "^1.0"

// SelectionFactory resolves a raw parameter mapping into a constructed,
// validated Selection stage.
type SelectionFactory func(raw map[string]any) (Selection, error)

// EntryFactory resolves a raw parameter mapping into a constructed, validated
// Entry stage.
type EntryFactory func(raw map[string]any) (Entry, error)

// ExitFactory resolves a raw parameter mapping into a constructed, validated
// Exit stage.
type ExitFactory func(raw map[string]any) (Exit, error)

// Registry maps stage identifiers to factories, one namespace per stage kind.
// It is an explicit value constructed once at process start and passed by
// reference; the simulation core never consults it.
type Registry struct {
	selections map[string]SelectionFactory
	entries    map[string]EntryFactory
	exits      map[string]ExitFactory
	constraint *semver.Constraints
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	// The constraint is a package constant; parsing cannot fail.
	constraint, _ := semver.NewConstraint(SupportedStageAPI)

	return &Registry{
		selections: make(map[string]SelectionFactory),
		entries:    make(map[string]EntryFactory),
		exits:      make(map[string]ExitFactory),
		constraint: constraint,
	}
}

// DefaultRegistry returns a registry pre-populated with the built-in stages.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterSelection("universe", func(raw map[string]any) (Selection, error) {
		params, err := NewParameters(raw, nil)
		if err != nil {
			return nil, err
		}

		return NewUniverseSelection(params)
	})
	r.RegisterSelection("momentum", func(raw map[string]any) (Selection, error) {
		params, err := NewParameters(raw, momentumSelectionSpecs())
		if err != nil {
			return nil, err
		}

		return NewMomentumSelection(params)
	})
	r.RegisterSelection("static", func(raw map[string]any) (Selection, error) {
		params, err := NewParameters(raw, staticSelectionSpecs())
		if err != nil {
			return nil, err
		}

		return NewStaticSelection(params)
	})
	r.RegisterSelection("sma_filter", func(raw map[string]any) (Selection, error) {
		params, err := NewParameters(raw, smaFilterSelectionSpecs())
		if err != nil {
			return nil, err
		}

		return NewSMAFilterSelection(params)
	})
	r.RegisterSelection("ema_filter", func(raw map[string]any) (Selection, error) {
		params, err := NewParameters(raw, emaFilterSelectionSpecs())
		if err != nil {
			return nil, err
		}

		return NewEMAFilterSelection(params)
	})

	r.RegisterEntry("equal_weight", func(raw map[string]any) (Entry, error) {
		params, err := NewParameters(raw, equalWeightEntrySpecs())
		if err != nil {
			return nil, err
		}

		return NewEqualWeightEntry(params)
	})
	r.RegisterEntry("fixed_weight", func(raw map[string]any) (Entry, error) {
		params, err := NewParameters(raw, fixedWeightEntrySpecs())
		if err != nil {
			return nil, err
		}

		return NewFixedWeightEntry(params)
	})
	r.RegisterEntry("momentum_weight", func(raw map[string]any) (Entry, error) {
		params, err := NewParameters(raw, momentumWeightEntrySpecs())
		if err != nil {
			return nil, err
		}

		return NewMomentumWeightEntry(params)
	})

	r.RegisterExit("holding_period", func(raw map[string]any) (Exit, error) {
		params, err := NewParameters(raw, holdingPeriodExitSpecs())
		if err != nil {
			return nil, err
		}

		return NewHoldingPeriodExit(params)
	})
	r.RegisterExit("stop_loss", func(raw map[string]any) (Exit, error) {
		params, err := NewParameters(raw, stopLossExitSpecs())
		if err != nil {
			return nil, err
		}

		return NewStopLossExit(params)
	})
	r.RegisterExit("take_profit", func(raw map[string]any) (Exit, error) {
		params, err := NewParameters(raw, takeProfitExitSpecs())
		if err != nil {
			return nil, err
		}

		return NewTakeProfitExit(params)
	})

	return r
}

// RegisterSelection adds a selection factory under id.
func (r *Registry) RegisterSelection(id string, factory SelectionFactory) error {
	if _, ok := r.selections[id]; ok {
		return errors.Newf(errors.ErrCodeStageAlreadyExists, "selection stage %q already registered", id)
	}

	r.selections[id] = factory

	return nil
}

// RegisterEntry adds an entry factory under id.
func (r *Registry) RegisterEntry(id string, factory EntryFactory) error {
	if _, ok := r.entries[id]; ok {
		return errors.Newf(errors.ErrCodeStageAlreadyExists, "entry stage %q already registered", id)
	}

	r.entries[id] = factory

	return nil
}

// RegisterExit adds an exit factory under id.
func (r *Registry) RegisterExit(id string, factory ExitFactory) error {
	if _, ok := r.exits[id]; ok {
		return errors.Newf(errors.ErrCodeStageAlreadyExists, "exit stage %q already registered", id)
	}

	r.exits[id] = factory

	return nil
}

// CreateSelection resolves id and raw parameters into a validated stage.
func (r *Registry) CreateSelection(id string, raw map[string]any) (Selection, error) {
	factory, ok := r.selections[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStageNotFound, "unknown selection stage %q", id)
	}

	stage, err := factory(raw)
	if err != nil {
		return nil, err
	}

	if err := r.checkVersion(stage.Metadata()); err != nil {
		return nil, err
	}

	return stage, nil
}

// CreateEntry resolves id and raw parameters into a validated stage.
func (r *Registry) CreateEntry(id string, raw map[string]any) (Entry, error) {
	factory, ok := r.entries[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStageNotFound, "unknown entry stage %q", id)
	}

	stage, err := factory(raw)
	if err != nil {
		return nil, err
	}

	if err := r.checkVersion(stage.Metadata()); err != nil {
		return nil, err
	}

	return stage, nil
}

// CreateExit resolves id and raw parameters into a validated stage.
func (r *Registry) CreateExit(id string, raw map[string]any) (Exit, error) {
	factory, ok := r.exits[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStageNotFound, "unknown exit stage %q", id)
	}

	stage, err := factory(raw)
	if err != nil {
		return nil, err
	}

	if err := r.checkVersion(stage.Metadata()); err != nil {
		return nil, err
	}

	return stage, nil
}

// SelectionIDs returns the registered selection identifiers, sorted.
func (r *Registry) SelectionIDs() []string {
	return sortedKeys(r.selections)
}

// EntryIDs returns the registered entry identifiers, sorted.
func (r *Registry) EntryIDs() []string {
	return sortedKeys(r.entries)
}

// ExitIDs returns the registered exit identifiers, sorted.
func (r *Registry) ExitIDs() []string {
	return sortedKeys(r.exits)
}

func (r *Registry) checkVersion(meta StageMetadata) error {
	version, err := semver.NewVersion(meta.APIVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStageVersion, err, "stage %q declares invalid API version %q", meta.ID, meta.APIVersion)
	}

	if !r.constraint.Check(version) {
		return errors.Newf(errors.ErrCodeStageVersion, "stage %q API version %q does not satisfy %q", meta.ID, meta.APIVersion, SupportedStageAPI)
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
