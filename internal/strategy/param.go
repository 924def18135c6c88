package strategy

import (
	stderrors "errors"
	"fmt"
	"math"
	"slices"

	"github.com/moznion/go-optional"

	"github.com/quantra-lab/quantra/pkg/errors"
)

type ParamKind string

const (
	ParamInteger ParamKind = "integer"
	ParamFloat   ParamKind = "float"
	ParamBoolean ParamKind = "boolean"
	ParamEnum    ParamKind = "enum"
	ParamString  ParamKind = "string"
)

// ParameterSpec declares a single named parameter a stage accepts. Specs are
// hand-written per stage rather than derived by reflection, so the schema a
// stage advertises is exactly the schema it validates against.
type ParameterSpec struct {
	Name        string                   `yaml:"name" json:"name"`
	Kind        ParamKind                `yaml:"kind" json:"kind"`
	Default     any                      `yaml:"default" json:"default"`
	Min         optional.Option[float64] `yaml:"min" json:"min"`
	Max         optional.Option[float64] `yaml:"max" json:"max"`
	Step        optional.Option[float64] `yaml:"step" json:"step"`
	Choices     []string                 `yaml:"choices" json:"choices"`
	Description string                   `yaml:"description" json:"description"`
}

// Validate checks the spec's own invariants: bounds ordering, default within
// bounds, non-empty choices for enums.
func (s ParameterSpec) Validate() error {
	if s.Name == "" {
		return errors.New(errors.ErrCodeInvalidParameterSpec, "parameter spec has empty name")
	}

	switch s.Kind {
	case ParamInteger, ParamFloat, ParamBoolean, ParamEnum, ParamString:
	default:
		return errors.Newf(errors.ErrCodeInvalidParameterSpec, "parameter %q has unknown kind %q", s.Name, s.Kind)
	}

	if s.Kind == ParamEnum && len(s.Choices) == 0 {
		return errors.Newf(errors.ErrCodeInvalidParameterSpec, "enum parameter %q has no choices", s.Name)
	}

	if s.Min.IsSome() && s.Max.IsSome() && s.Min.Unwrap() > s.Max.Unwrap() {
		return errors.Newf(errors.ErrCodeInvalidParameterSpec, "parameter %q has min > max", s.Name)
	}

	if s.Default != nil && (s.Kind == ParamInteger || s.Kind == ParamFloat) {
		v, ok := toFloat(s.Default)
		if !ok {
			return errors.Newf(errors.ErrCodeInvalidParameterSpec, "parameter %q has non-numeric default", s.Name)
		}

		if err := checkBounds(s, v); err != nil {
			return errors.Newf(errors.ErrCodeInvalidParameterSpec, "parameter %q default out of bounds", s.Name)
		}
	}

	return nil
}

// Parameters is an insertion-ordered mapping from parameter name to value,
// validated against a spec list at construction.
type Parameters struct {
	keys   []string
	values map[string]any
}

// NewParameters validates raw against specs and returns the bound parameter
// set with defaults filled in. All validation problems are joined into the
// returned error.
func NewParameters(raw map[string]any, specs []ParameterSpec) (*Parameters, error) {
	if errs := ValidateParameters(raw, specs); len(errs) > 0 {
		return nil, stderrors.Join(errs...)
	}

	p := &Parameters{
		keys:   make([]string, 0, len(specs)),
		values: make(map[string]any, len(specs)),
	}

	for _, spec := range specs {
		value, ok := raw[spec.Name]
		if !ok {
			value = spec.Default
		}

		value, _ = coerce(spec, value)
		p.keys = append(p.keys, spec.Name)
		p.values[spec.Name] = value
	}

	return p, nil
}

// ValidateParameters checks a raw parameter mapping against a spec list and
// returns every problem found: unknown keys, type mismatches, out-of-range
// numerics, invalid enum choices.
func ValidateParameters(raw map[string]any, specs []ParameterSpec) []error {
	var errs []error

	specNames := make(map[string]ParameterSpec, len(specs))

	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			errs = append(errs, err)
		}

		specNames[spec.Name] = spec
	}

	unknown := make([]string, 0)

	for name := range raw {
		if _, ok := specNames[name]; !ok {
			unknown = append(unknown, name)
		}
	}

	slices.Sort(unknown)

	for _, name := range unknown {
		errs = append(errs, errors.Newf(errors.ErrCodeUnknownParameter, "unknown parameter %q", name))
	}

	for _, spec := range specs {
		value, ok := raw[spec.Name]
		if !ok {
			if spec.Default == nil {
				errs = append(errs, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q is required and has no default", spec.Name))
			}

			continue
		}

		if _, ok := coerce(spec, value); !ok {
			errs = append(errs, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q: expected %s, got %T", spec.Name, spec.Kind, value))

			continue
		}

		if spec.Kind == ParamInteger || spec.Kind == ParamFloat {
			v, _ := toFloat(value)
			if err := checkBounds(spec, v); err != nil {
				errs = append(errs, err)
			}
		}

		if spec.Kind == ParamEnum {
			s, _ := value.(string)
			if !slices.Contains(spec.Choices, s) {
				errs = append(errs, errors.Newf(errors.ErrCodeInvalidChoice, "parameter %q: %q is not one of %v", spec.Name, s, spec.Choices))
			}
		}
	}

	return errs
}

// Keys returns the parameter names in spec order.
func (p *Parameters) Keys() []string {
	return p.keys
}

// Has reports whether the parameter is bound.
func (p *Parameters) Has(name string) bool {
	_, ok := p.values[name]

	return ok
}

// Int returns the integer parameter value, or 0 when unset.
func (p *Parameters) Int(name string) int {
	v, _ := p.values[name].(int)

	return v
}

// Float returns the float parameter value, or 0 when unset.
func (p *Parameters) Float(name string) float64 {
	v, _ := p.values[name].(float64)

	return v
}

// Bool returns the boolean parameter value, or false when unset.
func (p *Parameters) Bool(name string) bool {
	v, _ := p.values[name].(bool)

	return v
}

// String returns the string parameter value, or "" when unset.
func (p *Parameters) String(name string) string {
	v, _ := p.values[name].(string)

	return v
}

// Raw returns a copy of the bound values keyed by name.
func (p *Parameters) Raw() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}

	return out
}

// coerce converts value to the canonical Go type for the spec's kind.
func coerce(spec ParameterSpec, value any) (any, bool) {
	switch spec.Kind {
	case ParamInteger:
		switch v := value.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			if v == math.Trunc(v) {
				return int(v), true
			}

			return nil, false
		default:
			return nil, false
		}
	case ParamFloat:
		v, ok := toFloat(value)

		return v, ok
	case ParamBoolean:
		v, ok := value.(bool)

		return v, ok
	case ParamEnum, ParamString:
		v, ok := value.(string)

		return v, ok
	default:
		return nil, false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func checkBounds(spec ParameterSpec, v float64) error {
	if spec.Min.IsSome() && v < spec.Min.Unwrap() {
		return errors.New(errors.ErrCodeParameterOutOfRange, fmt.Sprintf("parameter %q: %v is below minimum %v", spec.Name, v, spec.Min.Unwrap()))
	}

	if spec.Max.IsSome() && v > spec.Max.Unwrap() {
		return errors.New(errors.ErrCodeParameterOutOfRange, fmt.Sprintf("parameter %q: %v is above maximum %v", spec.Name, v, spec.Max.Unwrap()))
	}

	return nil
}
