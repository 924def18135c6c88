package strategy

import "fmt"

// ValidationResult carries every problem found while validating a composed
// strategy, so a caller can surface all of them at once.
type ValidationResult struct {
	Valid  bool     `yaml:"valid" json:"valid"`
	Errors []string `yaml:"errors" json:"errors"`
}

// Strategy binds one Selection, one Entry, one Exit and a rebalance cadence.
// It performs no simulation itself; it is a value object consumed by the
// backtest engine.
type Strategy struct {
	Name      string
	Selection Selection
	Entry     Entry
	Exit      Exit
	Cadence   Cadence
}

// Validate checks the composition as a unit: all stages present, cadence
// token recognized, each stage's parameter specs well formed and its bound
// parameters satisfying them. Calling Validate twice with unchanged inputs
// yields identical results.
func (s *Strategy) Validate() ValidationResult {
	var problems []string

	if s.Selection == nil {
		problems = append(problems, "selection stage is not set")
	}

	if s.Entry == nil {
		problems = append(problems, "entry stage is not set")
	}

	if s.Exit == nil {
		problems = append(problems, "exit stage is not set")
	}

	if !s.Cadence.IsValid() {
		problems = append(problems, fmt.Sprintf("unknown rebalance cadence %q (want one of %v)", s.Cadence, AllCadences))
	}

	if s.Selection != nil {
		problems = append(problems, validateStageParams("selection", s.Selection.Metadata(), s.Selection)...)
	}

	if s.Entry != nil {
		problems = append(problems, validateStageParams("entry", s.Entry.Metadata(), s.Entry)...)
	}

	if s.Exit != nil {
		problems = append(problems, validateStageParams("exit", s.Exit.Metadata(), s.Exit)...)
	}

	return ValidationResult{
		Valid:  len(problems) == 0,
		Errors: problems,
	}
}

func validateStageParams(role string, meta StageMetadata, stage any) []string {
	var problems []string

	bound, ok := stage.(ParameterizedStage)
	if !ok {
		// Opaque stages validate their own parameters at construction.
		return nil
	}

	for _, err := range ValidateParameters(bound.BoundParams(), meta.Params) {
		problems = append(problems, fmt.Sprintf("%s stage %q: %v", role, meta.ID, err))
	}

	return problems
}
