package simulator

import (
	"fmt"

	"github.com/chazu/facet/pkg/engine"
)

// Apply runs a faceting plan against the simulator: it re-seeds the stone
// when the plan names a seed, then executes each step in order. It
// returns one CutResult per cut step, including cuts that changed
// nothing. A step that sets an out-of-range value stops the plan and is
// returned as an error along with the results so far.
func (s *Simulator) Apply(plan *engine.Plan) ([]CutResult, error) {
	if plan == nil {
		return nil, nil
	}
	if plan.Seed != nil {
		if err := s.Reset(plan.Seed.Shape, plan.Seed.Size); err != nil {
			return nil, fmt.Errorf("simulator: seed: %w", err)
		}
	}

	results := make([]CutResult, 0, plan.CutCount())
	for i, step := range plan.Steps {
		if step.Kind == engine.StepCut {
			results = append(results, s.PerformCut())
			continue
		}
		if err := s.setParam(step.Param, step.Value); err != nil {
			return results, fmt.Errorf("simulator: step %d (%s): %w", i, step, err)
		}
	}
	return results, nil
}

func (s *Simulator) setParam(p engine.Param, v float64) error {
	switch p {
	case engine.ParamMast:
		return s.SetMastAngle(v)
	case engine.ParamRotation:
		return s.SetProtractorRotation(v)
	case engine.ParamIndex:
		return s.SetIndexPosition(v)
	case engine.ParamDopLength:
		return s.SetDopLength(v)
	}
	return fmt.Errorf("unknown parameter %q", p)
}
