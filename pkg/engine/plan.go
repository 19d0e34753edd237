package engine

import (
	"fmt"

	"github.com/chazu/facet/pkg/seed"
)

// SeedSpec describes the rough stone a script starts from.
type SeedSpec struct {
	Shape seed.Shape `json:"shape"`
	Size  float64    `json:"size"`
}

// StepKind distinguishes pose changes from cuts.
type StepKind string

const (
	StepSet StepKind = "set"
	StepCut StepKind = "cut"
)

// Param names the machine parameter a StepSet changes.
type Param string

const (
	ParamMast      Param = "mast"
	ParamRotation  Param = "rotation"
	ParamIndex     Param = "index"
	ParamDopLength Param = "dop-length"
)

// Step is one instruction of a faceting plan. Steps run in order against
// a single simulator, so a cut uses whatever pose the preceding steps
// left behind.
type Step struct {
	Kind  StepKind `json:"kind"`
	Param Param    `json:"param,omitempty"`
	Value float64  `json:"value,omitempty"`
}

func (s Step) String() string {
	if s.Kind == StepCut {
		return "cut"
	}
	return fmt.Sprintf("%s %g", s.Param, s.Value)
}

// Plan is the result of evaluating a faceting script. Seed is nil when
// the script cuts the stone already on the dop.
type Plan struct {
	Seed  *SeedSpec `json:"seed,omitempty"`
	Steps []Step    `json:"steps"`
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{Steps: []Step{}}
}

// CutCount reports how many cuts the plan performs.
func (p *Plan) CutCount() int {
	var n int
	for _, s := range p.Steps {
		if s.Kind == StepCut {
			n++
		}
	}
	return n
}

func (p *Plan) set(param Param, v float64) {
	p.Steps = append(p.Steps, Step{Kind: StepSet, Param: param, Value: v})
}

func (p *Plan) cut() {
	p.Steps = append(p.Steps, Step{Kind: StepCut})
}
