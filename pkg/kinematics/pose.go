// Package kinematics maps faceting machine settings to the cutting plane
// and to the placement of the machine parts around the stone.
//
// The stone sits at the origin. The dop axis points along -Y and the
// mast angle is measured from +Y, so a mast angle of 0 cuts the table
// facet perpendicular to the dop.
package kinematics

import (
	"math"

	"github.com/chazu/facet/pkg/kernel"
)

// Pose is the set of machine parameters that determine a cut.
type Pose struct {
	MastAngle float64 `json:"mastAngle"` // degrees from the dop axis, [0, 180]
	Rotation  float64 `json:"rotation"`  // protractor rotation in degrees, [0, 360]
	Index     float64 `json:"index"`     // index gear position, [0, teeth]
	DopLength float64 `json:"dopLength"` // > 0
}

// DefaultPose returns the pose a fresh machine starts in.
func DefaultPose() Pose {
	return Pose{MastAngle: 45, Rotation: 0, Index: 3, DopLength: 3}
}

// Validate checks every field against its domain. The index domain
// depends on the number of teeth on the index gear.
func (p Pose) Validate(teeth int) error {
	if teeth <= 0 {
		teeth = DefaultTeeth
	}
	if err := CheckMastAngle(p.MastAngle); err != nil {
		return err
	}
	if err := CheckRotation(p.Rotation); err != nil {
		return err
	}
	if err := CheckIndex(p.Index, teeth); err != nil {
		return err
	}
	return CheckDopLength(p.DopLength)
}

// CheckMastAngle validates a mast angle in degrees.
func CheckMastAngle(v float64) error { return inRange("mastAngle", v, 0, 180) }

// CheckRotation validates a protractor rotation in degrees.
func CheckRotation(v float64) error { return inRange("rotation", v, 0, 360) }

// CheckIndex validates an index gear position.
func CheckIndex(v float64, teeth int) error { return inRange("index", v, 0, float64(teeth)) }

// CheckDopLength validates a dop length, which must be positive.
func CheckDopLength(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return &kernel.OutOfRangeParameterError{Param: "dopLength", Value: v, Min: 0, Max: math.Inf(1)}
	}
	return nil
}

// Settings are the remaining control panel values. They move and size
// the machine parts but never affect the cutting plane.
type Settings struct {
	MastAdjust     float64 `json:"mastAdjust"`     // mast height factor, [1, 3]
	HeightAdjust   float64 `json:"heightAdjust"`   // mast base lift, [1, 3]
	LapSize        float64 `json:"lapSize"`        // lap radius, [1, 3]
	LapSpeed       float64 `json:"lapSpeed"`       // revolutions per second, [0, 5]
	WaterDripSpeed float64 `json:"waterDripSpeed"` // [0, 5]
}

// DefaultSettings returns the control panel defaults.
func DefaultSettings() Settings {
	return Settings{
		MastAdjust:     1,
		HeightAdjust:   1,
		LapSize:        2,
		LapSpeed:       1,
		WaterDripSpeed: 1,
	}
}

// Validate checks every setting against its domain.
func (s Settings) Validate() error {
	checks := []struct {
		name     string
		v        float64
		min, max float64
	}{
		{"mastAdjust", s.MastAdjust, 1, 3},
		{"heightAdjust", s.HeightAdjust, 1, 3},
		{"lapSize", s.LapSize, 1, 3},
		{"lapSpeed", s.LapSpeed, 0, 5},
		{"waterDripSpeed", s.WaterDripSpeed, 0, 5},
	}
	for _, c := range checks {
		if err := inRange(c.name, c.v, c.min, c.max); err != nil {
			return err
		}
	}
	return nil
}

func inRange(param string, v, min, max float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < min || v > max {
		return &kernel.OutOfRangeParameterError{Param: param, Value: v, Min: min, Max: max}
	}
	return nil
}
