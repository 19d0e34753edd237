package kinematics

import (
	"math"

	"github.com/chazu/facet/pkg/kernel"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultTeeth is the tooth count of the standard index gear.
	DefaultTeeth = 16
	// DefaultOffset is the distance of the cutting plane from the stone
	// centre. It sets the facet depth.
	DefaultOffset = 0.5
	// DefaultLapThickness is the thickness of the lap disc.
	DefaultLapThickness = 0.1
)

// Config holds the machine constants.
type Config struct {
	Offset       float64 `json:"offset"`
	Teeth        int     `json:"teeth"`
	LapThickness float64 `json:"lapThickness"`
}

// DefaultConfig returns the standard machine.
func DefaultConfig() Config {
	return Config{
		Offset:       DefaultOffset,
		Teeth:        DefaultTeeth,
		LapThickness: DefaultLapThickness,
	}
}

func (c Config) teeth() int {
	if c.Teeth <= 0 {
		return DefaultTeeth
	}
	return c.Teeth
}

// IndexAngle returns the azimuth in radians of an index position.
// Positions wrap, so the last tooth maps back to exactly zero.
// Fractional positions interpolate between teeth.
func IndexAngle(index float64, teeth int) float64 {
	if teeth <= 0 {
		teeth = DefaultTeeth
	}
	t := float64(teeth)
	idx := math.Mod(index, t)
	if idx < 0 {
		idx += t
	}
	return idx / t * 2 * math.Pi
}

// Azimuth returns the heading of the facet around the dop axis in
// radians: the index position plus the protractor rotation. Both turn
// from +X towards +Z.
func Azimuth(p Pose, cfg Config) float64 {
	return IndexAngle(p.Index, cfg.teeth()) + mgl64.DegToRad(math.Mod(p.Rotation, 360))
}

// Normal returns the unit normal of the cutting plane for a pose. The
// index normal is turned about +Y by the protractor rotation, in the
// same sense as the index gear.
func Normal(p Pose, cfg Config) r3.Vec {
	mast := mgl64.DegToRad(p.MastAngle)
	az := IndexAngle(p.Index, cfg.teeth())

	n0 := mgl64.Vec3{
		math.Sin(mast) * math.Cos(az),
		math.Cos(mast),
		math.Sin(mast) * math.Sin(az),
	}
	q := mgl64.QuatRotate(-mgl64.DegToRad(math.Mod(p.Rotation, 360)), mgl64.Vec3{0, 1, 0})
	n := q.Rotate(n0).Normalize()
	return r3.Vec{X: n[0], Y: n[1], Z: n[2]}
}

// CuttingPlane returns the plane the lap surface occupies for a pose.
// Material on the side the normal points into is removed.
func CuttingPlane(p Pose, cfg Config) kernel.Plane {
	n := Normal(p, cfg)
	return kernel.Plane{Point: r3.Scale(cfg.Offset, n), Normal: n}
}
