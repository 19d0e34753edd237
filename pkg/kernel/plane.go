package kernel

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is an infinite cutting plane through Point with unit Normal.
// The half-space the normal points into is the side that gets removed;
// points with SignedDistance <= 0 are kept.
type Plane struct {
	Point  r3.Vec `json:"point"`
	Normal r3.Vec `json:"normal"`
}

// NewPlane builds a plane, normalising the normal.
func NewPlane(point, normal r3.Vec) Plane {
	return Plane{Point: point, Normal: r3.Unit(normal)}
}

// SignedDistance returns the distance of p from the plane, positive on
// the removed side.
func (p Plane) SignedDistance(v r3.Vec) float64 {
	return r3.Dot(p.Normal, r3.Sub(v, p.Point))
}

// Offset returns the plane constant d in Normal·x = d.
func (p Plane) Offset() float64 {
	return r3.Dot(p.Normal, p.Point)
}

// Flip returns the same plane with the removed side reversed.
func (p Plane) Flip() Plane {
	return Plane{Point: p.Point, Normal: r3.Scale(-1, p.Normal)}
}

func (p Plane) String() string {
	return fmt.Sprintf("plane(n=(%.4f, %.4f, %.4f) d=%.4f)", p.Normal.X, p.Normal.Y, p.Normal.Z, p.Offset())
}
