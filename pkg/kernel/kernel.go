// Package kernel defines the geometric core of the faceting simulator:
// the boundary-represented gem Solid, the cutting Plane, render meshes,
// and the two backend interfaces. A Cutter subtracts half-spaces from
// solids; a Kernel models the machine parts shown next to the stone.
// The kernel abstraction keeps backends swappable without touching the
// orchestrator or the presentation adapter.
package kernel

// Cutter removes the positive half-space of a plane from a solid.
// Implementations must be pure: the input solid is never mutated and a
// failed cut returns no solid at all.
type Cutter interface {
	Subtract(s *Solid, p Plane) (*Solid, error)
}

// Shape is an opaque handle to a machine-part solid in a modelling
// backend. Implementations wrap their internal representation.
type Shape interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel models the machine parts (lap, mast, dop) for rendering.
// All primitives are centered at the origin with their axis along +Y.
type Kernel interface {
	// Primitives
	Cylinder(height, radius float64) Shape
	Sphere(radius float64) Shape

	// Boolean operations
	Union(a, b Shape) Shape

	// Transforms
	Translate(s Shape, x, y, z float64) Shape
	Rotate(s Shape, x, y, z float64) Shape // Euler angles in degrees, applied X then Y then Z

	// Mesh output
	ToMesh(s Shape) (*Mesh, error)
}
