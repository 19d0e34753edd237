// Package seed builds the rough stones a faceting session starts from.
// Every generator returns a closed, outward-wound kernel.Solid centred
// on the origin.
package seed

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/chazu/facet/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Shape names a seed generator.
type Shape string

const (
	Round        Shape = "round"
	Cube         Shape = "cube"
	Octahedron   Shape = "octahedron"
	Dodecahedron Shape = "dodecahedron"
)

// Shapes lists the known seed shapes in a stable order.
var Shapes = []Shape{Round, Cube, Octahedron, Dodecahedron}

// ParseShape resolves a shape name. "sphere" is accepted for Round and
// matching ignores case and a leading colon.
func ParseShape(name string) (Shape, error) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ":"))
	if name == "sphere" {
		return Round, nil
	}
	if slices.Contains(Shapes, Shape(name)) {
		return Shape(name), nil
	}
	return "", fmt.Errorf("seed: unknown shape %q", name)
}

// Options controls tessellation of curved seeds.
type Options struct {
	Segments int `json:"segments"` // around the Y axis
	Rings    int `json:"rings"`    // pole to pole
}

// DefaultOptions matches the 32×32 sphere the simulator has always
// started from.
func DefaultOptions() Options {
	return Options{Segments: 32, Rings: 32}
}

// New builds a seed of the given shape. For a cube size is the half
// extent; for the other shapes it is the circumradius.
func New(shape Shape, size float64, opts Options) (*kernel.Solid, error) {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return nil, &kernel.OutOfRangeParameterError{Param: "size", Value: size, Min: 0, Max: math.Inf(1)}
	}
	switch shape {
	case Round:
		if opts.Segments == 0 && opts.Rings == 0 {
			opts = DefaultOptions()
		}
		return NewSphere(size, opts.Segments, opts.Rings)
	case Cube:
		return NewCube(size), nil
	case Octahedron:
		return NewOctahedron(size), nil
	case Dodecahedron:
		return NewDodecahedron(size), nil
	default:
		return nil, fmt.Errorf("seed: unknown shape %q", shape)
	}
}

// NewCube returns an axis-aligned cube spanning [-half, half] on every axis.
func NewCube(half float64) *kernel.Solid {
	verts := make([]r3.Vec, 8)
	for i := range verts {
		verts[i] = r3.Vec{
			X: sign(i&1 != 0) * half,
			Y: sign(i&2 != 0) * half,
			Z: sign(i&4 != 0) * half,
		}
	}
	faces := []kernel.Face{
		{0, 4, 6, 2}, // -X
		{1, 3, 7, 5}, // +X
		{0, 1, 5, 4}, // -Y
		{2, 6, 7, 3}, // +Y
		{0, 2, 3, 1}, // -Z
		{4, 5, 7, 6}, // +Z
	}
	return kernel.NewSolid(verts, faces)
}

// NewOctahedron returns a regular octahedron with its vertices on the axes.
func NewOctahedron(radius float64) *kernel.Solid {
	verts := []r3.Vec{
		{X: radius}, {X: -radius},
		{Y: radius}, {Y: -radius},
		{Z: radius}, {Z: -radius},
	}
	faces := make([]kernel.Face, 0, 8)
	for i := 0; i < 8; i++ {
		x, y, z := i&1, 2+(i>>1&1), 4+(i>>2&1)
		faces = append(faces, kernel.Face{x, y, z})
	}
	s := kernel.NewSolid(verts, faces)
	orientOutward(s)
	return s
}

// NewDodecahedron returns a regular dodecahedron scaled to the given
// circumradius.
func NewDodecahedron(radius float64) *kernel.Solid {
	phi := (1 + math.Sqrt(5)) / 2
	inv := 1 / phi

	var verts []r3.Vec
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				verts = append(verts, r3.Vec{X: sx, Y: sy, Z: sz})
			}
			verts = append(verts,
				r3.Vec{Y: sx * inv, Z: sy * phi},
				r3.Vec{X: sx * inv, Y: sy * phi},
				r3.Vec{X: sx * phi, Z: sy * inv},
			)
		}
	}

	// Face normals point at the vertices of the dual icosahedron.
	var normals []r3.Vec
	for _, a := range []float64{-1, 1} {
		for _, b := range []float64{-1, 1} {
			normals = append(normals,
				r3.Vec{Y: a * phi, Z: b},
				r3.Vec{X: a, Z: b * phi},
				r3.Vec{X: a * phi, Y: b},
			)
		}
	}

	scale := radius / math.Sqrt(3)
	for i := range verts {
		verts[i] = r3.Scale(scale, verts[i])
	}
	return hullFromNormals(verts, normals)
}

// NewSphere returns a UV sphere with the given number of segments around
// the Y axis and rings from pole to pole. The poles are single vertices.
func NewSphere(radius float64, segments, rings int) (*kernel.Solid, error) {
	if segments < 3 {
		return nil, &kernel.OutOfRangeParameterError{Param: "segments", Value: float64(segments), Min: 3, Max: math.Inf(1)}
	}
	if rings < 2 {
		return nil, &kernel.OutOfRangeParameterError{Param: "rings", Value: float64(rings), Min: 2, Max: math.Inf(1)}
	}

	verts := []r3.Vec{{Y: radius}}
	for i := 1; i < rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		for j := 0; j < segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			verts = append(verts, r3.Vec{
				X: radius * math.Sin(theta) * math.Cos(phi),
				Y: radius * math.Cos(theta),
				Z: radius * math.Sin(theta) * math.Sin(phi),
			})
		}
	}
	bottom := len(verts)
	verts = append(verts, r3.Vec{Y: -radius})

	at := func(ring, seg int) int {
		return 1 + (ring-1)*segments + seg%segments
	}

	var faces []kernel.Face
	for j := 0; j < segments; j++ {
		faces = append(faces, kernel.Face{0, at(1, j), at(1, j+1)})
	}
	for i := 1; i < rings-1; i++ {
		for j := 0; j < segments; j++ {
			faces = append(faces, kernel.Face{at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)})
		}
	}
	for j := 0; j < segments; j++ {
		faces = append(faces, kernel.Face{bottom, at(rings-1, j+1), at(rings-1, j)})
	}

	s := kernel.NewSolid(verts, faces)
	orientOutward(s)
	return s, nil
}

// hullFromNormals builds the faces of a convex polyhedron whose face
// normals are known: each face takes the vertices furthest along its
// normal, ordered counter-clockwise around it.
func hullFromNormals(verts []r3.Vec, normals []r3.Vec) *kernel.Solid {
	faces := make([]kernel.Face, 0, len(normals))
	for _, n := range normals {
		n = r3.Unit(n)
		best := math.Inf(-1)
		for _, v := range verts {
			best = math.Max(best, r3.Dot(v, n))
		}
		var face kernel.Face
		for i, v := range verts {
			if r3.Dot(v, n) >= best-1e-9 {
				face = append(face, i)
			}
		}

		var c r3.Vec
		for _, idx := range face {
			c = r3.Add(c, verts[idx])
		}
		c = r3.Scale(1/float64(len(face)), c)
		u, w := kernel.PlaneBasis(n)
		angle := func(idx int) float64 {
			d := r3.Sub(verts[idx], c)
			return math.Atan2(r3.Dot(d, w), r3.Dot(d, u))
		}
		slices.SortFunc(face, func(a, b int) int {
			switch aa, ab := angle(a), angle(b); {
			case aa < ab:
				return -1
			case aa > ab:
				return 1
			}
			return 0
		})
		faces = append(faces, face)
	}
	return kernel.NewSolid(verts, faces)
}

// orientOutward reverses any face whose normal points towards the origin.
// It is only valid for convex solids containing the origin.
func orientOutward(s *kernel.Solid) {
	for i, f := range s.Faces {
		n := kernel.NewellNormal(s.FacePoints(i))
		if r3.Dot(n, s.FaceCentroid(i)) < 0 {
			slices.Reverse(f)
		}
	}
}

func sign(pos bool) float64 {
	if pos {
		return 1
	}
	return -1
}
