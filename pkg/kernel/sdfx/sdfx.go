// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. It models the machine
// parts drawn around the stone.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/facet/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 120

// sdfxShape wraps an sdf.SDF3 to implement kernel.Shape.
type sdfxShape struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxShape) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel using DefaultMeshCells.
func New() *SdfxKernel {
	return &SdfxKernel{cells: DefaultMeshCells}
}

// NewWithCells returns a kernel that meshes with the given number of
// marching cubes cells along the longest bounding box side.
func NewWithCells(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Shape.
func unwrap(s kernel.Shape) sdf.SDF3 {
	return s.(*sdfxShape).s
}

// wrap creates a kernel.Shape from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Shape {
	return &sdfxShape{s: s}
}

// Cylinder creates a cylinder centred on the origin with its axis along
// +Y. sdf.Cylinder3D builds along Z, so it is turned onto Y.
func (k *SdfxKernel) Cylinder(height, radius float64) kernel.Shape {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(sdf.Transform3D(s, sdf.RotateX(-math.Pi/2)))
}

// Sphere creates a sphere centred on the origin.
func (k *SdfxKernel) Sphere(radius float64) kernel.Shape {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return wrap(s)
}

// Union returns the union of two shapes.
func (k *SdfxKernel) Union(a, b kernel.Shape) kernel.Shape {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Translate moves a shape by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Shape, x, y, z float64) kernel.Shape {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a shape by Euler angles (degrees) around X, then Y, then Z.
func (k *SdfxKernel) Rotate(s kernel.Shape, x, y, z float64) kernel.Shape {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a shape to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Shape) (*kernel.Mesh, error) {
	if s == nil {
		return nil, fmt.Errorf("sdfx: nil shape")
	}
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
