//go:build manifold

// Package manifold models the machine parts with the Manifold library
// (https://github.com/elalish/manifold) through cgo. The lap, mast and
// dop come out as exact polyhedra rather than marching-cubes surfaces.
//
// Needs manifoldc installed under /usr/local. Build with -tags=manifold.
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/facet/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Shape = (*manifoldShape)(nil)

// manifoldShape wraps a C ManifoldManifold pointer and implements kernel.Shape.
type manifoldShape struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the shape.
func (s *manifoldShape) BoundingBox() (min, max [3]float64) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

// newShape wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newShape(ptr *C.ManifoldManifold) *manifoldShape {
	s := &manifoldShape{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldShape) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// DefaultSegments is the number of facets around curved machine parts.
const DefaultSegments = 48

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct {
	segments int
}

// ErrUnavailable is never returned in manifold builds; it exists so callers
// compile against both builds.
var ErrUnavailable = errors.New("manifold part kernel not available: build with -tags=manifold")

// New returns a kernel that builds curved parts from DefaultSegments
// facets.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{segments: DefaultSegments}, nil
}

// Cylinder creates a cylinder centred on the origin with its axis along
// +Y. Manifold builds cylinders along Z, so it is turned onto Y.
func (k *ManifoldKernel) Cylinder(height, radius float64) kernel.Shape {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cylinder(alloc,
		C.double(height),
		C.double(radius), // radius_low
		C.double(radius), // radius_high (same = not tapered)
		C.int(k.segments),
		C.int(1), // center=true
	)
	defer C.manifold_delete_manifold(ptr)

	upright := C.manifold_alloc_manifold()
	return newShape(C.manifold_rotate(upright, ptr, C.double(-90), 0, 0))
}

// Sphere creates a sphere centred on the origin.
func (k *ManifoldKernel) Sphere(radius float64) kernel.Shape {
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_sphere(alloc, C.double(radius), C.int(k.segments))
	return newShape(ptr)
}

// Union returns the boolean union of two shapes.
func (k *ManifoldKernel) Union(a, b kernel.Shape) kernel.Shape {
	sa := a.(*manifoldShape)
	sb := b.(*manifoldShape)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_union(alloc, sa.ptr, sb.ptr)
	return newShape(ptr)
}

// Translate moves the shape by (x, y, z).
func (k *ManifoldKernel) Translate(s kernel.Shape, x, y, z float64) kernel.Shape {
	ms := s.(*manifoldShape)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_translate(alloc, ms.ptr,
		C.double(x), C.double(y), C.double(z),
	)
	return newShape(ptr)
}

// Rotate rotates the shape by Euler angles (in degrees) around X, then Y, then Z.
func (k *ManifoldKernel) Rotate(s kernel.Shape, x, y, z float64) kernel.Shape {
	ms := s.(*manifoldShape)
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_rotate(alloc, ms.ptr,
		C.double(x), C.double(y), C.double(z),
	)
	return newShape(ptr)
}

// ToMesh extracts the triangles of the shape from Manifold's MeshGL and
// flat-shades them, so the parts render with the same hard edges as the
// gem. Only positions are read from the vertex properties.
func (k *ManifoldKernel) ToMesh(s kernel.Shape) (*kernel.Mesh, error) {
	ms, ok := s.(*manifoldShape)
	if !ok || ms == nil {
		return nil, fmt.Errorf("manifold: not a manifold shape: %T", s)
	}

	meshAlloc := C.manifold_alloc_meshgl()
	meshGL := C.manifold_get_meshgl(meshAlloc, ms.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	numProp := int(C.manifold_meshgl_num_prop(meshGL))
	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}
	if numProp < 3 {
		return nil, fmt.Errorf("manifold: %d vertex properties, need at least 3", numProp)
	}

	props := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), meshGL)
	tris := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&tris[0])), meshGL)

	pos := func(i uint32) r3.Vec {
		b := int(i) * numProp
		return r3.Vec{X: float64(props[b]), Y: float64(props[b+1]), Z: float64(props[b+2])}
	}
	return flatMesh(numTri, func(t, corner int) r3.Vec { return pos(tris[t*3+corner]) }), nil
}

// flatMesh unwelds n triangles so every corner carries its face normal.
func flatMesh(n int, corner func(t, c int) r3.Vec) *kernel.Mesh {
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, n*9),
		Normals:  make([]float32, 0, n*9),
		Indices:  make([]uint32, 0, n*3),
	}
	for t := 0; t < n; t++ {
		a, b, c := corner(t, 0), corner(t, 1), corner(t, 2)
		normal := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if l := r3.Norm(normal); l > 1e-12 {
			normal = r3.Scale(1/l, normal)
		}
		for _, v := range [3]r3.Vec{a, b, c} {
			m.Indices = append(m.Indices, uint32(len(m.Vertices)/3))
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(normal.X), float32(normal.Y), float32(normal.Z))
		}
	}
	return m
}
