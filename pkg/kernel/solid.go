package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Face is an ordered cycle of vertex indices. Faces are wound
// counter-clockwise when seen from outside the solid, so the outward
// normal follows the right-hand rule.
type Face []int

// Solid is a closed polygonal boundary representation of the gem.
// A Solid is treated as immutable once built; cuts produce new solids.
type Solid struct {
	Vertices []r3.Vec `json:"vertices"`
	Faces    []Face   `json:"faces"`
}

// NewSolid creates a solid from vertices and faces without validating it.
func NewSolid(vertices []r3.Vec, faces []Face) *Solid {
	return &Solid{Vertices: vertices, Faces: faces}
}

// VertexCount returns the number of vertices.
func (s *Solid) VertexCount() int {
	return len(s.Vertices)
}

// FaceCount returns the number of faces.
func (s *Solid) FaceCount() int {
	return len(s.Faces)
}

// EdgeCount returns the number of undirected edges.
func (s *Solid) EdgeCount() int {
	edges := make(map[Edge]struct{})
	for _, f := range s.Faces {
		for i := range f {
			edges[NewEdge(f[i], f[(i+1)%len(f)])] = struct{}{}
		}
	}
	return len(edges)
}

// Clone returns a deep copy of the solid.
func (s *Solid) Clone() *Solid {
	c := &Solid{
		Vertices: make([]r3.Vec, len(s.Vertices)),
		Faces:    make([]Face, len(s.Faces)),
	}
	copy(c.Vertices, s.Vertices)
	for i, f := range s.Faces {
		c.Faces[i] = append(Face(nil), f...)
	}
	return c
}

// BoundingBox returns the axis-aligned bounding box of the vertices.
func (s *Solid) BoundingBox() r3.Box {
	if len(s.Vertices) == 0 {
		return r3.Box{}
	}
	box := r3.Box{Min: s.Vertices[0], Max: s.Vertices[0]}
	for _, v := range s.Vertices[1:] {
		box.Min = r3.Vec{X: math.Min(box.Min.X, v.X), Y: math.Min(box.Min.Y, v.Y), Z: math.Min(box.Min.Z, v.Z)}
		box.Max = r3.Vec{X: math.Max(box.Max.X, v.X), Y: math.Max(box.Max.Y, v.Y), Z: math.Max(box.Max.Z, v.Z)}
	}
	return box
}

// Diagonal returns the length of the bounding box diagonal.
func (s *Solid) Diagonal() float64 {
	box := s.BoundingBox()
	return r3.Norm(r3.Sub(box.Max, box.Min))
}

// FacePoints returns the positions of the vertices of face i.
func (s *Solid) FacePoints(i int) []r3.Vec {
	f := s.Faces[i]
	pts := make([]r3.Vec, len(f))
	for j, idx := range f {
		pts[j] = s.Vertices[idx]
	}
	return pts
}

// FaceNormal returns the unit outward normal of face i, or the zero
// vector for a face with no area.
func (s *Solid) FaceNormal(i int) r3.Vec {
	n := NewellNormal(s.FacePoints(i))
	if r3.Norm(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

// FaceCentroid returns the vertex average of face i.
func (s *Solid) FaceCentroid(i int) r3.Vec {
	return centroid(s.FacePoints(i))
}

// Volume returns the signed enclosed volume. It is positive for a
// correctly oriented closed solid.
func (s *Solid) Volume() float64 {
	var vol float64
	for _, f := range s.Faces {
		if len(f) < 3 {
			continue
		}
		a := s.Vertices[f[0]]
		for j := 1; j+1 < len(f); j++ {
			b := s.Vertices[f[j]]
			c := s.Vertices[f[j+1]]
			vol += r3.Dot(a, r3.Cross(b, c))
		}
	}
	return vol / 6
}

// Centroid returns the average of all vertices.
func (s *Solid) Centroid() r3.Vec {
	return centroid(s.Vertices)
}

// ApproxEqual reports whether two solids have the same topology and
// vertex positions within tol.
func (s *Solid) ApproxEqual(o *Solid, tol float64) bool {
	if len(s.Vertices) != len(o.Vertices) || len(s.Faces) != len(o.Faces) {
		return false
	}
	for i := range s.Vertices {
		d := r3.Sub(s.Vertices[i], o.Vertices[i])
		if math.Abs(d.X) > tol || math.Abs(d.Y) > tol || math.Abs(d.Z) > tol {
			return false
		}
	}
	for i := range s.Faces {
		if len(s.Faces[i]) != len(o.Faces[i]) {
			return false
		}
		for j := range s.Faces[i] {
			if s.Faces[i][j] != o.Faces[i][j] {
				return false
			}
		}
	}
	return true
}

// Triangulate returns a copy of the solid in which every face with more
// than three vertices is split into triangles. Vertices are shared, so
// the result stays watertight.
func (s *Solid) Triangulate() (*Solid, error) {
	out := &Solid{
		Vertices: append([]r3.Vec(nil), s.Vertices...),
		Faces:    make([]Face, 0, len(s.Faces)*2),
	}
	for i, f := range s.Faces {
		if len(f) == 3 {
			out.Faces = append(out.Faces, append(Face(nil), f...))
			continue
		}
		tris, err := TriangulatePolygon(s.FacePoints(i), s.FaceNormal(i))
		if err != nil {
			return nil, err
		}
		for _, t := range tris {
			out.Faces = append(out.Faces, Face{f[t[0]], f[t[1]], f[t[2]]})
		}
	}
	return out, nil
}

// Edge is an undirected edge between two vertex indices, stored with
// the smaller index first.
type Edge [2]int

// NewEdge returns the canonical undirected edge between a and b.
func NewEdge(a, b int) Edge {
	if a < b {
		return Edge{a, b}
	}
	return Edge{b, a}
}

func centroid(pts []r3.Vec) r3.Vec {
	if len(pts) == 0 {
		return r3.Vec{}
	}
	var c r3.Vec
	for _, p := range pts {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(pts)), c)
}
