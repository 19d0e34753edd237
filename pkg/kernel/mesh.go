package kernel

import "fmt"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // "gem", "lap", "mast" or "dop"
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// ToMesh converts the solid into a flat-shaded triangle mesh. Each face
// gets its own copy of its vertices so facets render with hard edges.
func (s *Solid) ToMesh() (*Mesh, error) {
	m := &Mesh{}
	for fi := range s.Faces {
		pts := s.FacePoints(fi)
		n := s.FaceNormal(fi)
		tris, err := TriangulatePolygon(pts, n)
		if err != nil {
			return nil, fmt.Errorf("kernel: face %d: %w", fi, err)
		}

		base := uint32(m.VertexCount())
		for _, p := range pts {
			m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
		for _, t := range tris {
			m.Indices = append(m.Indices, base+uint32(t[0]), base+uint32(t[1]), base+uint32(t[2]))
		}
	}
	return m, nil
}
