package kernel

import "fmt"

// Validate checks that the solid is a closed, consistently oriented
// manifold with positive volume. It returns an *InvalidSolidError
// describing the first problem found, or nil. Validate is read-only.
func (s *Solid) Validate() error {
	if s == nil {
		return &InvalidSolidError{Reason: "nil solid"}
	}
	if len(s.Vertices) < 4 {
		return &InvalidSolidError{Reason: fmt.Sprintf("%d vertices, need at least 4", len(s.Vertices))}
	}
	if len(s.Faces) < 4 {
		return &InvalidSolidError{Reason: fmt.Sprintf("%d faces, need at least 4", len(s.Faces))}
	}

	// Each directed edge must occur exactly once and be matched by its
	// reverse in another face. That makes every undirected edge border
	// exactly two faces with opposite orientation.
	directed := make(map[[2]int]int, len(s.Faces)*4)
	for fi, f := range s.Faces {
		if len(f) < 3 {
			return &InvalidSolidError{Reason: fmt.Sprintf("face %d has %d vertices", fi, len(f))}
		}
		for i := range f {
			a, b := f[i], f[(i+1)%len(f)]
			if a < 0 || a >= len(s.Vertices) {
				return &InvalidSolidError{Reason: fmt.Sprintf("face %d references vertex %d out of range", fi, a)}
			}
			if a == b {
				return &InvalidSolidError{Reason: fmt.Sprintf("face %d repeats vertex %d", fi, a)}
			}
			key := [2]int{a, b}
			if prev, ok := directed[key]; ok {
				return &InvalidSolidError{Reason: fmt.Sprintf("edge %d->%d used by faces %d and %d in the same direction", a, b, prev, fi)}
			}
			directed[key] = fi
		}
	}
	for e := range directed {
		if _, ok := directed[[2]int{e[1], e[0]}]; !ok {
			return &InvalidSolidError{Reason: fmt.Sprintf("edge %d-%d borders only one face", e[0], e[1])}
		}
	}

	if vol := s.Volume(); vol <= 0 {
		return &InvalidSolidError{Reason: fmt.Sprintf("enclosed volume %.6g is not positive (faces inverted?)", vol)}
	}
	return nil
}

// IsManifold reports whether every edge borders exactly two faces.
func (s *Solid) IsManifold() bool {
	counts := make(map[Edge]int)
	for _, f := range s.Faces {
		for i := range f {
			counts[NewEdge(f[i], f[(i+1)%len(f)])]++
		}
	}
	for _, c := range counts {
		if c != 2 {
			return false
		}
	}
	return len(counts) > 0
}

// EulerCharacteristic returns V - E + F, which is 2 for a closed solid
// of genus zero.
func (s *Solid) EulerCharacteristic() int {
	return s.VertexCount() - s.EdgeCount() + s.FaceCount()
}
