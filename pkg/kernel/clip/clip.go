// Package clip implements the planar boolean cut used by the faceting
// simulator. Every face of the solid is clipped against the cutting plane
// Sutherland–Hodgman style, and the open boundary left behind is closed
// with one or more planar cap faces.
package clip

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/facet/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultEpsilon is the on-plane tolerance relative to the bounding box
// diagonal of the solid being cut.
const DefaultEpsilon = 1e-6

// parallelTolerance decides when a face counts as coplanar with the
// cutting plane for the tie-break rule.
const parallelTolerance = 1e-9

// Compile-time interface check.
var _ kernel.Cutter = (*Cutter)(nil)

// Options tunes the cut.
type Options struct {
	// Epsilon is the on-plane tolerance, relative to the bounding box
	// diagonal. Zero means DefaultEpsilon.
	Epsilon float64 `json:"epsilon"`
	// Triangulate splits every face of the result into triangles, for
	// renderers that only accept triangles.
	Triangulate bool `json:"triangulate"`
	// TriangulateCaps splits only the new cap faces into triangles.
	TriangulateCaps bool `json:"triangulateCaps"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{Epsilon: DefaultEpsilon}
}

// Cutter implements kernel.Cutter with fixed options.
type Cutter struct {
	Options Options
}

// New returns a Cutter using opts.
func New(opts Options) *Cutter {
	return &Cutter{Options: opts}
}

// Subtract removes the half-space beyond p from s.
func (c *Cutter) Subtract(s *kernel.Solid, p kernel.Plane) (*kernel.Solid, error) {
	return Subtract(s, p, c.Options)
}

// Subtract returns s minus the half-space the plane normal points into.
// It never mutates s. On failure it returns a *kernel.InvalidSolidError
// for a malformed input or a *kernel.DegenerateCutError when the cut
// would not produce a changed, valid solid.
func Subtract(s *kernel.Solid, p kernel.Plane, opts Options) (*kernel.Solid, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if r3.Norm(p.Normal) == 0 {
		return nil, &kernel.DegenerateCutError{Reason: kernel.ReasonUnstable, Err: errors.New("plane normal is zero")}
	}
	p = kernel.NewPlane(p.Point, p.Normal)

	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	eps := opts.Epsilon * s.Diagonal()

	if !straddlesBounds(s.BoundingBox(), p, eps) {
		return nil, &kernel.DegenerateCutError{Reason: kernel.ReasonMissesBounds}
	}

	dist, side := classify(s, p, eps)

	var pos, neg int
	for _, sd := range side {
		switch {
		case sd > 0:
			pos++
		case sd < 0:
			neg++
		}
	}
	if pos == 0 {
		return nil, &kernel.DegenerateCutError{Reason: kernel.ReasonNothingRemoved}
	}
	if neg == 0 {
		return nil, &kernel.DegenerateCutError{Reason: kernel.ReasonRemovesAll}
	}

	c := &clipper{
		verts:  append([]r3.Vec(nil), s.Vertices...),
		dist:   dist,
		side:   side,
		splits: make(map[kernel.Edge]int),
	}
	faces := make([]kernel.Face, 0, len(s.Faces)+1)
	for _, f := range s.Faces {
		if out := c.clipFace(f); len(out) >= 3 {
			faces = append(faces, out)
		}
	}

	caps, err := buildCaps(c.verts, c.side, faces, p.Normal, opts.TriangulateCaps)
	if err != nil {
		return nil, &kernel.DegenerateCutError{Reason: kernel.ReasonUnstable, Err: err}
	}
	faces = append(faces, caps...)

	result := compact(c.verts, faces)
	if opts.Triangulate {
		if result, err = result.Triangulate(); err != nil {
			return nil, &kernel.DegenerateCutError{Reason: kernel.ReasonUnstable, Err: err}
		}
	}
	if err := result.Validate(); err != nil {
		return nil, &kernel.DegenerateCutError{Reason: kernel.ReasonUnstable, Err: err}
	}
	return result, nil
}

// straddlesBounds reports whether the box has corners strictly on both
// sides of the plane.
func straddlesBounds(box r3.Box, p kernel.Plane, eps float64) bool {
	var above, below bool
	for _, c := range box.Vertices() {
		d := p.SignedDistance(c)
		above = above || d > eps
		below = below || d < -eps
	}
	return above && below
}

// classify computes signed distances and sides (+1 removed, -1 kept,
// 0 on the plane) for every vertex. Faces parallel to the plane are
// never split: all their vertices take the side of the face centroid.
func classify(s *kernel.Solid, p kernel.Plane, eps float64) ([]float64, []int8) {
	dist := make([]float64, len(s.Vertices))
	side := make([]int8, len(s.Vertices))
	for i, v := range s.Vertices {
		dist[i] = p.SignedDistance(v)
		side[i] = sideOf(dist[i], eps)
	}

	for fi, f := range s.Faces {
		n := s.FaceNormal(fi)
		if math.Abs(r3.Dot(n, p.Normal)) < 1-parallelTolerance {
			continue
		}
		d := p.SignedDistance(s.FaceCentroid(fi))
		sd := sideOf(d, eps)
		for _, idx := range f {
			side[idx] = sd
			if sd == 0 {
				dist[idx] = 0
			}
		}
	}
	return dist, side
}

func sideOf(d, eps float64) int8 {
	switch {
	case d > eps:
		return 1
	case d < -eps:
		return -1
	default:
		return 0
	}
}

// clipper carries the growing vertex list while faces are clipped.
// Intersection vertices are memoised per undirected edge so that the two
// faces sharing an edge also share its intersection vertex.
type clipper struct {
	verts  []r3.Vec
	dist   []float64
	side   []int8
	splits map[kernel.Edge]int
}

// clipFace clips one face against the plane and returns the kept part,
// or nil when nothing of the face survives.
func (c *clipper) clipFace(f kernel.Face) kernel.Face {
	var anyPos, anyNeg bool
	for _, idx := range f {
		anyPos = anyPos || c.side[idx] > 0
		anyNeg = anyNeg || c.side[idx] < 0
	}
	switch {
	case !anyNeg:
		// Entirely removed, or lying on the plane; the cap rebuilds it.
		return nil
	case !anyPos:
		return append(kernel.Face(nil), f...)
	}

	out := make(kernel.Face, 0, len(f)+1)
	for i := range f {
		cur, next := f[i], f[(i+1)%len(f)]
		sc, sn := c.side[cur], c.side[next]
		if sc <= 0 {
			out = append(out, cur)
		}
		if sc*sn < 0 {
			out = append(out, c.split(cur, next))
		}
	}
	return out
}

// split returns the vertex where edge ab crosses the plane, creating it
// on first use. The point is always interpolated from the lower index so
// both faces sharing the edge see bit-identical coordinates.
func (c *clipper) split(a, b int) int {
	e := kernel.NewEdge(a, b)
	if idx, ok := c.splits[e]; ok {
		return idx
	}
	lo, hi := e[0], e[1]
	t := c.dist[lo] / (c.dist[lo] - c.dist[hi])
	t = math.Max(0, math.Min(1, t))
	pt := r3.Add(c.verts[lo], r3.Scale(t, r3.Sub(c.verts[hi], c.verts[lo])))

	c.verts = append(c.verts, pt)
	c.dist = append(c.dist, 0)
	c.side = append(c.side, 0)
	idx := len(c.verts) - 1
	c.splits[e] = idx
	return idx
}

// compact drops vertices no face references and renumbers the rest,
// preserving their order.
func compact(verts []r3.Vec, faces []kernel.Face) *kernel.Solid {
	remap := make([]int, len(verts))
	for i := range remap {
		remap[i] = -1
	}
	for _, f := range faces {
		for _, idx := range f {
			remap[idx] = 0
		}
	}
	out := &kernel.Solid{}
	for i, v := range verts {
		if remap[i] < 0 {
			continue
		}
		remap[i] = len(out.Vertices)
		out.Vertices = append(out.Vertices, v)
	}
	out.Faces = make([]kernel.Face, len(faces))
	for fi, f := range faces {
		nf := make(kernel.Face, len(f))
		for j, idx := range f {
			nf[j] = remap[idx]
		}
		out.Faces[fi] = nf
	}
	return out
}

// errUnstable wraps a formatted message for cap construction failures.
func errUnstable(format string, args ...any) error {
	return fmt.Errorf("cap: "+format, args...)
}
