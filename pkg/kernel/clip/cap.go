package clip

import (
	"cmp"
	"slices"

	"github.com/chazu/facet/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// loop is one closed chain of cap edges, wound counter-clockwise around
// the plane normal for outer boundaries and clockwise for holes.
type loop struct {
	verts []int
	area  float64 // signed against the plane normal
	holes []*loop
}

func (l *loop) points(verts []r3.Vec) []r3.Vec {
	pts := make([]r3.Vec, len(l.verts))
	for i, idx := range l.verts {
		pts[i] = verts[idx]
	}
	return pts
}

// buildCaps closes the open boundary left by clipping. Every directed
// edge without a reverse is reversed into a cap edge; the cap edges are
// chained into loops, holes are matched to the outer loops that contain
// them, and each outer loop becomes one or more cap faces.
func buildCaps(verts []r3.Vec, side []int8, faces []kernel.Face, n r3.Vec, triangulate bool) ([]kernel.Face, error) {
	directed := make(map[[2]int]struct{}, len(faces)*4)
	for _, f := range faces {
		for i := range f {
			directed[[2]int{f[i], f[(i+1)%len(f)]}] = struct{}{}
		}
	}

	next := make(map[int]int)
	for e := range directed {
		if _, ok := directed[[2]int{e[1], e[0]}]; ok {
			continue
		}
		a, b := e[0], e[1]
		if side[a] != 0 || side[b] != 0 {
			return nil, errUnstable("boundary edge %d-%d is off the plane", a, b)
		}
		if _, dup := next[b]; dup {
			return nil, errUnstable("boundary pinches at vertex %d", b)
		}
		next[b] = a
	}
	if len(next) == 0 {
		return nil, errUnstable("no boundary to close")
	}

	loops, err := chainLoops(next)
	if err != nil {
		return nil, err
	}

	var outers, holes []*loop
	for _, l := range loops {
		l.area = r3.Dot(kernel.NewellNormal(l.points(verts)), n)
		switch {
		case l.area > 0:
			outers = append(outers, l)
		case l.area < 0:
			holes = append(holes, l)
		default:
			return nil, errUnstable("boundary loop at vertex %d has no area", l.verts[0])
		}
	}
	if len(outers) == 0 {
		return nil, errUnstable("no outer boundary loop")
	}

	for _, h := range holes {
		q := verts[h.verts[0]]
		var best *loop
		for _, o := range outers {
			if !kernel.PolygonContains(o.points(verts), n, q) {
				continue
			}
			if best == nil || o.area < best.area {
				best = o
			}
		}
		if best == nil {
			return nil, errUnstable("hole at vertex %d has no enclosing boundary", h.verts[0])
		}
		best.holes = append(best.holes, h)
	}

	var caps []kernel.Face
	for _, o := range outers {
		ring := o.verts
		if len(o.holes) > 0 {
			if ring, err = bridgeHoles(verts, o, n); err != nil {
				return nil, err
			}
		} else if !triangulate {
			caps = append(caps, append(kernel.Face(nil), ring...))
			continue
		}

		pts := make([]r3.Vec, len(ring))
		for i, idx := range ring {
			pts[i] = verts[idx]
		}
		tris, err := kernel.TriangulatePolygon(pts, n)
		if err != nil {
			return nil, errUnstable("triangulating cap: %v", err)
		}
		for _, t := range tris {
			caps = append(caps, kernel.Face{ring[t[0]], ring[t[1]], ring[t[2]]})
		}
	}
	return caps, nil
}

// chainLoops follows the cap edge successor map into closed loops.
// Start vertices are visited in ascending order so the result is
// deterministic.
func chainLoops(next map[int]int) ([]*loop, error) {
	starts := make([]int, 0, len(next))
	for v := range next {
		starts = append(starts, v)
	}
	slices.Sort(starts)

	seen := make(map[int]bool, len(next))
	var loops []*loop
	for _, start := range starts {
		if seen[start] {
			continue
		}
		l := &loop{}
		cur := start
		for !seen[cur] {
			seen[cur] = true
			l.verts = append(l.verts, cur)
			nx, ok := next[cur]
			if !ok {
				return nil, errUnstable("boundary is open at vertex %d", cur)
			}
			cur = nx
		}
		if cur != start {
			return nil, errUnstable("boundary loops merge at vertex %d", cur)
		}
		if len(l.verts) < 3 {
			return nil, errUnstable("boundary loop at vertex %d has %d vertices", start, len(l.verts))
		}
		loops = append(loops, l)
	}
	return loops, nil
}

// bridgeHoles splices the holes of o into its outer ring with pairs of
// coincident bridge edges, giving one simple polygon that the ear
// clipper can handle. Holes are processed from the one reaching
// furthest along the plane's u axis.
func bridgeHoles(verts []r3.Vec, o *loop, n r3.Vec) ([]int, error) {
	u, _ := kernel.PlaneBasis(n)
	reach := func(h *loop) (int, float64) {
		best, at := -1, 0.0
		for i, idx := range h.verts {
			if d := r3.Dot(verts[idx], u); best < 0 || d > at {
				best, at = i, d
			}
		}
		return best, at
	}

	pending := slices.Clone(o.holes)
	slices.SortFunc(pending, func(a, b *loop) int {
		_, ra := reach(a)
		_, rb := reach(b)
		return cmp.Compare(rb, ra)
	})

	ring := slices.Clone(o.verts)
	for len(pending) > 0 {
		h := pending[0]
		hi, _ := reach(h)
		hv := h.verts[hi]

		k := visibleVertex(verts, ring, pending, hv, n)
		if k < 0 {
			return nil, errUnstable("no bridge from hole vertex %d", hv)
		}

		spliced := make([]int, 0, len(ring)+len(h.verts)+2)
		spliced = append(spliced, ring[:k+1]...)
		for j := 0; j <= len(h.verts); j++ {
			spliced = append(spliced, h.verts[(hi+j)%len(h.verts)])
		}
		spliced = append(spliced, ring[k])
		spliced = append(spliced, ring[k+1:]...)
		ring = spliced
		pending = pending[1:]
	}
	return ring, nil
}

// visibleVertex returns the position in ring of the closest vertex that
// can be joined to hv without crossing the ring or any pending hole and
// without leaving the region between them, or -1.
func visibleVertex(verts []r3.Vec, ring []int, pending []*loop, hv int, n r3.Vec) int {
	p := verts[hv]
	order := make([]int, len(ring))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(r3.Norm2(r3.Sub(verts[ring[a]], p)), r3.Norm2(r3.Sub(verts[ring[b]], p)))
	})

	ringPts := make([]r3.Vec, len(ring))
	for i, idx := range ring {
		ringPts[i] = verts[idx]
	}

	crosses := func(a, b r3.Vec, cycle []int) bool {
		for i := range cycle {
			c, d := verts[cycle[i]], verts[cycle[(i+1)%len(cycle)]]
			if kernel.SegmentsCross(a, b, c, d, n) {
				return true
			}
		}
		return false
	}

candidates:
	for _, k := range order {
		q := verts[ring[k]]
		if q == p {
			continue
		}
		if crosses(p, q, ring) {
			continue
		}
		mid := r3.Scale(0.5, r3.Add(p, q))
		if !kernel.PolygonContains(ringPts, n, mid) {
			continue
		}
		for _, h := range pending {
			if crosses(p, q, h.verts) || kernel.PolygonContains(h.points(verts), n, mid) {
				continue candidates
			}
		}
		return k
	}
	return -1
}
