package kernel

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// NewellNormal returns the (unnormalised) area vector of a planar or
// nearly planar polygon. Its length is twice the polygon area and its
// direction follows the winding by the right-hand rule.
func NewellNormal(pts []r3.Vec) r3.Vec {
	var n r3.Vec
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

// PlaneBasis returns two unit vectors u, v spanning the plane with
// normal n such that u × v = n.
func PlaneBasis(n r3.Vec) (u, v r3.Vec) {
	n = r3.Unit(n)
	if math.Abs(n.X) > 0.9 {
		u = r3.Vec{Y: 1}
	} else {
		u = r3.Vec{X: 1}
	}
	u = r3.Unit(r3.Sub(u, r3.Scale(r3.Dot(u, n), n)))
	v = r3.Cross(n, u)
	return u, v
}

// project maps points onto the plane basis of n. Counter-clockwise
// winding around n stays counter-clockwise in 2D.
func project(pts []r3.Vec, n r3.Vec) []r2.Vec {
	u, v := PlaneBasis(n)
	out := make([]r2.Vec, len(pts))
	for i, p := range pts {
		out[i] = r2.Vec{X: r3.Dot(p, u), Y: r3.Dot(p, v)}
	}
	return out
}

// turn is positive when o, a, b wind counter-clockwise.
func turn(o, a, b r2.Vec) float64 {
	return r2.Cross(r2.Sub(a, o), r2.Sub(b, o))
}

// ErrTooFewPoints is returned when a polygon has fewer than 3 vertices.
var ErrTooFewPoints = errors.New("polygon needs at least 3 vertices")

// TriangulatePolygon ear-clips a simple polygon, wound counter-clockwise
// around normal, into triangles. The returned triangles index into pts.
// Repeated positions (bridge vertices of a polygon with holes) are
// tolerated.
func TriangulatePolygon(pts []r3.Vec, normal r3.Vec) ([][3]int, error) {
	if len(pts) < 3 {
		return nil, ErrTooFewPoints
	}
	if len(pts) == 3 {
		return [][3]int{{0, 1, 2}}, nil
	}
	if r3.Norm(normal) == 0 {
		normal = NewellNormal(pts)
		if r3.Norm(normal) == 0 {
			return nil, errors.New("polygon has no area")
		}
	}

	p2 := project(pts, normal)
	var minX, minY, maxX, maxY = math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)
	for _, p := range p2 {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	size := math.Max(maxX-minX, maxY-minY)
	eps := 1e-12 * size * size

	ring := make([]int, len(pts))
	for i := range ring {
		ring[i] = i
	}

	tris := make([][3]int, 0, len(pts)-2)
	for len(ring) > 3 {
		m := len(ring)
		clipped := -1
		for i := 0; i < m; i++ {
			a, b, c := ring[(i+m-1)%m], ring[i], ring[(i+1)%m]
			if turn(p2[a], p2[b], p2[c]) <= eps {
				continue
			}
			if blocksEar(p2, ring, a, b, c, eps) {
				continue
			}
			clipped = i
			break
		}
		if clipped < 0 {
			// No clean ear: the remainder is degenerate (collinear or
			// self-touching). Clip the least reflex corner to make progress.
			best := math.Inf(-1)
			for i := 0; i < m; i++ {
				a, b, c := ring[(i+m-1)%m], ring[i], ring[(i+1)%m]
				if cr := turn(p2[a], p2[b], p2[c]); cr > best {
					best, clipped = cr, i
				}
			}
		}
		a, b, c := ring[(clipped+m-1)%m], ring[clipped], ring[(clipped+1)%m]
		tris = append(tris, [3]int{a, b, c})
		ring = append(ring[:clipped], ring[clipped+1:]...)
	}
	tris = append(tris, [3]int{ring[0], ring[1], ring[2]})
	return tris, nil
}

// blocksEar reports whether any other ring vertex lies inside or on the
// candidate ear abc. Vertices coincident with a corner are ignored.
func blocksEar(p2 []r2.Vec, ring []int, a, b, c int, eps float64) bool {
	pa, pb, pc := p2[a], p2[b], p2[c]
	for _, j := range ring {
		if j == a || j == b || j == c {
			continue
		}
		q := p2[j]
		if q == pa || q == pb || q == pc {
			continue
		}
		if turn(pa, pb, q) >= -eps && turn(pb, pc, q) >= -eps && turn(pc, pa, q) >= -eps {
			return true
		}
	}
	return false
}

// PolygonContains reports whether q lies inside the polygon pts, using
// the even-odd rule in the plane of normal.
func PolygonContains(pts []r3.Vec, normal, q r3.Vec) bool {
	p2 := project(append(append([]r3.Vec(nil), pts...), q), normal)
	pt := p2[len(p2)-1]
	poly := p2[:len(p2)-1]
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi.Y > pt.Y) != (pj.Y > pt.Y) {
			x := (pj.X-pi.X)*(pt.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// SegmentsCross reports whether the open segments ab and cd properly
// intersect in the plane of normal.
func SegmentsCross(a, b, c, d, normal r3.Vec) bool {
	p := project([]r3.Vec{a, b, c, d}, normal)
	d1 := turn(p[2], p[3], p[0])
	d2 := turn(p[2], p[3], p[1])
	d3 := turn(p[0], p[1], p[2])
	d4 := turn(p[0], p[1], p[3])
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}
