package clip_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/kernel/clip"
	"github.com/chazu/facet/pkg/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func plane(px, py, pz, nx, ny, nz float64) kernel.Plane {
	return kernel.NewPlane(r3.Vec{X: px, Y: py, Z: pz}, r3.Vec{X: nx, Y: ny, Z: nz})
}

func requireDegenerate(t *testing.T, err error, want kernel.DegenerateReason) {
	t.Helper()
	var de *kernel.DegenerateCutError
	require.True(t, errors.As(err, &de), "expected DegenerateCutError, got %v", err)
	assert.Equal(t, want, de.Reason)
}

// frame returns a square picture frame: a 4×2×4 block with a 2×2 hole
// running along Y. Cutting it across Y leaves a cap with a hole.
func frame() *kernel.Solid {
	outer := [][2]float64{{-2, -2}, {2, -2}, {2, 2}, {-2, 2}}
	inner := [][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	var verts []r3.Vec
	for _, ring := range []struct {
		xz [][2]float64
		y  float64
	}{{outer, 1}, {inner, 1}, {outer, -1}, {inner, -1}} {
		for _, c := range ring.xz {
			verts = append(verts, r3.Vec{X: c[0], Y: ring.y, Z: c[1]})
		}
	}
	ot := func(k int) int { return k % 4 }
	it := func(k int) int { return 4 + k%4 }
	ob := func(k int) int { return 8 + k%4 }
	ib := func(k int) int { return 12 + k%4 }

	var faces []kernel.Face
	for k := 0; k < 4; k++ {
		faces = append(faces,
			kernel.Face{ot(k), it(k), it(k + 1), ot(k + 1)}, // top
			kernel.Face{ob(k), ob(k + 1), ib(k + 1), ib(k)}, // bottom
			kernel.Face{ob(k), ot(k), ot(k + 1), ob(k + 1)}, // outer wall
			kernel.Face{ib(k), ib(k + 1), it(k + 1), it(k)}, // inner wall
		)
	}
	return kernel.NewSolid(verts, faces)
}

func TestCubeTopCut(t *testing.T) {
	cube := seed.NewCube(1)
	before := cube.Clone()

	out, err := clip.Subtract(cube, plane(0, 0.5, 0, 0, 1, 0), clip.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.Equal(t, 8, out.VertexCount())
	assert.Equal(t, 6, out.FaceCount())
	assert.Equal(t, 12, out.EdgeCount())
	assert.InDelta(t, 6.0, out.Volume(), 1e-9)
	assert.InDelta(t, 0.5, out.BoundingBox().Max.Y, 1e-12)
	assert.True(t, cube.ApproxEqual(before, 0), "input solid was mutated")
}

func TestCubeCornerCut(t *testing.T) {
	n := r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})
	p := kernel.NewPlane(r3.Scale(1.5/math.Sqrt(3), n), n)

	out, err := clip.Subtract(seed.NewCube(1), p, clip.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.Equal(t, 10, out.VertexCount())
	assert.Equal(t, 7, out.FaceCount())
	assert.Equal(t, 15, out.EdgeCount())
	assert.InDelta(t, 8-0.125/6, out.Volume(), 1e-9)
}

func TestCutThroughExistingVertices(t *testing.T) {
	// x+y+z = 1 passes through three cube corners and cuts no edges.
	n := r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})
	p := kernel.NewPlane(r3.Scale(1/math.Sqrt(3), n), n)

	out, err := clip.Subtract(seed.NewCube(1), p, clip.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.Equal(t, 7, out.VertexCount())
	assert.Equal(t, 7, out.FaceCount())
	assert.Equal(t, 2, out.EulerCharacteristic())
	assert.InDelta(t, 8-8.0/6, out.Volume(), 1e-9)
}

func TestSphereHalfVolume(t *testing.T) {
	sphere, err := seed.New(seed.Round, 1, seed.DefaultOptions())
	require.NoError(t, err)

	normals := []r3.Vec{
		{X: 1, Y: 1},
		{Y: 1},
		{X: 0.3, Y: -0.2, Z: 0.9},
	}
	for _, n := range normals {
		out, err := clip.Subtract(sphere, kernel.NewPlane(r3.Vec{}, n), clip.DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, out.Validate())
		assert.InDelta(t, sphere.Volume()/2, out.Volume(), sphere.Volume()*0.01, "normal %v", n)
	}
}

func TestRepeatCutIsNoOp(t *testing.T) {
	sphere, err := seed.New(seed.Round, 1, seed.DefaultOptions())
	require.NoError(t, err)
	p := plane(0, 0, 0, 0.6, 0.8, 0)
	p = kernel.NewPlane(r3.Scale(0.5, p.Normal), p.Normal)

	once, err := clip.Subtract(sphere, p, clip.DefaultOptions())
	require.NoError(t, err)

	_, err = clip.Subtract(once, p, clip.DefaultOptions())
	requireDegenerate(t, err, kernel.ReasonNothingRemoved)
}

func TestPlaneMissingSolid(t *testing.T) {
	cube := seed.NewCube(1)
	tests := []struct {
		name string
		p    kernel.Plane
	}{
		{"above", plane(0, 5, 0, 0, 1, 0)},
		{"below", plane(0, -5, 0, 0, 1, 0)},
		{"touching face", plane(0, 1, 0, 0, 1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := clip.Subtract(cube, tt.p, clip.DefaultOptions())
			assert.Nil(t, out)
			requireDegenerate(t, err, kernel.ReasonMissesBounds)
			assert.Equal(t, 8, cube.VertexCount())
			assert.Equal(t, 6, cube.FaceCount())
		})
	}
}

func TestTangentPlaneRemovesNothing(t *testing.T) {
	oct := seed.NewOctahedron(1)
	n := r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})

	// The plane through the face x+y+z=1 touches the solid only on that face.
	_, err := clip.Subtract(oct, kernel.NewPlane(r3.Scale(1/math.Sqrt(3), n), n), clip.DefaultOptions())
	requireDegenerate(t, err, kernel.ReasonNothingRemoved)
}

func TestPlaneRemovingEverything(t *testing.T) {
	oct := seed.NewOctahedron(1)
	n := r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})

	// x+y+z = -1.5 crosses the bounding box but lies beyond every vertex.
	_, err := clip.Subtract(oct, kernel.NewPlane(r3.Scale(-1.5/math.Sqrt(3), n), n), clip.DefaultOptions())
	requireDegenerate(t, err, kernel.ReasonRemovesAll)
}

func TestRandomCutsStayManifold(t *testing.T) {
	s, err := seed.New(seed.Round, 1, seed.DefaultOptions())
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(7, 11))

	var applied int
	for i := 0; i < 40; i++ {
		n := r3.Unit(r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()})
		p := kernel.NewPlane(r3.Scale(0.4+0.4*rng.Float64(), n), n)

		out, err := clip.Subtract(s, p, clip.DefaultOptions())
		if kernel.IsDegenerate(err) {
			var de *kernel.DegenerateCutError
			require.ErrorAs(t, err, &de)
			require.NotEqual(t, kernel.ReasonUnstable, de.Reason, "cut %d: %v", i, err)
			continue
		}
		require.NoError(t, err, "cut %d", i)
		require.NoError(t, out.Validate(), "cut %d", i)
		assert.True(t, out.IsManifold(), "cut %d", i)
		assert.Equal(t, 2, out.EulerCharacteristic(), "cut %d", i)
		assert.Less(t, out.Volume(), s.Volume(), "cut %d", i)
		s = out
		applied++
	}
	assert.Greater(t, applied, 5)
}

func TestCapWithHole(t *testing.T) {
	f := frame()
	require.NoError(t, f.Validate())
	require.InDelta(t, 24.0, f.Volume(), 1e-9)
	require.Equal(t, 0, f.EulerCharacteristic())

	out, err := clip.Subtract(f, plane(0, 0, 0, 0, 1, 0), clip.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.InDelta(t, 12.0, out.Volume(), 1e-9)
	assert.Equal(t, 0, out.EulerCharacteristic())

	var capTris int
	for i := range out.Faces {
		if n := out.FaceNormal(i); n.Y > 1-1e-9 {
			assert.Len(t, out.Faces[i], 3)
			capTris++
		}
	}
	// Outer square, hole square and two bridge copies give a ten sided ring.
	assert.Equal(t, 8, capTris)
}

// lPrism extrudes an L of area 3 from z=0 to z=1. The step face at y=1
// covers x in [1,2].
func lPrism() *kernel.Solid {
	outline := [][2]float64{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}}
	n := len(outline)
	var verts []r3.Vec
	for _, z := range []float64{0, 1} {
		for _, c := range outline {
			verts = append(verts, r3.Vec{X: c[0], Y: c[1], Z: z})
		}
	}
	top := make(kernel.Face, n)
	bottom := make(kernel.Face, n)
	for i := range outline {
		top[i] = n + i
		bottom[i] = n - 1 - i
	}
	faces := []kernel.Face{top, bottom}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		faces = append(faces, kernel.Face{i, j, n + j, n + i})
	}
	return kernel.NewSolid(verts, faces)
}

func TestFaceOnPlaneIsRecapped(t *testing.T) {
	l := lPrism()
	require.NoError(t, l.Validate())
	require.InDelta(t, 3.0, l.Volume(), 1e-12)

	p := plane(0, 1, 0, 0, 1, 0)
	out, err := clip.Subtract(l, p, clip.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.InDelta(t, 2.0, out.Volume(), 1e-9)
	assert.Equal(t, 6, out.FaceCount())
	assert.True(t, out.IsManifold())
	assert.InDelta(t, 1.0, out.BoundingBox().Max.Y, 1e-12)

	var onPlane int
	for i := range out.Faces {
		if out.FaceNormal(i).Y > 1-1e-9 {
			onPlane++
		}
	}
	assert.Equal(t, 1, onPlane, "the old step face and the cut merge into one cap")

	_, err = clip.Subtract(out, p, clip.DefaultOptions())
	requireDegenerate(t, err, kernel.ReasonMissesBounds)
}

func TestTriangulatePolicies(t *testing.T) {
	p := plane(0, 0.5, 0, 0, 1, 0)

	t.Run("caps only", func(t *testing.T) {
		out, err := clip.Subtract(seed.NewCube(1), p, clip.Options{TriangulateCaps: true})
		require.NoError(t, err)
		assert.Equal(t, 7, out.FaceCount())
		assert.InDelta(t, 6.0, out.Volume(), 1e-9)
	})

	t.Run("everything", func(t *testing.T) {
		out, err := clip.Subtract(seed.NewCube(1), p, clip.Options{Triangulate: true})
		require.NoError(t, err)
		assert.Equal(t, 12, out.FaceCount())
		for _, f := range out.Faces {
			assert.Len(t, f, 3)
		}
		assert.InDelta(t, 6.0, out.Volume(), 1e-9)
		require.NoError(t, out.Validate())
	})
}

func TestInvalidInput(t *testing.T) {
	open := seed.NewCube(1)
	open.Faces = open.Faces[:5]

	_, err := clip.Subtract(open, plane(0, 0, 0, 0, 1, 0), clip.DefaultOptions())
	assert.True(t, kernel.IsInvalidSolid(err))
	assert.False(t, kernel.IsDegenerate(err))
}

func TestCutterSatisfiesKernelCutter(t *testing.T) {
	var c kernel.Cutter = clip.New(clip.DefaultOptions())
	out, err := c.Subtract(seed.NewCube(1), plane(0, 0, 0, 1, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 4.0, out.Volume(), 1e-9)
}
