package simulator_test

import (
	"bytes"
	"math"
	"sync"
	"testing"

	"github.com/chazu/facet/pkg/config"
	"github.com/chazu/facet/pkg/engine"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/kinematics"
	"github.com/chazu/facet/pkg/seed"
	"github.com/chazu/facet/pkg/simulator"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCube(t *testing.T, pose kinematics.Pose) *simulator.Simulator {
	t.Helper()
	cfg := simulator.DefaultConfig()
	cfg.Pose = pose
	sim, err := simulator.New(seed.NewCube(1), nil, cfg)
	require.NoError(t, err)
	return sim
}

func newSphere(t *testing.T) *simulator.Simulator {
	t.Helper()
	s, err := seed.New(seed.Round, 1, seed.DefaultOptions())
	require.NoError(t, err)
	sim, err := simulator.New(s, nil, simulator.DefaultConfig())
	require.NoError(t, err)
	return sim
}

func reason(t *testing.T, r simulator.CutResult) kernel.DegenerateReason {
	t.Helper()
	got, ok := r.Reason()
	require.True(t, ok, "expected a degenerate cut, got err=%v", r.Err)
	return got
}

func TestTableCutOnCube(t *testing.T) {
	sim := newCube(t, kinematics.Pose{MastAngle: 0, Index: 0, DopLength: 3})
	before := sim.Solid()

	assert.InDelta(t, 0.5, sim.Plane().Offset(), 1e-12)

	res := sim.PerformCut()
	require.NoError(t, res.Err)
	assert.True(t, res.Changed)
	assert.Equal(t, 8, res.Solid.VertexCount())
	assert.Equal(t, 6, res.Solid.FaceCount())
	assert.Equal(t, 12, res.Solid.EdgeCount())
	assert.InDelta(t, 6.0, res.Solid.Volume(), 1e-9)
	assert.InDelta(t, 2.0, res.RemovedVolume, 1e-9)
	assert.Same(t, res.Solid, sim.Solid())
	assert.Equal(t, 1, sim.Cuts())

	// The previous solid is untouched.
	assert.InDelta(t, 8.0, before.Volume(), 1e-12)
}

func TestRepeatCutIsNoOp(t *testing.T) {
	sim := newSphere(t)
	first := sim.PerformCut()
	require.True(t, first.Changed)

	second := sim.PerformCut()
	assert.False(t, second.Changed)
	assert.Equal(t, kernel.ReasonNothingRemoved, reason(t, second))
	assert.Same(t, first.Solid, second.Solid)
	assert.Zero(t, second.RemovedVolume)
	assert.Equal(t, 1, sim.Cuts())
}

func TestPlaneMissingStone(t *testing.T) {
	small, err := seed.New(seed.Round, 0.2, seed.Options{Segments: 12, Rings: 8})
	require.NoError(t, err)
	sim, err := simulator.New(small, nil, simulator.DefaultConfig())
	require.NoError(t, err)

	res := sim.PerformCut()
	assert.False(t, res.Changed)
	assert.Equal(t, kernel.ReasonMissesBounds, reason(t, res))
	assert.Equal(t, small.VertexCount(), sim.Solid().VertexCount())
	assert.Equal(t, small.FaceCount(), sim.Solid().FaceCount())
}

func TestSettersRejectOutOfRange(t *testing.T) {
	sim := newSphere(t)
	pose := sim.Pose()
	plane := sim.Plane()

	tests := []struct {
		name string
		set  func(float64) error
		v    float64
	}{
		{"mast", sim.SetMastAngle, 180.5},
		{"mast NaN", sim.SetMastAngle, math.NaN()},
		{"rotation", sim.SetProtractorRotation, -1},
		{"index", sim.SetIndexPosition, 16.01},
		{"dop length", sim.SetDopLength, 0},
		{"lap size", sim.SetLapSize, 4},
		{"lap speed", sim.SetLapSpeed, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set(tt.v)
			var oor *kernel.OutOfRangeParameterError
			require.ErrorAs(t, err, &oor)
			assert.Equal(t, pose, sim.Pose())
			assert.Equal(t, plane, sim.Plane())
		})
	}
	assert.Equal(t, kinematics.DefaultSettings(), sim.Settings())
}

func TestSettersUpdatePlane(t *testing.T) {
	sim := newSphere(t)
	require.NoError(t, sim.SetMastAngle(90))
	require.NoError(t, sim.SetIndexPosition(0))
	require.NoError(t, sim.SetProtractorRotation(0))
	n := sim.Plane().Normal
	assert.InDelta(t, 1, n.X, 1e-12)
	assert.InDelta(t, 0, n.Y, 1e-12)

	require.NoError(t, sim.SetIndexPosition(16))
	assert.InDelta(t, 1, sim.Plane().Normal.X, 1e-12, "index 16 wraps to 0")

	require.NoError(t, sim.SetDopLength(4))
	assert.Equal(t, 4.0, sim.Pose().DopLength)
	assert.Equal(t, n, sim.Plane().Normal, "dop length does not move the plane")
}

func TestSettingsDoNotMovePlane(t *testing.T) {
	sim := newSphere(t)
	plane := sim.Plane()
	require.NoError(t, sim.SetMastAdjust(2))
	require.NoError(t, sim.SetHeightAdjust(3))
	require.NoError(t, sim.SetLapSize(1))
	require.NoError(t, sim.SetLapSpeed(0))
	require.NoError(t, sim.SetWaterDripSpeed(5))
	assert.Equal(t, plane, sim.Plane())
	assert.Equal(t, kinematics.Settings{
		MastAdjust: 2, HeightAdjust: 3, LapSize: 1, LapSpeed: 0, WaterDripSpeed: 5,
	}, sim.Settings())

	parts := sim.Layout()
	require.Len(t, parts, 3)
}

func TestPerformCutWith(t *testing.T) {
	sim := newCube(t, kinematics.DefaultPose())

	res := sim.PerformCutWith(kinematics.Pose{MastAngle: 200, DopLength: 3})
	assert.False(t, res.Changed)
	var oor *kernel.OutOfRangeParameterError
	require.ErrorAs(t, res.Err, &oor)
	assert.Equal(t, kinematics.DefaultPose(), sim.Pose())

	table := kinematics.Pose{MastAngle: 0, Index: 0, DopLength: 3}
	res = sim.PerformCutWith(table)
	require.NoError(t, res.Err)
	assert.True(t, res.Changed)
	assert.Equal(t, table, sim.Pose())
	assert.InDelta(t, 6.0, sim.Solid().Volume(), 1e-9)
}

func TestReset(t *testing.T) {
	sim := newSphere(t)
	require.True(t, sim.PerformCut().Changed)
	pose := sim.Pose()

	require.NoError(t, sim.Reset(seed.Octahedron, 2))
	assert.Equal(t, 6, sim.Solid().VertexCount())
	assert.Equal(t, 0, sim.Cuts())
	assert.Equal(t, pose, sim.Pose())

	err := sim.Reset(seed.Cube, -1)
	assert.Error(t, err)
	assert.Equal(t, 6, sim.Solid().VertexCount(), "failed reset keeps the stone")
}

func TestNewRejectsBadInput(t *testing.T) {
	open := seed.NewCube(1)
	open.Faces = open.Faces[:5]
	_, err := simulator.New(open, nil, simulator.DefaultConfig())
	assert.True(t, kernel.IsInvalidSolid(err))

	cfg := simulator.DefaultConfig()
	cfg.Pose.DopLength = -1
	_, err = simulator.New(seed.NewCube(1), nil, cfg)
	var oor *kernel.OutOfRangeParameterError
	assert.ErrorAs(t, err, &oor)
}

func TestRandomPosesKeepStoneManifold(t *testing.T) {
	sim := newSphere(t)
	poses := []kinematics.Pose{
		{MastAngle: 41, Index: 0, DopLength: 3},
		{MastAngle: 41, Index: 2.5, Rotation: 10, DopLength: 3},
		{MastAngle: 90, Index: 7, DopLength: 3},
		{MastAngle: 139, Index: 11, Rotation: 300, DopLength: 3},
		{MastAngle: 0, Index: 0, DopLength: 3},
		{MastAngle: 180, Index: 5, DopLength: 3},
		{MastAngle: 67.3, Index: 13.2, Rotation: 123.4, DopLength: 3},
	}
	for i, p := range poses {
		res := sim.PerformCutWith(p)
		if res.Err != nil {
			_, degenerate := res.Reason()
			require.True(t, degenerate, "pose %d: %v", i, res.Err)
			require.NotEqual(t, kernel.ReasonUnstable, reason(t, res), "pose %d", i)
			continue
		}
		s := sim.Solid()
		require.NoError(t, s.Validate(), "pose %d", i)
		assert.Equal(t, 2, s.EulerCharacteristic(), "pose %d", i)
	}
}

func TestConcurrentReadersDuringCuts(t *testing.T) {
	sim := newSphere(t)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s := sim.Solid()
				assert.NotNil(t, s)
				_ = sim.Plane()
				_ = sim.Pose()
			}
		}()
	}

	for i := 0; i < 8; i++ {
		require.NoError(t, sim.SetIndexPosition(float64(2*i)))
		sim.PerformCut()
	}
	close(stop)
	wg.Wait()

	require.NoError(t, sim.Solid().Validate())
	assert.Greater(t, sim.Cuts(), 0)
}

func TestCutsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	sim := newCube(t, kinematics.Pose{MastAngle: 0, Index: 0, DopLength: 3})
	sim.SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	sim.PerformCut()
	sim.PerformCut()

	out := buf.String()
	assert.Contains(t, out, `"message":"cut"`)
	assert.Contains(t, out, `"removed":`)
	assert.Contains(t, out, `"faces":6`)
	assert.Contains(t, out, `"reason":"nothing-removed"`)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Seed.Shape = seed.Dodecahedron
	cfg.Machine.Teeth = 96
	sim, err := simulator.FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 20, sim.Solid().VertexCount())
	assert.Equal(t, 96, sim.Machine().Teeth)
	require.NoError(t, sim.SetIndexPosition(95))
}

func TestApplyPlan(t *testing.T) {
	sim := newSphere(t)
	plan, evalErrs, err := engine.NewEngine().Evaluate(`
(seed :shape :round :size 1)
(tier :mast 90 :symmetry 8)
(facet :mast 0 :index 0)
(facet :mast 0 :index 0)
`)
	require.NoError(t, err)
	require.Empty(t, evalErrs)

	results, err := sim.Apply(plan)
	require.NoError(t, err)
	require.Len(t, results, 10)
	for i, r := range results[:9] {
		assert.True(t, r.Changed, "cut %d: %v", i, r.Err)
	}
	assert.False(t, results[9].Changed)
	assert.Equal(t, kernel.ReasonNothingRemoved, reason(t, results[9]))

	s := sim.Solid()
	require.NoError(t, s.Validate())
	assert.Equal(t, 9, sim.Cuts())
	assert.InDelta(t, 0.5, s.BoundingBox().Max.Y, 1e-9)
}

func TestApplyStopsOnBadStep(t *testing.T) {
	sim := newSphere(t)
	plan := &engine.Plan{Steps: []engine.Step{
		{Kind: engine.StepCut},
		{Kind: engine.StepSet, Param: engine.ParamIndex, Value: 40},
		{Kind: engine.StepCut},
	}}
	results, err := sim.Apply(plan)
	require.Error(t, err)
	assert.Len(t, results, 1)
	var oor *kernel.OutOfRangeParameterError
	assert.ErrorAs(t, err, &oor)
}
