package main

import (
	"context"
	"errors"

	"github.com/chazu/facet/pkg/config"
	"github.com/chazu/facet/pkg/engine"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/kernel/manifold"
	"github.com/chazu/facet/pkg/kernel/sdfx"
	"github.com/chazu/facet/pkg/kinematics"
	"github.com/chazu/facet/pkg/seed"
	"github.com/chazu/facet/pkg/simulator"
	"github.com/chazu/facet/pkg/tessellate"
	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// EventSolidChanged is emitted to the frontend whenever the stone is
// replaced by a cut, a reset or a script.
const EventSolidChanged = "solid:changed"

// partColors maps mesh part names to render colours.
var partColors = map[string]string{
	tessellate.GemPartName:      "#00FF00",
	string(kinematics.PartLap):  "#888888",
	string(kinematics.PartMast): "#444444",
	string(kinematics.PartDop):  "#CCCCCC",
}

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	kernel kernel.Kernel
	sim    *simulator.Simulator
	log    zerolog.Logger
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// PlaneData is a cutting plane in the stone frame.
type PlaneData struct {
	Point  [3]float64 `json:"point"`
	Normal [3]float64 `json:"normal"`
}

// StateData is the machine and stone summary shown next to the viewport.
type StateData struct {
	Pose     kinematics.Pose     `json:"pose"`
	Settings kinematics.Settings `json:"settings"`
	Plane    PlaneData           `json:"plane"`
	Teeth    int                 `json:"teeth"`
	Cuts     int                 `json:"cuts"`
	Faces    int                 `json:"faces"`
	Volume   float64             `json:"volume"`
}

// SceneData is everything needed to draw one frame.
type SceneData struct {
	Meshes []MeshData            `json:"meshes"`
	Parts  []kinematics.PartPose `json:"parts"`
	State  StateData             `json:"state"`
	Errors []string              `json:"errors"`
}

// CutResultData reports a cut to the frontend. Reason is set when the cut
// left the stone unchanged for a geometric reason; Error carries any other
// failure.
type CutResultData struct {
	Changed       bool      `json:"changed"`
	Reason        string    `json:"reason,omitempty"`
	Error         string    `json:"error,omitempty"`
	RemovedVolume float64   `json:"removedVolume"`
	Faces         int       `json:"faces"`
	Vertices      int       `json:"vertices"`
	Volume        float64   `json:"volume"`
	Plane         PlaneData `json:"plane"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// ScriptResult is the outcome of running a faceting script.
type ScriptResult struct {
	Cuts   []CutResultData `json:"cuts"`
	Errors []EvalErrorData `json:"errors"`
	State  StateData       `json:"state"`
}

// NewApp creates an App for the configured machine and seed stone.
func NewApp(cfg config.Config, log zerolog.Logger) (*App, error) {
	sim, err := simulator.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	sim.SetLogger(log.With().Str("component", "simulator").Logger())
	return &App{
		engine: engine.NewEngineWithTeeth(cfg.Machine.Teeth),
		kernel: newPartKernel(cfg.Machine, log),
		sim:    sim,
		log:    log,
	}, nil
}

// newPartKernel picks the modelling backend for the machine parts. A
// manifold request in a build without the manifold tag falls back to sdfx.
func newPartKernel(m config.Machine, log zerolog.Logger) kernel.Kernel {
	if m.PartKernel == config.KernelManifold {
		k, err := manifold.New()
		if err == nil {
			return k
		}
		log.Warn().Err(err).Msg("using sdfx part kernel")
	}
	return sdfx.NewWithCells(m.MeshCells)
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// notify tells the frontend the stone changed. Outside a Wails runtime
// (tests, headless use) there is no context and nothing to notify.
func (a *App) notify() {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, EventSolidChanged, a.GetState())
}

// GetSolid returns the gem mesh alone.
func (a *App) GetSolid() (MeshData, error) {
	m, err := tessellate.Gem(a.sim.Solid())
	if err != nil {
		return MeshData{}, err
	}
	return toMeshData(m), nil
}

// GetScene returns the gem and the machine parts in their current
// positions. A part that fails to mesh is reported in Errors and
// skipped; the gem is always present.
func (a *App) GetScene() SceneData {
	parts := a.sim.Layout()
	scene := SceneData{
		Meshes: []MeshData{},
		Parts:  parts,
		State:  a.GetState(),
		Errors: []string{},
	}

	meshes, err := tessellate.Scene(a.sim.Solid(), parts, a.kernel)
	for _, m := range meshes {
		scene.Meshes = append(scene.Meshes, toMeshData(m))
	}
	if err == nil {
		return scene
	}
	if len(meshes) == 0 {
		a.log.Error().Err(err).Msg("gem tessellation failed")
		scene.Errors = append(scene.Errors, err.Error())
		return scene
	}
	for _, e := range unjoin(err) {
		var pe *tessellate.PartError
		if errors.As(e, &pe) {
			a.log.Warn().Err(pe.Err).Str("part", string(pe.Part)).Msg("part tessellation failed")
		}
		scene.Errors = append(scene.Errors, e.Error())
	}
	return scene
}

// unjoin splits an errors.Join result back into its parts.
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

// GetState returns the machine state and stone summary.
func (a *App) GetState() StateData {
	s := a.sim.Solid()
	return StateData{
		Pose:     a.sim.Pose(),
		Settings: a.sim.Settings(),
		Plane:    toPlaneData(a.sim.Plane()),
		Teeth:    a.sim.Machine().Teeth,
		Cuts:     a.sim.Cuts(),
		Faces:    s.FaceCount(),
		Volume:   s.Volume(),
	}
}

// GetLapAngle returns the lap spin angle in degrees after the given time.
func (a *App) GetLapAngle(seconds float64) float64 {
	return kinematics.LapAngle(a.sim.Settings(), seconds)
}

// Pose and settings setters. Out-of-range values are rejected and the
// previous value is kept.

func (a *App) SetMastAngle(v float64) error          { return a.sim.SetMastAngle(v) }
func (a *App) SetProtractorRotation(v float64) error { return a.sim.SetProtractorRotation(v) }
func (a *App) SetIndexPosition(v float64) error      { return a.sim.SetIndexPosition(v) }
func (a *App) SetDopLength(v float64) error          { return a.sim.SetDopLength(v) }
func (a *App) SetMastAdjust(v float64) error         { return a.sim.SetMastAdjust(v) }
func (a *App) SetHeightAdjust(v float64) error       { return a.sim.SetHeightAdjust(v) }
func (a *App) SetLapSize(v float64) error            { return a.sim.SetLapSize(v) }
func (a *App) SetLapSpeed(v float64) error           { return a.sim.SetLapSpeed(v) }
func (a *App) SetWaterDripSpeed(v float64) error     { return a.sim.SetWaterDripSpeed(v) }

// PerformCut cuts the stone at the current pose.
func (a *App) PerformCut() CutResultData {
	res := a.sim.PerformCut()
	if res.Changed {
		a.notify()
	}
	return toCutResultData(res)
}

// ResetShape replaces the stone with a fresh seed of the named shape.
func (a *App) ResetShape(shape string, size float64) error {
	sh, err := seed.ParseShape(shape)
	if err != nil {
		return err
	}
	if err := a.sim.Reset(sh, size); err != nil {
		return err
	}
	a.notify()
	return nil
}

// RunScript evaluates a faceting script and applies it to the stone.
// Evaluation errors leave the stone untouched. A step that fails while
// the plan runs stops it; the cuts made before it are kept and reported.
func (a *App) RunScript(source string) ScriptResult {
	result := ScriptResult{
		Cuts:   []CutResultData{},
		Errors: []EvalErrorData{},
	}
	defer func() { result.State = a.GetState() }()

	plan, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error().Err(err).Msg("script evaluation failed")
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	cuts, err := a.sim.Apply(plan)
	for _, c := range cuts {
		result.Cuts = append(result.Cuts, toCutResultData(c))
	}
	if err != nil {
		a.log.Warn().Err(err).Msg("script stopped")
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}
	if plan.Seed != nil || len(cuts) > 0 {
		a.notify()
	}
	return result
}

func toMeshData(m *kernel.Mesh) MeshData {
	return MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		PartName: m.PartName,
		Color:    partColors[m.PartName],
	}
}

func toPlaneData(p kernel.Plane) PlaneData {
	return PlaneData{
		Point:  [3]float64{p.Point.X, p.Point.Y, p.Point.Z},
		Normal: [3]float64{p.Normal.X, p.Normal.Y, p.Normal.Z},
	}
}

func toCutResultData(r simulator.CutResult) CutResultData {
	d := CutResultData{
		Changed:       r.Changed,
		RemovedVolume: r.RemovedVolume,
		Faces:         r.Solid.FaceCount(),
		Vertices:      r.Solid.VertexCount(),
		Volume:        r.Solid.Volume(),
		Plane:         toPlaneData(r.Plane),
	}
	var de *kernel.DegenerateCutError
	switch {
	case errors.As(r.Err, &de):
		d.Reason = de.Reason.String()
	case r.Err != nil:
		d.Error = r.Err.Error()
	}
	return d
}
