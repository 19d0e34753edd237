// Package simulator is the cut orchestrator. It owns the machine state
// and the live gem, turns the current pose into a cutting plane, and
// swaps in the result of each successful cut.
//
// Writers (setters, cuts, resets) are serialised by a mutex. Readers load
// immutable snapshots through atomic pointers and never wait on a cut in
// progress.
package simulator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chazu/facet/pkg/config"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/kernel/clip"
	"github.com/chazu/facet/pkg/kinematics"
	"github.com/chazu/facet/pkg/seed"
	"github.com/rs/zerolog"
)

// Config is the machine a Simulator starts with.
type Config struct {
	Machine  kinematics.Config
	Pose     kinematics.Pose
	Settings kinematics.Settings
	Seed     seed.Options // tessellation for Reset
}

// DefaultConfig returns a standard machine in its default pose.
func DefaultConfig() Config {
	return Config{
		Machine:  kinematics.DefaultConfig(),
		Pose:     kinematics.DefaultPose(),
		Settings: kinematics.DefaultSettings(),
		Seed:     seed.DefaultOptions(),
	}
}

// state is an immutable snapshot of the machine controls and the plane
// they produce.
type state struct {
	pose     kinematics.Pose
	settings kinematics.Settings
	plane    kernel.Plane
}

// Simulator holds one stone on one machine. It is safe for concurrent use.
type Simulator struct {
	mu     sync.Mutex
	solid  atomic.Pointer[kernel.Solid]
	state  atomic.Pointer[state]
	cuts   atomic.Int64
	cfg    Config
	cutter kernel.Cutter
	log    zerolog.Logger
}

// New creates a Simulator for the given stone. A nil cutter means the
// default clip cutter.
func New(solid *kernel.Solid, cutter kernel.Cutter, cfg Config) (*Simulator, error) {
	if err := solid.Validate(); err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	if err := cfg.Pose.Validate(cfg.Machine.Teeth); err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	if cutter == nil {
		cutter = clip.New(clip.DefaultOptions())
	}
	s := &Simulator{cfg: cfg, cutter: cutter, log: zerolog.Nop()}
	s.solid.Store(solid)
	s.store(cfg.Pose, cfg.Settings)
	return s, nil
}

// FromConfig builds the seed stone, cutter and machine described by c.
func FromConfig(c config.Config) (*Simulator, error) {
	stone, err := seed.New(c.Seed.Shape, c.Seed.Size, c.Seed.Options())
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	return New(stone, clip.New(c.Cutter), Config{
		Machine:  c.Machine.Config,
		Pose:     c.Machine.Pose,
		Settings: c.Machine.Settings,
		Seed:     c.Seed.Options(),
	})
}

// SetLogger replaces the logger. The default discards everything.
func (s *Simulator) SetLogger(l zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = l
}

// store publishes a new snapshot. Callers hold mu or own s exclusively.
func (s *Simulator) store(p kinematics.Pose, st kinematics.Settings) {
	s.state.Store(&state{
		pose:     p,
		settings: st,
		plane:    kinematics.CuttingPlane(p, s.cfg.Machine),
	})
}

// Solid returns the current stone. The returned solid is never mutated
// by the simulator; a cut replaces it with a new one.
func (s *Simulator) Solid() *kernel.Solid { return s.solid.Load() }

// Pose returns the current machine pose.
func (s *Simulator) Pose() kinematics.Pose { return s.state.Load().pose }

// Settings returns the current control panel settings.
func (s *Simulator) Settings() kinematics.Settings { return s.state.Load().settings }

// Plane returns the cutting plane for the current pose.
func (s *Simulator) Plane() kernel.Plane { return s.state.Load().plane }

// Machine returns the machine geometry.
func (s *Simulator) Machine() kinematics.Config { return s.cfg.Machine }

// Cuts reports the number of cuts that changed the stone since the last
// reset.
func (s *Simulator) Cuts() int { return int(s.cuts.Load()) }

// Layout places the machine parts for the current pose and settings.
func (s *Simulator) Layout() []kinematics.PartPose {
	st := s.state.Load()
	return kinematics.Layout(st.pose, st.settings, s.cfg.Machine)
}

// updatePose validates a single pose field and publishes the new pose.
// On error the previous pose is kept.
func (s *Simulator) updatePose(check func(float64) error, v float64, apply func(*kinematics.Pose)) error {
	if err := check(v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.state.Load()
	p := cur.pose
	apply(&p)
	s.store(p, cur.settings)
	return nil
}

// SetMastAngle sets the mast angle in degrees, [0, 180].
func (s *Simulator) SetMastAngle(deg float64) error {
	return s.updatePose(kinematics.CheckMastAngle, deg, func(p *kinematics.Pose) { p.MastAngle = deg })
}

// SetProtractorRotation sets the protractor rotation in degrees, [0, 360].
func (s *Simulator) SetProtractorRotation(deg float64) error {
	return s.updatePose(kinematics.CheckRotation, deg, func(p *kinematics.Pose) { p.Rotation = deg })
}

// SetIndexPosition sets the index gear position, [0, teeth].
func (s *Simulator) SetIndexPosition(index float64) error {
	check := func(v float64) error { return kinematics.CheckIndex(v, s.teeth()) }
	return s.updatePose(check, index, func(p *kinematics.Pose) { p.Index = index })
}

// SetDopLength sets the dop length, which must be positive.
func (s *Simulator) SetDopLength(length float64) error {
	return s.updatePose(kinematics.CheckDopLength, length, func(p *kinematics.Pose) { p.DopLength = length })
}

// SetPose replaces the whole pose after validating it.
func (s *Simulator) SetPose(p kinematics.Pose) error {
	if err := p.Validate(s.teeth()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(p, s.state.Load().settings)
	return nil
}

// SetSettings replaces the control panel settings after validating them.
func (s *Simulator) SetSettings(st kinematics.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(s.state.Load().pose, st)
	return nil
}

func (s *Simulator) updateSettings(apply func(*kinematics.Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.state.Load()
	st := cur.settings
	apply(&st)
	if err := st.Validate(); err != nil {
		return err
	}
	s.store(cur.pose, st)
	return nil
}

// SetMastAdjust sets the mast height factor, [1, 3].
func (s *Simulator) SetMastAdjust(v float64) error {
	return s.updateSettings(func(st *kinematics.Settings) { st.MastAdjust = v })
}

// SetHeightAdjust sets the mast base lift, [1, 3].
func (s *Simulator) SetHeightAdjust(v float64) error {
	return s.updateSettings(func(st *kinematics.Settings) { st.HeightAdjust = v })
}

// SetLapSize sets the lap radius, [1, 3].
func (s *Simulator) SetLapSize(v float64) error {
	return s.updateSettings(func(st *kinematics.Settings) { st.LapSize = v })
}

// SetLapSpeed sets the lap speed in revolutions per second, [0, 5].
func (s *Simulator) SetLapSpeed(v float64) error {
	return s.updateSettings(func(st *kinematics.Settings) { st.LapSpeed = v })
}

// SetWaterDripSpeed sets the water drip rate, [0, 5].
func (s *Simulator) SetWaterDripSpeed(v float64) error {
	return s.updateSettings(func(st *kinematics.Settings) { st.WaterDripSpeed = v })
}

func (s *Simulator) teeth() int {
	if s.cfg.Machine.Teeth <= 0 {
		return kinematics.DefaultTeeth
	}
	return s.cfg.Machine.Teeth
}

// CutResult reports the outcome of one cut. Solid is always the stone
// after the cut: the new one when Changed, the untouched one otherwise.
// Err explains why nothing changed.
type CutResult struct {
	Solid         *kernel.Solid
	Changed       bool
	Plane         kernel.Plane
	RemovedVolume float64
	Err           error
}

// Reason returns the degenerate reason when the cut was a no-op for a
// geometric reason.
func (r CutResult) Reason() (kernel.DegenerateReason, bool) {
	var de *kernel.DegenerateCutError
	if errors.As(r.Err, &de) {
		return de.Reason, true
	}
	return 0, false
}

// PerformCut cuts the stone with the plane of the current pose.
func (s *Simulator) PerformCut() CutResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cut()
}

// PerformCutWith validates and adopts p, then cuts with it. An invalid
// pose is reported in Err and leaves the machine untouched.
func (s *Simulator) PerformCutWith(p kinematics.Pose) CutResult {
	if err := p.Validate(s.teeth()); err != nil {
		return CutResult{Solid: s.Solid(), Plane: s.Plane(), Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(p, s.state.Load().settings)
	return s.cut()
}

// cut runs one subtraction. Callers hold mu.
func (s *Simulator) cut() CutResult {
	st := s.state.Load()
	before := s.solid.Load()
	res := CutResult{Solid: before, Plane: st.plane}

	log := s.log.With().
		Float64("mast", st.pose.MastAngle).
		Float64("index", st.pose.Index).
		Float64("rotation", st.pose.Rotation).
		Logger()

	after, err := s.cutter.Subtract(before, st.plane)
	if err != nil {
		res.Err = err
		if reason, ok := res.Reason(); ok {
			log.Debug().Stringer("reason", reason).Msg("cut left stone unchanged")
		} else {
			log.Error().Err(err).Msg("cut failed")
		}
		return res
	}

	res.Solid = after
	res.Changed = true
	res.RemovedVolume = before.Volume() - after.Volume()
	s.solid.Store(after)
	n := s.cuts.Add(1)

	log.Info().
		Int64("cut", n).
		Int("faces", after.FaceCount()).
		Int("vertices", after.VertexCount()).
		Float64("removed", res.RemovedVolume).
		Msg("cut")
	return res
}

// Reset replaces the stone with a fresh seed. The machine pose and
// settings are kept.
func (s *Simulator) Reset(shape seed.Shape, size float64) error {
	stone, err := seed.New(shape, size, s.cfg.Seed)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solid.Store(stone)
	s.cuts.Store(0)
	s.log.Info().Str("shape", string(shape)).Float64("size", size).Msg("reset")
	return nil
}
