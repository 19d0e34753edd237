// Package config loads the simulator configuration. Files are JSON5, so
// they may carry comments and trailing commas. Anything a file leaves out
// keeps its value from Default.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/chazu/facet/pkg/kernel/clip"
	"github.com/chazu/facet/pkg/kinematics"
	"github.com/chazu/facet/pkg/seed"
	"github.com/rs/zerolog"
	"github.com/titanous/json5"
)

// DefaultMeshCells is the marching cubes resolution for machine parts.
const DefaultMeshCells = 120

// Part kernels that can model the machine parts.
const (
	KernelSdfx     = "sdfx"
	KernelManifold = "manifold" // needs a build with -tags=manifold
)

// Config is the complete simulator configuration.
type Config struct {
	Machine Machine      `json:"machine"`
	Cutter  clip.Options `json:"cutter"`
	Seed    Seed         `json:"seed"`
	Log     Log          `json:"log"`
}

// Machine describes the faceting machine geometry and its starting state.
type Machine struct {
	kinematics.Config
	Settings   kinematics.Settings `json:"settings"`
	Pose       kinematics.Pose     `json:"pose"`
	MeshCells  int                 `json:"meshCells"`  // sdfx tessellation resolution
	PartKernel string              `json:"partKernel"` // KernelSdfx or KernelManifold
}

// Seed describes the stone loaded at startup and on reset.
type Seed struct {
	Shape    seed.Shape `json:"shape"`
	Size     float64    `json:"size"`
	Segments int        `json:"segments"`
	Rings    int        `json:"rings"`
}

// Options returns the tessellation options for curved seeds.
func (s Seed) Options() seed.Options {
	return seed.Options{Segments: s.Segments, Rings: s.Rings}
}

// Log configures logging.
type Log struct {
	Level string `json:"level"` // zerolog level name
}

// ZerologLevel parses Level. An empty level means info.
func (l Log) ZerologLevel() (zerolog.Level, error) {
	if l.Level == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(l.Level)
}

// Default returns the configuration of a standard machine with a round
// stone.
func Default() Config {
	opts := seed.DefaultOptions()
	return Config{
		Machine: Machine{
			Config:     kinematics.DefaultConfig(),
			Settings:   kinematics.DefaultSettings(),
			Pose:       kinematics.DefaultPose(),
			MeshCells:  DefaultMeshCells,
			PartKernel: KernelSdfx,
		},
		Cutter: clip.DefaultOptions(),
		Seed: Seed{
			Shape:    seed.Round,
			Size:     1,
			Segments: opts.Segments,
			Rings:    opts.Rings,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads and parses the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes JSON5 data over the defaults and validates the result.
// Warnings do not fail parsing; use Validate to see them.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if shape, err := seed.ParseShape(string(cfg.Seed.Shape)); err == nil {
		cfg.Seed.Shape = shape
	}
	var errs []error
	for _, f := range cfg.Validate() {
		if f.Severity == SeverityError {
			errs = append(errs, f)
		}
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Severity indicates whether a finding rejects the configuration or is
// merely advisory.
type Severity int

const (
	SeverityError   Severity = iota // rejects the configuration
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding is a single validation result for one configuration field.
type Finding struct {
	Field    string // dotted JSON path, e.g. "machine.teeth"
	Message  string
	Severity Severity
}

func (f Finding) Error() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Field, f.Message)
}

// Validate checks every section and returns all findings. An empty slice
// means the configuration is usable as is.
func (c Config) Validate() []Finding {
	var out []Finding
	out = append(out, c.validateMachine()...)
	out = append(out, c.validateCutter()...)
	out = append(out, c.validateSeed()...)
	if _, err := c.Log.ZerologLevel(); err != nil {
		out = append(out, Finding{Field: "log.level", Message: err.Error()})
	}
	return out
}

func (c Config) validateMachine() []Finding {
	var out []Finding
	m := c.Machine
	if !positive(m.Offset) {
		out = append(out, Finding{Field: "machine.offset", Message: fmt.Sprintf("must be positive, got %g", m.Offset)})
	}
	if m.Teeth <= 0 {
		out = append(out, Finding{Field: "machine.teeth", Message: fmt.Sprintf("must be positive, got %d", m.Teeth)})
	}
	if !positive(m.LapThickness) {
		out = append(out, Finding{Field: "machine.lapThickness", Message: fmt.Sprintf("must be positive, got %g", m.LapThickness)})
	}
	if err := m.Settings.Validate(); err != nil {
		out = append(out, Finding{Field: "machine.settings", Message: err.Error()})
	}
	if m.Teeth > 0 {
		if err := m.Pose.Validate(m.Teeth); err != nil {
			out = append(out, Finding{Field: "machine.pose", Message: err.Error()})
		}
	}
	if m.PartKernel != KernelSdfx && m.PartKernel != KernelManifold {
		out = append(out, Finding{Field: "machine.partKernel", Message: fmt.Sprintf("unknown kernel %q", m.PartKernel)})
	}
	switch {
	case m.MeshCells <= 0:
		out = append(out, Finding{Field: "machine.meshCells", Message: fmt.Sprintf("must be positive, got %d", m.MeshCells)})
	case m.MeshCells < 48:
		out = append(out, Finding{
			Field:    "machine.meshCells",
			Message:  fmt.Sprintf("%d cells is too coarse to resolve the dop rod", m.MeshCells),
			Severity: SeverityWarning,
		})
	}
	return out
}

func (c Config) validateCutter() []Finding {
	eps := c.Cutter.Epsilon
	switch {
	case math.IsNaN(eps) || eps < 0:
		return []Finding{{Field: "cutter.epsilon", Message: fmt.Sprintf("must be non-negative, got %g", eps)}}
	case eps > 1e-3:
		return []Finding{{
			Field:    "cutter.epsilon",
			Message:  fmt.Sprintf("%g snaps vertices visibly onto cut planes", eps),
			Severity: SeverityWarning,
		}}
	}
	return nil
}

func (c Config) validateSeed() []Finding {
	var out []Finding
	s := c.Seed
	if _, err := seed.ParseShape(string(s.Shape)); err != nil {
		out = append(out, Finding{Field: "seed.shape", Message: err.Error()})
	}
	if !positive(s.Size) {
		out = append(out, Finding{Field: "seed.size", Message: fmt.Sprintf("must be positive, got %g", s.Size)})
	}
	if s.Segments < 3 {
		out = append(out, Finding{Field: "seed.segments", Message: fmt.Sprintf("need at least 3, got %d", s.Segments)})
	}
	if s.Rings < 2 {
		out = append(out, Finding{Field: "seed.rings", Message: fmt.Sprintf("need at least 2, got %d", s.Rings)})
	}
	return out
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
