// Package tessellate turns the gem and the machine layout into triangle
// meshes for rendering. One mesh is produced per part.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/kinematics"
)

// GemPartName is the PartName of the gem mesh.
const GemPartName = "gem"

// PartError reports a machine part that could not be meshed.
type PartError struct {
	Part kinematics.Part
	Err  error
}

func (e *PartError) Error() string { return e.Err.Error() }

func (e *PartError) Unwrap() error { return e.Err }

// Scene returns the gem mesh followed by one mesh per machine part. A nil
// kernel skips the machine parts. Failing to mesh the gem aborts; a part
// that fails is left out and reported as a *PartError in the joined
// error, next to the meshes that did succeed. Scene never mutates the
// solid.
func Scene(gem *kernel.Solid, parts []kinematics.PartPose, k kernel.Kernel) ([]*kernel.Mesh, error) {
	g, err := Gem(gem)
	if err != nil {
		return nil, err
	}
	meshes := []*kernel.Mesh{g}
	if k == nil {
		return meshes, nil
	}

	var errs []error
	for _, p := range parts {
		m, err := Part(k, p)
		if err != nil {
			errs = append(errs, &PartError{Part: p.Part, Err: err})
			continue
		}
		meshes = append(meshes, m)
	}
	return meshes, errors.Join(errs...)
}

// Gem converts the stone into a flat-shaded mesh.
func Gem(s *kernel.Solid) (*kernel.Mesh, error) {
	if s == nil {
		return nil, fmt.Errorf("tessellate: no gem solid")
	}
	m, err := s.ToMesh()
	if err != nil {
		return nil, fmt.Errorf("tessellate: gem: %w", err)
	}
	m.PartName = GemPartName
	return m, nil
}

// Part models one machine part with the kernel and meshes it.
func Part(k kernel.Kernel, p kinematics.PartPose) (*kernel.Mesh, error) {
	if p.Length <= 0 || p.Radius <= 0 {
		return nil, fmt.Errorf("tessellate: %s has non-positive size %gx%g", p.Part, p.Length, p.Radius)
	}

	shape := k.Cylinder(p.Length, p.Radius)
	if p.Part == kinematics.PartDop {
		// The stone is glued to a ball at the near end of the rod.
		head := k.Translate(k.Sphere(kinematics.DopHeadRadius), 0, p.Length/2, 0)
		shape = k.Union(shape, head)
	}

	// Apply rotation first, then translation.
	rot := p.Rotation
	if rot.X != 0 || rot.Y != 0 || rot.Z != 0 {
		shape = k.Rotate(shape, rot.X, rot.Y, rot.Z)
	}

	trans := p.Translation
	if trans.X != 0 || trans.Y != 0 || trans.Z != 0 {
		shape = k.Translate(shape, trans.X, trans.Y, trans.Z)
	}

	mesh, err := k.ToMesh(shape)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", p.Part, err)
	}
	mesh.PartName = string(p.Part)
	return mesh, nil
}
