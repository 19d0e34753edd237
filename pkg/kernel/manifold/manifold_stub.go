//go:build !manifold

// Package manifold models the machine parts with the Manifold library
// through cgo. Builds without the "manifold" tag get this stub, whose New
// always fails so callers can fall back to another kernel.
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/facet/pkg/kernel"
)

// ErrUnavailable is returned by New in builds without the manifold tag.
var ErrUnavailable = errors.New("manifold part kernel not available: build with -tags=manifold")

// New reports that Manifold is not compiled in.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
