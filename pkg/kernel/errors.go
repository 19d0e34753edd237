package kernel

import (
	"errors"
	"fmt"
)

// InvalidSolidError reports a boundary representation that is not a
// closed, consistently oriented manifold.
type InvalidSolidError struct {
	Reason string
}

func (e *InvalidSolidError) Error() string {
	return "invalid solid: " + e.Reason
}

// DegenerateReason classifies why a cut did not change the solid.
type DegenerateReason int

const (
	ReasonMissesBounds   DegenerateReason = iota // plane does not touch the bounding box
	ReasonNothingRemoved                         // plane touches the solid but nothing lies beyond it
	ReasonRemovesAll                             // the whole solid lies beyond the plane
	ReasonUnstable                               // intersection could not be closed into a valid solid
)

func (r DegenerateReason) String() string {
	switch r {
	case ReasonMissesBounds:
		return "misses-bounds"
	case ReasonNothingRemoved:
		return "nothing-removed"
	case ReasonRemovesAll:
		return "removes-all"
	case ReasonUnstable:
		return "unstable"
	default:
		return fmt.Sprintf("DegenerateReason(%d)", int(r))
	}
}

// DegenerateCutError reports a cut that leaves the solid unchanged.
// Callers treat it as a no-op rather than a failure of the stone.
type DegenerateCutError struct {
	Reason DegenerateReason
	Err    error
}

func (e *DegenerateCutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("degenerate cut (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("degenerate cut (%s)", e.Reason)
}

func (e *DegenerateCutError) Unwrap() error {
	return e.Err
}

// OutOfRangeParameterError reports a machine parameter outside its
// declared domain. The previous valid value is retained by the caller.
type OutOfRangeParameterError struct {
	Param string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeParameterError) Error() string {
	return fmt.Sprintf("%s = %g is outside [%g, %g]", e.Param, e.Value, e.Min, e.Max)
}

// IsDegenerate reports whether err is, or wraps, a DegenerateCutError.
func IsDegenerate(err error) bool {
	var de *DegenerateCutError
	return errors.As(err, &de)
}

// IsInvalidSolid reports whether err is, or wraps, an InvalidSolidError.
func IsInvalidSolid(err error) bool {
	var ie *InvalidSolidError
	return errors.As(err, &ie)
}
