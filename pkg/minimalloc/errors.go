// Package minimalloc error taxonomy.
//
// Problem-structural errors (ProblemError) are raised by Check and
// Canonicalize and are never recovered from by the solver. Search outcomes
// that are not errors of the input (infeasible, timeout) are surfaced as
// sentinel errors matched with errors.Is, so callers can decide whether to
// retry with a larger capacity or a longer budget. The library never aborts
// the process on bad input.
package minimalloc

import (
	"github.com/pkg/errors"
)

// ErrInfeasible reports that no valid packing exists within the capacity.
var ErrInfeasible = errors.New("minimalloc: infeasible within capacity")

// ErrTimeout reports that the solver exhausted its wall-clock budget before
// reaching a conclusion. Distinct from ErrInfeasible: the problem may still
// admit a solution.
var ErrTimeout = errors.New("minimalloc: solver timed out")

// ProblemError describes a structurally invalid Problem: negative sizes,
// gaps outside lifespans, fixed offsets violating capacity or alignment.
// The wrapped error enumerates every violation.
type ProblemError struct {
	err error
}

// Error implements the error interface.
func (e *ProblemError) Error() string { return "minimalloc: invalid problem: " + e.err.Error() }

// Unwrap exposes the underlying violation list.
func (e *ProblemError) Unwrap() error { return e.err }

// IsProblemError reports whether err (or anything it wraps) is a
// ProblemError.
func IsProblemError(err error) bool {
	var pe *ProblemError
	return errors.As(err, &pe)
}
