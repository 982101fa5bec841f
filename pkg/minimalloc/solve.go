// Package minimalloc public solve surface and solution assembly.
//
// Solve canonicalizes the problem, partitions it into independent
// sub-problems (connected components of the overlap graph), searches each
// component, and scatters the per-component offsets back into a single
// Solution indexed by original buffer position. Components share the same
// capacity window starting at zero, so no offset shifting is required.
package minimalloc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Options configures a Solve call. The zero value solves with no wall-clock
// budget, no result validation, and no gap canonicalization; DefaultOptions is
// the recommended starting point.
type Options struct {
	// Timeout is the wall-clock budget for the search; zero means none.
	// On expiry Solve returns ErrTimeout.
	Timeout time.Duration

	// ValidateResult runs the validator over every returned solution as a
	// post-condition assertion. A validation failure is a solver bug and
	// surfaces as an error.
	ValidateResult bool

	// Canonicalize runs gap canonicalization (see Canonicalize) before
	// solving. Time is compressed either way. When false the caller asserts
	// that gaps are already in canonical form: sorted, merged, strictly
	// interior.
	Canonicalize bool
}

// DefaultOptions returns the recommended options: canonicalize, no budget.
func DefaultOptions() Options {
	return Options{Canonicalize: true}
}

// Solver solves a single static allocation problem. Create one with
// NewSolver, call Solve once, and inspect Stats afterwards. A Solver is not
// safe for concurrent use; distinct Solvers are independent.
type Solver struct {
	problem *Problem
	opts    Options
	stats   SolverStats
}

// NewSolver creates a solver for the given problem. The problem is not
// copied; it must not be mutated until Solve returns.
func NewSolver(p *Problem, opts Options) *Solver {
	return &Solver{problem: p, opts: opts}
}

// Stats returns the search statistics of the last Solve call.
func (s *Solver) Stats() SolverStats { return s.stats }

// Solve finds offsets for every buffer or reports why it cannot:
//
//   - a *ProblemError when the problem is structurally invalid,
//   - ErrInfeasible when no packing exists within the capacity,
//   - ErrTimeout when the budget expires first,
//   - the context error when ctx is cancelled.
//
// Given identical input and no timeout, Solve returns the identical
// solution on every run.
func (s *Solver) Solve(ctx context.Context) (*Solution, error) {
	start := time.Now()
	s.stats = SolverStats{}

	var canonical *Problem
	var err error
	if s.opts.Canonicalize {
		canonical, err = Canonicalize(s.problem)
	} else {
		if err = s.problem.Check(); err == nil {
			canonical = s.problem.clone()
			compressTime(canonical)
		}
	}
	if err != nil {
		return nil, err
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	comps := partition(canonical)
	s.stats.Components = len(comps)
	offsets := make([]Offset, len(canonical.Buffers))
	for i, comp := range comps {
		pk := newPacker(comp, canonical.Capacity, &s.stats)
		if err := pk.solve(ctx); err != nil {
			s.stats.Elapsed = time.Since(start)
			klog.V(2).Infof("component %d/%d (%d buffers) failed: %v",
				i+1, len(comps), len(comp.buffers), err)
			return nil, err
		}
		for local, global := range comp.indices {
			offsets[global] = pk.offsets[local]
		}
		klog.V(2).Infof("component %d/%d: placed %d buffers in %d nodes",
			i+1, len(comps), len(comp.buffers), s.stats.Nodes)
	}
	s.stats.Elapsed = time.Since(start)

	solution := &Solution{Offsets: offsets}
	if s.opts.ValidateResult {
		if code := Validate(s.problem, solution); code != Good {
			return nil, errors.Errorf("minimalloc: solver produced a %s solution", code)
		}
	}
	return solution, nil
}

// Solve is a convenience wrapper: NewSolver(p, opts).Solve(ctx).
func Solve(ctx context.Context, p *Problem, opts Options) (*Solution, error) {
	return NewSolver(p, opts).Solve(ctx)
}
