// Package minimalloc solver core.
//
// The solver runs a depth-first search over (buffer -> offset) assignments
// with constraint propagation through the sectional state. At each depth it
// attempts to place the next buffer in a fixed priority order at the
// smallest feasible offset (bottom-left rule), recursing on success and
// retracting on failure. A placement that leaves any still-unplaced
// conflicting buffer without a single feasible offset is pruned
// immediately.
//
// The search is single-threaded and deterministic: the placement order and
// the bottom-left rule remove all implementation-defined choices, so
// identical inputs yield identical solutions. Cancellation is cooperative;
// the wall-clock budget is checked only between node expansions, so
// termination latency is bounded by one placement cost.
package minimalloc

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// SolverStats reports search effort for one Solve call, aggregated across
// sub-problems.
type SolverStats struct {
	// Nodes is the number of search nodes expanded.
	Nodes int64

	// Placements is the number of buffer placements attempted.
	Placements int64

	// Backtracks is the number of retracted placements.
	Backtracks int64

	// Prunes counts placements abandoned by domination pruning.
	Prunes int64

	// Components is the number of independent sub-problems solved.
	Components int

	// Elapsed is the wall-clock duration of the solve.
	Elapsed time.Duration
}

// packer performs the search for a single canonical sub-problem. It owns
// its sectional state exclusively; backtracking mutates the state in place
// and restores it before every return.
type packer struct {
	buffers   []Buffer
	active    [][]Lifespan // precomputed active intervals per buffer
	conflicts [][]int
	order     []int
	offsets   []Offset
	placed    []bool
	secs      *sections
	stats     *SolverStats
}

// newPacker prepares the search state for one component of a canonical
// problem. The horizon is the largest compressed time index any buffer
// reaches.
func newPacker(comp *component, capacity Capacity, stats *SolverStats) *packer {
	horizon := TimeValue(0)
	active := make([][]Lifespan, len(comp.buffers))
	for i := range comp.buffers {
		horizon = max(horizon, comp.buffers[i].Lifespan.Upper)
		active[i] = comp.buffers[i].ActiveIntervals()
	}
	return &packer{
		buffers:   comp.buffers,
		active:    active,
		conflicts: comp.conflicts,
		order:     placementOrder(comp.buffers, comp.conflicts),
		offsets:   make([]Offset, len(comp.buffers)),
		placed:    make([]bool, len(comp.buffers)),
		secs:      newSections(int(horizon), capacity),
		stats:     stats,
	}
}

// placementOrder sorts buffer indices by the fixed placement priority:
// fixed-offset buffers first, then decreasing area, decreasing size,
// conflict-set cardinality, identifier, and finally index. The chain is a
// total order, so the result is deterministic.
func placementOrder(buffers []Buffer, conflicts [][]int) []int {
	order := make([]int, len(buffers))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool {
		a, b := &buffers[order[x]], &buffers[order[y]]
		if fixedA, fixedB := a.Offset != nil, b.Offset != nil; fixedA != fixedB {
			return fixedA
		}
		if areaA, areaB := a.Area(), b.Area(); areaA != areaB {
			return areaA > areaB
		}
		if a.Size != b.Size {
			return a.Size > b.Size
		}
		if ca, cb := len(conflicts[order[x]]), len(conflicts[order[y]]); ca != cb {
			return ca < cb
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return order[x] < order[y]
	})
	return order
}

// solve runs the search to completion. It returns nil when every buffer was
// placed (offsets holds the result), ErrInfeasible when the search space is
// exhausted, or ErrTimeout / the context error on cancellation.
func (pk *packer) solve(ctx context.Context) error {
	solved, err := pk.search(ctx, 0)
	if err != nil {
		return err
	}
	if !solved {
		return ErrInfeasible
	}
	return nil
}

// search places buffers from depth onward. On every return path the
// sectional state equals its state at entry.
func (pk *packer) search(ctx context.Context, depth int) (bool, error) {
	if depth == len(pk.order) {
		return true, nil
	}
	if err := pk.cancelled(ctx); err != nil {
		return false, err
	}
	pk.stats.Nodes++

	idx := pk.order[depth]
	b := &pk.buffers[idx]
	windows := pk.secs.startWindows(pk.active[idx], b.Size)

	var candidate Offset
	var ok bool
	if b.Offset != nil {
		// A fixed buffer has exactly one candidate, valid only while the
		// pinned range is free in every touched section.
		candidate, ok = *b.Offset, windowsContain(windows, *b.Offset)
	} else {
		candidate, ok = nextCandidate(windows, b.Alignment, 0)
	}

	for ok {
		pk.secs.place(pk.active[idx], candidate, b.Size)
		pk.offsets[idx] = candidate
		pk.placed[idx] = true
		pk.stats.Placements++

		solved := false
		var err error
		if pk.dominated(idx) {
			pk.stats.Prunes++
		} else {
			solved, err = pk.search(ctx, depth+1)
		}

		pk.secs.retract(pk.active[idx], candidate, b.Size)
		pk.placed[idx] = false
		if err != nil {
			return false, err
		}
		if solved {
			return true, nil
		}
		pk.stats.Backtracks++
		if klog.V(4).Enabled() {
			klog.Infof("retract buffer %q from offset %d at depth %d", b.ID, candidate, depth)
		}

		if b.Offset != nil {
			break
		}
		candidate, ok = nextCandidate(windows, b.Alignment, candidate+1)
	}
	return false, nil
}

// dominated reports whether the placement of buffer idx left some
// still-unplaced buffer in its conflict set without any feasible offset.
// Buffers outside the conflict set are unaffected by the placement, so only
// conflicting buffers need re-checking.
func (pk *packer) dominated(idx int) bool {
	for _, j := range pk.conflicts[idx] {
		if pk.placed[j] {
			continue
		}
		nb := &pk.buffers[j]
		windows := pk.secs.startWindows(pk.active[j], nb.Size)
		if nb.Offset != nil {
			if !windowsContain(windows, *nb.Offset) {
				return true
			}
		} else if _, ok := nextCandidate(windows, nb.Alignment, 0); !ok {
			return true
		}
	}
	return false
}

// cancelled checks the cooperative cancellation points: the caller's
// context and the solver deadline carried on it. Deadline expiry surfaces
// as ErrTimeout, distinct from ErrInfeasible.
func (pk *packer) cancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	default:
		return nil
	}
}
