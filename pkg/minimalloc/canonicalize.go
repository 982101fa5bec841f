// Package minimalloc preprocessor.
//
// Canonicalize rewrites a Problem into an equivalent canonical form:
//
//  1. Gap canonicalization: within each buffer, gaps are sorted by Lower,
//     overlapping or adjacent gaps are merged, empty gaps are dropped, and a
//     gap touching a lifespan boundary is folded into a shrunken lifespan.
//  2. Time compression: the distinct time points appearing as lifespan or
//     gap endpoints are renumbered 0..T. The overlap predicate depends only
//     on the ordering of endpoints, so the rewrite preserves semantics
//     under any strictly monotone remapping.
//
// Canonicalize is idempotent: applying it to its own output is the
// identity. The solver additionally partitions a canonical problem into
// connected components of the overlap graph (see partition), which are
// solved independently; that step is internal because a partition is not
// itself a Problem.
package minimalloc

import (
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Canonicalize returns a canonical copy of the problem, or a *ProblemError
// when the problem is structurally invalid (inconsistent gaps, non-positive
// sizes, alignment below one, or a fixed offset violating capacity or
// alignment). The input is never modified.
func Canonicalize(p *Problem) (*Problem, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}
	out := &Problem{Capacity: p.Capacity, Buffers: make([]Buffer, len(p.Buffers))}
	var result *multierror.Error
	for i := range p.Buffers {
		b, err := canonicalizeBuffer(&p.Buffers[i])
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		out.Buffers[i] = b
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, &ProblemError{err: err}
	}
	compressTime(out)
	return out, nil
}

// canonicalizeBuffer sorts and merges the buffer's gaps, dropping empty ones
// and shrinking the lifespan when a gap touches a boundary. A buffer left without any
// active time is reported as an error.
func canonicalizeBuffer(b *Buffer) (Buffer, error) {
	out := b.clone()
	if len(out.Gaps) == 0 {
		out.Gaps = nil
		return out, nil
	}
	sort.Slice(out.Gaps, func(i, j int) bool {
		return out.Gaps[i].Lifespan.Less(out.Gaps[j].Lifespan)
	})

	// Merge overlapping or adjacent gaps, dropping empty ones.
	merged := out.Gaps[:0]
	for _, g := range out.Gaps {
		if g.Lifespan.Empty() {
			continue
		}
		if n := len(merged); n > 0 && g.Lifespan.Lower <= merged[n-1].Lifespan.Upper {
			if g.Lifespan.Upper > merged[n-1].Lifespan.Upper {
				merged[n-1].Lifespan.Upper = g.Lifespan.Upper
			}
			continue
		}
		merged = append(merged, g)
	}

	// A boundary-touching gap is equivalent to a shorter lifespan.
	if n := len(merged); n > 0 && merged[n-1].Lifespan.Upper == out.Lifespan.Upper {
		out.Lifespan.Upper = merged[n-1].Lifespan.Lower
		merged = merged[:n-1]
	}
	if len(merged) > 0 && merged[0].Lifespan.Lower == out.Lifespan.Lower {
		out.Lifespan.Lower = merged[0].Lifespan.Upper
		merged = merged[1:]
	}
	if out.Lifespan.Empty() {
		return Buffer{}, errors.Errorf("buffer %q: gaps cover the entire lifespan", b.ID)
	}
	if len(merged) == 0 {
		merged = nil
	}
	out.Gaps = merged
	return out, nil
}

// compressTime renumbers every distinct lifespan and gap endpoint to a
// compact index 0..T, in place.
func compressTime(p *Problem) {
	points := make(map[TimeValue]struct{})
	for i := range p.Buffers {
		b := &p.Buffers[i]
		points[b.Lifespan.Lower] = struct{}{}
		points[b.Lifespan.Upper] = struct{}{}
		for _, g := range b.Gaps {
			points[g.Lifespan.Lower] = struct{}{}
			points[g.Lifespan.Upper] = struct{}{}
		}
	}
	sorted := make([]TimeValue, 0, len(points))
	for t := range points {
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := make(map[TimeValue]TimeValue, len(sorted))
	for i, t := range sorted {
		index[t] = TimeValue(i)
	}
	for i := range p.Buffers {
		b := &p.Buffers[i]
		b.Lifespan.Lower = index[b.Lifespan.Lower]
		b.Lifespan.Upper = index[b.Lifespan.Upper]
		for j := range b.Gaps {
			b.Gaps[j].Lifespan.Lower = index[b.Gaps[j].Lifespan.Lower]
			b.Gaps[j].Lifespan.Upper = index[b.Gaps[j].Lifespan.Upper]
		}
	}
}

// component is one connected component of a canonical problem's overlap
// graph: an independent sub-problem sharing the original capacity.
type component struct {
	// indices maps local buffer positions back to positions in the
	// originating problem.
	indices []int

	// buffers are the component's buffers, in originating order.
	buffers []Buffer

	// conflicts holds, for each local buffer, the local indices of the
	// other buffers it actively overlaps (its conflict set).
	conflicts [][]int
}

// partition splits a canonical problem into connected components of the
// overlap graph and computes per-buffer conflict sets. Buffers that overlap
// nothing become singleton components. Components are emitted in order of
// their smallest buffer index, so partitioning is deterministic.
func partition(p *Problem) []*component {
	n := len(p.Buffers)
	adjacency := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if Overlaps(&p.Buffers[i], &p.Buffers[j]) {
				adjacency[i] = append(adjacency[i], j)
				adjacency[j] = append(adjacency[j], i)
			}
		}
	}

	assigned := make([]int, n)
	for i := range assigned {
		assigned[i] = -1
	}
	var comps []*component
	for start := 0; start < n; start++ {
		if assigned[start] >= 0 {
			continue
		}
		id := len(comps)
		queue := []int{start}
		assigned[start] = id
		var members []int
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			members = append(members, cur)
			for _, next := range adjacency[cur] {
				if assigned[next] < 0 {
					assigned[next] = id
					queue = append(queue, next)
				}
			}
		}
		sort.Ints(members)

		local := make(map[int]int, len(members))
		for li, gi := range members {
			local[gi] = li
		}
		comp := &component{
			indices:   members,
			buffers:   make([]Buffer, len(members)),
			conflicts: make([][]int, len(members)),
		}
		for li, gi := range members {
			comp.buffers[li] = p.Buffers[gi].clone()
			for _, other := range adjacency[gi] {
				comp.conflicts[li] = append(comp.conflicts[li], local[other])
			}
			sort.Ints(comp.conflicts[li])
		}
		comps = append(comps, comp)
	}
	return comps
}
