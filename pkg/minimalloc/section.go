// Package minimalloc sectional state.
//
// The solver tracks, for each compressed time index, the set of
// still-unassigned offset ranges as a sorted disjoint list of half-open
// intervals over [0, C). Placing a buffer subtracts its address range from
// every section its active intervals touch; retracting a placement adds the
// range back. A section therefore shrinks monotonically along a search path
// and is restored exactly on backtrack: on return from any recursive search
// call, the sectional state equals its state at entry.
//
// Candidate offsets for a buffer are derived from the sections it touches:
// each free interval [l, u) admits start positions [l, u-size], and the
// per-section start windows are intersected across all touched sections to
// yield the sorted set of feasible placements (the 1-D no-fit computation).
package minimalloc

import "sort"

// section is the free address space at one compressed time index.
type section struct {
	free []Interval[Offset]
}

// remove subtracts [lo, hi) from the free list. The range must be contained
// in a single free interval, which holds for every placement derived from
// the section's own start windows; remove reports false otherwise.
func (s *section) remove(lo, hi Offset) bool {
	i := sort.Search(len(s.free), func(k int) bool { return s.free[k].Upper > lo })
	if i == len(s.free) || !s.free[i].Covers(Interval[Offset]{Lower: lo, Upper: hi}) {
		return false
	}
	iv := s.free[i]
	switch {
	case iv.Lower == lo && iv.Upper == hi:
		s.free = append(s.free[:i], s.free[i+1:]...)
	case iv.Lower == lo:
		s.free[i].Lower = hi
	case iv.Upper == hi:
		s.free[i].Upper = lo
	default:
		s.free = append(s.free, Interval[Offset]{})
		copy(s.free[i+2:], s.free[i+1:])
		s.free[i] = Interval[Offset]{Lower: iv.Lower, Upper: lo}
		s.free[i+1] = Interval[Offset]{Lower: hi, Upper: iv.Upper}
	}
	return true
}

// add returns [lo, hi) to the free list, merging with adjacent free ranges.
// The range must be disjoint from the current free set (it was previously
// removed).
func (s *section) add(lo, hi Offset) {
	i := sort.Search(len(s.free), func(k int) bool { return s.free[k].Lower >= lo })
	mergeLeft := i > 0 && s.free[i-1].Upper == lo
	mergeRight := i < len(s.free) && s.free[i].Lower == hi
	switch {
	case mergeLeft && mergeRight:
		s.free[i-1].Upper = s.free[i].Upper
		s.free = append(s.free[:i], s.free[i+1:]...)
	case mergeLeft:
		s.free[i-1].Upper = hi
	case mergeRight:
		s.free[i].Lower = lo
	default:
		s.free = append(s.free, Interval[Offset]{})
		copy(s.free[i+1:], s.free[i:])
		s.free[i] = Interval[Offset]{Lower: lo, Upper: hi}
	}
}

// startWindows appends to out the start positions admitted by this section
// for a buffer of the given size, as half-open windows.
func (s *section) startWindows(size int64, out []Interval[Offset]) []Interval[Offset] {
	for _, iv := range s.free {
		if iv.Length() >= size {
			out = append(out, Interval[Offset]{Lower: iv.Lower, Upper: iv.Upper - size + 1})
		}
	}
	return out
}

// sections is the solver's sectional state: one free list per compressed
// time index in [0, horizon). Callers identify a buffer by its active
// intervals (in compressed time) and its size.
type sections struct {
	capacity Capacity
	secs     []section
}

// newSections creates the initial state where every section's free space is
// the whole address range [0, capacity).
func newSections(horizon int, capacity Capacity) *sections {
	ss := &sections{capacity: capacity, secs: make([]section, horizon)}
	if capacity > 0 {
		for i := range ss.secs {
			ss.secs[i].free = []Interval[Offset]{{Lower: 0, Upper: capacity}}
		}
	}
	return ss
}

// place subtracts [offset, offset+size) from every section covered by the
// active intervals. It reports false, leaving the state untouched, if the
// range is not free everywhere; successful placements are undone with
// retract.
func (ss *sections) place(active []Lifespan, offset Offset, size int64) bool {
	hi := offset + size
	for _, iv := range active {
		for t := iv.Lower; t < iv.Upper; t++ {
			if !ss.secs[t].remove(offset, hi) {
				for u := iv.Lower; u < t; u++ {
					ss.secs[u].add(offset, hi)
				}
				ss.retractBefore(active, offset, size, iv.Lower)
				return false
			}
		}
	}
	return true
}

// retract restores [offset, offset+size) to every section covered by the
// active intervals, undoing a successful place.
func (ss *sections) retract(active []Lifespan, offset Offset, size int64) {
	ss.retractBefore(active, offset, size, TimeValue(len(ss.secs)))
}

// retractBefore adds the range back to all active sections strictly before
// limit.
func (ss *sections) retractBefore(active []Lifespan, offset Offset, size int64, limit TimeValue) {
	hi := offset + size
	for _, iv := range active {
		if iv.Lower >= limit {
			return
		}
		upper := min(iv.Upper, limit)
		for t := iv.Lower; t < upper; t++ {
			ss.secs[t].add(offset, hi)
		}
	}
}

// startWindows returns the sorted disjoint windows of feasible start
// offsets for a buffer with the given active intervals and size: the
// intersection, over every touched section, of that section's start
// windows, clipped to [0, capacity-size]. An empty result means the buffer
// cannot be placed anywhere in the current state.
func (ss *sections) startWindows(active []Lifespan, size int64) []Interval[Offset] {
	if size > ss.capacity {
		return nil
	}
	windows := []Interval[Offset]{{Lower: 0, Upper: ss.capacity - size + 1}}
	var scratch []Interval[Offset]
	for _, iv := range active {
		for t := iv.Lower; t < iv.Upper; t++ {
			scratch = ss.secs[t].startWindows(size, scratch[:0])
			windows = intersectWindows(windows, scratch)
			if len(windows) == 0 {
				return nil
			}
		}
	}
	return windows
}

// intersectWindows intersects two sorted disjoint interval lists.
func intersectWindows(a, b []Interval[Offset]) []Interval[Offset] {
	var out []Interval[Offset]
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if iv := a[i].Intersection(b[j]); !iv.Empty() {
			out = append(out, iv)
		}
		if a[i].Upper <= b[j].Upper {
			i++
		} else {
			j++
		}
	}
	return out
}

// nextCandidate returns the smallest offset >= from that is a multiple of
// align and lies within one of the sorted windows. The boolean is false
// when no such offset exists.
func nextCandidate(windows []Interval[Offset], align int64, from Offset) (Offset, bool) {
	for _, w := range windows {
		if w.Upper <= from {
			continue
		}
		o := max(w.Lower, from)
		if align > 1 {
			if rem := o % align; rem != 0 {
				o += align - rem
			}
		}
		if o < w.Upper {
			return o, true
		}
	}
	return 0, false
}

// windowsContain reports whether offset lies within one of the sorted
// windows.
func windowsContain(windows []Interval[Offset], offset Offset) bool {
	for _, w := range windows {
		if w.Contains(offset) {
			return true
		}
		if w.Lower > offset {
			break
		}
	}
	return false
}
