// Package minimalloc overlap engine.
//
// Two buffers overlap iff there exists a time at which both are active,
// where a buffer is active at t when t lies inside its lifespan and outside
// all of its gaps. Equivalently, a buffer's active intervals are its
// lifespan minus the union of its gaps, and two buffers overlap iff one of
// their active intervals intersects one of the other's.
//
// The predicate is shared by the validator and the solver's conflict-graph
// construction, so it must agree exactly with the model's notion of
// liveness: touching intervals do not overlap, and a gap suppresses
// liveness over its entire half-open range.
package minimalloc

// ActiveIntervals returns the buffer's active intervals: the lifespan minus
// its gaps, as a sorted disjoint list of non-empty half-open intervals.
//
// Gaps are assumed sorted by Lower and pairwise disjoint (the canonical
// representation). An empty gap list yields the lifespan itself. The
// subtraction is a single linear sweep, O(len(Gaps)).
func (b *Buffer) ActiveIntervals() []Lifespan {
	active := make([]Lifespan, 0, len(b.Gaps)+1)
	cursor := b.Lifespan.Lower
	for _, g := range b.Gaps {
		lo := max(g.Lifespan.Lower, b.Lifespan.Lower)
		hi := min(g.Lifespan.Upper, b.Lifespan.Upper)
		if lo >= hi {
			continue
		}
		if cursor < lo {
			active = append(active, Lifespan{Lower: cursor, Upper: lo})
		}
		if hi > cursor {
			cursor = hi
		}
	}
	if cursor < b.Lifespan.Upper {
		active = append(active, Lifespan{Lower: cursor, Upper: b.Lifespan.Upper})
	}
	return active
}

// Overlaps reports whether buffers a and b are simultaneously active at some
// time. The two sorted active-interval sequences are swept with two
// pointers, so the cost is O(len(a.Gaps) + len(b.Gaps)).
func Overlaps(a, b *Buffer) bool {
	// Cheap rejection on the outer lifespans before decomposing gaps.
	if !a.Lifespan.Overlaps(b.Lifespan) {
		return false
	}
	as := a.ActiveIntervals()
	bs := b.ActiveIntervals()
	i, j := 0, 0
	for i < len(as) && j < len(bs) {
		if as[i].Overlaps(bs[j]) {
			return true
		}
		// Advance whichever interval ends first; it cannot overlap anything
		// later in the other sequence.
		if as[i].Upper <= bs[j].Upper {
			i++
		} else {
			j++
		}
	}
	return false
}
