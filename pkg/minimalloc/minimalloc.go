// Package minimalloc solves the static memory allocation problem for
// machine-learning accelerators: given a fixed set of buffers, each with a
// known lifespan and size, assign every buffer a byte offset into a single
// contiguous memory region so that no two simultaneously-live buffers occupy
// overlapping address ranges, subject to per-buffer alignment and optional
// fixed-offset constraints.
//
// The package exposes three entry points:
//
//	Solve        - constraint-propagation-plus-backtracking search
//	Validate     - certifies a (Problem, Solution) pair
//	Canonicalize - normalizes a Problem into its canonical form
//
// This file defines the problem data model: intervals, gaps, buffers,
// problems and solutions, together with their structural invariants.
package minimalloc

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Scalar aliases shared across the data model. All quantities are unitless
// 64-bit integers: times are abstract instants, offsets and capacities are
// typically bytes.
type (
	// Capacity is the total size of the memory address space available to
	// a Problem. No buffer may be assigned an offset such that
	// offset + size > capacity.
	Capacity = int64

	// Offset is a memory address (e.g. in bytes) assigned to a buffer.
	Offset = int64

	// TimeValue is an abstract unitless start/end time of a buffer.
	TimeValue = int64

	// Area is the unitless product of a buffer's length and size.
	Area = int64
)

// Integer constrains Interval endpoints to signed integer types.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Interval is a half-open range [Lower, Upper) with Lower <= Upper.
// Equality is component-wise; ordering is lexicographic by (Lower, Upper).
type Interval[T Integer] struct {
	Lower T
	Upper T
}

// Length returns Upper - Lower.
func (iv Interval[T]) Length() T { return iv.Upper - iv.Lower }

// Empty reports whether the interval contains no points.
func (iv Interval[T]) Empty() bool { return iv.Lower >= iv.Upper }

// Contains reports whether t lies within [Lower, Upper).
func (iv Interval[T]) Contains(t T) bool { return iv.Lower <= t && t < iv.Upper }

// Covers reports whether other is entirely contained within this interval.
func (iv Interval[T]) Covers(other Interval[T]) bool {
	return iv.Lower <= other.Lower && other.Upper <= iv.Upper
}

// Overlaps reports whether iv.Lower < other.Upper and other.Lower < iv.Upper.
// For non-empty intervals this means they share at least one point; touching
// intervals (iv.Upper == other.Lower) do not overlap. Empty intervals are not
// special-cased: an empty interval lying strictly inside the other reports
// true.
func (iv Interval[T]) Overlaps(other Interval[T]) bool {
	return iv.Lower < other.Upper && other.Lower < iv.Upper
}

// Intersection returns the common sub-range of two intervals. The result is
// empty (Lower >= Upper) when the intervals do not overlap.
func (iv Interval[T]) Intersection(other Interval[T]) Interval[T] {
	return Interval[T]{Lower: max(iv.Lower, other.Lower), Upper: min(iv.Upper, other.Upper)}
}

// Less orders intervals lexicographically by (Lower, Upper).
func (iv Interval[T]) Less(other Interval[T]) bool {
	if iv.Lower != other.Lower {
		return iv.Lower < other.Lower
	}
	return iv.Upper < other.Upper
}

// String returns the interval in [lower,upper) notation.
func (iv Interval[T]) String() string { return fmt.Sprintf("[%d,%d)", iv.Lower, iv.Upper) }

// Lifespan is the half-open time interval during which a buffer exists.
type Lifespan = Interval[TimeValue]

// Gap denotes a sub-range of a buffer's lifespan during which the buffer is
// inactive and its memory may be reused by other buffers.
//
// Canonical form (established by Canonicalize): gaps are sorted by Lower,
// pairwise disjoint, non-adjacent, and strictly interior to the owning
// buffer's lifespan.
type Gap struct {
	Lifespan Lifespan
}

// Buffer is a single allocation request: a unique identifier, a lifespan, a
// positive size, an alignment that must divide any assigned offset, an
// optional set of gaps, and an optional fixed offset pinning the buffer to a
// specific address.
type Buffer struct {
	// ID uniquely identifies this buffer within a Problem (used in file I/O).
	ID string

	// Lifespan is the half-open [start, end) interval during which the
	// buffer nominally exists; start < end.
	Lifespan Lifespan

	// Size is the amount of memory occupied during the lifespan; > 0.
	Size int64

	// Alignment must divide any offset assigned to this buffer; >= 1.
	Alignment int64

	// Gaps are slots where this buffer is inactive.
	Gaps []Gap

	// Offset, if non-nil, is the fixed position of this buffer.
	Offset *Offset
}

// Area returns the product of the buffer's size and lifespan length.
func (b *Buffer) Area() Area { return b.Size * b.Lifespan.Length() }

// ActiveAt reports whether the buffer occupies memory at time t: t lies
// within the lifespan and within none of the gaps.
func (b *Buffer) ActiveAt(t TimeValue) bool {
	if !b.Lifespan.Contains(t) {
		return false
	}
	for _, g := range b.Gaps {
		if g.Lifespan.Contains(t) {
			return false
		}
	}
	return true
}

// clone returns a deep copy of the buffer (gaps and fixed offset included).
func (b *Buffer) clone() Buffer {
	out := *b
	if b.Gaps != nil {
		out.Gaps = make([]Gap, len(b.Gaps))
		copy(out.Gaps, b.Gaps)
	}
	if b.Offset != nil {
		o := *b.Offset
		out.Offset = &o
	}
	return out
}

// Solution is a vector of offsets parallel to a Problem's buffer list:
// Offsets[i] is the address assigned to Problem.Buffers[i].
type Solution struct {
	Offsets []Offset
}

// Problem is a static allocation instance: a finite list of buffers plus a
// non-negative capacity.
type Problem struct {
	Buffers  []Buffer
	Capacity Capacity
}

// Check validates the structural invariants of the problem and returns an
// aggregate error describing every violation found, or nil when the problem
// is well-formed. It does not decide feasibility.
func (p *Problem) Check() error {
	var result *multierror.Error
	if p.Capacity < 0 {
		result = multierror.Append(result, errors.Errorf("capacity %d is negative", p.Capacity))
	}
	seen := make(map[string]int, len(p.Buffers))
	for i := range p.Buffers {
		b := &p.Buffers[i]
		if prev, dup := seen[b.ID]; dup {
			result = multierror.Append(result,
				errors.Errorf("buffer %d: id %q already used by buffer %d", i, b.ID, prev))
		} else {
			seen[b.ID] = i
		}
		if b.Lifespan.Lower >= b.Lifespan.Upper {
			result = multierror.Append(result,
				errors.Errorf("buffer %q: lifespan %s is empty or inverted", b.ID, b.Lifespan))
		}
		if b.Size <= 0 {
			result = multierror.Append(result,
				errors.Errorf("buffer %q: size %d is not positive", b.ID, b.Size))
		}
		if b.Alignment < 1 {
			result = multierror.Append(result,
				errors.Errorf("buffer %q: alignment %d is not positive", b.ID, b.Alignment))
		}
		for _, g := range b.Gaps {
			if g.Lifespan.Lower > g.Lifespan.Upper {
				result = multierror.Append(result,
					errors.Errorf("buffer %q: gap %s is inverted", b.ID, g.Lifespan))
				continue
			}
			if !b.Lifespan.Covers(g.Lifespan) {
				result = multierror.Append(result,
					errors.Errorf("buffer %q: gap %s lies outside lifespan %s", b.ID, g.Lifespan, b.Lifespan))
			}
			if g.Lifespan == b.Lifespan {
				result = multierror.Append(result,
					errors.Errorf("buffer %q: gap %s covers the entire lifespan", b.ID, b.Lifespan))
			}
		}
		if b.Offset != nil {
			if *b.Offset < 0 {
				result = multierror.Append(result,
					errors.Errorf("buffer %q: fixed offset %d is negative", b.ID, *b.Offset))
			} else if *b.Offset+b.Size > p.Capacity {
				result = multierror.Append(result,
					errors.Errorf("buffer %q: fixed offset %d + size %d exceeds capacity %d",
						b.ID, *b.Offset, b.Size, p.Capacity))
			}
			if b.Alignment > 1 && *b.Offset%b.Alignment != 0 {
				result = multierror.Append(result,
					errors.Errorf("buffer %q: fixed offset %d is not a multiple of alignment %d",
						b.ID, *b.Offset, b.Alignment))
			}
		}
	}
	if result == nil {
		return nil
	}
	return &ProblemError{err: result.ErrorOrNil()}
}

// StripSolution extracts a Solution from the offset carried by each buffer
// and clears those offsets. It fails if any buffer has no offset assigned.
func (p *Problem) StripSolution() (*Solution, error) {
	offsets := make([]Offset, len(p.Buffers))
	for i := range p.Buffers {
		if p.Buffers[i].Offset == nil {
			return nil, &ProblemError{err: errors.Errorf("buffer %q has no offset to strip", p.Buffers[i].ID)}
		}
		offsets[i] = *p.Buffers[i].Offset
	}
	for i := range p.Buffers {
		p.Buffers[i].Offset = nil
	}
	return &Solution{Offsets: offsets}, nil
}

// clone returns a deep copy of the problem.
func (p *Problem) clone() *Problem {
	out := &Problem{Capacity: p.Capacity, Buffers: make([]Buffer, len(p.Buffers))}
	for i := range p.Buffers {
		out.Buffers[i] = p.Buffers[i].clone()
	}
	return out
}
