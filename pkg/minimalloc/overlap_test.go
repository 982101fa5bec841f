package minimalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gapsOf(spans ...Lifespan) []Gap {
	gaps := make([]Gap, len(spans))
	for i, s := range spans {
		gaps[i] = Gap{Lifespan: s}
	}
	return gaps
}

// The boundary table every overlap implementation must satisfy, including
// the gap edge cases from the reference behavior.
func TestOverlaps_BoundaryCases(t *testing.T) {
	tests := []struct {
		name string
		a, b Buffer
		want bool
	}{
		{
			name: "plain overlap",
			a:    Buffer{Lifespan: Lifespan{0, 2}},
			b:    Buffer{Lifespan: Lifespan{1, 3}},
			want: true,
		},
		{
			name: "disjoint",
			a:    Buffer{Lifespan: Lifespan{0, 2}},
			b:    Buffer{Lifespan: Lifespan{3, 5}},
			want: false,
		},
		{
			name: "touching lifespans",
			a:    Buffer{Lifespan: Lifespan{0, 2}},
			b:    Buffer{Lifespan: Lifespan{2, 4}},
			want: false,
		},
		{
			name: "gaps leave common active time",
			a:    Buffer{Lifespan: Lifespan{0, 10}, Gaps: gapsOf(Lifespan{1, 4}, Lifespan{6, 9})},
			b:    Buffer{Lifespan: Lifespan{5, 15}, Gaps: gapsOf(Lifespan{6, 9}, Lifespan{11, 14})},
			want: true,
		},
		{
			name: "gaps eliminate common active time",
			a:    Buffer{Lifespan: Lifespan{0, 10}, Gaps: gapsOf(Lifespan{1, 9})},
			b:    Buffer{Lifespan: Lifespan{5, 15}, Gaps: gapsOf(Lifespan{6, 14})},
			want: false,
		},
		{
			name: "gap covers whole shared range, gap on second",
			a:    Buffer{Lifespan: Lifespan{0, 10}},
			b:    Buffer{Lifespan: Lifespan{5, 15}, Gaps: gapsOf(Lifespan{5, 10})},
			want: false,
		},
		{
			name: "gap covers whole shared range, gap on first",
			a:    Buffer{Lifespan: Lifespan{0, 10}, Gaps: gapsOf(Lifespan{5, 10})},
			b:    Buffer{Lifespan: Lifespan{5, 15}},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(&tt.a, &tt.b))
			assert.Equal(t, tt.want, Overlaps(&tt.b, &tt.a), "predicate must be symmetric")
		})
	}
}

func TestActiveIntervals_NoGaps(t *testing.T) {
	b := Buffer{Lifespan: Lifespan{3, 9}}
	assert.Equal(t, []Lifespan{{3, 9}}, b.ActiveIntervals())
}

func TestActiveIntervals_InteriorGaps(t *testing.T) {
	b := Buffer{Lifespan: Lifespan{0, 10}, Gaps: gapsOf(Lifespan{1, 4}, Lifespan{6, 9})}
	assert.Equal(t, []Lifespan{{0, 1}, {4, 6}, {9, 10}}, b.ActiveIntervals())
}

func TestActiveIntervals_BoundaryGaps(t *testing.T) {
	// Non-canonical gaps touching the boundary still decompose correctly.
	b := Buffer{Lifespan: Lifespan{0, 10}, Gaps: gapsOf(Lifespan{0, 3}, Lifespan{8, 10})}
	assert.Equal(t, []Lifespan{{3, 8}}, b.ActiveIntervals())
}

// Decomposing into active intervals and recomposing yields the original
// active set: ActiveAt(t) agrees with interval membership at every instant.
func TestActiveIntervals_RoundTrip(t *testing.T) {
	buffers := []Buffer{
		{Lifespan: Lifespan{0, 12}},
		{Lifespan: Lifespan{0, 12}, Gaps: gapsOf(Lifespan{2, 4}, Lifespan{7, 8})},
		{Lifespan: Lifespan{5, 15}, Gaps: gapsOf(Lifespan{6, 14})},
	}
	for _, b := range buffers {
		active := b.ActiveIntervals()
		for t0 := b.Lifespan.Lower - 1; t0 <= b.Lifespan.Upper+1; t0++ {
			inActive := false
			for _, iv := range active {
				if iv.Contains(t0) {
					inActive = true
					break
				}
			}
			require.Equal(t, b.ActiveAt(t0), inActive, "t=%d lifespan=%s", t0, b.Lifespan)
		}
	}
}

// Buffers whose lifespans are disjoint after gap removal never overlap.
func TestOverlaps_DisjointAfterGaps(t *testing.T) {
	a := Buffer{Lifespan: Lifespan{0, 20}, Gaps: gapsOf(Lifespan{5, 20})}
	b := Buffer{Lifespan: Lifespan{5, 20}}
	assert.False(t, Overlaps(&a, &b))
}
