package minimalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSection_RemoveSplitsFreeRange(t *testing.T) {
	s := section{free: []Interval[Offset]{{0, 10}}}

	require.True(t, s.remove(3, 6))
	assert.Equal(t, []Interval[Offset]{{0, 3}, {6, 10}}, s.free)

	// Removal at a free-range boundary trims instead of splitting.
	require.True(t, s.remove(0, 2))
	assert.Equal(t, []Interval[Offset]{{2, 3}, {6, 10}}, s.free)
	require.True(t, s.remove(8, 10))
	assert.Equal(t, []Interval[Offset]{{2, 3}, {6, 8}}, s.free)

	// Exact removal drops the range entirely.
	require.True(t, s.remove(2, 3))
	assert.Equal(t, []Interval[Offset]{{6, 8}}, s.free)
}

func TestSection_RemoveRejectsNonFreeRange(t *testing.T) {
	s := section{free: []Interval[Offset]{{0, 4}, {6, 10}}}
	assert.False(t, s.remove(3, 7), "straddles an occupied range")
	assert.False(t, s.remove(4, 6), "entirely occupied")
	assert.Equal(t, []Interval[Offset]{{0, 4}, {6, 10}}, s.free, "failed remove must not mutate")
}

func TestSection_AddMergesNeighbors(t *testing.T) {
	s := section{free: []Interval[Offset]{{0, 3}, {6, 10}}}

	// Bridging both neighbors collapses to one range.
	s.add(3, 6)
	assert.Equal(t, []Interval[Offset]{{0, 10}}, s.free)

	require.True(t, s.remove(4, 8))
	s.add(4, 6)
	assert.Equal(t, []Interval[Offset]{{0, 6}, {8, 10}}, s.free)
	s.add(6, 8)
	assert.Equal(t, []Interval[Offset]{{0, 10}}, s.free)
}

func TestSections_PlaceRetractRestoresState(t *testing.T) {
	ss := newSections(4, 16)
	before := snapshot(ss)

	active := []Lifespan{{0, 2}, {3, 4}}
	require.True(t, ss.place(active, 4, 8))
	assert.Equal(t, []Interval[Offset]{{0, 4}, {12, 16}}, ss.secs[0].free)
	assert.Equal(t, []Interval[Offset]{{0, 4}, {12, 16}}, ss.secs[1].free)
	assert.Equal(t, []Interval[Offset]{{0, 16}}, ss.secs[2].free, "inactive section untouched")
	assert.Equal(t, []Interval[Offset]{{0, 4}, {12, 16}}, ss.secs[3].free)

	ss.retract(active, 4, 8)
	assert.Equal(t, before, snapshot(ss), "retract must restore the exact entry state")
}

func TestSections_FailedPlaceRollsBack(t *testing.T) {
	ss := newSections(3, 8)
	require.True(t, ss.place([]Lifespan{{1, 2}}, 0, 8))
	before := snapshot(ss)

	// Section 1 is full, so a placement across 0..3 must fail and leave
	// sections 0 and 2 exactly as they were.
	assert.False(t, ss.place([]Lifespan{{0, 3}}, 0, 4))
	assert.Equal(t, before, snapshot(ss))
}

func TestSections_StartWindows(t *testing.T) {
	ss := newSections(3, 16)
	require.True(t, ss.place([]Lifespan{{0, 1}}, 0, 4))  // section 0: free [4,16)
	require.True(t, ss.place([]Lifespan{{1, 2}}, 8, 4))  // section 1: free [0,8) u [12,16)
	require.True(t, ss.place([]Lifespan{{2, 3}}, 14, 2)) // section 2: free [0,14)

	windows := ss.startWindows([]Lifespan{{0, 3}}, 4)
	// Size-4 placements must fit [4,16) and [0,8)u[12,16) and [0,14):
	// section 0 admits starts [4,13), section 1 admits [0,5)u[12,13),
	// section 2 admits [0,11).
	assert.Equal(t, []Interval[Offset]{{4, 5}}, windows)

	_, ok := nextCandidate(windows, 1, 0)
	assert.True(t, ok)

	// Nothing admits a size-13 buffer.
	assert.Nil(t, ss.startWindows([]Lifespan{{0, 3}}, 13))
}

func TestSections_StartWindowsOversizedBuffer(t *testing.T) {
	ss := newSections(2, 8)
	assert.Nil(t, ss.startWindows([]Lifespan{{0, 2}}, 9))
}

func TestNextCandidate_AlignmentWalk(t *testing.T) {
	windows := []Interval[Offset]{{3, 5}, {11, 12}, {15, 21}}

	o, ok := nextCandidate(windows, 1, 0)
	require.True(t, ok)
	assert.Equal(t, Offset(3), o)

	o, ok = nextCandidate(windows, 4, 0)
	require.True(t, ok)
	assert.Equal(t, Offset(4), o)

	o, ok = nextCandidate(windows, 4, 5)
	require.True(t, ok)
	assert.Equal(t, Offset(16), o, "11 is in a window but not aligned; 12 is aligned but out")

	o, ok = nextCandidate(windows, 4, 17)
	require.True(t, ok)
	assert.Equal(t, Offset(20), o)

	_, ok = nextCandidate(windows, 4, 21)
	assert.False(t, ok)

	_, ok = nextCandidate(nil, 1, 0)
	assert.False(t, ok)
}

func TestWindowsContain(t *testing.T) {
	windows := []Interval[Offset]{{0, 2}, {8, 12}}
	assert.True(t, windowsContain(windows, 0))
	assert.True(t, windowsContain(windows, 11))
	assert.False(t, windowsContain(windows, 2))
	assert.False(t, windowsContain(windows, 12))
	assert.False(t, windowsContain(windows, 5))
}

func TestIntersectWindows(t *testing.T) {
	a := []Interval[Offset]{{0, 5}, {8, 12}}
	b := []Interval[Offset]{{3, 9}, {11, 20}}
	assert.Equal(t, []Interval[Offset]{{3, 5}, {8, 9}, {11, 12}}, intersectWindows(a, b))
	assert.Nil(t, intersectWindows(a, nil))
}

// snapshot deep-copies the free lists for later comparison.
func snapshot(ss *sections) [][]Interval[Offset] {
	out := make([][]Interval[Offset], len(ss.secs))
	for i := range ss.secs {
		out[i] = append([]Interval[Offset]{}, ss.secs[i].free...)
	}
	return out
}
