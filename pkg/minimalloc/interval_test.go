package minimalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Lifespan
		want bool
	}{
		{"proper overlap", Lifespan{0, 2}, Lifespan{1, 3}, true},
		{"identical", Lifespan{0, 2}, Lifespan{0, 2}, true},
		{"containment", Lifespan{0, 10}, Lifespan{3, 5}, true},
		{"touching", Lifespan{0, 2}, Lifespan{2, 4}, false},
		{"disjoint", Lifespan{0, 2}, Lifespan{3, 5}, false},
		{"empty interval strictly inside", Lifespan{1, 1}, Lifespan{0, 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestInterval_Intersection(t *testing.T) {
	a := Lifespan{0, 5}
	b := Lifespan{3, 8}
	assert.Equal(t, Lifespan{3, 5}, a.Intersection(b))
	assert.Equal(t, Lifespan{3, 5}, b.Intersection(a))

	disjoint := a.Intersection(Lifespan{7, 9})
	assert.True(t, disjoint.Empty())
}

func TestInterval_Less(t *testing.T) {
	assert.True(t, Lifespan{0, 2}.Less(Lifespan{1, 2}))
	assert.True(t, Lifespan{0, 2}.Less(Lifespan{0, 3}))
	assert.False(t, Lifespan{0, 2}.Less(Lifespan{0, 2}))
	assert.False(t, Lifespan{1, 2}.Less(Lifespan{0, 9}))
}

func TestInterval_Covers(t *testing.T) {
	outer := Lifespan{0, 10}
	assert.True(t, outer.Covers(Lifespan{0, 10}))
	assert.True(t, outer.Covers(Lifespan{3, 7}))
	assert.False(t, outer.Covers(Lifespan{3, 11}))
	assert.False(t, outer.Covers(Lifespan{-1, 5}))
}
