package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlap(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Box
		buffer float64
		want   bool
	}{
		{"disjoint", Box{0, 0, 10, 10}, Box{20, 20, 10, 10}, 0, false},
		{"intersecting", Box{0, 0, 50, 50}, Box{40, 0, 50, 50}, 0, true},
		{"touching edges without buffer", Box{0, 0, 10, 10}, Box{10, 0, 10, 10}, 0, false},
		{"touching edges with buffer", Box{0, 0, 10, 10}, Box{10, 0, 10, 10}, 1, true},
		{"gap wider than buffer", Box{0, 0, 10, 10}, Box{12, 0, 10, 10}, 1, false},
		{"nested", Box{0, 0, 100, 100}, Box{10, 10, 5, 5}, 0, true},
		{"zero width", Box{5, 5, 0, 10}, Box{0, 0, 20, 20}, 1, false},
		{"zero height", Box{0, 0, 20, 20}, Box{5, 5, 10, 0}, 1, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlap(tc.a, tc.b, tc.buffer))
			assert.Equal(t, tc.want, Overlap(tc.b, tc.a, tc.buffer), "overlap must be symmetric")
		})
	}
}

func TestOverlapDegenerateWithItself(t *testing.T) {
	for _, b := range []Box{{1, 1, 0, 5}, {1, 1, 5, 0}, {1, 1, 0, 0}} {
		assert.False(t, Overlap(b, b, 0))
		assert.False(t, Overlap(b, b, 1))
	}
	assert.True(t, Overlap(Box{1, 1, 5, 5}, Box{1, 1, 5, 5}, 0))
}

func TestUnion(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := Union()
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("single box is unchanged", func(t *testing.T) {
		b := Box{3, 4, 5, 6}
		got, err := Union(b)
		require.NoError(t, err)
		assert.Equal(t, b, got)
	})

	t.Run("bounds extremes", func(t *testing.T) {
		boxes := []Box{{10, 20, 5, 5}, {0, 30, 40, 2}, {15, 5, 1, 1}}
		got, err := Union(boxes...)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.X)
		assert.Equal(t, 5.0, got.Y)
		assert.Equal(t, 40.0, got.Right())
		assert.Equal(t, 32.0, got.Bottom())
	})

	t.Run("merging in steps matches merging at once", func(t *testing.T) {
		a, b, c := Box{0, 0, 10, 10}, Box{5, 5, 20, 3}, Box{-4, 8, 2, 30}
		ab, err := Union(a, b)
		require.NoError(t, err)
		stepwise, err := Union(ab, c)
		require.NoError(t, err)
		direct, err := Union(a, b, c)
		require.NoError(t, err)
		assert.Equal(t, direct, stepwise)
	})
}

func TestContains(t *testing.T) {
	section := Box{0, 0, 200, 200}
	assert.True(t, Contains(section, Box{10, 10, 50, 20}))
	assert.True(t, Contains(section, section))
	assert.False(t, Contains(section, Box{190, 10, 20, 20}))
	assert.False(t, Contains(Box{10, 10, 50, 20}, section))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Box{0, 0, 1, 1}.Validate())
	assert.NoError(t, Box{0, 0, 0, 0}.Validate())
	assert.ErrorIs(t, Box{math.NaN(), 0, 1, 1}.Validate(), ErrInvalidBox)
	assert.ErrorIs(t, Box{0, math.Inf(1), 1, 1}.Validate(), ErrInvalidBox)
	assert.ErrorIs(t, Box{0, 0, -1, 1}.Validate(), ErrInvalidBox)
}
