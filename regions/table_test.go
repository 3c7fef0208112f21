package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvenTableShape(t *testing.T) {
	shape := EvenTableShape(4, 2, 100, 80)
	assert.Equal(t, []float64{0, 20, 40, 60, 80}, shape.RowPositions)
	assert.Equal(t, []float64{0, 50, 100}, shape.ColPositions)
	assert.NoError(t, shape.Validate(100, 80))

	clamped := EvenTableShape(0, -3, 10, 10)
	assert.Equal(t, 1, clamped.RowCount)
	assert.Equal(t, 1, clamped.ColCount)
}

func TestTableShapeValidate(t *testing.T) {
	one := 1
	five := 5
	tests := []struct {
		name  string
		shape TableShape
		ok    bool
	}{
		{"even", EvenTableShape(2, 2, 10, 10), true},
		{"wrong length", TableShape{RowCount: 2, ColCount: 1, RowPositions: []float64{0, 10}, ColPositions: []float64{0, 10}}, false},
		{"not increasing", TableShape{RowCount: 2, ColCount: 1, RowPositions: []float64{0, 5, 5}, ColPositions: []float64{0, 10}}, false},
		{"past the height", TableShape{RowCount: 1, ColCount: 1, RowPositions: []float64{0, 11}, ColPositions: []float64{0, 10}}, false},
		{"negative", TableShape{RowCount: 1, ColCount: 1, RowPositions: []float64{-1, 10}, ColPositions: []float64{0, 10}}, false},
		{"header in range", func() TableShape { s := EvenTableShape(2, 2, 10, 10); s.HeaderRow = &one; return s }(), true},
		{"header out of range", func() TableShape { s := EvenTableShape(2, 2, 10, 10); s.HeaderCol = &five; return s }(), false},
		{"no rows", TableShape{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.shape.Validate(10, 10)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTableShape)
			}
		})
	}
}

func TestTableShapeWithCounts(t *testing.T) {
	shape := EvenTableShape(3, 3, 90, 90).ToggleHeaderRow(2).ToggleHeaderCol(0)

	fewer := shape.WithCounts(2, 0, 90, 90)
	assert.Equal(t, 2, fewer.RowCount)
	assert.Equal(t, 1, fewer.ColCount)
	assert.Nil(t, fewer.HeaderRow)
	if assert.NotNil(t, fewer.HeaderCol) {
		assert.Equal(t, 0, *fewer.HeaderCol)
	}
	assert.Equal(t, []float64{0, 45, 90}, fewer.RowPositions)
}

func TestTableShapeToggleHeader(t *testing.T) {
	shape := EvenTableShape(3, 3, 90, 90)

	on := shape.ToggleHeaderRow(0)
	if assert.NotNil(t, on.HeaderRow) {
		assert.Equal(t, 0, *on.HeaderRow)
	}
	assert.Nil(t, shape.HeaderRow, "toggle must not modify the receiver")

	moved := on.ToggleHeaderRow(1)
	assert.Equal(t, 1, *moved.HeaderRow)

	off := moved.ToggleHeaderRow(1)
	assert.Nil(t, off.HeaderRow)
}
