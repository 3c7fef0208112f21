package regions

import "fmt"

// TableShape describes the row and column bands of a table region. Positions are
// fence-posts measured from the region's own origin, count+1 of them per axis.
type TableShape struct {
	RowCount     int       `json:"rows"`
	ColCount     int       `json:"cols"`
	RowPositions []float64 `json:"rowPositions"`
	ColPositions []float64 `json:"colPositions"`
	HeaderRow    *int      `json:"headerRow,omitempty"`
	HeaderCol    *int      `json:"headerCol,omitempty"`
}

// EvenTableShape spreads rows and cols evenly over a width × height region.
func EvenTableShape(rows, cols int, width, height float64) TableShape {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return TableShape{
		RowCount:     rows,
		ColCount:     cols,
		RowPositions: evenPositions(rows, height),
		ColPositions: evenPositions(cols, width),
	}
}

func evenPositions(count int, length float64) []float64 {
	out := make([]float64, count+1)
	for i := range out {
		out[i] = float64(i) * length / float64(count)
	}
	out[count] = length
	return out
}

func (t TableShape) Clone() TableShape {
	c := t
	c.RowPositions = append([]float64(nil), t.RowPositions...)
	c.ColPositions = append([]float64(nil), t.ColPositions...)
	if t.HeaderRow != nil {
		h := *t.HeaderRow
		c.HeaderRow = &h
	}
	if t.HeaderCol != nil {
		h := *t.HeaderCol
		c.HeaderCol = &h
	}
	return c
}

// Validate checks the shape against the size of the region that owns it.
func (t TableShape) Validate(width, height float64) error {
	if t.RowCount < 1 || t.ColCount < 1 {
		return fmt.Errorf("%w: %d×%d", ErrInvalidTableShape, t.RowCount, t.ColCount)
	}
	if err := validatePositions("row", t.RowPositions, t.RowCount, height); err != nil {
		return err
	}
	if err := validatePositions("column", t.ColPositions, t.ColCount, width); err != nil {
		return err
	}
	if t.HeaderRow != nil && (*t.HeaderRow < 0 || *t.HeaderRow >= t.RowCount) {
		return fmt.Errorf("%w: header row %d out of range", ErrInvalidTableShape, *t.HeaderRow)
	}
	if t.HeaderCol != nil && (*t.HeaderCol < 0 || *t.HeaderCol >= t.ColCount) {
		return fmt.Errorf("%w: header column %d out of range", ErrInvalidTableShape, *t.HeaderCol)
	}
	return nil
}

// positions may overshoot the bound by float noise after a resize
const positionEpsilon = 1e-6

func validatePositions(axis string, positions []float64, count int, bound float64) error {
	if len(positions) != count+1 {
		return fmt.Errorf("%w: %d %s positions for %d bands", ErrInvalidTableShape, len(positions), axis, count)
	}
	for i, p := range positions {
		if p < -positionEpsilon || p > bound+positionEpsilon {
			return fmt.Errorf("%w: %s position %v outside [0, %v]", ErrInvalidTableShape, axis, p, bound)
		}
		if i > 0 && p <= positions[i-1] {
			return fmt.Errorf("%w: %s positions not strictly increasing at %d", ErrInvalidTableShape, axis, i)
		}
	}
	return nil
}

// WithCounts changes the band counts, respacing every fence-post evenly. Headers that
// no longer exist are dropped.
func (t TableShape) WithCounts(rows, cols int, width, height float64) TableShape {
	next := EvenTableShape(rows, cols, width, height)
	if t.HeaderRow != nil && *t.HeaderRow < next.RowCount {
		h := *t.HeaderRow
		next.HeaderRow = &h
	}
	if t.HeaderCol != nil && *t.HeaderCol < next.ColCount {
		h := *t.HeaderCol
		next.HeaderCol = &h
	}
	return next
}

// ToggleHeaderRow marks row i as the header, or clears it when i already is.
func (t TableShape) ToggleHeaderRow(i int) TableShape {
	c := t.Clone()
	c.HeaderRow = toggle(c.HeaderRow, i)
	return c
}

// ToggleHeaderCol marks column i as the header, or clears it when i already is.
func (t TableShape) ToggleHeaderCol(i int) TableShape {
	c := t.Clone()
	c.HeaderCol = toggle(c.HeaderCol, i)
	return c
}

func toggle(current *int, i int) *int {
	if current != nil && *current == i {
		return nil
	}
	return &i
}

// Resize scales the fence-posts from an old region size to a new one.
func (t TableShape) Resize(oldWidth, oldHeight, newWidth, newHeight float64) TableShape {
	c := t.Clone()
	c.RowPositions = rescale(c.RowPositions, oldHeight, newHeight)
	c.ColPositions = rescale(c.ColPositions, oldWidth, newWidth)
	return c
}

func rescale(positions []float64, from, to float64) []float64 {
	if len(positions) < 2 {
		return positions
	}
	if from <= 0 {
		return evenPositions(len(positions)-1, to)
	}
	f := to / from
	for i := range positions {
		positions[i] *= f
	}
	return positions
}
