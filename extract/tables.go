package extract

import (
	"math"
	"sort"

	"pdf-tagger/geometry"
	"pdf-tagger/pdfsource"
	"pdf-tagger/regions"
)

// Text runs without a measured size count as this many PDF units.
const (
	fallbackRunWidth  = 20.0
	fallbackRunHeight = 10.0
)

// DetectTables clusters a page's text runs into rows and reports blocks of similar
// consecutive rows as tables with evenly spaced rows and columns.
func DetectTables(page int, items []pdfsource.TextItem, vp geometry.Viewport, opts Options) []regions.Region {
	var candidates [][]pdfsource.TextItem
	for _, row := range groupRows(items, opts.RowTolerance) {
		if len(row) >= opts.MinRowRuns {
			candidates = append(candidates, row)
		}
	}

	var out []regions.Region
	var block [][]pdfsource.TextItem
	flush := func() {
		if len(block) >= opts.MinTableRows {
			if r, ok := tableRegion(page, block, vp, opts); ok {
				out = append(out, r)
			}
		}
		block = nil
	}

	prevLen := 0
	for i, row := range candidates {
		similar := i > 0 &&
			abs(len(row)-prevLen) <= 1 &&
			math.Abs(baseline(row[0])-baseline(candidates[i-1][0])) < opts.MaxRowGap
		if !similar && len(block) > 0 {
			flush()
		}
		block = append(block, row)
		prevLen = len(row)
	}
	flush()
	return out
}

// groupRows sorts runs top to bottom and starts a new row whenever a run's baseline
// is tolerance or more away from the first run of the current row. Each row is
// sorted left to right.
func groupRows(items []pdfsource.TextItem, tolerance float64) [][]pdfsource.TextItem {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]pdfsource.TextItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return baseline(sorted[i]) > baseline(sorted[j]) })

	var rows [][]pdfsource.TextItem
	current := []pdfsource.TextItem{sorted[0]}
	anchor := baseline(sorted[0])
	for _, it := range sorted[1:] {
		if math.Abs(baseline(it)-anchor) < tolerance {
			current = append(current, it)
			continue
		}
		rows = append(rows, current)
		current = []pdfsource.TextItem{it}
		anchor = baseline(it)
	}
	rows = append(rows, current)

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].Transform[4] < row[j].Transform[4] })
	}
	return rows
}

func tableRegion(page int, rows [][]pdfsource.TextItem, vp geometry.Viewport, opts Options) (regions.Region, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
		for _, it := range row {
			w, h := it.Width, it.Height
			if w <= 0 {
				w = fallbackRunWidth
			}
			if h <= 0 {
				h = fallbackRunHeight
			}
			x, y := it.Transform[4], it.Transform[5]
			minX = math.Min(minX, x)
			maxX = math.Max(maxX, x+w)
			minY = math.Min(minY, y-h)
			maxY = math.Max(maxY, y)
		}
	}

	pad := opts.TablePadding
	minX = math.Max(0, minX-pad)
	minY = math.Max(0, minY-pad)
	maxX += pad
	maxY += pad

	sx, sy := vp.ScaleX(), vp.ScaleY()
	box := geometry.Box{
		X:      minX * sx,
		Y:      vp.Height - maxY*sy,
		Width:  (maxX - minX) * sx,
		Height: (maxY - minY) * sy,
	}
	if !box.IsFinite() || box.IsDegenerate() {
		return regions.Region{}, false
	}

	shape := regions.EvenTableShape(len(rows), cols, box.Width, box.Height)
	return regions.Region{
		Kind:        regions.KindTable,
		Label:       opts.name(NameData{Kind: regions.KindTable, Page: page, Rows: len(rows), Cols: cols}),
		SemanticTag: regions.TagTable,
		Page:        page,
		Box:         box,
		Table:       &shape,
	}, true
}

func baseline(it pdfsource.TextItem) float64 { return it.Transform[5] }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
