package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"

	"pdf-tagger/geometry"
	"pdf-tagger/regions"
)

var (
	colorImage   = color.NRGBA{R: 255, G: 255, B: 0, A: 77}
	colorTable   = color.NRGBA{R: 150, G: 200, B: 255, A: 51}
	colorH1      = color.NRGBA{R: 255, A: 77}
	colorH2      = color.NRGBA{G: 255, A: 77}
	colorH3      = color.NRGBA{B: 255, A: 77}
	colorDefault = color.NRGBA{A: 77}

	colorGrid   = color.NRGBA{R: 90, G: 90, B: 90, A: 200}
	colorHeader = color.NRGBA{B: 255, A: 255}
	colorPath   = color.NRGBA{B: 255, A: 255}
)

// Style switches optional overlay layers.
type Style struct {
	TableGrid    bool
	ReadingOrder bool
	// OutlineWidth in pixels; zero means 1.
	OutlineWidth float64
}

// DefaultStyle draws every layer.
var DefaultStyle = Style{TableGrid: true, ReadingOrder: true, OutlineWidth: 1}

// FillColor is the translucent fill used for a region.
func FillColor(r regions.Region) color.NRGBA {
	switch r.Kind {
	case regions.KindImage:
		return colorImage
	case regions.KindTable:
		return colorTable
	}
	switch r.SemanticTag.HeadingLevel() {
	case 1:
		return colorH1
	case 2:
		return colorH2
	case 3:
		return colorH3
	}
	return colorDefault
}

// Compose paints the regions of page over a copy of base. Region geometry must be in
// the same pixel space as base.
func Compose(base image.Image, items []regions.Region, page int, style Style) *image.NRGBA {
	out := imaging.Clone(base)
	width := style.OutlineWidth
	if width <= 0 {
		width = 1
	}

	for _, r := range regions.Flatten(items) {
		if r.Page != page {
			continue
		}
		fill := FillColor(r)
		draw.Draw(out, pixelRect(r.Box), &image.Uniform{C: fill}, image.Point{}, draw.Over)
		outline := fill
		outline.A = 200
		strokeRect(out, r.Box, width, outline)

		if style.TableGrid && r.Table != nil {
			drawGrid(out, r)
		}
	}

	if style.ReadingOrder {
		for _, path := range regions.ReadingPaths(items, page) {
			for i := 1; i < len(path.Points); i++ {
				strokeLine(out, path.Points[i-1], path.Points[i], 2, colorPath)
			}
		}
	}
	return out
}

func drawGrid(dst *image.NRGBA, r regions.Region) {
	shape := r.Table
	for i, y := range shape.RowPositions {
		c, w := colorGrid, 1.0
		if shape.HeaderRow != nil && (i == *shape.HeaderRow || i == *shape.HeaderRow+1) {
			c, w = colorHeader, 2
		}
		strokeLine(dst, geometry.Point{X: r.X, Y: r.Y + y}, geometry.Point{X: r.Right(), Y: r.Y + y}, w, c)
	}
	for i, x := range shape.ColPositions {
		c, w := colorGrid, 1.0
		if shape.HeaderCol != nil && (i == *shape.HeaderCol || i == *shape.HeaderCol+1) {
			c, w = colorHeader, 2
		}
		strokeLine(dst, geometry.Point{X: r.X + x, Y: r.Y}, geometry.Point{X: r.X + x, Y: r.Bottom()}, w, c)
	}
}

func pixelRect(b geometry.Box) image.Rectangle {
	return image.Rect(
		int(math.Round(b.X)), int(math.Round(b.Y)),
		int(math.Round(b.Right())), int(math.Round(b.Bottom())),
	)
}

func strokeRect(dst *image.NRGBA, b geometry.Box, width float64, c color.Color) {
	tl := geometry.Point{X: b.X, Y: b.Y}
	tr := geometry.Point{X: b.Right(), Y: b.Y}
	br := geometry.Point{X: b.Right(), Y: b.Bottom()}
	bl := geometry.Point{X: b.X, Y: b.Bottom()}
	strokeLine(dst, tl, tr, width, c)
	strokeLine(dst, tr, br, width, c)
	strokeLine(dst, br, bl, width, c)
	strokeLine(dst, bl, tl, width, c)
}

// strokeLine fills the quad of the given width centred on the segment p0-p1.
func strokeLine(dst *image.NRGBA, p0, p1 geometry.Point, width float64, c color.Color) {
	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	corners := [4]geometry.Point{
		{X: p0.X + nx, Y: p0.Y + ny},
		{X: p1.X + nx, Y: p1.Y + ny},
		{X: p1.X - nx, Y: p1.Y - ny},
		{X: p0.X - nx, Y: p0.Y - ny},
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	area := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY))).
		Intersect(dst.Bounds())
	if area.Empty() {
		return
	}

	// rasterizer coordinates are relative to area.Min
	ox, oy := float64(area.Min.X), float64(area.Min.Y)
	z := vector.NewRasterizer(area.Dx(), area.Dy())
	z.DrawOp = draw.Over
	z.MoveTo(float32(corners[0].X-ox), float32(corners[0].Y-oy))
	for _, p := range corners[1:] {
		z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	z.ClosePath()
	z.Draw(dst, area, image.NewUniform(c), image.Point{})
}
