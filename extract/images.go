package extract

import (
	"math"

	"pdf-tagger/geometry"
	"pdf-tagger/pdfsource"
	"pdf-tagger/regions"
)

// ExtractImages replays the transform stack of a page's operator list and returns an
// image region for every painted image XObject that is large enough and on the page.
func ExtractImages(page int, ops []pdfsource.Operation, vp geometry.Viewport, opts Options) []regions.Region {
	var out []regions.Region
	ctm := geometry.Identity
	var stack []geometry.Matrix
	sx, sy := vp.ScaleX(), vp.ScaleY()

	for _, op := range ops {
		switch op.Op {
		case pdfsource.OpSave:
			stack = append(stack, ctm)
		case pdfsource.OpRestore:
			if n := len(stack); n > 0 {
				ctm = stack[n-1]
				stack = stack[:n-1]
			} else {
				ctm = geometry.Identity
			}
		case pdfsource.OpTransform:
			if m, ok := matrixArgs(op.Args); ok {
				ctm = m.Multiply(ctm)
			}
		case pdfsource.OpPaintImageXObject, pdfsource.OpPaintJpegXObject:
			box := geometry.Box{
				X:      ctm[4] * sx,
				Width:  math.Abs(ctm[0]) * sx,
				Height: math.Abs(ctm[3]) * sy,
			}
			box.Y = vp.Height - (ctm[5]*sy + ctm[3]*sy)
			if !acceptImage(box, vp, opts) {
				continue
			}

			label := ""
			if len(op.Args) > 0 {
				label, _ = op.Args[0].(string)
			}
			if label == "" {
				label = opts.name(NameData{Kind: regions.KindImage, Page: page, Index: len(out) + 1})
			}
			out = append(out, regions.Region{
				Kind:        regions.KindImage,
				Label:       label,
				SemanticTag: regions.TagFigure,
				Page:        page,
				Box:         box,
			})
		}
	}
	return out
}

func acceptImage(b geometry.Box, vp geometry.Viewport, opts Options) bool {
	if !b.IsFinite() {
		return false
	}
	if b.Width < opts.MinImageSize || b.Height < opts.MinImageSize {
		return false
	}
	m := opts.PageMargin
	if b.Right() < -m || b.Bottom() < -m || b.X > vp.Width+m || b.Y > vp.Height+m {
		return false
	}
	return true
}

func matrixArgs(args []interface{}) (geometry.Matrix, bool) {
	if len(args) != 6 {
		return geometry.Matrix{}, false
	}
	var m geometry.Matrix
	for i, a := range args {
		f, ok := a.(float64)
		if !ok {
			return geometry.Matrix{}, false
		}
		m[i] = f
	}
	return m, true
}
