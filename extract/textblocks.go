package extract

import (
	"math"
	"strings"

	"pdf-tagger/geometry"
	"pdf-tagger/pdfsource"
	"pdf-tagger/regions"
)

type textBlock struct {
	bounds geometry.Box
	parts  []string
}

// DetectTextBlocks groups the text runs of a page into paragraph regions. A run
// joins the first block whose bounds it comes within TextProximity canvas pixels of.
func DetectTextBlocks(page int, items []pdfsource.TextItem, vp geometry.Viewport, opts Options) []regions.Region {
	sx, sy := vp.ScaleX(), vp.ScaleY()
	var blocks []*textBlock

	for _, it := range items {
		if strings.TrimSpace(it.Str) == "" {
			continue
		}
		height := it.Height
		if height <= 0 {
			height = math.Abs(it.Transform[3])
		}
		run := geometry.Box{
			X:      it.Transform[4] * sx,
			Y:      vp.Height - it.Transform[5]*sy - height*sy,
			Width:  it.Width * sx,
			Height: height * sy,
		}
		if !run.IsFinite() {
			continue
		}

		var target *textBlock
		for _, b := range blocks {
			if near(run, b.bounds, opts.TextProximity) {
				target = b
				break
			}
		}
		if target == nil {
			blocks = append(blocks, &textBlock{bounds: run, parts: []string{it.Str}})
			continue
		}
		target.bounds, _ = geometry.Union(target.bounds, run)
		target.parts = append(target.parts, it.Str)
	}

	var out []regions.Region
	for _, b := range blocks {
		if b.bounds.IsDegenerate() {
			continue
		}
		out = append(out, regions.Region{
			Kind:        regions.KindText,
			Label:       opts.name(NameData{Kind: regions.KindText, Page: page, Index: len(out) + 1}),
			SemanticTag: regions.TagParagraph,
			Page:        page,
			Box:         b.bounds,
			Text:        strings.Join(b.parts, " "),
		})
	}
	return out
}

func near(run, block geometry.Box, threshold float64) bool {
	return run.X < block.Right()+threshold &&
		run.Right() > block.X-threshold &&
		run.Y < block.Bottom()+threshold &&
		run.Bottom() > block.Y-threshold
}
