package render

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"pdf-tagger/regions"
)

// Rasterizer paints the bare PDF page. Implementations should honour ctx where the
// underlying library allows it.
type Rasterizer interface {
	Rasterize(ctx context.Context, page int, scale float64) (image.Image, error)
}

// PageRenderer builds scheduler tasks that paint a page with its region overlay.
type PageRenderer struct {
	raster Rasterizer
	scale  float64
	style  Style
}

func NewPageRenderer(raster Rasterizer, scale float64, style Style) *PageRenderer {
	return &PageRenderer{raster: raster, scale: scale, style: style}
}

// Task returns the paint job for page. items must be a snapshot taken by the caller;
// the task never reads the live tree.
func (p *PageRenderer) Task(surface *Surface, page int, items []regions.Region) Task {
	return func(ctx context.Context) (interface{}, error) {
		logger := log.WithFields(logrus.Fields{"surface": surface.ID(), "page": page})

		base, err := p.raster.Rasterize(ctx, page, p.scale)
		if err != nil {
			return nil, fmt.Errorf("rasterize page %d: %w", page, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame := Compose(base, items, page, p.style)
		if !surface.Commit(ctx, frame) {
			logger.Debug("Discarding frame of superseded render")
			return nil, ctx.Err()
		}
		logger.Debug("Frame committed")
		return frame, nil
	}
}

// EncodePNG encodes a frame for the HTTP layer.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
