package pdfsource

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Rasterize renders page n at scale (1.0 = 72 DPI). MuPDF cannot be interrupted
// mid-page, so ctx is only checked around the call.
func (d *Document) Rasterize(ctx context.Context, n int, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}

	// libmupdf is not thread-safe
	d.fitzMu.Lock()
	defer d.fitzMu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if d.fitzDoc == nil {
		doc, err := fitz.NewFromMemory(d.data)
		if err != nil {
			return nil, fmt.Errorf("open document for rendering: %w", err)
		}
		d.fitzDoc = doc
	}
	if n < 1 || n > d.fitzDoc.NumPage() {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, d.fitzDoc.NumPage())
	}

	img, err := d.fitzDoc.ImageDPI(n-1, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", n, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}
