package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewport(t *testing.T) {
	vp := NewViewport(200, 100, 1.5)
	assert.Equal(t, 300.0, vp.Width)
	assert.Equal(t, 150.0, vp.Height)
	assert.Equal(t, 1.5, vp.ScaleX())
	assert.Equal(t, 1.5, vp.ScaleY())

	pdfBox := Box{X: 10, Y: 20, Width: 30, Height: 40}
	canvas := vp.PDFToCanvas(pdfBox)
	assert.Equal(t, Box{X: 15, Y: 150 - 90, Width: 45, Height: 60}, canvas)

	back := vp.CanvasToPDF(canvas)
	assert.InDelta(t, pdfBox.X, back.X, 1e-9)
	assert.InDelta(t, pdfBox.Y, back.Y, 1e-9)
	assert.InDelta(t, pdfBox.Width, back.Width, 1e-9)
	assert.InDelta(t, pdfBox.Height, back.Height, 1e-9)
}

func TestViewportWithoutNativeSize(t *testing.T) {
	vp := Viewport{Scale: 2}
	assert.Equal(t, 2.0, vp.ScaleX())
	assert.Equal(t, 2.0, vp.ScaleY())
}
