package geometry

// Viewport maps a page's native PDF space (origin bottom-left, 1 unit = 1/72 inch)
// onto the canvas (origin top-left) at a given zoom.
type Viewport struct {
	Scale        float64 `json:"scale"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	NativeWidth  float64 `json:"native_width"`
	NativeHeight float64 `json:"native_height"`
}

// NewViewport derives the canvas size for a page of nativeWidth × nativeHeight at scale.
func NewViewport(nativeWidth, nativeHeight, scale float64) Viewport {
	return Viewport{
		Scale:        scale,
		Width:        nativeWidth * scale,
		Height:       nativeHeight * scale,
		NativeWidth:  nativeWidth,
		NativeHeight: nativeHeight,
	}
}

// ScaleX is the horizontal canvas pixels per PDF unit.
func (v Viewport) ScaleX() float64 {
	if v.NativeWidth == 0 {
		return v.Scale
	}
	return v.Width / v.NativeWidth
}

// ScaleY is the vertical canvas pixels per PDF unit.
func (v Viewport) ScaleY() float64 {
	if v.NativeHeight == 0 {
		return v.Scale
	}
	return v.Height / v.NativeHeight
}

// Bounds is the canvas rectangle of the whole page.
func (v Viewport) Bounds() Box {
	return Box{Width: v.Width, Height: v.Height}
}

// PDFToCanvas converts a PDF-space rectangle (origin at its lower-left corner) into canvas space.
func (v Viewport) PDFToCanvas(b Box) Box {
	sx, sy := v.ScaleX(), v.ScaleY()
	return Box{
		X:      b.X * sx,
		Y:      v.Height - (b.Y+b.Height)*sy,
		Width:  b.Width * sx,
		Height: b.Height * sy,
	}
}

// CanvasToPDF is the inverse of PDFToCanvas.
func (v Viewport) CanvasToPDF(b Box) Box {
	sx, sy := v.ScaleX(), v.ScaleY()
	return Box{
		X:      b.X / sx,
		Y:      (v.Height - b.Y - b.Height) / sy,
		Width:  b.Width / sx,
		Height: b.Height / sy,
	}
}
