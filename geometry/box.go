// Package geometry holds the rectangle, unit and affine-transform helpers shared by
// the region model, the feature extractors and the renderer.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyInput is returned by Union when there is nothing to bound.
	ErrEmptyInput = errors.New("geometry: empty input")
	// ErrInvalidBox is returned for boxes with non-finite or negative components.
	ErrInvalidBox = errors.New("geometry: invalid box")
)

// Box is an axis-aligned rectangle in canvas pixel space (origin top-left).
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (b Box) Right() float64  { return b.X + b.Width }
func (b Box) Bottom() float64 { return b.Y + b.Height }
func (b Box) Area() float64   { return b.Width * b.Height }

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// IsDegenerate reports whether the box has no area.
func (b Box) IsDegenerate() bool {
	return b.Width <= 0 || b.Height <= 0
}

// IsFinite reports whether every component is a real number.
func (b Box) IsFinite() bool {
	for _, v := range [...]float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Validate rejects boxes that cannot be placed on a page.
func (b Box) Validate() error {
	if !b.IsFinite() {
		return fmt.Errorf("%w: non-finite component in %+v", ErrInvalidBox, b)
	}
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: negative size in %+v", ErrInvalidBox, b)
	}
	return nil
}

// Pad grows the box by p on every side.
func (b Box) Pad(p float64) Box {
	return Box{X: b.X - p, Y: b.Y - p, Width: b.Width + 2*p, Height: b.Height + 2*p}
}

// Overlap reports whether a and b intersect with more than buffer units of slack.
// Touching edges do not overlap, and a box without area never overlaps anything,
// itself included.
func Overlap(a, b Box, buffer float64) bool {
	if a.IsDegenerate() || b.IsDegenerate() {
		return false
	}
	return a.X < b.X+b.Width+buffer &&
		a.X+a.Width+buffer > b.X &&
		a.Y < b.Y+b.Height+buffer &&
		a.Y+a.Height+buffer > b.Y
}

// Contains reports whether inner lies fully inside outer. Shared edges count as inside.
func Contains(outer, inner Box) bool {
	return outer.X <= inner.X &&
		outer.Y <= inner.Y &&
		outer.X+outer.Width >= inner.X+inner.Width &&
		outer.Y+outer.Height >= inner.Y+inner.Height
}

// Union returns the smallest box enclosing all of boxes.
func Union(boxes ...Box) (Box, error) {
	if len(boxes) == 0 {
		return Box{}, ErrEmptyInput
	}
	minX, minY := boxes[0].X, boxes[0].Y
	maxX, maxY := boxes[0].Right(), boxes[0].Bottom()
	for _, b := range boxes[1:] {
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.Right())
		maxY = math.Max(maxY, b.Bottom())
	}
	return Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, nil
}
