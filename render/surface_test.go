package render

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurfaceCommit(t *testing.T) {
	s := NewSurface("page-canvas")
	frame := image.NewNRGBA(image.Rect(0, 0, 2, 2))

	assert.True(t, s.Commit(context.Background(), frame))
	got, version := s.Frame()
	assert.Same(t, frame, got)
	assert.Equal(t, uint64(1), version)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, s.Commit(ctx, image.NewNRGBA(image.Rect(0, 0, 1, 1))))
	got, version = s.Frame()
	assert.Same(t, frame, got, "a cancelled paint must not replace the frame")
	assert.Equal(t, uint64(1), version)

	s.Clear()
	got, _ = s.Frame()
	assert.Nil(t, got)
}
