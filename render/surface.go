package render

import (
	"context"
	"image"
	"sync"
)

// Surface holds the last frame painted for one view. Frames are composed off-screen
// and swapped in whole, so readers never see a partial paint.
type Surface struct {
	id string

	mu      sync.RWMutex
	frame   image.Image
	version uint64
}

func NewSurface(id string) *Surface {
	return &Surface{id: id}
}

func (s *Surface) ID() string { return s.id }

// Commit publishes frame unless ctx has been cancelled, which is how a superseded
// task is kept from overwriting a newer paint.
func (s *Surface) Commit(ctx context.Context, frame image.Image) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	s.frame = frame
	s.version++
	return true
}

// Frame returns the current frame and how many frames have been committed so far.
func (s *Surface) Frame() (image.Image, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.version
}

// Clear drops the current frame, as on teardown.
func (s *Surface) Clear() {
	s.mu.Lock()
	s.frame = nil
	s.mu.Unlock()
}
