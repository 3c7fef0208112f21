package regions

import (
	"fmt"

	"pdf-tagger/geometry"
)

func sequentialIDs() IDGenerator {
	n := 0
	return func(kind Kind) string {
		n++
		return fmt.Sprintf("%s-%d", kind, n)
	}
}

func newTestTree() *Tree {
	return NewTree(WithIDGenerator(sequentialIDs()))
}

func textRegion(id string, page int, x, y, w, h float64) Region {
	return Region{
		ID:          id,
		Kind:        KindText,
		Label:       id,
		SemanticTag: TagParagraph,
		Page:        page,
		Box:         geometry.Box{X: x, Y: y, Width: w, Height: h},
	}
}

func ids(items []Region) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.ID
	}
	return out
}
