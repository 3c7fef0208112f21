package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-tagger/geometry"
)

func withOrder(r Region, n int) Region {
	r.ReadingOrder = &n
	return r
}

func TestReadingPaths(t *testing.T) {
	items := []Region{
		{ID: "s1", Kind: KindSection, Label: "Body", Children: []Region{
			withOrder(textRegion("late", 1, 0, 0, 10, 10), 2),
			withOrder(textRegion("early", 1, 0, 100, 10, 10), 1),
			textRegion("unordered", 1, 0, 50, 10, 10),
			textRegion("other-page", 2, 0, 0, 10, 10),
		}},
		textRegion("bottom", 1, 0, 300, 20, 20),
		textRegion("top", 1, 0, 200, 20, 20),
	}

	paths := ReadingPaths(items, 1)
	require.Len(t, paths, 2)

	assert.Equal(t, "s1", paths[0].SectionID)
	assert.Equal(t, []string{"early", "late", "unordered"}, ids(paths[0].Regions))
	assert.Equal(t, geometry.Point{X: 5, Y: 105}, paths[0].Points[0])

	assert.Equal(t, "", paths[1].SectionID)
	assert.Equal(t, []string{"top", "bottom"}, ids(paths[1].Regions))
	assert.Equal(t, []geometry.Point{{X: 10, Y: 210}, {X: 10, Y: 310}}, paths[1].Points)

	assert.Empty(t, ReadingPaths(items, 7))
}
