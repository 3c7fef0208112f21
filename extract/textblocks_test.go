package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-tagger/geometry"
	"pdf-tagger/pdfsource"
	"pdf-tagger/regions"
)

func TestDetectTextBlocksGroupsNearbyRuns(t *testing.T) {
	vp := geometry.NewViewport(600, 800, 1)
	items := []pdfsource.TextItem{
		run("Hello", 10, 700, 30, 10),
		run("world", 10, 688, 30, 10),
		run("   ", 10, 676, 30, 10),
		run("Footer", 300, 100, 40, 10),
	}

	got := DetectTextBlocks(2, items, vp, DefaultOptions())
	require.Len(t, got, 2)

	assert.Equal(t, regions.KindText, got[0].Kind)
	assert.Equal(t, regions.TagParagraph, got[0].SemanticTag)
	assert.Equal(t, "Text Block", got[0].Label)
	assert.Equal(t, 2, got[0].Page)
	assert.Equal(t, "Hello world", got[0].Text)
	assert.Equal(t, geometry.Box{X: 10, Y: 90, Width: 30, Height: 22}, got[0].Box)

	assert.Equal(t, "Footer", got[1].Text)
	assert.Equal(t, geometry.Box{X: 300, Y: 690, Width: 40, Height: 10}, got[1].Box)
}

func TestDetectTextBlocksKeepsDistantLinesApart(t *testing.T) {
	vp := geometry.NewViewport(600, 800, 1)
	items := []pdfsource.TextItem{
		run("First", 10, 700, 30, 10),
		run("Second", 10, 650, 30, 10),
	}
	assert.Len(t, DetectTextBlocks(1, items, vp, DefaultOptions()), 2)
}

func TestDetectTextBlocksSkipsZeroWidthRuns(t *testing.T) {
	vp := geometry.NewViewport(600, 800, 1)
	items := []pdfsource.TextItem{run("x", 10, 700, 0, 10)}
	assert.Empty(t, DetectTextBlocks(1, items, vp, DefaultOptions()))
}
