package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-tagger/geometry"
	"pdf-tagger/pdfsource"
	"pdf-tagger/regions"
)

func transform(a, b, c, d, e, f float64) pdfsource.Operation {
	return pdfsource.Operation{Op: pdfsource.OpTransform, Args: []interface{}{a, b, c, d, e, f}}
}

func paint(name string) pdfsource.Operation {
	return pdfsource.Operation{Op: pdfsource.OpPaintImageXObject, Args: []interface{}{name}}
}

var (
	save    = pdfsource.Operation{Op: pdfsource.OpSave}
	restore = pdfsource.Operation{Op: pdfsource.OpRestore}
)

func TestExtractImagesFlipsYAxis(t *testing.T) {
	vp := geometry.NewViewport(200, 200, 1)
	ops := []pdfsource.Operation{save, transform(100, 0, 0, -50, 20, 180), paint("Im0"), restore}

	got := ExtractImages(1, ops, vp, DefaultOptions())
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, regions.KindImage, r.Kind)
	assert.Equal(t, "Im0", r.Label)
	assert.Equal(t, 1, r.Page)
	assert.Empty(t, r.AltText)
	assert.Equal(t, geometry.Box{X: 20, Y: 70, Width: 100, Height: 50}, r.Box)
}

func TestExtractImagesComposesTransforms(t *testing.T) {
	vp := geometry.NewViewport(200, 200, 2)
	ops := []pdfsource.Operation{
		save,
		transform(1, 0, 0, 1, 10, 10),
		save,
		transform(50, 0, 0, 20, 0, 0),
		{Op: pdfsource.OpPaintJpegXObject, Args: []interface{}{"Im1"}},
		restore,
		restore,
		restore, // unbalanced restore falls back to identity
		transform(30, 0, 0, 30, 100, 100),
		paint("Im2"),
	}

	got := ExtractImages(2, ops, vp, DefaultOptions())
	require.Len(t, got, 2)

	assert.Equal(t, geometry.Box{X: 20, Y: 400 - (20 + 40), Width: 100, Height: 40}, got[0].Box)
	assert.Equal(t, geometry.Box{X: 200, Y: 400 - (200 + 60), Width: 60, Height: 60}, got[1].Box)
}

func TestExtractImagesRejectsArtifacts(t *testing.T) {
	vp := geometry.NewViewport(200, 200, 1)
	tests := []struct {
		name string
		ops  []pdfsource.Operation
	}{
		{"too small", []pdfsource.Operation{transform(2, 0, 0, 50, 10, 10), paint("a")}},
		{"off page right", []pdfsource.Operation{transform(50, 0, 0, 50, 500, 10), paint("b")}},
		{"off page below", []pdfsource.Operation{transform(50, 0, 0, 50, 10, -300), paint("c")}},
		{"malformed transform", []pdfsource.Operation{{Op: pdfsource.OpTransform, Args: []interface{}{1.0}}, paint("d")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, ExtractImages(1, tt.ops, vp, DefaultOptions()))
		})
	}
}

func TestExtractImagesKeepsPartlyVisibleImages(t *testing.T) {
	vp := geometry.NewViewport(200, 200, 1)
	ops := []pdfsource.Operation{transform(50, 0, 0, 50, 180, 10), paint("edge")}
	assert.Len(t, ExtractImages(1, ops, vp, DefaultOptions()), 1)
}

func TestExtractImagesSyntheticNames(t *testing.T) {
	vp := geometry.NewViewport(200, 200, 1)
	ops := []pdfsource.Operation{
		transform(50, 0, 0, 50, 10, 10),
		{Op: pdfsource.OpPaintImageXObject},
	}

	got := ExtractImages(3, ops, vp, DefaultOptions())
	require.Len(t, got, 1)
	assert.Equal(t, "Image 1 (page 3)", got[0].Label)

	opts := DefaultOptions()
	opts.Namer = func(d NameData) string { return "figure" }
	got = ExtractImages(3, ops, vp, opts)
	require.Len(t, got, 1)
	assert.Equal(t, "figure", got[0].Label)
}

func TestExtractImagesEmptyPage(t *testing.T) {
	assert.Empty(t, ExtractImages(1, nil, geometry.NewViewport(100, 100, 1), DefaultOptions()))
}
