package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-tagger/geometry"
	"pdf-tagger/pdfsource"
	"pdf-tagger/regions"
)

type fakePage struct {
	ops     []pdfsource.Operation
	opsErr  error
	text    []pdfsource.TextItem
	textErr error
}

type fakeDocument struct {
	pages []fakePage
}

func (f *fakeDocument) NumPages() int { return len(f.pages) }

func (f *fakeDocument) Viewport(page int, scale float64) (geometry.Viewport, error) {
	return geometry.NewViewport(200, 200, scale), nil
}

func (f *fakeDocument) OperatorList(ctx context.Context, page int) ([]pdfsource.Operation, error) {
	p := f.pages[page-1]
	return p.ops, p.opsErr
}

func (f *fakeDocument) TextContent(ctx context.Context, page int) ([]pdfsource.TextItem, error) {
	p := f.pages[page-1]
	return p.text, p.textErr
}

func sequentialIDs() regions.IDGenerator {
	var n int
	return func(kind regions.Kind) string {
		n++
		return fmt.Sprintf("%s-%d", kind, n)
	}
}

func TestExtractDocument(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		{
			ops:  []pdfsource.Operation{transform(100, 0, 0, -50, 20, 180), paint("Im0")},
			text: gridRows([]float64{150, 130}, []float64{20, 80}),
		},
		{
			opsErr: errors.New("corrupt content stream"),
			text:   []pdfsource.TextItem{run("prose", 10, 100, 50, 10)},
		},
		{
			ops:     []pdfsource.Operation{transform(40, 0, 0, 40, 10, 10), paint("Im1")},
			textErr: errors.New("bad font"),
		},
	}}

	e := NewExtractor(1, DefaultOptions(), sequentialIDs())
	res, err := e.ExtractDocument(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, res.Images, 2)
	assert.Equal(t, 1, res.Images[0].Page)
	assert.Equal(t, 3, res.Images[1].Page)
	assert.Equal(t, 70.0, res.Images[0].Y)

	require.Len(t, res.Tables, 1)
	assert.Equal(t, 1, res.Tables[0].Page)
	assert.Empty(t, res.TextBlocks)

	assert.Equal(t, []int{2, 3}, res.FailedPages)

	all := res.All()
	assert.Len(t, all, 3)
	seen := map[string]bool{}
	for _, r := range all {
		assert.NotEmpty(t, r.ID)
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}

func TestExtractDocumentTextBlocks(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		{text: []pdfsource.TextItem{run("Intro", 10, 150, 40, 10)}},
	}}
	opts := DefaultOptions()
	opts.DetectText = true

	res, err := NewExtractor(1, opts, sequentialIDs()).ExtractDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, res.TextBlocks, 1)
	assert.Equal(t, "Intro", res.TextBlocks[0].Text)
}

func TestExtractDocumentCancelled(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{{}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(1, DefaultOptions(), nil).ExtractDocument(ctx, doc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractDocumentEmpty(t *testing.T) {
	res, err := NewExtractor(1.5, DefaultOptions(), nil).ExtractDocument(context.Background(), &fakeDocument{})
	require.NoError(t, err)
	assert.Empty(t, res.All())
	assert.Empty(t, res.FailedPages)
}

func TestExtractTextBlocks(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		{text: []pdfsource.TextItem{run("Intro", 10, 150, 40, 10)}},
		{textErr: errors.New("bad font")},
	}}
	e := NewExtractor(2, DefaultOptions(), sequentialIDs())

	got, err := e.ExtractTextBlocks(context.Background(), doc, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "text-1", got[0].ID)
	assert.Equal(t, geometry.Box{X: 20, Y: 400 - 300 - 20, Width: 80, Height: 20}, got[0].Box)

	_, err = e.ExtractTextBlocks(context.Background(), doc, 2)
	assert.Error(t, err)
}
