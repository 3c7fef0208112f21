// Package pdfsource opens PDF documents and exposes what the region extractors and
// the renderer need from them: page sizes, drawing operations, positioned text and
// page bitmaps.
package pdfsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sirupsen/logrus"

	"pdf-tagger/geometry"
)

var log = logrus.New()

// ErrClosed is returned when rendering from a Document after Close.
var ErrClosed = errors.New("pdfsource: document closed")

// SetLogLevel sets the log level for the pdfsource package.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// US Letter, used when a page carries no usable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Document is an opened PDF. It is safe for concurrent use; access to the parsed
// structure and to the rasterizer is serialized.
type Document struct {
	data []byte

	mu  sync.Mutex
	ctx *model.Context

	fitzMu  sync.Mutex
	fitzDoc *fitz.Document
	closed  bool
}

// Open parses data as a PDF.
func Open(data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	log.WithField("pages", ctx.PageCount).Debug("Opened PDF")
	return &Document{data: data, ctx: ctx}, nil
}

// Bytes returns the original file.
func (d *Document) Bytes() []byte { return d.data }

func (d *Document) NumPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx.PageCount
}

// Page returns a handle on page n (1-based).
func (d *Document) Page(ctx context.Context, n int) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n < 1 || n > d.NumPages() {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, d.NumPages())
	}
	return &Page{doc: d, number: n}, nil
}

// Viewport returns the canvas mapping of page n at scale.
func (d *Document) Viewport(n int, scale float64) (geometry.Viewport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, h, err := d.pageSizeLocked(n)
	if err != nil {
		return geometry.Viewport{}, err
	}
	return geometry.NewViewport(w, h, scale), nil
}

// OperatorList returns the drawing operations of page n.
func (d *Document) OperatorList(ctx context.Context, n int) ([]Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	content, res, err := d.pageContentLocked(n)
	if err != nil {
		return nil, err
	}
	ops, err := buildOperatorList(content, res, 0)
	if err != nil {
		return nil, fmt.Errorf("operator list of page %d: %w", n, err)
	}
	return ops, nil
}

// TextContent returns the text runs of page n.
func (d *Document) TextContent(ctx context.Context, n int) ([]TextItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	content, res, err := d.pageContentLocked(n)
	if err != nil {
		return nil, err
	}
	items, err := extractText(content, res, 0, geometry.Identity)
	if err != nil {
		return nil, fmt.Errorf("text content of page %d: %w", n, err)
	}
	return items, nil
}

func (d *Document) pageSizeLocked(n int) (float64, float64, error) {
	_, _, inh, err := d.ctx.PageDict(n, false)
	if err != nil {
		return 0, 0, fmt.Errorf("page %d: %w", n, err)
	}
	if inh == nil || inh.MediaBox == nil || inh.MediaBox.Width() <= 0 || inh.MediaBox.Height() <= 0 {
		log.WithField("page", n).Warn("Page has no usable MediaBox, assuming US Letter")
		return defaultPageWidth, defaultPageHeight, nil
	}
	return inh.MediaBox.Width(), inh.MediaBox.Height(), nil
}

func (d *Document) pageContentLocked(n int) ([]byte, resourceLookup, error) {
	pageDict, _, inh, err := d.ctx.PageDict(n, true)
	if err != nil {
		return nil, nil, fmt.Errorf("page %d: %w", n, err)
	}

	resDict := types.Dict(nil)
	if inh != nil && len(inh.Resources) > 0 {
		resDict = inh.Resources
	} else if obj, found := pageDict.Find("Resources"); found {
		if resDict, err = d.ctx.DereferenceDict(obj); err != nil {
			return nil, nil, fmt.Errorf("page %d resources: %w", n, err)
		}
	}

	r, err := pdfcpu.ExtractPageContent(d.ctx, n)
	if err != nil {
		return nil, nil, fmt.Errorf("page %d content: %w", n, err)
	}
	var content []byte
	if r != nil {
		if content, err = io.ReadAll(r); err != nil {
			return nil, nil, fmt.Errorf("page %d content: %w", n, err)
		}
	}
	return content, &pdfResources{ctx: d.ctx, dict: resDict}, nil
}

// Close releases the rasterizer. Later renders fail with ErrClosed.
func (d *Document) Close() error {
	d.fitzMu.Lock()
	defer d.fitzMu.Unlock()
	d.closed = true
	if d.fitzDoc == nil {
		return nil
	}
	err := d.fitzDoc.Close()
	d.fitzDoc = nil
	return err
}

// Page is a handle on one page of a Document.
type Page struct {
	doc    *Document
	number int
}

func (p *Page) Number() int { return p.number }

func (p *Page) Viewport(scale float64) (geometry.Viewport, error) {
	return p.doc.Viewport(p.number, scale)
}

func (p *Page) OperatorList(ctx context.Context) ([]Operation, error) {
	return p.doc.OperatorList(ctx, p.number)
}

func (p *Page) TextContent(ctx context.Context) ([]TextItem, error) {
	return p.doc.TextContent(ctx, p.number)
}

// pdfResources resolves XObjects through a pdfcpu resource dictionary.
type pdfResources struct {
	ctx  *model.Context
	dict types.Dict
}

func (r *pdfResources) xobject(name string) (*xobject, error) {
	if r == nil || r.dict == nil {
		return nil, nil
	}
	obj, found := r.dict.Find("XObject")
	if !found {
		return nil, nil
	}
	xobjects, err := r.ctx.DereferenceDict(obj)
	if err != nil || xobjects == nil {
		return nil, err
	}
	ref, found := xobjects.Find(name)
	if !found {
		return nil, nil
	}
	sd, _, err := r.ctx.DereferenceStreamDict(ref)
	if err != nil || sd == nil {
		return nil, err
	}

	xo := &xobject{matrix: geometry.Identity}
	if st, ok := sd.Find("Subtype"); ok {
		if n, ok := st.(types.Name); ok {
			xo.subtype = string(n)
		}
	}

	switch xo.subtype {
	case "Image":
		xo.jpeg = hasFilter(r.ctx, sd.Dict, "DCTDecode")
	case "Form":
		if m, ok := sd.Find("Matrix"); ok {
			if v := r.floats(m); len(v) == 6 {
				xo.matrix, _ = geometry.MatrixFrom(v)
			}
		}
		if err := sd.Decode(); err != nil {
			return nil, fmt.Errorf("decode form %s: %w", name, err)
		}
		xo.content = sd.Content
		xo.resources = r
		if res, ok := sd.Find("Resources"); ok {
			if d, err := r.ctx.DereferenceDict(res); err == nil && d != nil {
				xo.resources = &pdfResources{ctx: r.ctx, dict: d}
			}
		}
	}
	return xo, nil
}

func (r *pdfResources) floats(obj types.Object) []float64 {
	obj, err := r.ctx.Dereference(obj)
	if err != nil {
		return nil
	}
	arr, ok := obj.(types.Array)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(arr))
	for _, el := range arr {
		el, err := r.ctx.Dereference(el)
		if err != nil {
			return nil
		}
		switch v := el.(type) {
		case types.Integer:
			out = append(out, float64(v))
		case types.Float:
			out = append(out, float64(v))
		default:
			return nil
		}
	}
	return out
}

func hasFilter(ctx *model.Context, d types.Dict, filter string) bool {
	obj, found := d.Find("Filter")
	if !found {
		return false
	}
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return false
	}
	switch v := obj.(type) {
	case types.Name:
		return string(v) == filter
	case types.Array:
		for _, el := range v {
			if n, ok := el.(types.Name); ok && string(n) == filter {
				return true
			}
		}
	}
	return false
}
