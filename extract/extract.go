// Package extract infers candidate regions from a PDF page's drawing operations and
// text layout: placed images, tables and blocks of text.
package extract

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pdf-tagger/geometry"
	"pdf-tagger/pdfsource"
	"pdf-tagger/regions"
)

var log = logrus.New()

// SetLogLevel sets the log level for the extract package.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// Document is the part of a PDF source the extractors read.
type Document interface {
	NumPages() int
	Viewport(page int, scale float64) (geometry.Viewport, error)
	OperatorList(ctx context.Context, page int) ([]pdfsource.Operation, error)
	TextContent(ctx context.Context, page int) ([]pdfsource.TextItem, error)
}

// NameData is what a Namer gets to build a synthetic region name.
type NameData struct {
	Kind  regions.Kind
	Page  int
	Index int // 1-based position among the page's candidates of this kind
	Rows  int
	Cols  int
}

// Namer builds names for detected regions that carry none of their own.
type Namer func(NameData) string

// Options tune the detection heuristics. Image and text-block distances are canvas
// pixels; table distances are PDF units since rows are grouped before projection.
type Options struct {
	MinImageSize float64 // canvas pixels
	PageMargin   float64 // canvas pixels

	RowTolerance float64 // PDF units between baselines of one row
	MinRowRuns   int
	MaxRowGap    float64 // PDF units
	MinTableRows int
	TablePadding float64 // PDF units

	TextProximity float64 // canvas pixels
	DetectText    bool
	Namer         Namer
}

func DefaultOptions() Options {
	return Options{
		MinImageSize:  4,
		PageMargin:    10,
		RowTolerance:  8,
		MinRowRuns:    2,
		MaxRowGap:     40,
		MinTableRows:  2,
		TablePadding:  5,
		TextProximity: 5,
	}
}

func (o Options) name(d NameData) string {
	if o.Namer != nil {
		if n := o.Namer(d); n != "" {
			return n
		}
	}
	return defaultName(d)
}

func defaultName(d NameData) string {
	switch d.Kind {
	case regions.KindImage:
		return fmt.Sprintf("Image %d (page %d)", d.Index, d.Page)
	case regions.KindTable:
		return fmt.Sprintf("Table with %d rows, %d columns", d.Rows, d.Cols)
	}
	return "Text Block"
}

// Result holds the regions found in a document, in page order per kind.
type Result struct {
	Images      []regions.Region
	Tables      []regions.Region
	TextBlocks  []regions.Region
	FailedPages []int
}

// All returns every detected region, images first.
func (r Result) All() []regions.Region {
	out := make([]regions.Region, 0, len(r.Images)+len(r.Tables)+len(r.TextBlocks))
	out = append(out, r.Images...)
	out = append(out, r.Tables...)
	return append(out, r.TextBlocks...)
}

// Extractor runs the detectors over whole documents.
type Extractor struct {
	scale float64
	opts  Options
	newID regions.IDGenerator
}

// NewExtractor returns an extractor producing canvas geometry at scale. A nil
// newID falls back to regions.UUIDGenerator.
func NewExtractor(scale float64, opts Options, newID regions.IDGenerator) *Extractor {
	if newID == nil {
		newID = regions.UUIDGenerator
	}
	return &Extractor{scale: scale, opts: opts, newID: newID}
}

// ExtractDocument runs the image and table passes, plus the text-block pass when
// enabled, concurrently. Each pass visits pages in order. A page that cannot be read
// is logged and skipped; only cancellation of ctx fails the call.
func (e *Extractor) ExtractDocument(ctx context.Context, doc Document) (Result, error) {
	var res Result
	failed := make([][]int, 3)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res.Images, failed[0], err = e.pass(gctx, doc, "images", func(page int, vp geometry.Viewport) ([]regions.Region, error) {
			ops, err := doc.OperatorList(gctx, page)
			if err != nil {
				return nil, err
			}
			return ExtractImages(page, ops, vp, e.opts), nil
		})
		return err
	})
	g.Go(func() error {
		var err error
		res.Tables, failed[1], err = e.pass(gctx, doc, "tables", func(page int, vp geometry.Viewport) ([]regions.Region, error) {
			items, err := doc.TextContent(gctx, page)
			if err != nil {
				return nil, err
			}
			return DetectTables(page, items, vp, e.opts), nil
		})
		return err
	})
	if e.opts.DetectText {
		g.Go(func() error {
			var err error
			res.TextBlocks, failed[2], err = e.pass(gctx, doc, "text blocks", func(page int, vp geometry.Viewport) ([]regions.Region, error) {
				items, err := doc.TextContent(gctx, page)
				if err != nil {
					return nil, err
				}
				return DetectTextBlocks(page, items, vp, e.opts), nil
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res.FailedPages = mergePages(failed...)
	log.WithFields(logrus.Fields{
		"images":       len(res.Images),
		"tables":       len(res.Tables),
		"text_blocks":  len(res.TextBlocks),
		"failed_pages": len(res.FailedPages),
	}).Info("Extraction finished")
	return res, nil
}

// ExtractTextBlocks runs the text-block detector on a single page.
func (e *Extractor) ExtractTextBlocks(ctx context.Context, doc Document, page int) ([]regions.Region, error) {
	vp, err := doc.Viewport(page, e.scale)
	if err != nil {
		return nil, fmt.Errorf("viewport of page %d: %w", page, err)
	}
	items, err := doc.TextContent(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("text content of page %d: %w", page, err)
	}
	return e.assignIDs(DetectTextBlocks(page, items, vp, e.opts)), nil
}

type pageFunc func(page int, vp geometry.Viewport) ([]regions.Region, error)

func (e *Extractor) pass(ctx context.Context, doc Document, name string, fn pageFunc) ([]regions.Region, []int, error) {
	var out []regions.Region
	var failed []int
	for page := 1; page <= doc.NumPages(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		logger := log.WithFields(logrus.Fields{"pass": name, "page": page})

		vp, err := doc.Viewport(page, e.scale)
		if err != nil {
			logger.WithError(err).Warn("Skipping page without viewport")
			failed = append(failed, page)
			continue
		}
		found, err := fn(page, vp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logger.WithError(err).Warn("Skipping unreadable page")
			failed = append(failed, page)
			continue
		}
		logger.WithField("found", len(found)).Debug("Page scanned")
		out = append(out, e.assignIDs(found)...)
	}
	return out, failed, nil
}

func (e *Extractor) assignIDs(found []regions.Region) []regions.Region {
	for i := range found {
		if found[i].ID == "" {
			found[i].ID = e.newID(found[i].Kind)
		}
	}
	return found
}

func mergePages(lists ...[]int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, l := range lists {
		for _, p := range l {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Ints(out)
	return out
}
