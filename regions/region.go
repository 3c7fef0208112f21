// Package regions is the in-memory model of everything tagged on a document: detected and
// drawn regions, the sections grouping them, the overlap resolver that guards new
// commits and the drag-reorder reconciler.
package regions

import (
	"errors"
	"fmt"
	"strings"

	"pdf-tagger/geometry"
)

var (
	ErrInvalidRegion     = errors.New("regions: invalid region")
	ErrDegenerate        = errors.New("regions: region has no area")
	ErrBlankName         = errors.New("regions: name must not be blank")
	ErrDuplicateID       = errors.New("regions: duplicate id")
	ErrNestedSection     = errors.New("regions: sections cannot be nested")
	ErrInvalidTableShape = errors.New("regions: invalid table shape")
	ErrDecisionPending   = errors.New("regions: a merge decision is pending")
	ErrNoDecision        = errors.New("regions: no such pending decision")
)

// Kind classifies a region.
type Kind string

const (
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindTable   Kind = "table"
	KindSection Kind = "section"
	KindMerged  Kind = "merged"
)

func (k Kind) valid() bool {
	switch k {
	case KindText, KindImage, KindTable, KindSection, KindMerged:
		return true
	}
	return false
}

// SemanticTag is the structure role exported for a region.
type SemanticTag string

const (
	TagParagraph     SemanticTag = "Paragraph"
	TagH1            SemanticTag = "H1"
	TagH2            SemanticTag = "H2"
	TagH3            SemanticTag = "H3"
	TagH4            SemanticTag = "H4"
	TagListItem      SemanticTag = "ListItem"
	TagFigureCaption SemanticTag = "FigureCaption"
	TagFigure        SemanticTag = "Figure"
	TagTable         SemanticTag = "Table"
)

// Valid reports whether t belongs to the tag vocabulary. The empty tag is allowed.
func (t SemanticTag) Valid() bool {
	switch t {
	case "", TagParagraph, TagH1, TagH2, TagH3, TagH4, TagListItem, TagFigureCaption, TagFigure, TagTable:
		return true
	}
	return false
}

// HeadingLevel returns 1-4 for heading tags and 0 otherwise.
func (t SemanticTag) HeadingLevel() int {
	switch t {
	case TagH1:
		return 1
	case TagH2:
		return 2
	case TagH3:
		return 3
	case TagH4:
		return 4
	}
	return 0
}

// FontRef is an opaque font handed through to the export service.
type FontRef struct {
	Name   string `json:"name"`
	Base64 string `json:"base64"`
}

// Region is a tagged or detected rectangle on one page, or a section grouping such regions.
type Region struct {
	ID          string      `json:"id"`
	Kind        Kind        `json:"type"`
	Label       string      `json:"name"`
	SemanticTag SemanticTag `json:"tag,omitempty"`
	Language    string      `json:"language,omitempty"`
	Font        *FontRef    `json:"font,omitempty"`
	AltText     string      `json:"alt,omitempty"`
	Page        int         `json:"page"`
	geometry.Box
	Table        *TableShape `json:"table,omitempty"`
	Children     []Region    `json:"children,omitempty"`
	ReadingOrder *int        `json:"readingOrder,omitempty"`
	Text         string      `json:"text,omitempty"`
	MergedFrom   []string    `json:"mergedFrom,omitempty"`
	AutoSize     bool        `json:"autoSize,omitempty"`

	// SectionName is only filled on flattened export copies.
	SectionName string `json:"sectionName,omitempty"`
}

// IsSection reports whether r groups other regions.
func (r Region) IsSection() bool { return r.Kind == KindSection }

// Clone returns a deep copy of r.
func (r Region) Clone() Region {
	c := r
	if r.Font != nil {
		f := *r.Font
		c.Font = &f
	}
	if r.Table != nil {
		t := r.Table.Clone()
		c.Table = &t
	}
	if r.ReadingOrder != nil {
		o := *r.ReadingOrder
		c.ReadingOrder = &o
	}
	if r.MergedFrom != nil {
		c.MergedFrom = append([]string(nil), r.MergedFrom...)
	}
	if r.Children != nil {
		c.Children = cloneAll(r.Children)
	}
	return c
}

func cloneAll(items []Region) []Region {
	out := make([]Region, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

// Validate checks the shape of a single region. Sections are allowed to have no area
// since an empty section has nothing to bound; every other kind must.
func (r Region) Validate() error {
	if !r.Kind.valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRegion, r.Kind)
	}
	if !r.SemanticTag.Valid() {
		return fmt.Errorf("%w: unknown tag %q", ErrInvalidRegion, r.SemanticTag)
	}
	if err := r.Box.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRegion, err)
	}
	if r.AltText != "" && r.Kind != KindImage {
		return fmt.Errorf("%w: alt text on %s region %s", ErrInvalidRegion, r.Kind, r.ID)
	}
	if r.IsSection() {
		if strings.TrimSpace(r.Label) == "" {
			return ErrBlankName
		}
		if r.Table != nil {
			return fmt.Errorf("%w: section %s carries a table shape", ErrInvalidRegion, r.ID)
		}
		for _, child := range r.Children {
			if child.IsSection() {
				return fmt.Errorf("%w: %s inside %s", ErrNestedSection, child.ID, r.ID)
			}
			if err := child.Validate(); err != nil {
				return err
			}
		}
		return nil
	}

	if len(r.Children) > 0 {
		return fmt.Errorf("%w: only sections have children", ErrInvalidRegion)
	}
	if r.Box.IsDegenerate() {
		return fmt.Errorf("%w: %s", ErrDegenerate, r.ID)
	}
	if r.Page < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidRegion, r.Page)
	}
	if r.Table != nil {
		if r.Kind != KindTable {
			return fmt.Errorf("%w: %s region carries a table shape", ErrInvalidRegion, r.Kind)
		}
		if err := r.Table.Validate(r.Width, r.Height); err != nil {
			return err
		}
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Label        *string       `json:"name,omitempty"`
	SemanticTag  *SemanticTag  `json:"tag,omitempty"`
	Language     *string       `json:"language,omitempty"`
	Font         *FontRef      `json:"font,omitempty"`
	AltText      *string       `json:"alt,omitempty"`
	Page         *int          `json:"page,omitempty"`
	Box          *geometry.Box `json:"box,omitempty"`
	Table        *TableShape   `json:"table,omitempty"`
	ReadingOrder *int          `json:"readingOrder,omitempty"`
	Text         *string       `json:"text,omitempty"`
	AutoSize     *bool         `json:"autoSize,omitempty"`

	// Table edits, applied after Box and Table. A count change respaces every
	// fence-post evenly; a toggle of the current header clears it.
	Rows            *int `json:"rows,omitempty"`
	Cols            *int `json:"cols,omitempty"`
	ToggleHeaderRow *int `json:"toggleHeaderRow,omitempty"`
	ToggleHeaderCol *int `json:"toggleHeaderCol,omitempty"`
}

// apply merges p into r. A resized table keeps its bands proportional unless the
// patch brings its own shape.
func (p Patch) apply(r Region) Region {
	if p.Label != nil {
		r.Label = *p.Label
	}
	if p.SemanticTag != nil {
		r.SemanticTag = *p.SemanticTag
	}
	if p.Language != nil {
		r.Language = *p.Language
	}
	if p.Font != nil {
		f := *p.Font
		r.Font = &f
	}
	if p.AltText != nil {
		r.AltText = *p.AltText
	}
	if p.Page != nil {
		r.Page = *p.Page
	}
	if p.Box != nil {
		if r.Table != nil && p.Table == nil {
			t := r.Table.Resize(r.Width, r.Height, p.Box.Width, p.Box.Height)
			r.Table = &t
		}
		r.Box = *p.Box
	}
	if p.Table != nil {
		t := p.Table.Clone()
		r.Table = &t
	}
	if p.ReadingOrder != nil {
		o := *p.ReadingOrder
		r.ReadingOrder = &o
	}
	if p.Text != nil {
		r.Text = *p.Text
	}
	if p.AutoSize != nil {
		r.AutoSize = *p.AutoSize
	}
	if p.editsTable() {
		r.Table = p.applyTable(r)
	}
	return r
}

func (p Patch) editsTable() bool {
	return p.Rows != nil || p.Cols != nil || p.ToggleHeaderRow != nil || p.ToggleHeaderCol != nil
}

// applyTable runs the table edits on r's shape. A region without a shape starts from
// a single cell, so Validate rejects edits on regions that are not tables.
func (p Patch) applyTable(r Region) *TableShape {
	shape := EvenTableShape(1, 1, r.Width, r.Height)
	if r.Table != nil {
		shape = r.Table.Clone()
	}
	rows, cols := shape.RowCount, shape.ColCount
	if p.Rows != nil {
		rows = *p.Rows
	}
	if p.Cols != nil {
		cols = *p.Cols
	}
	if rows != shape.RowCount || cols != shape.ColCount {
		if rows < 1 || cols < 1 {
			shape.RowCount, shape.ColCount = rows, cols
			return &shape
		}
		shape = shape.WithCounts(rows, cols, r.Width, r.Height)
	}
	if p.ToggleHeaderRow != nil {
		shape = shape.ToggleHeaderRow(*p.ToggleHeaderRow)
	}
	if p.ToggleHeaderCol != nil {
		shape = shape.ToggleHeaderCol(*p.ToggleHeaderCol)
	}
	return &shape
}
