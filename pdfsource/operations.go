package pdfsource

import "pdf-tagger/geometry"

// OpCode identifies the drawing operations the extractors care about.
type OpCode int

const (
	OpOther OpCode = iota
	OpSave
	OpRestore
	OpTransform
	OpPaintImageXObject
	OpPaintJpegXObject
)

func (o OpCode) String() string {
	switch o {
	case OpSave:
		return "save"
	case OpRestore:
		return "restore"
	case OpTransform:
		return "transform"
	case OpPaintImageXObject:
		return "paintImageXObject"
	case OpPaintJpegXObject:
		return "paintJpegXObject"
	}
	return "other"
}

// Operation is one entry of a page's operator list. Transform carries the six
// matrix coefficients as float64 args; image paints carry the XObject name.
type Operation struct {
	Op   OpCode
	Args []interface{}
}

// TextItem is a run of text placed on the page. Transform is in PDF user space,
// Transform[4] and Transform[5] being the baseline origin.
type TextItem struct {
	Str       string
	Transform geometry.Matrix
	Width     float64
	Height    float64
	FontName  string
}
