package pdfsource

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"pdf-tagger/geometry"
)

// maxFormDepth bounds the expansion of nested form XObjects.
const maxFormDepth = 8

// xobject is what a Do operator can refer to.
type xobject struct {
	subtype   string // Image or Form
	jpeg      bool
	matrix    geometry.Matrix
	content   []byte
	resources resourceLookup
}

// resourceLookup resolves XObject names for one content stream.
type resourceLookup interface {
	xobject(name string) (*xobject, error)
}

// buildOperatorList turns page content into the operator list, expanding form
// XObjects in place so their drawing carries the form matrix.
func buildOperatorList(content []byte, res resourceLookup, depth int) ([]Operation, error) {
	var ops []Operation
	err := scanContent(content, func(op string, operands []interface{}) error {
		switch op {
		case "q":
			ops = append(ops, Operation{Op: OpSave})
		case "Q":
			ops = append(ops, Operation{Op: OpRestore})
		case "cm":
			m, ok := numbers(operands)
			if !ok || len(m) != 6 {
				return nil
			}
			ops = append(ops, Operation{Op: OpTransform, Args: floatArgs(m)})
		case "Do":
			if len(operands) != 1 || res == nil {
				return nil
			}
			n, ok := operands[0].(Name)
			if !ok {
				return nil
			}
			xo, err := res.xobject(string(n))
			if err != nil || xo == nil {
				return nil
			}
			switch xo.subtype {
			case "Image":
				code := OpPaintImageXObject
				if xo.jpeg {
					code = OpPaintJpegXObject
				}
				ops = append(ops, Operation{Op: code, Args: []interface{}{string(n)}})
			case "Form":
				if depth >= maxFormDepth {
					return nil
				}
				inner, err := buildOperatorList(xo.content, xo.resources, depth+1)
				if err != nil {
					return fmt.Errorf("form %s: %w", n, err)
				}
				ops = append(ops, Operation{Op: OpSave}, Operation{Op: OpTransform, Args: floatArgs(xo.matrix[:])})
				ops = append(ops, inner...)
				ops = append(ops, Operation{Op: OpRestore})
			}
		}
		return nil
	})
	return ops, err
}

func floatArgs(v []float64) []interface{} {
	out := make([]interface{}, len(v))
	for i, f := range v {
		out[i] = f
	}
	return out
}

// glyphWidthFactor approximates the advance of one glyph as a fraction of the
// font size, since font metrics are not loaded.
const glyphWidthFactor = 0.5

type textState struct {
	tm, tlm  geometry.Matrix
	fontSize float64
	fontName string
	leading  float64
	hscale   float64
	charSp   float64
	wordSp   float64
	rise     float64
}

// extractText walks page content and places every shown string.
func extractText(content []byte, res resourceLookup, depth int, base geometry.Matrix) ([]TextItem, error) {
	var items []TextItem
	ctm := base
	var stack []geometry.Matrix
	ts := textState{tm: geometry.Identity, tlm: geometry.Identity, hscale: 1}

	moveLine := func(tx, ty float64) {
		ts.tlm = geometry.Translation(tx, ty).Multiply(ts.tlm)
		ts.tm = ts.tlm
	}
	show := func(s []byte, adjust float64) {
		str := decodeText(s)
		if str == "" {
			return
		}
		trm := geometry.Matrix{ts.fontSize * ts.hscale, 0, 0, ts.fontSize, 0, ts.rise}.Multiply(ts.tm).Multiply(ctm)
		glyphs := utf8.RuneCountInString(str)
		spaces := strings.Count(str, " ")
		advance := (float64(glyphs)*(glyphWidthFactor*ts.fontSize+ts.charSp) + float64(spaces)*ts.wordSp - adjust/1000*ts.fontSize) * ts.hscale

		page := ts.tm.Multiply(ctm)
		width := advance * math.Hypot(page[0], page[1])
		if strings.TrimSpace(str) != "" {
			items = append(items, TextItem{
				Str:       str,
				Transform: trm,
				Width:     math.Abs(width),
				Height:    math.Hypot(trm[2], trm[3]),
				FontName:  ts.fontName,
			})
		}
		ts.tm = geometry.Translation(advance, 0).Multiply(ts.tm)
	}

	err := scanContent(content, func(op string, operands []interface{}) error {
		nums, allNumbers := numbers(operands)
		switch op {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if n := len(stack); n > 0 {
				ctm = stack[n-1]
				stack = stack[:n-1]
			} else {
				ctm = base
			}
		case "cm":
			if m, ok := geometry.MatrixFrom(nums); allNumbers && ok {
				ctm = m.Multiply(ctm)
			}
		case "BT":
			ts.tm, ts.tlm = geometry.Identity, geometry.Identity
		case "Tf":
			if len(operands) == 2 {
				if n, ok := operands[0].(Name); ok {
					ts.fontName = string(n)
				}
				if size, ok := operands[1].(float64); ok {
					ts.fontSize = size
				}
			}
		case "TL":
			if allNumbers && len(nums) == 1 {
				ts.leading = nums[0]
			}
		case "Tc":
			if allNumbers && len(nums) == 1 {
				ts.charSp = nums[0]
			}
		case "Tw":
			if allNumbers && len(nums) == 1 {
				ts.wordSp = nums[0]
			}
		case "Tz":
			if allNumbers && len(nums) == 1 {
				ts.hscale = nums[0] / 100
			}
		case "Ts":
			if allNumbers && len(nums) == 1 {
				ts.rise = nums[0]
			}
		case "Td":
			if allNumbers && len(nums) == 2 {
				moveLine(nums[0], nums[1])
			}
		case "TD":
			if allNumbers && len(nums) == 2 {
				ts.leading = -nums[1]
				moveLine(nums[0], nums[1])
			}
		case "Tm":
			if m, ok := geometry.MatrixFrom(nums); allNumbers && ok {
				ts.tm, ts.tlm = m, m
			}
		case "T*":
			moveLine(0, -ts.leading)
		case "Tj":
			if len(operands) == 1 {
				if s, ok := operands[0].([]byte); ok {
					show(s, 0)
				}
			}
		case "'":
			moveLine(0, -ts.leading)
			if len(operands) == 1 {
				if s, ok := operands[0].([]byte); ok {
					show(s, 0)
				}
			}
		case "\"":
			if len(operands) == 3 {
				if aw, ok := operands[0].(float64); ok {
					ts.wordSp = aw
				}
				if ac, ok := operands[1].(float64); ok {
					ts.charSp = ac
				}
				moveLine(0, -ts.leading)
				if s, ok := operands[2].([]byte); ok {
					show(s, 0)
				}
			}
		case "TJ":
			if len(operands) == 1 {
				if arr, ok := operands[0].([]interface{}); ok {
					showArray(arr, show)
				}
			}
		case "Do":
			if depth >= maxFormDepth || len(operands) != 1 || res == nil {
				return nil
			}
			n, ok := operands[0].(Name)
			if !ok {
				return nil
			}
			xo, err := res.xobject(string(n))
			if err != nil || xo == nil || xo.subtype != "Form" {
				return nil
			}
			inner, err := extractText(xo.content, xo.resources, depth+1, xo.matrix.Multiply(ctm))
			if err != nil {
				return fmt.Errorf("form %s: %w", n, err)
			}
			items = append(items, inner...)
		}
		return nil
	})
	return items, err
}

// showArray joins the strings of a TJ array into one run. Large negative
// adjustments are word gaps and become spaces.
func showArray(arr []interface{}, show func([]byte, float64)) {
	var buf []byte
	adjust := 0.0
	for _, el := range arr {
		switch v := el.(type) {
		case []byte:
			buf = append(buf, v...)
		case float64:
			if v < -250 {
				buf = append(buf, ' ')
			}
			adjust += v
		}
	}
	show(buf, adjust)
}

// decodeText maps string bytes to text. Bytes that are not UTF-8 are read as Latin-1,
// which matches PDFDocEncoding for the printable range.
func decodeText(s []byte) string {
	if len(s) >= 2 && s[0] == 0xFE && s[1] == 0xFF {
		runes := make([]rune, 0, len(s)/2)
		for i := 2; i+1 < len(s); i += 2 {
			runes = append(runes, rune(s[i])<<8|rune(s[i+1]))
		}
		return string(runes)
	}
	if utf8.Valid(s) {
		return string(s)
	}
	runes := make([]rune, len(s))
	for i, b := range s {
		runes[i] = rune(b)
	}
	return string(runes)
}
