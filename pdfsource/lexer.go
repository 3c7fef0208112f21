package pdfsource

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Operand values produced by the content stream lexer: float64, bool, nil, Name,
// []byte (string), []interface{} (array) and map[string]interface{} (dictionary).
type Name string

type keyword string

var (
	errUnexpectedEOF = errors.New("content stream: unexpected end of data")
	errTooDeep       = errors.New("content stream: arrays or dictionaries nested too deeply")
)

// maxNesting bounds how deeply arrays and dictionaries may nest inside an operand.
const maxNesting = 64

type lexer struct {
	data  []byte
	pos   int
	depth int
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// next returns the next operand or keyword. ok is false at end of data.
func (l *lexer) next() (v interface{}, ok bool, err error) {
	l.skipSpace()
	// stray closers have nothing sensible to attach to
	for l.pos < len(l.data) && isStrayCloser(l.data[l.pos]) {
		l.pos++
		l.skipSpace()
	}
	if l.pos >= len(l.data) {
		return nil, false, nil
	}

	c := l.data[l.pos]
	switch {
	case c == '/':
		l.pos++
		return l.readName(), true, nil
	case c == '(':
		l.pos++
		s, err := l.readLiteral()
		return s, err == nil, err
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			d, err := l.readDict()
			return d, err == nil, err
		}
		l.pos++
		s, err := l.readHex()
		return s, err == nil, err
	case c == '[':
		l.pos++
		a, err := l.readArray()
		return a, err == nil, err
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.readNumber(), true, nil
	}

	word := l.readRegular()
	switch word {
	case "true":
		return true, true, nil
	case "false":
		return false, true, nil
	case "null":
		return nil, true, nil
	}
	return keyword(word), true, nil
}

func isStrayCloser(c byte) bool {
	switch c {
	case ']', '>', ')', '{', '}':
		return true
	}
	return false
}

// enter tracks one more level of array or dictionary nesting.
func (l *lexer) enter() error {
	if l.depth >= maxNesting {
		return errTooDeep
	}
	l.depth++
	return nil
}

func (l *lexer) readRegular() string {
	start := l.pos
	for l.pos < len(l.data) && !isWhitespace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) readName() Name {
	raw := l.readRegularAfterSlash()
	if !bytes.ContainsRune(raw, '#') {
		return Name(raw)
	}
	var out []byte
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			if b, err := strconv.ParseUint(string(raw[i+1:i+3]), 16, 8); err == nil {
				out = append(out, byte(b))
				i += 2
				continue
			}
		}
		out = append(out, raw[i])
	}
	return Name(out)
}

func (l *lexer) readRegularAfterSlash() []byte {
	start := l.pos
	for l.pos < len(l.data) && !isWhitespace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return l.data[start:l.pos]
}

func (l *lexer) readNumber() interface{} {
	start := l.pos
	l.pos++
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			l.pos++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(string(l.data[start:l.pos]), 64)
	if err != nil {
		// malformed numbers such as "--5" read as zero, the way viewers tolerate them
		return 0.0
	}
	return f
}

func (l *lexer) readLiteral() ([]byte, error) {
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out, nil
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.data) {
				return nil, errUnexpectedEOF
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for n := 0; n < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; n++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return nil, errUnexpectedEOF
}

func (l *lexer) readHex() ([]byte, error) {
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := range out {
				b, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("content stream: bad hex string: %w", err)
				}
				out[i] = byte(b)
			}
			return out, nil
		}
		if !isWhitespace(c) {
			digits = append(digits, c)
		}
	}
	return nil, errUnexpectedEOF
}

func (l *lexer) readArray() ([]interface{}, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer func() { l.depth-- }()

	var out []interface{}
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, errUnexpectedEOF
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return out, nil
		}
		v, ok, err := l.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errUnexpectedEOF
		}
		out = append(out, v)
	}
}

func (l *lexer) readDict() (map[string]interface{}, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer func() { l.depth-- }()

	out := make(map[string]interface{})
	for {
		l.skipSpace()
		if l.pos+1 < len(l.data) && l.data[l.pos] == '>' && l.data[l.pos+1] == '>' {
			l.pos += 2
			return out, nil
		}
		k, ok, err := l.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errUnexpectedEOF
		}
		v, ok, err := l.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errUnexpectedEOF
		}
		if key, isName := k.(Name); isName {
			out[string(key)] = v
		}
	}
}

// skipInlineImage moves past the binary data of an inline image, which follows the
// ID operator and ends at an EI surrounded by whitespace.
func (l *lexer) skipInlineImage() error {
	for {
		v, ok, err := l.next()
		if err != nil {
			return err
		}
		if !ok {
			return errUnexpectedEOF
		}
		if kw, isKw := v.(keyword); isKw && kw == "ID" {
			break
		}
	}
	if l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		before := i == 0 || isWhitespace(l.data[i-1])
		after := i+2 >= len(l.data) || isWhitespace(l.data[i+2]) || isDelimiter(l.data[i+2])
		if before && after {
			l.pos = i + 2
			return nil
		}
	}
	return errUnexpectedEOF
}

// scanContent calls fn for every operator in data with the operands preceding it.
func scanContent(data []byte, fn func(op string, operands []interface{}) error) error {
	l := &lexer{data: data}
	var operands []interface{}
	for {
		v, ok, err := l.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		kw, isKw := v.(keyword)
		if !isKw {
			operands = append(operands, v)
			continue
		}
		if kw == "BI" {
			if err := l.skipInlineImage(); err != nil {
				return fmt.Errorf("inline image: %w", err)
			}
			operands = operands[:0]
			continue
		}
		if err := fn(string(kw), operands); err != nil {
			return err
		}
		operands = operands[:0]
	}
}

func numbers(operands []interface{}) ([]float64, bool) {
	out := make([]float64, len(operands))
	for i, o := range operands {
		f, ok := o.(float64)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}
