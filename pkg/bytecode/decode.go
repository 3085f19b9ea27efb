package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/kaikalii/seidr/pkg/ast"
	"github.com/kaikalii/seidr/pkg/opcode"
)

// Default resource bounds for decoding untrusted input.
const (
	DefaultMaxDepth  = 256
	DefaultMaxLength = 1 << 24
)

// minEntrySize is the byte budget assumed per declared item or array
// element when rejecting implausible counts before allocating. One byte is
// the smallest array element (an ASCII char payload). Items get the same
// bound so that a lone bad tag is reported as malformed rather than as an
// excessive count.
const minEntrySize = 1

// Limits bounds the resources a single decode may use.
type Limits struct {
	// MaxDepth is the deepest permitted expression nesting. A top-level
	// item has depth 1.
	MaxDepth int
	// MaxLength caps any single program count or array length.
	MaxLength uint64
}

// DefaultLimits returns the limits used by the package-level functions.
func DefaultLimits() Limits {
	return Limits{MaxDepth: DefaultMaxDepth, MaxLength: DefaultMaxLength}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxLength == 0 {
		l.MaxLength = DefaultMaxLength
	}
	return l
}

// Decoder parses encoded programs. It holds no per-call state and is safe
// for concurrent use.
type Decoder struct {
	reg    *opcode.Registry
	limits Limits
}

// NewDecoder returns a decoder that resolves opcodes against reg and
// enforces limits. A nil reg selects opcode.Default(); zero limit fields
// take their defaults.
func NewDecoder(reg *opcode.Registry, limits Limits) *Decoder {
	if reg == nil {
		reg = opcode.Default()
	}
	return &Decoder{reg: reg, limits: limits.withDefaults()}
}

// Limits returns the effective limits of the decoder.
func (d *Decoder) Limits() Limits {
	return d.limits
}

// Registry returns the registry opcodes are resolved against.
func (d *Decoder) Registry() *opcode.Registry {
	return d.reg
}

var defaultDecoder = NewDecoder(nil, DefaultLimits())

// DecodeProgram decodes a program from the start of data using the default
// registry and limits. It returns the program and the number of bytes read.
func DecodeProgram(data []byte) (ast.Program, int, error) {
	return defaultDecoder.DecodeProgram(data)
}

// DecodeItem decodes a single item from the start of data using the default
// registry and limits.
func DecodeItem(data []byte) (ast.Item, int, error) {
	return defaultDecoder.DecodeItem(data)
}

// DecodeProgram decodes a program from the start of data. Bytes after the
// program are left unread; the second result says how many were used.
// On error no partial program is returned.
func (d *Decoder) DecodeProgram(data []byte) (ast.Program, int, error) {
	r := &reader{data: data, dec: d}
	p, err := r.readProgram()
	if err != nil {
		return nil, 0, err
	}
	return p, r.offset, nil
}

// DecodeItem decodes a single value or function expression.
func (d *Decoder) DecodeItem(data []byte) (ast.Item, int, error) {
	r := &reader{data: data, dec: d}
	it, err := r.readExpr(slotAny)
	if err != nil {
		return nil, 0, err
	}
	return it, r.offset, nil
}

// DecodeProgramExact decodes a program that must span all of data.
func (d *Decoder) DecodeProgramExact(data []byte) (ast.Program, error) {
	p, n, err := d.DecodeProgram(data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, &DecodeError{
			Kind:   ErrTrailingBytes,
			Offset: n,
			Detail: fmt.Sprintf("%d unread bytes", len(data)-n),
		}
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// reader: cursor and depth budget for one decode call
// ---------------------------------------------------------------------------

type reader struct {
	data   []byte
	offset int
	depth  int
	dec    *Decoder
}

// slot is the kind of expression an operand position accepts.
type slot uint8

const (
	slotAny slot = iota
	slotValue
	slotFunction
)

func (r *reader) fail(kind error, at int, format string, args ...any) error {
	return &DecodeError{Kind: kind, Offset: at, Detail: fmt.Sprintf(format, args...)}
}

func (r *reader) remaining() int {
	return len(r.data) - r.offset
}

func (r *reader) readByte(what string) (byte, error) {
	if r.remaining() < 1 {
		return 0, r.fail(ErrTruncatedInput, r.offset, "reading %s", what)
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

func (r *reader) readUint64(what string) (uint64, error) {
	if r.remaining() < 8 {
		return 0, r.fail(ErrTruncatedInput, r.offset, "reading %s: need 8 bytes, have %d", what, r.remaining())
	}
	v := binary.BigEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return v, nil
}

func (r *reader) readFloat64() (float64, error) {
	bits, err := r.readUint64("number")
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// readChar reads one UTF-8 encoded scalar value; its width comes from the
// leading byte.
func (r *reader) readChar() (rune, error) {
	rest := r.data[r.offset:]
	if !utf8.FullRune(rest) {
		return 0, r.fail(ErrTruncatedInput, r.offset, "reading char: incomplete UTF-8 sequence")
	}
	c, size := utf8.DecodeRune(rest)
	if c == utf8.RuneError && size <= 1 {
		return 0, r.fail(ErrInvalidChar, r.offset, "byte 0x%02X", rest[0])
	}
	r.offset += size
	return c, nil
}

// readCount reads a u64 count and checks it against the configured ceiling
// and against the bytes left.
func (r *reader) readCount(what string) (int, error) {
	at := r.offset
	n, err := r.readUint64(what)
	if err != nil {
		return 0, err
	}
	if n > r.dec.limits.MaxLength {
		return 0, r.fail(ErrExcessiveLength, at, "%s %d exceeds limit %d", what, n, r.dec.limits.MaxLength)
	}
	if n > uint64(r.remaining()/minEntrySize) {
		return 0, r.fail(ErrExcessiveLength, at, "%s %d exceeds the %d bytes remaining", what, n, r.remaining())
	}
	return int(n), nil
}

func (r *reader) enter() error {
	r.depth++
	if r.depth > r.dec.limits.MaxDepth {
		return r.fail(ErrRecursionLimit, r.offset, "depth %d exceeds %d", r.depth, r.dec.limits.MaxDepth)
	}
	return nil
}

func (r *reader) leave() {
	r.depth--
}

func (r *reader) readProgram() (ast.Program, error) {
	count, err := r.readCount("item count")
	if err != nil {
		return nil, err
	}
	p := make(ast.Program, 0, count)
	for i := 0; i < count; i++ {
		it, err := r.readExpr(slotAny)
		if err != nil {
			return nil, err
		}
		p = append(p, it)
	}
	return p, nil
}

// readExpr reads a tag and its payload, checking that the tag's category
// fits the slot.
func (r *reader) readExpr(s slot) (ast.Item, error) {
	at := r.offset
	b, err := r.readByte("tag")
	if err != nil {
		return nil, err
	}
	tag := ast.Tag(b)
	if !tag.Known() {
		return nil, r.fail(ErrMalformedTag, at, "byte 0x%02X (%s range) is not an expression tag", b, tag.Category())
	}

	switch {
	case s == slotValue && tag.Category() != ast.CategoryValue:
		return nil, r.fail(ErrMalformedTag, at, "expected a value, found %s", tag)
	case s == slotFunction && tag.Category() != ast.CategoryFunction:
		return nil, r.fail(ErrMalformedTag, at, "expected a function, found %s", tag)
	}

	return r.readPayload(tag)
}

func (r *reader) readValue() (ast.Value, error) {
	it, err := r.readExpr(slotValue)
	if err != nil {
		return nil, err
	}
	return it.(ast.Value), nil
}

func (r *reader) readFunction() (ast.Function, error) {
	it, err := r.readExpr(slotFunction)
	if err != nil {
		return nil, err
	}
	return it.(ast.Function), nil
}

// readOpcode reads a code byte and checks it against one registry table.
func (r *reader) readOpcode(t opcode.Table) (byte, error) {
	at := r.offset
	code, err := r.readByte(t.String())
	if err != nil {
		return 0, err
	}
	if _, ok := r.dec.reg.Entry(t, code); !ok {
		return 0, r.fail(ErrUnknownOpcode, at, "%s 0x%02X", t, code)
	}
	return code, nil
}

// readPayload decodes the body of an expression whose tag is already known
// to be valid.
func (r *reader) readPayload(tag ast.Tag) (ast.Item, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	switch tag {
	case ast.TagNumber:
		v, err := r.readFloat64()
		if err != nil {
			return nil, err
		}
		return &ast.Number{Value: v}, nil

	case ast.TagChar:
		c, err := r.readChar()
		if err != nil {
			return nil, err
		}
		return &ast.Char{Value: c}, nil

	case ast.TagStaticArray:
		return r.readArray()

	case ast.TagUnaryApply:
		f, err := r.readFunction()
		if err != nil {
			return nil, err
		}
		x, err := r.readValue()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryApply{F: f, X: x}, nil

	case ast.TagBinaryApply:
		f, err := r.readFunction()
		if err != nil {
			return nil, err
		}
		left, err := r.readValue()
		if err != nil {
			return nil, err
		}
		right, err := r.readValue()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryApply{F: f, Left: left, Right: right}, nil

	case ast.TagOperator:
		code, err := r.readOpcode(opcode.Operators)
		if err != nil {
			return nil, err
		}
		return &ast.Operator{Code: code}, nil

	case ast.TagFunctionLiteral:
		body, err := r.readProgram()
		if err != nil {
			return nil, err
		}
		return &ast.FunctionLiteral{Body: body}, nil

	case ast.TagUnaryModified:
		mod, err := r.readOpcode(opcode.UnaryModifiers)
		if err != nil {
			return nil, err
		}
		f, err := r.readFunction()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryModified{Mod: mod, F: f}, nil

	case ast.TagBinaryModified:
		mod, err := r.readOpcode(opcode.BinaryModifiers)
		if err != nil {
			return nil, err
		}
		f, err := r.readExpr(slotAny)
		if err != nil {
			return nil, err
		}
		g, err := r.readExpr(slotAny)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryModified{Mod: mod, F: f, G: g}, nil

	case ast.TagAtop:
		f, err := r.readFunction()
		if err != nil {
			return nil, err
		}
		g, err := r.readFunction()
		if err != nil {
			return nil, err
		}
		return &ast.Atop{F: f, G: g}, nil

	case ast.TagFork:
		left, err := r.readExpr(slotAny)
		if err != nil {
			return nil, err
		}
		middle, err := r.readFunction()
		if err != nil {
			return nil, err
		}
		right, err := r.readFunction()
		if err != nil {
			return nil, err
		}
		return &ast.Fork{Left: left, Middle: middle, Right: right}, nil
	}

	// readExpr only passes known tags; array element tags are checked too.
	return nil, r.fail(ErrMalformedTag, r.offset, "no decoder for %s", tag)
}

func (r *reader) readArray() (ast.Item, error) {
	length, err := r.readCount("array length")
	if err != nil {
		return nil, err
	}

	at := r.offset
	b, err := r.readByte("element tag")
	if err != nil {
		return nil, err
	}
	elemTag := ast.Tag(b)
	if !elemTag.Known() || elemTag.Category() != ast.CategoryValue {
		return nil, r.fail(ErrMalformedTag, at, "array element tag 0x%02X is not a value tag", b)
	}

	elems := make([]ast.Value, 0, length)
	for i := 0; i < length; i++ {
		el, err := r.readPayload(elemTag)
		if err != nil {
			return nil, err
		}
		elems = append(elems, el.(ast.Value))
	}
	return &ast.StaticArray{ElemTag: elemTag, Elements: elems}, nil
}
