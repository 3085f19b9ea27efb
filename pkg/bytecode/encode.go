package bytecode

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/kaikalii/seidr/pkg/ast"
	"github.com/kaikalii/seidr/pkg/opcode"
)

// ---------------------------------------------------------------------------
// Encoding conventions:
//   - Counts and lengths: uint64 big-endian (8B)
//   - Numbers: IEEE 754 float64 big-endian (8B)
//   - Chars: UTF-8 bytes of one scalar value (1-4B, no length prefix)
//   - Opcodes and tags: single byte
//   - Child nodes: serialized inline, depth first
//   - Array elements: payload only; the element tag is written once
// ---------------------------------------------------------------------------

// Encoder serializes trees. The zero value is not usable; use NewEncoder.
type Encoder struct {
	reg *opcode.Registry
}

// NewEncoder returns an encoder that checks opcodes against reg.
// A nil reg selects opcode.Default().
func NewEncoder(reg *opcode.Registry) *Encoder {
	if reg == nil {
		reg = opcode.Default()
	}
	return &Encoder{reg: reg}
}

var defaultEncoder = NewEncoder(nil)

// Encode serializes a single item with the default registry.
func Encode(it ast.Item) ([]byte, error) {
	return defaultEncoder.Encode(it)
}

// EncodeProgram serializes a count-prefixed program with the default registry.
func EncodeProgram(p ast.Program) ([]byte, error) {
	return defaultEncoder.EncodeProgram(p)
}

// Encode serializes a single item. The only possible error wraps
// ast.ErrInvalidTree and means the tree breaks a construction invariant.
func (e *Encoder) Encode(it ast.Item) ([]byte, error) {
	return e.AppendItem(nil, it)
}

// EncodeProgram serializes p as a count followed by its items.
func (e *Encoder) EncodeProgram(p ast.Program) ([]byte, error) {
	return e.AppendProgram(nil, p)
}

// AppendItem appends the encoding of it to buf.
func (e *Encoder) AppendItem(buf []byte, it ast.Item) ([]byte, error) {
	if err := ast.Validate(it, e.reg); err != nil {
		return buf, err
	}
	s := &serializer{buf: buf}
	s.writeItem(it)
	return s.buf, nil
}

// AppendProgram appends the encoding of p to buf.
func (e *Encoder) AppendProgram(buf []byte, p ast.Program) ([]byte, error) {
	if err := ast.ValidateProgram(p, e.reg); err != nil {
		return buf, err
	}
	s := &serializer{buf: buf}
	s.writeProgram(p)
	return s.buf, nil
}

// serializer writes an already validated tree.
type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint64(v uint64) {
	s.buf = binary.BigEndian.AppendUint64(s.buf, v)
}

func (s *serializer) writeFloat64(v float64) {
	s.buf = binary.BigEndian.AppendUint64(s.buf, math.Float64bits(v))
}

func (s *serializer) writeProgram(p ast.Program) {
	s.writeUint64(uint64(len(p)))
	for _, it := range p {
		s.writeItem(it)
	}
}

func (s *serializer) writeItem(it ast.Item) {
	s.writeByte(byte(it.Tag()))
	s.writePayload(it)
}

func (s *serializer) writePayload(it ast.Item) {
	switch n := it.(type) {
	case *ast.Number:
		s.writeFloat64(n.Value)

	case *ast.Char:
		s.buf = utf8.AppendRune(s.buf, n.Value)

	case *ast.StaticArray:
		s.writeUint64(uint64(len(n.Elements)))
		s.writeByte(byte(n.ElemTag))
		for _, el := range n.Elements {
			s.writePayload(el)
		}

	case *ast.UnaryApply:
		s.writeItem(n.F)
		s.writeItem(n.X)

	case *ast.BinaryApply:
		s.writeItem(n.F)
		s.writeItem(n.Left)
		s.writeItem(n.Right)

	case *ast.Operator:
		s.writeByte(n.Code)

	case *ast.FunctionLiteral:
		s.writeProgram(n.Body)

	case *ast.UnaryModified:
		s.writeByte(n.Mod)
		s.writeItem(n.F)

	case *ast.BinaryModified:
		s.writeByte(n.Mod)
		s.writeItem(n.F)
		s.writeItem(n.G)

	case *ast.Atop:
		s.writeItem(n.F)
		s.writeItem(n.G)

	case *ast.Fork:
		s.writeItem(n.Left)
		s.writeItem(n.Middle)
		s.writeItem(n.Right)
	}
}
