package ast

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidTree reports a tree that breaks a construction invariant.
// Producing one is a bug in whatever built the tree.
var ErrInvalidTree = errors.New("invalid tree")

// Lexicon answers opcode membership questions. *opcode.Registry
// implements it.
type Lexicon interface {
	HasOperator(code byte) bool
	HasUnaryModifier(code byte) bool
	HasBinaryModifier(code byte) bool
}

// Validate checks the structural invariants of an item: no missing
// children, no cycles, homogeneous arrays of a value element tag, chars
// that are Unicode scalar values and, when lex is non-nil, opcodes that
// exist in the matching table.
func Validate(it Item, lex Lexicon) error {
	v := &validator{lex: lex, ancestors: make(map[Item]bool)}
	return v.item(it, "root")
}

// ValidateProgram validates every item of p.
func ValidateProgram(p Program, lex Lexicon) error {
	v := &validator{lex: lex, ancestors: make(map[Item]bool)}
	return v.program(p, "root")
}

type validator struct {
	lex       Lexicon
	ancestors map[Item]bool
}

func (v *validator) fail(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidTree, path, fmt.Sprintf(format, args...))
}

func (v *validator) program(p Program, path string) error {
	for i, it := range p {
		if err := v.item(it, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) item(it Item, path string) error {
	if isNil(it) {
		return v.fail(path, "missing expression")
	}
	if v.ancestors[it] {
		return v.fail(path, "node is its own ancestor")
	}
	v.ancestors[it] = true
	defer delete(v.ancestors, it)

	switch n := it.(type) {
	case *Number:
		return nil

	case *Operator:
		if v.lex != nil && !v.lex.HasOperator(n.Code) {
			return v.fail(path, "unknown operator %d", n.Code)
		}
		return nil

	case *Char:
		if !utf8.ValidRune(n.Value) {
			return v.fail(path, "char %U is not a Unicode scalar value", n.Value)
		}
		return nil

	case *StaticArray:
		if n.ElemTag.Category() != CategoryValue || !n.ElemTag.Known() {
			return v.fail(path, "array element tag %s is not a value tag", n.ElemTag)
		}
		for i, el := range n.Elements {
			elPath := fmt.Sprintf("%s.elements[%d]", path, i)
			if isNil(el) {
				return v.fail(elPath, "missing expression")
			}
			if el.Tag() != n.ElemTag {
				return v.fail(elPath, "element is %s, array declares %s", el.Tag(), n.ElemTag)
			}
			if err := v.item(el, elPath); err != nil {
				return err
			}
		}
		return nil

	case *UnaryApply:
		if err := v.item(n.F, path+".f"); err != nil {
			return err
		}
		return v.item(n.X, path+".x")

	case *BinaryApply:
		if err := v.item(n.F, path+".f"); err != nil {
			return err
		}
		if err := v.item(n.Left, path+".left"); err != nil {
			return err
		}
		return v.item(n.Right, path+".right")

	case *FunctionLiteral:
		return v.program(n.Body, path+".body")

	case *UnaryModified:
		if CategoryOf(n.Mod) != CategoryUnaryModifier {
			return v.fail(path, "modifier %d is outside the unary modifier range", n.Mod)
		}
		if v.lex != nil && !v.lex.HasUnaryModifier(n.Mod) {
			return v.fail(path, "unknown unary modifier %d", n.Mod)
		}
		return v.item(n.F, path+".f")

	case *BinaryModified:
		if CategoryOf(n.Mod) != CategoryBinaryModifier {
			return v.fail(path, "modifier %d is outside the binary modifier range", n.Mod)
		}
		if v.lex != nil && !v.lex.HasBinaryModifier(n.Mod) {
			return v.fail(path, "unknown binary modifier %d", n.Mod)
		}
		if err := v.operand(n.F, path+".f"); err != nil {
			return err
		}
		return v.operand(n.G, path+".g")

	case *Atop:
		if err := v.item(n.F, path+".f"); err != nil {
			return err
		}
		return v.item(n.G, path+".g")

	case *Fork:
		if err := v.operand(n.Left, path+".left"); err != nil {
			return err
		}
		if err := v.item(n.Middle, path+".middle"); err != nil {
			return err
		}
		return v.item(n.Right, path+".right")
	}
	return v.fail(path, "unsupported node %T", it)
}

// operand validates a value-or-function slot.
func (v *validator) operand(it Item, path string) error {
	if !isNil(it) && !IsValue(it) && !IsFunction(it) {
		return v.fail(path, "%s is neither a value nor a function", it.Tag())
	}
	return v.item(it, path)
}
