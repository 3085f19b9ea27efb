package ast

import "math"

// Equal reports whether two items are structurally identical. Numbers are
// compared by bit pattern, so NaN equals an identically encoded NaN and
// 0 differs from -0.
func Equal(a, b Item) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if a.Tag() != b.Tag() {
		return false
	}

	switch x := a.(type) {
	case *Number:
		y := b.(*Number)
		return math.Float64bits(x.Value) == math.Float64bits(y.Value)

	case *Char:
		return x.Value == b.(*Char).Value

	case *StaticArray:
		y := b.(*StaticArray)
		if x.ElemTag != y.ElemTag || len(x.Elements) != len(y.Elements) {
			return false
		}
		for i := range x.Elements {
			if !Equal(x.Elements[i], y.Elements[i]) {
				return false
			}
		}
		return true

	case *UnaryApply:
		y := b.(*UnaryApply)
		return Equal(x.F, y.F) && Equal(x.X, y.X)

	case *BinaryApply:
		y := b.(*BinaryApply)
		return Equal(x.F, y.F) && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)

	case *Operator:
		return x.Code == b.(*Operator).Code

	case *FunctionLiteral:
		return EqualPrograms(x.Body, b.(*FunctionLiteral).Body)

	case *UnaryModified:
		y := b.(*UnaryModified)
		return x.Mod == y.Mod && Equal(x.F, y.F)

	case *BinaryModified:
		y := b.(*BinaryModified)
		return x.Mod == y.Mod && Equal(x.F, y.F) && Equal(x.G, y.G)

	case *Atop:
		y := b.(*Atop)
		return Equal(x.F, y.F) && Equal(x.G, y.G)

	case *Fork:
		y := b.(*Fork)
		return Equal(x.Left, y.Left) && Equal(x.Middle, y.Middle) && Equal(x.Right, y.Right)
	}
	return false
}

// EqualPrograms reports whether two programs are item-wise Equal.
func EqualPrograms(a, b Program) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// isNil reports whether it is a nil interface or wraps a nil node pointer.
func isNil(it Item) bool {
	if it == nil {
		return true
	}
	switch n := it.(type) {
	case *Number:
		return n == nil
	case *Char:
		return n == nil
	case *StaticArray:
		return n == nil
	case *UnaryApply:
		return n == nil
	case *BinaryApply:
		return n == nil
	case *Operator:
		return n == nil
	case *FunctionLiteral:
		return n == nil
	case *UnaryModified:
		return n == nil
	case *BinaryModified:
		return n == nil
	case *Atop:
		return n == nil
	case *Fork:
		return n == nil
	}
	return false
}
