package ast

// ---------------------------------------------------------------------------
// Bytecode AST types.
//
// Each node exclusively owns its children. Nodes are treated as immutable
// once built; the decoder and external compilers construct them and the
// encoder and evaluator only read them.
// ---------------------------------------------------------------------------

// Item is the interface implemented by every expression node. The concrete
// node's Tag places it in the value or function category.
type Item interface {
	Tag() Tag
	String() string
	item() // marker method
}

// Value is a value expression (tags 0x00-0x0F).
type Value interface {
	Item
	value()
}

// Function is a function expression (tags 0x10-0x1F).
type Function interface {
	Item
	function()
}

// Program is an ordered sequence of items.
type Program []Item

// ---------------------------------------------------------------------------
// Value expressions
// ---------------------------------------------------------------------------

// Number is a 64-bit float literal.
type Number struct{ Value float64 }

// Char is a single Unicode scalar value.
type Char struct{ Value rune }

// StaticArray is a homogeneous array literal. Every element must carry
// ElemTag; the length is always len(Elements).
type StaticArray struct {
	ElemTag  Tag
	Elements []Value
}

// UnaryApply applies F to a single operand.
type UnaryApply struct {
	F Function
	X Value
}

// BinaryApply applies F to a left and a right operand.
type BinaryApply struct {
	F     Function
	Left  Value
	Right Value
}

func (*Number) Tag() Tag      { return TagNumber }
func (*Char) Tag() Tag        { return TagChar }
func (*StaticArray) Tag() Tag { return TagStaticArray }
func (*UnaryApply) Tag() Tag  { return TagUnaryApply }
func (*BinaryApply) Tag() Tag { return TagBinaryApply }

func (*Number) item()      {}
func (*Char) item()        {}
func (*StaticArray) item() {}
func (*UnaryApply) item()  {}
func (*BinaryApply) item() {}

func (*Number) value()      {}
func (*Char) value()        {}
func (*StaticArray) value() {}
func (*UnaryApply) value()  {}
func (*BinaryApply) value() {}

// ---------------------------------------------------------------------------
// Function expressions
// ---------------------------------------------------------------------------

// Operator selects a built-in operator. The same code means different
// things in unary and binary position; the evaluator resolves which.
type Operator struct{ Code byte }

// FunctionLiteral is a user-defined function whose body is an independent
// nested program.
type FunctionLiteral struct{ Body Program }

// UnaryModified applies a unary modifier (fold, each, ...) to a function.
type UnaryModified struct {
	Mod byte
	F   Function
}

// BinaryModified applies a binary modifier to two operands, each of which
// may be a value or a function.
type BinaryModified struct {
	Mod byte
	F   Item
	G   Item
}

// Atop composes two functions: G is applied first, then F.
type Atop struct {
	F Function
	G Function
}

// Fork applies Middle and Right to the same arguments and combines the
// results with Left, which may be a value or a function.
type Fork struct {
	Left   Item
	Middle Function
	Right  Function
}

func (*Operator) Tag() Tag        { return TagOperator }
func (*FunctionLiteral) Tag() Tag { return TagFunctionLiteral }
func (*UnaryModified) Tag() Tag   { return TagUnaryModified }
func (*BinaryModified) Tag() Tag  { return TagBinaryModified }
func (*Atop) Tag() Tag            { return TagAtop }
func (*Fork) Tag() Tag            { return TagFork }

func (*Operator) item()        {}
func (*FunctionLiteral) item() {}
func (*UnaryModified) item()   {}
func (*BinaryModified) item()  {}
func (*Atop) item()            {}
func (*Fork) item()            {}

func (*Operator) function()        {}
func (*FunctionLiteral) function() {}
func (*UnaryModified) function()   {}
func (*BinaryModified) function()  {}
func (*Atop) function()            {}
func (*Fork) function()            {}

// IsValue reports whether it is a value expression according to its tag.
func IsValue(it Item) bool {
	return it != nil && it.Tag().Category() == CategoryValue
}

// IsFunction reports whether it is a function expression according to its tag.
func IsFunction(it Item) bool {
	return it != nil && it.Tag().Category() == CategoryFunction
}
