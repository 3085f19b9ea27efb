package ast

import "fmt"

// ---------------------------------------------------------------------------
// Frozen tag bytes for the bytecode format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags inside a category's range is fine;
// moving existing ones breaks every previously encoded program.
// ---------------------------------------------------------------------------

// Tag is the discriminant byte that precedes every encoded expression.
type Tag byte

const (
	// Value expressions (0x00-0x0F)
	TagNumber      Tag = 0x00
	TagChar        Tag = 0x01
	TagStaticArray Tag = 0x02
	TagUnaryApply  Tag = 0x03
	TagBinaryApply Tag = 0x04

	// Function expressions (0x10-0x1F)
	TagOperator        Tag = 0x10
	TagFunctionLiteral Tag = 0x11
	TagUnaryModified   Tag = 0x12
	TagBinaryModified  Tag = 0x13
	TagAtop            Tag = 0x14
	TagFork            Tag = 0x15
)

// Category boundaries. Unary and binary modifier opcodes share the tag
// space so that the two modifier tables can never overlap.
const (
	FirstFunctionTag       byte = 0x10
	FirstUnaryModifierTag  byte = 0x20
	FirstBinaryModifierTag byte = 0x28
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []Tag{
	TagNumber, TagChar, TagStaticArray, TagUnaryApply, TagBinaryApply,
	TagOperator, TagFunctionLiteral, TagUnaryModified, TagBinaryModified,
	TagAtop, TagFork,
}

var tagNames = map[Tag]string{
	TagNumber:          "number",
	TagChar:            "char",
	TagStaticArray:     "array",
	TagUnaryApply:      "unary-apply",
	TagBinaryApply:     "binary-apply",
	TagOperator:        "operator",
	TagFunctionLiteral: "function",
	TagUnaryModified:   "unary-modified",
	TagBinaryModified:  "binary-modified",
	TagAtop:            "atop",
	TagFork:            "fork",
}

// String returns the tag's name, or its hex value if it is undefined.
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(0x%02X)", byte(t))
}

// Known reports whether t is one of the defined expression tags.
func (t Tag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

// Category partitions the tag space.
type Category uint8

const (
	CategoryValue Category = iota
	CategoryFunction
	CategoryUnaryModifier
	CategoryBinaryModifier
)

func (c Category) String() string {
	switch c {
	case CategoryValue:
		return "value"
	case CategoryFunction:
		return "function"
	case CategoryUnaryModifier:
		return "unary modifier"
	case CategoryBinaryModifier:
		return "binary modifier"
	default:
		return fmt.Sprintf("Category(%d)", c)
	}
}

// CategoryOf maps a tag or modifier opcode byte to its category.
// It is total: every byte belongs to exactly one category.
func CategoryOf(b byte) Category {
	switch {
	case b < FirstFunctionTag:
		return CategoryValue
	case b < FirstUnaryModifierTag:
		return CategoryFunction
	case b < FirstBinaryModifierTag:
		return CategoryUnaryModifier
	default:
		return CategoryBinaryModifier
	}
}

// Category returns the category of the tag.
func (t Tag) Category() Category {
	return CategoryOf(byte(t))
}
