// Package bytecode encodes and decodes the binary form of seidr programs.
//
// A program is a count followed by that many items. Every item starts with
// a one-byte tag from package ast; the tag's range says whether the item
// is a value (0x00-0x0F) or a function (0x10-0x1F), so operand positions
// that accept either need no extra discriminant.
//
// # Layout
//
//	Program          count:u64, count items
//	Number      0x00 f64
//	Char        0x01 UTF-8 bytes of one scalar value
//	StaticArray 0x02 length:u64, element_tag:u8, length payloads
//	UnaryApply  0x03 function, value
//	BinaryApply 0x04 function, value, value
//	Operator    0x10 opcode:u8
//	Function    0x11 program
//	UnaryMod    0x12 modifier:u8 (0x20-0x27), function
//	BinaryMod   0x13 modifier:u8 (0x28-0xFF), value-or-function x2
//	Atop        0x14 function, function
//	Fork        0x15 value-or-function, function, function
//
// All multi-byte fields are big-endian. A Char's width is taken from its
// UTF-8 leading byte. Array elements are written without their own tag.
//
// # Decoding untrusted input
//
// The decoder never panics. It fails fast with a *DecodeError that carries
// the byte offset and unwraps to one of the Err* kinds. Counts are checked
// against the remaining input before anything is allocated, and nesting
// is bounded by an explicit depth counter (see Limits).
//
// # Concurrency
//
// Encoders and Decoders hold no per-call state. Any number of goroutines
// may encode or decode independent buffers at once.
package bytecode
