package opcode

// ---------------------------------------------------------------------------
// Default lexicon.
//
// IMPORTANT: Codes are FROZEN. A code must never change meaning once
// assigned; encoded programs refer to operators only by code.
// ---------------------------------------------------------------------------

// Operator codes (payload of an operator expression).
const (
	// Arithmetic (0x00-0x07)
	OpPlus    byte = 0x00
	OpMinus   byte = 0x01
	OpTimes   byte = 0x02
	OpDivide  byte = 0x03
	OpModulus byte = 0x04
	OpMax     byte = 0x05
	OpMin     byte = 0x06

	// Comparison (0x08-0x0F)
	OpLess           byte = 0x08
	OpLessOrEqual    byte = 0x09
	OpGreater        byte = 0x0A
	OpGreaterOrEqual byte = 0x0B
	OpEqual          byte = 0x0C
	OpNotEqual       byte = 0x0D

	// Structural (0x10-0x1F)
	OpJoin    byte = 0x10
	OpRotate  byte = 0x11
	OpTake    byte = 0x12
	OpDrop    byte = 0x13
	OpReshape byte = 0x14
)

// Unary modifier codes (0x20-0x27).
const (
	ModScan     byte = 0x20
	ModFold     byte = 0x21
	ModTable    byte = 0x22
	ModEach     byte = 0x23
	ModConstant byte = 0x24
	ModFlip     byte = 0x25
	ModBoth     byte = 0x26
)

// Binary modifier codes (0x28 and up).
const (
	ModOver   byte = 0x28
	ModBeside byte = 0x29
	ModChoose byte = 0x2A
	ModCatch  byte = 0x2B
)

func op(code byte, id, monadic, dyadic Identity) Entry {
	return Entry{Table: Operators, Code: code, Identity: id, Monadic: monadic, Dyadic: dyadic}
}

func unMod(code byte, id Identity) Entry {
	return Entry{Table: UnaryModifiers, Code: code, Identity: id}
}

func binMod(code byte, id Identity) Entry {
	return Entry{Table: BinaryModifiers, Code: code, Identity: id}
}

// defaultEntries is the lexicon shipped with this version of the format.
var defaultEntries = []Entry{
	op(OpPlus, "plus", "identity", "add"),
	op(OpMinus, "minus", "negate", "subtract"),
	op(OpTimes, "times", "sign", "multiply"),
	op(OpDivide, "divide", "reciprocal", "divide"),
	op(OpModulus, "modulus", "absolute", "modulus"),
	op(OpMax, "max", "ceiling", "maximum"),
	op(OpMin, "min", "floor", "minimum"),

	op(OpLess, "less", "", "less"),
	op(OpLessOrEqual, "less-or-equal", "", "less-or-equal"),
	op(OpGreater, "greater", "", "greater"),
	op(OpGreaterOrEqual, "greater-or-equal", "", "greater-or-equal"),
	op(OpEqual, "equal", "", "equal"),
	op(OpNotEqual, "not-equal", "", "not-equal"),

	op(OpJoin, "join", "deshape", "join"),
	op(OpRotate, "rotate", "reverse", "rotate"),
	op(OpTake, "take", "range", "take"),
	op(OpDrop, "drop", "first", "drop"),
	op(OpReshape, "reshape", "shape", "reshape"),

	unMod(ModScan, "scan"),
	unMod(ModFold, "fold"),
	unMod(ModTable, "table"),
	unMod(ModEach, "each"),
	unMod(ModConstant, "constant"),
	unMod(ModFlip, "flip"),
	unMod(ModBoth, "both"),

	binMod(ModOver, "over"),
	binMod(ModBeside, "beside"),
	binMod(ModChoose, "choose"),
	binMod(ModCatch, "catch"),
}

var defaultRegistry = MustNew(defaultEntries...)

// Default returns the process-wide registry for the current lexicon.
// It is built once at package initialization and never mutated.
func Default() *Registry {
	return defaultRegistry
}
