package bytecode

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/kaikalii/seidr/pkg/ast"
	"github.com/kaikalii/seidr/pkg/opcode"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// hx parses hex with optional spaces, e.g. "00 3FF0000000000000".
func hx(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func num(v float64) *ast.Number { return &ast.Number{Value: v} }
func chr(r rune) *ast.Char      { return &ast.Char{Value: r} }
func op(c byte) *ast.Operator   { return &ast.Operator{Code: c} }

func numArray(vs ...float64) *ast.StaticArray {
	a := &ast.StaticArray{ElemTag: ast.TagNumber}
	for _, v := range vs {
		a.Elements = append(a.Elements, num(v))
	}
	return a
}

func mustEncodeProgram(t *testing.T, p ast.Program) []byte {
	t.Helper()
	data, err := EncodeProgram(p)
	if err != nil {
		t.Fatalf("EncodeProgram(%v): %v", p, err)
	}
	return data
}

func assertDecodeError(t *testing.T, err error, kind error, offset int) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("err = %v, want %v", err, kind)
	}
	if got := Offset(err); got != offset {
		t.Errorf("offset = %d, want %d (%v)", got, offset, err)
	}
}

// ---------------------------------------------------------------------------
// Worked examples
// ---------------------------------------------------------------------------

func TestEmptyProgram(t *testing.T) {
	data := hx(t, "0000000000000000")
	p, n, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("DecodeProgram: %v", err)
	}
	if len(p) != 0 || n != 8 {
		t.Errorf("got %d items, %d bytes; want 0, 8", len(p), n)
	}
	if again := mustEncodeProgram(t, p); !bytes.Equal(again, data) {
		t.Errorf("re-encoded = %x, want %x", again, data)
	}
}

func TestNumberItem(t *testing.T) {
	data := hx(t, "00 40091EB851EB851F")
	it, n, err := DecodeItem(data)
	if err != nil {
		t.Fatalf("DecodeItem: %v", err)
	}
	if n != 9 || !ast.Equal(it, num(3.14)) {
		t.Errorf("got %v (%d bytes), want 3.14 (9 bytes)", it, n)
	}
	again, err := Encode(it)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, data) {
		t.Errorf("re-encoded = %x, want %x", again, data)
	}
}

func TestUnaryApplyItem(t *testing.T) {
	data := hx(t, "03 10 00 00 4000000000000000")
	it, _, err := DecodeItem(data)
	if err != nil {
		t.Fatalf("DecodeItem: %v", err)
	}
	want := &ast.UnaryApply{F: op(opcode.OpPlus), X: num(2)}
	if !ast.Equal(it, want) {
		t.Errorf("got %v, want %v", it, want)
	}
	again, _ := Encode(it)
	if !bytes.Equal(again, data) {
		t.Errorf("re-encoded = %x, want %x", again, data)
	}
}

func TestStaticArrayItem(t *testing.T) {
	data := hx(t, "02 0000000000000003 00 3FF0000000000000 4000000000000000 4008000000000000")
	it, n, err := DecodeItem(data)
	if err != nil {
		t.Fatalf("DecodeItem: %v", err)
	}
	if n != len(data) || !ast.Equal(it, numArray(1, 2, 3)) {
		t.Errorf("got %v (%d bytes)", it, n)
	}

	// Same bytes, but the length claims five elements.
	short := append([]byte(nil), data...)
	short[8] = 5
	_, _, err = DecodeItem(short)
	assertDecodeError(t, err, ErrTruncatedInput, 34)
}

func TestLoneBadTag(t *testing.T) {
	_, _, err := DecodeItem([]byte{0xFF})
	assertDecodeError(t, err, ErrMalformedTag, 0)

	// The same byte as the only item of a program; offsets are absolute.
	_, _, err = DecodeProgram(hx(t, "0000000000000001 FF"))
	assertDecodeError(t, err, ErrMalformedTag, 8)
}

func TestForkValueBranch(t *testing.T) {
	data := hx(t, "15 00 3FF0000000000000 10 00 10 00")
	it, _, err := DecodeItem(data)
	if err != nil {
		t.Fatalf("DecodeItem: %v", err)
	}
	fork, ok := it.(*ast.Fork)
	if !ok {
		t.Fatalf("got %T, want *ast.Fork", it)
	}
	if !ast.IsValue(fork.Left) {
		t.Errorf("fork left = %v, want a value", fork.Left)
	}
	if _, ok := fork.Left.(*ast.Number); !ok {
		t.Errorf("fork left is %T, want *ast.Number", fork.Left)
	}
	again, _ := Encode(it)
	if !bytes.Equal(again, data) {
		t.Errorf("re-encoded = %x, want %x", again, data)
	}
}

// ---------------------------------------------------------------------------
// Round trips
// ---------------------------------------------------------------------------

func roundTripPrograms() map[string]ast.Program {
	negZero := math.Copysign(0, -1)
	return map[string]ast.Program{
		"numbers": {num(0), num(negZero), num(-1.5), num(math.Inf(1)), num(math.MaxFloat64), num(math.SmallestNonzeroFloat64)},
		"nan":     {num(math.Float64frombits(0x7FF8000000000001))},
		"chars":   {chr('a'), chr('é'), chr('€'), chr('𝄞'), chr(0), chr(0x10FFFF)},
		"arrays": {
			numArray(),
			numArray(1, 2, 3),
			&ast.StaticArray{ElemTag: ast.TagChar, Elements: []ast.Value{chr('h'), chr('ï'), chr('𝄞')}},
			&ast.StaticArray{ElemTag: ast.TagStaticArray, Elements: []ast.Value{numArray(1), numArray(), numArray(2, 3)}},
			&ast.StaticArray{ElemTag: ast.TagUnaryApply, Elements: []ast.Value{
				&ast.UnaryApply{F: op(opcode.OpMinus), X: num(1)},
				&ast.UnaryApply{F: op(opcode.OpRotate), X: numArray(1, 2)},
			}},
			&ast.StaticArray{ElemTag: ast.TagBinaryApply, Elements: []ast.Value{
				&ast.BinaryApply{F: op(opcode.OpTimes), Left: num(2), Right: num(3)},
			}},
		},
		"applications": {
			&ast.BinaryApply{F: op(opcode.OpLess), Left: num(1), Right: &ast.UnaryApply{F: op(opcode.OpMinus), X: num(2)}},
		},
		"functions": {
			&ast.FunctionLiteral{},
			&ast.FunctionLiteral{Body: ast.Program{num(1), &ast.FunctionLiteral{Body: ast.Program{op(opcode.OpJoin)}}}},
		},
		"modifiers": {
			&ast.UnaryModified{Mod: opcode.ModFold, F: op(opcode.OpPlus)},
			&ast.UnaryModified{Mod: opcode.ModTable, F: &ast.UnaryModified{Mod: opcode.ModEach, F: op(opcode.OpTimes)}},
			&ast.BinaryModified{Mod: opcode.ModOver, F: op(opcode.OpMinus), G: num(10)},
			&ast.BinaryModified{Mod: opcode.ModChoose, F: numArray(0, 1), G: &ast.FunctionLiteral{}},
		},
		"trains": {
			&ast.Atop{F: op(opcode.OpMax), G: &ast.Atop{F: op(opcode.OpMin), G: op(opcode.OpDivide)}},
			&ast.Fork{Left: op(opcode.OpPlus), Middle: op(opcode.OpDivide), Right: op(opcode.OpTake)},
			&ast.Fork{Left: chr('x'), Middle: op(opcode.OpEqual), Right: op(opcode.OpPlus)},
		},
		"mixed": {
			num(1),
			&ast.UnaryApply{
				F: &ast.UnaryModified{Mod: opcode.ModScan, F: op(opcode.OpPlus)},
				X: &ast.BinaryApply{F: op(opcode.OpTake), Left: num(3), Right: numArray(4, 5, 6, 7)},
			},
			op(opcode.OpNotEqual),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for name, p := range roundTripPrograms() {
		t.Run(name, func(t *testing.T) {
			data := mustEncodeProgram(t, p)
			got, n, err := DecodeProgram(data)
			if err != nil {
				t.Fatalf("DecodeProgram: %v", err)
			}
			if n != len(data) {
				t.Errorf("consumed %d of %d bytes", n, len(data))
			}
			if !ast.EqualPrograms(got, p) {
				t.Errorf("decoded %v, want %v", got, p)
			}
			again := mustEncodeProgram(t, got)
			if !bytes.Equal(again, data) {
				t.Errorf("re-encoding differs:\n got %x\nwant %x", again, data)
			}
		})
	}
}

func TestCharWidths(t *testing.T) {
	tests := []struct {
		r    rune
		want string
	}{
		{'a', "01 61"},
		{'é', "01 C3A9"},
		{'€', "01 E282AC"},
		{'𝄞', "01 F09D849E"},
	}
	for _, tt := range tests {
		data, err := Encode(chr(tt.r))
		if err != nil {
			t.Fatal(err)
		}
		if want := hx(t, tt.want); !bytes.Equal(data, want) {
			t.Errorf("Encode(%q) = %x, want %x", tt.r, data, want)
		}
	}
}

func TestArrayElementsUntagged(t *testing.T) {
	data, err := Encode(&ast.StaticArray{ElemTag: ast.TagChar, Elements: []ast.Value{chr('a'), chr('b')}})
	if err != nil {
		t.Fatal(err)
	}
	want := hx(t, "02 0000000000000002 01 61 62")
	if !bytes.Equal(data, want) {
		t.Errorf("got %x, want %x", data, want)
	}
}

func TestDecodeLeavesTrailingBytes(t *testing.T) {
	data := append(mustEncodeProgram(t, ast.Program{num(1)}), 0xAA, 0xBB)
	p, n, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("DecodeProgram: %v", err)
	}
	if len(p) != 1 || n != len(data)-2 {
		t.Errorf("got %d items, %d bytes", len(p), n)
	}

	_, err = defaultDecoder.DecodeProgramExact(data)
	assertDecodeError(t, err, ErrTrailingBytes, len(data)-2)
}

func TestAppendProgram(t *testing.T) {
	prefix := []byte("hdr")
	out, err := NewEncoder(nil).AppendProgram(prefix, ast.Program{num(1)})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, prefix) {
		t.Fatalf("prefix lost: %x", out)
	}
	if _, _, err := DecodeProgram(out[len(prefix):]); err != nil {
		t.Errorf("DecodeProgram after prefix: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Encoder errors
// ---------------------------------------------------------------------------

func TestEncodeRejectsInvalidTrees(t *testing.T) {
	tests := []struct {
		name string
		item ast.Item
	}{
		{"nil operand", &ast.UnaryApply{F: op(opcode.OpPlus)}},
		{"surrogate char", chr(0xD800)},
		{"function element tag", &ast.StaticArray{ElemTag: ast.TagOperator}},
		{"heterogeneous array", &ast.StaticArray{ElemTag: ast.TagNumber, Elements: []ast.Value{num(1), chr('a')}}},
		{"unregistered operator", op(0xEE)},
		{"unregistered modifier", &ast.UnaryModified{Mod: 0x27, F: op(opcode.OpPlus)}},
		{"modifier from wrong table", &ast.BinaryModified{Mod: opcode.ModScan, F: op(0), G: op(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.item)
			if !errors.Is(err, ast.ErrInvalidTree) {
				t.Errorf("Encode err = %v, want ErrInvalidTree", err)
			}
			if len(data) != 0 {
				t.Errorf("Encode wrote %d bytes on error", len(data))
			}
		})
	}
}

func TestEncoderCustomRegistry(t *testing.T) {
	reg := opcode.MustNew(
		opcode.Entry{Table: opcode.Operators, Code: 0x80, Identity: "custom", Dyadic: "custom"},
	)
	enc := NewEncoder(reg)
	data, err := enc.Encode(op(0x80))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := enc.Encode(op(opcode.OpPlus)); !errors.Is(err, ast.ErrInvalidTree) {
		t.Errorf("plus accepted by custom registry: %v", err)
	}

	it, _, err := NewDecoder(reg, Limits{}).DecodeItem(data)
	if err != nil || !ast.Equal(it, op(0x80)) {
		t.Errorf("custom decode = %v, %v", it, err)
	}
	_, _, err = DecodeItem(data)
	assertDecodeError(t, err, ErrUnknownOpcode, 1)
}

// ---------------------------------------------------------------------------
// Decoder errors
// ---------------------------------------------------------------------------

func TestDecodeItemErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		kind   error
		offset int
	}{
		{"empty", "", ErrTruncatedInput, 0},
		{"gap in value range", "05", ErrMalformedTag, 0},
		{"gap in function range", "16", ErrMalformedTag, 0},
		{"modifier byte as tag", "20", ErrMalformedTag, 0},
		{"short number", "00 4009", ErrTruncatedInput, 1},
		{"missing char", "01", ErrTruncatedInput, 1},
		{"incomplete char", "01 E282", ErrTruncatedInput, 1},
		{"continuation byte char", "01 80", ErrInvalidChar, 1},
		{"invalid lead char", "01 FF", ErrInvalidChar, 1},
		{"surrogate char", "01 EDA080", ErrInvalidChar, 1},
		{"overlong char", "01 C0AF", ErrInvalidChar, 1},
		{"value in function slot", "03 00 3FF0000000000000 00 3FF0000000000000", ErrMalformedTag, 1},
		{"function in value slot", "03 10 00 10 00", ErrMalformedTag, 3},
		{"bad tag in binary right", "04 10 00 00 3FF0000000000000 FE", ErrMalformedTag, 12},
		{"unknown operator", "10 07", ErrUnknownOpcode, 1},
		{"missing operator", "10", ErrTruncatedInput, 1},
		{"binary modifier in unary slot", "12 28 10 00", ErrUnknownOpcode, 1},
		{"unregistered unary modifier", "12 27 10 00", ErrUnknownOpcode, 1},
		{"unary modifier in binary slot", "13 20 10 00 10 00", ErrUnknownOpcode, 1},
		{"unregistered binary modifier", "13 FF 10 00 10 00", ErrUnknownOpcode, 1},
		{"atop with value", "14 10 00 00 3FF0000000000000", ErrMalformedTag, 3},
		{"fork middle value", "15 10 00 00 3FF0000000000000 10 00", ErrMalformedTag, 3},
		{"array function element tag", "02 0000000000000001 10 00", ErrMalformedTag, 9},
		{"array unknown element tag", "02 0000000000000001 07 00", ErrMalformedTag, 9},
		{"array missing element tag", "02 0000000000000000", ErrTruncatedInput, 9},
		{"array short length", "02 000000", ErrTruncatedInput, 1},
		{"array length beyond input", "02 00000000000000FF 00 00", ErrExcessiveLength, 1},
		{"array length beyond limit", "02 FFFFFFFFFFFFFFFF 00", ErrExcessiveLength, 1},
		{"function count beyond input", "11 0000000000000009 00", ErrExcessiveLength, 1},
		{"truncated function body", "11 0000000000000001 00 3FF0", ErrTruncatedInput, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, n, err := DecodeItem(hx(t, tt.data))
			if it != nil || n != 0 {
				t.Errorf("partial result on error: %v, %d", it, n)
			}
			assertDecodeError(t, err, tt.kind, tt.offset)
		})
	}
}

func TestDecodeProgramErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		kind   error
		offset int
	}{
		{"empty", "", ErrTruncatedInput, 0},
		{"short count", "00000000", ErrTruncatedInput, 0},
		{"count beyond input", "0000000000000002 00", ErrExcessiveLength, 0},
		{"huge count", "FFFFFFFFFFFFFFFF", ErrExcessiveLength, 0},
		{"missing second item", "0000000000000002 10 00", ErrTruncatedInput, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, err := DecodeProgram(hx(t, tt.data))
			if p != nil {
				t.Errorf("partial program on error: %v", p)
			}
			assertDecodeError(t, err, tt.kind, tt.offset)
		})
	}
}

func TestMaxLength(t *testing.T) {
	dec := NewDecoder(nil, Limits{MaxLength: 2})
	ok := mustEncodeProgram(t, ast.Program{numArray(1, 2)})
	if _, _, err := dec.DecodeProgram(ok); err != nil {
		t.Fatalf("array at limit: %v", err)
	}

	over := mustEncodeProgram(t, ast.Program{numArray(1, 2, 3)})
	_, _, err := dec.DecodeProgram(over)
	assertDecodeError(t, err, ErrExcessiveLength, 9)

	many := mustEncodeProgram(t, ast.Program{num(1), num(2), num(3)})
	_, _, err = dec.DecodeProgram(many)
	assertDecodeError(t, err, ErrExcessiveLength, 0)
}

// nestedFunctions builds depth levels of function literals, each holding
// the next; the innermost is empty.
func nestedFunctions(depth int) ast.Item {
	var it ast.Item = &ast.FunctionLiteral{}
	for i := 1; i < depth; i++ {
		it = &ast.FunctionLiteral{Body: ast.Program{it}}
	}
	return it
}

func TestMaxDepth(t *testing.T) {
	dec := NewDecoder(nil, Limits{MaxDepth: 8})

	atLimit, err := Encode(nestedFunctions(8))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := dec.DecodeItem(atLimit); err != nil {
		t.Errorf("depth 8: %v", err)
	}

	overLimit, err := Encode(nestedFunctions(9))
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = dec.DecodeItem(overLimit)
	if !errors.Is(err, ErrRecursionLimit) {
		t.Errorf("depth 9: err = %v, want ErrRecursionLimit", err)
	}
}

func TestDeepInputDoesNotOverflow(t *testing.T) {
	// A million nested unary applications must fail cleanly.
	var data []byte
	for i := 0; i < 1_000_000; i++ {
		data = append(data, byte(ast.TagUnaryApply), byte(ast.TagOperator), opcode.OpPlus)
	}
	data = append(data, hx(t, "00 3FF0000000000000")...)

	_, _, err := DecodeItem(data)
	if !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("err = %v, want ErrRecursionLimit", err)
	}
	// The operator of the deepest permitted application trips the limit,
	// just after its tag byte.
	if want := 3*(DefaultMaxDepth-1) + 2; Offset(err) != want {
		t.Errorf("offset = %d, want %d", Offset(err), want)
	}
}

func TestDecodeErrorMessage(t *testing.T) {
	_, _, err := DecodeItem([]byte{0x10, 0x07})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err %T is not *DecodeError", err)
	}
	if de.Kind != ErrUnknownOpcode || de.Offset != 1 {
		t.Errorf("DecodeError = %+v", de)
	}
	if msg := err.Error(); !strings.Contains(msg, "unknown opcode at offset 1") {
		t.Errorf("message %q", msg)
	}
	if Offset(errors.New("other")) != -1 {
		t.Error("Offset of a foreign error should be -1")
	}
}

func TestLimitsDefaults(t *testing.T) {
	got := NewDecoder(nil, Limits{}).Limits()
	if got != DefaultLimits() {
		t.Errorf("zero limits = %+v, want %+v", got, DefaultLimits())
	}
}

func TestConcurrentUse(t *testing.T) {
	programs := roundTripPrograms()
	var wg sync.WaitGroup
	errs := make(chan error, 8*len(programs))
	for i := 0; i < 8; i++ {
		for name, p := range programs {
			wg.Add(1)
			go func(name string, p ast.Program) {
				defer wg.Done()
				data, err := EncodeProgram(p)
				if err != nil {
					errs <- err
					return
				}
				got, _, err := DecodeProgram(data)
				if err != nil {
					errs <- err
					return
				}
				if !ast.EqualPrograms(got, p) {
					errs <- errors.New(name + ": round trip mismatch")
				}
			}(name, p)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
