package bytecode

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kaikalii/seidr/pkg/ast"
	"github.com/kaikalii/seidr/pkg/opcode"
)

// Disassemble returns a human-readable listing of an encoded program.
// Each line starts with the hex offset of the node it describes. The
// input is fully decoded with dec first, so malformed bytes or bytes over
// dec's limits produce the same *DecodeError that dec.DecodeProgram would.
// Opcode names come from dec's registry. A nil dec uses the default
// registry and limits.
func Disassemble(data []byte, dec *Decoder) (string, error) {
	return DisassembleWithName(data, dec, "")
}

// DisassembleWithName is Disassemble with a name header.
func DisassembleWithName(data []byte, dec *Decoder, name string) (string, error) {
	if dec == nil {
		dec = defaultDecoder
	}
	p, n, err := dec.DecodeProgram(data)
	if err != nil {
		return "", err
	}

	l := &lister{reg: dec.Registry()}
	if name != "" {
		l.sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	l.sb.WriteString(fmt.Sprintf("; seidr bytecode, %d items, %d bytes\n", len(p), n))
	if n < len(data) {
		l.sb.WriteString(fmt.Sprintf("; %d trailing bytes not shown\n", len(data)-n))
	}

	l.line(0, 0, fmt.Sprintf("program count=%d", len(p)))
	l.offset = 8
	for i, it := range p {
		l.item(it, 1, fmt.Sprintf("#%d ", i))
	}
	return l.sb.String(), nil
}

// lister walks a decoded tree in encoding order, tracking the offset each
// node was read from.
type lister struct {
	sb     strings.Builder
	reg    *opcode.Registry
	offset int
}

func (l *lister) line(at, depth int, text string) {
	l.sb.WriteString(fmt.Sprintf("%04X  %s%s\n", at, strings.Repeat("  ", depth), text))
}

func (l *lister) item(it ast.Item, depth int, label string) {
	at := l.offset
	l.offset++ // tag
	l.payload(it, depth, label, at)
}

func (l *lister) payload(it ast.Item, depth int, label string, at int) {
	switch n := it.(type) {
	case *ast.Number:
		l.line(at, depth, label+"number "+n.String())
		l.offset += 8

	case *ast.Char:
		l.line(at, depth, label+"char "+n.String())
		l.offset += utf8.RuneLen(n.Value)

	case *ast.StaticArray:
		l.line(at, depth, fmt.Sprintf("%sarray len=%d elem=%s", label, len(n.Elements), n.ElemTag))
		l.offset += 9
		for i, el := range n.Elements {
			l.payload(el, depth+1, fmt.Sprintf("[%d] ", i), l.offset)
		}

	case *ast.UnaryApply:
		l.line(at, depth, label+"unary-apply")
		l.item(n.F, depth+1, "f: ")
		l.item(n.X, depth+1, "x: ")

	case *ast.BinaryApply:
		l.line(at, depth, label+"binary-apply")
		l.item(n.F, depth+1, "f: ")
		l.item(n.Left, depth+1, "left: ")
		l.item(n.Right, depth+1, "right: ")

	case *ast.Operator:
		l.line(at, depth, label+"operator "+l.operatorName(n.Code))
		l.offset++

	case *ast.FunctionLiteral:
		l.line(at, depth, fmt.Sprintf("%sfunction count=%d", label, len(n.Body)))
		l.offset += 8
		for i, inner := range n.Body {
			l.item(inner, depth+1, fmt.Sprintf("#%d ", i))
		}

	case *ast.UnaryModified:
		l.line(at, depth, label+"unary-modified "+l.reg.Name(opcode.UnaryModifiers, n.Mod))
		l.offset++
		l.item(n.F, depth+1, "f: ")

	case *ast.BinaryModified:
		l.line(at, depth, label+"binary-modified "+l.reg.Name(opcode.BinaryModifiers, n.Mod))
		l.offset++
		l.item(n.F, depth+1, "f: ")
		l.item(n.G, depth+1, "g: ")

	case *ast.Atop:
		l.line(at, depth, label+"atop")
		l.item(n.F, depth+1, "f: ")
		l.item(n.G, depth+1, "g: ")

	case *ast.Fork:
		l.line(at, depth, label+"fork")
		l.item(n.Left, depth+1, "left: ")
		l.item(n.Middle, depth+1, "middle: ")
		l.item(n.Right, depth+1, "right: ")
	}
}

// operatorName renders an operator with its unary and binary readings,
// e.g. "minus (negate | subtract)".
func (l *lister) operatorName(code byte) string {
	name := l.reg.Name(opcode.Operators, code)
	mon, hasMon := l.reg.Monadic(code)
	dy, hasDy := l.reg.Dyadic(code)
	switch {
	case hasMon && hasDy:
		return fmt.Sprintf("%s (%s | %s)", name, mon, dy)
	case hasDy:
		return fmt.Sprintf("%s (- | %s)", name, dy)
	case hasMon:
		return fmt.Sprintf("%s (%s | -)", name, mon)
	}
	return name
}
