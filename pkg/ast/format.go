package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Compact parenthesized rendering used in diagnostics and test failures.
// Opcodes are shown numerically; naming them needs the opcode registry.

func (n *Number) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (n *Char) String() string   { return strconv.QuoteRune(n.Value) }

func (n *StaticArray) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, el := range n.Elements {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(str(el))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (n *UnaryApply) String() string {
	return fmt.Sprintf("(%s %s)", str(n.F), str(n.X))
}

func (n *BinaryApply) String() string {
	return fmt.Sprintf("(%s %s %s)", str(n.Left), str(n.F), str(n.Right))
}

func (n *Operator) String() string { return fmt.Sprintf("op%d", n.Code) }

func (n *FunctionLiteral) String() string {
	return "{" + n.Body.String() + "}"
}

func (n *UnaryModified) String() string {
	return fmt.Sprintf("(m%d %s)", n.Mod, str(n.F))
}

func (n *BinaryModified) String() string {
	return fmt.Sprintf("(m%d %s %s)", n.Mod, str(n.F), str(n.G))
}

func (n *Atop) String() string {
	return fmt.Sprintf("(atop %s %s)", str(n.F), str(n.G))
}

func (n *Fork) String() string {
	return fmt.Sprintf("(fork %s %s %s)", str(n.Left), str(n.Middle), str(n.Right))
}

// String renders the items separated by "; ".
func (p Program) String() string {
	parts := make([]string, len(p))
	for i, it := range p {
		parts[i] = str(it)
	}
	return strings.Join(parts, "; ")
}

// str tolerates nil children, including typed nil pointers.
func str(it Item) string {
	if isNil(it) {
		return "<nil>"
	}
	return it.String()
}
