// Package opcode holds the frozen lexicon of operator and modifier codes
// that appear in encoded programs.
//
// A registry maps a small integer code to a semantic identity, separately
// for each table. It knows nothing about glyphs or source text; the
// compiler owns that mapping and the evaluator owns the semantics.
package opcode

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kaikalii/seidr/pkg/ast"
)

// ErrNotFound is returned by Lookup for a code absent from a table.
var ErrNotFound = errors.New("opcode not found")

// Table selects one of the registry's code tables.
type Table uint8

const (
	Operators Table = iota
	UnaryModifiers
	BinaryModifiers

	numTables
)

func (t Table) String() string {
	switch t {
	case Operators:
		return "operator"
	case UnaryModifiers:
		return "unary modifier"
	case BinaryModifiers:
		return "binary modifier"
	default:
		return fmt.Sprintf("Table(%d)", t)
	}
}

// Identity names the semantic operation behind a code.
type Identity string

// Entry is one row of a registry table. Monadic and Dyadic are only used
// for operators: they name what the operator does with one or two
// operands. Either may be empty if the operator has no such form.
type Entry struct {
	Table    Table
	Code     byte
	Identity Identity
	Monadic  Identity
	Dyadic   Identity
}

// Registry is an immutable set of code tables. It is safe for concurrent
// use by any number of readers.
type Registry struct {
	byCode  [numTables]map[byte]Entry
	ordered [numTables][]Entry
}

// New builds a registry from entries. Codes must be unique within a table
// and modifier codes must fall inside their category's tag range.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{}
	for t := range r.byCode {
		r.byCode[t] = make(map[byte]Entry)
	}

	for _, e := range entries {
		if e.Table >= numTables {
			return nil, fmt.Errorf("opcode: entry %q has invalid table %d", e.Identity, e.Table)
		}
		if e.Identity == "" {
			return nil, fmt.Errorf("opcode: %s code %d has no identity", e.Table, e.Code)
		}
		if want, ok := tableCategory(e.Table); ok && ast.CategoryOf(e.Code) != want {
			return nil, fmt.Errorf("opcode: %s %q code %d lies in the %s range",
				e.Table, e.Identity, e.Code, ast.CategoryOf(e.Code))
		}
		if prev, dup := r.byCode[e.Table][e.Code]; dup {
			return nil, fmt.Errorf("opcode: %s code %d assigned to both %q and %q",
				e.Table, e.Code, prev.Identity, e.Identity)
		}
		r.byCode[e.Table][e.Code] = e
		r.ordered[e.Table] = append(r.ordered[e.Table], e)
	}

	for t := range r.ordered {
		sort.Slice(r.ordered[t], func(i, j int) bool {
			return r.ordered[t][i].Code < r.ordered[t][j].Code
		})
	}
	return r, nil
}

// MustNew is like New but panics on error. It is meant for package-level
// tables whose contents are fixed at compile time.
func MustNew(entries ...Entry) *Registry {
	r, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// tableCategory returns the tag-space category a table's codes must occupy.
// Operator codes are a payload byte and are unconstrained.
func tableCategory(t Table) (ast.Category, bool) {
	switch t {
	case UnaryModifiers:
		return ast.CategoryUnaryModifier, true
	case BinaryModifiers:
		return ast.CategoryBinaryModifier, true
	}
	return 0, false
}

// Lookup returns the identity registered for code in table t.
func (r *Registry) Lookup(t Table, code byte) (Identity, error) {
	if t >= numTables {
		return "", fmt.Errorf("%w: invalid table %d", ErrNotFound, t)
	}
	e, ok := r.byCode[t][code]
	if !ok {
		return "", fmt.Errorf("%w: %s %d", ErrNotFound, t, code)
	}
	return e.Identity, nil
}

// Entry returns the full entry for code in table t.
func (r *Registry) Entry(t Table, code byte) (Entry, bool) {
	if t >= numTables {
		return Entry{}, false
	}
	e, ok := r.byCode[t][code]
	return e, ok
}

// All returns the entries of table t in ascending code order.
// The returned slice is a copy.
func (r *Registry) All(t Table) []Entry {
	if t >= numTables {
		return nil
	}
	out := make([]Entry, len(r.ordered[t]))
	copy(out, r.ordered[t])
	return out
}

// Count returns the number of codes in table t.
func (r *Registry) Count(t Table) int {
	if t >= numTables {
		return 0
	}
	return len(r.ordered[t])
}

// Monadic returns what an operator does in unary position.
func (r *Registry) Monadic(code byte) (Identity, bool) {
	e, ok := r.byCode[Operators][code]
	if !ok || e.Monadic == "" {
		return "", false
	}
	return e.Monadic, true
}

// Dyadic returns what an operator does in binary position.
func (r *Registry) Dyadic(code byte) (Identity, bool) {
	e, ok := r.byCode[Operators][code]
	if !ok || e.Dyadic == "" {
		return "", false
	}
	return e.Dyadic, true
}

// Name returns the identity of code in table t, or a placeholder naming
// the raw code if it is not registered.
func (r *Registry) Name(t Table, code byte) string {
	if e, ok := r.Entry(t, code); ok {
		return string(e.Identity)
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", code)
}

// HasOperator reports whether code is a registered operator. It satisfies ast.Lexicon.
func (r *Registry) HasOperator(code byte) bool {
	_, ok := r.byCode[Operators][code]
	return ok
}

// HasUnaryModifier reports whether code is a registered unary modifier. It satisfies ast.Lexicon.
func (r *Registry) HasUnaryModifier(code byte) bool {
	_, ok := r.byCode[UnaryModifiers][code]
	return ok
}

// HasBinaryModifier reports whether code is a registered binary modifier. It satisfies ast.Lexicon.
func (r *Registry) HasBinaryModifier(code byte) bool {
	_, ok := r.byCode[BinaryModifiers][code]
	return ok
}
