// Package dist packages encoded programs for transport between processes.
// A Bundle carries the encoded bytes together with their content hash and
// item count; the receiver decodes and verifies both before trusting it.
package dist

import (
	"errors"
	"fmt"

	"github.com/kaikalii/seidr/pkg/ast"
	"github.com/kaikalii/seidr/pkg/bytecode"
)

var (
	ErrHashMismatch    = errors.New("bundle hash mismatch")
	ErrCountMismatch   = errors.New("bundle item count mismatch")
	ErrVersionMismatch = errors.New("bundle hash version mismatch")
)

// Bundle is the unit of program distribution.
type Bundle struct {
	Hash        [32]byte `cbor:"1,keyasint"`
	HashVersion byte     `cbor:"2,keyasint"`
	Count       uint64   `cbor:"3,keyasint"`
	Code        []byte   `cbor:"4,keyasint"`
	Name        string   `cbor:"5,keyasint,omitempty"`
}

// NewBundle encodes p and wraps it in a bundle. The encoding is decoded
// with dec before wrapping, so a bundle is only built if a receiver using
// the same limits can read it back. A nil dec uses the default registry
// and limits.
func NewBundle(name string, p ast.Program, dec *bytecode.Decoder) (*Bundle, error) {
	code, err := bytecode.EncodeProgram(p)
	if err != nil {
		return nil, fmt.Errorf("dist: encode program: %w", err)
	}
	if dec == nil {
		dec = bytecode.NewDecoder(nil, bytecode.DefaultLimits())
	}
	if _, err := dec.DecodeProgramExact(code); err != nil {
		return nil, fmt.Errorf("dist: program %q does not decode: %w", name, err)
	}
	return Wrap(name, code, len(p)), nil
}

// Wrap bundles code that is already encoded and holds count items. The
// code is not decoded; the receiver's Program call checks it.
func Wrap(name string, code []byte, count int) *Bundle {
	return &Bundle{
		Hash:        bytecode.HashEncoded(code),
		HashVersion: bytecode.HashVersion,
		Count:       uint64(count),
		Code:        code,
		Name:        name,
	}
}

// Verify checks the bundle's declared hash against its code without
// decoding it.
func (b *Bundle) Verify() error {
	if b.HashVersion != bytecode.HashVersion {
		return fmt.Errorf("%w: bundle has %d, expected %d", ErrVersionMismatch, b.HashVersion, bytecode.HashVersion)
	}
	if computed := bytecode.HashEncoded(b.Code); computed != b.Hash {
		return fmt.Errorf("%w: declared %x, computed %x", ErrHashMismatch, b.Hash, computed)
	}
	return nil
}

// Program verifies the bundle and decodes its code with dec. The code must
// be exactly one program with the declared number of items. A nil dec
// uses the default registry and limits.
func (b *Bundle) Program(dec *bytecode.Decoder) (ast.Program, error) {
	if err := b.Verify(); err != nil {
		return nil, err
	}
	if dec == nil {
		dec = bytecode.NewDecoder(nil, bytecode.DefaultLimits())
	}
	p, err := dec.DecodeProgramExact(b.Code)
	if err != nil {
		return nil, fmt.Errorf("dist: decode bundle %q: %w", b.Name, err)
	}
	if uint64(len(p)) != b.Count {
		return nil, fmt.Errorf("%w: declared %d, decoded %d", ErrCountMismatch, b.Count, len(p))
	}
	return p, nil
}
