package bytecode

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Decode error kinds
// ---------------------------------------------------------------------------

var (
	ErrMalformedTag    = errors.New("malformed tag")
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrTruncatedInput  = errors.New("truncated input")
	ErrExcessiveLength = errors.New("excessive length")
	ErrRecursionLimit  = errors.New("recursion limit exceeded")
	ErrInvalidChar     = errors.New("invalid UTF-8 in char")
	ErrTrailingBytes   = errors.New("trailing bytes after program")
)

// DecodeError is returned for every decode failure. Kind is one of the
// Err* sentinels above, so callers can test it with errors.Is.
//
// Offset is absolute within the input buffer, not relative to the item
// being read. A bad tag at the start of a program's first item is
// therefore reported at offset 8, after the item count.
type DecodeError struct {
	Kind   error
	Offset int    // counted from the start of the buffer passed to the decoder
	Detail string // optional human-readable context
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("bytecode: %v at offset %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("bytecode: %v at offset %d: %s", e.Kind, e.Offset, e.Detail)
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// Offset extracts the byte offset from a decode error, or -1 if err is
// not a *DecodeError.
func Offset(err error) int {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Offset
	}
	return -1
}
