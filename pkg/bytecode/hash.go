package bytecode

import (
	"crypto/sha256"

	"github.com/kaikalii/seidr/pkg/ast"
)

// HashVersion prefixes the hashed bytes. Bumping it invalidates every
// existing content hash.
const HashVersion byte = 1

// Hash computes the SHA-256 content hash of a program: the hash version
// byte followed by the program's canonical encoding. Structurally equal
// programs always hash the same.
func Hash(p ast.Program) ([32]byte, error) {
	data, err := EncodeProgram(p)
	if err != nil {
		return [32]byte{}, err
	}
	return HashEncoded(data), nil
}

// HashEncoded hashes an already encoded program without decoding it.
func HashEncoded(data []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte{HashVersion})
	h.Write(data)
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
