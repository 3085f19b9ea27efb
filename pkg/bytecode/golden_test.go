package bytecode

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kaikalii/seidr/pkg/ast"
	"github.com/kaikalii/seidr/pkg/opcode"
)

// TestGoldenFiles pins the encoding and content hash of known programs.
// A missing golden file is created on first run. Any other mismatch is
// format drift and breaks every stored program.
func TestGoldenFiles(t *testing.T) {
	cases := []struct {
		name string
		prog ast.Program
	}{
		{"empty_program", ast.Program{}},
		{"number", ast.Program{num(3.14)}},
		{"unary_apply", ast.Program{&ast.UnaryApply{F: op(opcode.OpPlus), X: num(2)}}},
		{"char_array", ast.Program{
			&ast.StaticArray{ElemTag: ast.TagChar, Elements: []ast.Value{chr('h'), chr('é'), chr('𝄞')}},
		}},
		{"fork_mean", ast.Program{
			&ast.Fork{
				Left:   &ast.UnaryModified{Mod: opcode.ModFold, F: op(opcode.OpPlus)},
				Middle: op(opcode.OpDivide),
				Right:  op(opcode.OpJoin),
			},
		}},
		{"nested_function", ast.Program{
			&ast.FunctionLiteral{Body: ast.Program{
				num(1),
				&ast.BinaryModified{Mod: opcode.ModOver, F: op(opcode.OpMinus), G: num(10)},
			}},
		}},
		{"mixed_program", ast.Program{
			num(1),
			&ast.BinaryApply{F: op(opcode.OpLess), Left: chr('a'), Right: numArray(1, 2)},
			&ast.Atop{F: op(opcode.OpMax), G: op(opcode.OpMin)},
		}},
	}

	goldenDir := filepath.Join("testdata")
	if err := os.MkdirAll(goldenDir, 0o755); err != nil {
		t.Fatalf("create testdata dir: %v", err)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := mustEncodeProgram(t, tc.prog)
			h, err := Hash(tc.prog)
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}

			encodedHex := hex.EncodeToString(data)
			hashHex := hex.EncodeToString(h[:])

			goldenPath := filepath.Join(goldenDir, tc.name+".golden")
			expected, err := os.ReadFile(goldenPath)
			if err != nil {
				content := encodedHex + "\n" + hashHex + "\n"
				if writeErr := os.WriteFile(goldenPath, []byte(content), 0o644); writeErr != nil {
					t.Fatalf("write golden file: %v", writeErr)
				}
				t.Logf("created golden file: %s", goldenPath)
				return
			}

			lines := strings.Split(strings.TrimSpace(string(expected)), "\n")
			if len(lines) != 2 {
				t.Fatalf("golden file %s: expected 2 lines, got %d", goldenPath, len(lines))
			}
			if encodedHex != lines[0] {
				t.Errorf("encoded bytes mismatch:\n  got:  %s\n  want: %s", encodedHex, lines[0])
			}
			if hashHex != lines[1] {
				t.Errorf("hash mismatch:\n  got:  %s\n  want: %s", hashHex, lines[1])
			}

			// The golden bytes must decode back to the same tree.
			golden, err := hex.DecodeString(lines[0])
			if err != nil {
				t.Fatalf("golden hex: %v", err)
			}
			got, err := defaultDecoder.DecodeProgramExact(golden)
			if err != nil {
				t.Fatalf("decode golden bytes: %v", err)
			}
			if !ast.EqualPrograms(got, tc.prog) {
				t.Errorf("golden decodes to %v, want %v", got, tc.prog)
			}
		})
	}
}
