package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/kaikalii/seidr/dist"
	"github.com/kaikalii/seidr/pkg/bytecode"
	"github.com/kaikalii/seidr/pkg/opcode"
	"github.com/kaikalii/seidr/store"
)

type command struct {
	name  string
	usage string
	help  string
	nargs int
	run   func(e *env, args []string) error
}

var commands = []command{
	{"disasm", "disasm FILE", "Print an annotated listing of an encoded program", 1, cmdDisasm},
	{"hash", "hash FILE", "Print the content hash of an encoded program", 1, cmdHash},
	{"bundle", "bundle FILE OUT", "Wrap an encoded program in a CBOR bundle", 2, cmdBundle},
	{"unbundle", "unbundle FILE OUT", "Verify a bundle and extract its program", 2, cmdUnbundle},
	{"put", "put FILE", "Add an encoded program to the store", 1, cmdPut},
	{"get", "get HASH OUT", "Write a stored program to OUT", 2, cmdGet},
	{"list", "list", "List stored program hashes", 0, cmdList},
	{"opcodes", "opcodes", "Print the opcode registry", 0, cmdOpcodes},
}

// readProgram reads FILE and checks that it holds exactly one program.
func (e *env) readProgram(path string) ([]byte, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	p, err := e.dec.DecodeProgramExact(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return data, len(p), nil
}

func (e *env) openStore() (*store.Store, error) {
	log.Debugf("opening store %s", e.storeDir)
	return store.Open(e.storeDir, e.dec)
}

func cmdDisasm(e *env, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	out, err := bytecode.DisassembleWithName(data, e.dec, filepath.Base(args[0]))
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprint(e.stdout, out)
	return nil
}

func cmdHash(e *env, args []string) error {
	data, _, err := e.readProgram(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%x\n", bytecode.HashEncoded(data))
	return nil
}

func cmdBundle(e *env, args []string) error {
	data, n, err := e.readProgram(args[0])
	if err != nil {
		return err
	}
	b := dist.Wrap(filepath.Base(args[0]), data, n)
	out, err := dist.MarshalBundle(b)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], out, 0o644); err != nil {
		return err
	}
	log.Infof("bundled %s (%d items) as %x", args[0], n, b.Hash[:8])
	return nil
}

func cmdUnbundle(e *env, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	b, err := dist.UnmarshalBundle(data)
	if err != nil {
		return err
	}
	if _, err := b.Program(e.dec); err != nil {
		return err
	}
	if err := os.WriteFile(args[1], b.Code, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%x %s\n", b.Hash, b.Name)
	return nil
}

func cmdPut(e *env, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	s, err := e.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	h, err := s.PutEncoded(filepath.Base(args[0]), data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprintf(e.stdout, "%x\n", h)
	return nil
}

func cmdGet(e *env, args []string) error {
	h, err := store.ParseHash(args[0])
	if err != nil {
		return err
	}
	s, err := e.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := s.GetEncoded(h)
	if err != nil {
		return err
	}
	return os.WriteFile(args[1], data, 0o644)
}

func cmdList(e *env, args []string) error {
	s, err := e.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	hashes, err := s.Hashes()
	if err != nil {
		return err
	}
	for _, h := range hashes {
		fmt.Fprintf(e.stdout, "%x\n", h)
	}
	return nil
}

func cmdOpcodes(e *env, args []string) error {
	reg := opcode.Default()
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tCODE\tIDENTITY\tMONADIC\tDYADIC")
	for _, t := range []opcode.Table{opcode.Operators, opcode.UnaryModifiers, opcode.BinaryModifiers} {
		for _, ent := range reg.All(t) {
			fmt.Fprintf(w, "%s\t0x%02X\t%s\t%s\t%s\n", t, ent.Code, ent.Identity, dash(ent.Monadic), dash(ent.Dyadic))
		}
	}
	return w.Flush()
}

func dash(id opcode.Identity) string {
	if id == "" {
		return "-"
	}
	return string(id)
}
