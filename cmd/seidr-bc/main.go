// seidr-bc inspects, hashes, packages and stores encoded seidr programs.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/kaikalii/seidr/manifest"
	"github.com/kaikalii/seidr/pkg/bytecode"
)

var log = commonlog.GetLogger("seidr.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// env is the state shared by every subcommand.
type env struct {
	stdout   io.Writer
	manifest *manifest.Manifest
	dec      *bytecode.Decoder
	storeDir string
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("seidr-bc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Int("v", 0, "Log verbosity (-4 silent .. 2 debug); overrides seidr.toml")
	dir := fs.String("C", ".", "Directory to search for seidr.toml")
	storePath := fs.String("store", "", "Program store path; overrides seidr.toml")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: seidr-bc [options] <command> [args...]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-28s %s\n", c.usage, c.help)
		}
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  seidr-bc disasm prog.sbc          # Print an annotated listing\n")
		fmt.Fprintf(stderr, "  seidr-bc bundle prog.sbc out.cbor # Package for transport\n")
		fmt.Fprintf(stderr, "  seidr-bc -v 2 put prog.sbc        # Store with debug logging\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if m == nil {
		m = manifest.Default(*dir)
	}

	verbosity := m.Log.Verbosity
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "v" {
			verbosity = *verbose
		}
	})
	commonlog.Configure(verbosity, nil)

	e := &env{
		stdout:   stdout,
		manifest: m,
		dec:      bytecode.NewDecoder(nil, m.Limits()),
		storeDir: m.StorePath(),
	}
	if *storePath != "" {
		e.storeDir = *storePath
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if len(rest) != c.nargs {
			fmt.Fprintf(stderr, "Usage: seidr-bc %s\n", c.usage)
			return 2
		}
		log.Debugf("running %s %v", name, rest)
		if err := c.run(e, rest); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n\n", name)
	fs.Usage()
	return 2
}
