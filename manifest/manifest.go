// Package manifest handles seidr.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/kaikalii/seidr/pkg/bytecode"
)

// FileName is the name of the configuration file.
const FileName = "seidr.toml"

// DefaultStorePath is the program store location, relative to Dir.
const DefaultStorePath = ".seidr/programs.db"

// Manifest represents a seidr.toml project configuration.
type Manifest struct {
	Decoder DecoderConfig `toml:"decoder"`
	Store   StoreConfig   `toml:"store"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the seidr.toml file (set at load time).
	Dir string `toml:"-"`
}

// DecoderConfig bounds decoding of untrusted input. Zero means default.
type DecoderConfig struct {
	MaxDepth  int    `toml:"max-depth"`
	MaxLength uint64 `toml:"max-length"`
}

// StoreConfig configures the program store.
type StoreConfig struct {
	Path string `toml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no seidr.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses a seidr.toml file from the given directory. Keys the
// manifest does not know are an error.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if m.Decoder.MaxDepth < 0 {
		return nil, fmt.Errorf("%s: decoder.max-depth must not be negative", path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.applyDefaults()

	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Decoder.MaxDepth == 0 {
		m.Decoder.MaxDepth = bytecode.DefaultMaxDepth
	}
	if m.Decoder.MaxLength == 0 {
		m.Decoder.MaxLength = bytecode.DefaultMaxLength
	}
	if m.Store.Path == "" {
		m.Store.Path = DefaultStorePath
	}
}

// FindAndLoad walks up from startDir to find a seidr.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Limits returns the decoder limits the manifest configures.
func (m *Manifest) Limits() bytecode.Limits {
	return bytecode.Limits{
		MaxDepth:  m.Decoder.MaxDepth,
		MaxLength: m.Decoder.MaxLength,
	}
}

// StorePath returns the absolute path of the program store.
func (m *Manifest) StorePath() string {
	if filepath.IsAbs(m.Store.Path) {
		return m.Store.Path
	}
	return filepath.Join(m.Dir, m.Store.Path)
}
