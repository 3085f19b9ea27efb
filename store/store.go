// Package store persists encoded programs in SQLite, addressed by their
// content hash.
package store

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/kaikalii/seidr/pkg/ast"
	"github.com/kaikalii/seidr/pkg/bytecode"
)

var (
	// ErrNotFound indicates no program is stored under the requested hash.
	ErrNotFound = errors.New("program not found")
	// ErrCorrupt indicates stored bytes no longer match their hash.
	ErrCorrupt = errors.New("stored program is corrupt")
)

var log = commonlog.GetLogger("seidr.store")

// Store is a content-addressed program store backed by a SQLite file.
type Store struct {
	db   *sql.DB
	path string
	dec  *bytecode.Decoder
	mu   sync.Mutex
}

// Open opens or creates the store at path. Programs read back are decoded
// with dec; a nil dec uses the default registry and limits.
func Open(path string, dec *bytecode.Decoder) (*Store, error) {
	if dec == nil {
		dec = bytecode.NewDecoder(nil, bytecode.DefaultLimits())
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps writes serialized and lets ":memory:" work.
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash  TEXT PRIMARY KEY,
		name  TEXT NOT NULL DEFAULT '',
		items INTEGER NOT NULL,
		code  BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened program store %s", path)
	return &Store{db: db, path: path, dec: dec}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Put encodes and stores p, returning its content hash. Storing the same
// program twice is a no-op. The encoding must decode under the store's
// decoder, so a tree nested deeper than its depth limit is refused here
// rather than on Get.
func (s *Store) Put(name string, p ast.Program) ([32]byte, error) {
	code, err := bytecode.EncodeProgram(p)
	if err != nil {
		return [32]byte{}, err
	}
	if _, err := s.dec.DecodeProgramExact(code); err != nil {
		return [32]byte{}, fmt.Errorf("program exceeds store decoder limits: %w", err)
	}
	return s.insert(name, len(p), code)
}

// PutEncoded validates and stores already encoded bytes. They must hold
// exactly one well-formed program.
func (s *Store) PutEncoded(name string, code []byte) ([32]byte, error) {
	p, err := s.dec.DecodeProgramExact(code)
	if err != nil {
		return [32]byte{}, err
	}
	return s.insert(name, len(p), code)
}

func (s *Store) insert(name string, items int, code []byte) ([32]byte, error) {
	h := bytecode.HashEncoded(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO programs (hash, name, items, code) VALUES (?, ?, ?, ?)",
		hex.EncodeToString(h[:]), name, items, code,
	)
	if err != nil {
		return [32]byte{}, fmt.Errorf("saving program: %w", err)
	}
	log.Debugf("stored program %x (%d items, %d bytes)", h[:8], items, len(code))
	return h, nil
}

// GetEncoded returns the stored bytes for h after checking their hash.
func (s *Store) GetEncoded(h [32]byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code []byte
	err := s.db.QueryRow("SELECT code FROM programs WHERE hash = ?", hex.EncodeToString(h[:])).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %x", ErrNotFound, h)
	}
	if err != nil {
		return nil, fmt.Errorf("loading program: %w", err)
	}
	if bytecode.HashEncoded(code) != h {
		log.Warningf("program %x failed hash check", h[:8])
		return nil, fmt.Errorf("%w: %x", ErrCorrupt, h)
	}
	return code, nil
}

// Get loads and decodes the program stored under h.
func (s *Store) Get(h [32]byte) (ast.Program, error) {
	code, err := s.GetEncoded(h)
	if err != nil {
		return nil, err
	}
	p, err := s.dec.DecodeProgramExact(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %x: %w", ErrCorrupt, h, err)
	}
	return p, nil
}

// Has reports whether a program is stored under h.
func (s *Store) Has(h [32]byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM programs WHERE hash = ?", hex.EncodeToString(h[:])).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking program: %w", err)
	}
	return n > 0, nil
}

// Delete removes the program stored under h.
func (s *Store) Delete(h [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM programs WHERE hash = ?", hex.EncodeToString(h[:]))
	if err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %x", ErrNotFound, h)
	}
	return nil
}

// Hashes lists every stored hash in ascending order.
func (s *Store) Hashes() ([][32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT hash FROM programs ORDER BY hash")
	if err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	defer rows.Close()

	var hashes [][32]byte
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning hash: %w", err)
		}
		h, err := ParseHash(key)
		if err != nil {
			return nil, fmt.Errorf("%w: bad key %q", ErrCorrupt, key)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing programs: %w", err)
	}
	return hashes, nil
}

// ParseHash parses a 64-character hex content hash.
func ParseHash(s string) ([32]byte, error) {
	var h [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash %q: want %d bytes, got %d", s, len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}
