package tablebase

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"

	"github.com/berserk-go/berserk/internal/board"
)

// PersistentProber wraps another prober with a BadgerDB-backed cache that
// survives process restarts. Keyed on xxhash(FEN) rather than the
// Zobrist hash, so the on-disk keys do not depend on the engine's
// Zobrist key tables.
type PersistentProber struct {
	inner Prober
	db    *badger.DB
}

// DefaultPersistentCacheDir returns the platform-specific directory for
// the persistent tablebase cache, mirroring the teacher's data-directory
// convention (XDG on Linux, Application Support on macOS, AppData on
// Windows) under this engine's own name.
func DefaultPersistentCacheDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(home, "Library", "Application Support")
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(home, "AppData", "Roaming")
		}
	default:
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(home, ".local", "share")
		}
	}

	dir := filepath.Join(baseDir, "berserk", "tablebase-cache")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// NewPersistentProber opens (or creates) a BadgerDB-backed cache at dir
// wrapping inner. If dir is empty, DefaultPersistentCacheDir is used.
func NewPersistentProber(inner Prober, dir string) (*PersistentProber, error) {
	if dir == "" {
		d, err := DefaultPersistentCacheDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &PersistentProber{inner: inner, db: db}, nil
}

// Close closes the underlying database.
func (pp *PersistentProber) Close() error {
	return pp.db.Close()
}

func probeKey(pos *board.Position) []byte {
	h := xxhash.Sum64String(pos.ToFEN())
	key := make([]byte, 8)
	for i := 0; i < 8; i++ {
		key[i] = byte(h >> (8 * i))
	}
	return key
}

func (pp *PersistentProber) Probe(pos *board.Position) ProbeResult {
	key := probeKey(pos)

	var cached ProbeResult
	found := false
	_ = pp.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return nil // not found or other error: fall through to miss
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &cached); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if found {
		return cached
	}

	result := pp.inner.Probe(pos)
	if result.Found {
		if data, err := json.Marshal(result); err == nil {
			_ = pp.db.Update(func(txn *badger.Txn) error {
				return txn.Set(key, data)
			})
		}
	}
	return result
}

func (pp *PersistentProber) ProbeRoot(pos *board.Position) RootResult {
	// Root results embed a board.Move, which is only meaningful for the
	// process that generated it (move encoding is stable, but there is
	// no benefit caching a single root lookup across restarts).
	return pp.inner.ProbeRoot(pos)
}

func (pp *PersistentProber) MaxPieces() int {
	return pp.inner.MaxPieces()
}

func (pp *PersistentProber) Available() bool {
	return pp.inner.Available()
}
