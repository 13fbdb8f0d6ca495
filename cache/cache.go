// Package cache stores compiled programs in a SQLite database keyed by the
// hash of their source text and parser options.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/wsi/compiler"
	"github.com/chazu/wsi/pkg/bytecode"
)

var log = commonlog.GetLogger("wsi.cache")

// ErrNotFound indicates the requested key has no cached program.
var ErrNotFound = errors.New("program not cached")

// Cache handles SQLite storage for compiled program images.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		key TEXT PRIMARY KEY,
		image BLOB NOT NULL,
		instructions INTEGER NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Cache{db: db, path: path}, nil
}

// Close closes the database connection
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (c *Cache) Path() string {
	return c.path
}

// Key derives the cache key for src compiled with opts.
func Key(src []byte, opts compiler.Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "wsi/%d strict=%t maxparam=%d\n", bytecode.ProgramVersion, opts.StrictParams, opts.MaxParamLen)
	h.Write(src)
	return hex.EncodeToString(h.Sum(nil))
}

// Get loads the program stored under key.
func (c *Cache) Get(key string) (*bytecode.Program, error) {
	var image []byte
	err := c.db.QueryRow("SELECT image FROM programs WHERE key = ?", key).Scan(&image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}

	p, err := bytecode.UnmarshalProgram(image)
	if err != nil {
		return nil, fmt.Errorf("decoding cached program %s: %w", key, err)
	}
	return p, nil
}

// Put stores p under key, replacing any previous entry.
func (c *Cache) Put(key string, p *bytecode.Program) error {
	image, err := bytecode.MarshalProgram(p)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO programs (key, image, instructions, created) VALUES (?, ?, ?, ?)",
		key, image, p.Len(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	return nil
}

// Compile returns the cached program for src, compiling and storing it on a
// miss. The boolean reports a cache hit. Entries that fail to decode are
// recompiled and overwritten.
func (c *Cache) Compile(src []byte, opts compiler.Options) (*bytecode.Program, bool, error) {
	key := Key(src, opts)

	p, err := c.Get(key)
	switch {
	case err == nil:
		log.Debugf("cache hit %s", key[:12])
		return p, true, nil
	case errors.Is(err, ErrNotFound):
	default:
		log.Warningf("ignoring cache entry: %s", err)
	}

	p, err = compiler.Compile(src, opts)
	if err != nil {
		return nil, false, err
	}
	if err := c.Put(key, p); err != nil {
		return nil, false, err
	}
	log.Debugf("cache store %s (%d instructions)", key[:12], p.Len())
	return p, false, nil
}

// Len returns the number of cached programs.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}

// Purge deletes every cached program.
func (c *Cache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM programs"); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}
