// Package buildcache is a content-addressed cache of compiled
// artifacts, avoiding repeated gcc invocations for unchanged BASM/BF
// input. It is backed by a single-table SQLite database, following the
// teacher's internal/database.DBManager connection-pool discipline
// (modernc.org/sqlite, a single open *sql.DB capped at one connection
// since SQLite serializes writers itself).
package buildcache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

// Cache wraps a SQLite database storing (key) -> (artifact bytes).
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open build cache: %w", err)
	}
	// A single connection: SQLite serializes writers anyway, and this
	// matches the teacher's DBManager pool discipline for one logical
	// connection rather than fanning out redundant ones.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init build cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	key       TEXT PRIMARY KEY,
	artifact  BLOB NOT NULL,
	size      INTEGER NOT NULL,
	last_used INTEGER NOT NULL
);
`

// Close releases the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }

// Key hashes the normalized compilation inputs with BLAKE2b-256 into a
// hex cache key. Chosen over stdlib SHA-256 because golang.org/x/crypto
// is already in the dependency set and BLAKE2b is the faster, modern
// choice when no cryptographic boundary is being crossed.
func Key(source []byte, target, cellWidth string, release bool, artTemplate string) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err) // blake2b.New256 with a nil key never errors
	}
	h.Write(source)
	fmt.Fprintf(h, "|target=%s|width=%s|release=%t|art=%s", target, cellWidth, release, artTemplate)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Lookup returns the cached artifact for key, if present, and bumps
// its last-used timestamp for the LRU sweep in Evict.
func (c *Cache) Lookup(key string) (artifact []byte, hit bool, err error) {
	row := c.db.QueryRow(`SELECT artifact FROM artifacts WHERE key = ?`, key)
	if err := row.Scan(&artifact); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	_, err = c.db.Exec(`UPDATE artifacts SET last_used = ? WHERE key = ?`, time.Now().Unix(), key)
	return artifact, true, err
}

// Store writes artifact under key, overwriting any previous entry.
func (c *Cache) Store(key string, artifact []byte) error {
	_, err := c.db.Exec(
		`INSERT INTO artifacts (key, artifact, size, last_used) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET artifact = excluded.artifact, size = excluded.size, last_used = excluded.last_used`,
		key, artifact, len(artifact), time.Now().Unix(),
	)
	return err
}

// SizeOf renders a byte count the way --verbose cache hit/miss log
// lines report it, in human-readable units.
func SizeOf(n int) string { return humanize.Bytes(uint64(n)) }

// Evict deletes least-recently-used entries until the cache's total
// size is at or below budget bytes.
func (c *Cache) Evict(budget int64) error {
	var total int64
	if err := c.db.QueryRow(`SELECT COALESCE(SUM(size), 0) FROM artifacts`).Scan(&total); err != nil {
		return err
	}
	if total <= budget {
		return nil
	}

	rows, err := c.db.Query(`SELECT key, size FROM artifacts ORDER BY last_used ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for total > budget && rows.Next() {
		var key string
		var size int64
		if err := rows.Scan(&key, &size); err != nil {
			return err
		}
		if _, err := c.db.Exec(`DELETE FROM artifacts WHERE key = ?`, key); err != nil {
			return err
		}
		total -= size
	}
	return rows.Err()
}
