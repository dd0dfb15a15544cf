// Package credcache persists the long-lived Resy auth token across runs
// in a client-local sqlite file, encrypted at rest.
package credcache

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/securecookie"
	_ "modernc.org/sqlite"
)

const (
	// DefaultTTL is how long a freshly minted credential is trusted.
	DefaultTTL = 24 * time.Hour

	// safetyMargin keeps us from starting a run on a credential that is
	// about to expire mid-flight.
	safetyMargin = time.Hour

	credKey   = "credential"
	expiryKey = "credential_expiry" // epoch milliseconds

	codecName = "resy_credential"
)

type Cache struct {
	db  *sql.DB
	sc  *securecookie.SecureCookie
	now func() time.Time
}

// Open creates or opens the cache database at path. hashKey and blockKey
// feed the securecookie codec that seals the token at rest.
func Open(path string, hashKey, blockKey []byte) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		`CREATE TABLE IF NOT EXISTS kv (
	k TEXT PRIMARY KEY,
	v TEXT NOT NULL
);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(0) // expiry is tracked by our own timestamp
	return &Cache{db: db, sc: sc, now: time.Now}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Read returns the cached credential only while more than an hour of
// validity remains. It never mutates storage; any storage or decode
// problem reads as "no credential".
func (c *Cache) Read() (string, bool) {
	enc, ok := c.get(credKey)
	if !ok {
		return "", false
	}
	expStr, ok := c.get(expiryKey)
	if !ok {
		return "", false
	}
	expiryMs, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", false
	}
	if expiryMs <= c.now().Add(safetyMargin).UnixMilli() {
		return "", false
	}
	var token string
	if err := c.sc.Decode(codecName, enc, &token); err != nil {
		return "", false
	}
	return token, true
}

// Store seals the credential and persists it together with its expiry.
func (c *Cache) Store(token string, ttl time.Duration) error {
	enc, err := c.sc.Encode(codecName, token)
	if err != nil {
		return err
	}
	expiry := strconv.FormatInt(c.now().Add(ttl).UnixMilli(), 10)

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	for k, v := range map[string]string{credKey: enc, expiryKey: expiry} {
		if _, err := tx.Exec(
			`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
			k, v,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Evict removes the credential and its expiry unconditionally.
func (c *Cache) Evict() error {
	_, err := c.db.Exec(`DELETE FROM kv WHERE k IN (?, ?)`, credKey, expiryKey)
	return err
}

func (c *Cache) get(k string) (string, bool) {
	var v string
	if err := c.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, k).Scan(&v); err != nil {
		return "", false
	}
	return v, true
}
