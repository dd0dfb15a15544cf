package credcache

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for passphrase-derived keys. The salt is fixed so the
// same passphrase reopens the same cache on another machine.
const (
	scryptSalt = "getresyd/credcache/v1"
	scryptN    = 1 << 15
	scryptR    = 8
	scryptP    = 1
)

// ResolveKeys picks the securecookie key pair for the cache, in order of
// preference: explicit base64 keys, a passphrase to derive from, or a key
// file under dir (created on first use).
func ResolveKeys(hashB64, blockB64, passphrase, dir string) ([]byte, []byte, error) {
	if hashB64 != "" || blockB64 != "" {
		hashKey, err := decodeKey("cache hash key", hashB64)
		if err != nil {
			return nil, nil, err
		}
		blockKey, err := decodeKey("cache block key", blockB64)
		if err != nil {
			return nil, nil, err
		}
		return hashKey, blockKey, nil
	}
	if passphrase != "" {
		return DeriveKeys(passphrase)
	}
	return loadOrCreateKeys(filepath.Join(dir, "cache.keys"))
}

// DeriveKeys stretches a passphrase into a (hash, block) key pair.
func DeriveKeys(passphrase string) ([]byte, []byte, error) {
	buf, err := scrypt.Key([]byte(passphrase), []byte(scryptSalt), scryptN, scryptR, scryptP, 64)
	if err != nil {
		return nil, nil, err
	}
	return buf[:32], buf[32:], nil
}

func decodeKey(name, b64 string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%s: want 32 bytes, got %d", name, len(raw))
	}
	return raw, nil
}

func loadOrCreateKeys(path string) ([]byte, []byte, error) {
	if b, err := os.ReadFile(path); err == nil {
		raw, derr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(b)))
		if derr == nil && len(raw) == 64 {
			return raw[:32], raw[32:], nil
		}
		// unreadable key file: fall through and regenerate
	}
	raw := make([]byte, 64)
	if _, err := rand.Read(raw); err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString(raw)), 0o600); err != nil {
		return nil, nil, err
	}
	return raw[:32], raw[32:], nil
}
