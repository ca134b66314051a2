// Package apikey mints and verifies API keys for deployed model endpoints.
// Plaintext keys are returned to the caller exactly once; only the sha256
// digest is kept at rest.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// Prefix identifies deployd-issued keys.
const Prefix = "dk_"

// prefixLen is how many plaintext chars are kept alongside the digest for
// operator lookup.
const prefixLen = 8

// Key is a freshly minted API key.
type Key struct {
	// Plaintext is the full key, e.g. dk_1f8e2c1b9a4d4e0f8c6b5a3d2e1f0a9b.
	Plaintext string
	// Digest is the hex sha256 of Plaintext.
	Digest string
	// Hint is the first few plaintext chars, safe to store and display.
	Hint string
}

// New mints a key from 16 bytes of crypto/rand entropy.
func New() (Key, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Key{}, fmt.Errorf("entropy: %w", err)
	}
	plain := Prefix + hex.EncodeToString(buf[:])
	return Key{
		Plaintext: plain,
		Digest:    DigestOf(plain),
		Hint:      plain[:prefixLen],
	}, nil
}

// DigestOf returns the hex sha256 digest of a plaintext key.
func DigestOf(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether plaintext hashes to digest, in constant time.
func Matches(plaintext, digest string) bool {
	d := DigestOf(plaintext)
	return subtle.ConstantTimeCompare([]byte(d), []byte(digest)) == 1
}

// Valid reports whether s has the shape of a deployd key.
func Valid(s string) bool {
	if !strings.HasPrefix(s, Prefix) {
		return false
	}
	body := strings.TrimPrefix(s, Prefix)
	if len(body) != 32 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}
