package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ID prefixes keep entity kinds recognizable in logs and job payloads.
const (
	prefixTenant   = "tnt"
	prefixOrder    = "ord"
	prefixTransfer = "trf"
	prefixContact  = "cnt"
)

// newID returns a prefixed identifier carrying 96 bits of randomness.
func newID(prefix string) (string, error) {
	tok, err := randomToken(12)
	if err != nil {
		return "", err
	}
	return prefix + "_" + tok, nil
}

// randomToken returns n random bytes, hex encoded.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
