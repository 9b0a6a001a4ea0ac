package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random 32-character hex identifier, prefixed with
// "<prefix>_" when prefix is non-empty.
func NewID(prefix string) string {
	raw := make([]byte, 16)
	_, _ = rand.Read(raw)
	id := hex.EncodeToString(raw)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
