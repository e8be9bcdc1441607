package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the hex digest of b. Used as the cache key for
// uploaded photos.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
