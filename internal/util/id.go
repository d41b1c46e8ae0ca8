package util

import (
	"crypto/rand"
	"encoding/hex"
)

// Suffix returns n random bytes hex-encoded. Used for collision-resistant
// message ids and attachment names.
func Suffix(n int) string {
	bytes := make([]byte, n)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
