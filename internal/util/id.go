package util

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomSuffix returns n random hex characters, for ids whose prefix
// already carries the meaning.
func RandomSuffix(n int) string {
	bytes := make([]byte, (n+1)/2)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)[:n]
}
