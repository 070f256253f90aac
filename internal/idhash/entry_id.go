package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEntryID computes a deterministic transaction entry id using SHA256.
// Formula: SHA256(signature|created_at|nonce)
// Returns hex-encoded hash (64 characters).
//
// The nonce is a process-scoped counter supplied by the caller so that
// re-tracking the same signature in the same millisecond still yields a
// distinct id.
func ComputeEntryID(signature string, createdAt int64, nonce uint64) string {
	data := fmt.Sprintf("%s|%d|%d", signature, createdAt, nonce)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
