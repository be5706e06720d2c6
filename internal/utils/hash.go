package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Checksum returns the hex-encoded SHA-256 digest of data.
//
// Example usage:
//
//	sum := utils.Checksum(canonicalPayload)
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumEqual reports whether two hex digests are equal. The comparison
// runs in constant time. Malformed digests never match.
func ChecksumEqual(a, b string) bool {
	da, err := hex.DecodeString(a)
	if err != nil || len(da) != sha256.Size {
		return false
	}
	db, err := hex.DecodeString(b)
	if err != nil {
		return false
	}
	return hmac.Equal(da, db)
}
