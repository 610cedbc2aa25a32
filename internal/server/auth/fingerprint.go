package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Fingerprint returns the hex-encoded SHA-256 digest of a raw refresh token.
// The digest, not the token, is what gets persisted on the user row; bcrypt
// is unsuitable here because refresh tokens exceed its 72-byte input limit.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// FingerprintMatches compares a stored fingerprint against the digest of a
// raw token in constant time.
func FingerprintMatches(stored, raw string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(Fingerprint(raw))) == 1
}
