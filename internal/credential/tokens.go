package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const resetTokenBytes = 32

// GenerateResetToken returns a raw reset token and the digest to persist.
// The raw value leaves the process exactly once, toward the notification
// collaborator; only the hash is ever stored. The token already carries full
// entropy, so a fast hash suffices.
func GenerateResetToken() (raw string, hash string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("credential: generate token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

// HashResetToken computes the storable digest of a raw token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// VerifyResetToken recomputes the digest and compares in constant time so a
// partial match cannot be detected through timing.
func VerifyResetToken(raw, storedHash string) bool {
	if raw == "" || storedHash == "" {
		return false
	}
	candidate := HashResetToken(raw)
	if len(candidate) != len(storedHash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
