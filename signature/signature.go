package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

/* HMAC-SHA256 signatures over the raw request body, using the vendor's
 * shared secret. The receiver recomputes the signature from the bytes it
 * read off the wire and compares; any payload tampering breaks the match.
 */

// Prefix identifies the hash algorithm in the signature header value
const Prefix = "sha256="

// Sign computes the signature header value for a payload
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return Prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether a signature matches the payload.
// Uses constant-time comparison to prevent timing attacks.
func Verify(secret string, payload []byte, sig string) bool {
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(sig), []byte(expected))
}

// MinSecretBytes is the minimum recommended secret size (192 bits)
const MinSecretBytes = 24

// GenerateSecret creates a new cryptographically secure signing secret,
// base64-encoded for storage in the vendor registry.
func GenerateSecret() (string, error) {
	raw := make([]byte, MinSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
