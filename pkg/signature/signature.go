// Package signature implements the keyed-hash scheme the lending partner
// uses to authenticate webhook deliveries: hex(HMAC-SHA256(secret, body)).
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 digest of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether provided matches the digest recomputed over body.
// The comparison is constant-time.
func Verify(secret, body []byte, provided string) bool {
	decoded, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), decoded)
}
