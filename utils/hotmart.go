package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// ValidateHotmartSignature verifies the webhook signature header against an
// HMAC-SHA256 of the raw request body. The raw bytes must be used as
// received; re-serializing the JSON would change key order and whitespace
// and break the digest.
func ValidateHotmartSignature(rawBody []byte, signatureHex, secret string) bool {
	if signatureHex == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	// Length mismatch short-circuits before the constant-time compare
	if len(expected) != len(signatureHex) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signatureHex)) == 1
}
