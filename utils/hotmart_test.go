package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidateHotmartSignature(t *testing.T) {
	secret := "whsec_test_secret"
	body := []byte(`{"event":"PURCHASE_APPROVED","data":{"buyer":{"email":"a@b.com"}}}`)

	t.Run("accepts matching signature", func(t *testing.T) {
		assert.True(t, ValidateHotmartSignature(body, sign(body, secret), secret))
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		sig := sign(body, secret)
		tampered := append([]byte{}, body...)
		tampered[len(tampered)-1] ^= 0x01
		assert.False(t, ValidateHotmartSignature(tampered, sig, secret))
	})

	t.Run("rejects signature computed with another secret", func(t *testing.T) {
		assert.False(t, ValidateHotmartSignature(body, sign(body, "other_secret"), secret))
	})

	t.Run("rejects truncated signature", func(t *testing.T) {
		sig := sign(body, secret)
		assert.False(t, ValidateHotmartSignature(body, sig[:len(sig)-2], secret))
	})

	t.Run("rejects empty signature", func(t *testing.T) {
		assert.False(t, ValidateHotmartSignature(body, "", secret))
	})

	t.Run("rejects empty secret", func(t *testing.T) {
		assert.False(t, ValidateHotmartSignature(body, sign(body, secret), ""))
	})

	t.Run("signature is over exact raw bytes", func(t *testing.T) {
		// Same JSON value, different whitespace, must not verify
		reserialized := []byte(`{"event": "PURCHASE_APPROVED", "data": {"buyer": {"email": "a@b.com"}}}`)
		assert.False(t, ValidateHotmartSignature(reserialized, sign(body, secret), secret))
	})
}
