package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignatureVerifier(t *testing.T) {
	v := NewSignatureVerifier()
	v.Register("paystack", "sk_test_secret", "x-paystack-signature")

	body := []byte(`{"event":"charge.success","data":{"reference":"dep-1","amount":5000}}`)

	t.Run("valid signature", func(t *testing.T) {
		assert.True(t, v.Verify("paystack", sign("sk_test_secret", body), body))
	})

	t.Run("uppercase hex accepted", func(t *testing.T) {
		assert.True(t, v.Verify("paystack", strings.ToUpper(sign("sk_test_secret", body)), body))
	})

	t.Run("prefixed signature accepted", func(t *testing.T) {
		assert.True(t, v.Verify("paystack", "sha512="+sign("sk_test_secret", body), body))
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		tampered := []byte(`{"event":"charge.success","data":{"reference":"dep-1","amount":9999999}}`)
		assert.False(t, v.Verify("paystack", sign("sk_test_secret", body), tampered))
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		assert.False(t, v.Verify("paystack", sign("sk_wrong", body), body))
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		assert.False(t, v.Verify("paystack", "", body))
	})

	t.Run("unregistered gateway rejected", func(t *testing.T) {
		assert.False(t, v.Verify("monnify", sign("sk_test_secret", body), body))
	})

	t.Run("reserialized body breaks signature", func(t *testing.T) {
		// Same JSON value, different byte sequence.
		reordered := []byte(`{"data":{"amount":5000,"reference":"dep-1"},"event":"charge.success"}`)
		assert.False(t, v.Verify("paystack", sign("sk_test_secret", body), reordered))
	})
}
