package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignatureVerifier validates webhook authenticity per gateway. It computes
// an HMAC-SHA512 over the exact bytes received on the wire and compares it
// to the header value in constant time. It fails closed: a gateway with no
// registered secret, a missing signature, or any mismatch all verify false.
type SignatureVerifier struct {
	schemes map[string]signatureScheme
}

type signatureScheme struct {
	secret string
	header string
}

func NewSignatureVerifier() *SignatureVerifier {
	return &SignatureVerifier{schemes: make(map[string]signatureScheme)}
}

// Register binds a gateway id to its shared secret and signature header.
func (v *SignatureVerifier) Register(gatewayID, secret, header string) {
	v.schemes[gatewayID] = signatureScheme{secret: secret, header: header}
}

// Header returns the name of the header carrying the signature for a
// gateway, or "" if the gateway is unknown.
func (v *SignatureVerifier) Header(gatewayID string) string {
	return v.schemes[gatewayID].header
}

// Verify checks signatureHeader against the HMAC of rawBody. rawBody must
// be the original request bytes, never a re-serialization of a parsed
// object: re-serializing changes key order and whitespace and breaks the
// signature. The comparison is case-insensitive and strips an optional
// "sha512=" prefix.
func (v *SignatureVerifier) Verify(gatewayID, signatureHeader string, rawBody []byte) bool {
	scheme, ok := v.schemes[gatewayID]
	if !ok || scheme.secret == "" {
		return false
	}

	sig := strings.TrimSpace(signatureHeader)
	sig = strings.TrimPrefix(strings.ToLower(sig), "sha512=")
	if sig == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(scheme.secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sig))
}
