package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ErrSigning is returned when a record cannot be reduced to a canonical
// payload for signing.
var ErrSigning = errors.New("audit record could not be signed")

// DefaultAlgorithm identifies the HMAC-SHA256 scheme used for record
// signatures.
const DefaultAlgorithm = "HS256"

// defaultSigningKey is the development fallback secret.
const defaultSigningKey = "switchboard-dev-key"

// Signature is a detached signature plus the scheme that produced it.
type Signature struct {
	Algorithm string `json:"algorithm"`
	Signature string `json:"signature"`
}

// Signer computes and checks HMAC signatures over canonical payloads.
type Signer struct {
	secret    []byte
	algorithm string
}

// NewSigner builds a signer from secret. An empty secret falls back to the
// development key.
func NewSigner(secret string) *Signer {
	if secret == "" {
		secret = defaultSigningKey
	}
	return &Signer{secret: []byte(secret), algorithm: DefaultAlgorithm}
}

// Sign returns the URL-safe base64 signature over payload.
func (s *Signer) Sign(payload []byte) Signature {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return Signature{
		Algorithm: s.algorithm,
		Signature: base64.URLEncoding.EncodeToString(mac.Sum(nil)),
	}
}

// Verify reports whether signature matches payload. Comparison is constant
// time.
func (s *Signer) Verify(payload []byte, signature string) bool {
	expected := s.Sign(payload).Signature
	return hmac.Equal([]byte(expected), []byte(signature))
}
