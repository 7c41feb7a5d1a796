// Package auth validates reviewer credentials presented to the approval
// endpoints.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
)

// ErrUnknownHashType is returned when a configured hash has an
// unrecognized format.
var ErrUnknownHashType = errors.New("unknown hash type")

// argon2idParams follows the OWASP minimum cost for Argon2id.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashKey returns an Argon2id hash of a raw reviewer key in PHC format,
// suitable for the reviewer keyring configuration.
func HashKey(rawKey string) (string, error) {
	return argon2id.CreateHash(rawKey, argon2idParams)
}

// VerifyKey checks a raw key against one stored hash. Argon2id PHC hashes
// and SHA-256 hex hashes (optionally "sha256:"-prefixed) are supported.
func VerifyKey(rawKey, storedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(storedHash, "$argon2id$"):
		return argon2id.ComparePasswordAndHash(rawKey, storedHash)
	case strings.HasPrefix(storedHash, "sha256:"), isHexDigest(storedHash):
		expected := strings.TrimPrefix(storedHash, "sha256:")
		sum := sha256.Sum256([]byte(rawKey))
		computed := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(expected)) == 1, nil
	default:
		return false, ErrUnknownHashType
	}
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// Keyring holds the reviewer key hashes accepted on approval endpoints.
// An empty keyring leaves those endpoints open.
type Keyring struct {
	hashes []string
}

// ParseKeyring splits a comma-separated hash list into a keyring. Blank
// entries are dropped.
func ParseKeyring(spec string) *Keyring {
	var hashes []string
	for _, entry := range strings.Split(spec, ",") {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			hashes = append(hashes, trimmed)
		}
	}
	return &Keyring{hashes: hashes}
}

// Empty reports whether no reviewer keys are configured.
func (k *Keyring) Empty() bool {
	return k == nil || len(k.hashes) == 0
}

// Verify reports whether rawKey matches any configured hash. Hashes with
// unknown formats are skipped.
func (k *Keyring) Verify(rawKey string) bool {
	if k == nil {
		return false
	}
	for _, stored := range k.hashes {
		match, err := VerifyKey(rawKey, stored)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}
