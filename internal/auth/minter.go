package auth

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Digest names a supported token derivation.
type Digest string

const (
	// DigestSHA1 matches skeys issued by the legacy service.
	DigestSHA1    Digest = "sha1"
	DigestSHA256  Digest = "sha256"
	DigestBlake2b Digest = "blake2b"
)

// Minter derives session tokens from provider session secrets. It holds no
// state beyond the digest choice and is safe for concurrent use.
type Minter struct{ digest Digest }

// NewMinter returns a minter for the named digest; an empty name selects
// sha1.
func NewMinter(name string) (*Minter, error) {
	d := Digest(strings.ToLower(strings.TrimSpace(name)))
	switch d {
	case "":
		d = DigestSHA1
	case DigestSHA1, DigestSHA256, DigestBlake2b:
	default:
		return nil, fmt.Errorf("unsupported token digest %q", name)
	}
	return &Minter{digest: d}, nil
}

// Mint returns the hex digest of secret.
func (m *Minter) Mint(secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrInvalidSecret
	}
	switch m.digest {
	case DigestSHA256:
		sum := sha256.Sum256(secret)
		return hex.EncodeToString(sum[:]), nil
	case DigestBlake2b:
		sum := blake2b.Sum256(secret)
		return hex.EncodeToString(sum[:]), nil
	default:
		sum := sha1.Sum(secret)
		return hex.EncodeToString(sum[:]), nil
	}
}
