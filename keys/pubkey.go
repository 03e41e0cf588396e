package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
)

// PublicKeySize is the length of a public key in bytes.
const PublicKeySize = ed25519.PublicKeySize

// PublicKey is an Ed25519 verification key.
type PublicKey [PublicKeySize]byte

// ParsePublicKey decodes the base64 text form produced by String.
// Leading and trailing whitespace is ignored.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(strings.TrimSpace(s))
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return PublicKeyFromBytes(raw)
}

// PublicKeyFromBytes copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return PublicKey{}, fmt.Errorf("%w: key is %d bytes, want %d", ErrInvalidPublicKey, len(b), PublicKeySize)
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the standard base64 encoding of the key.
func (k PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// Ed25519 returns the key as an ed25519.PublicKey.
func (k PublicKey) Ed25519() ed25519.PublicKey {
	out := make(ed25519.PublicKey, PublicKeySize)
	copy(out, k[:])
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PublicKey) UnmarshalText(text []byte) error {
	pk, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = pk
	return nil
}
