package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// SeedSize is the length of a seed in bytes.
const SeedSize = ed25519.SeedSize

// Seed is the secret from which a signing keypair is derived.
type Seed [SeedSize]byte

// KeyPair holds the keys derived from a Seed.
type KeyPair struct {
	Public  PublicKey
	Private ed25519.PrivateKey
}

// selfTestMessage is signed and verified on every derivation.
var selfTestMessage = []byte("tsar keypair self-test")

// GenerateSeed returns a new random seed.
func GenerateSeed() (Seed, error) {
	var s Seed
	if _, err := rand.Read(s[:]); err != nil {
		return Seed{}, fmt.Errorf("generate seed: %w", err)
	}
	return s, nil
}

// SeedFromBytes copies b into a Seed. b must be exactly SeedSize bytes.
func SeedFromBytes(b []byte) (Seed, error) {
	var s Seed
	if len(b) != SeedSize {
		return Seed{}, fmt.Errorf("%w: seed is %d bytes, want %d", ErrCorruptSeed, len(b), SeedSize)
	}
	copy(s[:], b)
	return s, nil
}

// DeriveKeyPair derives the keypair for seed and checks that it can sign and
// verify a test message.
func DeriveKeyPair(seed Seed) (kp KeyPair, err error) {
	defer func() {
		if r := recover(); r != nil {
			kp = KeyPair{}
			err = fmt.Errorf("%w: derivation failed: %v", ErrCorruptSeed, r)
		}
	}()

	priv := ed25519.NewKeyFromSeed(seed[:])
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok || len(pub) != PublicKeySize {
		return KeyPair{}, fmt.Errorf("%w: derived public key has unexpected form", ErrCorruptSeed)
	}

	sig := ed25519.Sign(priv, selfTestMessage)
	if !ed25519.Verify(pub, selfTestMessage, sig) {
		return KeyPair{}, fmt.Errorf("%w: keypair self-test failed", ErrCorruptSeed)
	}

	var pk PublicKey
	copy(pk[:], pub)
	return KeyPair{Public: pk, Private: priv}, nil
}

// DerivePublicKey returns the public key for seed.
func DerivePublicKey(seed Seed) (PublicKey, error) {
	kp, err := DeriveKeyPair(seed)
	if err != nil {
		return PublicKey{}, err
	}
	return kp.Public, nil
}

// DerivePrivateKey returns the private signing key for seed.
func DerivePrivateKey(seed Seed) (ed25519.PrivateKey, error) {
	kp, err := DeriveKeyPair(seed)
	if err != nil {
		return nil, err
	}
	return kp.Private, nil
}
