package keys

import "errors"

var (
	// ErrCorruptSeed is returned when a seed or seedfile fails structural
	// validation or the derived keypair fails its self-test.
	ErrCorruptSeed = errors.New("tsar: corrupt seed")

	// ErrInvalidPublicKey is returned when a public key is not valid base64
	// or has the wrong length.
	ErrInvalidPublicKey = errors.New("tsar: invalid public key")
)
