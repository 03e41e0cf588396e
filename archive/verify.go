package archive

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/meigma/tsar/keys"
)

// Verified is a container whose signature and payload digest have been
// checked against a public key. It can only be obtained from Verify.
type Verified struct {
	manifest Manifest
	payload  []byte
}

// Manifest returns the verified manifest.
func (v *Verified) Manifest() Manifest {
	m := v.manifest
	m.Roles = append([]string(nil), v.manifest.Roles...)
	return m
}

// Roles returns the roles the payload requires.
func (v *Verified) Roles() []string {
	return append([]string(nil), v.manifest.Roles...)
}

// Payload returns the verified payload.
// The returned slice aliases the container and must be treated as immutable.
func (v *Verified) Payload() []byte {
	return v.payload
}

// PayloadReader returns a reader over the verified payload.
func (v *Verified) PayloadReader() io.Reader {
	return bytes.NewReader(v.payload)
}

// VerifySignature checks sig over manifestBytes followed by payload.
// Every failure, including a malformed key or signature, is
// ErrSignatureMismatch.
func VerifySignature(pub keys.PublicKey, manifestBytes, payload, sig []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSignatureMismatch, r)
		}
	}()
	if len(sig) != SignatureSize {
		return fmt.Errorf("%w: signature is %d bytes", ErrSignatureMismatch, len(sig))
	}
	if !ed25519.Verify(pub.Ed25519(), signedMessage(manifestBytes, payload), sig) {
		return ErrSignatureMismatch
	}
	return nil
}

// Verify checks c's signature against pub and then that the payload matches
// the signed manifest.
func Verify(pub keys.PublicKey, c *Container) (*Verified, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil container", ErrSignatureMismatch)
	}
	if err := VerifySignature(pub, c.manifestBytes, c.payload, c.signature); err != nil {
		return nil, err
	}
	if uint64(len(c.payload)) != c.manifest.PayloadSize {
		return nil, fmt.Errorf("%w: payload size differs from manifest", ErrSignatureMismatch)
	}
	if err := c.manifest.PayloadDigest.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	verifier := c.manifest.PayloadDigest.Verifier()
	if _, err := verifier.Write(c.payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	if !verifier.Verified() {
		return nil, fmt.Errorf("%w: payload digest differs from manifest", ErrSignatureMismatch)
	}
	return &Verified{manifest: c.manifest, payload: c.payload}, nil
}
