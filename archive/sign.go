package archive

import (
	"crypto/ed25519"
	"fmt"
)

// Sign returns the Ed25519 signature of manifestBytes followed by payload.
// Signing is deterministic.
func Sign(priv ed25519.PrivateKey, manifestBytes, payload []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("tsar: sign: private key is %d bytes, want %d", len(priv), ed25519.PrivateKeySize)
	}
	return ed25519.Sign(priv, signedMessage(manifestBytes, payload)), nil
}

// SignManifest encodes m and signs it together with payload. It returns the
// signature and the manifest bytes it covers.
func SignManifest(priv ed25519.PrivateKey, m Manifest, payload []byte) (sig, manifestBytes []byte, err error) {
	manifestBytes, err = m.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	sig, err = Sign(priv, manifestBytes, payload)
	if err != nil {
		return nil, nil, err
	}
	return sig, manifestBytes, nil
}

func signedMessage(manifestBytes, payload []byte) []byte {
	msg := make([]byte, 0, len(manifestBytes)+len(payload))
	msg = append(msg, manifestBytes...)
	return append(msg, payload...)
}
