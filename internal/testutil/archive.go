package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/tsar/archive"
	"github.com/meigma/tsar/keys"
)

// Signed is a signed archive together with the key material that made it.
type Signed struct {
	Seed keys.Seed
	Pub  keys.PublicKey
	Data []byte
}

// NewKey returns a fresh seed and its public key.
func NewKey(tb testing.TB) (keys.Seed, keys.PublicKey) {
	tb.Helper()
	seed, err := keys.GenerateSeed()
	require.NoError(tb, err)
	pub, err := keys.DerivePublicKey(seed)
	require.NoError(tb, err)
	return seed, pub
}

// SignArchive encodes and signs payload under a fresh key.
func SignArchive(tb testing.TB, roles []string, payload []byte) Signed {
	tb.Helper()
	seed, pub := NewKey(tb)
	priv, err := keys.DerivePrivateKey(seed)
	require.NoError(tb, err)

	m, err := archive.NewManifest(roles, payload)
	require.NoError(tb, err)
	sig, _, err := archive.SignManifest(priv, m, payload)
	require.NoError(tb, err)
	data, err := archive.Encode(m, sig, payload)
	require.NoError(tb, err)

	return Signed{Seed: seed, Pub: pub, Data: data}
}

// Verify decodes and verifies s, failing the test on error.
func (s Signed) Verify(tb testing.TB) *archive.Verified {
	tb.Helper()
	c, err := archive.Decode(s.Data)
	require.NoError(tb, err)
	v, err := archive.Verify(s.Pub, c)
	require.NoError(tb, err)
	return v
}
