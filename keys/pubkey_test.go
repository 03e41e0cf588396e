package keys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicKey_TextRoundTrip(t *testing.T) {
	t.Parallel()

	seed, err := GenerateSeed()
	require.NoError(t, err)
	pub, err := DerivePublicKey(seed)
	require.NoError(t, err)

	text := pub.String()
	assert.Len(t, text, 44)

	parsed, err := ParsePublicKey(text)
	require.NoError(t, err)
	assert.Equal(t, pub, parsed)

	// keytool prints a trailing newline; callers often paste it back.
	parsed, err = ParsePublicKey(text + "\n")
	require.NoError(t, err)
	assert.Equal(t, pub, parsed)
}

func TestPublicKey_MarshalText(t *testing.T) {
	t.Parallel()

	pub, err := DerivePublicKey(Seed{7})
	require.NoError(t, err)

	text, err := pub.MarshalText()
	require.NoError(t, err)

	var out PublicKey
	require.NoError(t, out.UnmarshalText(text))
	assert.Equal(t, pub, out)
}

func TestParsePublicKey_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "not base64", input: "!!!!"},
		{name: "too short", input: "AAAA"},
		{name: "too long", input: strings.Repeat("A", 48)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParsePublicKey(tt.input)
			require.ErrorIs(t, err, ErrInvalidPublicKey)
		})
	}
}
