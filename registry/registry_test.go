package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"

	"github.com/meigma/tsar/archive"
	"github.com/meigma/tsar/internal/testutil"
)

const testRef = "registry.example.com/tools/hello:v1"

func TestPushPull_RoundTrip(t *testing.T) {
	t.Parallel()

	store := memory.New()
	c := New(WithTarget(store))
	signed := testutil.SignArchive(t, []string{"network", "fs"}, []byte("payload bytes"))

	desc, err := c.Push(context.Background(), testRef, signed.Data, WithTags("latest"), WithAnnotations(map[string]string{"team": "infra"}))
	require.NoError(t, err)
	assert.Equal(t, ocispec.MediaTypeImageManifest, desc.MediaType)

	for _, ref := range []string{testRef, "registry.example.com/tools/hello:latest"} {
		data, art, err := c.Pull(context.Background(), ref)
		require.NoError(t, err, ref)
		assert.Equal(t, signed.Data, data)
		assert.Equal(t, desc.Digest, art.Manifest.Digest)
		assert.Equal(t, []string{"network", "fs"}, art.Roles)
		assert.Equal(t, digest.FromBytes(signed.Data), art.Layer.Digest)
	}

	manifestJSON, err := content.FetchAll(context.Background(), store, desc)
	require.NoError(t, err)
	var manifest ocispec.Manifest
	require.NoError(t, json.Unmarshal(manifestJSON, &manifest))
	assert.Equal(t, ArtifactType, manifest.ArtifactType)
	assert.Equal(t, "infra", manifest.Annotations["team"])
	assert.NotEmpty(t, manifest.Annotations[ocispec.AnnotationCreated])

	// Pulled bytes still verify with the original key.
	c2, err := archive.Decode(manifestLayerBytes(t, store, &manifest))
	require.NoError(t, err)
	_, err = archive.Verify(signed.Pub, c2)
	require.NoError(t, err)
}

func manifestLayerBytes(t *testing.T, store *memory.Store, m *ocispec.Manifest) []byte {
	t.Helper()
	require.Len(t, m.Layers, 1)
	data, err := content.FetchAll(context.Background(), store, m.Layers[0])
	require.NoError(t, err)
	return data
}

func TestPush_PushTwice(t *testing.T) {
	t.Parallel()

	c := New(WithTarget(memory.New()))
	signed := testutil.SignArchive(t, nil, []byte("x"))

	_, err := c.Push(context.Background(), testRef, signed.Data)
	require.NoError(t, err)
	_, err = c.Push(context.Background(), testRef, signed.Data)
	require.NoError(t, err)
}

func TestPush_Errors(t *testing.T) {
	t.Parallel()

	signed := testutil.SignArchive(t, nil, []byte("x"))

	tests := []struct {
		name    string
		ref     string
		data    []byte
		wantErr error
	}{
		{name: "not an archive", ref: testRef, data: []byte("hello"), wantErr: ErrNotArchive},
		{name: "truncated archive", ref: testRef, data: signed.Data[:len(signed.Data)-1], wantErr: archive.ErrTruncated},
		{name: "missing tag", ref: "registry.example.com/tools/hello", data: signed.Data, wantErr: ErrInvalidReference},
		{name: "digest reference", ref: "registry.example.com/tools/hello@" + digest.FromString("x").String(), data: signed.Data, wantErr: ErrInvalidReference},
		{name: "garbage reference", ref: "::not a ref::", data: signed.Data, wantErr: ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(WithTarget(memory.New())).Push(context.Background(), tt.ref, tt.data)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPull_NotFound(t *testing.T) {
	t.Parallel()

	_, _, err := New(WithTarget(memory.New())).Pull(context.Background(), testRef)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPull_NotArchive(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ctx := context.Background()

	// A generic artifact with a different artifact type.
	layer, err := oras.PushBytes(ctx, store, "text/plain", []byte("hi"))
	require.NoError(t, err)
	manifestDesc, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, "application/vnd.example", oras.PackManifestOptions{
		Layers: []ocispec.Descriptor{layer},
	})
	require.NoError(t, err)
	require.NoError(t, store.Tag(ctx, manifestDesc, "v1"))

	_, _, err = New(WithTarget(store)).Pull(ctx, testRef)
	require.ErrorIs(t, err, ErrNotArchive)
}

func TestPull_TooLarge(t *testing.T) {
	t.Parallel()

	store := memory.New()
	signed := testutil.SignArchive(t, nil, make([]byte, 1024))
	_, err := New(WithTarget(store)).Push(context.Background(), testRef, signed.Data)
	require.NoError(t, err)

	_, _, err = New(WithTarget(store), WithMaxArchiveSize(100)).Pull(context.Background(), testRef)
	require.ErrorIs(t, err, archive.ErrTooLarge)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := New()
	assert.Equal(t, "tsh/1.0", c.userAgent)
	assert.False(t, c.plainHTTP)
	assert.Nil(t, c.credStore)
	assert.Equal(t, DefaultMaxArchiveSize, c.sizeLimit())

	c = New(WithPlainHTTP(true), WithAnonymous(true), WithUserAgent("ua"), WithStaticCredentials("r.example.com", "u", "p"))
	assert.True(t, c.plainHTTP)
	assert.True(t, c.anonymous)
	assert.Equal(t, "ua", c.userAgent)
	require.NotNil(t, c.credStore)
}

func TestCredentialFunc_Anonymous(t *testing.T) {
	t.Parallel()

	c := New(WithStaticCredentials("r.example.com", "u", "p"), WithAnonymous(true))
	cred, err := c.authClient.Credential(context.Background(), "r.example.com")
	require.NoError(t, err)
	assert.Empty(t, cred.Username)

	c = New(WithStaticCredentials("r.example.com", "u", "p"))
	cred, err = c.authClient.Credential(context.Background(), "r.example.com")
	require.NoError(t, err)
	assert.Equal(t, "u", cred.Username)
}
