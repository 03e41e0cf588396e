package registry

import (
	"context"
	"encoding/json"
	"fmt"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"

	"github.com/meigma/tsar/archive"
)

// Artifact describes a pulled archive.
type Artifact struct {
	// Manifest is the descriptor of the OCI manifest that was resolved.
	Manifest ocispec.Descriptor

	// Layer is the descriptor of the archive layer.
	Layer ocispec.Descriptor

	// Roles are the roles recorded in the layer annotations. They are
	// unsigned and for display only.
	Roles []string
}

// Pull resolves ref and returns the encoded archive it holds.
//
// The archive bytes are checked against the layer digest and must decode
// as an archive, but the signature is not verified.
func (c *Client) Pull(ctx context.Context, ref string) ([]byte, *Artifact, error) {
	parsed, err := parseRef(ref)
	if err != nil {
		return nil, nil, err
	}
	target, err := c.repository(parsed)
	if err != nil {
		return nil, nil, err
	}

	c.log().Info("pulling archive", "ref", ref)

	manifestDesc, err := target.Resolve(ctx, parsed.Reference)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", ref, mapError(err))
	}
	if manifestDesc.MediaType != "" && manifestDesc.MediaType != ocispec.MediaTypeImageManifest {
		return nil, nil, fmt.Errorf("%w: unsupported media type %s", ErrNotArchive, manifestDesc.MediaType)
	}
	manifestJSON, err := content.FetchAll(ctx, target, manifestDesc)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch manifest: %w", mapError(err))
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotArchive, err)
	}
	layer, err := archiveLayer(&manifest)
	if err != nil {
		return nil, nil, err
	}
	if limit := c.sizeLimit(); limit > 0 && layer.Size > limit {
		return nil, nil, fmt.Errorf("%w: layer is %d bytes, limit %d", archive.ErrTooLarge, layer.Size, limit)
	}

	data, err := content.FetchAll(ctx, target, layer)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch archive blob: %w", mapError(err))
	}
	if _, err := archive.Decode(data); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNotArchive, err)
	}

	art := &Artifact{Manifest: manifestDesc, Layer: layer}
	if raw, ok := layer.Annotations[AnnotationRoles]; ok {
		// Annotations are display hints; an unreadable value is ignored.
		_ = json.Unmarshal([]byte(raw), &art.Roles)
	}

	c.log().Debug("pulled archive", "ref", ref, "digest", manifestDesc.Digest, "size", len(data))
	return data, art, nil
}

// archiveLayer returns the single archive layer of a tsar manifest.
func archiveLayer(m *ocispec.Manifest) (ocispec.Descriptor, error) {
	if m.ArtifactType != ArtifactType {
		return ocispec.Descriptor{}, fmt.Errorf("%w: artifact type %q", ErrNotArchive, m.ArtifactType)
	}
	if len(m.Layers) != 1 || m.Layers[0].MediaType != MediaTypeArchive {
		return ocispec.Descriptor{}, fmt.Errorf("%w: expected one %s layer", ErrNotArchive, MediaTypeArchive)
	}
	layer := m.Layers[0]
	if err := layer.Digest.Validate(); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: layer digest: %v", ErrNotArchive, err)
	}
	if layer.Size < 0 {
		return ocispec.Descriptor{}, fmt.Errorf("%w: negative layer size", ErrNotArchive)
	}
	return layer, nil
}
