package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/errdef"

	"github.com/meigma/tsar/archive"
)

// PushOption configures a Push operation.
type PushOption func(*pushConfig)

type pushConfig struct {
	tags        []string
	annotations map[string]string
}

// WithTags applies additional tags to the pushed manifest.
func WithTags(tags ...string) PushOption {
	return func(cfg *pushConfig) {
		cfg.tags = append(cfg.tags, tags...)
	}
}

// WithAnnotations sets custom annotations on the manifest.
// org.opencontainers.image.created is set automatically unless given.
func WithAnnotations(annotations map[string]string) PushOption {
	return func(cfg *pushConfig) {
		if cfg.annotations == nil {
			cfg.annotations = make(map[string]string)
		}
		maps.Copy(cfg.annotations, annotations)
	}
}

// Push uploads an encoded archive to ref, which must include a tag.
//
// data must decode as an archive; its signature is not checked. The returned
// descriptor identifies the pushed manifest.
func (c *Client) Push(ctx context.Context, ref string, data []byte, opts ...PushOption) (ocispec.Descriptor, error) {
	cfg := pushConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	parsed, err := parseRef(ref)
	if err != nil {
		return ocispec.Descriptor{}, err
	}
	if parsed.ValidateReferenceAsDigest() == nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: push reference must include a tag", ErrInvalidReference)
	}

	container, err := archive.Decode(data)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("%w: %w", ErrNotArchive, err)
	}
	m := container.Manifest()

	target, err := c.repository(parsed)
	if err != nil {
		return ocispec.Descriptor{}, err
	}

	c.log().Info("pushing archive", "ref", ref, "size", len(data), "roles", m.Roles)

	configDesc, err := pushBlob(ctx, target, content.NewDescriptorFromBytes(ocispec.MediaTypeEmptyJSON, ocispec.DescriptorEmptyJSON.Data), ocispec.DescriptorEmptyJSON.Data)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push config: %w", err)
	}

	roles, err := json.Marshal(m.Roles)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("encode roles: %w", err)
	}
	layerDesc := content.NewDescriptorFromBytes(MediaTypeArchive, data)
	layerDesc.Annotations = map[string]string{
		AnnotationRoles:         string(roles),
		AnnotationPayloadDigest: m.PayloadDigest.String(),
	}
	if _, err := pushBlob(ctx, target, layerDesc, data); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push archive blob: %w", err)
	}

	manifest := buildManifest(configDesc, layerDesc, cfg.annotations)
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestDesc, err := oras.TagBytes(ctx, target, ocispec.MediaTypeImageManifest, manifestJSON, parsed.Reference)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("push manifest: %w", mapError(err))
	}

	for _, tag := range cfg.tags {
		if err := target.Tag(ctx, manifestDesc, tag); err != nil {
			return ocispec.Descriptor{}, fmt.Errorf("tag %q: %w", tag, mapError(err))
		}
	}

	c.log().Debug("pushed archive", "ref", ref, "digest", manifestDesc.Digest)
	return manifestDesc, nil
}

// pushBlob pushes data unless the target already has it.
func pushBlob(ctx context.Context, target oras.Target, desc ocispec.Descriptor, data []byte) (ocispec.Descriptor, error) {
	err := target.Push(ctx, desc, bytes.NewReader(data))
	if err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return ocispec.Descriptor{}, mapError(err)
	}
	return desc, nil
}

// buildManifest creates an OCI artifact manifest for an archive.
func buildManifest(configDesc, layerDesc ocispec.Descriptor, custom map[string]string) ocispec.Manifest {
	annotations := maps.Clone(custom)
	if annotations == nil {
		annotations = make(map[string]string)
	}
	if _, ok := annotations[ocispec.AnnotationCreated]; !ok {
		annotations[ocispec.AnnotationCreated] = time.Now().UTC().Format(time.RFC3339)
	}

	return ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: ArtifactType,
		Config:       configDesc,
		Layers:       []ocispec.Descriptor{layerDesc},
		Annotations:  annotations,
	}
}
