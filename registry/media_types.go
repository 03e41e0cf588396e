package registry

// Media types and annotations for tsar archives in OCI registries.
const (
	// ArtifactType identifies tsar archives as an OCI 1.1 artifact type.
	ArtifactType = "application/vnd.meigma.tsar.v1"

	// MediaTypeArchive is the media type of the archive layer.
	MediaTypeArchive = "application/vnd.meigma.tsar.archive.v1"

	// AnnotationRoles holds the archive roles as a JSON array.
	AnnotationRoles = "dev.meigma.tsar.roles"

	// AnnotationPayloadDigest holds the payload digest from the archive manifest.
	AnnotationPayloadDigest = "dev.meigma.tsar.payload.digest"
)
