package archive

import "errors"

var (
	// ErrBadMagic is returned when input does not start with the archive magic.
	ErrBadMagic = errors.New("tsar: not a tsar archive")

	// ErrUnsupportedVersion is returned when the format version is not understood.
	ErrUnsupportedVersion = errors.New("tsar: unsupported archive version")

	// ErrTruncated is returned when input ends before a field it declares.
	ErrTruncated = errors.New("tsar: truncated archive")

	// ErrMalformedManifest is returned when manifest fields are structurally
	// present but invalid, or when bytes trail the declared payload.
	ErrMalformedManifest = errors.New("tsar: malformed manifest")

	// ErrTooLarge is returned when an archive exceeds the configured size limit.
	ErrTooLarge = errors.New("tsar: archive too large")

	// ErrSignatureMismatch is returned when the signature does not verify
	// against the supplied public key, or the payload does not match the
	// signed manifest.
	ErrSignatureMismatch = errors.New("tsar: signature mismatch")
)
