package tsar

import (
	"errors"

	"github.com/meigma/tsar/archive"
	"github.com/meigma/tsar/grant"
	"github.com/meigma/tsar/internal/pack"
	"github.com/meigma/tsar/keys"
	"github.com/meigma/tsar/registry"
	"github.com/meigma/tsar/runlist"
)

// ErrExtraction is returned by Run when a verified payload cannot be
// extracted into the working directory.
var ErrExtraction = errors.New("tsar: extraction failed")

// Errors re-exported from keys.
var (
	// ErrCorruptSeed is returned when a seedfile cannot be parsed.
	ErrCorruptSeed = keys.ErrCorruptSeed

	// ErrInvalidPublicKey is returned when a public key is not 32 bytes of base64.
	ErrInvalidPublicKey = keys.ErrInvalidPublicKey
)

// Errors re-exported from archive.
var (
	// ErrBadMagic is returned when the input does not start with the archive magic.
	ErrBadMagic = archive.ErrBadMagic

	// ErrUnsupportedVersion is returned for an unknown format version.
	ErrUnsupportedVersion = archive.ErrUnsupportedVersion

	// ErrTruncated is returned when the input ends inside a field.
	ErrTruncated = archive.ErrTruncated

	// ErrMalformedManifest is returned when a manifest field is invalid.
	ErrMalformedManifest = archive.ErrMalformedManifest

	// ErrTooLarge is returned when an archive exceeds the configured size limit.
	ErrTooLarge = archive.ErrTooLarge

	// ErrSignatureMismatch is returned when the signature does not verify.
	ErrSignatureMismatch = archive.ErrSignatureMismatch
)

// Errors re-exported from the collaborators.
var (
	// ErrRoleDenied is returned when a required role is not granted.
	ErrRoleDenied = grant.ErrRoleDenied

	// ErrEmptyDirectory is returned when compiling a tree with no regular files.
	ErrEmptyDirectory = pack.ErrEmptyDirectory

	// ErrUnsafePath is returned when a payload entry would escape the extraction root.
	ErrUnsafePath = pack.ErrUnsafePath

	// ErrRunList is returned when a run-list descriptor is invalid.
	ErrRunList = runlist.ErrRunList

	// ErrCycle is returned when package dependencies form a cycle.
	ErrCycle = runlist.ErrCycle

	// ErrNothingToRun is returned when a verified archive resolves to an empty plan.
	ErrNothingToRun = runlist.ErrNothingToRun
)

// Errors re-exported from registry.
var (
	// ErrNotFound is returned when a reference does not exist in the registry.
	ErrNotFound = registry.ErrNotFound

	// ErrInvalidReference is returned when a reference string is malformed.
	ErrInvalidReference = registry.ErrInvalidReference

	// ErrNotArchive is returned when a pulled artifact is not a tsar archive.
	ErrNotArchive = registry.ErrNotArchive
)
