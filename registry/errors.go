package registry

import "errors"

// Sentinel errors for registry operations.
var (
	// ErrNotFound is returned when no archive exists at the reference.
	ErrNotFound = errors.New("tsar: not found in registry")

	// ErrInvalidReference is returned when a reference string is malformed.
	ErrInvalidReference = errors.New("tsar: invalid reference")

	// ErrNotArchive is returned when pushed bytes are not a tsar archive or a
	// pulled manifest does not describe one.
	ErrNotArchive = errors.New("tsar: not a tsar artifact")

	// ErrUnauthorized is returned when registry authentication fails.
	ErrUnauthorized = errors.New("tsar: registry unauthorized")

	// ErrForbidden is returned when the registry denies access.
	ErrForbidden = errors.New("tsar: registry forbidden")
)
