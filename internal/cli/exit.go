package cli

import (
	"errors"
	"strings"

	"github.com/meigma/tsar"
)

// Process exit codes. A run command otherwise exits with the code of the
// executed payload.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitUsage      = 2
	ExitMalformed  = 3
	ExitSignature  = 4
	ExitRoleDenied = 5
	ExitExtraction = 6
)

// usageError marks an error in the command line itself.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// exitError carries a payload exit status. It has no message of its own.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// ExitCode maps err to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var ue *usageError
	if errors.As(err, &ue) || isCobraUsageError(err) {
		return ExitUsage
	}

	switch {
	case errors.Is(err, tsar.ErrSignatureMismatch):
		return ExitSignature
	case errors.Is(err, tsar.ErrRoleDenied):
		return ExitRoleDenied
	case errors.Is(err, tsar.ErrExtraction):
		return ExitExtraction
	case errors.Is(err, tsar.ErrBadMagic),
		errors.Is(err, tsar.ErrUnsupportedVersion),
		errors.Is(err, tsar.ErrTruncated),
		errors.Is(err, tsar.ErrMalformedManifest),
		errors.Is(err, tsar.ErrTooLarge),
		errors.Is(err, tsar.ErrNotArchive):
		return ExitMalformed
	default:
		return ExitFailure
	}
}

// isCobraUsageError recognizes the errors cobra raises before any command
// runs.
func isCobraUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "required flag(s)") ||
		strings.HasPrefix(msg, "if any flags in the group")
}
