package runlist

import "errors"

var (
	// ErrRunList is returned when a role or package descriptor is missing,
	// unreadable or invalid.
	ErrRunList = errors.New("tsar: invalid run-list")

	// ErrCycle is returned when package dependencies form a cycle.
	ErrCycle = errors.New("tsar: dependency cycle")

	// ErrNothingToRun is returned when the granted roles resolve to no packages.
	ErrNothingToRun = errors.New("tsar: nothing to run")
)
