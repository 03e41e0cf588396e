package pack

import (
	"errors"

	"github.com/meigma/tsar/internal/platform"
)

var (
	// ErrEmptyDirectory is returned when a directory has no regular files to pack.
	ErrEmptyDirectory = errors.New("tsar: no files to pack")

	// ErrUnsafePath is returned when a payload entry would escape the
	// extraction directory or is not a regular file or directory.
	ErrUnsafePath = errors.New("tsar: unsafe path in payload")

	// ErrUnknownCompression is returned when a payload is neither gzip nor zstd.
	ErrUnknownCompression = errors.New("tsar: unknown payload compression")

	// ErrTooManyFiles is returned when a payload holds more entries than allowed.
	ErrTooManyFiles = errors.New("tsar: too many files")

	// ErrTooLarge is returned when unpacked content exceeds the size limit.
	ErrTooLarge = errors.New("tsar: unpacked payload too large")

	// ErrSymlink is returned when a symlink is encountered while packing.
	ErrSymlink = platform.ErrSymlink
)
