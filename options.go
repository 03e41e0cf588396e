package tsar

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/meigma/tsar/grant"
	"github.com/meigma/tsar/internal/pack"
)

// Option configures a Pipeline.
type Option func(*Pipeline) error

// DefaultMaxArchiveSize bounds the archives a Pipeline reads.
const DefaultMaxArchiveSize int64 = 1 << 30 // 1 GiB

// Compression identifies the payload compression used by Compile.
type Compression = pack.Compression

// Compression algorithms.
const (
	CompressionGzip = pack.CompressionGzip
	CompressionZstd = pack.CompressionZstd
)

// ParseCompression parses a compression name ("gzip" or "zstd").
// The empty string is gzip.
func ParseCompression(s string) (Compression, error) {
	return pack.ParseCompression(s)
}

// WithPacker sets the collaborator that builds payloads for Compile.
// If p also implements [Unpacker] it is used for Run as well, unless
// WithUnpacker is given.
func WithPacker(p Packer) Option {
	return func(pl *Pipeline) error {
		if p == nil {
			return errors.New("tsar: nil packer")
		}
		pl.packer = p
		return nil
	}
}

// WithUnpacker sets the collaborator that extracts verified payloads.
func WithUnpacker(u Unpacker) Option {
	return func(pl *Pipeline) error {
		if u == nil {
			return errors.New("tsar: nil unpacker")
		}
		pl.unpacker = u
		return nil
	}
}

// WithGranter sets the collaborator that decides role grants for Run.
// Without it, Run grants nothing and any archive requiring a role is denied.
func WithGranter(g grant.Granter) Option {
	return func(pl *Pipeline) error {
		if g == nil {
			return errors.New("tsar: nil granter")
		}
		pl.granter = g
		return nil
	}
}

// WithExecutor sets the collaborator that runs an extracted payload.
func WithExecutor(e Executor) Option {
	return func(pl *Pipeline) error {
		if e == nil {
			return errors.New("tsar: nil executor")
		}
		pl.executor = e
		return nil
	}
}

// WithLogger sets the logger for pipeline transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(pl *Pipeline) error {
		pl.logger = logger
		return nil
	}
}

// WithStdin sets the reader used when no archive path is given.
func WithStdin(r io.Reader) Option {
	return func(pl *Pipeline) error {
		pl.stdin = r
		return nil
	}
}

// WithStdout sets the writer used when no output path is given.
// It is also the standard output of executed packages.
func WithStdout(w io.Writer) Option {
	return func(pl *Pipeline) error {
		pl.stdout = w
		return nil
	}
}

// WithStderr sets the standard error of executed packages.
func WithStderr(w io.Writer) Option {
	return func(pl *Pipeline) error {
		pl.stderr = w
		return nil
	}
}

// WithMaxArchiveSize bounds the size of archives read by the pipeline.
// Zero or a negative value disables the bound.
func WithMaxArchiveSize(n int64) Option {
	return func(pl *Pipeline) error {
		pl.maxArchiveSize = n
		return nil
	}
}

// WithCompression selects the payload compression of the default packer.
// It has no effect when WithPacker is used.
func WithCompression(c Compression) Option {
	return func(pl *Pipeline) error {
		if c != CompressionGzip && c != CompressionZstd {
			return fmt.Errorf("%w: %d", pack.ErrUnknownCompression, c)
		}
		pl.compression = c
		return nil
	}
}

// WithTempDir sets the parent directory of Run's working directories.
// The default is [os.TempDir].
func WithTempDir(dir string) Option {
	return func(pl *Pipeline) error {
		pl.tempDir = dir
		return nil
	}
}

// WithConcurrency bounds the number of archives VerifyFiles checks at once.
func WithConcurrency(n int) Option {
	return func(pl *Pipeline) error {
		if n < 1 {
			return errors.New("tsar: concurrency must be at least 1")
		}
		pl.concurrency = n
		return nil
	}
}

// WithStateObserver registers fn to be called on every state transition.
// fn is called synchronously and must be safe for concurrent use when
// VerifyFiles is used.
func WithStateObserver(fn func(State)) Option {
	return func(pl *Pipeline) error {
		pl.observer = fn
		return nil
	}
}
