package tsar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/meigma/tsar/archive"
	"github.com/meigma/tsar/grant"
	"github.com/meigma/tsar/internal/pack"
	"github.com/meigma/tsar/keys"
	"github.com/meigma/tsar/runner"
)

// Packer builds a payload from a directory tree.
type Packer interface {
	Pack(ctx context.Context, dir string) ([]byte, error)
}

// Unpacker extracts a verified payload into dest.
type Unpacker interface {
	Unpack(ctx context.Context, v *archive.Verified, dest string) error
}

// Executor runs an extracted payload found in dir and returns its exit code.
// A non-zero code with a nil error means the payload ran and failed.
type Executor interface {
	Execute(ctx context.Context, v *archive.Verified, dir string) (int, error)
}

// Pipeline compiles, inspects and runs archives.
//
// A Pipeline holds no per-archive state and is safe for concurrent use.
type Pipeline struct {
	packer   Packer
	unpacker Unpacker
	granter  grant.Granter
	executor Executor

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	compression    Compression
	maxArchiveSize int64
	tempDir        string
	concurrency    int

	logger   *slog.Logger
	observer func(State)
}

// New creates a Pipeline with the given options.
//
// Unset collaborators default to the tar payload packer, a granter that
// grants nothing, and a runner that executes the archive's run-list with
// the pipeline's standard streams.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		stdin:          os.Stdin,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		maxArchiveSize: DefaultMaxArchiveSize,
		concurrency:    runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if u, ok := p.packer.(Unpacker); ok && p.unpacker == nil {
		p.unpacker = u
	}
	if p.packer == nil || p.unpacker == nil {
		def := pack.New(pack.WithCompression(p.compression), pack.WithLogger(p.logger))
		if p.packer == nil {
			p.packer = def
		}
		if p.unpacker == nil {
			p.unpacker = def
		}
	}
	if p.granter == nil {
		p.granter = grant.NewAllowList()
	}
	if p.executor == nil {
		p.executor = runner.New(
			runner.WithStdio(p.stdin, p.stdout, p.stderr),
			runner.WithLogger(p.logger),
		)
	}
	return p, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Pipeline) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// enter records a transition of the archive named by source.
func (p *Pipeline) enter(ctx context.Context, source string, s State) {
	p.log().DebugContext(ctx, "pipeline state", "archive", source, "state", s.String())
	if p.observer != nil {
		p.observer(s)
	}
}

// load reads, decodes and verifies the archive at path, or stdin when path
// is empty. Any failure leaves the archive Rejected.
func (p *Pipeline) load(ctx context.Context, path string, pub keys.PublicKey) (*archive.Verified, error) {
	source := displayName(path)
	p.enter(ctx, source, StateLoaded)

	c, err := p.readContainer(ctx, path)
	if err != nil {
		p.enter(ctx, source, StateRejected)
		return nil, err
	}
	p.enter(ctx, source, StateDecoded)

	v, err := archive.Verify(pub, c)
	if err != nil {
		p.enter(ctx, source, StateRejected)
		return nil, fmt.Errorf("verify %s: %w", source, err)
	}
	p.enter(ctx, source, StateVerified)
	m := v.Manifest()
	p.log().InfoContext(ctx, "archive verified",
		"archive", source,
		"roles", m.Roles,
		"payload_digest", m.PayloadDigest.String(),
		"payload_size", m.PayloadSize)
	return v, nil
}

func (p *Pipeline) readContainer(ctx context.Context, path string) (*archive.Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		c, err := archive.ReadContainer(p.stdin, p.maxArchiveSize)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", displayName(path), err)
		}
		return c, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	c, err := archive.ReadContainer(f, p.maxArchiveSize)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return c, nil
}

func displayName(path string) string {
	if path == "" {
		return "<stdin>"
	}
	return path
}
