package tsar

import (
	"context"
	"fmt"
	"os"

	"github.com/meigma/tsar/keys"
)

// Run verifies the archive at archivePath against pub, checks that every
// role it requires is granted, extracts it into a private temporary
// directory and executes it. An empty archivePath reads stdin.
//
// The returned code is the exit status of the executed payload. The working
// directory is removed before Run returns, whether it succeeds, fails or is
// canceled. Neither the unpacker nor the executor is called for an archive
// that fails verification or the role grant.
func (p *Pipeline) Run(ctx context.Context, archivePath string, pub keys.PublicKey) (int, error) {
	source := displayName(archivePath)
	v, err := p.load(ctx, archivePath, pub)
	if err != nil {
		return 1, err
	}
	if err := p.granter.Grant(ctx, v.Roles()); err != nil {
		p.enter(ctx, source, StateRejected)
		return 1, fmt.Errorf("run %s: %w", source, err)
	}

	dir, err := os.MkdirTemp(p.tempDir, "tsh-run-*")
	if err != nil {
		p.enter(ctx, source, StateFailed)
		return 1, fmt.Errorf("create working directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			p.log().WarnContext(ctx, "failed to remove working directory", "dir", dir, "error", rmErr)
		}
	}()
	if err := os.Chmod(dir, 0o700); err != nil {
		p.enter(ctx, source, StateFailed)
		return 1, fmt.Errorf("create working directory: %w", err)
	}

	if err := p.unpacker.Unpack(ctx, v, dir); err != nil {
		p.enter(ctx, source, StateFailed)
		return 1, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	p.enter(ctx, source, StateExtracted)

	p.enter(ctx, source, StateExecuting)
	code, err := p.executor.Execute(ctx, v, dir)
	if err != nil {
		p.enter(ctx, source, StateFailed)
		return code, fmt.Errorf("run %s: %w", source, err)
	}
	if code != 0 {
		p.enter(ctx, source, StateFailed)
		p.log().InfoContext(ctx, "payload exited", "archive", source, "code", code)
		return code, nil
	}
	p.enter(ctx, source, StateCompleted)
	return 0, nil
}
