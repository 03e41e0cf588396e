package tsar

import (
	"context"
	"fmt"
	"os"

	"github.com/meigma/tsar/archive"
	"github.com/meigma/tsar/keys"
	"github.com/meigma/tsar/runlist"
)

// CompileResult describes an archive written by Compile.
type CompileResult struct {
	// Manifest is the signed manifest.
	Manifest archive.Manifest

	// PublicKey verifies the archive.
	PublicKey keys.PublicKey

	// Size is the encoded archive size in bytes.
	Size int

	// Output is the path written, or empty when the archive went to stdout.
	Output string
}

// Compile packs dir into an archive requiring roles, signs it with the key
// derived from seed and writes it to outputPath. An empty outputPath writes
// the archive to the pipeline's stdout.
//
// The signed archive is verified and extracted into a scratch directory and
// its run-list validated there before anything is written, so an archive
// that could never run is never produced. The output file is
// replaced atomically and is not created on failure.
func (p *Pipeline) Compile(ctx context.Context, dir, outputPath string, seed keys.Seed, roles []string) (*CompileResult, error) {
	roles, err := archive.NormalizeRoles(roles)
	if err != nil {
		return nil, err
	}

	payload, err := p.packer.Pack(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", dir, err)
	}
	m, err := archive.NewManifest(roles, payload)
	if err != nil {
		return nil, err
	}
	kp, err := keys.DeriveKeyPair(seed)
	if err != nil {
		return nil, err
	}
	sig, _, err := archive.SignManifest(kp.Private, m, payload)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	data, err := archive.Encode(m, sig, payload)
	if err != nil {
		return nil, err
	}
	if err := p.checkRunnable(ctx, data, kp.Public); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := writeOutput(p.stdout, outputPath, data, 0o644); err != nil {
		return nil, err
	}

	p.log().InfoContext(ctx, "archive compiled",
		"dir", dir,
		"output", displayOutput(outputPath),
		"roles", m.Roles,
		"size", len(data))
	return &CompileResult{
		Manifest:  m,
		PublicKey: kp.Public,
		Size:      len(data),
		Output:    outputPath,
	}, nil
}

// checkRunnable validates the run-list of the encoded archive as Run would
// see it. Entries the packer skipped are absent from the extracted tree.
func (p *Pipeline) checkRunnable(ctx context.Context, data []byte, pub keys.PublicKey) error {
	c, err := archive.Decode(data)
	if err != nil {
		return err
	}
	v, err := archive.Verify(pub, c)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp(p.tempDir, "tsh-compile-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			p.log().WarnContext(ctx, "failed to remove scratch directory", "dir", dir, "error", rmErr)
		}
	}()
	if err := p.unpacker.Unpack(ctx, v, dir); err != nil {
		return fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return runlist.Validate(dir, v.Roles())
}

func displayOutput(path string) string {
	if path == "" {
		return "<stdout>"
	}
	return path
}
