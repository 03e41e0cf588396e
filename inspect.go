package tsar

import (
	"context"

	"github.com/meigma/tsar/archive"
	"github.com/meigma/tsar/keys"
)

// Inspect verifies the archive at archivePath against pub and writes its
// payload to outputPath.
//
// An empty archivePath reads the archive from the pipeline's stdin and an
// empty outputPath writes the payload to its stdout. Nothing is written
// unless the signature verifies; a file output is replaced atomically.
func (p *Pipeline) Inspect(ctx context.Context, archivePath string, pub keys.PublicKey, outputPath string) (*archive.Manifest, error) {
	v, err := p.load(ctx, archivePath, pub)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := writeOutput(p.stdout, outputPath, v.Payload(), 0o644); err != nil {
		return nil, err
	}
	m := v.Manifest()
	return &m, nil
}
