package tsar

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/tsar/archive"
	"github.com/meigma/tsar/keys"
)

var errEmptyPath = errors.New("tsar: empty archive path")

// VerifyResult is the outcome of verifying one archive.
type VerifyResult struct {
	// Path is the archive path as given.
	Path string

	// Manifest is the verified manifest, or nil when Err is set.
	Manifest *archive.Manifest

	// Err is the decode or verification error, if any.
	Err error
}

// OK reports whether the archive verified.
func (r VerifyResult) OK() bool {
	return r.Err == nil
}

// VerifyFiles verifies each archive in paths against pub.
//
// Archives are checked concurrently, bounded by WithConcurrency. Results are
// returned in the order of paths; a failing archive is reported in its
// result and does not stop the others. The returned error is non-nil only
// when ctx is canceled.
func (p *Pipeline) VerifyFiles(ctx context.Context, pub keys.PublicKey, paths ...string) ([]VerifyResult, error) {
	results := make([]VerifyResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.verifyFile(gctx, pub, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) verifyFile(ctx context.Context, pub keys.PublicKey, path string) VerifyResult {
	res := VerifyResult{Path: path}
	if path == "" {
		res.Err = errEmptyPath
		return res
	}
	v, err := p.load(ctx, path, pub)
	if err != nil {
		res.Err = err
		return res
	}
	m := v.Manifest()
	res.Manifest = &m
	return res
}
