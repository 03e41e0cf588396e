package pack

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/tsar/archive"
	"github.com/meigma/tsar/internal/ioutil"
	"github.com/meigma/tsar/internal/platform"
)

// Unpack extracts a verified payload into dest, which must exist.
//
// Every entry is resolved inside dest through an os.Root; absolute paths,
// parent references and non-regular entries are ErrUnsafePath. Existing
// files are never overwritten.
func (p *Packer) Unpack(ctx context.Context, v *archive.Verified, dest string) error {
	if v == nil {
		return errors.New("tsar: unpack: nil payload")
	}
	return p.unpack(ctx, v.Payload(), dest)
}

func (p *Packer) unpack(ctx context.Context, payload []byte, dest string) error {
	root, err := os.OpenRoot(dest)
	if err != nil {
		return err
	}
	defer root.Close()

	r, closeFn, err := decompressor(payload)
	if err != nil {
		return err
	}
	defer closeFn()

	maxFiles := p.fileLimit()
	limit := p.maxUnpackedSize
	if limit == 0 {
		limit = DefaultMaxUnpackedSize
	}

	var (
		count   int
		written int64
		buf     = make([]byte, 32*1024)
	)
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}

		name, err := entryPath(hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if name == "." {
				continue
			}
			if err := root.MkdirAll(name, 0o750); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrUnsafePath, hdr.Name, err)
			}
		case tar.TypeReg:
			if maxFiles > 0 && count >= maxFiles {
				return ErrTooManyFiles
			}
			if hdr.Size < 0 || (limit > 0 && hdr.Size > limit-written) {
				return fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, limit)
			}
			if err := p.writeEntry(ctx, root, tr, name, hdr, buf); err != nil {
				return err
			}
			count++
			written += hdr.Size
		default:
			return fmt.Errorf("%w: %s has unsupported type %q", ErrUnsafePath, hdr.Name, hdr.Typeflag)
		}
	}

	p.log().Debug("unpacked payload", "dest", dest, "file_count", count, "bytes", written)
	return nil
}

func (p *Packer) writeEntry(ctx context.Context, root *os.Root, r io.Reader, name string, hdr *tar.Header, buf []byte) error {
	if dir := path.Dir(name); dir != "." {
		if err := root.MkdirAll(filepath.FromSlash(dir), 0o750); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnsafePath, hdr.Name, err)
		}
	}

	perm := fs.FileMode(hdr.Mode).Perm() &^ 0o022 //nolint:gosec // masked to permission bits
	f, err := platform.CreateFileNoFollow(root, filepath.FromSlash(name), perm)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnsafePath, hdr.Name, err)
	}
	if err := ioutil.CopyN(ctx, f, r, hdr.Size, buf); err != nil {
		f.Close()
		return fmt.Errorf("extract %s: %w", hdr.Name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("extract %s: %w", hdr.Name, err)
	}
	// Creation mode is subject to umask; restore the recorded bits.
	if err := root.Chmod(filepath.FromSlash(name), perm); err != nil {
		return fmt.Errorf("extract %s: %w", hdr.Name, err)
	}
	return nil
}

// entryPath cleans a tar entry name and rejects names that could resolve
// outside the extraction root.
func entryPath(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) || strings.Contains(name, `\`) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: absolute path %q", ErrUnsafePath, name)
	}
	for _, elem := range strings.Split(strings.TrimSuffix(name, "/"), "/") {
		if elem == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
		}
	}
	cleaned := path.Clean(name)
	if !fs.ValidPath(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return cleaned, nil
}

func decompressor(payload []byte) (io.Reader, func(), error) {
	c, err := detectCompression(payload)
	if err != nil {
		return nil, nil, err
	}
	switch c {
	case CompressionZstd:
		dec, err := zstd.NewReader(bytes.NewReader(payload), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		return dec, dec.Close, nil
	default:
		gz, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	}
}
