// Package pack converts a directory tree to and from a compressed tar payload.
package pack

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/tsar/internal/ioutil"
	"github.com/meigma/tsar/internal/platform"
)

// epoch is the modification time recorded for every entry so that packing
// the same tree twice yields identical bytes.
var epoch = time.Unix(0, 0).UTC()

// Packer creates and extracts payloads.
type Packer struct {
	compression     Compression
	maxFiles        int
	maxUnpackedSize int64
	includeHidden   bool
	logger          *slog.Logger
}

// New creates a Packer with the given options.
func New(opts ...Option) *Packer {
	p := &Packer{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Packer) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

func (p *Packer) fileLimit() int {
	if p.maxFiles == 0 {
		return DefaultMaxFiles
	}
	return p.maxFiles
}

// Pack builds a compressed tar payload from the contents of dir.
//
// Regular files are stored in lexical path order with their permission bits;
// ownership and timestamps are normalized. Empty directories are not
// preserved. Symbolic links are skipped, as are dot-files and
// dot-directories unless WithIncludeHidden is set. A tree with no regular
// files is ErrEmptyDirectory.
func (p *Packer) Pack(ctx context.Context, dir string) ([]byte, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	p.log().Info("packing directory", "dir", dir, "compression", p.compression.String())

	var buf bytes.Buffer
	cw, err := p.compressor(&buf)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(cw)

	count, err := p.writeTree(ctx, root, tw)
	if err != nil {
		cw.Close()
		return nil, err
	}
	if count == 0 {
		cw.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmptyDirectory, dir)
	}
	if err := tw.Close(); err != nil {
		cw.Close()
		return nil, fmt.Errorf("finish tar: %w", err)
	}
	if err := cw.Close(); err != nil {
		return nil, fmt.Errorf("finish %s stream: %w", p.compression, err)
	}

	p.log().Debug("packed directory", "file_count", count, "payload_size", buf.Len())
	return buf.Bytes(), nil
}

func (p *Packer) compressor(w io.Writer) (io.WriteCloser, error) {
	switch p.compression {
	case CompressionGzip:
		gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return nil, fmt.Errorf("create gzip writer: %w", err)
		}
		return gz, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, p.compression)
	}
}

// writeTree walks root and appends each regular file to tw.
func (p *Packer) writeTree(ctx context.Context, root *os.Root, tw *tar.Writer) (int, error) {
	count := 0
	maxFiles := p.fileLimit()
	buf := make([]byte, 32*1024)

	err := fs.WalkDir(root.FS(), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != "." && !p.includeHidden && strings.HasPrefix(d.Name(), ".") {
			p.log().Debug("skipped hidden entry", "path", path)
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			p.log().Debug("skipped symlink", "path", path)
			return nil
		}
		if !d.Type().IsRegular() {
			p.log().Debug("skipped non-regular file", "path", path)
			return nil
		}
		if maxFiles > 0 && count >= maxFiles {
			return ErrTooManyFiles
		}

		err := p.writeFile(ctx, root, tw, path, buf)
		if errors.Is(err, platform.ErrSymlink) {
			p.log().Debug("skipped symlink", "path", path)
			return nil
		}
		if err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func (p *Packer) writeFile(ctx context.Context, root *os.Root, tw *tar.Writer, path string, buf []byte) error {
	f, err := platform.OpenFileNoFollow(root, filepath.FromSlash(path))
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     path,
		Mode:     int64(info.Mode().Perm()),
		Size:     info.Size(),
		ModTime:  epoch,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header for %s: %w", path, err)
	}
	if err := ioutil.CopyN(ctx, tw, f, info.Size(), buf); err != nil {
		return fmt.Errorf("pack %s: %w", path, err)
	}
	return nil
}
