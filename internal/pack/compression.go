package pack

import (
	"bytes"
	"fmt"
	"strings"
)

// Compression identifies the compression applied to the payload tar stream.
type Compression uint8

const (
	CompressionGzip Compression = iota
	CompressionZstd
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression parses a compression name. The empty string is gzip.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

// detectCompression identifies the payload compression from its leading bytes.
func detectCompression(payload []byte) (Compression, error) {
	switch {
	case bytes.HasPrefix(payload, gzipMagic):
		return CompressionGzip, nil
	case bytes.HasPrefix(payload, zstdMagic):
		return CompressionZstd, nil
	default:
		return 0, ErrUnknownCompression
	}
}
