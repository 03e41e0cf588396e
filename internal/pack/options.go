package pack

import "log/slog"

const (
	// DefaultMaxFiles is the default limit on files packed or unpacked.
	DefaultMaxFiles = 200_000

	// DefaultMaxUnpackedSize is the default limit on total unpacked bytes.
	DefaultMaxUnpackedSize int64 = 8 << 30
)

// Option configures a Packer.
type Option func(*Packer)

// WithCompression sets the compression used by Pack.
// Unpack detects compression from the payload and ignores this setting.
func WithCompression(c Compression) Option {
	return func(p *Packer) {
		p.compression = c
	}
}

// WithMaxFiles limits the number of files packed or unpacked.
// Zero uses DefaultMaxFiles. Negative means no limit.
func WithMaxFiles(n int) Option {
	return func(p *Packer) {
		p.maxFiles = n
	}
}

// WithMaxUnpackedSize limits the total bytes Unpack writes.
// Zero uses DefaultMaxUnpackedSize. Negative means no limit.
func WithMaxUnpackedSize(n int64) Option {
	return func(p *Packer) {
		p.maxUnpackedSize = n
	}
}

// WithIncludeHidden includes dot-files and dot-directories when packing.
func WithIncludeHidden(include bool) Option {
	return func(p *Packer) {
		p.includeHidden = include
	}
}

// WithLogger sets the logger for pack operations.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Packer) {
		p.logger = logger
	}
}
