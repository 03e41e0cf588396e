package archive

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/opencontainers/go-digest"
)

// SignatureSize is the length of an archive signature in bytes.
const SignatureSize = ed25519.SignatureSize

// Container is a decoded but unverified archive.
//
// The payload is held privately; call Verify to obtain a *Verified that
// exposes it.
type Container struct {
	manifest      Manifest
	manifestBytes []byte
	signature     []byte
	payload       []byte
}

// Manifest returns the decoded manifest. Its contents are not trusted until
// Verify succeeds.
func (c *Container) Manifest() Manifest {
	m := c.manifest
	m.Roles = append([]string(nil), c.manifest.Roles...)
	return m
}

// ManifestBytes returns the raw manifest bytes covered by the signature.
// The returned slice aliases the container and must be treated as immutable.
func (c *Container) ManifestBytes() []byte {
	return c.manifestBytes
}

// Signature returns the raw signature bytes.
// The returned slice aliases the container and must be treated as immutable.
func (c *Container) Signature() []byte {
	return c.signature
}

// Size returns the encoded size of the container in bytes.
func (c *Container) Size() int {
	return len(Magic) + len(c.manifestBytes) + len(c.signature) + len(c.payload)
}

// Encode serializes an archive. payload must match m's size and digest and
// sig must be a full-length signature; Encode does not check that sig
// verifies.
func Encode(m Manifest, sig, payload []byte) ([]byte, error) {
	if len(sig) != SignatureSize {
		return nil, fmt.Errorf("tsar: encode: signature is %d bytes, want %d", len(sig), SignatureSize)
	}
	if m.PayloadSize != uint64(len(payload)) {
		return nil, fmt.Errorf("tsar: encode: payload is %d bytes, manifest declares %d", len(payload), m.PayloadSize)
	}
	if m.PayloadDigest != digest.FromBytes(payload) {
		return nil, fmt.Errorf("tsar: encode: payload does not match manifest digest %s", m.PayloadDigest)
	}
	manifestBytes, err := m.MarshalBinary()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(Magic)+len(manifestBytes)+len(sig)+len(payload))
	out = append(out, Magic...)
	out = append(out, manifestBytes...)
	out = append(out, sig...)
	out = append(out, payload...)
	return out, nil
}

// Decode parses an archive without performing any cryptographic checks.
//
// The returned container retains data; callers must not modify it after
// calling Decode.
func Decode(data []byte) (c *Container, err error) {
	defer func() {
		if r := recover(); r != nil {
			c = nil
			err = fmt.Errorf("%w: %v", ErrMalformedManifest, r)
		}
	}()

	n := min(len(data), len(Magic))
	if !bytes.Equal(data[:n], []byte(Magic[:n])) {
		return nil, ErrBadMagic
	}
	if n < len(Magic) {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the magic", ErrTruncated, len(data))
	}

	d := decoder{buf: data, off: len(Magic)}
	m, err := d.manifest()
	if err != nil {
		return nil, err
	}
	manifestBytes := data[len(Magic):d.off]

	sig, err := d.next(SignatureSize, "signature")
	if err != nil {
		return nil, err
	}

	rest := uint64(len(data) - d.off)
	switch {
	case rest < m.PayloadSize:
		return nil, fmt.Errorf("%w: payload has %d of %d bytes", ErrTruncated, rest, m.PayloadSize)
	case rest > m.PayloadSize:
		return nil, fmt.Errorf("%w: %d bytes after payload", ErrMalformedManifest, rest-m.PayloadSize)
	}

	return &Container{
		manifest:      m,
		manifestBytes: manifestBytes,
		signature:     sig,
		payload:       data[d.off:],
	}, nil
}

// ReadContainer reads at most limit bytes from r and decodes them.
// Input longer than limit is rejected with ErrTooLarge. A limit of zero or
// less disables the bound.
func ReadContainer(r io.Reader, limit int64) (*Container, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, limit)
	}
	return Decode(data)
}

// decoder walks the manifest fields. Every read past the end of buf is
// ErrTruncated.
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) next(n int, field string) ([]byte, error) {
	if n < 0 || len(d.buf)-d.off < n {
		return nil, fmt.Errorf("%w: %s", ErrTruncated, field)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) u8(field string) (uint8, error) {
	b, err := d.next(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16(field string) (uint16, error) {
	b, err := d.next(2, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u64(field string) (uint64, error) {
	b, err := d.next(8, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) manifest() (Manifest, error) {
	var m Manifest

	version, err := d.u16("version")
	if err != nil {
		return m, err
	}
	if version != Version {
		return m, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	m.Version = version

	count, err := d.u16("role count")
	if err != nil {
		return m, err
	}
	m.Roles = make([]string, 0, min(int(count), 64))
	seen := make(map[string]struct{}, min(int(count), 64))
	for i := range int(count) {
		n, err := d.u16("role length")
		if err != nil {
			return m, err
		}
		raw, err := d.next(int(n), fmt.Sprintf("role %d", i))
		if err != nil {
			return m, err
		}
		role := string(raw)
		if err := ValidateRole(role); err != nil {
			return m, err
		}
		if _, ok := seen[role]; ok {
			return m, fmt.Errorf("%w: duplicate role %q", ErrMalformedManifest, role)
		}
		seen[role] = struct{}{}
		m.Roles = append(m.Roles, role)
	}

	if m.PayloadSize, err = d.u64("payload size"); err != nil {
		return m, err
	}

	n, err := d.u8("digest length")
	if err != nil {
		return m, err
	}
	raw, err := d.next(int(n), "digest")
	if err != nil {
		return m, err
	}
	if !utf8.Valid(raw) {
		return m, fmt.Errorf("%w: digest is not valid UTF-8", ErrMalformedManifest)
	}
	m.PayloadDigest = digest.Digest(raw)
	if err := m.PayloadDigest.Validate(); err != nil {
		return m, fmt.Errorf("%w: payload digest: %v", ErrMalformedManifest, err)
	}
	return m, nil
}
