package archive

import (
	"bytes"
	// Registers SHA-256 for go-digest.
	_ "crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"unicode"
	"unicode/utf8"

	"github.com/opencontainers/go-digest"
)

const (
	// Magic identifies a tsar archive.
	Magic = "TSAR\r\n\x1a\n"

	// Version is the only format version this package reads and writes.
	Version uint16 = 1

	// MaxRoleLength is the maximum length of a role name in bytes.
	MaxRoleLength = 255

	// MaxRoles is the maximum number of roles in one manifest.
	MaxRoles = math.MaxUint16

	// maxDigestLength fits the uint8 length prefix.
	maxDigestLength = math.MaxUint8
)

// Manifest describes a signed payload.
type Manifest struct {
	// Version is the container format version.
	Version uint16

	// Roles are the capabilities the payload requires, deduplicated and in
	// first-seen order. Order carries no meaning for grants.
	Roles []string

	// PayloadSize is the payload length in bytes.
	PayloadSize uint64

	// PayloadDigest is the digest of the payload.
	PayloadDigest digest.Digest
}

// NewManifest returns a manifest for payload requiring roles.
// Duplicate roles are dropped.
func NewManifest(roles []string, payload []byte) (Manifest, error) {
	normalized, err := NormalizeRoles(roles)
	if err != nil {
		return Manifest{}, err
	}
	return Manifest{
		Version:       Version,
		Roles:         normalized,
		PayloadSize:   uint64(len(payload)),
		PayloadDigest: digest.FromBytes(payload),
	}, nil
}

// ValidateRole reports whether role can be stored in a manifest.
func ValidateRole(role string) error {
	switch {
	case role == "":
		return fmt.Errorf("%w: empty role", ErrMalformedManifest)
	case len(role) > MaxRoleLength:
		return fmt.Errorf("%w: role longer than %d bytes", ErrMalformedManifest, MaxRoleLength)
	case !utf8.ValidString(role):
		return fmt.Errorf("%w: role %q is not valid UTF-8", ErrMalformedManifest, role)
	}
	for _, r := range role {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: role %q contains whitespace or control characters", ErrMalformedManifest, role)
		}
	}
	return nil
}

// NormalizeRoles validates roles and removes duplicates, keeping the first
// occurrence of each.
func NormalizeRoles(roles []string) ([]string, error) {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if err := ValidateRole(role); err != nil {
			return nil, err
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	if len(out) > MaxRoles {
		return nil, fmt.Errorf("%w: %d roles exceeds limit of %d", ErrMalformedManifest, len(out), MaxRoles)
	}
	return out, nil
}

// HasRole reports whether the manifest lists role.
func (m *Manifest) HasRole(role string) bool {
	return slices.Contains(m.Roles, role)
}

// validate checks the fields a decoder would reject.
func (m *Manifest) validate() error {
	if m.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}
	if len(m.Roles) > MaxRoles {
		return fmt.Errorf("%w: %d roles exceeds limit of %d", ErrMalformedManifest, len(m.Roles), MaxRoles)
	}
	seen := make(map[string]struct{}, len(m.Roles))
	for _, role := range m.Roles {
		if err := ValidateRole(role); err != nil {
			return err
		}
		if _, ok := seen[role]; ok {
			return fmt.Errorf("%w: duplicate role %q", ErrMalformedManifest, role)
		}
		seen[role] = struct{}{}
	}
	if err := m.PayloadDigest.Validate(); err != nil {
		return fmt.Errorf("%w: payload digest: %v", ErrMalformedManifest, err)
	}
	if len(m.PayloadDigest) > maxDigestLength {
		return fmt.Errorf("%w: payload digest too long", ErrMalformedManifest)
	}
	return nil
}

// MarshalBinary returns the manifest bytes: the signed portion of the
// container from the version field through the payload digest.
func (m Manifest) MarshalBinary() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(2 + 2 + 8 + 1 + len(m.PayloadDigest) + len(m.Roles)*16)

	buf.Write(binary.BigEndian.AppendUint16(nil, m.Version))
	buf.Write(binary.BigEndian.AppendUint16(nil, uint16(len(m.Roles)))) //nolint:gosec // bounded by validate
	for _, role := range m.Roles {
		buf.Write(binary.BigEndian.AppendUint16(nil, uint16(len(role)))) //nolint:gosec // bounded by validate
		buf.WriteString(role)
	}
	buf.Write(binary.BigEndian.AppendUint64(nil, m.PayloadSize))
	buf.WriteByte(byte(len(m.PayloadDigest)))
	buf.WriteString(string(m.PayloadDigest))
	return buf.Bytes(), nil
}
