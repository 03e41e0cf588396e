package keys

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

const (
	seedFileHeader = "---------- THIS IS YOUR PRIVATE SEED FILE ----------"
	seedFileFooter = "------------- DO NOT SHARE IT PUBLICLY -------------"

	// encoded seed (44) + encoded CRC (8)
	seedLineLength = 52
	seedB64Length  = 44

	// maxSeedFileSize bounds how much of a reader ParseSeedFile consumes.
	maxSeedFileSize = 4 << 10
)

// MarshalSeedFile returns the seedfile text for seed, including a trailing newline.
func MarshalSeedFile(seed Seed) []byte {
	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], crc32.ChecksumIEEE(seed[:]))

	var buf bytes.Buffer
	buf.WriteString(seedFileHeader)
	buf.WriteByte('\n')
	buf.WriteString(base64.StdEncoding.EncodeToString(seed[:]))
	buf.WriteString(base64.StdEncoding.EncodeToString(crc[:]))
	buf.WriteByte('\n')
	buf.WriteString(seedFileFooter)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// ParseSeedFile reads seedfile text from r and returns the seed.
//
// Every validation failure wraps ErrCorruptSeed. The derived keypair is
// self-tested before the seed is returned.
func ParseSeedFile(r io.Reader) (Seed, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSeedFileSize+1))
	if err != nil {
		return Seed{}, fmt.Errorf("%w: couldn't read: %v", ErrCorruptSeed, err)
	}
	if len(data) > maxSeedFileSize {
		return Seed{}, fmt.Errorf("%w: file too large", ErrCorruptSeed)
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return Seed{}, fmt.Errorf("%w: couldn't read: %v", ErrCorruptSeed, err)
	}

	if len(lines) != 3 {
		return Seed{}, fmt.Errorf("%w: not 3 lines", ErrCorruptSeed)
	}
	if lines[0] != seedFileHeader {
		return Seed{}, fmt.Errorf("%w: invalid line 1", ErrCorruptSeed)
	}
	if lines[2] != seedFileFooter {
		return Seed{}, fmt.Errorf("%w: invalid line 3", ErrCorruptSeed)
	}

	line := lines[1]
	if len(line) != seedLineLength {
		return Seed{}, fmt.Errorf("%w: line 2 has wrong length", ErrCorruptSeed)
	}

	seedBytes, err := base64.StdEncoding.Strict().DecodeString(line[:seedB64Length])
	if err != nil {
		return Seed{}, fmt.Errorf("%w: seed failed base64 decode", ErrCorruptSeed)
	}
	crcBytes, err := base64.StdEncoding.Strict().DecodeString(line[seedB64Length:])
	if err != nil || len(crcBytes) != 4 {
		return Seed{}, fmt.Errorf("%w: CRC failed base64 decode", ErrCorruptSeed)
	}
	if binary.BigEndian.Uint32(crcBytes) != crc32.ChecksumIEEE(seedBytes) {
		return Seed{}, fmt.Errorf("%w: CRC does not match", ErrCorruptSeed)
	}

	seed, err := SeedFromBytes(seedBytes)
	if err != nil {
		return Seed{}, err
	}
	if _, err := DeriveKeyPair(seed); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

// ReadSeedFile parses the seedfile at path.
func ReadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open seedfile: %w", err)
	}
	defer f.Close()

	seed, err := ParseSeedFile(f)
	if err != nil {
		return Seed{}, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

// WriteSeedFile writes seed to a new file at path with mode 0600.
// It refuses to replace an existing file.
func WriteSeedFile(path string, seed Seed) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("write seedfile: %s already exists", path)
		}
		return fmt.Errorf("write seedfile: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("write seedfile: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if _, err := f.Write(MarshalSeedFile(seed)); err != nil {
		return fmt.Errorf("write seedfile: %w", err)
	}
	return nil
}
