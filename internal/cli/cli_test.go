package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tsar/internal/testutil"
	"github.com/meigma/tsar/keys"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// tsh runs the command tree with an empty configuration file.
func tsh(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0o644))
	return tshWithConfig(t, cfg, stdin, args...)
}

func tshWithConfig(t *testing.T, cfg, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", cfg}, args...)
	code := Run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// fixture is a seedfile, its public key and a compiled archive.
type fixture struct {
	seedPath string
	pub      string
	archive  string
	src      string
}

func newFixture(t *testing.T, roles ...string) fixture {
	t.Helper()
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "tsar.seed")
	res := tsh(t, "", "keytool", "-o", seedPath)
	require.Equal(t, ExitOK, res.code, res.stderr)
	pub := strings.TrimSpace(res.stdout)

	src := filepath.Join(dir, "src")
	testutil.WriteTree(t, src, map[string]testutil.File{
		"hello/package.yaml": {Content: "name: hello\nversion: \"1.0\"\n"},
		"hello/main.sh":      testutil.Script(`echo "hello $1"`),
		"roles/network.yaml": {Content: "dependencies: [hello]\n"},
		"data/readme.txt":    {Content: "readme"},
	})

	archivePath := filepath.Join(dir, "hello.tsar")
	res = tsh(t, "", append([]string{"compile", "-s", seedPath, "-d", src, "-o", archivePath}, roles...)...)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Empty(t, res.stdout)

	return fixture{seedPath: seedPath, pub: pub, archive: archivePath, src: src}
}

func TestKeytool_GenerateToStdout(t *testing.T) {
	t.Parallel()

	res := tsh(t, "", "keytool")
	require.Equal(t, ExitOK, res.code, res.stderr)
	seed, err := keys.ParseSeedFile(strings.NewReader(res.stdout))
	require.NoError(t, err)

	pub, err := keys.DerivePublicKey(seed)
	require.NoError(t, err)
	res = tsh(t, res.stdout, "keytool", "-")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, pub.String()+"\n", res.stdout)
}

func TestKeytool_GenerateToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tsar.seed")
	res := tsh(t, "", "keytool", "-o", path)
	require.Equal(t, ExitOK, res.code, res.stderr)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again := tsh(t, "", "keytool", path)
	require.Equal(t, ExitOK, again.code, again.stderr)
	assert.Equal(t, res.stdout, again.stdout)

	overwrite := tsh(t, "", "keytool", "-o", path)
	assert.Equal(t, ExitFailure, overwrite.code)
	assert.True(t, strings.HasPrefix(overwrite.stderr, "tsh: "))
}

func TestKeytool_Errors(t *testing.T) {
	t.Parallel()

	corrupt := filepath.Join(t.TempDir(), "corrupt.seed")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a seedfile\n"), 0o600))

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "output and argument", args: []string{"keytool", "-o", "x", "y"}, want: ExitUsage},
		{name: "too many arguments", args: []string{"keytool", "a", "b"}, want: ExitUsage},
		{name: "corrupt seedfile", args: []string{"keytool", corrupt}, want: ExitFailure},
		{name: "missing seedfile", args: []string{"keytool", filepath.Join(t.TempDir(), "missing")}, want: ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := tsh(t, "", tt.args...)
			assert.Equal(t, tt.want, res.code, res.stderr)
			assert.Equal(t, 1, strings.Count(res.stderr, "\n"), "single error line")
		})
	}
}

func TestCompileInspect(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network")
	payload := filepath.Join(t.TempDir(), "payload.tar.gz")

	res := tsh(t, "", "inspect", "-k", f.pub, "-o", payload, f.archive)
	require.Equal(t, ExitOK, res.code, res.stderr)
	info, err := os.Stat(payload)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// Archive from stdin, payload to stdout.
	data, err := os.ReadFile(f.archive)
	require.NoError(t, err)
	res = tsh(t, string(data), "inspect", "-k", f.pub)
	require.Equal(t, ExitOK, res.code, res.stderr)
	want, err := os.ReadFile(payload)
	require.NoError(t, err)
	assert.Equal(t, string(want), res.stdout)
}

func TestCompile_ToStdout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network")
	res := tsh(t, "", "compile", "-s", f.seedPath, "-d", f.src, "--compression", "zstd", "network")
	require.Equal(t, ExitOK, res.code, res.stderr)

	verify := tsh(t, res.stdout, "inspect", "-k", f.pub, "-o", filepath.Join(t.TempDir(), "p"))
	assert.Equal(t, ExitOK, verify.code, verify.stderr)
}

func TestCompile_UsageErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network")
	tests := []struct {
		name string
		args []string
	}{
		{name: "no roles", args: []string{"compile", "-s", f.seedPath, "-d", f.src}},
		{name: "no seedfile", args: []string{"compile", "-d", f.src, "network"}},
		{name: "bad compression", args: []string{"compile", "-s", f.seedPath, "--compression", "lz4", "network"}},
		{name: "unknown flag", args: []string{"compile", "--bogus", "network"}},
		{name: "unknown command", args: []string{"bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := tsh(t, "", tt.args...)
			assert.Equal(t, ExitUsage, res.code, res.stderr)
		})
	}
}

func TestInspect_Failures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network")
	other := newFixture(t, "network")
	garbage := filepath.Join(t.TempDir(), "garbage.tsar")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a tsar archive"), 0o644))

	tests := []struct {
		name    string
		key     string
		archive string
		want    int
	}{
		{name: "wrong key", key: other.pub, archive: f.archive, want: ExitSignature},
		{name: "malformed archive", key: f.pub, archive: garbage, want: ExitMalformed},
		{name: "invalid key", key: "not-base64!", archive: f.archive, want: ExitFailure},
		{name: "missing key", key: "", archive: f.archive, want: ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := filepath.Join(t.TempDir(), "payload")
			args := []string{"inspect", "-o", out, tt.archive}
			if tt.key != "" {
				args = append(args, "-k", tt.key)
			}
			res := tsh(t, "", args...)
			assert.Equal(t, tt.want, res.code, res.stderr)
			assert.True(t, strings.HasPrefix(res.stderr, "tsh: "), res.stderr)
			assert.NoFileExists(t, out)
		})
	}
}

func TestRun_RoleDenied(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network", "fs-write")
	res := tsh(t, "", "run", "-k", f.pub, "--allow", "network", f.archive)
	assert.Equal(t, ExitRoleDenied, res.code)
	assert.Contains(t, res.stderr, "fs-write")
	assert.Empty(t, res.stdout)
}

func TestVerify_Table(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network")
	other := newFixture(t, "network")

	res := tsh(t, "", "verify", "-k", f.pub, f.archive)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "ARCHIVE")
	assert.Contains(t, res.stdout, "verified")
	assert.Contains(t, res.stdout, "network")
	assert.Contains(t, res.stdout, "sha256:")

	res = tsh(t, "", "verify", "-k", f.pub, "--concurrency", "1", f.archive, other.archive)
	assert.Equal(t, ExitSignature, res.code)
	assert.Contains(t, res.stdout, "failed")
	assert.Contains(t, res.stderr, "1 of 2 archives failed verification")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	res := tsh(t, "", "--version")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "tsh "), res.stdout)
	assert.Contains(t, res.stdout, "go1.")
}

func TestConfig_InvalidFile(t *testing.T) {
	t.Parallel()

	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("unknownKey: true\n"), 0o644))

	res := tshWithConfig(t, cfg, "", "keytool")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "parse config")
}
