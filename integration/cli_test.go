//go:build integration

package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tsar/internal/cli"
)

func tsh(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, nil, 0o644))

	var stdout, stderr bytes.Buffer
	code := cli.Run(context.Background(), append([]string{"--config", cfg}, args...), strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI_PushPull(t *testing.T) {
	t.Parallel()

	addr := getRegistry(t)
	a := compileArchive(t, helloTree, "network")
	ref := testRef(addr, "cli")

	code, stdout, stderr := tsh(t, "push", "--plain-http", "--anonymous", "-k", a.Pub.String(), a.Path, ref)
	require.Equal(t, cli.ExitOK, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "sha256:"), stdout)

	out := filepath.Join(t.TempDir(), "pulled.tsar")
	code, _, stderr = tsh(t, "pull", "--plain-http", "--anonymous", "-k", a.Pub.String(), "-o", out, ref)
	require.Equal(t, cli.ExitOK, code, stderr)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, a.Data, got)
}

func TestCLI_PullWrongKeyWritesNothing(t *testing.T) {
	t.Parallel()

	addr := getRegistry(t)
	a := compileArchive(t, helloTree, "network")
	other := compileArchive(t, helloTree, "network")
	ref := testRef(addr, "cli-wrong-key")

	code, _, stderr := tsh(t, "push", "--plain-http", "--anonymous", a.Path, ref)
	require.Equal(t, cli.ExitOK, code, stderr)

	out := filepath.Join(t.TempDir(), "pulled.tsar")
	code, _, _ = tsh(t, "pull", "--plain-http", "--anonymous", "-k", other.Pub.String(), "-o", out, ref)
	assert.Equal(t, cli.ExitSignature, code)
	assert.NoFileExists(t, out)
}

func TestCLI_PullMissing(t *testing.T) {
	t.Parallel()

	addr := getRegistry(t)
	code, _, stderr := tsh(t, "pull", "--plain-http", "--anonymous", testRef(addr, "cli-missing"))
	assert.Equal(t, cli.ExitFailure, code)
	assert.True(t, strings.HasPrefix(stderr, "tsh: "), stderr)
}
