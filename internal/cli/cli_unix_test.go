//go:build unix

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Executes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network")
	res := tsh(t, "", "run", "-k", f.pub, "--allow", "network", f.archive)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "hello \n", res.stdout)
}

func TestRun_MirrorsChildExitCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network")
	require.NoError(t, os.WriteFile(filepath.Join(f.src, "hello", "main.sh"), []byte("#!/bin/sh\nexit 42\n"), 0o755))
	archivePath := filepath.Join(t.TempDir(), "fail.tsar")
	res := tsh(t, "", "compile", "-s", f.seedPath, "-d", f.src, "-o", archivePath, "network")
	require.Equal(t, ExitOK, res.code, res.stderr)

	res = tsh(t, "", "run", "-k", f.pub, "--allow-all", archivePath)
	assert.Equal(t, 42, res.code)
	assert.Empty(t, res.stderr)
}

func TestRun_ConfigGrantsRoles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network")
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("allowedRoles: [network]\n"), 0o644))

	res := tshWithConfig(t, cfg, "", "run", "-k", f.pub, f.archive)
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "hello \n", res.stdout)
}
