package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`allowedRoles: [network, fs-read]
allowAllRoles: false
maxArchiveSize: 1048576
compression: zstd
registry:
  plainHTTP: true
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"network", "fs-read"}, cfg.AllowedRoles)
	assert.Equal(t, int64(1048576), cfg.MaxArchiveSize)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.True(t, cfg.Registry.PlainHTTP)
	assert.False(t, cfg.Registry.Anonymous)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "missing explicit file", path: filepath.Join(dir, "missing.yaml")},
		{name: "unknown field", path: write("unknown.yaml", "allowRoles: [network]\n")},
		{name: "wrong type", path: write("type.yaml", "maxArchiveSize: lots\n")},
		{name: "negative size", path: write("negative.yaml", "maxArchiveSize: -1\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfig(tt.path)
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_DefaultPathMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadConfig_DefaultPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "tsh"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "tsh", "config.yaml"), []byte("allowAllRoles: true\n"), 0o644))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.AllowAllRoles)
}
