package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand(t *testing.T, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	RegisterLoggingFlags(cmd.Flags())
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd, &stderr
}

func TestGetBaseLogger_Defaults(t *testing.T) {
	t.Parallel()

	cmd, stderr := newCommand(t)
	logger, err := GetBaseLogger(cmd)
	require.NoError(t, err)

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	logger.Warn("careful", "key", "value")
	assert.Contains(t, stderr.String(), "msg=careful key=value")
}

func TestGetBaseLogger_JSONDebug(t *testing.T) {
	t.Parallel()

	cmd, stderr := newCommand(t, "--logformat", "json", "--loglevel", "debug")
	logger, err := GetBaseLogger(cmd)
	require.NoError(t, err)

	logger.Debug("state", "state", "verified")
	assert.Contains(t, stderr.String(), `"msg":"state"`)
	assert.Contains(t, stderr.String(), `"state":"verified"`)
}

func TestRegisterLoggingFlags_RejectsUnknown(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "test"}
	RegisterLoggingFlags(cmd.Flags())
	require.Error(t, cmd.Flags().Parse([]string{"--loglevel", "trace"}))
}
