// Package cli implements the tsh command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/tsar"
	"github.com/meigma/tsar/internal/flags/log"
)

// FlagConfig names the configuration file flag.
const FlagConfig = "config"

// version is set at build time with -ldflags "-X".
var version = ""

type ctxKey struct{}

// session holds what PersistentPreRunE prepares for every command.
type session struct {
	config *Config
	logger *slog.Logger
}

func sessionFrom(cmd *cobra.Command) *session {
	if s, ok := cmd.Context().Value(ctxKey{}).(*session); ok {
		return s
	}
	return &session{config: &Config{}, logger: slog.New(slog.DiscardHandler)}
}

// New returns the tsh root command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tsh",
		Short: "Build, verify and run signed role-tagged archives",
		Long: `tsh packages a directory into a signed .tsar archive that declares the
roles it needs, and extracts or runs such archives only after their
signature verifies against a trusted public key.`,
		Version:           buildVersion(),
		PersistentPreRunE: setup,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	cmd.SetVersionTemplate("tsh {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	cmd.PersistentFlags().String(FlagConfig, "", "path to the configuration file (default $XDG_CONFIG_HOME/tsh/config.yaml)")
	log.RegisterLoggingFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newKeytoolCommand(),
		newCompileCommand(),
		newInspectCommand(),
		newRunCommand(),
		newVerifyCommand(),
		newPushCommand(),
		newPullCommand(),
	)
	return cmd
}

// Run executes tsh with args and returns the process exit code. Errors are
// printed to stderr as a single "tsh: " line.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := New()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if !errors.As(err, &ee) {
		fmt.Fprintf(stderr, "tsh: %v\n", err)
	}
	return ExitCode(err)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger, err := log.GetBaseLogger(cmd)
	if err != nil {
		return &usageError{err: err}
	}
	path, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded", "path", path, "allowed_roles", cfg.AllowedRoles)

	cmd.SetContext(context.WithValue(cmd.Context(), ctxKey{}, &session{config: cfg, logger: logger}))
	return nil
}

// newPipeline builds a pipeline wired to the command's streams and session.
func newPipeline(cmd *cobra.Command, opts ...tsar.Option) (*tsar.Pipeline, error) {
	s := sessionFrom(cmd)
	base := []tsar.Option{
		tsar.WithLogger(s.logger),
		tsar.WithStdin(cmd.InOrStdin()),
		tsar.WithStdout(cmd.OutOrStdout()),
		tsar.WithStderr(cmd.ErrOrStderr()),
	}
	if s.config.MaxArchiveSize > 0 {
		base = append(base, tsar.WithMaxArchiveSize(s.config.MaxArchiveSize))
	}
	return tsar.New(append(base, opts...)...)
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

func moduleVersion() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

func buildVersion() string {
	return fmt.Sprintf("%s %s %s/%s", moduleVersion(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// userAgent identifies tsh to registries.
func userAgent() string {
	return "tsh/" + strings.Trim(moduleVersion(), "()")
}
