// Package log registers the logging flags of tsh and builds its logger.
package log

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/meigma/tsar/internal/flags/enum"
)

// Log format constants
const (
	FormatFlagName = "logformat"

	FormatText = "text" // Human-readable text format
	FormatJSON = "json" // JSON format for machine processing
)

// Log level constants
const (
	LevelFlagName = "loglevel"

	LevelWarn  = "warn"
	LevelInfo  = "info"
	LevelDebug = "debug"
	LevelError = "error"
)

// RegisterLoggingFlags adds --logformat and --loglevel to flagset.
//
// Logs always go to standard error: standard output carries archives,
// payloads and public keys.
func RegisterLoggingFlags(flagset *pflag.FlagSet) {
	enum.Var(flagset, FormatFlagName, []string{
		FormatText,
		FormatJSON,
	}, `set the log output format
   text: human-readable output (default)
   json: one JSON object per line`)

	enum.Var(flagset, LevelFlagName, []string{
		LevelWarn,
		LevelInfo,
		LevelDebug,
		LevelError,
	}, `set the logging level
   warn:  warnings and errors only (default)
   info:  operational messages and above
   debug: everything, including pipeline state transitions
   error: errors only`)
}

// GetBaseLogger returns a logger configured from the flags of cmd.
func GetBaseLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := levelFromCommand(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to get log level: %w", err)
	}
	format, err := enum.Get(cmd.Flags(), FormatFlagName)
	if err != nil {
		return nil, fmt.Errorf("failed to get the log format from the command flag: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	case FormatText:
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	return slog.New(handler), nil
}

func levelFromCommand(cmd *cobra.Command) (slog.Level, error) {
	name, err := enum.Get(cmd.Flags(), LevelFlagName)
	if err != nil {
		return slog.LevelWarn, err
	}
	switch name {
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelInfo:
		return slog.LevelInfo, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", name)
	}
}
