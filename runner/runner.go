// Package runner executes a resolved run-list plan.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"syscall"
	"time"

	"github.com/meigma/tsar/archive"
	"github.com/meigma/tsar/runlist"
)

// DefaultWaitDelay is how long a canceled step may run after SIGTERM before
// it is killed.
const DefaultWaitDelay = 5 * time.Second

// Runner starts plan steps as child processes, one at a time.
type Runner struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	baseEnv   []string
	waitDelay time.Duration
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithStdio sets the standard streams passed to every step.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdin = stdin
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithBaseEnv replaces the inherited environment that step env is added to.
func WithBaseEnv(env []string) Option {
	return func(r *Runner) {
		r.baseEnv = slices.Clone(env)
	}
}

// WithWaitDelay sets how long a step may keep running after cancellation.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.waitDelay = d
	}
}

// WithLogger sets the logger for step execution.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a Runner. By default steps inherit the process environment
// and standard streams.
func New(opts ...Option) *Runner {
	r := &Runner{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		baseEnv:   os.Environ(),
		waitDelay: DefaultWaitDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Runner) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Execute resolves the run-list for the verified archive's roles in dir and
// runs it. It satisfies the pipeline's executor contract: callers can only
// reach it with a payload that has passed verification.
func (r *Runner) Execute(ctx context.Context, v *archive.Verified, dir string) (int, error) {
	if v == nil {
		return 1, errors.New("tsar: execute: nil payload")
	}
	steps, err := runlist.Plan(dir, v.Roles())
	if err != nil {
		return 1, err
	}
	return r.Run(ctx, steps)
}

// Run executes steps in order and stops at the first step that exits
// non-zero, returning its exit code. A step that cannot be started is an
// error. Cancellation sends SIGTERM to the running step and returns the
// context error.
func (r *Runner) Run(ctx context.Context, steps []runlist.Step) (int, error) {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return 1, err
		}
		log := r.log().With("step", i+1, "of", len(steps), "package", step.Package, "role", step.Role)
		log.Info("running package", "version", step.Version)

		start := time.Now()
		code, err := r.runStep(ctx, step)
		log.Debug("package finished", "exit_code", code, "duration", time.Since(start))
		if err != nil {
			return code, err
		}
		if code != 0 {
			log.Info("package failed", "exit_code", code)
			return code, nil
		}
	}
	return 0, nil
}

func (r *Runner) runStep(ctx context.Context, step runlist.Step) (int, error) {
	cmd := exec.CommandContext(ctx, step.Main)
	cmd.Dir = step.Dir
	cmd.Env = append(slices.Clone(r.baseEnv), formatEnv(step.Env)...)
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.waitDelay

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return exitCode(err), ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitCode(err), nil
	}
	if err != nil {
		return 1, fmt.Errorf("run %s: %w", step.Package, err)
	}
	return 0, nil
}

// exitCode maps a Wait error to a process exit status. Termination by
// signal is reported as 128 plus the signal number, as shells do.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	if sig, ok := signalOf(exitErr); ok {
		return 128 + sig
	}
	return 1
}

func formatEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}
