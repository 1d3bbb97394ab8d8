// Package runner spawns the external tools behind the apkext pipelines and
// turns their exit status into typed errors.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	apkerrors "github.com/dmikushin/apkext/pkg/apk/errors"
	"github.com/dmikushin/apkext/pkg/utils/shellparse"
)

// waitDelay bounds how long Wait keeps draining output after the child is
// killed, so a descendant holding the pipes cannot stall cancellation.
const waitDelay = 2 * time.Second

// Command describes one tool invocation.
type Command struct {
	// Tool is the display name used in logs and errors.
	Tool string
	// Path is the executable to spawn.
	Path string
	Args []string
	// Env is appended to the current process environment.
	Env []string
	Dir string
}

// Outcome is the captured result of a successful invocation.
type Outcome struct {
	Tool     string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// ToolError reports a tool that ran and exited non-zero.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return fmt.Sprintf("%s failed: %s", e.Tool, msg)
	}
	return fmt.Sprintf("%s failed with exit code %d", e.Tool, e.ExitCode)
}

// Is matches apkerrors.ErrToolFailed.
func (e *ToolError) Is(target error) bool {
	return target == apkerrors.ErrToolFailed
}

// SpawnError reports a tool that could not be started at all.
type SpawnError struct {
	Tool string
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s (%s): %v", e.Tool, e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Is matches apkerrors.ErrSpawn.
func (e *SpawnError) Is(target error) bool {
	return target == apkerrors.ErrSpawn
}

// Runner executes commands synchronously.
type Runner struct {
	logger hclog.Logger
	echo   io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger hclog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithEcho sets where a successful tool's stdout is echoed. Nil discards it.
func WithEcho(w io.Writer) Option {
	return func(r *Runner) {
		r.echo = w
	}
}

// New creates a Runner echoing to os.Stdout.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger: hclog.NewNullLogger(),
		echo:   os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.echo == nil {
		r.echo = io.Discard
	}
	return r
}

// Run spawns cmd and waits for it. On exit code 0 the captured stdout is
// echoed and returned in the Outcome. A non-zero exit yields a *ToolError,
// a failure to start yields a *SpawnError. Cancelling ctx kills the child
// and, on unix, every process it spawned.
func (r *Runner) Run(ctx context.Context, cmd Command) (Outcome, error) {
	outcome := Outcome{Tool: cmd.Tool}

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.WaitDelay = waitDelay
	configureProcessGroup(c)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	r.logger.Info("🚀 Executing tool", "tool", cmd.Tool, "path", cmd.Path)
	r.logger.Debug("🚀 Full command", "command", shellparse.Join(append([]string{cmd.Path}, cmd.Args...)))

	start := time.Now()
	if err := c.Start(); err != nil {
		r.logger.Debug("❌ Failed to start tool", "tool", cmd.Tool, "error", err)
		return outcome, &SpawnError{Tool: cmd.Tool, Path: cmd.Path, Err: err}
	}

	err := c.Wait()
	outcome.Duration = time.Since(start)
	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, fmt.Errorf("%s interrupted: %w", cmd.Tool, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
			r.logger.Info("⏹️ Tool exited", "tool", cmd.Tool, "code", outcome.ExitCode, "elapsed", outcome.Duration)
			return outcome, &ToolError{Tool: cmd.Tool, ExitCode: outcome.ExitCode, Stderr: outcome.Stderr}
		}
		return outcome, fmt.Errorf("%s: process error: %w", cmd.Tool, err)
	}

	r.logger.Debug("✅ Tool completed", "tool", cmd.Tool, "elapsed", outcome.Duration)
	if outcome.Stdout != "" {
		if _, err := io.WriteString(r.echo, outcome.Stdout); err != nil {
			r.logger.Debug("⚠️ Failed to echo tool output", "error", err)
		}
	}
	return outcome, nil
}
