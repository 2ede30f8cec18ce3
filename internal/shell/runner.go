package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

const (
	// DefaultCommandTimeout bounds one command when callers pass zero.
	DefaultCommandTimeout = 10 * time.Second
	maxOutputBytes        = 4096
	killWaitDelay         = 2 * time.Second
)

// ExitError describes a command that ran and exited unsuccessfully.
type ExitError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	if e == nil {
		return "command failed"
	}
	if e.Output == "" {
		return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, e.Output)
}

// Runner spawns one process per command with a bounded timeout.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates process runner.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes name with args. The returned error is non-nil only when the
// process could not be started; exit codes and timeouts land in the result.
func (r *Runner) Run(
	ctx context.Context,
	name string,
	args []string,
	timeout time.Duration,
) (airplane.CommandResult, error) {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	display := strings.TrimSpace(name + " " + strings.Join(args, " "))
	result := airplane.CommandResult{Command: display, ExitCode: -1}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var output bytes.Buffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.SysProcAttr = processGroupAttr()
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process)
	}
	cmd.WaitDelay = killWaitDelay

	startedAt := time.Now()
	if err := cmd.Start(); err != nil {
		return result, fmt.Errorf("%w: start %s: %v", airplane.ErrShellUnavailable, name, err)
	}
	err := cmd.Wait()
	result.DurationMS = time.Since(startedAt).Milliseconds()
	result.Output = truncateOutput(output.String())

	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		if r.logger != nil {
			r.logger.Warn("command timed out", "command", display, "timeout", timeout.String())
		}
		return result, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
		result.Succeeded = true
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		if r.logger != nil {
			r.logger.Warn("command wait failed", "command", display, "err", err)
		}
	}
	return result, nil
}

// Output runs a command and returns its trimmed output, or an error when it
// could not start, timed out or exited non-zero.
func (r *Runner) Output(ctx context.Context, name string, args []string, timeout time.Duration) (string, error) {
	result, err := r.Run(ctx, name, args, timeout)
	if err != nil {
		return "", err
	}
	if result.TimedOut {
		return "", fmt.Errorf("%s timed out after %s", result.Command, timeout)
	}
	if !result.Succeeded {
		return "", &ExitError{Command: result.Command, ExitCode: result.ExitCode, Output: result.Output}
	}
	return result.Output, nil
}

func truncateOutput(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) <= maxOutputBytes {
		return trimmed
	}
	return trimmed[:maxOutputBytes] + "…"
}
