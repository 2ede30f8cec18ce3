package shell

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// BackendSubprocess names the executor that spawns su once per command.
const BackendSubprocess = "subprocess"

// SubprocessExecutor runs every privileged command as `su -c <command>`.
type SubprocessExecutor struct {
	suPath string
	runner *Runner
	logger *slog.Logger
}

// NewSubprocessExecutor creates su-per-command executor.
func NewSubprocessExecutor(suPath string, logger *slog.Logger) *SubprocessExecutor {
	if suPath == "" {
		suPath = "su"
	}
	return &SubprocessExecutor{suPath: suPath, runner: NewRunner(logger), logger: logger}
}

// Name returns backend identifier.
func (e *SubprocessExecutor) Name() string {
	return BackendSubprocess
}

// Open resolves the su binary. No process is held by the returned session.
func (e *SubprocessExecutor) Open(_ context.Context) (airplane.Session, error) {
	path, err := exec.LookPath(e.suPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", airplane.ErrShellUnavailable, e.suPath, err)
	}
	return &subprocessSession{suPath: path, runner: e.runner}, nil
}

type subprocessSession struct {
	suPath string
	runner *Runner

	mu     sync.Mutex
	closed bool
}

func (s *subprocessSession) Run(
	ctx context.Context,
	command string,
	timeout time.Duration,
) (airplane.CommandResult, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return airplane.CommandResult{Command: command, ExitCode: -1}, airplane.ErrSessionClosed
	}

	result, err := s.runner.Run(ctx, s.suPath, []string{"-c", command}, timeout)
	result.Command = command
	return result, err
}

func (s *subprocessSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
