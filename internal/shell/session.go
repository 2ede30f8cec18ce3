package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// BackendSession names the executor that feeds one su shell over stdin.
const BackendSession = "session"

const markerPrefix = "__AIRPLANE_EXIT_"

// SessionExecutor keeps one interactive su shell per session and writes
// commands to its stdin, reading exit codes back through marker lines.
type SessionExecutor struct {
	suPath string
	logger *slog.Logger
}

// NewSessionExecutor creates interactive shell executor.
func NewSessionExecutor(suPath string, logger *slog.Logger) *SessionExecutor {
	if suPath == "" {
		suPath = "su"
	}
	return &SessionExecutor{suPath: suPath, logger: logger}
}

// Name returns backend identifier.
func (e *SessionExecutor) Name() string {
	return BackendSession
}

// Open starts the su shell. The caller must Close the session.
func (e *SessionExecutor) Open(_ context.Context) (airplane.Session, error) {
	s := &shellSession{suPath: e.suPath, logger: e.logger}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

type shellSession struct {
	suPath string
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	exited chan struct{}
}

func (s *shellSession) start() error {
	cmd := exec.Command(s.suPath)
	cmd.SysProcAttr = processGroupAttr()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %v", airplane.ErrShellUnavailable, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", airplane.ErrShellUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", airplane.ErrShellUnavailable, s.suPath, err)
	}

	lines := make(chan string, 64)
	exited := make(chan struct{})
	// Wait closes stdout, so it only runs once the scanner hit EOF.
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
		_ = cmd.Wait()
		close(exited)
	}()

	s.cmd = cmd
	s.stdin = stdin
	s.lines = lines
	s.exited = exited
	return nil
}

func (s *shellSession) Run(
	ctx context.Context,
	command string,
	timeout time.Duration,
) (airplane.CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := airplane.CommandResult{Command: command, ExitCode: -1}
	if s.closed {
		return result, airplane.ErrSessionClosed
	}
	if s.cmd == nil {
		// The previous command killed the shell or timed out.
		if err := s.start(); err != nil {
			return result, err
		}
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	marker := markerPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	line := fmt.Sprintf("%s 2>&1; echo \"%s $?\"\n", command, marker)

	startedAt := time.Now()
	if _, err := io.WriteString(s.stdin, line); err != nil {
		s.kill()
		return result, fmt.Errorf("%w: write command: %v", airplane.ErrSessionClosed, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var output []string
	for {
		select {
		case text, ok := <-s.lines:
			if !ok {
				result.DurationMS = time.Since(startedAt).Milliseconds()
				result.Output = truncateOutput(strings.Join(output, "\n"))
				s.kill()
				return result, fmt.Errorf("%w: shell exited during %q", airplane.ErrSessionClosed, command)
			}
			if !strings.HasPrefix(text, marker) {
				output = append(output, text)
				continue
			}
			code, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, marker)))
			if err != nil {
				code = -1
			}
			result.ExitCode = code
			result.Succeeded = code == 0
			result.DurationMS = time.Since(startedAt).Milliseconds()
			result.Output = truncateOutput(strings.Join(output, "\n"))
			return result, nil
		case <-timer.C:
			result.TimedOut = true
			result.DurationMS = time.Since(startedAt).Milliseconds()
			result.Output = truncateOutput(strings.Join(output, "\n"))
			if s.logger != nil {
				s.logger.Warn("session command timed out", "command", command, "timeout", timeout.String())
			}
			s.kill()
			return result, nil
		case <-ctx.Done():
			result.DurationMS = time.Since(startedAt).Milliseconds()
			s.kill()
			return result, ctx.Err()
		}
	}
}

func (s *shellSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cmd == nil {
		return nil
	}
	_, _ = io.WriteString(s.stdin, "exit\n")
	_ = s.stdin.Close()
	go drain(s.lines)
	select {
	case <-s.exited:
	case <-time.After(killWaitDelay):
		_ = killProcessGroup(s.cmd.Process)
		<-s.exited
	}
	s.cmd = nil
	return nil
}

// kill terminates the shell; the next Run starts a fresh one.
func (s *shellSession) kill() {
	if s.cmd == nil {
		return
	}
	_ = s.stdin.Close()
	_ = killProcessGroup(s.cmd.Process)
	go drain(s.lines)
	<-s.exited
	s.cmd = nil
}

func drain(lines <-chan string) {
	for range lines {
	}
}
