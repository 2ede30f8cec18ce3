package simulated

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// BackendSimulated names the simulated privileged executor.
const BackendSimulated = "simulated"

// Executor interprets the privileged command set against a Device.
type Executor struct {
	device *Device

	mu      sync.Mutex
	failing map[string]bool
}

// NewExecutor creates root executor for device.
func NewExecutor(device *Device) *Executor {
	return &Executor{device: device, failing: map[string]bool{}}
}

// FailCommand makes every later run of command exit with code 1.
func (e *Executor) FailCommand(command string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failing[command] = true
}

// Name returns backend identifier.
func (e *Executor) Name() string {
	return BackendSimulated
}

// Open fails when the device was configured without root.
func (e *Executor) Open(_ context.Context) (airplane.Session, error) {
	if !e.device.rootAvailable {
		return nil, fmt.Errorf("%w: su not found", airplane.ErrShellUnavailable)
	}
	return &session{executor: e}, nil
}

func (e *Executor) isFailing(command string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failing[command]
}

type session struct {
	executor *Executor
	closed   bool
}

func (s *session) Run(_ context.Context, command string, _ time.Duration) (airplane.CommandResult, error) {
	result := airplane.CommandResult{Command: command, ExitCode: -1}
	if s.closed {
		return result, airplane.ErrSessionClosed
	}
	startedAt := time.Now()

	if s.executor.isFailing(command) {
		result.ExitCode = 1
		result.Output = "simulated failure"
	} else if output, err := s.executor.interpret(strings.Fields(command)); err != nil {
		result.ExitCode = 127
		result.Output = err.Error()
	} else {
		result.ExitCode = 0
		result.Succeeded = true
		result.Output = output
	}
	result.DurationMS = time.Since(startedAt).Milliseconds()
	return result, nil
}

func (s *session) Close() error {
	s.closed = true
	return nil
}

func (e *Executor) interpret(fields []string) (string, error) {
	if len(fields) == 0 {
		return "", fmt.Errorf("empty command")
	}
	d := e.device
	switch fields[0] {
	case "id":
		return "uid=0(root) gid=0(root) groups=0(root)", nil
	case "settings":
		if len(fields) == 5 && fields[1] == "put" && fields[2] == "global" {
			return "", d.putSetting(fields[3], fields[4])
		}
		if len(fields) == 4 && fields[1] == "get" && fields[2] == "global" {
			value, err := d.getSetting(fields[3])
			if err != nil {
				return "null", nil
			}
			return value, nil
		}
	case "am":
		if len(fields) >= 3 && fields[1] == "broadcast" {
			return "Broadcast completed: result=0", d.appendLog("broadcasts.log", strings.Join(fields[2:], " "))
		}
	case "svc":
		if len(fields) == 3 && (fields[2] == "enable" || fields[2] == "disable") {
			return "", d.setRadio(fields[1], fields[2])
		}
	}
	return "", fmt.Errorf("%s: not found", fields[0])
}
