package android

import (
	"context"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

const queryTimeout = 5 * time.Second

// CommandRunner executes unprivileged device commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, timeout time.Duration) (airplane.CommandResult, error)
}

// output runs a command and reports its output only when it exited zero.
func output(ctx context.Context, runner CommandRunner, timeout time.Duration, name string, args ...string) (string, bool) {
	result, err := runner.Run(ctx, name, args, timeout)
	if err != nil || !result.Succeeded {
		return result.Output, false
	}
	return result.Output, true
}
