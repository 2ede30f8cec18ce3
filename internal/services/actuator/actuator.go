package actuator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

const defaultCommandTimeout = 10 * time.Second

// Actuator selects a privilege tier once per call and applies the desired
// airplane mode through it.
type Actuator struct {
	prober         airplane.CapabilityProber
	settings       airplane.SettingsWriter
	executor       airplane.PrivilegedExecutor
	commandTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// New creates toggle actuator. executor may be nil when no root backend exists.
func New(
	prober airplane.CapabilityProber,
	settings airplane.SettingsWriter,
	executor airplane.PrivilegedExecutor,
	commandTimeout time.Duration,
	logger *slog.Logger,
) *Actuator {
	if commandTimeout <= 0 {
		commandTimeout = defaultCommandTimeout
	}
	return &Actuator{
		prober:         prober,
		settings:       settings,
		executor:       executor,
		commandTimeout: commandTimeout,
		now:            time.Now,
		logger:         logger,
	}
}

// Apply never returns an error: every failure is described by the outcome.
// Once started, the command sequence is not interrupted by ctx cancellation;
// each command is bounded by its own timeout instead.
func (a *Actuator) Apply(
	ctx context.Context,
	desired airplane.DesiredState,
	event *airplane.ScheduleEvent,
) (outcome airplane.ToggleOutcome) {
	ctx = context.WithoutCancel(ctx)
	outcome = airplane.ToggleOutcome{
		ID:        uuid.NewString(),
		Requested: desired,
		StartedAt: a.now().UTC(),
	}
	if event != nil {
		outcome.ScheduleID = event.ScheduleID
		outcome.ScheduleName = event.ScheduleName
	}

	logger := a.logger
	if logger != nil {
		logger = logger.With(
			"outcome_id", outcome.ID,
			"desired", desired.String(),
			"schedule_id", outcome.ScheduleID,
			"schedule_name", outcome.ScheduleName,
		)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome.Success = false
			outcome.Failure = airplane.FailureShellFatal
			outcome.Message = fmt.Sprintf("toggle aborted: %v", recovered)
			if logger != nil {
				logger.Error("toggle panicked", "panic", fmt.Sprint(recovered), "tier", outcome.Tier)
			}
		}
		outcome.FinishedAt = a.now().UTC()
	}()

	snapshot := a.prober.Probe(ctx)
	outcome.Tier = snapshot.Best()
	if logger != nil {
		logger = logger.With("tier", outcome.Tier)
		logger.Info("toggle tier selected")
	}

	switch outcome.Tier {
	case airplane.TierElevatedSettingsWrite:
		a.applyElevated(ctx, desired, &outcome, logger)
	case airplane.TierRootShell:
		a.applyRoot(ctx, desired, &outcome, logger)
	default:
		outcome.Tier = airplane.TierManualFallback
		outcome.Success = false
		outcome.Failure = airplane.FailureManualRequired
		outcome.Message = "no privileged tier available; airplane mode must be toggled manually"
		if logger != nil {
			logger.Warn("manual toggle required")
		}
	}
	return outcome
}

func (a *Actuator) applyElevated(
	ctx context.Context,
	desired airplane.DesiredState,
	outcome *airplane.ToggleOutcome,
	logger *slog.Logger,
) {
	if err := a.settings.WriteState(ctx, desired); err != nil {
		outcome.Success = false
		outcome.Failure = airplane.FailurePermissionDenied
		if !errors.Is(err, airplane.ErrPermissionDenied) {
			outcome.Failure = airplane.FailureCommandFailed
		}
		outcome.Message = fmt.Sprintf("settings write failed: %v", err)
		if logger != nil {
			logger.Warn("elevated settings write failed", "err", err)
		}
		return
	}
	if err := a.settings.BroadcastState(ctx, desired); err != nil {
		outcome.Success = false
		outcome.Failure = airplane.FailureCommandFailed
		outcome.Message = fmt.Sprintf("state broadcast failed: %v", err)
		if logger != nil {
			logger.Warn("airplane mode broadcast failed", "err", err)
		}
		return
	}
	outcome.Success = true
	if logger != nil {
		logger.Info("airplane mode toggled")
	}
}

// applyRoot runs every command even when earlier ones fail. Success only
// reflects whether the shell itself stayed usable for the whole sequence.
func (a *Actuator) applyRoot(
	ctx context.Context,
	desired airplane.DesiredState,
	outcome *airplane.ToggleOutcome,
	logger *slog.Logger,
) {
	if a.executor == nil {
		outcome.Success = false
		outcome.Failure = airplane.FailureRootUnavailable
		outcome.Message = "root tier selected without a privileged executor"
		return
	}
	session, err := a.executor.Open(ctx)
	if err != nil {
		outcome.Success = false
		outcome.Failure = airplane.FailureShellFatal
		outcome.Message = fmt.Sprintf("open privileged shell: %v", err)
		if logger != nil {
			logger.Error("privileged shell unavailable", "backend", a.executor.Name(), "err", err)
		}
		return
	}
	defer func() {
		if err := session.Close(); err != nil && logger != nil {
			logger.Warn("privileged shell close failed", "err", err)
		}
	}()

	commands := airplane.RootCommands(desired)
	outcome.Commands = make([]airplane.CommandResult, 0, len(commands))
	for index, command := range commands {
		result, err := session.Run(ctx, command, a.commandTimeout)
		result.Command = command
		outcome.Commands = append(outcome.Commands, result)
		if err != nil {
			outcome.Success = false
			outcome.Failure = airplane.FailureShellFatal
			outcome.Message = fmt.Sprintf("privileged shell failed at %q: %v", command, err)
			if logger != nil {
				logger.Error("privileged shell aborted sequence",
					"command", command,
					"command_index", index,
					"remaining", len(commands)-index-1,
					"err", err,
				)
			}
			return
		}
		if !result.Succeeded {
			if logger != nil {
				logger.Warn("privileged command failed",
					"command", command,
					"command_index", index,
					"exit_code", result.ExitCode,
					"timed_out", result.TimedOut,
					"output", result.Output,
					"duration_ms", result.DurationMS,
				)
			}
			continue
		}
		if logger != nil {
			logger.Debug("privileged command succeeded", "command", command, "duration_ms", result.DurationMS)
		}
	}

	outcome.Success = true
	if failed := outcome.FailedCommands(); len(failed) > 0 {
		outcome.Failure = airplane.FailureCommandFailed
		outcome.Message = fmt.Sprintf("%d of %d commands failed", len(failed), len(commands))
	}
	if logger != nil {
		logger.Info("airplane mode toggled", "failed_commands", len(outcome.FailedCommands()))
	}
}
