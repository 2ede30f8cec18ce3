package airplane

import (
	"context"
	"time"
)

// StateReader reads the current airplane mode flag. Read failures map to false.
type StateReader interface {
	ReadState(ctx context.Context) bool
}

// SettingsWriter mutates global settings with the elevated permission.
type SettingsWriter interface {
	WriteState(ctx context.Context, desired DesiredState) error
	BroadcastState(ctx context.Context, desired DesiredState) error
}

// SettingsStore groups read and elevated write access to system settings.
type SettingsStore interface {
	StateReader
	SettingsWriter
}

// PermissionQuery answers whether the elevated settings write is granted.
type PermissionQuery interface {
	HasElevatedPermission(ctx context.Context) bool
}

// HostQueries answers scheduling related permission questions for a host UI.
type HostQueries interface {
	HasExactSchedulingPermission(ctx context.Context) bool
	HasBatteryOptimizationExemption(ctx context.Context) bool
}

// ManualSurface opens the settings screen a user toggles airplane mode from.
type ManualSurface interface {
	OpenSettings(ctx context.Context) error
}

// Session is a scoped privileged shell. Run returns an error only when the
// session itself can no longer execute commands.
type Session interface {
	Run(ctx context.Context, command string, timeout time.Duration) (CommandResult, error)
	Close() error
}

// PrivilegedExecutor opens privileged shell sessions.
type PrivilegedExecutor interface {
	Name() string
	Open(ctx context.Context) (Session, error)
}

// CapabilityProber computes a fresh capability snapshot.
type CapabilityProber interface {
	Probe(ctx context.Context) CapabilitySnapshot
}

// Toggler applies a desired state and always returns an outcome.
type Toggler interface {
	Apply(ctx context.Context, desired DesiredState, event *ScheduleEvent) ToggleOutcome
}

// OutcomeReporter consumes toggle outcomes for user visible feedback.
type OutcomeReporter interface {
	Report(ctx context.Context, outcome ToggleOutcome)
}
