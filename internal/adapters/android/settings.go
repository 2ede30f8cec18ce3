package android

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
	"github.com/micro-ha/airplane-scheduler/internal/shell"
)

// SettingsStore reads and writes Settings.Global through the settings and am
// binaries of the running process, without su.
type SettingsStore struct {
	runner  CommandRunner
	timeout time.Duration
	logger  *slog.Logger
}

// NewSettingsStore creates settings adapter.
func NewSettingsStore(runner CommandRunner, timeout time.Duration, logger *slog.Logger) *SettingsStore {
	if timeout <= 0 {
		timeout = shell.DefaultCommandTimeout
	}
	return &SettingsStore{runner: runner, timeout: timeout, logger: logger}
}

// ReadState returns true only when airplane_mode_on reads as 1. Any read
// problem is logged and reported as off.
func (s *SettingsStore) ReadState(ctx context.Context) bool {
	value, err := s.get(ctx, airplane.SettingAirplaneModeOn)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("airplane mode read failed; assuming off", "err", err)
		}
		return false
	}
	return value == "1"
}

func (s *SettingsStore) get(ctx context.Context, key string) (string, error) {
	result, err := s.runner.Run(ctx, "settings", []string{"get", "global", key}, queryTimeout)
	if err != nil {
		return "", err
	}
	if !result.Succeeded {
		return "", &shell.ExitError{Command: result.Command, ExitCode: result.ExitCode, Output: result.Output}
	}
	value := strings.TrimSpace(result.Output)
	if value == "" || value == "null" {
		return "", fmt.Errorf("%w: %s", airplane.ErrSettingNotFound, key)
	}
	return value, nil
}

// WriteState stores airplane_mode_on.
func (s *SettingsStore) WriteState(ctx context.Context, desired airplane.DesiredState) error {
	args := []string{"put", "global", airplane.SettingAirplaneModeOn, desired.SettingValue()}
	return s.exec(ctx, "settings", args)
}

// BroadcastState sends the airplane mode changed broadcast.
func (s *SettingsStore) BroadcastState(ctx context.Context, desired airplane.DesiredState) error {
	args := []string{"broadcast", "-a", airplane.ActionAirplaneModeChanged, "--ez", "state", fmt.Sprint(bool(desired))}
	return s.exec(ctx, "am", args)
}

func (s *SettingsStore) exec(ctx context.Context, name string, args []string) error {
	result, err := s.runner.Run(ctx, name, args, s.timeout)
	if err != nil {
		return err
	}
	if result.TimedOut {
		return fmt.Errorf("%s timed out after %s", result.Command, s.timeout)
	}
	if !result.Succeeded {
		exitErr := &shell.ExitError{Command: result.Command, ExitCode: result.ExitCode, Output: result.Output}
		if isSecurityException(result.Output) {
			return fmt.Errorf("%w: %v", airplane.ErrPermissionDenied, exitErr)
		}
		return exitErr
	}
	// settings prints the exception but exits 0 on some releases.
	if isSecurityException(result.Output) {
		return fmt.Errorf("%w: %s", airplane.ErrPermissionDenied, result.Output)
	}
	return nil
}

func isSecurityException(output string) bool {
	text := strings.ToLower(output)
	return strings.Contains(text, "securityexception") ||
		strings.Contains(text, "permission denial") ||
		strings.Contains(text, "requires android.permission.write_secure_settings")
}
