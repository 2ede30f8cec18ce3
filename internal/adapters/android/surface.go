package android

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// SettingsLauncher opens system settings screens with am start.
type SettingsLauncher struct {
	runner CommandRunner
	logger *slog.Logger
}

// NewSettingsLauncher creates manual fallback surface.
func NewSettingsLauncher(runner CommandRunner, logger *slog.Logger) *SettingsLauncher {
	return &SettingsLauncher{runner: runner, logger: logger}
}

// OpenSettings opens airplane mode settings, falling back to wireless settings.
func (l *SettingsLauncher) OpenSettings(ctx context.Context) error {
	primaryErr := l.start(ctx, airplane.ActionAirplaneModeSettings)
	if primaryErr == nil {
		return nil
	}
	if l.logger != nil {
		l.logger.Warn("airplane mode settings unavailable; trying wireless settings", "err", primaryErr)
	}
	if err := l.start(ctx, airplane.ActionWirelessSettings); err != nil {
		return errors.Join(primaryErr, err)
	}
	return nil
}

func (l *SettingsLauncher) start(ctx context.Context, action string) error {
	out, ok := output(ctx, l.runner, queryTimeout, "am", "start", "-a", action, "-f", "0x10000000")
	if !ok {
		return fmt.Errorf("am start %s failed: %s", action, out)
	}
	// am start exits 0 but prints an error when no activity resolves.
	if containsStartError(out) {
		return fmt.Errorf("am start %s: %s", action, out)
	}
	return nil
}

func containsStartError(out string) bool {
	return strings.Contains(out, "Error:") || strings.Contains(out, "unable to resolve Intent")
}
