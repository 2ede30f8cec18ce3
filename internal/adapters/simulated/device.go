// Package simulated provides a file-backed stand-in for an Android device so
// the scheduler can run and be exercised on hosts without settings or su.
package simulated

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// Options controls which privilege tiers the simulated device grants.
type Options struct {
	Root          string
	Elevated      bool
	RootAvailable bool
}

// Device keeps global settings, radio states and logs under Root on fs.
type Device struct {
	fs            afero.Fs
	root          string
	elevated      bool
	rootAvailable bool
	logger        *slog.Logger

	mu sync.Mutex
}

// New creates simulated device state rooted at opts.Root.
func New(fsys afero.Fs, opts Options, logger *slog.Logger) (*Device, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		root = "/data/simulated"
	}
	for _, dir := range []string{"global", "radios"} {
		if err := fsys.MkdirAll(path.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create simulated %s dir: %w", dir, err)
		}
	}
	return &Device{
		fs:            fsys,
		root:          root,
		elevated:      opts.Elevated,
		rootAvailable: opts.RootAvailable,
		logger:        logger,
	}, nil
}

// ReadState reads airplane_mode_on; missing or unreadable values read as off.
func (d *Device) ReadState(_ context.Context) bool {
	value, err := d.getSetting(airplane.SettingAirplaneModeOn)
	if err != nil {
		if d.logger != nil {
			d.logger.Debug("simulated airplane mode read failed; assuming off", "err", err)
		}
		return false
	}
	return value == "1"
}

// WriteState stores airplane_mode_on when the elevated permission is granted.
func (d *Device) WriteState(_ context.Context, desired airplane.DesiredState) error {
	if !d.elevated {
		return fmt.Errorf("%w: WRITE_SECURE_SETTINGS not granted", airplane.ErrPermissionDenied)
	}
	return d.putSetting(airplane.SettingAirplaneModeOn, desired.SettingValue())
}

// BroadcastState appends the system broadcast to broadcasts.log.
func (d *Device) BroadcastState(_ context.Context, desired airplane.DesiredState) error {
	if !d.elevated {
		return fmt.Errorf("%w: broadcast not permitted", airplane.ErrPermissionDenied)
	}
	return d.appendLog("broadcasts.log", fmt.Sprintf("%s state=%t", airplane.ActionAirplaneModeChanged, bool(desired)))
}

// HasElevatedPermission reports the configured grant.
func (d *Device) HasElevatedPermission(_ context.Context) bool {
	return d.elevated
}

// HasExactSchedulingPermission is always granted on the simulated device.
func (d *Device) HasExactSchedulingPermission(_ context.Context) bool {
	return true
}

// HasBatteryOptimizationExemption is always granted on the simulated device.
func (d *Device) HasBatteryOptimizationExemption(_ context.Context) bool {
	return true
}

// OpenSettings records the settings activity that would have been started.
func (d *Device) OpenSettings(_ context.Context) error {
	return d.appendLog("activities.log", airplane.ActionAirplaneModeSettings)
}

// RadioEnabled reports the last svc action applied to radio. Radios start enabled.
func (d *Device) RadioEnabled(radio string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := afero.ReadFile(d.fs, path.Join(d.root, "radios", radio))
	if err != nil {
		return true
	}
	return strings.TrimSpace(string(raw)) != "disable"
}

// Lines returns the entries of one of the simulated logs.
func (d *Device) Lines(name string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := afero.ReadFile(d.fs, path.Join(d.root, name))
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (d *Device) getSetting(key string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, err := afero.ReadFile(d.fs, path.Join(d.root, "global", key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", airplane.ErrSettingNotFound, key)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func (d *Device) putSetting(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return afero.WriteFile(d.fs, path.Join(d.root, "global", key), []byte(value+"\n"), 0o644)
}

func (d *Device) setRadio(radio, action string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return afero.WriteFile(d.fs, path.Join(d.root, "radios", radio), []byte(action+"\n"), 0o644)
}

func (d *Device) appendLog(name, line string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, err := d.fs.OpenFile(path.Join(d.root, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s %s\n", time.Now().UTC().Format(time.RFC3339), line)
	return err
}
