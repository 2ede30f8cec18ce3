// Package app builds the toggle core from configuration for both binaries.
package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/micro-ha/airplane-scheduler/internal/adapters/android"
	"github.com/micro-ha/airplane-scheduler/internal/adapters/simulated"
	"github.com/micro-ha/airplane-scheduler/internal/config"
	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
	"github.com/micro-ha/airplane-scheduler/internal/services/actuator"
	"github.com/micro-ha/airplane-scheduler/internal/services/probe"
	"github.com/micro-ha/airplane-scheduler/internal/shell"
)

// Backend is the set of device adapters selected by BACKEND.
type Backend struct {
	Name        string
	Settings    airplane.SettingsStore
	Permissions airplane.PermissionQuery
	Host        airplane.HostQueries
	Surface     airplane.ManualSurface
	Executor    airplane.PrivilegedExecutor

	// Device is set for the simulated backend only.
	Device *simulated.Device
}

// Core is the probe and the gated actuator over one backend.
type Core struct {
	Backend
	Probe    *probe.Probe
	Actuator *actuator.Actuator
	Gate     *actuator.Gate
}

// NewBackend creates the device adapters for cfg. fsys is only used by the
// simulated backend; nil means the host filesystem.
func NewBackend(cfg config.Config, fsys afero.Fs, logger *slog.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendSimulated:
		if fsys == nil {
			fsys = afero.NewOsFs()
		}
		device, err := simulated.New(fsys, simulated.Options{
			Root:          cfg.SimulatedRoot,
			Elevated:      cfg.SimulatedElevated,
			RootAvailable: cfg.SimulatedRootAvailable,
		}, logger)
		if err != nil {
			return Backend{}, err
		}
		return Backend{
			Name:        config.BackendSimulated,
			Settings:    device,
			Permissions: device,
			Host:        device,
			Surface:     device,
			Executor:    simulated.NewExecutor(device),
			Device:      device,
		}, nil
	default:
		runner := shell.NewRunner(logger)
		executor, err := NewExecutor(cfg.RootBackend, cfg.SUPath, logger)
		if err != nil {
			return Backend{}, err
		}
		permissions := android.NewPermissionChecker(runner, cfg.PackageName, logger)
		return Backend{
			Name:        config.BackendAndroid,
			Settings:    android.NewSettingsStore(runner, cfg.CommandTimeout, logger),
			Permissions: permissions,
			Host:        permissions,
			Surface:     android.NewSettingsLauncher(runner, logger),
			Executor:    executor,
		}, nil
	}
}

// NewExecutor picks the su backend by name.
func NewExecutor(name, suPath string, logger *slog.Logger) (airplane.PrivilegedExecutor, error) {
	switch name {
	case "", shell.BackendSubprocess:
		return shell.NewSubprocessExecutor(suPath, logger), nil
	case shell.BackendSession:
		return shell.NewSessionExecutor(suPath, logger), nil
	default:
		return nil, fmt.Errorf("unknown root backend %q", name)
	}
}

// NewCore wires probe, actuator and gate over the configured backend.
func NewCore(cfg config.Config, fsys afero.Fs, logger *slog.Logger) (*Core, error) {
	backend, err := NewBackend(cfg, fsys, logger)
	if err != nil {
		return nil, err
	}
	prober := probe.New(backend.Permissions, backend.Host, backend.Executor, cfg.RootProbeTimeout, logger)
	act := actuator.New(prober, backend.Settings, backend.Executor, cfg.CommandTimeout, logger)
	return &Core{
		Backend:  backend,
		Probe:    prober,
		Actuator: act,
		Gate:     actuator.NewGate(act, actuator.ParseGateMode(cfg.GateMode), logger),
	}, nil
}
