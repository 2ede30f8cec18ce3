package app

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/micro-ha/airplane-scheduler/internal/config"
	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
	"github.com/micro-ha/airplane-scheduler/internal/shell"
)

func simulatedConfig(elevated, root bool) config.Config {
	return config.Config{
		Backend:                config.BackendSimulated,
		SimulatedRoot:          "/sim",
		SimulatedElevated:      elevated,
		SimulatedRootAvailable: root,
		GateMode:               "queue",
	}
}

func TestSimulatedCoreRootSequence(t *testing.T) {
	core, err := NewCore(simulatedConfig(false, true), afero.NewMemMapFs(), nil)
	if err != nil {
		t.Fatalf("new core: %v", err)
	}

	outcome := core.Gate.Apply(context.Background(), airplane.On, &airplane.ScheduleEvent{ScheduleID: "s1", ScheduleName: "Night Mode"})
	if outcome.Tier != airplane.TierRootShell || !outcome.Success || len(outcome.Commands) != 6 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !core.Settings.ReadState(context.Background()) {
		t.Fatalf("expected airplane mode on")
	}
	for _, radio := range airplane.Radios {
		if core.Device.RadioEnabled(radio) {
			t.Fatalf("radio %s should be disabled", radio)
		}
	}
}

func TestSimulatedCorePartialFailure(t *testing.T) {
	core, err := NewCore(simulatedConfig(false, true), afero.NewMemMapFs(), nil)
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	executor, ok := core.Executor.(interface{ FailCommand(string) })
	if !ok {
		t.Fatalf("simulated executor should support failure injection")
	}
	executor.FailCommand("svc data disable")

	outcome := core.Gate.Apply(context.Background(), airplane.On, nil)
	if !outcome.Success || len(outcome.FailedCommands()) != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !core.Device.RadioEnabled("data") || core.Device.RadioEnabled("wifi") {
		t.Fatalf("only data should remain enabled")
	}
}

func TestSimulatedCoreManualFallback(t *testing.T) {
	core, err := NewCore(simulatedConfig(false, false), afero.NewMemMapFs(), nil)
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	outcome := core.Gate.Apply(context.Background(), airplane.On, nil)
	if outcome.Tier != airplane.TierManualFallback || outcome.Success {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if core.Settings.ReadState(context.Background()) {
		t.Fatalf("manual fallback must not change state")
	}
}

func TestSimulatedCoreElevatedPreferred(t *testing.T) {
	core, err := NewCore(simulatedConfig(true, true), afero.NewMemMapFs(), nil)
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	outcome := core.Gate.Apply(context.Background(), airplane.On, nil)
	if outcome.Tier != airplane.TierElevatedSettingsWrite || !outcome.Success || len(outcome.Commands) != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !core.Device.RadioEnabled("wifi") {
		t.Fatalf("elevated tier does not touch radios")
	}
}

func TestNewExecutor(t *testing.T) {
	for name, want := range map[string]string{"": shell.BackendSubprocess, "subprocess": shell.BackendSubprocess, "session": shell.BackendSession} {
		executor, err := NewExecutor(name, "su", nil)
		if err != nil || executor.Name() != want {
			t.Fatalf("backend %q: got %v, %v", name, executor, err)
		}
	}
	if _, err := NewExecutor("magisk", "su", nil); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
