package android

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

type fakeRunner struct {
	calls   []string
	results map[string]airplane.CommandResult
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]airplane.CommandResult{}, errs: map[string]error{}}
}

func (f *fakeRunner) Run(
	ctx context.Context,
	name string,
	args []string,
	timeout time.Duration,
) (airplane.CommandResult, error) {
	command := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.calls = append(f.calls, command)
	if err, ok := f.errs[command]; ok {
		return airplane.CommandResult{Command: command, ExitCode: -1}, err
	}
	if result, ok := f.results[command]; ok {
		result.Command = command
		return result, nil
	}
	return airplane.CommandResult{Command: command, Succeeded: true}, nil
}

func ok(output string) airplane.CommandResult {
	return airplane.CommandResult{Succeeded: true, Output: output}
}

func TestSettingsStoreReadState(t *testing.T) {
	runner := newFakeRunner()
	runner.results["settings get global airplane_mode_on"] = ok("1")
	store := NewSettingsStore(runner, time.Second, nil)

	if !store.ReadState(context.Background()) {
		t.Fatalf("expected airplane mode on")
	}
}

func TestSettingsStoreReadFailureDefaultsToOff(t *testing.T) {
	cases := map[string]func(*fakeRunner){
		"null value": func(r *fakeRunner) {
			r.results["settings get global airplane_mode_on"] = ok("null")
		},
		"exit code": func(r *fakeRunner) {
			r.results["settings get global airplane_mode_on"] = airplane.CommandResult{ExitCode: 255}
		},
		"spawn failure": func(r *fakeRunner) {
			r.errs["settings get global airplane_mode_on"] = airplane.ErrShellUnavailable
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			runner := newFakeRunner()
			setup(runner)
			store := NewSettingsStore(runner, time.Second, nil)
			if store.ReadState(context.Background()) {
				t.Fatalf("expected unreadable setting to read as off")
			}
		})
	}
}

func TestSettingsStoreWriteAndBroadcast(t *testing.T) {
	runner := newFakeRunner()
	store := NewSettingsStore(runner, time.Second, nil)

	if err := store.WriteState(context.Background(), airplane.On); err != nil {
		t.Fatalf("WriteState returned error: %v", err)
	}
	if err := store.BroadcastState(context.Background(), airplane.On); err != nil {
		t.Fatalf("BroadcastState returned error: %v", err)
	}
	want := []string{
		"settings put global airplane_mode_on 1",
		"am broadcast -a android.intent.action.AIRPLANE_MODE_CHANGED --ez state true",
	}
	if strings.Join(runner.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected calls: %v", runner.calls)
	}
}

func TestSettingsStoreWriteSecurityException(t *testing.T) {
	runner := newFakeRunner()
	runner.results["settings put global airplane_mode_on 0"] = ok(
		"java.lang.SecurityException: Permission denial: writing to settings requires:android.permission.WRITE_SECURE_SETTINGS",
	)
	store := NewSettingsStore(runner, time.Second, nil)

	err := store.WriteState(context.Background(), airplane.Off)
	if !errors.Is(err, airplane.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestPermissionCheckerUsesProcessUIDWithoutPackage(t *testing.T) {
	checker := NewPermissionChecker(newFakeRunner(), "", nil)
	checker.uid = func() int { return uidShell }
	if !checker.HasElevatedPermission(context.Background()) {
		t.Fatalf("shell uid must hold the elevated permission")
	}
	checker.uid = func() int { return 10123 }
	if checker.HasElevatedPermission(context.Background()) {
		t.Fatalf("app uid must not hold the elevated permission")
	}
}

func TestPermissionCheckerReadsPackageGrant(t *testing.T) {
	runner := newFakeRunner()
	runner.results["dumpsys package com.airplane.scheduler"] = ok(strings.Join([]string{
		"Packages:",
		"  install permissions:",
		"    android.permission.WRITE_SECURE_SETTINGS: granted=true",
	}, "\n"))
	checker := NewPermissionChecker(runner, "com.airplane.scheduler", nil)

	if !checker.HasElevatedPermission(context.Background()) {
		t.Fatalf("expected granted permission")
	}
}

func TestPermissionCheckerQueryFailureMeansNotGranted(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["dumpsys package com.airplane.scheduler"] = airplane.ErrShellUnavailable
	checker := NewPermissionChecker(runner, "com.airplane.scheduler", nil)

	if checker.HasElevatedPermission(context.Background()) {
		t.Fatalf("failed query must read as not granted")
	}
}

func TestPermissionCheckerBatteryWhitelist(t *testing.T) {
	runner := newFakeRunner()
	runner.results["dumpsys deviceidle whitelist"] = ok("system-excidle,com.android.phone,1001\nuser,com.airplane.scheduler,10234")
	checker := NewPermissionChecker(runner, "com.airplane.scheduler", nil)

	if !checker.HasBatteryOptimizationExemption(context.Background()) {
		t.Fatalf("expected package to be exempt")
	}
}

func TestPermissionCheckerExactAlarm(t *testing.T) {
	runner := newFakeRunner()
	runner.results["cmd appops get com.airplane.scheduler SCHEDULE_EXACT_ALARM"] = ok("SCHEDULE_EXACT_ALARM: deny")
	checker := NewPermissionChecker(runner, "com.airplane.scheduler", nil)
	if checker.HasExactSchedulingPermission(context.Background()) {
		t.Fatalf("expected exact alarm to be denied")
	}

	runner.results["cmd appops get com.airplane.scheduler SCHEDULE_EXACT_ALARM"] = ok("SCHEDULE_EXACT_ALARM: allow")
	if !checker.HasExactSchedulingPermission(context.Background()) {
		t.Fatalf("expected exact alarm to be allowed")
	}
}

func TestSettingsLauncherFallsBackToWirelessSettings(t *testing.T) {
	runner := newFakeRunner()
	runner.results["am start -a android.settings.AIRPLANE_MODE_SETTINGS -f 0x10000000"] = ok(
		"Error: Activity not started, unable to resolve Intent",
	)
	launcher := NewSettingsLauncher(runner, nil)

	if err := launcher.OpenSettings(context.Background()); err != nil {
		t.Fatalf("OpenSettings returned error: %v", err)
	}
	if len(runner.calls) != 2 || !strings.Contains(runner.calls[1], airplane.ActionWirelessSettings) {
		t.Fatalf("expected fallback to wireless settings, calls: %v", runner.calls)
	}
}
