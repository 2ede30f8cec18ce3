package actuator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

type fakeProber struct {
	usable []airplane.Tier
	calls  int
}

func (f *fakeProber) Probe(ctx context.Context) airplane.CapabilitySnapshot {
	f.calls++
	return airplane.NewCapabilitySnapshot(time.Now(), f.usable...)
}

type fakeSettings struct {
	mu         sync.Mutex
	state      bool
	readable   bool
	writeErr   error
	writes     int
	broadcasts int
}

func (f *fakeSettings) ReadState(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.readable {
		return false
	}
	return f.state
}

func (f *fakeSettings) WriteState(ctx context.Context, desired airplane.DesiredState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.state = bool(desired)
	f.readable = true
	return nil
}

func (f *fakeSettings) BroadcastState(ctx context.Context, desired airplane.DesiredState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts++
	return nil
}

type fakeExecutor struct {
	mu       sync.Mutex
	failing  map[string]bool
	fatalAt  string
	openErr  error
	commands []string
	closed   int
}

func (f *fakeExecutor) Name() string { return "fake" }

func (f *fakeExecutor) Open(ctx context.Context) (airplane.Session, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeSession{executor: f}, nil
}

type fakeSession struct {
	executor *fakeExecutor
}

func (s *fakeSession) Run(ctx context.Context, command string, timeout time.Duration) (airplane.CommandResult, error) {
	f := s.executor
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	if command == f.fatalAt {
		return airplane.CommandResult{Command: command, ExitCode: -1}, airplane.ErrSessionClosed
	}
	if f.failing[command] {
		return airplane.CommandResult{Command: command, ExitCode: 1, Output: "Error"}, nil
	}
	return airplane.CommandResult{Command: command, ExitCode: 0, Succeeded: true}, nil
}

func (s *fakeSession) Close() error {
	s.executor.mu.Lock()
	defer s.executor.mu.Unlock()
	s.executor.closed++
	return nil
}

func TestApplySelectsBestTier(t *testing.T) {
	cases := []struct {
		name   string
		usable []airplane.Tier
		want   airplane.Tier
	}{
		{name: "elevated and root", usable: []airplane.Tier{airplane.TierRootShell, airplane.TierElevatedSettingsWrite}, want: airplane.TierElevatedSettingsWrite},
		{name: "root only", usable: []airplane.Tier{airplane.TierRootShell}, want: airplane.TierRootShell},
		{name: "none", usable: nil, want: airplane.TierManualFallback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := New(&fakeProber{usable: tc.usable}, &fakeSettings{}, &fakeExecutor{}, time.Second, nil)
			outcome := a.Apply(context.Background(), airplane.On, nil)
			if outcome.Tier != tc.want {
				t.Fatalf("expected tier %s, got %s", tc.want, outcome.Tier)
			}
		})
	}
}

func TestApplyElevatedIsIdempotent(t *testing.T) {
	settings := &fakeSettings{}
	a := New(&fakeProber{usable: []airplane.Tier{airplane.TierElevatedSettingsWrite}}, settings, nil, time.Second, nil)

	for i := 0; i < 2; i++ {
		outcome := a.Apply(context.Background(), airplane.On, nil)
		if !outcome.Success || outcome.Tier != airplane.TierElevatedSettingsWrite {
			t.Fatalf("apply %d: unexpected outcome %+v", i, outcome)
		}
		if !settings.ReadState(context.Background()) {
			t.Fatalf("apply %d: expected state on", i)
		}
	}
	if settings.writes != 2 || settings.broadcasts != 2 {
		t.Fatalf("expected write+broadcast per apply, writes=%d broadcasts=%d", settings.writes, settings.broadcasts)
	}
}

func TestApplyElevatedWriteFailure(t *testing.T) {
	settings := &fakeSettings{writeErr: airplane.ErrPermissionDenied}
	a := New(&fakeProber{usable: []airplane.Tier{airplane.TierElevatedSettingsWrite, airplane.TierRootShell}}, settings, &fakeExecutor{}, time.Second, nil)

	outcome := a.Apply(context.Background(), airplane.On, nil)
	if outcome.Success || outcome.Tier != airplane.TierElevatedSettingsWrite {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Failure != airplane.FailurePermissionDenied {
		t.Fatalf("expected permission_denied, got %q", outcome.Failure)
	}
	if settings.broadcasts != 0 {
		t.Fatalf("broadcast must not follow a failed write")
	}
}

func TestApplyRootPartialFailureStillSucceeds(t *testing.T) {
	executor := &fakeExecutor{failing: map[string]bool{"svc data disable": true}}
	a := New(&fakeProber{usable: []airplane.Tier{airplane.TierRootShell}}, &fakeSettings{}, executor, time.Second, nil)

	outcome := a.Apply(context.Background(), airplane.On, nil)
	if !outcome.Success {
		t.Fatalf("sequence completed, expected success=true: %+v", outcome)
	}
	if len(outcome.Commands) != 6 {
		t.Fatalf("expected 6 command results, got %d", len(outcome.Commands))
	}
	failed := outcome.FailedCommands()
	if len(failed) != 1 || failed[0].Command != "svc data disable" {
		t.Fatalf("expected exactly svc data to fail, got %+v", failed)
	}
	if len(executor.commands) != 6 {
		t.Fatalf("sequence must continue after a failed command, ran %v", executor.commands)
	}
}

func TestApplyRootFallbackNeverWritesElevated(t *testing.T) {
	settings := &fakeSettings{}
	executor := &fakeExecutor{}
	a := New(&fakeProber{usable: []airplane.Tier{airplane.TierRootShell}}, settings, executor, time.Second, nil)

	outcome := a.Apply(context.Background(), airplane.Off, nil)
	if outcome.Tier != airplane.TierRootShell || !outcome.Success {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if settings.writes != 0 || settings.broadcasts != 0 {
		t.Fatalf("root tier must not use the elevated settings writer")
	}
	if executor.closed != 1 {
		t.Fatalf("session must be closed once, closed=%d", executor.closed)
	}
}

func TestApplyManualFallbackDoesNotMutate(t *testing.T) {
	settings := &fakeSettings{readable: true, state: false}
	executor := &fakeExecutor{}
	a := New(&fakeProber{}, settings, executor, time.Second, nil)

	before := settings.ReadState(context.Background())
	outcome := a.Apply(context.Background(), airplane.On, nil)
	after := settings.ReadState(context.Background())

	if outcome.Success || outcome.Tier != airplane.TierManualFallback {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Failure != airplane.FailureManualRequired || !outcome.NeedsManualToggle() {
		t.Fatalf("expected manual_required, got %q", outcome.Failure)
	}
	if before != after || settings.writes != 0 || len(executor.commands) != 0 {
		t.Fatalf("manual fallback must not mutate state")
	}
}

func TestApplyScheduledNightModeScenario(t *testing.T) {
	executor := &fakeExecutor{}
	a := New(&fakeProber{usable: []airplane.Tier{airplane.TierRootShell}}, &fakeSettings{}, executor, time.Second, nil)

	outcome := a.Apply(context.Background(), airplane.On, &airplane.ScheduleEvent{
		ScheduleID:   "s1",
		ScheduleName: "Night Mode",
		Desired:      airplane.On,
	})
	if outcome.Tier != airplane.TierRootShell || !outcome.Success || outcome.ScheduleID != "s1" || outcome.ScheduleName != "Night Mode" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	want := airplane.RootCommands(airplane.On)
	if len(outcome.Commands) != len(want) {
		t.Fatalf("expected %d command results, got %d", len(want), len(outcome.Commands))
	}
	for i, command := range want {
		if outcome.Commands[i].Command != command {
			t.Fatalf("command %d: expected %q, got %q", i, command, outcome.Commands[i].Command)
		}
	}
}

func TestApplyShellFatalAbortsSequence(t *testing.T) {
	executor := &fakeExecutor{fatalAt: "svc wifi disable"}
	a := New(&fakeProber{usable: []airplane.Tier{airplane.TierRootShell}}, &fakeSettings{}, executor, time.Second, nil)

	outcome := a.Apply(context.Background(), airplane.On, nil)
	if outcome.Success || outcome.Failure != airplane.FailureShellFatal {
		t.Fatalf("expected fatal outcome, got %+v", outcome)
	}
	if len(executor.commands) != 4 {
		t.Fatalf("expected sequence to stop at wifi, ran %v", executor.commands)
	}
}

func TestApplyShellSpawnFailureDoesNotEscalate(t *testing.T) {
	settings := &fakeSettings{}
	executor := &fakeExecutor{openErr: airplane.ErrShellUnavailable}
	a := New(&fakeProber{usable: []airplane.Tier{airplane.TierRootShell}}, settings, executor, time.Second, nil)

	outcome := a.Apply(context.Background(), airplane.On, nil)
	if outcome.Success || outcome.Tier != airplane.TierRootShell || outcome.Failure != airplane.FailureShellFatal {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if settings.writes != 0 {
		t.Fatalf("apply must not fall back to another tier mid-attempt")
	}
}

type panickingProber struct{}

func (panickingProber) Probe(ctx context.Context) airplane.CapabilitySnapshot {
	panic("probe exploded")
}

func TestApplyRecoversPanics(t *testing.T) {
	a := New(panickingProber{}, &fakeSettings{}, nil, time.Second, nil)
	outcome := a.Apply(context.Background(), airplane.On, nil)
	if outcome.Success || outcome.Failure != airplane.FailureShellFatal || outcome.FinishedAt.IsZero() {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestApplyIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	executor := &fakeExecutor{}
	a := New(&fakeProber{usable: []airplane.Tier{airplane.TierRootShell}}, &fakeSettings{}, executor, time.Second, nil)

	outcome := a.Apply(ctx, airplane.On, nil)
	if !outcome.Success || len(executor.commands) != 6 {
		t.Fatalf("cancelled caller must not abort the sequence: %+v", outcome)
	}
}

type blockingToggler struct {
	started chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (b *blockingToggler) Apply(ctx context.Context, desired airplane.DesiredState, event *airplane.ScheduleEvent) airplane.ToggleOutcome {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.release
	return airplane.ToggleOutcome{Requested: desired, Success: true, Tier: airplane.TierRootShell}
}

func TestGateDropReturnsBusy(t *testing.T) {
	inner := &blockingToggler{started: make(chan struct{}, 1), release: make(chan struct{})}
	gate := NewGate(inner, GateDrop, nil)

	done := make(chan airplane.ToggleOutcome, 1)
	go func() {
		done <- gate.Apply(context.Background(), airplane.On, nil)
	}()
	<-inner.started

	busy := gate.Apply(context.Background(), airplane.Off, &airplane.ScheduleEvent{ScheduleID: "s2"})
	if busy.Success || busy.Failure != airplane.FailureBusy || busy.Tier != airplane.TierNone || busy.ScheduleID != "s2" {
		t.Fatalf("expected busy outcome, got %+v", busy)
	}

	close(inner.release)
	if first := <-done; !first.Success {
		t.Fatalf("first apply should succeed: %+v", first)
	}
}

func TestGateQueueSerializes(t *testing.T) {
	inner := &blockingToggler{started: make(chan struct{}, 2), release: make(chan struct{})}
	gate := NewGate(inner, GateQueue, nil)

	results := make(chan airplane.ToggleOutcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- gate.Apply(context.Background(), airplane.On, nil)
		}()
	}
	<-inner.started
	select {
	case <-inner.started:
		t.Fatalf("second apply started while first was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(inner.release)
	for i := 0; i < 2; i++ {
		if outcome := <-results; !outcome.Success {
			t.Fatalf("queued apply %d failed: %+v", i, outcome)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("expected both applies to run, got %d", inner.calls)
	}
}

func TestGateQueueGivesUpWhenCallerCancels(t *testing.T) {
	inner := &blockingToggler{started: make(chan struct{}, 1), release: make(chan struct{})}
	gate := NewGate(inner, GateQueue, nil)
	go gate.Apply(context.Background(), airplane.On, nil)
	<-inner.started
	defer close(inner.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	outcome := gate.Apply(ctx, airplane.Off, nil)
	if outcome.Failure != airplane.FailureBusy {
		t.Fatalf("expected busy after wait timeout, got %+v", outcome)
	}
}

type recordingReporter struct {
	outcomes []airplane.ToggleOutcome
}

func (r *recordingReporter) Report(ctx context.Context, outcome airplane.ToggleOutcome) {
	r.outcomes = append(r.outcomes, outcome)
}

type countingRefresher struct{ count int }

func (c *countingRefresher) TriggerRefresh() { c.count++ }

func TestPipelineReportsEveryOutcome(t *testing.T) {
	reporter := &recordingReporter{}
	refresher := &countingRefresher{}
	a := New(&fakeProber{}, &fakeSettings{}, nil, time.Second, nil)
	pipeline := NewPipeline(a, reporter, refresher)

	outcome := pipeline.Apply(context.Background(), airplane.On, &airplane.ScheduleEvent{ScheduleName: "Night Mode"})
	if len(reporter.outcomes) != 1 || reporter.outcomes[0].ID != outcome.ID {
		t.Fatalf("expected outcome to be reported once, got %+v", reporter.outcomes)
	}
	if refresher.count != 1 {
		t.Fatalf("expected refresh trigger, got %d", refresher.count)
	}
}
