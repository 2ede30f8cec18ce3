package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

type fakePermissions struct {
	granted bool
	calls   int
}

func (f *fakePermissions) HasElevatedPermission(ctx context.Context) bool {
	f.calls++
	return f.granted
}

type fakeHostQueries struct{}

func (fakeHostQueries) HasExactSchedulingPermission(ctx context.Context) bool    { return true }
func (fakeHostQueries) HasBatteryOptimizationExemption(ctx context.Context) bool { return false }

type fakeSession struct {
	result airplane.CommandResult
	err    error
	closed bool
}

func (s *fakeSession) Run(ctx context.Context, command string, timeout time.Duration) (airplane.CommandResult, error) {
	return s.result, s.err
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeExecutor struct {
	openErr error
	session *fakeSession
	opens   int
}

func (f *fakeExecutor) Name() string { return "fake" }

func (f *fakeExecutor) Open(ctx context.Context) (airplane.Session, error) {
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.session, nil
}

func rootSession() *fakeSession {
	return &fakeSession{result: airplane.CommandResult{Succeeded: true, Output: "uid=0(root) gid=0(root)"}}
}

func TestProbeAllTiers(t *testing.T) {
	session := rootSession()
	p := New(&fakePermissions{granted: true}, fakeHostQueries{}, &fakeExecutor{session: session}, time.Second, nil)

	snapshot := p.Probe(context.Background())
	for _, tier := range []airplane.Tier{
		airplane.TierUnprivileged,
		airplane.TierElevatedSettingsWrite,
		airplane.TierRootShell,
		airplane.TierManualFallback,
	} {
		if !snapshot.Has(tier) {
			t.Fatalf("expected tier %s in snapshot", tier)
		}
	}
	if !session.closed {
		t.Fatalf("root probe session must be closed")
	}
}

func TestProbeRootUnavailable(t *testing.T) {
	cases := map[string]*fakeExecutor{
		"spawn failure":  {openErr: airplane.ErrShellUnavailable},
		"consent denied": {session: &fakeSession{result: airplane.CommandResult{ExitCode: 1}}},
		"not root":       {session: &fakeSession{result: airplane.CommandResult{Succeeded: true, Output: "uid=2000(shell)"}}},
		"shell died":     {session: &fakeSession{err: errors.New("session closed")}},
	}
	for name, executor := range cases {
		t.Run(name, func(t *testing.T) {
			p := New(&fakePermissions{}, nil, executor, time.Second, nil)
			snapshot := p.Probe(context.Background())
			if snapshot.Has(airplane.TierRootShell) {
				t.Fatalf("root tier must not be usable")
			}
			if snapshot.Best() != airplane.TierManualFallback {
				t.Fatalf("expected manual fallback, got %s", snapshot.Best())
			}
		})
	}
}

func TestProbeIsNotCached(t *testing.T) {
	permissions := &fakePermissions{granted: true}
	executor := &fakeExecutor{session: rootSession()}
	p := New(permissions, nil, executor, time.Second, nil)

	if !p.Probe(context.Background()).Has(airplane.TierElevatedSettingsWrite) {
		t.Fatalf("expected elevated tier on first probe")
	}
	permissions.granted = false
	if p.Probe(context.Background()).Has(airplane.TierElevatedSettingsWrite) {
		t.Fatalf("revoked grant must be visible on the next probe")
	}
	if permissions.calls != 2 || executor.opens != 2 {
		t.Fatalf("expected fresh queries per probe, permissions=%d opens=%d", permissions.calls, executor.opens)
	}
}

func TestHostCapabilitiesSkipsRootUnlessAsked(t *testing.T) {
	executor := &fakeExecutor{session: rootSession()}
	p := New(&fakePermissions{granted: true}, fakeHostQueries{}, executor, time.Second, nil)

	caps := p.HostCapabilities(context.Background(), false)
	if caps.Root != nil || executor.opens != 0 {
		t.Fatalf("root must not be probed implicitly")
	}
	if !caps.ElevatedPermission || !caps.ExactSchedulingPermission || caps.BatteryOptimizationExempt {
		t.Fatalf("unexpected capabilities: %+v", caps)
	}

	caps = p.HostCapabilities(context.Background(), true)
	if caps.Root == nil || !*caps.Root {
		t.Fatalf("expected root to be reported, got %+v", caps)
	}
}
