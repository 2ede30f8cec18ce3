package probe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

const defaultRootTimeout = 5 * time.Second

// rootCheckCommand is cheap and prints the effective uid.
const rootCheckCommand = "id"

// Probe determines which privilege tiers are usable right now. It never caches:
// grants can be revoked between two toggles.
type Probe struct {
	permissions airplane.PermissionQuery
	hostQueries airplane.HostQueries
	executor    airplane.PrivilegedExecutor
	rootTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// New creates capability probe. executor may be nil when no root backend is configured.
func New(
	permissions airplane.PermissionQuery,
	hostQueries airplane.HostQueries,
	executor airplane.PrivilegedExecutor,
	rootTimeout time.Duration,
	logger *slog.Logger,
) *Probe {
	if rootTimeout <= 0 {
		rootTimeout = defaultRootTimeout
	}
	return &Probe{
		permissions: permissions,
		hostQueries: hostQueries,
		executor:    executor,
		rootTimeout: rootTimeout,
		now:         time.Now,
		logger:      logger,
	}
}

// Probe returns a fresh snapshot. The root check may block on a superuser
// consent prompt the first time it runs.
func (p *Probe) Probe(ctx context.Context) airplane.CapabilitySnapshot {
	var usable []airplane.Tier
	if p.HasElevatedPermission(ctx) {
		usable = append(usable, airplane.TierElevatedSettingsWrite)
	}
	if p.HasRoot(ctx) {
		usable = append(usable, airplane.TierRootShell)
	}
	snapshot := airplane.NewCapabilitySnapshot(p.now(), usable...)
	if p.logger != nil {
		p.logger.Debug("capabilities probed", "best_tier", snapshot.Best(), "tiers", len(snapshot.Tiers))
	}
	return snapshot
}

// HasElevatedPermission is a pure permission query; failures read as not granted.
func (p *Probe) HasElevatedPermission(ctx context.Context) (granted bool) {
	if p.permissions == nil {
		return false
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			p.warn("permission query panicked", "panic", fmt.Sprint(recovered))
			granted = false
		}
	}()
	return p.permissions.HasElevatedPermission(ctx)
}

// HasRoot runs the identity command through the privileged executor.
func (p *Probe) HasRoot(ctx context.Context) (available bool) {
	if p.executor == nil {
		return false
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			p.warn("root probe panicked", "panic", fmt.Sprint(recovered))
			available = false
		}
	}()

	session, err := p.executor.Open(ctx)
	if err != nil {
		p.debug("root unavailable", "backend", p.executor.Name(), "err", err)
		return false
	}
	defer session.Close()

	result, err := session.Run(ctx, rootCheckCommand, p.rootTimeout)
	if err != nil {
		p.debug("root probe failed", "backend", p.executor.Name(), "err", err)
		return false
	}
	if !result.Succeeded {
		p.debug("root probe rejected", "backend", p.executor.Name(), "exit_code", result.ExitCode, "timed_out", result.TimedOut)
		return false
	}
	return strings.Contains(result.Output, "uid=0")
}

// HostCapabilities answers every capability query a host UI asks for. The
// root check only runs when includeRoot is set because it is side-effecting.
func (p *Probe) HostCapabilities(ctx context.Context, includeRoot bool) airplane.HostCapabilities {
	out := airplane.HostCapabilities{ElevatedPermission: p.HasElevatedPermission(ctx)}
	if p.hostQueries != nil {
		out.ExactSchedulingPermission = p.hostQueries.HasExactSchedulingPermission(ctx)
		out.BatteryOptimizationExempt = p.hostQueries.HasBatteryOptimizationExemption(ctx)
	}
	if includeRoot {
		root := p.HasRoot(ctx)
		out.Root = &root
	}
	return out
}

func (p *Probe) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Probe) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
