package airplane

import (
	"time"
)

// DesiredState is the requested airplane mode value for one toggle attempt.
type DesiredState bool

const (
	// Off disables airplane mode and re-enables radios.
	Off DesiredState = false
	// On enables airplane mode and disables radios.
	On DesiredState = true
)

// SettingValue returns the global settings value for airplane_mode_on.
func (d DesiredState) SettingValue() string {
	if d {
		return "1"
	}
	return "0"
}

// RadioAction returns the svc verb matching the desired state.
// Airplane mode on means radios off.
func (d DesiredState) RadioAction() string {
	if d {
		return "disable"
	}
	return "enable"
}

func (d DesiredState) String() string {
	if d {
		return "on"
	}
	return "off"
}

// Tier is a privilege strategy used to mutate airplane mode.
type Tier string

const (
	// TierNone marks outcomes that never selected a tier.
	TierNone Tier = ""
	// TierUnprivileged can read state but never mutate it.
	TierUnprivileged Tier = "unprivileged"
	// TierElevatedSettingsWrite writes global settings directly.
	TierElevatedSettingsWrite Tier = "elevated_settings_write"
	// TierRootShell runs the privileged command sequence through su.
	TierRootShell Tier = "root_shell"
	// TierManualFallback asks the user to toggle airplane mode by hand.
	TierManualFallback Tier = "manual_fallback"
)

// mutatingTiers lists tiers able to act on a toggle, most preferred first.
var mutatingTiers = []Tier{
	TierElevatedSettingsWrite,
	TierRootShell,
	TierManualFallback,
}

// ParseTier converts a wire value into Tier.
func ParseTier(raw string) (Tier, bool) {
	switch Tier(raw) {
	case TierUnprivileged, TierElevatedSettingsWrite, TierRootShell, TierManualFallback:
		return Tier(raw), true
	default:
		return TierNone, false
	}
}

// CapabilitySnapshot is the set of tiers usable at probe time.
type CapabilitySnapshot struct {
	Tiers    map[Tier]bool `json:"tiers"`
	ProbedAt time.Time     `json:"probed_at"`
}

// NewCapabilitySnapshot builds a snapshot that always includes the
// unprivileged and manual fallback tiers.
func NewCapabilitySnapshot(probedAt time.Time, usable ...Tier) CapabilitySnapshot {
	tiers := map[Tier]bool{
		TierUnprivileged:   true,
		TierManualFallback: true,
	}
	for _, tier := range usable {
		if tier == TierNone {
			continue
		}
		tiers[tier] = true
	}
	return CapabilitySnapshot{Tiers: tiers, ProbedAt: probedAt.UTC()}
}

// Has reports whether tier is usable.
func (s CapabilitySnapshot) Has(tier Tier) bool {
	return s.Tiers[tier]
}

// Best returns the most preferred mutating tier in the snapshot.
func (s CapabilitySnapshot) Best() Tier {
	for _, tier := range mutatingTiers {
		if s.Has(tier) {
			return tier
		}
	}
	return TierManualFallback
}

// FailureKind classifies why a toggle outcome did not fully succeed.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailurePermissionDenied FailureKind = "permission_denied"
	FailureRootUnavailable  FailureKind = "root_unavailable"
	FailureCommandFailed    FailureKind = "command_failed"
	FailureShellFatal       FailureKind = "shell_fatal"
	FailureManualRequired   FailureKind = "manual_required"
	FailureBusy             FailureKind = "busy"
)

// CommandResult records one privileged command execution.
type CommandResult struct {
	Command    string `json:"command"`
	Succeeded  bool   `json:"succeeded"`
	Output     string `json:"output,omitempty"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ToggleOutcome is the structured result of one apply call.
//
// Success with TierRootShell only means the command sequence ran to the end;
// inspect Commands for individual failures.
type ToggleOutcome struct {
	ID           string          `json:"id"`
	Requested    DesiredState    `json:"requested_state"`
	Tier         Tier            `json:"tier_used"`
	Success      bool            `json:"success"`
	Commands     []CommandResult `json:"per_command_results,omitempty"`
	ScheduleID   string          `json:"schedule_id,omitempty"`
	ScheduleName string          `json:"schedule_name,omitempty"`
	Failure      FailureKind     `json:"failure,omitempty"`
	Message      string          `json:"message,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// FailedCommands returns the entries of Commands that did not succeed.
func (o ToggleOutcome) FailedCommands() []CommandResult {
	var out []CommandResult
	for _, item := range o.Commands {
		if !item.Succeeded {
			out = append(out, item)
		}
	}
	return out
}

// NeedsManualToggle reports whether the caller should offer the settings screen.
func (o ToggleOutcome) NeedsManualToggle() bool {
	return o.Tier == TierManualFallback
}

// ScheduleEvent is a point-in-time instruction produced by the scheduler.
type ScheduleEvent struct {
	ScheduleID   string       `json:"schedule_id"`
	ScheduleName string       `json:"schedule_name"`
	Desired      DesiredState `json:"desired_state"`
	FiresAt      time.Time    `json:"fires_at"`
}

// HostCapabilities is the read model of capability queries for a host UI.
type HostCapabilities struct {
	ElevatedPermission        bool  `json:"has_elevated_permission"`
	Root                      *bool `json:"has_root,omitempty"`
	ExactSchedulingPermission bool  `json:"has_exact_scheduling_permission"`
	BatteryOptimizationExempt bool  `json:"has_battery_optimization_exemption"`
}

// Snapshot converts the answers into a capability snapshot. An unprobed root
// check counts as unavailable.
func (h HostCapabilities) Snapshot(probedAt time.Time) CapabilitySnapshot {
	var usable []Tier
	if h.ElevatedPermission {
		usable = append(usable, TierElevatedSettingsWrite)
	}
	if h.Root != nil && *h.Root {
		usable = append(usable, TierRootShell)
	}
	return NewCapabilitySnapshot(probedAt, usable...)
}
