package actuator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// GateMode decides what a second concurrent caller gets.
type GateMode string

const (
	// GateQueue waits for the in-flight apply to finish.
	GateQueue GateMode = "queue"
	// GateDrop returns a busy outcome immediately.
	GateDrop GateMode = "drop"
)

// ParseGateMode returns GateQueue for anything but "drop".
func ParseGateMode(raw string) GateMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(GateDrop)) {
		return GateDrop
	}
	return GateQueue
}

// Gate allows at most one apply in flight so that two schedules firing
// together cannot interleave their command sequences.
type Gate struct {
	next   airplane.Toggler
	slot   *semaphore.Weighted
	mode   GateMode
	logger *slog.Logger
}

// NewGate wraps next with a single-slot gate.
func NewGate(next airplane.Toggler, mode GateMode, logger *slog.Logger) *Gate {
	return &Gate{next: next, slot: semaphore.NewWeighted(1), mode: mode, logger: logger}
}

// Apply forwards to the wrapped toggler once the slot is held.
func (g *Gate) Apply(
	ctx context.Context,
	desired airplane.DesiredState,
	event *airplane.ScheduleEvent,
) airplane.ToggleOutcome {
	if g.mode == GateDrop {
		if !g.slot.TryAcquire(1) {
			return g.busy(desired, event, "another toggle is in progress")
		}
	} else if err := g.slot.Acquire(ctx, 1); err != nil {
		return g.busy(desired, event, fmt.Sprintf("gave up waiting for in-flight toggle: %v", err))
	}
	defer g.slot.Release(1)
	return g.next.Apply(ctx, desired, event)
}

func (g *Gate) busy(desired airplane.DesiredState, event *airplane.ScheduleEvent, message string) airplane.ToggleOutcome {
	now := time.Now().UTC()
	outcome := airplane.ToggleOutcome{
		ID:         uuid.NewString(),
		Requested:  desired,
		Tier:       airplane.TierNone,
		Success:    false,
		Failure:    airplane.FailureBusy,
		Message:    message,
		StartedAt:  now,
		FinishedAt: now,
	}
	if event != nil {
		outcome.ScheduleID = event.ScheduleID
		outcome.ScheduleName = event.ScheduleName
	}
	if g.logger != nil {
		g.logger.Warn("toggle skipped", "desired", desired.String(), "schedule_id", outcome.ScheduleID, "reason", message)
	}
	return outcome
}
