package reporting

import (
	"context"
	"log/slog"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// Multi fans one outcome out to every reporter in order.
type Multi []airplane.OutcomeReporter

func (m Multi) Report(ctx context.Context, outcome airplane.ToggleOutcome) {
	for _, reporter := range m {
		if reporter != nil {
			reporter.Report(ctx, outcome)
		}
	}
}

// LogReporter writes one structured line per outcome.
type LogReporter struct {
	Logger *slog.Logger
}

func (r LogReporter) Report(ctx context.Context, outcome airplane.ToggleOutcome) {
	if r.Logger == nil {
		return
	}
	attrs := []any{
		"outcome_id", outcome.ID,
		"desired", outcome.Requested.String(),
		"tier", outcome.Tier,
		"success", outcome.Success,
		"schedule_id", outcome.ScheduleID,
		"schedule_name", outcome.ScheduleName,
		"failed_commands", len(outcome.FailedCommands()),
		"duration_ms", outcome.FinishedAt.Sub(outcome.StartedAt).Milliseconds(),
	}
	if outcome.Failure != airplane.FailureNone {
		attrs = append(attrs, "failure", outcome.Failure, "message", outcome.Message)
	}
	if outcome.Success {
		r.Logger.InfoContext(ctx, "toggle outcome", attrs...)
		return
	}
	r.Logger.WarnContext(ctx, "toggle outcome", attrs...)
}

// Notifier renders outcomes and stores them in the notification inbox.
type Notifier struct {
	store  airplane.NotificationStore
	now    func() time.Time
	logger *slog.Logger
}

func NewNotifier(store airplane.NotificationStore, logger *slog.Logger) *Notifier {
	return &Notifier{store: store, now: time.Now, logger: logger}
}

func (n *Notifier) Report(ctx context.Context, outcome airplane.ToggleOutcome) {
	notification := Render(outcome, n.now())
	if err := n.store.InsertNotification(ctx, notification); err != nil && n.logger != nil {
		n.logger.Error("store notification failed", "outcome_id", outcome.ID, "err", err)
	}
}
