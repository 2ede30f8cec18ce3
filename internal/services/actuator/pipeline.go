package actuator

import (
	"context"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// Refresher is notified after every apply so state watchers re-read early.
type Refresher interface {
	TriggerRefresh()
}

// Pipeline hands every outcome of next to reporter.
type Pipeline struct {
	next      airplane.Toggler
	reporter  airplane.OutcomeReporter
	refresher Refresher
}

// NewPipeline wires a toggler to its reporter. refresher may be nil.
func NewPipeline(next airplane.Toggler, reporter airplane.OutcomeReporter, refresher Refresher) *Pipeline {
	return &Pipeline{next: next, reporter: reporter, refresher: refresher}
}

// Apply runs the toggle and reports the outcome before returning it.
func (p *Pipeline) Apply(
	ctx context.Context,
	desired airplane.DesiredState,
	event *airplane.ScheduleEvent,
) airplane.ToggleOutcome {
	outcome := p.next.Apply(ctx, desired, event)
	if p.reporter != nil {
		p.reporter.Report(context.WithoutCancel(ctx), outcome)
	}
	if p.refresher != nil {
		p.refresher.TriggerRefresh()
	}
	return outcome
}
