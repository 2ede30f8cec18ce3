package scheduler

import (
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// Definition is one schedule from the schedules file. Exactly one of Cron and
// At is set: Cron repeats, At fires once.
type Definition struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Enabled *bool      `json:"enabled,omitempty"`
	Enable  bool       `json:"enable"`
	Cron    string     `json:"cron,omitempty"`
	At      *time.Time `json:"at,omitempty"`
}

// IsEnabled defaults to true when the file omits the flag.
func (d Definition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Desired maps the enable flag onto the airplane mode value.
func (d Definition) Desired() airplane.DesiredState {
	return airplane.DesiredState(d.Enable)
}

// Event builds the instruction handed to the toggler for a firing at firesAt.
func (d Definition) Event(firesAt time.Time) airplane.ScheduleEvent {
	return airplane.ScheduleEvent{
		ScheduleID:   d.ID,
		ScheduleName: d.Name,
		Desired:      d.Desired(),
		FiresAt:      firesAt.UTC(),
	}
}

// Entry is a loaded schedule with its next firing, nil when it will not fire.
type Entry struct {
	Definition
	NextFire *time.Time `json:"next_fire,omitempty"`
	Missed   bool       `json:"missed,omitempty"`
}

// file is the on-disk layout of the schedules file.
type file struct {
	Schedules []Definition `json:"schedules"`
}

// firing is a pending heap entry. The definition is looked up by id when the
// firing is due so a reload never fires a stale definition.
type firing struct {
	ScheduleID string
	At         time.Time
}
