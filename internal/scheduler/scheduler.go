package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/spf13/afero"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// maxSleepCap bounds every wait so wall clock jumps are picked up.
const maxSleepCap = 60 * time.Second

// Scheduler fires airplane mode toggles from the schedules file. Each due
// firing is applied on its own goroutine; overlap is resolved by the toggler.
type Scheduler struct {
	toggler airplane.Toggler
	fs      afero.Fs
	path    string
	now     func() time.Time
	logger  *slog.Logger

	mu      sync.Mutex
	defs    map[string]Definition
	missed  map[string]bool
	fired   map[string]time.Time
	pending firingHeap
	wakeCh  chan struct{}

	inflight sync.WaitGroup
}

// New creates a scheduler reading definitions from path on fsys.
func New(toggler airplane.Toggler, fsys afero.Fs, path string, logger *slog.Logger) *Scheduler {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Scheduler{
		toggler: toggler,
		fs:      fsys,
		path:    path,
		now:     time.Now,
		logger:  logger,
		defs:    map[string]Definition{},
		missed:  map[string]bool{},
		fired:   map[string]time.Time{},
		wakeCh:  make(chan struct{}, 1),
	}
}

// Path returns the schedules file location.
func (s *Scheduler) Path() string {
	return s.path
}

// Reload re-reads the schedules file and rebuilds every pending firing.
// On error the previously loaded schedules stay active.
func (s *Scheduler) Reload(ctx context.Context) error {
	defs, err := LoadDefinitions(s.fs, s.path)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("schedules reload failed; keeping previous schedules", "path", s.path, "err", err)
		}
		return err
	}
	s.Replace(defs)
	return nil
}

// Replace installs defs as the active schedule set. One-shot schedules in the
// past are recorded as missed and never fired late, unless this scheduler
// already fired them at that time.
func (s *Scheduler) Replace(defs []Definition) {
	now := s.now()
	nextDefs := make(map[string]Definition, len(defs))
	expired := map[string]bool{}
	pending := firingHeap{}
	heap.Init(&pending)

	for _, def := range defs {
		nextDefs[def.ID] = def
		if !def.IsEnabled() {
			continue
		}
		at, ok := s.nextFiring(def, now)
		if !ok {
			expired[def.ID] = def.Cron == ""
			continue
		}
		heapPush(&pending, firing{ScheduleID: def.ID, At: at})
	}

	s.mu.Lock()
	missed := make(map[string]bool, len(expired))
	fired := map[string]time.Time{}
	for id, oneShot := range expired {
		def := nextDefs[id]
		if at, ok := s.fired[id]; ok && oneShot && def.At != nil && at.Equal(*def.At) {
			fired[id] = at
			continue
		}
		missed[id] = oneShot
	}
	s.defs = nextDefs
	s.missed = missed
	s.fired = fired
	s.pending = pending
	s.mu.Unlock()

	if s.logger != nil {
		for id, wasMissed := range missed {
			if wasMissed {
				def := nextDefs[id]
				s.logger.Warn("one-shot schedule missed", "schedule_id", id, "schedule_name", def.Name, "at", def.At)
			}
		}
		s.logger.Info("schedules loaded", "total", len(nextDefs), "pending", pending.Len())
	}
	s.wake()
}

func (s *Scheduler) nextFiring(def Definition, now time.Time) (time.Time, bool) {
	if def.Cron != "" {
		next, err := gronx.NextTickAfter(def.Cron, now, false)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("cron next tick failed", "schedule_id", def.ID, "cron", def.Cron, "err", err)
			}
			return time.Time{}, false
		}
		return next, true
	}
	if def.At == nil || !def.At.After(now) {
		return time.Time{}, false
	}
	return *def.At, true
}

// List returns every loaded schedule ordered by id.
func (s *Scheduler) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.defs))
	for id, def := range s.defs {
		entry := Entry{Definition: def, Missed: s.missed[id]}
		if f, ok := heapNext(s.pending, id); ok {
			at := f.At
			entry.NextFire = &at
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Fire applies a schedule immediately, outside its trigger, and waits for the
// outcome. Disabled schedules can still be fired by hand.
func (s *Scheduler) Fire(ctx context.Context, id string) (airplane.ToggleOutcome, error) {
	s.mu.Lock()
	def, ok := s.defs[id]
	s.mu.Unlock()
	if !ok {
		return airplane.ToggleOutcome{}, fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}
	event := def.Event(s.now())
	return s.toggler.Apply(ctx, event.Desired, &event), nil
}

// Run waits for due firings until ctx ends, then waits for in-flight firings.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.inflight.Wait()

	timer := time.NewTimer(maxSleepCap)
	defer timer.Stop()

	for {
		s.resetTimer(timer)
		select {
		case <-ctx.Done():
			return
		case <-s.wakeCh:
		case <-timer.C:
			for _, due := range s.popDue() {
				s.dispatch(ctx, due)
			}
		}
	}
}

func (s *Scheduler) resetTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	s.mu.Lock()
	wait := maxSleepCap
	if s.pending.Len() > 0 {
		wait = s.pending[0].At.Sub(s.now())
	}
	s.mu.Unlock()

	if wait > maxSleepCap {
		wait = maxSleepCap
	}
	if wait < 0 {
		wait = 0
	}
	timer.Reset(wait)
}

type dueFiring struct {
	def Definition
	at  time.Time
}

// popDue removes every firing at or before now and requeues cron schedules.
func (s *Scheduler) popDue() []dueFiring {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var due []dueFiring
	for s.pending.Len() > 0 && !s.pending[0].At.After(now) {
		f := heapPop(&s.pending)
		def, ok := s.defs[f.ScheduleID]
		if !ok || !def.IsEnabled() {
			continue
		}
		due = append(due, dueFiring{def: def, at: f.At})
		if def.Cron == "" {
			s.fired[def.ID] = f.At
			continue
		}
		next, err := gronx.NextTickAfter(def.Cron, now, false)
		if err == nil {
			heapPush(&s.pending, firing{ScheduleID: def.ID, At: next})
		}
	}
	return due
}

func (s *Scheduler) dispatch(ctx context.Context, due dueFiring) {
	event := due.def.Event(due.at)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		outcome := s.toggler.Apply(ctx, event.Desired, &event)
		if s.logger != nil {
			s.logger.Info("schedule fired",
				"schedule_id", event.ScheduleID,
				"schedule_name", event.ScheduleName,
				"desired", event.Desired.String(),
				"tier", outcome.Tier,
				"success", outcome.Success,
				"failure", outcome.Failure,
			)
		}
	}()
}

func (s *Scheduler) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}
