package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

const defaultInterval = 30 * time.Second

// StatePublisher receives the airplane flag when it changes.
type StatePublisher interface {
	PublishState(enabled bool)
}

// Poller re-reads the airplane flag periodically and on demand, and publishes
// it when it differs from the last observed value.
type Poller struct {
	reader    airplane.StateReader
	publisher StatePublisher
	interval  time.Duration
	refreshCh chan struct{}
	logger    *slog.Logger

	mu       sync.RWMutex
	known    bool
	last     bool
	observed time.Time
}

func New(reader airplane.StateReader, publisher StatePublisher, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		reader:    reader,
		publisher: publisher,
		interval:  interval,
		refreshCh: make(chan struct{}, 1),
		logger:    logger,
	}
}

func (p *Poller) TriggerRefresh() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

// Last returns the most recently observed flag and when it was read.
func (p *Poller) Last() (enabled bool, observedAt time.Time, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.observed, p.known
}

func (p *Poller) Run(ctx context.Context) {
	p.PollOnce(ctx)
	for {
		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.refreshCh:
			timer.Stop()
		case <-timer.C:
		}
		p.PollOnce(ctx)
	}
}

// PollOnce reads the flag and publishes it if it changed.
func (p *Poller) PollOnce(ctx context.Context) bool {
	enabled := p.reader.ReadState(ctx)

	p.mu.Lock()
	changed := !p.known || p.last != enabled
	p.known = true
	p.last = enabled
	p.observed = time.Now().UTC()
	p.mu.Unlock()

	if changed {
		if p.logger != nil {
			p.logger.Info("airplane mode state observed", "enabled", enabled)
		}
		if p.publisher != nil {
			p.publisher.PublishState(enabled)
		}
	}
	return enabled
}
