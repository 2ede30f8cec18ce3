package poller

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeReader struct {
	mu    sync.Mutex
	state bool
	reads int
}

func (f *fakeReader) ReadState(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.state
}

func (f *fakeReader) set(v bool) {
	f.mu.Lock()
	f.state = v
	f.mu.Unlock()
}

type fakePublisher struct {
	mu     sync.Mutex
	states []bool
}

func (f *fakePublisher) PublishState(enabled bool) {
	f.mu.Lock()
	f.states = append(f.states, enabled)
	f.mu.Unlock()
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.states)
}

func TestPollOncePublishesOnlyChanges(t *testing.T) {
	reader := &fakeReader{}
	publisher := &fakePublisher{}
	p := New(reader, publisher, time.Hour, nil)

	p.PollOnce(context.Background())
	p.PollOnce(context.Background())
	reader.set(true)
	p.PollOnce(context.Background())

	if publisher.count() != 2 {
		t.Fatalf("expected initial + change publish, got %v", publisher.states)
	}
	if enabled, _, ok := p.Last(); !ok || !enabled {
		t.Fatalf("expected last state on")
	}
}

func TestTriggerRefreshWakesRun(t *testing.T) {
	reader := &fakeReader{}
	publisher := &fakePublisher{}
	p := New(reader, publisher, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for publisher.count() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("expected initial poll")
		}
		time.Sleep(10 * time.Millisecond)
	}

	reader.set(true)
	p.TriggerRefresh()
	p.TriggerRefresh()

	for publisher.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("expected refresh to re-read state")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
