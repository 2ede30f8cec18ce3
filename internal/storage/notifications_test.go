package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNotificationsRoundTripNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC)

	for i, name := range []string{"Night Mode", "Morning", "Lunch"} {
		n := airplane.Notification{
			ID:           name,
			Kind:         airplane.NotificationResult,
			Title:        "Airplane Mode Enabled",
			Message:      "Schedule \"" + name + "\" enabled airplane mode",
			ScheduleName: name,
			Outcome: airplane.ToggleOutcome{
				ID:        "o-" + name,
				Requested: airplane.On,
				Tier:      airplane.TierRootShell,
				Success:   true,
				Commands:  []airplane.CommandResult{{Command: "svc data disable", ExitCode: 1}},
			},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if i == 0 {
			n.ScheduleID = "s1"
		}
		if err := repo.InsertNotification(ctx, n); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	items, err := repo.ListNotifications(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != "Lunch" || items[1].ID != "Morning" {
		t.Fatalf("unexpected order: %+v", items)
	}
	if items[0].Outcome.Tier != airplane.TierRootShell || len(items[0].Outcome.FailedCommands()) != 1 {
		t.Fatalf("outcome not preserved: %+v", items[0].Outcome)
	}

	all, err := repo.ListNotifications(ctx, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 || all[2].ScheduleID != "s1" || !all[2].CreatedAt.Equal(base) {
		t.Fatalf("unexpected items: %+v", all)
	}
}

func TestPruneNotifications(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := repo.InsertNotification(ctx, airplane.Notification{
			ID:        string(rune('a' + i)),
			Kind:      airplane.NotificationManual,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	removed, err := repo.PruneNotifications(ctx, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	items, _ := repo.ListNotifications(ctx, 10)
	if len(items) != 2 || items[0].ID != "e" {
		t.Fatalf("unexpected remaining items: %+v", items)
	}
}
