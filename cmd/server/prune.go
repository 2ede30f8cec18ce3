package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/micro-ha/airplane-scheduler/internal/storage"
)

const inboxPruneInterval = time.Hour

func runInboxPrune(ctx context.Context, repo *storage.Repository, keep int, logger *slog.Logger) {
	ticker := time.NewTicker(inboxPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			removed, err := repo.PruneNotifications(pruneCtx, keep)
			cancel()
			if err != nil {
				logger.Warn("notification prune failed", "err", err)
				continue
			}
			if removed > 0 {
				logger.Info("pruned notifications", "removed", removed, "keep", keep)
			}
		}
	}
}
