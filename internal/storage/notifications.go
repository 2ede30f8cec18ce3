package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

func (r *Repository) InsertNotification(ctx context.Context, n airplane.Notification) error {
	outcome, err := json.Marshal(n.Outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, kind, title, message, schedule_id, schedule_name, outcome_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		string(n.Kind),
		n.Title,
		n.Message,
		nullString(n.ScheduleID),
		n.ScheduleName,
		string(outcome),
		formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the newest notifications first.
func (r *Repository) ListNotifications(ctx context.Context, limit int) ([]airplane.Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, title, message, schedule_id, schedule_name, outcome_json, created_at
		FROM notifications
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]airplane.Notification, 0)
	for rows.Next() {
		var (
			n          airplane.Notification
			kind       string
			scheduleID sql.NullString
			outcome    string
			createdAt  string
		)
		if err := rows.Scan(&n.ID, &kind, &n.Title, &n.Message, &scheduleID, &n.ScheduleName, &outcome, &createdAt); err != nil {
			return nil, err
		}
		n.Kind = airplane.NotificationKind(kind)
		n.ScheduleID = scheduleID.String
		n.CreatedAt = parseTime(createdAt)
		if err := json.Unmarshal([]byte(outcome), &n.Outcome); err != nil && r.logger != nil {
			r.logger.Warn("stored outcome is unreadable", "notification_id", n.ID, "err", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// PruneNotifications keeps the newest keep rows.
func (r *Repository) PruneNotifications(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM notifications WHERE id NOT IN (
			SELECT id FROM notifications ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune notifications: %w", err)
	}
	return res.RowsAffected()
}
