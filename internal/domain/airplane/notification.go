package airplane

import (
	"context"
	"time"
)

// NotificationKind tells a host UI how to present a notification.
type NotificationKind string

const (
	// NotificationResult reports a finished toggle.
	NotificationResult NotificationKind = "result"
	// NotificationManual asks the user to open the settings screen.
	NotificationManual NotificationKind = "manual"
)

// Notification is the user facing rendering of one ToggleOutcome.
type Notification struct {
	ID           string           `json:"id"`
	Kind         NotificationKind `json:"kind"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	ScheduleID   string           `json:"schedule_id,omitempty"`
	ScheduleName string           `json:"schedule_name"`
	Outcome      ToggleOutcome    `json:"outcome"`
	CreatedAt    time.Time        `json:"created_at"`
}

// NotificationStore keeps rendered notifications for later listing.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, limit int) ([]Notification, error)
}
