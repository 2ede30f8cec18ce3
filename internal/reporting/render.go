package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/google/uuid"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

// UnknownScheduleName is shown when an outcome carries no schedule name.
const UnknownScheduleName = "Unknown"

// Render turns an outcome into the notification shown to the user.
func Render(outcome airplane.ToggleOutcome, now time.Time) airplane.Notification {
	name := strings.TrimSpace(outcome.ScheduleName)
	if name == "" {
		name = UnknownScheduleName
	}
	verb := "enable"
	if !outcome.Requested {
		verb = "disable"
	}

	n := airplane.Notification{
		ID:           uuid.NewString(),
		Kind:         airplane.NotificationResult,
		ScheduleID:   outcome.ScheduleID,
		ScheduleName: name,
		Outcome:      outcome,
		CreatedAt:    now.UTC(),
	}

	switch {
	case outcome.Success:
		n.Title = "Airplane Mode Enabled"
		if !outcome.Requested {
			n.Title = "Airplane Mode Disabled"
		}
		n.Message = fmt.Sprintf("Schedule %q %sd airplane mode", name, verb)
		if failed := len(outcome.FailedCommands()); failed > 0 {
			n.Message += fmt.Sprintf("; %s failed", english.Plural(failed, "radio command", ""))
		}
	case outcome.Failure == airplane.FailureBusy:
		n.Title = "Airplane Mode Unchanged"
		n.Message = fmt.Sprintf("Schedule %q was skipped because another toggle was in progress", name)
	default:
		n.Kind = airplane.NotificationManual
		n.Title = fmt.Sprintf("%s Airplane Mode?", strings.ToUpper(verb[:1])+verb[1:])
		n.Message = fmt.Sprintf("Schedule %q tried to %s airplane mode. Tap to open settings.", name, verb)
	}
	return n
}
