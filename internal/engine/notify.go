package engine

import (
	"time"

	"vigil/internal/models"
)

// EventKind identifies a notification-worthy state transition. The set is
// closed: delivery code switches on these instead of passing loose metadata
// maps around.
type EventKind string

const (
	EventPingCompleted EventKind = "ping_completed"
	EventPingMissed    EventKind = "ping_missed"
	EventBreakStarted  EventKind = "break_started"
	EventReminder      EventKind = "reminder"
	EventTest          EventKind = "test"
)

// ShouldNotify decides whether an event should produce a user-visible
// notification for the owner of prefs. senderID is the subject sender for
// receiver-side events, or 0 when the event has no subject. Checks run in a
// fixed order: master toggle, quiet hours, per-sender mute, then the
// per-category preference. Kinds without a dedicated preference default to
// allowed. Pure over its inputs; never performs I/O.
func ShouldNotify(prefs models.NotificationPreferences, kind EventKind, senderID int, now time.Time) bool {
	if !prefs.MasterEnabled {
		return false
	}
	if inQuietHours(prefs.QuietHoursStart, prefs.QuietHoursEnd, now) {
		return false
	}
	if senderID != 0 {
		for _, muted := range prefs.MutedSenderIDs {
			if muted == senderID {
				return false
			}
		}
	}
	switch kind {
	case EventPingCompleted:
		return prefs.PingCompleted
	case EventPingMissed:
		return prefs.PingMissed
	case EventBreakStarted:
		return prefs.BreakStarted
	case EventReminder:
		return prefs.Reminder
	default:
		return true
	}
}

// inQuietHours reports whether now's local time-of-day falls in the window
// [start, end). A window with start > end wraps midnight, so "22:00" to
// "07:00" means after 22:00 or before 07:00. Empty or malformed bounds disable the
// window, as does a zero-length one.
func inQuietHours(start, end string, now time.Time) bool {
	startMin, okStart := minutesOfDay(start)
	endMin, okEnd := minutesOfDay(end)
	if !okStart || !okEnd || startMin == endMin {
		return false
	}
	nowMin := now.Hour()*60 + now.Minute()
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	return nowMin >= startMin || nowMin < endMin
}

func minutesOfDay(s string) (int, bool) {
	hour, minute, ok := parseClockTime(s)
	if !ok {
		return 0, false
	}
	return hour*60 + minute, true
}
