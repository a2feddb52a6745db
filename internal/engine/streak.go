package engine

import (
	"time"

	"vigil/internal/clock"
	"vigil/internal/models"
)

// DefaultLookbackDays caps the streak walk. It is a safety bound, not a
// business rule: any realistic history shorter than the cap yields the same
// answer at any larger cap.
const DefaultLookbackDays = 730

// statusPriority orders raw statuses when de-duplicating records for one
// date. The store's UNIQUE constraint should make duplicates impossible;
// the walk stays robust to them anyway.
func statusPriority(status string) int {
	switch status {
	case models.StatusCompleted:
		return 4
	case models.StatusOnBreak:
		return 3
	case models.StatusPending:
		return 2
	case models.StatusMissed:
		return 1
	default:
		return 0
	}
}

// effectiveStatuses collapses a ping history to one status per calendar day.
func effectiveStatuses(history []models.Ping) map[string]string {
	byDate := make(map[string]string, len(history))
	for _, p := range history {
		status := p.Status
		// A completion timestamp wins over a stale stored status; a late
		// completion counts as completed for streak purposes.
		if p.CompletedAt != nil && status != models.StatusOnBreak {
			status = models.StatusCompleted
		}
		if prev, ok := byDate[p.PingDate]; !ok || statusPriority(status) > statusPriority(prev) {
			byDate[p.PingDate] = status
		}
	}
	return byDate
}

// ComputeStreak walks the sender's ping history backward from today and
// counts consecutive qualifying days. Completed and on_break days qualify; a
// missed day stops the walk (and a miss today resets the streak to zero).
// Gaps before the sender ever started are skipped; a gap after counting has
// started ends the streak. lookbackDays <= 0 falls back to
// DefaultLookbackDays.
func ComputeStreak(history []models.Ping, today time.Time, lookbackDays int) int {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	byDate := effectiveStatuses(history)

	todayKey := clock.FormatDate(today)
	streak := 0
	counting := false

	if status, ok := byDate[todayKey]; ok {
		switch status {
		case models.StatusMissed:
			return 0
		case models.StatusCompleted, models.StatusOnBreak:
			streak = 1
			counting = true
		}
		// Pending today neither counts nor stops: yesterday's run still
		// stands while today's window is open.
	}

	for i := 1; i <= lookbackDays; i++ {
		key := clock.FormatDate(clock.AddDays(today, -i))
		status, ok := byDate[key]
		if !ok {
			if counting {
				return streak
			}
			continue
		}
		switch status {
		case models.StatusCompleted, models.StatusOnBreak:
			streak++
			counting = true
		case models.StatusMissed:
			return streak
		default:
			// Pending on a past date should not occur; treat like a gap.
			if counting {
				return streak
			}
		}
	}
	return streak
}
