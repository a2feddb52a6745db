package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vigil/internal/clock"
	"vigil/internal/models"
)

// InvalidConfigurationError indicates a broken sender configuration (bad
// grace period, ping time or time zone). It is a data-integrity failure:
// silently defaulting would corrupt deadline math, so resolution fails fast.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// ResolvedStatus is the derived state of one sender's day.
type ResolvedStatus struct {
	Status      string     `json:"status"`
	Date        string     `json:"date"`
	ScheduledAt time.Time  `json:"scheduled_at,omitempty"`
	Deadline    time.Time  `json:"deadline,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Schedule computes the scheduled instant and deadline for the calendar day
// containing now in the sender's zone. It validates the configuration and is
// the single place deadline arithmetic lives.
func Schedule(cfg models.CheckinConfig, now time.Time) (scheduled, deadline time.Time, err error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return time.Time{}, time.Time{}, &InvalidConfigurationError{Field: "time_zone", Reason: "unknown: " + cfg.TimeZone}
	}
	if cfg.GraceMinutes <= 0 {
		return time.Time{}, time.Time{}, &InvalidConfigurationError{Field: "grace_minutes", Reason: "must be positive"}
	}
	hour, minute, ok := parseClockTime(cfg.PingTime)
	if !ok {
		return time.Time{}, time.Time{}, &InvalidConfigurationError{Field: "ping_time", Reason: "must be HH:MM"}
	}

	day := clock.StartOfDay(now, loc)
	scheduled = time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
	deadline = scheduled.Add(time.Duration(cfg.GraceMinutes) * time.Minute)
	return scheduled, deadline, nil
}

// ResolveToday derives the sender's status for the current calendar day from
// a snapshot of the day's ping record (nil if none exists yet) and the
// sender's breaks. Pure over its inputs; callers persist any transition.
//
// Break suppression pre-empts everything else. A completion recorded during
// a break coexists with on_break: the displayed status stays on_break and
// the completion remains visible as an auxiliary fact.
func ResolveToday(cfg models.CheckinConfig, ping *models.Ping, breaks []models.Break, now time.Time) (ResolvedStatus, error) {
	scheduled, deadline, err := Schedule(cfg, now)
	if err != nil {
		return ResolvedStatus{}, err
	}
	loc := scheduled.Location()
	today := clock.DateString(now, loc)

	if IsSuppressing(today, breaks) {
		resolved := ResolvedStatus{Status: models.StatusOnBreak, Date: today}
		if ping != nil && ping.CompletedAt != nil {
			resolved.CompletedAt = ping.CompletedAt
		}
		return resolved, nil
	}

	if ping != nil && ping.CompletedAt != nil {
		return ResolvedStatus{
			Status:      models.StatusCompleted,
			Date:        today,
			ScheduledAt: scheduled,
			Deadline:    deadline,
			CompletedAt: ping.CompletedAt,
		}, nil
	}

	status := models.StatusMissed
	if now.Before(deadline) {
		// Deadline is exclusive: a ping exactly at the deadline instant is
		// already missed.
		status = models.StatusPending
	}
	return ResolvedStatus{
		Status:      status,
		Date:        today,
		ScheduledAt: scheduled,
		Deadline:    deadline,
	}, nil
}

func parseClockTime(s string) (hour, minute int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
