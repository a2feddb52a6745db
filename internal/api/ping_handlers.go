package api

import (
	"database/sql"
	"log"
	"strconv"
	"time"

	"vigil/internal/clock"
	"vigil/internal/engine"
	"vigil/internal/models"

	"github.com/gofiber/fiber/v2"
)

// resolveAndMaterialize derives the sender's status for today and lazily
// writes the day's row so receivers and the workers see the same record. The
// upsert keyed on (sender_id, ping_date) makes concurrent calls safe.
//
// The stored row never moves to missed here: that transition belongs to the
// rollover worker, which fans out the receiver notifications and alert mail
// exactly once. Reads past the deadline report missed while the row stays
// pending until the worker expires it.
func resolveAndMaterialize(db *sql.DB, senderID int, cfg models.CheckinConfig, now time.Time) (engine.ResolvedStatus, error) {
	breaks, err := loadBreaks(db, senderID)
	if err != nil {
		return engine.ResolvedStatus{}, err
	}

	scheduled, deadline, err := engine.Schedule(cfg, now)
	if err != nil {
		return engine.ResolvedStatus{}, err
	}
	today := clock.DateString(now, scheduled.Location())

	ping, err := loadPing(db, senderID, today)
	if err != nil {
		return engine.ResolvedStatus{}, err
	}

	resolved, err := engine.ResolveToday(cfg, ping, breaks, now)
	if err != nil {
		return engine.ResolvedStatus{}, err
	}

	stored := resolved.Status
	if stored == models.StatusMissed {
		// An already-expired row stays as the worker left it.
		if ping != nil && ping.Status == models.StatusMissed {
			return resolved, nil
		}
		stored = models.StatusPending
	}

	// Completed rows are never rewritten here: a voluntary completion during
	// a break keeps both facts on the row while the resolved status stays
	// on_break.
	if ping == nil || (ping.CompletedAt == nil && ping.Status != stored) {
		if err := upsertPing(db, senderID, today, scheduled, deadline, stored); err != nil {
			return engine.ResolvedStatus{}, err
		}
	}
	return resolved, nil
}

// GetTodayHandler resolves today's check-in status for the current user.
func GetTodayHandler(db *sql.DB, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		cfg, err := loadConfig(db, userID)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Check-in configuration not found")
		}
		if err != nil {
			return err
		}
		if !cfg.Enabled {
			return c.JSON(fiber.Map{"enabled": false})
		}

		resolved, err := resolveAndMaterialize(db, userID, cfg, clk.Now())
		if err != nil {
			if _, ok := err.(*engine.InvalidConfigurationError); ok {
				log.Printf("Broken check-in configuration for user %d: %v", userID, err)
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
			return err
		}

		return c.JSON(resolved)
	}
}

// CompletePingHandler records a check-in completion. While a break covers
// today the completion is recorded but the day stays on_break; after the
// deadline it is a late completion, which flips the stored status back to
// completed while was_missed preserves the timeliness fact.
func CompletePingHandler(db *sql.DB, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		cfg, err := loadConfig(db, userID)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Check-in configuration not found")
		}
		if err != nil {
			return err
		}
		if !cfg.Enabled {
			return fiber.NewError(fiber.StatusConflict, "Check-ins are disabled")
		}

		now := clk.Now()
		breaks, err := loadBreaks(db, userID)
		if err != nil {
			return err
		}
		scheduled, deadline, err := engine.Schedule(cfg, now)
		if err != nil {
			if _, ok := err.(*engine.InvalidConfigurationError); ok {
				log.Printf("Broken check-in configuration for user %d: %v", userID, err)
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
			return err
		}
		today := clock.DateString(now, scheduled.Location())

		ping, err := loadPing(db, userID, today)
		if err != nil {
			return err
		}
		resolved, err := engine.ResolveToday(cfg, ping, breaks, now)
		if err != nil {
			return err
		}

		if resolved.CompletedAt != nil {
			// Already completed today; idempotent.
			return c.JSON(resolved)
		}

		completedAt := now
		method := models.MethodTap
		status := models.StatusCompleted
		wasMissed := false
		switch resolved.Status {
		case models.StatusOnBreak:
			method = models.MethodDuringBreak
			status = models.StatusOnBreak
		case models.StatusMissed:
			method = models.MethodLate
			wasMissed = true
		}

		if err := completePing(db, userID, today, scheduled, deadline, completedAt, method, status, wasMissed); err != nil {
			return err
		}

		go notifyReceivers(db, userID, engine.EventPingCompleted, clk)

		resolved.CompletedAt = &completedAt
		if resolved.Status != models.StatusOnBreak {
			resolved.Status = models.StatusCompleted
		}
		return c.JSON(resolved)
	}
}

// GetHistoryHandler lists the user's recent pings, newest first.
func GetHistoryHandler(db *sql.DB, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		days := 30
		if v := c.Query("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > engine.DefaultLookbackDays {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid days parameter")
			}
			days = n
		}

		cfg, err := loadConfig(db, userID)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		today := todayFor(cfg, clk.Now())

		history, err := loadHistory(db, userID, today, days)
		if err != nil {
			return err
		}

		return c.JSON(history)
	}
}

// GetStreakHandler returns the user's current streak. This is the single
// authoritative computation; every surface that shows a streak calls it.
func GetStreakHandler(db *sql.DB, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)
		streak, err := currentStreak(db, userID, clk.Now())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"streak": streak})
	}
}

// currentStreak computes the streak from the sender's persisted history.
func currentStreak(db *sql.DB, senderID int, now time.Time) (int, error) {
	cfg, err := loadConfig(db, senderID)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	loc := time.UTC
	if l, err := time.LoadLocation(cfg.TimeZone); err == nil && cfg.TimeZone != "" {
		loc = l
	}
	today := clock.StartOfDay(now, loc)

	history, err := loadHistory(db, senderID, clock.FormatDate(today), engine.DefaultLookbackDays)
	if err != nil {
		return 0, err
	}
	return engine.ComputeStreak(history, today, engine.DefaultLookbackDays), nil
}

// todayFor returns the calendar date of now in the config's zone, falling
// back to UTC when the zone is unusable.
func todayFor(cfg models.CheckinConfig, now time.Time) string {
	loc := time.UTC
	if cfg.TimeZone != "" {
		if l, err := time.LoadLocation(cfg.TimeZone); err == nil {
			loc = l
		}
	}
	return clock.DateString(now, loc)
}
