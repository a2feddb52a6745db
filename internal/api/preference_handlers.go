package api

import (
	"database/sql"

	"vigil/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPreferencesHandler returns the user's notification preferences,
// including the muted sender set derived from connections.
func GetPreferencesHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		prefs, err := loadPreferences(db, userID)
		if err != nil {
			return err
		}

		return c.JSON(prefs)
	}
}

// UpdatePreferencesHandler applies a partial update to the preferences row.
// Quiet-hours bounds must be "HH:MM" or empty; an empty pair disables the
// window. Muting is per-connection and handled by the connection routes.
func UpdatePreferencesHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		var req models.UpdatePreferencesRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		prefs, err := loadPreferences(db, userID)
		if err != nil {
			return err
		}

		if req.MasterEnabled != nil {
			prefs.MasterEnabled = *req.MasterEnabled
		}
		if req.PingCompleted != nil {
			prefs.PingCompleted = *req.PingCompleted
		}
		if req.PingMissed != nil {
			prefs.PingMissed = *req.PingMissed
		}
		if req.BreakStarted != nil {
			prefs.BreakStarted = *req.BreakStarted
		}
		if req.Reminder != nil {
			prefs.Reminder = *req.Reminder
		}
		if req.QuietHoursStart != nil {
			prefs.QuietHoursStart = *req.QuietHoursStart
		}
		if req.QuietHoursEnd != nil {
			prefs.QuietHoursEnd = *req.QuietHoursEnd
		}

		if !validQuietBound(prefs.QuietHoursStart) || !validQuietBound(prefs.QuietHoursEnd) {
			return fiber.NewError(fiber.StatusBadRequest, "Quiet hours must be HH:MM")
		}
		if (prefs.QuietHoursStart == "") != (prefs.QuietHoursEnd == "") {
			return fiber.NewError(fiber.StatusBadRequest, "Quiet hours need both a start and an end")
		}

		_, err = db.Exec(
			`INSERT INTO notification_preferences (user_id, master_enabled, ping_completed, ping_missed, break_started, reminder, quiet_hours_start, quiet_hours_end)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				master_enabled = excluded.master_enabled,
				ping_completed = excluded.ping_completed,
				ping_missed = excluded.ping_missed,
				break_started = excluded.break_started,
				reminder = excluded.reminder,
				quiet_hours_start = excluded.quiet_hours_start,
				quiet_hours_end = excluded.quiet_hours_end,
				updated_at = CURRENT_TIMESTAMP`,
			userID, prefs.MasterEnabled, prefs.PingCompleted, prefs.PingMissed,
			prefs.BreakStarted, prefs.Reminder, prefs.QuietHoursStart, prefs.QuietHoursEnd,
		)
		if err != nil {
			return err
		}

		return c.JSON(prefs)
	}
}

func validQuietBound(s string) bool {
	if s == "" {
		return true
	}
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hh := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[3]-'0')*10 + int(s[4]-'0')
	for _, ch := range []byte{s[0], s[1], s[3], s[4]} {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return hh >= 0 && hh <= 23 && mm >= 0 && mm <= 59
}
