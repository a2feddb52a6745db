package api

import (
	"database/sql"
	"time"

	"vigil/internal/engine"
	"vigil/internal/models"

	"github.com/gofiber/fiber/v2"
)

type UpdateEmailRequest struct {
	Email *string `json:"email"`
}

// UpdateUserEmailHandler updates the user's email address. The email is
// where missed-ping alert mail for this user's watched senders goes.
func UpdateUserEmailHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		var req UpdateEmailRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if req.Email != nil && *req.Email != "" {
			if len(*req.Email) < 3 || len(*req.Email) > 254 {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid email format")
			}
		}

		var emailValue interface{}
		if req.Email == nil || *req.Email == "" {
			emailValue = nil
		} else {
			emailValue = *req.Email
		}

		if _, err := db.Exec("UPDATE users SET email = ? WHERE id = ?", emailValue, userID); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to update email")
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

// GetUserProfileHandler returns the current user's profile.
func GetUserProfileHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		var user models.User
		err := db.QueryRow(
			"SELECT id, username, COALESCE(email, ''), created_at FROM users WHERE id = ?",
			userID,
		).Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		if err != nil {
			return err
		}

		return c.JSON(user)
	}
}

// GetConfigHandler returns the user's check-in configuration.
func GetConfigHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		cfg, err := loadConfig(db, userID)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Check-in configuration not found")
		}
		if err != nil {
			return err
		}

		return c.JSON(cfg)
	}
}

// UpdateConfigHandler applies a partial update to the user's check-in
// configuration. The merged configuration is validated with the same rules
// the resolver enforces, so a config that would corrupt deadline math is
// rejected up front instead of failing every later resolution.
func UpdateConfigHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		var req models.UpdateConfigRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		cfg, err := loadConfig(db, userID)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Check-in configuration not found")
		}
		if err != nil {
			return err
		}

		if req.PingTime != nil {
			cfg.PingTime = *req.PingTime
		}
		if req.TimeZone != nil {
			cfg.TimeZone = *req.TimeZone
		}
		if req.GraceMinutes != nil {
			cfg.GraceMinutes = *req.GraceMinutes
		}
		if req.Enabled != nil {
			cfg.Enabled = *req.Enabled
		}

		if _, _, err := engine.Schedule(cfg, time.Now()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		_, err = db.Exec(
			`UPDATE checkin_configs SET ping_time = ?, time_zone = ?, grace_minutes = ?, enabled = ?, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = ?`,
			cfg.PingTime, cfg.TimeZone, cfg.GraceMinutes, cfg.Enabled, userID,
		)
		if err != nil {
			return err
		}

		return c.JSON(cfg)
	}
}
