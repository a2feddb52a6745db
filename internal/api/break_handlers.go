package api

import (
	"database/sql"
	"strconv"

	"vigil/internal/clock"
	"vigil/internal/engine"
	"vigil/internal/models"

	"github.com/gofiber/fiber/v2"
)

// breakErrorMessage maps validator error kinds to the inline messages the
// client renders.
func breakErrorMessage(kind string) string {
	switch kind {
	case engine.ErrInvalidRange:
		return "End date must be on or after start date"
	case engine.ErrStartInPast:
		return "Break cannot start in the past"
	case engine.ErrOverlappingBreak:
		return "You already have a break during this period"
	default:
		return "Invalid break"
	}
}

// CreateBreakHandler schedules a break. Validation runs inside the same
// transaction that inserts, against a snapshot read under that transaction,
// so two overlapping requests cannot both pass.
func CreateBreakHandler(db *sql.DB, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		var req models.CreateBreakRequest
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
		today := todayFor(cfg, clk.Now())

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		existing, err := loadBreaks(tx, userID)
		if err != nil {
			return err
		}

		result := engine.ValidateBreak(req.StartDate, req.EndDate, today, existing)
		if !result.Valid {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error_kind": result.ErrorKind,
				"message":    breakErrorMessage(result.ErrorKind),
			})
		}

		status := models.BreakScheduled
		if req.StartDate <= today {
			status = models.BreakActive
		}

		res, err := tx.Exec(
			"INSERT INTO breaks (sender_id, start_date, end_date, status, notes) VALUES (?, ?, ?, ?, ?)",
			userID, req.StartDate, req.EndDate, status, req.Notes,
		)
		if err != nil {
			return err
		}
		breakID, _ := res.LastInsertId()

		if err := tx.Commit(); err != nil {
			return err
		}

		if status == models.BreakActive {
			go notifyReceivers(db, userID, engine.EventBreakStarted, clk)
		}

		resp := fiber.Map{
			"break": models.Break{
				ID:        int(breakID),
				SenderID:  userID,
				StartDate: req.StartDate,
				EndDate:   req.EndDate,
				Status:    status,
				Notes:     req.Notes,
			},
		}
		if result.Warning != "" {
			resp["warning"] = result.Warning
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// ListBreaksHandler lists the user's breaks with their date-derived status.
func ListBreaksHandler(db *sql.DB, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		cfg, err := loadConfig(db, userID)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		today := todayFor(cfg, clk.Now())

		breaks, err := loadBreaks(db, userID)
		if err != nil {
			return err
		}
		for i := range breaks {
			breaks[i].Status = engine.BreakStatusOn(breaks[i], today)
		}

		return c.JSON(breaks)
	}
}

// CancelBreakHandler cancels a scheduled or active break. Canceled is
// terminal; completed breaks cannot be canceled.
func CancelBreakHandler(db *sql.DB, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)
		breakID, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid break ID")
		}

		var b models.Break
		err = db.QueryRow(
			"SELECT id, sender_id, start_date, end_date, status FROM breaks WHERE id = ? AND sender_id = ?",
			breakID, userID,
		).Scan(&b.ID, &b.SenderID, &b.StartDate, &b.EndDate, &b.Status)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Break not found")
		}
		if err != nil {
			return err
		}

		cfg, err := loadConfig(db, userID)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		today := todayFor(cfg, clk.Now())

		switch engine.BreakStatusOn(b, today) {
		case models.BreakScheduled, models.BreakActive:
		default:
			return fiber.NewError(fiber.StatusConflict, "Only scheduled or active breaks can be canceled")
		}

		_, err = db.Exec(
			"UPDATE breaks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			models.BreakCanceled, breakID,
		)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
