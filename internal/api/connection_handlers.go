package api

import (
	"database/sql"
	"strconv"

	"vigil/internal/clock"
	"vigil/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateConnectionHandler subscribes the current user (as receiver) to a
// sender's check-in outcomes.
func CreateConnectionHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		receiverID := c.Locals("userID").(int)

		var req models.CreateConnectionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.SenderUsername == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Sender username is required")
		}

		var senderID int
		err := db.QueryRow("SELECT id FROM users WHERE username = ?", req.SenderUsername).Scan(&senderID)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Sender not found")
		}
		if err != nil {
			return err
		}
		if senderID == receiverID {
			return fiber.NewError(fiber.StatusBadRequest, "Cannot watch yourself")
		}

		result, err := db.Exec(
			"INSERT OR IGNORE INTO connections (receiver_id, sender_id) VALUES (?, ?)",
			receiverID, senderID,
		)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fiber.NewError(fiber.StatusConflict, "Already watching this sender")
		}

		connID := 0
		_ = db.QueryRow("SELECT id FROM connections WHERE receiver_id = ? AND sender_id = ?", receiverID, senderID).Scan(&connID)

		return c.Status(fiber.StatusCreated).JSON(models.Connection{
			ID:             connID,
			ReceiverID:     receiverID,
			SenderID:       senderID,
			SenderUsername: req.SenderUsername,
		})
	}
}

// ListConnectionsHandler lists the senders the current user watches.
func ListConnectionsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		receiverID := c.Locals("userID").(int)

		rows, err := db.Query(
			`SELECT co.id, co.receiver_id, co.sender_id, u.username, co.muted, co.created_at
			FROM connections co JOIN users u ON u.id = co.sender_id
			WHERE co.receiver_id = ? ORDER BY u.username ASC`,
			receiverID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		connections := []models.Connection{}
		for rows.Next() {
			var conn models.Connection
			if err := rows.Scan(&conn.ID, &conn.ReceiverID, &conn.SenderID, &conn.SenderUsername, &conn.Muted, &conn.CreatedAt); err != nil {
				return err
			}
			connections = append(connections, conn)
		}

		return c.JSON(connections)
	}
}

// GetConnectionStatusHandler resolves a watched sender's current day and
// streak for the receiver view. It reads through the same resolver and
// streak functions as the sender's own view, so the two can never disagree.
func GetConnectionStatusHandler(db *sql.DB, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		receiverID := c.Locals("userID").(int)
		connID, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid connection ID")
		}

		var senderID int
		var senderUsername string
		err = db.QueryRow(
			`SELECT co.sender_id, u.username FROM connections co JOIN users u ON u.id = co.sender_id
			WHERE co.id = ? AND co.receiver_id = ?`,
			connID, receiverID,
		).Scan(&senderID, &senderUsername)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Connection not found")
		}
		if err != nil {
			return err
		}

		cfg, err := loadConfig(db, senderID)
		if err == sql.ErrNoRows {
			return fiber.NewError(fiber.StatusNotFound, "Sender has no check-in configuration")
		}
		if err != nil {
			return err
		}
		if !cfg.Enabled {
			return c.JSON(fiber.Map{"sender_username": senderUsername, "enabled": false})
		}

		resolved, err := resolveAndMaterialize(db, senderID, cfg, clk.Now())
		if err != nil {
			return err
		}
		streak, err := currentStreak(db, senderID, clk.Now())
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"sender_username": senderUsername,
			"enabled":         true,
			"today":           resolved,
			"streak":          streak,
		})
	}
}

// MuteConnectionHandler sets the receiver-side mute flag feeding the
// notification-eligibility filter.
func MuteConnectionHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		receiverID := c.Locals("userID").(int)
		connID, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid connection ID")
		}

		var req models.MuteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		result, err := db.Exec(
			"UPDATE connections SET muted = ? WHERE id = ? AND receiver_id = ?",
			req.Muted, connID, receiverID,
		)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Connection not found")
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

// DeleteConnectionHandler stops watching a sender.
func DeleteConnectionHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		receiverID := c.Locals("userID").(int)
		connID, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid connection ID")
		}

		result, err := db.Exec("DELETE FROM connections WHERE id = ? AND receiver_id = ?", connID, receiverID)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Connection not found")
		}

		return c.JSON(fiber.Map{"success": true})
	}
}
