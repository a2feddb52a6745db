package api

import (
	"database/sql"
	"log"
	"time"

	"vigil/internal/clock"
	"vigil/internal/engine"
	"vigil/internal/models"
)

// reminderLead is how long before the deadline the pre-deadline nudge fires.
const reminderLead = 30 * time.Minute

// RolloverPings is the daily-generation pass. For every enabled sender it
// expires past-deadline pending pings to missed (alerting receivers) and
// materializes the current day's row, so receivers see a live record even if
// the sender never opens the app. The same per-sender resolution path the
// read handlers use does the work; this pass just drives it on a schedule.
func RolloverPings(db *sql.DB, clk clock.Clock) error {
	now := clk.Now()

	if err := expireOverduePings(db, now, clk); err != nil {
		return err
	}

	rows, err := db.Query("SELECT user_id, ping_time, time_zone, grace_minutes, enabled, updated_at FROM checkin_configs WHERE enabled = 1")
	if err != nil {
		return err
	}
	defer rows.Close()

	configs := []models.CheckinConfig{}
	for rows.Next() {
		var cfg models.CheckinConfig
		if err := rows.Scan(&cfg.UserID, &cfg.PingTime, &cfg.TimeZone, &cfg.GraceMinutes, &cfg.Enabled, &cfg.UpdatedAt); err != nil {
			return err
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	materialized := 0
	for _, cfg := range configs {
		if _, err := resolveAndMaterialize(db, cfg.UserID, cfg, now); err != nil {
			// A broken configuration is a data-integrity problem; log loudly
			// and keep rolling the other senders.
			log.Printf("Rollover failed for sender %d: %v", cfg.UserID, err)
			continue
		}
		materialized++
	}

	log.Printf("Rollover pass: %d/%d senders materialized", materialized, len(configs))
	return nil
}

// expireOverduePings transitions pending pings whose deadline has passed to
// missed and fans out the alert to receivers (push, then best-effort email).
func expireOverduePings(db *sql.DB, now time.Time, clk clock.Clock) error {
	rows, err := db.Query(
		"SELECT id, sender_id, ping_date, deadline_at FROM pings WHERE status = ? AND completed_at IS NULL",
		models.StatusPending,
	)
	if err != nil {
		return err
	}

	type overdue struct {
		id       int
		senderID int
		pingDate string
		deadline time.Time
	}
	expired := []overdue{}
	for rows.Next() {
		var o overdue
		if err := rows.Scan(&o.id, &o.senderID, &o.pingDate, &o.deadline); err != nil {
			rows.Close()
			return err
		}
		// Deadline is exclusive: exactly at the deadline instant counts as
		// missed.
		if !now.Before(o.deadline) {
			expired = append(expired, o)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, o := range expired {
		_, err := db.Exec(
			"UPDATE pings SET status = ?, was_missed = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND completed_at IS NULL",
			models.StatusMissed, o.id,
		)
		if err != nil {
			return err
		}

		notifyReceivers(db, o.senderID, engine.EventPingMissed, clk)
		alertReceiversByEmail(db, o.senderID, o.pingDate, o.deadline)
	}

	if len(expired) > 0 {
		log.Printf("Expired %d overdue pings to missed", len(expired))
	}
	return nil
}

// alertReceiversByEmail sends the missed-ping alert mail to every receiver
// with an email on file. Failures are logged, never propagated: email is a
// secondary channel.
func alertReceiversByEmail(db *sql.DB, senderID int, pingDate string, deadline time.Time) {
	var senderName string
	if err := db.QueryRow("SELECT username FROM users WHERE id = ?", senderID).Scan(&senderName); err != nil {
		log.Printf("Alert email: unknown sender %d: %v", senderID, err)
		return
	}

	rows, err := db.Query(
		`SELECT COALESCE(u.email, '') FROM connections co
		JOIN users u ON u.id = co.receiver_id
		WHERE co.sender_id = ? AND co.muted = 0`,
		senderID,
	)
	if err != nil {
		log.Printf("Alert email: failed to list receivers of %d: %v", senderID, err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			continue
		}
		if email == "" {
			continue
		}
		if err := SendMissedAlertEmail(email, senderName, pingDate, deadline); err != nil {
			log.Printf("Alert email to %s failed: %v", email, err)
		}
	}
}

// SendDeadlineReminders nudges senders whose ping is still pending and whose
// deadline is inside the reminder window. Each ping is nudged at most once.
func SendDeadlineReminders(db *sql.DB, clk clock.Clock) error {
	now := clk.Now()

	rows, err := db.Query(
		"SELECT id, sender_id, deadline_at FROM pings WHERE status = ? AND completed_at IS NULL AND reminded = 0",
		models.StatusPending,
	)
	if err != nil {
		return err
	}

	type due struct {
		id       int
		senderID int
		deadline time.Time
	}
	pending := []due{}
	for rows.Next() {
		var d due
		if err := rows.Scan(&d.id, &d.senderID, &d.deadline); err != nil {
			rows.Close()
			return err
		}
		if now.Before(d.deadline) && !now.Before(d.deadline.Add(-reminderLead)) {
			pending = append(pending, d)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range pending {
		notifySender(db, d.senderID, engine.EventReminder, d.deadline, clk)
		if _, err := db.Exec("UPDATE pings SET reminded = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?", d.id); err != nil {
			return err
		}
	}

	if len(pending) > 0 {
		log.Printf("Sent %d deadline reminders", len(pending))
	}
	return nil
}
