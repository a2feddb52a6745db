package api

import (
	"database/sql"
	"time"

	"vigil/internal/models"
)

// Query helpers shared by the HTTP handlers and the background workers.
// Handlers own their transactions; these run on whatever querier they get.

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

func loadConfig(q querier, userID int) (models.CheckinConfig, error) {
	var cfg models.CheckinConfig
	err := q.QueryRow(
		"SELECT user_id, ping_time, time_zone, grace_minutes, enabled, updated_at FROM checkin_configs WHERE user_id = ?",
		userID,
	).Scan(&cfg.UserID, &cfg.PingTime, &cfg.TimeZone, &cfg.GraceMinutes, &cfg.Enabled, &cfg.UpdatedAt)
	return cfg, err
}

func loadBreaks(q querier, senderID int) ([]models.Break, error) {
	rows, err := q.Query(
		`SELECT id, sender_id, start_date, end_date, status, notes, created_at, updated_at
		FROM breaks WHERE sender_id = ? ORDER BY start_date ASC`,
		senderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breaks := []models.Break{}
	for rows.Next() {
		var b models.Break
		if err := rows.Scan(&b.ID, &b.SenderID, &b.StartDate, &b.EndDate, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		breaks = append(breaks, b)
	}
	return breaks, rows.Err()
}

func scanPing(row *sql.Row) (*models.Ping, error) {
	var p models.Ping
	var completedAt sql.NullTime
	err := row.Scan(
		&p.ID, &p.SenderID, &p.PingDate, &p.ScheduledAt, &p.DeadlineAt,
		&completedAt, &p.Method, &p.Status, &p.WasMissed, &p.Reminded,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return &p, nil
}

const pingColumns = "id, sender_id, ping_date, scheduled_at, deadline_at, completed_at, method, status, was_missed, reminded, created_at, updated_at"

// loadPing returns the ping for (sender, date), or nil if none exists.
func loadPing(q querier, senderID int, date string) (*models.Ping, error) {
	p, err := scanPing(q.QueryRow(
		"SELECT "+pingColumns+" FROM pings WHERE sender_id = ? AND ping_date = ?",
		senderID, date,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// loadHistory returns the sender's pings on or before the given date, newest
// first, capped to limit rows.
func loadHistory(q querier, senderID int, upTo string, limit int) ([]models.Ping, error) {
	rows, err := q.Query(
		`SELECT `+pingColumns+` FROM pings
		WHERE sender_id = ? AND ping_date <= ?
		ORDER BY ping_date DESC LIMIT ?`,
		senderID, upTo, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pings := []models.Ping{}
	for rows.Next() {
		var p models.Ping
		var completedAt sql.NullTime
		if err := rows.Scan(
			&p.ID, &p.SenderID, &p.PingDate, &p.ScheduledAt, &p.DeadlineAt,
			&completedAt, &p.Method, &p.Status, &p.WasMissed, &p.Reminded,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			p.CompletedAt = &completedAt.Time
		}
		pings = append(pings, p)
	}
	return pings, rows.Err()
}

// upsertPing materializes or refreshes the day's row. Keyed on the
// (sender_id, ping_date) UNIQUE constraint so concurrent resolution of the
// same day cannot create two rows. Completion fields are never cleared here;
// completions go through completePing.
func upsertPing(q querier, senderID int, date string, scheduledAt, deadlineAt time.Time, status string) error {
	_, err := q.Exec(
		`INSERT INTO pings (sender_id, ping_date, scheduled_at, deadline_at, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sender_id, ping_date) DO UPDATE SET
			scheduled_at = excluded.scheduled_at,
			deadline_at = excluded.deadline_at,
			status = CASE WHEN pings.completed_at IS NULL THEN excluded.status ELSE pings.status END,
			updated_at = CURRENT_TIMESTAMP`,
		senderID, date, scheduledAt, deadlineAt, status,
	)
	return err
}

// completePing records a completion on the day's row, creating it if needed.
func completePing(q querier, senderID int, date string, scheduledAt, deadlineAt, completedAt time.Time, method, status string, wasMissed bool) error {
	_, err := q.Exec(
		`INSERT INTO pings (sender_id, ping_date, scheduled_at, deadline_at, completed_at, method, status, was_missed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sender_id, ping_date) DO UPDATE SET
			completed_at = excluded.completed_at,
			method = excluded.method,
			status = excluded.status,
			was_missed = pings.was_missed OR excluded.was_missed,
			updated_at = CURRENT_TIMESTAMP`,
		senderID, date, scheduledAt, deadlineAt, completedAt, method, status, wasMissed,
	)
	return err
}

// loadPreferences returns the user's notification preferences with the muted
// sender set joined in from connections. A missing row falls back to the
// schema defaults (everything enabled, no quiet hours).
func loadPreferences(q querier, userID int) (models.NotificationPreferences, error) {
	prefs := models.NotificationPreferences{
		UserID:        userID,
		MasterEnabled: true,
		PingCompleted: true,
		PingMissed:    true,
		BreakStarted:  true,
		Reminder:      true,
	}
	err := q.QueryRow(
		`SELECT master_enabled, ping_completed, ping_missed, break_started, reminder, quiet_hours_start, quiet_hours_end
		FROM notification_preferences WHERE user_id = ?`,
		userID,
	).Scan(&prefs.MasterEnabled, &prefs.PingCompleted, &prefs.PingMissed, &prefs.BreakStarted, &prefs.Reminder, &prefs.QuietHoursStart, &prefs.QuietHoursEnd)
	if err != nil && err != sql.ErrNoRows {
		return prefs, err
	}

	rows, err := q.Query("SELECT sender_id FROM connections WHERE receiver_id = ? AND muted = 1", userID)
	if err != nil {
		return prefs, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return prefs, err
		}
		prefs.MutedSenderIDs = append(prefs.MutedSenderIDs, id)
	}
	return prefs, rows.Err()
}

// receiversOf returns the user IDs watching the given sender.
func receiversOf(q querier, senderID int) ([]int, error) {
	rows, err := q.Query("SELECT receiver_id FROM connections WHERE sender_id = ?", senderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
