package models

import "time"

// Ping statuses. A ping row exists per sender per calendar day; completed,
// missed and on_break are terminal for display purposes, but a missed ping
// may still accept a late completion.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusMissed    = "missed"
	StatusOnBreak   = "on_break"
)

// Break statuses. Canceled is sticky: it is only ever set by user action and
// never overwritten by date-derived recomputation.
const (
	BreakScheduled = "scheduled"
	BreakActive    = "active"
	BreakCompleted = "completed"
	BreakCanceled  = "canceled"
)

// Completion methods recorded on a ping.
const (
	MethodTap         = "tap"
	MethodLate        = "late"
	MethodDuringBreak = "during_break"
)

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CheckinConfig is a sender's daily ping configuration. Every account gets
// one at registration; it is soft-disabled, never deleted.
type CheckinConfig struct {
	UserID       int       `json:"user_id"`
	PingTime     string    `json:"ping_time"` // "HH:MM" local to TimeZone
	TimeZone     string    `json:"time_zone"` // IANA name
	GraceMinutes int       `json:"grace_minutes"`
	Enabled      bool      `json:"enabled"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Ping is one check-in record. At most one exists per (sender, calendar day);
// the store enforces this with a UNIQUE constraint.
type Ping struct {
	ID          int        `json:"id"`
	SenderID    int        `json:"sender_id"`
	PingDate    string     `json:"ping_date"` // "YYYY-MM-DD" in the sender's zone
	ScheduledAt time.Time  `json:"scheduled_at"`
	DeadlineAt  time.Time  `json:"deadline_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Method      string     `json:"method,omitempty"`
	Status      string     `json:"status"`
	WasMissed   bool       `json:"was_missed"` // timeliness fact, survives late completion
	Reminded    bool       `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Break is an inclusive calendar-date range during which ping generation is
// suppressed without breaking the streak.
type Break struct {
	ID        int       `json:"id"`
	SenderID  int       `json:"sender_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationPreferences gates which events reach a user. MutedSenderIDs is
// populated from the user's connections, not stored on this row.
type NotificationPreferences struct {
	UserID          int    `json:"user_id"`
	MasterEnabled   bool   `json:"master_enabled"`
	PingCompleted   bool   `json:"ping_completed"`
	PingMissed      bool   `json:"ping_missed"`
	BreakStarted    bool   `json:"break_started"`
	Reminder        bool   `json:"reminder"`
	QuietHoursStart string `json:"quiet_hours_start,omitempty"` // "HH:MM", empty disables
	QuietHoursEnd   string `json:"quiet_hours_end,omitempty"`
	MutedSenderIDs  []int  `json:"muted_sender_ids,omitempty"`
}

// Connection links a receiver to a sender they watch.
type Connection struct {
	ID             int       `json:"id"`
	ReceiverID     int       `json:"receiver_id"`
	SenderID       int       `json:"sender_id"`
	SenderUsername string    `json:"sender_username,omitempty"`
	Muted          bool      `json:"muted"`
	CreatedAt      time.Time `json:"created_at"`
}

type PushSubscription struct {
	ID       int    `json:"id"`
	UserID   int    `json:"user_id"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type UpdateConfigRequest struct {
	PingTime     *string `json:"ping_time,omitempty"`
	TimeZone     *string `json:"time_zone,omitempty"`
	GraceMinutes *int    `json:"grace_minutes,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty"`
}

type CreateBreakRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Notes     string `json:"notes,omitempty"`
}

type CreateConnectionRequest struct {
	SenderUsername string `json:"sender_username"`
}

type MuteRequest struct {
	Muted bool `json:"muted"`
}

type UpdatePreferencesRequest struct {
	MasterEnabled   *bool   `json:"master_enabled,omitempty"`
	PingCompleted   *bool   `json:"ping_completed,omitempty"`
	PingMissed      *bool   `json:"ping_missed,omitempty"`
	BreakStarted    *bool   `json:"break_started,omitempty"`
	Reminder        *bool   `json:"reminder,omitempty"`
	QuietHoursStart *string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   *string `json:"quiet_hours_end,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
