package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

func Initialize(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}

		// An existing DB file may be encrypted; refuse to open it without a
		// key so we never trample an encrypted database.
		if _, err := os.Stat(dbPath); err == nil {
			if os.Getenv("DB_ENCRYPTION_KEY") == "" {
				return nil, fmt.Errorf("existing database detected at %s: DB_ENCRYPTION_KEY must be set to open it", dbPath)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLCipher support: apply the key right after opening (requires a build
	// linked against SQLCipher).
	if key := os.Getenv("DB_ENCRYPTION_KEY"); key != "" {
		esc := strings.ReplaceAll(key, "'", "''")
		if _, err := db.Exec(fmt.Sprintf("PRAGMA key = '%s';", esc)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set database encryption key: %w", err)
		}
		_, _ = db.Exec("PRAGMA cipher_compatibility = 4;")
		var count int
		if err := db.QueryRow("SELECT count(*) FROM sqlite_master;").Scan(&count); err != nil {
			db.Close()
			return nil, fmt.Errorf("database inaccessible with provided encryption key: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS checkin_configs (
		user_id INTEGER PRIMARY KEY,
		ping_time TEXT NOT NULL DEFAULT '09:00',
		time_zone TEXT NOT NULL DEFAULT 'UTC',
		grace_minutes INTEGER NOT NULL DEFAULT 60,
		enabled BOOLEAN NOT NULL DEFAULT 1,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- One row per sender per calendar day. The UNIQUE constraint is what
	-- makes concurrent resolution of "today's ping" safe: writers upsert on
	-- (sender_id, ping_date).
	CREATE TABLE IF NOT EXISTS pings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL,
		ping_date TEXT NOT NULL,
		scheduled_at DATETIME NOT NULL,
		deadline_at DATETIME NOT NULL,
		completed_at DATETIME,
		method TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		was_missed BOOLEAN NOT NULL DEFAULT 0,
		reminded BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(sender_id, ping_date),
		FOREIGN KEY (sender_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS breaks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (sender_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS notification_preferences (
		user_id INTEGER PRIMARY KEY,
		master_enabled BOOLEAN NOT NULL DEFAULT 1,
		ping_completed BOOLEAN NOT NULL DEFAULT 1,
		ping_missed BOOLEAN NOT NULL DEFAULT 1,
		break_started BOOLEAN NOT NULL DEFAULT 1,
		reminder BOOLEAN NOT NULL DEFAULT 1,
		quiet_hours_start TEXT NOT NULL DEFAULT '',
		quiet_hours_end TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS connections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		receiver_id INTEGER NOT NULL,
		sender_id INTEGER NOT NULL,
		muted BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(receiver_id, sender_id),
		FOREIGN KEY (receiver_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (sender_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS push_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		endpoint TEXT NOT NULL,
		p256dh TEXT NOT NULL,
		auth TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, endpoint),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- Server-side refresh token store for rotating refresh tokens
	CREATE TABLE IF NOT EXISTS refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		ttl_days INTEGER NOT NULL DEFAULT 7,
		revoked BOOLEAN DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_pings_sender_date ON pings(sender_id, ping_date);
	CREATE INDEX IF NOT EXISTS idx_pings_status ON pings(status);
	CREATE INDEX IF NOT EXISTS idx_breaks_sender_id ON breaks(sender_id);
	CREATE INDEX IF NOT EXISTS idx_connections_sender_id ON connections(sender_id);
	CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id);
	`

	_, err := db.Exec(schema)
	return err
}
