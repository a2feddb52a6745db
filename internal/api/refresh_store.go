package api

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func parseStoredTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return parseStoredTimeString(t)
	case []byte:
		return parseStoredTimeString(string(t))
	default:
		return time.Time{}, false
	}
}

func parseStoredTimeString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	// go-sqlite3 returns different formats depending on how a value was
	// inserted.
	layouts := []string{
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StoreRefreshToken persists a refresh token hash with its expiry.
func StoreRefreshToken(db *sql.DB, userID int, token string, expiresAt time.Time, ttlDays int) error {
	th := hashToken(token)
	_, err := db.Exec(
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, ttl_days)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token_hash) DO UPDATE SET expires_at = excluded.expires_at, ttl_days = excluded.ttl_days, revoked = 0`,
		userID, th, expiresAt, ttlDays,
	)
	return err
}

// ValidateRefreshTokenInDB checks that the token exists, is not revoked and
// not expired; returns the owning userID and the token's TTL in days.
func ValidateRefreshTokenInDB(db *sql.DB, token string) (int, int, error) {
	th := hashToken(token)
	var userID, ttlDays int
	var revoked bool
	var expiresAt any
	row := db.QueryRow("SELECT user_id, expires_at, revoked, ttl_days FROM refresh_tokens WHERE token_hash = ?", th)
	if err := row.Scan(&userID, &expiresAt, &revoked, &ttlDays); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, errors.New("refresh token not found")
		}
		return 0, 0, err
	}
	if revoked {
		return 0, 0, errors.New("refresh token revoked")
	}
	t, ok := parseStoredTime(expiresAt)
	if !ok {
		return 0, 0, fmt.Errorf("unreadable expires_at: %T", expiresAt)
	}
	if time.Now().After(t) {
		return 0, 0, errors.New("refresh token expired")
	}
	return userID, ttlDays, nil
}

// RevokeRefreshToken marks a refresh token revoked.
func RevokeRefreshToken(db *sql.DB, token string) error {
	_, err := db.Exec("UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ?", hashToken(token))
	return err
}
