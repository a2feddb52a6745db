package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"vigil/internal/clock"
	"vigil/internal/engine"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/gofiber/fiber/v2"
)

// PushPayload is the notification payload sent to clients. Kind and SenderID
// replace the loose metadata map older clients used: each event kind carries
// exactly the fields it needs.
type PushPayload struct {
	Kind     engine.EventKind `json:"kind"`
	Title    string           `json:"title"`
	Body     string           `json:"body"`
	Tag      string           `json:"tag,omitempty"`
	SenderID int              `json:"sender_id,omitempty"`
	Deadline string           `json:"deadline,omitempty"`
}

// payloadFor builds the payload for an event about the named sender.
func payloadFor(kind engine.EventKind, senderID int, senderName string) PushPayload {
	p := PushPayload{
		Kind:     kind,
		SenderID: senderID,
		Tag:      fmt.Sprintf("vigil-%s-%d", kind, senderID),
	}
	switch kind {
	case engine.EventPingCompleted:
		p.Title = "Checked in"
		p.Body = fmt.Sprintf("%s completed today's check-in", senderName)
	case engine.EventPingMissed:
		p.Title = "Missed check-in"
		p.Body = fmt.Sprintf("%s missed today's check-in", senderName)
	case engine.EventBreakStarted:
		p.Title = "On a break"
		p.Body = fmt.Sprintf("%s started a check-in break", senderName)
	case engine.EventReminder:
		p.Title = "Check-in reminder"
		p.Body = "Your check-in deadline is coming up"
	default:
		p.Title = "Vigil"
		p.Body = "Notification"
	}
	return p
}

// GetVapidOptions returns configured VAPID options from environment.
func GetVapidOptions() *webpush.Options {
	return &webpush.Options{
		Subscriber:      os.Getenv("VAPID_SUBJECT"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		TTL:             30,
	}
}

// IsWebPushConfigured checks if VAPID keys are configured.
func IsWebPushConfigured() bool {
	return os.Getenv("VAPID_PUBLIC_KEY") != "" &&
		os.Getenv("VAPID_PRIVATE_KEY") != "" &&
		os.Getenv("VAPID_SUBJECT") != ""
}

// SendPushToUser sends a push notification to all subscriptions for a user.
// Expired or key-mismatched subscriptions are pruned as they fail.
func SendPushToUser(db *sql.DB, userID int, payload PushPayload) error {
	if !IsWebPushConfigured() {
		log.Println("Web push not configured - skipping notification")
		return nil
	}

	rows, err := db.Query(
		"SELECT endpoint, p256dh, auth FROM push_subscriptions WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	defer rows.Close()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	options := GetVapidOptions()
	successCount := 0
	failCount := 0
	subscriptionCount := 0

	for rows.Next() {
		subscriptionCount++
		var endpoint, p256dh, auth string
		if err := rows.Scan(&endpoint, &p256dh, &auth); err != nil {
			log.Printf("Error scanning subscription: %v", err)
			failCount++
			continue
		}

		subscription := &webpush.Subscription{
			Endpoint: endpoint,
			Keys: webpush.Keys{
				P256dh: p256dh,
				Auth:   auth,
			},
		}

		resp, err := webpush.SendNotification(payloadJSON, subscription, options)
		if err != nil {
			log.Printf("Failed to send push to %s: %v", endpoint, err)
			failCount++

			// Expired/invalid subscriptions get removed
			if resp != nil && (resp.StatusCode == 410 || resp.StatusCode == 404) {
				_, _ = db.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint)
				log.Printf("Removed expired subscription: %s", endpoint)
			}
			continue
		}

		if resp != nil {
			if resp.StatusCode >= 400 {
				body, _ := io.ReadAll(resp.Body)
				log.Printf("Push service error response (%d): %s", resp.StatusCode, string(body))
			}
			resp.Body.Close()

			// 403 means the VAPID keys don't match; drop the subscription so
			// the client re-subscribes with current keys.
			if resp.StatusCode == 403 {
				_, _ = db.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint)
				log.Printf("Deleted mismatched subscription (403 Forbidden): %s", endpoint)
				failCount++
				continue
			}
		}

		successCount++
	}

	log.Printf("Push summary for user %d (%s): subscriptions=%d, success=%d, failed=%d",
		userID, payload.Kind, subscriptionCount, successCount, failCount)

	if subscriptionCount == 0 {
		return fmt.Errorf("no push subscriptions found for user %d", userID)
	}
	if failCount > 0 && successCount == 0 {
		return fmt.Errorf("failed to send any push notifications (attempted %d)", failCount)
	}
	return nil
}

// notifyReceivers pushes an event about a sender to every receiver the
// eligibility filter allows. The filter decision happens here, once, so no
// delivery path can bypass it.
func notifyReceivers(db *sql.DB, senderID int, kind engine.EventKind, clk clock.Clock) {
	var senderName string
	if err := db.QueryRow("SELECT username FROM users WHERE id = ?", senderID).Scan(&senderName); err != nil {
		log.Printf("notifyReceivers: unknown sender %d: %v", senderID, err)
		return
	}

	receivers, err := receiversOf(db, senderID)
	if err != nil {
		log.Printf("notifyReceivers: failed to list receivers of %d: %v", senderID, err)
		return
	}

	now := clk.Now()
	for _, receiverID := range receivers {
		prefs, err := loadPreferences(db, receiverID)
		if err != nil {
			log.Printf("notifyReceivers: failed to load preferences for %d: %v", receiverID, err)
			continue
		}
		if !engine.ShouldNotify(prefs, kind, senderID, now) {
			continue
		}
		if err := SendPushToUser(db, receiverID, payloadFor(kind, senderID, senderName)); err != nil {
			log.Printf("notifyReceivers: push to %d failed: %v", receiverID, err)
		}
	}
}

// notifySender pushes an event to the sender's own devices, still subject to
// their preferences (reminders are gated like anything else).
func notifySender(db *sql.DB, senderID int, kind engine.EventKind, deadline time.Time, clk clock.Clock) {
	prefs, err := loadPreferences(db, senderID)
	if err != nil {
		log.Printf("notifySender: failed to load preferences for %d: %v", senderID, err)
		return
	}
	if !engine.ShouldNotify(prefs, kind, 0, clk.Now()) {
		return
	}
	payload := payloadFor(kind, senderID, "")
	if !deadline.IsZero() {
		payload.Deadline = deadline.Format(time.RFC3339)
	}
	if err := SendPushToUser(db, senderID, payload); err != nil {
		log.Printf("notifySender: push to %d failed: %v", senderID, err)
	}
}

// VapidPublicKeyHandler returns the VAPID public key for client subscription.
func VapidPublicKeyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		publicKey := os.Getenv("VAPID_PUBLIC_KEY")
		if publicKey == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push notifications not configured")
		}
		return c.JSON(fiber.Map{
			"publicKey": publicKey,
		})
	}
}

// SendTestPushHandler sends an actual push notification for testing.
func SendTestPushHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(int)

		if !IsWebPushConfigured() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push notifications not configured. Set VAPID_PUBLIC_KEY, VAPID_PRIVATE_KEY, and VAPID_SUBJECT environment variables.")
		}

		payload := PushPayload{
			Kind:  engine.EventTest,
			Title: "Vigil Test Notification",
			Body:  "This is a test notification",
			Tag:   fmt.Sprintf("vigil-test-%d", time.Now().Unix()),
		}

		if err := SendPushToUser(db, userID, payload); err != nil {
			log.Printf("Test push failed for user %d: %v", userID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to send test notification: "+err.Error())
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Test notification sent",
		})
	}
}
