package api

import (
	"database/sql"
	"os"
	"strings"

	"vigil/internal/clock"

	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(app *fiber.App, db *sql.DB, clk clock.Clock) {
	api := app.Group("/api")

	disableRegistration := strings.ToLower(os.Getenv("DISABLE_REGISTRATION")) == "true"

	// Configuration endpoint (public)
	api.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"disableRegistration": disableRegistration,
		})
	})

	// Auth routes
	auth := api.Group("/auth")
	if !disableRegistration {
		auth.Post("/register", RegisterHandler(db))
	}
	auth.Post("/login", LoginHandler(db))
	auth.Post("/refresh", RefreshTokenHandler(db))
	auth.Post("/logout", LogoutHandler(db))

	// VAPID public key endpoint (public - must be before protected routes)
	api.Get("/push/vapid-public-key", VapidPublicKeyHandler())

	// Protected routes
	protected := api.Group("/", AuthMiddleware())

	// Check-in routes (sender side)
	checkin := protected.Group("/checkin")
	checkin.Get("/config", GetConfigHandler(db))
	checkin.Put("/config", UpdateConfigHandler(db))
	checkin.Get("/today", GetTodayHandler(db, clk))
	checkin.Post("/complete", CompletePingHandler(db, clk))
	checkin.Get("/history", GetHistoryHandler(db, clk))
	checkin.Get("/streak", GetStreakHandler(db, clk))

	// Break routes
	breaks := protected.Group("/breaks")
	breaks.Post("/", CreateBreakHandler(db, clk))
	breaks.Get("/", ListBreaksHandler(db, clk))
	breaks.Put("/:id/cancel", CancelBreakHandler(db, clk))

	// Connection routes (receiver side)
	connections := protected.Group("/connections")
	connections.Post("/", CreateConnectionHandler(db))
	connections.Get("/", ListConnectionsHandler(db))
	connections.Get("/:id/status", GetConnectionStatusHandler(db, clk))
	connections.Put("/:id/mute", MuteConnectionHandler(db))
	connections.Delete("/:id", DeleteConnectionHandler(db))

	// Notification preference routes
	prefs := protected.Group("/preferences")
	prefs.Get("/", GetPreferencesHandler(db))
	prefs.Put("/", UpdatePreferencesHandler(db))

	// Push subscription routes
	push := protected.Group("/push")
	push.Post("/subscribe", SubscribePushHandler(db))
	push.Delete("/unsubscribe", UnsubscribePushHandler(db))
	push.Post("/test", SendTestPushHandler(db))

	// User profile routes
	user := protected.Group("/user")
	user.Get("/profile", GetUserProfileHandler(db))
	user.Put("/email", UpdateUserEmailHandler(db))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
