package engine

import (
	"testing"
	"time"

	"vigil/internal/models"
)

func allowAllPrefs() models.NotificationPreferences {
	return models.NotificationPreferences{
		MasterEnabled: true,
		PingCompleted: true,
		PingMissed:    true,
		BreakStarted:  true,
		Reminder:      true,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestShouldNotifyMasterToggle(t *testing.T) {
	prefs := allowAllPrefs()
	prefs.MasterEnabled = false

	if ShouldNotify(prefs, EventPingMissed, 7, at(12, 0)) {
		t.Fatal("Master toggle off should block everything")
	}
}

func TestShouldNotifyPerCategory(t *testing.T) {
	prefs := allowAllPrefs()
	prefs.PingCompleted = false

	if ShouldNotify(prefs, EventPingCompleted, 7, at(12, 0)) {
		t.Fatal("Disabled category should block")
	}
	if !ShouldNotify(prefs, EventPingMissed, 7, at(12, 0)) {
		t.Fatal("Other categories should pass")
	}
}

func TestShouldNotifyUngatedKindDefaultsToAllowed(t *testing.T) {
	prefs := allowAllPrefs()
	prefs.PingCompleted = false
	prefs.PingMissed = false

	if !ShouldNotify(prefs, EventTest, 0, at(12, 0)) {
		t.Fatal("Kinds without a dedicated preference default to allowed")
	}
}

func TestShouldNotifyMutedSender(t *testing.T) {
	prefs := allowAllPrefs()
	prefs.MutedSenderIDs = []int{7}

	if ShouldNotify(prefs, EventPingMissed, 7, at(12, 0)) {
		t.Fatal("Muted sender should block")
	}
	if !ShouldNotify(prefs, EventPingMissed, 8, at(12, 0)) {
		t.Fatal("Unmuted sender should pass")
	}
	// Events without a subject sender are unaffected by mutes.
	if !ShouldNotify(prefs, EventReminder, 0, at(12, 0)) {
		t.Fatal("Subjectless event should pass")
	}
}

func TestShouldNotifyQuietHours(t *testing.T) {
	prefs := allowAllPrefs()
	prefs.QuietHoursStart = "13:00"
	prefs.QuietHoursEnd = "15:00"

	if ShouldNotify(prefs, EventPingMissed, 0, at(13, 0)) {
		t.Fatal("Quiet window start is inclusive")
	}
	if ShouldNotify(prefs, EventPingMissed, 0, at(14, 30)) {
		t.Fatal("Inside quiet window should block")
	}
	if !ShouldNotify(prefs, EventPingMissed, 0, at(15, 0)) {
		t.Fatal("Quiet window end is exclusive")
	}
	if !ShouldNotify(prefs, EventPingMissed, 0, at(12, 59)) {
		t.Fatal("Before quiet window should pass")
	}
}

func TestShouldNotifyQuietHoursOvernightWrap(t *testing.T) {
	prefs := allowAllPrefs()
	prefs.QuietHoursStart = "22:00"
	prefs.QuietHoursEnd = "07:00"

	if ShouldNotify(prefs, EventPingMissed, 0, at(23, 30)) {
		t.Fatal("After 22:00 should block")
	}
	if ShouldNotify(prefs, EventPingMissed, 0, at(6, 59)) {
		t.Fatal("Before 07:00 should block")
	}
	if !ShouldNotify(prefs, EventPingMissed, 0, at(7, 0)) {
		t.Fatal("At 07:00 the window ends")
	}
	if !ShouldNotify(prefs, EventPingMissed, 0, at(12, 0)) {
		t.Fatal("Midday should pass")
	}
}

func TestShouldNotifyQuietHoursDisabled(t *testing.T) {
	prefs := allowAllPrefs()

	// Empty bounds, malformed bounds and a zero-length window all disable
	// quiet hours.
	cases := [][2]string{{"", ""}, {"not-a-time", "07:00"}, {"09:00", "09:00"}}
	for _, c := range cases {
		prefs.QuietHoursStart, prefs.QuietHoursEnd = c[0], c[1]
		if !ShouldNotify(prefs, EventPingMissed, 0, at(9, 0)) {
			t.Fatalf("Quiet hours %q-%q should be disabled", c[0], c[1])
		}
	}
}
