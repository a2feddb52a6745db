package engine

import (
	"testing"
	"time"

	"vigil/internal/models"
)

func testConfig() models.CheckinConfig {
	return models.CheckinConfig{
		UserID:       1,
		PingTime:     "09:00",
		TimeZone:     "UTC",
		GraceMinutes: 90,
		Enabled:      true,
	}
}

func TestResolveTodayPending(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC)

	resolved, err := ResolveToday(testConfig(), nil, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != models.StatusPending {
		t.Fatalf("Expected pending, got %s", resolved.Status)
	}
	wantDeadline := time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)
	if !resolved.Deadline.Equal(wantDeadline) {
		t.Fatalf("Expected deadline %v, got %v", wantDeadline, resolved.Deadline)
	}
}

func TestResolveTodayMissedAfterDeadline(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 31, 0, 0, time.UTC)

	resolved, err := ResolveToday(testConfig(), nil, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != models.StatusMissed {
		t.Fatalf("Expected missed, got %s", resolved.Status)
	}
}

func TestResolveTodayDeadlineInstantIsMissed(t *testing.T) {
	// The deadline is exclusive of pending.
	now := time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)

	resolved, err := ResolveToday(testConfig(), nil, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != models.StatusMissed {
		t.Fatalf("Expected missed at the deadline instant, got %s", resolved.Status)
	}
}

func TestResolveTodayCompleted(t *testing.T) {
	completedAt := time.Date(2025, 3, 10, 9, 12, 0, 0, time.UTC)
	ping := &models.Ping{
		SenderID:    1,
		PingDate:    "2025-03-10",
		CompletedAt: &completedAt,
		Status:      models.StatusCompleted,
	}
	now := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)

	resolved, err := ResolveToday(testConfig(), ping, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != models.StatusCompleted {
		t.Fatalf("Expected completed, got %s", resolved.Status)
	}
	if resolved.CompletedAt == nil || !resolved.CompletedAt.Equal(completedAt) {
		t.Fatalf("Expected completedAt %v, got %v", completedAt, resolved.CompletedAt)
	}
}

func TestResolveTodayOnBreakPreemptsEverything(t *testing.T) {
	breaks := []models.Break{
		{StartDate: "2025-03-09", EndDate: "2025-03-12", Status: models.BreakActive},
	}
	now := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC) // past deadline

	resolved, err := ResolveToday(testConfig(), nil, breaks, now)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != models.StatusOnBreak {
		t.Fatalf("Expected on_break, got %s", resolved.Status)
	}
}

func TestResolveTodayVoluntaryCompletionDuringBreak(t *testing.T) {
	breaks := []models.Break{
		{StartDate: "2025-03-09", EndDate: "2025-03-12", Status: models.BreakActive},
	}
	completedAt := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	ping := &models.Ping{
		SenderID:    1,
		PingDate:    "2025-03-10",
		CompletedAt: &completedAt,
		Method:      models.MethodDuringBreak,
		Status:      models.StatusOnBreak,
	}
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	resolved, err := ResolveToday(testConfig(), ping, breaks, now)
	if err != nil {
		t.Fatal(err)
	}
	// The displayed status stays on_break; the completion remains visible.
	if resolved.Status != models.StatusOnBreak {
		t.Fatalf("Expected on_break, got %s", resolved.Status)
	}
	if resolved.CompletedAt == nil || !resolved.CompletedAt.Equal(completedAt) {
		t.Fatalf("Expected completedAt %v, got %v", completedAt, resolved.CompletedAt)
	}
}

func TestResolveTodayIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC)

	first, err := ResolveToday(testConfig(), nil, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ResolveToday(testConfig(), nil, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("Expected identical results, got %+v and %+v", first, second)
	}
}

func TestResolveTodayInvalidConfiguration(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*models.CheckinConfig)
	}{
		{"zero grace", func(c *models.CheckinConfig) { c.GraceMinutes = 0 }},
		{"negative grace", func(c *models.CheckinConfig) { c.GraceMinutes = -30 }},
		{"bad time zone", func(c *models.CheckinConfig) { c.TimeZone = "Mars/Olympus" }},
		{"bad ping time", func(c *models.CheckinConfig) { c.PingTime = "25:99" }},
		{"empty ping time", func(c *models.CheckinConfig) { c.PingTime = "" }},
	}

	for _, tt := range tests {
		cfg := testConfig()
		tt.mutate(&cfg)
		_, err := ResolveToday(cfg, nil, nil, now)
		if err == nil {
			t.Errorf("%s: expected InvalidConfigurationError, got nil", tt.name)
			continue
		}
		if _, ok := err.(*InvalidConfigurationError); !ok {
			t.Errorf("%s: expected InvalidConfigurationError, got %T", tt.name, err)
		}
	}
}

func TestScheduleUsesSenderTimeZone(t *testing.T) {
	cfg := testConfig()
	cfg.TimeZone = "America/New_York"

	// 01:00 UTC on March 11 is still March 10 in New York.
	now := time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC)
	scheduled, deadline, err := Schedule(cfg, now)
	if err != nil {
		t.Fatal(err)
	}

	loc, _ := time.LoadLocation("America/New_York")
	wantScheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)
	if !scheduled.Equal(wantScheduled) {
		t.Fatalf("Expected scheduled %v, got %v", wantScheduled, scheduled)
	}
	if !deadline.Equal(wantScheduled.Add(90 * time.Minute)) {
		t.Fatalf("Unexpected deadline %v", deadline)
	}
}
