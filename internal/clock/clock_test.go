package clock

import (
	"testing"
	"time"
)

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	// 01:30 UTC on March 11 is 21:30 on March 10 in New York.
	instant := time.Date(2025, 3, 11, 1, 30, 0, 0, time.UTC)
	got := StartOfDay(instant, loc)
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("StartOfDay = %v, want %v", got, want)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	if got := DaysBetween(a, b); got != 10 {
		t.Fatalf("DaysBetween = %d, want 10", got)
	}
	if got := DaysBetween(b, a); got != -10 {
		t.Fatalf("DaysBetween reversed = %d, want -10", got)
	}
	if got := DaysBetween(a, a); got != 0 {
		t.Fatalf("DaysBetween same day = %d, want 0", got)
	}
}

func TestAddDaysAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	// March 9, 2025 is the spring-forward date in New York.
	d := time.Date(2025, 3, 8, 0, 0, 0, 0, loc)
	next := AddDays(d, 1)
	if next.Hour() != 0 || next.Day() != 9 {
		t.Fatalf("AddDays across DST = %v, want midnight March 9", next)
	}
	if FormatDate(AddDays(d, 2)) != "2025-03-10" {
		t.Fatalf("AddDays(2) = %s, want 2025-03-10", FormatDate(AddDays(d, 2)))
	}
}

func TestSameDayDependsOnLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	a := time.Date(2025, 3, 11, 1, 30, 0, 0, time.UTC)
	b := time.Date(2025, 3, 11, 23, 0, 0, 0, time.UTC)
	if !SameDay(a, b, time.UTC) {
		t.Fatal("Expected same UTC day")
	}
	// 01:30 UTC is still March 10 in New York; 23:00 UTC is March 11.
	if SameDay(a, b, loc) {
		t.Fatal("Expected different New York days")
	}
}

func TestParseDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	if err != nil {
		t.Fatal(err)
	}
	if FormatDate(d) != "2025-03-10" {
		t.Fatalf("Round trip gave %s", FormatDate(d))
	}

	if _, err := ParseDate("03/10/2025"); err == nil {
		t.Fatal("Expected parse error for non-canonical format")
	}
}

func TestFixedClock(t *testing.T) {
	instant := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clk := Fixed(instant)
	if !clk.Now().Equal(instant) {
		t.Fatal("Fixed clock should return the pinned instant")
	}
}
