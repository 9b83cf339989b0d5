package calendar

import (
	"testing"
	"time"

	"gearbook/internal/models"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

func TestRegistry_IsClosed(t *testing.T) {
	registry := NewRegistry([]models.ClosedDate{
		{Date: date(2025, time.December, 25), Reason: "holiday closure"},
		{Date: date(2020, time.January, 1), Reason: "new year", IsRecurring: true, RecurringPattern: models.RecurringYearly},
		{Date: date(2025, time.July, 4)},
	})

	tests := []struct {
		name       string
		date       time.Time
		wantClosed bool
		wantReason string
	}{
		{"exact match", date(2025, time.December, 25), true, "holiday closure"},
		{"exact match ignores time of day", time.Date(2025, time.December, 25, 15, 30, 0, 0, time.Local), true, "holiday closure"},
		{"exact date other year open", date(2026, time.December, 25), false, ""},
		{"recurring matches entry year", date(2020, time.January, 1), true, "new year"},
		{"recurring matches later year", date(2027, time.January, 1), true, "new year"},
		{"recurring wrong day open", date(2027, time.January, 2), false, ""},
		{"recurring wrong month open", date(2027, time.February, 1), false, ""},
		{"empty reason still closed", date(2025, time.July, 4), true, ""},
		{"ordinary day open", date(2025, time.March, 14), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closed, reason := registry.IsClosed(tt.date)
			if closed != tt.wantClosed {
				t.Errorf("IsClosed(%s) = %v, want %v", tt.date.Format("2006-01-02"), closed, tt.wantClosed)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	registry := NewRegistry([]models.ClosedDate{
		{Date: date(2025, time.May, 1), Reason: "first"},
		{Date: date(2025, time.May, 1), Reason: "second"},
	})

	closed, reason := registry.IsClosed(date(2025, time.May, 1))
	if !closed || reason != "first" {
		t.Errorf("got (%v, %q), want (true, %q)", closed, reason, "first")
	}
}

func TestRegistry_Empty(t *testing.T) {
	registry := NewRegistry(nil)
	if closed, _ := registry.IsClosed(date(2025, time.June, 10)); closed {
		t.Error("empty registry should keep every date open")
	}
}
