// Package slots resolves daily operating windows and candidate pickup
// slots, and marks them against existing reservations.
package slots

import (
	"strconv"
	"strings"

	"gearbook/internal/models"
)

// Default operating hours applied when the admin values are missing or
// unparseable.
const (
	DefaultStartHour = 8
	DefaultEndHour   = 18
)

// LunchBreak mirrors the admin lunch settings inside a resolved window.
type LunchBreak struct {
	Enabled   bool `json:"enabled"`
	StartHour int  `json:"start_hour"`
	EndHour   int  `json:"end_hour"`
}

// OperatingWindow is the bookable hour range for one day.
type OperatingWindow struct {
	StartHour  int        `json:"start_hour"`
	EndHour    int        `json:"end_hour"`
	LunchBreak LunchBreak `json:"lunch_break"`
}

// ResolveWindow derives the bookable window from admin settings.
//
// A successfully parsed return end hour loses one hour to leave room
// for return processing; the end hour is then clamped to at least one
// hour past the start. Malformed values fall back to defaults so
// broken admin configuration can never block booking outright.
func ResolveWindow(settings models.Settings) OperatingWindow {
	start := DefaultStartHour
	if h, ok := parseHour(settings.LoanReturnStartTime); ok {
		start = h
	}

	end := DefaultEndHour
	if h, ok := parseHour(settings.LoanReturnEndTime); ok {
		end = h - 1
	}
	if end <= start {
		end = start + 1
	}

	window := OperatingWindow{StartHour: start, EndHour: end}
	if settings.LunchBreak.Enabled {
		window.LunchBreak = LunchBreak{
			Enabled:   true,
			StartHour: settings.LunchBreak.StartHour,
			EndHour:   settings.LunchBreak.EndHour,
		}
	}
	return window
}

// parseHour extracts the hour from an "HH:MM" value.
func parseHour(v string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) < 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}
