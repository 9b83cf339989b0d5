package models

import "time"

// RecurringYearly is the only supported recurrence pattern.
const RecurringYearly = "yearly"

// ClosedDate is one admin-declared non-operating day, either a one-off
// date or a yearly recurrence matched by month and day.
type ClosedDate struct {
	ID               int64     `json:"id"`
	Date             time.Time `json:"date"`
	Reason           string    `json:"reason,omitempty"`
	IsRecurring      bool      `json:"is_recurring"`
	RecurringPattern string    `json:"recurring_pattern,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Matches reports whether day falls on this closure. Recurring entries
// compare month and day only; an unset pattern on a recurring entry is
// treated as yearly.
func (c *ClosedDate) Matches(day time.Time) bool {
	if c.IsRecurring && (c.RecurringPattern == "" || c.RecurringPattern == RecurringYearly) {
		return c.Date.Month() == day.Month() && c.Date.Day() == day.Day()
	}
	return SameDay(c.Date, day)
}
