// Package calendar answers whether a date is closed for reservations.
package calendar

import (
	"time"

	"gearbook/internal/models"
)

// Registry holds an immutable closed-date snapshot for one evaluation.
// It is read-only and safe for concurrent use.
type Registry struct {
	entries []models.ClosedDate
}

// NewRegistry builds a registry from a closed-date snapshot.
func NewRegistry(entries []models.ClosedDate) *Registry {
	r := &Registry{entries: make([]models.ClosedDate, len(entries))}
	copy(r.entries, entries)
	return r
}

// IsClosed reports whether date falls on a closure and returns the
// closure's reason, which may be empty. Entries are checked in order;
// the first match wins.
func (r *Registry) IsClosed(date time.Time) (bool, string) {
	day := models.NormalizeDate(date)
	for i := range r.entries {
		if r.entries[i].Matches(day) {
			return true, r.entries[i].Reason
		}
	}
	return false, ""
}
