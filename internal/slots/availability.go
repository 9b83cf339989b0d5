package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gearbook/internal/models"
)

// DefaultPickupWindow is how long a pickup slot occupies the equipment
// when checking it against existing reservations.
const DefaultPickupWindow = time.Hour

// HasConflict reports whether the candidate range [start, end) overlaps
// any reservation that still blocks its slot. Half-open semantics:
// touching boundaries do not conflict.
func HasConflict(start, end time.Time, existing []models.Reservation) bool {
	for i := range existing {
		r := &existing[i]
		if !r.Blocks() {
			continue
		}
		if isOverlapping(start, end, r.StartTime, r.EndTime) {
			return true
		}
	}
	return false
}

// Annotate marks generated slots unavailable when their pickup window
// collides with an existing reservation. The reservations are expected
// to belong to the slot date's equipment already; the input slice is
// not modified.
func Annotate(date time.Time, slots []TimeSlot, existing []models.Reservation, pickupWindow time.Duration) []TimeSlot {
	if pickupWindow <= 0 {
		pickupWindow = DefaultPickupWindow
	}

	annotated := make([]TimeSlot, len(slots))
	copy(annotated, slots)

	for i := range annotated {
		start, err := OnDate(date, annotated[i].Time)
		if err != nil {
			continue
		}
		annotated[i].Available = !HasConflict(start, start.Add(pickupWindow), existing)
	}
	return annotated
}

// OnDate combines a calendar date with an "HH:MM" clock value.
func OnDate(date time.Time, clock string) (time.Time, error) {
	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute: %w", err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}

func isOverlapping(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && start2.Before(end1)
}
