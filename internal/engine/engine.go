package engine

import (
	"fmt"
	"math"
	"time"

	"gearbook/internal/calendar"
	"gearbook/internal/limits"
	"gearbook/internal/models"
	"gearbook/internal/slots"
)

// Default duration bounds for timed reservations, in minutes.
const (
	DefaultMinDurationMinutes = 30
	DefaultMaxDurationMinutes = 480
)

// Config tunes the engine. The zero value is usable: defaults fill in
// the duration bounds, the pickup window and the clock.
type Config struct {
	MinDurationMinutes int
	MaxDurationMinutes int
	PickupWindow       time.Duration
	Now                func() time.Time
}

// Request is one candidate reservation to evaluate. StartTime and
// EndTime are optional: a date-only request skips the duration and
// conflict checks.
type Request struct {
	EquipmentID int64
	Date        time.Time
	StartTime   *time.Time
	EndTime     *time.Time
	UserType    models.UserType
	Quota       models.QuotaSnapshot
}

// SlotList is the result of a slot listing: the generated slots for a
// date, or an empty list plus the decision that blocked the date.
type SlotList struct {
	EquipmentID int64            `json:"equipment_id"`
	Date        string           `json:"date"`
	Slots       []slots.TimeSlot `json:"slots"`
	Blocked     *Decision        `json:"blocked,omitempty"`
}

// Engine combines the closed-date calendar, limit policy, slot
// availability and quota checks into a single ordered evaluation. It
// keeps no state between calls: every input arrives as a snapshot and
// identical inputs produce identical decisions, so one Engine serves
// any number of concurrent callers.
type Engine struct {
	cfg Config
}

// New builds an Engine, filling unset config fields with defaults.
func New(cfg Config) *Engine {
	if cfg.MinDurationMinutes <= 0 {
		cfg.MinDurationMinutes = DefaultMinDurationMinutes
	}
	if cfg.MaxDurationMinutes <= 0 {
		cfg.MaxDurationMinutes = DefaultMaxDurationMinutes
	}
	if cfg.PickupWindow <= 0 {
		cfg.PickupWindow = slots.DefaultPickupWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{cfg: cfg}
}

// Evaluate runs the policy checks for one candidate request in fixed
// order: past date, closed date, advance window, duration, slot
// conflict, quota. The first failing check produces the decision and
// the rest are skipped.
func (e *Engine) Evaluate(req Request, lim limits.UserTypeLimits, closed *calendar.Registry, existing []models.Reservation) Decision {
	if d := e.checkDate(req.Date, lim, closed); d != nil {
		return *d
	}

	if req.StartTime != nil || req.EndTime != nil {
		if d := e.checkDuration(req); d != nil {
			return *d
		}
		if slots.HasConflict(*req.StartTime, *req.EndTime, existing) {
			return Reject(ReasonSlotUnavailable, "the requested time slot is no longer available", nil)
		}
	}

	if quota := limits.ComputeQuota(req.Quota); !quota.CanBorrow {
		return Reject(ReasonQuotaExceeded,
			fmt.Sprintf("borrowing limit of %d items reached", req.Quota.MaxItems),
			map[string]interface{}{
				"max_items":       req.Quota.MaxItems,
				"remaining_quota": quota.RemainingQuota,
			})
	}

	return Accept()
}

// ListAvailableSlots runs the date-level checks once and, when the date
// passes, returns the generated slots annotated against existing
// reservations. A blocked date yields an empty list plus the blocking
// decision so callers can tell the user why nothing is offered.
func (e *Engine) ListAvailableSlots(equipmentID int64, date time.Time, lim limits.UserTypeLimits, closed *calendar.Registry, existing []models.Reservation, settings models.Settings) SlotList {
	day := models.NormalizeDate(date)
	list := SlotList{
		EquipmentID: equipmentID,
		Date:        day.Format("2006-01-02"),
		Slots:       []slots.TimeSlot{},
	}

	if d := e.checkDate(date, lim, closed); d != nil {
		list.Blocked = d
		return list
	}

	window := slots.ResolveWindow(settings)
	list.Slots = slots.Annotate(day, slots.Generate(window), existing, e.cfg.PickupWindow)
	return list
}

// checkDate runs the date-level checks shared by Evaluate and
// ListAvailableSlots. Order matters: a past date is reported as past
// even when it is also closed or out of window.
func (e *Engine) checkDate(date time.Time, lim limits.UserTypeLimits, closed *calendar.Registry) *Decision {
	today := models.NormalizeDate(e.cfg.Now())
	day := models.NormalizeDate(date)

	if day.Before(today) {
		d := Reject(ReasonPastDate, "cannot make a reservation for a past date", nil)
		return &d
	}

	if closed != nil {
		if isClosed, reason := closed.IsClosed(day); isClosed {
			msg := "reservations are closed on this date"
			var details map[string]interface{}
			if reason != "" {
				msg = fmt.Sprintf("%s: %s", msg, reason)
				details = map[string]interface{}{"reason": reason}
			}
			d := Reject(ReasonClosedDate, msg, details)
			return &d
		}
	}

	if ahead := daysBetween(today, day); ahead > lim.MaxAdvanceBookingDays {
		d := Reject(ReasonAdvanceWindowExceeded,
			fmt.Sprintf("cannot book more than %d days ahead", lim.MaxAdvanceBookingDays),
			map[string]interface{}{
				"max_advance_days": lim.MaxAdvanceBookingDays,
				"requested_days":   ahead,
			})
		return &d
	}

	return nil
}

func (e *Engine) checkDuration(req Request) *Decision {
	if req.StartTime == nil || req.EndTime == nil {
		d := Reject(ReasonInvalidDuration, "both start and end times are required for a timed reservation", nil)
		return &d
	}
	if !req.EndTime.After(*req.StartTime) {
		d := Reject(ReasonInvalidDuration, "end time must be after start time", nil)
		return &d
	}
	minutes := int(req.EndTime.Sub(*req.StartTime) / time.Minute)
	if minutes < e.cfg.MinDurationMinutes || minutes > e.cfg.MaxDurationMinutes {
		d := Reject(ReasonInvalidDuration,
			fmt.Sprintf("duration must be between %d and %d minutes", e.cfg.MinDurationMinutes, e.cfg.MaxDurationMinutes),
			map[string]interface{}{
				"duration_minutes": minutes,
				"min_minutes":      e.cfg.MinDurationMinutes,
				"max_minutes":      e.cfg.MaxDurationMinutes,
			})
		return &d
	}
	return nil
}

// daysBetween counts whole calendar days from one midnight to another.
// Rounding absorbs the 23 and 25 hour days around DST switches.
func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
