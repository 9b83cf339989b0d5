package engine

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gearbook/internal/calendar"
	"gearbook/internal/limits"
	"gearbook/internal/models"
)

var testNow = time.Date(2025, time.June, 2, 10, 30, 0, 0, time.Local)

func fixedEngine() *Engine {
	return New(Config{Now: func() time.Time { return testNow }})
}

// day returns midnight offset whole days from the fixed test clock.
func day(offset int) time.Time {
	return models.NormalizeDate(testNow).AddDate(0, 0, offset)
}

func timesOn(date time.Time, startHour, startMin, endHour, endMin int) (*time.Time, *time.Time) {
	s := time.Date(date.Year(), date.Month(), date.Day(), startHour, startMin, 0, 0, date.Location())
	e := time.Date(date.Year(), date.Month(), date.Day(), endHour, endMin, 0, 0, date.Location())
	return &s, &e
}

func reservationAt(date time.Time, startHour, startMin, endHour, endMin int, status models.ReservationStatus) models.Reservation {
	s, e := timesOn(date, startHour, startMin, endHour, endMin)
	return models.Reservation{ID: 1, EquipmentID: 1, Date: date, StartTime: *s, EndTime: *e, Status: status}
}

func studentLimits() limits.UserTypeLimits {
	return limits.Resolve(models.Settings{}, models.UserTypeStudent)
}

func openQuota() models.QuotaSnapshot {
	return models.QuotaSnapshot{MaxItems: 3}
}

func dateRequest(offset int) Request {
	return Request{EquipmentID: 1, Date: day(offset), UserType: models.UserTypeStudent, Quota: openQuota()}
}

func availabilityByTime(list SlotList) map[string]bool {
	m := make(map[string]bool, len(list.Slots))
	for _, s := range list.Slots {
		m[s.Time] = s.Available
	}
	return m
}

func TestEvaluate_AcceptsDateOnlyRequest(t *testing.T) {
	d := fixedEngine().Evaluate(dateRequest(3), studentLimits(), calendar.NewRegistry(nil), nil)

	assert.True(t, d.OK)
	assert.Empty(t, d.ReasonCode)
	assert.Empty(t, d.Message)
}

func TestEvaluate_AcceptsToday(t *testing.T) {
	d := fixedEngine().Evaluate(dateRequest(0), studentLimits(), calendar.NewRegistry(nil), nil)

	assert.True(t, d.OK)
}

func TestEvaluate_PastDate(t *testing.T) {
	e := fixedEngine()

	for _, offset := range []int{-1, -7, -365} {
		d := e.Evaluate(dateRequest(offset), studentLimits(), calendar.NewRegistry(nil), nil)
		assert.False(t, d.OK, "offset %d", offset)
		assert.Equal(t, ReasonPastDate, d.ReasonCode, "offset %d", offset)
	}
}

func TestEvaluate_PastDateWinsOverOtherChecks(t *testing.T) {
	// Yesterday is also closed and the quota is gone, but the past
	// date is reported first.
	closed := calendar.NewRegistry([]models.ClosedDate{{Date: day(-1), Reason: "maintenance"}})
	req := dateRequest(-1)
	req.Quota = models.QuotaSnapshot{MaxItems: 3, CurrentBorrowedCount: 3}

	d := fixedEngine().Evaluate(req, studentLimits(), closed, nil)

	assert.Equal(t, ReasonPastDate, d.ReasonCode)
}

func TestEvaluate_ClosedDate(t *testing.T) {
	closed := calendar.NewRegistry([]models.ClosedDate{
		{Date: day(5), Reason: "inventory audit"},
		{Date: day(6)},
	})
	e := fixedEngine()

	withReason := e.Evaluate(dateRequest(5), studentLimits(), closed, nil)
	assert.False(t, withReason.OK)
	assert.Equal(t, ReasonClosedDate, withReason.ReasonCode)
	assert.Contains(t, withReason.Message, "inventory audit")
	assert.Equal(t, "inventory audit", withReason.Details["reason"])

	withoutReason := e.Evaluate(dateRequest(6), studentLimits(), closed, nil)
	assert.Equal(t, ReasonClosedDate, withoutReason.ReasonCode)
	assert.NotEmpty(t, withoutReason.Message)
	assert.Nil(t, withoutReason.Details)
}

func TestEvaluate_RecurringClosedDate(t *testing.T) {
	// Recorded years ago, still closes the same calendar day this year.
	target := day(10)
	closed := calendar.NewRegistry([]models.ClosedDate{{
		Date:        time.Date(2020, target.Month(), target.Day(), 0, 0, 0, 0, target.Location()),
		Reason:      "national holiday",
		IsRecurring: true,
	}})

	d := fixedEngine().Evaluate(dateRequest(10), studentLimits(), closed, nil)

	assert.Equal(t, ReasonClosedDate, d.ReasonCode)
	assert.Contains(t, d.Message, "national holiday")
}

func TestEvaluate_ClosedDateWinsOverAdvanceWindow(t *testing.T) {
	// 40 days out is both closed and beyond the student window; the
	// closure is reported.
	closed := calendar.NewRegistry([]models.ClosedDate{{Date: day(40), Reason: "renovation"}})

	d := fixedEngine().Evaluate(dateRequest(40), studentLimits(), closed, nil)

	assert.Equal(t, ReasonClosedDate, d.ReasonCode)
}

func TestEvaluate_AdvanceWindowBoundary(t *testing.T) {
	e := fixedEngine()
	lim := studentLimits()
	assert.Equal(t, 30, lim.MaxAdvanceBookingDays)

	// Exactly at the limit is allowed.
	for _, offset := range []int{1, 29, 30} {
		d := e.Evaluate(dateRequest(offset), lim, calendar.NewRegistry(nil), nil)
		assert.True(t, d.OK, "offset %d", offset)
	}

	// One past the limit is not.
	for _, offset := range []int{31, 60, 365} {
		d := e.Evaluate(dateRequest(offset), lim, calendar.NewRegistry(nil), nil)
		assert.False(t, d.OK, "offset %d", offset)
		assert.Equal(t, ReasonAdvanceWindowExceeded, d.ReasonCode, "offset %d", offset)
		assert.Contains(t, d.Message, strconv.Itoa(lim.MaxAdvanceBookingDays), "offset %d", offset)
	}

	rejected := e.Evaluate(dateRequest(31), lim, calendar.NewRegistry(nil), nil)
	assert.Equal(t, 30, rejected.Details["max_advance_days"])
	assert.Equal(t, 31, rejected.Details["requested_days"])
}

func TestEvaluate_AdvanceWindowPerType(t *testing.T) {
	settings := models.Settings{
		UserTypeLimitsEnabled: true,
		UserTypeLimits: map[models.UserType]models.TypeLimitOverride{
			models.UserTypeTeacher: {IsActive: true},
			models.UserTypeStaff:   {IsActive: true},
			models.UserTypeStudent: {IsActive: true},
		},
	}
	e := fixedEngine()

	evaluate := func(userType models.UserType, offset int) Decision {
		req := dateRequest(offset)
		req.UserType = userType
		return e.Evaluate(req, limits.Resolve(settings, userType), calendar.NewRegistry(nil), nil)
	}

	// 40 days out: beyond the student window, within staff and teacher.
	assert.Equal(t, ReasonAdvanceWindowExceeded, evaluate(models.UserTypeStudent, 40).ReasonCode)
	assert.True(t, evaluate(models.UserTypeStaff, 40).OK)
	assert.True(t, evaluate(models.UserTypeTeacher, 40).OK)

	// 50 days out: only teachers still qualify.
	assert.Equal(t, ReasonAdvanceWindowExceeded, evaluate(models.UserTypeStaff, 50).ReasonCode)
	assert.True(t, evaluate(models.UserTypeTeacher, 50).OK)

	// 61 days out: nobody does.
	assert.Equal(t, ReasonAdvanceWindowExceeded, evaluate(models.UserTypeTeacher, 61).ReasonCode)
}

func TestEvaluate_InvalidDuration(t *testing.T) {
	eng := fixedEngine()
	date := day(3)

	tests := []struct {
		name                string
		startHour, startMin int
		endHour, endMin     int
		dropStart, dropEnd  bool
	}{
		{name: "missing end time", startHour: 10, dropEnd: true},
		{name: "missing start time", endHour: 11, dropStart: true},
		{name: "end equals start", startHour: 10, endHour: 10},
		{name: "end before start", startHour: 11, endHour: 10},
		{name: "below minimum", startHour: 10, endHour: 10, endMin: 15},
		{name: "above maximum", startHour: 8, endHour: 17, endMin: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := dateRequest(3)
			start, end := timesOn(date, tt.startHour, tt.startMin, tt.endHour, tt.endMin)
			if !tt.dropStart {
				req.StartTime = start
			}
			if !tt.dropEnd {
				req.EndTime = end
			}

			d := eng.Evaluate(req, studentLimits(), calendar.NewRegistry(nil), nil)
			assert.False(t, d.OK)
			assert.Equal(t, ReasonInvalidDuration, d.ReasonCode)
		})
	}
}

func TestEvaluate_DurationBounds(t *testing.T) {
	e := fixedEngine()
	date := day(3)

	// Exactly 30 minutes and exactly 8 hours are both fine.
	shortReq := dateRequest(3)
	shortReq.StartTime, shortReq.EndTime = timesOn(date, 10, 0, 10, 30)
	assert.True(t, e.Evaluate(shortReq, studentLimits(), calendar.NewRegistry(nil), nil).OK)

	longReq := dateRequest(3)
	longReq.StartTime, longReq.EndTime = timesOn(date, 8, 0, 16, 0)
	assert.True(t, e.Evaluate(longReq, studentLimits(), calendar.NewRegistry(nil), nil).OK)
}

func TestEvaluate_SlotConflict(t *testing.T) {
	e := fixedEngine()
	date := day(3)
	existing := []models.Reservation{reservationAt(date, 10, 0, 11, 0, models.StatusApproved)}

	overlapping := dateRequest(3)
	overlapping.StartTime, overlapping.EndTime = timesOn(date, 10, 30, 11, 30)
	d := e.Evaluate(overlapping, studentLimits(), calendar.NewRegistry(nil), existing)
	assert.False(t, d.OK)
	assert.Equal(t, ReasonSlotUnavailable, d.ReasonCode)

	// Back to back with the existing reservation is not a conflict.
	touching := dateRequest(3)
	touching.StartTime, touching.EndTime = timesOn(date, 11, 0, 12, 0)
	assert.True(t, e.Evaluate(touching, studentLimits(), calendar.NewRegistry(nil), existing).OK)

	// A canceled reservation releases its slot.
	canceled := []models.Reservation{reservationAt(date, 10, 0, 11, 0, models.StatusCanceled)}
	assert.True(t, e.Evaluate(overlapping, studentLimits(), calendar.NewRegistry(nil), canceled).OK)
}

func TestEvaluate_QuotaExceeded(t *testing.T) {
	e := fixedEngine()

	exhausted := dateRequest(3)
	exhausted.Quota = models.QuotaSnapshot{MaxItems: 3, CurrentBorrowedCount: 2, PendingRequestsCount: 1}
	d := e.Evaluate(exhausted, studentLimits(), calendar.NewRegistry(nil), nil)
	assert.False(t, d.OK)
	assert.Equal(t, ReasonQuotaExceeded, d.ReasonCode)
	assert.Contains(t, d.Message, "3")
	assert.Equal(t, 0, d.Details["remaining_quota"])

	// One slot of quota left is enough.
	open := dateRequest(3)
	open.Quota = models.QuotaSnapshot{MaxItems: 3, CurrentBorrowedCount: 2}
	assert.True(t, e.Evaluate(open, studentLimits(), calendar.NewRegistry(nil), nil).OK)

	// Pending requests count against the quota like borrowed items.
	overdrawn := dateRequest(3)
	overdrawn.Quota = models.QuotaSnapshot{MaxItems: 2, CurrentBorrowedCount: 2, PendingRequestsCount: 3}
	d = e.Evaluate(overdrawn, studentLimits(), calendar.NewRegistry(nil), nil)
	assert.Equal(t, ReasonQuotaExceeded, d.ReasonCode)
	assert.Equal(t, 0, d.Details["remaining_quota"])
}

func TestEvaluate_ConflictWinsOverQuota(t *testing.T) {
	date := day(3)
	existing := []models.Reservation{reservationAt(date, 10, 0, 11, 0, models.StatusApproved)}

	req := dateRequest(3)
	req.StartTime, req.EndTime = timesOn(date, 10, 0, 11, 0)
	req.Quota = models.QuotaSnapshot{MaxItems: 1, CurrentBorrowedCount: 1}

	d := fixedEngine().Evaluate(req, studentLimits(), calendar.NewRegistry(nil), existing)

	assert.Equal(t, ReasonSlotUnavailable, d.ReasonCode)
}

func TestEvaluate_SameInputsSameDecision(t *testing.T) {
	e := fixedEngine()
	closed := calendar.NewRegistry([]models.ClosedDate{{Date: day(5), Reason: "audit"}})
	existing := []models.Reservation{reservationAt(day(3), 10, 0, 11, 0, models.StatusApproved)}

	req := dateRequest(3)
	req.StartTime, req.EndTime = timesOn(day(3), 9, 0, 10, 0)

	first := e.Evaluate(req, studentLimits(), closed, existing)
	second := e.Evaluate(req, studentLimits(), closed, existing)

	assert.Equal(t, first, second)
}

func TestListAvailableSlots_BlockedDates(t *testing.T) {
	e := fixedEngine()
	closed := calendar.NewRegistry([]models.ClosedDate{{Date: day(5), Reason: "audit"}})

	past := e.ListAvailableSlots(1, day(-1), studentLimits(), closed, nil, models.Settings{})
	assert.NotNil(t, past.Slots)
	assert.Empty(t, past.Slots)
	assert.NotNil(t, past.Blocked)
	assert.Equal(t, ReasonPastDate, past.Blocked.ReasonCode)

	closedDay := e.ListAvailableSlots(1, day(5), studentLimits(), closed, nil, models.Settings{})
	assert.Empty(t, closedDay.Slots)
	assert.Equal(t, ReasonClosedDate, closedDay.Blocked.ReasonCode)
	assert.Contains(t, closedDay.Blocked.Message, "audit")

	tooFar := e.ListAvailableSlots(1, day(31), studentLimits(), closed, nil, models.Settings{})
	assert.Empty(t, tooFar.Slots)
	assert.Equal(t, ReasonAdvanceWindowExceeded, tooFar.Blocked.ReasonCode)
	assert.Contains(t, tooFar.Blocked.Message, "30")
}

func TestListAvailableSlots_AnnotatesAgainstReservations(t *testing.T) {
	settings := models.Settings{
		LoanReturnStartTime: "09:00",
		LoanReturnEndTime:   "14:00", // last operating hour is 13
	}
	date := day(3)
	existing := []models.Reservation{reservationAt(date, 10, 0, 11, 0, models.StatusApproved)}

	list := fixedEngine().ListAvailableSlots(7, date, studentLimits(), calendar.NewRegistry(nil), existing, settings)

	assert.Nil(t, list.Blocked)
	assert.Equal(t, int64(7), list.EquipmentID)
	assert.Equal(t, date.Format("2006-01-02"), list.Date)
	assert.Len(t, list.Slots, 8) // 4 hours * 2 slots

	avail := availabilityByTime(list)
	assert.True(t, avail["09:00"])
	assert.False(t, avail["09:30"]) // pickup hour would run into 10:00
	assert.False(t, avail["10:00"])
	assert.False(t, avail["10:30"])
	assert.True(t, avail["11:00"])
	assert.True(t, avail["12:30"])
}

func TestListAvailableSlots_LunchBreak(t *testing.T) {
	settings := models.Settings{
		LunchBreak: models.LunchBreak{Enabled: true, StartHour: 12, EndHour: 13},
	}

	list := fixedEngine().ListAvailableSlots(1, day(3), studentLimits(), calendar.NewRegistry(nil), nil, settings)

	assert.Nil(t, list.Blocked)
	assert.Len(t, list.Slots, 18) // 10 default hours - 1 lunch hour = 9 hours * 2 slots

	avail := availabilityByTime(list)
	_, has1200 := avail["12:00"]
	_, has1230 := avail["12:30"]
	assert.False(t, has1200)
	assert.False(t, has1230)
	assert.True(t, avail["11:30"])
	assert.True(t, avail["13:00"])
}
