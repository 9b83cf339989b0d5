package models

import "time"

// UserType classifies members for limit resolution.
type UserType string

const (
	UserTypeTeacher UserType = "teacher"
	UserTypeStaff   UserType = "staff"
	UserTypeStudent UserType = "student"
)

// Known reports whether t is one of the recognized member types.
func (t UserType) Known() bool {
	switch t {
	case UserTypeTeacher, UserTypeStaff, UserTypeStudent:
		return true
	}
	return false
}

// TypeLimitOverride is one per-type row of the admin limit table.
// Nil fields fall back to the built-in per-type defaults; a non-nil
// zero MaxAdvanceBookingDays means same-day booking only.
type TypeLimitOverride struct {
	MaxItems              *int `json:"max_items,omitempty"`
	MaxDays               *int `json:"max_days,omitempty"`
	MaxAdvanceBookingDays *int `json:"max_advance_booking_days,omitempty"`
	IsActive              bool `json:"is_active"`
}

// LunchBreak is the midday window excluded from slot generation.
type LunchBreak struct {
	Enabled   bool `json:"enabled"`
	StartHour int  `json:"start_hour"`
	EndHour   int  `json:"end_hour"`
}

// Settings is the admin configuration snapshot an evaluation runs against.
// Zero values mean "unset" and resolve to hard-coded defaults downstream,
// so a missing or partial settings record never breaks booking.
type Settings struct {
	UserTypeLimitsEnabled bool                           `json:"user_type_limits_enabled"`
	UserTypeLimits        map[UserType]TypeLimitOverride `json:"user_type_limits,omitempty"`
	DefaultCategoryLimit  int                            `json:"default_category_limit"`
	MaxLoanDuration       int                            `json:"max_loan_duration"`
	MaxAdvanceBookingDays int                            `json:"max_advance_booking_days"`
	LoanReturnStartTime   string                         `json:"loan_return_start_time"` // "HH:MM"
	LoanReturnEndTime     string                         `json:"loan_return_end_time"`   // "HH:MM"
	LunchBreak            LunchBreak                     `json:"lunch_break"`
	UpdatedAt             time.Time                      `json:"updated_at"`
}
