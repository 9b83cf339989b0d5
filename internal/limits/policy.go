// Package limits resolves effective borrowing limits and quota state.
// It is the single source of truth for limit values; no other package
// may derive them on its own.
package limits

import "gearbook/internal/models"

// Hard-coded system defaults used when admin settings are absent or
// per-type limits are disabled.
const (
	DefaultMaxItems       = 3
	DefaultMaxLoanDays    = 7
	DefaultMaxAdvanceDays = 30
)

// UserTypeLimits is the effective limit set resolved for one evaluation.
// IsDefault marks a fallback to system-wide defaults; SourceEnabled
// records whether per-type limits were switched on in settings.
type UserTypeLimits struct {
	UserType              models.UserType `json:"user_type"`
	MaxItems              int             `json:"max_items"`
	MaxLoanDays           int             `json:"max_loan_days"`
	MaxAdvanceBookingDays int             `json:"max_advance_booking_days"`
	IsDefault             bool            `json:"is_default"`
	SourceEnabled         bool            `json:"source_enabled"`
}

// typeFallbacks are per-type defaults applied when an active override
// row leaves a field unset.
var typeFallbacks = map[models.UserType]UserTypeLimits{
	models.UserTypeTeacher: {MaxItems: 5, MaxLoanDays: 14, MaxAdvanceBookingDays: 60},
	models.UserTypeStaff:   {MaxItems: 4, MaxLoanDays: 10, MaxAdvanceBookingDays: 45},
	models.UserTypeStudent: {MaxItems: 3, MaxLoanDays: 7, MaxAdvanceBookingDays: 30},
}

// Resolve merges system settings and per-type overrides into the
// effective limits for userType.
//
// With per-type limits disabled the system-wide defaults apply. With
// them enabled, an active override row wins, falling back field by
// field to the per-type defaults. An unset or inactive type drops back
// to system-wide defaults; callers surface that as an advisory, never
// as a rejection.
func Resolve(settings models.Settings, userType models.UserType) UserTypeLimits {
	if !settings.UserTypeLimitsEnabled {
		return systemDefaults(settings, userType, false)
	}

	override, ok := settings.UserTypeLimits[userType]
	if !ok || !override.IsActive {
		return systemDefaults(settings, userType, true)
	}

	fallback, ok := typeFallbacks[userType]
	if !ok {
		fallback = systemDefaults(settings, userType, true)
	}

	return UserTypeLimits{
		UserType:              userType,
		MaxItems:              positiveOr(override.MaxItems, fallback.MaxItems),
		MaxLoanDays:           positiveOr(override.MaxDays, fallback.MaxLoanDays),
		MaxAdvanceBookingDays: nonNegativeOr(override.MaxAdvanceBookingDays, fallback.MaxAdvanceBookingDays),
		IsDefault:             false,
		SourceEnabled:         true,
	}
}

// NeedsTypeAdvisory reports whether the caller should ask the user to
// set a profile type: per-type limits are on but this user fell back
// to defaults.
func (l UserTypeLimits) NeedsTypeAdvisory() bool {
	return l.SourceEnabled && l.IsDefault
}

func systemDefaults(settings models.Settings, userType models.UserType, sourceEnabled bool) UserTypeLimits {
	l := UserTypeLimits{
		UserType:              userType,
		MaxItems:              DefaultMaxItems,
		MaxLoanDays:           DefaultMaxLoanDays,
		MaxAdvanceBookingDays: DefaultMaxAdvanceDays,
		IsDefault:             true,
		SourceEnabled:         sourceEnabled,
	}
	if settings.DefaultCategoryLimit > 0 {
		l.MaxItems = settings.DefaultCategoryLimit
	}
	if settings.MaxLoanDuration > 0 {
		l.MaxLoanDays = settings.MaxLoanDuration
	}
	if settings.MaxAdvanceBookingDays > 0 {
		l.MaxAdvanceBookingDays = settings.MaxAdvanceBookingDays
	}
	return l
}

func positiveOr(v *int, fallback int) int {
	if v != nil && *v > 0 {
		return *v
	}
	return fallback
}

// nonNegativeOr keeps an explicit zero: zero advance days means
// same-day booking only.
func nonNegativeOr(v *int, fallback int) int {
	if v != nil && *v >= 0 {
		return *v
	}
	return fallback
}
