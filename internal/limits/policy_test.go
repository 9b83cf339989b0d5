package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gearbook/internal/models"
)

func intp(v int) *int { return &v }

func TestResolve_Disabled(t *testing.T) {
	settings := models.Settings{
		UserTypeLimitsEnabled: false,
		DefaultCategoryLimit:  4,
		MaxLoanDuration:       10,
		MaxAdvanceBookingDays: 45,
		UserTypeLimits: map[models.UserType]models.TypeLimitOverride{
			models.UserTypeTeacher: {MaxItems: intp(9), IsActive: true},
		},
	}

	l := Resolve(settings, models.UserTypeTeacher)

	assert.True(t, l.IsDefault)
	assert.False(t, l.SourceEnabled)
	assert.Equal(t, 4, l.MaxItems, "override table must be ignored while disabled")
	assert.Equal(t, 10, l.MaxLoanDays)
	assert.Equal(t, 45, l.MaxAdvanceBookingDays)
	assert.False(t, l.NeedsTypeAdvisory())
}

func TestResolve_EmptySettings(t *testing.T) {
	l := Resolve(models.Settings{}, models.UserTypeStudent)

	assert.True(t, l.IsDefault)
	assert.Equal(t, DefaultMaxItems, l.MaxItems)
	assert.Equal(t, DefaultMaxLoanDays, l.MaxLoanDays)
	assert.Equal(t, DefaultMaxAdvanceDays, l.MaxAdvanceBookingDays)
}

func TestResolve_ActiveOverride(t *testing.T) {
	settings := models.Settings{
		UserTypeLimitsEnabled: true,
		UserTypeLimits: map[models.UserType]models.TypeLimitOverride{
			models.UserTypeStaff: {
				MaxItems:              intp(2),
				MaxDays:               intp(21),
				MaxAdvanceBookingDays: intp(90),
				IsActive:              true,
			},
		},
	}

	l := Resolve(settings, models.UserTypeStaff)

	assert.False(t, l.IsDefault)
	assert.True(t, l.SourceEnabled)
	assert.Equal(t, 2, l.MaxItems)
	assert.Equal(t, 21, l.MaxLoanDays)
	assert.Equal(t, 90, l.MaxAdvanceBookingDays)
	assert.False(t, l.NeedsTypeAdvisory())
}

func TestResolve_OverrideFieldFallbacks(t *testing.T) {
	settings := models.Settings{
		UserTypeLimitsEnabled: true,
		UserTypeLimits: map[models.UserType]models.TypeLimitOverride{
			models.UserTypeTeacher: {MaxItems: intp(7), IsActive: true},
		},
	}

	l := Resolve(settings, models.UserTypeTeacher)

	assert.Equal(t, 7, l.MaxItems)
	assert.Equal(t, 14, l.MaxLoanDays, "unset field drops to the teacher default")
	assert.Equal(t, 60, l.MaxAdvanceBookingDays)
}

func TestResolve_ExplicitZeroAdvance(t *testing.T) {
	settings := models.Settings{
		UserTypeLimitsEnabled: true,
		UserTypeLimits: map[models.UserType]models.TypeLimitOverride{
			models.UserTypeStudent: {MaxAdvanceBookingDays: intp(0), IsActive: true},
		},
	}

	l := Resolve(settings, models.UserTypeStudent)

	assert.Equal(t, 0, l.MaxAdvanceBookingDays, "explicit zero means same-day only")
	assert.Equal(t, 3, l.MaxItems)
}

func TestResolve_InactiveOrMissingType(t *testing.T) {
	settings := models.Settings{
		UserTypeLimitsEnabled: true,
		DefaultCategoryLimit:  5,
		UserTypeLimits: map[models.UserType]models.TypeLimitOverride{
			models.UserTypeStaff: {MaxItems: intp(8), IsActive: false},
		},
	}

	t.Run("inactive row falls back with advisory", func(t *testing.T) {
		l := Resolve(settings, models.UserTypeStaff)
		assert.True(t, l.IsDefault)
		assert.True(t, l.SourceEnabled)
		assert.Equal(t, 5, l.MaxItems)
		assert.True(t, l.NeedsTypeAdvisory())
	})

	t.Run("unset type falls back with advisory", func(t *testing.T) {
		l := Resolve(settings, "")
		assert.True(t, l.IsDefault)
		assert.True(t, l.NeedsTypeAdvisory())
	})
}

func TestResolve_PerTypeDefaultsAreMonotonic(t *testing.T) {
	// student < staff < teacher across every limit dimension
	student := typeFallbacks[models.UserTypeStudent]
	staff := typeFallbacks[models.UserTypeStaff]
	teacher := typeFallbacks[models.UserTypeTeacher]

	assert.Less(t, student.MaxAdvanceBookingDays, staff.MaxAdvanceBookingDays)
	assert.Less(t, staff.MaxAdvanceBookingDays, teacher.MaxAdvanceBookingDays)
	assert.LessOrEqual(t, student.MaxItems, staff.MaxItems)
	assert.LessOrEqual(t, staff.MaxItems, teacher.MaxItems)
}
