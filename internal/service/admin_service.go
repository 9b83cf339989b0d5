package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gearbook/internal/events"
	"gearbook/internal/models"
)

// AdminStore is the persistence surface behind the admin operations.
type AdminStore interface {
	GetSettings(ctx context.Context) (models.Settings, error)
	UpdateSettings(ctx context.Context, s models.Settings) error
	ListClosedDates(ctx context.Context) ([]models.ClosedDate, error)
	AddClosedDate(ctx context.Context, cd *models.ClosedDate) error
	RemoveClosedDate(ctx context.Context, id int64) error
}

// AdminService covers the admin-editable policy state: global
// settings, per-type limits and the closed-date calendar. Every write
// publishes an event so cached snapshots refresh.
type AdminService struct {
	store  AdminStore
	bus    Publisher
	logger *zerolog.Logger
}

func NewAdminService(store AdminStore, bus Publisher, logger *zerolog.Logger) *AdminService {
	return &AdminService{store: store, bus: bus, logger: logger}
}

// Settings returns the current global settings.
func (s *AdminService) Settings(ctx context.Context) (models.Settings, error) {
	return s.store.GetSettings(ctx)
}

// UpdateSettings validates and stores new global settings.
func (s *AdminService) UpdateSettings(ctx context.Context, settings models.Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}

	if err := s.store.UpdateSettings(ctx, settings); err != nil {
		return err
	}

	s.bus.Publish(events.Event{Topic: events.TopicSettingsUpdated})
	s.logger.Info().
		Bool("user_type_limits_enabled", settings.UserTypeLimitsEnabled).
		Int("max_advance_booking_days", settings.MaxAdvanceBookingDays).
		Msg("Settings updated")
	return nil
}

// ClosedDates returns every closure.
func (s *AdminService) ClosedDates(ctx context.Context) ([]models.ClosedDate, error) {
	return s.store.ListClosedDates(ctx)
}

// AddClosedDate registers a closure, recurring yearly when asked.
func (s *AdminService) AddClosedDate(ctx context.Context, date time.Time, reason string, recurring bool) (*models.ClosedDate, error) {
	cd := &models.ClosedDate{
		Date:        date,
		Reason:      reason,
		IsRecurring: recurring,
	}
	if recurring {
		cd.RecurringPattern = models.RecurringYearly
	}

	if err := s.store.AddClosedDate(ctx, cd); err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{Topic: events.TopicClosedDatesChanged})
	s.logger.Info().
		Str("date", cd.Date.Format("2006-01-02")).
		Str("reason", reason).
		Bool("recurring", recurring).
		Msg("Closed date added")
	return cd, nil
}

// RemoveClosedDate deletes a closure by id.
func (s *AdminService) RemoveClosedDate(ctx context.Context, id int64) error {
	if err := s.store.RemoveClosedDate(ctx, id); err != nil {
		return err
	}

	s.bus.Publish(events.Event{Topic: events.TopicClosedDatesChanged})
	s.logger.Info().Int64("id", id).Msg("Closed date removed")
	return nil
}

// validateSettings rejects values no policy could mean. Unparseable
// time strings pass through: the slot window falls back to its
// defaults rather than refusing the update.
func validateSettings(s models.Settings) error {
	if s.DefaultCategoryLimit < 0 {
		return fmt.Errorf("default_category_limit cannot be negative")
	}
	if s.MaxLoanDuration < 0 {
		return fmt.Errorf("max_loan_duration cannot be negative")
	}
	if s.MaxAdvanceBookingDays < 0 {
		return fmt.Errorf("max_advance_booking_days cannot be negative")
	}

	for userType, override := range s.UserTypeLimits {
		if !userType.Known() {
			return fmt.Errorf("unknown user type %q", userType)
		}
		if override.MaxItems != nil && *override.MaxItems < 0 {
			return fmt.Errorf("max_items for %s cannot be negative", userType)
		}
		if override.MaxDays != nil && *override.MaxDays < 0 {
			return fmt.Errorf("max_days for %s cannot be negative", userType)
		}
		if override.MaxAdvanceBookingDays != nil && *override.MaxAdvanceBookingDays < 0 {
			return fmt.Errorf("max_advance_booking_days for %s cannot be negative", userType)
		}
	}

	if s.LunchBreak.Enabled {
		if s.LunchBreak.StartHour < 0 || s.LunchBreak.EndHour > 24 || s.LunchBreak.StartHour >= s.LunchBreak.EndHour {
			return fmt.Errorf("lunch break hours are out of order")
		}
	}
	return nil
}
