package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gearbook/internal/models"
)

// defaultSettings matches the engine's built-in policy: empty return
// times mean the default operating window applies unchanged.
func defaultSettings() models.Settings {
	return models.Settings{
		DefaultCategoryLimit:  3,
		MaxLoanDuration:       7,
		MaxAdvanceBookingDays: 30,
		LunchBreak:            models.LunchBreak{StartHour: 12, EndHour: 13},
		UserTypeLimits:        make(map[models.UserType]models.TypeLimitOverride),
	}
}

// GetSettings returns the global settings row plus the per-type limit
// overrides. A missing row yields the defaults without inserting one.
func (db *DB) GetSettings(ctx context.Context) (models.Settings, error) {
	s := defaultSettings()

	err := db.QueryRowContext(ctx, `
		SELECT user_type_limits_enabled, default_category_limit, max_loan_duration,
		       max_advance_booking_days, loan_return_start_time, loan_return_end_time,
		       lunch_enabled, lunch_start_hour, lunch_end_hour, updated_at
		FROM settings WHERE id = 1`,
	).Scan(
		&s.UserTypeLimitsEnabled, &s.DefaultCategoryLimit, &s.MaxLoanDuration,
		&s.MaxAdvanceBookingDays, &s.LoanReturnStartTime, &s.LoanReturnEndTime,
		&s.LunchBreak.Enabled, &s.LunchBreak.StartHour, &s.LunchBreak.EndHour, &s.UpdatedAt,
	)
	if err != nil && err != sql.ErrNoRows {
		return s, fmt.Errorf("get settings: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT user_type, max_items, max_days, max_advance_booking_days, is_active
		FROM user_type_limits`)
	if err != nil {
		return s, fmt.Errorf("get user type limits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userType string
		var maxItems, maxDays, maxAdvance sql.NullInt64
		var override models.TypeLimitOverride
		if err := rows.Scan(&userType, &maxItems, &maxDays, &maxAdvance, &override.IsActive); err != nil {
			return s, fmt.Errorf("scan user type limit: %w", err)
		}
		override.MaxItems = nullableInt(maxItems)
		override.MaxDays = nullableInt(maxDays)
		override.MaxAdvanceBookingDays = nullableInt(maxAdvance)
		s.UserTypeLimits[models.UserType(userType)] = override
	}
	return s, rows.Err()
}

// UpdateSettings replaces the settings row and the per-type override
// table in one transaction.
func (db *DB) UpdateSettings(ctx context.Context, s models.Settings) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO settings (
			id, user_type_limits_enabled, default_category_limit, max_loan_duration,
			max_advance_booking_days, loan_return_start_time, loan_return_end_time,
			lunch_enabled, lunch_start_hour, lunch_end_hour, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_type_limits_enabled = excluded.user_type_limits_enabled,
			default_category_limit = excluded.default_category_limit,
			max_loan_duration = excluded.max_loan_duration,
			max_advance_booking_days = excluded.max_advance_booking_days,
			loan_return_start_time = excluded.loan_return_start_time,
			loan_return_end_time = excluded.loan_return_end_time,
			lunch_enabled = excluded.lunch_enabled,
			lunch_start_hour = excluded.lunch_start_hour,
			lunch_end_hour = excluded.lunch_end_hour,
			updated_at = excluded.updated_at`,
		s.UserTypeLimitsEnabled, s.DefaultCategoryLimit, s.MaxLoanDuration,
		s.MaxAdvanceBookingDays, s.LoanReturnStartTime, s.LoanReturnEndTime,
		s.LunchBreak.Enabled, s.LunchBreak.StartHour, s.LunchBreak.EndHour, now,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_type_limits"); err != nil {
		return fmt.Errorf("clear user type limits: %w", err)
	}
	for userType, override := range s.UserTypeLimits {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_type_limits (user_type, max_items, max_days, max_advance_booking_days, is_active, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(userType), override.MaxItems, override.MaxDays,
			override.MaxAdvanceBookingDays, override.IsActive, now,
		)
		if err != nil {
			return fmt.Errorf("insert user type limit %s: %w", userType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
