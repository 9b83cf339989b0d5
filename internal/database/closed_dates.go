package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gearbook/internal/models"
)

// ListClosedDates returns every closure ordered by date.
func (db *DB) ListClosedDates(ctx context.Context) ([]models.ClosedDate, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, date, reason, is_recurring, recurring_pattern, created_at
		FROM closed_dates
		ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list closed dates: %w", err)
	}
	defer rows.Close()

	var dates []models.ClosedDate
	for rows.Next() {
		cd, err := scanClosedDate(rows)
		if err != nil {
			return nil, err
		}
		dates = append(dates, *cd)
	}
	return dates, rows.Err()
}

// AddClosedDate inserts a closure, updating reason and recurrence when
// the date is already present. The stored date is normalized to
// midnight so lookups by day always hit.
func (db *DB) AddClosedDate(ctx context.Context, cd *models.ClosedDate) error {
	if cd == nil {
		return fmt.Errorf("closed date is nil")
	}

	day := models.NormalizeDate(cd.Date)
	_, err := db.ExecContext(ctx, `
		INSERT INTO closed_dates (date, reason, is_recurring, recurring_pattern, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			reason = excluded.reason,
			is_recurring = excluded.is_recurring,
			recurring_pattern = excluded.recurring_pattern`,
		day, cd.Reason, cd.IsRecurring, cd.RecurringPattern, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("add closed date: %w", err)
	}

	err = db.QueryRowContext(ctx, "SELECT id FROM closed_dates WHERE date = ?", day).Scan(&cd.ID)
	if err != nil {
		return fmt.Errorf("read back closed date: %w", err)
	}
	cd.Date = day
	return nil
}

// RemoveClosedDate deletes a closure by id.
func (db *DB) RemoveClosedDate(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM closed_dates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove closed date: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClosedDate(row rowScanner) (*models.ClosedDate, error) {
	var cd models.ClosedDate
	var reason, pattern sql.NullString
	if err := row.Scan(&cd.ID, &cd.Date, &reason, &cd.IsRecurring, &pattern, &cd.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan closed date: %w", err)
	}
	if reason.Valid {
		cd.Reason = reason.String
	}
	if pattern.Valid {
		cd.RecurringPattern = pattern.String
	}
	return &cd, nil
}
