package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gearbook/internal/models"
)

const reservationColumns = `id, reference, equipment_id, user_id, user_name, user_type,
	       date, start_time, end_time, status, comment, created_at, updated_at`

// ReservationFilter narrows ListReservations.
type ReservationFilter struct {
	Status      models.ReservationStatus
	EquipmentID int64
	UserID      int64
	DateFrom    *time.Time
	DateTo      *time.Time
	Limit       int
	Offset      int
}

// GetReservationsForEquipmentOnDate returns every reservation whose
// pickup date falls on the given calendar day, regardless of status.
// Callers decide which statuses still block a slot.
func (db *DB) GetReservationsForEquipmentOnDate(ctx context.Context, equipmentID int64, date time.Time) ([]models.Reservation, error) {
	startOfDay := models.NormalizeDate(date)
	endOfDay := startOfDay.Add(24 * time.Hour)

	rows, err := db.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE equipment_id = ? AND date >= ? AND date < ?
		ORDER BY start_time`,
		equipmentID, startOfDay, endOfDay,
	)
	if err != nil {
		return nil, fmt.Errorf("get reservations for equipment %d: %w", equipmentID, err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// GetUserQuotaCounts returns how many items the user currently has
// approved and how many requests are still pending.
func (db *DB) GetUserQuotaCounts(ctx context.Context, userID int64) (borrowed, pending int, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0)
		FROM reservations
		WHERE user_id = ? AND status IN ('approved', 'pending')`,
		userID,
	).Scan(&borrowed, &pending)
	if err != nil {
		return 0, 0, fmt.Errorf("get quota counts for user %d: %w", userID, err)
	}
	return borrowed, pending, nil
}

// CreateReservation inserts a reservation after re-checking its slot
// inside the transaction. A concurrent writer may have taken the slot
// after the engine evaluated, in which case ErrSlotConflict comes
// back. A reference seen before returns the stored id with
// ErrDuplicateRequest so retries stay idempotent.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if r == nil {
		return fmt.Errorf("reservation is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM reservations WHERE reference = ?", r.Reference,
	).Scan(&existingID)
	if err == nil {
		r.ID = existingID
		return ErrDuplicateRequest
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check reference: %w", err)
	}

	var isActive bool
	err = tx.QueryRowContext(ctx,
		"SELECT is_active FROM equipment WHERE id = ?", r.EquipmentID,
	).Scan(&isActive)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check equipment: %w", err)
	}
	if !isActive {
		return ErrEquipmentInactive
	}

	if r.HasSlot() {
		var count int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM reservations
			WHERE equipment_id = ?
			AND start_time < ? AND end_time > ?
			AND status NOT IN ('canceled', 'rejected')`,
			r.EquipmentID, r.EndTime, r.StartTime,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if count > 0 {
			return ErrSlotConflict
		}
	}

	if r.Status == "" {
		r.Status = models.StatusPending
	}
	r.Date = models.NormalizeDate(r.Date)

	var start, end interface{}
	if r.HasSlot() {
		start, end = r.StartTime, r.EndTime
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (
			reference, equipment_id, user_id, user_name, user_type,
			date, start_time, end_time, status, comment, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Reference, r.EquipmentID, r.UserID, r.UserName, string(r.UserType),
		r.Date, start, end, string(r.Status), r.Comment, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// GetReservationByReference returns one reservation by its public reference.
func (db *DB) GetReservationByReference(ctx context.Context, reference string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations WHERE reference = ?`, reference)

	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", reference, err)
	}
	return r, nil
}

// UpdateReservationStatus moves a reservation along its lifecycle,
// enforcing the allowed transitions inside the transaction.
func (db *DB) UpdateReservationStatus(ctx context.Context, reference string, to models.ReservationStatus) (*models.Reservation, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations WHERE reference = ?`, reference)

	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", reference, err)
	}

	if !models.CanTransition(r.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, r.Status, to)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?",
		string(to), now, r.ID,
	); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	r.Status = to
	r.UpdatedAt = now
	return r, nil
}

// ListReservations returns reservations matching the filter, oldest
// pickup date first.
func (db *DB) ListReservations(ctx context.Context, filter ReservationFilter) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.EquipmentID > 0 {
		query += " AND equipment_id = ?"
		args = append(args, filter.EquipmentID)
	}
	if filter.UserID > 0 {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.DateFrom != nil {
		query += " AND date >= ?"
		args = append(args, models.NormalizeDate(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query += " AND date <= ?"
		args = append(args, models.NormalizeDate(*filter.DateTo))
	}

	query += " ORDER BY date, start_time"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// DeleteOldReservations removes terminal reservations whose pickup
// date is before the cutoff and returns how many rows went away.
func (db *DB) DeleteOldReservations(ctx context.Context, before time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `
		DELETE FROM reservations
		WHERE date < ? AND status IN ('completed', 'canceled', 'rejected')`,
		models.NormalizeDate(before),
	)
	if err != nil {
		return 0, fmt.Errorf("delete old reservations: %w", err)
	}
	return result.RowsAffected()
}

func collectReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var reservations []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var userName, comment sql.NullString
	var userType, status string
	var start, end sql.NullTime

	err := row.Scan(
		&r.ID, &r.Reference, &r.EquipmentID, &r.UserID, &userName, &userType,
		&r.Date, &start, &end, &status, &comment, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.UserType = models.UserType(userType)
	r.Status = models.ReservationStatus(status)
	if userName.Valid {
		r.UserName = userName.String
	}
	if comment.Valid {
		r.Comment = comment.String
	}
	if start.Valid {
		r.StartTime = start.Time
	}
	if end.Valid {
		r.EndTime = end.Time
	}
	return &r, nil
}
