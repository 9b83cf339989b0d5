package database

import (
	"context"
	"database/sql"
	"fmt"

	"gearbook/internal/models"
)

// ListEquipment returns catalog entries, optionally only active ones.
func (db *DB) ListEquipment(ctx context.Context, activeOnly bool) ([]models.Equipment, error) {
	query := `
		SELECT id, name, category, description, is_active, created_at, updated_at
		FROM equipment`
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY category, name"

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var items []models.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *eq)
	}
	return items, rows.Err()
}

// GetEquipment returns one catalog entry by id.
func (db *DB) GetEquipment(ctx context.Context, id int64) (*models.Equipment, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, category, description, is_active, created_at, updated_at
		FROM equipment WHERE id = ?`, id)

	eq, err := scanEquipment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get equipment %d: %w", id, err)
	}
	return eq, nil
}

func scanEquipment(row rowScanner) (*models.Equipment, error) {
	var eq models.Equipment
	var description sql.NullString
	err := row.Scan(&eq.ID, &eq.Name, &eq.Category, &description, &eq.IsActive, &eq.CreatedAt, &eq.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		eq.Description = description.String
	}
	return &eq, nil
}
