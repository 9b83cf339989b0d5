package database

import (
	"context"
	"fmt"
	"time"

	"gearbook/internal/config"
	"gearbook/internal/models"
)

// SyncEquipmentFromCatalog applies equipment.yaml to the database.
// It upserts catalog entries, marks missing equipment inactive, and
// seeds configured closed dates.
func (db *DB) SyncEquipmentFromCatalog(ctx context.Context, catalog *config.CatalogConfig) error {
	if catalog == nil {
		return fmt.Errorf("equipment catalog is nil")
	}

	now := time.Now()
	seen := make(map[int64]struct{})

	for _, eq := range catalog.Equipment {
		// Preserve created_at if the entry already exists.
		_, err := db.ExecContext(ctx, `
			INSERT INTO equipment (id, name, category, description, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM equipment WHERE id = ?), ?), ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				category = excluded.category,
				description = excluded.description,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			eq.ID, eq.Name, eq.Category, eq.Description, eq.IsActive, eq.ID, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync equipment %d: %w", eq.ID, err)
		}
		seen[eq.ID] = struct{}{}
	}

	// Deactivate equipment that disappeared from the catalog.
	rows, err := db.QueryContext(ctx, `SELECT id FROM equipment`)
	if err != nil {
		return err
	}
	defer rows.Close()

	deactivated := 0
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if _, err := db.ExecContext(ctx, `UPDATE equipment SET is_active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("deactivate equipment %d: %w", id, err)
		}
		deactivated++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Best-effort seeding of configured closed dates.
	for _, cd := range catalog.ClosedDates {
		dt, err := time.Parse("2006-01-02", cd.Date)
		if err != nil {
			return fmt.Errorf("parse closed date %s: %w", cd.Date, err)
		}
		_ = db.AddClosedDate(ctx, &models.ClosedDate{
			Date:        dt,
			Reason:      cd.Reason,
			IsRecurring: cd.Recurring,
		})
	}

	if db.logger != nil {
		db.logger.Info().
			Int("equipment", len(catalog.Equipment)).
			Int("deactivated", deactivated).
			Int("closed_dates", len(catalog.ClosedDates)).
			Msg("Equipment catalog synced")
	}
	return nil
}
