// Package database holds the SQLite persistence layer: schema
// management, reservation writes with in-transaction conflict checks,
// and the admin-editable settings and closed-date tables.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sql connection pool.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	ErrNotFound          = errors.New("not found")
	ErrSlotConflict      = errors.New("slot already taken")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEquipmentInactive = errors.New("equipment is not active")
)

// New opens the database at path and creates tables if they don't exist.
func New(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode and a busy timeout keep concurrent readers off the
	// writer's back.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	instance := &DB{DB: db, logger: logger}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		// Equipment catalog. IDs are assigned in equipment.yaml, not
		// autoincremented.
		`CREATE TABLE IF NOT EXISTS equipment (
			id INTEGER PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			description TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Reservations. start_time and end_time stay NULL for
		// date-only pickups.
		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT UNIQUE NOT NULL,
			equipment_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			user_name TEXT,
			user_type TEXT NOT NULL DEFAULT 'student',
			date DATETIME NOT NULL,
			start_time DATETIME,
			end_time DATETIME,
			status TEXT NOT NULL DEFAULT 'pending',
			comment TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (equipment_id) REFERENCES equipment(id)
		)`,

		// Single-row global settings.
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			user_type_limits_enabled BOOLEAN NOT NULL DEFAULT 0,
			default_category_limit INTEGER NOT NULL DEFAULT 3,
			max_loan_duration INTEGER NOT NULL DEFAULT 7,
			max_advance_booking_days INTEGER NOT NULL DEFAULT 30,
			loan_return_start_time TEXT NOT NULL DEFAULT '',
			loan_return_end_time TEXT NOT NULL DEFAULT '',
			lunch_enabled BOOLEAN NOT NULL DEFAULT 0,
			lunch_start_hour INTEGER NOT NULL DEFAULT 12,
			lunch_end_hour INTEGER NOT NULL DEFAULT 13,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Per-type overrides. NULL columns fall back to per-type
		// defaults at resolution time.
		`CREATE TABLE IF NOT EXISTS user_type_limits (
			user_type TEXT PRIMARY KEY,
			max_items INTEGER,
			max_days INTEGER,
			max_advance_booking_days INTEGER,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS closed_dates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date DATETIME NOT NULL UNIQUE,
			reason TEXT,
			is_recurring BOOLEAN NOT NULL DEFAULT 0,
			recurring_pattern TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_equipment_active ON equipment(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_equipment_date ON reservations(equipment_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_times ON reservations(equipment_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_closed_dates_date ON closed_dates(date)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}

	return db.ensureNewColumns()
}

// ensureNewColumns adds columns introduced after the initial schema.
func (db *DB) ensureNewColumns() error {
	migrations := []string{
		`ALTER TABLE reservations ADD COLUMN user_type TEXT NOT NULL DEFAULT 'student'`,
		`ALTER TABLE closed_dates ADD COLUMN recurring_pattern TEXT`,
	}

	for _, m := range migrations {
		_, err := db.Exec(m)
		if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			if db.logger != nil {
				db.logger.Debug().Err(err).Str("migration", m).Msg("Migration skipped")
			}
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func (db *DB) Close() error {
	return db.DB.Close()
}
