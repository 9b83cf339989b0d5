package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EquipmentConfig represents a single equipment entry.
type EquipmentConfig struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	IsActive    bool   `yaml:"is_active"`
}

// ClosedDateConfig represents a closure seeded from the catalog.
type ClosedDateConfig struct {
	Date      string `yaml:"date"`                // "2026-01-01"
	Reason    string `yaml:"reason,omitempty"`    // "New Year"
	Recurring bool   `yaml:"recurring,omitempty"` // repeats every year
}

// CatalogConfig is the root configuration for equipment.yaml.
type CatalogConfig struct {
	Equipment   []EquipmentConfig  `yaml:"equipment"`
	ClosedDates []ClosedDateConfig `yaml:"closed_dates"`
}

// LoadCatalogConfig loads and validates the equipment catalog from a YAML file.
func LoadCatalogConfig(path string) (*CatalogConfig, error) {
	if path == "" {
		path = "configs/equipment.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read equipment catalog: %w", err)
	}

	var cfg CatalogConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse equipment catalog: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate equipment catalog: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Validate checks the catalog for errors.
func (c *CatalogConfig) Validate() error {
	if len(c.Equipment) == 0 {
		return fmt.Errorf("no equipment defined")
	}

	ids := make(map[int64]bool)
	names := make(map[string]bool)

	for i, eq := range c.Equipment {
		if eq.ID <= 0 {
			return fmt.Errorf("equipment[%d]: id must be positive, got %d", i, eq.ID)
		}
		if ids[eq.ID] {
			return fmt.Errorf("equipment[%d]: duplicate id %d", i, eq.ID)
		}
		ids[eq.ID] = true

		if eq.Name == "" {
			return fmt.Errorf("equipment[%d]: name is required", i)
		}
		if names[eq.Name] {
			return fmt.Errorf("equipment[%d]: duplicate name '%s'", i, eq.Name)
		}
		names[eq.Name] = true
	}

	for i, cd := range c.ClosedDates {
		if cd.Date == "" {
			return fmt.Errorf("closed_dates[%d]: date is required", i)
		}
		if _, err := time.Parse("2006-01-02", cd.Date); err != nil {
			return fmt.Errorf("closed_dates[%d]: invalid date format '%s', expected YYYY-MM-DD", i, cd.Date)
		}
	}

	return nil
}

// applyDefaults applies default values to entries without explicit configuration.
func (c *CatalogConfig) applyDefaults() {
	for i := range c.Equipment {
		if c.Equipment[i].Category == "" {
			c.Equipment[i].Category = "general"
		}
	}
}
