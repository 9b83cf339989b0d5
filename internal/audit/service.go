// Package audit produces the monthly Excel export of all reservation
// tables and prunes terminal reservations past the retention window.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the audit schedule settings.
type Config struct {
	// RetentionMonths is how many months of terminal reservations to
	// keep before cleanup. Default: 6.
	RetentionMonths int

	// ExportOnStart runs an export immediately on Start.
	ExportOnStart bool

	// ExportPath is the directory monthly workbooks are written to.
	ExportPath string
}

// DefaultConfig returns the default schedule.
func DefaultConfig() *Config {
	return &Config{
		RetentionMonths: 6,
		ExportOnStart:   false,
		ExportPath:      "data/exports",
	}
}

// TableExporter provides access to the store tables being exported.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// ReservationCleaner prunes finished reservations.
type ReservationCleaner interface {
	DeleteOldReservations(ctx context.Context, before time.Time) (int64, error)
}

// Service runs the export on the first of every month and cleans up
// reservations that fell out of the retention window.
type Service struct {
	config   *Config
	exporter TableExporter
	writer   func() ExcelWriter // factory, one workbook per export
	cleaner  ReservationCleaner
	logger   zerolog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewService wires the audit scheduler.
func NewService(config *Config, exporter TableExporter, writerFactory func() ExcelWriter, cleaner ReservationCleaner, logger *zerolog.Logger) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.RetentionMonths <= 0 {
		config.RetentionMonths = 6
	}
	if config.ExportPath == "" {
		config.ExportPath = "data/exports"
	}

	return &Service{
		config:   config,
		exporter: exporter,
		writer:   writerFactory,
		cleaner:  cleaner,
		logger:   logger.With().Str("component", "audit").Logger(),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the monthly schedule.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if s.config.ExportOnStart {
		go s.RunExportAndCleanup()
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().
		Int("retention_months", s.config.RetentionMonths).
		Str("export_path", s.config.ExportPath).
		Msg("audit service started")
}

// Stop halts the schedule and waits for the loop to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info().Msg("audit service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	nextRun := s.nextFirstOfMonth()
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	s.logger.Info().Time("next_run", nextRun).Msg("next audit scheduled")

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.RunExportAndCleanup()

			nextRun = s.nextFirstOfMonth()
			timer.Reset(time.Until(nextRun))

			s.logger.Info().Time("next_run", nextRun).Msg("next audit scheduled")
		}
	}
}

func (s *Service) nextFirstOfMonth() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

// RunExportAndCleanup performs one export and cleanup cycle. Export
// failures do not block the cleanup.
func (s *Service) RunExportAndCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := s.exportData(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to export audit data")
	}

	if err := s.cleanupOldData(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to clean up old reservations")
	}
}

func (s *Service) exportData(ctx context.Context) error {
	if s.exporter == nil || s.writer == nil {
		return fmt.Errorf("exporter or writer not configured")
	}

	tables, err := s.exporter.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}
	if len(tables) == 0 {
		s.logger.Info().Msg("no tables to export")
		return nil
	}

	excel := s.writer()
	if excel == nil {
		return fmt.Errorf("failed to create excel writer")
	}

	for _, tableName := range tables {
		data, columns, err := s.exporter.GetTableData(ctx, tableName)
		if err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("failed to get table data")
			continue
		}

		if err := excel.AddSheet(tableName); err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("failed to add sheet")
			continue
		}
		if err := excel.WriteHeader(columns); err != nil {
			s.logger.Error().Err(err).Str("table", tableName).Msg("failed to write header")
			continue
		}

		for _, row := range data {
			rowData := make([]interface{}, len(columns))
			for i, col := range columns {
				rowData[i] = row[col]
			}
			if err := excel.WriteRow(rowData); err != nil {
				s.logger.Error().Err(err).Str("table", tableName).Msg("failed to write row")
			}
		}

		s.logger.Debug().Str("table", tableName).Int("rows", len(data)).Msg("exported table")
	}

	if err := os.MkdirAll(s.config.ExportPath, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(s.config.ExportPath, exportFilenameForPreviousMonth())
	if err := excel.SaveToFile(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("audit export written")
	return nil
}

func (s *Service) cleanupOldData(ctx context.Context) error {
	if s.cleaner == nil {
		return nil
	}

	cutoff := time.Now().AddDate(0, -s.config.RetentionMonths, 0)
	deleted, err := s.cleaner.DeleteOldReservations(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete old reservations: %w", err)
	}

	s.logger.Info().
		Int64("deleted_count", deleted).
		Int("retention_months", s.config.RetentionMonths).
		Msg("cleaned up old reservations")
	return nil
}

// ExportNow triggers an immediate export, for manual runs.
func (s *Service) ExportNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	return s.exportData(ctx)
}

// CleanupNow triggers an immediate cleanup.
func (s *Service) CleanupNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return s.cleanupOldData(ctx)
}

// exportFilename names a workbook after the month it covers, like
// "reservations_January_2026.xlsx".
func exportFilename(t time.Time) string {
	return fmt.Sprintf("reservations_%s_%d.xlsx", t.Month(), t.Year())
}

func exportFilenameForPreviousMonth() string {
	return exportFilename(time.Now().AddDate(0, -1, 0))
}
