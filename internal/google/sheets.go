// Package google mirrors reservation state into a Google Spreadsheet:
// a flat log of reservations plus an equipment-by-date schedule grid,
// so staff can follow bookings without touching the database.
package google

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	goauth "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"gearbook/internal/database"
	"gearbook/internal/events"
	"gearbook/internal/models"
)

const (
	reservationsSheet = "Reservations"
	scheduleSheet     = "Schedule"
)

var reservationHeaders = []interface{}{
	"ID", "Reference", "Equipment ID", "User ID", "User", "Type",
	"Date", "Start", "End", "Status", "Created", "Updated",
}

var (
	colorFree   = &sheets.Color{Red: 0.85, Green: 0.94, Blue: 0.83}
	colorBooked = &sheets.Color{Red: 0.96, Green: 0.80, Blue: 0.80}
)

// ReservationSource is the slice of the store the mirror reads from.
type ReservationSource interface {
	ListEquipment(ctx context.Context, activeOnly bool) ([]models.Equipment, error)
	ListReservations(ctx context.Context, filter database.ReservationFilter) ([]models.Reservation, error)
	GetReservationByReference(ctx context.Context, reference string) (*models.Reservation, error)
}

// SheetsService keeps the spreadsheet in step with the store. Known
// reservations update their sheet row in place through rowCache; every
// other change queues a full resync.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	store         ReservationSource
	log           zerolog.Logger
	horizonDays   int
	refreshCh     chan struct{}

	cacheMu  sync.RWMutex
	rowCache map[int64]int // reservation id -> 1-based sheet row
}

// NewSheetsService authenticates with a service account key file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string, horizonDays int, store ReservationSource, logger *zerolog.Logger) (*SheetsService, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	jwt, err := goauth.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	if horizonDays <= 0 {
		horizonDays = 14
	}

	return &SheetsService{
		service:       service,
		spreadsheetID: spreadsheetID,
		store:         store,
		log:           logger.With().Str("component", "sheets").Logger(),
		horizonDays:   horizonDays,
		refreshCh:     make(chan struct{}, 1),
		rowCache:      make(map[int64]int),
	}, nil
}

// Run services queued refresh requests and, when interval is positive,
// runs a periodic full resync. Call it in its own goroutine.
func (s *SheetsService) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.refreshCh:
		case <-tick:
		}

		if err := s.Refresh(ctx); err != nil {
			s.log.Error().Err(err).Msg("sheets refresh failed")
		}
	}
}

// BindEvents keeps the mirror in step with reservation changes.
func (s *SheetsService) BindEvents(bus *events.Bus) {
	handler := func(e events.Event) error {
		// The bus delivers synchronously inside the request path;
		// spreadsheet IO happens off it.
		go s.applyEvent(e)
		return nil
	}
	bus.Subscribe(events.TopicReservationCreated, handler)
	bus.Subscribe(events.TopicReservationUpdated, handler)
}

// RequestRefresh queues a full resync without blocking; a pending
// request absorbs further ones.
func (s *SheetsService) RequestRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

func (s *SheetsService) applyEvent(e events.Event) {
	ref, _ := e.Payload["reference"].(string)
	if ref == "" {
		s.RequestRefresh()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r, err := s.store.GetReservationByReference(ctx, ref)
	if err != nil {
		s.RequestRefresh()
		return
	}

	if !r.Blocks() {
		// Dropped from the log on the next full sync.
		s.deleteCacheRow(r.ID)
		s.RequestRefresh()
		return
	}

	if err := s.UpsertReservation(ctx, r); err != nil {
		s.log.Warn().Err(err).Str("reference", ref).Msg("in-place update failed, scheduling refresh")
		s.RequestRefresh()
		return
	}

	// The schedule grid changed as well.
	s.RequestRefresh()
}

// Refresh rewrites both sheets from the store.
func (s *SheetsService) Refresh(ctx context.Context) error {
	if err := s.syncReservationLog(ctx); err != nil {
		return err
	}
	return s.syncSchedule(ctx)
}

// UpsertReservation writes one log row: in place when the row is
// cached, appended otherwise.
func (s *SheetsService) UpsertReservation(ctx context.Context, r *models.Reservation) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{reservationRowValues(r)}}

	if row, ok := s.getCachedRow(r.ID); ok {
		rangeA1 := fmt.Sprintf("%s!A%d", reservationsSheet, row)
		if _, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeA1, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update row %d: %w", row, err)
		}
		return nil
	}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, reservationsSheet+"!A1", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	if resp.Updates != nil {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(r.ID, row)
		}
	}
	return nil
}

func (s *SheetsService) syncReservationLog(ctx context.Context) error {
	reservations, err := s.store.ListReservations(ctx, database.ReservationFilter{})
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}
	active := s.filterActiveReservations(reservations)

	values := make([][]interface{}, 0, len(active)+1)
	values = append(values, reservationHeaders)

	s.ClearCache()
	for i, r := range active {
		values = append(values, reservationRowValues(&r))
		s.setCachedRow(r.ID, i+2) // row 1 is the header
	}

	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, reservationsSheet, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear log sheet: %w", err)
	}

	vr := &sheets.ValueRange{Values: values}
	if _, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, reservationsSheet+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write log sheet: %w", err)
	}

	s.log.Debug().Int("rows", len(active)).Msg("reservation log synced")
	return nil
}

func (s *SheetsService) syncSchedule(ctx context.Context) error {
	equipment, err := s.store.ListEquipment(ctx, true)
	if err != nil {
		return fmt.Errorf("list equipment: %w", err)
	}

	start := models.NormalizeDate(time.Now())
	end := start.AddDate(0, 0, s.horizonDays-1)

	reservations, err := s.store.ListReservations(ctx, database.ReservationFilter{
		DateFrom: &start,
		DateTo:   &end,
	})
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}
	active := s.filterActiveReservations(reservations)

	byCell := make(map[int64]map[string][]models.Reservation)
	for _, r := range active {
		day := r.Date.Format("2006-01-02")
		if byCell[r.EquipmentID] == nil {
			byCell[r.EquipmentID] = make(map[string][]models.Reservation)
		}
		byCell[r.EquipmentID][day] = append(byCell[r.EquipmentID][day], r)
	}

	headers, cols := s.prepareDateHeaders(start, end)
	values := [][]interface{}{headers}
	colors := make([][]*sheets.Color, 0, len(equipment))

	for _, eq := range equipment {
		row := make([]interface{}, 0, cols+1)
		row = append(row, eq.Name)
		rowColors := make([]*sheets.Color, 0, cols)

		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			val, color := s.formatScheduleCell(eq, byCell[eq.ID][d.Format("2006-01-02")])
			row = append(row, val)
			rowColors = append(rowColors, color)
		}

		values = append(values, row)
		colors = append(colors, rowColors)
	}

	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, scheduleSheet, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear schedule sheet: %w", err)
	}

	vr := &sheets.ValueRange{Values: values}
	if _, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, scheduleSheet+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write schedule sheet: %w", err)
	}

	if err := s.applyScheduleColors(ctx, colors); err != nil {
		s.log.Warn().Err(err).Msg("failed to color schedule cells")
	}

	s.log.Debug().Int("equipment", len(equipment)).Int("days", cols).Msg("schedule synced")
	return nil
}

func (s *SheetsService) applyScheduleColors(ctx context.Context, colors [][]*sheets.Color) error {
	if len(colors) == 0 {
		return nil
	}

	sheetID, err := s.sheetID(ctx, scheduleSheet)
	if err != nil {
		return err
	}

	rows := make([]*sheets.RowData, len(colors))
	for i, rowColors := range colors {
		cells := make([]*sheets.CellData, len(rowColors))
		for j, c := range rowColors {
			cells[j] = &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{BackgroundColor: c},
			}
		}
		rows[i] = &sheets.RowData{Values: cells}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			UpdateCells: &sheets.UpdateCellsRequest{
				Rows:   rows,
				Fields: "userEnteredFormat.backgroundColor",
				Start: &sheets.GridCoordinate{
					SheetId:     sheetID,
					RowIndex:    1, // below the header row
					ColumnIndex: 1, // right of the name column
				},
			},
		}},
	}

	_, err = s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (s *SheetsService) sheetID(ctx context.Context, title string) (int64, error) {
	sp, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range sp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %s not found", title)
}

// filterActiveReservations drops canceled and rejected entries from the
// mirror.
func (s *SheetsService) filterActiveReservations(reservations []models.Reservation) []models.Reservation {
	active := make([]models.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.Blocks() {
			active = append(active, r)
		}
	}
	return active
}

// prepareDateHeaders builds the schedule header row: the name column
// followed by one DD.MM column per day. Returns the day column count.
func (s *SheetsService) prepareDateHeaders(start, end time.Time) ([]interface{}, int) {
	headers := []interface{}{"Equipment"}
	cols := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		headers = append(headers, d.Format("02.01"))
		cols++
	}
	return headers, cols
}

// formatScheduleCell renders one equipment/date cell.
func (s *SheetsService) formatScheduleCell(_ models.Equipment, dayReservations []models.Reservation) (string, *sheets.Color) {
	if len(dayReservations) == 0 {
		return "free", colorFree
	}

	parts := make([]string, 0, len(dayReservations))
	for _, r := range dayReservations {
		label := r.UserName
		if label == "" {
			label = r.Reference
		}
		if r.HasSlot() {
			label = fmt.Sprintf("%s %s-%s", label, r.StartTime.Format("15:04"), r.EndTime.Format("15:04"))
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "\n"), colorBooked
}

func reservationRowValues(r *models.Reservation) []interface{} {
	start, end := "", ""
	if r.HasSlot() {
		start = r.StartTime.Format("15:04")
		end = r.EndTime.Format("15:04")
	}
	return []interface{}{
		r.ID,
		r.Reference,
		r.EquipmentID,
		r.UserID,
		r.UserName,
		string(r.UserType),
		r.Date.Format("2006-01-02"),
		start,
		end,
		string(r.Status),
		r.CreatedAt.Format("2006-01-02 15:04:05"),
		r.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// rowFromRange extracts the starting row from an A1 range like
// "Reservations!A5:L5".
func rowFromRange(a1 string) (int, bool) {
	if i := strings.IndexByte(a1, '!'); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.IndexByte(a1, ':'); i >= 0 {
		a1 = a1[:i]
	}
	digits := strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	if err != nil || row <= 0 {
		return 0, false
	}
	return row, true
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCacheRow(id int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}

// ClearCache drops the id-to-row mapping; the next full sync rebuilds it.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}
