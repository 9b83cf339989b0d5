// Package service orchestrates the decision engine against live data:
// it assembles policy snapshots, runs evaluations, persists accepted
// reservations and publishes change events.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gearbook/internal/calendar"
	"gearbook/internal/database"
	"gearbook/internal/engine"
	"gearbook/internal/events"
	"gearbook/internal/limits"
	"gearbook/internal/metrics"
	"gearbook/internal/models"
	"gearbook/internal/snapshot"
)

// Store is the persistence surface the reservation service needs.
type Store interface {
	GetEquipment(ctx context.Context, id int64) (*models.Equipment, error)
	ListEquipment(ctx context.Context, activeOnly bool) ([]models.Equipment, error)
	GetReservationsForEquipmentOnDate(ctx context.Context, equipmentID int64, date time.Time) ([]models.Reservation, error)
	GetUserQuotaCounts(ctx context.Context, userID int64) (borrowed, pending int, err error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservationByReference(ctx context.Context, reference string) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, reference string, to models.ReservationStatus) (*models.Reservation, error)
	ListReservations(ctx context.Context, filter database.ReservationFilter) ([]models.Reservation, error)
}

// SnapshotProvider yields the policy state for one evaluation.
type SnapshotProvider interface {
	Current(ctx context.Context) (*snapshot.Snapshot, error)
}

// Publisher pushes domain events to subscribers.
type Publisher interface {
	Publish(event events.Event)
}

// Request describes one candidate reservation from a client. StartTime
// and EndTime stay nil for date-only pickups. RequestID, when set,
// doubles as the idempotency key and the stored reference.
type Request struct {
	EquipmentID int64
	UserID      int64
	UserName    string
	UserType    models.UserType
	Date        time.Time
	StartTime   *time.Time
	EndTime     *time.Time
	Comment     string
	RequestID   string
}

// ValidationResult pairs the engine decision with the resolved limits
// and any advisory for the caller.
type ValidationResult struct {
	Decision engine.Decision       `json:"decision"`
	Limits   limits.UserTypeLimits `json:"limits"`
	Advisory string                `json:"advisory,omitempty"`
}

// ReservationService wires the engine to storage and events.
type ReservationService struct {
	store     Store
	snapshots SnapshotProvider
	engine    *engine.Engine
	bus       Publisher
	logger    *zerolog.Logger
}

func NewReservationService(store Store, snapshots SnapshotProvider, eng *engine.Engine, bus Publisher, logger *zerolog.Logger) *ReservationService {
	return &ReservationService{
		store:     store,
		snapshots: snapshots,
		engine:    eng,
		bus:       bus,
		logger:    logger,
	}
}

// Validate runs the full policy evaluation for a candidate request
// without persisting anything.
func (s *ReservationService) Validate(ctx context.Context, req Request) (ValidationResult, error) {
	started := time.Now()
	result, err := s.evaluate(ctx, req)
	if err != nil {
		return ValidationResult{}, err
	}
	metrics.ObserveEvaluateDuration(time.Since(started).Seconds())
	return result, nil
}

// Create evaluates the request and, when accepted, writes the
// reservation. The write re-checks the slot inside its transaction; a
// lost race comes back as a slot-unavailable decision computed on
// fresh data, never as an error.
func (s *ReservationService) Create(ctx context.Context, req Request) (*models.Reservation, engine.Decision, error) {
	result, err := s.Validate(ctx, req)
	if err != nil {
		return nil, engine.Decision{}, err
	}
	if !result.Decision.OK {
		return nil, result.Decision, nil
	}

	reference := req.RequestID
	if reference == "" {
		reference = uuid.New().String()
	}

	r := &models.Reservation{
		Reference:   reference,
		EquipmentID: req.EquipmentID,
		UserID:      req.UserID,
		UserName:    req.UserName,
		UserType:    req.UserType,
		Date:        models.NormalizeDate(req.Date),
		Status:      models.StatusPending,
		Comment:     req.Comment,
	}
	if req.StartTime != nil && req.EndTime != nil {
		r.StartTime = *req.StartTime
		r.EndTime = *req.EndTime
	}

	err = s.store.CreateReservation(ctx, r)
	switch {
	case errors.Is(err, database.ErrDuplicateRequest):
		existing, getErr := s.store.GetReservationByReference(ctx, reference)
		if getErr != nil {
			return nil, engine.Decision{}, fmt.Errorf("load duplicate reservation: %w", getErr)
		}
		s.logger.Info().Str("reference", reference).Msg("Duplicate request, returning stored reservation")
		return existing, engine.Accept(), nil
	case errors.Is(err, database.ErrSlotConflict):
		// Lost the race: a concurrent writer committed an overlapping
		// slot after we evaluated. Re-run the checks on fresh data so
		// the caller gets an accurate reason.
		fresh, evalErr := s.Validate(ctx, req)
		if evalErr == nil && !fresh.Decision.OK {
			return nil, fresh.Decision, nil
		}
		return nil, engine.Reject(engine.ReasonSlotUnavailable, "the requested time slot is no longer available", nil), nil
	case err != nil:
		return nil, engine.Decision{}, fmt.Errorf("create reservation: %w", err)
	}

	metrics.IncReservationCreated(string(r.Status))
	s.bus.Publish(events.Event{
		Topic: events.TopicReservationCreated,
		Payload: map[string]interface{}{
			"reference":    r.Reference,
			"equipment_id": r.EquipmentID,
			"date":         r.Date.Format("2006-01-02"),
		},
	})
	s.logger.Info().
		Str("reference", r.Reference).
		Int64("equipment_id", r.EquipmentID).
		Str("date", r.Date.Format("2006-01-02")).
		Msg("Reservation created")

	return r, result.Decision, nil
}

// AvailableSlots returns the day's slot grid for one equipment entry,
// or the decision that blocks the whole day.
func (s *ReservationService) AvailableSlots(ctx context.Context, equipmentID int64, date time.Time, userType models.UserType) (engine.SlotList, error) {
	if _, err := s.store.GetEquipment(ctx, equipmentID); err != nil {
		return engine.SlotList{}, err
	}

	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return engine.SlotList{}, fmt.Errorf("load policy snapshot: %w", err)
	}

	existing, err := s.store.GetReservationsForEquipmentOnDate(ctx, equipmentID, date)
	if err != nil {
		return engine.SlotList{}, fmt.Errorf("load reservations: %w", err)
	}

	lim := limits.Resolve(snap.Settings, userType)
	closed := calendar.NewRegistry(snap.ClosedDates)
	return s.engine.ListAvailableSlots(equipmentID, date, lim, closed, existing, snap.Settings), nil
}

// GetByReference returns one reservation by its public reference.
func (s *ReservationService) GetByReference(ctx context.Context, reference string) (*models.Reservation, error) {
	return s.store.GetReservationByReference(ctx, reference)
}

// UpdateStatus moves a reservation along its lifecycle and notifies
// subscribers.
func (s *ReservationService) UpdateStatus(ctx context.Context, reference string, to models.ReservationStatus) (*models.Reservation, error) {
	if !models.KnownStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", database.ErrInvalidTransition, to)
	}

	r, err := s.store.UpdateReservationStatus(ctx, reference, to)
	if err != nil {
		return nil, err
	}

	metrics.IncStatusChange(string(to))
	s.bus.Publish(events.Event{
		Topic: events.TopicReservationUpdated,
		Payload: map[string]interface{}{
			"reference": reference,
			"status":    string(to),
		},
	})
	s.logger.Info().Str("reference", reference).Str("status", string(to)).Msg("Reservation status updated")
	return r, nil
}

// ListEquipment returns the catalog.
func (s *ReservationService) ListEquipment(ctx context.Context, activeOnly bool) ([]models.Equipment, error) {
	return s.store.ListEquipment(ctx, activeOnly)
}

// ListReservations returns reservations matching the filter.
func (s *ReservationService) ListReservations(ctx context.Context, filter database.ReservationFilter) ([]models.Reservation, error) {
	return s.store.ListReservations(ctx, filter)
}

func (s *ReservationService) evaluate(ctx context.Context, req Request) (ValidationResult, error) {
	eq, err := s.store.GetEquipment(ctx, req.EquipmentID)
	if err != nil {
		return ValidationResult{}, err
	}
	if !eq.IsActive {
		return ValidationResult{}, database.ErrEquipmentInactive
	}

	snap, err := s.snapshots.Current(ctx)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("load policy snapshot: %w", err)
	}

	borrowed, pending, err := s.store.GetUserQuotaCounts(ctx, req.UserID)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("load quota counts: %w", err)
	}

	existing, err := s.store.GetReservationsForEquipmentOnDate(ctx, req.EquipmentID, req.Date)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("load reservations: %w", err)
	}

	lim := limits.Resolve(snap.Settings, req.UserType)
	decision := s.engine.Evaluate(engine.Request{
		EquipmentID: req.EquipmentID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		UserType:    req.UserType,
		Quota: models.QuotaSnapshot{
			MaxItems:             lim.MaxItems,
			CurrentBorrowedCount: borrowed,
			PendingRequestsCount: pending,
		},
	}, lim, calendar.NewRegistry(snap.ClosedDates), existing)

	outcome := "accepted"
	if !decision.OK {
		outcome = string(decision.ReasonCode)
	}
	metrics.IncDecision(outcome)

	s.logger.Debug().
		Int64("equipment_id", req.EquipmentID).
		Str("user_type", string(req.UserType)).
		Str("date", req.Date.Format("2006-01-02")).
		Str("outcome", outcome).
		Msg("Reservation evaluated")

	result := ValidationResult{Decision: decision, Limits: lim}
	if lim.NeedsTypeAdvisory() {
		result.Advisory = "set your profile type to get limits tailored to it"
	}
	return result, nil
}
