package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"gearbook/internal/database"
	"gearbook/internal/engine"
	"gearbook/internal/metrics"
	"gearbook/internal/models"
	"gearbook/internal/service"
)

// ReservationRequest is the request body for POST /api/reservations and
// POST /api/reservations/validate.
type ReservationRequest struct {
	EquipmentID int64  `json:"equipment_id"`
	UserID      int64  `json:"user_id"`
	UserName    string `json:"user_name,omitempty"`
	UserType    string `json:"user_type,omitempty"`  // "teacher", "staff", "student"
	Date        string `json:"date"`                 // Format: YYYY-MM-DD
	StartTime   string `json:"start_time,omitempty"` // Format: HH:MM (optional)
	EndTime     string `json:"end_time,omitempty"`   // Format: HH:MM (optional)
	Comment     string `json:"comment,omitempty"`
	RequestID   string `json:"request_id,omitempty"` // Idempotency key
}

// CreateReservationResponse is the response for POST /api/reservations.
type CreateReservationResponse struct {
	Decision    engine.Decision     `json:"decision"`
	Reservation *models.Reservation `json:"reservation,omitempty"`
}

// handleValidateReservation runs the full decision chain without writing
// anything. Policy outcomes come back as a 200 payload.
// POST /api/reservations/validate
func (s *Server) handleValidateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("validate_reservation", r.Method)

	req, ok := s.decodeReservationRequest(w, r)
	if !ok {
		return
	}

	result, err := s.reservations.Validate(r.Context(), req)
	if err != nil {
		s.writeStoreError(w, r, err, "validate reservation")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCreateReservation evaluates and, when accepted, performs the
// atomic conditional write. A rejected request still answers 200 with
// the decision; only transport and store faults become HTTP errors.
// POST /api/reservations
func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_reservation", r.Method)

	req, ok := s.decodeReservationRequest(w, r)
	if !ok {
		return
	}

	reservation, decision, err := s.reservations.Create(r.Context(), req)
	if err != nil {
		s.writeStoreError(w, r, err, "create reservation")
		return
	}

	status := http.StatusOK
	if decision.OK && reservation != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, CreateReservationResponse{
		Decision:    decision,
		Reservation: reservation,
	})
}

// handleGetReservation looks a reservation up by its reference.
// GET /api/reservations/{ref}
func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_reservation", r.Method)

	ref := mux.Vars(r)["ref"]
	reservation, err := s.reservations.GetByReference(r.Context(), ref)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "reservation not found")
			return
		}
		s.writeStoreError(w, r, err, "get reservation")
		return
	}

	writeJSON(w, http.StatusOK, reservation)
}

// StatusUpdateRequest is the request body for PATCH /api/reservations/{ref}/status.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// handleUpdateReservationStatus moves a reservation through its lifecycle.
// PATCH /api/reservations/{ref}/status
func (s *Server) handleUpdateReservationStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_reservation_status", r.Method)

	var req StatusUpdateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	ref := mux.Vars(r)["ref"]
	reservation, err := s.reservations.UpdateStatus(r.Context(), ref, models.ReservationStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			writeError(w, http.StatusNotFound, "reservation not found")
		case errors.Is(err, database.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeStoreError(w, r, err, "update reservation status")
		}
		return
	}

	writeJSON(w, http.StatusOK, reservation)
}

// handleListReservations returns reservations matching the query filters.
// GET /api/reservations?status=&equipment_id=&user_id=&from=&to=&limit=&offset=
func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_reservations", r.Method)

	filter, err := parseReservationFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservations, err := s.reservations.ListReservations(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err, "list reservations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": reservations})
}

func parseReservationFilter(r *http.Request) (database.ReservationFilter, error) {
	q := r.URL.Query()
	filter := database.ReservationFilter{
		Status: models.ReservationStatus(q.Get("status")),
	}

	if v := q.Get("equipment_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid equipment_id")
		}
		filter.EquipmentID = id
	}
	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid user_id")
		}
		filter.UserID = id
	}
	if v := q.Get("from"); v != "" {
		from, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid from date; expected YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid to date; expected YYYY-MM-DD")
		}
		filter.DateTo = &to
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid limit")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid offset")
		}
		filter.Offset = n
	}
	return filter, nil
}

// decodeReservationRequest parses and validates the shared request body.
// On failure it has already written the 400 response.
func (s *Server) decodeReservationRequest(w http.ResponseWriter, r *http.Request) (service.Request, bool) {
	var body ReservationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return service.Request{}, false
	}

	req, err := body.toServiceRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return service.Request{}, false
	}
	return req, true
}

func (b *ReservationRequest) toServiceRequest() (service.Request, error) {
	if b.EquipmentID <= 0 {
		return service.Request{}, fmt.Errorf("equipment_id is required")
	}
	if b.UserID <= 0 {
		return service.Request{}, fmt.Errorf("user_id is required")
	}
	if b.Date == "" {
		return service.Request{}, fmt.Errorf("date is required")
	}

	date, err := time.ParseInLocation("2006-01-02", b.Date, time.Local)
	if err != nil {
		return service.Request{}, fmt.Errorf("invalid date format; expected YYYY-MM-DD")
	}

	req := service.Request{
		EquipmentID: b.EquipmentID,
		UserID:      b.UserID,
		UserName:    b.UserName,
		UserType:    models.UserType(b.UserType),
		Date:        date,
		Comment:     b.Comment,
		RequestID:   b.RequestID,
	}

	if b.StartTime != "" {
		start, err := combineDateTime(date, b.StartTime)
		if err != nil {
			return service.Request{}, fmt.Errorf("invalid start_time format; expected HH:MM")
		}
		req.StartTime = &start
	}
	if b.EndTime != "" {
		end, err := combineDateTime(date, b.EndTime)
		if err != nil {
			return service.Request{}, fmt.Errorf("invalid end_time format; expected HH:MM")
		}
		req.EndTime = &end
	}
	return req, nil
}

func combineDateTime(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// writeStoreError maps non-policy failures to HTTP status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "equipment not found")
	case errors.Is(err, database.ErrEquipmentInactive):
		writeError(w, http.StatusConflict, "equipment is not active")
	default:
		s.log.Error().Err(err).
			Str("path", r.URL.Path).
			Msgf("failed to %s", action)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
