package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"gearbook/internal/database"
	"gearbook/internal/metrics"
	"gearbook/internal/models"
)

// handleListEquipment returns the equipment catalog.
// GET /api/equipment?include_inactive=true
func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("equipment", r.Method)

	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	equipment, err := s.reservations.ListEquipment(r.Context(), !includeInactive)
	if err != nil {
		s.writeStoreError(w, r, err, "list equipment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"equipment": equipment})
}

// handleEquipmentSlots returns the 30-minute grid for one piece of
// equipment on one date. Blocked dates answer 200 with an empty grid
// and the blocking decision.
// GET /api/equipment/{id}/slots?date=YYYY-MM-DD&user_type=student
func (s *Server) handleEquipmentSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("equipment_slots", r.Method)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid equipment id")
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	userType := models.UserType(r.URL.Query().Get("user_type"))

	list, err := s.reservations.AvailableSlots(r.Context(), id, date, userType)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "equipment not found")
			return
		}
		s.writeStoreError(w, r, err, "list slots")
		return
	}

	writeJSON(w, http.StatusOK, list)
}
