package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"gearbook/internal/database"
	"gearbook/internal/metrics"
	"gearbook/internal/models"
)

// handleGetSettings returns the current admin settings snapshot.
// GET /api/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("settings", r.Method)

	settings, err := s.admin.Settings(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "get settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings replaces the admin settings snapshot. Consumers
// pick the change up through the settings.updated event.
// PUT /api/settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("settings", r.Method)

	var settings models.Settings
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.admin.UpdateSettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ClosedDateRequest is the request body for POST /api/closed-dates.
type ClosedDateRequest struct {
	Date      string `json:"date"` // Format: YYYY-MM-DD
	Reason    string `json:"reason,omitempty"`
	Recurring bool   `json:"recurring,omitempty"` // Repeats every year
}

// handleListClosedDates returns the closed-date calendar.
// GET /api/closed-dates
func (s *Server) handleListClosedDates(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("closed_dates", r.Method)

	dates, err := s.admin.ClosedDates(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "list closed dates")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"closed_dates": dates})
}

// handleAddClosedDate adds or updates a closed date.
// POST /api/closed-dates
func (s *Server) handleAddClosedDate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("closed_dates", r.Method)

	var req ClosedDateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	cd, err := s.admin.AddClosedDate(r.Context(), date, req.Reason, req.Recurring)
	if err != nil {
		s.writeStoreError(w, r, err, "add closed date")
		return
	}

	writeJSON(w, http.StatusCreated, cd)
}

// handleRemoveClosedDate deletes a closed date by id.
// DELETE /api/closed-dates/{id}
func (s *Server) handleRemoveClosedDate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("closed_dates", r.Method)

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid closed date id")
		return
	}

	if err := s.admin.RemoveClosedDate(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "closed date not found")
			return
		}
		s.writeStoreError(w, r, err, "remove closed date")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
