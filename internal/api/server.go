// Package api exposes the reservation engine over HTTP. Handlers are
// thin: they parse and validate the wire format, call the service layer
// and translate store errors to status codes. Policy outcomes travel as
// Decision payloads, never as HTTP errors.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"gearbook/internal/database"
	"gearbook/internal/engine"
	"gearbook/internal/models"
	"gearbook/internal/service"
)

// ReservationAPI is the slice of the reservation service the handlers use.
type ReservationAPI interface {
	Validate(ctx context.Context, req service.Request) (service.ValidationResult, error)
	Create(ctx context.Context, req service.Request) (*models.Reservation, engine.Decision, error)
	AvailableSlots(ctx context.Context, equipmentID int64, date time.Time, userType models.UserType) (engine.SlotList, error)
	GetByReference(ctx context.Context, reference string) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, reference string, to models.ReservationStatus) (*models.Reservation, error)
	ListEquipment(ctx context.Context, activeOnly bool) ([]models.Equipment, error)
	ListReservations(ctx context.Context, filter database.ReservationFilter) ([]models.Reservation, error)
}

// AdminAPI is the slice of the admin service the handlers use.
type AdminAPI interface {
	Settings(ctx context.Context) (models.Settings, error)
	UpdateSettings(ctx context.Context, s models.Settings) error
	ClosedDates(ctx context.Context) ([]models.ClosedDate, error)
	AddClosedDate(ctx context.Context, date time.Time, reason string, recurring bool) (*models.ClosedDate, error)
	RemoveClosedDate(ctx context.Context, id int64) error
}

// Options carries the listener and middleware settings from config.
type Options struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server is the HTTP front of the reservation system.
type Server struct {
	router       *mux.Router
	server       *http.Server
	log          zerolog.Logger
	reservations ReservationAPI
	admin        AdminAPI
	limiter      *ipRateLimiter
}

// NewServer builds the router, middleware chain and handlers.
func NewServer(reservations ReservationAPI, admin AdminAPI, logger *zerolog.Logger, opts Options) *Server {
	s := &Server{
		log:          logger.With().Str("component", "api").Logger(),
		reservations: reservations,
		admin:        admin,
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}

	s.router = s.routes()
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.withRequestID, s.withLogging, s.withRateLimit)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/reservations/validate", s.handleValidateReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations", s.handleCreateReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations", s.handleListReservations).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{ref}", s.handleGetReservation).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{ref}/status", s.handleUpdateReservationStatus).Methods(http.MethodPatch)

	api.HandleFunc("/equipment", s.handleListEquipment).Methods(http.MethodGet)
	api.HandleFunc("/equipment/{id}/slots", s.handleEquipmentSlots).Methods(http.MethodGet)

	api.HandleFunc("/closed-dates", s.handleListClosedDates).Methods(http.MethodGet)
	api.HandleFunc("/closed-dates", s.handleAddClosedDate).Methods(http.MethodPost)
	api.HandleFunc("/closed-dates/{id}", s.handleRemoveClosedDate).Methods(http.MethodDelete)

	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods(http.MethodPut)

	return r
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
