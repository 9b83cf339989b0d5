package models

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusApproved  ReservationStatus = "approved"
	StatusRejected  ReservationStatus = "rejected"
	StatusCanceled  ReservationStatus = "canceled"
	StatusCompleted ReservationStatus = "completed"
)

// statusTransitions lists the allowed lifecycle moves. Rejected, canceled
// and completed are terminal.
var statusTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusApproved, StatusRejected, StatusCanceled},
	StatusApproved:  {StatusCompleted, StatusCanceled},
	StatusRejected:  {},
	StatusCanceled:  {},
	StatusCompleted: {},
}

// KnownStatus reports whether s is one of the defined statuses.
func KnownStatus(s ReservationStatus) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition checks if a status change is allowed.
func CanTransition(from, to ReservationStatus) bool {
	allowed, ok := statusTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Reservation represents one equipment booking record.
type Reservation struct {
	ID          int64             `json:"id"`
	Reference   string            `json:"reference"`
	EquipmentID int64             `json:"equipment_id"`
	UserID      int64             `json:"user_id"`
	UserName    string            `json:"user_name,omitempty"`
	UserType    UserType          `json:"user_type,omitempty"`
	Date        time.Time         `json:"date"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time"`
	Status      ReservationStatus `json:"status"`
	Comment     string            `json:"comment,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Blocks reports whether the reservation still occupies its slot.
// Canceled and rejected reservations release it.
func (r *Reservation) Blocks() bool {
	return r.Status != StatusCanceled && r.Status != StatusRejected
}

// HasSlot reports whether the reservation carries a concrete time slot.
// Date-only reservations hold the pickup day without blocking any slot.
func (r *Reservation) HasSlot() bool {
	return !r.StartTime.IsZero() && !r.EndTime.IsZero()
}
