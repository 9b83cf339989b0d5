package models

import "time"

// Equipment is one bookable catalog item.
type Equipment struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QuotaSnapshot captures a user's borrowing counts at evaluation time.
// It is rebuilt for every evaluation and never cached across calls.
type QuotaSnapshot struct {
	MaxItems             int `json:"max_items"`
	CurrentBorrowedCount int `json:"current_borrowed_count"`
	PendingRequestsCount int `json:"pending_requests_count"`
}
