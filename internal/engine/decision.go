// Package engine evaluates candidate reservations against every
// booking policy and produces a single accept or reject decision.
package engine

// ReasonCode identifies why a candidate reservation was rejected.
type ReasonCode string

const (
	ReasonPastDate              ReasonCode = "PAST_DATE"
	ReasonClosedDate            ReasonCode = "CLOSED_DATE"
	ReasonAdvanceWindowExceeded ReasonCode = "ADVANCE_WINDOW_EXCEEDED"
	ReasonInvalidDuration       ReasonCode = "INVALID_DURATION"
	ReasonSlotUnavailable       ReasonCode = "SLOT_UNAVAILABLE"
	ReasonQuotaExceeded         ReasonCode = "QUOTA_EXCEEDED"
)

// Decision is the engine's sole output: accept, or reject with a coded
// reason. Policy violations are expected outcomes carried here rather
// than Go errors, and a produced Decision is never modified.
type Decision struct {
	OK         bool                   `json:"ok"`
	ReasonCode ReasonCode             `json:"reason_code,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Accept returns the accepting decision.
func Accept() Decision {
	return Decision{OK: true}
}

// Reject builds a rejecting decision with the given reason code.
func Reject(code ReasonCode, message string, details map[string]interface{}) Decision {
	return Decision{ReasonCode: code, Message: message, Details: details}
}
