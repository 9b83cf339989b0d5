package limits

import "gearbook/internal/models"

// Quota is the computed borrowing headroom for one evaluation.
type Quota struct {
	RemainingQuota int  `json:"remaining_quota"`
	CanBorrow      bool `json:"can_borrow"`
}

// ComputeQuota derives remaining quota from a snapshot of borrowed and
// pending counts. Remaining is clamped at zero: administrative
// overrides can push counts past MaxItems and that must not produce a
// negative remainder.
func ComputeQuota(snapshot models.QuotaSnapshot) Quota {
	remaining := snapshot.MaxItems - snapshot.CurrentBorrowedCount - snapshot.PendingRequestsCount
	if remaining < 0 {
		remaining = 0
	}
	return Quota{
		RemainingQuota: remaining,
		CanBorrow:      remaining > 0,
	}
}
