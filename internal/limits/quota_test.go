package limits

import (
	"testing"

	"gearbook/internal/models"
)

func TestComputeQuota(t *testing.T) {
	tests := []struct {
		name          string
		snapshot      models.QuotaSnapshot
		wantRemaining int
		wantCanBorrow bool
	}{
		{
			name:          "nothing borrowed",
			snapshot:      models.QuotaSnapshot{MaxItems: 3},
			wantRemaining: 3,
			wantCanBorrow: true,
		},
		{
			name:          "one left",
			snapshot:      models.QuotaSnapshot{MaxItems: 3, CurrentBorrowedCount: 1, PendingRequestsCount: 1},
			wantRemaining: 1,
			wantCanBorrow: true,
		},
		{
			name:          "exactly at limit",
			snapshot:      models.QuotaSnapshot{MaxItems: 3, CurrentBorrowedCount: 2, PendingRequestsCount: 1},
			wantRemaining: 0,
			wantCanBorrow: false,
		},
		{
			name:          "over limit clamps to zero",
			snapshot:      models.QuotaSnapshot{MaxItems: 2, CurrentBorrowedCount: 3, PendingRequestsCount: 2},
			wantRemaining: 0,
			wantCanBorrow: false,
		},
		{
			name:          "pending alone consumes quota",
			snapshot:      models.QuotaSnapshot{MaxItems: 1, PendingRequestsCount: 1},
			wantRemaining: 0,
			wantCanBorrow: false,
		},
		{
			name:          "zero max items",
			snapshot:      models.QuotaSnapshot{MaxItems: 0},
			wantRemaining: 0,
			wantCanBorrow: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ComputeQuota(tt.snapshot)
			if q.RemainingQuota != tt.wantRemaining {
				t.Errorf("RemainingQuota = %d, want %d", q.RemainingQuota, tt.wantRemaining)
			}
			if q.CanBorrow != tt.wantCanBorrow {
				t.Errorf("CanBorrow = %v, want %v", q.CanBorrow, tt.wantCanBorrow)
			}
			if q.RemainingQuota < 0 {
				t.Errorf("RemainingQuota must never be negative, got %d", q.RemainingQuota)
			}
		})
	}
}
