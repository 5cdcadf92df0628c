package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaActionsExceeded = errors.New("quota actions exceeded")
	ErrQuotaRowsExceeded    = errors.New("quota rows exceeded")
	ErrQuotaCounterOverflow = errors.New("quota counter overflow")
)

// QuotaNow captures the current usage counters for a signer.
type QuotaNow struct {
	Actions uint32
	Rows    uint64
	EpochID uint64
}

// Quota defines the per-signer limits applied within one ledger epoch. Zero
// disables a limit.
type Quota struct {
	MaxActionsPerEpoch uint32
	MaxRowsPerEpoch    uint64
	EpochSeconds       uint64
}

// Epoch maps a ledger timestamp onto the quota epoch it falls into.
func (q Quota) Epoch(now uint64) uint64 {
	if q.EpochSeconds == 0 {
		return 0
	}
	return now / q.EpochSeconds
}

// CheckQuota verifies whether the additional actions and rows fit within the
// configured quota. The returned QuotaNow reflects the updated counters when the
// quota is not exceeded.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addActions uint32, addRows uint64) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addActions > 0 {
		if next.Actions > math.MaxUint32-addActions {
			return prev, ErrQuotaCounterOverflow
		}
		next.Actions += addActions
	}
	if q.MaxActionsPerEpoch > 0 && next.Actions > q.MaxActionsPerEpoch {
		return prev, ErrQuotaActionsExceeded
	}

	if addRows > 0 {
		if next.Rows > math.MaxUint64-addRows {
			return prev, ErrQuotaCounterOverflow
		}
		next.Rows += addRows
	}
	if q.MaxRowsPerEpoch > 0 && next.Rows > q.MaxRowsPerEpoch {
		return prev, ErrQuotaRowsExceeded
	}

	return next, nil
}
