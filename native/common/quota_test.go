package common

import (
	"errors"
	"math"
	"testing"
)

func TestCheckQuotaActionLimit(t *testing.T) {
	q := Quota{MaxActionsPerEpoch: 10}
	prev := QuotaNow{EpochID: 1}

	next, err := CheckQuota(q, 1, prev, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Actions != 10 {
		t.Fatalf("unexpected action count: %d", next.Actions)
	}

	denied, err := CheckQuota(q, 1, next, 1, 0)
	if !errors.Is(err, ErrQuotaActionsExceeded) {
		t.Fatalf("expected ErrQuotaActionsExceeded, got %v", err)
	}
	if denied != next {
		t.Fatalf("expected counters to remain unchanged on denial")
	}

	rollover, err := CheckQuota(q, 2, next, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error after epoch rollover: %v", err)
	}
	if rollover.EpochID != 2 || rollover.Actions != 1 {
		t.Fatalf("unexpected state after rollover: %+v", rollover)
	}
}

func TestCheckQuotaRows(t *testing.T) {
	q := Quota{MaxRowsPerEpoch: 40}
	prev := QuotaNow{EpochID: 5}

	next, err := CheckQuota(q, 5, prev, 1, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Rows != 40 {
		t.Fatalf("unexpected rows: %d", next.Rows)
	}

	if _, err := CheckQuota(q, 5, next, 0, 1); !errors.Is(err, ErrQuotaRowsExceeded) {
		t.Fatalf("expected ErrQuotaRowsExceeded, got %v", err)
	}
}

func TestCheckQuotaOverflow(t *testing.T) {
	prev := QuotaNow{Rows: math.MaxUint64}
	if _, err := CheckQuota(Quota{}, 0, prev, 0, 1); !errors.Is(err, ErrQuotaCounterOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestQuotaEpoch(t *testing.T) {
	q := Quota{EpochSeconds: 600}
	if got := q.Epoch(1_199); got != 1 {
		t.Fatalf("unexpected epoch: %d", got)
	}
	if got := (Quota{}).Epoch(1_199); got != 0 {
		t.Fatalf("disabled epoch should be zero, got %d", got)
	}
}
