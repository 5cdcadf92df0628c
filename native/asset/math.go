package asset

import (
	"fmt"

	"github.com/holiman/uint256"

	"yieldplus/native/common"
)

const (
	// SecondsPerYear is the accrual year: 365 days.
	SecondsPerYear uint64 = 365 * 24 * 60 * 60
	// BasisPoints is the denominator of annual rates.
	BasisPoints uint64 = 10_000
	// MaxAnnualRate caps the configurable annual rate at 10%.
	MaxAnnualRate uint64 = 1_000
	// PricePrecision is the number of decimals every normalised price and
	// USD valuation carries.
	PricePrecision uint8 = 4
)

var accrualDenominator = new(uint256.Int).Mul(uint256.NewInt(SecondsPerYear), uint256.NewInt(BasisPoints))

// AccrueReward computes floor(tvl × rate × elapsed / (SecondsPerYear × 10000))
// in 256-bit intermediates. Results above MaxAmount are an overflow.
func AccrueReward(tvl, rateBps, elapsed uint64) (uint64, error) {
	product := new(uint256.Int).Mul(uint256.NewInt(tvl), uint256.NewInt(rateBps))
	return narrow(mulDiv(product, uint256.NewInt(elapsed), accrualDenominator), "reward")
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Rescale converts an amount between decimal precisions, truncating when
// precision is reduced.
func Rescale(amount uint64, from, to uint8) (uint64, error) {
	if from == to {
		return amount, nil
	}
	return MulDiv(amount, Pow10(to), Pow10(from))
}

// NormalizePrice expresses a feed price quoted with the given precision in
// PricePrecision decimals.
func NormalizePrice(price uint64, precision uint8) (uint64, error) {
	return Rescale(price, precision, PricePrecision)
}

// MulDiv returns floor(a × b / d) without intermediate overflow.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("%w: division by zero", common.ErrOverflow)
	}
	return narrow(mulDiv(uint256.NewInt(a), uint256.NewInt(b), uint256.NewInt(d)), "muldiv")
}

// Pow10 returns 10^n for the precisions symbols can carry.
func Pow10(n uint8) uint64 {
	v := uint64(1)
	for i := uint8(0); i < n; i++ {
		v *= 10
	}
	return v
}

func mulDiv(a, b, d *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, d)
	if overflow {
		return nil
	}
	return z
}

func narrow(v *uint256.Int, what string) (uint64, error) {
	if v == nil || !v.IsUint64() || v.Uint64() > MaxAmount {
		return 0, fmt.Errorf("%w: %s exceeds %d", common.ErrOverflow, what, MaxAmount)
	}
	return v.Uint64(), nil
}
