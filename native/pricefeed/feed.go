// Package pricefeed holds the two price sources valuations are read from: an
// index feed keyed by numeric id and a pair feed keyed by a pair name whose
// value is the median of its submissions.
package pricefeed

import (
	"fmt"
	"sort"
	"strings"

	"yieldplus/native/asset"
	"yieldplus/native/common"
)

type feedState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Quote is a price with its decimal precision.
type Quote struct {
	Price     uint64
	Precision uint8
	UpdatedAt uint64
}

// Normalized expresses the quote in asset.PricePrecision decimals.
func (q Quote) Normalized() (uint64, error) {
	return asset.NormalizePrice(q.Price, q.Precision)
}

// IndexRow is one entry of the index feed.
type IndexRow struct {
	ID        uint64
	Base      string
	Quote     string
	Price     uint64
	Precision uint8
	UpdatedAt uint64
}

// PairRow is one pair of the pair feed. Median is recomputed from Points on
// every submission.
type PairRow struct {
	PairID    string
	Base      string
	Quote     string
	Precision uint8
	Points    []uint64
	Median    uint64
	UpdatedAt uint64
}

const maxPairPoints = 21

// Feeds stores both feeds in state. Only the operator account may write.
type Feeds struct {
	st       feedState
	operator string
	clock    common.Clock
}

func NewFeeds(st feedState, operator string, clock common.Clock) *Feeds {
	return &Feeds{st: st, operator: operator, clock: clock}
}

func indexKey(id uint64) []byte { return []byte(fmt.Sprintf("pricefeed/index/%d", id)) }
func pairKey(id string) []byte  { return []byte("pricefeed/pair/" + id) }

// SetIndexPrice writes an index feed row.
func (f *Feeds) SetIndexPrice(signers common.Signers, row IndexRow) error {
	if err := common.RequireAuth(signers, f.operator); err != nil {
		return err
	}
	if row.ID == 0 {
		return common.Invalid("index feed id must be positive")
	}
	row.Quote = strings.ToUpper(strings.TrimSpace(row.Quote))
	row.Base = strings.ToUpper(strings.TrimSpace(row.Base))
	if row.Quote == "" || row.Base == "" {
		return common.Invalid("index feed %d requires base and quote", row.ID)
	}
	if row.Precision > asset.MaxPrecision {
		return common.Invalid("index feed %d precision %d too large", row.ID, row.Precision)
	}
	row.UpdatedAt = f.now()
	return f.st.KVPut(indexKey(row.ID), row)
}

// SubmitPairPrice records a datapoint for a pair and refreshes its median.
func (f *Feeds) SubmitPairPrice(signers common.Signers, pairID, base, quote string, precision uint8, price uint64) error {
	if err := common.RequireAuth(signers, f.operator); err != nil {
		return err
	}
	pairID = strings.TrimSpace(pairID)
	if pairID == "" {
		return common.Invalid("pair id required")
	}
	if price == 0 {
		return common.Invalid("pair %s price must be positive", pairID)
	}
	if precision > asset.MaxPrecision {
		return common.Invalid("pair %s precision %d too large", pairID, precision)
	}
	var row PairRow
	ok, err := f.st.KVGet(pairKey(pairID), &row)
	if err != nil {
		return err
	}
	if !ok || row.Precision != precision {
		row = PairRow{PairID: pairID, Precision: precision}
	}
	row.Base = strings.ToUpper(strings.TrimSpace(base))
	row.Quote = strings.ToUpper(strings.TrimSpace(quote))
	row.Points = append(row.Points, price)
	if len(row.Points) > maxPairPoints {
		row.Points = row.Points[len(row.Points)-maxPairPoints:]
	}
	row.Median = median(row.Points)
	row.UpdatedAt = f.now()
	return f.st.KVPut(pairKey(pairID), row)
}

// Price returns the index feed quote for id, which must be quoted in quote.
func (f *Feeds) Price(id uint64, quote string) (Quote, error) {
	row, ok, err := f.Index(id)
	if err != nil {
		return Quote{}, err
	}
	if !ok {
		return Quote{}, common.Missing("index feed", fmt.Sprint(id))
	}
	if !strings.EqualFold(row.Quote, quote) {
		return Quote{}, common.Invalid("index feed %d quotes %s, not %s", id, row.Quote, quote)
	}
	if row.Price == 0 {
		return Quote{}, common.Invalid("index feed %d is empty", id)
	}
	return Quote{Price: row.Price, Precision: row.Precision, UpdatedAt: row.UpdatedAt}, nil
}

// PriceByPair returns the median of the pair feed.
func (f *Feeds) PriceByPair(pairID string) (Quote, error) {
	row, ok, err := f.Pair(pairID)
	if err != nil {
		return Quote{}, err
	}
	if !ok {
		return Quote{}, common.Missing("pair feed", pairID)
	}
	if row.Median == 0 {
		return Quote{}, common.Invalid("pair feed %s is empty", pairID)
	}
	return Quote{Price: row.Median, Precision: row.Precision, UpdatedAt: row.UpdatedAt}, nil
}

// Index returns the raw index row.
func (f *Feeds) Index(id uint64) (IndexRow, bool, error) {
	var row IndexRow
	ok, err := f.st.KVGet(indexKey(id), &row)
	return row, ok, err
}

// Pair returns the raw pair row.
func (f *Feeds) Pair(pairID string) (PairRow, bool, error) {
	var row PairRow
	ok, err := f.st.KVGet(pairKey(pairID), &row)
	return row, ok, err
}

func (f *Feeds) now() uint64 {
	if f.clock == nil {
		return 0
	}
	return f.clock.Now()
}

func median(points []uint64) uint64 {
	if len(points) == 0 {
		return 0
	}
	sorted := append([]uint64(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1]/2 + sorted[mid]/2 + (sorted[mid-1]%2+sorted[mid]%2)/2
}
