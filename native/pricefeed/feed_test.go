package pricefeed

import (
	"testing"

	"github.com/stretchr/testify/require"

	"yieldplus/core/state"
	"yieldplus/native/common"
	"yieldplus/storage"
)

const operator = "feeds"

func newFeeds(t *testing.T) (*Feeds, *common.ManualClock) {
	t.Helper()
	clock := common.NewManualClock(1_000)
	return NewFeeds(state.NewManager(storage.NewMemDB()), operator, clock), clock
}

func TestIndexFeed(t *testing.T) {
	f, _ := newFeeds(t)
	signers := common.NewSigners(operator)

	require.ErrorIs(t, f.SetIndexPrice(common.NewSigners("mallory"), IndexRow{ID: 1}), common.ErrUnauthorized)
	require.ErrorIs(t, f.SetIndexPrice(signers, IndexRow{ID: 0, Base: "EOS", Quote: "USD"}), common.ErrValidation)
	require.NoError(t, f.SetIndexPrice(signers, IndexRow{ID: 1, Base: "eos", Quote: "usd", Price: 1_234_567, Precision: 6}))

	q, err := f.Price(1, "USD")
	require.NoError(t, err)
	require.Equal(t, uint64(1_234_567), q.Price)
	require.Equal(t, uint64(1_000), q.UpdatedAt)
	norm, err := q.Normalized()
	require.NoError(t, err)
	require.Equal(t, uint64(12_345), norm)

	_, err = f.Price(1, "EUR")
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = f.Price(2, "USD")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestPairFeedMedian(t *testing.T) {
	f, clock := newFeeds(t)
	signers := common.NewSigners(operator)

	_, err := f.PriceByPair("eosusd")
	require.ErrorIs(t, err, common.ErrNotFound)

	for _, p := range []uint64{12_000, 13_000, 11_000} {
		require.NoError(t, f.SubmitPairPrice(signers, "eosusd", "EOS", "USD", 4, p))
	}
	q, err := f.PriceByPair("eosusd")
	require.NoError(t, err)
	require.Equal(t, uint64(12_000), q.Price)

	clock.Advance(60)
	require.NoError(t, f.SubmitPairPrice(signers, "eosusd", "EOS", "USD", 4, 14_000))
	q, err = f.PriceByPair("eosusd")
	require.NoError(t, err)
	require.Equal(t, uint64(12_500), q.Price)
	require.Equal(t, uint64(1_060), q.UpdatedAt)

	// a precision change restarts the series
	require.NoError(t, f.SubmitPairPrice(signers, "eosusd", "EOS", "USD", 2, 99))
	row, ok, err := f.Pair("eosusd")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []uint64{99}, row.Points)

	require.ErrorIs(t, f.SubmitPairPrice(signers, "eosusd", "EOS", "USD", 4, 0), common.ErrValidation)
}

func TestPairFeedKeepsRecentPoints(t *testing.T) {
	f, _ := newFeeds(t)
	signers := common.NewSigners(operator)
	for i := uint64(1); i <= maxPairPoints+5; i++ {
		require.NoError(t, f.SubmitPairPrice(signers, "p", "A", "USD", 0, i))
	}
	row, _, err := f.Pair("p")
	require.NoError(t, err)
	require.Len(t, row.Points, maxPairPoints)
	require.Equal(t, uint64(6), row.Points[0])
}

func TestMedian(t *testing.T) {
	require.Zero(t, median(nil))
	require.Equal(t, uint64(3), median([]uint64{3}))
	require.Equal(t, uint64(3), median([]uint64{3, 4}))
	require.Equal(t, uint64(4), median([]uint64{3, 5}))
}
