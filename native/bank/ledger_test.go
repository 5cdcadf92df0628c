package bank

import (
	"testing"

	"github.com/stretchr/testify/require"

	"yieldplus/core/state"
	"yieldplus/native/asset"
	"yieldplus/native/common"
	"yieldplus/storage"
)

func eos(raw string) asset.ExtendedAsset {
	return asset.ExtendedAsset{Quantity: asset.MustParse(raw), Contract: "eosio.token"}
}

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	l := NewLedger(state.NewManager(storage.NewMemDB()))
	require.NoError(t, l.Create(common.NewSigners("eosio.token"), "eosio.token", "eosio", asset.MustParse("1000000000.0000 EOS")))
	return l
}

func TestCreateAndIssue(t *testing.T) {
	l := newLedger(t)
	sym := eos("0.0000 EOS").Extended()

	err := l.Create(common.NewSigners("eosio.token"), "eosio.token", "eosio", asset.MustParse("1.0000 EOS"))
	require.ErrorIs(t, err, common.ErrValidation)

	require.ErrorIs(t, l.Issue(common.NewSigners("alice"), "alice", eos("1.0000 EOS"), ""), common.ErrUnauthorized)
	require.NoError(t, l.Issue(common.NewSigners("eosio"), "alice", eos("100.0000 EOS"), "seed"))

	supply, ok, err := l.Supply(sym)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "100.0000 EOS", supply.String())

	bal, err := l.BalanceOf("alice", sym)
	require.NoError(t, err)
	require.Equal(t, "100.0000 EOS", bal.String())

	issuer, err := l.BalanceOf("eosio", sym)
	require.NoError(t, err)
	require.True(t, issuer.IsZero())

	require.ErrorIs(t, l.Issue(common.NewSigners("eosio"), "alice", eos("1000000000.0000 EOS"), ""), common.ErrValidation)

	_, ok, err = l.Supply(asset.ExtendedSymbol{Symbol: asset.MustSymbol("USDT", 4), Contract: "tethertether"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTransfer(t *testing.T) {
	l := newLedger(t)
	sym := eos("0.0000 EOS").Extended()
	require.NoError(t, l.Issue(common.NewSigners("eosio"), "alice", eos("10.0000 EOS"), ""))

	require.ErrorIs(t, l.TransferAction(common.NewSigners("bob"), "alice", "bob", eos("1.0000 EOS"), ""), common.ErrUnauthorized)
	require.NoError(t, l.TransferAction(common.NewSigners("alice"), "alice", "bob", eos("2.5000 EOS"), "hi"))

	alice, err := l.BalanceOf("alice", sym)
	require.NoError(t, err)
	bob, err := l.BalanceOf("bob", sym)
	require.NoError(t, err)
	require.Equal(t, "7.5000 EOS", alice.String())
	require.Equal(t, "2.5000 EOS", bob.String())

	require.ErrorIs(t, l.Transfer("bob", "alice", eos("3.0000 EOS"), ""), common.ErrValidation)
	require.ErrorIs(t, l.Transfer("bob", "alice", eos("0.0000 EOS"), ""), common.ErrValidation)
	require.ErrorIs(t, l.Transfer("bob", "bob", eos("1.0000 EOS"), ""), common.ErrValidation)
	require.ErrorIs(t, l.Transfer("bob", "alice", eos("1.00 EOS"), ""), common.ErrValidation)
	require.ErrorIs(t, l.Transfer("bob", "alice", asset.ExtendedAsset{Quantity: asset.MustParse("1.0000 EOS"), Contract: "fake.token"}, ""), common.ErrNotFound)
}
