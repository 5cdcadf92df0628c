// Package bank is the in-ledger token ledger: per-contract token supplies and
// per-account balances, moved by transfers carrying a memo.
package bank

import (
	"fmt"
	"strings"

	"yieldplus/native/asset"
	"yieldplus/native/common"
)

const maxMemoBytes = 256

type bankState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Stat describes a token issued by a contract.
type Stat struct {
	Supply    asset.Asset
	MaxSupply asset.Asset
	Issuer    string
}

// Ledger stores token stats and balances in state.
type Ledger struct {
	st bankState
}

func NewLedger(st bankState) *Ledger {
	return &Ledger{st: st}
}

func statKey(sym asset.ExtendedSymbol) []byte {
	return []byte("bank/stat/" + sym.Contract + "/" + sym.Symbol.Code)
}

func balanceKey(account string, sym asset.ExtendedSymbol) []byte {
	return []byte("bank/balance/" + sym.Contract + "/" + sym.Symbol.Code + "/" + account)
}

// Create registers a token under contract with the given maximum supply.
func (l *Ledger) Create(signers common.Signers, contract, issuer string, maxSupply asset.Asset) error {
	if err := common.RequireAuth(signers, contract); err != nil {
		return err
	}
	if err := maxSupply.Symbol.Validate(); err != nil {
		return err
	}
	if maxSupply.IsZero() {
		return common.Invalid("max supply must be positive")
	}
	if strings.TrimSpace(issuer) == "" {
		return common.Invalid("issuer required")
	}
	sym := asset.ExtendedSymbol{Symbol: maxSupply.Symbol, Contract: contract}
	if _, ok, err := l.Stat(sym); err != nil {
		return err
	} else if ok {
		return common.Invalid("token %s already exists", sym)
	}
	return l.st.KVPut(statKey(sym), Stat{Supply: asset.Zero(maxSupply.Symbol), MaxSupply: maxSupply, Issuer: issuer})
}

// Issue mints quantity to the issuer and forwards it to the recipient.
func (l *Ledger) Issue(signers common.Signers, to string, qty asset.ExtendedAsset, memo string) error {
	sym := qty.Extended()
	stat, ok, err := l.Stat(sym)
	if err != nil {
		return err
	}
	if !ok {
		return common.Missing("token", sym.String())
	}
	if err := common.RequireAuth(signers, stat.Issuer); err != nil {
		return err
	}
	if qty.Quantity.IsZero() {
		return common.Invalid("must issue positive quantity")
	}
	next, err := stat.Supply.Add(qty.Quantity)
	if err != nil {
		return err
	}
	if next.Cmp(stat.MaxSupply) > 0 {
		return common.Invalid("quantity exceeds available supply")
	}
	stat.Supply = next
	if err := l.st.KVPut(statKey(sym), stat); err != nil {
		return err
	}
	if err := l.credit(stat.Issuer, qty); err != nil {
		return err
	}
	if to == stat.Issuer {
		return nil
	}
	return l.Transfer(stat.Issuer, to, qty, memo)
}

// Stat returns the token stat for sym.
func (l *Ledger) Stat(sym asset.ExtendedSymbol) (Stat, bool, error) {
	var stat Stat
	ok, err := l.st.KVGet(statKey(sym), &stat)
	return stat, ok, err
}

// Supply returns the circulating supply of sym; a token that was never
// created reports false.
func (l *Ledger) Supply(sym asset.ExtendedSymbol) (asset.Asset, bool, error) {
	stat, ok, err := l.Stat(sym)
	if err != nil || !ok {
		return asset.Zero(sym.Symbol), ok, err
	}
	return stat.Supply, true, nil
}

// BalanceOf returns account's holding of sym. Unknown accounts hold zero.
func (l *Ledger) BalanceOf(account string, sym asset.ExtendedSymbol) (asset.Asset, error) {
	bal := asset.Zero(sym.Symbol)
	if _, err := l.st.KVGet(balanceKey(account, sym), &bal); err != nil {
		return asset.Asset{}, err
	}
	return bal, nil
}

// Transfer moves qty between accounts. Callers are responsible for having
// checked the sender's authority.
func (l *Ledger) Transfer(from, to string, qty asset.ExtendedAsset, memo string) error {
	if from == to {
		return common.Invalid("cannot transfer to self")
	}
	if strings.TrimSpace(to) == "" {
		return common.Invalid("recipient required")
	}
	if qty.Quantity.IsZero() {
		return common.Invalid("must transfer positive quantity")
	}
	if len(memo) > maxMemoBytes {
		return common.Invalid("memo has more than %d bytes", maxMemoBytes)
	}
	sym := qty.Extended()
	stat, ok, err := l.Stat(sym)
	if err != nil {
		return err
	}
	if !ok {
		return common.Missing("token", sym.String())
	}
	if stat.Supply.Symbol != qty.Quantity.Symbol {
		return common.Invalid("symbol precision mismatch")
	}
	if err := l.debit(from, qty); err != nil {
		return err
	}
	return l.credit(to, qty)
}

// TransferAction is the signed form of Transfer.
func (l *Ledger) TransferAction(signers common.Signers, from, to string, qty asset.ExtendedAsset, memo string) error {
	if err := common.RequireAuth(signers, from); err != nil {
		return err
	}
	return l.Transfer(from, to, qty, memo)
}

func (l *Ledger) debit(account string, qty asset.ExtendedAsset) error {
	bal, err := l.BalanceOf(account, qty.Extended())
	if err != nil {
		return err
	}
	if bal.Amount < qty.Quantity.Amount {
		return fmt.Errorf("%w: %s holds %s, needs %s", common.ErrValidation, account, bal, qty.Quantity)
	}
	next, err := bal.Sub(qty.Quantity)
	if err != nil {
		return err
	}
	return l.st.KVPut(balanceKey(account, qty.Extended()), next)
}

func (l *Ledger) credit(account string, qty asset.ExtendedAsset) error {
	bal, err := l.BalanceOf(account, qty.Extended())
	if err != nil {
		return err
	}
	next, err := bal.Add(qty.Quantity)
	if err != nil {
		return err
	}
	return l.st.KVPut(balanceKey(account, qty.Extended()), next)
}
