package oracle

import (
	"fmt"
	"strings"

	"yieldplus/core/events"
	"yieldplus/native/asset"
	"yieldplus/native/common"
	"yieldplus/native/metadata"
)

// USDQuote is the quote currency prices are read in.
const USDQuote = "USD"

// AddToken registers or overwrites the valuation entry for a token. The
// token must exist on the ledger and any referenced feed must answer.
func (m *Module) AddToken(signers common.Signers, entry TokenEntry) error {
	if _, err := m.begin(); err != nil {
		return err
	}
	if err := common.RequireAuth(signers, m.self); err != nil {
		return err
	}
	entry.Contract = strings.TrimSpace(entry.Contract)
	entry.PairID = strings.TrimSpace(entry.PairID)
	if err := entry.Extended().Validate(); err != nil {
		return err
	}
	if !metadata.IsName(entry.Contract) {
		return common.Invalid("[contract=%s] is not a valid name", entry.Contract)
	}
	supply, ok, err := m.tokens.Supply(entry.Extended())
	if err != nil {
		return err
	}
	if !ok {
		return common.Invalid("[symbol=%s] does not exist on %s", entry.Symbol.Code, entry.Contract)
	}
	if supply.Symbol != entry.Symbol {
		return common.Invalid("[symbol=%s] precision mismatch, ledger has %s", entry.Symbol, supply.Symbol)
	}
	if entry.FeedIndex != 0 {
		if _, err := m.feeds.Price(entry.FeedIndex, USDQuote); err != nil {
			return fmt.Errorf("[feed_index=%d]: %w", entry.FeedIndex, err)
		}
	}
	if entry.PairID != "" {
		if _, err := m.feeds.PriceByPair(entry.PairID); err != nil {
			return fmt.Errorf("[pair_id=%s]: %w", entry.PairID, err)
		}
	}
	if err := m.st.KVPut(tokenKey(entry.Symbol.Code), entry); err != nil {
		return err
	}
	if err := m.st.KVAppend(tokenIndexKey, []byte(entry.Symbol.Code)); err != nil {
		return err
	}
	m.emit(events.OracleTokenAdded{
		Symbol:    entry.Symbol.String(),
		Contract:  entry.Contract,
		FeedIndex: entry.FeedIndex,
		PairID:    entry.PairID,
	})
	return nil
}

// DelToken removes a token's valuation entry.
func (m *Module) DelToken(signers common.Signers, code string) error {
	if _, err := m.begin(); err != nil {
		return err
	}
	if err := common.RequireAuth(signers, m.self); err != nil {
		return err
	}
	if _, ok, err := m.Token(code); err != nil {
		return err
	} else if !ok {
		return common.Missing("token", code)
	}
	if err := m.st.KVDelete(tokenKey(code)); err != nil {
		return err
	}
	if err := m.st.KVRemove(tokenIndexKey, []byte(code)); err != nil {
		return err
	}
	m.emit(events.OracleTokenRemoved{Symbol: code})
	return nil
}

// Token returns the entry registered under a symbol code.
func (m *Module) Token(code string) (TokenEntry, bool, error) {
	var entry TokenEntry
	ok, err := m.st.KVGet(tokenKey(code), &entry)
	return entry, ok, err
}

// Tokens lists the registered tokens in registration order.
func (m *Module) Tokens() ([]TokenEntry, error) {
	var codes [][]byte
	if err := m.st.KVGetList(tokenIndexKey, &codes); err != nil {
		return nil, err
	}
	out := make([]TokenEntry, 0, len(codes))
	for _, c := range codes {
		entry, ok, err := m.Token(string(c))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Balances returns the non-zero holdings of every registered token across
// the given accounts.
func (m *Module) Balances(accounts []string) ([]asset.ExtendedAsset, error) {
	tokens, err := m.Tokens()
	if err != nil {
		return nil, err
	}
	var out []asset.ExtendedAsset
	for _, acct := range accounts {
		for _, tok := range tokens {
			bal, err := m.tokens.BalanceOf(acct, tok.Extended())
			if err != nil {
				return nil, err
			}
			if bal.IsZero() {
				continue
			}
			out = append(out, asset.ExtendedAsset{Quantity: bal, Contract: tok.Contract})
		}
	}
	return out, nil
}
