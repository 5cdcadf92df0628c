package oracle

import (
	"fmt"

	"yieldplus/native/asset"
	"yieldplus/native/common"
)

// MaxPriceDeviationBps is how far either feed may stray from the average of
// both before the token is treated as unpriced.
const MaxPriceDeviationBps uint64 = 1_000

// Valuation is the value of a set of holdings.
type Valuation struct {
	TVL asset.Asset
	USD asset.Asset
}

// USDPrice returns the token's USD price in asset.PricePrecision decimals.
// A token with two feeds uses their average and is unpriced when either
// feed deviates from it by MaxPriceDeviationBps or more. Feed errors count
// as a missing price.
func (m *Module) USDPrice(tok TokenEntry) (uint64, bool) {
	var fromIndex, fromPair uint64
	if tok.FeedIndex != 0 {
		if q, err := m.feeds.Price(tok.FeedIndex, USDQuote); err == nil {
			fromIndex, _ = q.Normalized()
		}
	}
	if tok.PairID != "" {
		if q, err := m.feeds.PriceByPair(tok.PairID); err == nil {
			fromPair, _ = q.Normalized()
		}
	}
	switch {
	case fromIndex == 0 && fromPair == 0:
		return 0, false
	case fromPair == 0:
		return fromIndex, true
	case fromIndex == 0:
		return fromPair, true
	}
	average := fromIndex/2 + fromPair/2 + (fromIndex%2+fromPair%2)/2
	upper, err := asset.MulDiv(average, asset.BasisPoints+MaxPriceDeviationBps, asset.BasisPoints)
	if err != nil {
		return 0, false
	}
	lower, err := asset.MulDiv(average, asset.BasisPoints-MaxPriceDeviationBps, asset.BasisPoints)
	if err != nil {
		return 0, false
	}
	for _, p := range []uint64{fromIndex, fromPair} {
		if p >= upper || p <= lower {
			return 0, false
		}
	}
	return average, true
}

// Value converts holdings into the reward currency and USD. Tokens without
// an entry or without a usable price contribute nothing; tokens with no feed
// are counted as reward currency.
func (m *Module) Value(rewards asset.Symbol, holdings []asset.ExtendedAsset) (Valuation, error) {
	usdSym := asset.MustSymbol(USDQuote, asset.PricePrecision)
	var direct, fromFeeds uint64
	for _, h := range holdings {
		tok, ok, err := m.Token(h.Quantity.Symbol.Code)
		if err != nil {
			return Valuation{}, err
		}
		if !ok || tok.Contract != h.Contract || tok.Symbol != h.Quantity.Symbol {
			continue
		}
		if !tok.Priced() {
			amount, err := asset.Rescale(h.Quantity.Amount, tok.Symbol.Precision, rewards.Precision)
			if err != nil {
				return Valuation{}, err
			}
			if direct, err = addChecked(direct, amount); err != nil {
				return Valuation{}, err
			}
			continue
		}
		price, ok := m.USDPrice(tok)
		if !ok {
			continue
		}
		usd, err := asset.MulDiv(h.Quantity.Amount, price, asset.Pow10(tok.Symbol.Precision))
		if err != nil {
			return Valuation{}, err
		}
		if fromFeeds, err = addChecked(fromFeeds, usd); err != nil {
			return Valuation{}, err
		}
	}

	tvl, usd := direct, fromFeeds
	if rewardPrice, ok := m.rewardPrice(rewards); ok {
		converted, err := asset.MulDiv(fromFeeds, asset.Pow10(rewards.Precision), rewardPrice)
		if err != nil {
			return Valuation{}, err
		}
		if tvl, err = addChecked(tvl, converted); err != nil {
			return Valuation{}, err
		}
		directUSD, err := asset.MulDiv(direct, rewardPrice, asset.Pow10(rewards.Precision))
		if err != nil {
			return Valuation{}, err
		}
		if usd, err = addChecked(usd, directUSD); err != nil {
			return Valuation{}, err
		}
	}
	tvlAsset, err := asset.New(tvl, rewards)
	if err != nil {
		return Valuation{}, err
	}
	usdAsset, err := asset.New(usd, usdSym)
	if err != nil {
		return Valuation{}, err
	}
	return Valuation{TVL: tvlAsset, USD: usdAsset}, nil
}

func (m *Module) rewardPrice(rewards asset.Symbol) (uint64, bool) {
	tok, ok, err := m.Token(rewards.Code)
	if err != nil || !ok || !tok.Priced() {
		return 0, false
	}
	return m.USDPrice(tok)
}

func addChecked(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a || sum > asset.MaxAmount {
		return 0, fmt.Errorf("%w: valuation sum", common.ErrOverflow)
	}
	return sum, nil
}
