package oracle

import (
	"yieldplus/native/asset"
	"yieldplus/native/lifecycle"
	"yieldplus/native/metadata"
)

// Config is the oracle contract singleton.
type Config struct {
	Rewards         asset.ExtendedSymbol
	RewardPerUpdate asset.Asset
	YieldContract   string
	AdminContract   string
}

// Oracle is a registered reporter and its accrued incentive.
type Oracle struct {
	Name      string
	Status    lifecycle.Status
	Balance   asset.ExtendedAsset
	Metadata  []metadata.Entry
	CreatedAt uint64
	UpdatedAt uint64
	ClaimedAt uint64
}

// TokenEntry describes how holdings of a token count toward TVL. A token
// without a feed index or pair id is denominated in the reward currency.
type TokenEntry struct {
	Symbol    asset.Symbol
	Contract  string
	FeedIndex uint64
	PairID    string
}

// Extended returns the token's extended symbol.
func (t TokenEntry) Extended() asset.ExtendedSymbol {
	return asset.ExtendedSymbol{Symbol: t.Symbol, Contract: t.Contract}
}

// Priced reports whether the token is valued through a price feed.
func (t TokenEntry) Priced() bool {
	return t.FeedIndex != 0 || t.PairID != ""
}

// Period is one valuation snapshot of a protocol.
type Period struct {
	Timestamp uint64
	TVL       asset.Asset
	USD       asset.Asset
	Reward    asset.Asset
}
