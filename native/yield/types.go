package yield

import (
	"yieldplus/native/asset"
	"yieldplus/native/lifecycle"
	"yieldplus/native/metadata"
)

// Config is the program-wide singleton written by init and setrate.
type Config struct {
	AnnualRate     uint64
	MinTVLReport   asset.Asset
	MaxTVLReport   asset.Asset
	Rewards        asset.ExtendedSymbol
	OracleContract string
	AdminContract  string
}

// Protocol is a registered protocol and its accrued rewards.
type Protocol struct {
	Name      string
	Category  string
	Status    lifecycle.Status
	Contracts []string
	EVM       []string
	TVL       asset.Asset
	USD       asset.Asset
	Balance   asset.ExtendedAsset
	Metadata  []metadata.Entry
	CreatedAt uint64
	UpdatedAt uint64
	ClaimedAt uint64
	PeriodAt  uint64
}

// Report is the valuation an oracle submits for one protocol period.
type Report struct {
	Protocol  string
	Timestamp uint64
	Elapsed   uint64
	TVL       asset.Asset
	USD       asset.Asset
	Reward    asset.Asset
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
