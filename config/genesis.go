package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Genesis seeds an empty ledger. Assets use "1.0000 EOS" notation and
// extended symbols "4,EOS@eosio.token".
type Genesis struct {
	MetaKeys    []GenesisMetaKey    `yaml:"metakeys"`
	Categories  []GenesisCategory   `yaml:"categories"`
	Tokens      []GenesisToken      `yaml:"tokens"`
	IndexPrices []GenesisIndexPrice `yaml:"index_prices"`
	PairPrices  []GenesisPairPrice  `yaml:"pair_prices"`
	Yield       *GenesisYield       `yaml:"yield"`
	Oracle      *GenesisOracle      `yaml:"oracle"`
}

type GenesisMetaKey struct {
	Key         string `yaml:"key"`
	Required    bool   `yaml:"required"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

type GenesisCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// GenesisToken creates a token and issues the listed balances.
type GenesisToken struct {
	Contract  string         `yaml:"contract"`
	Issuer    string         `yaml:"issuer"`
	MaxSupply string         `yaml:"max_supply"`
	Balances  []GenesisIssue `yaml:"balances"`
}

type GenesisIssue struct {
	Account  string `yaml:"account"`
	Quantity string `yaml:"quantity"`
}

type GenesisIndexPrice struct {
	ID        uint64 `yaml:"id"`
	Base      string `yaml:"base"`
	Quote     string `yaml:"quote"`
	Price     uint64 `yaml:"price"`
	Precision uint8  `yaml:"precision"`
}

type GenesisPairPrice struct {
	PairID    string `yaml:"pair_id"`
	Base      string `yaml:"base"`
	Quote     string `yaml:"quote"`
	Price     uint64 `yaml:"price"`
	Precision uint8  `yaml:"precision"`
}

type GenesisYield struct {
	Rewards    string `yaml:"rewards"`
	AnnualRate uint64 `yaml:"annual_rate"`
	MinTVL     string `yaml:"min_tvl_report"`
	MaxTVL     string `yaml:"max_tvl_report"`
}

type GenesisOracle struct {
	Rewards         string               `yaml:"rewards"`
	RewardPerUpdate string               `yaml:"reward_per_update"`
	Tokens          []GenesisOracleToken `yaml:"tokens"`
}

type GenesisOracleToken struct {
	Symbol    string `yaml:"symbol"`
	Contract  string `yaml:"contract"`
	FeedIndex uint64 `yaml:"feed_index"`
	PairID    string `yaml:"pair_id"`
}

// LoadGenesis reads a genesis file. An empty path yields an empty genesis.
func LoadGenesis(path string) (*Genesis, error) {
	if path == "" {
		return &Genesis{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open genesis: %w", err)
	}
	return ParseGenesis(raw)
}

// ParseGenesis decodes genesis YAML, rejecting unknown fields.
func ParseGenesis(raw []byte) (*Genesis, error) {
	g := &Genesis{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(g); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	return g, nil
}
