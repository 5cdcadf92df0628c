package yieldd

import (
	"yieldplus/native/asset"
	"yieldplus/native/metadata"
	"yieldplus/native/oracle"
	"yieldplus/native/yield"
)

// YieldConfigView is the JSON form of the yield singleton.
type YieldConfigView struct {
	Rewards        string `json:"rewards"`
	AnnualRate     uint64 `json:"annual_rate"`
	MinTVLReport   string `json:"min_tvl_report"`
	MaxTVLReport   string `json:"max_tvl_report"`
	OracleContract string `json:"oracle_contract"`
	AdminContract  string `json:"admin_contract"`
}

type OracleConfigView struct {
	Rewards         string `json:"rewards"`
	RewardPerUpdate string `json:"reward_per_update"`
	YieldContract   string `json:"yield_contract"`
	AdminContract   string `json:"admin_contract"`
}

type ProtocolView struct {
	Name      string            `json:"protocol"`
	Category  string            `json:"category"`
	Status    string            `json:"status"`
	Contracts []string          `json:"contracts"`
	EVM       []string          `json:"evm"`
	TVL       string            `json:"tvl"`
	USD       string            `json:"usd"`
	Balance   string            `json:"balance"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt uint64            `json:"created_at"`
	UpdatedAt uint64            `json:"updated_at"`
	ClaimedAt uint64            `json:"claimed_at"`
	PeriodAt  uint64            `json:"period_at"`
}

type OracleView struct {
	Name      string            `json:"oracle"`
	Status    string            `json:"status"`
	Balance   string            `json:"balance"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt uint64            `json:"created_at"`
	UpdatedAt uint64            `json:"updated_at"`
	ClaimedAt uint64            `json:"claimed_at"`
}

type PeriodView struct {
	Timestamp uint64 `json:"timestamp"`
	TVL       string `json:"tvl"`
	USD       string `json:"usd"`
	Reward    string `json:"reward"`
}

type TokenView struct {
	Symbol    string `json:"symbol"`
	Contract  string `json:"contract"`
	FeedIndex uint64 `json:"feed_index,omitempty"`
	PairID    string `json:"pair_id,omitempty"`
}

func entriesMap(entries []metadata.Entry) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out
}

func newProtocolView(p *yield.Protocol) ProtocolView {
	return ProtocolView{
		Name:      p.Name,
		Category:  p.Category,
		Status:    p.Status.String(),
		Contracts: append([]string{}, p.Contracts...),
		EVM:       append([]string{}, p.EVM...),
		TVL:       p.TVL.String(),
		USD:       p.USD.String(),
		Balance:   p.Balance.String(),
		Metadata:  entriesMap(p.Metadata),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		ClaimedAt: p.ClaimedAt,
		PeriodAt:  p.PeriodAt,
	}
}

func newOracleView(o *oracle.Oracle) OracleView {
	return OracleView{
		Name:      o.Name,
		Status:    o.Status.String(),
		Balance:   o.Balance.String(),
		Metadata:  entriesMap(o.Metadata),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		ClaimedAt: o.ClaimedAt,
	}
}

// YieldConfig returns the yield singleton.
func (n *Node) YieldConfig() (YieldConfigView, error) {
	var out YieldConfigView
	err := n.view(func() error {
		cfg, err := n.yield.Config()
		if err != nil {
			return err
		}
		out = YieldConfigView{
			Rewards:        cfg.Rewards.String(),
			AnnualRate:     cfg.AnnualRate,
			MinTVLReport:   cfg.MinTVLReport.String(),
			MaxTVLReport:   cfg.MaxTVLReport.String(),
			OracleContract: cfg.OracleContract,
			AdminContract:  cfg.AdminContract,
		}
		return nil
	})
	return out, err
}

// OracleConfig returns the oracle singleton.
func (n *Node) OracleConfig() (OracleConfigView, error) {
	var out OracleConfigView
	err := n.view(func() error {
		cfg, err := n.oracle.Config()
		if err != nil {
			return err
		}
		out = OracleConfigView{
			Rewards:         cfg.Rewards.String(),
			RewardPerUpdate: cfg.RewardPerUpdate.String(),
			YieldContract:   cfg.YieldContract,
			AdminContract:   cfg.AdminContract,
		}
		return nil
	})
	return out, err
}

// Protocol returns one protocol.
func (n *Node) Protocol(name string) (ProtocolView, error) {
	var out ProtocolView
	err := n.view(func() error {
		p, err := n.yield.Protocol(name)
		if err != nil {
			return err
		}
		out = newProtocolView(p)
		return nil
	})
	return out, err
}

// Protocols lists protocols, only the active ones when activeOnly is set.
func (n *Node) Protocols(activeOnly bool) ([]ProtocolView, error) {
	var out []ProtocolView
	err := n.view(func() error {
		list := n.yield.Protocols
		if activeOnly {
			list = n.yield.ActiveProtocols
		}
		protocols, err := list()
		if err != nil {
			return err
		}
		out = make([]ProtocolView, 0, len(protocols))
		for _, p := range protocols {
			out = append(out, newProtocolView(p))
		}
		return nil
	})
	return out, err
}

// Oracle returns one oracle.
func (n *Node) Oracle(name string) (OracleView, error) {
	var out OracleView
	err := n.view(func() error {
		o, err := n.oracle.Oracle(name)
		if err != nil {
			return err
		}
		out = newOracleView(o)
		return nil
	})
	return out, err
}

// Oracles lists every oracle.
func (n *Node) Oracles() ([]OracleView, error) {
	var out []OracleView
	err := n.view(func() error {
		oracles, err := n.oracle.Oracles()
		if err != nil {
			return err
		}
		out = make([]OracleView, 0, len(oracles))
		for _, o := range oracles {
			out = append(out, newOracleView(o))
		}
		return nil
	})
	return out, err
}

// Periods returns a protocol's retained snapshots, oldest first.
func (n *Node) Periods(protocol string) ([]PeriodView, error) {
	var out []PeriodView
	err := n.view(func() error {
		if _, err := n.yield.Protocol(protocol); err != nil {
			return err
		}
		periods, err := n.oracle.Periods().List(protocol)
		if err != nil {
			return err
		}
		out = make([]PeriodView, 0, len(periods))
		for _, p := range periods {
			out = append(out, PeriodView{
				Timestamp: p.Timestamp,
				TVL:       p.TVL.String(),
				USD:       p.USD.String(),
				Reward:    p.Reward.String(),
			})
		}
		return nil
	})
	return out, err
}

// Tokens lists the oracle's valuation table.
func (n *Node) Tokens() ([]TokenView, error) {
	var out []TokenView
	err := n.view(func() error {
		tokens, err := n.oracle.Tokens()
		if err != nil {
			return err
		}
		out = make([]TokenView, 0, len(tokens))
		for _, t := range tokens {
			out = append(out, TokenView{
				Symbol:    t.Symbol.String(),
				Contract:  t.Contract,
				FeedIndex: t.FeedIndex,
				PairID:    t.PairID,
			})
		}
		return nil
	})
	return out, err
}

// Balance returns an account's balance of sym.
func (n *Node) Balance(account string, sym asset.ExtendedSymbol) (asset.Asset, error) {
	var out asset.Asset
	err := n.view(func() error {
		bal, err := n.ledger.BalanceOf(account, sym)
		out = bal
		return err
	})
	return out, err
}
