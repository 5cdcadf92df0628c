package yieldd

import (
	"fmt"

	"yieldplus/config"
	"yieldplus/native/asset"
	"yieldplus/native/common"
	"yieldplus/native/metadata"
	"yieldplus/native/oracle"
	"yieldplus/native/pricefeed"
)

// ApplyGenesis seeds an empty ledger in one commit. A ledger whose yield
// contract is already initialised is left untouched.
func (n *Node) ApplyGenesis(g *config.Genesis) (bool, error) {
	if g == nil {
		return false, nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := n.yield.Config(); err == nil {
		return false, nil
	}
	if err := n.st.Atomic(func() error { return n.seed(g) }); err != nil {
		n.st.Discard()
		return false, fmt.Errorf("genesis: %w", err)
	}
	if err := n.st.Commit(); err != nil {
		n.st.Discard()
		return false, fmt.Errorf("genesis: %w", err)
	}
	n.st.DrainEvents()
	return true, nil
}

func (n *Node) seed(g *config.Genesis) error {
	owner := common.NewSigners(n.accounts.Metadata)
	for _, mk := range g.MetaKeys {
		if err := n.schema.SetMetaKey(owner, metadata.MetaKey{
			Key:         mk.Key,
			Required:    mk.Required,
			Type:        metadata.ValueType(mk.Type),
			Description: mk.Description,
		}); err != nil {
			return fmt.Errorf("metakey %s: %w", mk.Key, err)
		}
	}
	for _, c := range g.Categories {
		if err := n.schema.SetCategory(owner, metadata.Category{Name: c.Name, Description: c.Description}); err != nil {
			return fmt.Errorf("category %s: %w", c.Name, err)
		}
	}

	for _, tok := range g.Tokens {
		maxSupply, err := asset.Parse(tok.MaxSupply)
		if err != nil {
			return fmt.Errorf("token %s: %w", tok.Contract, err)
		}
		if err := n.ledger.Create(common.NewSigners(tok.Contract), tok.Contract, tok.Issuer, maxSupply); err != nil {
			return fmt.Errorf("token %s: %w", tok.Contract, err)
		}
		for _, bal := range tok.Balances {
			qty, err := asset.Parse(bal.Quantity)
			if err != nil {
				return fmt.Errorf("balance %s: %w", bal.Account, err)
			}
			extended := asset.ExtendedAsset{Quantity: qty, Contract: tok.Contract}
			if err := n.ledger.Issue(common.NewSigners(tok.Issuer), bal.Account, extended, "genesis"); err != nil {
				return fmt.Errorf("balance %s: %w", bal.Account, err)
			}
		}
	}

	operator := common.NewSigners(n.accounts.PriceFeed)
	for _, p := range g.IndexPrices {
		row := pricefeed.IndexRow{ID: p.ID, Base: p.Base, Quote: p.Quote, Price: p.Price, Precision: p.Precision}
		if err := n.feeds.SetIndexPrice(operator, row); err != nil {
			return fmt.Errorf("index price %d: %w", p.ID, err)
		}
	}
	for _, p := range g.PairPrices {
		if err := n.feeds.SubmitPairPrice(operator, p.PairID, p.Base, p.Quote, p.Precision, p.Price); err != nil {
			return fmt.Errorf("pair price %s: %w", p.PairID, err)
		}
	}

	if y := g.Yield; y != nil {
		self := common.NewSigners(n.accounts.Yield)
		rewards, err := asset.ParseExtendedSymbol(y.Rewards)
		if err != nil {
			return fmt.Errorf("yield: %w", err)
		}
		if err := n.yield.Init(self, rewards, n.accounts.Oracle, n.accounts.Admin); err != nil {
			return fmt.Errorf("yield init: %w", err)
		}
		if y.MaxTVL != "" {
			minTVL, err := asset.Parse(y.MinTVL)
			if err != nil {
				return fmt.Errorf("yield min_tvl_report: %w", err)
			}
			maxTVL, err := asset.Parse(y.MaxTVL)
			if err != nil {
				return fmt.Errorf("yield max_tvl_report: %w", err)
			}
			if err := n.yield.SetRate(self, y.AnnualRate, minTVL, maxTVL); err != nil {
				return fmt.Errorf("yield setrate: %w", err)
			}
		}
	}

	if o := g.Oracle; o != nil {
		self := common.NewSigners(n.accounts.Oracle)
		rewards, err := asset.ParseExtendedSymbol(o.Rewards)
		if err != nil {
			return fmt.Errorf("oracle: %w", err)
		}
		if err := n.oracle.Init(self, rewards, n.accounts.Yield, n.accounts.Admin); err != nil {
			return fmt.Errorf("oracle init: %w", err)
		}
		if o.RewardPerUpdate != "" {
			reward, err := asset.Parse(o.RewardPerUpdate)
			if err != nil {
				return fmt.Errorf("oracle reward_per_update: %w", err)
			}
			if err := n.oracle.SetReward(self, reward); err != nil {
				return fmt.Errorf("oracle setreward: %w", err)
			}
		}
		for _, t := range o.Tokens {
			sym, err := asset.ParseSymbol(t.Symbol)
			if err != nil {
				return fmt.Errorf("oracle token %s: %w", t.Symbol, err)
			}
			entry := oracle.TokenEntry{Symbol: sym, Contract: t.Contract, FeedIndex: t.FeedIndex, PairID: t.PairID}
			if err := n.oracle.AddToken(self, entry); err != nil {
				return fmt.Errorf("oracle token %s: %w", t.Symbol, err)
			}
		}
	}
	return nil
}
