package yieldd

import (
	"sort"
	"strings"

	"yieldplus/native/asset"
	"yieldplus/native/common"
	"yieldplus/native/metadata"
	"yieldplus/native/oracle"
	"yieldplus/native/pricefeed"
)

type handler func(n *Node, signers common.Signers, contract string, a args) (interface{}, error)

// action binds a handler to the largest argument count it accepts.
type action struct {
	maxArgs int
	run     handler
}

type actionTable map[string]action

func (n *Node) resolve(contract, name string) (handler, error) {
	contract = strings.TrimSpace(contract)
	if !metadata.IsName(contract) {
		return nil, common.Invalid("[contract=%s] is not a valid name", contract)
	}
	act, ok := n.table(contract)[name]
	if !ok {
		return nil, common.Invalid("unknown action %s::%s", contract, name)
	}
	return func(n *Node, signers common.Signers, contract string, a args) (interface{}, error) {
		if err := a.expect(act.maxArgs); err != nil {
			return nil, err
		}
		return act.run(n, signers, contract, a)
	}, nil
}

// table picks the contract's actions. Accounts that host no module are
// token contracts.
func (n *Node) table(contract string) actionTable {
	switch contract {
	case n.accounts.Yield:
		return yieldActions
	case n.accounts.Oracle:
		return oracleActions
	case n.accounts.Metadata:
		return metadataActions
	case n.accounts.PriceFeed:
		return feedActions
	default:
		return tokenActions
	}
}

// Actions lists the action names served for contract.
func (n *Node) Actions(contract string) []string {
	table := n.table(contract)
	out := make([]string, 0, len(table))
	for name := range table {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var yieldActions = actionTable{
	"init": {3, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		rewards, err := a.extSymbol(0, "rewards")
		if err != nil {
			return nil, err
		}
		oracleContract, err := a.str(1, "oracle_contract")
		if err != nil {
			return nil, err
		}
		adminContract, err := a.str(2, "admin_contract")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.Init(s, rewards, oracleContract, adminContract)
	}},
	"setrate": {3, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		rate, err := a.uint(0, "annual_rate")
		if err != nil {
			return nil, err
		}
		minTVL, err := a.asset(1, "min_tvl_report")
		if err != nil {
			return nil, err
		}
		maxTVL, err := a.asset(2, "max_tvl_report")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.SetRate(s, rate, minTVL, maxTVL)
	}},
	"regprotocol": {3, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "protocol")
		if err != nil {
			return nil, err
		}
		category, err := a.str(1, "category")
		if err != nil {
			return nil, err
		}
		pairs, err := a.pairs(2, "metadata")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.RegProtocol(s, name, category, pairs)
	}},
	"setmetadata": {2, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, pairs, err := nameAndPairs(a, "protocol")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.SetMetadata(s, name, pairs)
	}},
	"setmetakey": {3, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, key, value, err := nameKeyValue(a, "protocol")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.SetMetaKey(s, name, key, value)
	}},
	"setcategory": {2, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "protocol")
		if err != nil {
			return nil, err
		}
		category, err := a.str(1, "category")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.SetCategory(s, name, category)
	}},
	"setcontracts": {2, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, list, err := nameAndList(a, "protocol", "contracts")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.SetContracts(s, name, list)
	}},
	"setevm": {2, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, list, err := nameAndList(a, "protocol", "evm")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.SetEVM(s, name, list)
	}},
	"approve": {1, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "protocol")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.Approve(s, name)
	}},
	"deny": {1, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "protocol")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.Deny(s, name)
	}},
	"unregister": {1, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "protocol")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.Unregister(s, name)
	}},
	"claim": {3, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, receiver, memo, err := claimArgs(a, "protocol")
		if err != nil {
			return nil, err
		}
		return nil, n.yield.Claim(s, name, receiver, memo)
	}},
}

var oracleActions = actionTable{
	"init": {3, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		rewards, err := a.extSymbol(0, "rewards")
		if err != nil {
			return nil, err
		}
		yieldContract, err := a.str(1, "yield_contract")
		if err != nil {
			return nil, err
		}
		adminContract, err := a.str(2, "admin_contract")
		if err != nil {
			return nil, err
		}
		return nil, n.oracle.Init(s, rewards, yieldContract, adminContract)
	}},
	"setreward": {1, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		reward, err := a.asset(0, "reward_per_update")
		if err != nil {
			return nil, err
		}
		return nil, n.oracle.SetReward(s, reward)
	}},
	"regoracle": {2, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, pairs, err := nameAndPairs(a, "oracle")
		if err != nil {
			return nil, err
		}
		return nil, n.oracle.RegOracle(s, name, pairs)
	}},
	"setmetadata": {2, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, pairs, err := nameAndPairs(a, "oracle")
		if err != nil {
			return nil, err
		}
		return nil, n.oracle.SetMetadata(s, name, pairs)
	}},
	"setmetakey": {3, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, key, value, err := nameKeyValue(a, "oracle")
		if err != nil {
			return nil, err
		}
		return nil, n.oracle.SetMetaKey(s, name, key, value)
	}},
	"approve": {1, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "oracle")
		if err != nil {
			return nil, err
		}
		return nil, n.oracle.Approve(s, name)
	}},
	"deny": {1, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "oracle")
		if err != nil {
			return nil, err
		}
		return nil, n.oracle.Deny(s, name)
	}},
	"unregister": {1, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "oracle")
		if err != nil {
			return nil, err
		}
		return nil, n.oracle.Unregister(s, name)
	}},
	"claim": {3, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, receiver, memo, err := claimArgs(a, "oracle")
		if err != nil {
			return nil, err
		}
		return nil, n.oracle.Claim(s, name, receiver, memo)
	}},
	"addtoken": {4, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		sym, err := a.symbol(0, "symbol")
		if err != nil {
			return nil, err
		}
		contract, err := a.str(1, "contract")
		if err != nil {
			return nil, err
		}
		feedIndex, err := a.optUint(2, "feed_index")
		if err != nil {
			return nil, err
		}
		pairID, err := a.optStr(3, "pair_id")
		if err != nil {
			return nil, err
		}
		return nil, n.oracle.AddToken(s, oracle.TokenEntry{Symbol: sym, Contract: contract, FeedIndex: feedIndex, PairID: pairID})
	}},
	"deltoken": {1, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		raw, err := a.str(0, "symbol")
		if err != nil {
			return nil, err
		}
		code := raw
		if strings.Contains(raw, ",") {
			sym, err := asset.ParseSymbol(raw)
			if err != nil {
				return nil, err
			}
			code = sym.Code
		}
		return nil, n.oracle.DelToken(s, code)
	}},
	"update": {2, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "oracle")
		if err != nil {
			return nil, err
		}
		protocol, err := a.str(1, "protocol")
		if err != nil {
			return nil, err
		}
		res, err := n.oracle.Update(s, name, protocol)
		if err != nil {
			return nil, err
		}
		return newUpdateView(res), nil
	}},
	"updateall": {2, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "oracle")
		if err != nil {
			return nil, err
		}
		limit, err := a.optInt(1, "limit")
		if err != nil {
			return nil, err
		}
		results, err := n.oracle.UpdateAll(s, name, limit)
		if err != nil {
			return nil, err
		}
		views := make([]updateView, 0, len(results))
		for _, res := range results {
			views = append(views, newUpdateView(res))
		}
		return views, nil
	}},
}

var metadataActions = actionTable{
	"setmetakey": {4, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		key, err := a.str(0, "key")
		if err != nil {
			return nil, err
		}
		required, err := a.boolean(1, "required")
		if err != nil {
			return nil, err
		}
		typ, err := a.str(2, "type")
		if err != nil {
			return nil, err
		}
		description, err := a.optStr(3, "description")
		if err != nil {
			return nil, err
		}
		return nil, n.schema.SetMetaKey(s, metadata.MetaKey{
			Key:         key,
			Required:    required,
			Type:        metadata.ValueType(typ),
			Description: description,
		})
	}},
	"delmetakey": {1, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		key, err := a.str(0, "key")
		if err != nil {
			return nil, err
		}
		return nil, n.schema.DelMetaKey(s, key)
	}},
	"setcategory": {2, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "category")
		if err != nil {
			return nil, err
		}
		description, err := a.optStr(1, "description")
		if err != nil {
			return nil, err
		}
		return nil, n.schema.SetCategory(s, metadata.Category{Name: name, Description: description})
	}},
	"delcategory": {1, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		name, err := a.str(0, "category")
		if err != nil {
			return nil, err
		}
		return nil, n.schema.DelCategory(s, name)
	}},
}

var feedActions = actionTable{
	"setprice": {5, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		id, err := a.uint(0, "id")
		if err != nil {
			return nil, err
		}
		base, quote, err := baseQuote(a, 1)
		if err != nil {
			return nil, err
		}
		price, err := a.uint(3, "price")
		if err != nil {
			return nil, err
		}
		precision, err := precisionArg(a, 4)
		if err != nil {
			return nil, err
		}
		return nil, n.feeds.SetIndexPrice(s, pricefeed.IndexRow{ID: id, Base: base, Quote: quote, Price: price, Precision: precision})
	}},
	"submitpair": {5, func(n *Node, s common.Signers, _ string, a args) (interface{}, error) {
		pairID, err := a.str(0, "pair_id")
		if err != nil {
			return nil, err
		}
		base, quote, err := baseQuote(a, 1)
		if err != nil {
			return nil, err
		}
		precision, err := precisionArg(a, 3)
		if err != nil {
			return nil, err
		}
		price, err := a.uint(4, "price")
		if err != nil {
			return nil, err
		}
		return nil, n.feeds.SubmitPairPrice(s, pairID, base, quote, precision, price)
	}},
}

var tokenActions = actionTable{
	"create": {2, func(n *Node, s common.Signers, contract string, a args) (interface{}, error) {
		issuer, err := a.str(0, "issuer")
		if err != nil {
			return nil, err
		}
		maxSupply, err := a.asset(1, "maximum_supply")
		if err != nil {
			return nil, err
		}
		return nil, n.ledger.Create(s, contract, issuer, maxSupply)
	}},
	"issue": {3, func(n *Node, s common.Signers, contract string, a args) (interface{}, error) {
		to, err := a.str(0, "to")
		if err != nil {
			return nil, err
		}
		qty, err := a.asset(1, "quantity")
		if err != nil {
			return nil, err
		}
		memo, err := a.optStr(2, "memo")
		if err != nil {
			return nil, err
		}
		return nil, n.ledger.Issue(s, to, asset.ExtendedAsset{Quantity: qty, Contract: contract}, memo)
	}},
	"transfer": {4, func(n *Node, s common.Signers, contract string, a args) (interface{}, error) {
		from, err := a.str(0, "from")
		if err != nil {
			return nil, err
		}
		to, err := a.str(1, "to")
		if err != nil {
			return nil, err
		}
		qty, err := a.asset(2, "quantity")
		if err != nil {
			return nil, err
		}
		memo, err := a.optStr(3, "memo")
		if err != nil {
			return nil, err
		}
		return nil, n.ledger.TransferAction(s, from, to, asset.ExtendedAsset{Quantity: qty, Contract: contract}, memo)
	}},
}

// updateView is the JSON form of one protocol update.
type updateView struct {
	Protocol  string `json:"protocol"`
	Timestamp uint64 `json:"timestamp"`
	Elapsed   uint64 `json:"elapsed"`
	TVL       string `json:"tvl"`
	USD       string `json:"usd"`
	Reward    string `json:"reward"`
}

func newUpdateView(res oracle.Result) updateView {
	return updateView{
		Protocol:  res.Protocol,
		Timestamp: res.Period.Timestamp,
		Elapsed:   res.Elapsed,
		TVL:       res.Period.TVL.String(),
		USD:       res.Period.USD.String(),
		Reward:    res.Period.Reward.String(),
	}
}

func nameAndPairs(a args, label string) (string, []metadata.Pair, error) {
	name, err := a.str(0, label)
	if err != nil {
		return "", nil, err
	}
	pairs, err := a.pairs(1, "metadata")
	return name, pairs, err
}

func nameKeyValue(a args, label string) (string, string, *string, error) {
	name, err := a.str(0, label)
	if err != nil {
		return "", "", nil, err
	}
	key, err := a.str(1, "key")
	if err != nil {
		return "", "", nil, err
	}
	value, err := a.optValue(2, "value")
	return name, key, value, err
}

func nameAndList(a args, label, listLabel string) (string, []string, error) {
	name, err := a.str(0, label)
	if err != nil {
		return "", nil, err
	}
	list, err := a.strs(1, listLabel)
	return name, list, err
}

func claimArgs(a args, label string) (string, string, string, error) {
	name, err := a.str(0, label)
	if err != nil {
		return "", "", "", err
	}
	receiver, err := a.optStr(1, "receiver")
	if err != nil {
		return "", "", "", err
	}
	memo, err := a.optStr(2, "memo")
	return name, receiver, memo, err
}

func baseQuote(a args, i int) (string, string, error) {
	base, err := a.str(i, "base")
	if err != nil {
		return "", "", err
	}
	quote, err := a.str(i+1, "quote")
	return base, quote, err
}

func precisionArg(a args, i int) (uint8, error) {
	v, err := a.uint(i, "precision")
	if err != nil {
		return 0, err
	}
	if v > 18 {
		return 0, common.Invalid("precision %d exceeds 18", v)
	}
	return uint8(v), nil
}
