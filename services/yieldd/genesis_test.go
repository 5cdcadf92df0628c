package yieldd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"yieldplus/config"
	"yieldplus/native/common"
)

const sampleGenesis = `
metakeys:
  - key: name
    required: true
    type: string
  - key: website
    type: url
categories:
  - name: dexes
tokens:
  - contract: eosio.token
    issuer: eosio
    max_supply: "10000000000.0000 EOS"
    balances:
      - account: myprotocol
        quantity: "7000000.0000 EOS"
      - account: eosio.yield
        quantity: "1000.0000 EOS"
index_prices:
  - id: 1
    base: EOS
    quote: USD
    price: 12000
    precision: 4
yield:
  rewards: "4,EOS@eosio.token"
  annual_rate: 500
  min_tvl_report: "200000.0000 EOS"
  max_tvl_report: "6000000.0000 EOS"
oracle:
  rewards: "4,EOS@eosio.token"
  reward_per_update: "0.0200 EOS"
  tokens:
    - symbol: "4,EOS"
      contract: eosio.token
`

func TestApplyGenesis(t *testing.T) {
	h := newHarness(t, nil)
	g, err := config.ParseGenesis([]byte(sampleGenesis))
	require.NoError(t, err)

	applied, err := h.node.ApplyGenesis(g)
	require.NoError(t, err)
	require.True(t, applied)
	require.Empty(t, h.sink.types)

	ycfg, err := h.node.YieldConfig()
	require.NoError(t, err)
	require.Equal(t, uint64(500), ycfg.AnnualRate)
	require.Equal(t, oracleAcct, ycfg.OracleContract)

	ocfg, err := h.node.OracleConfig()
	require.NoError(t, err)
	require.Equal(t, "0.0200 EOS", ocfg.RewardPerUpdate)

	bal, err := h.node.Balance(protocol, eosSym)
	require.NoError(t, err)
	require.Equal(t, "7000000.0000 EOS", bal.String())

	applied, err = h.node.ApplyGenesis(g)
	require.NoError(t, err)
	require.False(t, applied)

	h.must(t, yieldAcct, "regprotocol", protocol, protocol, "dexes", map[string]string{"name": "My Protocol"})
	h.must(t, yieldAcct, "approve", adminAcct, protocol)
	h.must(t, oracleAcct, "regoracle", feeder, feeder, map[string]string{"name": "My Oracle"})
	h.must(t, oracleAcct, "approve", adminAcct, feeder)
	receipt := h.must(t, oracleAcct, "update", feeder, feeder, protocol)
	require.Equal(t, "5.7077 EOS", receipt.Result.(updateView).Reward)
}

func TestApplyGenesisIsAtomic(t *testing.T) {
	h := newHarness(t, nil)
	g, err := config.ParseGenesis([]byte(sampleGenesis))
	require.NoError(t, err)
	g.Oracle.RewardPerUpdate = "0.02 EOS"

	applied, err := h.node.ApplyGenesis(g)
	require.Error(t, err)
	require.False(t, applied)

	_, err = h.node.YieldConfig()
	require.ErrorIs(t, err, common.ErrNotInitialized)
	bal, err := h.node.Balance(protocol, eosSym)
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

func TestApplyEmptyGenesis(t *testing.T) {
	h := newHarness(t, nil)
	applied, err := h.node.ApplyGenesis(nil)
	require.NoError(t, err)
	require.False(t, applied)

	g, err := config.LoadGenesis("")
	require.NoError(t, err)
	applied, err = h.node.ApplyGenesis(g)
	require.NoError(t, err)
	require.True(t, applied)
}
