package yieldd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldplus/native/common"
	"yieldplus/native/metadata"
)

func parseArgs(t *testing.T, body string) args {
	t.Helper()
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	return args(list)
}

func TestArgsScalars(t *testing.T) {
	a := parseArgs(t, `[" myprotocol ", 500, "600", null, true]`)

	name, err := a.str(0, "protocol")
	require.NoError(t, err)
	require.Equal(t, "myprotocol", name)

	n, err := a.uint(1, "rate")
	require.NoError(t, err)
	require.Equal(t, uint64(500), n)
	n, err = a.uint(2, "rate")
	require.NoError(t, err)
	require.Equal(t, uint64(600), n)

	_, err = a.str(3, "missing")
	require.ErrorIs(t, err, common.ErrValidation)
	s, err := a.optStr(3, "missing")
	require.NoError(t, err)
	require.Empty(t, s)
	v, err := a.optValue(3, "value")
	require.NoError(t, err)
	require.Nil(t, v)

	b, err := a.boolean(4, "required")
	require.NoError(t, err)
	require.True(t, b)

	_, err = a.uint(0, "rate")
	require.ErrorIs(t, err, common.ErrValidation)
	require.ErrorIs(t, a.expect(4), common.ErrValidation)
	require.NoError(t, a.expect(5))
}

func TestArgsAssets(t *testing.T) {
	a := parseArgs(t, `["1.0000 EOS", "4,EOS", "4,EOS@eosio.token", "1.0 EOS EOS"]`)

	qty, err := a.asset(0, "quantity")
	require.NoError(t, err)
	require.Equal(t, "1.0000 EOS", qty.String())

	sym, err := a.symbol(1, "symbol")
	require.NoError(t, err)
	require.Equal(t, "EOS", sym.Code)

	ext, err := a.extSymbol(2, "rewards")
	require.NoError(t, err)
	require.Equal(t, "eosio.token", ext.Contract)

	_, err = a.asset(3, "quantity")
	require.Error(t, err)
}

func TestArgsPairs(t *testing.T) {
	a := parseArgs(t, `[{"website": "https://example.com", "name": "My Protocol"}, [{"key": "name", "value": "x"}], "oops"]`)

	pairs, err := a.pairs(0, "metadata")
	require.NoError(t, err)
	require.Equal(t, []metadata.Pair{
		{Key: "name", Value: "My Protocol"},
		{Key: "website", Value: "https://example.com"},
	}, pairs)

	pairs, err = a.pairs(1, "metadata")
	require.NoError(t, err)
	require.Equal(t, []metadata.Pair{{Key: "name", Value: "x"}}, pairs)

	_, err = a.pairs(2, "metadata")
	require.ErrorIs(t, err, common.ErrValidation)

	pairs, err = a.pairs(3, "metadata")
	require.NoError(t, err)
	require.Empty(t, pairs)
}

func TestArgsLists(t *testing.T) {
	a := parseArgs(t, `["myprotocol", ["vault.a", "vault.b"]]`)
	name, list, err := nameAndList(a, "protocol", "contracts")
	require.NoError(t, err)
	require.Equal(t, "myprotocol", name)
	require.Equal(t, []string{"vault.a", "vault.b"}, list)

	name, list, err = nameAndList(a[:1], "protocol", "contracts")
	require.NoError(t, err)
	require.Equal(t, "myprotocol", name)
	require.Empty(t, list)
}

func TestPrecisionArg(t *testing.T) {
	a := parseArgs(t, `[4, 19]`)
	p, err := precisionArg(a, 0)
	require.NoError(t, err)
	require.Equal(t, uint8(4), p)
	_, err = precisionArg(a, 1)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestDecodeArgsBodies(t *testing.T) {
	list, err := decodeArgs([]byte(`["a", 1]`))
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = decodeArgs([]byte(`{"args": ["a"]}`))
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = decodeArgs([]byte("  "))
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = decodeArgs([]byte(`"a"`))
	require.Error(t, err)
}
