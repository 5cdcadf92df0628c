package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldplus/core/state"
	"yieldplus/native/common"
	"yieldplus/storage"
)

const admin = "admin.yield"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(state.NewManager(storage.NewMemDB()), admin)
	signers := common.NewSigners(admin)
	for _, mk := range []MetaKey{
		{Key: "name", Required: true, Type: TypeString},
		{Key: "website", Required: true, Type: TypeURL},
		{Key: "description", Type: TypeString},
		{Key: "logo", Type: TypeIPFS},
		{Key: "since", Type: TypeInteger},
		{Key: "github", Type: TypeName},
		{Key: "category", Type: TypeCategory},
	} {
		require.NoError(t, s.SetMetaKey(signers, mk))
	}
	require.NoError(t, s.SetCategory(signers, Category{Name: "dexes", Description: "Decentralized exchanges"}))
	return s
}

func validPairs() []Pair {
	return []Pair{
		{Key: "name", Value: "My Protocol"},
		{Key: "website", Value: "https://myprotocol.com"},
	}
}

func TestSchemaAdministration(t *testing.T) {
	s := newTestStore(t)

	err := s.SetMetaKey(common.NewSigners("mallory"), MetaKey{Key: "x"})
	require.ErrorIs(t, err, common.ErrUnauthorized)

	keys, err := s.MetaKeys()
	require.NoError(t, err)
	require.Len(t, keys, 7)
	require.Equal(t, "name", keys[0].Key)

	require.NoError(t, s.DelMetaKey(common.NewSigners(admin), "since"))
	keys, err = s.MetaKeys()
	require.NoError(t, err)
	require.Len(t, keys, 6)

	require.ErrorIs(t, s.DelMetaKey(common.NewSigners(admin), "since"), common.ErrNotFound)
	require.ErrorIs(t, s.SetMetaKey(common.NewSigners(admin), MetaKey{Key: "Bad Key"}), common.ErrValidation)
	require.ErrorIs(t, s.SetMetaKey(common.NewSigners(admin), MetaKey{Key: "x", Type: "blob"}), common.ErrValidation)

	cats, err := s.Categories()
	require.NoError(t, err)
	require.Equal(t, []Category{{Name: "dexes", Description: "Decentralized exchanges"}}, cats)
	require.NoError(t, s.RequireCategory("dexes"))
	require.ErrorIs(t, s.RequireCategory("lending"), common.ErrValidation)
	require.NoError(t, s.DelCategory(common.NewSigners(admin), "dexes"))
	require.ErrorIs(t, s.RequireCategory("dexes"), common.ErrValidation)
}

func TestValidate(t *testing.T) {
	s := newTestStore(t)

	entries, err := s.Validate(validPairs())
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Key: "name", Type: TypeString, Value: "My Protocol"},
		{Key: "website", Type: TypeURL, Value: "https://myprotocol.com"},
	}, entries)

	_, err = s.Validate(append(validPairs(), Pair{Key: "color", Value: "blue"}))
	require.ErrorIs(t, err, common.ErrValidation)
	require.Contains(t, err.Error(), "[key=color] is not valid")

	_, err = s.Validate(validPairs()[:1])
	require.ErrorIs(t, err, common.ErrValidation)
	require.Contains(t, err.Error(), "[key=website] is required and missing")

	_, err = s.Validate(append(validPairs(), Pair{Key: "name", Value: "again"}))
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestValidateNormalizesValues(t *testing.T) {
	s := newTestStore(t)

	decomposed := "Cafe\u0301 Swap"
	entries, err := s.Validate([]Pair{
		{Key: "name", Value: decomposed},
		{Key: "website", Value: "https://myprotocol.com"},
	})
	require.NoError(t, err)
	require.Equal(t, "Caf\u00e9 Swap", entries[0].Value)
	require.Len(t, entries[0].Value, len(decomposed)-1)

	long := strings.Repeat("e\u0301", MaxValueBytes/2)
	require.Greater(t, len(long), MaxValueBytes)
	entries, err = s.Validate([]Pair{
		{Key: "name", Value: long},
		{Key: "website", Value: "https://myprotocol.com"},
	})
	require.NoError(t, err)
	require.LessOrEqual(t, len(entries[0].Value), MaxValueBytes)
}

func TestValidateTypes(t *testing.T) {
	s := newTestStore(t)
	cases := []struct {
		key, value string
		ok         bool
	}{
		{"since", "2021", true},
		{"since", "twenty", false},
		{"website", "ftp://example.com", false},
		{"website", "not a url", false},
		{"logo", "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", true},
		{"logo", "QmNotReallyACidAtAllButLongEnoughToLookLikeOne", false},
		{"logo", "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", true},
		{"logo", "ipfs", false},
		{"github", "myprotocol", true},
		{"github", "MyProtocol", false},
		{"category", "dexes", true},
		{"category", "lending", false},
		{"description", strings.Repeat("x", MaxDescriptionBytes), true},
		{"description", strings.Repeat("x", MaxDescriptionBytes+1), false},
	}
	for _, tc := range cases {
		pairs := validPairs()
		if tc.key == "website" {
			pairs = pairs[:1]
		}
		pairs = append(pairs, Pair{Key: tc.key, Value: tc.value})
		_, err := s.Validate(pairs)
		if tc.ok {
			require.NoError(t, err, "%s=%s", tc.key, tc.value)
		} else {
			require.ErrorIs(t, err, common.ErrValidation, "%s=%s", tc.key, tc.value)
		}
	}

	pairs := append(validPairs()[:1], Pair{Key: "website", Value: "https://" + strings.Repeat("a", MaxValueBytes) + ".com"})
	_, err := s.Validate(pairs)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestApply(t *testing.T) {
	s := newTestStore(t)
	current, err := s.Validate(validPairs())
	require.NoError(t, err)

	desc := "An AMM"
	next, err := s.Apply(current, "description", &desc)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "website", "description"}, Keys(next))

	renamed := "Renamed"
	next, err = s.Apply(next, "name", &renamed)
	require.NoError(t, err)
	v, ok := Lookup(next, "name")
	require.True(t, ok)
	require.Equal(t, "Renamed", v)

	next, err = s.Apply(next, "description", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "website"}, Keys(next))

	_, err = s.Apply(next, "website", nil)
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Apply(next, "color", &desc)
	require.ErrorIs(t, err, common.ErrValidation)
	require.Contains(t, err.Error(), "[key=color] is not valid")

	_, err = s.Apply(next, "logo", nil)
	require.ErrorIs(t, err, common.ErrNotFound)
}
