package yield

import (
	"testing"

	"github.com/stretchr/testify/require"

	"yieldplus/core/events"
	"yieldplus/core/state"
	"yieldplus/native/asset"
	"yieldplus/native/bank"
	"yieldplus/native/common"
	"yieldplus/native/lifecycle"
	"yieldplus/native/metadata"
	"yieldplus/storage"
)

const (
	self     = "eosio.yield"
	oracleC  = "oracle.yield"
	adminC   = "admin.yield"
	tokenC   = "eosio.token"
	protocol = "myprotocol"
)

var eosSym = asset.ExtendedSymbol{Symbol: asset.MustSymbol("EOS", 4), Contract: tokenC}

type fixture struct {
	st     *state.Manager
	reg    *Registry
	ledger *bank.Ledger
	schema *metadata.Store
	clock  *common.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	clock := common.NewManualClock(1_700_000_000)
	schema := metadata.NewStore(st, adminC)
	adminSigners := common.NewSigners(adminC)
	require.NoError(t, schema.SetMetaKey(adminSigners, metadata.MetaKey{Key: "name", Required: true, Type: metadata.TypeString}))
	require.NoError(t, schema.SetMetaKey(adminSigners, metadata.MetaKey{Key: "website", Required: true, Type: metadata.TypeURL}))
	require.NoError(t, schema.SetMetaKey(adminSigners, metadata.MetaKey{Key: "description", Type: metadata.TypeString}))
	require.NoError(t, schema.SetCategory(adminSigners, metadata.Category{Name: "dexes"}))
	require.NoError(t, schema.SetCategory(adminSigners, metadata.Category{Name: "lending"}))

	ledger := bank.NewLedger(st)
	require.NoError(t, ledger.Create(common.NewSigners(tokenC), tokenC, "eosio", asset.MustParse("10000000000.0000 EOS")))

	reg := NewRegistry(st, self, schema, ledger, clock)
	return &fixture{st: st, reg: reg, ledger: ledger, schema: schema, clock: clock}
}

func (f *fixture) init(t *testing.T) {
	t.Helper()
	require.NoError(t, f.reg.Init(common.NewSigners(self), eosSym, oracleC, adminC))
	require.NoError(t, f.reg.SetRate(common.NewSigners(self), 500, asset.MustParse("200000.0000 EOS"), asset.MustParse("6000000.0000 EOS")))
}

func (f *fixture) register(t *testing.T) {
	t.Helper()
	require.NoError(t, f.reg.RegProtocol(common.NewSigners(protocol), protocol, "dexes", validMetadata()))
}

func validMetadata() []metadata.Pair {
	return []metadata.Pair{
		{Key: "name", Value: "My Protocol"},
		{Key: "website", Value: "https://myprotocol.com"},
	}
}

func (f *fixture) status(t *testing.T) lifecycle.Status {
	t.Helper()
	p, err := f.reg.Protocol(protocol)
	require.NoError(t, err)
	return p.Status
}

func TestActionsBeforeInit(t *testing.T) {
	f := newFixture(t)
	err := f.reg.RegProtocol(common.NewSigners(protocol), protocol, "dexes", validMetadata())
	require.ErrorIs(t, err, common.ErrNotInitialized)
	require.EqualError(t, err, "eosio.yield is not initialized")

	err = f.reg.SetRate(common.NewSigners(self), 500, asset.MustParse("1.0000 EOS"), asset.MustParse("2.0000 EOS"))
	require.ErrorIs(t, err, common.ErrNotInitialized)
	_, err = f.reg.Config()
	require.ErrorIs(t, err, common.ErrNotInitialized)
}

func TestInitAndSetRate(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.reg.Init(common.NewSigners("mallory"), eosSym, oracleC, adminC), common.ErrUnauthorized)
	f.init(t)

	cfg, err := f.reg.Config()
	require.NoError(t, err)
	require.Equal(t, uint64(500), cfg.AnnualRate)
	require.Equal(t, "6000000.0000 EOS", cfg.MaxTVLReport.String())

	other := asset.ExtendedSymbol{Symbol: asset.MustSymbol("USDT", 4), Contract: "tethertether"}
	require.ErrorIs(t, f.reg.Init(common.NewSigners(self), other, oracleC, adminC), common.ErrValidation)
	require.NoError(t, f.reg.Init(common.NewSigners(self), eosSym, oracleC, "newadmin"))

	signers := common.NewSigners(self)
	require.ErrorIs(t, f.reg.SetRate(signers, 1_001, asset.MustParse("1.0000 EOS"), asset.MustParse("2.0000 EOS")), common.ErrValidation)
	require.ErrorIs(t, f.reg.SetRate(signers, 500, asset.MustParse("3.0000 EOS"), asset.MustParse("2.0000 EOS")), common.ErrValidation)
	require.ErrorIs(t, f.reg.SetRate(signers, 500, asset.MustParse("1.00 USD"), asset.MustParse("2.0000 EOS")), common.ErrValidation)
	require.NoError(t, f.reg.SetRate(signers, 1_000, asset.MustParse("2.0000 EOS"), asset.MustParse("2.0000 EOS")))
}

func TestRegisterProtocol(t *testing.T) {
	f := newFixture(t)
	f.init(t)

	require.ErrorIs(t, f.reg.RegProtocol(common.NewSigners("other"), protocol, "dexes", validMetadata()), common.ErrUnauthorized)
	require.ErrorIs(t, f.reg.RegProtocol(common.NewSigners(protocol), protocol, "casinos", validMetadata()), common.ErrValidation)
	f.register(t)

	p, err := f.reg.Protocol(protocol)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StatusPending, p.Status)
	require.Equal(t, "dexes", p.Category)
	require.Equal(t, []string{protocol}, p.Contracts)
	require.Equal(t, []string{"name", "website"}, metadata.Keys(p.Metadata))
	require.Equal(t, uint64(1_700_000_000), p.CreatedAt)
	require.Equal(t, "0.0000 EOS", p.Balance.Quantity.String())

	evts := f.st.Events()
	require.Equal(t, events.TypeProtocolCreated, evts[0].Type)
	require.Equal(t, events.TypeProtocolStatus, evts[1].Type)
	require.Equal(t, "pending", evts[1].Attributes["status"])

	all, err := f.reg.Protocols()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestApproveDenyLifecycle(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	f.register(t)
	admin := common.NewSigners(adminC)

	require.ErrorIs(t, f.reg.Approve(common.NewSigners(protocol), protocol), common.ErrUnauthorized)
	require.ErrorIs(t, f.reg.Approve(admin, "ghost"), common.ErrNotFound)

	require.NoError(t, f.reg.Approve(admin, protocol))
	require.Equal(t, lifecycle.StatusActive, f.status(t))
	active, err := f.reg.ActiveProtocols()
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, f.reg.Deny(admin, protocol))
	require.Equal(t, lifecycle.StatusDenied, f.status(t))
	active, err = f.reg.ActiveProtocols()
	require.NoError(t, err)
	require.Empty(t, active)

	require.ErrorIs(t, f.reg.Approve(admin, protocol), common.ErrInvalidState)

	// resubmission goes back to review, never straight to active
	f.register(t)
	require.Equal(t, lifecycle.StatusPending, f.status(t))
}

func TestEditWhileDeniedResubmits(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	f.register(t)
	admin := common.NewSigners(adminC)
	signers := common.NewSigners(protocol)

	require.NoError(t, f.reg.Deny(admin, protocol))
	desc := "An AMM"
	require.NoError(t, f.reg.SetMetaKey(signers, protocol, "description", &desc))
	require.Equal(t, lifecycle.StatusPending, f.status(t))

	require.NoError(t, f.reg.Approve(admin, protocol))
	require.NoError(t, f.reg.SetCategory(signers, protocol, "lending"))
	require.Equal(t, lifecycle.StatusActive, f.status(t))

	require.NoError(t, f.reg.Deny(admin, protocol))
	require.NoError(t, f.reg.SetMetadata(signers, protocol, validMetadata()))
	require.Equal(t, lifecycle.StatusPending, f.status(t))
}

func TestEditResetsActiveWhenConfigured(t *testing.T) {
	f := newFixture(t)
	f.reg.SetMachine(lifecycle.Machine{ResetActiveOnEdit: true})
	f.init(t)
	f.register(t)
	require.NoError(t, f.reg.Approve(common.NewSigners(adminC), protocol))
	require.NoError(t, f.reg.SetCategory(common.NewSigners(protocol), protocol, "lending"))
	require.Equal(t, lifecycle.StatusPending, f.status(t))

	active, err := f.reg.ActiveProtocols()
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestSetMetaKeyUnknownKeyLeavesMetadata(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	f.register(t)

	value := "blue"
	err := f.reg.SetMetaKey(common.NewSigners(protocol), protocol, "color", &value)
	require.ErrorIs(t, err, common.ErrValidation)
	require.Contains(t, err.Error(), "[key=color] is not valid")

	p, err := f.reg.Protocol(protocol)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "website"}, metadata.Keys(p.Metadata))

	require.ErrorIs(t, f.reg.SetCategory(common.NewSigners(protocol), protocol, "dexes"), common.ErrValidation)
}

func TestSetContracts(t *testing.T) {
	f := newFixture(t)
	f.init(t)

	err := f.reg.SetContracts(common.NewSigners(protocol, "mycontract"), protocol, []string{"mycontract"})
	require.ErrorIs(t, err, common.ErrNotFound)

	f.register(t)
	err = f.reg.SetContracts(common.NewSigners(protocol), protocol, []string{"mycontract"})
	require.ErrorIs(t, err, common.ErrUnauthorized)

	require.NoError(t, f.reg.SetContracts(common.NewSigners(protocol, "mycontract"), protocol, []string{"mycontract"}))
	p, err := f.reg.Protocol(protocol)
	require.NoError(t, err)
	require.Equal(t, []string{"mycontract", protocol}, p.Contracts)

	err = f.reg.SetContracts(common.NewSigners(protocol, "mycontract"), protocol, []string{"mycontract", protocol})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestSetEVMAlwaysRejects(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	f.register(t)
	err := f.reg.SetEVM(common.NewSigners(protocol), protocol, []string{"0x0000000000000000000000000000000000000001"})
	require.ErrorIs(t, err, common.ErrUnimplemented)
	require.Equal(t, common.KindUnimplemented, common.KindOf(err))
}

func accrue(t *testing.T, f *fixture, reward string) {
	t.Helper()
	require.NoError(t, f.reg.Accrue(common.NewSigners(oracleC), Report{
		Protocol:  protocol,
		Timestamp: f.clock.Now(),
		Elapsed:   600,
		TVL:       asset.MustParse("6000000.0000 EOS"),
		USD:       asset.Asset{Amount: 0, Symbol: USD},
		Reward:    asset.MustParse(reward),
	}))
}

func TestAccrue(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	f.register(t)

	report := Report{Protocol: protocol, Timestamp: f.clock.Now(), TVL: asset.MustParse("1.0000 EOS"), Reward: asset.MustParse("1.0000 EOS")}
	require.ErrorIs(t, f.reg.Accrue(common.NewSigners(oracleC), report), common.ErrValidation)

	require.NoError(t, f.reg.Approve(common.NewSigners(adminC), protocol))
	require.ErrorIs(t, f.reg.Accrue(common.NewSigners(protocol), report), common.ErrUnauthorized)

	accrue(t, f, "5.7077 EOS")
	accrue(t, f, "5.7077 EOS")
	p, err := f.reg.Protocol(protocol)
	require.NoError(t, err)
	require.Equal(t, "11.4154 EOS", p.Balance.Quantity.String())
	require.Equal(t, f.clock.Now(), p.PeriodAt)
	require.Equal(t, "6000000.0000 EOS", p.TVL.String())
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	f.register(t)
	signers := common.NewSigners(protocol)

	// zero balance: success without transfer
	require.NoError(t, f.reg.Claim(signers, protocol, "", ""))
	p, err := f.reg.Protocol(protocol)
	require.NoError(t, err)
	require.Zero(t, p.ClaimedAt)

	require.NoError(t, f.reg.Approve(common.NewSigners(adminC), protocol))
	accrue(t, f, "5.7077 EOS")
	require.NoError(t, f.ledger.Issue(common.NewSigners("eosio"), self, asset.ExtendedAsset{Quantity: asset.MustParse("100.0000 EOS"), Contract: tokenC}, ""))

	// denied protocols keep their claim
	require.NoError(t, f.reg.Deny(common.NewSigners(adminC), protocol))
	require.ErrorIs(t, f.reg.Claim(common.NewSigners("mallory"), protocol, "", ""), common.ErrUnauthorized)
	require.NoError(t, f.reg.Claim(signers, protocol, "", ""))

	p, err = f.reg.Protocol(protocol)
	require.NoError(t, err)
	require.True(t, p.Balance.Quantity.IsZero())
	require.Equal(t, f.clock.Now(), p.ClaimedAt)

	received, err := f.ledger.BalanceOf(protocol, eosSym)
	require.NoError(t, err)
	require.Equal(t, "5.7077 EOS", received.String())
	remaining, err := f.ledger.BalanceOf(self, eosSym)
	require.NoError(t, err)
	require.Equal(t, "94.2923 EOS", remaining.String())

	evts := f.st.Events()
	last := evts[len(evts)-1]
	require.Equal(t, events.TypeProtocolClaimed, last.Type)
	require.Equal(t, DefaultClaimMemo, last.Attributes["memo"])
}

func TestClaimRevertsWhenTransferFails(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	f.register(t)
	require.NoError(t, f.reg.Approve(common.NewSigners(adminC), protocol))
	accrue(t, f, "5.7077 EOS")

	// the yield account holds nothing, so the transfer fails
	err := f.reg.Claim(common.NewSigners(protocol), protocol, "receiver", "memo")
	require.ErrorIs(t, err, common.ErrValidation)

	p, err := f.reg.Protocol(protocol)
	require.NoError(t, err)
	require.Equal(t, "5.7077 EOS", p.Balance.Quantity.String())
}

func TestUnregister(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	f.register(t)
	admin := common.NewSigners(adminC)
	signers := common.NewSigners(protocol)

	require.NoError(t, f.reg.Approve(admin, protocol))
	require.ErrorIs(t, f.reg.Unregister(signers, protocol), common.ErrInvalidState)

	accrue(t, f, "1.0000 EOS")
	require.NoError(t, f.reg.Deny(admin, protocol))
	require.ErrorIs(t, f.reg.Unregister(signers, protocol), common.ErrValidation)

	require.NoError(t, f.ledger.Issue(common.NewSigners("eosio"), self, asset.ExtendedAsset{Quantity: asset.MustParse("1.0000 EOS"), Contract: tokenC}, ""))
	require.NoError(t, f.reg.Claim(signers, protocol, "", ""))
	require.NoError(t, f.reg.Unregister(signers, protocol))

	_, err := f.reg.Protocol(protocol)
	require.ErrorIs(t, err, common.ErrNotFound)
	require.EqualError(t, err, `no such record: protocol "myprotocol"`)
	all, err := f.reg.Protocols()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestPausedModuleRejectsActions(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	f.reg.SetPauses(common.NewPauses(moduleName))
	err := f.reg.RegProtocol(common.NewSigners(protocol), protocol, "dexes", validMetadata())
	require.ErrorIs(t, err, common.ErrModulePaused)
}
