// Package oracle is the oracle contract: oracle registration and incentives,
// the token valuation table, per-protocol period history and the reward
// engine that turns holdings into accrued protocol rewards.
package oracle

import (
	"fmt"

	"yieldplus/core/events"
	"yieldplus/core/types"
	"yieldplus/native/asset"
	"yieldplus/native/common"
	"yieldplus/native/lifecycle"
	"yieldplus/native/metadata"
	"yieldplus/native/pricefeed"
	"yieldplus/native/yield"
)

const (
	moduleName = "oracle"
	// DefaultClaimMemo is attached to oracle settlements without a memo.
	DefaultClaimMemo = "Yield+ Oracle reward"
)

type oracleState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	AppendEvent(evt *types.Event)
	Atomic(fn func() error) error
}

// Schema validates oracle metadata.
type Schema interface {
	Validate(pairs []metadata.Pair) ([]metadata.Entry, error)
	Apply(current []metadata.Entry, key string, value *string) ([]metadata.Entry, error)
}

// TokenLedger answers balance queries and settles claims.
type TokenLedger interface {
	BalanceOf(account string, sym asset.ExtendedSymbol) (asset.Asset, error)
	Supply(sym asset.ExtendedSymbol) (asset.Asset, bool, error)
	Transfer(from, to string, qty asset.ExtendedAsset, memo string) error
}

// PriceFeed supplies point-in-time prices.
type PriceFeed interface {
	Price(index uint64, quote string) (pricefeed.Quote, error)
	PriceByPair(pairID string) (pricefeed.Quote, error)
}

// YieldRegistry is the protocol registry the engine reports to.
type YieldRegistry interface {
	Self() string
	Config() (yield.Config, error)
	Protocol(name string) (*yield.Protocol, error)
	ActiveProtocols() ([]*yield.Protocol, error)
	Accrue(signers common.Signers, report yield.Report) error
	OnErase(fn func(name string) error)
}

// Module is the oracle contract.
type Module struct {
	st      oracleState
	self    string
	schema  Schema
	tokens  TokenLedger
	feeds   PriceFeed
	yield   YieldRegistry
	clock   common.Clock
	periods *PeriodLedger
	machine lifecycle.Machine
	pauses  common.PauseView
}

// NewModule binds the oracle contract to state and its collaborators.
func NewModule(st oracleState, self string, schema Schema, tokens TokenLedger, feeds PriceFeed, registry YieldRegistry, clock common.Clock) *Module {
	m := &Module{
		st:      st,
		self:    self,
		schema:  schema,
		tokens:  tokens,
		feeds:   feeds,
		yield:   registry,
		clock:   clock,
		periods: newPeriodLedger(st, MaxPeriods),
		machine: lifecycle.Default,
	}
	if registry != nil {
		registry.OnErase(m.periods.Clear)
	}
	return m
}

// Self returns the oracle contract account.
func (m *Module) Self() string { return m.self }

func (m *Module) SetPauses(p common.PauseView) {
	if m == nil {
		return
	}
	m.pauses = p
}

// SetMachine overrides the lifecycle policy.
func (m *Module) SetMachine(machine lifecycle.Machine) {
	m.machine = machine
}

// Periods exposes the period history.
func (m *Module) Periods() *PeriodLedger { return m.periods }

func (m *Module) emit(p events.Payload) {
	m.st.AppendEvent(p.Event())
}

// Init sets the reward currency and the yield and admin accounts. The reward
// currency cannot change once set.
func (m *Module) Init(signers common.Signers, rewards asset.ExtendedSymbol, yieldContract, adminContract string) error {
	if err := common.RequireAuth(signers, m.self); err != nil {
		return err
	}
	if err := rewards.Validate(); err != nil {
		return err
	}
	if !metadata.IsName(yieldContract) || !metadata.IsName(adminContract) {
		return common.Invalid("yield and admin contracts must be valid names")
	}
	cfg, ok, err := m.loadConfig()
	if err != nil {
		return err
	}
	if ok && cfg.Rewards != rewards {
		return common.Invalid("rewards cannot be modified once set")
	}
	if !ok {
		cfg.RewardPerUpdate = asset.Zero(rewards.Symbol)
	}
	cfg.Rewards = rewards
	cfg.YieldContract = yieldContract
	cfg.AdminContract = adminContract
	return m.st.KVPut(configKey, cfg)
}

// SetReward sets the flat incentive paid per protocol update.
func (m *Module) SetReward(signers common.Signers, rewardPerUpdate asset.Asset) error {
	if err := common.RequireAuth(signers, m.self); err != nil {
		return err
	}
	cfg, err := m.Config()
	if err != nil {
		return err
	}
	if rewardPerUpdate.Symbol != cfg.Rewards.Symbol {
		return common.Invalid("reward per update must be in %s", cfg.Rewards.Symbol)
	}
	cfg.RewardPerUpdate = rewardPerUpdate
	return m.st.KVPut(configKey, cfg)
}

func (m *Module) loadConfig() (Config, bool, error) {
	var cfg Config
	ok, err := m.st.KVGet(configKey, &cfg)
	return cfg, ok, err
}

// Config returns the configuration or a state error before init.
func (m *Module) Config() (Config, error) {
	cfg, ok, err := m.loadConfig()
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Config{}, common.Uninitialized(m.self)
	}
	return cfg, nil
}

func (m *Module) begin() (Config, error) {
	if err := common.Guard(m.pauses, moduleName); err != nil {
		return Config{}, err
	}
	return m.Config()
}

// Oracle loads an oracle by name.
func (m *Module) Oracle(name string) (*Oracle, error) {
	o := new(Oracle)
	ok, err := m.st.KVGet(oracleKey(name), o)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.Missing("oracle", name)
	}
	return o, nil
}

// Oracles lists every oracle in registration order.
func (m *Module) Oracles() ([]*Oracle, error) {
	var names [][]byte
	if err := m.st.KVGetList(oracleIndexKey, &names); err != nil {
		return nil, err
	}
	out := make([]*Oracle, 0, len(names))
	for _, n := range names {
		o, err := m.Oracle(string(n))
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *Module) put(o *Oracle) error {
	return m.st.KVPut(oracleKey(o.Name), o)
}

func (m *Module) transition(o *Oracle, action lifecycle.Action) error {
	next, err := m.machine.Next(o.Status, action)
	if err != nil {
		return fmt.Errorf("oracle %s: %w", o.Name, err)
	}
	if next == o.Status {
		return nil
	}
	m.emit(events.OracleStatus{Oracle: o.Name, From: o.Status.String(), To: next.String()})
	o.Status = next
	return nil
}

// RegOracle registers an oracle or refreshes an existing registration.
func (m *Module) RegOracle(signers common.Signers, name string, pairs []metadata.Pair) error {
	cfg, err := m.begin()
	if err != nil {
		return err
	}
	if err := common.RequireAuth(signers, name); err != nil {
		return err
	}
	if !metadata.IsName(name) {
		return common.Invalid("[oracle=%s] is not a valid name", name)
	}
	entries, err := m.schema.Validate(pairs)
	if err != nil {
		return err
	}
	now := m.clock.Now()
	o := new(Oracle)
	found, err := m.st.KVGet(oracleKey(name), o)
	if err != nil {
		return err
	}
	if !found {
		o = &Oracle{
			Name:      name,
			Balance:   asset.ExtendedAsset{Quantity: asset.Zero(cfg.Rewards.Symbol), Contract: cfg.Rewards.Contract},
			CreatedAt: now,
		}
		m.emit(events.OracleCreated{Oracle: name})
		if err := m.st.KVAppend(oracleIndexKey, []byte(name)); err != nil {
			return err
		}
	}
	if err := m.transition(o, lifecycle.ActionRegister); err != nil {
		return err
	}
	o.Metadata = entries
	o.UpdatedAt = now
	m.emit(events.OracleMetadata{Oracle: name, Keys: metadata.Keys(entries)})
	return m.put(o)
}

func (m *Module) edit(signers common.Signers, name string) (*Oracle, error) {
	if _, err := m.begin(); err != nil {
		return nil, err
	}
	o, err := m.Oracle(name)
	if err != nil {
		return nil, err
	}
	if err := common.RequireAuth(signers, name); err != nil {
		return nil, err
	}
	return o, nil
}

func (m *Module) commitEdit(o *Oracle) error {
	if err := m.transition(o, lifecycle.ActionEdit); err != nil {
		return err
	}
	o.UpdatedAt = m.clock.Now()
	m.emit(events.OracleMetadata{Oracle: o.Name, Keys: metadata.Keys(o.Metadata)})
	return m.put(o)
}

// SetMetadata replaces an oracle's metadata.
func (m *Module) SetMetadata(signers common.Signers, name string, pairs []metadata.Pair) error {
	o, err := m.edit(signers, name)
	if err != nil {
		return err
	}
	entries, err := m.schema.Validate(pairs)
	if err != nil {
		return err
	}
	o.Metadata = entries
	return m.commitEdit(o)
}

// SetMetaKey sets one metadata key, or erases it when value is nil.
func (m *Module) SetMetaKey(signers common.Signers, name, key string, value *string) error {
	o, err := m.edit(signers, name)
	if err != nil {
		return err
	}
	entries, err := m.schema.Apply(o.Metadata, key, value)
	if err != nil {
		return err
	}
	o.Metadata = entries
	return m.commitEdit(o)
}

// Approve activates an oracle. Admin only.
func (m *Module) Approve(signers common.Signers, name string) error {
	return m.review(signers, name, lifecycle.ActionApprove)
}

// Deny rejects an oracle. Admin only.
func (m *Module) Deny(signers common.Signers, name string) error {
	return m.review(signers, name, lifecycle.ActionDeny)
}

func (m *Module) review(signers common.Signers, name string, action lifecycle.Action) error {
	cfg, err := m.begin()
	if err != nil {
		return err
	}
	if err := common.RequireAuth(signers, cfg.AdminContract); err != nil {
		return err
	}
	o, err := m.Oracle(name)
	if err != nil {
		return err
	}
	if err := m.transition(o, action); err != nil {
		return err
	}
	o.UpdatedAt = m.clock.Now()
	return m.put(o)
}

// Unregister deletes an oracle. Its balance must have been claimed.
func (m *Module) Unregister(signers common.Signers, name string) error {
	o, err := m.edit(signers, name)
	if err != nil {
		return err
	}
	if !o.Balance.Quantity.IsZero() {
		return common.Invalid("[oracle=%s] must claim %s before unregister", name, o.Balance.Quantity)
	}
	if err := m.transition(o, lifecycle.ActionUnregister); err != nil {
		return err
	}
	if err := m.st.KVDelete(oracleKey(name)); err != nil {
		return err
	}
	if err := m.st.KVRemove(oracleIndexKey, []byte(name)); err != nil {
		return err
	}
	m.emit(events.OracleErased{Oracle: name})
	return nil
}

// Claim pays out an oracle's balance to receiver, or to the oracle itself
// when receiver is empty. A zero balance succeeds without a transfer.
func (m *Module) Claim(signers common.Signers, name, receiver, memo string) error {
	o, err := m.edit(signers, name)
	if err != nil {
		return err
	}
	if receiver == "" {
		receiver = name
	}
	if !metadata.IsName(receiver) {
		return common.Invalid("[receiver=%s] is not a valid name", receiver)
	}
	if memo == "" {
		memo = DefaultClaimMemo
	}
	if o.Balance.Quantity.IsZero() {
		return nil
	}
	payout := o.Balance
	return m.st.Atomic(func() error {
		o.Balance.Quantity = asset.Zero(payout.Quantity.Symbol)
		o.ClaimedAt = m.clock.Now()
		if err := m.put(o); err != nil {
			return err
		}
		if err := m.tokens.Transfer(m.self, receiver, payout, memo); err != nil {
			return err
		}
		m.emit(events.OracleClaimed{Oracle: name, Receiver: receiver, Amount: payout.Quantity.String(), Memo: memo})
		return nil
	})
}
