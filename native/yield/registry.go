// Package yield is the protocol registry: the yield program's configuration,
// protocol lifecycle, reward accrual reported by the oracle contract and
// protocol settlement.
package yield

import (
	"fmt"
	"sort"
	"strings"

	"yieldplus/core/events"
	"yieldplus/core/types"
	"yieldplus/native/asset"
	"yieldplus/native/common"
	"yieldplus/native/lifecycle"
	"yieldplus/native/metadata"
)

const (
	moduleName = "yield"
	// DefaultClaimMemo is attached to protocol settlements without a memo.
	DefaultClaimMemo = "Yield+ TVL reward"
)

// USD is the symbol valuations are reported in.
var USD = asset.MustSymbol("USD", asset.PricePrecision)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	AppendEvent(evt *types.Event)
	Atomic(fn func() error) error
}

// Schema validates protocol categories and metadata.
type Schema interface {
	Validate(pairs []metadata.Pair) ([]metadata.Entry, error)
	Apply(current []metadata.Entry, key string, value *string) ([]metadata.Entry, error)
	RequireCategory(name string) error
}

// TokenLedger settles claims.
type TokenLedger interface {
	Transfer(from, to string, qty asset.ExtendedAsset, memo string) error
}

// Registry owns protocol records and the yield configuration.
type Registry struct {
	st      registryState
	self    string
	schema  Schema
	tokens  TokenLedger
	clock   common.Clock
	machine lifecycle.Machine
	pauses  common.PauseView
	erased  []func(name string) error
}

// NewRegistry binds the registry to state. self is the account the registry
// acts as: it signs governance actions and pays claims.
func NewRegistry(st registryState, self string, schema Schema, tokens TokenLedger, clock common.Clock) *Registry {
	return &Registry{
		st:      st,
		self:    self,
		schema:  schema,
		tokens:  tokens,
		clock:   clock,
		machine: lifecycle.Default,
	}
}

// Self returns the registry's account.
func (r *Registry) Self() string { return r.self }

// OnErase registers fn to run inside Unregister, after the protocol record is
// removed. Modules keeping per-protocol state use it to drop that state.
func (r *Registry) OnErase(fn func(name string) error) {
	r.erased = append(r.erased, fn)
}

func (r *Registry) SetPauses(p common.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

// SetMachine overrides the lifecycle policy.
func (r *Registry) SetMachine(m lifecycle.Machine) {
	r.machine = m
}

func (r *Registry) emit(p events.Payload) {
	r.st.AppendEvent(p.Event())
}

func (r *Registry) now() uint64 {
	return r.clock.Now()
}

// Init sets the reward currency and the oracle and admin accounts. The reward
// currency cannot change once set.
func (r *Registry) Init(signers common.Signers, rewards asset.ExtendedSymbol, oracleContract, adminContract string) error {
	if err := common.RequireAuth(signers, r.self); err != nil {
		return err
	}
	if err := rewards.Validate(); err != nil {
		return err
	}
	if !metadata.IsName(oracleContract) || !metadata.IsName(adminContract) {
		return common.Invalid("oracle and admin contracts must be valid names")
	}
	cfg, ok, err := r.loadConfig()
	if err != nil {
		return err
	}
	if ok && !cfg.Rewards.IsZero() && cfg.Rewards != rewards {
		return common.Invalid("rewards cannot be modified once set")
	}
	if !ok {
		cfg = Config{
			MinTVLReport: asset.Zero(rewards.Symbol),
			MaxTVLReport: asset.Zero(rewards.Symbol),
		}
	}
	cfg.Rewards = rewards
	cfg.OracleContract = oracleContract
	cfg.AdminContract = adminContract
	return r.st.KVPut(configKey, cfg)
}

// SetRate sets the annual rate in basis points and the TVL clamp bounds.
func (r *Registry) SetRate(signers common.Signers, annualRate uint64, minTVL, maxTVL asset.Asset) error {
	if err := common.RequireAuth(signers, r.self); err != nil {
		return err
	}
	cfg, err := r.Config()
	if err != nil {
		return err
	}
	if annualRate > asset.MaxAnnualRate {
		return common.Invalid("annual rate %d exceeds maximum %d", annualRate, asset.MaxAnnualRate)
	}
	if minTVL.Symbol != cfg.Rewards.Symbol || maxTVL.Symbol != cfg.Rewards.Symbol {
		return common.Invalid("tvl bounds must be in %s", cfg.Rewards.Symbol)
	}
	if minTVL.Cmp(maxTVL) > 0 {
		return common.Invalid("min tvl %s exceeds max tvl %s", minTVL, maxTVL)
	}
	cfg.AnnualRate = annualRate
	cfg.MinTVLReport = minTVL
	cfg.MaxTVLReport = maxTVL
	return r.st.KVPut(configKey, cfg)
}

func (r *Registry) loadConfig() (Config, bool, error) {
	var cfg Config
	ok, err := r.st.KVGet(configKey, &cfg)
	return cfg, ok, err
}

// Config returns the configuration or a state error before init.
func (r *Registry) Config() (Config, error) {
	cfg, ok, err := r.loadConfig()
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Config{}, common.Uninitialized(r.self)
	}
	return cfg, nil
}

// Protocol loads a protocol by name.
func (r *Registry) Protocol(name string) (*Protocol, error) {
	p := new(Protocol)
	ok, err := r.st.KVGet(protocolKey(name), p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.Missing("protocol", name)
	}
	return p, nil
}

// Protocols lists every protocol in registration order.
func (r *Registry) Protocols() ([]*Protocol, error) {
	return r.list(protocolIndexKey)
}

// ActiveProtocols lists the protocols currently approved.
func (r *Registry) ActiveProtocols() ([]*Protocol, error) {
	return r.list(activeIndexKey)
}

func (r *Registry) list(index []byte) ([]*Protocol, error) {
	var names [][]byte
	if err := r.st.KVGetList(index, &names); err != nil {
		return nil, err
	}
	out := make([]*Protocol, 0, len(names))
	for _, n := range names {
		p, err := r.Protocol(string(n))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Registry) put(p *Protocol) error {
	return r.st.KVPut(protocolKey(p.Name), p)
}

// begin runs the checks common to every protocol action: pause guard and
// initialisation.
func (r *Registry) begin() (Config, error) {
	if err := common.Guard(r.pauses, moduleName); err != nil {
		return Config{}, err
	}
	return r.Config()
}

func (r *Registry) transition(p *Protocol, action lifecycle.Action) error {
	next, err := r.machine.Next(p.Status, action)
	if err != nil {
		return fmt.Errorf("protocol %s: %w", p.Name, err)
	}
	if next == p.Status {
		return nil
	}
	switch {
	case next == lifecycle.StatusActive:
		// Accrual restarts from a nominal period on every activation.
		p.PeriodAt = 0
		err = r.st.KVAppend(activeIndexKey, []byte(p.Name))
	case p.Status == lifecycle.StatusActive:
		err = r.st.KVRemove(activeIndexKey, []byte(p.Name))
	}
	if err != nil {
		return err
	}
	r.emit(events.ProtocolStatus{Protocol: p.Name, From: p.Status.String(), To: next.String()})
	p.Status = next
	return nil
}

// RegProtocol registers a protocol or refreshes an existing registration. A
// denied protocol returns to pending.
func (r *Registry) RegProtocol(signers common.Signers, name, category string, pairs []metadata.Pair) error {
	cfg, err := r.begin()
	if err != nil {
		return err
	}
	if err := common.RequireAuth(signers, name); err != nil {
		return err
	}
	if !metadata.IsName(name) {
		return common.Invalid("[protocol=%s] is not a valid name", name)
	}
	if err := r.schema.RequireCategory(category); err != nil {
		return err
	}
	entries, err := r.schema.Validate(pairs)
	if err != nil {
		return err
	}
	now := r.now()
	p := new(Protocol)
	found, err := r.st.KVGet(protocolKey(name), p)
	if err != nil {
		return err
	}
	if !found {
		p = &Protocol{
			Name:      name,
			Contracts: []string{name},
			EVM:       []string{},
			TVL:       asset.Zero(cfg.Rewards.Symbol),
			USD:       asset.Zero(USD),
			Balance:   asset.ExtendedAsset{Quantity: asset.Zero(cfg.Rewards.Symbol), Contract: cfg.Rewards.Contract},
			CreatedAt: now,
		}
		r.emit(events.ProtocolCreated{Protocol: name, Category: category})
		if err := r.st.KVAppend(protocolIndexKey, []byte(name)); err != nil {
			return err
		}
	}
	if err := r.transition(p, lifecycle.ActionRegister); err != nil {
		return err
	}
	p.Category = category
	p.Metadata = entries
	p.UpdatedAt = now
	r.emit(events.ProtocolMetadata{Protocol: name, Category: category, Keys: metadata.Keys(entries)})
	return r.put(p)
}

// edit loads a protocol for a subject-authorised edit.
func (r *Registry) edit(signers common.Signers, name string) (*Protocol, error) {
	if _, err := r.begin(); err != nil {
		return nil, err
	}
	p, err := r.Protocol(name)
	if err != nil {
		return nil, err
	}
	if err := common.RequireAuth(signers, name); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Registry) commitEdit(p *Protocol) error {
	if err := r.transition(p, lifecycle.ActionEdit); err != nil {
		return err
	}
	p.UpdatedAt = r.now()
	r.emit(events.ProtocolMetadata{Protocol: p.Name, Category: p.Category, Keys: metadata.Keys(p.Metadata)})
	return r.put(p)
}

// SetMetadata replaces a protocol's metadata.
func (r *Registry) SetMetadata(signers common.Signers, name string, pairs []metadata.Pair) error {
	p, err := r.edit(signers, name)
	if err != nil {
		return err
	}
	entries, err := r.schema.Validate(pairs)
	if err != nil {
		return err
	}
	p.Metadata = entries
	return r.commitEdit(p)
}

// SetMetaKey sets one metadata key, or erases it when value is nil.
func (r *Registry) SetMetaKey(signers common.Signers, name, key string, value *string) error {
	p, err := r.edit(signers, name)
	if err != nil {
		return err
	}
	entries, err := r.schema.Apply(p.Metadata, key, value)
	if err != nil {
		return err
	}
	p.Metadata = entries
	return r.commitEdit(p)
}

// SetCategory moves a protocol to another category.
func (r *Registry) SetCategory(signers common.Signers, name, category string) error {
	p, err := r.edit(signers, name)
	if err != nil {
		return err
	}
	if p.Category == category {
		return common.Invalid("[category=%s] was not modified", category)
	}
	if err := r.schema.RequireCategory(category); err != nil {
		return err
	}
	p.Category = category
	return r.commitEdit(p)
}

// SetContracts replaces the accounts whose holdings count toward the
// protocol's TVL. The protocol and every listed account must sign.
func (r *Registry) SetContracts(signers common.Signers, name string, contracts []string) error {
	if _, err := r.begin(); err != nil {
		return err
	}
	p, err := r.Protocol(name)
	if err != nil {
		return err
	}
	set := map[string]struct{}{name: {}}
	for _, c := range contracts {
		c = strings.TrimSpace(c)
		if !metadata.IsName(c) {
			return common.Invalid("[contract=%s] is not a valid name", c)
		}
		set[c] = struct{}{}
	}
	next := make([]string, 0, len(set))
	for c := range set {
		next = append(next, c)
	}
	sort.Strings(next)
	if err := common.RequireAll(signers, next...); err != nil {
		return err
	}
	if equalStrings(next, p.Contracts) {
		return common.Invalid("[contracts] was not modified")
	}
	p.Contracts = next
	if err := r.transition(p, lifecycle.ActionEdit); err != nil {
		return err
	}
	p.UpdatedAt = r.now()
	r.emit(events.ProtocolContracts{Protocol: name, Contracts: cloneStrings(next)})
	return r.put(p)
}

// SetEVM would link EVM addresses to a protocol. It is not supported and
// always fails.
func (r *Registry) SetEVM(signers common.Signers, name string, addresses []string) error {
	return fmt.Errorf("setevm: %w", common.ErrUnimplemented)
}

// Approve activates a protocol. Admin only.
func (r *Registry) Approve(signers common.Signers, name string) error {
	return r.review(signers, name, lifecycle.ActionApprove)
}

// Deny rejects a protocol and stops its accrual. Admin only.
func (r *Registry) Deny(signers common.Signers, name string) error {
	return r.review(signers, name, lifecycle.ActionDeny)
}

func (r *Registry) review(signers common.Signers, name string, action lifecycle.Action) error {
	cfg, err := r.begin()
	if err != nil {
		return err
	}
	if err := common.RequireAuth(signers, cfg.AdminContract); err != nil {
		return err
	}
	p, err := r.Protocol(name)
	if err != nil {
		return err
	}
	if err := r.transition(p, action); err != nil {
		return err
	}
	p.UpdatedAt = r.now()
	return r.put(p)
}

// Unregister deletes a protocol. Its balance must have been claimed.
func (r *Registry) Unregister(signers common.Signers, name string) error {
	p, err := r.edit(signers, name)
	if err != nil {
		return err
	}
	if !p.Balance.Quantity.IsZero() {
		return common.Invalid("[protocol=%s] must claim %s before unregister", name, p.Balance.Quantity)
	}
	if err := r.transition(p, lifecycle.ActionUnregister); err != nil {
		return err
	}
	if err := r.st.KVDelete(protocolKey(name)); err != nil {
		return err
	}
	if err := r.st.KVRemove(protocolIndexKey, []byte(name)); err != nil {
		return err
	}
	if err := r.st.KVRemove(activeIndexKey, []byte(name)); err != nil {
		return err
	}
	for _, fn := range r.erased {
		if err := fn(name); err != nil {
			return err
		}
	}
	r.emit(events.ProtocolErased{Protocol: name})
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
