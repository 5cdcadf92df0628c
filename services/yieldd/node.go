// Package yieldd hosts the Yield+ contracts behind a single-writer action
// executor, an HTTP surface and an oracle scheduler.
package yieldd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"yieldplus/config"
	"yieldplus/core/events"
	"yieldplus/core/state"
	"yieldplus/core/types"
	"yieldplus/native/bank"
	"yieldplus/native/common"
	"yieldplus/native/lifecycle"
	"yieldplus/native/metadata"
	"yieldplus/native/oracle"
	"yieldplus/native/pricefeed"
	"yieldplus/native/yield"
	"yieldplus/observability"
	telemetry "yieldplus/observability/otel"
	"yieldplus/storage"
)

// ErrThrottled marks actions refused by the per-signer quota.
var ErrThrottled = errors.New("throttled")

// Action is one contract call.
type Action struct {
	Contract string            `json:"contract"`
	Name     string            `json:"action"`
	Args     []json.RawMessage `json:"args"`
	Signers  common.Signers    `json:"-"`
}

// Receipt describes a committed action.
type Receipt struct {
	ID        string         `json:"id"`
	Contract  string         `json:"contract"`
	Action    string         `json:"action"`
	Signers   []string       `json:"signers"`
	Timestamp uint64         `json:"timestamp"`
	Result    interface{}    `json:"result,omitempty"`
	Events    []*types.Event `json:"events"`
}

// Options wires a Node.
type Options struct {
	DB                storage.Database
	Clock             common.Clock
	Accounts          config.Accounts
	ResetActiveOnEdit bool
	Pauses            *common.Pauses
	Quota             common.Quota
	Emitter           events.Emitter
	Logger            *slog.Logger
}

// Node owns the ledger state and serialises every action against it.
type Node struct {
	mu       sync.Mutex
	st       *state.Manager
	clock    common.Clock
	accounts config.Accounts
	schema   *metadata.Store
	ledger   *bank.Ledger
	feeds    *pricefeed.Feeds
	yield    *yield.Registry
	oracle   *oracle.Module
	pauses   *common.Pauses
	quota    common.Quota
	usage    map[string]common.QuotaNow
	emitter  events.Emitter
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewNode builds the contracts over opts.DB.
func NewNode(opts Options) (*Node, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("database required")
	}
	if err := config.Validate(&config.Config{Accounts: opts.Accounts}); err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = &common.SystemClock{}
	}
	pauses := opts.Pauses
	if pauses == nil {
		pauses = common.NewPauses()
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st := state.NewManager(opts.DB)
	schema := metadata.NewStore(st, opts.Accounts.Metadata)
	ledger := bank.NewLedger(st)
	feeds := pricefeed.NewFeeds(st, opts.Accounts.PriceFeed, clock)
	registry := yield.NewRegistry(st, opts.Accounts.Yield, schema, ledger, clock)
	module := oracle.NewModule(st, opts.Accounts.Oracle, schema, ledger, feeds, registry, clock)
	registry.SetPauses(pauses)
	module.SetPauses(pauses)
	if opts.ResetActiveOnEdit {
		machine := lifecycle.Machine{ResetActiveOnEdit: true}
		registry.SetMachine(machine)
		module.SetMachine(machine)
	}

	return &Node{
		st:       st,
		clock:    clock,
		accounts: opts.Accounts,
		schema:   schema,
		ledger:   ledger,
		feeds:    feeds,
		yield:    registry,
		oracle:   module,
		pauses:   pauses,
		quota:    opts.Quota,
		usage:    make(map[string]common.QuotaNow),
		emitter:  emitter,
		logger:   logger,
		tracer:   telemetry.Tracer(),
	}, nil
}

// Accounts returns the contract accounts the node hosts.
func (n *Node) Accounts() config.Accounts { return n.accounts }

// Pauses exposes the runtime module pause switches.
func (n *Node) Pauses() *common.Pauses { return n.pauses }

// Execute runs one action atomically. On success the state is committed and
// the action's events are handed to the emitter.
func (n *Node) Execute(ctx context.Context, act Action) (*Receipt, error) {
	_, span := n.tracer.Start(ctx, "yieldd.execute", trace.WithAttributes(
		attribute.String("contract", act.Contract),
		attribute.String("action", act.Name),
	))
	defer span.End()

	start := time.Now()
	receipt, err := n.execute(act)
	observability.Actions().Observe(act.Contract, act.Name, string(kindOf(err)), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kindOf(err)))
		n.logger.Debug("action rejected",
			slog.String("contract", act.Contract),
			slog.String("action", act.Name),
			slog.String("error", err.Error()))
		return nil, err
	}
	span.SetAttributes(attribute.String("receipt", receipt.ID), attribute.Int("events", len(receipt.Events)))
	return receipt, nil
}

func (n *Node) execute(act Action) (*Receipt, error) {
	h, err := n.resolve(act.Contract, act.Name)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.clock.Now()
	if err := n.admit(act.Signers, now, 1, 0); err != nil {
		observability.Actions().RecordThrottle(act.Contract, "quota_exceeded")
		return nil, err
	}

	var result interface{}
	err = n.st.Atomic(func() error {
		var herr error
		result, herr = h(n, act.Signers, act.Contract, args(act.Args))
		return herr
	})
	if err != nil {
		n.st.Discard()
		return nil, err
	}
	if err := n.admit(act.Signers, now, 0, rowsOf(result)); err != nil {
		n.st.Discard()
		observability.Actions().RecordThrottle(act.Contract, "quota_rows_exceeded")
		return nil, err
	}
	if err := n.st.Commit(); err != nil {
		n.st.Discard()
		return nil, err
	}
	evts := n.st.DrainEvents()
	for _, evt := range evts {
		n.emitter.Emit(events.Generic{Event: evt})
	}
	if evts == nil {
		evts = []*types.Event{}
	}
	return &Receipt{
		ID:        uuid.NewString(),
		Contract:  act.Contract,
		Action:    act.Name,
		Signers:   act.Signers.List(),
		Timestamp: now,
		Result:    result,
		Events:    evts,
	}, nil
}

// admit charges actions and rows to every signer's quota. Nothing is
// charged when any signer is over its limit.
func (n *Node) admit(signers common.Signers, now uint64, actions uint32, rows uint64) error {
	if n.quota.MaxActionsPerEpoch == 0 && n.quota.MaxRowsPerEpoch == 0 {
		return nil
	}
	epoch := n.quota.Epoch(now)
	next := make(map[string]common.QuotaNow, len(signers))
	for _, signer := range signers.List() {
		usage, err := common.CheckQuota(n.quota, epoch, n.usage[signer], actions, rows)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrThrottled, signer, err)
		}
		next[signer] = usage
	}
	for signer, usage := range next {
		n.usage[signer] = usage
	}
	return nil
}

// rowsOf counts the ledger rows an action wrote: one per protocol report for
// the oracle updates, one otherwise.
func rowsOf(result interface{}) uint64 {
	if views, ok := result.([]updateView); ok {
		return uint64(len(views))
	}
	return 1
}

// view runs a read against the current state.
func (n *Node) view(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn()
}

func kindOf(err error) common.Kind {
	if errors.Is(err, ErrThrottled) {
		return "throttled"
	}
	return common.KindOf(err)
}
