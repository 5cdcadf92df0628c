package events

import (
	"strconv"
	"strings"

	"yieldplus/core/types"
)

const (
	TypeOracleCreated      = "oracle.created"
	TypeOracleStatus       = "oracle.status"
	TypeOracleMetadata     = "oracle.metadata"
	TypeOracleErased       = "oracle.erased"
	TypeOracleUpdated      = "oracle.updated"
	TypeOracleRewards      = "oracle.rewards"
	TypeOracleClaimed      = "oracle.claimed"
	TypeOracleTokenAdded   = "oracle.token.added"
	TypeOracleTokenRemoved = "oracle.token.removed"
)

// OracleCreated captures a new oracle registration.
type OracleCreated struct {
	Oracle string
}

// EventType implements the Event interface.
func (OracleCreated) EventType() string { return TypeOracleCreated }

func (e OracleCreated) Event() *types.Event {
	return &types.Event{Type: TypeOracleCreated, Attributes: map[string]string{"oracle": e.Oracle}}
}

// OracleStatus captures an oracle lifecycle transition.
type OracleStatus struct {
	Oracle string
	From   string
	To     string
}

// EventType implements the Event interface.
func (OracleStatus) EventType() string { return TypeOracleStatus }

func (e OracleStatus) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleStatus,
		Attributes: map[string]string{
			"oracle": e.Oracle,
			"from":   e.From,
			"status": e.To,
		},
	}
}

// OracleMetadata captures the keys touched by an oracle metadata write.
type OracleMetadata struct {
	Oracle string
	Keys   []string
}

// EventType implements the Event interface.
func (OracleMetadata) EventType() string { return TypeOracleMetadata }

func (e OracleMetadata) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleMetadata,
		Attributes: map[string]string{
			"oracle": e.Oracle,
			"keys":   strings.Join(e.Keys, ","),
		},
	}
}

// OracleErased captures an oracle unregistration.
type OracleErased struct {
	Oracle string
}

// EventType implements the Event interface.
func (OracleErased) EventType() string { return TypeOracleErased }

func (e OracleErased) Event() *types.Event {
	return &types.Event{Type: TypeOracleErased, Attributes: map[string]string{"oracle": e.Oracle}}
}

// OracleUpdated captures the period snapshot an oracle produced for a
// protocol.
type OracleUpdated struct {
	Oracle    string
	Protocol  string
	Timestamp uint64
	TVL       string
	USD       string
	Reward    string
	Periods   int
}

// EventType implements the Event interface.
func (OracleUpdated) EventType() string { return TypeOracleUpdated }

func (e OracleUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleUpdated,
		Attributes: map[string]string{
			"oracle":    e.Oracle,
			"protocol":  e.Protocol,
			"timestamp": strconv.FormatUint(e.Timestamp, 10),
			"tvl":       e.TVL,
			"usd":       e.USD,
			"reward":    e.Reward,
			"periods":   strconv.Itoa(e.Periods),
		},
	}
}

// OracleRewards captures the flat incentive credited for an update.
type OracleRewards struct {
	Oracle  string
	Amount  string
	Balance string
}

// EventType implements the Event interface.
func (OracleRewards) EventType() string { return TypeOracleRewards }

func (e OracleRewards) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleRewards,
		Attributes: map[string]string{
			"oracle":  e.Oracle,
			"amount":  e.Amount,
			"balance": e.Balance,
		},
	}
}

// OracleClaimed captures an oracle settlement.
type OracleClaimed struct {
	Oracle   string
	Receiver string
	Amount   string
	Memo     string
}

// EventType implements the Event interface.
func (OracleClaimed) EventType() string { return TypeOracleClaimed }

func (e OracleClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeOracleClaimed,
		Attributes: map[string]string{
			"oracle":   e.Oracle,
			"receiver": e.Receiver,
			"amount":   e.Amount,
			"memo":     e.Memo,
		},
	}
}

// OracleTokenAdded captures a token registration or overwrite.
type OracleTokenAdded struct {
	Symbol    string
	Contract  string
	FeedIndex uint64
	PairID    string
}

// EventType implements the Event interface.
func (OracleTokenAdded) EventType() string { return TypeOracleTokenAdded }

func (e OracleTokenAdded) Event() *types.Event {
	attrs := map[string]string{
		"symbol":   e.Symbol,
		"contract": e.Contract,
	}
	if e.FeedIndex != 0 {
		attrs["feed_index"] = strconv.FormatUint(e.FeedIndex, 10)
	}
	if e.PairID != "" {
		attrs["pair_id"] = e.PairID
	}
	return &types.Event{Type: TypeOracleTokenAdded, Attributes: attrs}
}

// OracleTokenRemoved captures a token deletion.
type OracleTokenRemoved struct {
	Symbol string
}

// EventType implements the Event interface.
func (OracleTokenRemoved) EventType() string { return TypeOracleTokenRemoved }

func (e OracleTokenRemoved) Event() *types.Event {
	return &types.Event{Type: TypeOracleTokenRemoved, Attributes: map[string]string{"symbol": e.Symbol}}
}
