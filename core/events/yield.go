package events

import (
	"strconv"
	"strings"

	"yieldplus/core/types"
)

const (
	// TypeProtocolCreated is emitted the first time a protocol registers.
	TypeProtocolCreated = "yield.protocol.created"
	// TypeProtocolStatus is emitted whenever a protocol's lifecycle status
	// changes.
	TypeProtocolStatus = "yield.protocol.status"
	// TypeProtocolMetadata is emitted when a protocol's category or metadata
	// is written.
	TypeProtocolMetadata = "yield.protocol.metadata"
	// TypeProtocolContracts is emitted when the linked contract set changes.
	TypeProtocolContracts = "yield.protocol.contracts"
	// TypeProtocolErased is emitted when a protocol unregisters.
	TypeProtocolErased = "yield.protocol.erased"
	// TypeProtocolRewards is emitted when an oracle report accrues rewards to
	// a protocol.
	TypeProtocolRewards = "yield.protocol.rewards"
	// TypeProtocolClaimed is emitted when a protocol settles its balance.
	TypeProtocolClaimed = "yield.protocol.claimed"
)

// ProtocolCreated captures a new registration.
type ProtocolCreated struct {
	Protocol string
	Category string
}

// EventType implements the Event interface.
func (ProtocolCreated) EventType() string { return TypeProtocolCreated }

// Event converts the registration to the generic event payload.
func (e ProtocolCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeProtocolCreated,
		Attributes: map[string]string{
			"protocol": e.Protocol,
			"category": e.Category,
		},
	}
}

// ProtocolStatus captures a lifecycle transition.
type ProtocolStatus struct {
	Protocol string
	From     string
	To       string
}

// EventType implements the Event interface.
func (ProtocolStatus) EventType() string { return TypeProtocolStatus }

// Event converts the transition to the generic event payload.
func (e ProtocolStatus) Event() *types.Event {
	return &types.Event{
		Type: TypeProtocolStatus,
		Attributes: map[string]string{
			"protocol": e.Protocol,
			"from":     e.From,
			"status":   e.To,
		},
	}
}

// ProtocolMetadata captures the keys touched by a metadata write.
type ProtocolMetadata struct {
	Protocol string
	Category string
	Keys     []string
}

// EventType implements the Event interface.
func (ProtocolMetadata) EventType() string { return TypeProtocolMetadata }

// Event converts the metadata write to the generic event payload.
func (e ProtocolMetadata) Event() *types.Event {
	return &types.Event{
		Type: TypeProtocolMetadata,
		Attributes: map[string]string{
			"protocol": e.Protocol,
			"category": e.Category,
			"keys":     strings.Join(e.Keys, ","),
		},
	}
}

// ProtocolContracts captures the new linked contract set.
type ProtocolContracts struct {
	Protocol  string
	Contracts []string
}

// EventType implements the Event interface.
func (ProtocolContracts) EventType() string { return TypeProtocolContracts }

// Event converts the contract update to the generic event payload.
func (e ProtocolContracts) Event() *types.Event {
	return &types.Event{
		Type: TypeProtocolContracts,
		Attributes: map[string]string{
			"protocol":  e.Protocol,
			"contracts": strings.Join(e.Contracts, ","),
		},
	}
}

// ProtocolErased captures an unregistration.
type ProtocolErased struct {
	Protocol string
}

// EventType implements the Event interface.
func (ProtocolErased) EventType() string { return TypeProtocolErased }

// Event converts the unregistration to the generic event payload.
func (e ProtocolErased) Event() *types.Event {
	return &types.Event{
		Type:       TypeProtocolErased,
		Attributes: map[string]string{"protocol": e.Protocol},
	}
}

// ProtocolRewards captures a single accrual. Amounts are rendered in their
// asset notation, e.g. "5.7077 EOS".
type ProtocolRewards struct {
	Protocol string
	PeriodAt uint64
	Elapsed  uint64
	TVL      string
	USD      string
	Reward   string
	Balance  string
}

// EventType implements the Event interface.
func (ProtocolRewards) EventType() string { return TypeProtocolRewards }

// Event converts the accrual to the generic event payload.
func (e ProtocolRewards) Event() *types.Event {
	return &types.Event{
		Type: TypeProtocolRewards,
		Attributes: map[string]string{
			"protocol":  e.Protocol,
			"period_at": strconv.FormatUint(e.PeriodAt, 10),
			"elapsed":   strconv.FormatUint(e.Elapsed, 10),
			"tvl":       e.TVL,
			"usd":       e.USD,
			"reward":    e.Reward,
			"balance":   e.Balance,
		},
	}
}

// ProtocolClaimed captures a protocol settlement.
type ProtocolClaimed struct {
	Protocol string
	Receiver string
	Amount   string
	Memo     string
}

// EventType implements the Event interface.
func (ProtocolClaimed) EventType() string { return TypeProtocolClaimed }

// Event converts the settlement to the generic event payload.
func (e ProtocolClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeProtocolClaimed,
		Attributes: map[string]string{
			"protocol": e.Protocol,
			"receiver": e.Receiver,
			"amount":   e.Amount,
			"memo":     e.Memo,
		},
	}
}
