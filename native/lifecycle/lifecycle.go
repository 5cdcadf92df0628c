// Package lifecycle implements the review state machine shared by protocol
// and oracle records.
package lifecycle

import (
	"fmt"

	"yieldplus/native/common"
)

// Status is the review state of a registered record.
type Status string

const (
	StatusNone    Status = ""
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusDenied  Status = "denied"
)

// Valid reports whether s is one of the stored states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusDenied:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}

// Action is an operation that may move a record between states.
type Action string

const (
	ActionRegister   Action = "register"
	ActionEdit       Action = "edit"
	ActionApprove    Action = "approve"
	ActionDeny       Action = "deny"
	ActionUnregister Action = "unregister"
)

// Machine evaluates transitions. ResetActiveOnEdit sends active records back
// to review when their metadata changes.
type Machine struct {
	ResetActiveOnEdit bool
}

// Default leaves active records active when they are edited.
var Default = Machine{}

// Next returns the state a record in current moves to under action. Removal
// by unregister is reported as StatusNone.
func (m Machine) Next(current Status, action Action) (Status, error) {
	switch action {
	case ActionRegister:
		switch current {
		case StatusNone, StatusDenied:
			return StatusPending, nil
		case StatusPending, StatusActive:
			return current, nil
		}
	case ActionEdit:
		switch current {
		case StatusDenied:
			return StatusPending, nil
		case StatusActive:
			if m.ResetActiveOnEdit {
				return StatusPending, nil
			}
			return current, nil
		case StatusPending:
			return current, nil
		}
	case ActionApprove:
		switch current {
		case StatusPending, StatusActive:
			return StatusActive, nil
		case StatusDenied:
			return current, fmt.Errorf("%w: denied records must re-register before approval", common.ErrInvalidState)
		}
	case ActionDeny:
		if current.Valid() {
			return StatusDenied, nil
		}
	case ActionUnregister:
		switch current {
		case StatusPending, StatusDenied:
			return StatusNone, nil
		case StatusActive:
			return current, fmt.Errorf("%w: active records must be denied before unregister", common.ErrInvalidState)
		}
	default:
		return current, fmt.Errorf("%w: unknown action %q", common.ErrInvalidState, action)
	}
	return current, fmt.Errorf("%w: cannot %s from %s", common.ErrInvalidState, action, current)
}

// Next evaluates a transition with the default machine.
func Next(current Status, action Action) (Status, error) {
	return Default.Next(current, action)
}
