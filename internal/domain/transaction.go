package domain

import (
	"time"
)

// TransactionState is a state of the payment transaction state machine.
type TransactionState string

// Transaction states.
const (
	TransactionStateOpen       TransactionState = "open"
	TransactionStateInProgress TransactionState = "in_progress"
	TransactionStatePaid       TransactionState = "paid"
	TransactionStateCanceled   TransactionState = "canceled"
	TransactionStateReopened   TransactionState = "reopened"
)

// TransactionAction is a transition request.
type TransactionAction string

// Transaction actions.
const (
	ActionProcess TransactionAction = "process"
	ActionPay     TransactionAction = "pay"
	ActionReopen  TransactionAction = "reopen"
)

// transition describes one action: the states it may start from and the
// state it leads to.
type transition struct {
	From []TransactionState
	To   TransactionState
}

var transitions = map[TransactionAction]transition{
	ActionProcess: {
		From: []TransactionState{TransactionStateOpen, TransactionStateReopened},
		To:   TransactionStateInProgress,
	},
	ActionPay: {
		From: []TransactionState{TransactionStateOpen, TransactionStateInProgress, TransactionStateReopened},
		To:   TransactionStatePaid,
	},
	ActionReopen: {
		From: []TransactionState{TransactionStateInProgress, TransactionStateCanceled},
		To:   TransactionStateReopened,
	},
}

// allows reports whether the transition may start in state.
func (t transition) allows(state TransactionState) bool {
	for _, s := range t.From {
		if s == state {
			return true
		}
	}
	return false
}

// Apply resolves action against the current state. A transition to the
// state the transaction is already in is a no-op (changed is false).
// ok is false when the state machine refuses the transition.
func Apply(current TransactionState, action TransactionAction) (next TransactionState, changed, ok bool) {
	t, known := transitions[action]
	if !known {
		return current, false, false
	}
	if current == t.To {
		return current, false, true
	}
	if !t.allows(current) {
		return current, false, false
	}
	return t.To, true, true
}

// Transaction is the payment-side counterpart of an order.
type Transaction struct {
	ID            string           `json:"id"`
	OrderID       string           `json:"order_id"`
	PaymentMethod MethodKind       `json:"payment_method"`
	State         TransactionState `json:"state"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TransitionResult is what a state change request produced.
type TransitionResult struct {
	From    TransactionState
	To      TransactionState
	Changed bool
}
