// Package reconcile maps remote checkout outcomes onto local transaction
// transitions.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/programmierbude/trxps-gateway/internal/domain"
)

// StateMachine applies transaction actions. A refused transition returns an
// error wrapping ErrReconciliationConflict; a transition into the current
// state returns Changed false and no error.
type StateMachine interface {
	Transition(ctx context.Context, transactionID string, action domain.TransactionAction) (domain.TransitionResult, error)
}

// Status is the reconciled payment status.
type Status string

// Statuses.
const (
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
	StatusOpen     Status = "open"
)

// Result of one reconciliation.
type Result struct {
	Status  Status
	Changed bool
	From    domain.TransactionState
	To      domain.TransactionState
}

// Reconciler drives the transaction state machine from gateway outcomes.
type Reconciler struct {
	machine StateMachine
	logger  *slog.Logger
}

// New creates a Reconciler.
func New(machine StateMachine, logger *slog.Logger) *Reconciler {
	return &Reconciler{machine: machine, logger: logger}
}

// Reconcile applies the outcome of checkout to the transaction. It performs
// no network I/O and is safe to repeat: a repeated outcome reports Changed
// false.
func (r *Reconciler) Reconcile(ctx context.Context, transactionID string, checkout *domain.RemoteCheckout) (Result, error) {
	outcome := checkout.Outcome()

	var (
		action domain.TransactionAction
		status Status
	)
	switch outcome {
	case domain.OutcomePaid:
		action, status = domain.ActionPay, StatusPaid
	case domain.OutcomeCanceled:
		action, status = domain.ActionReopen, StatusCanceled
	default:
		return Result{Status: StatusOpen}, nil
	}

	res, err := r.machine.Transition(ctx, transactionID, action)
	if err != nil {
		r.logger.WarnContext(ctx, "transaction transition refused",
			slog.String("transaction_id", transactionID),
			slog.String("checkout_id", checkout.ID),
			slog.String("outcome", string(outcome)),
			slog.String("error", err.Error()),
		)
		return Result{Status: status}, fmt.Errorf("reconcile transaction %s: %w", transactionID, err)
	}

	if res.Changed {
		r.logger.InfoContext(ctx, "transaction reconciled",
			slog.String("transaction_id", transactionID),
			slog.String("checkout_id", checkout.ID),
			slog.String("from", string(res.From)),
			slog.String("to", string(res.To)),
		)
	}

	return Result{Status: status, Changed: res.Changed, From: res.From, To: res.To}, nil
}
