package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	"github.com/programmierbude/trxps-gateway/pkg/database"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

// casAttempts bounds how often Transition rereads a row another writer
// changed between the read and the update.
const casAttempts = 3

// TransactionRepository implements repository.TransactionRepository using PostgreSQL.
type TransactionRepository struct {
	db database.DBTX
}

// NewTransactionRepository creates a new PostgreSQL-backed transaction repository.
func NewTransactionRepository(db database.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetByID retrieves a transaction by its ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `
		SELECT id, order_id, payment_method, state, created_at, updated_at
		FROM order_transactions
		WHERE id = $1`

	return r.scanTransaction(ctx, "GetTransactionByID", query, id)
}

// GetLatestByOrderID returns the newest transaction of an order.
func (r *TransactionRepository) GetLatestByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	query := `
		SELECT id, order_id, payment_method, state, created_at, updated_at
		FROM order_transactions
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	return r.scanTransaction(ctx, "GetLatestTransaction", query, orderID)
}

// Transition applies action to the transaction. The UPDATE only matches the
// state that was read, so a concurrent writer makes it affect no rows and
// the transition is evaluated again against the new state.
func (r *TransactionRepository) Transition(ctx context.Context, id string, action domain.TransactionAction) (domain.TransitionResult, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		current, err := r.currentState(ctx, id)
		if err != nil {
			return domain.TransitionResult{}, err
		}

		next, changed, allowed := domain.Apply(current, action)
		if !allowed {
			return domain.TransitionResult{From: current, To: current},
				apperrors.ReconciliationConflict(id, string(current), string(action))
		}
		if !changed {
			return domain.TransitionResult{From: current, To: current}, nil
		}

		swapped, err := r.compareAndSet(ctx, id, current, next)
		if err != nil {
			return domain.TransitionResult{}, err
		}
		if swapped {
			return domain.TransitionResult{From: current, To: next, Changed: true}, nil
		}
	}

	return domain.TransitionResult{}, fmt.Errorf("transition transaction %s: %w", id,
		apperrors.Conflict("transaction state changed concurrently"))
}

func (r *TransactionRepository) currentState(ctx context.Context, id string) (_ domain.TransactionState, err error) {
	query := `SELECT state FROM order_transactions WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetTransactionState", query)
	defer func() { end(err) }()

	var state string
	if err = r.db.QueryRow(ctx, query, id).Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("transaction", id)
		}
		return "", fmt.Errorf("read transaction state: %w", err)
	}
	return domain.TransactionState(state), nil
}

func (r *TransactionRepository) compareAndSet(ctx context.Context, id string, from, to domain.TransactionState) (_ bool, err error) {
	query := `
		UPDATE order_transactions
		SET state = $1, updated_at = now()
		WHERE id = $2 AND state = $3`

	ctx, end := database.TraceQuery(ctx, "TransitionTransaction", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("update transaction state: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *TransactionRepository) scanTransaction(ctx context.Context, operation, query string, args ...any) (_ *domain.Transaction, err error) {
	ctx, end := database.TraceQuery(ctx, operation, query)
	defer func() { end(err) }()

	var (
		t             domain.Transaction
		method, state string
	)

	err = r.db.QueryRow(ctx, query, args...).Scan(
		&t.ID,
		&t.OrderID,
		&method,
		&state,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("transaction", fmt.Sprint(args[0]))
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.PaymentMethod = domain.MethodKind(method)
	t.State = domain.TransactionState(state)
	return &t, nil
}
