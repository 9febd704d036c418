package repository

import (
	"context"

	"github.com/programmierbude/trxps-gateway/internal/domain"
)

// OrderRepository reads orders and writes the fields this service owns.
type OrderRepository interface {
	// GetByID retrieves an order by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByOrderNumber retrieves an order by its human readable number.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)

	// MergeCustomField sets one key of the order's custom fields and keeps
	// all other keys.
	MergeCustomField(ctx context.Context, orderID, key string, value any) error

	// UpdateState sets the order state.
	UpdateState(ctx context.Context, orderID, state string) error
}

// TransactionRepository reads transactions and drives their state machine.
type TransactionRepository interface {
	// GetByID retrieves a transaction by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)

	// GetLatestByOrderID returns the most recently created transaction of an order.
	GetLatestByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error)

	// Transition applies action with compare-and-set semantics. A transition
	// into the current state reports Changed false; a refused one returns an
	// error wrapping ErrReconciliationConflict.
	Transition(ctx context.Context, id string, action domain.TransactionAction) (domain.TransitionResult, error)
}

// CustomerRepository reads customers.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
}

// SalesChannelRepository reads sales channels.
type SalesChannelRepository interface {
	GetByID(ctx context.Context, id string) (*domain.SalesChannel, error)
}

// Store groups the repositories. WithTx runs fn against a Store whose writes
// commit together or not at all.
type Store interface {
	Orders() OrderRepository
	Transactions() TransactionRepository
	Customers() CustomerRepository
	SalesChannels() SalesChannelRepository
	WithTx(ctx context.Context, fn func(Store) error) error
}
