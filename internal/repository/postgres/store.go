package postgres

import (
	"context"
	"fmt"

	"github.com/programmierbude/trxps-gateway/internal/repository"
	"github.com/programmierbude/trxps-gateway/pkg/database"
)

// Store implements repository.Store on PostgreSQL.
type Store struct {
	db database.DBTX
}

// NewStore creates a Store over a pool or transaction.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Orders() repository.OrderRepository {
	return NewOrderRepository(s.db)
}

func (s *Store) Transactions() repository.TransactionRepository {
	return NewTransactionRepository(s.db)
}

func (s *Store) Customers() repository.CustomerRepository {
	return NewCustomerRepository(s.db)
}

func (s *Store) SalesChannels() repository.SalesChannelRepository {
	return NewSalesChannelRepository(s.db)
}

// WithTx runs fn inside a database transaction. The transaction is rolled
// back when fn returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) (err error) {
	ctx, end := database.TraceQuery(ctx, "WithTx", "BEGIN")
	defer func() { end(err) }()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
