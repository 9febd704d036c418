// Package memory is an in-process repository.Store for local development
// and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	"github.com/programmierbude/trxps-gateway/internal/repository"
	apperrors "github.com/programmierbude/trxps-gateway/pkg/errors"
)

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	txMu          sync.Mutex
	mu            sync.RWMutex
	orders        map[string]*domain.Order
	transactions  map[string]*domain.Transaction
	customers     map[string]*domain.Customer
	salesChannels map[string]*domain.SalesChannel
	now           func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		orders:        make(map[string]*domain.Order),
		transactions:  make(map[string]*domain.Transaction),
		customers:     make(map[string]*domain.Customer),
		salesChannels: make(map[string]*domain.SalesChannel),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// AddOrder stores a copy of o.
func (s *Store) AddOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.CustomFields = cloneFields(o.CustomFields)
	s.orders[o.ID] = &o
}

// AddTransaction stores a copy of t.
func (s *Store) AddTransaction(t domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.transactions[t.ID] = &t
}

// AddCustomer stores a copy of c.
func (s *Store) AddCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = &c
}

// AddSalesChannel stores a copy of sc.
func (s *Store) AddSalesChannel(sc domain.SalesChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salesChannels[sc.ID] = &sc
}

func (s *Store) Orders() repository.OrderRepository {
	return orderRepo{s}
}

func (s *Store) Transactions() repository.TransactionRepository {
	return transactionRepo{s}
}

func (s *Store) Customers() repository.CustomerRepository {
	return customerRepo{s}
}

func (s *Store) SalesChannels() repository.SalesChannelRepository {
	return salesChannelRepo{s}
}

// WithTx runs fn against the same store. Transactions are serialized; when
// fn fails, orders and transactions are restored to their state before fn.
func (s *Store) WithTx(_ context.Context, fn func(repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	orders       map[string]*domain.Order
	transactions map[string]*domain.Transaction
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		orders:       make(map[string]*domain.Order, len(s.orders)),
		transactions: make(map[string]*domain.Transaction, len(s.transactions)),
	}
	for id, o := range s.orders {
		snap.orders[id] = copyOrder(o)
	}
	for id, t := range s.transactions {
		cp := *t
		snap.transactions[id] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = snap.orders
	s.transactions = snap.transactions
}

type orderRepo struct{ s *Store }

func (r orderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	return copyOrder(o), nil
}

func (r orderRepo) GetByOrderNumber(_ context.Context, number string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.orders {
		if o.OrderNumber == number {
			return copyOrder(o), nil
		}
	}
	return nil, apperrors.NotFound("order", number)
}

func (r orderRepo) MergeCustomField(_ context.Context, orderID, key string, value any) error {
	// Round-trip through JSON so readers see what a JSONB column would return.
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal custom field %s: %w", key, err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("unmarshal custom field %s: %w", key, err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return apperrors.NotFound("order", orderID)
	}
	if o.CustomFields == nil {
		o.CustomFields = make(map[string]any)
	}
	o.CustomFields[key] = decoded
	o.UpdatedAt = r.s.now()
	return nil
}

func (r orderRepo) UpdateState(_ context.Context, orderID, state string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return apperrors.NotFound("order", orderID)
	}
	o.State = state
	o.UpdatedAt = r.s.now()
	return nil
}

type transactionRepo struct{ s *Store }

func (r transactionRepo) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.transactions[id]
	if !ok {
		return nil, apperrors.NotFound("transaction", id)
	}
	cp := *t
	return &cp, nil
}

func (r transactionRepo) GetLatestByOrderID(_ context.Context, orderID string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *domain.Transaction
	for _, t := range r.s.transactions {
		if t.OrderID != orderID {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, apperrors.NotFound("transaction for order", orderID)
	}
	cp := *latest
	return &cp, nil
}

func (r transactionRepo) Transition(_ context.Context, id string, action domain.TransactionAction) (domain.TransitionResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transactions[id]
	if !ok {
		return domain.TransitionResult{}, apperrors.NotFound("transaction", id)
	}

	from := t.State
	to, changed, allowed := domain.Apply(from, action)
	if !allowed {
		return domain.TransitionResult{From: from, To: from},
			apperrors.ReconciliationConflict(id, string(from), string(action))
	}
	if changed {
		t.State = to
		t.UpdatedAt = r.s.now()
	}
	return domain.TransitionResult{From: from, To: to, Changed: changed}, nil
}

type customerRepo struct{ s *Store }

func (r customerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, apperrors.NotFound("customer", id)
	}
	cp := *c
	return &cp, nil
}

type salesChannelRepo struct{ s *Store }

func (r salesChannelRepo) GetByID(_ context.Context, id string) (*domain.SalesChannel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sc, ok := r.s.salesChannels[id]
	if !ok {
		return nil, apperrors.NotFound("sales channel", id)
	}
	cp := *sc
	return &cp, nil
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.CustomFields = cloneFields(o.CustomFields)
	return &cp
}

func cloneFields(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
