package store

import (
	"context"
	"sync"
	"time"

	"github.com/stxbridge/bridger/pkg/models"
)

// MemoryStore is an in-memory OrderStore used for tests and the memory
// backend. Orders are copied in and out so callers cannot mutate stored
// state through returned pointers.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]models.SwapOrder
}

var _ OrderStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]models.SwapOrder)}
}

// Insert persists a new order, failing with ErrAlreadyExists if the order ID
// is taken. The check and write happen under one lock, so concurrent inserts
// for the same order ID admit exactly one winner.
func (s *MemoryStore) Insert(_ context.Context, order *models.SwapOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.OrderID]; exists {
		return ErrAlreadyExists
	}
	s.orders[order.OrderID] = *order
	return nil
}

// Get fetches an order by its order ID.
func (s *MemoryStore) Get(_ context.Context, orderID string) (*models.SwapOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.orders[orderID]
	if !exists {
		return nil, ErrNotFound
	}
	return &order, nil
}

// UpdateStatus moves an order to a new status.
func (s *MemoryStore) UpdateStatus(_ context.Context, orderID string, status models.Status, destTxHash, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.orders[orderID]
	if !exists {
		return ErrNotFound
	}

	order.Status = status
	if destTxHash != "" {
		order.DestinationTxHash = destTxHash
	}
	if errorMessage != "" {
		order.ErrorMessage = errorMessage
	}
	order.UpdatedAt = time.Now().UTC()
	s.orders[orderID] = order
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
