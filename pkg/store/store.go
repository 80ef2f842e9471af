// Package store persists swap orders. The mongo-backed implementation is the
// production store; the in-memory one backs tests and local runs.
package store

import (
	"context"
	"errors"

	"github.com/stxbridge/bridger/pkg/models"
)

// ErrNotFound is returned when no order exists for the given order ID.
var ErrNotFound = errors.New("order not found")

// ErrAlreadyExists is returned by Insert when an order with the same order ID
// is already persisted. The insert is atomic: of any number of concurrent
// inserts for one order ID exactly one succeeds.
var ErrAlreadyExists = errors.New("order already exists")

// OrderStore is the persistence boundary for swap orders.
type OrderStore interface {
	// Insert persists a new order, failing with ErrAlreadyExists if the
	// order ID is taken.
	Insert(ctx context.Context, order *models.SwapOrder) error

	// Get fetches an order by its order ID.
	Get(ctx context.Context, orderID string) (*models.SwapOrder, error)

	// UpdateStatus moves an order to a new status, recording the destination
	// transaction hash and error message when present, and refreshes the
	// order's update timestamp.
	UpdateStatus(ctx context.Context, orderID string, status models.Status, destTxHash, errorMessage string) error

	// Close releases the store's resources.
	Close(ctx context.Context) error
}
