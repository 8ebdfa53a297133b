package repository

import (
	"context"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// Store is the unit-of-work boundary. The repositories it hands out run
// against the store's current scope: the connection pool, or the open
// transaction inside RunInTx.
type Store interface {
	// RunInTx runs fn in a transaction and commits if fn returns nil.
	// Called on a store that is already transactional, it runs fn in the
	// enclosing transaction.
	RunInTx(ctx context.Context, fn func(tx Store) error) error

	Inventory() InventoryRepository
	Carts() CartRepository
	Orders() OrderRepository
	Products() ProductRepository
	Users() UserRepository
	Events() EventStore
}

// InventoryRepository handles persistence for per-size stock counters.
type InventoryRepository interface {
	// Get returns entity.ErrNotFound when the line does not exist.
	Get(ctx context.Context, productID int64, size string) (entity.InventoryLine, error)
	// Define creates the line or resets its quantity.
	Define(ctx context.Context, productID int64, size string, quantity int) (entity.InventoryLine, error)
	// Adjust adds delta in one conditional statement. applied is false when
	// the result would be negative, in which case quantity is the current
	// value and nothing changed. A missing line is entity.ErrNotFound.
	Adjust(ctx context.Context, productID int64, size string, delta int) (quantity int, applied bool, err error)
}

// CartRepository handles persistence for cart lines. Every lookup is
// filtered by owner.
type CartRepository interface {
	List(ctx context.Context, owner entity.OwnerKey) ([]entity.CartLine, error)
	// ListForCheckout is List with the rows locked until the transaction ends
	// where the database supports it.
	ListForCheckout(ctx context.Context, owner entity.OwnerKey) ([]entity.CartLine, error)
	Get(ctx context.Context, owner entity.OwnerKey, lineID int64) (entity.CartLine, error)
	Find(ctx context.Context, owner entity.OwnerKey, productID int64, size string) (entity.CartLine, error)
	// Upsert inserts a line or adds quantity to the existing one.
	Upsert(ctx context.Context, owner entity.OwnerKey, productID int64, size string, quantity int, addedAt time.Time) (entity.CartLine, error)
	SetQuantity(ctx context.Context, owner entity.OwnerKey, lineID int64, quantity int) (entity.CartLine, error)
	Delete(ctx context.Context, owner entity.OwnerKey, lineID int64) error
	DeleteLines(ctx context.Context, owner entity.OwnerKey, lineIDs []int64) (int64, error)
	Clear(ctx context.Context, owner entity.OwnerKey) (int64, error)
	Reassign(ctx context.Context, from entity.OwnerKey, lineID int64, to entity.OwnerKey) error
	DeleteGuestLinesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderRepository handles persistence for orders and their lines.
type OrderRepository interface {
	// Create inserts the order and its lines and fills in their IDs.
	Create(ctx context.Context, order *entity.Order) error
	Get(ctx context.Context, orderID int64) (entity.Order, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]entity.Order, error)
	// ListByStatus and ListRecent page through every user's orders, newest
	// first.
	ListByStatus(ctx context.Context, status entity.OrderStatus, limit, offset int) ([]entity.Order, error)
	ListRecent(ctx context.Context, limit, offset int) ([]entity.Order, error)
	// StatusTotals counts and sums orders per status. A zero userID covers
	// all users.
	StatusTotals(ctx context.Context, userID int64) ([]entity.StatusTotal, error)
	// CompareAndSetStatus moves the order to `to` only if its current status
	// is one of from. It reports whether the row changed.
	CompareAndSetStatus(ctx context.Context, orderID int64, from []entity.OrderStatus, to entity.OrderStatus) (bool, error)
}

// ProductRepository is the catalog collaborator.
type ProductRepository interface {
	Get(ctx context.Context, productID int64) (entity.Product, error)
	Create(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, productID int64) error
}

// UserRepository is the slice of the account store the resolver needs.
type UserRepository interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	Create(ctx context.Context, email string) (entity.User, error)
}

// EventStore handles appending and loading events for an aggregate stream,
// and doubles as the outbox the relay drains.
type EventStore interface {
	Append(ctx context.Context, streamID string, streamType string, events []entity.Event) error
	Load(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
	Unpublished(ctx context.Context, limit int) ([]entity.EventStoreRecord, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
}
