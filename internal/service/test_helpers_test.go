package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/sqldb"
)

// createTestStore opens a migrated SQLite store in a temp directory.
func createTestStore(t *testing.T) *sqldb.Store {
	t.Helper()
	return createTestStoreWithLockTimeout(t, 5*time.Second)
}

func createTestStoreWithLockTimeout(t *testing.T, lockTimeout time.Duration) *sqldb.Store {
	t.Helper()
	s, err := sqldb.Open(context.Background(), sqldb.Config{
		Driver:      sqldb.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "test.db"),
		LockTimeout: lockTimeout,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProduct inserts a product with a fixed ID and defines its sizes.
func createTestProduct(t *testing.T, s *sqldb.Store, id int64, price string, sizes map[string]int) entity.Product {
	t.Helper()
	ctx := context.Background()
	_, err := s.DB().ExecContext(ctx, "INSERT INTO products (id, name, price) VALUES ($1, $2, $3)",
		id, "product", price)
	require.NoError(t, err)
	for size, quantity := range sizes {
		_, err := s.Inventory().Define(ctx, id, size, quantity)
		require.NoError(t, err)
	}
	return entity.Product{ID: id, Name: "product", Price: decimal.RequireFromString(price)}
}

// createTestUser inserts a user with a fixed ID.
func createTestUser(t *testing.T, s *sqldb.Store, id int64) entity.OwnerKey {
	t.Helper()
	_, err := s.DB().ExecContext(context.Background(),
		"INSERT INTO users (id, email, created_at) VALUES ($1, $2, $3)",
		id, fmt.Sprintf("user%d@example.com", id), time.Now().UTC())
	require.NoError(t, err)
	return entity.UserOwner(id)
}

func stockOf(t *testing.T, s *sqldb.Store, productID int64, size string) int {
	t.Helper()
	q, err := NewLedger(s).CheckAvailable(context.Background(), productID, size)
	require.NoError(t, err)
	return q
}

func testGuest(c byte) entity.OwnerKey {
	b := []byte("guest_")
	for i := 0; i < 32; i++ {
		b = append(b, c)
	}
	return entity.GuestOwner(string(b))
}

// holdWriter keeps a transaction open on s until release is called. SQLite
// has one writer, so every other transaction queues behind it.
func holdWriter(t *testing.T, s *sqldb.Store) (release func()) {
	t.Helper()
	holding := make(chan struct{})
	done := make(chan struct{})
	result := make(chan error, 1)

	go func() {
		result <- s.RunInTx(context.Background(), func(tx repository.Store) error {
			close(holding)
			<-done
			return nil
		})
	}()

	select {
	case <-holding:
	case err := <-result:
		t.Fatalf("holder transaction failed: %v", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			assert.NoError(t, <-result)
		})
	}
}
