package sqldb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// createTestStore opens a migrated SQLite store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), Config{
		Driver:      DriverSQLite,
		DSN:         path,
		LockTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// forEachStore runs fn against SQLite and, when STOREFRONT_TEST_POSTGRES_DSN
// is set, against a freshly truncated PostgreSQL database.
func forEachStore(t *testing.T, fn func(t *testing.T, s *Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, createTestStore(t))
	})

	dsn := os.Getenv("STOREFRONT_TEST_POSTGRES_DSN")
	if dsn == "" {
		return
	}
	t.Run("postgres", func(t *testing.T) {
		ctx := context.Background()
		s, err := Open(ctx, Config{Driver: DriverPostgres, DSN: dsn, LockTimeout: 2 * time.Second})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		_, err = s.DB().ExecContext(ctx,
			"TRUNCATE events, order_lines, orders, cart_lines, inventory_lines, products, users RESTART IDENTITY CASCADE")
		require.NoError(t, err)
		fn(t, s)
	})
}

func createTestProduct(t *testing.T, s *Store, name, price string) entity.Product {
	t.Helper()
	p := entity.Product{Name: name, Price: decimal.RequireFromString(price)}
	require.NoError(t, s.Products().Create(context.Background(), &p))
	return p
}

func createTestUser(t *testing.T, s *Store, email string) entity.User {
	t.Helper()
	u, err := s.Users().Create(context.Background(), email)
	require.NoError(t, err)
	return u
}

func defineTestStock(t *testing.T, s *Store, productID int64, size string, quantity int) {
	t.Helper()
	_, err := s.Inventory().Define(context.Background(), productID, size, quantity)
	require.NoError(t, err)
}

// holdInventoryLock opens a transaction that touches the given inventory
// line and keeps it open until the returned release func is called. release
// reports the holder's error.
func holdInventoryLock(t *testing.T, s *Store, productID int64, size string) (release func() error) {
	t.Helper()
	ctx := context.Background()
	holding := make(chan struct{})
	done := make(chan struct{})
	result := make(chan error, 1)

	go func() {
		result <- s.RunInTx(ctx, func(tx repository.Store) error {
			if _, _, err := tx.Inventory().Adjust(ctx, productID, size, 0); err != nil {
				return err
			}
			close(holding)
			<-done
			return nil
		})
	}()

	select {
	case <-holding:
	case err := <-result:
		t.Fatalf("holder transaction failed before taking the lock: %v", err)
	}
	return func() error {
		close(done)
		return <-result
	}
}

// withLockTimeout returns a store sharing s's pool that gives up on locks
// after d.
func withLockTimeout(s *Store, d time.Duration) *Store {
	return &Store{db: s.db, q: s.db, driver: s.driver, lockTimeout: d}
}
