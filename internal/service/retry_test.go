package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

var fastRetry = RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestRetryTransient_RetriesLockTimeouts(t *testing.T) {
	attempts := 0
	got, err := RetryTransient(context.Background(), fastRetry, func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, fmt.Errorf("commit: %w", entity.ErrLockTimeout)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, attempts)
}

func TestRetryTransient_BusinessErrorsAreFinal(t *testing.T) {
	attempts := 0
	_, err := RetryTransient(context.Background(), fastRetry, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &entity.InsufficientInventoryError{ProductID: 7, Size: "M", Available: 0, Requested: 1}
	})
	assert.ErrorIs(t, err, entity.ErrInsufficientInventory)
	assert.Equal(t, 1, attempts)
}

func TestRetryTransient_GivesUp(t *testing.T) {
	attempts := 0
	_, err := RetryTransient(context.Background(), fastRetry, func(ctx context.Context) (struct{}, error) {
		attempts++
		return struct{}{}, entity.ErrLockTimeout
	})
	assert.ErrorIs(t, err, entity.ErrLockTimeout)
	assert.True(t, entity.IsRetryable(err))
	assert.Equal(t, 3, attempts)
}

func TestCreateOrder_LockTimeoutIsRetriedThenGivesUp(t *testing.T) {
	s := createTestStoreWithLockTimeout(t, 150*time.Millisecond)
	createTestProduct(t, s, 1, "19.99", map[string]int{"M": 5})
	user := createTestUser(t, s, 9)
	carts := NewCartService(s)
	orders := NewOrderService(s)
	ctx := context.Background()
	_, err := carts.Add(ctx, user, 1, "M", 2)
	require.NoError(t, err)

	release := holdWriter(t, s)
	defer release()

	attempts := 0
	policy := RetryPolicy{MaxTries: 3, InitialInterval: 10 * time.Millisecond, MaxInterval: 20 * time.Millisecond}
	_, err = RetryTransient(ctx, policy, func(ctx context.Context) (entity.Order, error) {
		attempts++
		return orders.CreateOrder(ctx, 9, entity.CheckoutDetails{})
	})
	assert.ErrorIs(t, err, entity.ErrLockTimeout)
	assert.Equal(t, 3, attempts)

	release()
	assert.Equal(t, 5, stockOf(t, s, 1, "M"))
	lines, err := carts.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	placed, err := orders.ListUserOrders(ctx, 9, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, placed)
}

func TestCreateOrder_SucceedsOnceTheLockIsReleased(t *testing.T) {
	s := createTestStoreWithLockTimeout(t, 150*time.Millisecond)
	createTestProduct(t, s, 1, "19.99", map[string]int{"M": 5})
	user := createTestUser(t, s, 9)
	carts := NewCartService(s)
	orders := NewOrderService(s)
	ctx := context.Background()
	_, err := carts.Add(ctx, user, 1, "M", 2)
	require.NoError(t, err)

	release := holdWriter(t, s)
	time.AfterFunc(250*time.Millisecond, release)
	defer release()

	attempts := 0
	policy := RetryPolicy{MaxTries: 10, InitialInterval: 50 * time.Millisecond, MaxInterval: 100 * time.Millisecond}
	order, err := RetryTransient(ctx, policy, func(ctx context.Context) (entity.Order, error) {
		attempts++
		return orders.CreateOrder(ctx, 9, entity.CheckoutDetails{})
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, attempts, 2)
	assert.NotZero(t, order.ID)
	assert.Equal(t, 3, stockOf(t, s, 1, "M"))
}
