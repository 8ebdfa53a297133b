package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

func TestLedger_CheckAvailable(t *testing.T) {
	s := createTestStore(t)
	createTestProduct(t, s, 1, "10.00", map[string]int{"M": 3})
	ledger := NewLedger(s)

	q, err := ledger.CheckAvailable(context.Background(), 1, "M")
	require.NoError(t, err)
	assert.Equal(t, 3, q)

	q, err = ledger.CheckAvailable(context.Background(), 1, "XXL")
	require.NoError(t, err)
	assert.Equal(t, 0, q, "undefined size reads as zero")
}

func TestLedger_TryAdjust(t *testing.T) {
	s := createTestStore(t)
	createTestProduct(t, s, 1, "10.00", map[string]int{"M": 3})
	ledger := NewLedger(s)
	ctx := context.Background()

	q, err := ledger.TryAdjust(ctx, 1, "M", -2)
	require.NoError(t, err)
	assert.Equal(t, 1, q)

	_, err = ledger.TryAdjust(ctx, 1, "M", -2)
	require.ErrorIs(t, err, entity.ErrInsufficientInventory)
	var insufficient *entity.InsufficientInventoryError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Available)
	assert.Equal(t, 2, insufficient.Requested)
	assert.Equal(t, 1, stockOf(t, s, 1, "M"), "rejected adjust leaves stock untouched")

	q, err = ledger.TryAdjust(ctx, 1, "M", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, q)

	q, err = ledger.TryAdjust(ctx, 1, "M", 4)
	require.NoError(t, err)
	assert.Equal(t, 5, q)

	_, err = ledger.TryAdjust(ctx, 1, "XL", 1)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestLedger_TryAdjustAllIsAllOrNothing(t *testing.T) {
	s := createTestStore(t)
	createTestProduct(t, s, 1, "10.00", map[string]int{"M": 5, "L": 1})
	createTestProduct(t, s, 2, "20.00", map[string]int{"OS": 2})
	ledger := NewLedger(s)
	ctx := context.Background()

	err := ledger.TryAdjustAll(ctx, []entity.Adjustment{
		{ProductID: 1, Size: "M", Delta: -2},
		{ProductID: 2, Size: "OS", Delta: -1},
		{ProductID: 1, Size: "L", Delta: -2},
	})
	require.ErrorIs(t, err, entity.ErrInsufficientInventory)
	assert.Equal(t, 5, stockOf(t, s, 1, "M"))
	assert.Equal(t, 2, stockOf(t, s, 2, "OS"))
	assert.Equal(t, 1, stockOf(t, s, 1, "L"))

	err = ledger.TryAdjustAll(ctx, []entity.Adjustment{
		{ProductID: 1, Size: "M", Delta: -2},
		{ProductID: 2, Size: "OS", Delta: -1},
		{ProductID: 1, Size: "L", Delta: -1},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stockOf(t, s, 1, "M"))
	assert.Equal(t, 1, stockOf(t, s, 2, "OS"))
	assert.Equal(t, 0, stockOf(t, s, 1, "L"))
}

func TestLedger_TryAdjustAllMergesRepeatedLines(t *testing.T) {
	s := createTestStore(t)
	createTestProduct(t, s, 1, "10.00", map[string]int{"M": 3})
	ledger := NewLedger(s)

	// Each entry fits alone; together they do not.
	err := ledger.TryAdjustAll(context.Background(), []entity.Adjustment{
		{ProductID: 1, Size: "M", Delta: -2},
		{ProductID: 1, Size: "M", Delta: -2},
	})
	var insufficient *entity.InsufficientInventoryError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 4, insufficient.Requested)
	assert.Equal(t, 3, stockOf(t, s, 1, "M"))
}

func TestMergeAdjustments(t *testing.T) {
	got := mergeAdjustments([]entity.Adjustment{
		{ProductID: 2, Size: "S", Delta: -1},
		{ProductID: 1, Size: "M", Delta: -1},
		{ProductID: 1, Size: "L", Delta: 2},
		{ProductID: 2, Size: "S", Delta: -3},
		{ProductID: 3, Size: "M", Delta: 1},
		{ProductID: 3, Size: "M", Delta: -1},
	})
	assert.Equal(t, []entity.Adjustment{
		{ProductID: 1, Size: "L", Delta: 2},
		{ProductID: 1, Size: "M", Delta: -1},
		{ProductID: 2, Size: "S", Delta: -4},
	}, got)
}

func TestLedger_ConcurrentAdjustsConserveStock(t *testing.T) {
	s := createTestStore(t)
	const initial = 20
	createTestProduct(t, s, 1, "10.00", map[string]int{"M": initial})
	ledger := NewLedger(s)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 60; i++ {
		delta := rand.IntN(6) - 4 // -4..1, biased towards debits
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := ledger.TryAdjust(ctx, 1, "M", delta)
			switch {
			case err == nil:
				if q < 0 {
					t.Errorf("observed negative quantity %d", q)
				}
				mu.Lock()
				applied += delta
				mu.Unlock()
			case errors.Is(err, entity.ErrInsufficientInventory):
			default:
				t.Errorf("TryAdjust() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	final := stockOf(t, s, 1, "M")
	assert.GreaterOrEqual(t, final, 0)
	assert.Equal(t, initial+applied, final)
}
