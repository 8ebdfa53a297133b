package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// Ledger is the only writer of inventory quantities. Every mutation is a
// single conditional update in the store, so the quantity can never be
// observed below zero.
type Ledger struct {
	store repository.Store
}

func NewLedger(store repository.Store) *Ledger {
	return &Ledger{store: store}
}

// CheckAvailable returns the stock for one size, or 0 when the size was
// never defined.
func (l *Ledger) CheckAvailable(ctx context.Context, productID int64, size string) (int, error) {
	line, err := l.store.Inventory().Get(ctx, productID, size)
	if errors.Is(err, entity.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return line.Quantity, nil
}

// DefineSize creates an inventory line or resets its quantity.
func (l *Ledger) DefineSize(ctx context.Context, productID int64, size string, quantity int) (entity.InventoryLine, error) {
	if quantity < 0 {
		return entity.InventoryLine{}, fmt.Errorf("quantity %d is negative: %w", quantity, entity.ErrInvalidArgument)
	}
	if size == "" {
		return entity.InventoryLine{}, fmt.Errorf("size is empty: %w", entity.ErrInvalidArgument)
	}
	return l.store.Inventory().Define(ctx, productID, size, quantity)
}

// TryAdjust applies delta to one line and returns the new quantity. It fails
// with *entity.InsufficientInventoryError, leaving the line untouched, when
// the result would be negative.
func (l *Ledger) TryAdjust(ctx context.Context, productID int64, size string, delta int) (int, error) {
	var quantity int
	err := l.store.RunInTx(ctx, func(tx repository.Store) error {
		var err error
		quantity, err = adjust(ctx, tx, entity.Adjustment{ProductID: productID, Size: size, Delta: delta})
		return err
	})
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// TryAdjustAll applies every adjustment or none of them.
func (l *Ledger) TryAdjustAll(ctx context.Context, adjustments []entity.Adjustment) error {
	merged := mergeAdjustments(adjustments)
	if len(merged) == 0 {
		return nil
	}
	return l.store.RunInTx(ctx, func(tx repository.Store) error {
		for _, a := range merged {
			if _, err := adjust(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func adjust(ctx context.Context, tx repository.Store, a entity.Adjustment) (int, error) {
	if a.Delta == 0 {
		line, err := tx.Inventory().Get(ctx, a.ProductID, a.Size)
		if err != nil {
			return 0, err
		}
		return line.Quantity, nil
	}

	quantity, applied, err := tx.Inventory().Adjust(ctx, a.ProductID, a.Size, a.Delta)
	if err != nil {
		return 0, err
	}
	if !applied {
		return 0, &entity.InsufficientInventoryError{
			ProductID: a.ProductID,
			Size:      a.Size,
			Available: quantity,
			Requested: -a.Delta,
		}
	}
	return quantity, nil
}

// mergeAdjustments sums deltas per line and orders the result by
// (productID, size), so concurrent batches lock rows in the same order.
func mergeAdjustments(adjustments []entity.Adjustment) []entity.Adjustment {
	type key struct {
		productID int64
		size      string
	}
	sums := make(map[key]int, len(adjustments))
	for _, a := range adjustments {
		sums[key{a.ProductID, a.Size}] += a.Delta
	}

	merged := make([]entity.Adjustment, 0, len(sums))
	for k, delta := range sums {
		if delta == 0 {
			continue
		}
		merged = append(merged, entity.Adjustment{ProductID: k.productID, Size: k.size, Delta: delta})
	}
	slices.SortFunc(merged, func(a, b entity.Adjustment) int {
		if c := cmp.Compare(a.ProductID, b.ProductID); c != 0 {
			return c
		}
		return cmp.Compare(a.Size, b.Size)
	})
	return merged
}
