package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type inventoryRepository struct {
	s *Store
}

func (r *inventoryRepository) Get(ctx context.Context, productID int64, size string) (entity.InventoryLine, error) {
	line := entity.InventoryLine{ProductID: productID, Size: size}
	err := r.s.q.QueryRowContext(ctx,
		"SELECT quantity FROM inventory_lines WHERE product_id = $1 AND size = $2",
		productID, size,
	).Scan(&line.Quantity)
	if err != nil {
		return entity.InventoryLine{}, notFoundOr(fmt.Sprintf("failed to get inventory for product %d size %q", productID, size), err)
	}
	return line, nil
}

func (r *inventoryRepository) Define(ctx context.Context, productID int64, size string, quantity int) (entity.InventoryLine, error) {
	_, err := r.s.q.ExecContext(ctx,
		`INSERT INTO inventory_lines (product_id, size, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (product_id, size) DO UPDATE SET quantity = excluded.quantity`,
		productID, size, quantity,
	)
	if err != nil {
		return entity.InventoryLine{}, dbError("failed to define inventory line", err)
	}
	return entity.InventoryLine{ProductID: productID, Size: size, Quantity: quantity}, nil
}

// Adjust is the compare-and-swap on a stock counter: the guard and the write
// are one statement, so the row lock (PostgreSQL) or the single writer
// (SQLite) serialises concurrent adjusts of the same line.
func (r *inventoryRepository) Adjust(ctx context.Context, productID int64, size string, delta int) (int, bool, error) {
	var quantity int
	err := r.s.q.QueryRowContext(ctx,
		`UPDATE inventory_lines SET quantity = quantity + $1
		WHERE product_id = $2 AND size = $3 AND quantity + $1 >= 0
		RETURNING quantity`,
		delta, productID, size,
	).Scan(&quantity)
	if err == nil {
		return quantity, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, dbError("failed to adjust inventory", err)
	}

	// Either the guard rejected the change or the line does not exist.
	line, err := r.Get(ctx, productID, size)
	if err != nil {
		return 0, false, err
	}
	return line.Quantity, false, nil
}
