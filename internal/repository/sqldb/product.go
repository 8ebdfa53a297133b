package sqldb

import (
	"context"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type productRepository struct {
	s *Store
}

func (r *productRepository) Get(ctx context.Context, productID int64) (entity.Product, error) {
	var p entity.Product
	err := r.s.q.QueryRowContext(ctx,
		"SELECT id, name, price FROM products WHERE id = $1",
		productID,
	).Scan(&p.ID, &p.Name, &p.Price)
	if err != nil {
		return entity.Product{}, notFoundOr(fmt.Sprintf("failed to get product %d", productID), err)
	}
	return p, nil
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	err := r.s.q.QueryRowContext(ctx,
		"INSERT INTO products (name, price) VALUES ($1, $2) RETURNING id",
		product.Name, product.Price,
	).Scan(&product.ID)
	if err != nil {
		return dbError(fmt.Sprintf("failed to create product %q", product.Name), err)
	}
	return nil
}

// Delete removes the product together with its inventory and cart lines.
// Orders keep referencing it, so products with orders cannot be deleted.
func (r *productRepository) Delete(ctx context.Context, productID int64) error {
	res, err := r.s.q.ExecContext(ctx, "DELETE FROM products WHERE id = $1", productID)
	if err != nil {
		return dbError(fmt.Sprintf("failed to delete product %d", productID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", productID, entity.ErrNotFound)
	}
	return nil
}
