package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

const orderColumns = "id, user_id, total_amount, status, shipping_address, payment_method, notes, created_at"

type orderRepository struct {
	s *Store
}

func scanOrder(row rowScanner) (entity.Order, error) {
	var o entity.Order
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status,
		&o.ShippingAddress, &o.PaymentMethod, &o.Notes, &o.CreatedAt)
	return o, err
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now()
	}
	err := r.s.q.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, total_amount, status, shipping_address, payment_method, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		order.UserID, order.TotalAmount, order.Status,
		order.ShippingAddress, order.PaymentMethod, order.Notes, order.CreatedAt.UTC(),
	).Scan(&order.ID)
	if err != nil {
		return dbError("failed to insert order", err)
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		line.OrderID = order.ID
		err := r.s.q.QueryRowContext(ctx,
			`INSERT INTO order_lines (order_id, product_id, size, quantity, price_at_time)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			order.ID, line.ProductID, line.Size, line.Quantity, line.PriceAtTime,
		).Scan(&line.ID)
		if err != nil {
			return dbError("failed to insert order line", err)
		}
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, orderID int64) (entity.Order, error) {
	o, err := scanOrder(r.s.q.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1",
		orderID,
	))
	if err != nil {
		return entity.Order{}, notFoundOr(fmt.Sprintf("failed to get order %d", orderID), err)
	}
	if o.Lines, err = r.lines(ctx, o.ID); err != nil {
		return entity.Order{}, err
	}
	return o, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]entity.Order, error) {
	return r.list(ctx, "WHERE user_id = $1", []any{userID}, limit, offset)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status entity.OrderStatus, limit, offset int) ([]entity.Order, error) {
	return r.list(ctx, "WHERE status = $1", []any{status}, limit, offset)
}

func (r *orderRepository) ListRecent(ctx context.Context, limit, offset int) ([]entity.Order, error) {
	return r.list(ctx, "", nil, limit, offset)
}

// list runs an order query filtered by where, whose placeholders are
// numbered from $1, and loads the lines of each order.
func (r *orderRepository) list(ctx context.Context, where string, args []any, limit, offset int) ([]entity.Order, error) {
	n := len(args)
	query := fmt.Sprintf("SELECT %s FROM orders %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, n+1, n+2)
	rows, err := r.s.q.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, dbError("failed to query orders", err)
	}

	var orders []entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, dbError("error iterating orders", err)
	}

	// Fetch lines for each order
	for i := range orders {
		if orders[i].Lines, err = r.lines(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// StatusTotals sums in integer cents. SQLite keeps amounts as TEXT and its
// SUM would go through floating point.
func (r *orderRepository) StatusTotals(ctx context.Context, userID int64) ([]entity.StatusTotal, error) {
	cents := "SUM(total_amount * 100)::BIGINT"
	if r.s.driver == DriverSQLite {
		cents = "SUM(CAST(ROUND(CAST(total_amount AS REAL) * 100) AS INTEGER))"
	}
	query := "SELECT status, COUNT(*), " + cents + " FROM orders"
	var args []any
	if userID != 0 {
		query += " WHERE user_id = $1"
		args = append(args, userID)
	}
	query += " GROUP BY status"

	rows, err := r.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to total orders", err)
	}
	defer rows.Close()

	var totals []entity.StatusTotal
	for rows.Next() {
		var (
			total    entity.StatusTotal
			sumCents int64
		)
		if err := rows.Scan(&total.Status, &total.Count, &sumCents); err != nil {
			return nil, fmt.Errorf("failed to scan order totals: %w", err)
		}
		total.Amount = decimal.New(sumCents, -entity.PriceScale)
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("error iterating order totals", err)
	}
	return totals, nil
}

func (r *orderRepository) lines(ctx context.Context, orderID int64) ([]entity.OrderLine, error) {
	rows, err := r.s.q.QueryContext(ctx,
		"SELECT id, order_id, product_id, size, quantity, price_at_time FROM order_lines WHERE order_id = $1 ORDER BY id",
		orderID,
	)
	if err != nil {
		return nil, dbError("failed to query order lines", err)
	}
	defer rows.Close()

	var lines []entity.OrderLine
	for rows.Next() {
		var l entity.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Size, &l.Quantity, &l.PriceAtTime); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("error iterating order lines", err)
	}
	return lines, nil
}

func (r *orderRepository) CompareAndSetStatus(ctx context.Context, orderID int64, from []entity.OrderStatus, to entity.OrderStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	args := []any{to, orderID}
	placeholders := make([]string, len(from))
	for i, status := range from {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", i+3)
	}
	res, err := r.s.q.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2 AND status IN ("+strings.Join(placeholders, ", ")+")",
		args...,
	)
	if err != nil {
		return false, dbError(fmt.Sprintf("failed to update status of order %d", orderID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
