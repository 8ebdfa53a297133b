package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

const cartLineColumns = "id, user_id, guest_cookie, product_id, size, quantity, added_at"

type cartRepository struct {
	s *Store
}

// ownerColumn returns the column holding owner's identity and its value.
func ownerColumn(owner entity.OwnerKey) (string, any, error) {
	if id, ok := owner.UserID(); ok {
		return "user_id", id, nil
	}
	if cookie, ok := owner.GuestCookie(); ok {
		return "guest_cookie", cookie, nil
	}
	return "", nil, fmt.Errorf("cart owner is not set: %w", entity.ErrUnauthenticated)
}

// ownerValues returns the (user_id, guest_cookie) pair to store for owner.
func ownerValues(owner entity.OwnerKey) (userID, guestCookie any) {
	if id, ok := owner.UserID(); ok {
		return id, nil
	}
	cookie, _ := owner.GuestCookie()
	return nil, cookie
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartLine(row rowScanner) (entity.CartLine, error) {
	var (
		line   entity.CartLine
		userID sql.NullInt64
		cookie sql.NullString
	)
	if err := row.Scan(&line.ID, &userID, &cookie, &line.ProductID, &line.Size, &line.Quantity, &line.AddedAt); err != nil {
		return entity.CartLine{}, err
	}
	switch {
	case userID.Valid:
		line.Owner = entity.UserOwner(userID.Int64)
	case cookie.Valid:
		line.Owner = entity.GuestOwner(cookie.String)
	}
	return line, nil
}

func (r *cartRepository) List(ctx context.Context, owner entity.OwnerKey) ([]entity.CartLine, error) {
	return r.list(ctx, owner, "")
}

func (r *cartRepository) ListForCheckout(ctx context.Context, owner entity.OwnerKey) ([]entity.CartLine, error) {
	return r.list(ctx, owner, r.s.forUpdate())
}

func (r *cartRepository) list(ctx context.Context, owner entity.OwnerKey, suffix string) ([]entity.CartLine, error) {
	col, val, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}
	rows, err := r.s.q.QueryContext(ctx,
		"SELECT "+cartLineColumns+" FROM cart_lines WHERE "+col+" = $1 ORDER BY id"+suffix,
		val,
	)
	if err != nil {
		return nil, dbError("failed to query cart lines", err)
	}
	defer rows.Close()

	var lines []entity.CartLine
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("error iterating cart lines", err)
	}
	return lines, nil
}

func (r *cartRepository) Get(ctx context.Context, owner entity.OwnerKey, lineID int64) (entity.CartLine, error) {
	col, val, err := ownerColumn(owner)
	if err != nil {
		return entity.CartLine{}, err
	}
	line, err := scanCartLine(r.s.q.QueryRowContext(ctx,
		"SELECT "+cartLineColumns+" FROM cart_lines WHERE id = $1 AND "+col+" = $2",
		lineID, val,
	))
	if err != nil {
		return entity.CartLine{}, notFoundOr(fmt.Sprintf("failed to get cart line %d", lineID), err)
	}
	return line, nil
}

func (r *cartRepository) Find(ctx context.Context, owner entity.OwnerKey, productID int64, size string) (entity.CartLine, error) {
	col, val, err := ownerColumn(owner)
	if err != nil {
		return entity.CartLine{}, err
	}
	line, err := scanCartLine(r.s.q.QueryRowContext(ctx,
		"SELECT "+cartLineColumns+" FROM cart_lines WHERE "+col+" = $1 AND product_id = $2 AND size = $3",
		val, productID, size,
	))
	if err != nil {
		return entity.CartLine{}, notFoundOr("failed to find cart line", err)
	}
	return line, nil
}

// Upsert relies on the per-owner unique index so that two rapid adds from
// the same session merge instead of creating two rows.
func (r *cartRepository) Upsert(ctx context.Context, owner entity.OwnerKey, productID int64, size string, quantity int, addedAt time.Time) (entity.CartLine, error) {
	col, _, err := ownerColumn(owner)
	if err != nil {
		return entity.CartLine{}, err
	}
	userID, cookie := ownerValues(owner)
	var id int64
	err = r.s.q.QueryRowContext(ctx,
		`INSERT INTO cart_lines (user_id, guest_cookie, product_id, size, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (`+col+`, product_id, size) DO UPDATE SET quantity = cart_lines.quantity + excluded.quantity
		RETURNING id`,
		userID, cookie, productID, size, quantity, addedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return entity.CartLine{}, dbError("failed to upsert cart line", err)
	}
	// Re-read so added_at is decoded from the column's declared type.
	return r.Get(ctx, owner, id)
}

func (r *cartRepository) SetQuantity(ctx context.Context, owner entity.OwnerKey, lineID int64, quantity int) (entity.CartLine, error) {
	col, val, err := ownerColumn(owner)
	if err != nil {
		return entity.CartLine{}, err
	}
	res, err := r.s.q.ExecContext(ctx,
		"UPDATE cart_lines SET quantity = $1 WHERE id = $2 AND "+col+" = $3",
		quantity, lineID, val,
	)
	if err != nil {
		return entity.CartLine{}, dbError(fmt.Sprintf("failed to update cart line %d", lineID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return entity.CartLine{}, err
	}
	if n == 0 {
		return entity.CartLine{}, fmt.Errorf("cart line %d: %w", lineID, entity.ErrNotFound)
	}
	return r.Get(ctx, owner, lineID)
}

func (r *cartRepository) Delete(ctx context.Context, owner entity.OwnerKey, lineID int64) error {
	n, err := r.DeleteLines(ctx, owner, []int64{lineID})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, entity.ErrNotFound)
	}
	return nil
}

func (r *cartRepository) DeleteLines(ctx context.Context, owner entity.OwnerKey, lineIDs []int64) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	col, val, err := ownerColumn(owner)
	if err != nil {
		return 0, err
	}
	args := []any{val}
	placeholders := make([]string, len(lineIDs))
	for i, id := range lineIDs {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}
	res, err := r.s.q.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE "+col+" = $1 AND id IN ("+strings.Join(placeholders, ", ")+")",
		args...,
	)
	if err != nil {
		return 0, dbError("failed to delete cart lines", err)
	}
	return res.RowsAffected()
}

func (r *cartRepository) Clear(ctx context.Context, owner entity.OwnerKey) (int64, error) {
	col, val, err := ownerColumn(owner)
	if err != nil {
		return 0, err
	}
	res, err := r.s.q.ExecContext(ctx, "DELETE FROM cart_lines WHERE "+col+" = $1", val)
	if err != nil {
		return 0, dbError("failed to clear cart", err)
	}
	return res.RowsAffected()
}

func (r *cartRepository) Reassign(ctx context.Context, from entity.OwnerKey, lineID int64, to entity.OwnerKey) error {
	col, val, err := ownerColumn(from)
	if err != nil {
		return err
	}
	if !to.Valid() {
		return fmt.Errorf("reassign target is not set: %w", entity.ErrInvalidArgument)
	}
	userID, cookie := ownerValues(to)
	res, err := r.s.q.ExecContext(ctx,
		"UPDATE cart_lines SET user_id = $1, guest_cookie = $2 WHERE id = $3 AND "+col+" = $4",
		userID, cookie, lineID, val,
	)
	if err != nil {
		return dbError(fmt.Sprintf("failed to reassign cart line %d", lineID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, entity.ErrNotFound)
	}
	return nil
}

func (r *cartRepository) DeleteGuestLinesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.s.q.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE guest_cookie IS NOT NULL AND added_at < $1",
		cutoff.UTC(),
	)
	if err != nil {
		return 0, dbError("failed to delete expired guest cart lines", err)
	}
	return res.RowsAffected()
}
