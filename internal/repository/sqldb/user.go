package sqldb

import (
	"context"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.s.q.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)",
		userID,
	).Scan(&exists)
	if err != nil {
		return false, dbError(fmt.Sprintf("failed to look up user %d", userID), err)
	}
	return exists, nil
}

func (r *userRepository) Create(ctx context.Context, email string) (entity.User, error) {
	u := entity.User{Email: email, CreatedAt: now()}
	err := r.s.q.QueryRowContext(ctx,
		"INSERT INTO users (email, created_at) VALUES ($1, $2) RETURNING id",
		email, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return entity.User{}, dbError(fmt.Sprintf("failed to create user %q", email), err)
	}
	return u, nil
}
