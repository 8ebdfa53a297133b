package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/identity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// MigrationService moves a guest cart to a user after sign-in.
type MigrationService struct {
	store repository.Store
}

func NewMigrationService(store repository.Store) *MigrationService {
	return &MigrationService{store: store}
}

// MigrateGuestCart merges every guest line into the user's cart in one
// transaction. Lines for an item the user already has are added to the
// user's line; the rest change owner. Stock is not re-checked here; checkout
// does that.
func (s *MigrationService) MigrateGuestCart(ctx context.Context, guestCookie string, userID int64) (entity.MigrationResult, error) {
	if !identity.ValidGuestCookie(guestCookie) {
		return entity.MigrationResult{}, fmt.Errorf("malformed guest cookie: %w", entity.ErrInvalidArgument)
	}
	guest := entity.GuestOwner(guestCookie)
	user := entity.UserOwner(userID)
	if !user.Valid() {
		return entity.MigrationResult{}, fmt.Errorf("invalid user id %d: %w", userID, entity.ErrInvalidArgument)
	}

	var result entity.MigrationResult
	err := s.store.RunInTx(ctx, func(tx repository.Store) error {
		result = entity.MigrationResult{}

		exists, err := tx.Users().Exists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("user %d: %w", userID, entity.ErrNotFound)
		}

		lines, err := tx.Carts().List(ctx, guest)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if err := migrateLine(ctx, tx, guest, user, line, &result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return entity.MigrationResult{}, err
	}

	result.MergedLineCount = result.Reassigned + result.Merged
	if result.MergedLineCount > 0 {
		slog.Info("Guest cart migrated", "guest", guest.String(), "user_id", userID,
			"reassigned", result.Reassigned, "merged", result.Merged)
	}
	return result, nil
}

func migrateLine(ctx context.Context, tx repository.Store, guest, user entity.OwnerKey, line entity.CartLine, result *entity.MigrationResult) error {
	existing, err := tx.Carts().Find(ctx, user, line.ProductID, line.Size)
	if errors.Is(err, entity.ErrNotFound) {
		if err := tx.Carts().Reassign(ctx, guest, line.ID, user); err != nil {
			return err
		}
		result.Reassigned++
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := tx.Carts().SetQuantity(ctx, user, existing.ID, existing.Quantity+line.Quantity); err != nil {
		return err
	}
	if err := tx.Carts().Delete(ctx, guest, line.ID); err != nil {
		return err
	}
	result.Merged++
	return nil
}
