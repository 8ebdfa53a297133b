package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// CartService manages owner-scoped carts. Inventory checks here are advisory:
// nothing is reserved until checkout debits the ledger.
type CartService struct {
	store repository.Store
	now   func() time.Time
}

func NewCartService(store repository.Store) *CartService {
	return &CartService{store: store, now: time.Now}
}

// Add puts quantity units of (productID, size) in the cart, merging with an
// existing line. The merged quantity must fit the current stock.
func (s *CartService) Add(ctx context.Context, owner entity.OwnerKey, productID int64, size string, quantity int) (entity.CartLine, error) {
	if err := requireOwner(owner); err != nil {
		return entity.CartLine{}, err
	}
	if quantity <= 0 {
		return entity.CartLine{}, fmt.Errorf("quantity must be positive, got %d: %w", quantity, entity.ErrInvalidArgument)
	}

	var line entity.CartLine
	err := s.store.RunInTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Products().Get(ctx, productID); err != nil {
			return err
		}
		inv, err := tx.Inventory().Get(ctx, productID, size)
		if err != nil {
			return err
		}

		existing := 0
		current, err := tx.Carts().Find(ctx, owner, productID, size)
		switch {
		case err == nil:
			existing = current.Quantity
		case !errors.Is(err, entity.ErrNotFound):
			return err
		}

		if existing+quantity > inv.Quantity {
			return &entity.InsufficientInventoryError{
				ProductID: productID,
				Size:      size,
				Available: inv.Quantity,
				Requested: existing + quantity,
			}
		}

		line, err = tx.Carts().Upsert(ctx, owner, productID, size, quantity, s.now())
		return err
	})
	if err != nil {
		return entity.CartLine{}, err
	}

	slog.Debug("Service: Added item to cart", "owner", owner.String(), "product_id", productID, "size", size, "quantity", line.Quantity)
	return line, nil
}

// UpdateQuantity sets a line's quantity. Zero removes the line and returns
// the zero CartLine.
func (s *CartService) UpdateQuantity(ctx context.Context, owner entity.OwnerKey, lineID int64, quantity int) (entity.CartLine, error) {
	if err := requireOwner(owner); err != nil {
		return entity.CartLine{}, err
	}
	if quantity < 0 {
		return entity.CartLine{}, fmt.Errorf("quantity must not be negative, got %d: %w", quantity, entity.ErrInvalidArgument)
	}
	if quantity == 0 {
		return entity.CartLine{}, s.Remove(ctx, owner, lineID)
	}

	var line entity.CartLine
	err := s.store.RunInTx(ctx, func(tx repository.Store) error {
		current, err := tx.Carts().Get(ctx, owner, lineID)
		if err != nil {
			return err
		}
		inv, err := tx.Inventory().Get(ctx, current.ProductID, current.Size)
		if err != nil {
			return err
		}
		if quantity > inv.Quantity {
			return &entity.InsufficientInventoryError{
				ProductID: current.ProductID,
				Size:      current.Size,
				Available: inv.Quantity,
				Requested: quantity,
			}
		}
		line, err = tx.Carts().SetQuantity(ctx, owner, lineID, quantity)
		return err
	})
	if err != nil {
		return entity.CartLine{}, err
	}
	return line, nil
}

func (s *CartService) Remove(ctx context.Context, owner entity.OwnerKey, lineID int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	return s.store.Carts().Delete(ctx, owner, lineID)
}

// Clear empties the cart. Clearing an empty cart is not an error.
func (s *CartService) Clear(ctx context.Context, owner entity.OwnerKey) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	n, err := s.store.Carts().Clear(ctx, owner)
	if err != nil {
		return err
	}
	slog.Debug("Service: Cleared cart", "owner", owner.String(), "lines", n)
	return nil
}

// List returns the cart lines in the order they were first added.
func (s *CartService) List(ctx context.Context, owner entity.OwnerKey) ([]entity.CartLine, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	return s.store.Carts().List(ctx, owner)
}

// Total sums quantity × current catalog price. Lines whose product has
// disappeared contribute nothing; Validate reports them.
func (s *CartService) Total(ctx context.Context, owner entity.OwnerKey) (decimal.Decimal, error) {
	lines, err := s.List(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	prices := make(map[int64]decimal.Decimal)
	for _, line := range lines {
		price, ok := prices[line.ProductID]
		if !ok {
			p, err := s.store.Products().Get(ctx, line.ProductID)
			if errors.Is(err, entity.ErrNotFound) {
				continue
			}
			if err != nil {
				return decimal.Zero, err
			}
			price = p.Price
			prices[line.ProductID] = price
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total, nil
}

// ItemCount is the number of units in the cart.
func (s *CartService) ItemCount(ctx context.Context, owner entity.OwnerKey) (int, error) {
	lines, err := s.List(ctx, owner)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return count, nil
}

// Validate checks every line against the catalog and current stock without
// changing anything.
func (s *CartService) Validate(ctx context.Context, owner entity.OwnerKey) (entity.ValidationReport, error) {
	lines, err := s.List(ctx, owner)
	if err != nil {
		return entity.ValidationReport{}, err
	}

	issues := []entity.ValidationIssue{}
	for _, line := range lines {
		issue, err := s.validateLine(ctx, line)
		if err != nil {
			return entity.ValidationReport{}, err
		}
		if issue != nil {
			issues = append(issues, *issue)
		}
	}
	return entity.ValidationReport{Valid: len(issues) == 0, Issues: issues}, nil
}

func (s *CartService) validateLine(ctx context.Context, line entity.CartLine) (*entity.ValidationIssue, error) {
	issue := &entity.ValidationIssue{
		LineID:    line.ID,
		ProductID: line.ProductID,
		Size:      line.Size,
		Requested: line.Quantity,
	}

	_, err := s.store.Products().Get(ctx, line.ProductID)
	if errors.Is(err, entity.ErrNotFound) {
		issue.Issue = entity.IssueProductNotFound
		issue.Message = fmt.Sprintf("product %d no longer exists", line.ProductID)
		return issue, nil
	}
	if err != nil {
		return nil, err
	}

	inv, err := s.store.Inventory().Get(ctx, line.ProductID, line.Size)
	if errors.Is(err, entity.ErrNotFound) {
		issue.Issue = entity.IssueSizeUnavailable
		issue.Message = fmt.Sprintf("size %q is not offered for product %d", line.Size, line.ProductID)
		return issue, nil
	}
	if err != nil {
		return nil, err
	}

	if line.Quantity > inv.Quantity {
		issue.Issue = entity.IssueInsufficientInventory
		issue.Available = inv.Quantity
		issue.Message = fmt.Sprintf("only %d left in size %q", inv.Quantity, line.Size)
		return issue, nil
	}
	return nil, nil
}

// SweepExpiredGuestCarts deletes guest lines added more than olderThan ago.
// Carts hold no stock, so nothing is credited back to the ledger.
func (s *CartService) SweepExpiredGuestCarts(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("sweep age must be positive, got %s: %w", olderThan, entity.ErrInvalidArgument)
	}
	cutoff := s.now().Add(-olderThan)
	n, err := s.store.Carts().DeleteGuestLinesBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Swept expired guest cart lines", "lines", n, "cutoff", cutoff)
	}
	return n, nil
}

func requireOwner(owner entity.OwnerKey) error {
	if !owner.Valid() {
		return fmt.Errorf("cart owner is not set: %w", entity.ErrUnauthenticated)
	}
	return nil
}
