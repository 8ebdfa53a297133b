package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const (
	defaultOrderPageSize = 50
	maxOrderPageSize     = 200
)

// OrderService converts carts into orders and drives the order lifecycle.
// Every state change commits together with its inventory effect and its
// outbox event.
type OrderService struct {
	store repository.Store
	now   func() time.Time
}

func NewOrderService(store repository.Store) *OrderService {
	return &OrderService{store: store, now: time.Now}
}

// OrderStreamID is the event stream holding an order's history.
func OrderStreamID(orderID int64) string {
	return "order-" + strconv.FormatInt(orderID, 10)
}

// CreateOrder checks out the user's cart. On any error nothing has changed:
// no order rows exist, the cart is intact and no stock was debited.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, details entity.CheckoutDetails) (entity.Order, error) {
	owner := entity.UserOwner(userID)
	if !owner.Valid() {
		return entity.Order{}, fmt.Errorf("invalid user id %d: %w", userID, entity.ErrInvalidArgument)
	}
	slog.Info("Service: Placing order", "user_id", userID)

	var order entity.Order
	err := s.store.RunInTx(ctx, func(tx repository.Store) error {
		lines, err := tx.Carts().ListForCheckout(ctx, owner)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return entity.ErrEmptyCart
		}

		order = entity.Order{
			UserID:          userID,
			Status:          entity.OrderStatusConfirmed,
			CreatedAt:       s.timestamp(),
			CheckoutDetails: details,
			Lines:           make([]entity.OrderLine, 0, len(lines)),
		}
		total := decimal.Zero
		prices := make(map[int64]decimal.Decimal)
		debits := make([]entity.Adjustment, 0, len(lines))
		lineIDs := make([]int64, 0, len(lines))

		for _, line := range lines {
			price, ok := prices[line.ProductID]
			if !ok {
				p, err := tx.Products().Get(ctx, line.ProductID)
				if err != nil {
					return fmt.Errorf("cart line %d: %w", line.ID, err)
				}
				price = p.Price
				prices[line.ProductID] = price
			}

			orderLine := entity.OrderLine{
				ProductID:   line.ProductID,
				Size:        line.Size,
				Quantity:    line.Quantity,
				PriceAtTime: price,
			}
			total = total.Add(orderLine.Subtotal())
			order.Lines = append(order.Lines, orderLine)
			debits = append(debits, entity.Adjustment{ProductID: line.ProductID, Size: line.Size, Delta: -line.Quantity})
			lineIDs = append(lineIDs, line.ID)
		}
		order.TotalAmount = total

		if err := NewLedger(tx).TryAdjustAll(ctx, debits); err != nil {
			return err
		}
		if err := tx.Orders().Create(ctx, &order); err != nil {
			return err
		}
		if _, err := tx.Carts().DeleteLines(ctx, owner, lineIDs); err != nil {
			return err
		}

		return tx.Events().Append(ctx, OrderStreamID(order.ID), entity.StreamTypeOrder, []entity.Event{
			entity.OrderCreated{
				OrderID:     order.ID,
				UserID:      userID,
				TotalAmount: order.TotalAmount,
				Lines:       order.Lines,
				CreatedAt:   order.CreatedAt,
			},
		})
	})
	if err != nil {
		return entity.Order{}, err
	}

	slog.Info("Order created", "order_id", order.ID, "user_id", userID, "lines", len(order.Lines), "total", order.TotalAmount.StringFixed(2))
	return order, nil
}

// CancelOrder cancels the caller's own pending or confirmed order and puts
// its stock back.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, callerUserID int64) (entity.Order, error) {
	var order entity.Order
	err := s.store.RunInTx(ctx, func(tx repository.Store) error {
		o, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != callerUserID {
			return fmt.Errorf("order %d: %w", orderID, entity.ErrForbidden)
		}
		order, err = s.cancel(ctx, tx, o, false)
		return err
	})
	if err != nil {
		return entity.Order{}, err
	}
	slog.Info("Order cancelled", "order_id", orderID, "user_id", callerUserID)
	return order, nil
}

// AdvanceStatus is the administrative transition. Forward moves go one step
// at a time; moving to cancelled behaves like CancelOrder without the
// ownership check.
func (s *OrderService) AdvanceStatus(ctx context.Context, orderID int64, to entity.OrderStatus) (entity.Order, error) {
	if _, err := entity.ParseOrderStatus(string(to)); err != nil {
		return entity.Order{}, err
	}

	var order entity.Order
	err := s.store.RunInTx(ctx, func(tx repository.Store) error {
		o, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if to == entity.OrderStatusCancelled {
			order, err = s.cancel(ctx, tx, o, true)
			return err
		}

		from := o.Status
		if !from.CanAdvanceTo(to) {
			return fmt.Errorf("order %d cannot move from %s to %s: %w", orderID, from, to, entity.ErrInvalidState)
		}
		ok, err := tx.Orders().CompareAndSetStatus(ctx, orderID, []entity.OrderStatus{from}, to)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("order %d changed status concurrently: %w", orderID, entity.ErrInvalidState)
		}

		o.Status = to
		order = o
		return tx.Events().Append(ctx, OrderStreamID(orderID), entity.StreamTypeOrder, []entity.Event{
			entity.OrderStatusChanged{OrderID: orderID, From: from, To: to, ChangedAt: s.timestamp()},
		})
	})
	if err != nil {
		return entity.Order{}, err
	}
	slog.Info("Order status changed", "order_id", orderID, "status", order.Status)
	return order, nil
}

// cancel flips the status before crediting stock. The compare-and-set lets
// only one of two concurrent cancels through, so stock is restored once.
func (s *OrderService) cancel(ctx context.Context, tx repository.Store, o entity.Order, byAdmin bool) (entity.Order, error) {
	if !o.Status.Cancellable() {
		return entity.Order{}, fmt.Errorf("order %d is %s: %w", o.ID, o.Status, entity.ErrInvalidState)
	}
	ok, err := tx.Orders().CompareAndSetStatus(ctx, o.ID, entity.CancellableStatuses(), entity.OrderStatusCancelled)
	if err != nil {
		return entity.Order{}, err
	}
	if !ok {
		return entity.Order{}, fmt.Errorf("order %d was already cancelled or shipped: %w", o.ID, entity.ErrInvalidState)
	}

	credits := make([]entity.Adjustment, 0, len(o.Lines))
	for _, line := range o.Lines {
		credits = append(credits, entity.Adjustment{ProductID: line.ProductID, Size: line.Size, Delta: line.Quantity})
	}
	if err := NewLedger(tx).TryAdjustAll(ctx, credits); err != nil {
		return entity.Order{}, fmt.Errorf("failed to restore inventory for order %d: %w", o.ID, err)
	}

	err = tx.Events().Append(ctx, OrderStreamID(o.ID), entity.StreamTypeOrder, []entity.Event{
		entity.OrderCancelled{
			OrderID:     o.ID,
			UserID:      o.UserID,
			Restored:    credits,
			ByAdmin:     byAdmin,
			CancelledAt: s.timestamp(),
		},
	})
	if err != nil {
		return entity.Order{}, err
	}

	o.Status = entity.OrderStatusCancelled
	return o, nil
}

// GetOrder returns one of the caller's orders.
func (s *OrderService) GetOrder(ctx context.Context, orderID, callerUserID int64) (entity.Order, error) {
	o, err := s.store.Orders().Get(ctx, orderID)
	if err != nil {
		return entity.Order{}, err
	}
	if o.UserID != callerUserID {
		return entity.Order{}, fmt.Errorf("order %d: %w", orderID, entity.ErrForbidden)
	}
	return o, nil
}

// ListUserOrders pages through a user's orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64, limit, offset int) ([]entity.Order, error) {
	limit, offset = pageBounds(limit, offset)
	return nonNil(s.store.Orders().ListByUser(ctx, userID, limit, offset))
}

// ListOrdersByStatus pages through every user's orders in status, newest
// first. An empty status lists all orders.
func (s *OrderService) ListOrdersByStatus(ctx context.Context, status entity.OrderStatus, limit, offset int) ([]entity.Order, error) {
	limit, offset = pageBounds(limit, offset)
	if status == "" {
		return nonNil(s.store.Orders().ListRecent(ctx, limit, offset))
	}
	if _, err := entity.ParseOrderStatus(string(status)); err != nil {
		return nil, err
	}
	return nonNil(s.store.Orders().ListByStatus(ctx, status, limit, offset))
}

// Statistics summarises a user's orders.
func (s *OrderService) Statistics(ctx context.Context, userID int64) (entity.OrderStatistics, error) {
	if userID <= 0 {
		return entity.OrderStatistics{}, fmt.Errorf("invalid user id %d: %w", userID, entity.ErrInvalidArgument)
	}
	totals, err := s.store.Orders().StatusTotals(ctx, userID)
	if err != nil {
		return entity.OrderStatistics{}, err
	}
	return entity.NewOrderStatistics(totals), nil
}

// StoreStatistics summarises every order in the store.
func (s *OrderService) StoreStatistics(ctx context.Context) (entity.OrderStatistics, error) {
	totals, err := s.store.Orders().StatusTotals(ctx, 0)
	if err != nil {
		return entity.OrderStatistics{}, err
	}
	return entity.NewOrderStatistics(totals), nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultOrderPageSize
	}
	return min(limit, maxOrderPageSize), max(offset, 0)
}

func nonNil(orders []entity.Order, err error) ([]entity.Order, error) {
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []entity.Order{}
	}
	return orders, nil
}

// OrderHistory returns the recorded events of an order, oldest first.
func (s *OrderService) OrderHistory(ctx context.Context, orderID int64) ([]entity.EventStoreRecord, error) {
	if _, err := s.store.Orders().Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.Events().Load(ctx, OrderStreamID(orderID))
}

func (s *OrderService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
