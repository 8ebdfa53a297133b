package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerKey_ExactlyOneVariant(t *testing.T) {
	u := UserOwner(9)
	require.True(t, u.Valid())
	id, ok := u.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)
	_, ok = u.GuestCookie()
	assert.False(t, ok)
	assert.False(t, u.IsGuest())

	g := GuestOwner("guest_abcdefghijklmnopqrstuvwxyz012345")
	require.True(t, g.Valid())
	c, ok := g.GuestCookie()
	assert.True(t, ok)
	assert.Equal(t, "guest_abcdefghijklmnopqrstuvwxyz012345", c)
	_, ok = g.UserID()
	assert.False(t, ok)
	assert.True(t, g.IsGuest())

	assert.False(t, OwnerKey{}.Valid())
	assert.False(t, UserOwner(0).Valid())
	assert.False(t, GuestOwner("").Valid())
}

func TestOwnerKey_StringTruncatesCookie(t *testing.T) {
	g := GuestOwner("guest_abcdefghijklmnopqrstuvwxyz012345")
	assert.Equal(t, "guest:guest_abcdef...", g.String())
	assert.NotContains(t, fmt.Sprintf("%#v", g), "xyz")
	assert.Equal(t, "user:42", UserOwner(42).String())
	assert.Equal(t, "none", OwnerKey{}.String())
}

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusShipped, OrderStatusConfirmed, false},
		{OrderStatusDelivered, OrderStatusDelivered, false},
		{OrderStatusConfirmed, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to))
		})
	}

	assert.True(t, OrderStatusPending.Cancellable())
	assert.True(t, OrderStatusConfirmed.Cancellable())
	assert.False(t, OrderStatusShipped.Cancellable())
	assert.False(t, OrderStatusDelivered.Cancellable())
	assert.False(t, OrderStatusCancelled.Cancellable())
	assert.True(t, OrderStatusCancelled.Terminal())
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, st)

	_, err = ParseOrderStatus("paid")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestKindOf(t *testing.T) {
	insufficient := &InsufficientInventoryError{ProductID: 7, Size: "M", Available: 0, Requested: 1}
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"wrapped not found", fmt.Errorf("cart line 3: %w", ErrNotFound), KindNotFound},
		{"insufficient", fmt.Errorf("checkout: %w", insufficient), KindInsufficientInventory},
		{"lock timeout beats conflict", fmt.Errorf("commit: %w: %w", ErrLockTimeout, ErrConflict), KindLockTimeout},
		{"empty cart", ErrEmptyCart, KindEmptyCart},
		{"guest on user route", ErrAuthorizationDenied, KindAuthorizationDenied},
		{"unknown", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestInsufficientInventoryError(t *testing.T) {
	err := fmt.Errorf("adjust: %w", &InsufficientInventoryError{ProductID: 5, Size: "L", Available: 1, Requested: 3})

	assert.ErrorIs(t, err, ErrInsufficientInventory)
	var inv *InsufficientInventoryError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 1, inv.Available)
	assert.Equal(t, 3, inv.Requested)
	assert.Contains(t, err.Error(), `size "L"`)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("tx: %w", ErrLockTimeout)))
	assert.False(t, IsRetryable(ErrInsufficientInventory))
	assert.False(t, IsRetryable(ErrEmptyCart))
	assert.False(t, IsRetryable(nil))
}

func TestOrderLine_Subtotal(t *testing.T) {
	line := OrderLine{Quantity: 3, PriceAtTime: decimal.RequireFromString("19.99")}
	assert.Equal(t, "59.97", line.Subtotal().String())
}

func TestProduct_Validate(t *testing.T) {
	for _, price := range []string{"0", "19.99", "19.990", "5"} {
		assert.NoError(t, Product{Name: "tee", Price: decimal.RequireFromString(price)}.Validate(), price)
	}
	for _, price := range []string{"19.999", "0.001", "-1.00"} {
		err := Product{Name: "tee", Price: decimal.RequireFromString(price)}.Validate()
		assert.ErrorIs(t, err, ErrInvalidArgument, price)
	}
}

func TestNewOrderStatistics(t *testing.T) {
	stats := NewOrderStatistics([]StatusTotal{
		{Status: OrderStatusConfirmed, Count: 2, Amount: decimal.RequireFromString("30.00")},
		{Status: OrderStatusDelivered, Count: 1, Amount: decimal.RequireFromString("10.01")},
		{Status: OrderStatusCancelled, Count: 1, Amount: decimal.RequireFromString("99.99")},
	})

	assert.Equal(t, 4, stats.TotalOrders)
	assert.Equal(t, "40.01", stats.TotalSpent.StringFixed(2))
	assert.Equal(t, "10.00", stats.AverageOrderValue.StringFixed(2))
	assert.Equal(t, map[OrderStatus]int{
		OrderStatusPending:   0,
		OrderStatusConfirmed: 2,
		OrderStatusShipped:   0,
		OrderStatusDelivered: 1,
		OrderStatusCancelled: 1,
	}, stats.StatusBreakdown)
}

func TestNewOrderStatistics_NoOrders(t *testing.T) {
	stats := NewOrderStatistics(nil)
	assert.Zero(t, stats.TotalOrders)
	assert.True(t, stats.TotalSpent.IsZero())
	assert.True(t, stats.AverageOrderValue.IsZero())
	assert.Len(t, stats.StatusBreakdown, 5)
}
