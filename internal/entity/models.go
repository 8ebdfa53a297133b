package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the slice of the catalog the checkout core depends on:
// existence and the current price.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// PriceScale is the number of decimal places a stored price keeps.
const PriceScale = 2

// Validate rejects products whose price the database could not store
// exactly.
func (p Product) Validate() error {
	if p.Price.IsNegative() {
		return fmt.Errorf("product %q has negative price %s: %w", p.Name, p.Price, ErrInvalidArgument)
	}
	if !p.Price.Equal(p.Price.Round(PriceScale)) {
		return fmt.Errorf("product %q price %s has more than %d decimal places: %w", p.Name, p.Price, PriceScale, ErrInvalidArgument)
	}
	return nil
}

// User is an authenticated customer. Only existence matters here.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// InventoryLine is the available stock for one size of one product.
type InventoryLine struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// Adjustment is a signed change to one inventory line.
type Adjustment struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Delta     int    `json:"delta"`
}

// CartLine is an item in a cart. There is at most one line per
// (owner, product, size).
type CartLine struct {
	ID        int64     `json:"id"`
	Owner     OwnerKey  `json:"-"`
	ProductID int64     `json:"product_id"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// CheckoutDetails are the optional, free-form fields captured at checkout.
type CheckoutDetails struct {
	ShippingAddress string `json:"shipping_address,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Order is a customer order. Only Status changes after creation.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CheckoutDetails
	Lines []OrderLine `json:"lines"`
}

// OrderLine is an immutable line of an order. PriceAtTime is the catalog
// price captured when the order was placed.
type OrderLine struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
}

// Subtotal returns quantity × PriceAtTime.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.PriceAtTime.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// IssueKind classifies a cart validation problem.
type IssueKind string

const (
	IssueProductNotFound       IssueKind = "product_not_found"
	IssueSizeUnavailable       IssueKind = "size_unavailable"
	IssueInsufficientInventory IssueKind = "insufficient_inventory"
)

// ValidationIssue describes one cart line that cannot currently be ordered.
type ValidationIssue struct {
	LineID    int64     `json:"line_id"`
	ProductID int64     `json:"product_id"`
	Size      string    `json:"size"`
	Issue     IssueKind `json:"issue"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
	Message   string    `json:"message"`
}

// ValidationReport is the read-only result of checking a cart against the
// catalog and inventory.
type ValidationReport struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
}

// MigrationResult summarises a guest-to-user cart migration.
type MigrationResult struct {
	// MergedLineCount is the number of guest lines that now belong to the user.
	MergedLineCount int `json:"merged_line_count"`
	Reassigned      int `json:"reassigned"`
	Merged          int `json:"merged"`
}
