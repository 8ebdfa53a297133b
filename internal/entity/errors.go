package entity

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated       = errors.New("authentication required")
	ErrAuthorizationDenied   = errors.New("operation requires a signed-in user")
	ErrForbidden             = errors.New("resource belongs to another user")
	ErrNotFound              = errors.New("not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidState          = errors.New("invalid state")
	ErrConflict              = errors.New("conflict")
	ErrInvalidArgument       = errors.New("invalid argument")

	// ErrLockTimeout is the only retryable error: the transaction was rolled
	// back because a lock could not be acquired in time.
	ErrLockTimeout = errors.New("lock wait timed out")
)

// InsufficientInventoryError carries the numbers behind an
// ErrInsufficientInventory failure.
type InsufficientInventoryError struct {
	ProductID int64
	Size      string
	Available int
	Requested int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for product %d size %q: available %d, requested %d",
		e.ProductID, e.Size, e.Available, e.Requested)
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

// Kind is the stable, machine-readable name of an error class.
type Kind string

const (
	KindUnauthenticated       Kind = "unauthenticated"
	KindAuthorizationDenied   Kind = "authorization_denied"
	KindForbidden             Kind = "forbidden"
	KindNotFound              Kind = "not_found"
	KindInsufficientInventory Kind = "insufficient_inventory"
	KindEmptyCart             Kind = "empty_cart"
	KindInvalidState          Kind = "invalid_state"
	KindConflict              Kind = "conflict"
	KindInvalidArgument       Kind = "invalid_argument"
	KindLockTimeout           Kind = "lock_timeout"
	KindInternal              Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	// Lock timeouts are checked first: a timed-out statement may also
	// carry a constraint error from the driver.
	{ErrLockTimeout, KindLockTimeout},
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrAuthorizationDenied, KindAuthorizationDenied},
	{ErrForbidden, KindForbidden},
	{ErrInsufficientInventory, KindInsufficientInventory},
	{ErrEmptyCart, KindEmptyCart},
	{ErrInvalidState, KindInvalidState},
	{ErrConflict, KindConflict},
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrNotFound, KindNotFound},
}

// KindOf maps err to its Kind. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsRetryable reports whether the caller may retry the operation.
// Business-rule failures are never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
