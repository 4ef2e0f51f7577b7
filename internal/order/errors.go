package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors surfaced by the store.
var (
	// ErrNotFound is returned when an order id has no matching row.
	ErrNotFound = errors.New("order not found")

	// ErrConcurrentModification is returned when a conditional status
	// update lost the race after one retry. Callers should refetch and
	// repeat the whole operation rather than resubmit blindly.
	ErrConcurrentModification = errors.New("order modified concurrently")

	// ErrEmptyItems is returned when a create request carries no line items.
	ErrEmptyItems = errors.New("order must have at least one item")
)

// ItemsNotFoundError indicates one or more requested catalog items do not
// exist. The order is never persisted.
type ItemsNotFoundError struct {
	Missing []string
}

func (e *ItemsNotFoundError) Error() string {
	return fmt.Sprintf("menu items not found: %s", strings.Join(e.Missing, ", "))
}

// ItemsUnavailableError indicates requested catalog items exist but are
// currently marked unavailable.
type ItemsUnavailableError struct {
	Unavailable []string
}

func (e *ItemsUnavailableError) Error() string {
	return fmt.Sprintf("menu items unavailable: %s", strings.Join(e.Unavailable, ", "))
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	MenuItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s", e.MenuItemID)
}

// IllegalTransitionError indicates a requested status change violates the
// state machine. The change is never silently coerced to a legal one.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition from %q to %q", e.From, e.To)
}

// RecoveredWriteError indicates an atomic order+items write failed partway but
// was fully rolled back. Nothing persisted; the client may retry.
type RecoveredWriteError struct {
	OrderID string
	Cause   error
}

func (e *RecoveredWriteError) Error() string {
	return fmt.Sprintf("order %s creation failed and was rolled back: %v", e.OrderID, e.Cause)
}

func (e *RecoveredWriteError) Unwrap() error { return e.Cause }

// OrphanedWriteError indicates an atomic write failed and compensation also
// failed, so storage state is indeterminate. This is a data-integrity
// incident: it must be logged at the highest severity with the order id for
// manual cleanup, while the client only sees a generic failure.
type OrphanedWriteError struct {
	OrderID string
	Cause   error
}

func (e *OrphanedWriteError) Error() string {
	return fmt.Sprintf("order %s write left in indeterminate state: %v", e.OrderID, e.Cause)
}

func (e *OrphanedWriteError) Unwrap() error { return e.Cause }
