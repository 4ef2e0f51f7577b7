// Package order implements the order placement and fulfillment workflow:
// server-side price resolution, aggregate assembly, the status state machine,
// and the service orchestrating them against a transactional store.
package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the aggregate root: a header plus its immutable set of line items,
// always read and written together.
type Order struct {
	ID     string
	Number string

	RestaurantID string
	TableID      string
	CustomerID   string // empty for anonymous orders

	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	ServiceCharge decimal.Decimal
	TotalAmount   decimal.Decimal

	Status              Status
	SpecialInstructions string

	Items []Item

	CreatedAt   time.Time
	UpdatedAt   time.Time
	AcceptedAt  *time.Time
	ReadyAt     *time.Time
	ServedAt    *time.Time
	CancelledAt *time.Time
}

// Item is a line item owned by an Order. UnitPrice is a point-in-time snapshot
// of the catalog price at creation; later catalog changes never affect it.
type Item struct {
	ID         string
	OrderID    string
	MenuItemID string
	Quantity   int

	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal

	// Customizations is an opaque JSON object (option name -> selection).
	// The workflow validates it is well-formed but never interprets it.
	Customizations json.RawMessage

	Status    ItemStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition is an append-only audit record of a status change.
type Transition struct {
	OrderID   string
	From      Status
	To        Status
	ChangedAt time.Time
}

// Filters narrows List results. Zero values match everything.
type Filters struct {
	RestaurantID string
	TableID      string
	Status       Status
}

// FieldPatch is a partial header update. Nil fields are left untouched.
// Status and money fields are deliberately absent: status changes go through
// the transition guard and money is derived at creation only.
type FieldPatch struct {
	SpecialInstructions *string
	CustomerID          *string
}

// Store is the persistence boundary for orders.
type Store interface {
	// CreateAtomic commits the order header and all its items as a single
	// unit: either both become visible or neither does. Implementations
	// classify partial failures as RecoveredWriteError (compensated, safe
	// to retry) or OrphanedWriteError (state indeterminate, alertable).
	CreateAtomic(ctx context.Context, o *Order) (*Order, error)

	// GetByID returns the order with its items eagerly attached, or
	// ErrNotFound.
	GetByID(ctx context.Context, id string) (*Order, error)

	// List returns matching orders with items attached.
	List(ctx context.Context, f Filters) ([]Order, error)

	// UpdateStatus conditionally moves an order from expected to next,
	// recording the transition and stamping the entered-at timestamp once.
	// Returns ErrConcurrentModification when the stored status no longer
	// equals expected, ErrNotFound when the order does not exist.
	UpdateStatus(ctx context.Context, id string, expected, next Status) (*Order, error)

	// UpdateFields applies a partial header patch.
	UpdateFields(ctx context.Context, id string, patch FieldPatch) (*Order, error)

	// Delete removes the order and, by ownership, its items.
	Delete(ctx context.Context, id string) error
}
