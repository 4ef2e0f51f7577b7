package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tableside/order-service/internal/catalog"
)

// Event is emitted to the notification sink on order creation and on every
// status transition. Delivery, fan-out and read tracking are out of scope.
type Event struct {
	OrderID      string
	OrderNumber  string
	RestaurantID string
	Status       Status
	OccurredAt   time.Time
}

// Notifier is the external notification sink. Publish failures never fail the
// workflow; they are logged and dropped.
type Notifier interface {
	Publish(ctx context.Context, e Event) error
}

// CreateRequest is the validated input for placing an order. The upstream
// authorization layer has already established that the caller may act on
// RestaurantID and TableID; the workflow trusts them as-is.
type CreateRequest struct {
	RestaurantID        string
	TableID             string
	CustomerID          string
	SpecialInstructions string
	Items               []Line
}

// Service orchestrates pricing, assembly, persistence and the transition
// guard for the public order operations. All dependencies are injected at
// construction; there is no global storage client.
type Service struct {
	catalog catalog.Repository
	pricing *Resolver
	store   Store
	notify  Notifier
}

// NewService creates a Service with the required collaborators.
func NewService(c catalog.Repository, store Store, notify Notifier) *Service {
	return &Service{
		catalog: c,
		pricing: NewResolver(c),
		store:   store,
		notify:  notify,
	}
}

// CreateOrder turns a client cart into a durable, price-correct order:
// resolve prices from the catalog, assemble the aggregate, commit atomically,
// then emit an order_placed event.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, ln := range req.Items {
		if ln.Quantity <= 0 {
			return nil, &InvalidQuantityError{MenuItemID: ln.MenuItemID}
		}
	}

	ids := make([]string, len(req.Items))
	for i, ln := range req.Items {
		ids[i] = ln.MenuItemID
	}
	prices, err := s.pricing.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	settings, err := s.catalog.Settings(ctx, req.RestaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "restaurant settings")
	}

	o, err := Assemble(Header{
		RestaurantID:        req.RestaurantID,
		TableID:             req.TableID,
		CustomerID:          req.CustomerID,
		SpecialInstructions: req.SpecialInstructions,
	}, req.Items, prices, *settings, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateAtomic(ctx, o)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, created)
	return created, nil
}

// ChangeStatus validates the requested transition against the status actually
// in storage and applies it via a conditional write. On a write conflict it
// refetches, re-runs the guard once, and retries; a second conflict surfaces
// ErrConcurrentModification.
func (s *Service) ChangeStatus(ctx context.Context, id string, next Status) (*Order, error) {
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.tryTransition(ctx, id, cur.Status, next)
	if errors.Is(err, ErrConcurrentModification) {
		// Someone advanced the order between our read and write.
		// Re-evaluate against the fresh status and retry once.
		cur, err = s.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		updated, err = s.tryTransition(ctx, id, cur.Status, next)
	}
	if err != nil {
		return nil, err
	}

	s.emit(ctx, updated)
	return updated, nil
}

func (s *Service) tryTransition(ctx context.Context, id string, current, next Status) (*Order, error) {
	if err := CheckTransition(current, next); err != nil {
		return nil, err
	}
	return s.store.UpdateStatus(ctx, id, current, next)
}

// UpdateOrder applies a PUT-style partial update: an optional status change
// through the transition guard plus a header field patch. Items and money
// fields are never touched.
func (s *Service) UpdateOrder(ctx context.Context, id string, next *Status, patch FieldPatch) (*Order, error) {
	if next != nil {
		if _, err := s.ChangeStatus(ctx, id, *next); err != nil {
			return nil, err
		}
	}
	if patch == (FieldPatch{}) {
		return s.store.GetByID(ctx, id)
	}
	return s.store.UpdateFields(ctx, id, patch)
}

// GetOrder returns the order with its items.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.store.GetByID(ctx, id)
}

// ListOrders returns all orders matching the filters, items attached.
func (s *Service) ListOrders(ctx context.Context, f Filters) ([]Order, error) {
	return s.store.List(ctx, f)
}

// DeleteOrder removes an order and its items.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// emit publishes a notification event. Fire-and-forget: failures are logged,
// never surfaced.
func (s *Service) emit(ctx context.Context, o *Order) {
	if s.notify == nil {
		return
	}
	e := Event{
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		RestaurantID: o.RestaurantID,
		Status:       o.Status,
		OccurredAt:   time.Now().UTC(),
	}
	if err := s.notify.Publish(ctx, e); err != nil {
		zctx.From(ctx).Warn("order event publish failed",
			zap.String("order_id", o.ID),
			zap.String("status", string(o.Status)),
			zap.Error(err),
		)
	}
}
