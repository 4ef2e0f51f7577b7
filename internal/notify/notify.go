// Package notify emits order lifecycle events to the notification
// collaborator. Only emission lives here: delivery, fan-out and read/unread
// tracking belong to the consumer side.
package notify

import (
	"context"

	"github.com/go-faster/jx"

	"github.com/tableside/order-service/internal/order"
)

// routingKey builds the per-status routing key, e.g. order.pending on
// creation or order.accepted after a transition.
func routingKey(e order.Event) string {
	return "order." + string(e.Status)
}

// encodeEvent serializes an event to its wire JSON.
func encodeEvent(e order.Event) []byte {
	var enc jx.Encoder
	enc.Obj(func(enc *jx.Encoder) {
		enc.Field("order_id", func(enc *jx.Encoder) { enc.Str(e.OrderID) })
		enc.Field("order_number", func(enc *jx.Encoder) { enc.Str(e.OrderNumber) })
		enc.Field("restaurant_id", func(enc *jx.Encoder) { enc.Str(e.RestaurantID) })
		enc.Field("status", func(enc *jx.Encoder) { enc.Str(string(e.Status)) })
		enc.Field("occurred_at", func(enc *jx.Encoder) { enc.Str(e.OccurredAt.Format(timeLayout)) })
	})
	return enc.Bytes()
}

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00" // RFC 3339 with nanoseconds

// Noop discards all events. Wired when no broker URL is configured.
type Noop struct{}

// Publish implements order.Notifier.
func (Noop) Publish(context.Context, order.Event) error { return nil }
