package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableside/order-service/internal/order"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "order.pending", routingKey(order.Event{Status: order.StatusPending}))
	assert.Equal(t, "order.cancelled", routingKey(order.Event{Status: order.StatusCancelled}))
}

func TestEncodeEvent(t *testing.T) {
	e := order.Event{
		OrderID:      "11111111-1111-1111-1111-111111111111",
		OrderNumber:  "ORD-20260827-X7K2QD",
		RestaurantID: "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa",
		Status:       order.StatusAccepted,
		OccurredAt:   time.Date(2026, 8, 27, 19, 30, 0, 500000000, time.UTC),
	}

	assert.JSONEq(t, `{
		"order_id": "11111111-1111-1111-1111-111111111111",
		"order_number": "ORD-20260827-X7K2QD",
		"restaurant_id": "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa",
		"status": "accepted",
		"occurred_at": "2026-08-27T19:30:00.5Z"
	}`, string(encodeEvent(e)))
}

func TestNoopPublish(t *testing.T) {
	require.NoError(t, Noop{}.Publish(context.Background(), order.Event{}))
}
