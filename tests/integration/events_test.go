//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type orderEvent struct {
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	RestaurantID string    `json:"restaurant_id"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// bindEventQueue opens a fresh channel with an exclusive auto-delete queue
// bound to the order events exchange and starts consuming.
func bindEventQueue(t *testing.T) <-chan amqp091.Delivery {
	t.Helper()

	conn, err := amqp091.Dial(amqpURL)
	if err != nil {
		t.Fatalf("dial rabbitmq: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ch, err := conn.Channel()
	if err != nil {
		t.Fatalf("open channel: %v", err)
	}

	// The API declares the exchange on startup; redeclare with identical
	// parameters so the test does not depend on ordering.
	if err := ch.ExchangeDeclare("orders.events", "topic", true, false, false, false, nil); err != nil {
		t.Fatalf("declare exchange: %v", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		t.Fatalf("declare queue: %v", err)
	}
	if err := ch.QueueBind(q.Name, "order.#", "orders.events", false, nil); err != nil {
		t.Fatalf("bind queue: %v", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	return deliveries
}

func nextEvent(t *testing.T, deliveries <-chan amqp091.Delivery) (amqp091.Delivery, orderEvent) {
	t.Helper()

	select {
	case d := <-deliveries:
		var e orderEvent
		if err := json.Unmarshal(d.Body, &e); err != nil {
			t.Fatalf("decode event %q: %v", d.Body, err)
		}
		return d, e
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for order event")
		return amqp091.Delivery{}, orderEvent{}
	}
}

func TestOrderEventsPublished(t *testing.T) {
	deliveries := bindEventQueue(t)

	o := placeOrder(t)

	d, e := nextEvent(t, deliveries)
	if d.RoutingKey != "order.pending" {
		t.Errorf("routing key: got %q, want order.pending", d.RoutingKey)
	}
	if d.ContentType != "application/json" {
		t.Errorf("content type: got %q", d.ContentType)
	}
	if e.OrderID != o.OrderID {
		t.Errorf("order_id: got %q, want %q", e.OrderID, o.OrderID)
	}
	if e.OrderNumber != o.OrderNumber {
		t.Errorf("order_number: got %q, want %q", e.OrderNumber, o.OrderNumber)
	}
	if e.RestaurantID != restaurantID {
		t.Errorf("restaurant_id: got %q", e.RestaurantID)
	}
	if e.Status != "pending" {
		t.Errorf("status: got %q, want pending", e.Status)
	}
	if e.OccurredAt.IsZero() {
		t.Error("occurred_at must be set")
	}
}

func TestStatusChangeEventRouting(t *testing.T) {
	deliveries := bindEventQueue(t)

	o := placeOrder(t)
	nextEvent(t, deliveries) // order.pending

	resp, env := doRequest(t, http.MethodPut, "/orders/"+o.OrderID, map[string]any{
		"status": "accepted",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}

	d, e := nextEvent(t, deliveries)
	if d.RoutingKey != "order.accepted" {
		t.Errorf("routing key: got %q, want order.accepted", d.RoutingKey)
	}
	if e.Status != "accepted" {
		t.Errorf("status: got %q, want accepted", e.Status)
	}
	if e.OrderID != o.OrderID {
		t.Errorf("order_id: got %q, want %q", e.OrderID, o.OrderID)
	}
}
