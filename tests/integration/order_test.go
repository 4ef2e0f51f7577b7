//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-[0-9A-Z]{6}$`)

func TestPlaceOrder(t *testing.T) {
	o := placeOrder(t)

	if !orderNumberPattern.MatchString(o.OrderNumber) {
		t.Errorf("order number %q has unexpected format", o.OrderNumber)
	}
	if o.Status != "pending" {
		t.Errorf("status: got %q, want pending", o.Status)
	}
	// 2 x 10.00 + 5.50 = 25.50; 10% tax = 2.55; 5% service = 1.28.
	if o.Subtotal != 25.50 {
		t.Errorf("subtotal: got %v, want 25.50", o.Subtotal)
	}
	if o.TaxAmount != 2.55 {
		t.Errorf("tax: got %v, want 2.55", o.TaxAmount)
	}
	if o.ServiceCharge != 1.28 {
		t.Errorf("service charge: got %v, want 1.28", o.ServiceCharge)
	}
	if o.TotalAmount != 29.33 {
		t.Errorf("total: got %v, want 29.33", o.TotalAmount)
	}
	if len(o.OrderItems) != 2 {
		t.Fatalf("expected 2 items, got %d", len(o.OrderItems))
	}
	if o.OrderItems[0].UnitPrice != 10.00 {
		t.Errorf("unit price snapshot: got %v, want 10.00", o.OrderItems[0].UnitPrice)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	resp, env := doRequest(t, http.MethodPost, "/orders", map[string]any{
		"restaurant_id": restaurantID,
		"table_id":      tableID,
		"order_items":   []any{},
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if env.Message != "Validation failed" {
		t.Errorf("message: got %q", env.Message)
	}
	if _, ok := env.Errors["order_items"]; !ok {
		t.Error("expected order_items field error")
	}
}

func TestPlaceOrder_UnknownItem(t *testing.T) {
	resp, env := doRequest(t, http.MethodPost, "/orders", map[string]any{
		"restaurant_id": restaurantID,
		"table_id":      tableID,
		"order_items":   []map[string]any{{"item_id": unknownID, "quantity": 1}},
	})

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%s)", resp.StatusCode, env.Message)
	}
}

func TestPlaceOrder_UnavailableItem(t *testing.T) {
	resp, env := doRequest(t, http.MethodPost, "/orders", map[string]any{
		"restaurant_id": restaurantID,
		"table_id":      tableID,
		"order_items":   []map[string]any{{"item_id": oystersID, "quantity": 1}},
	})

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%s)", resp.StatusCode, env.Message)
	}
}

func TestOrderLifecycle(t *testing.T) {
	o := placeOrder(t)

	for _, status := range []string{"accepted", "preparing", "ready", "served"} {
		resp, env := doRequest(t, http.MethodPut, "/orders/"+o.OrderID, map[string]any{
			"status": status,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s: expected 200, got %d (%s)", status, resp.StatusCode, env.Message)
		}
		got := decodeData[orderResponse](t, env)
		if got.Status != status {
			t.Fatalf("status after transition: got %q, want %q", got.Status, status)
		}
	}

	// Per-state timestamps were stamped along the way.
	resp, env := doRequest(t, http.MethodGet, "/orders/"+o.OrderID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	final := decodeData[orderResponse](t, env)
	if final.AcceptedAt == nil || final.ServedAt == nil {
		t.Error("accepted_at and served_at must be set after the full lifecycle")
	}
}

func TestIllegalTransition(t *testing.T) {
	o := placeOrder(t)

	resp, env := doRequest(t, http.MethodPut, "/orders/"+o.OrderID, map[string]any{
		"status": "served",
	})

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", resp.StatusCode, env.Message)
	}

	// Status unchanged.
	_, getEnv := doRequest(t, http.MethodGet, "/orders/"+o.OrderID, nil)
	if got := decodeData[orderResponse](t, getEnv); got.Status != "pending" {
		t.Errorf("status after rejected transition: got %q, want pending", got.Status)
	}
}

func TestCancelOrder(t *testing.T) {
	o := placeOrder(t)

	resp, env := doRequest(t, http.MethodPut, "/orders/"+o.OrderID, map[string]any{
		"status": "cancelled",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}

	got := decodeData[orderResponse](t, env)
	if got.Status != "cancelled" {
		t.Errorf("status: got %q, want cancelled", got.Status)
	}
	if got.CancelledAt == nil {
		t.Error("cancelled_at must be set")
	}

	// Terminal: no way out of cancelled.
	resp2, _ := doRequest(t, http.MethodPut, "/orders/"+o.OrderID, map[string]any{
		"status": "accepted",
	})
	if resp2.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 from terminal state, got %d", resp2.StatusCode)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp, env := doRequest(t, http.MethodGet, "/orders/"+unknownID, nil)

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if env.Message != "Order not found" {
		t.Errorf("message: got %q", env.Message)
	}
}

func TestListOrders_ByTable(t *testing.T) {
	o := placeOrder(t)

	resp, env := doRequest(t, http.MethodGet, "/orders?table_id="+tableID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	orders := decodeData[[]orderResponse](t, env)
	found := false
	for _, got := range orders {
		if got.OrderID == o.OrderID {
			found = true
			if len(got.OrderItems) == 0 {
				t.Error("listed orders must include items")
			}
		}
	}
	if !found {
		t.Errorf("order %s missing from table listing", o.OrderID)
	}
}

func TestUpdateOrder_Fields(t *testing.T) {
	o := placeOrder(t)

	resp, env := doRequest(t, http.MethodPut, "/orders/"+o.OrderID, map[string]any{
		"special_instructions": "no onions",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.StatusCode, env.Message)
	}

	got := decodeData[orderResponse](t, env)
	if got.SpecialInstructions == nil || *got.SpecialInstructions != "no onions" {
		t.Errorf("special_instructions not applied: %+v", got.SpecialInstructions)
	}
	if got.Status != "pending" {
		t.Errorf("status must be untouched, got %q", got.Status)
	}
}

func TestDeleteOrder(t *testing.T) {
	o := placeOrder(t)

	resp, _ := doRequest(t, http.MethodDelete, "/orders/"+o.OrderID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}

	resp2, _ := doRequest(t, http.MethodGet, "/orders/"+o.OrderID, nil)
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp2.StatusCode)
	}
}
