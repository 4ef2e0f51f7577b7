package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/tableside/order-service/internal/order"
)

// createOrderRequest mirrors the cart payload submitted from a table session.
// Prices are deliberately absent from the shape: unit prices are resolved
// server-side from the catalog and any client-supplied value is ignored.
type createOrderRequest struct {
	RestaurantID        string                   `json:"restaurant_id"`
	TableID             string                   `json:"table_id"`
	CustomerID          string                   `json:"customer_id"`
	SpecialInstructions string                   `json:"special_instructions"`
	OrderItems          []createOrderItemRequest `json:"order_items"`
}

type createOrderItemRequest struct {
	ItemID         string          `json:"item_id"`
	Quantity       int             `json:"quantity"`
	Customizations json.RawMessage `json:"customizations"`
}

type updateOrderRequest struct {
	Status              *string `json:"status"`
	SpecialInstructions *string `json:"special_instructions"`
	CustomerID          *string `json:"customer_id"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidation(w, map[string]string{"body": "Invalid JSON body"})
		return
	}

	if fields := req.validate(); len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	lines := make([]order.Line, len(req.OrderItems))
	for i, it := range req.OrderItems {
		lines[i] = order.Line{
			MenuItemID:     it.ItemID,
			Quantity:       it.Quantity,
			Customizations: it.Customizations,
		}
	}

	ctx, cancel := h.opContext(r)
	defer cancel()

	o, err := h.orders.CreateOrder(ctx, order.CreateRequest{
		RestaurantID:        req.RestaurantID,
		TableID:             req.TableID,
		CustomerID:          req.CustomerID,
		SpecialInstructions: req.SpecialInstructions,
		Items:               lines,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondData(w, http.StatusCreated, toOrderResponse(o), "Order created successfully")
}

func (req *createOrderRequest) validate() map[string]string {
	fields := make(map[string]string)
	if _, err := uuid.Parse(req.RestaurantID); err != nil {
		fields["restaurant_id"] = "Invalid ID format"
	}
	if _, err := uuid.Parse(req.TableID); err != nil {
		fields["table_id"] = "Invalid ID format"
	}
	if req.CustomerID != "" {
		if _, err := uuid.Parse(req.CustomerID); err != nil {
			fields["customer_id"] = "Invalid ID format"
		}
	}
	if len(req.OrderItems) == 0 {
		fields["order_items"] = "Order must have at least one item."
	}
	for _, it := range req.OrderItems {
		if _, err := uuid.Parse(it.ItemID); err != nil {
			fields["order_items"] = "Invalid item ID format"
		}
		if it.Quantity <= 0 {
			fields["order_items"] = "Quantity must be a positive integer"
		}
		if len(it.Customizations) > 0 && !isJSONObject(it.Customizations) {
			fields["order_items"] = "Customizations must be a JSON object"
		}
	}
	return fields
}

// isJSONObject reports whether raw is a well-formed JSON object. The contents
// stay opaque; the workflow never interprets customizations.
func isJSONObject(raw []byte) bool {
	d := jx.DecodeBytes(raw)
	if d.Next() != jx.Object {
		return false
	}
	return d.Validate() == nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fields := make(map[string]string)

	var f order.Filters
	if v := q.Get("restaurant_id"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			fields["restaurant_id"] = "Invalid ID format"
		}
		f.RestaurantID = v
	}
	if v := q.Get("table_id"); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			fields["table_id"] = "Invalid ID format"
		}
		f.TableID = v
	}
	if v := q.Get("status"); v != "" {
		st, ok := order.ParseStatus(v)
		if !ok {
			fields["status"] = "Unknown status"
		}
		f.Status = st
	}
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	ctx, cancel := h.opContext(r)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx, f)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	respondData(w, http.StatusOK, out, "Orders retrieved successfully")
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.opContext(r)
	defer cancel()

	o, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toOrderResponse(o), "Order retrieved successfully")
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidation(w, map[string]string{"body": "Invalid JSON body"})
		return
	}

	var next *order.Status
	if req.Status != nil {
		st, valid := order.ParseStatus(*req.Status)
		if !valid {
			respondValidation(w, map[string]string{"status": "Unknown status"})
			return
		}
		next = &st
	}
	if req.CustomerID != nil && *req.CustomerID != "" {
		if _, err := uuid.Parse(*req.CustomerID); err != nil {
			respondValidation(w, map[string]string{"customer_id": "Invalid ID format"})
			return
		}
	}

	ctx, cancel := h.opContext(r)
	defer cancel()

	o, err := h.orders.UpdateOrder(ctx, id, next, order.FieldPatch{
		SpecialInstructions: req.SpecialInstructions,
		CustomerID:          req.CustomerID,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, toOrderResponse(o), "Order updated successfully")
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.opContext(r)
	defer cancel()

	if err := h.orders.DeleteOrder(ctx, id); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, nil, "Order deleted successfully")
}

// pathID validates the {id} path parameter before it reaches storage.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		respondValidation(w, map[string]string{"id": "Invalid ID format"})
		return "", false
	}
	return id, true
}

// orderResponse is the wire shape of an order, money rendered as JSON numbers
// for the dashboard.
type orderResponse struct {
	OrderID             string              `json:"order_id"`
	OrderNumber         string              `json:"order_number"`
	RestaurantID        string              `json:"restaurant_id"`
	TableID             string              `json:"table_id"`
	CustomerID          *string             `json:"customer_id"`
	Subtotal            float64             `json:"subtotal"`
	TaxAmount           float64             `json:"tax_amount"`
	ServiceCharge       float64             `json:"service_charge"`
	TotalAmount         float64             `json:"total_amount"`
	Status              string              `json:"status"`
	SpecialInstructions *string             `json:"special_instructions"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	AcceptedAt          *time.Time          `json:"accepted_at"`
	ReadyAt             *time.Time          `json:"ready_at"`
	ServedAt            *time.Time          `json:"served_at"`
	CancelledAt         *time.Time          `json:"cancelled_at"`
	OrderItems          []orderItemResponse `json:"order_items"`
}

type orderItemResponse struct {
	OrderItemID    string          `json:"order_item_id"`
	OrderID        string          `json:"order_id"`
	ItemID         string          `json:"item_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      float64         `json:"unit_price"`
	TotalPrice     float64         `json:"total_price"`
	Customizations json.RawMessage `json:"customizations"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		OrderID:             o.ID,
		OrderNumber:         o.Number,
		RestaurantID:        o.RestaurantID,
		TableID:             o.TableID,
		CustomerID:          optString(o.CustomerID),
		Subtotal:            o.Subtotal.InexactFloat64(),
		TaxAmount:           o.TaxAmount.InexactFloat64(),
		ServiceCharge:       o.ServiceCharge.InexactFloat64(),
		TotalAmount:         o.TotalAmount.InexactFloat64(),
		Status:              string(o.Status),
		SpecialInstructions: optString(o.SpecialInstructions),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		AcceptedAt:          o.AcceptedAt,
		ReadyAt:             o.ReadyAt,
		ServedAt:            o.ServedAt,
		CancelledAt:         o.CancelledAt,
		OrderItems:          make([]orderItemResponse, len(o.Items)),
	}
	for i, it := range o.Items {
		resp.OrderItems[i] = orderItemResponse{
			OrderItemID:    it.ID,
			OrderID:        it.OrderID,
			ItemID:         it.MenuItemID,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice.InexactFloat64(),
			TotalPrice:     it.TotalPrice.InexactFloat64(),
			Customizations: it.Customizations,
			Status:         string(it.Status),
			CreatedAt:      it.CreatedAt,
			UpdatedAt:      it.UpdatedAt,
		}
	}
	return resp
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
