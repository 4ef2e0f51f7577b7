// Package httpapi exposes the order workflow over REST with the
// {data, message, status, errors?} envelope shared with the dashboard.
// Authorization happens upstream: restaurant and table ids arriving here are
// already scoped to the caller.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/tableside/order-service/internal/order"
)

// Handler holds the HTTP endpoints for the order workflow.
type Handler struct {
	orders  *order.Service
	timeout time.Duration
}

// NewHandler constructs a Handler. timeout bounds each workflow invocation;
// zero disables the per-request deadline.
func NewHandler(orders *order.Service, timeout time.Duration) *Handler {
	return &Handler{orders: orders, timeout: timeout}
}

// Routes registers all order endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("PUT /orders/{id}", h.updateOrder)
	mux.HandleFunc("DELETE /orders/{id}", h.deleteOrder)
}

// opContext bounds a workflow invocation. Callers must treat a deadline as
// indeterminate: the write may have been accepted, so re-query by id instead
// of blindly retrying a create.
func (h *Handler) opContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), h.timeout)
}
