package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tableside/order-service/internal/catalog"
	"github.com/tableside/order-service/internal/order"
)

// envelope is the response convention shared with the dashboard and client
// apps: data carries the payload (null on failure), status mirrors the HTTP
// status code, and errors holds field-level validation detail when present.
type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, e envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Status code already written; encoding can only fail if the client went away.
	_ = json.NewEncoder(w).Encode(e)
}

func respondData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Data: data, Message: message, Status: status})
}

func respondValidation(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Data:    nil,
		Message: "Validation failed",
		Status:  http.StatusBadRequest,
		Errors:  fields,
	})
}

// respondError maps the typed workflow errors onto HTTP statuses and the
// envelope. Internal detail (driver errors, stack traces) never reaches the
// client; only the safe message string does.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFoundErr    *order.ItemsNotFoundError
		unavailableErr *order.ItemsUnavailableError
		quantityErr    *order.InvalidQuantityError
		transitionErr  *order.IllegalTransitionError
		recoveredErr   *order.RecoveredWriteError
		orphanedErr    *order.OrphanedWriteError
	)

	switch {
	case errors.Is(err, order.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{
			Data: nil, Message: "Order not found", Status: http.StatusNotFound,
		})

	case errors.Is(err, order.ErrEmptyItems):
		respondValidation(w, map[string]string{"order_items": "Order must have at least one item."})

	case errors.As(err, &quantityErr):
		respondValidation(w, map[string]string{"order_items": quantityErr.Error()})

	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusUnprocessableEntity, envelope{
			Data: nil, Message: notFoundErr.Error(), Status: http.StatusUnprocessableEntity,
		})

	case errors.As(err, &unavailableErr):
		writeJSON(w, http.StatusUnprocessableEntity, envelope{
			Data: nil, Message: unavailableErr.Error(), Status: http.StatusUnprocessableEntity,
		})

	case errors.Is(err, catalog.ErrRestaurantNotFound):
		writeJSON(w, http.StatusUnprocessableEntity, envelope{
			Data: nil, Message: "Restaurant not found", Status: http.StatusUnprocessableEntity,
		})

	case errors.As(err, &transitionErr):
		writeJSON(w, http.StatusConflict, envelope{
			Data: nil, Message: transitionErr.Error(), Status: http.StatusConflict,
		})

	case errors.Is(err, order.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, envelope{
			Data:    nil,
			Message: "Order was modified concurrently, refetch and retry",
			Status:  http.StatusConflict,
		})

	case errors.As(err, &recoveredErr):
		zctx.From(r.Context()).Error("order creation rolled back",
			zap.String("order_id", recoveredErr.OrderID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, envelope{
			Data:    nil,
			Message: "Order creation failed, it is safe to retry",
			Status:  http.StatusInternalServerError,
		})

	case errors.As(err, &orphanedErr):
		// Data-integrity incident: keep enough detail in the log for
		// manual cleanup, expose nothing to the client.
		zctx.From(r.Context()).Error("orphaned order write, manual cleanup required",
			zap.String("order_id", orphanedErr.OrderID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, envelope{
			Data: nil, Message: "An internal error occurred", Status: http.StatusInternalServerError,
		})

	default:
		zctx.From(r.Context()).Error("unhandled error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, envelope{
			Data: nil, Message: "An internal error occurred", Status: http.StatusInternalServerError,
		})
	}
}
