package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tableside/order-service/internal/order"
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL. All multi-row
// writes run inside a single transaction, so the create path is truly atomic;
// the Recovered/Orphaned classification maps onto rollback and commit
// outcomes.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `order_id, order_number, restaurant_id, table_id, customer_id,
	subtotal, tax_amount, service_charge, total_amount,
	status, special_instructions,
	created_at, updated_at, accepted_at, ready_at, served_at, cancelled_at`

const itemColumns = `order_item_id, order_id, item_id, quantity,
	unit_price, total_price, customizations, status, created_at, updated_at`

const insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

const insertItemSQL = `INSERT INTO order_items (` + itemColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const insertHistorySQL = `INSERT INTO order_status_history (order_id, from_status, to_status, changed_at)
	VALUES ($1, $2, $3, $4)`

// CreateAtomic commits the order header, all items and the initial history
// row in one transaction. A collision on the generated order number retries
// once with a fresh number before failing.
func (s *OrderStore) CreateAtomic(ctx context.Context, o *order.Order) (*order.Order, error) {
	const attempts = 2
	for i := 0; i < attempts; i++ {
		err := s.createTx(ctx, o)
		if err == nil {
			return o, nil
		}
		if isUniqueViolation(err, "orders_order_number_key") && i < attempts-1 {
			number, genErr := order.GenerateNumber(time.Now())
			if genErr != nil {
				return nil, genErr
			}
			o.Number = number
			continue
		}
		return nil, err
	}
	return nil, errors.New("unreachable")
}

func (s *OrderStore) createTx(ctx context.Context, o *order.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}

	if err := s.insertAggregate(ctx, tx, o); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			// Rollback failed: the header may or may not have landed.
			// This needs operator attention, not a retry.
			zctx.From(ctx).Error("order write left in indeterminate state",
				zap.String("order_id", o.ID),
				zap.NamedError("write_error", err),
				zap.NamedError("rollback_error", rbErr),
			)
			return &order.OrphanedWriteError{OrderID: o.ID, Cause: err}
		}
		if isUniqueViolation(err, "orders_order_number_key") {
			return err
		}
		return &order.RecoveredWriteError{OrderID: o.ID, Cause: err}
	}

	if err := tx.Commit(ctx); err != nil {
		// A failed commit is indeterminate from the client's side.
		zctx.From(ctx).Error("order commit failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
		return &order.OrphanedWriteError{OrderID: o.ID, Cause: err}
	}
	return nil
}

func (s *OrderStore) insertAggregate(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	_, err := tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Number, o.RestaurantID, o.TableID, nullable(o.CustomerID),
		o.Subtotal, o.TaxAmount, o.ServiceCharge, o.TotalAmount,
		o.Status, nullable(o.SpecialInstructions),
		o.CreatedAt, o.UpdatedAt, o.AcceptedAt, o.ReadyAt, o.ServedAt, o.CancelledAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(insertItemSQL,
			it.ID, o.ID, it.MenuItemID, it.Quantity,
			it.UnitPrice, it.TotalPrice, nullableJSON(it.Customizations),
			it.Status, it.CreatedAt, it.UpdatedAt,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range o.Items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Wrap(err, "insert order items")
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrap(err, "close item batch")
	}

	// Initial history row: creation is not a transition, from_status is NULL.
	if _, err := tx.Exec(ctx, insertHistorySQL, o.ID, nil, o.Status, o.CreatedAt); err != nil {
		return errors.Wrap(err, "insert status history")
	}
	return nil
}

const getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

// GetByID returns the order with its items eagerly attached.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := s.pool.QueryRow(ctx, getOrderSQL, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	items, err := s.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

const listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
	WHERE ($1 = '' OR restaurant_id = $1::uuid)
	  AND ($2 = '' OR table_id = $2::uuid)
	  AND ($3 = '' OR status = $3::order_status)
	ORDER BY created_at DESC`

// List returns matching orders, newest first, with items attached in a single
// follow-up batch query.
func (s *OrderStore) List(ctx context.Context, f order.Filters) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, listOrdersSQL, f.RestaurantID, f.TableID, string(f.Status))
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []order.Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read orders")
	}
	if len(out) == 0 {
		return []order.Order{}, nil
	}

	items, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

// enteredAtColumn maps a status to the timestamp column stamped when the
// order first enters it. Statuses without a column return "".
func enteredAtColumn(st order.Status) string {
	switch st {
	case order.StatusAccepted:
		return "accepted_at"
	case order.StatusReady:
		return "ready_at"
	case order.StatusServed:
		return "served_at"
	case order.StatusCancelled:
		return "cancelled_at"
	}
	return ""
}

// UpdateStatus applies a conditional status transition: the write succeeds
// only when the stored status still equals expected, which linearizes
// concurrent staff actions without locks. The per-state timestamp is set
// exactly once and a history row is appended in the same transaction.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, expected, next order.Status) (*order.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()

	updateSQL := `UPDATE orders SET status = $1, updated_at = $2`
	if col := enteredAtColumn(next); col != "" {
		updateSQL += `, ` + col + ` = COALESCE(` + col + `, $2)`
	}
	updateSQL += ` WHERE order_id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, updateSQL, next, now, id, expected)
	if err != nil {
		return nil, errors.Wrapf(err, "update status of order %q", id)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing order from a lost race.
		var st order.Status
		err := s.pool.QueryRow(ctx, `SELECT status FROM orders WHERE order_id = $1`, id).Scan(&st)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		if err != nil {
			return nil, errors.Wrapf(err, "probe order %q", id)
		}
		return nil, order.ErrConcurrentModification
	}

	if _, err := tx.Exec(ctx, insertHistorySQL, id, expected, next, now); err != nil {
		return nil, errors.Wrap(err, "insert status history")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	return s.GetByID(ctx, id)
}

// UpdateFields applies a partial header patch. Status, items and money fields
// are not reachable from here.
func (s *OrderStore) UpdateFields(ctx context.Context, id string, patch order.FieldPatch) (*order.Order, error) {
	if patch == (order.FieldPatch{}) {
		return s.GetByID(ctx, id)
	}

	set := "updated_at = now()"
	args := []any{id}
	n := 2
	if patch.SpecialInstructions != nil {
		set += ", special_instructions = $" + strconv.Itoa(n)
		args = append(args, nullable(*patch.SpecialInstructions))
		n++
	}
	if patch.CustomerID != nil {
		set += ", customer_id = $" + strconv.Itoa(n)
		args = append(args, nullable(*patch.CustomerID))
		n++
	}

	tag, err := s.pool.Exec(ctx, `UPDATE orders SET `+set+` WHERE order_id = $1`, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "update order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, order.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// Delete removes the order; items and history follow via ON DELETE CASCADE.
func (s *OrderStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE order_id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

const loadItemsSQL = `SELECT ` + itemColumns + ` FROM order_items
	WHERE order_id = ANY($1) ORDER BY created_at, order_item_id`

func (s *OrderStore) loadItems(ctx context.Context, orderIDs []string) (map[string][]order.Item, error) {
	rows, err := s.pool.Query(ctx, loadItemsSQL, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "query order items")
	}
	defer rows.Close()

	items := make(map[string][]order.Item, len(orderIDs))
	for rows.Next() {
		var it order.Item
		var customizations []byte
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &customizations,
			&it.Status, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		it.Customizations = customizations
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read order items")
	}
	return items, nil
}

// scanOrder reads one orders row. customer_id and special_instructions are
// nullable in the schema and mapped to empty strings in the domain.
func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	var customerID, instructions *string
	err := row.Scan(
		&o.ID, &o.Number, &o.RestaurantID, &o.TableID, &customerID,
		&o.Subtotal, &o.TaxAmount, &o.ServiceCharge, &o.TotalAmount,
		&o.Status, &instructions,
		&o.CreatedAt, &o.UpdatedAt, &o.AcceptedAt, &o.ReadyAt, &o.ServedAt, &o.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if customerID != nil {
		o.CustomerID = *customerID
	}
	if instructions != nil {
		o.SpecialInstructions = *instructions
	}
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
