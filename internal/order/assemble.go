package order

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tableside/order-service/internal/catalog"
)

// Header carries the validated, client-independent order header fields.
type Header struct {
	RestaurantID        string
	TableID             string
	CustomerID          string
	SpecialInstructions string

	// Status overrides the default pending state. Only trusted internal
	// callers set this; the HTTP layer never passes client input through.
	Status Status
}

// Line is a single requested line item. Prices are deliberately absent.
type Line struct {
	MenuItemID     string
	Quantity       int
	Customizations json.RawMessage
	Status         ItemStatus
}

// Assemble builds the in-memory order aggregate from validated input and
// resolved prices. It computes all money fields, generates identity, and
// returns an aggregate that has not yet been persisted. Quantities must be
// positive; every line's item id must be present in prices.
func Assemble(h Header, lines []Line, prices map[string]decimal.Decimal, s catalog.Settings, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyItems
	}

	number, err := GenerateNumber(now)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:                  uuid.New().String(),
		Number:              number,
		RestaurantID:        h.RestaurantID,
		TableID:             h.TableID,
		CustomerID:          h.CustomerID,
		SpecialInstructions: h.SpecialInstructions,
		Status:              StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if h.Status != "" {
		o.Status = h.Status
	}

	subtotal := decimal.Zero
	o.Items = make([]Item, len(lines))
	for i, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, &InvalidQuantityError{MenuItemID: ln.MenuItemID}
		}
		price := prices[ln.MenuItemID]
		lineTotal := price.Mul(decimal.NewFromInt(int64(ln.Quantity)))

		status := ln.Status
		if status == "" {
			status = ItemPending
		}

		o.Items[i] = Item{
			ID:             uuid.New().String(),
			OrderID:        o.ID,
			MenuItemID:     ln.MenuItemID,
			Quantity:       ln.Quantity,
			UnitPrice:      price,
			TotalPrice:     lineTotal,
			Customizations: ln.Customizations,
			Status:         status,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		subtotal = subtotal.Add(lineTotal)
	}

	o.Subtotal = subtotal
	o.TaxAmount = subtotal.Mul(s.TaxRate).Round(2)
	o.ServiceCharge = subtotal.Mul(s.ServiceChargeRate).Round(2)
	o.TotalAmount = o.Subtotal.Add(o.TaxAmount).Add(o.ServiceCharge)

	return o, nil
}
