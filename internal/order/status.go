package order

// Status is the order-level lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusCancelled Status = "cancelled"
)

// ItemStatus tracks kitchen-granularity progress per line item. It is
// informational only and not constrained by the transition guard.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
)

// transitions is the complete legality table: a linear forward progression
// plus cancellation from any non-terminal state. served and cancelled are
// terminal. Anything not listed (same-state no-ops, skips, backward moves)
// is illegal.
var transitions = map[Status]map[Status]bool{
	StatusPending:   {StatusAccepted: true, StatusCancelled: true},
	StatusAccepted:  {StatusPreparing: true, StatusCancelled: true},
	StatusPreparing: {StatusReady: true, StatusCancelled: true},
	StatusReady:     {StatusServed: true, StatusCancelled: true},
	StatusServed:    {},
	StatusCancelled: {},
}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := transitions[st]
	return st, ok
}

// ParseItemStatus validates a raw item status string.
func ParseItemStatus(s string) (ItemStatus, bool) {
	switch st := ItemStatus(s); st {
	case ItemPending, ItemPreparing, ItemReady, ItemServed:
		return st, true
	}
	return "", false
}

// CheckTransition reports whether an order currently in the current status may
// move to requested. It returns *IllegalTransitionError naming the offending
// pair otherwise.
func CheckTransition(current, requested Status) error {
	if next, ok := transitions[current]; ok && next[requested] {
		return nil
	}
	return &IllegalTransitionError{From: current, To: requested}
}
