// Package book owns the live order set, the pairing relationships and
// the deferred-event ledger. It is a pure state machine: callers hold
// the engine lock, and all venue side effects (cancel commands, wave
// triggers) are returned as an Outcome instead of being executed here.
package book

import (
	"time"

	"main/internal/model"
	"main/internal/schema"
	"main/pkg/exception"
)

// Order is the book's view of a live order. The venue id is assigned by
// the venue and unknown until placement is acknowledged.
type Order struct {
	ID        string
	Symbol    string
	Class     schema.InstrumentClass
	Side      schema.OrderSide
	Price     model.Price
	Qty       model.Quantity
	CreatedAt time.Time
	AssocID   string // associated order id, empty when unpaired
}

// Outcome reports what an operation did and which side effects the
// caller must now execute.
type Outcome struct {
	Applied  bool // an event mutated the live set
	Deferred bool // event stored in the ledger for a not-yet-registered id

	Filled    bool // a fill completed; the next wave cycle should start
	ExecPrice model.Price
	Fill      *Order // snapshot of the filled order

	CancelIDs []string // partner orders the caller must cancel at the venue
	Removed   []string // ids dropped from the live set
}

type deferred struct {
	ev       schema.OrderEvent
	storedAt time.Time
}

// Book is the order lifecycle state machine. Not safe for concurrent
// use on its own; the engine serializes access.
type Book struct {
	orders  map[string]*Order
	ledger  map[string]deferred  // order id -> deferred inbound event
	retired map[string]time.Time // recently removed ids, for terminal idempotence
}

// New creates an empty book.
func New() *Book {
	return &Book{
		orders:  make(map[string]*Order),
		ledger:  make(map[string]deferred),
		retired: make(map[string]time.Time),
	}
}

// Register adds a venue-acknowledged order to the live set. If the
// ledger already holds a deferred event for the id, the event is
// applied immediately as part of registration, exactly once.
func (b *Book) Register(o Order) (Outcome, error) {
	if o.ID == "" {
		return Outcome{}, exception.ErrOrderNotFound
	}
	if _, ok := b.orders[o.ID]; ok {
		return Outcome{}, exception.ErrOrderDuplicate
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	stored := o
	b.orders[o.ID] = &stored

	d, ok := b.ledger[o.ID]
	if !ok {
		return Outcome{}, nil
	}
	delete(b.ledger, o.ID)
	return b.Apply(d.ev), nil
}

// Apply transitions an order from an inbound normalized event. Events
// for unknown ids are deferred in the ledger; repeated terminal events
// for recently removed ids are no-ops.
func (b *Book) Apply(ev schema.OrderEvent) Outcome {
	o, ok := b.orders[ev.OrderID]
	if !ok {
		if _, gone := b.retired[ev.OrderID]; gone {
			return Outcome{}
		}
		// Events may arrive out of venue-timestamp order. A deferred
		// terminal event is never downgraded by a stale non-terminal
		// update; the latest terminal event wins.
		if cur, held := b.ledger[ev.OrderID]; held && cur.ev.Status.Terminal() && !ev.Status.Terminal() {
			return Outcome{Deferred: true}
		}
		at := ev.At
		if at.IsZero() {
			at = time.Now()
		}
		b.ledger[ev.OrderID] = deferred{ev: ev, storedAt: at}
		return Outcome{Deferred: true}
	}

	switch ev.Status {
	case schema.StatusFilled:
		return b.applyFill(o, ev)
	case schema.StatusClosed:
		return b.applyClosed(o)
	default:
		if ev.Price != 0 {
			o.Price = ev.Price
		}
		if ev.Qty != 0 {
			o.Qty = ev.Qty
		}
		return Outcome{Applied: true}
	}
}

func (b *Book) applyFill(o *Order, ev schema.OrderEvent) Outcome {
	execPrice := ev.Price
	if execPrice == 0 {
		execPrice = o.Price
	}
	fill := *o

	out := Outcome{
		Applied:   true,
		Filled:    true,
		ExecPrice: execPrice,
		Fill:      &fill,
	}
	b.remove(o.ID, &out)

	if o.AssocID != "" {
		if partner, ok := b.orders[o.AssocID]; ok {
			out.CancelIDs = append(out.CancelIDs, partner.ID)
			b.remove(partner.ID, &out)
		}
	}
	return out
}

func (b *Book) applyClosed(o *Order) Outcome {
	out := Outcome{Applied: true}
	if o.AssocID != "" {
		// The partner stays live and unpaired. No cascade cancel.
		if partner, ok := b.orders[o.AssocID]; ok {
			partner.AssocID = ""
		}
	}
	b.remove(o.ID, &out)
	return out
}

func (b *Book) remove(id string, out *Outcome) {
	delete(b.orders, id)
	b.retired[id] = time.Now()
	out.Removed = append(out.Removed, id)
}

// Link pairs two live, currently unassociated orders.
func (b *Book) Link(idA, idB string) error {
	if idA == idB || idA == "" || idB == "" {
		return exception.ErrOrderInvalidLink
	}
	a, ok := b.orders[idA]
	if !ok {
		return exception.ErrOrderNotFound
	}
	c, ok := b.orders[idB]
	if !ok {
		return exception.ErrOrderNotFound
	}
	if a.AssocID != "" || c.AssocID != "" {
		return exception.ErrOrderAlreadyLinked
	}
	a.AssocID = idB
	c.AssocID = idA
	return nil
}

// Get returns a snapshot of a live order.
func (b *Book) Get(id string) (Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Live returns snapshots of every live order.
func (b *Book) Live() []Order {
	out := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, *o)
	}
	return out
}

// Len returns the number of live orders.
func (b *Book) Len() int {
	return len(b.orders)
}

// DeferredLen returns the number of ledger entries awaiting registration.
func (b *Book) DeferredLen() int {
	return len(b.ledger)
}

// ExpireDeferred drops ledger entries older than maxAge and prunes the
// retired-id memory. Orders that will never be registered would
// otherwise leak ledger entries forever. Dropped events are returned
// for logging.
func (b *Book) ExpireDeferred(now time.Time, maxAge time.Duration) []schema.OrderEvent {
	var dropped []schema.OrderEvent
	for id, d := range b.ledger {
		if now.Sub(d.storedAt) > maxAge {
			dropped = append(dropped, d.ev)
			delete(b.ledger, id)
		}
	}
	for id, at := range b.retired {
		if now.Sub(at) > maxAge {
			delete(b.retired, id)
		}
	}
	return dropped
}
