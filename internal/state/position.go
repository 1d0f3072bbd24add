package state

import (
	"main/internal/model"
	"main/internal/schema"
)

// PositionTracker accumulates fills per symbol. It keeps cumulative buy
// and sell quantities separately so the wave cycle can derive the
// lot-normalized position-diff.
type PositionTracker struct {
	bought map[string]model.Quantity
	sold   map[string]model.Quantity
}

// NewPositionTracker creates an empty tracker.
func NewPositionTracker() *PositionTracker {
	return &PositionTracker{
		bought: make(map[string]model.Quantity),
		sold:   make(map[string]model.Quantity),
	}
}

// ApplyFill updates the cumulative quantities and returns the new net.
func (t *PositionTracker) ApplyFill(symbol string, side schema.OrderSide, qty model.Quantity) model.Quantity {
	switch side {
	case schema.OrderSideBuy:
		t.bought[symbol] += qty
	case schema.OrderSideSell:
		t.sold[symbol] += qty
	}
	return t.Net(symbol)
}

// Net returns cumulative buys minus cumulative sells for a symbol.
func (t *PositionTracker) Net(symbol string) model.Quantity {
	return t.bought[symbol] - t.sold[symbol]
}

// Diff returns the lot-normalized position-diff for a symbol.
// Lot sizes below 1 clamp to 1.
func (t *PositionTracker) Diff(symbol string, lotSize int64) int64 {
	if lotSize < 1 {
		lotSize = 1
	}
	return int64(t.Net(symbol)) / lotSize
}

// Sync replaces the cumulative state for a symbol from a venue snapshot
// of the net position. Buys and sells collapse into the signed net.
func (t *PositionTracker) Sync(symbol string, net model.Quantity) {
	if net >= 0 {
		t.bought[symbol] = net
		t.sold[symbol] = 0
		return
	}
	t.bought[symbol] = 0
	t.sold[symbol] = -net
}

// Count returns the number of tracked symbols.
func (t *PositionTracker) Count() int {
	seen := make(map[string]struct{}, len(t.bought)+len(t.sold))
	for s := range t.bought {
		seen[s] = struct{}{}
	}
	for s := range t.sold {
		seen[s] = struct{}{}
	}
	return len(seen)
}
