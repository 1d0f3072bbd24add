// Package venue defines the collaborator contracts the engine consumes.
// Implementations live in per-venue subpackages; each one translates its
// own status vocabulary into the normalized classification before
// anything reaches the order book.
package venue

import (
	"context"

	"main/internal/model"
	"main/internal/schema"
)

// Quoter retrieves the current price for a symbol. May fail transiently
// with exception.ErrMarketDataUnavailable.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (model.Price, error)
}

// PlaceRequest describes a limit order to be placed.
type PlaceRequest struct {
	Symbol string
	Class  schema.InstrumentClass
	Side   schema.OrderSide
	Price  model.Price
	Qty    model.Quantity
}

// OrderTransport places and cancels orders at a venue. Place returns the
// venue-assigned order id; effects are observed only through later
// inbound events, and Cancel is fire-and-forget from the book's
// perspective.
type OrderTransport interface {
	Place(ctx context.Context, req PlaceRequest) (string, error)
	Cancel(ctx context.Context, orderID string) error
}

// PositionSource queries the venue portfolio for one underlying.
type PositionSource interface {
	Positions(ctx context.Context, underlying string) ([]schema.Position, error)
}

// EventSink receives normalized order events from a venue feed.
type EventSink func(schema.OrderEvent)
