package schema

import (
	"time"

	"main/internal/model"
)

// OrderSide is the direction of an order.
type OrderSide uint8

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// InstrumentClass partitions instruments for the restriction matrix.
type InstrumentClass uint8

const (
	InstrumentUnknown InstrumentClass = iota
	InstrumentFuture
	InstrumentCall
	InstrumentPut
)

func (c InstrumentClass) String() string {
	switch c {
	case InstrumentFuture:
		return "FUT"
	case InstrumentCall:
		return "CE"
	case InstrumentPut:
		return "PE"
	default:
		return "UNKNOWN"
	}
}

// IsOption reports whether the class is a call or put.
func (c InstrumentClass) IsOption() bool {
	return c == InstrumentCall || c == InstrumentPut
}

// OrderStatus is the normalized three-way status classification.
// Venue vocabularies are translated into it at the adapter boundary;
// nothing past that boundary branches on raw venue codes.
type OrderStatus uint8

const (
	StatusOther  OrderStatus = iota // open / acknowledged / modified
	StatusFilled                    // fully executed
	StatusClosed                    // cancelled or rejected
)

func (s OrderStatus) String() string {
	switch s {
	case StatusFilled:
		return "FILLED"
	case StatusClosed:
		return "CLOSED"
	default:
		return "OTHER"
	}
}

// Terminal reports whether the status removes the order from the live set.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusClosed
}

// OrderEvent is a normalized inbound order update from a venue.
type OrderEvent struct {
	OrderID string
	Status  OrderStatus
	Price   model.Price
	Qty     model.Quantity
	At      time.Time
}

// Position is one portfolio entry from the venue position source.
type Position struct {
	Symbol     string
	Underlying string
	Class      InstrumentClass
	Strike     model.Price
	Expiry     time.Time
	Qty        model.Quantity // signed, positive long
}

// DaysToExpiry returns the whole-day distance to expiry, never negative.
func (p Position) DaysToExpiry(now time.Time) int {
	d := int(p.Expiry.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
