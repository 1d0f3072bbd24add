// Package risk computes portfolio directional exposure and derives the
// per-class, per-side restriction matrix the execution engine consults
// before any order may exist.
package risk

import (
	"time"

	"main/internal/model"
	"main/internal/pricing"
	"main/internal/schema"
)

// Config defines the delta limits and pricing parameters.
type Config struct {
	MinDelta         float64     `json:"minDelta"`
	MaxDelta         float64     `json:"maxDelta"`
	ExpiryWindowDays int         `json:"expiryWindowDays"`
	RiskFreeRate     float64     `json:"riskFreeRate"`
	Volatility       float64     `json:"volatility"`
	MinPremium       model.Price `json:"minPremium"`
	PriceScale       int         `json:"priceScale"`
}

// Exposure classifies the portfolio delta against the configured bounds.
type Exposure uint8

const (
	ExposureWithinBounds Exposure = iota
	ExposureShort                 // delta < minDelta
	ExposureLong                  // delta > maxDelta
)

func (e Exposure) String() string {
	switch e {
	case ExposureShort:
		return "SHORT_VIOLATION"
	case ExposureLong:
		return "LONG_VIOLATION"
	default:
		return "WITHIN_BOUNDS"
	}
}

type restrictKey struct {
	Class schema.InstrumentClass
	Side  schema.OrderSide
}

// Restrictions is a pure snapshot of the allow/deny matrix. It is never
// partially updated; every evaluation produces a fresh one.
type Restrictions struct {
	deny       map[restrictKey]bool
	denyBuyOn  map[string]bool // held option instruments: no further accumulation
	minPremium model.Price
}

// Allows reports whether the class/side pair passes the delta-derived matrix.
func (r Restrictions) Allows(class schema.InstrumentClass, side schema.OrderSide) bool {
	return !r.deny[restrictKey{Class: class, Side: side}]
}

// AllowsOrder applies the full decision for a concrete order, including
// the instrument-level overrides that depend on the computed price:
// buys on an already-held option are denied regardless of delta, and a
// buy whose price sits at or below the minimum premium is always
// allowed, since closing a near-worthless short frees margin.
func (r Restrictions) AllowsOrder(class schema.InstrumentClass, side schema.OrderSide, symbol string, price model.Price) bool {
	if class.IsOption() && side == schema.OrderSideBuy {
		if r.minPremium > 0 && price <= r.minPremium {
			return true
		}
		if r.denyBuyOn[symbol] {
			return false
		}
	}
	return r.Allows(class, side)
}

// Clean reports whether the matrix denies nothing.
func (r Restrictions) Clean() bool {
	return len(r.deny) == 0 && len(r.denyBuyOn) == 0
}

// Result is one risk evaluation snapshot.
type Result struct {
	Delta        float64
	Exposure     Exposure
	Restrictions Restrictions
}

// Engine evaluates portfolio delta against static limits.
type Engine struct {
	cfg Config
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate computes the portfolio delta for the given positions and
// derives the restriction matrix. Futures contribute their signed
// quantity; options inside the expiry window contribute their
// Black-Scholes per-unit delta times signed quantity. Options outside
// the window stay in the portfolio but are excluded from delta.
func (e *Engine) Evaluate(positions []schema.Position, spot model.Price, now time.Time) Result {
	delta := 0.0
	heldOptions := make(map[string]model.Quantity)

	for _, p := range positions {
		switch p.Class {
		case schema.InstrumentFuture:
			delta += float64(p.Qty)
		case schema.InstrumentCall, schema.InstrumentPut:
			heldOptions[p.Symbol] += p.Qty
			days := p.DaysToExpiry(now)
			if e.cfg.ExpiryWindowDays > 0 && days > e.cfg.ExpiryWindowDays {
				continue
			}
			unit := pricing.OptionDelta(
				spot.Float(e.cfg.PriceScale),
				p.Strike.Float(e.cfg.PriceScale),
				e.cfg.RiskFreeRate,
				days,
				e.cfg.Volatility,
				p.Class == schema.InstrumentCall,
			)
			delta += unit * float64(p.Qty)
		}
	}

	res := Result{
		Delta:    delta,
		Exposure: e.classify(delta),
		Restrictions: Restrictions{
			deny:       make(map[restrictKey]bool),
			denyBuyOn:  make(map[string]bool),
			minPremium: e.cfg.MinPremium,
		},
	}

	switch res.Exposure {
	case ExposureShort:
		res.Restrictions.deny[restrictKey{schema.InstrumentFuture, schema.OrderSideSell}] = true
		res.Restrictions.deny[restrictKey{schema.InstrumentCall, schema.OrderSideSell}] = true
		res.Restrictions.deny[restrictKey{schema.InstrumentPut, schema.OrderSideBuy}] = true
	case ExposureLong:
		res.Restrictions.deny[restrictKey{schema.InstrumentFuture, schema.OrderSideBuy}] = true
		res.Restrictions.deny[restrictKey{schema.InstrumentCall, schema.OrderSideBuy}] = true
		res.Restrictions.deny[restrictKey{schema.InstrumentPut, schema.OrderSideSell}] = true
	}

	// One-directional accumulation on a held option is disallowed even
	// when delta would permit it.
	for symbol, qty := range heldOptions {
		if qty != 0 {
			res.Restrictions.denyBuyOn[symbol] = true
		}
	}

	return res
}

// Bounds are inclusive: delta exactly at a limit is within bounds.
func (e *Engine) classify(delta float64) Exposure {
	switch {
	case delta < e.cfg.MinDelta:
		return ExposureShort
	case delta > e.cfg.MaxDelta:
		return ExposureLong
	default:
		return ExposureWithinBounds
	}
}
