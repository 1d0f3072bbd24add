package engine

import (
	"context"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/venue"
	"main/pkg/exception"
)

// Resolver computes the final buy/sell prices for a wave from two price
// observations separated by a stabilization cool-off. Taking the most
// aggressive of both observations keeps the wave from chasing a
// transient spike while still capturing the available edge.
type Resolver struct {
	quotes  venue.Quoter
	coolOff time.Duration
}

// NewResolver creates a resolver. The cool-off wait is context-aware
// and must never run while the engine lock is held.
func NewResolver(quotes venue.Quoter, coolOff time.Duration) *Resolver {
	return &Resolver{quotes: quotes, coolOff: coolOff}
}

// Resolve samples the price, suspends for the cool-off, re-samples, and
// returns the final limit prices. Quote failure aborts with
// exception.ErrMarketDataUnavailable; the caller must not place orders
// on stale data.
func (r *Resolver) Resolve(ctx context.Context, symbol string, lastExec, buyGap, sellGap model.Price) (finalBuy, finalSell model.Price, err error) {
	p0, err := r.quotes.Quote(ctx, symbol)
	if err != nil {
		return 0, 0, errors.Wrap(exception.ErrMarketDataUnavailable, err.Error())
	}

	buyCandidate := min(p0-buyGap, lastExec-buyGap)
	sellCandidate := max(p0+sellGap, lastExec+sellGap)

	if r.coolOff > 0 {
		select {
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		case <-time.After(r.coolOff):
		}
	}

	p1, err := r.quotes.Quote(ctx, symbol)
	if err != nil {
		return 0, 0, errors.Wrap(exception.ErrMarketDataUnavailable, err.Error())
	}

	finalBuy = min(buyCandidate, p1-buyGap)
	finalSell = max(sellCandidate, p1+sellGap)
	return finalBuy, finalSell, nil
}
