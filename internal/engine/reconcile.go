package engine

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/obs"
)

// reconcileLoop periodically re-derives the restriction matrix, cancels
// live orders that drifted out of compliance, and restarts the wave
// when the book has drained. Restrictions computed at placement time go
// stale as the portfolio moves; this loop is the self-healing path.
func (e *Engine) reconcileLoop(ctx context.Context) {
	if e.cfg.ReconcilePeriod <= 0 {
		return
	}
	ticker := time.NewTicker(e.cfg.ReconcilePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.reconcileTick(ctx)
		}
	}
}

func (e *Engine) reconcileTick(ctx context.Context) {
	positions, err := e.positions.Positions(ctx, e.cfg.Underlying)
	if err != nil {
		logs.Errorf("reconcile: query positions: %+v", err)
		return
	}
	spot, err := e.quotes.Quote(ctx, e.cfg.Symbol)
	if err != nil {
		logs.Errorf("reconcile: quote spot: %+v", err)
		return
	}

	res := e.risk.Evaluate(positions, spot, time.Now())
	obs.PortfolioDelta.Set(res.Delta)

	e.mu.Lock()
	var violating []string
	for _, o := range e.book.Live() {
		if !res.Restrictions.AllowsOrder(o.Class, o.Side, o.Symbol, o.Price) {
			violating = append(violating, o.ID)
		}
	}
	dropped := e.book.ExpireDeferred(time.Now(), e.cfg.DeferredMaxAge)
	empty := e.book.Len() == 0
	e.mu.Unlock()

	for _, ev := range dropped {
		obs.DeferredExpired.Inc()
		logs.Errorf("discard event for never-registered order %s after bounded wait", ev.OrderID)
	}

	for _, id := range violating {
		obs.ReconcileCancels.Inc()
		logs.Infof("reconcile: cancel %s, restriction violation (delta=%.2f, %s)", id, res.Delta, res.Exposure)
		e.cancel(ctx, id, "restriction violation")
	}

	if empty {
		e.triggerWave()
	}
}
