// Package engine composes the gap scaler, price resolver, risk engine
// and order book into the continuous wave-placement loop, and runs the
// periodic reconciliation that pulls live orders back into compliance.
package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/bus"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/state"
	"main/internal/venue"
)

// Config is the engine's immutable runtime configuration.
type Config struct {
	Symbol     string
	Underlying string
	Class      schema.InstrumentClass

	BaseBuyGap  model.Price
	BaseSellGap model.Price
	Qty         model.Quantity
	LotSize     int64

	CoolOff         time.Duration
	ReconcilePeriod time.Duration
	DeferredMaxAge  time.Duration

	GapScale GapScaleTable
}

// Recorder receives order and fill records for persistence. Nil-safe
// from the engine's point of view.
type Recorder interface {
	RecordOrder(o book.Order, note string)
	RecordFill(symbol string, side schema.OrderSide, price model.Price, qty model.Quantity, at time.Time)
}

// Engine is the execution orchestrator. The mutex is the single
// mutual-exclusion domain for the book, the reference price and the
// position tracker; it is held only for short critical sections and
// never across the cool-off or any venue call.
type Engine struct {
	cfg       Config
	policy    Policy
	risk      *risk.Engine
	resolver  *Resolver
	quotes    venue.Quoter
	transport venue.OrderTransport
	positions venue.PositionSource
	recorder  Recorder

	mu       sync.Mutex
	book     *book.Book
	refPrice model.Price
	tracker  *state.PositionTracker

	events *bus.Queue[schema.OrderEvent]
	waveCh chan struct{}
}

// Deps bundles the engine collaborators.
type Deps struct {
	Risk      *risk.Engine
	Quotes    venue.Quoter
	Transport venue.OrderTransport
	Positions venue.PositionSource
	Recorder  Recorder
	Policy    Policy
}

// New creates an engine. The configuration is assumed validated by ops.
func New(cfg Config, deps Deps) *Engine {
	policy := deps.Policy
	if policy == nil {
		policy = GapWavePolicy{}
	}
	return &Engine{
		cfg:       cfg,
		policy:    policy,
		risk:      deps.Risk,
		resolver:  NewResolver(deps.Quotes, cfg.CoolOff),
		quotes:    deps.Quotes,
		transport: deps.Transport,
		positions: deps.Positions,
		recorder:  deps.Recorder,
		book:      book.New(),
		tracker:   state.NewPositionTracker(),
		events:    bus.NewQueue[schema.OrderEvent](1024),
		waveCh:    make(chan struct{}, 1),
	}
}

// Sink returns the normalized-event intake. It never blocks: a full
// queue drops the event and counts it, so the cool-off can never stall
// venue feeds.
func (e *Engine) Sink() venue.EventSink {
	return func(ev schema.OrderEvent) {
		if err := e.events.TryPublish(ev); err != nil {
			obs.EventDrops.Inc()
			logs.Errorf("drop order event %s: %+v", ev.OrderID, err)
		}
	}
}

// Run starts the event consumer, the wave loop and the reconciliation
// loop, triggers the first wave, and blocks until the context ends.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.events.Run(ctx, e.handleEvent(ctx))
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.waveLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.reconcileLoop(ctx)
	}()

	e.triggerWave()
	<-ctx.Done()
	e.events.Close()
	wg.Wait()
}

// triggerWave requests the next wave cycle. Coalesces when one is
// already pending.
func (e *Engine) triggerWave() {
	select {
	case e.waveCh <- struct{}{}:
	default:
	}
}

func (e *Engine) waveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.waveCh:
			if err := e.runWaveCycle(ctx); err != nil {
				obs.WaveAborts.Inc()
				logs.Errorf("wave cycle aborted: %+v", err)
			}
		}
	}
}

// handleEvent applies one inbound normalized event under the lock and
// executes the resulting side effects outside of it.
func (e *Engine) handleEvent(ctx context.Context) func(schema.OrderEvent) {
	return func(ev schema.OrderEvent) {
		e.mu.Lock()
		out := e.book.Apply(ev)
		e.settleLocked(out)
		e.mu.Unlock()

		e.finish(ctx, out)
	}
}

// settleLocked folds an outcome's state mutations into the reference
// price and position tracker. Caller holds e.mu.
func (e *Engine) settleLocked(out book.Outcome) {
	if out.Filled && out.Fill != nil {
		e.refPrice = out.ExecPrice
		e.tracker.ApplyFill(out.Fill.Symbol, out.Fill.Side, out.Fill.Qty)
	}
	if out.Deferred {
		obs.DeferredEvents.Inc()
	}
	obs.LiveOrders.Set(float64(e.book.Len()))
}

// finish executes an outcome's venue and journal side effects. Must be
// called without the lock.
func (e *Engine) finish(ctx context.Context, out book.Outcome) {
	for _, id := range out.CancelIDs {
		e.cancel(ctx, id, "partner filled")
	}
	if !out.Filled || out.Fill == nil {
		return
	}

	obs.Fills.Inc()
	logs.Infof("fill %s %s %s @ %d, reference price reset", out.Fill.ID, out.Fill.Side, out.Fill.Symbol, out.ExecPrice)
	if e.recorder != nil {
		e.recorder.RecordFill(out.Fill.Symbol, out.Fill.Side, out.ExecPrice, out.Fill.Qty, time.Now())
	}
	e.triggerWave()
}

// cancel is fire-and-forget: the effect is only ever observed through
// the venue's inbound event stream.
func (e *Engine) cancel(ctx context.Context, id, reason string) {
	obs.OrdersCancelled.Inc()
	if err := e.transport.Cancel(ctx, id); err != nil {
		logs.Errorf("cancel %s (%s): %+v", id, reason, err)
	}
}

// runWaveCycle runs one placement cycle: position diff, gap scaling,
// price resolution (which suspends for the cool-off), risk evaluation,
// then sell-first placement and pairing. Venue failure aborts without
// touching the reference price; already-acknowledged placements stay
// live and unpaired.
func (e *Engine) runWaveCycle(ctx context.Context) error {
	positions, err := e.positions.Positions(ctx, e.cfg.Underlying)
	if err != nil {
		return errors.Wrap(err, "query positions")
	}

	spot, err := e.quotes.Quote(ctx, e.cfg.Symbol)
	if err != nil {
		return errors.Wrap(err, "quote spot")
	}

	e.mu.Lock()
	for _, p := range positions {
		if p.Symbol == e.cfg.Symbol {
			e.tracker.Sync(p.Symbol, p.Qty)
		}
	}
	if e.refPrice == 0 {
		e.refPrice = spot
	}
	lastExec := e.refPrice
	diff := e.tracker.Diff(e.cfg.Symbol, e.cfg.LotSize)
	e.mu.Unlock()

	buyMul, sellMul := e.cfg.GapScale.Scale(diff)
	buyGap := scaleGap(e.cfg.BaseBuyGap, buyMul)
	sellGap := scaleGap(e.cfg.BaseSellGap, sellMul)

	// Suspends for the cool-off; events keep flowing into the book
	// meanwhile, deferred through the ledger when they race placement.
	finalBuy, finalSell, err := e.resolver.Resolve(ctx, e.cfg.Symbol, lastExec, buyGap, sellGap)
	if err != nil {
		return errors.Wrap(err, "resolve prices")
	}

	res := e.risk.Evaluate(positions, spot, time.Now())
	obs.PortfolioDelta.Set(res.Delta)
	logs.Infof("wave %s: diff=%d delta=%.2f exposure=%s buy=%d sell=%d",
		e.cfg.Symbol, diff, res.Delta, res.Exposure, finalBuy, finalSell)

	plan := e.policy.BuildWave(WaveEnv{
		Symbol:    e.cfg.Symbol,
		Class:     e.cfg.Class,
		Qty:       e.cfg.Qty,
		FinalBuy:  finalBuy,
		FinalSell: finalSell,
	})

	// Placement ordering is fixed: sell first. A restriction denial on
	// one side never gates the other; only a venue failure aborts.
	sellID, err := e.placeSide(ctx, plan.Sell, res.Restrictions)
	if err != nil {
		return errors.Wrap(err, "place sell")
	}
	buyID, err := e.placeSide(ctx, plan.Buy, res.Restrictions)
	if err != nil {
		return errors.Wrap(err, "place buy")
	}

	if plan.Pair && sellID != "" && buyID != "" {
		e.mu.Lock()
		linkErr := e.book.Link(sellID, buyID)
		e.mu.Unlock()
		if linkErr != nil {
			// One side can already be gone when a deferred fill applied
			// during registration. The survivor stays live and unpaired.
			logs.Infof("skip pairing %s/%s: %+v", sellID, buyID, linkErr)
		}
	}

	obs.WaveCycles.Inc()
	return nil
}

// placeSide risk-checks and places one side of the plan, registering
// the acknowledged order in the book. Returns the venue id, or "" when
// the side was nil or denied by the restriction matrix.
func (e *Engine) placeSide(ctx context.Context, req *venue.PlaceRequest, r risk.Restrictions) (string, error) {
	if req == nil {
		return "", nil
	}
	if !r.AllowsOrder(req.Class, req.Side, req.Symbol, req.Price) {
		obs.RestrictionDenials.Inc()
		logs.Infof("restriction denies %s %s @ %d", req.Side, req.Symbol, req.Price)
		return "", nil
	}

	id, err := e.transport.Place(ctx, *req)
	if err != nil {
		obs.OrdersFailed.Inc()
		return "", err
	}
	obs.OrdersPlaced.Inc()

	o := book.Order{
		ID:        id,
		Symbol:    req.Symbol,
		Class:     req.Class,
		Side:      req.Side,
		Price:     req.Price,
		Qty:       req.Qty,
		CreatedAt: time.Now(),
	}

	e.mu.Lock()
	out, regErr := e.book.Register(o)
	e.settleLocked(out)
	e.mu.Unlock()

	if regErr != nil {
		return "", regErr
	}
	if e.recorder != nil {
		e.recorder.RecordOrder(o, "placed")
	}
	e.finish(ctx, out)

	if len(out.Removed) > 0 {
		// A deferred terminal event consumed the order during
		// registration; there is nothing live to pair.
		return "", nil
	}
	return id, nil
}

func scaleGap(gap model.Price, mul float64) model.Price {
	if mul == 1.0 {
		return gap
	}
	return model.Price(math.Round(float64(gap) * mul))
}
