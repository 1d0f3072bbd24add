// Package obs exposes the engine's Prometheus instrumentation.
package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	OrdersPlaced       = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_orders_placed_total", Help: "Orders acknowledged by the venue"})
	OrdersCancelled    = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_orders_cancelled_total", Help: "Cancel commands issued to the venue"})
	OrdersFailed       = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_orders_failed_total", Help: "Placements declined by the venue"})
	Fills              = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_fills_total", Help: "Fill events applied to the book"})
	WaveCycles         = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_wave_cycles_total", Help: "Completed wave placement cycles"})
	WaveAborts         = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_wave_aborts_total", Help: "Wave cycles aborted on venue or market data failure"})
	RestrictionDenials = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_restriction_denials_total", Help: "Placements blocked by the restriction matrix"})
	ReconcileCancels   = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_reconcile_cancels_total", Help: "Live orders cancelled by the reconciliation loop"})
	DeferredEvents     = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_deferred_events_total", Help: "Inbound events parked in the pending ledger"})
	DeferredExpired    = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_deferred_expired_total", Help: "Ledger entries dropped after the bounded wait"})
	EventDrops         = prometheus.NewCounter(prometheus.CounterOpts{Name: "engine_event_drops_total", Help: "Inbound events dropped by the full queue"})
	PortfolioDelta     = prometheus.NewGauge(prometheus.GaugeOpts{Name: "engine_portfolio_delta", Help: "Last evaluated portfolio delta"})
	LiveOrders         = prometheus.NewGauge(prometheus.GaugeOpts{Name: "engine_live_orders", Help: "Orders currently in the live set"})
)

func init() {
	prometheus.MustRegister(
		OrdersPlaced,
		OrdersCancelled,
		OrdersFailed,
		Fills,
		WaveCycles,
		WaveAborts,
		RestrictionDenials,
		ReconcileCancels,
		DeferredEvents,
		DeferredExpired,
		EventDrops,
		PortfolioDelta,
		LiveOrders,
	)
}
