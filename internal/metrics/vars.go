package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CyclesStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dn_cycles_started_total",
		Help: "Number of delta-neutral cycles started",
	})

	CyclesClosed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dn_cycles_closed_total",
		Help: "Number of cycles closed, by reason",
	}, []string{"reason"})

	LegsOpened = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dn_legs_opened_total",
		Help: "Number of legs opened, by venue",
	}, []string{"venue"})

	Compensations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dn_compensations_total",
		Help: "Number of one-sided fills compensated",
	})

	Rebalances = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dn_rebalances_total",
		Help: "Number of rebalance transfers, by outcome",
	}, []string{"outcome"})

	CombinedPnl = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dn_combined_pnl_usd",
		Help: "Combined unrealized PnL of the open pair (USD)",
	})

	VenueBalance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dn_venue_balance_usd",
		Help: "Venue account equity (USD)",
	}, []string{"venue"})

	OrderLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dn_order_latency_seconds",
		Help:    "Time from order placement to terminal status",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		CyclesStarted,
		CyclesClosed,
		LegsOpened,
		Compensations,
		Rebalances,
		CombinedPnl,
		VenueBalance,
		OrderLatency,
	)
}
