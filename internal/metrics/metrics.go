// Package metrics exposes Prometheus instrumentation for the parlay engine:
//
//	• parlay_tickets_total{status}       – tickets by lifecycle transition
//	• parlay_fees_routed_total{dest}     – fee units by destination
//	• parlay_payouts_total{reason}       – paid-out units by claim reason
//	• parlay_pool_assets                 – pool totalAssets snapshot (gauge)
//	• parlay_pool_reserved               – pool totalReserved snapshot (gauge)
//	• parlay_locked_shares               – facility locked shares (gauge)
//	• parlay_lock_positions_total{event} – lock facility lifecycle counts
//
// The counters are fed from the event stream; the gauges are refreshed by the
// Recorder on every event.  Served at /metrics in Prometheus text format.
package metrics

import (
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/parlaycity/core/internal/domain"
)

var (
	mtxTickets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlay_tickets_total",
			Help: "Ticket lifecycle transitions",
		},
		[]string{"status"}, // bought|won|lost|voided|cashed_out
	)

	mtxFees = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlay_fees_routed_total",
			Help: "Fee base units routed, by destination",
		},
		[]string{"dest"}, // lockers|safety|pool_surplus
	)

	mtxPayouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlay_payouts_total",
			Help: "Base units paid out, by claim reason",
		},
		[]string{"reason"}, // win|void_refund|progressive|cashout
	)

	mtxPoolAssets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "parlay_pool_assets",
			Help: "Pool totalAssets in base units",
		},
	)

	mtxPoolReserved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "parlay_pool_reserved",
			Help: "Pool totalReserved in base units",
		},
	)

	mtxLockedShares = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "parlay_locked_shares",
			Help: "Shares locked in the facility",
		},
	)

	mtxLockEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlay_lock_positions_total",
			Help: "Lock facility lifecycle events",
		},
		[]string{"event"}, // locked|unlocked|early_withdrawn
	)
)

func init() {
	prometheus.MustRegister(mtxTickets, mtxFees, mtxPayouts)
	prometheus.MustRegister(mtxPoolAssets, mtxPoolReserved, mtxLockedShares)
	prometheus.MustRegister(mtxLockEvents)
}

// PoolStats is the read slice the Recorder refreshes gauges from.
type PoolStats interface {
	TotalAssets() sdkmath.Int
	TotalReserved() sdkmath.Int
}

// LockStats is the facility's gauge source.
type LockStats interface {
	TotalLockedShares() sdkmath.Int
}

// Recorder implements domain.EventSink and keeps the metric families current.
// Counter updates are synchronous; gauge refreshes run on a background
// goroutine, because Emit is called inside the emitting component's critical
// section and the gauge sources take those same locks.
type Recorder struct {
	pool PoolStats
	lock LockStats
	kick chan struct{}
}

// NewRecorder builds a Recorder over the pool and facility read surfaces and
// starts its gauge refresher.
func NewRecorder(pool PoolStats, lock LockStats) *Recorder {
	r := &Recorder{
		pool: pool,
		lock: lock,
		kick: make(chan struct{}, 1),
	}
	go r.gaugeLoop()
	return r
}

// gaugeLoop refreshes the gauges whenever an event signals state movement.
func (r *Recorder) gaugeLoop() {
	for range r.kick {
		r.refreshGauges()
	}
}

// Emit implements domain.EventSink.  Never blocks.
func (r *Recorder) Emit(ev domain.Event) {
	switch e := ev.(type) {
	case domain.TicketBought:
		mtxTickets.WithLabelValues("bought").Inc()
	case domain.TicketSettled:
		mtxTickets.WithLabelValues(string(e.TerminalStatus)).Inc()
	case domain.CashedOut:
		mtxTickets.WithLabelValues("cashed_out").Inc()
		mtxPayouts.WithLabelValues("cashout").Add(intToFloat(e.CashoutValue))
	case domain.PayoutClaimed:
		mtxPayouts.WithLabelValues(e.Reason).Add(intToFloat(e.Amount))
	case domain.FeesRouted:
		mtxFees.WithLabelValues("lockers").Add(intToFloat(e.ToLockers))
		mtxFees.WithLabelValues("safety").Add(intToFloat(e.ToSafety))
		mtxFees.WithLabelValues("pool_surplus").Add(intToFloat(e.ToPoolSurplus))
	case domain.Locked:
		mtxLockEvents.WithLabelValues("locked").Inc()
	case domain.Unlocked:
		mtxLockEvents.WithLabelValues("unlocked").Inc()
	case domain.EarlyWithdrawn:
		mtxLockEvents.WithLabelValues("early_withdrawn").Inc()
	}
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// refreshGauges snapshots the pool and facility state.
func (r *Recorder) refreshGauges() {
	if r.pool != nil {
		mtxPoolAssets.Set(intToFloat(r.pool.TotalAssets()))
		mtxPoolReserved.Set(intToFloat(r.pool.TotalReserved()))
	}
	if r.lock != nil {
		mtxLockedShares.Set(intToFloat(r.lock.TotalLockedShares()))
	}
}

// intToFloat renders a ledger integer for a gauge.  Metrics tolerate the
// float64 precision loss; settlement math never passes through here.
func intToFloat(n sdkmath.Int) float64 {
	f, _ := new(big.Float).SetInt(n.BigInt()).Float64()
	return f
}
