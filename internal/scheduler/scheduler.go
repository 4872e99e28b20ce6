// Package scheduler runs the two background goroutines of the parlay engine:
//  1. settlementLoop – sweeps Active tickets and settles every one whose legs
//     all have a final oracle outcome.  Settlement is permissionless, so the
//     sweeper is just the always-on caller of record.
//  2. poolStateLoop  – pushes a liquidity snapshot to WS clients.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/parlaycity/core/internal/ws"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces — minimal slices of the engine and pool
// ──────────────────────────────────────────────────────────────────────────────

// TicketSettler is what the sweeper needs from the engine.
type TicketSettler interface {
	ActiveTicketIDs() []uint64
	CanSettle(ticketID uint64) bool
	SettleTicket(ticketID uint64) error
	TicketCount() uint64
}

// PoolReader is what the broadcast loop needs from the pool.
type PoolReader interface {
	TotalAssets() sdkmath.Int
	TotalReserved() sdkmath.Int
	FreeLiquidity() sdkmath.Int
	MaxPayout() sdkmath.Int
}

// StateHub defines the broadcast operation the Scheduler needs from the
// WebSocket hub.  Declared here so the scheduler package stays decoupled from
// the hub implementation.
type StateHub interface {
	BroadcastPoolState(msg ws.PoolStateMessage)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler drives the background loops.  Call Start(ctx) once from main();
// cancel the context to shut it down gracefully.
type Scheduler struct {
	engine TicketSettler
	pool   PoolReader
	hub    StateHub
	logger *slog.Logger

	settleEvery    time.Duration
	broadcastEvery time.Duration
}

// NewScheduler creates a Scheduler.
func NewScheduler(engine TicketSettler, pool PoolReader, hub StateHub, settleEvery, broadcastEvery time.Duration, logger *slog.Logger) *Scheduler {
	if settleEvery <= 0 {
		settleEvery = 5 * time.Second
	}
	if broadcastEvery <= 0 {
		broadcastEvery = time.Second
	}
	return &Scheduler{
		engine:         engine,
		pool:           pool,
		hub:            hub,
		logger:         logger,
		settleEvery:    settleEvery,
		broadcastEvery: broadcastEvery,
	}
}

// Start launches the background goroutines.  It returns immediately; all
// loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.settlementLoop(ctx)
	go s.poolStateLoop(ctx)
	s.logger.Info("scheduler started",
		"settle_every", s.settleEvery, "broadcast_every", s.broadcastEvery)
}

// ──────────────────────────────────────────────────────────────────────────────
// settlementLoop
// ──────────────────────────────────────────────────────────────────────────────

// settlementLoop periodically settles every ticket whose legs are all final.
// A single failing ticket does NOT abort the sweep.
func (s *Scheduler) settlementLoop(ctx context.Context) {
	defer s.recoverAndLog("settlementLoop")

	ticker := time.NewTicker(s.settleEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settlementLoop: shutting down")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep is one settlement pass, extracted so the loop's recover catches
// panics correctly.
func (s *Scheduler) sweep() {
	for _, id := range s.engine.ActiveTicketIDs() {
		if !s.engine.CanSettle(id) {
			continue
		}
		if err := s.engine.SettleTicket(id); err != nil {
			// Benign races (another caller settled first) and transient
			// failures both land here; the next sweep retries.
			s.logger.Warn("settlementLoop: settle failed", "ticket", id, "err", err)
			continue
		}
		s.logger.Info("ticket settled by sweeper", "ticket", id)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// poolStateLoop
// ──────────────────────────────────────────────────────────────────────────────

// poolStateLoop broadcasts the pool's headline numbers to all WS clients.
func (s *Scheduler) poolStateLoop(ctx context.Context) {
	defer s.recoverAndLog("poolStateLoop")

	if s.hub == nil {
		return
	}
	ticker := time.NewTicker(s.broadcastEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("poolStateLoop: shutting down")
			return
		case <-ticker.C:
			s.hub.BroadcastPoolState(ws.PoolStateMessage{
				Type:          ws.MsgTypePoolState,
				TotalAssets:   s.pool.TotalAssets(),
				TotalReserved: s.pool.TotalReserved(),
				FreeLiquidity: s.pool.FreeLiquidity(),
				MaxPayout:     s.pool.MaxPayout(),
				TicketCount:   s.engine.TicketCount(),
				Timestamp:     time.Now().UTC(),
			})
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
