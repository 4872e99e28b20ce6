package domain

import (
	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Event plumbing
// ──────────────────────────────────────────────────────────────────────────────

// Event is implemented by every emitted event.  EventType is the wire
// discriminator clients switch on.
type Event interface {
	EventType() string
}

// EventSink receives events as state transitions commit.  Every field of an
// emitted event equals the value actually applied to state, not the value
// requested.  Implementations must not block: emission happens inside engine
// critical sections.
type EventSink interface {
	Emit(ev Event)
}

// NopSink discards all events.  Used when a component is wired without an
// observer.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(Event) {}

// MultiSink fans one event out to several sinks in order.
type MultiSink []EventSink

// Emit implements EventSink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Engine events
// ──────────────────────────────────────────────────────────────────────────────

// TicketBought is emitted once per successful buy.
type TicketBought struct {
	TicketID        uint64      `json:"ticket_id"`
	Owner           uuid.UUID   `json:"owner"`
	Stake           sdkmath.Int `json:"stake"`
	PotentialPayout sdkmath.Int `json:"potential_payout"`
	FeePaid         sdkmath.Int `json:"fee_paid"`
	PayoutMode      PayoutMode  `json:"payout_mode"`
}

func (TicketBought) EventType() string { return "ticket_bought" }

// TicketSettled is emitted when a ticket reaches Won, Lost, or Voided.
// AdjustedPayout is the ceiling applied at settlement: the potential payout
// after any void recomputation for Won, the stake for Voided, zero for Lost.
type TicketSettled struct {
	TicketID       uint64       `json:"ticket_id"`
	TerminalStatus TicketStatus `json:"terminal_status"`
	AdjustedPayout sdkmath.Int  `json:"adjusted_payout"`
}

func (TicketSettled) EventType() string { return "ticket_settled" }

// PayoutClaimed is emitted for win claims, void refunds, and progressive
// claims; Reason distinguishes them.
type PayoutClaimed struct {
	TicketID uint64      `json:"ticket_id"`
	Owner    uuid.UUID   `json:"owner"`
	Amount   sdkmath.Int `json:"amount"`
	Reason   string      `json:"reason"` // "win" | "void_refund" | "progressive"
}

func (PayoutClaimed) EventType() string { return "payout_claimed" }

// CashedOut is emitted when an EarlyCashout ticket exits.
type CashedOut struct {
	TicketID     uint64      `json:"ticket_id"`
	Owner        uuid.UUID   `json:"owner"`
	CashoutValue sdkmath.Int `json:"cashout_value"`
	PenaltyBps   int64       `json:"penalty_bps"`
}

func (CashedOut) EventType() string { return "cashed_out" }

// FeesRouted is emitted once per buy with the exact applied split.
type FeesRouted struct {
	TicketID      uint64      `json:"ticket_id"`
	ToLockers     sdkmath.Int `json:"to_lockers"`
	ToSafety      sdkmath.Int `json:"to_safety"`
	ToPoolSurplus sdkmath.Int `json:"to_pool_surplus"`
}

func (FeesRouted) EventType() string { return "fees_routed" }

// ──────────────────────────────────────────────────────────────────────────────
// Pool events
// ──────────────────────────────────────────────────────────────────────────────

// Deposited is emitted when an LP deposits assets for shares.
type Deposited struct {
	Owner  uuid.UUID   `json:"owner"`
	Shares sdkmath.Int `json:"shares"`
	Assets sdkmath.Int `json:"assets"`
}

func (Deposited) EventType() string { return "deposited" }

// Withdrawn is emitted when an LP burns shares for assets.
type Withdrawn struct {
	Owner  uuid.UUID   `json:"owner"`
	Shares sdkmath.Int `json:"shares"`
	Assets sdkmath.Int `json:"assets"`
}

func (Withdrawn) EventType() string { return "withdrawn" }

// ──────────────────────────────────────────────────────────────────────────────
// Lock facility events
// ──────────────────────────────────────────────────────────────────────────────

// Locked is emitted when a new lock position opens.
type Locked struct {
	PositionID uint64      `json:"position_id"`
	Owner      uuid.UUID   `json:"owner"`
	Shares     sdkmath.Int `json:"shares"`
	Tier       LockTier    `json:"tier"`
}

func (Locked) EventType() string { return "locked" }

// Unlocked is emitted when a matured position returns its shares.
type Unlocked struct {
	PositionID uint64      `json:"position_id"`
	Owner      uuid.UUID   `json:"owner"`
	Shares     sdkmath.Int `json:"shares"`
}

func (Unlocked) EventType() string { return "unlocked" }

// EarlyWithdrawn is emitted when a position exits before maturity.
type EarlyWithdrawn struct {
	PositionID uint64      `json:"position_id"`
	Owner      uuid.UUID   `json:"owner"`
	Returned   sdkmath.Int `json:"returned"`
	PenaltyBps int64       `json:"penalty_bps"`
}

func (EarlyWithdrawn) EventType() string { return "early_withdrawn" }

// RewardsSettled is emitted with the pending-reward delta moved to an owner.
type RewardsSettled struct {
	PositionID uint64      `json:"position_id"`
	Delta      sdkmath.Int `json:"delta"`
}

func (RewardsSettled) EventType() string { return "rewards_settled" }

// ──────────────────────────────────────────────────────────────────────────────
// Oracle events
// ──────────────────────────────────────────────────────────────────────────────

// Proposed is emitted when an optimistic outcome is proposed.
type Proposed struct {
	LegID    uint64      `json:"leg_id"`
	Result   LegResult   `json:"result"`
	Proposer uuid.UUID   `json:"proposer"`
	Bond     sdkmath.Int `json:"bond"`
}

func (Proposed) EventType() string { return "proposed" }

// Challenged is emitted when an open proposal is disputed.
type Challenged struct {
	LegID      uint64    `json:"leg_id"`
	Challenger uuid.UUID `json:"challenger"`
}

func (Challenged) EventType() string { return "challenged" }

// Finalized is emitted when a proposal passes liveness or a dispute resolves.
type Finalized struct {
	LegID  uint64    `json:"leg_id"`
	Result LegResult `json:"result"`
}

func (Finalized) EventType() string { return "finalized" }
