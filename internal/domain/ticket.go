package domain

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// MinLegs and MaxLegs bound the number of legs in a parlay.
const (
	MinLegs = 2
	MaxLegs = 5
)

// TicketStatus represents the current state of a ticket.
type TicketStatus string

const (
	TicketActive  TicketStatus = "active"  // in play
	TicketWon     TicketStatus = "won"     // every surviving leg won; payout pending claim
	TicketLost    TicketStatus = "lost"    // at least one surviving leg lost
	TicketVoided  TicketStatus = "voided"  // too few surviving legs; stake refundable
	TicketClaimed TicketStatus = "claimed" // paid out (claim or cashout); terminal
)

// SettlementMode selects the oracle path a ticket settles through.  Frozen at
// buy time against the bootstrap boundary.
type SettlementMode string

const (
	SettleFast       SettlementMode = "fast"
	SettleOptimistic SettlementMode = "optimistic"
)

// PayoutMode selects how a ticket may pay out.
type PayoutMode string

const (
	PayoutClassic     PayoutMode = "classic"
	PayoutProgressive PayoutMode = "progressive"
	PayoutEarlyCash   PayoutMode = "early_cashout"
)

// IsValid returns true for a recognised payout mode.
func (m PayoutMode) IsValid() bool {
	switch m {
	case PayoutClassic, PayoutProgressive, PayoutEarlyCash:
		return true
	}
	return false
}

// ──────────────────────────────────────────────────────────────────────────────
// Ticket
// ──────────────────────────────────────────────────────────────────────────────

// Ticket is a non-fungible parlay position.  All pricing inputs are snapshot
// at buy time; later registry or configuration changes never reprice a live
// ticket.
type Ticket struct {
	ID             uint64       `json:"id"`
	Owner          uuid.UUID    `json:"owner"`
	Stake          sdkmath.Int  `json:"stake"`
	EffectiveStake sdkmath.Int  `json:"effective_stake"` // stake − feePaid
	LegIDs         []uint64     `json:"leg_ids"`
	ChosenSides    []Side       `json:"chosen_sides"`
	ProbsPPM       []int64      `json:"probs_ppm"` // registry snapshot, leg order
	QuotedMultPPM  sdkmath.Int  `json:"quoted_multiplier_ppm"`
	PotentialPayout sdkmath.Int `json:"potential_payout"`
	FeePaid        sdkmath.Int  `json:"fee_paid"`
	EdgeBps        int64        `json:"edge_bps"`         // frozen at buy
	BasePenaltyBps int64        `json:"base_penalty_bps"` // cashout penalty base, frozen at buy
	SettlementMode SettlementMode `json:"settlement_mode"`
	PayoutMode     PayoutMode   `json:"payout_mode"`
	Status         TicketStatus `json:"status"`
	ClaimedAmount  sdkmath.Int  `json:"claimed_amount"`
	CreatedAt      time.Time    `json:"created_at"`
	SettledAt      *time.Time   `json:"settled_at,omitempty"`
}

// IsActive returns true while the ticket can still settle, claim
// progressively, or cash out.
func (t *Ticket) IsActive() bool {
	return t.Status == TicketActive
}

// IsTerminal returns true once no further payout is possible.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketLost || t.Status == TicketClaimed
}

// NumLegs returns the leg count.
func (t *Ticket) NumLegs() int {
	return len(t.LegIDs)
}

// Remaining returns the unclaimed part of the potential payout, saturating at
// zero so prior progressive claims can never drive a negative transfer.
func (t *Ticket) Remaining() sdkmath.Int {
	r := t.PotentialPayout.Sub(t.ClaimedAmount)
	if r.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return r
}
