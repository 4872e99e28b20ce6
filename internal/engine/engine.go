// Package engine owns the ticket set and its state machine: quoting and
// issuing parlays, permissionless settlement, progressive claims, early
// cashout, and payout claims.  The engine holds no custody of its own — every
// unit of value moves buyer↔pool through the pool's interface — and every
// entry point validates fully before mutating, so a failed call leaves no
// partial state behind.
package engine

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/parlaymath"
	"github.com/parlaycity/core/internal/token"
)

// ──────────────────────────────────────────────────────────────────────────────
// Injected interfaces — the engine sees its collaborators only through these,
// keeping Engine → Pool → LockFacility a strict DAG.
// ──────────────────────────────────────────────────────────────────────────────

// PoolAPI is the slice of the liquidity pool the engine drives.
// Implemented by pool.Pool.
type PoolAPI interface {
	Account() uuid.UUID
	TotalAssets() sdkmath.Int
	TotalReserved() sdkmath.Int
	CheckReserve(amount sdkmath.Int) error
	ReservePayout(caller uuid.UUID, amount sdkmath.Int) error
	ReleasePayout(caller uuid.UUID, amount sdkmath.Int) error
	PayWinner(caller, to uuid.UUID, amount sdkmath.Int) error
	Refund(caller, to uuid.UUID, amount sdkmath.Int) error
	RouteFees(caller uuid.UUID, toLockers, toSafety, toPoolSurplus sdkmath.Int) error
}

// LegSource is the slice of the registry the engine validates against.
// Implemented by registry.Registry.
type LegSource interface {
	ValidateParlay(legIDs []uint64, chosen []domain.Side, now time.Time) ([]int64, error)
}

// OutcomeSource reads leg results through the settlement mode frozen into a
// ticket.  Implemented by oracle.Router.
type OutcomeSource interface {
	StatusOf(legID uint64, mode domain.SettlementMode) (domain.LegResult, string)
	CanResolve(legID uint64, mode domain.SettlementMode) bool
}

// ──────────────────────────────────────────────────────────────────────────────
// Parameters
// ──────────────────────────────────────────────────────────────────────────────

// Params are the engine's quoting and settlement settings.  Updates apply to
// new tickets only: every number a live ticket depends on is frozen at buy.
type Params struct {
	BaseFeeBps            int64
	PerLegFeeBps          int64
	BaseCashoutPenaltyBps int64
	FeeToLockersBps       int64
	FeeToSafetyBps        int64
	MinStake              sdkmath.Int
	BootstrapEndsAt       time.Time // buys before this settle Fast, after Optimistic
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		BaseFeeBps:            100,
		PerLegFeeBps:          50,
		BaseCashoutPenaltyBps: 300,
		FeeToLockersBps:       9_000,
		FeeToSafetyBps:        500,
		MinStake:              sdkmath.NewInt(1_000_000),
	}
}

// Validate checks every parameter is in range.
func (p Params) Validate() error {
	for _, v := range []int64{p.BaseFeeBps, p.PerLegFeeBps, p.BaseCashoutPenaltyBps, p.FeeToLockersBps, p.FeeToSafetyBps} {
		if v < 0 || v > parlaymath.BPS {
			return fmt.Errorf("engine: %w: param %d out of [0, %d] BPS", domain.ErrInvalidArgument, v, parlaymath.BPS)
		}
	}
	if p.FeeToLockersBps+p.FeeToSafetyBps > parlaymath.BPS {
		return fmt.Errorf("engine: %w: fee split exceeds %d BPS", domain.ErrInvalidArgument, parlaymath.BPS)
	}
	if p.MinStake.IsNil() || !p.MinStake.IsPositive() {
		return fmt.Errorf("engine: %w: minimum stake must be positive", domain.ErrInvalidArgument)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Engine
// ──────────────────────────────────────────────────────────────────────────────

// Engine is the ticket singleton.
type Engine struct {
	mu sync.Mutex

	ledger  *token.Ledger
	account uuid.UUID // authorizes the pool's engine-only surface; never funded

	pool    PoolAPI
	legs    LegSource
	oracles OutcomeSource

	tickets map[uint64]*domain.Ticket
	nextID  uint64

	operator uuid.UUID
	params   Params
	sink     domain.EventSink
	now      func() time.Time
}

// New creates the engine.
func New(ledger *token.Ledger, p PoolAPI, legs LegSource, oracles OutcomeSource, operator uuid.UUID, params Params, sink domain.EventSink) (*Engine, error) {
	if ledger == nil || p == nil || legs == nil || oracles == nil {
		return nil, fmt.Errorf("engine.New: %w: missing collaborator", domain.ErrNotConfigured)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Engine{
		ledger:   ledger,
		account:  uuid.New(),
		pool:     p,
		legs:     legs,
		oracles:  oracles,
		tickets:  make(map[uint64]*domain.Ticket),
		nextID:   1,
		operator: operator,
		params:   params,
		sink:     sink,
		now:      time.Now,
	}, nil
}

// Account returns the engine's authorization account.  Its ledger balance is
// zero at rest: the engine never custodies assets.
func (e *Engine) Account() uuid.UUID { return e.account }

// SetClock overrides the engine's time source.  Test hook.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Params returns the current settings.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// SetParams updates the quoting settings.  Operator only; live tickets keep
// their frozen numbers.
func (e *Engine) SetParams(caller uuid.UUID, params Params) error {
	if caller != e.operator {
		return fmt.Errorf("engine.SetParams: %w: operator only", domain.ErrUnauthorized)
	}
	if err := params.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = params
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// BuyTicket
// ──────────────────────────────────────────────────────────────────────────────

// BuyTicket issues a Classic-mode ticket.
func (e *Engine) BuyTicket(buyer uuid.UUID, legIDs []uint64, chosen []domain.Side, stake sdkmath.Int) (*domain.Ticket, error) {
	return e.BuyTicketWithMode(buyer, legIDs, chosen, stake, domain.PayoutClassic)
}

// BuyTicketWithMode validates the parlay, quotes it, moves the stake into the
// pool, reserves the potential payout, and routes the fee.  Everything is
// checked before the first transfer, so a failure commits nothing.
func (e *Engine) BuyTicketWithMode(buyer uuid.UUID, legIDs []uint64, chosen []domain.Side, stake sdkmath.Int, mode domain.PayoutMode) (*domain.Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// ── 1. Input validation ──────────────────────────────────────────────────
	if buyer == uuid.Nil {
		return nil, fmt.Errorf("engine.BuyTicket: %w: nil buyer", domain.ErrInvalidArgument)
	}
	if n := len(legIDs); n < domain.MinLegs || n > domain.MaxLegs {
		return nil, fmt.Errorf("engine.BuyTicket: %w: %d legs, want %d..%d",
			domain.ErrInvalidArgument, n, domain.MinLegs, domain.MaxLegs)
	}
	if mode == "" {
		mode = domain.PayoutClassic
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("engine.BuyTicket: %w: payout mode %q", domain.ErrInvalidArgument, mode)
	}
	if stake.IsNil() || stake.LT(e.params.MinStake) {
		return nil, fmt.Errorf("engine.BuyTicket: %w: stake below minimum %s", domain.ErrInvalidArgument, e.params.MinStake)
	}

	now := e.now().UTC()
	probs, err := e.legs.ValidateParlay(legIDs, chosen, now)
	if err != nil {
		return nil, fmt.Errorf("engine.BuyTicket: %w", err)
	}

	// ── 2. Quote ─────────────────────────────────────────────────────────────
	edgeBps, err := parlaymath.ComputeEdge(len(legIDs), e.params.BaseFeeBps, e.params.PerLegFeeBps)
	if err != nil {
		return nil, fmt.Errorf("engine.BuyTicket: %w", err)
	}
	feePaid := stake.Mul(sdkmath.NewInt(edgeBps)).Quo(sdkmath.NewInt(parlaymath.BPS))
	effectiveStake := stake.Sub(feePaid)
	fairMult, err := parlaymath.ComputeMultiplier(probs)
	if err != nil {
		return nil, fmt.Errorf("engine.BuyTicket: %w", err)
	}
	netMult, err := parlaymath.ApplyEdge(fairMult, edgeBps)
	if err != nil {
		return nil, fmt.Errorf("engine.BuyTicket: %w", err)
	}
	// Payout is quoted on the gross stake; the effective stake only feeds
	// progressive and cashout valuations.
	potential, err := parlaymath.ComputePayout(stake, netMult)
	if err != nil {
		return nil, fmt.Errorf("engine.BuyTicket: %w", err)
	}
	if !potential.IsPositive() {
		return nil, fmt.Errorf("engine.BuyTicket: %w: quote rounds to zero payout", domain.ErrInvalidArgument)
	}

	toLockers, toSafety, toSurplus, err := parlaymath.SplitFee(feePaid, e.params.FeeToLockersBps, e.params.FeeToSafetyBps)
	if err != nil {
		return nil, fmt.Errorf("engine.BuyTicket: %w", err)
	}

	// ── 3. Capacity checks against the current pool ──────────────────────────
	if err := e.pool.CheckReserve(potential); err != nil {
		return nil, fmt.Errorf("engine.BuyTicket: %w", err)
	}
	if e.ledger.BalanceOf(buyer).LT(stake) {
		return nil, fmt.Errorf("engine.BuyTicket: %w: buyer balance below stake", domain.ErrInsufficientLiquidity)
	}
	// Outbound fee legs must fit in free liquidity as it will stand after
	// the stake arrives and the payout is reserved.
	free := e.pool.TotalAssets().Add(stake).Sub(e.pool.TotalReserved()).Sub(potential)
	if toLockers.Add(toSafety).GT(free) {
		return nil, fmt.Errorf("engine.BuyTicket: %w: fee routing exceeds free liquidity", domain.ErrInsufficientLiquidity)
	}

	// ── 4. Commit: stake in, payout reserved, fees routed, ticket minted ─────
	if err := e.ledger.Transfer(buyer, e.pool.Account(), stake, "ticket stake"); err != nil {
		return nil, fmt.Errorf("engine.BuyTicket: %w", err)
	}
	if err := e.pool.ReservePayout(e.account, potential); err != nil {
		// Pre-checked above; unwind the stake if the pool still refuses.
		_ = e.pool.Refund(e.account, buyer, stake)
		return nil, fmt.Errorf("engine.BuyTicket: %w", err)
	}
	if err := e.pool.RouteFees(e.account, toLockers, toSafety, toSurplus); err != nil {
		_ = e.pool.ReleasePayout(e.account, potential)
		_ = e.pool.Refund(e.account, buyer, stake)
		return nil, fmt.Errorf("engine.BuyTicket: %w", err)
	}

	settlement := domain.SettleOptimistic
	if !e.params.BootstrapEndsAt.IsZero() && now.Before(e.params.BootstrapEndsAt) {
		settlement = domain.SettleFast
	}

	t := &domain.Ticket{
		ID:              e.nextID,
		Owner:           buyer,
		Stake:           stake,
		EffectiveStake:  effectiveStake,
		LegIDs:          append([]uint64(nil), legIDs...),
		ChosenSides:     append([]domain.Side(nil), chosen...),
		ProbsPPM:        probs,
		QuotedMultPPM:   netMult,
		PotentialPayout: potential,
		FeePaid:         feePaid,
		EdgeBps:         edgeBps,
		BasePenaltyBps:  e.params.BaseCashoutPenaltyBps,
		SettlementMode:  settlement,
		PayoutMode:      mode,
		Status:          domain.TicketActive,
		ClaimedAmount:   sdkmath.ZeroInt(),
		CreatedAt:       now,
	}
	e.nextID++
	e.tickets[t.ID] = t

	e.sink.Emit(domain.TicketBought{
		TicketID: t.ID, Owner: buyer, Stake: stake,
		PotentialPayout: potential, FeePaid: feePaid, PayoutMode: mode,
	})
	e.sink.Emit(domain.FeesRouted{
		TicketID: t.ID, ToLockers: toLockers, ToSafety: toSafety, ToPoolSurplus: toSurplus,
	})

	out := *t
	return &out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// SettleTicket
// ──────────────────────────────────────────────────────────────────────────────

// SettleTicket finalizes an Active ticket once every leg has a final result
// on the ticket's frozen settlement path.  Permissionless: anyone may call
// it, and calling again is the retry path.
func (e *Engine) SettleTicket(ticketID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.ticket(ticketID)
	if err != nil {
		return fmt.Errorf("engine.SettleTicket: %w", err)
	}
	if t.Status != domain.TicketActive {
		return fmt.Errorf("engine.SettleTicket: ticket %d: %w", ticketID, domain.ErrAlreadyResolved)
	}

	outcomes := make([]domain.LegOutcome, len(t.LegIDs))
	for i, legID := range t.LegIDs {
		if !e.oracles.CanResolve(legID, t.SettlementMode) {
			return fmt.Errorf("engine.SettleTicket: leg %d: %w: no final outcome", legID, domain.ErrNotReady)
		}
		result, _ := e.oracles.StatusOf(legID, t.SettlementMode)
		outcomes[i] = domain.OutcomeFor(result, t.ChosenSides[i])
	}

	// Surviving legs are the non-voided ones.
	var (
		survivingProbs []int64
		survivingCount int
		anyLost        bool
	)
	for i, oc := range outcomes {
		if oc == domain.OutcomeVoided {
			continue
		}
		survivingCount++
		survivingProbs = append(survivingProbs, t.ProbsPPM[i])
		if oc == domain.OutcomeLost {
			anyLost = true
		}
	}

	now := e.now().UTC()

	// Too few surviving legs: the parlay is void; the stake becomes
	// refundable and the whole remaining reservation is released now.
	if survivingCount < domain.MinLegs {
		if remaining := t.Remaining(); remaining.IsPositive() {
			if err := e.pool.ReleasePayout(e.account, remaining); err != nil {
				return fmt.Errorf("engine.SettleTicket: %w", err)
			}
		}
		t.Status = domain.TicketVoided
		t.SettledAt = &now
		e.sink.Emit(domain.TicketSettled{TicketID: t.ID, TerminalStatus: t.Status, AdjustedPayout: t.Stake})
		return nil
	}

	// Some legs voided but enough survive: reprice over the survivors at
	// their snapshot probabilities and shrink the reservation to match.
	if survivingCount < len(t.LegIDs) {
		fair, err := parlaymath.ComputeMultiplier(survivingProbs)
		if err != nil {
			return fmt.Errorf("engine.SettleTicket: %w", err)
		}
		net, err := parlaymath.ApplyEdge(fair, t.EdgeBps)
		if err != nil {
			return fmt.Errorf("engine.SettleTicket: %w", err)
		}
		adjusted, err := parlaymath.ComputePayout(t.Stake, net)
		if err != nil {
			return fmt.Errorf("engine.SettleTicket: %w", err)
		}
		oldRemaining := t.Remaining()
		t.PotentialPayout = adjusted
		t.QuotedMultPPM = net
		newRemaining := t.Remaining()
		if delta := oldRemaining.Sub(newRemaining); delta.IsPositive() {
			if err := e.pool.ReleasePayout(e.account, delta); err != nil {
				return fmt.Errorf("engine.SettleTicket: %w", err)
			}
		}
	}

	if anyLost {
		if remaining := t.Remaining(); remaining.IsPositive() {
			if err := e.pool.ReleasePayout(e.account, remaining); err != nil {
				return fmt.Errorf("engine.SettleTicket: %w", err)
			}
		}
		t.Status = domain.TicketLost
		t.SettledAt = &now
		e.sink.Emit(domain.TicketSettled{TicketID: t.ID, TerminalStatus: t.Status, AdjustedPayout: sdkmath.ZeroInt()})
		return nil
	}

	// Every surviving leg won: the reservation stays until the claim.
	t.Status = domain.TicketWon
	t.SettledAt = &now
	e.sink.Emit(domain.TicketSettled{TicketID: t.ID, TerminalStatus: t.Status, AdjustedPayout: t.PotentialPayout})
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ClaimProgressive
// ──────────────────────────────────────────────────────────────────────────────

// ClaimProgressive pays the owner of a Progressive ticket the delta earned by
// legs won so far.  The ticket stays Active and its reservation keeps
// covering the full remaining ceiling.
func (e *Engine) ClaimProgressive(caller uuid.UUID, ticketID uint64) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.ticket(ticketID)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimProgressive: %w", err)
	}
	if t.Owner != caller {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimProgressive: %w: owner only", domain.ErrUnauthorized)
	}
	if t.PayoutMode != domain.PayoutProgressive {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimProgressive: %w: ticket is not progressive", domain.ErrPolicyViolation)
	}
	if t.Status != domain.TicketActive {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimProgressive: %w: ticket not active", domain.ErrPolicyViolation)
	}

	wonProbs := e.wonProbs(t)
	if len(wonProbs) == 0 {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimProgressive: %w: no won legs", domain.ErrPolicyViolation)
	}
	res, err := parlaymath.ComputeProgressivePayout(t.EffectiveStake, wonProbs, t.PotentialPayout, t.ClaimedAmount)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimProgressive: %w", err)
	}
	if !res.Claimable.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimProgressive: %w: nothing newly claimable", domain.ErrPolicyViolation)
	}

	// Effects before the transfer.
	t.ClaimedAmount = t.ClaimedAmount.Add(res.Claimable)
	if err := e.pool.PayWinner(e.account, t.Owner, res.Claimable); err != nil {
		t.ClaimedAmount = t.ClaimedAmount.Sub(res.Claimable)
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimProgressive: %w", err)
	}

	e.sink.Emit(domain.PayoutClaimed{TicketID: t.ID, Owner: t.Owner, Amount: res.Claimable, Reason: "progressive"})
	return res.Claimable, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// CashoutEarly
// ──────────────────────────────────────────────────────────────────────────────

// CashoutEarly exits an EarlyCashout ticket at its computed value.  minOut is
// the caller's slippage bound on the full cashout value.  A lost leg aborts
// the cashout: the ticket settles Lost through SettleTicket instead.
func (e *Engine) CashoutEarly(caller uuid.UUID, ticketID uint64, minOut sdkmath.Int) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.ticket(ticketID)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w", err)
	}
	if t.Owner != caller {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w: owner only", domain.ErrUnauthorized)
	}
	if t.PayoutMode != domain.PayoutEarlyCash {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w: ticket is not early-cashout", domain.ErrPolicyViolation)
	}
	if t.Status != domain.TicketActive {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w: ticket not active", domain.ErrPolicyViolation)
	}

	var (
		wonProbs   []int64
		unresolved int
	)
	for i, legID := range t.LegIDs {
		result := domain.ResultUnresolved
		if e.oracles.CanResolve(legID, t.SettlementMode) {
			result, _ = e.oracles.StatusOf(legID, t.SettlementMode)
		}
		switch domain.OutcomeFor(result, t.ChosenSides[i]) {
		case domain.OutcomeLost:
			return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w: leg %d lost, ticket settles as lost", domain.ErrPolicyViolation, legID)
		case domain.OutcomeWon:
			wonProbs = append(wonProbs, t.ProbsPPM[i])
		case domain.OutcomeUnresolved:
			unresolved++
		}
	}
	if unresolved == 0 {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w: all legs resolved, settle instead", domain.ErrPolicyViolation)
	}
	if len(wonProbs) == 0 {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w: no won legs to value", domain.ErrPolicyViolation)
	}

	res, err := parlaymath.ComputeCashoutValue(t.EffectiveStake, wonProbs, unresolved, t.NumLegs(), t.PotentialPayout, t.BasePenaltyBps)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w", err)
	}
	if !minOut.IsNil() && res.CashoutValue.LT(minOut) {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w: value %s below minOut %s", domain.ErrSlippage, res.CashoutValue, minOut)
	}

	// The payable part saturates at zero when prior progressive-era claims
	// already exceed the cashout value; the rest of the reservation is
	// released either way.
	remaining := t.Remaining()
	payable := res.CashoutValue.Sub(t.ClaimedAmount)
	if payable.IsNegative() {
		payable = sdkmath.ZeroInt()
	}
	if payable.GT(remaining) {
		payable = remaining
	}
	release := remaining.Sub(payable)

	// Effects before transfers.
	t.Status = domain.TicketClaimed
	t.ClaimedAmount = t.ClaimedAmount.Add(payable)
	now := e.now().UTC()
	t.SettledAt = &now

	if payable.IsPositive() {
		if err := e.pool.PayWinner(e.account, t.Owner, payable); err != nil {
			t.Status = domain.TicketActive
			t.ClaimedAmount = t.ClaimedAmount.Sub(payable)
			t.SettledAt = nil
			return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w", err)
		}
	}
	if release.IsPositive() {
		if err := e.pool.ReleasePayout(e.account, release); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("engine.CashoutEarly: %w", err)
		}
	}

	e.sink.Emit(domain.CashedOut{TicketID: t.ID, Owner: t.Owner, CashoutValue: res.CashoutValue, PenaltyBps: res.PenaltyBps})
	return res.CashoutValue, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ClaimPayout
// ──────────────────────────────────────────────────────────────────────────────

// ClaimPayout pays out a settled ticket: the remaining potential payout for a
// win, the original gross stake for a void.
func (e *Engine) ClaimPayout(caller uuid.UUID, ticketID uint64) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.ticket(ticketID)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimPayout: %w", err)
	}
	if t.Owner != caller {
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimPayout: %w: owner only", domain.ErrUnauthorized)
	}

	now := e.now().UTC()
	switch t.Status {
	case domain.TicketWon:
		amount := t.Remaining()
		t.Status = domain.TicketClaimed
		t.ClaimedAmount = t.ClaimedAmount.Add(amount)
		t.SettledAt = &now
		if amount.IsPositive() {
			if err := e.pool.PayWinner(e.account, t.Owner, amount); err != nil {
				t.Status = domain.TicketWon
				t.ClaimedAmount = t.ClaimedAmount.Sub(amount)
				return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimPayout: %w", err)
			}
		}
		e.sink.Emit(domain.PayoutClaimed{TicketID: t.ID, Owner: t.Owner, Amount: amount, Reason: "win"})
		return amount, nil

	case domain.TicketVoided:
		t.Status = domain.TicketClaimed
		t.SettledAt = &now
		if err := e.pool.Refund(e.account, t.Owner, t.Stake); err != nil {
			t.Status = domain.TicketVoided
			return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimPayout: %w", err)
		}
		e.sink.Emit(domain.PayoutClaimed{TicketID: t.ID, Owner: t.Owner, Amount: t.Stake, Reason: "void_refund"})
		return t.Stake, nil

	case domain.TicketClaimed:
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimPayout: ticket %d: %w", ticketID, domain.ErrAlreadyResolved)
	default:
		return sdkmath.ZeroInt(), fmt.Errorf("engine.ClaimPayout: %w: ticket %d is %s", domain.ErrPolicyViolation, ticketID, t.Status)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Read surface
// ──────────────────────────────────────────────────────────────────────────────

// GetTicket returns a copy of the ticket.
func (e *Engine) GetTicket(ticketID uint64) (domain.Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tickets[ticketID]
	if !ok {
		return domain.Ticket{}, fmt.Errorf("engine.GetTicket: ticket %d: %w", ticketID, domain.ErrNotFound)
	}
	return *t, nil
}

// TicketCount returns how many tickets have been issued.
func (e *Engine) TicketCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextID - 1
}

// ActiveTicketIDs returns the ids of all Active tickets, ascending.  Used by
// the settlement sweeper.
func (e *Engine) ActiveTicketIDs() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ids []uint64
	for id := uint64(1); id < e.nextID; id++ {
		if t, ok := e.tickets[id]; ok && t.Status == domain.TicketActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// CanSettle reports whether every leg of a ticket has a final outcome on its
// settlement path.
func (e *Engine) CanSettle(ticketID uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tickets[ticketID]
	if !ok || t.Status != domain.TicketActive {
		return false
	}
	for _, legID := range t.LegIDs {
		if !e.oracles.CanResolve(legID, t.SettlementMode) {
			return false
		}
	}
	return true
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal helpers — callers hold e.mu
// ──────────────────────────────────────────────────────────────────────────────

func (e *Engine) ticket(id uint64) (*domain.Ticket, error) {
	t, ok := e.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %d: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

// wonProbs collects the snapshot probabilities of the ticket's currently-won
// legs, in leg order.
func (e *Engine) wonProbs(t *domain.Ticket) []int64 {
	var probs []int64
	for i, legID := range t.LegIDs {
		if !e.oracles.CanResolve(legID, t.SettlementMode) {
			continue
		}
		result, _ := e.oracles.StatusOf(legID, t.SettlementMode)
		if domain.OutcomeFor(result, t.ChosenSides[i]) == domain.OutcomeWon {
			probs = append(probs, t.ProbsPPM[i])
		}
	}
	return probs
}
