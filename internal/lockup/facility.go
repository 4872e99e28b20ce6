// Package lockup implements the tiered lock-up facility: pool shares are
// escrowed for 30/60/90 days and earn a weighted pro-rata slice of the
// protocol fee stream through a per-weighted-share reward accumulator.
package lockup

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

// RewardScale is the accumulator's fixed-point scale.  It is large enough
// that individual claims differ from the ideal weighted split by at most one
// base unit.
var RewardScale = sdkmath.NewIntFromUint64(1_000_000_000_000_000_000)

// SharePool is the slice of the liquidity pool the facility needs: share
// custody it can escrow against.  Implemented by pool.Pool.
type SharePool interface {
	Account() uuid.UUID
	MoveShares(caller, from, to uuid.UUID, shares sdkmath.Int) error
	SharesOf(owner uuid.UUID) sdkmath.Int
}

// Params are the facility's settings.
type Params struct {
	MinimumLock    sdkmath.Int // smallest lockable share amount
	BasePenaltyBps int64       // early-withdraw penalty at full remaining duration
}

// DefaultParams returns the production defaults: a 1-unit minimum lock and a
// 10% base early-withdraw penalty.
func DefaultParams() Params {
	return Params{
		MinimumLock:    sdkmath.NewInt(1_000_000),
		BasePenaltyBps: 1_000,
	}
}

// Facility is the lock-up singleton.
type Facility struct {
	mu sync.Mutex

	ledger  *token.Ledger
	account uuid.UUID // asset custody (fee stream) and share escrow identity
	pool    SharePool

	positions map[uint64]*domain.LockPosition
	nextID    uint64

	totalLockedShares   sdkmath.Int
	totalWeightedShares sdkmath.Int

	accRewardPerWeightedShare sdkmath.Int // RewardScale fixed point
	undistributedFees         sdkmath.Int
	pendingPerOwner           map[uuid.UUID]sdkmath.Int

	operator uuid.UUID
	params   Params
	sink     domain.EventSink
	now      func() time.Time
}

// New creates a facility.  The pool is injected post-construction to break
// the wiring cycle with the liquidity pool.
func New(ledger *token.Ledger, operator uuid.UUID, params Params, sink domain.EventSink) (*Facility, error) {
	if ledger == nil {
		return nil, fmt.Errorf("lockup.New: %w: nil ledger", domain.ErrNotConfigured)
	}
	if params.MinimumLock.IsNil() || !params.MinimumLock.IsPositive() {
		return nil, fmt.Errorf("lockup.New: %w: minimum lock must be positive", domain.ErrInvalidArgument)
	}
	if params.BasePenaltyBps < 0 || params.BasePenaltyBps > parlaymath.BPS {
		return nil, fmt.Errorf("lockup.New: %w: base penalty %d out of [0, %d]", domain.ErrInvalidArgument, params.BasePenaltyBps, parlaymath.BPS)
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Facility{
		ledger:                    ledger,
		account:                   uuid.New(),
		positions:                 make(map[uint64]*domain.LockPosition),
		nextID:                    1,
		totalLockedShares:         sdkmath.ZeroInt(),
		totalWeightedShares:       sdkmath.ZeroInt(),
		accRewardPerWeightedShare: sdkmath.ZeroInt(),
		undistributedFees:         sdkmath.ZeroInt(),
		pendingPerOwner:           make(map[uuid.UUID]sdkmath.Int),
		operator:                  operator,
		params:                    params,
		sink:                      sink,
		now:                       time.Now,
	}, nil
}

// SetPool injects the share pool post-construction.
func (f *Facility) SetPool(p SharePool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pool = p
}

// SetClock overrides the facility's time source.  Test hook.
func (f *Facility) SetClock(now func() time.Time) { f.now = now }

// Account returns the facility's custody/escrow account id.
func (f *Facility) Account() uuid.UUID { return f.account }

// ──────────────────────────────────────────────────────────────────────────────
// Lock / Unlock / EarlyWithdraw
// ──────────────────────────────────────────────────────────────────────────────

// Lock escrows the caller's pool shares for the tier's duration and opens a
// position.  Any fees accrued while nobody was locked are flushed into the
// accumulator so this locker absorbs them.
func (f *Facility) Lock(caller uuid.UUID, shares sdkmath.Int, tier domain.LockTier) (uint64, error) {
	if !tier.IsValid() {
		return 0, fmt.Errorf("lockup.Lock: %w: tier %q", domain.ErrInvalidArgument, tier)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pool == nil {
		return 0, fmt.Errorf("lockup.Lock: %w: pool unset", domain.ErrNotConfigured)
	}
	if shares.IsNil() || shares.LT(f.params.MinimumLock) {
		return 0, fmt.Errorf("lockup.Lock: %w: lock below minimum %s", domain.ErrPolicyViolation, f.params.MinimumLock)
	}
	if err := f.pool.MoveShares(f.account, caller, f.account, shares); err != nil {
		return 0, fmt.Errorf("lockup.Lock: escrow shares: %w", err)
	}

	now := f.now().UTC()
	weight := shares.Mul(sdkmath.NewInt(tier.WeightBps())).Quo(sdkmath.NewInt(parlaymath.BPS))
	pos := &domain.LockPosition{
		ID:         f.nextID,
		Owner:      caller,
		Shares:     shares,
		Tier:       tier,
		WeightBps:  tier.WeightBps(),
		LockedAt:   now,
		UnlocksAt:  now.Add(tier.Duration()),
		RewardDebt: weight.Mul(f.accRewardPerWeightedShare),
		Active:     true,
	}
	f.nextID++
	f.positions[pos.ID] = pos
	f.totalLockedShares = f.totalLockedShares.Add(shares)
	f.totalWeightedShares = f.totalWeightedShares.Add(weight)

	// Fees notified while the facility was empty accrue to the first lock.
	if f.undistributedFees.IsPositive() {
		f.accRewardPerWeightedShare = f.accRewardPerWeightedShare.Add(
			f.undistributedFees.Mul(RewardScale).Quo(f.totalWeightedShares))
		f.undistributedFees = sdkmath.ZeroInt()
	}

	f.sink.Emit(domain.Locked{PositionID: pos.ID, Owner: caller, Shares: shares, Tier: tier})
	return pos.ID, nil
}

// Unlock closes a matured position and returns its shares 1:1.
func (f *Facility) Unlock(caller uuid.UUID, positionID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, err := f.activePosition(positionID)
	if err != nil {
		return fmt.Errorf("lockup.Unlock: %w", err)
	}
	if pos.Owner != caller {
		return fmt.Errorf("lockup.Unlock: %w: owner only", domain.ErrUnauthorized)
	}
	if !pos.Matured(f.now()) {
		return fmt.Errorf("lockup.Unlock: %w: lock not matured", domain.ErrNotReady)
	}
	f.settle(pos)
	if err := f.pool.MoveShares(f.account, f.account, pos.Owner, pos.Shares); err != nil {
		return fmt.Errorf("lockup.Unlock: return shares: %w", err)
	}
	f.closePosition(pos)
	f.sink.Emit(domain.Unlocked{PositionID: pos.ID, Owner: pos.Owner, Shares: pos.Shares})
	return nil
}

// EarlyWithdraw closes a position before maturity.  The penalty scales with
// the remaining lock time and the forfeited shares stay in the facility as a
// sweepable surplus.
func (f *Facility) EarlyWithdraw(caller uuid.UUID, positionID uint64) (sdkmath.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, err := f.activePosition(positionID)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.EarlyWithdraw: %w", err)
	}
	if pos.Owner != caller {
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.EarlyWithdraw: %w: owner only", domain.ErrUnauthorized)
	}
	now := f.now()
	if pos.Matured(now) {
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.EarlyWithdraw: %w: lock already matured, use Unlock", domain.ErrPolicyViolation)
	}
	f.settle(pos)

	remaining := pos.UnlocksAt.Sub(now)
	total := pos.Tier.Duration()
	penaltyBps := f.params.BasePenaltyBps * int64(remaining) / int64(total)
	returned := pos.Shares.Mul(sdkmath.NewInt(parlaymath.BPS - penaltyBps)).Quo(sdkmath.NewInt(parlaymath.BPS))

	if returned.IsPositive() {
		if err := f.pool.MoveShares(f.account, f.account, pos.Owner, returned); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("lockup.EarlyWithdraw: return shares: %w", err)
		}
	}
	// Penalty shares remain on the facility's share balance, outside
	// totalLockedShares, until swept.
	f.closePosition(pos)
	f.sink.Emit(domain.EarlyWithdrawn{PositionID: pos.ID, Owner: pos.Owner, Returned: returned, PenaltyBps: penaltyBps})
	return returned, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fee stream
// ──────────────────────────────────────────────────────────────────────────────

// NotifyFees records a fee event of amount.  Pool only; the matching assets
// must already sit on the facility's custody account.  With no weighted
// shares outstanding the amount is parked until the next lock.
func (f *Facility) NotifyFees(caller uuid.UUID, amount sdkmath.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pool == nil {
		return fmt.Errorf("lockup.NotifyFees: %w: pool unset", domain.ErrNotConfigured)
	}
	if caller != f.pool.Account() {
		return fmt.Errorf("lockup.NotifyFees: %w: pool only", domain.ErrUnauthorized)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("lockup.NotifyFees: %w: amount must be positive", domain.ErrInvalidArgument)
	}
	if f.totalWeightedShares.IsZero() {
		f.undistributedFees = f.undistributedFees.Add(amount)
		return nil
	}
	f.accRewardPerWeightedShare = f.accRewardPerWeightedShare.Add(
		amount.Add(f.undistributedFees).Mul(RewardScale).Quo(f.totalWeightedShares))
	f.undistributedFees = sdkmath.ZeroInt()
	return nil
}

// SettleRewards moves a position's accrued delta into its owner's pending
// balance.  Idempotent per accumulator value; permissionless.
func (f *Facility) SettleRewards(positionID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, err := f.activePosition(positionID)
	if err != nil {
		return fmt.Errorf("lockup.SettleRewards: %w", err)
	}
	f.settle(pos)
	return nil
}

// ClaimFees pays the caller's settled pending rewards out of the facility's
// custody account.  Rejects when nothing is pending.
func (f *Facility) ClaimFees(caller uuid.UUID) (sdkmath.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending, ok := f.pendingPerOwner[caller]
	if !ok || !pending.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.ClaimFees: %w: nothing pending", domain.ErrPolicyViolation)
	}
	// Effects before the transfer.
	f.pendingPerOwner[caller] = sdkmath.ZeroInt()
	if err := f.ledger.Transfer(f.account, caller, pending, "locker fee claim"); err != nil {
		f.pendingPerOwner[caller] = pending
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.ClaimFees: %w", err)
	}
	return pending, nil
}

// SweepPenaltyShares transfers the facility's share surplus (escrow balance
// beyond active locks) to the given account.  Operator only; rejects when
// there is nothing to sweep.
func (f *Facility) SweepPenaltyShares(caller, to uuid.UUID) (sdkmath.Int, error) {
	if to == uuid.Nil {
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.SweepPenaltyShares: %w: nil destination", domain.ErrInvalidArgument)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.operator {
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.SweepPenaltyShares: %w: operator only", domain.ErrUnauthorized)
	}
	if f.pool == nil {
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.SweepPenaltyShares: %w: pool unset", domain.ErrNotConfigured)
	}
	surplus := f.pool.SharesOf(f.account).Sub(f.totalLockedShares)
	if !surplus.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.SweepPenaltyShares: %w: no surplus", domain.ErrPolicyViolation)
	}
	if err := f.pool.MoveShares(f.account, f.account, to, surplus); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.SweepPenaltyShares: %w", err)
	}
	return surplus, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Read surface
// ──────────────────────────────────────────────────────────────────────────────

// GetPosition returns a copy of the position.
func (f *Facility) GetPosition(positionID uint64) (domain.LockPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.positions[positionID]
	if !ok {
		return domain.LockPosition{}, fmt.Errorf("lockup.GetPosition: position %d: %w", positionID, domain.ErrNotFound)
	}
	return *pos, nil
}

// PendingReward returns a position's unsettled accrual.
func (f *Facility) PendingReward(positionID uint64) (sdkmath.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.positions[positionID]
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("lockup.PendingReward: position %d: %w", positionID, domain.ErrNotFound)
	}
	if !pos.Active {
		return sdkmath.ZeroInt(), nil
	}
	return f.accrued(pos), nil
}

// PendingRewards returns everything an owner could claim right now: settled
// pending plus unsettled accruals over all their active positions.
func (f *Facility) PendingRewards(owner uuid.UUID) sdkmath.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := sdkmath.ZeroInt()
	if p, ok := f.pendingPerOwner[owner]; ok {
		total = total.Add(p)
	}
	for _, pos := range f.positions {
		if pos.Active && pos.Owner == owner {
			total = total.Add(f.accrued(pos))
		}
	}
	return total
}

// TotalLockedShares returns the sum of active positions' shares.
func (f *Facility) TotalLockedShares() sdkmath.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalLockedShares
}

// TotalWeightedShares returns the accumulator's denominator.
func (f *Facility) TotalWeightedShares() sdkmath.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalWeightedShares
}

// AccRewardPerWeightedShare exposes the accumulator (RewardScale fixed
// point).  Monotone non-decreasing.
func (f *Facility) AccRewardPerWeightedShare() sdkmath.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accRewardPerWeightedShare
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal helpers — callers hold f.mu
// ──────────────────────────────────────────────────────────────────────────────

func (f *Facility) activePosition(id uint64) (*domain.LockPosition, error) {
	pos, ok := f.positions[id]
	if !ok {
		return nil, fmt.Errorf("position %d: %w", id, domain.ErrNotFound)
	}
	if !pos.Active {
		return nil, fmt.Errorf("position %d: %w", id, domain.ErrAlreadyResolved)
	}
	return pos, nil
}

// accrued is the position's reward delta since its last settle.
func (f *Facility) accrued(pos *domain.LockPosition) sdkmath.Int {
	scaled := pos.WeightedShares().Mul(f.accRewardPerWeightedShare).Sub(pos.RewardDebt)
	return scaled.Quo(RewardScale)
}

// settle moves the position's accrued delta into the owner's pending balance
// and advances the debt to the current accumulator.
func (f *Facility) settle(pos *domain.LockPosition) {
	delta := f.accrued(pos)
	pos.RewardDebt = pos.WeightedShares().Mul(f.accRewardPerWeightedShare)
	if delta.IsPositive() {
		cur, ok := f.pendingPerOwner[pos.Owner]
		if !ok {
			cur = sdkmath.ZeroInt()
		}
		f.pendingPerOwner[pos.Owner] = cur.Add(delta)
		f.sink.Emit(domain.RewardsSettled{PositionID: pos.ID, Delta: delta})
	}
}

func (f *Facility) closePosition(pos *domain.LockPosition) {
	pos.Active = false
	f.totalLockedShares = f.totalLockedShares.Sub(pos.Shares)
	f.totalWeightedShares = f.totalWeightedShares.Sub(pos.WeightedShares())
}
