// Package pool implements share-based custody of the stable asset: LP
// deposits and withdrawals, reserved-payout accounting for open tickets, fee
// routing, and the optional yield buffer.  The pool is the only component
// that holds bettor-facing liquidity; the engine moves value exclusively
// through the methods below.
package pool

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/parlaymath"
	"github.com/parlaycity/core/internal/token"
)

// FeeNotifier is the slice of the lock facility the pool needs: an escrow
// account to receive the lockers' fee share, and the accumulator
// notification.  Implemented by lockup.Facility.
type FeeNotifier interface {
	Account() uuid.UUID
	NotifyFees(caller uuid.UUID, amount sdkmath.Int) error
}

// YieldAdapter optionally holds idle pool assets.  Implementations move value
// between the pool's ledger account and their own on Deposit/Withdraw and
// report their current holdings via Balance.
type YieldAdapter interface {
	Deposit(amount sdkmath.Int) error
	Withdraw(amount sdkmath.Int) error
	Balance() sdkmath.Int
}

// Params are the pool's cap and buffer settings (BPS scale).
type Params struct {
	MaxPayoutFractionBps int64 // per-ticket payout cap vs totalAssets
	UtilizationCapBps    int64 // cap on totalReserved / totalAssets
	YieldBufferBps       int64 // minimum local balance fraction
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		MaxPayoutFractionBps: 500,
		UtilizationCapBps:    8_000,
		YieldBufferBps:       2_500,
	}
}

// Validate checks every parameter is a legal BPS value.
func (p Params) Validate() error {
	for _, v := range []int64{p.MaxPayoutFractionBps, p.UtilizationCapBps, p.YieldBufferBps} {
		if v < 0 || v > parlaymath.BPS {
			return fmt.Errorf("pool: %w: param %d out of [0, %d] BPS", domain.ErrInvalidArgument, v, parlaymath.BPS)
		}
	}
	return nil
}

// Pool is the singleton liquidity pool.
type Pool struct {
	mu sync.Mutex

	ledger  *token.Ledger
	account uuid.UUID // pool's stable-asset custody account

	shares      map[uuid.UUID]sdkmath.Int
	totalShares sdkmath.Int

	totalReserved sdkmath.Int

	operator uuid.UUID
	engine   uuid.UUID // only caller admitted to reserve/release/pay/route
	lock     FeeNotifier
	safety   uuid.UUID
	adapter  YieldAdapter

	params Params
	sink   domain.EventSink
}

// New creates a pool custodying assets in the given ledger.
func New(ledger *token.Ledger, operator uuid.UUID, params Params, sink domain.EventSink) (*Pool, error) {
	if ledger == nil {
		return nil, fmt.Errorf("pool.New: %w: nil ledger", domain.ErrNotConfigured)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Pool{
		ledger:        ledger,
		account:       uuid.New(),
		shares:        make(map[uuid.UUID]sdkmath.Int),
		totalShares:   sdkmath.ZeroInt(),
		totalReserved: sdkmath.ZeroInt(),
		operator:      operator,
		params:        params,
		sink:          sink,
	}, nil
}

// Account returns the pool's custody account id.
func (p *Pool) Account() uuid.UUID { return p.account }

// ──────────────────────────────────────────────────────────────────────────────
// Operator wiring
// ──────────────────────────────────────────────────────────────────────────────

// SetEngine admits the engine account to the reserve/release/pay/route
// surface.  Operator only; the target must be set.
func (p *Pool) SetEngine(caller, engine uuid.UUID) error {
	if caller != p.operator {
		return fmt.Errorf("pool.SetEngine: %w: operator only", domain.ErrUnauthorized)
	}
	if engine == uuid.Nil {
		return fmt.Errorf("pool.SetEngine: %w: nil engine", domain.ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine = engine
	return nil
}

// SetLockFacility wires the lockers' fee destination.  Operator only.
func (p *Pool) SetLockFacility(caller uuid.UUID, lock FeeNotifier) error {
	if caller != p.operator {
		return fmt.Errorf("pool.SetLockFacility: %w: operator only", domain.ErrUnauthorized)
	}
	if lock == nil {
		return fmt.Errorf("pool.SetLockFacility: %w: nil facility", domain.ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lock = lock
	return nil
}

// SetSafetyBuffer wires the safety account.  Operator only.
func (p *Pool) SetSafetyBuffer(caller, safety uuid.UUID) error {
	if caller != p.operator {
		return fmt.Errorf("pool.SetSafetyBuffer: %w: operator only", domain.ErrUnauthorized)
	}
	if safety == uuid.Nil {
		return fmt.Errorf("pool.SetSafetyBuffer: %w: nil safety account", domain.ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.safety = safety
	return nil
}

// SetYieldAdapter wires the optional idle-asset adapter.  Operator only.
func (p *Pool) SetYieldAdapter(caller uuid.UUID, adapter YieldAdapter) error {
	if caller != p.operator {
		return fmt.Errorf("pool.SetYieldAdapter: %w: operator only", domain.ErrUnauthorized)
	}
	if adapter == nil {
		return fmt.Errorf("pool.SetYieldAdapter: %w: nil adapter", domain.ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adapter = adapter
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Read surface
// ──────────────────────────────────────────────────────────────────────────────

// TotalAssets is the pool's full asset base: local custody plus whatever the
// yield adapter reports.
func (p *Pool) TotalAssets() sdkmath.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalAssets()
}

// TotalReserved is the sum of payouts earmarked for open tickets.
func (p *Pool) TotalReserved() sdkmath.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalReserved
}

// FreeLiquidity = totalAssets − totalReserved.
func (p *Pool) FreeLiquidity() sdkmath.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalAssets().Sub(p.totalReserved)
}

// MaxPayout is the per-ticket reservation ceiling at current assets.
func (p *Pool) MaxPayout() sdkmath.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxPayout()
}

// SharesOf returns the LP's share balance.
func (p *Pool) SharesOf(owner uuid.UUID) sdkmath.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shareBalance(owner)
}

// TotalShares returns the outstanding share supply.
func (p *Pool) TotalShares() sdkmath.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalShares
}

// ──────────────────────────────────────────────────────────────────────────────
// LP surface
// ──────────────────────────────────────────────────────────────────────────────

// Deposit pulls assets from the caller and mints shares to the beneficiary at
// the pre-deposit share price.  The first depositor mints 1:1.
func (p *Pool) Deposit(caller, beneficiary uuid.UUID, assets sdkmath.Int) (sdkmath.Int, error) {
	if beneficiary == uuid.Nil {
		return sdkmath.ZeroInt(), fmt.Errorf("pool.Deposit: %w: nil beneficiary", domain.ErrInvalidArgument)
	}
	if !assets.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("pool.Deposit: %w: assets must be positive", domain.ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	assetsBefore := p.totalAssets()
	minted := assets
	if p.totalShares.IsPositive() {
		if !assetsBefore.IsPositive() {
			return sdkmath.ZeroInt(), fmt.Errorf("pool.Deposit: %w: shares outstanding against zero assets", domain.ErrPolicyViolation)
		}
		minted = assets.Mul(p.totalShares).Quo(assetsBefore)
	}
	if !minted.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("pool.Deposit: %w: deposit too small to mint a share", domain.ErrInvalidArgument)
	}

	if err := p.ledger.Transfer(caller, p.account, assets, "pool deposit"); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("pool.Deposit: %w", err)
	}
	p.shares[beneficiary] = p.shareBalance(beneficiary).Add(minted)
	p.totalShares = p.totalShares.Add(minted)

	p.rebalanceToAdapter()
	p.sink.Emit(domain.Deposited{Owner: beneficiary, Shares: minted, Assets: assets})
	return minted, nil
}

// Withdraw burns the caller's shares and pays assets pro-rata to the
// beneficiary.  Rejected when the exit would leave reserved payouts
// uncollateralized.
func (p *Pool) Withdraw(caller, beneficiary uuid.UUID, shares sdkmath.Int) (sdkmath.Int, error) {
	if beneficiary == uuid.Nil {
		return sdkmath.ZeroInt(), fmt.Errorf("pool.Withdraw: %w: nil beneficiary", domain.ErrInvalidArgument)
	}
	if !shares.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("pool.Withdraw: %w: shares must be positive", domain.ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	bal := p.shareBalance(caller)
	if bal.LT(shares) {
		return sdkmath.ZeroInt(), fmt.Errorf("pool.Withdraw: %w: share balance %s < %s", domain.ErrInvalidArgument, bal, shares)
	}
	assets := shares.Mul(p.totalAssets()).Quo(p.totalShares)
	if p.totalAssets().Sub(assets).LT(p.totalReserved) {
		return sdkmath.ZeroInt(), fmt.Errorf("pool.Withdraw: %w: withdrawal would break reserved payouts", domain.ErrInsufficientLiquidity)
	}

	if err := p.pullLocal(assets); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("pool.Withdraw: %w", err)
	}
	if assets.IsPositive() {
		if err := p.ledger.Transfer(p.account, beneficiary, assets, "pool withdraw"); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("pool.Withdraw: %w", err)
		}
	}
	p.shares[caller] = bal.Sub(shares)
	p.totalShares = p.totalShares.Sub(shares)

	p.sink.Emit(domain.Withdrawn{Owner: caller, Shares: shares, Assets: assets})
	return assets, nil
}

// MoveShares transfers shares between accounts.  Callers may move their own
// shares; the lock facility may also move shares it escrows.
func (p *Pool) MoveShares(caller, from, to uuid.UUID, shares sdkmath.Int) error {
	if !shares.IsPositive() {
		return fmt.Errorf("pool.MoveShares: %w: shares must be positive", domain.ErrInvalidArgument)
	}
	if to == uuid.Nil {
		return fmt.Errorf("pool.MoveShares: %w: nil destination", domain.ErrInvalidArgument)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if caller != from && (p.lock == nil || caller != p.lock.Account()) {
		return fmt.Errorf("pool.MoveShares: %w: caller may move only its own shares", domain.ErrUnauthorized)
	}
	bal := p.shareBalance(from)
	if bal.LT(shares) {
		return fmt.Errorf("pool.MoveShares: %w: share balance %s < %s", domain.ErrInvalidArgument, bal, shares)
	}
	p.shares[from] = bal.Sub(shares)
	p.shares[to] = p.shareBalance(to).Add(shares)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Engine surface
// ──────────────────────────────────────────────────────────────────────────────

// CheckReserve reports whether a reservation of amount would pass the
// per-ticket cap and the utilization cap, without reserving.  The engine uses
// it to validate fully before moving any value.
func (p *Pool) CheckReserve(amount sdkmath.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkReserve(amount)
}

// ReservePayout earmarks amount for an open ticket.  Engine only.
func (p *Pool) ReservePayout(caller uuid.UUID, amount sdkmath.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.engineOnly(caller, "ReservePayout"); err != nil {
		return err
	}
	if err := p.checkReserve(amount); err != nil {
		return err
	}
	p.totalReserved = p.totalReserved.Add(amount)
	return nil
}

// ReleasePayout returns earmarked amount to free liquidity.  Engine only;
// used on loss, void, and cashout close.
func (p *Pool) ReleasePayout(caller uuid.UUID, amount sdkmath.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.engineOnly(caller, "ReleasePayout"); err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("pool.ReleasePayout: %w: negative amount", domain.ErrInvalidArgument)
	}
	if amount.GT(p.totalReserved) {
		return fmt.Errorf("pool.ReleasePayout: %w: release %s exceeds reserved %s", domain.ErrPolicyViolation, amount, p.totalReserved)
	}
	p.totalReserved = p.totalReserved.Sub(amount)
	return nil
}

// PayWinner transfers amount out of the pool to a bettor and releases the
// matching reservation.  Engine only.
func (p *Pool) PayWinner(caller, to uuid.UUID, amount sdkmath.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.engineOnly(caller, "PayWinner"); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("pool.PayWinner: %w: amount must be positive", domain.ErrInvalidArgument)
	}
	if amount.GT(p.totalReserved) {
		return fmt.Errorf("pool.PayWinner: %w: payout %s exceeds reserved %s", domain.ErrPolicyViolation, amount, p.totalReserved)
	}
	// Effects before interaction: reservation is gone even if the journal
	// observes the transfer afterwards.
	p.totalReserved = p.totalReserved.Sub(amount)
	if err := p.pullLocal(amount); err != nil {
		p.totalReserved = p.totalReserved.Add(amount)
		return fmt.Errorf("pool.PayWinner: %w", err)
	}
	if err := p.ledger.Transfer(p.account, to, amount, "ticket payout"); err != nil {
		p.totalReserved = p.totalReserved.Add(amount)
		return fmt.Errorf("pool.PayWinner: %w", err)
	}
	return nil
}

// Refund transfers amount out of free liquidity with no reservation
// interplay.  Engine only; used for void refunds, whose reservation was
// already released at settlement.
func (p *Pool) Refund(caller, to uuid.UUID, amount sdkmath.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.engineOnly(caller, "Refund"); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("pool.Refund: %w: amount must be positive", domain.ErrInvalidArgument)
	}
	if amount.GT(p.totalAssets().Sub(p.totalReserved)) {
		return fmt.Errorf("pool.Refund: %w: refund %s exceeds free liquidity", domain.ErrInsufficientLiquidity, amount)
	}
	if err := p.pullLocal(amount); err != nil {
		return fmt.Errorf("pool.Refund: %w", err)
	}
	if err := p.ledger.Transfer(p.account, to, amount, "ticket refund"); err != nil {
		return fmt.Errorf("pool.Refund: %w", err)
	}
	return nil
}

// RouteFees distributes a ticket's fee: lockers and safety shares leave the
// pool, the surplus share stays in as LP value.  Engine only; requires the
// lock facility and safety buffer to be wired and the outbound legs to fit in
// free liquidity.
func (p *Pool) RouteFees(caller uuid.UUID, toLockers, toSafety, toPoolSurplus sdkmath.Int) error {
	p.mu.Lock()
	if err := p.engineOnly(caller, "RouteFees"); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.lock == nil || p.safety == uuid.Nil {
		p.mu.Unlock()
		return fmt.Errorf("pool.RouteFees: %w: lock facility or safety buffer unset", domain.ErrNotConfigured)
	}
	if toLockers.IsNegative() || toSafety.IsNegative() || toPoolSurplus.IsNegative() {
		p.mu.Unlock()
		return fmt.Errorf("pool.RouteFees: %w: negative fee leg", domain.ErrInvalidArgument)
	}
	outbound := toLockers.Add(toSafety)
	if outbound.GT(p.totalAssets().Sub(p.totalReserved)) {
		p.mu.Unlock()
		return fmt.Errorf("pool.RouteFees: %w: outbound fees %s exceed free liquidity", domain.ErrInsufficientLiquidity, outbound)
	}
	if err := p.pullLocal(outbound); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("pool.RouteFees: %w", err)
	}
	if toLockers.IsPositive() {
		if err := p.ledger.Transfer(p.account, p.lock.Account(), toLockers, "fee to lockers"); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("pool.RouteFees: %w", err)
		}
	}
	if toSafety.IsPositive() {
		if err := p.ledger.Transfer(p.account, p.safety, toSafety, "fee to safety"); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("pool.RouteFees: %w", err)
		}
	}
	// toPoolSurplus stays in the pool's custody account by construction.
	lock := p.lock
	p.mu.Unlock()

	// Notify outside the pool's critical section: the facility takes its own
	// lock and may call back into share custody, so the lock order is always
	// facility before pool.
	if toLockers.IsPositive() {
		if err := lock.NotifyFees(p.account, toLockers); err != nil {
			return fmt.Errorf("pool.RouteFees: notify lockers: %w", err)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal helpers — callers hold p.mu
// ──────────────────────────────────────────────────────────────────────────────

func (p *Pool) engineOnly(caller uuid.UUID, op string) error {
	if p.engine == uuid.Nil {
		return fmt.Errorf("pool.%s: %w: engine unset", op, domain.ErrNotConfigured)
	}
	if caller != p.engine {
		return fmt.Errorf("pool.%s: %w: engine only", op, domain.ErrUnauthorized)
	}
	return nil
}

func (p *Pool) totalAssets() sdkmath.Int {
	total := p.ledger.BalanceOf(p.account)
	if p.adapter != nil {
		total = total.Add(p.adapter.Balance())
	}
	return total
}

func (p *Pool) maxPayout() sdkmath.Int {
	return p.totalAssets().Mul(sdkmath.NewInt(p.params.MaxPayoutFractionBps)).Quo(sdkmath.NewInt(parlaymath.BPS))
}

func (p *Pool) checkReserve(amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return fmt.Errorf("pool.ReservePayout: %w: amount must be positive", domain.ErrInvalidArgument)
	}
	if amount.GT(p.maxPayout()) {
		return fmt.Errorf("pool.ReservePayout: %w: payout %s exceeds per-ticket cap %s", domain.ErrPolicyViolation, amount, p.maxPayout())
	}
	utilCap := p.totalAssets().Mul(sdkmath.NewInt(p.params.UtilizationCapBps)).Quo(sdkmath.NewInt(parlaymath.BPS))
	if p.totalReserved.Add(amount).GT(utilCap) {
		return fmt.Errorf("pool.ReservePayout: %w: reservation would exceed utilization cap %s", domain.ErrPolicyViolation, utilCap)
	}
	return nil
}

func (p *Pool) shareBalance(owner uuid.UUID) sdkmath.Int {
	if s, ok := p.shares[owner]; ok {
		return s
	}
	return sdkmath.ZeroInt()
}

// pullLocal ensures the pool's local ledger balance covers amount, drawing
// down the yield adapter as needed.
func (p *Pool) pullLocal(amount sdkmath.Int) error {
	if p.adapter == nil || !amount.IsPositive() {
		return nil
	}
	local := p.ledger.BalanceOf(p.account)
	if local.GTE(amount) {
		return nil
	}
	shortfall := amount.Sub(local)
	if shortfall.GT(p.adapter.Balance()) {
		return fmt.Errorf("%w: adapter balance below shortfall %s", domain.ErrInsufficientLiquidity, shortfall)
	}
	return p.adapter.Withdraw(shortfall)
}

// rebalanceToAdapter pushes local balance above the yield buffer target into
// the adapter.  Best effort: a refusing adapter leaves assets local.
func (p *Pool) rebalanceToAdapter() {
	if p.adapter == nil {
		return
	}
	target := p.totalAssets().Mul(sdkmath.NewInt(p.params.YieldBufferBps)).Quo(sdkmath.NewInt(parlaymath.BPS))
	local := p.ledger.BalanceOf(p.account)
	if local.GT(target) {
		_ = p.adapter.Deposit(local.Sub(target))
	}
}
