package engine_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/engine"
	"github.com/parlaycity/core/internal/lockup"
	"github.com/parlaycity/core/internal/oracle"
	"github.com/parlaycity/core/internal/pool"
	"github.com/parlaycity/core/internal/registry"
	"github.com/parlaycity/core/internal/token"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fixture wires a full in-memory stack: ledger, pool, lock facility, safety
// buffer, registry, both oracles, and the engine, all on one fake clock.
type fixture struct {
	ledger   *token.Ledger
	pool     *pool.Pool
	facility *lockup.Facility
	registry *registry.Registry
	admin    *oracle.AdminOracle
	slow     *oracle.OptimisticOracle
	engine   *engine.Engine

	operator uuid.UUID
	safety   uuid.UUID
	lp       uuid.UUID
	buyer    uuid.UUID
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:   token.NewLedger(),
		operator: uuid.New(),
		safety:   uuid.New(),
		lp:       uuid.New(),
		buyer:    uuid.New(),
		now:      t0,
	}
	clock := func() time.Time { return f.now }

	var err error
	f.pool, err = pool.New(f.ledger, f.operator, pool.DefaultParams(), nil)
	require.NoError(t, err)
	f.facility, err = lockup.New(f.ledger, f.operator, lockup.DefaultParams(), nil)
	require.NoError(t, err)
	f.facility.SetPool(f.pool)
	f.facility.SetClock(clock)

	f.registry = registry.New(f.operator)
	f.registry.SetClock(clock)

	f.admin = oracle.NewAdminOracle(f.operator, nil)
	f.slow, err = oracle.NewOptimisticOracle(f.ledger, f.operator, sdkmath.NewInt(1_000_000), time.Hour, nil)
	require.NoError(t, err)
	f.slow.SetClock(clock)
	router := oracle.NewRouter(f.admin, f.slow)

	params := engine.DefaultParams()
	params.BootstrapEndsAt = t0.Add(24 * time.Hour) // default fixture buys settle Fast
	f.engine, err = engine.New(f.ledger, f.pool, f.registry, router, f.operator, params, nil)
	require.NoError(t, err)
	f.engine.SetClock(clock)

	require.NoError(t, f.pool.SetEngine(f.operator, f.engine.Account()))
	require.NoError(t, f.pool.SetLockFacility(f.operator, f.facility))
	require.NoError(t, f.pool.SetSafetyBuffer(f.operator, f.safety))
	return f
}

// seed funds the LP and deposits into the pool.
func (f *fixture) seed(t *testing.T, assets int64) {
	t.Helper()
	require.NoError(t, f.ledger.Mint(f.lp, sdkmath.NewInt(assets)))
	_, err := f.pool.Deposit(f.lp, f.lp, sdkmath.NewInt(assets))
	require.NoError(t, err)
}

// fund mints stable units for the buyer.
func (f *fixture) fund(t *testing.T, amount int64) {
	t.Helper()
	require.NoError(t, f.ledger.Mint(f.buyer, sdkmath.NewInt(amount)))
}

// leg creates an active leg with the given probability, cutoff one hour out.
func (f *fixture) leg(t *testing.T, probPPM int64) uint64 {
	t.Helper()
	id, err := f.registry.CreateLeg(f.operator, domain.LegMeta{
		Question:            "leg question",
		SourceRef:           "feed:test",
		CutoffTime:          f.now.Add(time.Hour),
		EarliestResolveTime: f.now.Add(time.Hour),
		ProbabilityPPM:      probPPM,
		OracleRef:           "admin",
	})
	require.NoError(t, err)
	return id
}

// resolve records a final result on the fast path.
func (f *fixture) resolve(t *testing.T, legID uint64, result domain.LegResult) {
	t.Helper()
	require.NoError(t, f.admin.Resolve(f.operator, legID, result, "digest"))
}

func yes(n int) []domain.Side {
	sides := make([]domain.Side, n)
	for i := range sides {
		sides[i] = domain.SideYes
	}
	return sides
}

// ──────────────────────────────────────────────────────────────────────────────
// Scenarios
// ──────────────────────────────────────────────────────────────────────────────

// TestClassicWinAndClaim is the two-leg happy path: quote, reservation, fee
// split, settlement, claim, and conservation along the way.
func TestClassicWinAndClaim(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 50_000_000)

	legA := f.leg(t, 500_000)
	legB := f.leg(t, 250_000)

	supplyBefore := f.ledger.TotalSupply()
	ticket, err := f.engine.BuyTicket(f.buyer, []uint64{legA, legB}, yes(2), sdkmath.NewInt(50_000_000))
	require.NoError(t, err)

	// Quote: edge 200 BPS, fee 1e6, net multiplier 7.84x, payout 392e6.
	require.EqualValues(t, 200, ticket.EdgeBps)
	require.True(t, ticket.FeePaid.Equal(sdkmath.NewInt(1_000_000)))
	require.True(t, ticket.EffectiveStake.Equal(sdkmath.NewInt(49_000_000)))
	require.True(t, ticket.QuotedMultPPM.Equal(sdkmath.NewInt(7_840_000)))
	require.True(t, ticket.PotentialPayout.Equal(sdkmath.NewInt(392_000_000)))
	require.Equal(t, domain.TicketActive, ticket.Status)
	require.Equal(t, domain.SettleFast, ticket.SettlementMode)

	// Reservation and fee routing applied.
	require.True(t, f.pool.TotalReserved().Equal(sdkmath.NewInt(392_000_000)))
	require.True(t, f.ledger.BalanceOf(f.facility.Account()).Equal(sdkmath.NewInt(900_000)))
	require.True(t, f.ledger.BalanceOf(f.safety).Equal(sdkmath.NewInt(50_000)))

	// The engine custodies nothing, and no value appeared or vanished.
	require.True(t, f.ledger.BalanceOf(f.engine.Account()).IsZero())
	require.True(t, f.ledger.TotalSupply().Equal(supplyBefore))

	// Settlement requires final outcomes.
	err = f.engine.SettleTicket(ticket.ID)
	require.ErrorIs(t, err, domain.ErrNotReady)

	f.resolve(t, legA, domain.ResultYes)
	f.resolve(t, legB, domain.ResultYes)
	require.NoError(t, f.engine.SettleTicket(ticket.ID))

	got, err := f.engine.GetTicket(ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketWon, got.Status)

	// Double settle is rejected.
	err = f.engine.SettleTicket(ticket.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyResolved)

	// Only the owner claims.
	_, err = f.engine.ClaimPayout(uuid.New(), ticket.ID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	paid, err := f.engine.ClaimPayout(f.buyer, ticket.ID)
	require.NoError(t, err)
	require.True(t, paid.Equal(sdkmath.NewInt(392_000_000)))
	require.True(t, f.ledger.BalanceOf(f.buyer).Equal(sdkmath.NewInt(392_000_000)))
	require.True(t, f.pool.TotalReserved().IsZero())

	// And only once.
	_, err = f.engine.ClaimPayout(f.buyer, ticket.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

// TestClassicLoss is the three-leg loss: the reservation returns to its
// pre-buy level and the bettor gets nothing back.
func TestClassicLoss(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 10_000_000)

	legs := []uint64{f.leg(t, 500_000), f.leg(t, 500_000), f.leg(t, 500_000)}
	ticket, err := f.engine.BuyTicket(f.buyer, legs, yes(3), sdkmath.NewInt(10_000_000))
	require.NoError(t, err)
	// edge 250 BPS, fee 250_000, net 7.8x, payout 78e6.
	require.True(t, ticket.PotentialPayout.Equal(sdkmath.NewInt(78_000_000)))

	f.resolve(t, legs[0], domain.ResultYes)
	f.resolve(t, legs[1], domain.ResultNo) // middle leg lost
	f.resolve(t, legs[2], domain.ResultYes)
	require.NoError(t, f.engine.SettleTicket(ticket.ID))

	got, _ := f.engine.GetTicket(ticket.ID)
	require.Equal(t, domain.TicketLost, got.Status)
	require.True(t, f.pool.TotalReserved().IsZero())
	require.True(t, f.ledger.BalanceOf(f.buyer).IsZero())

	// A lost ticket has no claim path.
	_, err = f.engine.ClaimPayout(f.buyer, ticket.ID)
	require.ErrorIs(t, err, domain.ErrPolicyViolation)
}

// TestPartialVoid reprices a three-leg parlay down to its two surviving legs
// before settling Won.
func TestPartialVoid(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 10_000_000)

	legA := f.leg(t, 500_000)
	legB := f.leg(t, 250_000)
	legC := f.leg(t, 500_000)
	ticket, err := f.engine.BuyTicket(f.buyer, []uint64{legA, legB, legC}, yes(3), sdkmath.NewInt(10_000_000))
	require.NoError(t, err)
	// Full quote: fair 16x, edge 250 → net 15.6x, payout 156e6.
	require.True(t, ticket.PotentialPayout.Equal(sdkmath.NewInt(156_000_000)))

	f.resolve(t, legA, domain.ResultYes)
	f.resolve(t, legB, domain.ResultYes)
	f.resolve(t, legC, domain.ResultVoid)
	require.NoError(t, f.engine.SettleTicket(ticket.ID))

	got, _ := f.engine.GetTicket(ticket.ID)
	require.Equal(t, domain.TicketWon, got.Status)
	// Survivors {500k, 250k}: fair 8x, same frozen 250 BPS edge → 7.8x,
	// payout 78e6; the reservation shrank with it.
	require.True(t, got.PotentialPayout.Equal(sdkmath.NewInt(78_000_000)))
	require.True(t, f.pool.TotalReserved().Equal(sdkmath.NewInt(78_000_000)))

	paid, err := f.engine.ClaimPayout(f.buyer, ticket.ID)
	require.NoError(t, err)
	require.True(t, paid.Equal(sdkmath.NewInt(78_000_000)))
	require.True(t, f.pool.TotalReserved().IsZero())
}

// TestFullVoid refunds the gross stake when fewer than two legs survive.
func TestFullVoid(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 10_000_000)

	legs := []uint64{f.leg(t, 500_000), f.leg(t, 250_000), f.leg(t, 500_000)}
	ticket, err := f.engine.BuyTicket(f.buyer, legs, yes(3), sdkmath.NewInt(10_000_000))
	require.NoError(t, err)

	f.resolve(t, legs[0], domain.ResultVoid)
	f.resolve(t, legs[1], domain.ResultYes)
	f.resolve(t, legs[2], domain.ResultVoid)
	require.NoError(t, f.engine.SettleTicket(ticket.ID))

	got, _ := f.engine.GetTicket(ticket.ID)
	require.Equal(t, domain.TicketVoided, got.Status)
	require.True(t, f.pool.TotalReserved().IsZero())

	// The refund is the gross stake, fee included.
	paid, err := f.engine.ClaimPayout(f.buyer, ticket.ID)
	require.NoError(t, err)
	require.True(t, paid.Equal(sdkmath.NewInt(10_000_000)))
	require.True(t, f.ledger.BalanceOf(f.buyer).Equal(sdkmath.NewInt(10_000_000)))
}

// TestCashoutHalfway is the S-curve cashout: one leg won, one unresolved,
// 150 BPS penalty, slippage guard, full reservation release.
func TestCashoutHalfway(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 10_000_000)

	legA := f.leg(t, 500_000)
	legB := f.leg(t, 250_000)
	ticket, err := f.engine.BuyTicketWithMode(f.buyer, []uint64{legA, legB}, yes(2), sdkmath.NewInt(10_000_000), domain.PayoutEarlyCash)
	require.NoError(t, err)
	require.True(t, ticket.PotentialPayout.Equal(sdkmath.NewInt(78_400_000)))

	// No won legs yet: nothing to value.
	_, err = f.engine.CashoutEarly(f.buyer, ticket.ID, sdkmath.ZeroInt())
	require.ErrorIs(t, err, domain.ErrPolicyViolation)

	f.resolve(t, legA, domain.ResultYes)

	// fair = 9.8e6·2 = 19.6e6, penalty = 300·1/2 = 150 BPS,
	// cashout = 19.6e6·9850/10000 = 19_306_000.
	want := sdkmath.NewInt(19_306_000)

	// minOut one above the value → Slippage, state untouched.
	_, err = f.engine.CashoutEarly(f.buyer, ticket.ID, want.Add(sdkmath.OneInt()))
	require.ErrorIs(t, err, domain.ErrSlippage)
	got, _ := f.engine.GetTicket(ticket.ID)
	require.Equal(t, domain.TicketActive, got.Status)

	// minOut equal to the value → success.
	value, err := f.engine.CashoutEarly(f.buyer, ticket.ID, want)
	require.NoError(t, err)
	require.True(t, value.Equal(want))

	got, _ = f.engine.GetTicket(ticket.ID)
	require.Equal(t, domain.TicketClaimed, got.Status)
	require.True(t, f.ledger.BalanceOf(f.buyer).Equal(want))
	require.True(t, f.pool.TotalReserved().IsZero())

	// A claimed ticket cannot settle or cash out again.
	require.ErrorIs(t, f.engine.SettleTicket(ticket.ID), domain.ErrAlreadyResolved)
	_, err = f.engine.CashoutEarly(f.buyer, ticket.ID, sdkmath.ZeroInt())
	require.ErrorIs(t, err, domain.ErrPolicyViolation)
}

func TestCashoutAbortsOnLostLeg(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 10_000_000)

	legA := f.leg(t, 500_000)
	legB := f.leg(t, 250_000)
	legC := f.leg(t, 500_000)
	ticket, err := f.engine.BuyTicketWithMode(f.buyer, []uint64{legA, legB, legC}, yes(3), sdkmath.NewInt(10_000_000), domain.PayoutEarlyCash)
	require.NoError(t, err)

	f.resolve(t, legA, domain.ResultYes)
	f.resolve(t, legB, domain.ResultNo)

	_, err = f.engine.CashoutEarly(f.buyer, ticket.ID, sdkmath.ZeroInt())
	require.ErrorIs(t, err, domain.ErrPolicyViolation)

	// The ticket settles Lost once the last leg lands.
	f.resolve(t, legC, domain.ResultYes)
	require.NoError(t, f.engine.SettleTicket(ticket.ID))
	got, _ := f.engine.GetTicket(ticket.ID)
	require.Equal(t, domain.TicketLost, got.Status)
}

// TestProgressiveClaims walks a three-leg progressive ticket: claim after the
// first win, claim the delta after the second, settle Won, claim the rest.
func TestProgressiveClaims(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 10_000_000)

	legA := f.leg(t, 500_000)
	legB := f.leg(t, 500_000)
	legC := f.leg(t, 500_000)
	ticket, err := f.engine.BuyTicketWithMode(f.buyer, []uint64{legA, legB, legC}, yes(3), sdkmath.NewInt(10_000_000), domain.PayoutProgressive)
	require.NoError(t, err)
	// edge 250, effective 9.75e6, potential 78e6.
	require.True(t, ticket.EffectiveStake.Equal(sdkmath.NewInt(9_750_000)))
	require.True(t, ticket.PotentialPayout.Equal(sdkmath.NewInt(78_000_000)))

	// Nothing won yet.
	_, err = f.engine.ClaimProgressive(f.buyer, ticket.ID)
	require.ErrorIs(t, err, domain.ErrPolicyViolation)

	// First win: partial = 9.75e6·2 = 19.5e6.
	f.resolve(t, legA, domain.ResultYes)
	claimed, err := f.engine.ClaimProgressive(f.buyer, ticket.ID)
	require.NoError(t, err)
	require.True(t, claimed.Equal(sdkmath.NewInt(19_500_000)))

	// Reservation still covers the full remaining ceiling.
	require.True(t, f.pool.TotalReserved().Equal(sdkmath.NewInt(78_000_000-19_500_000)))

	// Claiming again with no new wins yields nothing.
	_, err = f.engine.ClaimProgressive(f.buyer, ticket.ID)
	require.ErrorIs(t, err, domain.ErrPolicyViolation)

	// Second win: partial 39e6, delta 19.5e6.
	f.resolve(t, legB, domain.ResultYes)
	claimed, err = f.engine.ClaimProgressive(f.buyer, ticket.ID)
	require.NoError(t, err)
	require.True(t, claimed.Equal(sdkmath.NewInt(19_500_000)))

	// Third win, settle, and the final claim tops up to the potential.
	f.resolve(t, legC, domain.ResultYes)
	require.NoError(t, f.engine.SettleTicket(ticket.ID))
	paid, err := f.engine.ClaimPayout(f.buyer, ticket.ID)
	require.NoError(t, err)
	require.True(t, paid.Equal(sdkmath.NewInt(78_000_000-39_000_000)))
	require.True(t, f.ledger.BalanceOf(f.buyer).Equal(sdkmath.NewInt(78_000_000)))
	require.True(t, f.pool.TotalReserved().IsZero())

	got, _ := f.engine.GetTicket(ticket.ID)
	require.True(t, got.ClaimedAmount.Equal(got.PotentialPayout))
}

// TestProgressiveThenLoss keeps prior claims with the bettor and releases the
// rest of the reservation.
func TestProgressiveThenLoss(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 10_000_000)

	legA := f.leg(t, 500_000)
	legB := f.leg(t, 500_000)
	ticket, err := f.engine.BuyTicketWithMode(f.buyer, []uint64{legA, legB}, yes(2), sdkmath.NewInt(10_000_000), domain.PayoutProgressive)
	require.NoError(t, err)

	f.resolve(t, legA, domain.ResultYes)
	claimed, err := f.engine.ClaimProgressive(f.buyer, ticket.ID)
	require.NoError(t, err)
	require.True(t, claimed.IsPositive())

	f.resolve(t, legB, domain.ResultNo)
	require.NoError(t, f.engine.SettleTicket(ticket.ID))

	got, _ := f.engine.GetTicket(ticket.ID)
	require.Equal(t, domain.TicketLost, got.Status)
	// The bettor keeps what was already claimed; the pool holds no stale
	// reservation.
	require.True(t, f.ledger.BalanceOf(f.buyer).Equal(claimed))
	require.True(t, f.pool.TotalReserved().IsZero())
}

// ──────────────────────────────────────────────────────────────────────────────
// Invariants & policies
// ──────────────────────────────────────────────────────────────────────────────

func TestBuyValidation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 100_000_000)

	legA := f.leg(t, 500_000)
	legB := f.leg(t, 250_000)
	stake := sdkmath.NewInt(10_000_000)

	// Too few / too many legs.
	_, err := f.engine.BuyTicket(f.buyer, []uint64{legA}, yes(1), stake)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	six := []uint64{legA, legB, f.leg(t, 500_000), f.leg(t, 500_000), f.leg(t, 500_000), f.leg(t, 500_000)}
	_, err = f.engine.BuyTicket(f.buyer, six, yes(6), stake)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	// Stake below minimum.
	_, err = f.engine.BuyTicket(f.buyer, []uint64{legA, legB}, yes(2), sdkmath.NewInt(999_999))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	// Unknown payout mode.
	_, err = f.engine.BuyTicketWithMode(f.buyer, []uint64{legA, legB}, yes(2), stake, "lump_sum")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	// Underfunded buyer: nothing committed.
	poor := uuid.New()
	_, err = f.engine.BuyTicket(poor, []uint64{legA, legB}, yes(2), stake)
	require.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
	require.True(t, f.pool.TotalReserved().IsZero())
}

func TestBuyRespectsPoolCaps(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 1_000_000_000) // small pool: max payout 50e6
	f.fund(t, 100_000_000)

	legA := f.leg(t, 500_000)
	legB := f.leg(t, 250_000)

	// 10e6 stake quotes a 78.4e6 payout > 5% cap.
	_, err := f.engine.BuyTicketWithMode(f.buyer, []uint64{legA, legB}, yes(2), sdkmath.NewInt(10_000_000), domain.PayoutClassic)
	require.ErrorIs(t, err, domain.ErrPolicyViolation)
	require.True(t, f.pool.TotalReserved().IsZero())
	require.True(t, f.ledger.BalanceOf(f.buyer).Equal(sdkmath.NewInt(100_000_000)))
}

// TestConservation checks that a buy moves value around but never creates or
// destroys it: buyer + pool + facility + safety is constant.
func TestConservation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 73_000_001) // odd amount to exercise fee dust

	legs := []uint64{f.leg(t, 333_333), f.leg(t, 666_667), f.leg(t, 123_457)}

	sum := func() sdkmath.Int {
		return f.ledger.BalanceOf(f.buyer).
			Add(f.ledger.BalanceOf(f.pool.Account())).
			Add(f.ledger.BalanceOf(f.facility.Account())).
			Add(f.ledger.BalanceOf(f.safety))
	}

	before := sum()
	ticket, err := f.engine.BuyTicket(f.buyer, legs, yes(3), sdkmath.NewInt(73_000_001))
	require.NoError(t, err)
	require.True(t, sum().Equal(before), "buy is not conservative")

	// The outbound fee legs never exceed feePaid (split dust stays in the pool).
	require.True(t, f.ledger.BalanceOf(f.facility.Account()).
		Add(f.ledger.BalanceOf(f.safety)).
		LTE(ticket.FeePaid))

	// Engine custody is zero at rest, before and after settlement.
	require.True(t, f.ledger.BalanceOf(f.engine.Account()).IsZero())
	for _, leg := range legs {
		f.resolve(t, leg, domain.ResultYes)
	}
	require.NoError(t, f.engine.SettleTicket(ticket.ID))
	_, err = f.engine.ClaimPayout(f.buyer, ticket.ID)
	require.NoError(t, err)
	require.True(t, f.ledger.BalanceOf(f.engine.Account()).IsZero())
	require.True(t, sum().Equal(before), "settle+claim is not conservative")
}

// TestSettlementModeFrozenAtBuy pins the bootstrap boundary: buys before it
// settle Fast, buys after settle Optimistic, and a parameter change never
// touches an existing ticket.
func TestSettlementModeFrozenAtBuy(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 40_000_000)

	legA := f.leg(t, 500_000)
	legB := f.leg(t, 250_000)

	early, err := f.engine.BuyTicket(f.buyer, []uint64{legA, legB}, yes(2), sdkmath.NewInt(10_000_000))
	require.NoError(t, err)
	require.Equal(t, domain.SettleFast, early.SettlementMode)

	// Cross the bootstrap boundary.
	f.now = t0.Add(25 * time.Hour)
	legC := f.leg(t, 500_000)
	legD := f.leg(t, 250_000)
	late, err := f.engine.BuyTicket(f.buyer, []uint64{legC, legD}, yes(2), sdkmath.NewInt(10_000_000))
	require.NoError(t, err)
	require.Equal(t, domain.SettleOptimistic, late.SettlementMode)

	// Admin resolution does not satisfy the optimistic ticket.
	f.resolve(t, legC, domain.ResultYes)
	f.resolve(t, legD, domain.ResultYes)
	require.ErrorIs(t, f.engine.SettleTicket(late.ID), domain.ErrNotReady)

	// An optimistic finalization does.
	prop := uuid.New()
	require.NoError(t, f.ledger.Mint(prop, sdkmath.NewInt(10_000_000)))
	require.NoError(t, f.slow.Propose(prop, legC, domain.ResultYes, "d"))
	require.NoError(t, f.slow.Propose(prop, legD, domain.ResultYes, "d"))
	f.now = f.now.Add(2 * time.Hour)
	require.NoError(t, f.slow.Finalize(legC))
	require.NoError(t, f.slow.Finalize(legD))
	require.NoError(t, f.engine.SettleTicket(late.ID))

	// The early ticket still reads the fast path.
	f.resolve(t, legA, domain.ResultYes)
	f.resolve(t, legB, domain.ResultYes)
	require.NoError(t, f.engine.SettleTicket(early.ID))

	// Operator retuning does not reprice live tickets.
	params := f.engine.Params()
	params.BaseFeeBps = 900
	params.BaseCashoutPenaltyBps = 9_000
	require.NoError(t, f.engine.SetParams(f.operator, params))
	got, _ := f.engine.GetTicket(early.ID)
	require.EqualValues(t, 200, got.EdgeBps)
	require.EqualValues(t, 300, got.BasePenaltyBps)
}

// TestCashoutPaysValueAndClosesTicket cashes out an EarlyCashout ticket with
// no prior claims: the buyer receives exactly the cashout value, the ticket
// records it as claimed, and the whole reservation is released.
func TestCashoutPaysValueAndClosesTicket(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 10_000_000)

	legA := f.leg(t, 500_000)
	legB := f.leg(t, 250_000)
	ticket, err := f.engine.BuyTicketWithMode(f.buyer, []uint64{legA, legB}, yes(2), sdkmath.NewInt(10_000_000), domain.PayoutEarlyCash)
	require.NoError(t, err)

	f.resolve(t, legA, domain.ResultYes)

	// Cashing out with minOut 0 pays the full computed value.
	value, err := f.engine.CashoutEarly(f.buyer, ticket.ID, sdkmath.ZeroInt())
	require.NoError(t, err)

	got, _ := f.engine.GetTicket(ticket.ID)
	require.True(t, got.ClaimedAmount.Equal(value))
	require.True(t, f.pool.TotalReserved().IsZero())
	// No negative transfer ever happened: the buyer holds exactly the value.
	require.True(t, f.ledger.BalanceOf(f.buyer).Equal(value))
}

func TestTicketCountAndSweepSupport(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 500_000_000_000)
	f.fund(t, 40_000_000)

	require.EqualValues(t, 0, f.engine.TicketCount())
	legA := f.leg(t, 500_000)
	legB := f.leg(t, 250_000)

	t1, err := f.engine.BuyTicket(f.buyer, []uint64{legA, legB}, yes(2), sdkmath.NewInt(10_000_000))
	require.NoError(t, err)
	t2, err := f.engine.BuyTicket(f.buyer, []uint64{legA, legB}, yes(2), sdkmath.NewInt(10_000_000))
	require.NoError(t, err)
	require.EqualValues(t, 2, f.engine.TicketCount())
	require.Equal(t, []uint64{t1.ID, t2.ID}, f.engine.ActiveTicketIDs())

	require.False(t, f.engine.CanSettle(t1.ID))
	f.resolve(t, legA, domain.ResultYes)
	require.False(t, f.engine.CanSettle(t1.ID))
	f.resolve(t, legB, domain.ResultYes)
	require.True(t, f.engine.CanSettle(t1.ID))

	require.NoError(t, f.engine.SettleTicket(t1.ID))
	require.Equal(t, []uint64{t2.ID}, f.engine.ActiveTicketIDs())
}
