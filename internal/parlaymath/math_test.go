package parlaymath_test

import (
	"testing"

	sdkmath "cosmossdk.io/math"

	"github.com/parlaycity/core/internal/parlaymath"
)

// referenceMultiplier is an independent rendition of the canonical iteration,
// written against big-integer primitives directly.  ComputeMultiplier must
// match it to the bit for every admissible input.
func referenceMultiplier(probs []int64) sdkmath.Int {
	m := sdkmath.NewInt(parlaymath.PPM)
	for _, p := range probs {
		m = m.Mul(sdkmath.NewInt(parlaymath.PPM)).Quo(sdkmath.NewInt(p))
	}
	return m
}

// TestComputeMultiplier validates the quoted multiplier for hand-checked
// parlays.
//
//	{500_000, 250_000}: 1e6 → 2e6 → 8e6  (2x then 4x)
func TestComputeMultiplier(t *testing.T) {
	tests := []struct {
		name  string
		probs []int64
		want  int64
		fails bool
	}{
		{name: "coin flip", probs: []int64{500_000}, want: 2_000_000},
		{name: "two legs", probs: []int64{500_000, 250_000}, want: 8_000_000},
		{name: "three even legs", probs: []int64{500_000, 500_000, 500_000}, want: 8_000_000},
		{name: "certain leg is identity", probs: []int64{1_000_000, 500_000}, want: 2_000_000},
		{name: "truncation", probs: []int64{300_000}, want: 3_333_333},
		{name: "empty", probs: nil, fails: true},
		{name: "zero prob", probs: []int64{0}, fails: true},
		{name: "negative prob", probs: []int64{-1}, fails: true},
		{name: "above one", probs: []int64{1_000_001}, fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parlaymath.ComputeMultiplier(tt.probs)
			if tt.fails {
				if err == nil {
					t.Fatalf("ComputeMultiplier(%v) = %s, want error", tt.probs, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ComputeMultiplier(%v): %v", tt.probs, err)
			}
			if !got.Equal(sdkmath.NewInt(tt.want)) {
				t.Errorf("ComputeMultiplier(%v) = %s, want %d", tt.probs, got, tt.want)
			}
		})
	}
}

// TestMultiplierOrderDefinesRounding pins the left-to-right truncation order:
// the same probability set in a different order may legitimately differ by
// rounding, so the canonical order is part of the contract.
func TestMultiplierOrderDefinesRounding(t *testing.T) {
	probs := []int64{300_000, 700_000}
	got, err := parlaymath.ComputeMultiplier(probs)
	if err != nil {
		t.Fatal(err)
	}
	// 1e6·1e6/300000 = 3_333_333 (trunc); ·1e6/700000 = 4_761_904 (trunc)
	if !got.Equal(sdkmath.NewInt(4_761_904)) {
		t.Errorf("multiplier = %s, want 4761904", got)
	}
}

func TestComputeEdge(t *testing.T) {
	tests := []struct {
		legs  int
		want  int64
		fails bool
	}{
		{legs: 2, want: 200},
		{legs: 3, want: 250},
		{legs: 5, want: 350},
		{legs: 0, fails: true},
		{legs: -1, fails: true},
	}
	for _, tt := range tests {
		got, err := parlaymath.ComputeEdge(tt.legs, 100, 50)
		if tt.fails {
			if err == nil {
				t.Errorf("ComputeEdge(%d) = %d, want error", tt.legs, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ComputeEdge(%d): %v", tt.legs, err)
		}
		if got != tt.want {
			t.Errorf("ComputeEdge(%d) = %d, want %d", tt.legs, got, tt.want)
		}
	}
}

// TestQuoteScenario replays the two-leg quote from the classic win flow:
//
//	probs  = {500_000, 250_000}, stake = 50·10^6, edge = 200 BPS
//	fee    = 1_000_000, fairMult = 8_000_000, netMult = 7_840_000
//	payout = 392·10^6
func TestQuoteScenario(t *testing.T) {
	stake := sdkmath.NewInt(50_000_000)

	edge, err := parlaymath.ComputeEdge(2, 100, 50)
	if err != nil {
		t.Fatal(err)
	}
	if edge != 200 {
		t.Fatalf("edge = %d, want 200", edge)
	}

	fee := stake.Mul(sdkmath.NewInt(edge)).Quo(sdkmath.NewInt(parlaymath.BPS))
	if !fee.Equal(sdkmath.NewInt(1_000_000)) {
		t.Fatalf("fee = %s, want 1000000", fee)
	}

	fair, err := parlaymath.ComputeMultiplier([]int64{500_000, 250_000})
	if err != nil {
		t.Fatal(err)
	}
	net, err := parlaymath.ApplyEdge(fair, edge)
	if err != nil {
		t.Fatal(err)
	}
	if !net.Equal(sdkmath.NewInt(7_840_000)) {
		t.Fatalf("netMult = %s, want 7840000", net)
	}

	payout, err := parlaymath.ComputePayout(stake, net)
	if err != nil {
		t.Fatal(err)
	}
	if !payout.Equal(sdkmath.NewInt(392_000_000)) {
		t.Errorf("payout = %s, want 392000000", payout)
	}
}

func TestProgressivePayout(t *testing.T) {
	effective := sdkmath.NewInt(9_800_000)
	potential := sdkmath.NewInt(78_400_000)

	// One won coin flip: partial = 9.8e6 · 2 = 19.6e6, all claimable.
	res, err := parlaymath.ComputeProgressivePayout(effective, []int64{500_000}, potential, sdkmath.ZeroInt())
	if err != nil {
		t.Fatal(err)
	}
	if !res.PartialPayout.Equal(sdkmath.NewInt(19_600_000)) {
		t.Errorf("partial = %s, want 19600000", res.PartialPayout)
	}
	if !res.Claimable.Equal(sdkmath.NewInt(19_600_000)) {
		t.Errorf("claimable = %s, want 19600000", res.Claimable)
	}

	// Same won set after a prior claim: only the delta remains.
	res, err = parlaymath.ComputeProgressivePayout(effective, []int64{500_000}, potential, sdkmath.NewInt(19_600_000))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Claimable.IsZero() {
		t.Errorf("claimable after full claim = %s, want 0", res.Claimable)
	}

	// Claimed more than the current partial (possible after a void
	// recomputation): claimable saturates at zero.
	res, err = parlaymath.ComputeProgressivePayout(effective, []int64{500_000}, potential, sdkmath.NewInt(25_000_000))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Claimable.IsZero() {
		t.Errorf("claimable = %s, want saturated 0", res.Claimable)
	}

	// Partial payout is capped at the potential payout.
	res, err = parlaymath.ComputeProgressivePayout(effective, []int64{500_000, 250_000, 500_000}, potential, sdkmath.ZeroInt())
	if err != nil {
		t.Fatal(err)
	}
	if !res.PartialPayout.Equal(potential) {
		t.Errorf("partial = %s, want capped at %s", res.PartialPayout, potential)
	}

	// No won legs is a caller error.
	if _, err = parlaymath.ComputeProgressivePayout(effective, nil, potential, sdkmath.ZeroInt()); err == nil {
		t.Error("expected error for empty won set")
	}
}

// TestProgressiveMonotonic checks that adding a won leg never decreases the
// partial payout.
func TestProgressiveMonotonic(t *testing.T) {
	effective := sdkmath.NewInt(9_800_000)
	potential := sdkmath.NewInt(1_000_000_000_000)

	won := []int64{}
	prev := sdkmath.ZeroInt()
	for _, p := range []int64{900_000, 500_000, 750_000, 333_333, 999_999} {
		won = append(won, p)
		res, err := parlaymath.ComputeProgressivePayout(effective, won, potential, sdkmath.ZeroInt())
		if err != nil {
			t.Fatal(err)
		}
		if res.PartialPayout.LT(prev) {
			t.Fatalf("partial decreased from %s to %s after leg %d", prev, res.PartialPayout, p)
		}
		prev = res.PartialPayout
	}
}

// TestCashoutScenario replays the halfway cashout:
//
//	probs = {500_000, 250_000}, stake = 10·10^6, edge = 200 BPS
//	effectiveStake = 9_800_000, first leg won, one unresolved
//	fair = 19_600_000, penalty = 300·1/2 = 150 BPS
//	cashout = 19_600_000 · 9850/10000 = 19_306_000
func TestCashoutScenario(t *testing.T) {
	res, err := parlaymath.ComputeCashoutValue(
		sdkmath.NewInt(9_800_000), []int64{500_000}, 1, 2,
		sdkmath.NewInt(78_400_000), 300)
	if err != nil {
		t.Fatal(err)
	}
	if res.PenaltyBps != 150 {
		t.Errorf("penaltyBps = %d, want 150", res.PenaltyBps)
	}
	if !res.FairValue.Equal(sdkmath.NewInt(19_600_000)) {
		t.Errorf("fair = %s, want 19600000", res.FairValue)
	}
	if !res.CashoutValue.Equal(sdkmath.NewInt(19_306_000)) {
		t.Errorf("cashout = %s, want 19306000", res.CashoutValue)
	}
}

func TestCashoutBounds(t *testing.T) {
	effective := sdkmath.NewInt(9_800_000)
	potential := sdkmath.NewInt(20_000_000)

	// Cashout never exceeds the potential payout and the penalty never
	// exceeds its base.
	for unresolved := 0; unresolved <= 2; unresolved++ {
		res, err := parlaymath.ComputeCashoutValue(effective, []int64{100_000}, unresolved, 3, potential, 300)
		if err != nil {
			t.Fatal(err)
		}
		if res.CashoutValue.GT(potential) {
			t.Errorf("cashout %s exceeds potential %s", res.CashoutValue, potential)
		}
		if res.PenaltyBps > 300 {
			t.Errorf("penalty %d exceeds base 300", res.PenaltyBps)
		}
	}

	// Failure modes.
	for _, tt := range []struct {
		name       string
		won        []int64
		unresolved int
		total      int
		base       int64
	}{
		{name: "no won legs", won: nil, unresolved: 1, total: 2, base: 300},
		{name: "zero total", won: []int64{500_000}, unresolved: 0, total: 0, base: 300},
		{name: "unresolved exceeds total", won: []int64{500_000}, unresolved: 3, total: 2, base: 300},
		{name: "penalty above BPS", won: []int64{500_000}, unresolved: 1, total: 2, base: 10_001},
		{name: "negative penalty", won: []int64{500_000}, unresolved: 1, total: 2, base: -1},
	} {
		if _, err := parlaymath.ComputeCashoutValue(effective, tt.won, tt.unresolved, tt.total, potential, tt.base); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestSplitFee(t *testing.T) {
	// 1_000_000 at 9000/500: 900_000 / 50_000 / 50_000.
	l, s, p, err := parlaymath.SplitFee(sdkmath.NewInt(1_000_000), 9_000, 500)
	if err != nil {
		t.Fatal(err)
	}
	if !l.Equal(sdkmath.NewInt(900_000)) || !s.Equal(sdkmath.NewInt(50_000)) || !p.Equal(sdkmath.NewInt(50_000)) {
		t.Errorf("split = %s/%s/%s, want 900000/50000/50000", l, s, p)
	}

	// Dust lands in the pool surplus and the parts always reconstruct the fee.
	for _, fee := range []int64{1, 7, 99, 1_003, 123_457} {
		f := sdkmath.NewInt(fee)
		l, s, p, err := parlaymath.SplitFee(f, 9_000, 500)
		if err != nil {
			t.Fatal(err)
		}
		if !l.Add(s).Add(p).Equal(f) {
			t.Errorf("fee %d: split %s+%s+%s does not reconstruct", fee, l, s, p)
		}
	}

	if _, _, _, err := parlaymath.SplitFee(sdkmath.NewInt(100), 9_600, 500); err == nil {
		t.Error("expected error when split exceeds BPS")
	}
}

func TestClampProbabilityPPM(t *testing.T) {
	tests := []struct{ in, want int64 }{
		{-5, 1}, {0, 1}, {1, 1}, {500_000, 500_000},
		{999_999, 999_999}, {1_000_000, 999_999}, {2_000_000, 999_999},
	}
	for _, tt := range tests {
		if got := parlaymath.ClampProbabilityPPM(tt.in); got != tt.want {
			t.Errorf("ClampProbabilityPPM(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// FuzzMultiplierMatchesReference keeps the exported multiplier bit-identical
// to the canonical iterative reference across the admissible input space.
func FuzzMultiplierMatchesReference(f *testing.F) {
	f.Add(int64(500_000), int64(250_000), int64(750_000), int64(1), int64(999_999), 5)
	f.Add(int64(1), int64(1), int64(1), int64(1), int64(1), 5)
	f.Add(int64(999_999), int64(333_333), int64(666_667), int64(123_456), int64(900_001), 3)

	f.Fuzz(func(t *testing.T, a, b, c, d, e int64, n int) {
		raw := []int64{a, b, c, d, e}
		if n < 1 {
			n = 1
		}
		if n > 5 {
			n = 5
		}
		probs := make([]int64, 0, n)
		for _, p := range raw[:n] {
			probs = append(probs, parlaymath.ClampProbabilityPPM(p))
		}
		got, err := parlaymath.ComputeMultiplier(probs)
		if err != nil {
			t.Fatalf("ComputeMultiplier(%v): %v", probs, err)
		}
		want := referenceMultiplier(probs)
		if !got.Equal(want) {
			t.Errorf("ComputeMultiplier(%v) = %s, reference = %s", probs, got, want)
		}
	})
}
