// Package parlaymath implements the exact integer arithmetic behind parlay
// quoting, progressive claims, and early cashout.  Every function is pure and
// deterministic: all division is truncating (toward zero) and applied strictly
// left to right, so independent realizations of this package produce
// bit-identical results for identical inputs.
package parlaymath

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixed-point scales
// ──────────────────────────────────────────────────────────────────────────────

// PPM is the parts-per-million scale used for probabilities and multipliers.
const PPM int64 = 1_000_000

// BPS is the basis-point scale used for fees, penalties, and caps.
const BPS int64 = 10_000

var (
	ppmInt = sdkmath.NewInt(PPM)
	bpsInt = sdkmath.NewInt(BPS)
)

// ──────────────────────────────────────────────────────────────────────────────
// Errors
// ──────────────────────────────────────────────────────────────────────────────

// ErrBadInput is wrapped by every validation failure in this package.
var ErrBadInput = fmt.Errorf("parlaymath: bad input")

// ──────────────────────────────────────────────────────────────────────────────
// Multiplier & edge
// ──────────────────────────────────────────────────────────────────────────────

// ComputeMultiplier returns the fair combined multiplier (PPM scale) for the
// given leg probabilities.
//
// Canonical form:
//
//	m ← PPM
//	for p in probs: m ← m·PPM / p   (truncating, left to right)
//
// Each probability must be in (0, PPM].  The iteration order defines the
// rounding, so callers must pass probabilities in ticket leg order.
func ComputeMultiplier(probsPPM []int64) (sdkmath.Int, error) {
	if len(probsPPM) == 0 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: no probabilities", ErrBadInput)
	}
	m := ppmInt
	for i, p := range probsPPM {
		if p <= 0 || p > PPM {
			return sdkmath.ZeroInt(), fmt.Errorf("%w: probability[%d]=%d out of (0, %d]", ErrBadInput, i, p, PPM)
		}
		m = m.Mul(ppmInt).Quo(sdkmath.NewInt(p))
	}
	return m, nil
}

// ComputeEdge returns the house edge in BPS for a parlay of numLegs legs:
//
//	edge = baseBps + numLegs·perLegBps
//
// With the default parameters (100, 50) a 5-leg parlay carries 350 BPS.
func ComputeEdge(numLegs int, baseBps, perLegBps int64) (int64, error) {
	if numLegs <= 0 {
		return 0, fmt.Errorf("%w: numLegs=%d", ErrBadInput, numLegs)
	}
	if baseBps < 0 || perLegBps < 0 {
		return 0, fmt.Errorf("%w: negative edge component", ErrBadInput)
	}
	edge := baseBps + int64(numLegs)*perLegBps
	if edge > BPS {
		return 0, fmt.Errorf("%w: edge %d exceeds %d BPS", ErrBadInput, edge, BPS)
	}
	return edge, nil
}

// ApplyEdge discounts a fair multiplier by the house edge:
//
//	net = fairMult · (BPS − edgeBps) / BPS
func ApplyEdge(fairMultPPM sdkmath.Int, edgeBps int64) (sdkmath.Int, error) {
	if edgeBps < 0 || edgeBps > BPS {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: edgeBps=%d out of [0, %d]", ErrBadInput, edgeBps, BPS)
	}
	if fairMultPPM.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: negative multiplier", ErrBadInput)
	}
	return fairMultPPM.Mul(sdkmath.NewInt(BPS - edgeBps)).Quo(bpsInt), nil
}

// ComputePayout converts a stake and a net multiplier into a payout:
//
//	payout = stake · netMult / PPM
func ComputePayout(stake, netMultPPM sdkmath.Int) (sdkmath.Int, error) {
	if stake.IsNegative() || netMultPPM.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: negative stake or multiplier", ErrBadInput)
	}
	return stake.Mul(netMultPPM).Quo(ppmInt), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Progressive claims
// ──────────────────────────────────────────────────────────────────────────────

// ProgressiveResult is the outcome of a progressive payout computation.
type ProgressiveResult struct {
	// PartialPayout is the payout ceiling earned by the won legs so far,
	// capped at the ticket's potential payout.
	PartialPayout sdkmath.Int
	// Claimable is the amount newly claimable on top of what was already paid.
	Claimable sdkmath.Int
}

// ComputeProgressivePayout prices the already-won subset of a parlay.  The
// partial payout is the effective stake run through the fair multiplier of the
// won legs, capped at potentialPayout; claimable saturates at zero when the
// bettor has already claimed more than the current partial value.
func ComputeProgressivePayout(effectiveStake sdkmath.Int, wonProbsPPM []int64, potentialPayout, alreadyClaimed sdkmath.Int) (ProgressiveResult, error) {
	if effectiveStake.IsNegative() || alreadyClaimed.IsNegative() || potentialPayout.IsNegative() {
		return ProgressiveResult{}, fmt.Errorf("%w: negative amount", ErrBadInput)
	}
	mult, err := ComputeMultiplier(wonProbsPPM)
	if err != nil {
		return ProgressiveResult{}, err
	}
	partial, err := ComputePayout(effectiveStake, mult)
	if err != nil {
		return ProgressiveResult{}, err
	}
	if partial.GT(potentialPayout) {
		partial = potentialPayout
	}
	claimable := partial.Sub(alreadyClaimed)
	if claimable.IsNegative() {
		claimable = sdkmath.ZeroInt()
	}
	return ProgressiveResult{PartialPayout: partial, Claimable: claimable}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Early cashout
// ──────────────────────────────────────────────────────────────────────────────

// CashoutResult is the outcome of a cashout valuation.
type CashoutResult struct {
	// CashoutValue is the amount paid on exit: fair value less the penalty,
	// capped at the ticket's potential payout.
	CashoutValue sdkmath.Int
	// PenaltyBps is the applied penalty, scaled by the unresolved ratio.
	PenaltyBps int64
	// FairValue is the effective stake priced through the won legs alone.
	FairValue sdkmath.Int
}

// ComputeCashoutValue prices an early exit.  The fair value considers only the
// legs already won; legs still unresolved are priced through the penalty:
//
//	fairValue   = payout(effectiveStake, multiplier(wonProbs))
//	penaltyBps  = basePenaltyBps · unresolvedCount / totalLegs   (truncating)
//	cashout     = fairValue · (BPS − penaltyBps) / BPS, capped at potentialPayout
func ComputeCashoutValue(effectiveStake sdkmath.Int, wonProbsPPM []int64, unresolvedCount, totalLegs int, potentialPayout sdkmath.Int, basePenaltyBps int64) (CashoutResult, error) {
	if len(wonProbsPPM) == 0 {
		return CashoutResult{}, fmt.Errorf("%w: no won legs", ErrBadInput)
	}
	if totalLegs <= 0 {
		return CashoutResult{}, fmt.Errorf("%w: totalLegs=%d", ErrBadInput, totalLegs)
	}
	if unresolvedCount < 0 || unresolvedCount > totalLegs {
		return CashoutResult{}, fmt.Errorf("%w: unresolvedCount=%d of %d legs", ErrBadInput, unresolvedCount, totalLegs)
	}
	if basePenaltyBps < 0 || basePenaltyBps > BPS {
		return CashoutResult{}, fmt.Errorf("%w: basePenaltyBps=%d out of [0, %d]", ErrBadInput, basePenaltyBps, BPS)
	}
	if effectiveStake.IsNegative() || potentialPayout.IsNegative() {
		return CashoutResult{}, fmt.Errorf("%w: negative amount", ErrBadInput)
	}

	mult, err := ComputeMultiplier(wonProbsPPM)
	if err != nil {
		return CashoutResult{}, err
	}
	fair, err := ComputePayout(effectiveStake, mult)
	if err != nil {
		return CashoutResult{}, err
	}

	penaltyBps := basePenaltyBps * int64(unresolvedCount) / int64(totalLegs)

	cashout := fair.Mul(sdkmath.NewInt(BPS - penaltyBps)).Quo(bpsInt)
	if cashout.GT(potentialPayout) {
		cashout = potentialPayout
	}
	return CashoutResult{CashoutValue: cashout, PenaltyBps: penaltyBps, FairValue: fair}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Boundary helpers
// ──────────────────────────────────────────────────────────────────────────────

// ClampProbabilityPPM clamps an already-rounded PPM probability into
// [1, PPM−1].  Degenerate parlays over certain (PPM) or impossible (0) legs
// are prohibited at the input boundary.
func ClampProbabilityPPM(p int64) int64 {
	if p < 1 {
		return 1
	}
	if p > PPM-1 {
		return PPM - 1
	}
	return p
}

// SplitFee computes the deterministic fee split of feePaid into the lockers
// and safety shares by BPS truncation; the pool surplus absorbs the rounding
// dust so the three parts always sum exactly to feePaid.
func SplitFee(feePaid sdkmath.Int, toLockersBps, toSafetyBps int64) (toLockers, toSafety, toPoolSurplus sdkmath.Int, err error) {
	zero := sdkmath.ZeroInt()
	if feePaid.IsNegative() {
		return zero, zero, zero, fmt.Errorf("%w: negative fee", ErrBadInput)
	}
	if toLockersBps < 0 || toSafetyBps < 0 || toLockersBps+toSafetyBps > BPS {
		return zero, zero, zero, fmt.Errorf("%w: fee split %d/%d BPS", ErrBadInput, toLockersBps, toSafetyBps)
	}
	toLockers = feePaid.Mul(sdkmath.NewInt(toLockersBps)).Quo(bpsInt)
	toSafety = feePaid.Mul(sdkmath.NewInt(toSafetyBps)).Quo(bpsInt)
	toPoolSurplus = feePaid.Sub(toLockers).Sub(toSafety)
	return toLockers, toSafety, toPoolSurplus, nil
}
