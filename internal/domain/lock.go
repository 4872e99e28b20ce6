package domain

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Lock tiers
// ──────────────────────────────────────────────────────────────────────────────

// LockTier selects a lock duration and its reward weight.
type LockTier string

const (
	Tier30 LockTier = "30d"
	Tier60 LockTier = "60d"
	Tier90 LockTier = "90d"
)

// IsValid returns true for a recognised tier.
func (t LockTier) IsValid() bool {
	switch t {
	case Tier30, Tier60, Tier90:
		return true
	}
	return false
}

// WeightBps returns the tier's reward weight in BPS (1.1x / 1.25x / 1.5x).
func (t LockTier) WeightBps() int64 {
	switch t {
	case Tier30:
		return 11_000
	case Tier60:
		return 12_500
	case Tier90:
		return 15_000
	}
	return 0
}

// Duration returns the lock-up period for the tier.
func (t LockTier) Duration() time.Duration {
	switch t {
	case Tier30:
		return 30 * 24 * time.Hour
	case Tier60:
		return 60 * 24 * time.Hour
	case Tier90:
		return 90 * 24 * time.Hour
	}
	return 0
}

// ──────────────────────────────────────────────────────────────────────────────
// LockPosition
// ──────────────────────────────────────────────────────────────────────────────

// LockPosition is a single lock of pool shares in the facility.  Its shares
// are held in escrow by the facility from lock until unlock or early
// withdrawal.
type LockPosition struct {
	ID         uint64      `json:"id"`
	Owner      uuid.UUID   `json:"owner"`
	Shares     sdkmath.Int `json:"shares"`
	Tier       LockTier    `json:"tier"`
	WeightBps  int64       `json:"weight_bps"`
	LockedAt   time.Time   `json:"locked_at"`
	UnlocksAt  time.Time   `json:"unlocks_at"`
	RewardDebt sdkmath.Int `json:"reward_debt"` // weighted shares × accumulator at last settle
	Active     bool        `json:"active"`
}

// WeightedShares returns shares scaled by the tier weight (BPS truncation).
func (p *LockPosition) WeightedShares() sdkmath.Int {
	return p.Shares.Mul(sdkmath.NewInt(p.WeightBps)).Quo(sdkmath.NewInt(10_000))
}

// Matured returns true once the position may unlock without penalty.
func (p *LockPosition) Matured(now time.Time) bool {
	return !now.Before(p.UnlocksAt)
}
