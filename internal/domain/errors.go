package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — the closed failure taxonomy.  Compare with errors.Is();
// callers wrap these with fmt.Errorf("...: %w", ...) to add context.
// ──────────────────────────────────────────────────────────────────────────────

var (
	// ErrInvalidArgument is returned for malformed input: wrong leg count,
	// duplicate legs, outcome count mismatch, probability out of range, stake
	// below minimum, zero amounts.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPolicyViolation is returned when a request would break a cap or an
	// engine invariant: payout/utilization caps, lock below minimum, ticket
	// not in the required state, cashout with nothing unresolved, progressive
	// claim with nothing won.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrUnauthorized is returned by only-owner, only-engine, only-pool, and
	// only-operator checks.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotReady is returned when an oracle has no final status, a liveness
	// window has not expired, or a lock has not matured.
	ErrNotReady = errors.New("not ready")

	// ErrAlreadyResolved is returned on double-settle, double-claim, and
	// double-finalize attempts.
	ErrAlreadyResolved = errors.New("already resolved")

	// ErrInsufficientLiquidity is returned when the pool's free liquidity (or
	// a ledger balance) is below a required transfer, including fee routing.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrSlippage is returned when a cashout value falls below the caller's
	// minOut bound.
	ErrSlippage = errors.New("cashout value below minimum")

	// ErrNotConfigured is returned when a required wiring target (engine,
	// lock facility, safety buffer) has not been set.
	ErrNotConfigured = errors.New("not configured")

	// ErrNotFound is returned when no leg, ticket, position, or account
	// matches the given id.
	ErrNotFound = errors.New("not found")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// IsInvalidArgument reports whether err is a caller-input failure.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsNotFound reports whether err means a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err represents a state conflict: the entity
// exists but is not in a state that admits the operation.
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrPolicyViolation,
		ErrAlreadyResolved,
		ErrNotReady,
		ErrSlippage,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsUnauthorized reports whether err is an ownership/role failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
