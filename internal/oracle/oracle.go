// Package oracle provides the leg-outcome adapters the engine settles
// against.  The engine never knows which variant it is reading: both the
// admin (fast) and optimistic adapters expose the same capability set, and a
// Router selects between them using the settlement mode frozen into each
// ticket at buy time.
package oracle

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/parlaycity/core/internal/domain"
)

// Adapter is the uniform read interface over a settlement path.
type Adapter interface {
	// StatusOf returns the leg's result and its outcome digest.  The result
	// is Unresolved until the adapter's own finality rule is met.
	StatusOf(legID uint64) (domain.LegResult, string)
	// CanResolve reports whether the leg's result is final.
	CanResolve(legID uint64) bool
}

// Router maps a ticket's frozen settlement mode onto its adapter.
type Router struct {
	fast       Adapter
	optimistic Adapter
}

// NewRouter builds a Router over the two settlement paths.
func NewRouter(fast, optimistic Adapter) *Router {
	return &Router{fast: fast, optimistic: optimistic}
}

// For returns the adapter serving the given mode.
func (r *Router) For(mode domain.SettlementMode) Adapter {
	if mode == SettlementFast {
		return r.fast
	}
	return r.optimistic
}

// StatusOf reads a leg through the adapter for the given mode.
func (r *Router) StatusOf(legID uint64, mode domain.SettlementMode) (domain.LegResult, string) {
	return r.For(mode).StatusOf(legID)
}

// CanResolve reads finality through the adapter for the given mode.
func (r *Router) CanResolve(legID uint64, mode domain.SettlementMode) bool {
	return r.For(mode).CanResolve(legID)
}

// SettlementFast aliases the domain sentinel for readability inside this
// package.
const SettlementFast = domain.SettleFast

// ──────────────────────────────────────────────────────────────────────────────
// Admin oracle — the fast path
// ──────────────────────────────────────────────────────────────────────────────

// resolution is a recorded final outcome.
type resolution struct {
	result domain.LegResult
	digest string
}

// AdminOracle lets the operator record a leg's outcome directly.  One write
// per leg; finality is immediate.
type AdminOracle struct {
	mu       sync.Mutex
	operator uuid.UUID
	resolved map[uint64]resolution
	sink     domain.EventSink
}

// NewAdminOracle creates the fast-path oracle.
func NewAdminOracle(operator uuid.UUID, sink domain.EventSink) *AdminOracle {
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &AdminOracle{
		operator: operator,
		resolved: make(map[uint64]resolution),
		sink:     sink,
	}
}

// Resolve records the final outcome for a leg.  Operator only; exactly once.
func (o *AdminOracle) Resolve(caller uuid.UUID, legID uint64, result domain.LegResult, digest string) error {
	if caller != o.operator {
		return fmt.Errorf("oracle.Resolve: %w: operator only", domain.ErrUnauthorized)
	}
	if !result.IsFinal() {
		return fmt.Errorf("oracle.Resolve: %w: result %q is not final", domain.ErrInvalidArgument, result)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.resolved[legID]; ok {
		return fmt.Errorf("oracle.Resolve: leg %d: %w", legID, domain.ErrAlreadyResolved)
	}
	o.resolved[legID] = resolution{result: result, digest: digest}
	o.sink.Emit(domain.Finalized{LegID: legID, Result: result})
	return nil
}

// StatusOf implements Adapter.
func (o *AdminOracle) StatusOf(legID uint64) (domain.LegResult, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if res, ok := o.resolved[legID]; ok {
		return res.result, res.digest
	}
	return domain.ResultUnresolved, ""
}

// CanResolve implements Adapter.
func (o *AdminOracle) CanResolve(legID uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.resolved[legID]
	return ok
}
