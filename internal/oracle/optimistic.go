package oracle

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/token"
)

// proposalState is the per-leg dispute state machine:
//
//	None → Proposed → Finalized
//	              └─→ Challenged → Resolved
type proposalState string

const (
	stateProposed   proposalState = "proposed"
	stateChallenged proposalState = "challenged"
	stateFinalized  proposalState = "finalized"
	stateResolved   proposalState = "resolved"
)

// proposal carries a snapshot of the global parameters at propose time, so
// later parameter updates never alter the timing or bonding of an open
// proposal.
type proposal struct {
	result     domain.LegResult
	digest     string
	proposer   uuid.UUID
	challenger uuid.UUID
	bond       sdkmath.Int   // snapshot
	liveness   time.Duration // snapshot
	proposedAt time.Time
	state      proposalState
}

// OptimisticOracle implements the propose/challenge settlement path.  Bonds
// are escrowed in the stable-asset ledger under the oracle's own account.
type OptimisticOracle struct {
	mu        sync.Mutex
	ledger    *token.Ledger
	account   uuid.UUID // bond escrow
	operator  uuid.UUID // dispute arbiter + parameter admin
	bond      sdkmath.Int
	liveness  time.Duration
	proposals map[uint64]*proposal
	sink      domain.EventSink
	now       func() time.Time
}

// NewOptimisticOracle creates the optimistic-path oracle with its initial
// global bond and liveness window.
func NewOptimisticOracle(ledger *token.Ledger, operator uuid.UUID, bond sdkmath.Int, liveness time.Duration, sink domain.EventSink) (*OptimisticOracle, error) {
	if ledger == nil {
		return nil, fmt.Errorf("oracle.NewOptimisticOracle: %w: nil ledger", domain.ErrNotConfigured)
	}
	if !bond.IsPositive() || liveness <= 0 {
		return nil, fmt.Errorf("oracle.NewOptimisticOracle: %w: bond and liveness must be positive", domain.ErrInvalidArgument)
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &OptimisticOracle{
		ledger:    ledger,
		account:   uuid.New(),
		operator:  operator,
		bond:      bond,
		liveness:  liveness,
		proposals: make(map[uint64]*proposal),
		sink:      sink,
		now:       time.Now,
	}, nil
}

// SetClock overrides the oracle's time source.  Test hook.
func (o *OptimisticOracle) SetClock(now func() time.Time) { o.now = now }

// Account returns the oracle's escrow account id.
func (o *OptimisticOracle) Account() uuid.UUID { return o.account }

// ──────────────────────────────────────────────────────────────────────────────
// Parameter administration
// ──────────────────────────────────────────────────────────────────────────────

// SetParams updates the global bond and liveness.  Open proposals keep their
// snapshots, so in-flight ticket timing is never retroactively altered.
func (o *OptimisticOracle) SetParams(caller uuid.UUID, bond sdkmath.Int, liveness time.Duration) error {
	if caller != o.operator {
		return fmt.Errorf("oracle.SetParams: %w: operator only", domain.ErrUnauthorized)
	}
	if !bond.IsPositive() || liveness <= 0 {
		return fmt.Errorf("oracle.SetParams: %w: bond and liveness must be positive", domain.ErrInvalidArgument)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bond = bond
	o.liveness = liveness
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Propose / Challenge / Finalize / ResolveDispute
// ──────────────────────────────────────────────────────────────────────────────

// Propose opens a proposal for the leg's outcome, escrowing the current bond
// from the caller.
func (o *OptimisticOracle) Propose(caller uuid.UUID, legID uint64, result domain.LegResult, digest string) error {
	if !result.IsFinal() {
		return fmt.Errorf("oracle.Propose: %w: result %q is not final", domain.ErrInvalidArgument, result)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.proposals[legID]; ok {
		return fmt.Errorf("oracle.Propose: leg %d: %w", legID, domain.ErrAlreadyResolved)
	}
	bond := o.bond
	if err := o.ledger.Transfer(caller, o.account, bond, "oracle bond"); err != nil {
		return fmt.Errorf("oracle.Propose: escrow bond: %w", err)
	}
	o.proposals[legID] = &proposal{
		result:     result,
		digest:     digest,
		proposer:   caller,
		bond:       bond,
		liveness:   o.liveness,
		proposedAt: o.now().UTC(),
		state:      stateProposed,
	}
	o.sink.Emit(domain.Proposed{LegID: legID, Result: result, Proposer: caller, Bond: bond})
	return nil
}

// Challenge disputes an open proposal before its liveness window elapses,
// escrowing a bond equal to the proposal's snapshot.  The proposer cannot
// challenge their own proposal.
func (o *OptimisticOracle) Challenge(caller uuid.UUID, legID uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.proposals[legID]
	if !ok {
		return fmt.Errorf("oracle.Challenge: leg %d: %w", legID, domain.ErrNotFound)
	}
	if p.state != stateProposed {
		return fmt.Errorf("oracle.Challenge: leg %d in state %q: %w", legID, p.state, domain.ErrAlreadyResolved)
	}
	if caller == p.proposer {
		return fmt.Errorf("oracle.Challenge: %w: proposer cannot self-challenge", domain.ErrUnauthorized)
	}
	if !o.now().Before(p.proposedAt.Add(p.liveness)) {
		return fmt.Errorf("oracle.Challenge: leg %d: %w: liveness elapsed", legID, domain.ErrPolicyViolation)
	}
	if err := o.ledger.Transfer(caller, o.account, p.bond, "oracle challenge bond"); err != nil {
		return fmt.Errorf("oracle.Challenge: escrow bond: %w", err)
	}
	p.state = stateChallenged
	p.challenger = caller
	o.sink.Emit(domain.Challenged{LegID: legID, Challenger: caller})
	return nil
}

// Finalize settles an unchallenged proposal once its snapshotted liveness has
// elapsed, returning the proposer's bond.  Permissionless.
func (o *OptimisticOracle) Finalize(legID uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.proposals[legID]
	if !ok {
		return fmt.Errorf("oracle.Finalize: leg %d: %w", legID, domain.ErrNotFound)
	}
	if p.state != stateProposed {
		return fmt.Errorf("oracle.Finalize: leg %d in state %q: %w", legID, p.state, domain.ErrAlreadyResolved)
	}
	if o.now().Before(p.proposedAt.Add(p.liveness)) {
		return fmt.Errorf("oracle.Finalize: leg %d: %w: liveness not expired", legID, domain.ErrNotReady)
	}
	if err := o.ledger.Transfer(o.account, p.proposer, p.bond, "oracle bond return"); err != nil {
		return fmt.Errorf("oracle.Finalize: return bond: %w", err)
	}
	p.state = stateFinalized
	o.sink.Emit(domain.Finalized{LegID: legID, Result: p.result})
	return nil
}

// ResolveDispute settles a challenged proposal.  The operator supplies the
// true outcome; both escrowed bonds are paid to whichever party was right.
func (o *OptimisticOracle) ResolveDispute(caller uuid.UUID, legID uint64, result domain.LegResult, digest string, proposerCorrect bool) error {
	if caller != o.operator {
		return fmt.Errorf("oracle.ResolveDispute: %w: operator only", domain.ErrUnauthorized)
	}
	if !result.IsFinal() {
		return fmt.Errorf("oracle.ResolveDispute: %w: result %q is not final", domain.ErrInvalidArgument, result)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.proposals[legID]
	if !ok {
		return fmt.Errorf("oracle.ResolveDispute: leg %d: %w", legID, domain.ErrNotFound)
	}
	if p.state != stateChallenged {
		return fmt.Errorf("oracle.ResolveDispute: leg %d in state %q: %w", legID, p.state, domain.ErrAlreadyResolved)
	}
	winner := p.challenger
	if proposerCorrect {
		winner = p.proposer
	}
	if err := o.ledger.Transfer(o.account, winner, p.bond.Add(p.bond), "oracle dispute award"); err != nil {
		return fmt.Errorf("oracle.ResolveDispute: pay bonds: %w", err)
	}
	p.result = result
	p.digest = digest
	p.state = stateResolved
	o.sink.Emit(domain.Finalized{LegID: legID, Result: result})
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Adapter
// ──────────────────────────────────────────────────────────────────────────────

// StatusOf implements Adapter.  Proposed and Challenged legs read as
// Unresolved: only Finalized and Resolved are final.
func (o *OptimisticOracle) StatusOf(legID uint64) (domain.LegResult, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.proposals[legID]
	if !ok || (p.state != stateFinalized && p.state != stateResolved) {
		return domain.ResultUnresolved, ""
	}
	return p.result, p.digest
}

// CanResolve implements Adapter.
func (o *OptimisticOracle) CanResolve(legID uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.proposals[legID]
	return ok && (p.state == stateFinalized || p.state == stateResolved)
}
