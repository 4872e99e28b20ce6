// Package registry owns the leg catalog: a monotonically assigned id space of
// binary event legs, and the parlay validation rules applied at buy time.  The
// registry is the only source of truth for a leg's probability; the engine
// snapshots it into the ticket so later mutations never reprice live tickets.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/parlaymath"
)

// Registry holds all legs ever created.  Legs are deactivated, never deleted.
type Registry struct {
	mu       sync.Mutex
	legs     map[uint64]*domain.Leg
	nextID   uint64
	operator uuid.UUID
	now      func() time.Time
}

// New creates a Registry administered by operator.
func New(operator uuid.UUID) *Registry {
	return &Registry{
		legs:     make(map[uint64]*domain.Leg),
		nextID:   1,
		operator: operator,
		now:      time.Now,
	}
}

// SetClock overrides the registry's time source.  Test hook.
func (r *Registry) SetClock(now func() time.Time) { r.now = now }

// ──────────────────────────────────────────────────────────────────────────────
// Operator surface
// ──────────────────────────────────────────────────────────────────────────────

// CreateLeg registers a new leg and returns its id.  A probability outside
// [1, PPM−1] is rejected so degenerate parlays cannot be priced.
func (r *Registry) CreateLeg(caller uuid.UUID, meta domain.LegMeta) (uint64, error) {
	if caller != r.operator {
		return 0, fmt.Errorf("registry.CreateLeg: %w: operator only", domain.ErrUnauthorized)
	}
	if meta.Question == "" {
		return 0, fmt.Errorf("registry.CreateLeg: %w: empty question", domain.ErrInvalidArgument)
	}
	if meta.ProbabilityPPM < 1 || meta.ProbabilityPPM > parlaymath.PPM-1 {
		return 0, fmt.Errorf("registry.CreateLeg: %w: probability %d out of [1, %d]",
			domain.ErrInvalidArgument, meta.ProbabilityPPM, parlaymath.PPM-1)
	}
	if meta.CutoffTime.IsZero() {
		return 0, fmt.Errorf("registry.CreateLeg: %w: zero cutoff time", domain.ErrInvalidArgument)
	}
	if meta.EarliestResolveTime.IsZero() {
		return 0, fmt.Errorf("registry.CreateLeg: %w: zero earliest resolve time", domain.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.legs[id] = &domain.Leg{
		ID:                  id,
		Question:            meta.Question,
		SourceRef:           meta.SourceRef,
		CutoffTime:          meta.CutoffTime,
		EarliestResolveTime: meta.EarliestResolveTime,
		ProbabilityPPM:      meta.ProbabilityPPM,
		OracleRef:           meta.OracleRef,
		Active:              true,
		CreatedAt:           r.now().UTC(),
	}
	return id, nil
}

// Deactivate stops a leg from entering new tickets.  Existing tickets keep
// their snapshot and settle normally.
func (r *Registry) Deactivate(caller uuid.UUID, id uint64) error {
	if caller != r.operator {
		return fmt.Errorf("registry.Deactivate: %w: operator only", domain.ErrUnauthorized)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	leg, ok := r.legs[id]
	if !ok {
		return fmt.Errorf("registry.Deactivate: leg %d: %w", id, domain.ErrNotFound)
	}
	leg.Active = false
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Read surface
// ──────────────────────────────────────────────────────────────────────────────

// Get returns a copy of the leg.
func (r *Registry) Get(id uint64) (domain.Leg, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	leg, ok := r.legs[id]
	if !ok {
		return domain.Leg{}, fmt.Errorf("registry.Get: leg %d: %w", id, domain.ErrNotFound)
	}
	return *leg, nil
}

// List returns copies of all legs, most recent first.
func (r *Registry) List() []domain.Leg {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Leg, 0, len(r.legs))
	for id := r.nextID - 1; id >= 1; id-- {
		if leg, ok := r.legs[id]; ok {
			out = append(out, *leg)
		}
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Parlay validation
// ──────────────────────────────────────────────────────────────────────────────

// ValidateParlay checks a prospective ticket's legs against the catalog and
// returns the probability snapshot in leg order.  Rejected: wrong side count,
// an unknown side sentinel, duplicate legs, unknown legs, inactive legs, and
// legs past their cutoff.
func (r *Registry) ValidateParlay(legIDs []uint64, chosen []domain.Side, now time.Time) ([]int64, error) {
	if len(legIDs) != len(chosen) {
		return nil, fmt.Errorf("registry.ValidateParlay: %w: %d legs but %d outcomes",
			domain.ErrInvalidArgument, len(legIDs), len(chosen))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uint64]bool, len(legIDs))
	probs := make([]int64, 0, len(legIDs))
	for i, id := range legIDs {
		if !chosen[i].IsValid() {
			return nil, fmt.Errorf("registry.ValidateParlay: %w: outcome %q for leg %d",
				domain.ErrInvalidArgument, chosen[i], id)
		}
		if seen[id] {
			return nil, fmt.Errorf("registry.ValidateParlay: %w: duplicate leg %d",
				domain.ErrInvalidArgument, id)
		}
		seen[id] = true

		leg, ok := r.legs[id]
		if !ok {
			return nil, fmt.Errorf("registry.ValidateParlay: leg %d: %w", id, domain.ErrNotFound)
		}
		if !leg.Active {
			return nil, fmt.Errorf("registry.ValidateParlay: %w: leg %d is inactive",
				domain.ErrInvalidArgument, id)
		}
		if !now.Before(leg.CutoffTime) {
			return nil, fmt.Errorf("registry.ValidateParlay: %w: leg %d past cutoff",
				domain.ErrInvalidArgument, id)
		}
		probs = append(probs, leg.ProbabilityPPM)
	}
	return probs, nil
}
