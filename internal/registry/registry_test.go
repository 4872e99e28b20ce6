package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/parlaycity/core/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) (*Registry, uuid.UUID) {
	t.Helper()
	op := uuid.New()
	r := New(op)
	r.SetClock(func() time.Time { return baseTime })
	return r, op
}

func meta(prob int64) domain.LegMeta {
	return domain.LegMeta{
		Question:            "does it rain tomorrow",
		SourceRef:           "weather:izmir",
		CutoffTime:          baseTime.Add(1 * time.Hour),
		EarliestResolveTime: baseTime.Add(2 * time.Hour),
		ProbabilityPPM:      prob,
		OracleRef:           "admin",
	}
}

func TestCreateLeg(t *testing.T) {
	r, op := newTestRegistry(t)

	id1, err := r.CreateLeg(op, meta(500_000))
	if err != nil {
		t.Fatalf("CreateLeg: %v", err)
	}
	id2, err := r.CreateLeg(op, meta(250_000))
	if err != nil {
		t.Fatalf("CreateLeg: %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Errorf("ids = %d, %d, want monotonic from 1", id1, id2)
	}

	leg, err := r.Get(id2)
	if err != nil {
		t.Fatal(err)
	}
	if leg.ProbabilityPPM != 250_000 || !leg.Active {
		t.Errorf("leg = %+v", leg)
	}

	// Non-operator callers are rejected.
	if _, err := r.CreateLeg(uuid.New(), meta(500_000)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("non-operator create: %v, want ErrUnauthorized", err)
	}

	// Degenerate probabilities are rejected.
	for _, p := range []int64{0, -1, 1_000_000, 2_000_000} {
		if _, err := r.CreateLeg(op, meta(p)); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("probability %d: %v, want ErrInvalidArgument", p, err)
		}
	}
}

func TestDeactivate(t *testing.T) {
	r, op := newTestRegistry(t)
	id, _ := r.CreateLeg(op, meta(500_000))

	if err := r.Deactivate(uuid.New(), id); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("non-operator deactivate: %v", err)
	}
	if err := r.Deactivate(op, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing leg deactivate: %v", err)
	}
	if err := r.Deactivate(op, id); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	leg, _ := r.Get(id)
	if leg.Active {
		t.Error("leg still active after Deactivate")
	}
}

func TestValidateParlay(t *testing.T) {
	r, op := newTestRegistry(t)
	a, _ := r.CreateLeg(op, meta(500_000))
	b, _ := r.CreateLeg(op, meta(250_000))
	inactive, _ := r.CreateLeg(op, meta(400_000))
	_ = r.Deactivate(op, inactive)

	yes, no := domain.SideYes, domain.SideNo

	probs, err := r.ValidateParlay([]uint64{a, b}, []domain.Side{yes, no}, baseTime)
	if err != nil {
		t.Fatalf("ValidateParlay: %v", err)
	}
	if len(probs) != 2 || probs[0] != 500_000 || probs[1] != 250_000 {
		t.Errorf("probs = %v", probs)
	}

	tests := []struct {
		name  string
		legs  []uint64
		sides []domain.Side
		now   time.Time
		want  error
	}{
		{"count mismatch", []uint64{a, b}, []domain.Side{yes}, baseTime, domain.ErrInvalidArgument},
		{"bad sentinel", []uint64{a, b}, []domain.Side{yes, "MAYBE"}, baseTime, domain.ErrInvalidArgument},
		{"duplicate leg", []uint64{a, a}, []domain.Side{yes, no}, baseTime, domain.ErrInvalidArgument},
		{"unknown leg", []uint64{a, 77}, []domain.Side{yes, no}, baseTime, domain.ErrNotFound},
		{"inactive leg", []uint64{a, inactive}, []domain.Side{yes, no}, baseTime, domain.ErrInvalidArgument},
		{"past cutoff", []uint64{a, b}, []domain.Side{yes, no}, baseTime.Add(2 * time.Hour), domain.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.ValidateParlay(tt.legs, tt.sides, tt.now); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// Registry mutations after buy must not change earlier snapshots: the
// snapshot is a value copy.
func TestSnapshotIsolation(t *testing.T) {
	r, op := newTestRegistry(t)
	a, _ := r.CreateLeg(op, meta(500_000))
	b, _ := r.CreateLeg(op, meta(250_000))

	probs, err := r.ValidateParlay([]uint64{a, b}, []domain.Side{domain.SideYes, domain.SideYes}, baseTime)
	if err != nil {
		t.Fatal(err)
	}
	_ = r.Deactivate(op, a)
	if probs[0] != 500_000 {
		t.Errorf("snapshot mutated: %v", probs)
	}
}
