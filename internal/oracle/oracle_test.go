package oracle

import (
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/token"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAdminResolveOnce(t *testing.T) {
	op := uuid.New()
	o := NewAdminOracle(op, nil)

	if o.CanResolve(1) {
		t.Error("CanResolve true before resolve")
	}
	if res, _ := o.StatusOf(1); res != domain.ResultUnresolved {
		t.Errorf("status = %s before resolve", res)
	}

	if err := o.Resolve(uuid.New(), 1, domain.ResultYes, "d1"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("non-operator resolve: %v", err)
	}
	if err := o.Resolve(op, 1, domain.ResultUnresolved, "d1"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("non-final result: %v", err)
	}

	if err := o.Resolve(op, 1, domain.ResultYes, "d1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !o.CanResolve(1) {
		t.Error("CanResolve false after resolve")
	}
	res, digest := o.StatusOf(1)
	if res != domain.ResultYes || digest != "d1" {
		t.Errorf("status = %s %q", res, digest)
	}

	if err := o.Resolve(op, 1, domain.ResultNo, "d2"); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Errorf("double resolve: %v", err)
	}
}

// optimisticFixture wires a ledger, two funded parties, and the oracle with a
// controllable clock.
func optimisticFixture(t *testing.T) (*OptimisticOracle, *token.Ledger, uuid.UUID, uuid.UUID, uuid.UUID, *time.Time) {
	t.Helper()
	ledger := token.NewLedger()
	op := uuid.New()
	proposer := uuid.New()
	challenger := uuid.New()
	for _, acct := range []uuid.UUID{proposer, challenger} {
		if err := ledger.Mint(acct, sdkmath.NewInt(10_000_000)); err != nil {
			t.Fatal(err)
		}
	}
	o, err := NewOptimisticOracle(ledger, op, sdkmath.NewInt(1_000_000), time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	now := t0
	o.SetClock(func() time.Time { return now })
	return o, ledger, op, proposer, challenger, &now
}

func TestOptimisticHappyPath(t *testing.T) {
	o, ledger, _, proposer, _, now := optimisticFixture(t)

	if err := o.Propose(proposer, 7, domain.ResultYes, "digest"); err != nil {
		t.Fatalf("Propose: %v", err)
	}
	// Bond escrowed.
	if got := ledger.BalanceOf(proposer); !got.Equal(sdkmath.NewInt(9_000_000)) {
		t.Errorf("proposer balance = %s after propose", got)
	}
	// Still unresolved while proposed.
	if o.CanResolve(7) {
		t.Error("CanResolve true while proposed")
	}
	if res, _ := o.StatusOf(7); res != domain.ResultUnresolved {
		t.Errorf("status = %s while proposed", res)
	}

	// Finalize before liveness → NotReady.
	if err := o.Finalize(7); !errors.Is(err, domain.ErrNotReady) {
		t.Errorf("early finalize: %v", err)
	}

	*now = t0.Add(time.Hour)
	if err := o.Finalize(7); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	// Bond returned; outcome final.
	if got := ledger.BalanceOf(proposer); !got.Equal(sdkmath.NewInt(10_000_000)) {
		t.Errorf("proposer balance = %s after finalize", got)
	}
	if !o.CanResolve(7) {
		t.Error("CanResolve false after finalize")
	}
	res, digest := o.StatusOf(7)
	if res != domain.ResultYes || digest != "digest" {
		t.Errorf("status = %s %q", res, digest)
	}

	// Finalize is not repeatable.
	if err := o.Finalize(7); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Errorf("double finalize: %v", err)
	}
}

func TestOptimisticDispute(t *testing.T) {
	o, ledger, op, proposer, challenger, now := optimisticFixture(t)

	if err := o.Propose(proposer, 7, domain.ResultYes, "d"); err != nil {
		t.Fatal(err)
	}

	// Self-challenge rejected.
	if err := o.Challenge(proposer, 7); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("self-challenge: %v", err)
	}

	if err := o.Challenge(challenger, 7); err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	if got := ledger.BalanceOf(challenger); !got.Equal(sdkmath.NewInt(9_000_000)) {
		t.Errorf("challenger balance = %s after challenge", got)
	}

	// Cannot finalize a challenged proposal.
	*now = t0.Add(2 * time.Hour)
	if err := o.Finalize(7); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Errorf("finalize challenged: %v", err)
	}

	// Dispute resolves for the challenger: both bonds paid out.
	if err := o.ResolveDispute(op, 7, domain.ResultNo, "d2", false); err != nil {
		t.Fatalf("ResolveDispute: %v", err)
	}
	if got := ledger.BalanceOf(challenger); !got.Equal(sdkmath.NewInt(11_000_000)) {
		t.Errorf("challenger balance = %s after award", got)
	}
	if got := ledger.BalanceOf(proposer); !got.Equal(sdkmath.NewInt(9_000_000)) {
		t.Errorf("proposer balance = %s after award", got)
	}
	res, _ := o.StatusOf(7)
	if res != domain.ResultNo {
		t.Errorf("resolved status = %s, want no", res)
	}
	if err := o.ResolveDispute(op, 7, domain.ResultNo, "d2", false); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Errorf("double dispute resolve: %v", err)
	}
}

func TestChallengeAfterLiveness(t *testing.T) {
	o, _, _, proposer, challenger, now := optimisticFixture(t)
	if err := o.Propose(proposer, 3, domain.ResultNo, "d"); err != nil {
		t.Fatal(err)
	}
	*now = t0.Add(time.Hour)
	if err := o.Challenge(challenger, 3); !errors.Is(err, domain.ErrPolicyViolation) {
		t.Errorf("late challenge: %v", err)
	}
}

// TestParamSnapshot verifies that open proposals keep the bond and liveness
// they were opened with, even after a global parameter update.
func TestParamSnapshot(t *testing.T) {
	o, ledger, op, proposer, _, now := optimisticFixture(t)
	if err := o.Propose(proposer, 9, domain.ResultYes, "d"); err != nil {
		t.Fatal(err)
	}

	// Tighten globals mid-flight.
	if err := o.SetParams(op, sdkmath.NewInt(5_000_000), 48*time.Hour); err != nil {
		t.Fatal(err)
	}

	// The open proposal still finalizes on its one-hour snapshot.
	*now = t0.Add(time.Hour)
	if err := o.Finalize(9); err != nil {
		t.Fatalf("Finalize after param change: %v", err)
	}
	// And returns the 1_000_000 snapshot bond.
	if got := ledger.BalanceOf(proposer); !got.Equal(sdkmath.NewInt(10_000_000)) {
		t.Errorf("proposer balance = %s, want original", got)
	}

	// A new proposal uses the updated bond.
	if err := o.Propose(proposer, 10, domain.ResultYes, "d"); err != nil {
		t.Fatal(err)
	}
	if got := ledger.BalanceOf(proposer); !got.Equal(sdkmath.NewInt(5_000_000)) {
		t.Errorf("proposer balance = %s after new-bond propose", got)
	}
}

func TestRouter(t *testing.T) {
	op := uuid.New()
	fast := NewAdminOracle(op, nil)
	ledger := token.NewLedger()
	slow, err := NewOptimisticOracle(ledger, op, sdkmath.NewInt(1), time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRouter(fast, slow)
	if r.For(domain.SettleFast) != Adapter(fast) {
		t.Error("fast mode did not route to admin oracle")
	}
	if r.For(domain.SettleOptimistic) != Adapter(slow) {
		t.Error("optimistic mode did not route to optimistic oracle")
	}
}
