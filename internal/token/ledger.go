// Package token implements in-process custody of the 6-decimal stable asset:
// per-account balances, transfers, and an optional audit journal hook.  It is
// the single shared mutable resource of the system; every other component
// moves value exclusively through it.
package token

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/parlaycity/core/internal/domain"
)

// Journal receives an audit record for every applied transfer.  Implementations
// must not block — they are called inside the ledger's critical section.
type Journal interface {
	RecordTransfer(from, to uuid.UUID, amount sdkmath.Int, memo string)
}

// Ledger holds every account's balance of the stable asset.
type Ledger struct {
	mu          sync.Mutex
	balances    map[uuid.UUID]sdkmath.Int
	totalSupply sdkmath.Int
	journal     Journal // optional; nil = no audit
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances:    make(map[uuid.UUID]sdkmath.Int),
		totalSupply: sdkmath.ZeroInt(),
	}
}

// SetJournal injects the audit journal post-construction.
func (l *Ledger) SetJournal(j Journal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.journal = j
}

// Mint credits freshly issued units to an account.  Operator/bootstrap only;
// the engine never mints.
func (l *Ledger) Mint(to uuid.UUID, amount sdkmath.Int) error {
	if to == uuid.Nil {
		return fmt.Errorf("token.Mint: %w: nil account", domain.ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("token.Mint: %w: amount must be positive", domain.ErrInvalidArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] = l.balance(to).Add(amount)
	l.totalSupply = l.totalSupply.Add(amount)
	if l.journal != nil {
		l.journal.RecordTransfer(uuid.Nil, to, amount, "mint")
	}
	return nil
}

// Transfer moves amount between accounts.  Zero and negative amounts are
// rejected so a definite-zero balance never masks a wiring mistake.
func (l *Ledger) Transfer(from, to uuid.UUID, amount sdkmath.Int, memo string) error {
	if from == uuid.Nil || to == uuid.Nil {
		return fmt.Errorf("token.Transfer: %w: nil account", domain.ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("token.Transfer: %w: amount must be positive", domain.ErrInvalidArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balance(from)
	if bal.LT(amount) {
		return fmt.Errorf("token.Transfer: %w: balance %s < %s", domain.ErrInsufficientLiquidity, bal, amount)
	}
	l.balances[from] = bal.Sub(amount)
	l.balances[to] = l.balance(to).Add(amount)
	if l.journal != nil {
		l.journal.RecordTransfer(from, to, amount, memo)
	}
	return nil
}

// BalanceOf returns the account's balance (zero for unknown accounts).
func (l *Ledger) BalanceOf(acct uuid.UUID) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(acct)
}

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalSupply
}

// balance reads without locking; callers hold l.mu.
func (l *Ledger) balance(acct uuid.UUID) sdkmath.Int {
	if b, ok := l.balances[acct]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}
