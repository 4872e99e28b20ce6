package pool

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/parlaycity/core/internal/domain"
	"github.com/parlaycity/core/internal/token"
)

// SimAdapter is the reference YieldAdapter: it parks idle assets in its own
// ledger account with no external deployment.  Production adapters implement
// the same interface against a real venue; they are out-of-scope
// collaborators here.
type SimAdapter struct {
	ledger  *token.Ledger
	account uuid.UUID
	pool    uuid.UUID
}

// NewSimAdapter creates an adapter serving the given pool custody account.
func NewSimAdapter(ledger *token.Ledger, poolAccount uuid.UUID) *SimAdapter {
	return &SimAdapter{
		ledger:  ledger,
		account: uuid.New(),
		pool:    poolAccount,
	}
}

// Account returns the adapter's holding account id.
func (a *SimAdapter) Account() uuid.UUID { return a.account }

// Deposit implements YieldAdapter: moves idle assets pool → adapter.
func (a *SimAdapter) Deposit(amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return fmt.Errorf("yield.Deposit: %w: amount must be positive", domain.ErrInvalidArgument)
	}
	return a.ledger.Transfer(a.pool, a.account, amount, "yield deploy")
}

// Withdraw implements YieldAdapter: pulls assets adapter → pool.
func (a *SimAdapter) Withdraw(amount sdkmath.Int) error {
	if !amount.IsPositive() {
		return fmt.Errorf("yield.Withdraw: %w: amount must be positive", domain.ErrInvalidArgument)
	}
	return a.ledger.Transfer(a.account, a.pool, amount, "yield recall")
}

// Balance implements YieldAdapter.
func (a *SimAdapter) Balance() sdkmath.Int {
	return a.ledger.BalanceOf(a.account)
}
