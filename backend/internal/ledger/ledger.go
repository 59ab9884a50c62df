package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/user/brokerage/backend/internal/models"
)

// BalanceStore is the persistence contract the ledger runs on. ApplyDelta
// must be an atomic conditional write per (customerID, assetName) key: the
// non-negativity check and the mutation happen as one indivisible step, and
// a failed call leaves the balance untouched. Two concurrent ApplyDelta
// calls against the same key must serialize; different keys are independent.
type BalanceStore interface {
	Get(ctx context.Context, customerID uuid.UUID, assetName string) (models.Balance, bool, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Balance, error)
	ApplyDelta(ctx context.Context, customerID uuid.UUID, assetName string, delta decimal.Decimal) (models.Balance, error)
}

// Ledger maintains per-(customer, asset) balances. It is the only mutator
// of balance records; every adjustment moves Total and Usable by the same
// delta, so the two fields stay numerically identical until a settlement
// process starts splitting them.
type Ledger struct {
	balances BalanceStore
}

func New(balances BalanceStore) *Ledger {
	return &Ledger{balances: balances}
}

// GetBalance returns the customer's balance for an asset. A customer with
// no record for the asset holds a zero balance, not an error.
func (l *Ledger) GetBalance(ctx context.Context, customerID uuid.UUID, assetName string) (models.Balance, error) {
	bal, found, err := l.balances.Get(ctx, customerID, assetName)
	if err != nil {
		return models.Balance{}, err
	}
	if !found {
		return zeroBalance(customerID, assetName), nil
	}
	return bal, nil
}

// ListBalances returns every balance record the customer has.
func (l *Ledger) ListBalances(ctx context.Context, customerID uuid.UUID) ([]models.Balance, error) {
	return l.balances.ListByCustomer(ctx, customerID)
}

// HasUsable reports whether the customer's usable balance covers amount.
// This is a point-in-time read and carries no reservation: under concurrent
// access the answer may be stale by the time the caller acts on it. Anything
// that needs check-and-reserve semantics must go through Adjust instead.
func (l *Ledger) HasUsable(ctx context.Context, customerID uuid.UUID, assetName string, amount decimal.Decimal) (bool, error) {
	if amount.IsNegative() {
		return false, models.ErrInvalidArgument
	}
	bal, err := l.GetBalance(ctx, customerID, assetName)
	if err != nil {
		return false, err
	}
	return bal.Usable.GreaterThanOrEqual(amount), nil
}

// Adjust atomically applies total += delta; usable += delta. A positive
// delta credits, a negative delta debits or reserves. It fails with
// models.ErrInsufficientFunds when either field would go negative, leaving
// the balance unchanged. The record is created lazily on first adjustment
// and never deleted; a zero balance is a valid resting state.
func (l *Ledger) Adjust(ctx context.Context, customerID uuid.UUID, assetName string, delta decimal.Decimal) (models.Balance, error) {
	if assetName == "" {
		return models.Balance{}, models.ErrInvalidArgument
	}
	return l.balances.ApplyDelta(ctx, customerID, assetName, delta)
}

func zeroBalance(customerID uuid.UUID, assetName string) models.Balance {
	return models.Balance{
		CustomerID: customerID,
		AssetName:  assetName,
		Total:      decimal.Zero,
		Usable:     decimal.Zero,
	}
}
