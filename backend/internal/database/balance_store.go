package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/user/brokerage/backend/internal/models"
)

// BalanceStore implements ledger.BalanceStore on PostgreSQL. The atomic
// conditional write the ledger contract requires is a single UPDATE guarded
// by the non-negativity conditions; RowsAffected tells us whether the check
// passed.
type BalanceStore struct {
	pool *pgxpool.Pool
}

func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

func (s *BalanceStore) Get(ctx context.Context, customerID uuid.UUID, assetName string) (models.Balance, bool, error) {
	const query = `SELECT customer_id, asset_name, total, usable, updated_at
				   FROM balances WHERE customer_id = $1 AND asset_name = $2`

	var bal models.Balance
	err := querier(ctx, s.pool).QueryRow(ctx, query, customerID, assetName).
		Scan(&bal.CustomerID, &bal.AssetName, &bal.Total, &bal.Usable, &bal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Balance{}, false, nil
		}
		return models.Balance{}, false, fmt.Errorf("get balance %s/%s: %w", customerID, assetName, err)
	}
	return bal, true, nil
}

func (s *BalanceStore) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Balance, error) {
	const query = `SELECT customer_id, asset_name, total, usable, updated_at
				   FROM balances WHERE customer_id = $1 ORDER BY asset_name`

	rows, err := querier(ctx, s.pool).Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list balances for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	balances := make([]models.Balance, 0)
	for rows.Next() {
		var bal models.Balance
		if err := rows.Scan(&bal.CustomerID, &bal.AssetName, &bal.Total, &bal.Usable, &bal.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan balance row for customer %s: %w", customerID, err)
		}
		balances = append(balances, bal)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate balance rows for customer %s: %w", customerID, rows.Err())
	}
	return balances, nil
}

// ApplyDelta adds delta to both total and usable in one conditional UPDATE.
// The row is created lazily with zero values; ON CONFLICT DO NOTHING keeps
// concurrent first adjustments from colliding. When the guarded UPDATE
// matches no row the delta would have driven a field negative, and the
// balance is left exactly as it was.
func (s *BalanceStore) ApplyDelta(ctx context.Context, customerID uuid.UUID, assetName string, delta decimal.Decimal) (models.Balance, error) {
	q := querier(ctx, s.pool)

	const ensure = `INSERT INTO balances (customer_id, asset_name, total, usable)
					VALUES ($1, $2, 0, 0)
					ON CONFLICT (customer_id, asset_name) DO NOTHING`
	if _, err := q.Exec(ctx, ensure, customerID, assetName); err != nil {
		return models.Balance{}, fmt.Errorf("ensure balance %s/%s: %w", customerID, assetName, err)
	}

	const update = `UPDATE balances
					SET total = total + $3, usable = usable + $3, updated_at = NOW()
					WHERE customer_id = $1 AND asset_name = $2
					  AND total + $3 >= 0 AND usable + $3 >= 0
					RETURNING customer_id, asset_name, total, usable, updated_at`

	var bal models.Balance
	err := q.QueryRow(ctx, update, customerID, assetName, delta).
		Scan(&bal.CustomerID, &bal.AssetName, &bal.Total, &bal.Usable, &bal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Balance{}, models.ErrInsufficientFunds
		}
		return models.Balance{}, fmt.Errorf("adjust balance %s/%s by %s: %w", customerID, assetName, delta, err)
	}
	return bal, nil
}
