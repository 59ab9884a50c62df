package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/brokerage/backend/internal/models"
)

// OrderStore implements orderbook.OrderStore on PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

func (s *OrderStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, s.pool, fn)
}

func (s *OrderStore) Create(ctx context.Context, order models.Order) error {
	const query = `INSERT INTO orders (id, customer_id, asset_name, side, size, price, status, created_at)
				   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier(ctx, s.pool).Exec(ctx, query,
		order.ID, order.CustomerID, order.AssetName, order.Side,
		order.Size, order.Price, order.Status, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, orderID uuid.UUID) (models.Order, error) {
	const query = `SELECT id, customer_id, asset_name, side, size, price, status, created_at
				   FROM orders WHERE id = $1`

	var order models.Order
	err := querier(ctx, s.pool).QueryRow(ctx, query, orderID).Scan(
		&order.ID, &order.CustomerID, &order.AssetName, &order.Side,
		&order.Size, &order.Price, &order.Status, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, models.ErrOrderNotFound
		}
		return models.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return order, nil
}

func (s *OrderStore) List(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]models.Order, error) {
	const query = `SELECT id, customer_id, asset_name, side, size, price, status, created_at
				   FROM orders
				   WHERE customer_id = $1 AND created_at >= $2 AND created_at <= $3
				   ORDER BY created_at DESC`

	rows, err := querier(ctx, s.pool).Query(ctx, query, customerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list orders for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(
			&order.ID, &order.CustomerID, &order.AssetName, &order.Side,
			&order.Size, &order.Price, &order.Status, &order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row for customer %s: %w", customerID, err)
		}
		orders = append(orders, order)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate order rows for customer %s: %w", customerID, rows.Err())
	}
	return orders, nil
}

// SetStatus flips the order from one status to another only if it still has
// the expected one. A lost race shows up as zero affected rows; the follow-up
// read distinguishes a vanished order from one someone else transitioned.
func (s *OrderStore) SetStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) error {
	const query = `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`

	tag, err := querier(ctx, s.pool).Exec(ctx, query, orderID, from, to)
	if err != nil {
		return fmt.Errorf("update order %s status: %w", orderID, err)
	}
	if tag.RowsAffected() != 1 {
		if _, err := s.Get(ctx, orderID); err != nil {
			return err
		}
		return models.ErrInvalidOrderState
	}
	return nil
}
