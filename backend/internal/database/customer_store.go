package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/brokerage/backend/internal/models"
)

// CustomerStore persists customer accounts.
type CustomerStore struct {
	pool *pgxpool.Pool
}

func NewCustomerStore(pool *pgxpool.Pool) *CustomerStore {
	return &CustomerStore{pool: pool}
}

// Create inserts a new customer. The password field must already be a
// bcrypt hash.
func (s *CustomerStore) Create(ctx context.Context, username, passwordHash, iban string, role models.Role) (models.Customer, error) {
	customer := models.Customer{
		Username: username,
		Password: passwordHash,
		IBAN:     iban,
		Role:     role,
	}

	const query = `INSERT INTO customers (username, password_hash, iban, role)
				   VALUES ($1, $2, $3, $4)
				   RETURNING id, created_at`

	err := querier(ctx, s.pool).QueryRow(ctx, query, username, passwordHash, iban, role).
		Scan(&customer.ID, &customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Customer{}, models.ErrUsernameTaken
		}
		return models.Customer{}, fmt.Errorf("create customer %s: %w", username, err)
	}
	return customer, nil
}

func (s *CustomerStore) GetByUsername(ctx context.Context, username string) (models.Customer, error) {
	const query = `SELECT id, username, password_hash, iban, role, created_at
				   FROM customers WHERE username = $1`

	var customer models.Customer
	err := querier(ctx, s.pool).QueryRow(ctx, query, username).
		Scan(&customer.ID, &customer.Username, &customer.Password, &customer.IBAN, &customer.Role, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, models.ErrCustomerNotFound
		}
		return models.Customer{}, fmt.Errorf("get customer by username %s: %w", username, err)
	}
	return customer, nil
}

func (s *CustomerStore) GetByID(ctx context.Context, customerID uuid.UUID) (models.Customer, error) {
	const query = `SELECT id, username, password_hash, iban, role, created_at
				   FROM customers WHERE id = $1`

	var customer models.Customer
	err := querier(ctx, s.pool).QueryRow(ctx, query, customerID).
		Scan(&customer.ID, &customer.Username, &customer.Password, &customer.IBAN, &customer.Role, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Customer{}, models.ErrCustomerNotFound
		}
		return models.Customer{}, fmt.Errorf("get customer by id %s: %w", customerID, err)
	}
	return customer, nil
}
