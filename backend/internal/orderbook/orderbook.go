// Package orderbook drives the order lifecycle and keeps it in sync with
// ledger reservations. Placing an order debits the reservation and creates
// the PENDING record as one atomic unit; canceling flips the status and
// credits the reservation back the same way. There is no matching here:
// MATCHED is a terminal state reserved for an engine that is not built yet.
package orderbook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/user/brokerage/backend/internal/clock"
	"github.com/user/brokerage/backend/internal/ledger"
	"github.com/user/brokerage/backend/internal/models"
)

// OrderStore is the persistence contract for orders. SetStatus is a
// conditional write: it transitions the order to the target status only if
// it is currently in the expected one, failing with
// models.ErrInvalidOrderState otherwise, so exactly
// one of two concurrent cancels can win. WithTx scopes the callback to one
// transaction; ledger writes made inside the callback commit or roll back
// together with the order writes.
type OrderStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, order models.Order) error
	Get(ctx context.Context, orderID uuid.UUID) (models.Order, error)
	List(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]models.Order, error)
	SetStatus(ctx context.Context, orderID uuid.UUID, from, to models.OrderStatus) error
}

// Book is the per-customer order lifecycle manager.
type Book struct {
	orders OrderStore
	ledger *ledger.Ledger
	clock  clock.Clock
}

func New(orders OrderStore, ldg *ledger.Ledger, clk clock.Clock) *Book {
	return &Book{orders: orders, ledger: ldg, clock: clk}
}

// reservation returns the asset and amount an order earmarks: size*price of
// the settlement asset for BUY, size of the traded asset for SELL. The BUY
// product is computed at full decimal precision, no rounding.
func reservation(assetName string, side models.Side, size, price decimal.Decimal) (string, decimal.Decimal) {
	if side == models.SideBuy {
		return models.SettlementAsset, size.Mul(price)
	}
	return assetName, size
}

// PlaceOrder validates the request, reserves the required balance, and
// creates the PENDING order. The check and the debit are a single
// conditional write in the ledger, so two concurrent placements against the
// same balance can never both succeed on one reservation's worth of funds.
// On models.ErrInsufficientFunds neither the balance nor the order set is
// touched.
func (b *Book) PlaceOrder(ctx context.Context, customerID uuid.UUID, assetName string, side models.Side, size, price decimal.Decimal) (models.Order, error) {
	if assetName == "" || !size.IsPositive() || !price.IsPositive() {
		return models.Order{}, models.ErrInvalidArgument
	}
	if side != models.SideBuy && side != models.SideSell {
		return models.Order{}, models.ErrInvalidArgument
	}

	order := models.Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		AssetName:  assetName,
		Side:       side,
		Size:       size,
		Price:      price,
		Status:     models.StatusPending,
		CreatedAt:  b.clock.Now(),
	}

	reserveAsset, amount := reservation(assetName, side, size, price)
	err := b.orders.WithTx(ctx, func(ctx context.Context) error {
		if _, err := b.ledger.Adjust(ctx, customerID, reserveAsset, amount.Neg()); err != nil {
			return err
		}
		if err := b.orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order for customer %s: %w", customerID, err)
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// CancelOrder transitions a PENDING order to CANCELED and credits back the
// exact amount its placement reserved. The status flip and the credit share
// one transaction, and the flip is conditional on the order still being
// PENDING, so a concurrent cancel of the same order observes
// models.ErrInvalidOrderState rather than producing a double credit.
func (b *Book) CancelOrder(ctx context.Context, customerID, orderID uuid.UUID) error {
	return b.orders.WithTx(ctx, func(ctx context.Context) error {
		order, err := b.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return models.ErrPermissionDenied
		}
		if order.Status != models.StatusPending {
			return models.ErrInvalidOrderState
		}
		if err := b.orders.SetStatus(ctx, orderID, models.StatusPending, models.StatusCanceled); err != nil {
			return err
		}
		releaseAsset, amount := reservation(order.AssetName, order.Side, order.Size, order.Price)
		if _, err := b.ledger.Adjust(ctx, order.CustomerID, releaseAsset, amount); err != nil {
			return fmt.Errorf("release reservation for order %s: %w", orderID, err)
		}
		return nil
	})
}

// GetOrder returns a single order, enforcing the same ownership rule as
// CancelOrder: no customer reads another customer's order.
func (b *Book) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (models.Order, error) {
	order, err := b.orders.Get(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.CustomerID != customerID {
		return models.Order{}, models.ErrPermissionDenied
	}
	return order, nil
}

// ListOrders returns the customer's orders created within [from, to].
func (b *Book) ListOrders(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]models.Order, error) {
	return b.orders.List(ctx, customerID, from, to)
}
