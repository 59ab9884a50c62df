package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role determines what a customer may do through the API.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderStatus is the lifecycle state of an order. PENDING is initial;
// MATCHED and CANCELED are terminal. Nothing in this backend produces
// MATCHED, that transition belongs to a matching engine that does not
// exist yet.
type OrderStatus string

const (
	StatusPending  OrderStatus = "PENDING"
	StatusMatched  OrderStatus = "MATCHED"
	StatusCanceled OrderStatus = "CANCELED"
)

// SettlementAsset is the currency BUY orders are priced and settled in.
const SettlementAsset = "TRY"

// Customer represents a customer account.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"` // bcrypt hash, never serialized
	IBAN      string    `json:"iban"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Balance is a customer's holdings of one named asset. Usable is the part
// not reserved by open orders. Invariant: 0 <= Usable <= Total.
type Balance struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	AssetName  string          `json:"asset_name"`
	Total      decimal.Decimal `json:"total"`
	Usable     decimal.Decimal `json:"usable"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Order represents a buy or sell order against a customer's balances.
type Order struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	AssetName  string          `json:"asset_name"`
	Side       Side            `json:"side"`
	Size       decimal.Decimal `json:"size"`
	Price      decimal.Decimal `json:"price"`
	Status     OrderStatus     `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}
